package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Lento47/GigChain-wcsap/internal/challenge"
	"github.com/Lento47/GigChain-wcsap/internal/cryptoutil"
)

type memoryEntry struct {
	sealed    string
	expiresAt time.Time
}

// MemoryBackend is an in-process Backend for single-node deployments. A
// background goroutine sweeps expired entries on an interval since the
// map itself has no native TTL.
type MemoryBackend struct {
	mu         sync.RWMutex
	sessions   map[string]memoryEntry
	challenges map[string]memoryEntry
	km         *cryptoutil.KeyMaterial
	rotator    *cryptoutil.Rotator
	stop       chan struct{}
}

// NewMemoryBackend builds a MemoryBackend keyed off secret and starts its
// sweep goroutine at the given interval.
func NewMemoryBackend(secret []byte, sweepInterval time.Duration) (*MemoryBackend, error) {
	rot, err := cryptoutil.NewRotator(secret)
	if err != nil {
		return nil, err
	}
	b := &MemoryBackend{
		sessions:   make(map[string]memoryEntry),
		challenges: make(map[string]memoryEntry),
		km:         rot.Current(),
		rotator:    rot,
		stop:       make(chan struct{}),
	}
	b.startSweep(sweepInterval)
	return b, nil
}

func (b *MemoryBackend) startSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.sweep()
			case <-b.stop:
				return
			}
		}
	}()
}

func (b *MemoryBackend) sweep() {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, e := range b.sessions {
		if now.After(e.expiresAt) {
			delete(b.sessions, k)
		}
	}
	for k, e := range b.challenges {
		if now.After(e.expiresAt) {
			delete(b.challenges, k)
		}
	}
}

func sessionKey(id string) string   { return "w_csap:session:" + id }
func challengeKey(id string) string { return "w_csap:challenge:" + id }

func (b *MemoryBackend) PutSession(ctx context.Context, s *Session, ttl time.Duration) error {
	key := sessionKey(s.AssertionID)
	b.mu.RLock()
	km := b.km
	b.mu.RUnlock()
	sealed, err := sealRecord(km, key, s)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.sessions[s.AssertionID] = memoryEntry{sealed: sealed, expiresAt: time.Now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) GetSession(ctx context.Context, assertionID string) (*Session, error) {
	b.mu.RLock()
	entry, found := b.sessions[assertionID]
	b.mu.RUnlock()
	if !found {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		b.DeleteSession(ctx, assertionID)
		return nil, nil
	}

	var s Session
	ok, err := b.openWithOverlap(sessionKey(assertionID), entry.sealed, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		b.DeleteSession(ctx, assertionID)
		return nil, nil
	}
	return &s, nil
}

// openWithOverlap tries the current key generation, then the prior one
// kept around during the post-rotation overlap window, before treating
// the record as tampered/unreadable.
func (b *MemoryBackend) openWithOverlap(key, sealed string, v interface{}) (bool, error) {
	b.mu.RLock()
	current, prior := b.km, b.rotator.Prior()
	b.mu.RUnlock()

	ok, err := openRecord(current, key, sealed, v)
	if err != nil || ok {
		return ok, err
	}
	if prior == nil {
		return false, nil
	}
	return openRecord(prior, key, sealed, v)
}

func (b *MemoryBackend) DeleteSession(ctx context.Context, assertionID string) error {
	b.mu.Lock()
	delete(b.sessions, assertionID)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) SessionsByWallet(ctx context.Context, wallet string) ([]*Session, error) {
	wanted := strings.ToLower(wallet)

	b.mu.RLock()
	ids := make([]string, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	now := time.Now()
	var out []*Session
	for _, id := range ids {
		s, err := b.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		if strings.ToLower(s.WalletAddress) == wanted && s.IsValid(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b *MemoryBackend) PutChallenge(ctx context.Context, c *challenge.Challenge, ttl time.Duration) error {
	key := challengeKey(c.ChallengeID)
	b.mu.RLock()
	km := b.km
	b.mu.RUnlock()
	sealed, err := sealRecord(km, key, c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.challenges[c.ChallengeID] = memoryEntry{sealed: sealed, expiresAt: time.Now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) GetChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	b.mu.RLock()
	entry, found := b.challenges[challengeID]
	b.mu.RUnlock()
	if !found {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		b.DeleteChallenge(ctx, challengeID)
		return nil, nil
	}

	var c challenge.Challenge
	ok, err := b.openWithOverlap(challengeKey(challengeID), entry.sealed, &c)
	if err != nil {
		return nil, err
	}
	if !ok {
		b.DeleteChallenge(ctx, challengeID)
		return nil, nil
	}
	return &c, nil
}

func (b *MemoryBackend) DeleteChallenge(ctx context.Context, challengeID string) error {
	b.mu.Lock()
	delete(b.challenges, challengeID)
	b.mu.Unlock()
	return nil
}

// ConsumeChallenge holds the single map lock across the read and the
// delete so two concurrent verifies of the same challengeID cannot both
// see a non-nil result: whichever goroutine wins the lock race observes
// and removes the entry, the loser finds it already gone.
func (b *MemoryBackend) ConsumeChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	b.mu.Lock()
	entry, found := b.challenges[challengeID]
	if found {
		delete(b.challenges, challengeID)
	}
	km, prior := b.km, b.rotator.Prior()
	b.mu.Unlock()

	if !found {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	var c challenge.Challenge
	ok, err := openRecord(km, challengeKey(challengeID), entry.sealed, &c)
	if err != nil {
		return nil, err
	}
	if !ok && prior != nil {
		ok, err = openRecord(prior, challengeKey(challengeID), entry.sealed, &c)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// RotateKeys re-derives the encryption/MAC keys under a fresh salt,
// keeping the prior generation available for the overlap window so
// in-flight records sealed under the old key still decrypt.
func (b *MemoryBackend) RotateKeys(ctx context.Context) error {
	if err := b.rotator.Rotate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.km = b.rotator.Current()
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Health(ctx context.Context) (Health, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Health{
		OK:      true,
		Backend: "memory",
		Counts: map[string]int{
			"sessions":   len(b.sessions),
			"challenges": len(b.challenges),
		},
	}, nil
}

func (b *MemoryBackend) Close(ctx context.Context) error {
	close(b.stop)
	return nil
}
