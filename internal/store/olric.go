package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Lento47/GigChain-wcsap/internal/challenge"
	"github.com/Lento47/GigChain-wcsap/internal/cryptoutil"
	olriclib "github.com/olric-data/olric"
)

const (
	sessionsDMap   = "w_csap_sessions"
	challengesDMap = "w_csap_challenges"
)

// OlricBackend is a distributed Backend built on an Olric cluster,
// relying on the DMap's native per-key TTL instead of a sweep goroutine.
type OlricBackend struct {
	client     olriclib.Client
	sessions   olriclib.DMap
	challenges olriclib.DMap
	rotator    *cryptoutil.Rotator
}

// NewOlricBackend dials the Olric cluster at servers and opens the DMaps
// this backend uses for session and challenge persistence.
func NewOlricBackend(ctx context.Context, servers []string, secret []byte) (*OlricBackend, error) {
	rot, err := cryptoutil.NewRotator(secret)
	if err != nil {
		return nil, err
	}

	client, err := olriclib.NewClusterClient(servers)
	if err != nil {
		return nil, fmt.Errorf("store: failed to create olric cluster client: %w", err)
	}
	sessions, err := client.NewDMap(sessionsDMap)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open sessions dmap: %w", err)
	}
	challenges, err := client.NewDMap(challengesDMap)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open challenges dmap: %w", err)
	}

	return &OlricBackend{
		client:     client,
		sessions:   sessions,
		challenges: challenges,
		rotator:    rot,
	}, nil
}

func (b *OlricBackend) PutSession(ctx context.Context, s *Session, ttl time.Duration) error {
	sealed, err := sealRecord(b.rotator.Current(), sessionKey(s.AssertionID), s)
	if err != nil {
		return err
	}
	return b.sessions.Put(ctx, s.AssertionID, sealed, olriclib.EX(ttl))
}

func (b *OlricBackend) GetSession(ctx context.Context, assertionID string) (*Session, error) {
	gr, err := b.sessions.Get(ctx, assertionID)
	if err != nil {
		return nil, nil
	}
	sealed, err := gr.String()
	if err != nil {
		return nil, nil
	}

	var s Session
	ok, err := b.openWithOverlap(sessionKey(assertionID), sealed, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		_, _ = b.sessions.Delete(ctx, assertionID)
		return nil, nil
	}
	return &s, nil
}

func (b *OlricBackend) DeleteSession(ctx context.Context, assertionID string) error {
	_, err := b.sessions.Delete(ctx, assertionID)
	return err
}

// SessionsByWallet performs a cursor-based scan over the sessions DMap
// rather than materializing the whole keyset.
func (b *OlricBackend) SessionsByWallet(ctx context.Context, wallet string) ([]*Session, error) {
	wanted := strings.ToLower(wallet)

	iterator, err := b.sessions.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: failed to scan sessions: %w", err)
	}
	defer iterator.Close()

	now := time.Now()
	var out []*Session
	for iterator.Next() {
		s, err := b.GetSession(ctx, iterator.Key())
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

func (b *OlricBackend) PutChallenge(ctx context.Context, c *challenge.Challenge, ttl time.Duration) error {
	sealed, err := sealRecord(b.rotator.Current(), challengeKey(c.ChallengeID), c)
	if err != nil {
		return err
	}
	return b.challenges.Put(ctx, c.ChallengeID, sealed, olriclib.EX(ttl))
}

func (b *OlricBackend) GetChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	gr, err := b.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, nil
	}
	sealed, err := gr.String()
	if err != nil {
		return nil, nil
	}

	var c challenge.Challenge
	ok, err := b.openWithOverlap(challengeKey(challengeID), sealed, &c)
	if err != nil {
		return nil, err
	}
	if !ok {
		_, _ = b.challenges.Delete(ctx, challengeID)
		return nil, nil
	}
	return &c, nil
}

func (b *OlricBackend) DeleteChallenge(ctx context.Context, challengeID string) error {
	_, err := b.challenges.Delete(ctx, challengeID)
	return err
}

// ConsumeChallenge uses Olric's distributed key lock to make the
// read-then-delete atomic across the cluster, not just within one
// process: two nodes racing the same challengeID serialize on the lock,
// so only the first sees a non-nil challenge.
func (b *OlricBackend) ConsumeChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	lock, err := b.challenges.Lock(ctx, challengeID, 2*time.Second)
	if err != nil {
		// Another node holds the lock mid-consume, or the cluster call
		// failed; either way this caller must not proceed as if it won
		// the race.
		return nil, nil
	}
	defer lock.Unlock(ctx)

	c, err := b.GetChallenge(ctx, challengeID)
	if err != nil || c == nil {
		return nil, err
	}
	if _, err := b.challenges.Delete(ctx, challengeID); err != nil {
		return nil, fmt.Errorf("store: failed to delete consumed challenge: %w", err)
	}
	return c, nil
}

func (b *OlricBackend) openWithOverlap(key, sealed string, v interface{}) (bool, error) {
	ok, err := openRecord(b.rotator.Current(), key, sealed, v)
	if err != nil || ok {
		return ok, err
	}
	if prior := b.rotator.Prior(); prior != nil {
		return openRecord(prior, key, sealed, v)
	}
	return false, nil
}

func (b *OlricBackend) RotateKeys(ctx context.Context) error {
	return b.rotator.Rotate()
}

func (b *OlricBackend) Health(ctx context.Context) (Health, error) {
	testKey := fmt.Sprintf("_health_%d", time.Now().UnixNano())
	if err := b.sessions.Put(ctx, testKey, "ok", olriclib.EX(5*time.Second)); err != nil {
		return Health{OK: false, Backend: "olric"}, nil
	}
	_, _ = b.sessions.Delete(ctx, testKey)
	return Health{OK: true, Backend: "olric"}, nil
}

func (b *OlricBackend) Close(ctx context.Context) error {
	return b.client.Close(ctx)
}
