package httpapi

import (
	"encoding/json"
	"net/http"

	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

// handleChallenge implements POST /auth/challenge: the NO_AUTH ->
// CHALLENGE_PENDING transition.
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wcsaperrors.ErrInvalidWalletAddress(""))
		return
	}

	c, err := s.auth.RequestChallenge(r.Context(), req.WalletAddress, clientIP(r), r.Header.Get("User-Agent"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChallengeResponse{
		ChallengeID:   c.ChallengeID,
		WalletAddress: c.WalletAddress,
		ChallengeMsg:  c.ChallengeMsg,
		ExpiresAt:     c.ExpiresAt,
	})
}
