package httpapi

import (
	"net/http"

	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

// powChallengeResponse is the body clients solve before calling
// /auth/challenge when the proof-of-work gate is enabled.
type powChallengeResponse struct {
	Challenge  string `json:"challenge"`
	Difficulty int    `json:"difficulty"`
}

// handlePoWChallenge implements GET /auth/pow-challenge: issues the
// puzzle the powGate middleware on POST /auth/challenge will later
// verify.
func (s *Server) handlePoWChallenge(w http.ResponseWriter, r *http.Request) {
	if !s.opts.PoWEnabled || s.pow == nil {
		writeError(w, wcsaperrors.ErrWCSAPInternal("proof-of-work is not enabled"))
		return
	}

	challengeStr, difficulty, err := s.pow.Issue()
	if err != nil {
		writeError(w, wcsaperrors.ErrWCSAPInternal("failed to issue proof-of-work challenge"))
		return
	}

	writeJSON(w, http.StatusOK, powChallengeResponse{Challenge: challengeStr, Difficulty: difficulty})
}
