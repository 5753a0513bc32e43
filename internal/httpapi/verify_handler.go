package httpapi

import (
	"encoding/json"
	"net/http"

	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

func tokenTypeFor(useJWT bool) string {
	if useJWT {
		return "JWT"
	}
	return "opaque"
}

// handleVerify implements POST /auth/verify: CHALLENGE_PENDING ->
// AUTHENTICATED.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wcsaperrors.ErrInvalidSignature())
		return
	}

	session, err := s.auth.VerifySignature(r.Context(), req.ChallengeID, req.Signature, req.WalletAddress, clientIP(r), r.Header.Get("User-Agent"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		WalletAddress: session.WalletAddress,
		SessionToken:  session.SessionToken,
		RefreshToken:  session.RefreshToken,
		ExpiresAt:     session.ExpiresAt,
		TokenType:     tokenTypeFor(s.opts.UseJWTTokens),
	})
}
