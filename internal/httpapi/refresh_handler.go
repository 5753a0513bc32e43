package httpapi

import (
	"encoding/json"
	"net/http"

	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

// handleRefresh implements POST /auth/refresh: AUTHENTICATED ->
// AUTHENTICATED'.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wcsaperrors.ErrInvalidRefreshToken())
		return
	}

	session, err := s.auth.Refresh(r.Context(), req.SessionToken, req.RefreshToken, clientIP(r), r.Header.Get("User-Agent"))
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
