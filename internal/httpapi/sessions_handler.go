package httpapi

import (
	"net/http"

	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

// handleSessions implements GET /auth/sessions: the authenticated
// wallet's own active sessions only, never another wallet's.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, wcsaperrors.ErrWCSAPUnauthorized(""))
		return
	}

	sessions, err := s.auth.Sessions(r.Context(), claims.WalletAddress)
	if err != nil {
		writeError(w, err)
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, SessionSummary{
			AssertionID:  sess.AssertionID,
			IssuedAt:     sess.IssuedAt,
			ExpiresAt:    sess.ExpiresAt,
			LastActivity: sess.LastActivity,
		})
	}

	writeJSON(w, http.StatusOK, SessionsResponse{
		WalletAddress: claims.WalletAddress,
		Sessions:      summaries,
	})
}
