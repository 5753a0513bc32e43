package httpapi

import "net/http"

// handleLogout implements POST /auth/logout: AUTHENTICATED -> NO_AUTH
// for the session named by the bearer token. requireSession has
// already verified the token and resolved its claims.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if err := s.auth.Revoke(r.Context(), claims.AssertionID, clientIP(r), r.Header.Get("User-Agent")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
