package httpapi

import "net/http"

// handleStatus implements GET /auth/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		WalletAddress: claims.WalletAddress,
		ExpiresAt:     claims.ExpiresAt,
	})
}
