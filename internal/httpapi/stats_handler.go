package httpapi

import "net/http"

// handleStats implements GET /auth/stats: public, aggregate-only
// counters, never anything keyed by wallet.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.revoked.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, StatsResponse{})
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		RevocationBackend: stats.Backend,
		RevokedEntries:    stats.Entries,
	})
}
