package httpapi

import "net/http"

// handleJWKS implements GET /.well-known/jwks.json. It publishes an
// empty key set in HMAC mode (no keys to publish) rather than a 404, so
// clients probing the well-known path get a predictable empty response.
func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if s.jwt == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"keys": []interface{}{}})
		return
	}

	jwk, err := s.jwt.JWK()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"keys": []interface{}{}})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": []interface{}{jwk}})
}
