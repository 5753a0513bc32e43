package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

// errorEnvelope is the wire shape of every error response: the same
// three top-level keys regardless of which component raised it.
type errorEnvelope struct {
	Success   bool      `json:"success"`
	Error     errorBody `json:"error"`
	Timestamp int64     `json:"timestamp"`
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the error envelope. Any error that isn't
// a *WCSAPError is treated as an opaque internal failure so handlers
// never need a type switch of their own.
func writeError(w http.ResponseWriter, err error) {
	wcsapErr, ok := err.(*wcsaperrors.WCSAPError)
	if !ok {
		wcsapErr = wcsaperrors.ErrWCSAPInternal(err.Error())
	}

	if wcsapErr.HTTPStatus == http.StatusUnauthorized {
		scheme := "Bearer"
		if wcsapErr.Code() == wcsaperrors.CodeDPoPRequired || wcsapErr.Code() == wcsaperrors.CodeDPoPInvalid {
			scheme = "DPoP"
		}
		w.Header().Set("WWW-Authenticate", scheme)
	}
	if wcsapErr.HTTPStatus == http.StatusTooManyRequests {
		if limit, ok := wcsapErr.Details["limit"].(int); ok {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		}
		if remaining, ok := wcsapErr.Details["remaining"].(int); ok {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
	}
	if retryAfter, ok := wcsapErr.Details["retry_after"].(int); ok && retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	writeJSON(w, wcsapErr.HTTPStatus, errorEnvelope{
		Success: false,
		Error: errorBody{
			Code:    wcsapErr.Code(),
			Message: wcsapErr.Message(),
			Field:   wcsapErr.Field,
			Details: wcsapErr.Details,
		},
		Timestamp: time.Now().Unix(),
	})
}

// clientIP extracts the originating address, preferring the leftmost
// X-Forwarded-For entry over RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx != -1 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
