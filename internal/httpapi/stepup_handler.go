package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Lento47/GigChain-wcsap/internal/access"
	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

// StepUpRequest is the body of POST /auth/step-up: a fresh
// challenge/signature pair, scoped to the specific sensitive operation
// being re-authenticated for.
type StepUpRequest struct {
	ChallengeID   string   `json:"challenge_id"`
	Signature     string   `json:"signature"`
	WalletAddress string   `json:"wallet_address"`
	OperationType string   `json:"operation_type"`
	Value         *float64 `json:"value,omitempty"`
	RiskScore     *int     `json:"risk_score,omitempty"`
}

// StepUpResponse confirms the re-authentication and the grace window it
// now covers.
type StepUpResponse struct {
	Completed         bool   `json:"completed"`
	OperationType     string `json:"operation_type"`
	RiskLevel         string `json:"risk_level"`
	GracePeriodSecond int64  `json:"grace_period_seconds"`
	SessionToken      string `json:"session_token"`
	RefreshToken      string `json:"refresh_token"`
}

// handleStepUp implements POST /auth/step-up: re-authentication for a
// sensitive operation. It reuses the same
// challenge/signature verification as the primary login flow (wallet
// signature is the baseline step-up method) and then registers the
// completion with the grace tracker so subsequent calls to
// RequireStepUp within the grace window succeed without re-signing.
func (s *Server) handleStepUp(w http.ResponseWriter, r *http.Request) {
	var req StepUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wcsaperrors.ErrInvalidSignature())
		return
	}
	if req.OperationType == "" {
		writeError(w, wcsaperrors.ErrWCSAPInternal("operation_type is required").WithField("operation_type"))
		return
	}

	session, err := s.auth.VerifySignature(r.Context(), req.ChallengeID, req.Signature, req.WalletAddress, clientIP(r), r.Header.Get("User-Agent"))
	if err != nil {
		writeError(w, err)
		return
	}

	classification := access.Classify(req.OperationType, req.Value, req.RiskScore)
	if s.grace != nil {
		s.grace.RegisterCompletion(session.WalletAddress, req.OperationType, access.MethodWalletSignature, classification.GracePeriod)
	}

	writeJSON(w, http.StatusOK, StepUpResponse{
		Completed:         true,
		OperationType:     req.OperationType,
		RiskLevel:         string(classification.RiskLevel),
		GracePeriodSecond: int64(classification.GracePeriod.Seconds()),
		SessionToken:      session.SessionToken,
		RefreshToken:      session.RefreshToken,
	})
}
