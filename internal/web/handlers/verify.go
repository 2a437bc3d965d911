package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-consistency/internal/ingest"
	"github.com/kozaktomas/face-consistency/internal/verification"
	"go.uber.org/zap"
)

// RegistrationVerifier runs the full verification pipeline for one registrant.
type RegistrationVerifier interface {
	Verify(ctx context.Context, group verification.RegistrationGroup) verification.Result
}

// VerifyHandler serves single-registrant verification.
type VerifyHandler struct {
	verifier RegistrationVerifier
	logger   *zap.Logger
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(verifier RegistrationVerifier, logger *zap.Logger) *VerifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifyHandler{verifier: verifier, logger: logger}
}

type verifyRequest struct {
	RegistrantID string         `json:"registrant_id"`
	Images       []ingest.Image `json:"images"`
}

type verifyResponse struct {
	RequestID string `json:"request_id"`
	verification.Result
}

// Verify handles POST /verify. Images are ordered by their day and shift labels;
// fewer than two images yield an "insufficient images" verdict, not an error.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	regID := strings.TrimSpace(req.RegistrantID)
	if regID == "" {
		respondError(w, http.StatusBadRequest, "registrant_id is required")
		return
	}
	if len(req.Images) > maxCompareURLs {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images are allowed", maxCompareURLs))
		return
	}
	for i := range req.Images {
		req.Images[i].Day = strings.TrimSpace(req.Images[i].Day)
		req.Images[i].Shift = strings.TrimSpace(req.Images[i].Shift)
		req.Images[i].Reference = strings.TrimSpace(req.Images[i].Reference)
	}

	requestID := uuid.NewString()
	log := h.logger.With(zap.String("request_id", requestID), zap.String("registrant", sanitizeForLog(regID)))

	group := ingest.NewGroup(regID, req.Images, log)
	result := h.verifier.Verify(r.Context(), group)
	if result.Comparisons == nil {
		result.Comparisons = []verification.PairVerification{}
	}

	log.Info("registration verified",
		zap.Int("images", len(req.Images)),
		zap.Bool("all_verified", result.Verdict.AllVerified),
		zap.String("failure_locus", result.Verdict.FailureLocus),
	)

	respondJSON(w, http.StatusOK, verifyResponse{RequestID: requestID, Result: result})
}
