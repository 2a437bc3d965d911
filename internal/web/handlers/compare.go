package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-consistency/internal/verification"
	"go.uber.org/zap"
)

// maxCompareURLs limits the size of the all-pairs matrix per request.
const maxCompareURLs = 20

// Comparer is the comparison backend used by CompareHandler.
type Comparer interface {
	Compare(ctx context.Context, refs []string) verification.CompareResult
	ComparePair(ctx context.Context, refA, refB string) verification.PairComparison
}

// CompareHandler serves ad-hoc image comparisons.
type CompareHandler struct {
	comparer Comparer
	logger   *zap.Logger
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(comparer Comparer, logger *zap.Logger) *CompareHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompareHandler{comparer: comparer, logger: logger}
}

type compareRequest struct {
	URLs []string `json:"urls"`
}

type compareResponse struct {
	RequestID string `json:"request_id"`
	verification.CompareResult
}

type comparePairRequest struct {
	URL1 string `json:"url1"`
	URL2 string `json:"url2"`
}

type comparePairResponse struct {
	RequestID string `json:"request_id"`
	verification.PairComparison
}

// Compare handles POST /compare: every image against every other.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if len(req.URLs) < 2 {
		respondError(w, http.StatusBadRequest, verification.ErrInsufficientImages.Error())
		return
	}
	if len(req.URLs) > maxCompareURLs {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images are allowed", maxCompareURLs))
		return
	}

	requestID := uuid.NewString()
	h.logger.Info("comparing images",
		zap.String("request_id", requestID),
		zap.Int("count", len(req.URLs)),
	)

	result := h.comparer.Compare(r.Context(), req.URLs)
	for i, e := range result.Errors {
		if e != "" {
			h.logger.Warn("image could not be used",
				zap.String("request_id", requestID),
				zap.Int("index", i),
				zap.String("url", sanitizeForLog(req.URLs[i])),
				zap.String("error", e),
			)
		}
	}

	respondJSON(w, http.StatusOK, compareResponse{RequestID: requestID, CompareResult: result})
}

// ComparePair handles POST /compare/pair. Extraction and verification failures are
// reported in the error field of a 200 response.
func (h *CompareHandler) ComparePair(w http.ResponseWriter, r *http.Request) {
	var req comparePairRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	requestID := uuid.NewString()
	result := h.comparer.ComparePair(r.Context(), strings.TrimSpace(req.URL1), strings.TrimSpace(req.URL2))
	h.logger.Info("compared image pair",
		zap.String("request_id", requestID),
		zap.Bool("verified", result.Verified),
		zap.Float64("distance", result.Distance),
		zap.String("error", result.Error),
	)

	respondJSON(w, http.StatusOK, comparePairResponse{RequestID: requestID, PairComparison: result})
}
