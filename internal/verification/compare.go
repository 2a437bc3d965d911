package verification

import (
	"context"

	"github.com/kozaktomas/face-consistency/internal/constants"
	"github.com/kozaktomas/face-consistency/internal/distance"
	"github.com/kozaktomas/face-consistency/internal/metrics"
	"go.uber.org/zap"
)

// methodCompare labels comparisons made outside a registration chain.
const methodCompare = "compare"

// CompareResult is the all-pairs comparison of ad-hoc image references.
// Matrix[i][j] and Distances[i][j] are symmetric; the diagonal is a match at distance 0.
// Pairs involving a missing sample are a non-match at distance 1.
type CompareResult struct {
	Matrix    [][]bool    `json:"matrix"`
	Distances [][]float64 `json:"distances"`
	Errors    []string    `json:"errors"` // per reference, empty when extraction succeeded
}

// PairComparison is the two-image comparison result.
type PairComparison struct {
	CosineSimilarity  float64 `json:"cosine_similarity"`
	EuclideanDistance float64 `json:"euclidean_distance"`
	Verified          bool    `json:"deepface_verified"`
	Distance          float64 `json:"deepface_distance"`
	Threshold         float64 `json:"deepface_threshold"`
	Error             string  `json:"error,omitempty"`
}

// Comparer compares ad-hoc image references without clustering, fallback or preprocessing.
type Comparer struct {
	extractor *Extractor
	verifier  PairVerifier
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewComparer creates a comparer over the given collaborators (Clusterer is unused).
func NewComparer(c Collaborators, logger *zap.Logger) *Comparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparer{
		extractor: NewExtractor(c.Fetcher, c.Detector, c.Embedder, logger),
		verifier:  c.Verifier,
		logger:    logger,
	}
}

// WithMetrics sets the metrics sink and returns the comparer.
func (c *Comparer) WithMetrics(m *metrics.Metrics) *Comparer {
	c.metrics = m
	return c
}

// Compare verifies every pair of references against each other.
func (c *Comparer) Compare(ctx context.Context, refs []string) CompareResult {
	n := len(refs)
	samples := make([]FaceSample, n)
	res := CompareResult{
		Matrix:    make([][]bool, n),
		Distances: make([][]float64, n),
		Errors:    make([]string, n),
	}
	for i, ref := range refs {
		samples[i] = c.extractor.Extract(ctx, i, ref, nil, false)
		if samples[i].Err != nil {
			res.Errors[i] = samples[i].Err.Error()
			c.metrics.IncrementMissing(missingReason(samples[i].Err))
		}
		res.Matrix[i] = make([]bool, n)
		res.Distances[i] = make([]float64, n)
	}

	for i := range n {
		res.Matrix[i][i] = true
		for j := i + 1; j < n; j++ {
			verified, dist := false, 1.0
			if !samples[i].Missing() && !samples[j].Missing() {
				pr, err := c.verifier.VerifyPair(ctx, samples[i].Crop, samples[j].Crop,
					constants.VerifyMetric, constants.VerifyThreshold)
				if err != nil {
					c.logger.Warn("pair verification failed", zap.Int("a", i), zap.Int("b", j), zap.Error(err))
				} else {
					verified, dist = pr.Verified, pr.Distance
					c.metrics.IncrementComparison(methodCompare, verified)
				}
			}
			res.Matrix[i][j], res.Matrix[j][i] = verified, verified
			res.Distances[i][j], res.Distances[j][i] = dist, dist
		}
	}
	return res
}

// ComparePair compares two references and reports embedding similarity alongside
// the verifier's decision. Failures are reported in Error with a non-match result.
func (c *Comparer) ComparePair(ctx context.Context, refA, refB string) PairComparison {
	failed := func(err error) PairComparison {
		return PairComparison{
			EuclideanDistance: 1.0,
			Distance:          1.0,
			Threshold:         constants.VerifyThreshold,
			Error:             err.Error(),
		}
	}

	a := c.extractor.Extract(ctx, 0, refA, nil, true)
	if a.Err != nil {
		c.metrics.IncrementMissing(missingReason(a.Err))
		return failed(a.Err)
	}
	b := c.extractor.Extract(ctx, 1, refB, nil, true)
	if b.Err != nil {
		c.metrics.IncrementMissing(missingReason(b.Err))
		return failed(b.Err)
	}

	pr, err := c.verifier.VerifyPair(ctx, a.Crop, b.Crop, constants.VerifyMetric, constants.VerifyThreshold)
	if err != nil {
		return failed(&VerificationError{Err: err})
	}
	c.metrics.IncrementComparison(methodCompare, pr.Verified)

	return PairComparison{
		CosineSimilarity:  distance.CosineSimilarity(a.Embedding, b.Embedding),
		EuclideanDistance: distance.Euclidean(a.Embedding, b.Embedding),
		Verified:          pr.Verified,
		Distance:          pr.Distance,
		Threshold:         constants.VerifyThreshold,
	}
}
