package verification

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kozaktomas/face-consistency/internal/metrics"
	"go.uber.org/zap"
)

// Collaborators are the external services the pipeline consumes.
type Collaborators struct {
	Fetcher   ImageFetcher
	Detector  FaceDetector
	Embedder  FaceEmbedder
	Verifier  PairVerifier
	Clusterer Clusterer
}

// Pipeline verifies registrations one at a time. It holds no per-registration state,
// so a single Pipeline may be shared by goroutines verifying different registrations
// as long as its collaborators are safe for concurrent use.
type Pipeline struct {
	extractor *Extractor
	verifier  PairVerifier
	clusterer Clusterer
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(c Collaborators, opts ...Option) *Pipeline {
	p := &Pipeline{
		verifier:  c.Verifier,
		clusterer: c.Clusterer,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.extractor = NewExtractor(c.Fetcher, c.Detector, c.Embedder, p.logger)
	return p
}

// passResult is the outcome of one authoritative pass under a single strategy.
type passResult struct {
	strategy     Strategy
	allVerified  bool
	failureLocus string
	outliers     []int
	comparisons  []PairVerification
}

// Verify decides whether every photo of the group shows the same person.
// It always returns a verdict; external failures degrade it instead of aborting.
func (p *Pipeline) Verify(ctx context.Context, group RegistrationGroup) Result {
	start := time.Now()
	log := p.logger.With(zap.String("registrant", group.RegistrantID))

	if len(group.Records) < 2 {
		log.Info("not enough images to compare")
		verdict := insufficientVerdict(group.RegistrantID)
		p.metrics.IncrementVerdict(verdict.AllVerified, string(verdict.Strategy))
		return Result{Verdict: verdict}
	}

	strategy := StrategyNone
	if p.probeColorCast(ctx, group) {
		strategy = StrategyHistEq
	}
	log.Info("strategy selected", zap.String("strategy", string(strategy)))

	pass := p.runPass(ctx, group, strategy)
	verdict := aggregate(group.RegistrantID, pass)

	for _, c := range pass.comparisons {
		p.metrics.IncrementComparison(string(c.Method), c.Verified)
	}
	p.metrics.IncrementVerdict(verdict.AllVerified, string(verdict.Strategy))
	p.metrics.ObserveRegistration(time.Since(start))

	log.Info("registration verified",
		zap.Bool("all_verified", verdict.AllVerified),
		zap.String("failure_locus", verdict.FailureLocus),
		zap.Ints("outliers", verdict.OutlierIndices),
	)
	return Result{Verdict: verdict, Comparisons: pass.comparisons}
}

// probeColorCast extracts unprocessed crops only to decide on the strategy.
// Nothing from this pass is reused.
func (p *Pipeline) probeColorCast(ctx context.Context, group RegistrationGroup) bool {
	samples := p.extractor.ExtractAll(ctx, group.Records, nil, false)
	crops := make([]*image.RGBA, len(samples))
	for i, s := range samples {
		crops[i] = s.Crop
	}
	return DetectColorCast(crops)
}

// runPass extracts, filters outliers and verifies the chain under one strategy.
func (p *Pipeline) runPass(ctx context.Context, group RegistrationGroup, strategy Strategy) passResult {
	samples := p.extractor.ExtractAll(ctx, group.Records, preprocessorFor(strategy), true)
	for _, s := range samples {
		if s.Missing() {
			p.metrics.IncrementMissing(missingReason(s.Err))
		}
	}
	outliers := DetectOutliers(samples, p.clusterer)

	chain := VerifyChain(ctx, p.verifier, ChainInput{
		Group:    group,
		Samples:  samples,
		Outliers: outliers,
		Strategy: strategy,
	})

	for _, c := range chain.Comparisons {
		p.logger.Debug("pair compared",
			zap.String("registrant", group.RegistrantID),
			zap.String("pair", c.LabelA+" <> "+c.LabelB),
			zap.String("method", string(c.Method)),
			zap.Bool("verified", c.Verified),
		)
	}

	res := passResult{
		strategy:     strategy,
		allVerified:  chain.AllVerified,
		failureLocus: chain.FailureLocus,
		outliers:     outliers,
		comparisons:  chain.Comparisons,
	}

	// Excluded samples fail the registration and take precedence in the locus.
	if len(outliers) > 0 {
		res.allVerified = false
		res.failureLocus = fmt.Sprintf("Outliers at %s", joinInts(outliers, ", "))
	}
	return res
}
