package verification

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-consistency/internal/constants"
)

// ChainInput is everything the chain verifier needs for one pass.
type ChainInput struct {
	Group    RegistrationGroup
	Samples  []FaceSample // one per record, same order
	Outliers []int
	Strategy Strategy
}

// ChainResult is the outcome of one chain verification pass.
type ChainResult struct {
	AllVerified  bool
	FailureLocus string   // first failure, empty when all verified
	Failures     []string // every failure in chain order
	Comparisons  []PairVerification
}

func (r *ChainResult) fail(locus string) {
	r.AllVerified = false
	if r.FailureLocus == "" {
		r.FailureLocus = locus
	}
	r.Failures = append(r.Failures, locus)
}

// VerifyChain compares every consecutive pair of samples in index order.
//
// Pairs touching an outlier are skipped. A pair with a missing sample fails without
// a comparison. A pair that does not verify is retried against every other usable
// sample in ascending index order; the first match resolves it. Processing always
// continues to the end of the chain so every failure is recorded.
func VerifyChain(ctx context.Context, verifier PairVerifier, in ChainInput) ChainResult {
	c := chainVerifier{
		verifier: verifier,
		in:       in,
		outliers: newIndexSet(in.Outliers),
		result:   ChainResult{AllVerified: true},
	}
	for i := 0; i+1 < len(in.Samples); i++ {
		c.verifyPair(ctx, i, i+1)
	}
	return c.result
}

type chainVerifier struct {
	verifier PairVerifier
	in       ChainInput
	outliers indexSet
	result   ChainResult
}

func (c *chainVerifier) label(i int) string {
	return c.in.Group.Records[i].Label()
}

func (c *chainVerifier) record(a, b int, method Method, res *PairResult, note string) {
	pv := PairVerification{
		RegistrantID: c.in.Group.RegistrantID,
		IndexA:       a,
		IndexB:       b,
		LabelA:       c.label(a),
		LabelB:       c.label(b),
		Method:       method,
		Strategy:     c.in.Strategy,
		Note:         note,
	}
	if res != nil {
		d := res.Distance
		pv.Verified = res.Verified
		pv.Distance = &d
	}
	c.result.Comparisons = append(c.result.Comparisons, pv)
}

func (c *chainVerifier) compare(ctx context.Context, a, b int) (PairResult, error) {
	res, err := c.verifier.VerifyPair(ctx, c.in.Samples[a].Crop, c.in.Samples[b].Crop,
		constants.VerifyMetric, constants.VerifyThreshold)
	if err != nil {
		return PairResult{}, &VerificationError{Err: err}
	}
	return res, nil
}

func (c *chainVerifier) verifyPair(ctx context.Context, i, next int) {
	if c.outliers.has(i) || c.outliers.has(next) {
		return
	}

	pairLabel := fmt.Sprintf("%s <> %s", c.label(i), c.label(next))

	if c.in.Samples[i].Missing() || c.in.Samples[next].Missing() {
		c.record(i, next, MethodMissing, nil, "face missing")
		c.result.fail(pairLabel + " (face missing)")
		return
	}

	res, err := c.compare(ctx, i, next)
	if err != nil {
		c.record(i, next, MethodError, nil, err.Error())
		c.result.fail(pairLabel + " (error)")
		return
	}
	c.record(i, next, MethodDirect, &res, "")
	if res.Verified {
		return
	}

	matched, err := c.fallback(ctx, next)
	if err != nil {
		c.result.fail(pairLabel + " (error)")
		return
	}
	if !matched {
		c.result.fail(pairLabel + " (and all others)")
	}
}

// fallback looks for any usable sample other than target that verifies against it.
func (c *chainVerifier) fallback(ctx context.Context, target int) (bool, error) {
	for j := range c.in.Samples {
		if j == target || c.outliers.has(j) || c.in.Samples[j].Missing() {
			continue
		}
		res, err := c.compare(ctx, j, target)
		if err != nil {
			c.record(j, target, MethodError, nil, err.Error())
			return false, err
		}
		c.record(j, target, MethodFallback, &res, "")
		if res.Verified {
			return true, nil
		}
	}
	return false, nil
}
