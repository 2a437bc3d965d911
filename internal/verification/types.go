// Package verification decides whether all face photos of a registrant show the same person.
//
// The pipeline extracts one face per photo, drops samples that fall outside the dominant
// embedding cluster, verifies each consecutive pair of photos (retrying a failed pair
// against every other usable photo), and re-runs everything on histogram-equalized crops
// when most photos carry a strong color cast.
package verification

import (
	"image"
	"strconv"
	"strings"
)

// Strategy names the preprocessing applied to every crop of a registration.
type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyHistEq Strategy = "hist_eq"
)

// Method describes how a pair comparison entry was produced.
type Method string

const (
	MethodDirect   Method = "direct"
	MethodFallback Method = "fallback"
	MethodMissing  Method = "missing"
	MethodError    Method = "error"
)

// ImageRecord is one submitted photo of a registrant.
type ImageRecord struct {
	RegistrantID string
	Day          string // free-text label, e.g. "Day 2"
	Shift        string // free-text label, e.g. "Shift 1"
	DayIndex     int
	ShiftIndex   int
	Reference    string // URL or local path
}

// Label returns the "<Day>-<Shift>" label used in loci and reports.
func (r ImageRecord) Label() string {
	return r.Day + "-" + r.Shift
}

// RegistrationGroup is the ordered sequence of a registrant's photos.
// Records are sorted by (DayIndex, ShiftIndex).
type RegistrationGroup struct {
	RegistrantID string
	Records      []ImageRecord
}

// FaceSample is the extraction result for one record.
// A sample without a crop is missing; Err holds the reason.
type FaceSample struct {
	Index     int
	Crop      *image.RGBA
	Embedding []float32
	Err       error
}

// Missing reports whether extraction failed for this sample.
func (s FaceSample) Missing() bool {
	return s.Crop == nil
}

// PairResult is the outcome of one external pair verification.
type PairResult struct {
	Verified bool
	Distance float64
}

// PairVerification is one audited comparison.
type PairVerification struct {
	RegistrantID string   `json:"registrant_id"`
	IndexA       int      `json:"index_a"`
	IndexB       int      `json:"index_b"`
	LabelA       string   `json:"label_a"`
	LabelB       string   `json:"label_b"`
	Verified     bool     `json:"verified"`
	Distance     *float64 `json:"distance"` // nil when no comparison was possible
	Method       Method   `json:"method"`
	Strategy     Strategy `json:"strategy"`
	Note         string   `json:"note,omitempty"`
}

// RegistrationVerdict is the final, per-registrant decision.
type RegistrationVerdict struct {
	RegistrantID   string   `json:"registrant_id"`
	AllVerified    bool     `json:"all_verified"`
	FailureLocus   string   `json:"failure_locus"`
	OutlierIndices []int    `json:"outlier_indices"`
	Strategy       Strategy `json:"strategy"`
}

// OutliersString formats outlier indices as "1,3" (empty when none).
func (v RegistrationVerdict) OutliersString() string {
	return joinInts(v.OutlierIndices, ",")
}

// Result bundles a verdict with the authoritative pass's comparisons.
type Result struct {
	Verdict     RegistrationVerdict `json:"verdict"`
	Comparisons []PairVerification  `json:"comparisons"`
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
