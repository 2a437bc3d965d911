package verification

import (
	"context"
	"image/color"
	"reflect"
	"slices"
	"testing"

	"github.com/kozaktomas/face-consistency/internal/cluster"
	"github.com/kozaktomas/face-consistency/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type testPipeline struct {
	*Pipeline
	fetcher  *fakeFetcher
	embedder *colorEmbedder
	verifier *colorVerifier
}

func newTestPipeline(fetcher *fakeFetcher, clusterer Clusterer, opts ...Option) *testPipeline {
	tp := &testPipeline{
		fetcher:  fetcher,
		embedder: &colorEmbedder{},
		verifier: &colorVerifier{},
	}
	tp.Pipeline = NewPipeline(Collaborators{
		Fetcher:   fetcher,
		Detector:  &fakeDetector{},
		Embedder:  tp.embedder,
		Verifier:  tp.verifier,
		Clusterer: clusterer,
	}, opts...)
	return tp
}

// groupWithColors builds a group whose i-th image has the i-th color
func groupWithColors(id string, colors ...color.RGBA) (RegistrationGroup, *fakeFetcher) {
	group := testGroup(id, len(colors))
	fetcher := newFakeFetcher()
	for i, c := range colors {
		fetcher.add(group.Records[i].Reference, c)
	}
	return group, fetcher
}

func countMethods(comparisons []PairVerification) map[Method]int {
	counts := make(map[Method]int)
	for _, c := range comparisons {
		counts[c.Method]++
	}
	return counts
}

func TestPipeline_InsufficientImages(t *testing.T) {
	for _, n := range []int{0, 1} {
		group, fetcher := groupWithColors("R1", slices.Repeat([]color.RGBA{personA}, n)...)
		p := newTestPipeline(fetcher, cluster.NewDBSCAN())

		result := p.Verify(context.Background(), group)

		v := result.Verdict
		if v.AllVerified || v.FailureLocus != LocusInsufficientImages {
			t.Errorf("n=%d: got %v %q, want false %q", n, v.AllVerified, v.FailureLocus, LocusInsufficientImages)
		}
		if v.Strategy != StrategyNone {
			t.Errorf("n=%d: strategy = %q, want none", n, v.Strategy)
		}
		if v.OutlierIndices == nil || len(v.OutlierIndices) != 0 {
			t.Errorf("n=%d: expected empty outlier set, got %v", n, v.OutlierIndices)
		}
		if len(result.Comparisons) != 0 {
			t.Errorf("n=%d: expected no comparisons, got %d", n, len(result.Comparisons))
		}
		if fetcher.calls != 0 || p.embedder.calls != 0 || p.verifier.calls != 0 {
			t.Errorf("n=%d: expected no external calls, got fetch=%d embed=%d verify=%d",
				n, fetcher.calls, p.embedder.calls, p.verifier.calls)
		}
	}
}

func TestPipeline_AllSamePerson(t *testing.T) {
	group, fetcher := groupWithColors("R1", personA, personA, personA, personA)
	p := newTestPipeline(fetcher, cluster.NewDBSCAN())

	result := p.Verify(context.Background(), group)

	v := result.Verdict
	if !v.AllVerified || v.FailureLocus != LocusAllMatched {
		t.Errorf("got %v %q, want true %q", v.AllVerified, v.FailureLocus, LocusAllMatched)
	}
	if v.Strategy != StrategyNone {
		t.Errorf("strategy = %q, want none", v.Strategy)
	}
	if len(v.OutlierIndices) != 0 {
		t.Errorf("expected no outliers, got %v", v.OutlierIndices)
	}
	if got := countMethods(result.Comparisons); got[MethodDirect] != 3 || len(result.Comparisons) != 3 {
		t.Errorf("expected 3 direct comparisons, got %v", got)
	}
	// probe pass and authoritative pass each fetch every image once
	if fetcher.calls != 8 {
		t.Errorf("fetch calls = %d, want 8", fetcher.calls)
	}
	if p.embedder.calls != 4 {
		t.Errorf("embed calls = %d, want 4", p.embedder.calls)
	}
}

func TestPipeline_MissingImage(t *testing.T) {
	group, fetcher := groupWithColors("R1", personA, personA, personA, personA)
	delete(fetcher.images, group.Records[1].Reference)
	p := newTestPipeline(fetcher, cluster.NewDBSCAN())

	result := p.Verify(context.Background(), group)

	v := result.Verdict
	if v.AllVerified {
		t.Fatal("expected failure with a missing image")
	}
	want := "Day 1-Shift 1 <> Day 1-Shift 2 (face missing)"
	if v.FailureLocus != want {
		t.Errorf("locus = %q, want %q", v.FailureLocus, want)
	}
	if len(v.OutlierIndices) != 0 {
		t.Errorf("missing samples must not be outliers, got %v", v.OutlierIndices)
	}
	counts := countMethods(result.Comparisons)
	if counts[MethodMissing] != 2 || counts[MethodDirect] != 1 {
		t.Errorf("expected 2 missing and 1 direct entries, got %v", counts)
	}
}

func TestPipeline_DifferentPersonIsolatedAsOutlier(t *testing.T) {
	group, fetcher := groupWithColors("R1", personA, personA, personB, personA)
	p := newTestPipeline(fetcher, cluster.NewDBSCAN())

	result := p.Verify(context.Background(), group)

	v := result.Verdict
	if v.AllVerified {
		t.Fatal("expected outlier to fail the registration")
	}
	if !slices.Equal(v.OutlierIndices, []int{2}) {
		t.Errorf("outliers = %v, want [2]", v.OutlierIndices)
	}
	if v.FailureLocus != "Outliers at 2" {
		t.Errorf("locus = %q, want %q", v.FailureLocus, "Outliers at 2")
	}
	for _, c := range result.Comparisons {
		if c.IndexA == 2 || c.IndexB == 2 {
			t.Errorf("comparison touching the outlier should be skipped: %+v", c)
		}
	}
}

func TestPipeline_DifferentPersonNotIsolated(t *testing.T) {
	group, fetcher := groupWithColors("R1", personA, personA, personB, personA)
	clusterer := &fixedClusterer{labels: []int{NoiseLabel, NoiseLabel, NoiseLabel, NoiseLabel}}
	p := newTestPipeline(fetcher, clusterer)

	result := p.Verify(context.Background(), group)

	v := result.Verdict
	if !clusterer.called {
		t.Error("expected clusterer to be called")
	}
	if v.AllVerified {
		t.Fatal("expected failure")
	}
	want := "Day 1-Shift 2 <> Day 2-Shift 1 (and all others)"
	if v.FailureLocus != want {
		t.Errorf("locus = %q, want %q", v.FailureLocus, want)
	}
	if len(v.OutlierIndices) != 0 {
		t.Errorf("all-noise labels must not produce outliers, got %v", v.OutlierIndices)
	}
}

func TestPipeline_ColorCastUsesHistEq(t *testing.T) {
	cast := withGreenCast(personA)
	group, fetcher := groupWithColors("R1", cast, cast, cast, cast)
	p := newTestPipeline(fetcher, cluster.NewDBSCAN())

	result := p.Verify(context.Background(), group)

	v := result.Verdict
	if v.Strategy != StrategyHistEq {
		t.Errorf("strategy = %q, want hist_eq", v.Strategy)
	}
	if !v.AllVerified || v.FailureLocus != "All Matched (hist_eq)" {
		t.Errorf("got %v %q, want true %q", v.AllVerified, v.FailureLocus, "All Matched (hist_eq)")
	}
	for _, c := range result.Comparisons {
		if c.Strategy != StrategyHistEq {
			t.Errorf("comparison strategy = %q, want hist_eq", c.Strategy)
		}
	}
	// the probe pass never embeds
	if p.embedder.calls != 4 {
		t.Errorf("embed calls = %d, want 4", p.embedder.calls)
	}
}

func TestPipeline_ColorCastFailureSuffix(t *testing.T) {
	a, b := withGreenCast(personA), withGreenCast(personB)
	group, fetcher := groupWithColors("R1", a, a, b, a)
	clusterer := &fixedClusterer{labels: []int{NoiseLabel, NoiseLabel, NoiseLabel, NoiseLabel}}
	p := newTestPipeline(fetcher, clusterer)

	v := p.Verify(context.Background(), group).Verdict

	want := "Day 1-Shift 2 <> Day 2-Shift 1 (and all others) [hist_eq]"
	if v.FailureLocus != want {
		t.Errorf("locus = %q, want %q", v.FailureLocus, want)
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	group, fetcher := groupWithColors("R1", personA, personB, personA, personA, personA)
	p := newTestPipeline(fetcher, cluster.NewDBSCAN())

	first := p.Verify(context.Background(), group)
	second := p.Verify(context.Background(), group)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated verification differs:\n%+v\n%+v", first, second)
	}
}

func TestPipeline_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	group, fetcher := groupWithColors("R1", personA, personA, personA)
	delete(fetcher.images, group.Records[2].Reference)
	p := newTestPipeline(fetcher, cluster.NewDBSCAN(), WithMetrics(m))

	p.Verify(context.Background(), group)

	if got := testutil.ToFloat64(m.Verdicts.WithLabelValues("failed", "none")); got != 1 {
		t.Errorf("failed verdicts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.MissingSamples.WithLabelValues("fetch")); got != 1 {
		t.Errorf("fetch missing samples = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Comparisons.WithLabelValues("direct", "true")); got != 1 {
		t.Errorf("direct verified comparisons = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Comparisons.WithLabelValues("missing", "false")); got != 1 {
		t.Errorf("missing comparisons = %v, want 1", got)
	}
}
