package verification

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/kozaktomas/face-consistency/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestComparer(fetcher *fakeFetcher) (*Comparer, *colorVerifier) {
	verifier := &colorVerifier{}
	c := NewComparer(Collaborators{
		Fetcher:  fetcher,
		Detector: &fakeDetector{},
		Embedder: &colorEmbedder{},
		Verifier: verifier,
	}, nil)
	return c, verifier
}

func TestCompare_Matrix(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.add("a1.jpg", personA)
	fetcher.add("a2.jpg", personA)
	fetcher.add("b.jpg", personB)
	c, verifier := newTestComparer(fetcher)

	res := c.Compare(context.Background(), []string{"a1.jpg", "a2.jpg", "b.jpg", "missing.jpg"})

	wantMatrix := [][]bool{
		{true, true, false, false},
		{true, true, false, false},
		{false, false, true, false},
		{false, false, false, true},
	}
	for i := range wantMatrix {
		for j := range wantMatrix[i] {
			if res.Matrix[i][j] != wantMatrix[i][j] {
				t.Errorf("matrix[%d][%d] = %v, want %v", i, j, res.Matrix[i][j], wantMatrix[i][j])
			}
			if res.Distances[i][j] != res.Distances[j][i] {
				t.Errorf("distances not symmetric at %d,%d", i, j)
			}
		}
		if res.Distances[i][i] != 0 {
			t.Errorf("distance[%d][%d] = %v, want 0", i, i, res.Distances[i][i])
		}
	}
	if res.Distances[0][3] != 1 {
		t.Errorf("distance to a missing sample = %v, want 1", res.Distances[0][3])
	}
	// only the three pairs among extractable samples reach the verifier
	if verifier.calls != 3 {
		t.Errorf("verifier calls = %d, want 3", verifier.calls)
	}
	if res.Errors[3] == "" || res.Errors[0] != "" {
		t.Errorf("unexpected errors %q", res.Errors)
	}
}

func TestCompare_Empty(t *testing.T) {
	c, _ := newTestComparer(newFakeFetcher())
	res := c.Compare(context.Background(), nil)
	if len(res.Matrix) != 0 || len(res.Distances) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestComparePair(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.add("a1.jpg", personA)
	fetcher.add("a2.jpg", personA)
	fetcher.add("b.jpg", personB)
	c, _ := newTestComparer(fetcher)

	t.Run("same person", func(t *testing.T) {
		res := c.ComparePair(context.Background(), "a1.jpg", "a2.jpg")
		if res.Error != "" {
			t.Fatalf("unexpected error %q", res.Error)
		}
		if !res.Verified {
			t.Error("expected verified")
		}
		if math.Abs(res.CosineSimilarity-1) > 1e-9 {
			t.Errorf("cosine similarity = %v, want 1", res.CosineSimilarity)
		}
		if res.EuclideanDistance != 0 {
			t.Errorf("euclidean = %v, want 0", res.EuclideanDistance)
		}
		if res.Threshold != 0.25 {
			t.Errorf("threshold = %v, want 0.25", res.Threshold)
		}
	})

	t.Run("different person", func(t *testing.T) {
		res := c.ComparePair(context.Background(), "a1.jpg", "b.jpg")
		if res.Verified {
			t.Error("expected not verified")
		}
		if math.Abs(res.EuclideanDistance-2.4) > 1e-5 {
			t.Errorf("euclidean = %v, want 2.4", res.EuclideanDistance)
		}
	})

	t.Run("missing image", func(t *testing.T) {
		res := c.ComparePair(context.Background(), "a1.jpg", "nope.jpg")
		if res.Verified || res.Distance != 1 || res.EuclideanDistance != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		if !strings.Contains(res.Error, "nope.jpg") {
			t.Errorf("error should name the reference, got %q", res.Error)
		}
	})
}

func TestCompare_RecordsMetrics(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.add("a1.jpg", personA)
	fetcher.add("a2.jpg", personA)
	fetcher.add("b.jpg", personB)
	c, _ := newTestComparer(fetcher)
	m := metrics.New(prometheus.NewRegistry())
	c.WithMetrics(m)

	c.Compare(context.Background(), []string{"a1.jpg", "a2.jpg", "b.jpg", "missing.jpg"})

	if got := testutil.ToFloat64(m.Comparisons.WithLabelValues("compare", "true")); got != 1 {
		t.Errorf("matched comparisons = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Comparisons.WithLabelValues("compare", "false")); got != 2 {
		t.Errorf("unmatched comparisons = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MissingSamples.WithLabelValues("fetch")); got != 1 {
		t.Errorf("missing samples = %v, want 1", got)
	}
}
