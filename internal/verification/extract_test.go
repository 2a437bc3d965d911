package verification

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/kozaktomas/face-consistency/internal/constants"
)

func newTestExtractor(fetcher *fakeFetcher, detector *fakeDetector, embedder *colorEmbedder) *Extractor {
	return NewExtractor(fetcher, detector, embedder, nil)
}

func TestExtract_Success(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.add("a.jpg", personA)
	embedder := &colorEmbedder{}
	e := newTestExtractor(fetcher, &fakeDetector{}, embedder)

	s := e.Extract(context.Background(), 3, "a.jpg", nil, true)

	if s.Missing() || s.Err != nil {
		t.Fatalf("unexpected failure: %v", s.Err)
	}
	if s.Index != 3 {
		t.Errorf("index = %d, want 3", s.Index)
	}
	b := s.Crop.Bounds()
	if b.Dx() != constants.CropSize || b.Dy() != constants.CropSize {
		t.Errorf("crop size = %dx%d, want %dx%d", b.Dx(), b.Dy(), constants.CropSize, constants.CropSize)
	}
	if len(s.Embedding) != 1 || s.Embedding[0] != 2 {
		t.Errorf("embedding = %v, want [2]", s.Embedding)
	}
}

func TestExtract_WithoutEmbedding(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.add("a.jpg", personA)
	embedder := &colorEmbedder{}
	e := newTestExtractor(fetcher, &fakeDetector{}, embedder)

	s := e.Extract(context.Background(), 0, "a.jpg", nil, false)

	if s.Missing() {
		t.Fatalf("unexpected failure: %v", s.Err)
	}
	if s.Embedding != nil || embedder.calls != 0 {
		t.Errorf("embedder should not be called, got %d calls", embedder.calls)
	}
}

func TestExtract_AppliesPreprocessor(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.add("a.jpg", personA)
	e := newTestExtractor(fetcher, &fakeDetector{}, &colorEmbedder{})

	marker := solidImage(constants.CropSize, constants.CropSize, personB)
	var got *image.RGBA
	pre := func(img *image.RGBA) *image.RGBA {
		got = img
		return marker
	}

	s := e.Extract(context.Background(), 0, "a.jpg", pre, true)

	if got == nil {
		t.Fatal("preprocessor was not called")
	}
	if s.Crop != marker {
		t.Error("sample should carry the preprocessed crop")
	}
	// personB red channel 220 / 50
	if len(s.Embedding) != 1 || s.Embedding[0] != 4.4 {
		t.Errorf("embedding should be computed from the preprocessed crop, got %v", s.Embedding)
	}
}

func TestExtract_Failures(t *testing.T) {
	small := image.Rect(0, 0, constants.MinFaceSize-1, 100)
	exact := image.Rect(10, 10, 10+constants.MinFaceSize, 10+constants.MinFaceSize)

	tests := []struct {
		name      string
		reference string
		detector  *fakeDetector
		embedErr  error
		wantErr   error
		reason    string
	}{
		{name: "empty reference", reference: "  ", detector: &fakeDetector{}, wantErr: ErrEmptyReference, reason: "empty_reference"},
		{name: "fetch failure", reference: "unknown.jpg", detector: &fakeDetector{}, reason: "fetch"},
		{name: "no face", reference: "a.jpg", detector: &fakeDetector{err: ErrNoFaceDetected}, wantErr: ErrNoFaceDetected, reason: "no_face"},
		{name: "face too small", reference: "a.jpg", detector: &fakeDetector{box: &small}, wantErr: ErrFaceTooSmall, reason: "too_small"},
		{name: "embedding failure", reference: "a.jpg", detector: &fakeDetector{box: &exact}, embedErr: errBoom, wantErr: errBoom, reason: "embedding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			fetcher.add("a.jpg", personA)
			e := newTestExtractor(fetcher, tt.detector, &colorEmbedder{err: tt.embedErr})

			s := e.Extract(context.Background(), 0, tt.reference, nil, true)

			if !s.Missing() {
				t.Fatal("expected missing sample")
			}
			if s.Embedding != nil {
				t.Errorf("missing sample should have no embedding, got %v", s.Embedding)
			}
			if tt.wantErr != nil && !errors.Is(s.Err, tt.wantErr) {
				t.Errorf("error = %v, want %v", s.Err, tt.wantErr)
			}
			if got := missingReason(s.Err); got != tt.reason {
				t.Errorf("reason = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestExtract_EmptyReferenceSkipsFetch(t *testing.T) {
	fetcher := newFakeFetcher()
	e := newTestExtractor(fetcher, &fakeDetector{}, &colorEmbedder{})

	e.Extract(context.Background(), 0, "", nil, false)

	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0", fetcher.calls)
	}
}

func TestExtractAll_KeepsOrder(t *testing.T) {
	group := testGroup("R1", 3)
	fetcher := newFakeFetcher()
	fetcher.add(group.Records[0].Reference, personA)
	fetcher.add(group.Records[2].Reference, personB)
	e := newTestExtractor(fetcher, &fakeDetector{}, &colorEmbedder{})

	samples := e.ExtractAll(context.Background(), group.Records, nil, true)

	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	for i, s := range samples {
		if s.Index != i {
			t.Errorf("sample %d has index %d", i, s.Index)
		}
	}
	if samples[0].Missing() || !samples[1].Missing() || samples[2].Missing() {
		t.Errorf("unexpected missing pattern: %v %v %v", samples[0].Missing(), samples[1].Missing(), samples[2].Missing())
	}
}
