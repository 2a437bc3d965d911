package verification

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/kozaktomas/face-consistency/internal/constants"
	"github.com/kozaktomas/face-consistency/internal/imaging"
	"go.uber.org/zap"
)

// Preprocessor transforms a resized face crop before embedding and verification.
type Preprocessor func(*image.RGBA) *image.RGBA

// preprocessorFor returns the crop transformation of a strategy (nil for none).
func preprocessorFor(s Strategy) Preprocessor {
	if s == StrategyHistEq {
		return imaging.EqualizeHist
	}
	return nil
}

// Extractor turns an image reference into a face sample.
type Extractor struct {
	fetcher  ImageFetcher
	detector FaceDetector
	embedder FaceEmbedder
	logger   *zap.Logger
}

// NewExtractor creates an extractor over the given collaborators.
func NewExtractor(fetcher ImageFetcher, detector FaceDetector, embedder FaceEmbedder, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		fetcher:  fetcher,
		detector: detector,
		embedder: embedder,
		logger:   logger,
	}
}

// Extract fetches the image, crops its primary face, resizes it to the standard crop
// size and applies pre. When embed is true the crop is also embedded. Any failure
// yields a missing sample carrying the cause; Extract never returns an error.
func (e *Extractor) Extract(ctx context.Context, index int, reference string, pre Preprocessor, embed bool) FaceSample {
	sample := FaceSample{Index: index}

	crop, err := e.crop(ctx, reference)
	if err == nil && pre != nil {
		crop = pre(crop)
	}
	if err == nil && embed {
		sample.Embedding, err = e.embed(ctx, crop)
	}
	if err != nil {
		e.logger.Warn("face extraction failed",
			zap.Int("index", index),
			zap.String("reference", reference),
			zap.String("reason", missingReason(err)),
			zap.Error(err),
		)
		sample.Err = err
		return sample
	}

	sample.Crop = crop
	return sample
}

// ExtractAll extracts every record of a group in order.
func (e *Extractor) ExtractAll(ctx context.Context, records []ImageRecord, pre Preprocessor, embed bool) []FaceSample {
	samples := make([]FaceSample, len(records))
	for i, rec := range records {
		samples[i] = e.Extract(ctx, i, rec.Reference, pre, embed)
	}
	return samples
}

func (e *Extractor) crop(ctx context.Context, reference string) (*image.RGBA, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, ErrEmptyReference
	}

	img, err := e.fetcher.Fetch(ctx, reference)
	if err != nil {
		return nil, err
	}

	box, err := e.detector.DetectPrimaryFace(ctx, img)
	if err != nil {
		return nil, err
	}

	face := imaging.Crop(img, box)
	w, h := face.Bounds().Dx(), face.Bounds().Dy()
	if w < constants.MinFaceSize || h < constants.MinFaceSize {
		return nil, fmt.Errorf("%w: %dx%d", ErrFaceTooSmall, w, h)
	}

	return imaging.Resize(face, constants.CropSize, constants.CropSize), nil
}

func (e *Extractor) embed(ctx context.Context, crop *image.RGBA) ([]float32, error) {
	emb, err := e.embedder.Embed(ctx, crop)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(emb) == 0 {
		return nil, &EmbeddingError{Err: errors.New("empty embedding returned")}
	}
	return emb, nil
}
