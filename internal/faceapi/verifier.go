package faceapi

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/face-consistency/internal/distance"
	"github.com/kozaktomas/face-consistency/internal/verification"
)

// EmbeddingVerifier decides whether two crops show the same person by embedding both
// and comparing the distance against the threshold.
type EmbeddingVerifier struct {
	embedder verification.FaceEmbedder
}

// NewEmbeddingVerifier creates a verifier over the given embedder
func NewEmbeddingVerifier(embedder verification.FaceEmbedder) *EmbeddingVerifier {
	return &EmbeddingVerifier{embedder: embedder}
}

// VerifyPair implements verification.PairVerifier. Supported metrics are
// "cosine" and "euclidean".
func (v *EmbeddingVerifier) VerifyPair(ctx context.Context, a, b *image.RGBA, metric string, threshold float64) (verification.PairResult, error) {
	measure, err := distanceFunc(metric)
	if err != nil {
		return verification.PairResult{}, err
	}

	embA, err := v.embedder.Embed(ctx, a)
	if err != nil {
		return verification.PairResult{}, fmt.Errorf("failed to embed first image: %w", err)
	}
	embB, err := v.embedder.Embed(ctx, b)
	if err != nil {
		return verification.PairResult{}, fmt.Errorf("failed to embed second image: %w", err)
	}
	if len(embA) != len(embB) {
		return verification.PairResult{}, fmt.Errorf("embedding dimensions differ: %d vs %d", len(embA), len(embB))
	}

	d := measure(embA, embB)
	return verification.PairResult{Verified: d <= threshold, Distance: d}, nil
}

func distanceFunc(metric string) (func(a, b []float32) float64, error) {
	switch metric {
	case "cosine":
		return distance.Cosine, nil
	case "euclidean":
		return distance.Euclidean, nil
	default:
		return nil, fmt.Errorf("unsupported distance metric %q", metric)
	}
}
