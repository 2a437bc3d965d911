package verification

import (
	"context"
	"image"
)

// ImageFetcher retrieves and decodes the image behind a reference.
// Failures should be reported as *FetchError.
type ImageFetcher interface {
	Fetch(ctx context.Context, reference string) (image.Image, error)
}

// FaceDetector locates the primary face of an image.
// It returns ErrNoFaceDetected (possibly wrapped) when there is none.
type FaceDetector interface {
	DetectPrimaryFace(ctx context.Context, img image.Image) (image.Rectangle, error)
}

// FaceEmbedder produces a fixed-length embedding for a face crop.
type FaceEmbedder interface {
	Embed(ctx context.Context, crop *image.RGBA) ([]float32, error)
}

// PairVerifier decides whether two crops show the same identity.
type PairVerifier interface {
	VerifyPair(ctx context.Context, a, b *image.RGBA, metric string, threshold float64) (PairResult, error)
}

// Clusterer assigns a cluster label to each embedding; NoiseLabel marks unclustered points.
type Clusterer interface {
	Cluster(embeddings [][]float32, radius float64, minNeighbors int) []int
}

// NoiseLabel is the reserved cluster label for unclustered points.
const NoiseLabel = -1
