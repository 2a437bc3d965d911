// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face extraction constants
const (
	// CropSize is the width and height every face crop is resized to before embedding
	CropSize = 160

	// MinFaceSize is the minimum width or height (in source pixels) of a detected face.
	// Smaller detections are treated as missing samples.
	MinFaceSize = 60
)

// Outlier detection constants
const (
	// ClusterRadius is the DBSCAN neighborhood radius in embedding L2 units
	ClusterRadius = 0.7

	// ClusterMinNeighbors is the minimum number of points (including the point itself)
	// for a point to be a core point
	ClusterMinNeighbors = 2
)

// Verification constants
const (
	// VerifyThreshold is the maximum cosine distance at which two crops are the same person
	VerifyThreshold = 0.25

	// VerifyMetric is the distance metric name passed to the pair verifier
	VerifyMetric = "cosine"
)

// Color cast constants
const (
	// ColorCastSpread is the minimum difference between the largest and smallest
	// channel mean (8-bit scale) for a crop to count as cast-affected
	ColorCastSpread = 30.0

	// ColorCastFraction is the share of cast-affected crops that must be strictly exceeded
	ColorCastFraction = 0.5
)
