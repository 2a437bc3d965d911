package verification

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFaceDetected is returned by a FaceDetector when the image contains no face.
	ErrNoFaceDetected = errors.New("no face detected in the image")

	// ErrFaceTooSmall marks a detection smaller than the minimum face size.
	ErrFaceTooSmall = errors.New("face too small")

	// ErrEmptyReference marks a record without an image reference.
	ErrEmptyReference = errors.New("empty URL provided")

	// ErrInsufficientImages is returned by callers that need at least two references.
	ErrInsufficientImages = errors.New("at least 2 images are required")
)

// FetchError reports an image that could not be retrieved.
type FetchError struct {
	Reference string
	Status    int // HTTP status, 0 when no response was received
	Err       error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch image from %s: status %d", e.Reference, e.Status)
	}
	return fmt.Sprintf("failed to fetch image from %s: %v", e.Reference, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports a failure of the embedding model.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// VerificationError reports a failure of the pair verifier.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// missingReason maps an extraction error to a short label for metrics and logs.
func missingReason(err error) string {
	var fetchErr *FetchError
	var embErr *EmbeddingError
	switch {
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.Is(err, ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, ErrFaceTooSmall):
		return "too_small"
	case errors.As(err, &embErr):
		return "embedding"
	case errors.Is(err, ErrEmptyReference):
		return "empty_reference"
	default:
		return "other"
	}
}
