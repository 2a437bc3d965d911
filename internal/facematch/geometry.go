// Package facematch provides face detection geometry and label normalization shared
// between the face API client and the tabular input reader.
package facematch

import (
	"image"
	"math"
)

// Detection is one face reported by the face server.
type Detection struct {
	BBox  []float64 // [x1, y1, x2, y2] in source pixels
	Score float64
}

// PrimaryDetection returns the index of the detection with the highest score.
// Detections with a malformed or empty bbox are ignored; ties go to the first.
// Returns -1 when no detection is usable.
func PrimaryDetection(dets []Detection) int {
	best := -1
	for i, d := range dets {
		if BBoxArea(d.BBox) <= 0 {
			continue
		}
		if best == -1 || d.Score > dets[best].Score {
			best = i
		}
	}
	return best
}

// BBoxArea returns the area of a [x1, y1, x2, y2] box, 0 if it is malformed.
func BBoxArea(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	w, h := bbox[2]-bbox[0], bbox[3]-bbox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// BBoxToRect converts a [x1, y1, x2, y2] pixel box to an integer rectangle inside bounds.
// Fractional edges are widened outward. The box is relative to bounds.Min.
// Returns an empty rectangle when the box is malformed or lies outside bounds.
func BBoxToRect(bbox []float64, bounds image.Rectangle) image.Rectangle {
	if BBoxArea(bbox) <= 0 {
		return image.Rectangle{}
	}
	r := image.Rect(
		int(math.Floor(bbox[0])),
		int(math.Floor(bbox[1])),
		int(math.Ceil(bbox[2])),
		int(math.Ceil(bbox[3])),
	).Add(bounds.Min)
	return r.Intersect(bounds)
}
