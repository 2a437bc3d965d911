// Package cluster provides density-based clustering of face embeddings.
package cluster

import "github.com/kozaktomas/face-consistency/internal/distance"

// Noise is the label given to points that do not belong to any dense region.
const Noise = -1

// DBSCAN clusters embeddings by L2 distance.
//
// Labels are assigned in discovery order: core points are visited in ascending
// index order and each unlabeled core point opens the next cluster. A border point
// belongs to the first cluster that reaches it. A point's neighborhood includes
// the point itself, so minNeighbors = 2 means "at least one other point within radius".
type DBSCAN struct{}

// NewDBSCAN creates a DBSCAN clusterer.
func NewDBSCAN() *DBSCAN {
	return &DBSCAN{}
}

// Cluster returns one label per embedding, Noise for unclustered points.
func (DBSCAN) Cluster(embeddings [][]float32, radius float64, minNeighbors int) []int {
	n := len(embeddings)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}

	neighbors := make([][]int, n)
	for i := range n {
		for j := range n {
			if distance.Euclidean(embeddings[i], embeddings[j]) <= radius {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	isCore := make([]bool, n)
	for i := range n {
		isCore[i] = len(neighbors[i]) >= minNeighbors
	}

	next := 0
	for i := range n {
		if labels[i] != Noise || !isCore[i] {
			continue
		}

		// Breadth-first expansion from core point i.
		labels[i] = next
		queue := []int{i}
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if !isCore[p] {
				continue
			}
			for _, q := range neighbors[p] {
				if labels[q] != Noise {
					continue
				}
				labels[q] = next
				queue = append(queue, q)
			}
		}
		next++
	}

	return labels
}
