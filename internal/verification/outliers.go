package verification

import (
	"github.com/kozaktomas/face-consistency/internal/constants"
)

// DetectOutliers clusters the embeddings of all non-missing samples and returns the
// source indices (ascending) that fall outside the dominant cluster. Noise points count
// as outliers. With fewer than two embeddings, or when every point is noise, nothing is
// excluded.
func DetectOutliers(samples []FaceSample, clusterer Clusterer) []int {
	var indices []int
	var embeddings [][]float32
	for _, s := range samples {
		if s.Missing() || len(s.Embedding) == 0 {
			continue
		}
		indices = append(indices, s.Index)
		embeddings = append(embeddings, s.Embedding)
	}
	if len(embeddings) < 2 {
		return nil
	}

	labels := clusterer.Cluster(embeddings, constants.ClusterRadius, constants.ClusterMinNeighbors)
	dominant, ok := dominantLabel(labels)
	if !ok {
		return nil
	}

	var outliers []int
	for i, label := range labels {
		if label != dominant {
			outliers = append(outliers, indices[i])
		}
	}
	return outliers
}

// dominantLabel returns the non-noise label with the most members.
// Ties go to the lowest label. ok is false when every label is noise.
func dominantLabel(labels []int) (label int, ok bool) {
	counts := make(map[int]int)
	for _, l := range labels {
		if l != NoiseLabel {
			counts[l]++
		}
	}

	best, bestCount := 0, 0
	for l, c := range counts {
		if c > bestCount || (c == bestCount && l < best) {
			best, bestCount = l, c
		}
	}
	return best, bestCount > 0
}

type indexSet map[int]struct{}

func newIndexSet(indices []int) indexSet {
	s := make(indexSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

func (s indexSet) has(i int) bool {
	_, ok := s[i]
	return ok
}
