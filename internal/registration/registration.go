package registration

import (
	"sort"
	"time"

	"github.com/fleetalign/motlee-go/internal/mapper"
)

// Register is the pairwise geometric registration G of spec §4.2: a
// pure, stateless function of two landmark snapshots that returns every
// sufficiently consistent candidate SE(2) transform carrying b's frame
// onto a's, ranked best first. It never mutates a or b and holds no
// state between calls — repeated calls on the same inputs return
// identical results (spec §8: idempotence).
//
// Register never panics. Degenerate inputs (empty maps, too few
// candidate pairs, collinear inlier sets) simply yield fewer or zero
// candidates rather than an error, since "no registration found" is an
// expected, common outcome rather than a failure of the function.
func Register(a, b []mapper.SnapshotLandmark, cfg Config, at time.Time) []Candidate {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	pairs := candidateSet(a, b, cfg)
	if len(pairs) < 2 {
		return nil
	}

	m := compatibilityMatrix(a, b, pairs, cfg)
	clusters := denseClusters(m, cfg.ClipperMultRepeats)

	candidates := make([]Candidate, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) < cfg.NumObjsRequired {
			continue
		}
		score := clusterScore(len(a), len(b), cluster, cfg)
		transform, err := kabschSE2(a, b, pairs, cluster)
		if err != nil {
			continue
		}

		inliersA := make([]int, len(cluster))
		inliersB := make([]int, len(cluster))
		for i, idx := range cluster {
			inliersA[i] = pairs[idx].aIdx
			inliersB[i] = pairs[idx].bIdx
		}

		candidates = append(candidates, Candidate{
			Transform: transform,
			Score:     score,
			InliersA:  inliersA,
			InliersB:  inliersB,
			Time:      at,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// clusterScore is the cluster's support fraction (spec §4.2 step 4):
// the number of inlier pairs divided by the larger of the two landmark
// sets being registered, clipped at cfg.MaxOptFraction so that a
// near-total overlap never reports a score indistinguishable from a
// perfect one.
func clusterScore(lenA, lenB int, cluster []int, cfg Config) float64 {
	denom := lenA
	if lenB > denom {
		denom = lenB
	}
	if denom == 0 {
		return 0
	}
	score := float64(len(cluster)) / float64(denom)
	if score > cfg.MaxOptFraction {
		return cfg.MaxOptFraction
	}
	return score
}
