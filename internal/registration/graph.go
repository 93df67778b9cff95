package registration

import (
	"math"
	"strconv"

	"github.com/katalvlaran/lvlath/graph/core"
	"github.com/katalvlaran/lvlath/graph/matrix"
	"gonum.org/v1/gonum/mat"

	"github.com/fleetalign/motlee-go/internal/mapper"
)

// weightScale converts a [0,1] compatibility score to the int64 edge
// weight lvlath's core.Graph stores, and back. lvlath's Edge.Weight is
// int64-only (see graph/core/types.go), so the pairwise consistency
// scores computed in floating point are quantized onto this scale before
// the graph is built and recovered by dividing back out when the
// adjacency matrix is read.
const weightScale = 1 << 20

// candidateSet enumerates the bipartite candidate pairs of spec §4.2
// step 1: every (i, j) pair of landmarks from a and b that survives the
// per-object geometric gates.
func candidateSet(a, b []mapper.SnapshotLandmark, cfg Config) []candidatePair {
	var pairs []candidatePair
	for i, ai := range a {
		for j, bj := range b {
			if objectGatePass(ai, bj, cfg) {
				pairs = append(pairs, candidatePair{aIdx: i, bIdx: j})
			}
		}
	}
	return pairs
}

// consistencyScore scores how well candidate pairs p and q agree on a
// single rigid transform, via the CLIPPER Gaussian consistency kernel
// (spec §4.2 step 2): two pairs are consistent if the Euclidean distance
// between their two landmarks in map a nearly matches the distance
// between their two landmarks in map b. A perfect match on a rigid body
// scores 1; growing disagreement decays the score toward 0 past epsilon.
func consistencyScore(a, b []mapper.SnapshotLandmark, p, q candidatePair, cfg Config) float64 {
	if p.aIdx == q.aIdx || p.bIdx == q.bIdx {
		return 0
	}
	dA := dist2D(a[p.aIdx], a[q.aIdx])
	dB := dist2D(b[p.bIdx], b[q.bIdx])
	diff := math.Abs(dA - dB)
	if diff > cfg.ClipperEpsilon {
		return 0
	}
	return math.Exp(-(diff * diff) / (cfg.ClipperSigma * cfg.ClipperSigma))
}

func dist2D(a, b mapper.SnapshotLandmark) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Hypot(dx, dy)
}

// compatibilityMatrix builds the pairwise consistency graph over
// candidate pairs using lvlath's core.Graph/graph-matrix conversion
// (spec §4.2 step 2's "consistency/compatibility graph M"), then returns
// it as a dense float64 matrix ordered to match pairs, the order
// clipper.go's power iteration expects. Vertices are keyed by pair
// index so the graph's own (map-ordered) internal indexing never leaks
// into the numerical routine: M is re-read out through lvlath's
// Index map, not assumed to match pairs' order.
func compatibilityMatrix(a, b []mapper.SnapshotLandmark, pairs []candidatePair, cfg Config) *mat.Dense {
	g := core.NewGraph(false, true)
	for i := range pairs {
		g.AddVertex(&core.Vertex{ID: strconv.Itoa(i)})
	}
	for i := range pairs {
		for j := i + 1; j < len(pairs); j++ {
			s := consistencyScore(a, b, pairs[i], pairs[j], cfg)
			if s <= 0 {
				continue
			}
			g.AddEdge(strconv.Itoa(i), strconv.Itoa(j), int64(s*weightScale))
		}
	}

	am := matrix.NewAdjacencyMatrix(g)
	n := len(pairs)
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		row := am.Index[strconv.Itoa(i)]
		for j := 0; j < n; j++ {
			col := am.Index[strconv.Itoa(j)]
			if i == j {
				continue
			}
			out.Set(i, j, float64(am.Data[row][col])/weightScale)
		}
	}
	return out
}
