package registration

import (
	"time"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/mapper"
)

// candidatePair is one entry of the bipartite candidate association set
// (spec §4.2 step 1): object i in map a is geometrically compatible with
// object j in map b.
type candidatePair struct {
	aIdx int
	bIdx int
}

// Candidate is one output of Register: a proposed SE(2) transform that
// carries frame b's landmarks into frame a's frame, together with the
// consensus score and inlier pairs that produced it.
type Candidate struct {
	Transform geometry.SE2
	// Score is the cluster's support fraction: the inlier count divided
	// by the larger of the two input set sizes, clipped at
	// Config.MaxOptFraction.
	Score float64
	// Inliers are indices into the input slices (a, b given to Register)
	// that the consensus set selected as mutually consistent.
	InliersA []int
	InliersB []int
	Time     time.Time
}

// objectGatePass reports whether landmarks a and b pass the per-object
// geometric gates of spec §4.2 step 1, independent of any other pair.
func objectGatePass(a, b mapper.SnapshotLandmark, cfg Config) bool {
	if a.Width > cfg.MaxObjectWidth || b.Width > cfg.MaxObjectWidth {
		return false
	}
	if absFloat(a.Height-b.Height) > cfg.HeightDiff {
		return false
	}
	minW := a.Width
	if b.Width < minW {
		minW = b.Width
	}
	if minW <= 0 {
		return false
	}
	if absFloat(a.Width-b.Width)/minW > cfg.WidthHeightScaleDiff {
		return false
	}
	return true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
