package tcaff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/registration"
)

func cand(x, y, psi float64) registration.Candidate {
	return registration.Candidate{Transform: geometry.NewSE2(x, y, psi), Score: 1}
}

func TestFilter_PromotesAfterSustainedConsistentSupport(t *testing.T) {
	cfg := DefaultConfig().WithPromotion(3, 5)
	f := New(cfg, "bravo")

	base := time.Unix(0, 0)
	var last Result
	for i := 0; i < 4; i++ {
		last = f.Tick(base.Add(time.Duration(i)*time.Second), []registration.Candidate{cand(1, 2, 0.1)})
	}

	require.True(t, last.Known)
	require.InDelta(t, 1, last.Transform.X, 1e-6)
	require.InDelta(t, 2, last.Transform.Y, 1e-6)
}

func TestFilter_EmitsUnknownWithNoCandidates(t *testing.T) {
	f := New(DefaultConfig(), "bravo")
	res := f.Tick(time.Unix(0, 0), nil)
	require.False(t, res.Known)
}

func TestFilter_AmbiguousSymmetricCandidatesStayUnknownUntilDisambiguated(t *testing.T) {
	cfg := DefaultConfig().WithPromotion(3, 5)
	f := New(cfg, "bravo")

	base := time.Unix(0, 0)
	var last Result
	for i := 0; i < 3; i++ {
		last = f.Tick(base.Add(time.Duration(i)*time.Second), []registration.Candidate{
			cand(1, 0, 0),
			cand(0, 1, math.Pi/2),
		})
	}
	// Two mutually inconsistent hypotheses reinforced equally: neither
	// should have promoted on its own into a single emitted transform.
	require.False(t, last.Known)
	require.LessOrEqual(t, f.ExploratoryLeafCount(), cfg.MaxBranchExp)
}

func TestFilter_MissingTicksAgeMainTreeTowardDeletion(t *testing.T) {
	cfg := DefaultConfig().WithPromotion(2, 2)
	f := New(cfg, "bravo")
	base := time.Unix(0, 0)

	f.Tick(base, []registration.Candidate{cand(1, 1, 0)})
	f.Tick(base.Add(time.Second), []registration.Candidate{cand(1, 1, 0)})
	res := f.Tick(base.Add(2*time.Second), []registration.Candidate{cand(1, 1, 0)})
	require.True(t, res.Known)

	// Repeated missing ticks should eventually prune the promoted chain
	// via its no-match streak exceeding MaxNoMatchStreak, reverting to
	// unknown.
	var last Result
	for i := 0; i < cfg.MaxNoMatchStreak+2; i++ {
		last = f.Tick(base.Add(time.Duration(3+i)*time.Second), nil)
	}
	require.False(t, last.Known)
}

func TestFilter_RespectsBranchCaps(t *testing.T) {
	cfg := DefaultConfig().WithBranching(4, 3, 2)
	f := New(cfg, "bravo")
	base := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		f.Tick(base.Add(time.Duration(i)*time.Second), []registration.Candidate{
			cand(float64(i), 0, 0),
			cand(0, float64(i), 0),
			cand(float64(i), float64(i), 0),
		})
	}
	require.LessOrEqual(t, f.ExploratoryLeafCount(), cfg.MaxBranchExp)
	require.LessOrEqual(t, f.MainLeafCount(), cfg.MaxBranchMain)
}
