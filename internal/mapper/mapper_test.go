package mapper

import (
	"testing"
	"time"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	cfg := DefaultConfig()
	cfg.GatingMahalanobisSq = 25.0
	cfg.HitsToConfirm = 2
	cfg.StalenessTicks = 3
	return cfg
}

func TestMapper_IngestCreatesTentativeLandmark(t *testing.T) {
	cfg := baseConfig()
	require.NoError(t, cfg.Validate())
	m := New(cfg)

	start := time.Unix(0, 0)
	m.Ingest(start, geometry.Identity3D(), []Detection{
		{Position: [3]float64{1.0, 2.0, 0.5}, Width: 0.5, Height: 0.5},
	})

	require.Equal(t, 1, m.LandmarkCount())
	snap := m.Snapshot(start)
	require.Empty(t, snap.Landmarks, "single observation is still tentative, must not appear in snapshot")
}

func TestMapper_ConfirmationAfterHits(t *testing.T) {
	cfg := baseConfig()
	m := New(cfg)
	pose := geometry.Identity3D()
	start := time.Unix(0, 0)

	for i := 0; i < cfg.HitsToConfirm; i++ {
		m.Ingest(start.Add(time.Duration(i)*100*time.Millisecond), pose, []Detection{
			{Position: [3]float64{1.0, 2.0, 0.5}, Width: 0.5, Height: 0.5},
		})
	}

	snap := m.Snapshot(start)
	require.Len(t, snap.Landmarks, 1)
	require.InDelta(t, 1.0, snap.Landmarks[0].X, 0.5)
	require.InDelta(t, 2.0, snap.Landmarks[0].Y, 0.5)
}

func TestMapper_StaleLandmarkIsDropped(t *testing.T) {
	cfg := baseConfig()
	m := New(cfg)
	pose := geometry.Identity3D()
	start := time.Unix(0, 0)

	m.Ingest(start, pose, []Detection{{Position: [3]float64{1, 1, 0}, Width: 0.5, Height: 0.5}})
	require.Equal(t, 1, m.LandmarkCount())

	// Feed StalenessTicks+1 empty frames; the landmark should be pruned.
	for i := 1; i <= cfg.StalenessTicks+1; i++ {
		m.Ingest(start.Add(time.Duration(i)*100*time.Millisecond), pose, nil)
	}
	require.Equal(t, 0, m.LandmarkCount())
}

func TestMapper_NoSpuriousChurnOnSingleFrameDropout(t *testing.T) {
	// Property from spec §8: a single missed frame (<= nu) must not
	// change the confirmed landmark count.
	cfg := baseConfig()
	m := New(cfg)
	pose := geometry.Identity3D()
	start := time.Unix(0, 0)

	for i := 0; i < cfg.HitsToConfirm; i++ {
		m.Ingest(start.Add(time.Duration(i)*100*time.Millisecond), pose, []Detection{
			{Position: [3]float64{3, 3, 0}, Width: 1, Height: 1},
		})
	}
	before := len(m.Snapshot(start).Landmarks)
	require.Equal(t, 1, before)

	// One dropout tick, well within StalenessTicks.
	m.Ingest(start.Add(time.Duration(cfg.HitsToConfirm)*100*time.Millisecond), pose, nil)
	after := len(m.Snapshot(start).Landmarks)
	require.Equal(t, before, after)
}

func TestMapper_DetectionOutsideVerticalGateDiscarded(t *testing.T) {
	cfg := baseConfig()
	m := New(cfg)
	pose := geometry.Identity3D()
	start := time.Unix(0, 0)

	m.Ingest(start, pose, []Detection{
		{Position: [3]float64{1, 1, cfg.ZMax + 10}, Width: 1, Height: 1},
	})
	require.Equal(t, 0, m.LandmarkCount())
}

func TestMapper_CovarianceGrowsMonotonicallyBetweenObservations(t *testing.T) {
	// Scenario 2 from spec §8: accumulating drift with no update should
	// only increase covariance.
	cfg := baseConfig()
	m := New(cfg)
	pose := geometry.Identity3D()
	start := time.Unix(0, 0)

	m.Ingest(start, pose, []Detection{{Position: [3]float64{5, 5, 0}, Width: 1, Height: 1}})
	var lmID int64 = 0
	lm, ok := m.arena.get(lmID)
	require.True(t, ok)
	prevVar := lm.Covariance()[0]

	for i := 1; i <= 3; i++ {
		m.PredictTo(start.Add(time.Duration(i) * time.Second))
		lm, ok = m.arena.get(lmID)
		require.True(t, ok)
		curVar := lm.Covariance()[0]
		require.GreaterOrEqual(t, curVar, prevVar)
		prevVar = curVar
	}
}

func TestMapper_AssociationPrefersCloserLandmark(t *testing.T) {
	cfg := baseConfig()
	m := New(cfg)
	pose := geometry.Identity3D()
	start := time.Unix(0, 0)

	// Two landmarks, far apart.
	m.Ingest(start, pose, []Detection{
		{Position: [3]float64{0, 0, 0}, Width: 1, Height: 1},
		{Position: [3]float64{10, 10, 0}, Width: 1, Height: 1},
	})
	require.Equal(t, 2, m.LandmarkCount())

	// A detection near the first landmark should associate to it, not
	// create a third landmark.
	m.Ingest(start.Add(100*time.Millisecond), pose, []Detection{
		{Position: [3]float64{0.2, 0.1, 0}, Width: 1, Height: 1},
	})
	require.Equal(t, 2, m.LandmarkCount())
}

func TestConfig_ValidateRejectsBadDim(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dim = 3
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsNonPositiveNoise(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QPos = -1
	require.Error(t, cfg.Validate())
}
