package mapper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKalmanState_PredictOnlyInflatesCovariance(t *testing.T) {
	k := newKalmanState(4, []float64{0, 0, 1, 1}, []float64{1, 1, 0.5, 0.5})
	before := append([]float64(nil), k.diagonal()...)
	k.predict([]float64{0.1, 0.1, 0.05, 0.05}, 2.0)
	after := k.diagonal()
	for i := range before {
		require.InDelta(t, before[i]+0.1*2.0*boolToOne(i < 2)+0.05*2.0*boolToOne(i >= 2), after[i], 1e-9)
	}
}

func boolToOne(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func TestKalmanState_UpdateConvergesTowardMeasurement(t *testing.T) {
	k := newKalmanState(4, []float64{0, 0, 1, 1}, []float64{10, 10, 10, 10})
	r := []float64{0.1, 0.1, 0.1, 0.1}
	for i := 0; i < 20; i++ {
		require.NoError(t, k.update([]float64{5, -3, 2, 2}, r))
	}
	m := k.mean()
	require.InDelta(t, 5, m[0], 1e-2)
	require.InDelta(t, -3, m[1], 1e-2)
	require.InDelta(t, 2, m[2], 1e-2)
	require.InDelta(t, 2, m[3], 1e-2)
}

func TestKalmanState_UpdateRejectsNaN(t *testing.T) {
	k := newKalmanState(4, []float64{0, 0, 0, 0}, []float64{1, 1, 1, 1})
	before := append([]float64(nil), k.mean()...)
	err := k.update([]float64{math.NaN(), 0, 0, 0}, []float64{1, 1, 1, 1})
	require.Error(t, err)
	require.Equal(t, before, k.mean())
}

func TestKalmanState_UpdateResultStaysPositiveDefinite(t *testing.T) {
	k := newKalmanState(5, []float64{0, 0, 0, 1, 1}, []float64{2, 2, 2, 1, 1})
	for i := 0; i < 10; i++ {
		require.NoError(t, k.update([]float64{1, 1, 1, 1, 1}, []float64{0.2, 0.2, 0.2, 0.2, 0.2}))
		diag := k.diagonal()
		for _, v := range diag {
			require.Greater(t, v, 0.0)
		}
	}
}
