package mapper

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// kalmanState is the per-landmark linear Kalman filter state: mean x and
// covariance P, both of dimension dim (4 for [x,y,w,h], 5 for
// [x,y,z,w,h] per spec §4.1). The transition and measurement matrices are
// both identity (landmarks are static in the map and fully observed each
// hit), so predict/update reduce to the simple forms below rather than the
// general F/H machinery a moving-object filter would need.
type kalmanState struct {
	x *mat.VecDense
	p *mat.SymDense
}

func newKalmanState(dim int, x0, p0Diag []float64) *kalmanState {
	x := mat.NewVecDense(dim, append([]float64(nil), x0...))
	p := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		p.SetSym(i, i, p0Diag[i])
	}
	return &kalmanState{x: x, p: p}
}

// predict advances the covariance by process noise scaled by the elapsed
// time delta (seconds, as Mapper.PredictTo passes it): since A = I, the mean is unchanged and P <- P + Q*delta, per
// spec §4.1's predict(t) contract.
func (k *kalmanState) predict(qDiag []float64, delta float64) {
	dim, _ := k.p.Dims()
	for i := 0; i < dim; i++ {
		k.p.SetSym(i, i, k.p.At(i, i)+qDiag[i]*delta)
	}
}

// update applies the measurement z (same dimension as x, H = I) with
// diagonal measurement noise rDiag, using the Joseph-form covariance update
// so P stays numerically symmetric positive definite even after repeated
// updates. It rejects (returns an error, leaves k unchanged) on NaN input
// or a non-invertible/non-PD innovation covariance, per spec §4.1's
// failure semantics — the caller must not propagate a panic or mutate the
// landmark on error.
func (k *kalmanState) update(z []float64, rDiag []float64) error {
	dim, _ := k.p.Dims()
	if len(z) != dim || len(rDiag) != dim {
		return fmt.Errorf("kalman update: dimension mismatch (dim=%d, z=%d, r=%d)", dim, len(z), len(rDiag))
	}
	for _, v := range z {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("kalman update: non-finite measurement %v", z)
		}
	}

	r := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		r.SetSym(i, i, rDiag[i])
	}

	// Innovation y = z - x (H = I).
	y := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		y.SetVec(i, z[i]-k.x.AtVec(i))
	}

	// Innovation covariance S = P + R (H = I so H*P*H^T = P).
	var s mat.SymDense
	s.AddSym(k.p, r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("kalman update: singular innovation covariance: %w", err)
	}

	// Kalman gain K = P * H^T * S^-1 = P * S^-1 (H = I).
	var kGain mat.Dense
	kGain.Mul(k.p, &sInv)

	// x' = x + K*y
	var ky mat.VecDense
	ky.MulVec(&kGain, y)
	newX := mat.NewVecDense(dim, nil)
	newX.AddVec(k.x, &ky)

	// Joseph form: P' = (I-K)P(I-K)^T + K R K^T. Numerically stable under
	// rounding error even when K departs slightly from the textbook-optimal
	// gain, which a naive P' = (I-K)P can turn indefinite.
	id := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		id.Set(i, i, 1)
	}
	var imk mat.Dense
	imk.Sub(id, &kGain)

	var term1 mat.Dense
	term1.Mul(&imk, k.p)
	var term1b mat.Dense
	term1b.Mul(&term1, imk.T())

	var krk mat.Dense
	krk.Mul(&kGain, r)
	var krkt mat.Dense
	krkt.Mul(&krk, kGain.T())

	var newPDense mat.Dense
	newPDense.Add(&term1b, &krkt)

	newP := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			// Symmetrize explicitly: average off-diagonal pair to cancel
			// asymmetric floating point drift before the PD check.
			v := (newPDense.At(i, j) + newPDense.At(j, i)) / 2
			newP.SetSym(i, j, v)
		}
	}

	if !isPositiveDefinite(newP) {
		return fmt.Errorf("kalman update: resulting covariance is not positive definite")
	}

	k.x = newX
	k.p = newP
	return nil
}

// isPositiveDefinite reports whether m is symmetric positive definite via
// Cholesky factorization, the same test spec §3's invariant requires
// ("covariance remains positive definite; numerical updates use symmetric
// Joseph form when needed").
func isPositiveDefinite(m *mat.SymDense) bool {
	var chol mat.Cholesky
	return chol.Factorize(m)
}

// diagonal returns the diagonal entries of the covariance, useful for
// diagnostics and tests without exposing the full gonum type.
func (k *kalmanState) diagonal() []float64 {
	dim, _ := k.p.Dims()
	out := make([]float64, dim)
	for i := 0; i < dim; i++ {
		out[i] = k.p.At(i, i)
	}
	return out
}

func (k *kalmanState) mean() []float64 {
	dim, _ := k.p.Dims()
	out := make([]float64, dim)
	for i := 0; i < dim; i++ {
		out[i] = k.x.AtVec(i)
	}
	return out
}
