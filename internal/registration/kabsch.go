package registration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/mapper"
)

// kabschSE2 recovers the best-fit rigid SE(2) transform mapping the
// points in b onto the points in a (spec §4.2 step 4: "recover the
// transform via the Kabsch algorithm"), given matched index pairs. It
// reports an error for inputs too small or too degenerate (collinear)
// to fix a unique rotation, per spec §4.2's documented failure mode,
// rather than returning a meaningless transform.
func kabschSE2(a, b []mapper.SnapshotLandmark, pairs []candidatePair, inliers []int) (geometry.SE2, error) {
	n := len(inliers)
	if n < 2 {
		return geometry.SE2{}, fmt.Errorf("registration: kabsch requires at least 2 inlier pairs, got %d", n)
	}

	ax, ay := make([]float64, n), make([]float64, n)
	bx, by := make([]float64, n), make([]float64, n)
	for k, idx := range inliers {
		p := pairs[idx]
		ax[k], ay[k] = a[p.aIdx].X, a[p.aIdx].Y
		bx[k], by[k] = b[p.bIdx].X, b[p.bIdx].Y
	}

	meanAX, meanAY := mean(ax), mean(ay)
	meanBX, meanBY := mean(bx), mean(by)

	h := mat.NewDense(2, 2, nil)
	for k := 0; k < n; k++ {
		dbx, dby := bx[k]-meanBX, by[k]-meanBY
		dax, day := ax[k]-meanAX, ay[k]-meanAY
		h.Set(0, 0, h.At(0, 0)+dbx*dax)
		h.Set(0, 1, h.At(0, 1)+dbx*day)
		h.Set(1, 0, h.At(1, 0)+dby*dax)
		h.Set(1, 1, h.At(1, 1)+dby*day)
	}

	if isNearSingular(h) {
		return geometry.SE2{}, fmt.Errorf("registration: inlier set is degenerate (collinear), rotation is not unique")
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return geometry.SE2{}, fmt.Errorf("registration: SVD factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&v, u.T())

	if mat.Det(&r) < 0 {
		v.Set(0, 1, -v.At(0, 1))
		v.Set(1, 1, -v.At(1, 1))
		r.Mul(&v, u.T())
	}

	psi := math.Atan2(r.At(1, 0), r.At(0, 0))
	tx := meanAX - (r.At(0, 0)*meanBX + r.At(0, 1)*meanBY)
	ty := meanAY - (r.At(1, 0)*meanBX + r.At(1, 1)*meanBY)

	return geometry.NewSE2(tx, ty, psi), nil
}

// isNearSingular reports whether the 2x2 cross-covariance h is too
// close to rank-deficient for Kabsch to fix a unique rotation, which
// happens when the inlier points are (nearly) collinear.
func isNearSingular(h *mat.Dense) bool {
	det := h.At(0, 0)*h.At(1, 1) - h.At(0, 1)*h.At(1, 0)
	return math.Abs(det) < 1e-9
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
