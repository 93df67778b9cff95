package registration

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// powerIterationMaxIters and powerIterationTol bound the dense-cluster
// extraction's dominant-eigenvector estimate: stop at whichever comes
// first, a relative L2 step smaller than the tolerance or the iteration
// cap, so a degenerate (all-zero) affinity matrix can never spin forever.
const (
	powerIterationMaxIters = 100
	powerIterationTol      = 1e-6
)

// denseCluster runs one CLIPPER-style extraction pass over the pairwise
// consistency matrix M (spec §4.2 step 3): power-iterate to the
// dominant eigenvector of M, project it onto the probability simplex,
// then prune the resulting support down to a mutually consistent
// (clique) subset by repeatedly dropping its weakest member. The
// returned indices are into M's own rows/columns (i.e. into the
// candidate-pair slice the matrix was built from).
func denseCluster(m *mat.Dense) []int {
	n, _ := m.Dims()
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []int{0}
	}

	u := make([]float64, n)
	for i := range u {
		u[i] = 1 / math.Sqrt(float64(n))
	}

	for iter := 0; iter < powerIterationMaxIters; iter++ {
		v := make([]float64, n)
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += m.At(i, j) * u[j]
			}
			v[i] = sum
		}
		norm := l2Norm(v)
		if norm == 0 {
			return nil
		}
		for i := range v {
			v[i] /= norm
		}
		diff := 0.0
		for i := range v {
			d := v[i] - u[i]
			diff += d * d
		}
		u = v
		if math.Sqrt(diff) < powerIterationTol {
			break
		}
	}

	weights := simplexProject(u)
	support := make([]int, 0, n)
	for i, w := range weights {
		if w > 0 {
			support = append(support, i)
		}
	}

	return pruneToClique(m, support, weights)
}

// simplexProject projects u onto the probability simplex {x : x >= 0,
// sum(x) = 1} using the Duchi et al. sort-and-threshold algorithm, so
// the power-iteration eigenvector (whose sign is otherwise arbitrary)
// becomes a proper weighting over candidate pairs before thresholding.
func simplexProject(u []float64) []float64 {
	n := len(u)
	abs := make([]float64, n)
	for i, v := range u {
		abs[i] = math.Abs(v)
	}
	sorted := append([]float64(nil), abs...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	cumsum := 0.0
	rho := 0
	for i, v := range sorted {
		cumsum += v
		if v-(cumsum-1)/float64(i+1) > 0 {
			rho = i + 1
		}
	}
	if rho == 0 {
		return make([]float64, n)
	}
	theta := 0.0
	for i := 0; i < rho; i++ {
		theta += sorted[i]
	}
	theta = (theta - 1) / float64(rho)

	out := make([]float64, n)
	for i, v := range abs {
		if w := v - theta; w > 0 {
			out[i] = w
		}
	}
	return out
}

// pruneToClique repeatedly drops the lowest-weight vertex involved in a
// violation until every remaining pair of indices has a positive entry
// in m (a mutually consistent clique), or fewer than two vertices
// remain.
func pruneToClique(m *mat.Dense, support []int, weights []float64) []int {
	set := append([]int(nil), support...)
	for len(set) >= 2 {
		violators := nonCliqueMembers(m, set)
		if len(violators) == 0 {
			return set
		}
		weakest, removeAt := math.Inf(1), violators[0]
		for _, i := range violators {
			if w := weights[set[i]]; w < weakest {
				weakest, removeAt = w, i
			}
		}
		set = append(set[:removeAt], set[removeAt+1:]...)
	}
	return set
}

// nonCliqueMembers returns the positions within set that have a
// non-positive entry against at least one other member of set.
func nonCliqueMembers(m *mat.Dense, set []int) []int {
	var out []int
	for a := 0; a < len(set); a++ {
		for b := 0; b < len(set); b++ {
			if a == b {
				continue
			}
			if m.At(set[a], set[b]) <= 0 {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func l2Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// denseClusters extracts up to multRepeats dense clusters from m,
// masking out each extracted cluster's vertices before the next pass
// (spec §4.2 step 3: "repeated ... masking previously selected
// vertices"), so ambiguous/symmetric scenes can surface more than one
// viable candidate transform instead of only the single best one.
func denseClusters(m *mat.Dense, multRepeats int) [][]int {
	n, _ := m.Dims()
	masked := mat.DenseCopyOf(m)
	var clusters [][]int
	remaining := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		remaining[i] = true
	}

	for pass := 0; pass < multRepeats; pass++ {
		if len(remaining) < 2 {
			break
		}
		cluster := denseCluster(masked)
		if len(cluster) < 2 {
			break
		}
		clusters = append(clusters, cluster)
		for _, idx := range cluster {
			delete(remaining, idx)
			for j := 0; j < n; j++ {
				masked.Set(idx, j, 0)
				masked.Set(j, idx, 0)
			}
		}
	}
	return clusters
}
