package simulate

// Landmark is a ground-truth object in the world frame, the synthetic
// analogue of a single mapper.SnapshotLandmark before any robot has
// observed it.
type Landmark struct {
	X, Y          float64
	Width, Height float64
}

// SquareLandmarks returns 4 landmarks at the corners of a side×side
// square centered on the origin, uniform in width/height so the set is
// invariant under a 90° rotation about the center — the ambiguous
// symmetric map of §8 scenario 3.
func SquareLandmarks(side float64) []Landmark {
	h := side / 2
	return []Landmark{
		{X: -h, Y: -h, Width: 0.4, Height: 1.2},
		{X: h, Y: -h, Width: 0.4, Height: 1.2},
		{X: h, Y: h, Width: 0.4, Height: 1.2},
		{X: -h, Y: h, Width: 0.4, Height: 1.2},
	}
}

// AsymmetricAugment appends one landmark offset from the square's
// symmetric arrangement, breaking the 4-fold rotational ambiguity so a
// TCAFF filter observing it can disambiguate between candidate
// hypotheses (§8 scenario 3: "reinforced by an asymmetric additional
// landmark").
func AsymmetricAugment(ls []Landmark) []Landmark {
	out := make([]Landmark, len(ls), len(ls)+1)
	copy(out, ls)
	return append(out, Landmark{X: 0, Y: 3 * sideExtent(ls), Width: 0.5, Height: 0.8})
}

func sideExtent(ls []Landmark) float64 {
	var maxAbs float64
	for _, l := range ls {
		if a := absF(l.X); a > maxAbs {
			maxAbs = a
		}
		if a := absF(l.Y); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return 1
	}
	return maxAbs
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// GridLandmarks returns rows*cols stationary objects on a regular grid
// spaced `spacing` apart, the static-landmark scene behind §8 scenario
// 2 (drifting pose observing 6+ stationary objects).
func GridLandmarks(rows, cols int, spacing float64) []Landmark {
	out := make([]Landmark, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, Landmark{
				X:      float64(c) * spacing,
				Y:      float64(r) * spacing,
				Width:  0.3,
				Height: 1.0,
			})
		}
	}
	return out
}
