// Package registration implements the pairwise geometric registration G
// from spec §4.2: a stateless, pure function that, given two landmark
// snapshots with unknown correspondences, returns a ranked list of
// candidate SE(2) transforms aligning one onto the other via consensus
// maximization on a pairwise compatibility graph (a CLIPPER-style dense
// subset search).
package registration

import "fmt"

// Config holds the registration-specific subset of spec §6's "tcaff"
// configuration group (the gating and CLIPPER parameters proper to G;
// the tree-policy parameters proper to the TCAFF filter live in
// internal/tcaff.Config instead, since they govern a different
// component's state machine — see DESIGN.md for this split rationale).
type Config struct {
	// Per-object geometric gates (spec §4.2 step 1).
	MaxObjectWidth       float64 `json:"max_object_width"`        // max_obj_width: drop objects wider than this
	HeightDiff           float64 `json:"height_diff"`             // h_diff: max |h_a - h_b|
	WidthHeightScaleDiff float64 `json:"width_height_scale_diff"` // wh_scale_diff: max |w_a-w_b| / min(w_a,w_b)

	// CLIPPER consistency/consensus parameters (spec §4.2 steps 2-3).
	ClipperSigma       float64 `json:"clipper_sigma"`        // sigma: Gaussian kernel bandwidth
	ClipperEpsilon     float64 `json:"clipper_epsilon"`      // epsilon: compatibility cutoff
	ClipperMultRepeats int     `json:"clipper_mult_repeats"` // number of dense-cluster extraction passes

	// Candidate acceptance (spec §4.2 step 4).
	NumObjsRequired int     `json:"num_objs_required"` // num_objs_req: minimum inlier count for a candidate
	MaxOptFraction  float64 `json:"max_opt_fraction"`  // max_opt_fraction: score ceiling
}

// DefaultConfig returns tuned defaults appropriate for meter-scale indoor
// or outdoor object maps.
func DefaultConfig() Config {
	return Config{
		MaxObjectWidth:       5.0,
		HeightDiff:           0.5,
		WidthHeightScaleDiff: 0.5,
		ClipperSigma:         0.3,
		ClipperEpsilon:       0.6,
		ClipperMultRepeats:   3,
		NumObjsRequired:      4,
		MaxOptFraction:       0.9,
	}
}

// Validate rejects invalid configuration at construction (spec §7 class 5).
func (c Config) Validate() error {
	if c.MaxObjectWidth <= 0 {
		return fmt.Errorf("registration: MaxObjectWidth must be positive, got %f", c.MaxObjectWidth)
	}
	if c.HeightDiff <= 0 {
		return fmt.Errorf("registration: HeightDiff must be positive, got %f", c.HeightDiff)
	}
	if c.WidthHeightScaleDiff <= 0 {
		return fmt.Errorf("registration: WidthHeightScaleDiff must be positive, got %f", c.WidthHeightScaleDiff)
	}
	if c.ClipperSigma <= 0 {
		return fmt.Errorf("registration: ClipperSigma must be positive, got %f", c.ClipperSigma)
	}
	if c.ClipperEpsilon <= 0 {
		return fmt.Errorf("registration: ClipperEpsilon must be positive, got %f", c.ClipperEpsilon)
	}
	if c.ClipperMultRepeats < 1 {
		return fmt.Errorf("registration: ClipperMultRepeats must be >= 1, got %d", c.ClipperMultRepeats)
	}
	if c.NumObjsRequired < 3 {
		return fmt.Errorf("registration: NumObjsRequired must be >= 3 (SE(2) needs >=2 non-collinear pairs plus a margin), got %d", c.NumObjsRequired)
	}
	if c.MaxOptFraction <= 0 || c.MaxOptFraction > 1 {
		return fmt.Errorf("registration: MaxOptFraction must be in (0, 1], got %f", c.MaxOptFraction)
	}
	return nil
}

// WithGates sets the per-object geometric gates.
func (c Config) WithGates(maxWidth, heightDiff, whScaleDiff float64) Config {
	c.MaxObjectWidth = maxWidth
	c.HeightDiff = heightDiff
	c.WidthHeightScaleDiff = whScaleDiff
	return c
}

// WithClipperParams sets the consensus-graph kernel parameters.
func (c Config) WithClipperParams(sigma, epsilon float64, multRepeats int) Config {
	c.ClipperSigma = sigma
	c.ClipperEpsilon = epsilon
	c.ClipperMultRepeats = multRepeats
	return c
}

// WithAcceptance sets the candidate acceptance thresholds.
func (c Config) WithAcceptance(numObjsRequired int, maxOptFraction float64) Config {
	c.NumObjsRequired = numObjsRequired
	c.MaxOptFraction = maxOptFraction
	return c
}
