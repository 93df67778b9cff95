// Package tcaff implements TCAFF_{i,j}, the Temporally Consistent
// Ambiguous Frame Filter of spec §4.3: a per-neighbor multi-hypothesis
// tree filter that turns a noisy, ambiguous stream of candidate SE(2)
// transforms into at most one stable frame-alignment estimate, with an
// explicit "unknown" output when nothing is yet supported.
package tcaff

import (
	"fmt"
	"time"
)

// Config holds the tree-policy subset of spec §6's "tcaff" config
// group (the registration/CLIPPER gating fields live in
// internal/registration.Config instead — see DESIGN.md).
type Config struct {
	// ProbNoMatch is prob_no_match: the prior weight assigned to a
	// leaf's "no observation this tick" branch. It is consulted once
	// per tick, in Tick's no-match admission step, as the score
	// attached to that branch's virtual node — see chainConfidence,
	// which folds it into a chain's reported confidence alongside real
	// registration scores.
	ProbNoMatch                 float64       `json:"prob_no_match"`
	ExploringBranchingFactor    int           `json:"exploring_branching_factor"` // children per exploratory leaf per tick
	WindowLen                   int           `json:"window_len"`                 // max hypothesis depth before pruning
	MaxBranchExp                int           `json:"max_branch_exp"`             // cap on live exploratory leaves
	MaxBranchMain               int           `json:"max_branch_main"`            // cap on live main-tree leaves
	Rho                         float64       `json:"rho"`                        // rotation weight in the SE(2) association/consistency distance
	StepsBeforeMainTreeDeletion int           `json:"steps_before_main_tree_deletion"`
	MainTreeObjReq              int           `json:"main_tree_obj_req"` // path length required to promote
	TsAlign                     time.Duration `json:"ts_align"`          // registration/alignment cadence

	// MaxNoMatchStreak bounds consecutive "no-match" virtual children
	// along any one chain (spec §4.3 step 4: "more than a configured
	// number of consecutive no-match virtual children" — the spec names
	// this requirement but not the knob, so it is introduced here; see
	// DESIGN.md Open Questions).
	MaxNoMatchStreak int `json:"max_no_match_streak"`

	// AssociationGate bounds the weighted SE(2) distance
	// (geometry.SE2.WeightedDistance) a candidate may have to its
	// nearest leaf and still count as matched (spec §4.3 step 2).
	AssociationGate float64 `json:"association_gate"`

	// TranslationScale converts Rho into a translation tolerance for the
	// promotion consistency check (spec §4.3 step 5: "tolerance derived
	// from rho"); RotationTolerance uses Rho directly, in radians.
	TranslationScale float64 `json:"translation_scale"`
}

// DefaultConfig returns tuned defaults for a typical indoor/outdoor
// multi-robot deployment.
func DefaultConfig() Config {
	return Config{
		ProbNoMatch:                 0.1,
		ExploringBranchingFactor:    2,
		WindowLen:                   8,
		MaxBranchExp:                16,
		MaxBranchMain:               4,
		Rho:                         1.0,
		StepsBeforeMainTreeDeletion: 5,
		MainTreeObjReq:              4,
		TsAlign:                     1 * time.Second,
		MaxNoMatchStreak:            3,
		AssociationGate:             1.0,
		TranslationScale:            0.5,
	}
}

// Validate rejects invalid configuration at construction (spec §7 class 5).
func (c Config) Validate() error {
	if c.ProbNoMatch < 0 || c.ProbNoMatch >= 1 {
		return fmt.Errorf("tcaff: ProbNoMatch must be in [0, 1), got %f", c.ProbNoMatch)
	}
	if c.ExploringBranchingFactor < 1 {
		return fmt.Errorf("tcaff: ExploringBranchingFactor must be >= 1, got %d", c.ExploringBranchingFactor)
	}
	if c.WindowLen < 1 {
		return fmt.Errorf("tcaff: WindowLen must be >= 1, got %d", c.WindowLen)
	}
	if c.MaxBranchExp < 1 {
		return fmt.Errorf("tcaff: MaxBranchExp must be >= 1, got %d", c.MaxBranchExp)
	}
	if c.MaxBranchMain < 1 {
		return fmt.Errorf("tcaff: MaxBranchMain must be >= 1, got %d", c.MaxBranchMain)
	}
	if c.Rho <= 0 {
		return fmt.Errorf("tcaff: Rho must be positive, got %f", c.Rho)
	}
	if c.StepsBeforeMainTreeDeletion < 1 {
		return fmt.Errorf("tcaff: StepsBeforeMainTreeDeletion must be >= 1, got %d", c.StepsBeforeMainTreeDeletion)
	}
	if c.MainTreeObjReq < 2 {
		return fmt.Errorf("tcaff: MainTreeObjReq must be >= 2, got %d", c.MainTreeObjReq)
	}
	if c.TsAlign <= 0 {
		return fmt.Errorf("tcaff: TsAlign must be positive, got %s", c.TsAlign)
	}
	if c.MaxNoMatchStreak < 1 {
		return fmt.Errorf("tcaff: MaxNoMatchStreak must be >= 1, got %d", c.MaxNoMatchStreak)
	}
	if c.AssociationGate <= 0 {
		return fmt.Errorf("tcaff: AssociationGate must be positive, got %f", c.AssociationGate)
	}
	if c.TranslationScale <= 0 {
		return fmt.Errorf("tcaff: TranslationScale must be positive, got %f", c.TranslationScale)
	}
	return nil
}

// WithBranching sets the tree's branching-factor limits.
func (c Config) WithBranching(exploringFactor, maxExp, maxMain int) Config {
	c.ExploringBranchingFactor = exploringFactor
	c.MaxBranchExp = maxExp
	c.MaxBranchMain = maxMain
	return c
}

// WithPromotion sets the promotion requirement and deletion patience.
func (c Config) WithPromotion(mainTreeObjReq, stepsBeforeDeletion int) Config {
	c.MainTreeObjReq = mainTreeObjReq
	c.StepsBeforeMainTreeDeletion = stepsBeforeDeletion
	return c
}

// WithCadence sets the registration/alignment cadence.
func (c Config) WithCadence(tsAlign time.Duration) Config {
	c.TsAlign = tsAlign
	return c
}
