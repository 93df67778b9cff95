package tcaff

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/logging"
	"github.com/fleetalign/motlee-go/internal/registration"
)

// Result is TCAFF's per-tick output (spec §4.3: "At every tick, either
// an SE(2) transform or ⊥"). Confidence summarizes the main chain's
// node scores, registration scores and no-match priors alike (mean
// minus one standard deviation, floored at 0) and is advisory only — Known is the authoritative unknown/known
// signal.
type Result struct {
	Transform  geometry.SE2
	Known      bool
	Confidence float64
	Time       time.Time
}

// Filter is one neighbor's TCAFF_{i,j} instance. It is not safe for
// concurrent use; the driver serializes all calls per robot (spec §5).
type Filter struct {
	cfg      Config
	neighbor string
	logger   *logging.Logger

	exploratory *hypothesisTree
	main        *hypothesisTree

	mainIrresolvableStreak int
	tick                   int64
}

// New constructs a Filter for the named neighbor. cfg must already be
// valid (see Config.Validate). Per spec's redesign note on cyclic
// references, Filter holds only the neighbor's name, never a reference
// to the neighbor's own robot state — map lookups are the driver's job.
func New(cfg Config, neighbor string) *Filter {
	return &Filter{
		cfg:         cfg,
		neighbor:    neighbor,
		logger:      logging.New(),
		exploratory: newHypothesisTree(),
		main:        newHypothesisTree(),
	}
}

// SetLogger overrides the filter's diagnostic logger (nil installs a no-op).
func (f *Filter) SetLogger(fn func(string, ...interface{})) {
	f.logger.Set(fn)
}

// Neighbor returns the neighbor name this filter tracks.
func (f *Filter) Neighbor() string { return f.neighbor }

// Tick runs the six-step protocol of spec §4.3 against one registration
// output and returns the current best estimate. A nil/empty candidate
// slice is a legal "missing input tick": every living leaf still ages
// by one no-match step (spec §4.3 failure semantics).
func (f *Filter) Tick(t time.Time, candidates []registration.Candidate) Result {
	f.tick++

	expStart := f.exploratory.leafIDs()
	mainStart := f.main.leafIDs()

	expMatches := make(map[uuid.UUID]int, len(expStart))
	mainMatches := make(map[uuid.UUID]int, len(mainStart))

	var unmatched []registration.Candidate

	// Step 2: associate each candidate to its nearest leaf by weighted
	// SE(2) distance, across both trees.
	for _, c := range candidates {
		bestLeaf, bestDist, inMain := uuid.Nil, math.Inf(1), false
		for _, id := range expStart {
			d := f.exploratory.nodes[id].transform.WeightedDistance(c.Transform, f.cfg.Rho)
			if d < bestDist {
				bestDist, bestLeaf, inMain = d, id, false
			}
		}
		for _, id := range mainStart {
			d := f.main.nodes[id].transform.WeightedDistance(c.Transform, f.cfg.Rho)
			if d < bestDist {
				bestDist, bestLeaf, inMain = d, id, true
			}
		}

		if bestLeaf == uuid.Nil || bestDist > f.cfg.AssociationGate {
			unmatched = append(unmatched, c)
			continue
		}
		if inMain {
			if mainMatches[bestLeaf] >= f.cfg.ExploringBranchingFactor {
				unmatched = append(unmatched, c)
				continue
			}
			f.main.addChild(bestLeaf, c.Transform, c.Score, false)
			mainMatches[bestLeaf]++
		} else {
			if expMatches[bestLeaf] >= f.cfg.ExploringBranchingFactor {
				unmatched = append(unmatched, c)
				continue
			}
			f.exploratory.addChild(bestLeaf, c.Transform, c.Score, false)
			expMatches[bestLeaf]++
		}
	}

	// Unmatched candidates spawn fresh exploratory roots.
	for _, c := range unmatched {
		f.exploratory.addRoot(c.Transform, c.Score)
	}

	// Step 1/3: leaves that existed before this tick and received no
	// real child are extended with a "no-match" virtual child, keeping
	// their chain alive (identity dynamics: the predicted transform
	// equals the parent's) and carrying ProbNoMatch as its prior score
	// (spec §4.3 step 1: "admitted with prior probability prob_no_match").
	for _, id := range expStart {
		if expMatches[id] == 0 {
			f.exploratory.addChild(id, f.exploratory.nodes[id].transform, f.cfg.ProbNoMatch, true)
		}
	}
	for _, id := range mainStart {
		if mainMatches[id] == 0 {
			f.main.addChild(id, f.main.nodes[id].transform, f.cfg.ProbNoMatch, true)
		}
	}

	capLeaves(f.exploratory, f.cfg.MaxBranchExp)
	capLeaves(f.main, f.cfg.MaxBranchMain)

	// Step 4: prune.
	f.exploratory.pruneDeep(f.cfg.WindowLen, f.cfg.MaxNoMatchStreak)
	f.main.pruneDeep(f.cfg.WindowLen, f.cfg.MaxNoMatchStreak)

	// Step 5: promote.
	f.promote()

	// Step 6: emit.
	return f.emit(t)
}

// capLeaves drops the weakest leaves (by highest no-match streak, then
// by shallowest depth) once a tree exceeds its configured branch cap,
// bounding the tree's breadth per spec §8: "main-tree leaf count is <=
// max_branch_main; exploratory <= max_branch_exp".
func capLeaves(tr *hypothesisTree, limit int) {
	for tr.leafCount() > limit {
		worst, worstStreak, worstDepth := uuid.Nil, -1, math.MaxInt64
		for _, id := range tr.leafIDs() {
			n := tr.nodes[id]
			if n.noMatchStreak > worstStreak || (n.noMatchStreak == worstStreak && n.depth < worstDepth) {
				worst, worstStreak, worstDepth = id, n.noMatchStreak, n.depth
			}
		}
		if worst == uuid.Nil {
			return
		}
		delete(tr.leaves, worst)
		tr.compact()
	}
}

// promote checks every exploratory root for a root-to-leaf path of at
// least MainTreeObjReq real (non-virtual) observations whose transforms
// are pairwise consistent within a rho-derived tolerance; the first
// such path found is moved to the main tree and the exploratory tree is
// cleared (spec §4.3 step 5). If another qualifying path ends on a
// transform outside that tolerance of the first, the hypotheses are
// still ambiguous and nothing is promoted this tick.
func (f *Filter) promote() {
	transTol := f.cfg.Rho * f.cfg.TranslationScale
	rotTol := f.cfg.Rho

	var chosen []*hypothesisNode
	for _, leafID := range f.exploratory.leafIDs() {
		chain := f.exploratory.pathTo(leafID)
		real := realNodes(chain)
		if len(real) < f.cfg.MainTreeObjReq {
			continue
		}
		if !pairwiseConsistent(real, transTol, rotTol) {
			continue
		}
		if chosen == nil {
			chosen = real
			continue
		}
		if !chosen[len(chosen)-1].transform.ApproxEqual(real[len(real)-1].transform, transTol, rotTol) {
			return
		}
	}
	if chosen == nil {
		return
	}
	f.promoteChain(chosen)
	f.exploratory.clear()
}

func (f *Filter) promoteChain(real []*hypothesisNode) {
	f.main.clear()
	parent := f.main.addRoot(real[0].transform, real[0].score)
	for _, n := range real[1:] {
		parent = f.main.addChild(parent, n.transform, n.score, false)
	}
	f.mainIrresolvableStreak = 0
}

func realNodes(chain []*hypothesisNode) []*hypothesisNode {
	out := make([]*hypothesisNode, 0, len(chain))
	for _, n := range chain {
		if !n.virtual {
			out = append(out, n)
		}
	}
	return out
}

func pairwiseConsistent(nodes []*hypothesisNode, transTol, rotTol float64) bool {
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if !nodes[i].transform.ApproxEqual(nodes[j].transform, transTol, rotTol) {
				return false
			}
		}
	}
	return true
}

// emit reports the main tree's single surviving leaf, or deletes the
// main tree and reports unknown after it branches irresolvably for too
// long (spec §4.3 step 6).
func (f *Filter) emit(t time.Time) Result {
	leaves := f.main.leafCount()
	if leaves == 1 {
		f.mainIrresolvableStreak = 0
		var leafID uuid.UUID
		for _, id := range f.main.leafIDs() {
			leafID = id
		}
		transform := f.main.nodes[leafID].transform
		return Result{Transform: transform, Known: true, Confidence: f.chainConfidence(leafID), Time: t}
	}

	if leaves > 1 {
		f.mainIrresolvableStreak++
		if f.mainIrresolvableStreak > f.cfg.StepsBeforeMainTreeDeletion {
			f.logger.Logf("tcaff[%s]: main tree irresolvable for %d steps, deleting", f.neighbor, f.mainIrresolvableStreak)
			f.main.clear()
			f.mainIrresolvableStreak = 0
		}
	}

	return Result{Known: false, Time: t}
}

// chainConfidence summarizes the root-to-leaf chain's scores as a
// mean-minus-one-stddev statistic via gonum/stat: a chain whose scores
// are both high and stable scores higher than one with the same mean
// but erratic support. No-match virtual nodes contribute their
// ProbNoMatch prior alongside real registration scores, so a chain that
// has recently gone quiet reports lower confidence than one confirmed
// by real matches every tick.
func (f *Filter) chainConfidence(leafID uuid.UUID) float64 {
	chain := f.main.pathTo(leafID)
	scores := make([]float64, 0, len(chain))
	for _, n := range chain {
		scores = append(scores, n.score)
	}
	if len(scores) == 0 {
		return 0
	}
	if len(scores) == 1 {
		return scores[0]
	}
	mean, std := stat.MeanStdDev(scores, nil)
	if c := mean - std; c > 0 {
		return c
	}
	return 0
}

// ExploratoryLeafCount and MainLeafCount expose tree breadth for
// diagnostics and tests (spec §8's branch-cap invariants).
func (f *Filter) ExploratoryLeafCount() int { return f.exploratory.leafCount() }
func (f *Filter) MainLeafCount() int        { return f.main.leafCount() }
func (f *Filter) CurrentTick() int64        { return f.tick }
