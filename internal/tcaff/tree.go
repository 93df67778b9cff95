package tcaff

import (
	"github.com/google/uuid"

	"github.com/fleetalign/motlee-go/internal/geometry"
)

// hypothesisNode is one node of a TCAFF tree: a candidate transform at a
// given depth within the sliding window (spec §4.3: "Each node holds an
// SE(2) transform and a depth").
type hypothesisNode struct {
	id            uuid.UUID
	parent        uuid.UUID
	hasParent     bool
	transform     geometry.SE2
	depth         int
	noMatchStreak int
	virtual       bool    // true if this node is a "no-match" placeholder child
	score         float64 // the matched candidate's registration score; the caller-supplied prior (ProbNoMatch in Tick) for virtual nodes
}

// hypothesisTree is the arena-like hypothesis store of spec §9 ("arena +
// parent index rather than pointer-linked nodes"), adapted from
// internal/mapper/arena.go's dense-slot-plus-freelist idiom to
// uuid-keyed nodes: since node identity is already a stable, externally
// meaningful uuid (not a small monotonic int the way landmark ids are),
// a direct map collapses the arena's id->slot indirection layer onto a
// single lookup without losing the "no pointer chasing for structure"
// property — children are found by scanning for matching parent ids,
// never by following a stored pointer.
type hypothesisTree struct {
	nodes  map[uuid.UUID]*hypothesisNode
	leaves map[uuid.UUID]bool
}

func newHypothesisTree() *hypothesisTree {
	return &hypothesisTree{
		nodes:  make(map[uuid.UUID]*hypothesisNode),
		leaves: make(map[uuid.UUID]bool),
	}
}

// addRoot starts a new hypothesis chain from a freshly unmatched
// candidate (spec §4.3 step 2: "a candidate unmatched to any leaf
// spawns a new exploratory root").
func (t *hypothesisTree) addRoot(transform geometry.SE2, score float64) uuid.UUID {
	id := uuid.New()
	t.nodes[id] = &hypothesisNode{id: id, transform: transform, depth: 0, score: score}
	t.leaves[id] = true
	return id
}

// addChild extends parentID with a new leaf, replacing parentID as a
// live leaf (a node is a leaf only until it gains its first child).
func (t *hypothesisTree) addChild(parentID uuid.UUID, transform geometry.SE2, score float64, virtual bool) uuid.UUID {
	parent, ok := t.nodes[parentID]
	if !ok {
		return uuid.Nil
	}
	id := uuid.New()
	streak := 0
	if virtual {
		streak = parent.noMatchStreak + 1
	}
	t.nodes[id] = &hypothesisNode{
		id: id, parent: parentID, hasParent: true,
		transform: transform, depth: parent.depth + 1,
		noMatchStreak: streak, virtual: virtual, score: score,
	}
	delete(t.leaves, parentID)
	t.leaves[id] = true
	return id
}

// leafIDs returns the current live leaf ids in no particular order.
func (t *hypothesisTree) leafIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(t.leaves))
	for id := range t.leaves {
		out = append(out, id)
	}
	return out
}

// leafCount returns the number of live leaves.
func (t *hypothesisTree) leafCount() int { return len(t.leaves) }

// pathTo returns the root-to-leaf chain ending at leafID, root first.
func (t *hypothesisTree) pathTo(leafID uuid.UUID) []*hypothesisNode {
	var chain []*hypothesisNode
	cur, ok := t.nodes[leafID]
	for ok {
		chain = append([]*hypothesisNode{cur}, chain...)
		if !cur.hasParent {
			break
		}
		cur, ok = t.nodes[cur.parent]
	}
	return chain
}

// pruneDeep drops any leaf whose depth exceeds windowLen or whose
// no-match streak exceeds maxNoMatchStreak (spec §4.3 step 4), then
// garbage-collects every node no longer on a path from a surviving
// leaf to its root, so dead internal nodes never accumulate across
// ticks.
func (t *hypothesisTree) pruneDeep(windowLen, maxNoMatchStreak int) {
	for id := range t.leaves {
		n := t.nodes[id]
		if n.depth > windowLen || n.noMatchStreak > maxNoMatchStreak {
			delete(t.leaves, id)
		}
	}
	t.compact()
}

// compact removes every node not reachable as an ancestor of a current
// leaf.
func (t *hypothesisTree) compact() {
	reachable := make(map[uuid.UUID]bool, len(t.nodes))
	for id := range t.leaves {
		cur, ok := t.nodes[id]
		for ok {
			if reachable[cur.id] {
				break
			}
			reachable[cur.id] = true
			if !cur.hasParent {
				break
			}
			cur, ok = t.nodes[cur.parent]
		}
	}
	for id := range t.nodes {
		if !reachable[id] {
			delete(t.nodes, id)
		}
	}
}

// clear discards every node and leaf in the tree, used when a root's
// path is promoted out of the exploratory tree into the main tree (spec
// §4.3 step 5: "...clear the exploratory tree for that neighbor").
func (t *hypothesisTree) clear() {
	t.nodes = make(map[uuid.UUID]*hypothesisNode)
	t.leaves = make(map[uuid.UUID]bool)
}
