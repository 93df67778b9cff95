// Package mapper implements the per-robot Kalman-filter landmark mapper M_i
// from spec §4.1: it converts a stream of timestamped detections and pose
// estimates into a persistent, uniquely-identified map of static landmarks,
// and exposes an immutable snapshot of the confirmed, fresh subset on
// demand.
package mapper

import (
	"time"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/logging"
)

// Mapper is the per-robot landmark map. It is not safe for concurrent use;
// the driver (internal/driver) serializes calls per spec §5's
// single-threaded-per-robot scheduling model.
type Mapper struct {
	cfg    Config
	arena  *arena
	logger *logging.Logger

	tick           int64
	lastPredictAt  time.Time
	havePredicted  bool
}

// New constructs a Mapper. cfg must already be valid (see Config.Validate).
func New(cfg Config) *Mapper {
	return &Mapper{
		cfg:    cfg,
		arena:  newArena(),
		logger: logging.New(),
	}
}

// SetLogger overrides the mapper's diagnostic logger (nil installs a no-op).
func (m *Mapper) SetLogger(f func(string, ...interface{})) {
	m.logger.Set(f)
}

// PredictTo advances every live landmark's covariance to time t (spec
// §4.1 predict: A = I so the mean is unchanged, P <- P + Q*delta). It does
// not affect staleness bookkeeping, which is tick-based, not wall-clock.
func (m *Mapper) PredictTo(t time.Time) {
	delta := 0.0
	if m.havePredicted {
		delta = t.Sub(m.lastPredictAt).Seconds()
		if delta < 0 {
			delta = 0
		}
	}
	m.lastPredictAt = t
	m.havePredicted = true

	if delta == 0 {
		return
	}
	qDiag := m.cfg.qDiag()
	m.arena.forEach(func(lm *Landmark) {
		lm.kf.predict(qDiag, delta)
	})
}

// Ingest is the main entry point of spec §4.1: it predicts all landmarks
// to t, composes the configured body->camera transform with the
// interpolated pose, transforms each detection into the odometric frame,
// discards out-of-band detections, then runs the association+update cycle.
// A nil/empty detection slice is legal and still ages every landmark by one
// tick (matching the original system's behaviour of recording an empty
// frame rather than skipping it — see SPEC_FULL.md's supplemented
// features).
func (m *Mapper) Ingest(t time.Time, poseOdomFromBody geometry.Pose3D, dets []Detection) {
	m.PredictTo(t)
	m.tick++

	poseOdomFromCamera := m.cfg.TBC.Compose(poseOdomFromBody)

	observations := make([]ingestObservation, 0, len(dets))
	for _, d := range dets {
		wx, wy, wz := poseOdomFromCamera.TransformPointToOdom(d.Position[0], d.Position[1], d.Position[2])
		if wz < m.cfg.ZMin || wz > m.cfg.ZMax {
			continue
		}
		var z []float64
		if m.cfg.Dim == 5 {
			z = []float64{wx, wy, wz, d.Width, d.Height}
		} else {
			z = []float64{wx, wy, d.Width, d.Height}
		}
		r := m.cfg.rDiag()
		if d.Covariance != nil {
			r[0] = d.Covariance.At(0, 0)
			r[1] = d.Covariance.At(1, 1)
		}
		observations = append(observations, ingestObservation{z: z, r: r})
	}

	matches, unmatchedDets := m.associate(observations)

	for landmarkID, obsIdx := range matches {
		lm, ok := m.arena.get(landmarkID)
		if !ok {
			continue
		}
		o := observations[obsIdx]
		if err := lm.kf.update(o.z, o.r); err != nil {
			// Invalid update: landmark left unchanged, no exception
			// propagates (spec §4.1 failure semantics).
			m.logger.Logf("mapper: rejecting update for landmark %d: %v", landmarkID, err)
			continue
		}
		lm.ObsCount++
		lm.LastSeenTick = m.tick
	}

	for _, idx := range unmatchedDets {
		o := observations[idx]
		lm := Landmark{
			kf:           newKalmanState(m.cfg.Dim, o.z, m.cfg.p0Diag()),
			ObsCount:     1,
			CreatedTick:  m.tick,
			LastSeenTick: m.tick,
		}
		m.arena.allocate(lm)
	}

	m.pruneStale()
}

// pruneStale drops landmarks unobserved for more than StalenessTicks ticks,
// regardless of confirmation state (spec §4.1 lifecycle: both tentative and
// confirmed landmarks are dropped after nu ticks without observation).
func (m *Mapper) pruneStale() {
	var toRelease []int64
	m.arena.forEach(func(lm *Landmark) {
		if m.tick-lm.LastSeenTick > int64(m.cfg.StalenessTicks) {
			toRelease = append(toRelease, lm.ID)
		}
	})
	for _, id := range toRelease {
		m.arena.release(id)
	}
}

// Snapshot returns the current set of confirmed (ObsCount >= kappa), fresh
// (age <= nu ticks) landmarks as an immutable, ordered-by-ID cut (spec
// §4.1 snapshot, §3 invariant: "consistent cut ... same snapshot time").
func (m *Mapper) Snapshot(at time.Time) Snapshot {
	out := make([]SnapshotLandmark, 0, m.arena.len())
	m.arena.forEach(func(lm *Landmark) {
		if lm.ObsCount < m.cfg.HitsToConfirm {
			return
		}
		if m.tick-lm.LastSeenTick > int64(m.cfg.StalenessTicks) {
			return
		}
		out = append(out, SnapshotLandmark{
			ID:     lm.ID,
			X:      lm.X(),
			Y:      lm.Y(),
			Z:      lm.Z(),
			Width:  lm.Width(),
			Height: lm.Height(),
		})
	})
	sortLandmarksByID(out)
	return Snapshot{Time: at, Landmarks: out}
}

// LandmarkCount returns the number of currently-live landmarks (any
// lifecycle state), for diagnostics.
func (m *Mapper) LandmarkCount() int { return m.arena.len() }

// CurrentTick returns the number of Ingest calls processed so far, the
// unit spec §4.1's staleness window (nu) is expressed in.
func (m *Mapper) CurrentTick() int64 { return m.tick }

// Confirmed returns the count of currently-live confirmed landmarks.
func (m *Mapper) Confirmed() int {
	n := 0
	m.arena.forEach(func(lm *Landmark) {
		if lm.State(m.cfg.HitsToConfirm) == LandmarkConfirmed {
			n++
		}
	})
	return n
}

func sortLandmarksByID(ls []SnapshotLandmark) {
	// Insertion sort: landmark counts per tick are small (tens, not
	// thousands), and IDs arrive nearly sorted since they are monotonic
	// allocation order.
	for i := 1; i < len(ls); i++ {
		for j := i; j > 0 && ls[j-1].ID > ls[j].ID; j-- {
			ls[j-1], ls[j] = ls[j], ls[j-1]
		}
	}
}
