// Package driver implements the single-threaded-per-robot scheduler of
// spec §5: it advances one robot's mapper and its per-neighbor TCAFF
// filters in a fixed order every logical tick, firing the mapping and
// alignment stages at their own independent cadences.
package driver

import (
	"time"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/logging"
	"github.com/fleetalign/motlee-go/internal/mapper"
	"github.com/fleetalign/motlee-go/internal/registration"
	"github.com/fleetalign/motlee-go/internal/tcaff"
)

// Robot owns one mapper and one TCAFF filter per neighbor (spec §3
// Ownership: "Each robot exclusively owns its mapper and its N-1 TCAFF
// instances"). Neighbors are referenced by name only, never by a
// pointer back to their own Robot, breaking the cyclic-reference
// pattern the spec's redesign notes call out explicitly — the Driver
// resolves neighbor snapshots by name at call time instead.
type Robot struct {
	Name string

	cfg    Config
	mapper *mapper.Mapper
	logger *logging.Logger

	regCfg    registration.Config
	neighbors map[string]*tcaff.Filter
	lastAlign map[string]tcaff.Result

	lastMapAt   time.Time
	haveMapped  bool
	lastAlignAt time.Time
	haveAligned bool
}

// NewRobot constructs a Robot that tracks the given neighbor names.
// mapCfg and regCfg must already be valid. Per-robot extrinsics such as
// the body->camera transform TBC flow in through mapCfg (mapper.Config),
// since each robot in a fleet gets its own distinct mapCfg value.
func NewRobot(name string, cfg Config, mapCfg mapper.Config, regCfg registration.Config, tcaffCfg tcaff.Config, neighborNames []string) *Robot {
	r := &Robot{
		Name:      name,
		cfg:       cfg,
		mapper:    mapper.New(mapCfg),
		logger:    logging.New(),
		regCfg:    regCfg,
		neighbors: make(map[string]*tcaff.Filter, len(neighborNames)),
		lastAlign: make(map[string]tcaff.Result, len(neighborNames)),
	}
	for _, n := range neighborNames {
		r.neighbors[n] = tcaff.New(tcaffCfg, n)
	}
	return r
}

// SetLogger overrides the robot's diagnostic logger (nil installs a no-op).
func (r *Robot) SetLogger(fn func(string, ...interface{})) {
	r.logger.Set(fn)
}

// Mapper exposes the robot's landmark mapper for direct inspection.
func (r *Robot) Mapper() *mapper.Mapper { return r.mapper }

// LatestAlignment returns the most recent TCAFF output for neighbor,
// and whether that neighbor is known to this robot at all.
func (r *Robot) LatestAlignment(neighbor string) (tcaff.Result, bool) {
	res, ok := r.lastAlign[neighbor]
	return res, ok
}

// Update advances this robot by one driver tick (spec §5's fixed order:
// interpolate pose is the caller's responsibility via the pose
// parameter; ingest; then, at the alignment cadence, snapshot, register
// against every neighbor snapshot supplied, and feed TCAFF). dets may
// be nil (an empty-frame tick still ages the map). neighborSnapshots
// holds each neighbor's most recently exchanged map snapshot; a missing
// entry means that neighbor's snapshot has not arrived yet and is
// skipped for this tick (spec §5: "eventually consistent... tolerated
// by TCAFF's temporal filter").
func (r *Robot) Update(t time.Time, pose geometry.Pose3D, dets []mapper.Detection, neighborSnapshots map[string]mapper.Snapshot) {
	if r.mappingDue(t) {
		r.mapper.Ingest(t, pose, dets)
		r.lastMapAt = t
		r.haveMapped = true
	}

	if !r.alignmentDue(t) {
		return
	}
	r.lastAlignAt = t
	r.haveAligned = true

	mySnapshot := r.mapper.Snapshot(t)
	for name, filter := range r.neighbors {
		neighborSnapshot, ok := neighborSnapshots[name]
		var candidates []registration.Candidate
		if ok {
			candidates = registration.Register(mySnapshot.Landmarks, neighborSnapshot.Landmarks, r.regCfg, t)
		}
		res := filter.Tick(t, candidates)
		r.lastAlign[name] = res
	}
}

// Snapshot returns this robot's current map snapshot at t, for
// exchange with neighbors (spec §3: "Map snapshots are shared-read,
// never-mutate data passed between robots").
func (r *Robot) Snapshot(t time.Time) mapper.Snapshot {
	return r.mapper.Snapshot(t)
}

func (r *Robot) mappingDue(t time.Time) bool {
	if !r.haveMapped {
		return true
	}
	return t.Sub(r.lastMapAt) >= r.cfg.TsMap
}

func (r *Robot) alignmentDue(t time.Time) bool {
	if !r.haveAligned {
		return true
	}
	return t.Sub(r.lastAlignAt) >= r.cfg.TsAlign
}
