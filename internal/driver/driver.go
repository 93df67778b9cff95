package driver

import (
	"sort"
	"time"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/mapper"
)

// Driver coordinates N robots' scheduling and the eventually-consistent
// map-snapshot exchange between them (spec §5: "a neighbor's snapshot
// consumed at t may be stale by up to one ts_align period"). Robots
// always read the snapshot cache as it stood at the start of the tick,
// so exchange latency is structural, not accidental.
type Driver struct {
	robots map[string]*Robot
	order  []string

	latestSnapshots map[string]mapper.Snapshot
}

// New constructs an empty Driver.
func New() *Driver {
	return &Driver{
		robots:          make(map[string]*Robot),
		latestSnapshots: make(map[string]mapper.Snapshot),
	}
}

// AddRobot registers r with the driver. Robots are stepped in
// lexicographic name order for determinism (spec §8: replay
// determinism).
func (d *Driver) AddRobot(r *Robot) {
	d.robots[r.Name] = r
	d.order = append(d.order, r.Name)
	sort.Strings(d.order)
}

// Robot returns the named robot, or nil if unknown.
func (d *Driver) Robot(name string) *Robot { return d.robots[name] }

// Step advances every robot by one logical tick t (spec §5's fixed
// order per robot: interpolate pose, ingest, and — at each robot's own
// alignment cadence — register against neighbor snapshots and feed
// TCAFF). poses/detections are keyed by robot name; a robot missing
// from poses is simply not updated this tick (a legal "missing input",
// per spec §4.1/§4.3 failure semantics).
func (d *Driver) Step(t time.Time, poses map[string]geometry.Pose3D, detections map[string][]mapper.Detection) {
	for _, name := range d.order {
		pose, ok := poses[name]
		if !ok {
			continue
		}
		r := d.robots[name]
		neighborSnapshots := make(map[string]mapper.Snapshot, len(d.order)-1)
		for other, snap := range d.latestSnapshots {
			if other != name {
				neighborSnapshots[other] = snap
			}
		}
		r.Update(t, pose, detections[name], neighborSnapshots)
	}

	for _, name := range d.order {
		d.latestSnapshots[name] = d.robots[name].Snapshot(t)
	}
}

// RobotNames returns the registered robot names in scheduling order.
func (d *Driver) RobotNames() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}
