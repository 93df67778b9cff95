package simulate

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/fleetalign/motlee-go/internal/geometry"
	"github.com/fleetalign/motlee-go/internal/mapper"
)

// TwoRobotScenario emits, per tick, two independently-noisy detection
// streams of the same underlying landmark set: one in robot A's body
// frame (identity pose, ground truth) and one in robot B's body frame,
// offset by a known SE(2) transform — the synthetic misalignment of
// §8 scenarios 1, 3 and 5, playing the role the original's
// `sigma_r`/`sigma_t` T_offset injection plays for SE(3).
type TwoRobotScenario struct {
	cfg       Config
	landmarks []Landmark
	// offsetBtoA maps a point expressed in B's body frame into A's
	// frame: a point p_B observed by B corresponds to world landmark
	// offsetBtoA.Apply(p_B).
	offsetBtoA geometry.SE2
	rng        *rand.Rand
}

// NewTwoRobotScenario builds a scenario with its own seeded random
// source (derived once from cfg.Seed), so repeated Tick() calls on two
// separately-constructed scenarios with identical cfg/landmarks/offset
// produce bitwise-identical detection sequences (§8 scenario 6).
func NewTwoRobotScenario(cfg Config, landmarks []Landmark, offsetBtoA geometry.SE2) *TwoRobotScenario {
	return &TwoRobotScenario{
		cfg:        cfg,
		landmarks:  landmarks,
		offsetBtoA: offsetBtoA,
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Tick produces one frame of detections for each robot: A sees the
// landmarks directly (identity pose assumed by the caller); B sees the
// landmarks mapped through the inverse of offsetBtoA, so that when a
// registration/TCAFF pipeline later recovers the transform relating
// A's and B's maps, the answer is offsetBtoA.
func (s *TwoRobotScenario) Tick() (detsA, detsB []mapper.Detection) {
	inv := s.offsetBtoA.Inverse()
	for _, l := range s.landmarks {
		// Dropout is independent per robot per landmark: occlusion is
		// a property of the viewpoint, not the world.
		if s.rng.Float64() >= s.cfg.DropoutProb {
			detsA = append(detsA, s.noisy(l, l.X, l.Y))
		}
		if s.rng.Float64() >= s.cfg.DropoutProb {
			bx, by := inv.Apply(l.X, l.Y)
			detsB = append(detsB, s.noisy(l, bx, by))
		}
	}
	return detsA, detsB
}

func (s *TwoRobotScenario) noisy(l Landmark, x, y float64) mapper.Detection {
	x += s.gauss() * s.cfg.PositionNoiseStd
	y += s.gauss() * s.cfg.PositionNoiseStd
	return mapper.Detection{Position: [3]float64{x, y, 0}, Width: l.Width, Height: l.Height}
}

// gauss draws a standard-normal sample via the Box-Muller transform,
// since math/rand/v2's Rand no longer exposes NormFloat64.
func (s *TwoRobotScenario) gauss() float64 {
	if s.cfg.PositionNoiseStd == 0 {
		return 0
	}
	u1 := s.rng.Float64()
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	u2 := s.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// AccumulatingDriftPoses returns n sequential odometric poses starting
// at the origin, each perturbed from the last by independent Gaussian
// translation/yaw noise, modeling unbounded accumulating dead-reckoning
// drift under a static-landmark scene (§8 scenario 2).
func AccumulatingDriftPoses(n int, stepNoiseStd float64, seed uint64) []geometry.Pose3D {
	rng := rand.New(rand.NewPCG(seed, seed^0xff51afd7ed558ccd))
	out := make([]geometry.Pose3D, n)
	x, y, yaw := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		x += gaussStd(rng, stepNoiseStd)
		y += gaussStd(rng, stepNoiseStd)
		yaw += gaussStd(rng, stepNoiseStd*0.1)
		out[i] = geometry.FromSE2(geometry.NewSE2(x, y, yaw))
	}
	return out
}

func gaussStd(rng *rand.Rand, std float64) float64 {
	if std == 0 {
		return 0
	}
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2) * std
}

// TickTimes returns n synthetic timestamps dt apart starting at t0, for
// feeding a Scenario's Tick output into a driver.Driver loop.
func TickTimes(t0 time.Time, n int, dt time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t0.Add(time.Duration(i) * dt)
	}
	return out
}
