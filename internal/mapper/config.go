package mapper

import (
	"fmt"
	"time"

	"github.com/fleetalign/motlee-go/internal/geometry"
)

// Config holds the "mapping" configuration group from spec §6: Kalman
// filter noise, association gating, confirmation/staleness lifecycle and
// ingest cadence, mirroring the teacher's BackgroundConfig/TrackerConfig
// builder pattern (internal/lidar/config.go, tracking.go).
type Config struct {
	// Dim is the landmark state dimension: 4 for [x,y,w,h], 5 for
	// [x,y,z,w,h] (spec §4.1).
	Dim int `json:"dim"`

	// Process noise (Q) per state component, per second of elapsed time
	// between predictions (see Mapper.PredictTo).
	QPos    float64 `json:"q_pos"`    // Q_el: process noise for x, y (and z when Dim is 5)
	QWidth  float64 `json:"q_width"`  // Q_el_w
	QHeight float64 `json:"q_height"` // Q_el_h

	// Initial covariance (P0) per state component, for newly created
	// landmarks.
	P0Pos    float64 `json:"p0_pos"`    // P0_el
	P0Width  float64 `json:"p0_width"`  // P0_el_w
	P0Height float64 `json:"p0_height"` // P0_el_h

	// Measurement noise (R = R_el * I) applied uniformly across all state
	// dimensions.
	MeasurementNoise float64 `json:"measurement_noise"` // R_el

	// GatingMahalanobisSq is tau_local: the squared-Mahalanobis gate on the
	// planar (x,y) innovation distance that a detection-landmark pair must
	// pass to be considered for association.
	GatingMahalanobisSq float64 `json:"gating_mahalanobis_sq"` // tau

	// HitsToConfirm is kappa: observation count required before a
	// landmark is "confirmed" and eligible for a snapshot.
	HitsToConfirm int `json:"hits_to_confirm"` // kappa

	// StalenessTicks is nu: consecutive ingest ticks without an
	// observation after which a landmark (tentative or confirmed) is
	// dropped.
	StalenessTicks int `json:"staleness_ticks"` // nu

	// ZMin/ZMax gate detections by their transformed vertical (world-frame
	// Z) coordinate; detections outside the range are discarded at
	// ingress, before association.
	ZMin float64 `json:"z_min"`
	ZMax float64 `json:"z_max"`

	// IngestPeriod is ts: the nominal mapping cadence. It is only
	// validated here; the driver schedules Ingest by its own
	// driver.Config.TsMap, and the mapper itself is cadence-agnostic
	// (it ages landmarks per call, not per wall-clock duration).
	IngestPeriod time.Duration `json:"ingest_period"`

	// TBC is the optional, per-robot body->camera rigid transform (spec
	// §6's "run" config group). It composes with the interpolated
	// odom<-body pose once per Ingest call, before any detection is
	// placed in the odometric frame: T_WC = TBC.Compose(poseOdomFromBody),
	// so a camera-frame point is carried into the body frame by TBC first
	// and then into the odometric frame by the pose. Defaults to the
	// identity transform, degrading to the untransformed body-frame
	// behavior when the sensor is co-located with the body frame.
	TBC geometry.Pose3D `json:"t_bc"`
}

// DefaultConfig returns tuned defaults for a ground-vehicle-scale outdoor
// landmark map: meter-scale gating, confirmation after 3 hits, staleness
// after 5 ticks of misses.
func DefaultConfig() Config {
	return Config{
		Dim:                 4,
		QPos:                0.02,
		QWidth:              0.01,
		QHeight:             0.01,
		P0Pos:               1.0,
		P0Width:             0.25,
		P0Height:            0.25,
		MeasurementNoise:    0.05,
		GatingMahalanobisSq: 9.21, // chi-square(2 dof, p=0.99)
		HitsToConfirm:       3,
		StalenessTicks:      5,
		ZMin:                -0.5,
		ZMax:                3.0,
		IngestPeriod:        100 * time.Millisecond,
		TBC:                 geometry.Identity3D(),
	}
}

// Validate rejects configuration-error class (5) from spec §7: invalid
// parameters are fatal at construction, never silently clamped.
func (c Config) Validate() error {
	if c.Dim != 4 && c.Dim != 5 {
		return fmt.Errorf("mapper: Dim must be 4 or 5, got %d", c.Dim)
	}
	if c.QPos <= 0 || c.QWidth <= 0 || c.QHeight <= 0 {
		return fmt.Errorf("mapper: process noise components must be positive")
	}
	if c.P0Pos <= 0 || c.P0Width <= 0 || c.P0Height <= 0 {
		return fmt.Errorf("mapper: initial covariance components must be positive")
	}
	if c.MeasurementNoise <= 0 {
		return fmt.Errorf("mapper: MeasurementNoise must be positive, got %f", c.MeasurementNoise)
	}
	if c.GatingMahalanobisSq <= 0 {
		return fmt.Errorf("mapper: GatingMahalanobisSq must be positive, got %f", c.GatingMahalanobisSq)
	}
	if c.HitsToConfirm < 1 {
		return fmt.Errorf("mapper: HitsToConfirm must be >= 1, got %d", c.HitsToConfirm)
	}
	if c.StalenessTicks < 1 {
		return fmt.Errorf("mapper: StalenessTicks must be >= 1, got %d", c.StalenessTicks)
	}
	if c.ZMin > c.ZMax {
		return fmt.Errorf("mapper: ZMin (%f) must be <= ZMax (%f)", c.ZMin, c.ZMax)
	}
	if c.IngestPeriod <= 0 {
		return fmt.Errorf("mapper: IngestPeriod must be positive, got %v", c.IngestPeriod)
	}
	if !c.TBC.IsValidRigidTransform(1e-6) {
		return fmt.Errorf("mapper: TBC must be a valid rigid transform")
	}
	return nil
}

// WithDim sets the landmark state dimension (4 or 5).
func (c Config) WithDim(dim int) Config {
	c.Dim = dim
	return c
}

// WithGating sets the squared-Mahalanobis association gate.
func (c Config) WithGating(tau float64) Config {
	c.GatingMahalanobisSq = tau
	return c
}

// WithConfirmation sets the confirmation/staleness lifecycle thresholds.
func (c Config) WithConfirmation(kappa, nu int) Config {
	c.HitsToConfirm = kappa
	c.StalenessTicks = nu
	return c
}

// WithVerticalGate sets the ingress vertical-axis acceptance range.
func (c Config) WithVerticalGate(zmin, zmax float64) Config {
	c.ZMin = zmin
	c.ZMax = zmax
	return c
}

// WithCadence sets the nominal ingest period.
func (c Config) WithCadence(ts time.Duration) Config {
	c.IngestPeriod = ts
	return c
}

// WithBodyToCamera sets the per-robot body->camera transform TBC applied
// to every detection before it is placed in the odometric frame.
func (c Config) WithBodyToCamera(tbc geometry.Pose3D) Config {
	c.TBC = tbc
	return c
}

// qDiag returns the process-noise diagonal for the configured dimension.
func (c Config) qDiag() []float64 {
	if c.Dim == 5 {
		return []float64{c.QPos, c.QPos, c.QPos, c.QWidth, c.QHeight}
	}
	return []float64{c.QPos, c.QPos, c.QWidth, c.QHeight}
}

// p0Diag returns the initial-covariance diagonal for the configured
// dimension.
func (c Config) p0Diag() []float64 {
	if c.Dim == 5 {
		return []float64{c.P0Pos, c.P0Pos, c.P0Pos, c.P0Width, c.P0Height}
	}
	return []float64{c.P0Pos, c.P0Pos, c.P0Width, c.P0Height}
}

// rDiag returns the measurement-noise diagonal (R_el * I).
func (c Config) rDiag() []float64 {
	out := make([]float64, c.Dim)
	for i := range out {
		out[i] = c.MeasurementNoise
	}
	return out
}
