package mapper

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Detection is one object observation in the sensor/body frame (spec §3).
type Detection struct {
	// Position is (x, y, z) in the robot's body/camera frame, before the
	// pose transform into the odometric frame.
	Position [3]float64
	Width    float64
	Height   float64
	// Covariance is an optional per-detection measurement covariance
	// override for the planar (x,y) subspace. If nil, the mapper falls
	// back to Config.MeasurementNoise*I, per spec §4.1's model.
	Covariance *mat.SymDense
}

// SnapshotLandmark is the exchangeable, immutable per-landmark summary
// carried in a Snapshot (spec §3: "Map snapshot").
type SnapshotLandmark struct {
	ID     int64
	X, Y   float64
	Z      float64 // 0 for 4-dimensional maps
	Width  float64
	Height float64
}

// Snapshot is an immutable, consistent cut of a mapper's confirmed,
// fresh landmarks at a single point in time (spec §3). Once produced it
// is never mutated; multiple consumers may read it concurrently without
// locking.
type Snapshot struct {
	Time      time.Time
	Landmarks []SnapshotLandmark
}

// ingestObservation is a detection already transformed into the
// odometric frame and gated by Z, ready for association against the
// landmark arena. z holds the full state-dimensioned measurement
// ([x,y,w,h] or [x,y,z,w,h]); r holds the matching measurement-noise
// diagonal.
type ingestObservation struct {
	z []float64
	r []float64
}
