// Package geometry provides the SE(2) rigid-transform primitives shared by
// the mapper, registration and TCAFF subsystems. All internal alignment
// happens on the horizontal plane: 3D poses and landmarks are projected to
// SE(2) at the single boundary documented in pose3d.go, and nothing
// downstream of that boundary ever touches a third spatial dimension again.
package geometry

import "math"

// SE2 is a rigid transform on the horizontal plane: translation (X, Y) and
// rotation Psi (radians, counter-clockwise from +X).
type SE2 struct {
	X, Y float64
	Psi  float64
}

// Identity returns the identity SE(2) transform.
func Identity() SE2 { return SE2{} }

// NewSE2 builds an SE2 from components, wrapping Psi into (-pi, pi].
func NewSE2(x, y, psi float64) SE2 {
	return SE2{X: x, Y: y, Psi: WrapAngle(psi)}
}

// WrapAngle maps an angle in radians into (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Apply transforms point (x, y) by this SE(2) transform: p' = R(psi)*p + t.
func (t SE2) Apply(x, y float64) (float64, float64) {
	c, s := math.Cos(t.Psi), math.Sin(t.Psi)
	return c*x - s*y + t.X, s*x + c*y + t.Y
}

// Compose returns t followed by u: (u ∘ t)(p) = u.Apply(t.Apply(p)).
func (t SE2) Compose(u SE2) SE2 {
	x, y := u.Apply(t.X, t.Y)
	return SE2{X: x, Y: y, Psi: WrapAngle(t.Psi + u.Psi)}
}

// Inverse returns the transform that undoes t.
func (t SE2) Inverse() SE2 {
	c, s := math.Cos(-t.Psi), math.Sin(-t.Psi)
	x := -(c*t.X - s*t.Y)
	y := -(s*t.X + c*t.Y)
	return SE2{X: x, Y: y, Psi: WrapAngle(-t.Psi)}
}

// TranslationDistance returns the Euclidean distance between translations.
func (t SE2) TranslationDistance(u SE2) float64 {
	dx, dy := t.X-u.X, t.Y-u.Y
	return math.Hypot(dx, dy)
}

// RotationDistance returns the geodesic distance between the two rotations,
// i.e. the absolute wrapped angular difference, in [0, pi].
func (t SE2) RotationDistance(u SE2) float64 {
	return math.Abs(WrapAngle(t.Psi - u.Psi))
}

// WeightedDistance combines translation and rotation distance with weight
// rho applied to the rotational term, as used by TCAFF's association step
// (spec §4.3 step 2: "translation L2 + rotational geodesic, weighted by rho").
func (t SE2) WeightedDistance(u SE2, rho float64) float64 {
	return t.TranslationDistance(u) + rho*t.RotationDistance(u)
}

// ApproxEqual reports whether t and u agree within the given translation
// (meters) and rotation (radians) tolerances.
func (t SE2) ApproxEqual(u SE2, transTol, rotTol float64) bool {
	return t.TranslationDistance(u) <= transTol && t.RotationDistance(u) <= rotTol
}
