// Package vector provides the body-axis helpers used by the flight model on top of
// mgl64 vectors and quaternions.
//
// Frames follow a Y-up convention: in the body frame +Z points forward (nose),
// +X points right (starboard wing) and +Y points up. The world frame uses the same
// layout with X=east, Y=up, Z=north (meters).
package vector

import "github.com/go-gl/mathgl/mgl64"

// Body-frame unit axes.
var (
	AxisRight   = mgl64.Vec3{1, 0, 0}
	AxisUp      = mgl64.Vec3{0, 1, 0}
	AxisForward = mgl64.Vec3{0, 0, 1}
)

// Forward returns the body's forward axis expressed in world space
func Forward(q mgl64.Quat) mgl64.Vec3 { return q.Rotate(AxisForward) }

// Right returns the body's right axis expressed in world space
func Right(q mgl64.Quat) mgl64.Vec3 { return q.Rotate(AxisRight) }

// Up returns the body's up axis expressed in world space
func Up(q mgl64.Quat) mgl64.Vec3 { return q.Rotate(AxisUp) }

// ToLocal rotates a world-space vector into the body frame of q.
func ToLocal(q mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 { return q.Inverse().Rotate(v) }

// ToWorld rotates a body-frame vector into world space.
func ToWorld(q mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 { return q.Rotate(v) }

// SqrMagnitude returns the squared length of v
func SqrMagnitude(v mgl64.Vec3) float64 { return v.Dot(v) }

// SafeNormalize returns a unit vector in the direction of v, or the zero vector
// when v has no length.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// ProjectOnPlane removes from v its component along the plane normal n.
// A zero normal leaves v unchanged.
func ProjectOnPlane(v, n mgl64.Vec3) mgl64.Vec3 {
	nn := n.Dot(n)
	if nn == 0 {
		return v
	}
	return v.Sub(n.Mul(v.Dot(n) / nn))
}
