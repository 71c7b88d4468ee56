// Package rigidbody is a small fixed-step rigid-body integrator. It owns the true
// kinematic state of a vehicle and integrates the forces and torques submitted to it
// between steps.
package rigidbody

import (
	"github.com/go-gl/mathgl/mgl64"

	"flight-dynamics/internal/flight"
	"flight-dynamics/internal/geometry/vector"
)

// StandardGravity is the default gravitational acceleration, Y up.
var StandardGravity = mgl64.Vec3{0, -9.81, 0}

// Body is a rigid body with a diagonal inertia tensor.
type Body struct {
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	Orientation     mgl64.Quat
	AngularVelocity mgl64.Vec3 // world frame, rad/s

	Mass    float64
	Inertia mgl64.Vec3 // principal moments about the body X, Y, Z axes

	LinearDrag  float64 // 1/s
	AngularDrag float64 // 1/s

	force  mgl64.Vec3
	torque mgl64.Vec3
}

// New returns a body at rest at the origin with identity orientation.
func New(mass float64, inertia mgl64.Vec3) *Body {
	return &Body{
		Orientation: mgl64.QuatIdent(),
		Mass:        mass,
		Inertia:     inertia,
	}
}

// AddForce accumulates a world-space force for the next Integrate.
func (b *Body) AddForce(f mgl64.Vec3) { b.force = b.force.Add(f) }

// AddTorque accumulates a world-space torque for the next Integrate.
func (b *Body) AddTorque(t mgl64.Vec3) { b.torque = b.torque.Add(t) }

// PendingForce returns the force accumulated since the last Integrate.
func (b *Body) PendingForce() mgl64.Vec3 { return b.force }

// PendingTorque returns the torque accumulated since the last Integrate.
func (b *Body) PendingTorque() mgl64.Vec3 { return b.torque }

// State returns the kinematics the flight model reads.
func (b *Body) State() flight.BodyState {
	return flight.BodyState{
		Position:    b.Position,
		Orientation: b.Orientation,
		Velocity:    b.Velocity,
		Mass:        b.Mass,
	}
}

// Integrate advances the body by dt seconds with semi-implicit Euler and clears
// the accumulated force and torque.
func (b *Body) Integrate(dt float64, gravity mgl64.Vec3) {
	if dt <= 0 {
		return
	}

	// linear
	accel := gravity
	if b.Mass > 0 {
		accel = accel.Add(b.force.Mul(1 / b.Mass))
	}
	b.Velocity = b.Velocity.Add(accel.Mul(dt)).Mul(1 / (1 + b.LinearDrag*dt))
	b.Position = b.Position.Add(b.Velocity.Mul(dt))

	// angular, solved in the body frame where the inertia tensor is diagonal
	q := b.Orientation
	w := vector.ToLocal(q, b.AngularVelocity)
	tau := vector.ToLocal(q, b.torque)
	iw := mgl64.Vec3{b.Inertia[0] * w[0], b.Inertia[1] * w[1], b.Inertia[2] * w[2]}
	net := tau.Sub(w.Cross(iw))

	var alpha mgl64.Vec3
	for i := range alpha {
		if b.Inertia[i] > 0 {
			alpha[i] = net[i] / b.Inertia[i]
		}
	}
	w = w.Add(alpha.Mul(dt)).Mul(1 / (1 + b.AngularDrag*dt))
	b.AngularVelocity = vector.ToWorld(q, w)

	// dq/dt = 1/2 * omega * q with omega as a pure quaternion in world space
	spin := mgl64.Quat{W: 0, V: b.AngularVelocity}.Mul(q).Scale(0.5 * dt)
	b.Orientation = q.Add(spin).Normalize()

	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}

// Reset places the body at pos with orientation q and clears all motion.
func (b *Body) Reset(pos mgl64.Vec3, q mgl64.Quat) {
	b.Position = pos
	b.Orientation = q.Normalize()
	b.Velocity = mgl64.Vec3{}
	b.AngularVelocity = mgl64.Vec3{}
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}
