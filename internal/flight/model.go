// Package flight implements the airplane force model: it derives the local-frame
// velocity and angle of attack of a rigid body and turns pilot inputs into the
// thrust, lift and attitude torques to apply for one fixed step.
//
// The model is not safe for concurrent use. One Model belongs to one vehicle and is
// driven from a single simulation loop.
package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"flight-dynamics/internal/curve"
	"flight-dynamics/internal/geometry/vector"
)

// LiftModel selects how lift is computed.
type LiftModel string

const (
	// LiftCurve derives lift from the angle of attack through a response curve.
	LiftCurve LiftModel = "curve"
	// LiftLegacy pushes straight up in proportion to airspeed.
	LiftLegacy LiftModel = "legacy"
)

const (
	DefaultAoAGuard  = 0.1
	DefaultLiftGuard = 1.0
)

// Params are the airframe tuning values.
type Params struct {
	MaxThrust   float64 // force per throttle percent
	Sensitivity float64 // base attitude gain, scaled by mass/10
	LiftPower   float64

	// Squared local speeds below which the angle of attack and lift are zeroed.
	AoAGuard  float64
	LiftGuard float64

	LiftModel LiftModel
}

// DefaultParams returns the stock airframe tuning.
func DefaultParams() Params {
	return Params{
		MaxThrust:   200,
		Sensitivity: 200,
		LiftPower:   135,
		AoAGuard:    DefaultAoAGuard,
		LiftGuard:   DefaultLiftGuard,
		LiftModel:   LiftCurve,
	}
}

// Model is the per-vehicle flight dynamics model.
type Model struct {
	params Params
	curve  curve.Curve
	state  State
}

// New creates a model. A nil curve falls back to curve.DefaultLift.
func New(p Params, c curve.Curve) *Model {
	if c == nil {
		c = curve.DefaultLift()
	}
	if p.LiftModel == "" {
		p.LiftModel = LiftCurve
	}
	return &Model{params: p, curve: c}
}

// Params returns the model's tuning.
func (m *Model) Params() Params { return m.params }

// State returns the state computed by the most recent DeriveState call.
func (m *Model) State() State { return m.state }

// DeriveState recomputes the derived state from the body's orientation and world
// velocity and keeps it as the model's current state.
func (m *Model) DeriveState(orientation mgl64.Quat, velocity mgl64.Vec3) State {
	m.state = DeriveState(orientation, velocity, m.params.AoAGuard)
	return m.state
}

// ComputeLift returns the body-frame lift for s using the model's curve and tuning.
func (m *Model) ComputeLift(s State) mgl64.Vec3 {
	return ComputeLift(s, m.params.LiftPower, m.curve, m.params.LiftGuard)
}

// Step runs the force half of one fixed step: it refreshes the derived state from
// body and returns the world-space forces and torques for the integrator. The caller
// integrates them and then calls DeriveState again so readers see post-step state.
func (m *Model) Step(body BodyState, in ControlInputs) Forces {
	q := body.Orientation
	s := m.DeriveState(q, body.Velocity)

	f := Forces{
		Thrust:  ComputeThrust(q, in.Throttle, m.params.MaxThrust),
		Torques: ComputeAttitudeTorques(q, in.Roll, in.Pitch, in.Yaw, body.Mass, m.params.Sensitivity),
	}

	switch m.params.LiftModel {
	case LiftLegacy:
		f.Lift = LegacyLift(s.Velocity, m.params.LiftPower)
	default:
		f.Lift = vector.ToWorld(q, m.ComputeLift(s))
	}

	return f
}

// DeriveState resolves velocity into the body frame and computes the angle of
// attack. Below aoaGuard squared local speed the angle is exactly zero.
func DeriveState(orientation mgl64.Quat, velocity mgl64.Vec3, aoaGuard float64) State {
	local := vector.ToLocal(orientation, velocity)

	s := State{Velocity: velocity, LocalVelocity: local}
	if vector.SqrMagnitude(local) < aoaGuard {
		return s
	}
	s.AngleOfAttack = math.Atan2(-local.Y(), local.Z())
	return s
}

// ComputeThrust returns the thrust along the body's forward axis. Throttle is not
// clamped; out-of-range values give proportionally out-of-range thrust.
func ComputeThrust(orientation mgl64.Quat, throttle, maxThrust float64) mgl64.Vec3 {
	return vector.Forward(orientation).Mul(maxThrust * throttle)
}

// SensitivityModifier scales the base attitude gain with vehicle mass.
func SensitivityModifier(mass, sensitivityBase float64) float64 {
	return (mass / 10) * sensitivityBase
}

// ComputeAttitudeTorques returns the pitch, roll and yaw torques. Roll acts about
// the negative forward axis.
func ComputeAttitudeTorques(orientation mgl64.Quat, roll, pitch, yaw, mass, sensitivityBase float64) Torques {
	mod := SensitivityModifier(mass, sensitivityBase)
	return Torques{
		Pitch: vector.Right(orientation).Mul(pitch * mod),
		Roll:  vector.Forward(orientation).Mul(-roll * mod),
		Yaw:   vector.Up(orientation).Mul(yaw * mod),
	}
}

// ComputeLift returns the lift vector in the body frame. Lift is perpendicular to
// the velocity in the pitch plane and scales with the squared speed in that plane
// and the curve's coefficient at the current angle of attack; a negative
// coefficient reverses it. Below liftGuard squared local speed it is zero.
func ComputeLift(s State, liftPower float64, c curve.Curve, liftGuard float64) mgl64.Vec3 {
	if vector.SqrMagnitude(s.LocalVelocity) < liftGuard {
		return mgl64.Vec3{}
	}

	liftVelocity := vector.ProjectOnPlane(s.LocalVelocity, vector.AxisRight)
	v2 := vector.SqrMagnitude(liftVelocity)

	coefficient := c.Evaluate(mgl64.RadToDeg(s.AngleOfAttack))
	magnitude := v2 * coefficient * liftPower

	direction := vector.SafeNormalize(liftVelocity).Cross(vector.AxisRight)
	return direction.Mul(magnitude)
}

// LegacyLift is the first-generation lift law: straight up in world space,
// proportional to airspeed.
func LegacyLift(velocity mgl64.Vec3, liftPower float64) mgl64.Vec3 {
	return vector.AxisUp.Mul(velocity.Len() * liftPower)
}
