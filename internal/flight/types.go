package flight

import "github.com/go-gl/mathgl/mgl64"

// BodyState is the rigid-body kinematics read at the start of every step. It is
// owned by the integrator; the model never writes to it.
type BodyState struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Velocity    mgl64.Vec3
	Mass        float64
}

// ControlInputs are the pilot commands for one step. Throttle is a percentage in
// [0,100]; Roll, Pitch and Yaw are normalized stick axes in [-1,1].
type ControlInputs struct {
	Throttle float64 `json:"throttle"`
	Roll     float64 `json:"roll"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
}

// State is the derived flight state recomputed on every DeriveState call.
type State struct {
	Velocity      mgl64.Vec3
	LocalVelocity mgl64.Vec3
	AngleOfAttack float64 // radians
}

// AngleOfAttackDeg returns the angle of attack in degrees.
func (s State) AngleOfAttackDeg() float64 { return mgl64.RadToDeg(s.AngleOfAttack) }

// Torques groups the three attitude torques in world space.
type Torques struct {
	Pitch mgl64.Vec3
	Roll  mgl64.Vec3
	Yaw   mgl64.Vec3
}

// Sum returns the combined torque.
func (t Torques) Sum() mgl64.Vec3 { return t.Pitch.Add(t.Roll).Add(t.Yaw) }

// Forces is everything the model asks the integrator to apply for one step.
// All vectors are in world space.
type Forces struct {
	Thrust mgl64.Vec3
	Lift   mgl64.Vec3
	Torques
}

// Force returns the total linear force.
func (f Forces) Force() mgl64.Vec3 { return f.Thrust.Add(f.Lift) }

// Torque returns the total torque.
func (f Forces) Torque() mgl64.Vec3 { return f.Torques.Sum() }
