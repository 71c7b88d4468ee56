package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"flight-dynamics/internal/hud"
)

// Controls are the current stick and pedal deflections in [-1, 1].
type Controls struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// AircraftState is the published snapshot taken after each step.
type AircraftState struct {
	Aircraft string `json:"aircraft"`

	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"` // meters

	Position      mgl64.Vec3 `json:"position"` // local frame, X east, Y up, Z north
	Velocity      mgl64.Vec3 `json:"velocity"`
	LocalVelocity mgl64.Vec3 `json:"localVelocity"`

	AngleOfAttackDeg float64 `json:"aoaDeg"`
	HeadingDeg       float64 `json:"headingDeg"`
	PitchDeg         float64 `json:"pitchDeg"`
	BankDeg          float64 `json:"bankDeg"`

	Throttle float64  `json:"throttle"` // percent
	Controls Controls `json:"controls"`

	ThrustN float64 `json:"thrustN"`
	LiftN   float64 `json:"liftN"`

	HUD     hud.Telemetry `json:"hud"`
	HUDText string        `json:"hudText"`

	Tick    uint64    `json:"tick"`
	TS      time.Time `json:"ts"`
	Warning string    `json:"warning,omitempty"`
}
