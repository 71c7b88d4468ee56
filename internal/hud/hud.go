// Package hud projects aircraft state into the values shown on the heads-up display.
package hud

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MsToKmh converts metres per second to kilometres per hour.
const MsToKmh = 3.6

// Telemetry is one frame of display values.
type Telemetry struct {
	ThrottlePct int     `json:"throttlePct"`
	AirspeedKmh float64 `json:"airspeedKmh"`
	AltitudeM   float64 `json:"altitudeM"`
}

// Project builds the display values from the throttle percent and the world
// velocity and position. Altitude is the vertical world coordinate.
func Project(throttle float64, velocity, position mgl64.Vec3) Telemetry {
	return Telemetry{
		ThrottlePct: int(math.Round(throttle)),
		AirspeedKmh: velocity.Len() * MsToKmh,
		AltitudeM:   position.Y(),
	}
}

// Text renders the three HUD lines.
func (t Telemetry) Text() string {
	return fmt.Sprintf("Throttle: %d%%\nAirspeed: %.0fkm/h\nAltitude: %.0fm",
		t.ThrottlePct, t.AirspeedKmh, t.AltitudeM)
}
