package env

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// TerrainWarning is reported when the floor clamp moves the aircraft.
const TerrainWarning = "terrain-floor: altitude clipped to safety margin"

// Terrain keeps the aircraft at or above the ground plus a safety margin.
type Terrain struct {
	SafetyMarginM  float64 `mapstructure:"safetyMarginM"`
	WaveAmplitudeM float64 `mapstructure:"waveAmplitudeM"` // 0 gives flat ground at Y=0
}

// GroundAltitude returns the synthetic ground height under pos.
func (t Terrain) GroundAltitude(pos mgl64.Vec3) float64 {
	if t.WaveAmplitudeM == 0 {
		return 0
	}
	wave1 := math.Sin(pos.X()/1000) * t.WaveAmplitudeM
	wave2 := math.Sin((pos.X()+pos.Z())/500) * t.WaveAmplitudeM / 2
	return wave1 + wave2
}

// Apply clamps the altitude to the ground plus margin and kills any descent
// when it does.
func (t Terrain) Apply(_ float64, pos, vel mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, string) {
	floor := t.GroundAltitude(pos) + t.SafetyMarginM
	if pos.Y() >= floor {
		return pos, vel, ""
	}

	pos[1] = floor
	if vel.Y() < 0 {
		vel[1] = 0
	}
	return pos, vel, TerrainWarning
}

// OnGround reports whether pos sits on the clamped floor.
func (t Terrain) OnGround(pos mgl64.Vec3) bool {
	return pos.Y() <= t.GroundAltitude(pos)+t.SafetyMarginM+1e-9
}

// DefaultTerrain is flat ground with no margin.
func DefaultTerrain() Terrain {
	return Terrain{}
}
