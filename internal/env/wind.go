package env

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Wind is a constant horizontal wind in m/s.
type Wind struct {
	Wx float64 `mapstructure:"wx"` // east
	Wz float64 `mapstructure:"wz"` // north
}

// Apply drifts the ground track. The aircraft's own velocity, and so its airflow,
// is left untouched.
func (w Wind) Apply(dt float64, pos, vel mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, string) {
	return pos.Add(mgl64.Vec3{w.Wx * dt, 0, w.Wz * dt}), vel, ""
}

// Calm returns a zero wind.
func Calm() Wind { return Wind{} }

// FromSpeedAndDir builds a wind blowing towards directionDeg, measured clockwise
// from north.
func FromSpeedAndDir(speed, directionDeg float64) Wind {
	rad := mgl64.DegToRad(directionDeg)
	return Wind{
		Wx: speed * math.Sin(rad),
		Wz: speed * math.Cos(rad),
	}
}
