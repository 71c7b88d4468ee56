// Package env holds environmental effects applied to the aircraft after each
// integration step. World axes are X east, Y up, Z north.
package env

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Environment modifies the integrated position and velocity of the aircraft.
// dt is the step length in seconds. A non-empty warning is surfaced in telemetry.
type Environment interface {
	Apply(dt float64, pos, vel mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, string)
}

// Chain applies effects in order, feeding each one's output into the next.
type Chain struct {
	Effects []Environment
}

// Apply runs every effect in the chain. The last non-empty warning wins.
func (c *Chain) Apply(dt float64, pos, vel mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, string) {
	var warning string
	for _, effect := range c.Effects {
		p, v, w := effect.Apply(dt, pos, vel)
		if w != "" {
			warning = w
		}
		pos, vel = p, v
	}
	return pos, vel, warning
}

// NoOp is an environment that does nothing.
var NoOp Environment = noOpEnv{}

type noOpEnv struct{}

func (noOpEnv) Apply(_ float64, pos, vel mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, string) {
	return pos, vel, ""
}
