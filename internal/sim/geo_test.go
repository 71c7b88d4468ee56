package sim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"flight-dynamics/internal/geometry/vector"
)

// metres per degree on the Web Mercator sphere
const degLen = 2 * math.Pi * 6378137 / 360

func TestGeoRef_Origin(t *testing.T) {
	g := GeoRef{OriginLat: 32.0853, OriginLon: 34.7818}

	lat, lon, alt := g.LocalToGeo(mgl64.Vec3{0, 150, 0})
	assert.InDelta(t, 32.0853, lat, 1e-9)
	assert.InDelta(t, 34.7818, lon, 1e-9)
	assert.Equal(t, 150.0, alt)

	p := g.GeoToLocal(32.0853, 34.7818, 75)
	assert.InDelta(t, 0, p.X(), 1e-6)
	assert.InDelta(t, 0, p.Z(), 1e-6)
	assert.Equal(t, 75.0, p.Y())
}

func TestGeoRef_Offsets(t *testing.T) {
	g := GeoRef{OriginLat: 45, OriginLon: 10}

	lat, lon, _ := g.LocalToGeo(mgl64.Vec3{0, 0, 1000})
	assert.InDelta(t, 1000/degLen, lat-45, 1e-5, "north moves latitude")
	assert.InDelta(t, 10, lon, 1e-9)

	lat, lon, _ = g.LocalToGeo(mgl64.Vec3{1000, 0, 0})
	assert.InDelta(t, 45, lat, 1e-9)
	assert.InDelta(t, 1000/(degLen*math.Cos(math.Pi/4)), lon-10, 1e-6, "east moves longitude")
}

func TestGeoRef_RoundTrip(t *testing.T) {
	g := GeoRef{OriginLat: -33.9, OriginLon: 151.2}

	for _, p := range []mgl64.Vec3{
		{0, 0, 0},
		{2500, 300, -1200},
		{-15000, 1000, 8000},
	} {
		lat, lon, alt := g.LocalToGeo(p)
		back := g.GeoToLocal(lat, lon, alt)
		assert.InDelta(t, p.X(), back.X(), 1e-4)
		assert.InDelta(t, p.Y(), back.Y(), 1e-9)
		assert.InDelta(t, p.Z(), back.Z(), 1e-4)
	}
}

func TestHeadingDegFromVec(t *testing.T) {
	tests := []struct {
		name string
		v    mgl64.Vec3
		want float64
	}{
		{name: "north", v: mgl64.Vec3{0, 0, 1}, want: 0},
		{name: "east", v: mgl64.Vec3{1, 0, 0}, want: 90},
		{name: "south", v: mgl64.Vec3{0, 5, -1}, want: 180},
		{name: "west", v: mgl64.Vec3{-1, 0, 0}, want: 270},
		{name: "north east", v: mgl64.Vec3{1, 0, 1}, want: 45},
		{name: "vertical", v: mgl64.Vec3{0, 10, 0}, want: 0},
		{name: "zero", v: mgl64.Vec3{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HeadingDegFromVec(tt.v), 1e-9)
		})
	}
}

func TestAttitude(t *testing.T) {
	tests := []struct {
		name                 string
		q                    mgl64.Quat
		heading, pitch, bank float64
	}{
		{name: "level north", q: mgl64.QuatIdent()},
		{name: "yaw east", q: mgl64.QuatRotate(math.Pi/2, vector.AxisUp), heading: 90},
		{name: "nose up", q: mgl64.QuatRotate(-math.Pi/6, vector.AxisRight), pitch: 30},
		{name: "right wing down", q: mgl64.QuatRotate(-math.Pi/4, vector.AxisForward), bank: 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, p, b := Attitude(tt.q)
			assert.InDelta(t, tt.heading, h, 1e-9)
			assert.InDelta(t, tt.pitch, p, 1e-9)
			assert.InDelta(t, tt.bank, b, 1e-9)
		})
	}
}
