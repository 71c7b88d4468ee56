package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/wroge/wgs84"

	"flight-dynamics/internal/geometry/vector"
)

const (
	epsgWGS84       = 4326
	epsgWebMercator = 3857
)

// GeoRef anchors the local world frame (X east, Y up, Z north, metres) at a
// geographic origin. Conversions go through Web Mercator with the scale factor
// of the origin latitude, which is accurate over the few tens of kilometres a
// flight covers.
type GeoRef struct {
	OriginLat float64
	OriginLon float64
}

func (g GeoRef) scale() float64 {
	return 1 / math.Cos(mgl64.DegToRad(g.OriginLat))
}

func (g GeoRef) originMercator() (x, y float64) {
	x, y, _ = wgs84.EPSG().Transform(epsgWGS84, epsgWebMercator)(g.OriginLon, g.OriginLat, 0)
	return x, y
}

// GeoToLocal converts a geographic position and altitude to local metres.
func (g GeoRef) GeoToLocal(lat, lon, alt float64) mgl64.Vec3 {
	x0, y0 := g.originMercator()
	x, y, _ := wgs84.EPSG().Transform(epsgWGS84, epsgWebMercator)(lon, lat, 0)
	k := g.scale()
	return mgl64.Vec3{(x - x0) / k, alt, (y - y0) / k}
}

// LocalToGeo converts local metres back to latitude, longitude and altitude.
func (g GeoRef) LocalToGeo(p mgl64.Vec3) (lat, lon, alt float64) {
	x0, y0 := g.originMercator()
	k := g.scale()
	lon, lat, _ = wgs84.EPSG().Transform(epsgWebMercator, epsgWGS84)(x0+p.X()*k, y0+p.Z()*k, 0)
	return lat, lon, p.Y()
}

// HeadingDegFromVec returns the compass heading of the horizontal part of v,
// 0 north and 90 east. A vertical or zero vector has heading 0.
func HeadingDegFromVec(v mgl64.Vec3) float64 {
	if math.Abs(v.X()) < 1e-9 && math.Abs(v.Z()) < 1e-9 {
		return 0
	}
	deg := mgl64.RadToDeg(math.Atan2(v.X(), v.Z()))
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Attitude returns heading, pitch (nose up positive) and bank (right wing down
// positive) in degrees.
func Attitude(q mgl64.Quat) (heading, pitch, bank float64) {
	fwd := vector.Forward(q)
	right := vector.Right(q)
	up := vector.Up(q)

	heading = HeadingDegFromVec(fwd)
	pitch = mgl64.RadToDeg(math.Asin(mgl64.Clamp(fwd.Y(), -1, 1)))
	bank = mgl64.RadToDeg(math.Atan2(-right.Y(), up.Y()))
	return heading, pitch, bank
}
