package kernel

import (
	"math"

	"github.com/achilleasa/lumen/types"
)

const (
	planetRadius     = 6371e3
	atmosphereRadius = 6471e3
	observerHeight   = 1e3

	rayleighScaleHeight = 8e3
	mieScaleHeight      = 1.2e3
	mieAnisotropy       = 0.758
	sunIntensity        = 22.0

	primarySamples = 16
	lightSamples   = 8
)

var (
	rayleighCoefficients = [3]float64{5.5e-6, 13.0e-6, 22.4e-6}
	mieCoefficient       = 21e-6
)

// A single scattering atmosphere model (Rayleigh + Mie) used as the
// background for rays that miss the scene. The sun moves along the YZ plane
// as time advances.
type Sky struct {
	// Sun elevation at time 0 in radians.
	SunElevation float32

	// Sun angular speed in radians per second.
	SunSpeed float32

	// Scalers for the scattering coefficients.
	RayleighScale float32
	MieScale      float32
}

// Create a sky with the default atmosphere settings.
func NewSky() *Sky {
	return &Sky{
		SunElevation:  0.35,
		SunSpeed:      0.05,
		RayleighScale: 1.0,
		MieScale:      1.0,
	}
}

// Get the normalized direction towards the sun at the given time.
func (s *Sky) SunDirection(time float32) types.Vec3 {
	elevation := float64(s.SunElevation + time*s.SunSpeed)
	return types.Vec3{0, float32(math.Sin(elevation)), float32(-math.Cos(elevation))}
}

// Get the tonemapped sky color seen along dir. The result is deterministic
// for identical inputs.
func (s *Sky) Color(dir types.Vec3, time float32) types.Vec3 {
	r := toVec64(dir.Normalize())
	sun := toVec64(s.SunDirection(time))
	origin := vec64{0, planetRadius + observerHeight, 0}

	var kRlh [3]float64
	for i := range kRlh {
		kRlh[i] = rayleighCoefficients[i] * float64(s.RayleighScale)
	}
	kMie := mieCoefficient * float64(s.MieScale)

	tMax, ok := exitDistance(origin, r, atmosphereRadius)
	if !ok {
		return types.Vec3{}
	}
	if tGround, hit := entryDistance(origin, r, planetRadius); hit && tGround < tMax {
		tMax = tGround
	}
	step := tMax / primarySamples

	mu := r.dot(sun)
	mumu := mu * mu
	gg := mieAnisotropy * mieAnisotropy
	phaseRlh := 3.0 / (16.0 * math.Pi) * (1.0 + mumu)
	phaseMie := 3.0 / (8.0 * math.Pi) * ((1.0 - gg) * (mumu + 1.0)) /
		(math.Pow(1.0+gg-2.0*mu*mieAnisotropy, 1.5) * (2.0 + gg))

	var totalRlh, totalMie [3]float64
	var odRlh, odMie float64
	for i := 0; i < primarySamples; i++ {
		pos := origin.add(r.mul((float64(i) + 0.5) * step))
		height := pos.len() - planetRadius

		stepRlh := math.Exp(-height/rayleighScaleHeight) * step
		stepMie := math.Exp(-height/mieScaleHeight) * step
		odRlh += stepRlh
		odMie += stepMie

		lightMax, _ := exitDistance(pos, sun, atmosphereRadius)
		lightStep := lightMax / lightSamples
		var lightRlh, lightMie float64
		for j := 0; j < lightSamples; j++ {
			lightPos := pos.add(sun.mul((float64(j) + 0.5) * lightStep))
			lightHeight := lightPos.len() - planetRadius
			lightRlh += math.Exp(-lightHeight/rayleighScaleHeight) * lightStep
			lightMie += math.Exp(-lightHeight/mieScaleHeight) * lightStep
		}

		for c := 0; c < 3; c++ {
			attn := math.Exp(-(kMie*(odMie+lightMie) + kRlh[c]*(odRlh+lightRlh)))
			totalRlh[c] += stepRlh * attn
			totalMie[c] += stepMie * attn
		}
	}

	var out types.Vec3
	for c := 0; c < 3; c++ {
		radiance := sunIntensity * (phaseRlh*kRlh[c]*totalRlh[c] + phaseMie*kMie*totalMie[c])
		out[c] = float32(1.0 - math.Exp(-radiance))
	}
	return out
}

// The atmosphere integration works in float64 as planet-scale distances
// exhaust float32 precision.
type vec64 [3]float64

func toVec64(v types.Vec3) vec64 {
	return vec64{float64(v[0]), float64(v[1]), float64(v[2])}
}

func (v vec64) add(o vec64) vec64 {
	return vec64{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v vec64) mul(s float64) vec64 {
	return vec64{v[0] * s, v[1] * s, v[2] * s}
}

func (v vec64) dot(o vec64) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v vec64) len() float64 {
	return math.Sqrt(v.dot(v))
}

// Solve the ray/sphere (centered at the origin) quadratic for a unit direction.
func sphereRoots(origin, dir vec64, radius float64) (t0, t1 float64, ok bool) {
	b := 2.0 * dir.dot(origin)
	c := origin.dot(origin) - radius*radius
	d := b*b - 4.0*c
	if d < 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(d)
	return (-b - sq) / 2.0, (-b + sq) / 2.0, true
}

// Distance to the point where a ray starting inside the sphere leaves it.
func exitDistance(origin, dir vec64, radius float64) (float64, bool) {
	_, t1, ok := sphereRoots(origin, dir, radius)
	if !ok || t1 <= 0 {
		return 0, false
	}
	return t1, true
}

// Distance to the first point in front of the origin where the ray enters the sphere.
func entryDistance(origin, dir vec64, radius float64) (float64, bool) {
	t0, _, ok := sphereRoots(origin, dir, radius)
	if !ok || t0 <= 0 {
		return 0, false
	}
	return t0, true
}
