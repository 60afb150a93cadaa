// Package dsp implements the weighting filter chain and the level
// estimation that reduce a captured burst to a single LAeq figure.
package dsp

import (
	"math"
	"math/cmplx"
)

// Biquad is a single second-order IIR section in transposed direct
// form II. Coefficients are normalized so a0 == 1.
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64

	z1, z2 float64
}

// Process filters one sample through the section.
func (s *Biquad) Process(x float64) float64 {
	y := s.B0*x + s.z1
	s.z1 = s.B1*x - s.A1*y + s.z2
	s.z2 = s.B2*x - s.A2*y
	return y
}

// Reset zeroes the delay memory.
func (s *Biquad) Reset() {
	s.z1, s.z2 = 0, 0
}

// Chain is a cascade of biquad sections applied in order.
type Chain []*Biquad

// Filter resets every section and runs the whole burst through the
// cascade, returning a new slice. Bursts are independent measurement
// windows; state never carries over from a previous call.
func (c Chain) Filter(samples []float64) []float64 {
	for _, s := range c {
		s.Reset()
	}
	out := make([]float64, len(samples))
	for i, x := range samples {
		for _, s := range c {
			x = s.Process(x)
		}
		out[i] = x
	}
	return out
}

// Response returns the cascade's magnitude response at freq Hz for the
// given sample rate.
func (c Chain) Response(freq, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	z1 := cmplx.Exp(complex(0, -w)) // z^-1 on the unit circle
	z2 := z1 * z1

	h := complex(1, 0)
	for _, s := range c {
		num := complex(s.B0, 0) + complex(s.B1, 0)*z1 + complex(s.B2, 0)*z2
		den := complex(1, 0) + complex(s.A1, 0)*z1 + complex(s.A2, 0)*z2
		h *= num / den
	}
	return cmplx.Abs(h)
}

// bilinear maps an analog section
//
//	H(s) = (b2·s² + b1·s + b0) / (a2·s² + a1·s + a0)
//
// to a digital biquad via the bilinear transform s = 2·fs·(z−1)/(z+1).
func bilinear(b2, b1, b0, a2, a1, a0, fs float64) *Biquad {
	k := 2 * fs
	k2 := k * k

	nb0 := b2*k2 + b1*k + b0
	nb1 := 2 * (b0 - b2*k2)
	nb2 := b2*k2 - b1*k + b0

	na0 := a2*k2 + a1*k + a0
	na1 := 2 * (a0 - a2*k2)
	na2 := a2*k2 - a1*k + a0

	return &Biquad{
		B0: nb0 / na0,
		B1: nb1 / na0,
		B2: nb2 / na0,
		A1: na1 / na0,
		A2: na2 / na0,
	}
}
