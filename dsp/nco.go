package dsp

import (
	"math"
)

const twoPi = 2 * math.Pi

// Oscillator is a numerically-controlled oscillator. Phase is kept in
// [0, 2π) and the increment in (-π, π] radians per sample.
type Oscillator struct {
	phase float64
	freq  float64
}

func NewOscillator(freq, phase float64) *Oscillator {
	o := &Oscillator{}
	o.SetFrequency(freq)
	o.Reset(phase)
	return o
}

// WrapFrequency folds an angular frequency into (-π, π].
func WrapFrequency(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Mod(f, twoPi)
	if f > math.Pi {
		f -= twoPi
	} else if f <= -math.Pi {
		f += twoPi
	}
	return f
}

func wrapPhase(p float64) float64 {
	p = math.Mod(p, twoPi)
	if p < 0 {
		p += twoPi
	}
	if p >= twoPi {
		p = 0
	}
	return p
}

// HzToRadians converts a frequency in Hz to radians per sample.
func HzToRadians(hz, sampleRate float64) float64 { return twoPi * hz / sampleRate }

// RadiansToHz converts radians per sample back to Hz.
func RadiansToHz(w, sampleRate float64) float64 { return w * sampleRate / twoPi }

func (o *Oscillator) SetFrequency(f float64) { o.freq = WrapFrequency(f) }
func (o *Oscillator) Frequency() float64     { return o.freq }
func (o *Oscillator) Phase() float64         { return o.phase }
func (o *Oscillator) Reset(phase float64)    { o.phase = wrapPhase(phase) }
func (o *Oscillator) AdjustPhase(d float64)  { o.phase = wrapPhase(o.phase + d) }

// Read returns the sample at the current phase without advancing.
func (o *Oscillator) Read() complex128 {
	s, c := math.Sincos(o.phase)
	return complex(c, s)
}

// Step advances the phase by one increment and returns the new sample.
func (o *Oscillator) Step() complex128 {
	o.phase = wrapPhase(o.phase + o.freq)
	return o.Read()
}

// MixDown multiplies src by the conjugate oscillator output, advancing once
// per sample. dst may alias src.
func (o *Oscillator) MixDown(dst, src []complex128) []complex128 {
	if dst == nil {
		dst = make([]complex128, len(src))
	}
	for i, x := range src {
		r := o.Read()
		dst[i] = x * complex(real(r), -imag(r))
		o.phase = wrapPhase(o.phase + o.freq)
	}
	return dst
}
