package dsp

import (
	"math"
)

// DesignButterworth designs an order-N low pass at cutoff Hz using the
// bilinear transform with pre-warping. Conjugate pole pairs become biquads;
// an odd order ends with a first-order section.
func DesignButterworth(order int, cutoff, sampleRate float64) (*IIRFilter, error) {
	switch {
	case order <= 0:
		return nil, designErr("order %d must be positive", order)
	case sampleRate <= 0:
		return nil, designErr("sample rate %g must be positive", sampleRate)
	case cutoff <= 0:
		return nil, designErr("cutoff %g must be positive", cutoff)
	case cutoff >= sampleRate/2:
		return nil, designErr("cutoff %g at or above nyquist %g", cutoff, sampleRate/2)
	}

	k := math.Tan(math.Pi * cutoff / sampleRate)
	k2 := k * k
	sections := make([]Section, 0, (order+1)/2)
	for i := 0; i < order/2; i++ {
		q := 1 / (2 * math.Sin(float64(2*i+1)*math.Pi/float64(2*order)))
		norm := 1 / (1 + k/q + k2)
		b0 := k2 * norm
		sections = append(sections, Section{
			B0: b0,
			B1: 2 * b0,
			B2: b0,
			A1: 2 * (k2 - 1) * norm,
			A2: (1 - k/q + k2) * norm,
		})
	}
	if order%2 == 1 {
		norm := 1 / (1 + k)
		sections = append(sections, Section{
			B0: k * norm,
			B1: k * norm,
			A1: (k - 1) * norm,
		})
	}
	return NewIIRFilter(sections...), nil
}

// ButterworthGain is the analytic magnitude response of the bilinear
// Butterworth design at f Hz.
func ButterworthGain(order int, cutoff, sampleRate, f float64) float64 {
	r := math.Tan(math.Pi*f/sampleRate) / math.Tan(math.Pi*cutoff/sampleRate)
	return 1 / math.Sqrt(1+math.Pow(r, 2*float64(order)))
}
