package dsp

import (
	"math"
	"math/cmplx"
)

// PLL tracks the phase and frequency of an unmodulated carrier.
type PLL struct {
	*loop
	lastErr float64
}

func NewPLL(p LoopParams) (*PLL, error) {
	if err := p.validate("pll"); err != nil {
		return nil, err
	}
	return &PLL{loop: newLoop(p)}, nil
}

// Feed derotates x by the loop reference and advances the loop. The
// returned sample is the input as seen by the locked reference.
func (p *PLL) Feed(x complex128) (complex128, bool) {
	y := p.mix(x)
	p.lastErr = cmplx.Phase(y)
	locked := p.advance(p.lastErr, math.Abs(p.lastErr))
	return y, locked
}

func (p *PLL) Block(dst, src []complex128) []complex128 {
	if dst == nil {
		dst = make([]complex128, len(src))
	}
	for i, x := range src {
		dst[i], _ = p.Feed(x)
	}
	return dst
}

func (p *PLL) Locked() bool { return p.lock.Locked() }

// Frequency is the oscillator increment in radians per sample.
func (p *PLL) Frequency() float64 { return p.nco.Frequency() }
func (p *PLL) Phase() float64     { return p.nco.Phase() }

// LockMetric is the smoothed absolute phase error in radians.
func (p *PLL) LockMetric() float64 { return p.lock.Metric() }

// PhaseError is the detector output for the last sample.
func (p *PLL) PhaseError() float64 { return p.lastErr }
