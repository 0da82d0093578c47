package dsp

import (
	"math"
)

// LoopParams configures the second-order loop shared by the PLL and the
// Costas loop. Bandwidth is the normalized noise bandwidth in cycles per
// sample.
type LoopParams struct {
	Bandwidth float64 `yaml:"bandwidth"`
	Damping   float64 `yaml:"damping"`
	// Frequency is the initial oscillator frequency in radians per sample.
	Frequency float64 `yaml:"frequency"`

	LockThreshold   float64 `yaml:"lock_threshold"`
	UnlockThreshold float64 `yaml:"unlock_threshold"`
	LockWindow      int     `yaml:"lock_window"`
	UnlockWindow    int     `yaml:"unlock_window"`
	// LockSmoothing is the time constant, in samples, of the lock metric.
	LockSmoothing float64 `yaml:"lock_smoothing"`
}

func DefaultPLLParams() LoopParams {
	return LoopParams{
		Bandwidth:       0.01,
		Damping:         math.Sqrt2 / 2,
		LockThreshold:   0.1,
		UnlockThreshold: 0.3,
		LockWindow:      200,
		UnlockWindow:    200,
		LockSmoothing:   100,
	}
}

func DefaultCostasParams() LoopParams {
	return LoopParams{
		Bandwidth:       0.005,
		Damping:         math.Sqrt2 / 2,
		LockThreshold:   0.25,
		UnlockThreshold: 0.32,
		LockWindow:      300,
		UnlockWindow:    300,
		LockSmoothing:   100,
	}
}

func (p LoopParams) validate(component string) error {
	switch {
	case p.Bandwidth <= 0 || p.Bandwidth >= 0.5:
		return configErr(component, "bandwidth %g outside (0, 0.5)", p.Bandwidth)
	case p.Damping <= 0:
		return configErr(component, "damping %g must be positive", p.Damping)
	case p.LockThreshold <= 0 || p.UnlockThreshold < p.LockThreshold:
		return configErr(component, "lock thresholds must satisfy 0 < lock <= unlock")
	case p.LockWindow < 1 || p.UnlockWindow < 1:
		return configErr(component, "lock windows must be positive")
	case p.LockSmoothing < 1:
		return configErr(component, "lock smoothing %g below one sample", p.LockSmoothing)
	}
	return nil
}

// LoopGains returns the proportional and integral gains of a critically
// designed second-order loop with unit detector and oscillator gains.
func LoopGains(bandwidth, damping float64) (alpha, beta float64) {
	theta := bandwidth / (damping + 1/(4*damping))
	d := 1 + 2*damping*theta + theta*theta
	return 4 * damping * theta / d, 4 * theta * theta / d
}

// NewLoopFilter builds the proportional-integral loop filter
// F(z) = ((α+β) - α z^-1) / (1 - z^-1) as a single IIR section.
func NewLoopFilter(bandwidth, damping float64) *IIRFilter {
	alpha, beta := LoopGains(bandwidth, damping)
	return NewIIRFilter(Section{B0: alpha + beta, B1: -alpha, A1: -1})
}

// LockDetector smooths an error magnitude and applies windowed hysteresis.
type LockDetector struct {
	smooth *IIRFilter
	metric float64
	lock   *Hysteresis
	on     float64
	off    float64
}

func NewLockDetector(lockThreshold, unlockThreshold float64, lockWindow, unlockWindow int, smoothing float64) *LockDetector {
	d := &LockDetector{
		smooth: SinglePole(1 - math.Exp(-1/smoothing)),
		metric: math.Pi,
		lock:   NewHysteresis(lockWindow, unlockWindow),
		on:     lockThreshold,
		off:    unlockThreshold,
	}
	// Start at the worst case so lock has to be earned.
	d.smooth.Settle(complex(d.metric, 0))
	return d
}

func (d *LockDetector) Feed(errMag float64) bool {
	d.metric = d.smooth.FeedReal(errMag)
	return d.lock.Update(d.metric < d.on, d.metric > d.off)
}

func (d *LockDetector) Locked() bool    { return d.lock.Active() }
func (d *LockDetector) Metric() float64 { return d.metric }

// loop is the error detector -> loop filter -> oscillator core.
type loop struct {
	nco    *Oscillator
	filter *IIRFilter
	lock   *LockDetector
	f0     float64
}

func newLoop(p LoopParams) *loop {
	return &loop{
		nco:    NewOscillator(p.Frequency, 0),
		filter: NewLoopFilter(p.Bandwidth, p.Damping),
		lock: NewLockDetector(p.LockThreshold, p.UnlockThreshold,
			p.LockWindow, p.UnlockWindow, p.LockSmoothing),
		f0: p.Frequency,
	}
}

// mix derotates x by the current oscillator reference.
func (l *loop) mix(x complex128) complex128 {
	r := l.nco.Read()
	return x * complex(real(r), -imag(r))
}

// advance applies a detector output and steps the oscillator.
func (l *loop) advance(phaseErr, lockMetric float64) bool {
	v := l.filter.FeedReal(phaseErr)
	l.nco.SetFrequency(l.f0 + v)
	l.nco.Step()
	return l.lock.Feed(lockMetric)
}
