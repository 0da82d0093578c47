package dsp

import (
	"math"
)

type ClockState int

const (
	ClockAcquiring ClockState = iota
	ClockTracking
)

func (s ClockState) String() string {
	if s == ClockTracking {
		return "tracking"
	}
	return "acquiring"
}

// ClockParams configures Gardner symbol timing recovery. Alphas correct the
// timing phase and betas the symbol rate, both per symbol.
type ClockParams struct {
	SamplesPerSymbol float64 `yaml:"samples_per_symbol"`

	AcquireAlpha float64 `yaml:"acquire_alpha"`
	AcquireBeta  float64 `yaml:"acquire_beta"`
	TrackAlpha   float64 `yaml:"track_alpha"`
	TrackBeta    float64 `yaml:"track_beta"`

	// DriftTolerance bounds the relative symbol rate correction.
	DriftTolerance float64 `yaml:"drift_tolerance"`

	VarianceThreshold float64 `yaml:"variance_threshold"`
	VarianceSmoothing float64 `yaml:"variance_smoothing"`
	TrackWindow       int     `yaml:"track_window"`

	// Phase is the initial timing phase in symbols.
	Phase float64 `yaml:"phase"`
}

func DefaultClockParams() ClockParams {
	return ClockParams{
		SamplesPerSymbol:  8,
		AcquireAlpha:      0.05,
		AcquireBeta:       1e-3,
		TrackAlpha:        0.01,
		TrackBeta:         1e-4,
		DriftTolerance:    0.05,
		VarianceThreshold: 0.1,
		VarianceSmoothing: 32,
		TrackWindow:       64,
	}
}

func (p ClockParams) validate() error {
	switch {
	case p.SamplesPerSymbol < 2:
		return configErr("clock", "samples per symbol %g below 2", p.SamplesPerSymbol)
	case p.AcquireAlpha <= 0 || p.TrackAlpha <= 0:
		return configErr("clock", "phase gains must be positive")
	case p.AcquireBeta <= 0 || p.TrackBeta <= 0:
		return configErr("clock", "rate gains must be positive")
	case p.DriftTolerance <= 0 || p.DriftTolerance >= 0.5:
		return configErr("clock", "drift tolerance %g outside (0, 0.5)", p.DriftTolerance)
	case p.VarianceThreshold <= 0:
		return configErr("clock", "variance threshold %g must be positive", p.VarianceThreshold)
	case p.VarianceSmoothing < 1:
		return configErr("clock", "variance smoothing %g below one symbol", p.VarianceSmoothing)
	case p.TrackWindow < 1:
		return configErr("clock", "track window %d must be positive", p.TrackWindow)
	case p.Phase < 0 || p.Phase >= 1:
		return configErr("clock", "initial phase %g outside [0, 1)", p.Phase)
	}
	return nil
}

type ClockQuality struct {
	// Variance is the smoothed squared timing error.
	Variance   float64
	RateOffset float64
	// Degraded is set while the rate correction sits on its bound.
	Degraded bool
}

// ClockRecovery resamples a stream at one strobe per symbol using linear
// interpolation between input samples.
type ClockRecovery struct {
	p ClockParams

	phase float64
	rate  float64
	drift float64

	prev   complex128
	primed bool
	mid    complex128
	last   complex128
	strobe float64

	// power is the smoothed strobe power the timing error is scaled by.
	power *IIRFilter
	pow   float64

	variance *IIRFilter
	varNow   float64
	quiet    *Hysteresis
	state    ClockState
	degraded bool
	symbols  int
}

func NewClockRecovery(p ClockParams) (*ClockRecovery, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	c := &ClockRecovery{
		p:        p,
		phase:    p.Phase,
		rate:     1 / p.SamplesPerSymbol,
		power:    SinglePole(1 - math.Exp(-1/p.VarianceSmoothing)),
		variance: SinglePole(1 - math.Exp(-1/p.VarianceSmoothing)),
		quiet:    NewHysteresis(p.TrackWindow, 1),
		varNow:   1,
		strobe:   math.NaN(),
	}
	c.variance.Settle(complex(c.varNow, 0))
	return c, nil
}

// Feed consumes one input sample and returns a symbol when a symbol strobe
// falls between the previous sample and x.
func (c *ClockRecovery) Feed(x complex128) (complex128, bool) {
	if !c.primed {
		c.prev, c.primed = x, true
		c.pow = sqmag(x)
		c.power.Settle(complex(c.pow, 0))
		return 0, false
	}
	prev := c.prev
	c.prev = x

	step := c.rate * (1 + c.drift)
	next := c.phase + step
	if c.phase < 0.5 && next >= 0.5 {
		c.mid = lerp(prev, x, (0.5-c.phase)/step)
	}
	if next < 1 {
		c.phase = next
		return 0, false
	}

	mu := (1 - c.phase) / step
	y := lerp(prev, x, mu)
	c.strobe = mu
	d := y - c.last
	e := real(d)*real(c.mid) + imag(d)*imag(c.mid)
	c.last = y
	c.phase = next - 1
	c.pow = c.power.FeedReal(sqmag(y))
	c.update(max(-maxClockError, min(maxClockError, e/(c.pow+1e-12))))
	return y, true
}

// maxClockError bounds a single normalized timing error.
const maxClockError = 2

func sqmag(x complex128) float64 { return real(x)*real(x) + imag(x)*imag(x) }

func lerp(a, b complex128, mu float64) complex128 {
	return a + complex(mu, 0)*(b-a)
}

func (c *ClockRecovery) update(e float64) {
	c.symbols++
	alpha, beta := c.p.AcquireAlpha, c.p.AcquireBeta
	if c.state == ClockTracking {
		alpha, beta = c.p.TrackAlpha, c.p.TrackBeta
	}
	// The first symbol has no predecessor to difference against.
	if c.symbols > 1 {
		// A strobe cannot move behind the sample it was taken at.
		c.phase = math.Max(0, math.Min(c.phase+alpha*e, math.Nextafter(1, 0)))
		c.drift += beta * e
		tol := c.p.DriftTolerance
		c.degraded = c.drift > tol || c.drift < -tol
		c.drift = math.Max(-tol, math.Min(tol, c.drift))
		c.varNow = c.variance.FeedReal(e * e)
	}
	if c.state == ClockAcquiring && c.quiet.Update(c.varNow < c.p.VarianceThreshold, false) {
		c.state = ClockTracking
	}
}

func (c *ClockRecovery) Block(dst, src []complex128) []complex128 {
	for _, x := range src {
		if y, ok := c.Feed(x); ok {
			dst = append(dst, y)
		}
	}
	return dst
}

func (c *ClockRecovery) State() ClockState { return c.state }

func (c *ClockRecovery) Quality() ClockQuality {
	return ClockQuality{Variance: c.varNow, RateOffset: c.drift, Degraded: c.degraded}
}

// LastStrobe is the position of the last symbol strobe as a fraction of the
// interval between the two most recent input samples it fell between.
func (c *ClockRecovery) LastStrobe() float64 { return c.strobe }

// Phase is the timing phase in symbols, always in [0, 1).
func (c *ClockRecovery) Phase() float64 { return c.phase }

// SamplesPerSymbol is the current symbol period estimate.
func (c *ClockRecovery) SamplesPerSymbol() float64 { return 1 / (c.rate * (1 + c.drift)) }
