package dsp

import (
	"math"
	"math/cmplx"
)

type AGCState int

const (
	AGCTransient AGCState = iota
	AGCSteady
)

func (s AGCState) String() string {
	if s == AGCSteady {
		return "steady"
	}
	return "transient"
}

// Direction of the most recent gain adjustment.
type Direction int

const (
	Hold Direction = iota
	Rising
	Falling
)

func (d Direction) String() string {
	switch d {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "hold"
	}
}

// AGCParams configures an AGC. Time constants are in samples and steps are
// natural-log gain changes per sample.
type AGCParams struct {
	Target      float64 `yaml:"target"`
	InitialGain float64 `yaml:"initial_gain"`
	MinGain     float64 `yaml:"min_gain"`
	MaxGain     float64 `yaml:"max_gain"`

	// AttackTau is the fast envelope time constant, DecayTau the slow one.
	AttackTau float64 `yaml:"attack_tau"`
	DecayTau  float64 `yaml:"decay_tau"`

	TransientStep float64 `yaml:"transient_step"`
	AttackStep    float64 `yaml:"attack_step"`
	DecayStep     float64 `yaml:"decay_step"`

	SettleThreshold    float64 `yaml:"settle_threshold"`
	SettleCount        int     `yaml:"settle_count"`
	ReacquireThreshold float64 `yaml:"reacquire_threshold"`
}

func DefaultAGCParams() AGCParams {
	return AGCParams{
		Target:             1,
		InitialGain:        1,
		MinGain:            1e-4,
		MaxGain:            1e4,
		AttackTau:          10,
		DecayTau:           200,
		TransientStep:      0.1,
		AttackStep:         0.05,
		DecayStep:          0.01,
		SettleThreshold:    0.05,
		SettleCount:        100,
		ReacquireThreshold: 0.5,
	}
}

func (p AGCParams) validate() error {
	switch {
	case p.Target <= 0:
		return configErr("agc", "target %g must be positive", p.Target)
	case p.MinGain <= 0 || p.MinGain > p.MaxGain:
		return configErr("agc", "gain range [%g, %g] invalid", p.MinGain, p.MaxGain)
	case p.InitialGain < p.MinGain || p.InitialGain > p.MaxGain:
		return configErr("agc", "initial gain %g outside [%g, %g]", p.InitialGain, p.MinGain, p.MaxGain)
	case p.AttackTau < 1 || p.DecayTau < 1:
		return configErr("agc", "time constants must be at least one sample")
	case p.TransientStep <= 0 || p.AttackStep <= 0 || p.DecayStep <= 0:
		return configErr("agc", "gain steps must be positive")
	case p.SettleThreshold <= 0 || p.ReacquireThreshold < p.SettleThreshold:
		return configErr("agc", "thresholds must satisfy 0 < settle <= reacquire")
	case p.SettleCount < 1:
		return configErr("agc", "settle count %d must be positive", p.SettleCount)
	}
	return nil
}

type AGC struct {
	p    AGCParams
	gain float64
	fast *IIRFilter
	slow *IIRFilter

	primed  bool
	state   AGCState
	dir     Direction
	settled int
}

func NewAGC(p AGCParams) (*AGC, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &AGC{
		p:    p,
		gain: p.InitialGain,
		fast: SinglePole(1 - math.Exp(-1/p.AttackTau)),
		slow: SinglePole(1 - math.Exp(-1/p.DecayTau)),
	}, nil
}

func (a *AGC) Gain() float64        { return a.gain }
func (a *AGC) State() AGCState      { return a.state }
func (a *AGC) Direction() Direction { return a.dir }

func (a *AGC) Feed(x complex128) complex128 {
	mag := cmplx.Abs(x)
	if mag == 0 {
		return x * complex(a.gain, 0)
	}
	if !a.primed {
		a.fast.Settle(complex(mag, 0))
		a.slow.Settle(complex(mag, 0))
		a.primed = true
	}
	env := math.Max(a.fast.FeedReal(mag), a.slow.FeedReal(mag))
	if env > 0 {
		a.adjust(a.p.Target / env)
		a.track(math.Abs(a.gain*env-a.p.Target) / a.p.Target)
	}
	return x * complex(a.gain, 0)
}

func (a *AGC) adjust(desired float64) {
	step := math.Log(desired / a.gain)
	lo, hi := -a.p.TransientStep, a.p.TransientStep
	if a.state == AGCSteady {
		lo, hi = -a.p.AttackStep, a.p.DecayStep
	}
	step = math.Max(lo, math.Min(hi, step))
	switch {
	case step > 0:
		a.dir = Rising
	case step < 0:
		a.dir = Falling
	default:
		a.dir = Hold
	}
	a.gain = math.Max(a.p.MinGain, math.Min(a.p.MaxGain, a.gain*math.Exp(step)))
}

func (a *AGC) track(relErr float64) {
	switch a.state {
	case AGCTransient:
		if relErr < a.p.SettleThreshold {
			if a.settled++; a.settled >= a.p.SettleCount {
				a.state, a.settled = AGCSteady, 0
			}
		} else {
			a.settled = 0
		}
	case AGCSteady:
		if relErr > a.p.ReacquireThreshold {
			a.state = AGCTransient
		}
	}
}

func (a *AGC) Block(dst, src []complex128) []complex128 {
	if dst == nil {
		dst = make([]complex128, len(src))
	}
	for i, x := range src {
		dst[i] = a.Feed(x)
	}
	return dst
}
