package suite

import (
	"math"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/synth"
)

// Carrier used by the loop tests, in radians per sample.
const (
	carrierW     = 0.005
	carrierPhase = 0.7
)

func testPLL(e *Env) error {
	pll, err := dsp.NewPLL(e.Params.PLL)
	if err != nil {
		return err
	}
	const w = 0.02
	in := synth.Tone(e.Params.samples(5000), dsp.RadiansToHz(w, e.Params.SampleRate), e.Params.SampleRate, 1, 1)
	out := make([]complex128, len(in))
	perr := make([]float64, len(in))
	lockedAt := -1
	for i, x := range in {
		var locked bool
		out[i], locked = pll.Feed(x)
		perr[i] = pll.PhaseError()
		if locked && lockedAt < 0 {
			lockedAt = i
		}
	}
	e.Dump("input", in)
	e.Dump("output", out)
	e.DumpReal("phase_error", perr)

	switch {
	case lockedAt < 0 || lockedAt >= 2000:
		return failf("locked at sample %d", lockedAt)
	case !pll.Locked():
		return failf("lost lock, metric %g", pll.LockMetric())
	case math.Abs(pll.Frequency()-w) > 1e-4:
		return failf("frequency %g, want %g", pll.Frequency(), w)
	}
	e.Log.Debug("locked", "sample", lockedAt, "freq", pll.Frequency())
	return nil
}

// costasRun is the outcome of feeding a Costas loop.
type costasRun struct {
	out     []complex128
	unlocks int
}

func runCostas(e *Env, c *dsp.Costas, in []complex128) costasRun {
	r := costasRun{out: make([]complex128, len(in))}
	freq := make([]float64, len(in))
	wasLocked := false
	for i, x := range in {
		var locked bool
		r.out[i], locked = c.Feed(x)
		freq[i] = c.Frequency()
		if wasLocked && !locked {
			r.unlocks++
		}
		wasLocked = locked
	}
	e.Dump("input", in)
	e.Dump("output", r.out)
	e.DumpReal("frequency", freq)
	return r
}

// symbolErrors counts decision errors after skip under the best constellation
// rotation.
func symbolErrors(mod dsp.Modulation, syms []int, got []complex128, skip int) int {
	best := len(syms)
	for rot := range mod.Order() {
		n := 0
		for i := skip; i < len(syms); i++ {
			if (mod.Decide(got[i])+rot)%mod.Order() != syms[i] {
				n++
			}
		}
		best = min(best, n)
	}
	return best
}

func testCostasLock(e *Env) error {
	c, err := dsp.NewCostas(dsp.BPSK, e.Params.Costas)
	if err != nil {
		return err
	}
	// A bare carrier looks like a constant BPSK symbol.
	fs := e.Params.SampleRate
	in := synth.Tone(e.Params.samples(20000), dsp.RadiansToHz(carrierW, fs), fs, 1, carrierPhase)
	r := runCostas(e, c, in)
	switch {
	case !c.Locked():
		return failf("not locked, metric %g", c.LockMetric())
	case r.unlocks > 0:
		return failf("lost lock %d times", r.unlocks)
	case math.Abs(c.Frequency()-carrierW) > 5e-4:
		return failf("frequency %g, want %g", c.Frequency(), carrierW)
	}
	return nil
}

func costasPSK(e *Env, mod dsp.Modulation, sigma float64, maxErrs int, freqTol float64) error {
	c, err := dsp.NewCostas(mod, e.Params.Costas)
	if err != nil {
		return err
	}
	const skip = 3000
	syms := synth.Symbols(e.Params.samples(20000), mod.Order(), 5)
	in := synth.NewNoise(sigma, 9).Add(synth.Rotate(synth.PSK(mod, syms, 1), carrierW, carrierPhase))
	r := runCostas(e, c, in)
	errs := symbolErrors(mod, syms, r.out, skip)
	switch {
	case !c.Locked():
		return failf("not locked, metric %g", c.LockMetric())
	case sigma == 0 && r.unlocks > 0:
		return failf("lost lock %d times", r.unlocks)
	case math.Abs(c.Frequency()-carrierW) > freqTol:
		return failf("frequency %g, want %g", c.Frequency(), carrierW)
	case errs > maxErrs:
		return failf("%d symbol errors, at most %d allowed", errs, maxErrs)
	}
	e.Log.Debug("decoded", "symbols", len(syms)-skip, "errors", errs)
	return nil
}

func testCostasBPSK(e *Env) error { return costasPSK(e, dsp.BPSK, 0, 0, 5e-4) }
func testCostasQPSK(e *Env) error { return costasPSK(e, dsp.QPSK, 0, 0, 5e-4) }

// Es/N0 = 12 dB
func testCostasQPSKNoisy(e *Env) error {
	return costasPSK(e, dsp.QPSK, math.Sqrt(0.5*math.Pow(10, -1.2)), 17, 1e-2)
}

func clockRecovery(e *Env, sigma, meanTol, peakTol float64) error {
	p := e.Params.Clock
	c, err := dsp.NewClockRecovery(p)
	if err != nil {
		return err
	}
	const offset, skip = 2.5, 1000
	sps := p.SamplesPerSymbol
	syms := synth.Symbols(max(4000, e.Params.BufferSize/int(sps)), 2, 21)
	in := synth.NewNoise(sigma, 13).Add(synth.Shaped(syms, sps, offset))

	var strobes []complex128
	var offs []float64
	sum, peak, wrong := 0.0, 0.0, 0
	for i, x := range in {
		y, ok := c.Feed(x)
		if !ok {
			continue
		}
		strobes = append(strobes, y)
		if len(strobes) <= skip {
			continue
		}
		pos := float64(i-1) + c.LastStrobe()
		k := math.Round((pos - offset) / sps)
		d := pos - (k*sps + offset)
		offs = append(offs, d)
		sum += math.Abs(d)
		peak = math.Max(peak, math.Abs(d))
		if k >= 0 && int(k) < len(syms) && dsp.BPSK.Decide(y) != syms[int(k)] {
			wrong++
		}
	}
	e.Dump("input", in)
	e.Dump("symbols", strobes)
	e.DumpReal("offsets", offs)

	if len(offs) == 0 {
		return failf("no symbols after the first %d", skip)
	}
	mean := sum / float64(len(offs))
	switch {
	case mean > meanTol:
		return failf("mean strobe offset %.3f samples", mean)
	case peak > peakTol:
		return failf("peak strobe offset %.3f samples", peak)
	case c.State() != dsp.ClockTracking:
		return failf("clock still %v", c.State())
	case wrong > 0:
		return failf("%d wrong decisions", wrong)
	}
	e.Log.Debug("aligned", "mean", mean, "peak", peak, "sps", c.SamplesPerSymbol())
	return nil
}

func testClockRecovery(e *Env) error      { return clockRecovery(e, 0, 0.15, 0.5) }
func testClockRecoveryNoisy(e *Env) error { return clockRecovery(e, 0.1, 0.3, 1.5) }
