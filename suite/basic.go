package suite

import (
	"math"
	"math/cmplx"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/synth"
)

func testNCQO(e *Env) error {
	n := e.Params.samples(16)

	// A quarter-rate oscillator cycles through 1, j, -1, -j.
	quarter := []complex128{1, 1i, -1, -1i}
	nco := dsp.NewOscillator(math.Pi/2, 0)
	out := make([]complex128, n)
	for i := range out {
		out[i] = nco.Read()
		nco.Step()
		if d := cmplx.Abs(out[i] - quarter[i%4]); d > 1e-9 {
			return failf("quarter rate sample %d: got %v, want %v", i, out[i], quarter[i%4])
		}
	}
	e.Dump("quarter", out)

	w := dsp.HzToRadians(e.Params.SampleRate/50, e.Params.SampleRate)
	nco = dsp.NewOscillator(w, 0.3)
	phase := make([]float64, n)
	for i := range out {
		out[i] = nco.Step()
		phase[i] = nco.Phase()
		if d := math.Abs(cmplx.Abs(out[i]) - 1); d > 1e-12 {
			return failf("sample %d magnitude off by %g", i, d)
		}
		want := 0.3 + float64(i+1)*w
		if d := math.Abs(math.Remainder(phase[i]-want, 2*math.Pi)); d > 1e-6 {
			return failf("sample %d phase %g, want %g", i, phase[i], math.Mod(want, 2*math.Pi))
		}
	}
	e.Dump("tone", out)
	e.DumpReal("phase", phase)

	// Retuning keeps the phase continuous.
	before := nco.Phase()
	nco.SetFrequency(2*math.Pi + 1)
	if got := nco.Frequency(); math.Abs(got-1) > 1e-12 {
		return failf("frequency 2π+1 wrapped to %g", got)
	}
	nco.Step()
	if d := math.Abs(math.Remainder(nco.Phase()-before-1, 2*math.Pi)); d > 1e-9 {
		return failf("retune jumped phase by %g", d)
	}
	return nil
}

func testButterworthLPF(e *Env) error {
	fs := e.Params.SampleRate
	fc := fs / 100
	f, err := dsp.DesignButterworth(4, fc, fs)
	if err != nil {
		return err
	}
	if g := cmplx.Abs(f.Response(dsp.HzToRadians(fc, fs))); math.Abs(20*math.Log10(g)+3.01) > 0.01 {
		return failf("gain at cutoff %.3f dB", 20*math.Log10(g))
	}

	n := e.Params.samples(6000)
	measure := func(name string, hz float64) float64 {
		f.Reset()
		out := f.Block(nil, synth.Tone(n, hz, fs, 1, 0))
		e.Dump(name, out)
		peak := 0.0
		for _, v := range out[n*2/3:] {
			peak = math.Max(peak, cmplx.Abs(v))
		}
		return peak
	}
	if pass := measure("passband", fc/10); math.Abs(pass-1) > 0.02 {
		return failf("passband gain %g", pass)
	}
	stop := 20 * math.Log10(measure("stopband", 10*fc))
	if want := 20 * math.Log10(dsp.ButterworthGain(4, fc, fs, 10*fc)); stop > -75 || math.Abs(stop-want) > 1 {
		return failf("stopband gain %.2f dB, want %.2f dB", stop, want)
	}
	e.Log.Debug("rolloff", "stopband_db", stop)

	noise := synth.NewNoise(1, 1).Add(make([]complex128, n))
	e.Dump("noise", noise)
	e.Dump("filtered", f.Block(nil, noise))
	return nil
}

// settleIndex returns the first index after which every output magnitude
// stays within tol of target, or -1.
func settleIndex(out []complex128, target, tol float64) int {
	idx := -1
	for i, v := range out {
		if math.Abs(cmplx.Abs(v)-target) > tol*target {
			idx = -1
		} else if idx < 0 {
			idx = i
		}
	}
	return idx
}

func testAGCTransient(e *Env) error {
	agc, err := dsp.NewAGC(e.Params.AGC)
	if err != nil {
		return err
	}
	fs := e.Params.SampleRate
	in := synth.Tone(e.Params.samples(2000), fs/125, fs, 0.1, 0)
	out := agc.Block(nil, in)
	e.Dump("input", in)
	e.Dump("output", out)

	target := e.Params.AGC.Target
	idx := settleIndex(out, target, 0.05)
	switch {
	case idx < 0 || idx >= 200:
		return failf("output settled at sample %d", idx)
	case agc.State() != dsp.AGCSteady:
		return failf("agc still %v", agc.State())
	}
	e.Log.Debug("settled", "sample", idx, "gain", agc.Gain())
	return nil
}

// agcStep feeds a tone whose amplitude jumps from one level to another and
// checks the gain follows inside the allowed number of samples.
func agcStep(e *Env, from, to float64, dir dsp.Direction) error {
	agc, err := dsp.NewAGC(e.Params.AGC)
	if err != nil {
		return err
	}
	fs := e.Params.SampleRate
	const pre, post = 3000, 4000
	in := synth.Step(dsp.HzToRadians(fs/125, fs), []int{pre, post}, []float64{from, to})
	out := make([]complex128, len(in))
	sawDir := false
	for i, x := range in {
		out[i] = agc.Feed(x)
		if i == pre-1 && agc.State() != dsp.AGCSteady {
			return failf("not steady before the step")
		}
		sawDir = sawDir || (i >= pre && agc.Direction() == dir)
	}
	e.Dump("input", in)
	e.Dump("output", out)

	target := e.Params.AGC.Target
	idx := settleIndex(out[pre:], target, 0.05)
	switch {
	case !sawDir:
		return failf("gain never moved %v", dir)
	case idx < 0 || idx >= 3000:
		return failf("output settled %d samples after the step", idx)
	case math.Abs(agc.Gain()*to-target) > 0.05*target:
		return failf("final gain %g for amplitude %g", agc.Gain(), to)
	}
	e.Log.Debug("settled", "after", idx, "gain", agc.Gain())
	return nil
}

func testAGCSteadyRising(e *Env) error { return agcStep(e, 0.1, 1, dsp.Falling) }

func testAGCSteadyFalling(e *Env) error { return agcStep(e, 1, 0.1, dsp.Rising) }
