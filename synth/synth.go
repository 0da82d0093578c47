// Package synth generates deterministic baseband test signals.
package synth

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/studiofuga/sigutils/dsp"
)

func source(seed uint64) rand.Source { return rand.NewPCG(seed, seed*0x9e3779b97f4a7c15+1) }

// Tone is amp*exp(j(2π hz/fs n + phase)).
func Tone(n int, hz, fs, amp, phase float64) []complex128 {
	nco := dsp.NewOscillator(dsp.HzToRadians(hz, fs), phase)
	out := make([]complex128, n)
	for i := range out {
		out[i] = nco.Read() * complex(amp, 0)
		nco.Step()
	}
	return out
}

// Sum adds signals of equal length into a new slice.
func Sum(sigs ...[]complex128) []complex128 {
	if len(sigs) == 0 {
		return nil
	}
	out := make([]complex128, len(sigs[0]))
	for _, s := range sigs {
		for i := range out {
			out[i] += s[i]
		}
	}
	return out
}

// Rotate multiplies x in place by a carrier of w radians per sample.
func Rotate(x []complex128, w, phase float64) []complex128 {
	nco := dsp.NewOscillator(w, phase)
	for i := range x {
		x[i] *= nco.Read()
		nco.Step()
	}
	return x
}

// Noise is a complex white Gaussian noise source.
type Noise struct {
	norm distuv.Normal
}

// NewNoise returns noise with standard deviation sigma per component.
func NewNoise(sigma float64, seed uint64) *Noise {
	return &Noise{norm: distuv.Normal{Mu: 0, Sigma: sigma, Src: source(seed)}}
}

func (n *Noise) Sample() complex128 { return complex(n.norm.Rand(), n.norm.Rand()) }

// Add adds noise to x in place.
func (n *Noise) Add(x []complex128) []complex128 {
	if n.norm.Sigma == 0 {
		return x
	}
	for i := range x {
		x[i] += n.Sample()
	}
	return x
}

// SigmaForSNR is the per-component deviation giving snrDB over a signal of
// mean power p.
func SigmaForSNR(snrDB, p float64) float64 {
	return math.Sqrt(p / (2 * math.Pow(10, snrDB/10)))
}

// Power is the mean of |x|^2.
func Power(x []complex128) float64 {
	if len(x) == 0 {
		return 0
	}
	p := make([]float64, len(x))
	for i, v := range x {
		p[i] = real(v)*real(v) + imag(v)*imag(v)
	}
	return stat.Mean(p, nil)
}

// Magnitudes returns the mean and variance of |x|.
func Magnitudes(x []complex128) (mean, variance float64) {
	m := make([]float64, len(x))
	for i, v := range x {
		m[i] = cmplx.Abs(v)
	}
	return stat.MeanVariance(m, nil)
}

// Symbols draws n uniform symbol indices below order.
func Symbols(n, order int, seed uint64) []int {
	rng := rand.New(source(seed))
	syms := make([]int, n)
	for i := range syms {
		syms[i] = rng.IntN(order)
	}
	return syms
}

// PSK maps symbols to unit constellation points held for sps samples each.
func PSK(mod dsp.Modulation, syms []int, sps int) []complex128 {
	out := make([]complex128, 0, len(syms)*sps)
	for _, s := range syms {
		p := mod.Point(s)
		for range sps {
			out = append(out, p)
		}
	}
	return out
}

// Shaped renders BPSK symbols with raised-cosine transitions between
// neighbouring symbols. Symbol k is centered on sample k*sps + offset.
func Shaped(syms []int, sps, offset float64) []complex128 {
	level := func(k int) float64 {
		k = max(0, min(k, len(syms)-1))
		return real(dsp.BPSK.Point(syms[k]))
	}
	out := make([]complex128, int(float64(len(syms)-1)*sps))
	for i := range out {
		t := (float64(i) - offset) / sps
		k := int(math.Floor(t))
		v := t - float64(k)
		a, b := level(k), level(k+1)
		out[i] = complex(a+(b-a)*(1-math.Cos(math.Pi*v))/2, 0)
	}
	return out
}

// Step concatenates equal-frequency tones whose amplitude jumps at each
// segment boundary.
func Step(w float64, segments []int, amps []float64) []complex128 {
	var out []complex128
	nco := dsp.NewOscillator(w, 0)
	for i, n := range segments {
		for range n {
			out = append(out, nco.Read()*complex(amps[i], 0))
			nco.Step()
		}
	}
	return out
}
