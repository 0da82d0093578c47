package synth

import (
	segdsp "github.com/racerxdl/segdsp/dsp"

	"github.com/studiofuga/sigutils/dsp"
)

// RRC pulse shapes symbols with a root raised cosine of rolloff alpha spanning
// taps samples. Symbol k peaks (taps-1)/2 samples after k*sps.
func RRC(mod dsp.Modulation, syms []int, sps int, alpha float64, taps int) []complex128 {
	in := make([]complex64, len(syms)*sps)
	for k, s := range syms {
		in[k*sps] = complex64(mod.Point(s)) * complex(float32(sps), 0)
	}
	return matched(in, sps, alpha, taps)
}

// MatchRRC filters x with the root raised cosine RRC shapes with, adding
// another (taps-1)/2 samples of delay.
func MatchRRC(x []complex128, sps int, alpha float64, taps int) []complex128 {
	in := make([]complex64, len(x))
	for i, v := range x {
		in[i] = complex64(v)
	}
	return matched(in, sps, alpha, taps)
}

func matched(in []complex64, sps int, alpha float64, taps int) []complex128 {
	fir := segdsp.MakeFirFilter(segdsp.MakeRRC(1, float64(sps), 1, alpha, taps))
	y := fir.Work(in)
	out := make([]complex128, len(y))
	for i, v := range y {
		out[i] = complex128(v)
	}
	return out
}
