package dsp

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

func tone(n int, w, phase, amp float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = cmplx.Rect(amp, w*float64(i)+phase)
	}
	return out
}

func addNoise(x []complex128, sigma float64, seed uint64) []complex128 {
	norm := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = v + complex(norm.Rand(), norm.Rand())
	}
	return out
}

func randomSymbols(n, order int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, 7))
	syms := make([]int, n)
	for i := range syms {
		syms[i] = rng.IntN(order)
	}
	return syms
}

// angleDiff is the signed distance a-b folded into [-π, π].
func angleDiff(a, b float64) float64 {
	return math.Remainder(a-b, twoPi)
}
