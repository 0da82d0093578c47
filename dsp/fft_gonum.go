//go:build !fftw

package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

type gonumFFT struct {
	plan  *fourier.CmplxFFT
	scale complex128
}

func newFFT(n int) FFT {
	plan := fourier.NewCmplxFFT(n)
	f := &gonumFFT{plan: plan}
	f.scale = inverseScale(n, func(c []complex128) []complex128 { return plan.Sequence(nil, c) })
	return f
}

func (f *gonumFFT) Len() int { return f.plan.Len() }

func (f *gonumFFT) Forward(dst, src []complex128) []complex128 {
	return f.plan.Coefficients(dst, src)
}

func (f *gonumFFT) Inverse(dst, src []complex128) []complex128 {
	dst = f.plan.Sequence(dst, src)
	for i := range dst {
		dst[i] *= f.scale
	}
	return dst
}
