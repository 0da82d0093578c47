//go:build fftw

package dsp

import (
	"github.com/runningwild/go-fftw/fftw32"
)

// fftwFFT runs single precision FFTW plans; build with -tags fftw.
type fftwFFT struct {
	n     int
	arr   *fftw32.Array
	scale complex128
}

func newFFT(n int) FFT {
	f := &fftwFFT{n: n, arr: fftw32.NewArray(n)}
	f.scale = inverseScale(n, func(c []complex128) []complex128 {
		return f.run(nil, c, fftw32.IFFT)
	})
	return f
}

func (f *fftwFFT) Len() int { return f.n }

func (f *fftwFFT) run(dst, src []complex128, xfm func(*fftw32.Array) *fftw32.Array) []complex128 {
	if dst == nil {
		dst = make([]complex128, f.n)
	}
	for i, v := range src {
		f.arr.Elems[i] = complex64(v)
	}
	for i, v := range xfm(f.arr).Elems {
		dst[i] = complex128(v)
	}
	return dst
}

func (f *fftwFFT) Forward(dst, src []complex128) []complex128 {
	return f.run(dst, src, fftw32.FFT)
}

func (f *fftwFFT) Inverse(dst, src []complex128) []complex128 {
	dst = f.run(dst, src, fftw32.IFFT)
	for i := range dst {
		dst[i] *= f.scale
	}
	return dst
}
