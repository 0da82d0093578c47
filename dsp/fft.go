package dsp

// FFT is a fixed-length complex transform. Forward is unnormalized; Inverse
// is scaled by 1/Len so Inverse(Forward(x)) == x.
type FFT interface {
	Len() int
	Forward(dst, src []complex128) []complex128
	Inverse(dst, src []complex128) []complex128
}

// NewFFT returns an FFT of length n from the backend selected at build time.
func NewFFT(n int) FFT { return newFFT(n) }

// FFTShift moves DC to the middle of the spectrum.
func FFTShift(dst, data []complex128) []complex128 {
	n := len(data)
	if dst == nil {
		dst = make([]complex128, n)
	}
	half := n / 2
	copy(dst, data[half:])
	copy(dst[n-half:], data[:half])
	return dst
}

// inverseScale measures an inverse transform with a unit impulse so the
// backend's normalization convention does not leak out of the wrapper.
func inverseScale(n int, inverse func([]complex128) []complex128) complex128 {
	impulse := make([]complex128, n)
	impulse[0] = 1
	out := inverse(impulse)
	if real(out[0]) == 0 {
		return complex(1/float64(n), 0)
	}
	return complex(1/(float64(n)*real(out[0])), 0)
}
