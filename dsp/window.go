package dsp

import "math"

type WindowKind int

const (
	Rectangular WindowKind = iota
	Hamming
	Hann
	BlackmanHarris
)

func (k WindowKind) String() string {
	switch k {
	case Rectangular:
		return "rectangular"
	case Hamming:
		return "hamming"
	case Hann:
		return "hann"
	case BlackmanHarris:
		return "blackman-harris"
	default:
		return "unknown"
	}
}

func (k WindowKind) generate(n int) []float64 {
	win := make([]float64, n)
	if n == 1 {
		win[0] = 1
		return win
	}
	den := float64(n - 1)
	for i := range win {
		x := 2 * math.Pi * float64(i) / den
		switch k {
		case Hamming:
			win[i] = 0.54 - 0.46*math.Cos(x)
		case Hann:
			win[i] = 0.5 - 0.5*math.Cos(x)
		case BlackmanHarris:
			win[i] = 0.35875 - 0.48829*math.Cos(x) + 0.14128*math.Cos(2*x) - 0.01168*math.Cos(3*x)
		default:
			win[i] = 1
		}
	}
	return win
}

// Window returns a window of length n. Slices coming from the precomputed
// tables are shared and must not be modified.
func Window(kind WindowKind, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if tables := windowTables.Load(); tables != nil {
		if w, ok := (*tables)[windowKey{kind, n}]; ok {
			return w
		}
	}
	return kind.generate(n)
}

// WindowPower is the mean of the squared window coefficients.
func WindowPower(win []float64) float64 {
	if len(win) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range win {
		sum += v * v
	}
	return sum / float64(len(win))
}

// ApplyWindow multiplies samples by the window into dst.
// The window length must match the input length.
func ApplyWindow(dst, samples []complex128, window []float64) []complex128 {
	if len(samples) != len(window) {
		return []complex128{}
	}
	if dst == nil {
		dst = make([]complex128, len(samples))
	}
	for i, v := range samples {
		dst[i] = v * complex(window[i], 0)
	}
	return dst
}
