package dsp

import (
	"context"
	"math"

	segdsp "github.com/racerxdl/segdsp/dsp"
)

// Stage transforms one batch of samples. Stages keep their state between
// batches.
type Stage func([]complex128) []complex128

// StageCtx runs stage over every batch from sigc in its own goroutine.
func StageCtx(ctx context.Context, stage Stage, sigc <-chan []complex64) <-chan []complex64 {
	outc := make(chan []complex64, 1)
	go func() {
		defer close(outc)
		var buf []complex128
		for samp := range sigc {
			buf = widen(buf[:0], samp)
			out := stage(buf)
			if len(out) == 0 {
				continue
			}
			select {
			case outc <- narrow(out):
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}

func widen(dst []complex128, src []complex64) []complex128 {
	for _, v := range src {
		dst = append(dst, complex128(v))
	}
	return dst
}

func narrow(src []complex128) []complex64 {
	out := make([]complex64, len(src))
	for i, v := range src {
		out[i] = complex64(v)
	}
	return out
}

func MixDown(mixHz float64, sampHz int, sigc <-chan []complex64) <-chan []complex64 {
	return MixDownCtx(context.TODO(), mixHz, sampHz, sigc)
}

func MixDownCtx(ctx context.Context, mixHz float64, sampHz int, sigc <-chan []complex64) <-chan []complex64 {
	nco := NewOscillator(HzToRadians(mixHz, float64(sampHz)), 0)
	return StageCtx(ctx, func(s []complex128) []complex128 { return nco.MixDown(s, s) }, sigc)
}

func Lowpass(cutoffHz float64, sampHz int, decRate int, sigc <-chan []complex64) (<-chan []complex64, error) {
	return LowpassCtx(context.TODO(), cutoffHz, sampHz, decRate, sigc)
}

// LowpassCtx filters with a 6th order Butterworth and keeps every decRate-th
// output sample.
func LowpassCtx(
	ctx context.Context,
	cutoffHz float64,
	sampHz int,
	decRate int,
	sigc <-chan []complex64) (<-chan []complex64, error) {
	if decRate <= 0 {
		return nil, configErr("lowpass", "bad decimation %d", decRate)
	}
	f, err := DesignButterworth(6, cutoffHz, float64(sampHz))
	if err != nil {
		return nil, err
	}
	k := 0
	stage := func(s []complex128) []complex128 {
		out := s[:0]
		for _, x := range s {
			y := f.Feed(x)
			if k++; k == decRate {
				k = 0
				out = append(out, y)
			}
		}
		return out
	}
	return StageCtx(ctx, stage, sigc), nil
}

func DCBlockerCtx(ctx context.Context, sigc <-chan []complex64) <-chan []complex64 {
	f := DCBlocker(0.999)
	return StageCtx(ctx, func(s []complex128) []complex128 { return f.Block(s, s) }, sigc)
}

// DemodFM is a quadrature discriminator scaled so a deviation of h radians
// per sample maps to 1.
func DemodFM(h float32, sigc <-chan []complex64) <-chan []float32 {
	return DemodFMCtx(context.TODO(), h, sigc)
}

func DemodFMCtx(ctx context.Context, h float32, sigc <-chan []complex64) <-chan []float32 {
	outc := make(chan []float32, 1)
	scale := 1 / float64(h)
	if h == 0 {
		scale = 1 / math.Pi
	}
	go func() {
		defer close(outc)
		hist := []complex64{1}
		for samps := range sigc {
			hist = append(hist[:1], samps...)
			prod := segdsp.MultiplyConjugate(hist[1:], hist, len(samps))
			outsamp := make([]float32, len(samps))
			for i := range outsamp {
				v := prod[i]
				outsamp[i] = float32(math.Atan2(float64(imag(v)), float64(real(v))) * scale)
			}
			if len(samps) > 0 {
				hist[0] = samps[len(samps)-1]
			}
			select {
			case outc <- outsamp:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}
