package dsp

import (
	"context"
	"slices"

	segdsp "github.com/racerxdl/segdsp/dsp"
)

// FIRLowpass is a windowed-sinc decimating lowpass on complex64 batches.
type FIRLowpass struct {
	fir  *segdsp.FirFilter
	dec  int
	rest []complex64
}

func NewFIRLowpass(cutoffHz, transitionHz float64, sampHz, decRate int) (*FIRLowpass, error) {
	fs := float64(sampHz)
	switch {
	case decRate <= 0:
		return nil, configErr("fir", "bad decimation %d", decRate)
	case cutoffHz <= 0 || cutoffHz >= fs/2:
		return nil, configErr("fir", "cutoff %g outside (0, %g)", cutoffHz, fs/2)
	case transitionHz <= 0 || transitionHz >= fs/2:
		return nil, configErr("fir", "transition width %g outside (0, %g)", transitionHz, fs/2)
	}
	taps := segdsp.MakeLowPass(1, fs, cutoffHz, transitionHz)
	return &FIRLowpass{fir: segdsp.MakeDecimationFirFilter(decRate, taps), dec: decRate}, nil
}

// Work filters a batch and returns one sample per decRate inputs. Inputs
// past the last whole decimation period wait for the next batch.
func (f *FIRLowpass) Work(samps []complex64) []complex64 {
	f.rest = append(f.rest, samps...)
	n := len(f.rest) - len(f.rest)%f.dec
	if n == 0 {
		return nil
	}
	batch := f.rest[:n]
	f.rest = slices.Clone(f.rest[n:])
	return f.fir.Work(batch)
}

// FIRLowpassCtx runs a FIRLowpass over every batch from sigc.
func FIRLowpassCtx(
	ctx context.Context,
	cutoffHz, transitionHz float64,
	sampHz int,
	decRate int,
	sigc <-chan []complex64) (<-chan []complex64, error) {
	f, err := NewFIRLowpass(cutoffHz, transitionHz, sampHz, decRate)
	if err != nil {
		return nil, err
	}
	outc := make(chan []complex64, 1)
	go func() {
		defer close(outc)
		for samps := range sigc {
			out := f.Work(samps)
			if len(out) == 0 {
				continue
			}
			select {
			case outc <- out:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc, nil
}
