package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func db(x float64) float64 { return 20 * math.Log10(x) }

func TestButterworthRolloff(t *testing.T) {
	const fs, fc = 8000.0, 80.0
	f, err := DesignButterworth(4, fc, fs)
	require.NoError(t, err)
	require.Equal(t, 4, f.Order())
	require.Len(t, f.Sections(), 2)

	for _, hz := range []float64{0, fc / 10, fc, 2 * fc, 10 * fc, 1000} {
		got := cmplx.Abs(f.Response(HzToRadians(hz, fs)))
		assert.InDelta(t, db(ButterworthGain(4, fc, fs, hz)), db(got), 1e-6, "at %g Hz", hz)
	}
	assert.InDelta(t, -3.01, db(cmplx.Abs(f.Response(HzToRadians(fc, fs)))), 0.01)

	// Time domain: a complex tone settles to the analytic gain.
	measure := func(hz float64) float64 {
		f.Reset()
		out := f.Block(nil, tone(6000, HzToRadians(hz, fs), 0, 1))
		peak := 0.0
		for _, v := range out[4000:] {
			peak = math.Max(peak, cmplx.Abs(v))
		}
		return peak
	}
	assert.InDelta(t, 1.0, measure(fc/10), 0.01)
	stop := db(measure(10 * fc))
	assert.LessOrEqual(t, stop, -78.0)
	assert.InDelta(t, db(ButterworthGain(4, fc, fs, 10*fc)), stop, 1.0)
}

func TestButterworthOddOrder(t *testing.T) {
	f, err := DesignButterworth(5, 2000, 8000)
	require.NoError(t, err)
	assert.Len(t, f.Sections(), 3)
	assert.Equal(t, 5, f.Order())
	assert.InDelta(t, 1.0, cmplx.Abs(f.Response(0)), 1e-12)
	assert.InDelta(t, 0.0, cmplx.Abs(f.Response(math.Pi)), 1e-9)
}

func TestButterworthIdempotent(t *testing.T) {
	a, err := DesignButterworth(6, 300, 8000)
	require.NoError(t, err)
	b, err := DesignButterworth(6, 300, 8000)
	require.NoError(t, err)
	assert.Equal(t, a.Sections(), b.Sections())
}

func TestButterworthInvalid(t *testing.T) {
	for _, tc := range []struct {
		name         string
		order        int
		cutoff, rate float64
	}{
		{"zero order", 0, 100, 8000},
		{"negative rate", 2, 100, -1},
		{"zero cutoff", 2, 0, 8000},
		{"nyquist", 2, 4000, 8000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, err := DesignButterworth(tc.order, tc.cutoff, tc.rate)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, ErrDesign))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestIIRSettle(t *testing.T) {
	f := SinglePole(0.01)
	f.Settle(3)
	assert.InDelta(t, 3.0, f.FeedReal(3), 1e-12)

	lp, err := DesignButterworth(3, 100, 8000)
	require.NoError(t, err)
	lp.Settle(complex(2, -1))
	assert.InDelta(t, 0, cmplx.Abs(lp.Feed(complex(2, -1))-complex(2, -1)), 1e-9)

	dc := DCBlocker(0.99)
	dc.Settle(5)
	assert.InDelta(t, 0, cmplx.Abs(dc.Feed(5)), 1e-12)
}

func TestIIRSettlePastIntegrator(t *testing.T) {
	f := NewIIRFilter(
		Section{B0: 0.01, A1: -0.99},
		Section{B0: 1, A1: -1},
		Section{B0: 0.02, A1: -0.98},
	)
	f.Settle(3)
	// The integrator starts empty, so its first output is its input and the
	// last section must already sit at 3.
	assert.InDelta(t, 3.0, f.FeedReal(3), 1e-12)
}

func TestIIRBlockAliases(t *testing.T) {
	a, _ := DesignButterworth(2, 500, 8000)
	b, _ := DesignButterworth(2, 500, 8000)
	src := tone(64, 0.3, 0, 1)
	want := a.Block(nil, src)
	got := b.Block(src, src)
	assert.Equal(t, want, got)
}
