package dsp

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settleIndex returns the first index after which every output magnitude
// stays within tol of target, or -1.
func settleIndex(out []complex128, target, tol float64) int {
	idx := -1
	for i, v := range out {
		if d := cmplx.Abs(v) - target; d > tol*target || d < -tol*target {
			idx = -1
		} else if idx < 0 {
			idx = i
		}
	}
	return idx
}

func TestAGCTransient(t *testing.T) {
	agc, err := NewAGC(DefaultAGCParams())
	require.NoError(t, err)

	out := agc.Block(nil, tone(2000, 0.05, 0, 0.1))
	idx := settleIndex(out, 1, 0.05)
	require.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, 100)
	assert.Equal(t, AGCSteady, agc.State())
	assert.InDelta(t, 10, agc.Gain(), 0.1)
}

func TestAGCSteadyStep(t *testing.T) {
	for _, tc := range []struct {
		name     string
		from, to float64
		dir      Direction
	}{
		{"rising", 0.1, 1, Falling},
		{"falling", 1, 0.1, Rising},
	} {
		t.Run(tc.name, func(t *testing.T) {
			agc, err := NewAGC(DefaultAGCParams())
			require.NoError(t, err)
			agc.Block(nil, tone(3000, 0.05, 0, tc.from))
			require.Equal(t, AGCSteady, agc.State())

			out := make([]complex128, 0, 4000)
			sawDir := false
			for _, x := range tone(4000, 0.05, 0, tc.to) {
				out = append(out, agc.Feed(x))
				sawDir = sawDir || agc.Direction() == tc.dir
			}
			assert.True(t, sawDir)
			idx := settleIndex(out, 1, 0.05)
			require.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 3000)
			assert.InDelta(t, 1/tc.to, agc.Gain(), 0.05/tc.to)
		})
	}
}

func TestAGCHoldsOnSilence(t *testing.T) {
	agc, err := NewAGC(DefaultAGCParams())
	require.NoError(t, err)
	agc.Block(nil, tone(500, 0.1, 0, 0.5))
	g, st := agc.Gain(), agc.State()
	for range 1000 {
		assert.Equal(t, complex128(0), agc.Feed(0))
	}
	assert.Equal(t, g, agc.Gain())
	assert.Equal(t, st, agc.State())
}

func TestAGCGainBounds(t *testing.T) {
	p := DefaultAGCParams()
	agc, err := NewAGC(p)
	require.NoError(t, err)
	agc.Block(nil, tone(2000, 0.1, 0, 1e6))
	assert.Equal(t, p.MinGain, agc.Gain())

	agc, err = NewAGC(p)
	require.NoError(t, err)
	agc.Block(nil, tone(2000, 0.1, 0, 1e-7))
	assert.Equal(t, p.MaxGain, agc.Gain())
}

func TestAGCInvalidParams(t *testing.T) {
	p := DefaultAGCParams()
	p.MinGain, p.MaxGain = 10, 1
	_, err := NewAGC(p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p = DefaultAGCParams()
	p.Target = 0
	_, err = NewAGC(p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p = DefaultAGCParams()
	p.InitialGain = 1e5
	_, err = NewAGC(p)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
