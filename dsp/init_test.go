package dsp

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitKeepsWindows(t *testing.T) {
	before := slices.Clone(Window(BlackmanHarris, 1024))
	Init()
	require.True(t, Initialized())
	after := Window(BlackmanHarris, 1024)
	assert.Equal(t, before, after)
	// Sizes outside the tables are still generated.
	assert.Equal(t, BlackmanHarris.generate(1000), Window(BlackmanHarris, 1000))

	tables := windowTables.Load()
	Init()
	assert.Same(t, tables, windowTables.Load())
	again := Window(BlackmanHarris, 1024)
	assert.Equal(t, after, again)
	assert.Same(t, &after[0], &again[0])
}

func TestWindowShapes(t *testing.T) {
	assert.Empty(t, Window(Hann, 0))
	assert.Equal(t, []float64{1}, Window(Hamming, 1))
	for _, kind := range []WindowKind{Hamming, Hann, BlackmanHarris} {
		w := Window(kind, 64)
		require.Len(t, w, 64)
		assert.InDelta(t, w[0], w[63], 1e-12, kind.String())
		assert.Greater(t, w[31], 0.99, kind.String())
	}
	assert.InDelta(t, 0.375, WindowPower(Window(Hann, 1<<12)), 1e-3)
}

// Fresh components fed the same input produce identical output.
func TestComponentsRepeatable(t *testing.T) {
	in := addNoise(shapedBPSK(randomSymbols(500, 2, 3), 8, 1.5), 0.05, 7)

	run := func() (clock, costas, lp []complex128) {
		c, err := NewClockRecovery(DefaultClockParams())
		require.NoError(t, err)
		k, err := NewCostas(BPSK, DefaultCostasParams())
		require.NoError(t, err)
		f, err := DesignButterworth(4, 400, 8000)
		require.NoError(t, err)
		for _, x := range in {
			y, _ := k.Feed(x)
			costas = append(costas, y)
		}
		return c.Block(nil, in), costas, f.Block(nil, in)
	}
	c1, k1, f1 := run()
	c2, k2, f2 := run()
	assert.Equal(t, c1, c2)
	assert.Equal(t, k1, k2)
	assert.Equal(t, f1, f2)
	assert.NotEmpty(t, c1)
}
