package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiofuga/sigutils/dump"
	"github.com/studiofuga/sigutils/suite"
)

func TestTestRange(t *testing.T) {
	start, end, err := testRange(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, suite.Count()-1, end)

	start, end, err = testRange([]string{"4"})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, []int{start, end})

	start, end, err = testRange([]string{"2", "9"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 9}, []int{start, end})

	_, _, err = testRange([]string{"x"})
	assert.Error(t, err)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cmd := rootCmd
	require.NoError(t, cmd.ParseFlags([]string{"-w", "-s", "1024", "--dump-dir", "out"}))
	p, err := params(cmd)
	require.NoError(t, err)
	assert.Equal(t, dump.FormatWAV, p.DumpFormat)
	assert.Equal(t, 1024, p.BufferSize)
	assert.Equal(t, 8000.0, p.SampleRate)
	assert.Equal(t, "out", p.DumpDir)
}
