package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/dump"
	"github.com/studiofuga/sigutils/radio"
)

func TestRegistry(t *testing.T) {
	ts := Tests()
	require.Len(t, ts, Count())
	assert.Equal(t, 18, Count())
	assert.Equal(t, "ncqo", ts[0].Name)
	assert.Equal(t, "channel_detector_real_capture", ts[14].Name)
	assert.Equal(t, "mat_file_streaming", ts[17].Name)

	names := make(map[string]bool)
	for _, tc := range ts {
		assert.False(t, names[tc.Name], "duplicate %s", tc.Name)
		names[tc.Name] = true
	}
	// Callers get a copy.
	ts[0].Name = "changed"
	assert.Equal(t, "ncqo", Tests()[0].Name)
}

func TestRunAll(t *testing.T) {
	if testing.Short() {
		t.Skip("runs every signal test")
	}
	s := Run(0, Count()-1, DefaultParams(), nil)
	require.Len(t, s.Results, Count())
	for i, r := range s.Results {
		assert.Equal(t, i, r.ID)
		assert.NoError(t, r.Err, r.Name)
		assert.Empty(t, r.Dumped)
	}
	assert.True(t, s.Results[14].Skipped)
	assert.True(t, s.Passed())
	assert.Empty(t, s.DumpDir)
	assert.True(t, dsp.Initialized())
}

func TestRunRange(t *testing.T) {
	p := DefaultParams()

	s := Run(16, 100, p, nil)
	require.Len(t, s.Results, 2)
	assert.Equal(t, "mat_file_regular", s.Results[0].Name)
	assert.Equal(t, 17, s.Results[1].ID)
	assert.True(t, s.Passed())

	s = Run(-3, 0, p, nil)
	require.Len(t, s.Results, 1)
	assert.Equal(t, 0, s.Results[0].ID)

	s = Run(5, 2, p, nil)
	assert.Empty(t, s.Results)
	assert.True(t, s.Passed())
}

func TestRunReportsFailure(t *testing.T) {
	p := DefaultParams()
	p.PLL.Bandwidth = 2
	s := Run(5, 5, p, nil)
	require.Len(t, s.Results, 1)
	assert.False(t, s.Results[0].Passed())
	assert.False(t, s.Results[0].Skipped)
	assert.False(t, s.Passed())
}

func TestRunDumps(t *testing.T) {
	p := DefaultParams()
	p.DumpFormat = dump.FormatMAT
	p.DumpDir = filepath.Join(t.TempDir(), "run-%Y")

	s := Run(0, 0, p, nil)
	require.Len(t, s.Results, 1)
	require.True(t, s.Passed())
	assert.NotContains(t, s.DumpDir, "%")
	require.Equal(t, []string{filepath.Join(s.DumpDir, "ncqo.mat")}, s.Results[0].Dumped)

	f, err := os.Open(s.Results[0].Dumped[0])
	require.NoError(t, err)
	defer f.Close()
	mxs, err := dump.ReadMatFile(f)
	require.NoError(t, err)
	var names []string
	for _, m := range mxs {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"quarter", "tone", "phase"}, names)
}

// Running the same tests twice dumps identical signals.
func TestRunRepeatable(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the loop and tuner tests twice")
	}
	dumps := func() (out [][]dump.Matrix) {
		p := DefaultParams()
		p.DumpFormat = dump.FormatMAT
		p.DumpDir = t.TempDir()
		s := Run(6, 11, p, nil)
		s.Results = append(s.Results, Run(15, 15, p, nil).Results...)
		for _, r := range s.Results {
			require.NoError(t, r.Err, r.Name)
			require.NotEmpty(t, r.Dumped, r.Name)
			for _, path := range r.Dumped {
				mxs, err := readBack(path)
				require.NoError(t, err)
				out = append(out, mxs)
			}
		}
		return out
	}
	first, second := dumps(), dumps()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestCaptureScan(t *testing.T) {
	p := DefaultParams()
	sig, _, _, err := qpskChannel(&Env{Params: p}, 32*p.Detector.WindowSize, 0.05)
	require.NoError(t, err)
	for i := range sig {
		sig[i] /= 4
	}
	path := filepath.Join(t.TempDir(), "capture.wav")
	w, closer, err := radio.OpenIQW(path, p.SampleRate)
	require.NoError(t, err)
	require.NoError(t, w.Write(sig))
	closer()

	p.CaptureFile = path
	s := Run(14, 14, p, nil)
	require.Len(t, s.Results, 1)
	assert.NoError(t, s.Results[0].Err)
	assert.False(t, s.Results[0].Skipped)

	p.CaptureFile = filepath.Join(t.TempDir(), "missing.wav")
	assert.False(t, Run(14, 14, p, nil).Passed())
}

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sutest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
buffer_size: 4096
dump_format: wav
pll:
  bandwidth: 0.02
detector:
  window_size: 512
`), 0o644))
	p, err := LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, p.BufferSize)
	assert.Equal(t, dump.FormatWAV, p.DumpFormat)
	assert.Equal(t, 0.02, p.PLL.Bandwidth)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultParams().PLL.Damping, p.PLL.Damping)
	assert.Equal(t, 512, p.Detector.WindowSize)
	assert.Equal(t, 100.0, p.Detector.MinBandwidth)
	assert.Equal(t, 8000.0, p.SampleRate)

	require.NoError(t, os.WriteFile(path, []byte("dump_format: png\n"), 0o644))
	_, err = LoadParams(path)
	assert.Error(t, err)

	_, err = LoadParams(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSamples(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 8192, p.samples(100))
	assert.Equal(t, 20000, p.samples(20000))
}
