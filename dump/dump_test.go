package dump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiofuga/sigutils/radio"
)

func readMat(t *testing.T, path string) []Matrix {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	mxs, err := ReadMatFile(f)
	require.NoError(t, err)
	return mxs
}

func TestMatRegular(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular.mat")
	m, err := CreateMatFile(path)
	require.NoError(t, err)
	data := []complex128{1 + 2i, -3, 4i, 0.5 - 0.25i, 7, 8}
	require.NoError(t, m.WriteComplex("z", 2, 3, data))
	require.NoError(t, m.WriteReal("longer_name", 1, 2, []float64{3.5, -1}))
	assert.ErrorIs(t, m.WriteReal("bad", 2, 2, []float64{1}), ErrBadMat)
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.WriteReal("late", 1, 1, []float64{1}), ErrMatClosed)

	mxs := readMat(t, path)
	require.Len(t, mxs, 2)
	assert.Equal(t, "z", mxs[0].Name)
	assert.Equal(t, 2, mxs[0].Rows)
	assert.Equal(t, 3, mxs[0].Cols)
	assert.Equal(t, data, mxs[0].Complex())
	assert.Equal(t, Matrix{Name: "longer_name", Rows: 1, Cols: 2, Real: []float64{3.5, -1}}, mxs[1])

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, fi.Size()%8)
}

func TestMatStreaming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.mat")
	m, err := CreateMatFile(path)
	require.NoError(t, err)
	require.NoError(t, m.WriteComplex("before", 1, 1, []complex128{2 + 2i}))
	s, err := m.Stream("x")
	require.NoError(t, err)
	var want []float64
	for i := range 1000 {
		v := float64(i) / 3
		want = append(want, v)
		require.NoError(t, s.Append(v))
	}
	require.NoError(t, s.Append(-1, -2))
	want = append(want, -1, -2)
	assert.Equal(t, 1002, s.Len())
	_, err = m.Stream("second")
	assert.ErrorIs(t, err, ErrBadMat)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	mxs := readMat(t, path)
	require.Len(t, mxs, 2)
	assert.Equal(t, []complex128{2 + 2i}, mxs[0].Complex())
	assert.Equal(t, "x", mxs[1].Name)
	assert.Equal(t, 1002, mxs[1].Rows)
	assert.Equal(t, 1, mxs[1].Cols)
	assert.Nil(t, mxs[1].Imag)
	assert.Equal(t, want, mxs[1].Real)
}

func TestMatEmptyStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mat")
	m, err := CreateMatFile(path)
	require.NoError(t, err)
	_, err = m.Stream("nothing")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	mxs := readMat(t, path)
	require.Len(t, mxs, 1)
	assert.Equal(t, 0, mxs[0].Rows)
	assert.Empty(t, mxs[0].Real)
}

func TestReadMatRejects(t *testing.T) {
	_, err := ReadMatFile(strings.NewReader(strings.Repeat("x", 128)))
	assert.ErrorIs(t, err, ErrBadMat)
}

func TestFormatFlag(t *testing.T) {
	var f Format
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.VarPF(&f, "dump", "d", "").NoOptDefVal = "mat"
	fs.VarPF(&f, "wav", "w", "").NoOptDefVal = "wav"
	fs.Var(&f, "dump-format", "")

	require.NoError(t, fs.Parse([]string{"-d"}))
	assert.Equal(t, FormatMAT, f)
	require.NoError(t, fs.Parse([]string{"--wav"}))
	assert.Equal(t, FormatWAV, f)
	require.NoError(t, fs.Parse([]string{"--dump-format", "m"}))
	assert.Equal(t, FormatScript, f)
	assert.Error(t, fs.Parse([]string{"--dump-format", "png"}))

	for _, name := range []string{"none", "mat", "m", "wav", "raw"} {
		require.NoError(t, f.Set(name))
		assert.Equal(t, name, f.String())
	}
	require.NoError(t, f.Set("MATLAB"))
	assert.Equal(t, FormatMAT, f)
	assert.Equal(t, "format", f.Type())
}

func TestDirName(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	name, err := DirName("", at)
	require.NoError(t, err)
	assert.Equal(t, "sutest-20240309-070501", name)
	name, err = DirName("run-%H%M", at)
	require.NoError(t, err)
	assert.Equal(t, "run-0705", name)
}

func testPool() *Pool {
	p := NewPool("ncqo", 8000)
	p.Add("tone", 0, []complex128{1, 1i, -1, -1i})
	p.AddReal("phase", 0, []float64{0, 0.5, 1, 1.5})
	return p
}

func TestPoolWriteMat(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	paths, err := testPool().Write(dir, FormatMAT)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "ncqo.mat")}, paths)
	mxs := readMat(t, paths[0])
	require.Len(t, mxs, 2)
	assert.Equal(t, []complex128{1, 1i, -1, -1i}, mxs[0].Complex())
	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, mxs[1].Real)
	assert.Nil(t, mxs[1].Imag)
}

func TestPoolWriteScript(t *testing.T) {
	paths, err := testPool().Write(t.TempDir(), FormatScript)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	b, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "tone = [\n1+0i;\n0+1i;\n-1+0i;\n0-1i;\n];\ntone_fs = 8000;\n"+
		"phase = [\n0;\n0.5;\n1;\n1.5;\n];\nphase_fs = 8000;\n", string(b))
}

func TestPoolWriteIQ(t *testing.T) {
	dir := t.TempDir()
	paths, err := testPool().Write(dir, FormatWAV)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "ncqo_tone.wav"), paths[0])

	r, closer, err := radio.OpenIQR(paths[0], 0)
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, 8000.0, r.SampleRate)
	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.InDelta(t, -1, imag(got[3]), 1e-4)

	paths, err = testPool().Write(dir, FormatRaw)
	require.NoError(t, err)
	fi, err := os.Stat(paths[1])
	require.NoError(t, err)
	assert.Equal(t, int64(4*8), fi.Size())

	paths, err = testPool().Write(filepath.Join(dir, "unused"), FormatNone)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.NoDirExists(t, filepath.Join(dir, "unused"))
}
