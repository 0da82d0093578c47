package suite

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/studiofuga/sigutils/dump"
	"github.com/studiofuga/sigutils/synth"
)

func readBack(path string) ([]dump.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dump.ReadMatFile(f)
}

func testMatFileRegular(e *Env) error {
	dir, err := e.TempDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "regular.mat")
	m, err := dump.CreateMatFile(path)
	if err != nil {
		return err
	}
	z := synth.NewNoise(1, 3).Add(make([]complex128, 12))
	x := []float64{1, -2.5, 3e-9, 4e12}
	if err := m.WriteComplex("z", 3, 4, z); err != nil {
		return err
	}
	if err := m.WriteReal("x", 1, len(x), x); err != nil {
		return err
	}
	if err := m.Close(); err != nil {
		return err
	}

	mxs, err := readBack(path)
	switch {
	case err != nil:
		return err
	case len(mxs) != 2:
		return failf("read %d matrices, want 2", len(mxs))
	case mxs[0].Name != "z" || mxs[0].Rows != 3 || mxs[0].Cols != 4:
		return failf("first matrix is %s %dx%d", mxs[0].Name, mxs[0].Rows, mxs[0].Cols)
	case !slices.Equal(mxs[0].Complex(), z):
		return failf("complex data differs")
	case mxs[1].Name != "x" || mxs[1].Imag != nil || !slices.Equal(mxs[1].Real, x):
		return failf("real matrix %s differs", mxs[1].Name)
	}
	return nil
}

func testMatFileStreaming(e *Env) error {
	dir, err := e.TempDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "stream.mat")
	m, err := dump.CreateMatFile(path)
	if err != nil {
		return err
	}
	s, err := m.Stream("samples")
	if err != nil {
		return err
	}
	n := e.Params.samples(1000)
	want := make([]float64, n)
	for i := range want {
		want[i] = float64(i) / 7
	}
	for chunk := range slices.Chunk(want, 100) {
		if err := s.Append(chunk...); err != nil {
			return err
		}
	}
	if err := m.Close(); err != nil {
		return err
	}

	mxs, err := readBack(path)
	switch {
	case err != nil:
		return err
	case len(mxs) != 1:
		return failf("read %d matrices, want 1", len(mxs))
	case mxs[0].Rows != n || mxs[0].Cols != 1:
		return failf("streamed matrix is %dx%d, want %dx1", mxs[0].Rows, mxs[0].Cols, n)
	case !slices.Equal(mxs[0].Real, want):
		return failf("streamed data differs")
	}
	return nil
}
