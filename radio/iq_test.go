package radio

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiofuga/sigutils/radio/wav"
	"github.com/studiofuga/sigutils/synth"
)

func TestIQFormats(t *testing.T) {
	sig := synth.Tone(1000, 300, testRate, 0.9, 0.2)
	for _, tt := range []struct {
		format SampleFormat
		tol    float64
	}{
		{FormatU8, 1.0 / 64},
		{FormatS16, 1e-4},
		{FormatF32, 1e-6},
	} {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewIQWriterFormat(&buf, tt.format).Write(sig))
			assert.Equal(t, len(sig)*tt.format.Size(), buf.Len())

			got, err := NewIQReaderFormat(&buf, tt.format).ReadAll()
			require.NoError(t, err)
			require.Len(t, got, len(sig))
			for i := range sig {
				assert.InDelta(t, real(sig[i]), real(got[i]), tt.tol)
				assert.InDelta(t, imag(sig[i]), imag(got[i]), tt.tol)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatU8, FormatFromPath("capture.cu8"))
	assert.Equal(t, FormatS16, FormatFromPath("capture.WAV"))
	assert.Equal(t, FormatF32, FormatFromPath("capture.cf32"))
	assert.Equal(t, FormatF32, FormatFromPath("-"))
}

func TestIQReaderPartialSample(t *testing.T) {
	// Three bytes hold one u8 sample and a dangling byte.
	iq := NewIQReader(bytes.NewReader([]byte{255, 127, 0}))
	samps := make([]complex64, 4)
	n, err := iq.Read(samps)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.InDelta(t, 1, real(samps[0]), 0.01)
	assert.InDelta(t, 0, imag(samps[0]), 0.01)
}

func TestBatchStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIQWriterFormat(&buf, FormatF32).Write(make([]complex128, 2500)))
	iq := NewIQReaderFormat(&buf, FormatF32)
	var sizes []int
	for b := range iq.Batch64(1000, 0) {
		sizes = append(sizes, len(b))
	}
	assert.Equal(t, []int{1000, 1000, 500}, sizes)
	assert.NoError(t, iq.Err())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	iq = NewIQReaderFormat(bytes.NewReader(make([]byte, 8*5000)), FormatF32)
	n := 0
	for range iq.BatchStream64(ctx, 10, 0) {
		n++
	}
	assert.Less(t, n, 500)
}

func TestOpenWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iq.wav")
	sig := synth.Tone(3000, -700, 2400, 0.5, 0)

	w, closer, err := OpenIQW(path, 2400)
	require.NoError(t, err)
	require.NoError(t, w.Write(sig))
	closer()

	r, closer, err := OpenIQR(path, 0)
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, 2400.0, r.SampleRate)
	assert.Equal(t, FormatS16, r.Format())
	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, len(sig))
	for i := range sig {
		assert.InDelta(t, real(sig[i]), real(got[i]), 1e-4)
	}
}

func TestOpenRejectsMonoWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	ww, err := wav.NewWriter(f, 8000, 16, 1)
	require.NoError(t, err)
	_, err = ww.Write(make([]byte, 64))
	require.NoError(t, err)
	require.NoError(t, ww.Close())
	require.NoError(t, f.Close())

	_, _, err = OpenIQR(path, 0)
	assert.ErrorIs(t, err, wav.ErrBadFormat)
}

func TestOpenRawUsesRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iq.cu8")
	w, closer, err := OpenIQW(path, 0)
	require.NoError(t, err)
	require.NoError(t, w.Write(make([]complex128, 10)))
	closer()

	r, closer, err := OpenIQR(path, 1e6)
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, 1e6, r.SampleRate)
	assert.Equal(t, FormatU8, r.Format())
}

func TestScanIQReader(t *testing.T) {
	var buf bytes.Buffer
	sig := twoTones(1024*20, 12)
	require.NoError(t, NewIQWriterFormat(&buf, FormatF32).Write(sig))

	iqr := &RatedIQReader{SampleRate: testRate, IQReader: NewIQReaderFormat(&buf, FormatF32)}
	live, seen, err := ScanIQReader(context.Background(), iqr, ScanConfig{Detector: DefaultDetectorParams()})
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Len(t, seen, 2)
	assert.Equal(t, live[0].ID, seen[0].ID)
	assert.Equal(t, 20, live[0].LastBlock)

	_, _, err = ScanIQReader(context.Background(), &RatedIQReader{IQReader: iqr.IQReader}, ScanConfig{})
	assert.ErrorIs(t, err, ErrBadSampleRate)
}

func TestScanLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIQWriterFormat(&buf, FormatF32).Write(twoTones(1024*20, 13)))
	iqr := &RatedIQReader{SampleRate: testRate, IQReader: NewIQReaderFormat(&buf, FormatF32)}
	live, _, err := ScanIQReader(context.Background(), iqr, ScanConfig{Detector: DefaultDetectorParams(), Limit: 4})
	require.NoError(t, err)
	assert.Empty(t, live)
}
