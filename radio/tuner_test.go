package radio

import (
	"bytes"
	"errors"
	"math"
	"math/cmplx"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/synth"
)

func newTestTuner(t *testing.T) *SpectralTuner {
	tn, err := NewSpectralTuner(DefaultTunerParams())
	require.NoError(t, err)
	return tn
}

func TestTunerExactBins(t *testing.T) {
	tn := newTestTuner(t)
	binHz := tn.BinHz()
	// Bin -767 is odd, so every other frame needs its sign flipped.
	lo := -767 * binHz
	sig := synth.Sum(
		synth.Tone(8*4096, 1000, testRate, 1, 0),
		synth.Tone(8*4096, lo, testRate, 0.5, 1),
	)
	hi, err := tn.Open(ChannelRequest{CenterHz: 1000, BandwidthHz: 100})
	require.NoError(t, err)
	low, err := tn.Open(ChannelRequest{CenterHz: lo, BandwidthHz: 100})
	require.NoError(t, err)
	assert.Equal(t, 32, hi.Decimation())
	assert.Equal(t, 250.0, hi.Rate())
	assert.NotEqual(t, hi.ID(), low.ID())

	tn.Feed(sig)
	for _, tc := range []struct {
		ch   *TunerChannel
		want complex128
	}{
		{hi, 1},
		{low, cmplx.Rect(0.5, 1)},
	} {
		out := tc.ch.Read()
		require.Len(t, out, len(sig)/32)
		for i, v := range out[128:] {
			if cmplx.Abs(v-tc.want) > 1e-6 {
				t.Fatalf("channel %v sample %d: got %v, want %v", tc.ch.Request(), i+128, v, tc.want)
			}
		}
		assert.Empty(t, tc.ch.Read())
	}
}

func TestTunerOffBin(t *testing.T) {
	tn := newTestTuner(t)
	hz := 1000 + 0.4*tn.BinHz()
	ch, err := tn.Open(ChannelRequest{CenterHz: hz, BandwidthHz: 100})
	require.NoError(t, err)

	sig := synth.Tone(16*4096, hz, testRate, 1, 0)
	tn.Feed(synth.Sum(sig, synth.Tone(16*4096, -3000, testRate, 1, 0)))

	out := ch.Read()[256:]
	require.NotEmpty(t, out)
	for i, v := range out {
		assert.InDelta(t, 1, cmplx.Abs(v), 0.05, "sample %d", i)
		if i > 0 {
			d := math.Abs(cmplx.Phase(v * cmplx.Conj(out[i-1])))
			assert.Less(t, d, 0.02, "sample %d", i)
		}
	}
}

func TestTunerStreamingSplit(t *testing.T) {
	sig := twoTones(6*4096, 11)
	whole := newTestTuner(t)
	a, err := whole.Open(ChannelRequest{CenterHz: 1000, BandwidthHz: 200})
	require.NoError(t, err)
	whole.Feed(sig)

	split := newTestTuner(t)
	b, err := split.Open(ChannelRequest{CenterHz: 1000, BandwidthHz: 200})
	require.NoError(t, err)
	for len(sig) > 0 {
		n := min(len(sig), 777)
		split.Feed(sig[:n])
		sig = sig[n:]
	}
	assert.Equal(t, a.Read(), b.Read())
}

func TestTunerCloseLeavesOthers(t *testing.T) {
	sig := twoTones(8*4096, 4)

	ref := newTestTuner(t)
	want, err := ref.Open(ChannelRequest{CenterHz: 1000, BandwidthHz: 100})
	require.NoError(t, err)
	ref.Feed(sig)

	tn := newTestTuner(t)
	keep, err := tn.Open(ChannelRequest{CenterHz: 1000, BandwidthHz: 100})
	require.NoError(t, err)
	drop, err := tn.Open(ChannelRequest{CenterHz: -2000, BandwidthHz: 100})
	require.NoError(t, err)
	tn.Feed(sig[:4*4096])
	require.True(t, tn.Close(drop))
	assert.False(t, tn.Close(drop))
	assert.True(t, drop.Closed())
	tn.Feed(sig[4*4096:])

	assert.Len(t, drop.Read(), 4*4096/32)
	assert.Equal(t, want.Read(), keep.Read())
	assert.Len(t, tn.Channels(), 1)
}

func TestTunerErrors(t *testing.T) {
	tn := newTestTuner(t)
	_, err := tn.Open(ChannelRequest{CenterHz: 100})
	assert.ErrorIs(t, err, ErrZeroWidth)
	assert.ErrorIs(t, err, dsp.ErrInvalidConfig)

	_, err = tn.Open(ChannelRequest{CenterHz: 4500, BandwidthHz: 100})
	assert.ErrorIs(t, err, dsp.ErrInvalidConfig)
	assert.False(t, errors.Is(err, ErrZeroWidth))

	_, err = NewSpectralTuner(TunerParams{SampleRate: 8000, WindowSize: 1000})
	assert.ErrorIs(t, err, dsp.ErrInvalidConfig)
	_, err = NewSpectralTuner(TunerParams{WindowSize: 1024})
	assert.ErrorIs(t, err, dsp.ErrInvalidConfig)
}

func TestPassbandMask(t *testing.T) {
	mask := passbandMask(128, 52)
	assert.Equal(t, 1.0, mask[64])
	assert.Equal(t, 1.0, mask[64+26])
	assert.Equal(t, 0.0, mask[0])
	for i := 65; i < 128; i++ {
		assert.LessOrEqual(t, mask[i], mask[i-1])
	}
	win := olaWindow(128)
	for m := range 64 {
		assert.InDelta(t, 1, win[m]+win[m+64], 1e-12)
	}
}

func TestBindingSync(t *testing.T) {
	d, err := NewChannelDetector(DefaultDetectorParams())
	require.NoError(t, err)
	d.Feed(twoTones(1024*16, 8))
	chs := d.Channels()
	require.Len(t, chs, 2)

	tn := newTestTuner(t)
	b := NewBinding(tn)
	opened, closed, err := b.Sync(chs)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{chs[0].ID, chs[1].ID}, opened)
	assert.Empty(t, closed)
	assert.Equal(t, 2, b.Len())

	opened, closed, err = b.Sync(chs)
	require.NoError(t, err)
	assert.Empty(t, opened)
	assert.Empty(t, closed)

	tc, ok := b.Channel(chs[1].ID)
	require.True(t, ok)
	assert.InDelta(t, chs[1].CenterHz, tc.Request().CenterHz, 1e-9)

	opened, closed, err = b.Sync(chs[1:])
	require.NoError(t, err)
	assert.Empty(t, opened)
	assert.Equal(t, chs[0].ID, closed[0])
	assert.Len(t, tn.Channels(), 1)
	_, ok = b.Channel(chs[0].ID)
	assert.False(t, ok)

	bad := chs[0]
	bad.BandwidthHz = 0
	_, _, err = b.Sync([]Channel{bad})
	assert.ErrorIs(t, err, ErrZeroWidth)
}

func TestBindingClosesInIDOrder(t *testing.T) {
	var chs []Channel
	for i := range 8 {
		chs = append(chs, Channel{ID: uuid.New(), CenterHz: float64(i*400 - 1600), BandwidthHz: 100})
	}
	for range 3 {
		b := NewBinding(newTestTuner(t))
		_, _, err := b.Sync(chs)
		require.NoError(t, err)
		_, closed, err := b.Sync(chs[:2])
		require.NoError(t, err)
		require.Len(t, closed, 6)
		assert.True(t, slices.IsSortedFunc(closed, func(a, b uuid.UUID) int {
			return bytes.Compare(a[:], b[:])
		}))
		assert.ElementsMatch(t, idsOf(chs[2:]), closed)
	}
}

func idsOf(chs []Channel) []uuid.UUID {
	ids := make([]uuid.UUID, len(chs))
	for i, c := range chs {
		ids[i] = c.ID
	}
	return ids
}
