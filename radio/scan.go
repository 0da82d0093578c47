package radio

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrBadSampleRate = errors.New("bad sample rate")

type ScanConfig struct {
	Detector DetectorParams
	// Limit caps the number of detector windows read; zero reads everything.
	Limit int
}

// ScanIQReader runs a channel detector over a recording and returns the
// channels alive at the end together with every channel seen on the way.
func ScanIQReader(ctx context.Context, iqr *RatedIQReader, cfg ScanConfig, opts ...Option) (live, seen []Channel, err error) {
	if iqr.SampleRate <= 0 {
		return nil, nil, ErrBadSampleRate
	}
	p := cfg.Detector
	p.SampleRate = iqr.SampleRate
	d, err := NewChannelDetector(p, opts...)
	if err != nil {
		return nil, nil, err
	}
	ids := make(map[uuid.UUID]int)
	block := make([]complex128, p.WindowSize)
	for samps := range iqr.BatchStream64(ctx, p.WindowSize, cfg.Limit) {
		block = block[:len(samps)]
		for i, v := range samps {
			block[i] = complex128(v)
		}
		d.Feed(block)
		for _, ch := range d.Channels() {
			if i, ok := ids[ch.ID]; ok {
				seen[i] = ch
				continue
			}
			ids[ch.ID] = len(seen)
			seen = append(seen, ch)
		}
	}
	if err := iqr.Err(); err != nil {
		return nil, seen, err
	}
	return d.Channels(), seen, ctx.Err()
}

// ChannelBands merges overlapping channel bands.
func ChannelBands(chs []Channel) []Band {
	bs := make([]Band, len(chs))
	for i, ch := range chs {
		bs[i] = ch.Band()
	}
	return BandMerge(bs)
}
