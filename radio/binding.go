package radio

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// Binding keeps one tuner channel open per detected channel.
type Binding struct {
	tuner *SpectralTuner
	bound map[uuid.UUID]*TunerChannel
	// Margin widens every request by this factor of the detected bandwidth.
	Margin float64
}

func NewBinding(t *SpectralTuner) *Binding {
	return &Binding{tuner: t, bound: make(map[uuid.UUID]*TunerChannel), Margin: 1}
}

// Sync opens channels for new descriptors and closes channels whose
// descriptor is gone. It returns the IDs opened, in descriptor order, and
// the IDs closed, in ascending ID order.
func (b *Binding) Sync(chs []Channel) (opened, closed []uuid.UUID, err error) {
	live := make(map[uuid.UUID]struct{}, len(chs))
	for _, c := range chs {
		live[c.ID] = struct{}{}
		if _, ok := b.bound[c.ID]; ok {
			continue
		}
		tc, err := b.tuner.Open(ChannelRequest{CenterHz: c.CenterHz, BandwidthHz: c.BandwidthHz * b.Margin})
		if err != nil {
			return opened, closed, err
		}
		b.bound[c.ID] = tc
		opened = append(opened, c.ID)
	}
	for id, tc := range b.bound {
		if _, ok := live[id]; ok {
			continue
		}
		b.tuner.Close(tc)
		delete(b.bound, id)
		closed = append(closed, id)
	}
	slices.SortFunc(closed, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return opened, closed, nil
}

func (b *Binding) Channel(id uuid.UUID) (*TunerChannel, bool) {
	tc, ok := b.bound[id]
	return tc, ok
}

func (b *Binding) Len() int { return len(b.bound) }
