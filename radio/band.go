package radio

import (
	"fmt"
	"math"
	"sort"
)

// Band is a baseband frequency interval in Hz. Center may be negative.
type Band struct {
	Center float64 `yaml:"center_hz" json:"center_hz"`
	Width  float64 `yaml:"width_hz" json:"width_hz"`
}

func NewBandRange(loHz, hiHz float64) Band {
	return Band{Center: (hiHz + loHz) / 2.0, Width: hiHz - loHz}
}

func (b Band) Begin() float64 { return b.Center - b.Width/2.0 }
func (b Band) End() float64   { return b.Center + b.Width/2.0 }

func (b Band) String() string {
	return fmt.Sprintf("%.1fHz+/-%.1fHz", b.Center, b.Width/2)
}

func (b1 *Band) merge(b2 Band) {
	begin := math.Min(b1.Begin(), b2.Begin())
	end := math.Max(b1.End(), b2.End())
	b1.Center = (end + begin) / 2.0
	b1.Width = end - begin
}

func (b1 Band) Overlaps(b2 Band) bool {
	return !(b2.End() < b1.Begin() || b2.Begin() > b1.End())
}

type Bands []Band

func (a Bands) Len() int           { return len(a) }
func (a Bands) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a Bands) Less(i, j int) bool { return a[i].Begin() < a[j].Begin() }

func BandMerge(bs []Band) (ret []Band) {
	if len(bs) == 0 {
		return nil
	}
	sort.Sort(Bands(bs))
	ret = append(ret, bs[0])
	for _, b := range bs[1:] {
		if b.Begin() > ret[len(ret)-1].End() {
			ret = append(ret, b)
		} else {
			ret[len(ret)-1].merge(b)
		}
	}
	return ret
}

func BandRange(bs []Band) Band {
	br := bs[0]
	for _, v := range bs {
		br.merge(v)
	}
	return br
}

// binBand is a run of contiguous bins in a shifted spectrum.
type binBand struct {
	Begin int
	Bins  int
}

func (bb binBand) end() int { return bb.Begin + bb.Bins }

func (bb binBand) overlaps(o binBand) bool {
	return bb.Begin < o.end() && o.Begin < bb.end()
}
