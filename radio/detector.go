package radio

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/studiofuga/sigutils/dsp"
)

type DetectorParams struct {
	SampleRate float64 `yaml:"sample_rate"`
	WindowSize int     `yaml:"window_size"`
	// Alpha is the steady-state PSD averaging factor.
	Alpha float64 `yaml:"alpha"`

	ActivationDB   float64 `yaml:"activation_db"`
	DeactivationDB float64 `yaml:"deactivation_db"`
	// Activations is the run of blocks a candidate must persist for before
	// it is reported; Deactivations the run of quiet blocks that drops it.
	Activations   int `yaml:"activations"`
	Deactivations int `yaml:"deactivations"`

	MinBandwidth float64 `yaml:"min_bandwidth"`
}

func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		SampleRate:     8000,
		WindowSize:     1024,
		Alpha:          0.05,
		ActivationDB:   8,
		DeactivationDB: 4,
		Activations:    8,
		Deactivations:  8,
	}
}

func (p DetectorParams) validate() error {
	switch {
	case p.SampleRate <= 0:
		return dsp.ConfigErr("detector", "sample rate %g must be positive", p.SampleRate)
	case p.WindowSize < 16 || p.WindowSize%2 != 0:
		return dsp.ConfigErr("detector", "window size %d must be even and at least 16", p.WindowSize)
	case p.Alpha <= 0 || p.Alpha > 1:
		return dsp.ConfigErr("detector", "alpha %g outside (0, 1]", p.Alpha)
	case p.DeactivationDB < 0 || p.ActivationDB < p.DeactivationDB:
		return dsp.ConfigErr("detector", "thresholds must satisfy 0 <= deactivation <= activation")
	case p.Activations < 1 || p.Deactivations < 1:
		return dsp.ConfigErr("detector", "activation runs must be positive")
	case p.MinBandwidth < 0:
		return dsp.ConfigErr("detector", "min bandwidth %g negative", p.MinBandwidth)
	}
	return nil
}

// Channel describes a detected signal.
type Channel struct {
	ID          uuid.UUID `yaml:"id" json:"id"`
	CenterHz    float64   `yaml:"center_hz" json:"center_hz"`
	BandwidthHz float64   `yaml:"bandwidth_hz" json:"bandwidth_hz"`
	SNR         float64   `yaml:"snr_db" json:"snr_db"`
	FirstBlock  int       `yaml:"first_block" json:"first_block"`
	LastBlock   int       `yaml:"last_block" json:"last_block"`
}

func (c Channel) Band() Band { return Band{Center: c.CenterHz, Width: c.BandwidthHz} }

func (c Channel) String() string {
	return fmt.Sprintf("%s %v snr=%.1fdB", c.ID, c.Band(), c.SNR)
}

// DefaultNamespace seeds channel IDs when no namespace option is given.
var DefaultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/studiofuga/sigutils/channel"))

type candidate struct {
	bins  binBand
	run   int
	quiet int
	ch    *Channel
}

type ChannelDetector struct {
	p     DetectorParams
	power *SpectralPower
	log   *log.Logger
	ns    uuid.UUID

	buf        []complex128
	candidates []*candidate
	seq        int
	floor      float64
}

type Option func(*ChannelDetector)

func WithLogger(l *log.Logger) Option { return func(d *ChannelDetector) { d.log = l } }

// WithNamespace makes channel IDs unique to ns; equal inputs under the same
// namespace yield equal IDs.
func WithNamespace(ns uuid.UUID) Option { return func(d *ChannelDetector) { d.ns = ns } }

func NewChannelDetector(p DetectorParams, opts ...Option) (*ChannelDetector, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	d := &ChannelDetector{
		p:     p,
		power: NewSpectralPower(p.SampleRate, p.WindowSize, p.Alpha),
		log:   log.New(io.Discard),
		ns:    DefaultNamespace,
		buf:   make([]complex128, 0, p.WindowSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Feed buffers samples and processes every complete window.
func (d *ChannelDetector) Feed(samples []complex128) {
	for len(samples) > 0 {
		n := min(len(samples), d.p.WindowSize-len(d.buf))
		d.buf = append(d.buf, samples[:n]...)
		samples = samples[n:]
		if len(d.buf) == d.p.WindowSize {
			d.block()
			d.buf = d.buf[:0]
		}
	}
}

func (d *ChannelDetector) block() {
	d.power.Feed(d.buf)
	d.floor = d.power.NoiseFloor()
	on := d.floor * math.Pow(10, d.p.ActivationDB/10)
	off := d.floor * math.Pow(10, d.p.DeactivationDB/10)

	var groups []binBand
	for _, g := range d.power.groups(on) {
		if float64(g.Bins)*d.power.BinHz() >= d.p.MinBandwidth {
			groups = append(groups, g)
		}
	}
	used := make([]bool, len(groups))
	match := func(bb binBand) (binBand, bool) {
		for i, g := range groups {
			if !used[i] && g.overlaps(bb) {
				used[i] = true
				return g, true
			}
		}
		return binBand{}, false
	}

	blk := d.power.Blocks()
	kept := d.candidates[:0]
	for _, c := range d.candidates {
		g, ok := match(c.bins)
		switch {
		case c.ch == nil && !ok:
			continue
		case c.ch == nil:
			c.bins = g
			if c.run++; c.run >= d.p.Activations {
				d.promote(c, blk)
			}
		default:
			if ok {
				c.bins = g
				d.describe(c.ch, g)
				c.ch.LastBlock = blk
			}
			if d.power.below(c.bins, off) {
				c.quiet++
			} else {
				c.quiet = 0
			}
			if c.quiet >= d.p.Deactivations {
				d.log.Info("channel lost", "id", c.ch.ID, "center", c.ch.CenterHz, "block", blk)
				continue
			}
		}
		kept = append(kept, c)
	}
	for i, g := range groups {
		if used[i] {
			continue
		}
		c := &candidate{bins: g, run: 1}
		if c.run >= d.p.Activations {
			d.promote(c, blk)
		}
		kept = append(kept, c)
	}
	d.candidates = kept
}

func (d *ChannelDetector) promote(c *candidate, blk int) {
	d.seq++
	name := fmt.Sprintf("%d/%d", d.seq, c.bins.Begin)
	c.ch = &Channel{
		ID:         uuid.NewSHA1(d.ns, []byte(name)),
		FirstBlock: blk - c.run + 1,
		LastBlock:  blk,
	}
	d.describe(c.ch, c.bins)
	d.log.Info("channel found", "id", c.ch.ID, "center", c.ch.CenterHz,
		"bw", c.ch.BandwidthHz, "snr", c.ch.SNR)
}

func (d *ChannelDetector) describe(ch *Channel, g binBand) {
	ch.CenterHz = d.power.centroid(g)
	ch.BandwidthHz = float64(g.Bins) * d.power.BinHz()
	ch.SNR = DB(d.power.meanPower(g) / d.floor)
}

// Channels returns the live channels ordered by center frequency.
func (d *ChannelDetector) Channels() (ret []Channel) {
	for _, c := range d.candidates {
		if c.ch != nil {
			ret = append(ret, *c.ch)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].CenterHz < ret[j].CenterHz })
	return ret
}

// PSD returns a copy of the averaged, DC-centered spectrum.
func (d *ChannelDetector) PSD() []float64 {
	psd := make([]float64, len(d.power.Average()))
	copy(psd, d.power.Average())
	return psd
}

func (d *ChannelDetector) NoiseFloor() float64    { return d.floor }
func (d *ChannelDetector) Blocks() int            { return d.power.Blocks() }
func (d *ChannelDetector) Params() DetectorParams { return d.p }
func (d *ChannelDetector) Power() *SpectralPower  { return d.power }
