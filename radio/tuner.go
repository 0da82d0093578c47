package radio

import (
	"errors"
	"fmt"
	"math"

	"github.com/studiofuga/sigutils/dsp"
)

var ErrZeroWidth = errors.New("zero-width channel")

type TunerParams struct {
	SampleRate float64 `yaml:"sample_rate"`
	// WindowSize is the analysis FFT length; a power of two.
	WindowSize int `yaml:"window_size"`
}

func DefaultTunerParams() TunerParams {
	return TunerParams{SampleRate: 8000, WindowSize: 4096}
}

func (p TunerParams) validate() error {
	switch {
	case p.SampleRate <= 0:
		return dsp.ConfigErr("tuner", "sample rate %g must be positive", p.SampleRate)
	case p.WindowSize < 8 || p.WindowSize&(p.WindowSize-1) != 0:
		return dsp.ConfigErr("tuner", "window size %d must be a power of two >= 8", p.WindowSize)
	}
	return nil
}

type ChannelRequest struct {
	CenterHz    float64 `yaml:"center_hz"`
	BandwidthHz float64 `yaml:"bandwidth_hz"`
}

func (r ChannelRequest) Band() Band { return Band{Center: r.CenterHz, Width: r.BandwidthHz} }

// SpectralTuner extracts narrow channels from a wideband stream with one
// shared FFT per half window.
type SpectralTuner struct {
	p   TunerParams
	fft dsp.FFT

	hist   []complex128
	fill   int
	spec   []complex128
	frames int

	channels []*TunerChannel
	nextID   int
}

func NewSpectralTuner(p TunerParams) (*SpectralTuner, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &SpectralTuner{
		p:    p,
		fft:  dsp.NewFFT(p.WindowSize),
		hist: make([]complex128, p.WindowSize),
		fill: p.WindowSize / 2,
		spec: make([]complex128, p.WindowSize),
	}, nil
}

func (t *SpectralTuner) BinHz() float64 { return t.p.SampleRate / float64(t.p.WindowSize) }

// Open adds a channel. Channels already open are unaffected.
func (t *SpectralTuner) Open(req ChannelRequest) (*TunerChannel, error) {
	switch {
	case req.BandwidthHz <= 0:
		return nil, fmt.Errorf("%w: %w: bandwidth %g", dsp.ErrInvalidConfig, ErrZeroWidth, req.BandwidthHz)
	case math.Abs(req.CenterHz) > t.p.SampleRate/2:
		return nil, dsp.ConfigErr("tuner", "center %g beyond nyquist %g", req.CenterHz, t.p.SampleRate/2)
	}
	n := t.p.WindowSize
	binHz := t.BinHz()
	width := math.Ceil(req.BandwidthHz / binHz)
	k := 2
	for float64(k) < 2*width && k < n {
		k *= 2
	}
	c := int(math.Round(req.CenterHz / binHz))
	rate := t.p.SampleRate / float64(n/k)

	t.nextID++
	ch := &TunerChannel{
		id:     t.nextID,
		req:    req,
		center: c,
		k:      k,
		dec:    n / k,
		rate:   rate,
		mask:   passbandMask(k, req.BandwidthHz/binHz),
		win:    olaWindow(k),
		fft:    dsp.NewFFT(k),
		spec:   make([]complex128, k),
		frame:  make([]complex128, k),
		tail:   make([]complex128, k/2),
		nco:    dsp.NewOscillator(dsp.HzToRadians(req.CenterHz-float64(c)*binHz, rate), 0),
	}
	t.channels = append(t.channels, ch)
	return ch, nil
}

// Close removes ch; its buffered output stays readable.
func (t *SpectralTuner) Close(ch *TunerChannel) bool {
	for i, c := range t.channels {
		if c == ch {
			t.channels = append(t.channels[:i], t.channels[i+1:]...)
			ch.closed = true
			return true
		}
	}
	return false
}

func (t *SpectralTuner) Channels() []*TunerChannel {
	chs := make([]*TunerChannel, len(t.channels))
	copy(chs, t.channels)
	return chs
}

func (t *SpectralTuner) Feed(samples []complex128) {
	half := t.p.WindowSize / 2
	for len(samples) > 0 {
		n := copy(t.hist[t.fill:], samples)
		t.fill += n
		samples = samples[n:]
		if t.fill < len(t.hist) {
			continue
		}
		t.frames++
		t.fft.Forward(t.spec, t.hist)
		for _, ch := range t.channels {
			ch.feed(t.spec, t.frames)
		}
		copy(t.hist, t.hist[half:])
		t.fill = half
	}
}

// TunerChannel is one extracted channel, decimated to Rate.
type TunerChannel struct {
	id     int
	req    ChannelRequest
	center int
	k      int
	dec    int
	rate   float64
	mask   []float64
	win    []float64
	fft    dsp.FFT
	spec   []complex128
	frame  []complex128
	tail   []complex128
	nco    *dsp.Oscillator
	out    []complex128
	closed bool
}

func (ch *TunerChannel) feed(spec []complex128, frame int) {
	n := len(spec)
	half := ch.k / 2
	for j := -half; j < half; j++ {
		bin := ((ch.center+j)%n + n) % n
		ch.spec[(j+ch.k)%ch.k] = spec[bin] * complex(ch.mask[j+half], 0)
	}
	ch.fft.Inverse(ch.frame, ch.spec)
	// Frames start half a window apart, so the downconverted bin advances
	// by c*pi per frame.
	scale := 1 / float64(ch.dec)
	if (ch.center*frame)&1 == 1 {
		scale = -scale
	}
	for m, v := range ch.frame {
		ch.frame[m] = v * complex(scale*ch.win[m], 0)
	}
	first := len(ch.out)
	for m := range half {
		ch.out = append(ch.out, ch.tail[m]+ch.frame[m])
	}
	copy(ch.tail, ch.frame[half:])
	ch.nco.MixDown(ch.out[first:], ch.out[first:])
}

// Read drains the samples produced so far.
func (ch *TunerChannel) Read() []complex128 {
	out := ch.out
	ch.out = nil
	return out
}

func (ch *TunerChannel) ID() int                 { return ch.id }
func (ch *TunerChannel) Request() ChannelRequest { return ch.req }
func (ch *TunerChannel) Rate() float64           { return ch.rate }
func (ch *TunerChannel) Decimation() int         { return ch.dec }
func (ch *TunerChannel) Closed() bool            { return ch.closed }

// passbandMask is flat over width bins around DC and rolls off with a raised
// cosine to zero at the edges of the k extracted bins.
func passbandMask(k int, width float64) []float64 {
	mask := make([]float64, k)
	half := float64(k) / 2
	pass := math.Min(width/2, half)
	for i := range mask {
		r := math.Abs(float64(i) - half)
		switch {
		case r <= pass:
			mask[i] = 1
		case half > pass:
			mask[i] = 0.5 * (1 + math.Cos(math.Pi*(r-pass)/(half-pass)))
		}
	}
	return mask
}

// olaWindow is sin^2, which sums to one at a hop of half its length.
func olaWindow(k int) []float64 {
	win := make([]float64, k)
	for m := range win {
		s := math.Sin(math.Pi * float64(m) / float64(k))
		win[m] = s * s
	}
	return win
}
