package suite

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/dump"
	"github.com/studiofuga/sigutils/radio"
)

// Params configure a suite run. Component params seed the components each
// test builds.
type Params struct {
	BufferSize int     `yaml:"buffer_size"`
	SampleRate float64 `yaml:"sample_rate"`

	DumpFormat dump.Format `yaml:"dump_format"`
	// DumpDir is a strftime pattern naming the dump directory.
	DumpDir string `yaml:"dump_dir"`

	// CaptureFile is an I/Q recording for the real capture test.
	CaptureFile string  `yaml:"capture_file"`
	CaptureRate float64 `yaml:"capture_rate"`

	AGC      dsp.AGCParams        `yaml:"agc"`
	PLL      dsp.LoopParams       `yaml:"pll"`
	Costas   dsp.LoopParams       `yaml:"costas"`
	Clock    dsp.ClockParams      `yaml:"clock"`
	Detector radio.DetectorParams `yaml:"detector"`
	Tuner    radio.TunerParams    `yaml:"tuner"`
}

func DefaultParams() Params {
	det := radio.DefaultDetectorParams()
	// Ignore sliver groups at the edges of wide signals.
	det.MinBandwidth = 100
	return Params{
		BufferSize:  8192,
		SampleRate:  8000,
		DumpDir:     dump.DefaultDirPattern,
		CaptureRate: 250000,
		AGC:         dsp.DefaultAGCParams(),
		PLL:         dsp.DefaultPLLParams(),
		Costas:      dsp.DefaultCostasParams(),
		Clock:       dsp.DefaultClockParams(),
		Detector:    det,
		Tuner:       radio.DefaultTunerParams(),
	}
}

// LoadParams overlays a YAML file on the defaults.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

// samples is the signal length a test uses: the buffer size, but never less
// than the test needs.
func (p Params) samples(need int) int { return max(p.BufferSize, need) }
