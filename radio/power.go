package radio

import (
	"io"
	"math"
	"sort"

	"github.com/studiofuga/sigutils/dsp"
)

// SpectralPower keeps an averaged, DC-centered power spectral density of
// fixed-size blocks. The first blocks are averaged cumulatively, after that
// the average decays with alpha.
type SpectralPower struct {
	sampleRate float64
	alpha      float64
	window     []float64
	norm       float64
	fft        dsp.FFT

	avg    []float64
	blocks int

	windowed []complex128
	bins     []complex128
}

func NewSpectralPower(sampleRate float64, bins int, alpha float64) *SpectralPower {
	window := dsp.Window(dsp.BlackmanHarris, bins)
	return &SpectralPower{
		sampleRate: sampleRate,
		alpha:      alpha,
		window:     window,
		norm:       1 / (float64(bins) * dsp.WindowPower(window)),
		fft:        dsp.NewFFT(bins),
		avg:        make([]float64, bins),
		windowed:   make([]complex128, bins),
		bins:       make([]complex128, bins),
	}
}

func (sp *SpectralPower) Bins() int             { return len(sp.avg) }
func (sp *SpectralPower) Blocks() int           { return sp.blocks }
func (sp *SpectralPower) BinHz() float64        { return sp.sampleRate / float64(len(sp.avg)) }
func (sp *SpectralPower) Average() []float64    { return sp.avg }
func (sp *SpectralPower) SampleRate() float64   { return sp.sampleRate }
func (sp *SpectralPower) BinFreq(i int) float64 { return float64(i-len(sp.avg)/2) * sp.BinHz() }

// Feed folds one block of exactly Bins samples into the average.
func (sp *SpectralPower) Feed(block []complex128) {
	dsp.ApplyWindow(sp.windowed, block, sp.window)
	sp.fft.Forward(sp.bins, sp.windowed)
	dsp.FFTShift(sp.windowed, sp.bins)

	sp.blocks++
	a := math.Max(sp.alpha, 1/float64(sp.blocks))
	for i, v := range sp.windowed {
		p := real(v)*real(v) + imag(v)*imag(v)
		sp.avg[i] += a * (p*sp.norm - sp.avg[i])
	}
}

func (sp *SpectralPower) NoiseFloor() float64 {
	med := make([]float64, len(sp.avg))
	copy(med, sp.avg)
	sort.Float64s(med)
	return med[len(med)/2]
}

// groups returns the runs of bins whose power exceeds level.
func (sp *SpectralPower) groups(level float64) (ret []binBand) {
	begin := -1
	for i, p := range sp.avg {
		if p > level {
			if begin == -1 {
				begin = i
			}
			continue
		}
		if begin != -1 {
			ret = append(ret, binBand{begin, i - begin})
			begin = -1
		}
	}
	if begin != -1 {
		ret = append(ret, binBand{begin, len(sp.avg) - begin})
	}
	return ret
}

// centroid is the power-weighted mean frequency of a run of bins.
func (sp *SpectralPower) centroid(bb binBand) float64 {
	sum, wsum := 0.0, 0.0
	for i := bb.Begin; i < bb.end(); i++ {
		sum += sp.avg[i]
		wsum += sp.avg[i] * sp.BinFreq(i)
	}
	if sum == 0 {
		return sp.freq(bb).Center
	}
	return wsum / sum
}

func (sp *SpectralPower) meanPower(bb binBand) float64 {
	sum := 0.0
	for i := bb.Begin; i < bb.end(); i++ {
		sum += sp.avg[i]
	}
	return sum / float64(bb.Bins)
}

// below reports whether every bin of bb is under level.
func (sp *SpectralPower) below(bb binBand, level float64) bool {
	for i := bb.Begin; i < bb.end(); i++ {
		if sp.avg[i] >= level {
			return false
		}
	}
	return true
}

func (sp *SpectralPower) freq(bb binBand) Band {
	binHz := sp.BinHz()
	begin := sp.BinFreq(bb.Begin) - binHz/2
	bw := float64(bb.Bins) * binHz
	return Band{Center: begin + bw/2.0, Width: bw}
}

// BandPower is the mean power in dB over the floor of the bins covering b.
func (sp *SpectralPower) BandPower(b Band) float64 {
	lo := int(math.Round(b.Begin()/sp.BinHz())) + len(sp.avg)/2
	hi := int(math.Round(b.End()/sp.BinHz())) + len(sp.avg)/2
	lo, hi = max(lo, 0), min(hi, len(sp.avg)-1)
	if hi < lo {
		return math.Inf(-1)
	}
	return 10 * math.Log10(sp.meanPower(binBand{lo, hi - lo + 1})/sp.NoiseFloor())
}

// Measure averages blocks from ch until it closes or limit blocks were
// consumed. Batches must hold Bins samples.
func (sp *SpectralPower) Measure(ch <-chan []complex64, limit int) error {
	block := make([]complex128, len(sp.avg))
	for n := 0; limit <= 0 || n < limit; n++ {
		samps, ok := <-ch
		if !ok {
			if sp.blocks == 0 {
				return io.EOF
			}
			return nil
		}
		if len(samps) != len(block) {
			return dsp.ConfigErr("spectral power", "batch of %d samples, want %d", len(samps), len(block))
		}
		for i, v := range samps {
			block[i] = complex128(v)
		}
		sp.Feed(block)
	}
	return nil
}

// DB converts a linear power to decibels.
func DB(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(p)
}
