package suite

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/radio"
	"github.com/studiofuga/sigutils/synth"
)

// qpskChannel is band-limited QPSK at eight samples per symbol centered on
// an eighth of the sample rate.
func qpskChannel(e *Env, n int, sigma float64) (sig []complex128, center, symRate float64, err error) {
	const sps = 8
	fs := e.Params.SampleRate
	symRate = fs / sps
	center = fs / 8
	lpf, err := dsp.DesignButterworth(6, 0.6*symRate, fs)
	if err != nil {
		return nil, 0, 0, err
	}
	syms := synth.Symbols(n/sps+1, 4, 17)
	sig = lpf.Block(nil, synth.PSK(dsp.QPSK, syms, sps)[:n])
	synth.Rotate(sig, dsp.HzToRadians(center, fs), 0)
	return synth.NewNoise(sigma, 23).Add(sig), center, symRate, nil
}

func channelDetectorQPSK(e *Env, sigma, minSNR float64) error {
	p := e.Params.Detector
	p.SampleRate = e.Params.SampleRate
	d, err := radio.NewChannelDetector(p, radio.WithLogger(e.Log))
	if err != nil {
		return err
	}
	sig, center, symRate, err := qpskChannel(e, 64*p.WindowSize, sigma)
	if err != nil {
		return err
	}
	for chunk := range slices.Chunk(sig, e.Params.BufferSize) {
		d.Feed(chunk)
	}
	e.Dump("input", sig)
	e.DumpReal("psd", d.PSD())

	chs := d.Channels()
	if len(chs) == 0 {
		return failf("no channel found, floor %g", d.NoiseFloor())
	}
	want := radio.Band{Center: center, Width: 2 * symRate}
	best := chs[0]
	for _, ch := range chs {
		if !ch.Band().Overlaps(want) {
			return failf("spurious channel %v", ch)
		}
		if ch.SNR > best.SNR {
			best = ch
		}
	}
	fs := e.Params.SampleRate
	switch {
	case math.Abs(best.CenterHz-center) > fs/80:
		return failf("channel centered at %.1f Hz, want %.1f Hz", best.CenterHz, center)
	case best.BandwidthHz < symRate/2 || best.BandwidthHz > 2.5*symRate:
		return failf("bandwidth %.1f Hz for %.1f symbols per second", best.BandwidthHz, symRate)
	case best.SNR < minSNR:
		return failf("snr %.1f dB below %.1f dB", best.SNR, minSNR)
	}
	e.Log.Debug("found", "channel", best)
	return nil
}

func testChannelDetectorQPSK(e *Env) error      { return channelDetectorQPSK(e, 0.05, 20) }
func testChannelDetectorQPSKNoisy(e *Env) error { return channelDetectorQPSK(e, 0.3, 6) }

func testChannelDetectorCapture(e *Env) error {
	path := e.Params.CaptureFile
	if path == "" {
		return fmt.Errorf("%w: no capture file configured", ErrSkip)
	}
	iqr, closer, err := radio.OpenIQR(path, e.Params.CaptureRate)
	if err != nil {
		return err
	}
	defer closer()

	live, seen, err := radio.ScanIQReader(context.Background(), iqr,
		radio.ScanConfig{Detector: e.Params.Detector}, radio.WithLogger(e.Log))
	if err != nil {
		return err
	}
	for _, ch := range seen {
		e.Log.Info("channel", "id", ch.ID, "center", ch.CenterHz, "bw", ch.BandwidthHz,
			"snr", ch.SNR, "blocks", fmt.Sprintf("%d-%d", ch.FirstBlock, ch.LastBlock))
	}
	if len(seen) == 0 {
		return failf("no channels in %s", path)
	}
	e.Log.Debug("scanned", "live", len(live), "seen", len(seen), "bands", radio.ChannelBands(seen))
	return nil
}

func testSpectTunerTwoTones(e *Env) error {
	p := e.Params.Tuner
	p.SampleRate = e.Params.SampleRate
	tn, err := radio.NewSpectralTuner(p)
	if err != nil {
		return err
	}
	n := p.WindowSize
	binHz := tn.BinHz()
	// The second tone sits on an odd bin, so its frames alternate in sign.
	hiHz, loHz := float64(n/8)*binHz, float64(-3*n/16-1)*binHz
	emptyHz := float64(5*n/16) * binHz
	bw := p.SampleRate / 80

	sig := synth.Sum(
		synth.Tone(16*n, hiHz, p.SampleRate, 1, 0),
		synth.Tone(16*n, loHz, p.SampleRate, 0.5, 1),
	)
	type expect struct {
		ch   *radio.TunerChannel
		name string
		want complex128
	}
	var chans []expect
	for _, c := range []struct {
		name string
		hz   float64
		want complex128
	}{
		{"high", hiHz, 1},
		{"low", loHz, cmplx.Rect(0.5, 1)},
		{"empty", emptyHz, 0},
	} {
		ch, err := tn.Open(radio.ChannelRequest{CenterHz: c.hz, BandwidthHz: bw})
		if err != nil {
			return err
		}
		chans = append(chans, expect{ch, c.name, c.want})
	}
	e.Dump("input", sig)

	outs := make([][]complex128, len(chans))
	for chunk := range slices.Chunk(sig, e.Params.BufferSize) {
		tn.Feed(chunk)
		for i, c := range chans {
			outs[i] = append(outs[i], c.ch.Read()...)
		}
	}
	for i, c := range chans {
		out := outs[i]
		e.Dump(c.name, out)
		if want := len(sig) / c.ch.Decimation(); len(out) != want {
			return failf("%s channel produced %d samples, want %d", c.name, len(out), want)
		}
		// The first two frames saw the zeroed history.
		skip := n / c.ch.Decimation()
		for j, v := range out[skip:] {
			if cmplx.Abs(v-c.want) > 1e-6 {
				return failf("%s channel sample %d: got %v, want %v", c.name, j+skip, v, c.want)
			}
		}
		e.Log.Debug("channel", "name", c.name, "rate", c.ch.Rate(), "decimation", c.ch.Decimation())
	}
	return nil
}
