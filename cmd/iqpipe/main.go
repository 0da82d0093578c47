package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/radio"
)

var (
	sampleHz    float64
	deviationHz float64
	downmixHz   float64
	cutoffHz    float64
	transHz     float64
	decimate    int
	centerHz    float64
	bandwidthHz float64
	windowSize  int
	minBandHz   float64
	limit       int
)

const batchSize = 8192

var rootCmd = &cobra.Command{
	Use:          "iqpipe",
	Short:        "A tool to pipe around IQ modulation.",
	SilenceUsage: true,
}

func addFlagRate(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&sampleHz, "sample-rate", "s", 2048000, "Sample rate in Hz for files without a header")
}

func init() {
	downmixCmd := &cobra.Command{
		Use:   "downmix [flags] input.iq8 output.iq8",
		Short: "Frequency downmix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyXfmCmd(cmd.Context(), downmixXfm, 1, args[0], args[1])
		},
	}
	downmixCmd.Flags().Float64VarP(&downmixHz, "frequency-downmix", "S", 0, "Frequency to down mix in Hz")
	addFlagRate(downmixCmd)
	rootCmd.AddCommand(downmixCmd)

	lowpassCmd := &cobra.Command{
		Use:   "lpf [flags] input.iq8 output.iq8",
		Short: "Lowpass filter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyXfmCmd(cmd.Context(), lowpassXfm, decimate, args[0], args[1])
		},
	}
	lowpassCmd.Flags().Float64VarP(&cutoffHz, "cutoff", "c", 0, "Cutoff frequency in Hz")
	lowpassCmd.Flags().IntVarP(&decimate, "decimate", "D", 1, "Keep one output sample in this many")
	lowpassCmd.Flags().Float64VarP(&transHz, "transition", "T", 0, "Use a FIR lowpass with this transition width in Hz")
	addFlagRate(lowpassCmd)
	rootCmd.AddCommand(lowpassCmd)

	channelsCmd := &cobra.Command{
		Use:   "channels [flags] input.iq8",
		Short: "Detect channels and print them as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return channels(cmd.Context(), args[0])
		},
	}
	channelsCmd.Flags().IntVarP(&windowSize, "window-size", "n", 1024, "Detector FFT size")
	channelsCmd.Flags().Float64VarP(&minBandHz, "min-bandwidth", "b", 0, "Ignore channels narrower than this in Hz")
	channelsCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Stop after this many FFT windows")
	addFlagRate(channelsCmd)
	rootCmd.AddCommand(channelsCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [flags] input.iq8 output.wav",
		Short: "Extract one channel at a reduced rate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tune(cmd.Context(), args[0], args[1])
		},
	}
	tuneCmd.Flags().Float64VarP(&centerHz, "center-hz", "c", 0, "Channel center offset in Hz")
	tuneCmd.Flags().Float64VarP(&bandwidthHz, "bandwidth", "b", 0, "Channel bandwidth in Hz")
	tuneCmd.Flags().IntVarP(&windowSize, "window-size", "n", 4096, "Tuner FFT size")
	addFlagRate(tuneCmd)
	rootCmd.AddCommand(tuneCmd)

	demodCmd := &cobra.Command{
		Use:     "demod iqfile pcmfile",
		Aliases: []string{"fmdemod"},
		Short:   "FM demodulate an iq file to 16-bit PCM",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return demod(cmd.Context(), args[0], args[1])
		},
	}
	demodCmd.Flags().Float64VarP(&deviationHz, "deviation", "d", 0, "Maximum signal deviation in Hz")
	demodCmd.Flags().IntVarP(&decimate, "decimate", "D", 1, "Lowpass and decimate by this factor before demodulating")
	addFlagRate(demodCmd)
	rootCmd.AddCommand(demodCmd)
}

func demod(ctx context.Context, inf, outf string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if deviationHz == 0 {
		return fmt.Errorf("need deviation")
	}
	iqr, rcloser, err := radio.OpenIQR(inf, sampleHz)
	if err != nil {
		return err
	}
	defer rcloser()
	f, err := os.Create(outf)
	if err != nil {
		return err
	}
	defer f.Close()

	rate := iqr.SampleRate
	sigc := iqr.BatchStream64(ctx, batchSize, 0)
	if decimate > 1 {
		if sigc, err = dsp.LowpassCtx(ctx, rate/float64(2*decimate), int(rate), decimate, sigc); err != nil {
			return err
		}
		rate /= float64(decimate)
	}
	h := dsp.HzToRadians(deviationHz, rate)
	for samps := range dsp.DemodFMCtx(ctx, float32(h), sigc) {
		pcm := make([]int16, len(samps))
		for i, v := range samps {
			pcm[i] = int16(max(-1, min(1, v)) * 0x7fff)
		}
		if err := binary.Write(f, binary.LittleEndian, pcm); err != nil {
			return err
		}
	}
	log.Info("demodulated", "rate", rate)
	return iqr.Err()
}

func channels(ctx context.Context, inf string) error {
	iqr, rcloser, err := radio.OpenIQR(inf, sampleHz)
	if err != nil {
		return err
	}
	defer rcloser()

	cfg := radio.ScanConfig{Detector: radio.DefaultDetectorParams(), Limit: limit}
	cfg.Detector.WindowSize = windowSize
	cfg.Detector.MinBandwidth = minBandHz
	live, seen, err := radio.ScanIQReader(ctx, iqr, cfg, radio.WithLogger(log.Default()))
	if err != nil {
		return err
	}
	log.Info("scan done", "live", len(live), "seen", len(seen))
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(map[string]any{
		"channels": seen,
		"bands":    radio.ChannelBands(seen),
	})
}

func tune(ctx context.Context, inf, outf string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	iqr, rcloser, err := radio.OpenIQR(inf, sampleHz)
	if err != nil {
		return err
	}
	defer rcloser()

	tn, err := radio.NewSpectralTuner(radio.TunerParams{SampleRate: iqr.SampleRate, WindowSize: windowSize})
	if err != nil {
		return err
	}
	ch, err := tn.Open(radio.ChannelRequest{CenterHz: centerHz, BandwidthHz: bandwidthHz})
	if err != nil {
		return err
	}
	iqw, wcloser, err := radio.OpenIQW(outf, ch.Rate())
	if err != nil {
		return err
	}
	defer wcloser()

	buf := make([]complex128, 0, batchSize)
	for samps := range iqr.BatchStream64(ctx, batchSize, 0) {
		buf = buf[:0]
		for _, v := range samps {
			buf = append(buf, complex128(v))
		}
		tn.Feed(buf)
		if err := iqw.Write(ch.Read()); err != nil {
			return err
		}
	}
	log.Info("tuned", "center", centerHz, "rate", ch.Rate(), "decimation", ch.Decimation())
	return iqr.Err()
}

type xfmFunc func(ctx context.Context, iqr *radio.RatedIQReader, iqw *radio.IQWriter) error

// applyXfmCmd runs xf from inf to outf; the output rate is the input rate
// divided by dec.
func applyXfmCmd(ctx context.Context, xf xfmFunc, dec int, inf, outf string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	iqr, rcloser, err := radio.OpenIQR(inf, sampleHz)
	if err != nil {
		return err
	}
	defer rcloser()

	iqw, wcloser, err := radio.OpenIQW(outf, iqr.SampleRate/float64(max(dec, 1)))
	if err != nil {
		return err
	}
	defer wcloser()

	if err := xf(ctx, iqr, iqw); err != nil {
		return err
	}
	return iqr.Err()
}

func downmixXfm(ctx context.Context, iqr *radio.RatedIQReader, iqw *radio.IQWriter) error {
	inc := iqr.BatchStream64(ctx, batchSize, 0)
	for outSamps := range dsp.MixDownCtx(ctx, downmixHz, int(iqr.SampleRate), inc) {
		if err := iqw.Write64(outSamps); err != nil {
			return err
		}
	}
	return nil
}

func lowpassXfm(ctx context.Context, iqr *radio.RatedIQReader, iqw *radio.IQWriter) error {
	inc := iqr.BatchStream64(ctx, batchSize, 0)
	var lpfc <-chan []complex64
	var err error
	if transHz > 0 {
		lpfc, err = dsp.FIRLowpassCtx(ctx, cutoffHz, transHz, int(iqr.SampleRate), decimate, inc)
	} else {
		lpfc, err = dsp.LowpassCtx(ctx, cutoffHz, int(iqr.SampleRate), decimate, inc)
	}
	if err != nil {
		return err
	}
	for outSamps := range lpfc {
		if err := iqw.Write64(outSamps); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
