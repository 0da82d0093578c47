package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/studiofuga/sigutils/dump"
	"github.com/studiofuga/sigutils/suite"
)

const version = "0.3.0"

var (
	dumpFormat dump.Format
	bufferSize int
	sampleRate float64
	configPath string
	dumpDir    string
	logLevel   string
	listTests  bool
	countTests bool
)

var rootCmd = &cobra.Command{
	Use:           "sutest [flags] [test_start [test_end]]",
	Short:         "Run the signal processing test suite.",
	Args:          cobra.MaximumNArgs(2),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.VarPF(&dumpFormat, "dump", "d", "Dump signals as MATLAB files").NoOptDefVal = "mat"
	f.VarPF(&dumpFormat, "wav", "w", "Dump signals as WAV files").NoOptDefVal = "wav"
	f.VarPF(&dumpFormat, "raw", "R", "Dump signals as raw float32 I/Q files").NoOptDefVal = "raw"
	f.BoolVarP(&countTests, "count", "c", false, "Print the number of tests and exit")
	f.BoolVarP(&listTests, "list", "l", false, "List tests and exit")
	f.IntVarP(&bufferSize, "buffer-size", "s", 8192, "Buffer size in samples")
	f.Float64VarP(&sampleRate, "sample-rate", "r", 8000, "Sample rate in Hz")
	f.StringVar(&configPath, "config", "", "YAML file with test parameters")
	f.StringVar(&dumpDir, "dump-dir", dump.DefaultDirPattern, "Dump directory, as a strftime pattern")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func params(cmd *cobra.Command) (suite.Params, error) {
	p := suite.DefaultParams()
	if configPath != "" {
		var err error
		if p, err = suite.LoadParams(configPath); err != nil {
			return p, err
		}
	}
	f := cmd.Flags()
	for _, name := range []string{"dump", "wav", "raw"} {
		if f.Changed(name) {
			p.DumpFormat = dumpFormat
		}
	}
	if f.Changed("buffer-size") {
		p.BufferSize = bufferSize
	}
	if f.Changed("sample-rate") {
		p.SampleRate = sampleRate
	}
	if f.Changed("dump-dir") {
		p.DumpDir = dumpDir
	}
	if p.BufferSize < 1 || p.SampleRate <= 0 {
		return p, fmt.Errorf("buffer size %d and sample rate %g must be positive", p.BufferSize, p.SampleRate)
	}
	return p, nil
}

// testRange parses [test_start [test_end]]; a lone start selects one test.
func testRange(args []string) (start, end int, err error) {
	start, end = 0, suite.Count()-1
	if len(args) > 0 {
		if start, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, fmt.Errorf("bad test_start %q", args[0])
		}
		end = start
	}
	if len(args) > 1 {
		if end, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, fmt.Errorf("bad test_end %q", args[1])
		}
	}
	return start, end, nil
}

func run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if countTests {
		fmt.Fprintln(out, suite.Count())
		return nil
	}
	if listTests {
		for i, t := range suite.Tests() {
			fmt.Fprintf(out, "%3d  %s\n", i, t.Name)
		}
		return nil
	}

	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	p, err := params(cmd)
	if err != nil {
		return err
	}
	start, end, err := testRange(args)
	if err != nil {
		return err
	}

	s := suite.Run(start, end, p, l)
	failed := 0
	for _, r := range s.Results {
		if !r.Passed() {
			failed++
		}
	}
	if s.DumpDir != "" {
		l.Info("signals dumped", "dir", s.DumpDir, "format", p.DumpFormat)
	}
	l.Info("done", "run", len(s.Results), "failed", failed)
	if !s.Passed() {
		return fmt.Errorf("%d of %d tests failed", failed, len(s.Results))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
