// Package suite holds the numbered signal-processing checks run by sutest.
package suite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/studiofuga/sigutils/dsp"
	"github.com/studiofuga/sigutils/dump"
)

// ErrSkip marks a test that could not run in this environment.
var ErrSkip = errors.New("skipped")

type Test struct {
	Name string
	Run  func(*Env) error
}

var tests = []Test{
	{"ncqo", testNCQO},
	{"butterworth_lpf", testButterworthLPF},
	{"agc_transient", testAGCTransient},
	{"agc_steady_rising", testAGCSteadyRising},
	{"agc_steady_falling", testAGCSteadyFalling},
	{"pll", testPLL},
	{"costas_lock", testCostasLock},
	{"costas_bpsk", testCostasBPSK},
	{"costas_qpsk", testCostasQPSK},
	{"costas_qpsk_noisy", testCostasQPSKNoisy},
	{"clock_recovery", testClockRecovery},
	{"clock_recovery_noisy", testClockRecoveryNoisy},
	{"channel_detector_qpsk", testChannelDetectorQPSK},
	{"channel_detector_qpsk_noisy", testChannelDetectorQPSKNoisy},
	{"channel_detector_real_capture", testChannelDetectorCapture},
	{"specttuner_two_tones", testSpectTunerTwoTones},
	{"mat_file_regular", testMatFileRegular},
	{"mat_file_streaming", testMatFileStreaming},
}

// Tests returns the registry in run order; a test's index is its ID.
func Tests() []Test {
	ret := make([]Test, len(tests))
	copy(ret, tests)
	return ret
}

func Count() int { return len(tests) }

// Env is what a running test sees.
type Env struct {
	Params Params
	Log    *log.Logger

	pool    *dump.Pool
	scratch string
}

func failf(format string, args ...any) error { return fmt.Errorf(format, args...) }

// Dump records a signal for the dump files, if dumping is enabled.
func (e *Env) Dump(name string, x []complex128) {
	if e.Params.DumpFormat != dump.FormatNone {
		e.pool.Add(name, 0, x)
	}
}

func (e *Env) DumpReal(name string, x []float64) {
	if e.Params.DumpFormat != dump.FormatNone {
		e.pool.AddReal(name, 0, x)
	}
}

// TempDir returns a scratch directory removed when the test ends.
func (e *Env) TempDir() (string, error) {
	if e.scratch == "" {
		dir, err := os.MkdirTemp("", "sutest-*")
		if err != nil {
			return "", err
		}
		e.scratch = dir
	}
	return e.scratch, nil
}

type Result struct {
	ID      int
	Name    string
	Err     error
	Skipped bool
	Elapsed time.Duration
	Dumped  []string
}

func (r Result) Passed() bool { return r.Err == nil }

type Summary struct {
	Results []Result
	DumpDir string
}

func (s Summary) Passed() bool {
	for _, r := range s.Results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// Run executes tests start..end inclusive. Indices past the registry are
// clamped to its last test. Dump failures are logged and never change a
// verdict.
func Run(start, end int, p Params, l *log.Logger) Summary {
	if l == nil {
		l = log.New(io.Discard)
	}
	dsp.Init()
	last := len(tests) - 1
	start, end = max(0, min(start, last)), max(0, min(end, last))

	var s Summary
	if p.DumpFormat != dump.FormatNone {
		dir, err := dump.DirName(p.DumpDir, time.Now())
		if err != nil {
			l.Error("bad dump directory pattern", "pattern", p.DumpDir, "err", err)
			p.DumpFormat = dump.FormatNone
		}
		s.DumpDir = dir
	}
	for id := start; id <= end; id++ {
		s.Results = append(s.Results, runOne(id, p, s.DumpDir, l))
	}
	return s
}

func runOne(id int, p Params, dumpDir string, l *log.Logger) Result {
	t := tests[id]
	tl := l.WithPrefix(t.Name)
	env := &Env{Params: p, Log: tl, pool: dump.NewPool(t.Name, p.SampleRate)}
	defer func() {
		if env.scratch != "" {
			os.RemoveAll(env.scratch)
		}
	}()

	tl.Debug("running", "id", id)
	began := time.Now()
	err := t.Run(env)
	r := Result{ID: id, Name: t.Name, Err: err, Elapsed: time.Since(began)}
	switch {
	case errors.Is(err, ErrSkip):
		r.Err, r.Skipped = nil, true
		tl.Warn("SKIPPED", "id", id, "reason", err)
	case err != nil:
		tl.Error("FAILED", "id", id, "err", err, "elapsed", r.Elapsed)
	default:
		tl.Info("PASSED", "id", id, "elapsed", r.Elapsed)
	}

	if p.DumpFormat != dump.FormatNone {
		paths, derr := env.pool.Write(dumpDir, p.DumpFormat)
		if derr != nil {
			tl.Error("dump failed", "dir", dumpDir, "err", derr)
		}
		r.Dumped = paths
	}
	return r
}
