// Package dump writes test signals as MATLAB, WAV or raw I/Q files.
package dump

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

type Format int

const (
	FormatNone Format = iota
	// FormatMAT writes one Level-5 .mat file per test.
	FormatMAT
	// FormatScript writes one .m script per test.
	FormatScript
	FormatWAV
	FormatRaw
)

var formatNames = map[Format]string{
	FormatNone:   "none",
	FormatMAT:    "mat",
	FormatScript: "m",
	FormatWAV:    "wav",
	FormatRaw:    "raw",
}

func (f Format) String() string { return formatNames[f] }

func (f *Format) Set(s string) error {
	switch strings.ToLower(s) {
	case "matlab":
		*f = FormatMAT
		return nil
	case "", "off":
		*f = FormatNone
		return nil
	}
	for k, v := range formatNames {
		if strings.EqualFold(s, v) {
			*f = k
			return nil
		}
	}
	return fmt.Errorf("unknown dump format %q", s)
}

func (f *Format) Type() string { return "format" }

var _ pflag.Value = (*Format)(nil)

// Ext is the file extension used for the format.
func (f Format) Ext() string {
	switch f {
	case FormatMAT:
		return ".mat"
	case FormatScript:
		return ".m"
	case FormatWAV:
		return ".wav"
	case FormatRaw:
		return ".raw"
	}
	return ""
}

// DefaultDirPattern names dump directories after the run's start time.
const DefaultDirPattern = "sutest-%Y%m%d-%H%M%S"

// DirName expands a strftime pattern.
func DirName(pattern string, t time.Time) (string, error) {
	if pattern == "" {
		pattern = DefaultDirPattern
	}
	return strftime.Format(pattern, t)
}

func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Format) UnmarshalText(b []byte) error { return f.Set(string(b)) }
