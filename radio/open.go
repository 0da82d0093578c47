package radio

import (
	"io"
	"os"
	"strings"

	"github.com/studiofuga/sigutils/radio/wav"
)

// OpenIQR opens a sample file, or stdin for "-". WAV files supply their own
// rate and must hold 16-bit stereo I/Q; other files use rate.
func OpenIQR(path string, rate float64) (*RatedIQReader, func(), error) {
	f, closer, err := openInput(path)
	if err != nil {
		return nil, nil, err
	}
	format := FormatFromPath(path)
	if strings.HasSuffix(path, ".wav") {
		r, err := wav.NewReader(f)
		if err != nil {
			closer()
			return nil, nil, err
		}
		if r.Channels() != 2 || r.BitDepth() != 16 {
			closer()
			return nil, nil, wav.ErrBadFormat
		}
		return &RatedIQReader{float64(r.SampleRate()), NewIQReaderFormat(r, FormatS16)}, closer, nil
	}
	return &RatedIQReader{rate, NewIQReaderFormat(f, format)}, closer, nil
}

// OpenIQW creates a sample file, or writes to stdout for "-".
func OpenIQW(path string, rate float64) (*IQWriter, func(), error) {
	w, closer, err := openOutput(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".wav") {
		ww, err := wav.NewWriter(w, int(rate), 16, 2)
		if err != nil {
			closer()
			return nil, nil, err
		}
		wavCloser := func() {
			ww.Close()
			closer()
		}
		return NewIQWriterFormat(ww, FormatS16), wavCloser, nil
	}
	return NewIQWriterFormat(w, FormatFromPath(path)), closer, nil
}

func isStdio(path string) bool {
	return path == "-" || strings.HasPrefix(path, "-.")
}

func openOutput(path string) (io.Writer, func(), error) {
	if isStdio(path) {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if isStdio(path) {
		return os.Stdin, func() {}, nil
	}
	fin, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return fin, func() { fin.Close() }, nil
}
