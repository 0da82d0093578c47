package radio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"path/filepath"
	"strings"
)

// SampleFormat is the on-disk encoding of one interleaved I/Q pair.
type SampleFormat int

const (
	FormatU8 SampleFormat = iota
	FormatS16
	FormatF32
)

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	default:
		return "f32"
	}
}

// Size is the number of bytes per complex sample.
func (f SampleFormat) Size() int {
	switch f {
	case FormatU8:
		return 2
	case FormatS16:
		return 4
	default:
		return 8
	}
}

// FormatFromPath picks the sample format from a file extension.
func FormatFromPath(path string) SampleFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".iq8", ".cu8", ".u8":
		return FormatU8
	case ".wav", ".cs16", ".s16":
		return FormatS16
	}
	return FormatF32
}

func (f SampleFormat) decode(buf []byte, samps []complex64) {
	for i := range samps {
		switch f {
		case FormatU8:
			samps[i] = complex(
				(float32(buf[2*i])-127)/128.0,
				(float32(buf[2*i+1])-127)/128.0)
		case FormatS16:
			re := int16(binary.LittleEndian.Uint16(buf[4*i:]))
			im := int16(binary.LittleEndian.Uint16(buf[4*i+2:]))
			samps[i] = complex(float32(re)/32768.0, float32(im)/32768.0)
		default:
			re := math.Float32frombits(binary.LittleEndian.Uint32(buf[8*i:]))
			im := math.Float32frombits(binary.LittleEndian.Uint32(buf[8*i+4:]))
			samps[i] = complex(re, im)
		}
	}
}

func (f SampleFormat) encode(buf []byte, samps []complex64) {
	for i, v := range samps {
		switch f {
		case FormatU8:
			buf[2*i] = byte(clamp(real(v)*128.0+127.0, 0, 255))
			buf[2*i+1] = byte(clamp(imag(v)*128.0+127.0, 0, 255))
		case FormatS16:
			binary.LittleEndian.PutUint16(buf[4*i:], uint16(int16(clamp(real(v)*32767, -32768, 32767))))
			binary.LittleEndian.PutUint16(buf[4*i+2:], uint16(int16(clamp(imag(v)*32767, -32768, 32767))))
		default:
			binary.LittleEndian.PutUint32(buf[8*i:], math.Float32bits(real(v)))
			binary.LittleEndian.PutUint32(buf[8*i+4:], math.Float32bits(imag(v)))
		}
	}
}

func clamp(v, lo, hi float32) float32 { return max(lo, min(hi, v)) }

type IQReader struct {
	r      io.Reader
	format SampleFormat
	err    error
}

// RatedIQReader is an IQReader that knows its sample rate.
type RatedIQReader struct {
	SampleRate float64
	*IQReader
}

// NewIQReader takes a reader that uses u8 I/Q samples.
func NewIQReader(r io.Reader) *IQReader {
	return NewIQReaderFormat(r, FormatU8)
}

func NewIQReaderFormat(r io.Reader, f SampleFormat) *IQReader {
	if r == nil {
		panic("nil reader")
	}
	return &IQReader{r: r, format: f}
}

func (iq *IQReader) Format() SampleFormat { return iq.format }

// Err is the error that ended the last stream, if it was not io.EOF.
func (iq *IQReader) Err() error {
	if iq.err == io.EOF || iq.err == io.ErrUnexpectedEOF {
		return nil
	}
	return iq.err
}

// Read fills samps and returns how many complete samples were decoded.
func (iq *IQReader) Read(samps []complex64) (int, error) {
	buf := make([]byte, len(samps)*iq.format.Size())
	n, err := io.ReadFull(iq.r, buf)
	got := n / iq.format.Size()
	iq.format.decode(buf[:got*iq.format.Size()], samps[:got])
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return got, err
}

// ReadAll decodes samples until EOF.
func (iq *IQReader) ReadAll() ([]complex128, error) {
	var out []complex128
	batch := make([]complex64, 4096)
	for {
		n, err := iq.Read(batch)
		for _, v := range batch[:n] {
			out = append(out, complex128(v))
		}
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
	}
}

func (iq *IQReader) Batch64(batch, limit int) <-chan []complex64 {
	return iq.BatchStream64(context.Background(), batch, limit)
}

func (iq *IQReader) BatchStream64(ctx context.Context, batch, limit int) <-chan []complex64 {
	ch := make(chan []complex64, 1)
	go func() {
		defer close(ch)
		for i := 0; limit <= 0 || i < limit; i++ {
			samps := make([]complex64, batch)
			var n int
			n, iq.err = iq.Read(samps)
			if n == 0 {
				return
			}
			select {
			case ch <- samps[:n]:
			case <-ctx.Done():
				return
			}
			if iq.err != nil {
				return
			}
		}
	}()
	return ch
}

type IQWriter struct {
	w      io.Writer
	format SampleFormat
}

func NewIQWriter(w io.Writer) *IQWriter { return &IQWriter{w, FormatU8} }

func NewIQWriterFormat(w io.Writer, f SampleFormat) *IQWriter { return &IQWriter{w, f} }

func (iq *IQWriter) Write64(out []complex64) error {
	buf := make([]byte, iq.format.Size()*len(out))
	iq.format.encode(buf, out)
	_, err := iq.w.Write(buf)
	return err
}

func (iq *IQWriter) Write(out []complex128) error {
	samps := make([]complex64, len(out))
	for i, v := range out {
		samps[i] = complex64(v)
	}
	return iq.Write64(samps)
}
