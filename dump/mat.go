package dump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var (
	ErrBadMat    = errors.New("bad mat file")
	ErrMatClosed = errors.New("mat file closed")
)

// MAT Level-5 data types and classes.
const (
	miINT8   = 1
	miINT32  = 5
	miUINT32 = 6
	miDOUBLE = 9
	miMATRIX = 14

	mxDoubleClass = 6
	mxComplexFlag = 0x0800
)

type matHeader struct {
	Text      [116]byte
	Subsys    [8]byte
	Version   uint16
	Endianess [2]byte
}

type tag struct {
	Type  uint32
	Bytes uint32
}

func pad8(n int) int { return (n + 7) &^ 7 }

// MatFile writes MATLAB Level-5 matrices. Matrices are written in order; a
// streaming column must be the last matrix and is sized on Close.
type MatFile struct {
	w      io.WriteSeeker
	closer io.Closer
	off    int64
	stream *MatStream
	closed bool
}

func NewMatFile(w io.WriteSeeker) (*MatFile, error) {
	var h matHeader
	text := fmt.Sprintf("MATLAB 5.0 MAT-file, Platform: GLNXA64, Created on: %s",
		time.Now().UTC().Format(time.ANSIC))
	for i := range h.Text {
		h.Text[i] = ' '
	}
	copy(h.Text[:], text)
	h.Version = 0x0100
	h.Endianess = [2]byte{'I', 'M'}
	m := &MatFile{w: w}
	if err := m.write(&h); err != nil {
		return nil, err
	}
	return m, nil
}

func CreateMatFile(path string) (*MatFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	m, err := NewMatFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	m.closer = f
	return m, nil
}

func (m *MatFile) write(v any) error {
	if err := binary.Write(m.w, binary.LittleEndian, v); err != nil {
		return err
	}
	m.off += int64(binary.Size(v))
	return nil
}

func (m *MatFile) writeName(name string) error {
	if err := m.write(tag{miINT8, uint32(len(name))}); err != nil {
		return err
	}
	b := make([]byte, pad8(len(name)))
	copy(b, name)
	return m.write(b)
}

func matrixBytes(name string, n int, cplx bool) int {
	size := 16 + 16 + 8 + pad8(len(name)) + 8 + 8*n
	if cplx {
		size += 8 + 8*n
	}
	return size
}

func (m *MatFile) begin(name string, rows, cols int, cplx bool) error {
	if m.closed {
		return ErrMatClosed
	}
	if m.stream != nil {
		return fmt.Errorf("%w: stream %q must be the last matrix", ErrBadMat, m.stream.name)
	}
	if name == "" || len(name) > 63 {
		return fmt.Errorf("%w: bad variable name %q", ErrBadMat, name)
	}
	flags := uint32(mxDoubleClass)
	if cplx {
		flags |= mxComplexFlag
	}
	for _, v := range []any{
		tag{miMATRIX, uint32(matrixBytes(name, rows*cols, cplx))},
		tag{miUINT32, 8}, [2]uint32{flags, 0},
		tag{miINT32, 8}, [2]int32{int32(rows), int32(cols)},
	} {
		if err := m.write(v); err != nil {
			return err
		}
	}
	return m.writeName(name)
}

func (m *MatFile) checkDims(rows, cols, n int) error {
	if rows < 0 || cols < 0 || rows*cols != n {
		return fmt.Errorf("%w: %dx%d matrix from %d values", ErrBadMat, rows, cols, n)
	}
	return nil
}

// WriteComplex writes a complex double matrix from column-major data.
func (m *MatFile) WriteComplex(name string, rows, cols int, data []complex128) error {
	if err := m.checkDims(rows, cols, len(data)); err != nil {
		return err
	}
	if err := m.begin(name, rows, cols, true); err != nil {
		return err
	}
	re := make([]float64, len(data))
	im := make([]float64, len(data))
	for i, v := range data {
		re[i], im[i] = real(v), imag(v)
	}
	for _, part := range [][]float64{re, im} {
		if err := m.write(tag{miDOUBLE, uint32(8 * len(part))}); err != nil {
			return err
		}
		if err := m.write(part); err != nil {
			return err
		}
	}
	return nil
}

// WriteReal writes a real double matrix from column-major data.
func (m *MatFile) WriteReal(name string, rows, cols int, data []float64) error {
	if err := m.checkDims(rows, cols, len(data)); err != nil {
		return err
	}
	if err := m.begin(name, rows, cols, false); err != nil {
		return err
	}
	if err := m.write(tag{miDOUBLE, uint32(8 * len(data))}); err != nil {
		return err
	}
	return m.write(data)
}

// MatStream is a real column whose length is fixed when the file closes.
type MatStream struct {
	m    *MatFile
	name string
	n    int

	matrixOff int64
	dimsOff   int64
	dataOff   int64
}

// Stream starts a growing real column vector.
func (m *MatFile) Stream(name string) (*MatStream, error) {
	s := &MatStream{m: m, name: name, matrixOff: m.off}
	if err := m.begin(name, 0, 1, false); err != nil {
		return nil, err
	}
	// Dimensions follow the matrix tag and the array flags element.
	s.dimsOff = s.matrixOff + 8 + 16 + 8
	s.dataOff = m.off
	if err := m.write(tag{miDOUBLE, 0}); err != nil {
		return nil, err
	}
	m.stream = s
	return s, nil
}

func (s *MatStream) Append(v ...float64) error {
	if s.m.closed {
		return ErrMatClosed
	}
	if err := s.m.write(v); err != nil {
		return err
	}
	s.n += len(v)
	return nil
}

func (s *MatStream) Len() int { return s.n }

func (s *MatStream) patch() error {
	w := s.m.w
	for _, p := range []struct {
		off int64
		v   any
	}{
		{s.matrixOff, tag{miMATRIX, uint32(matrixBytes(s.name, s.n, false))}},
		{s.dimsOff, int32(s.n)},
		{s.dataOff, tag{miDOUBLE, uint32(8 * s.n)}},
	} {
		if _, err := w.Seek(p.off, io.SeekStart); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.v); err != nil {
			return err
		}
	}
	_, err := w.Seek(s.m.off, io.SeekStart)
	return err
}

// Close sizes the streaming column, if any, and closes the underlying file
// when the MatFile created it.
func (m *MatFile) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var err error
	if m.stream != nil {
		err = m.stream.patch()
	}
	if m.closer != nil {
		err = errors.Join(err, m.closer.Close())
	}
	return err
}

// Matrix is a decoded double matrix; Imag is nil for real matrices.
type Matrix struct {
	Name string
	Rows int
	Cols int
	Real []float64
	Imag []float64
}

func (mx Matrix) Complex() []complex128 {
	out := make([]complex128, len(mx.Real))
	for i, re := range mx.Real {
		out[i] = complex(re, 0)
		if mx.Imag != nil {
			out[i] = complex(re, mx.Imag[i])
		}
	}
	return out
}

// ReadMatFile decodes the double matrices of a little-endian Level-5 file.
// Other element types are skipped.
func ReadMatFile(r io.Reader) ([]Matrix, error) {
	var h matHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if h.Endianess != [2]byte{'I', 'M'} || h.Version != 0x0100 {
		return nil, ErrBadMat
	}
	var ret []Matrix
	for {
		var t tag
		if err := binary.Read(r, binary.LittleEndian, &t); err == io.EOF {
			return ret, nil
		} else if err != nil {
			return ret, err
		}
		body := make([]byte, pad8(int(t.Bytes)))
		if _, err := io.ReadFull(r, body); err != nil {
			return ret, err
		}
		if t.Type != miMATRIX {
			continue
		}
		mx, err := parseMatrix(body[:t.Bytes])
		if err != nil {
			return ret, err
		}
		if mx != nil {
			ret = append(ret, *mx)
		}
	}
}

// element splits the next subelement off b, handling the packed form used
// for payloads of four bytes or less.
func element(b []byte) (typ uint32, data, rest []byte, err error) {
	if len(b) < 8 {
		return 0, nil, nil, ErrBadMat
	}
	word := binary.LittleEndian.Uint32(b)
	if small := word >> 16; small != 0 {
		if small > 4 {
			return 0, nil, nil, ErrBadMat
		}
		return word & 0xffff, b[4 : 4+small], b[8:], nil
	}
	n := int(binary.LittleEndian.Uint32(b[4:]))
	if 8+n > len(b) {
		return 0, nil, nil, ErrBadMat
	}
	end := min(8+pad8(n), len(b))
	return word, b[8 : 8+n], b[end:], nil
}

func doubles(typ uint32, data []byte) ([]float64, error) {
	if typ != miDOUBLE {
		return nil, fmt.Errorf("%w: data type %d", ErrBadMat, typ)
	}
	out := make([]float64, len(data)/8)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseMatrix(b []byte) (*Matrix, error) {
	_, flags, b, err := element(b)
	if err != nil {
		return nil, err
	}
	if len(flags) < 4 {
		return nil, ErrBadMat
	}
	fw := binary.LittleEndian.Uint32(flags)
	if fw&0xff != mxDoubleClass {
		return nil, nil
	}
	_, dims, b, err := element(b)
	if err != nil {
		return nil, err
	}
	if len(dims) != 8 {
		return nil, fmt.Errorf("%w: %d-byte dimensions", ErrBadMat, len(dims))
	}
	_, name, b, err := element(b)
	if err != nil {
		return nil, err
	}
	mx := &Matrix{
		Name: string(name),
		Rows: int(int32(binary.LittleEndian.Uint32(dims))),
		Cols: int(int32(binary.LittleEndian.Uint32(dims[4:]))),
	}
	typ, data, b, err := element(b)
	if err != nil {
		return nil, err
	}
	if mx.Real, err = doubles(typ, data); err != nil {
		return nil, err
	}
	if fw&mxComplexFlag != 0 {
		typ, data, _, err = element(b)
		if err != nil {
			return nil, err
		}
		if mx.Imag, err = doubles(typ, data); err != nil {
			return nil, err
		}
	}
	if len(mx.Real) != mx.Rows*mx.Cols {
		return nil, fmt.Errorf("%w: %s is %dx%d with %d values", ErrBadMat, mx.Name, mx.Rows, mx.Cols, len(mx.Real))
	}
	return mx, nil
}
