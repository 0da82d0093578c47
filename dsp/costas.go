package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

type Modulation int

const (
	BPSK Modulation = iota
	QPSK
)

func (m Modulation) String() string {
	switch m {
	case BPSK:
		return "bpsk"
	case QPSK:
		return "qpsk"
	}
	return fmt.Sprintf("modulation(%d)", int(m))
}

func ParseModulation(s string) (Modulation, error) {
	switch strings.ToLower(s) {
	case "bpsk", "2":
		return BPSK, nil
	case "qpsk", "4":
		return QPSK, nil
	}
	return 0, configErr("costas", "unknown modulation %q", s)
}

// Order is the constellation size.
func (m Modulation) Order() int { return 2 << int(m) }

// Costas recovers the suppressed carrier of a PSK signal. A locked QPSK loop
// settles on any of four rotations; BPSK on either of two.
type Costas struct {
	*loop
	mod     Modulation
	lastErr float64
}

func NewCostas(mod Modulation, p LoopParams) (*Costas, error) {
	if mod != BPSK && mod != QPSK {
		return nil, configErr("costas", "unsupported modulation %v", mod)
	}
	if err := p.validate("costas"); err != nil {
		return nil, err
	}
	return &Costas{loop: newLoop(p), mod: mod}, nil
}

func (c *Costas) Modulation() Modulation { return c.mod }

// Feed derotates x and advances the loop, returning the derotated symbol
// estimate.
func (c *Costas) Feed(x complex128) (complex128, bool) {
	y := c.mix(x)
	e, metric := c.detect(y)
	c.lastErr = e
	return y, c.advance(e, metric)
}

func (c *Costas) detect(y complex128) (e, metric float64) {
	mag := cmplx.Abs(y)
	if mag == 0 {
		return 0, math.Pi / float64(c.mod.Order())
	}
	i, q := real(y), imag(y)
	switch c.mod {
	case BPSK:
		e = i * q / (mag * mag)
		metric = math.Abs(cmplx.Phase(y*y)) / 2
	case QPSK:
		e = (sign(i)*q - sign(q)*i) / (math.Sqrt2 * mag)
		y2 := y * y
		metric = math.Abs(cmplx.Phase(-y2*y2)) / 4
	}
	return e, metric
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func (c *Costas) Block(dst, src []complex128) []complex128 {
	if dst == nil {
		dst = make([]complex128, len(src))
	}
	for i, x := range src {
		dst[i], _ = c.Feed(x)
	}
	return dst
}

func (c *Costas) Locked() bool        { return c.lock.Locked() }
func (c *Costas) Frequency() float64  { return c.nco.Frequency() }
func (c *Costas) Phase() float64      { return c.nco.Phase() }
func (c *Costas) LockMetric() float64 { return c.lock.Metric() }
func (c *Costas) PhaseError() float64 { return c.lastErr }

// Decide maps a derotated symbol to its constellation index. QPSK points sit
// on the diagonals, numbered counter-clockwise from the first quadrant.
func (m Modulation) Decide(y complex128) int {
	if m == BPSK {
		if real(y) < 0 {
			return 1
		}
		return 0
	}
	switch {
	case real(y) >= 0 && imag(y) >= 0:
		return 0
	case real(y) < 0 && imag(y) >= 0:
		return 1
	case real(y) < 0:
		return 2
	}
	return 3
}

// Point is the unit-energy constellation point for a symbol index.
func (m Modulation) Point(sym int) complex128 {
	if m == BPSK {
		if sym&1 == 1 {
			return -1
		}
		return 1
	}
	return cmplx.Rect(1, math.Pi/4+float64(sym&3)*math.Pi/2)
}
