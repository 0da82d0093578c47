package dsp

import (
	"math/cmplx"
)

// Section is a second-order IIR section with a0 normalized to 1:
//
//	H(z) = (B0 + B1 z^-1 + B2 z^-2) / (1 + A1 z^-1 + A2 z^-2)
//
// A first-order section leaves B2 and A2 at zero.
type Section struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Response evaluates the section at w radians per sample.
func (s Section) Response(w float64) complex128 {
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(s.B0, 0) + complex(s.B1, 0)*z1 + complex(s.B2, 0)*z2
	den := 1 + complex(s.A1, 0)*z1 + complex(s.A2, 0)*z2
	return num / den
}

func (s Section) dcGain() float64 {
	den := 1 + s.A1 + s.A2
	if den == 0 {
		return 0
	}
	return (s.B0 + s.B1 + s.B2) / den
}

type sectionState struct{ s1, s2 complex128 }

// IIRFilter is a cascade of second-order sections evaluated in transposed
// direct form II.
type IIRFilter struct {
	sections []Section
	state    []sectionState
}

func NewIIRFilter(sections ...Section) *IIRFilter {
	secs := make([]Section, len(sections))
	copy(secs, sections)
	return &IIRFilter{sections: secs, state: make([]sectionState, len(secs))}
}

// SinglePole is the exponential smoother y += alpha (x - y).
func SinglePole(alpha float64) *IIRFilter {
	return NewIIRFilter(Section{B0: alpha, A1: alpha - 1})
}

// DCBlocker is the first-order high pass (1 - z^-1)/(1 - pole z^-1).
func DCBlocker(pole float64) *IIRFilter {
	return NewIIRFilter(Section{B0: 1, B1: -1, A1: -pole})
}

func (f *IIRFilter) Sections() []Section {
	secs := make([]Section, len(f.sections))
	copy(secs, f.sections)
	return secs
}

// Order counts poles across the cascade.
func (f *IIRFilter) Order() (n int) {
	for _, s := range f.sections {
		switch {
		case s.A2 != 0 || s.B2 != 0:
			n += 2
		case s.A1 != 0 || s.B1 != 0:
			n++
		}
	}
	return n
}

func (f *IIRFilter) Feed(x complex128) complex128 {
	for i := range f.sections {
		s, st := &f.sections[i], &f.state[i]
		y := complex(s.B0, 0)*x + st.s1
		st.s1 = complex(s.B1, 0)*x - complex(s.A1, 0)*y + st.s2
		st.s2 = complex(s.B2, 0)*x - complex(s.A2, 0)*y
		x = y
	}
	return x
}

func (f *IIRFilter) FeedReal(x float64) float64 {
	return real(f.Feed(complex(x, 0)))
}

// Block filters src into dst; dst may alias src.
func (f *IIRFilter) Block(dst, src []complex128) []complex128 {
	if dst == nil {
		dst = make([]complex128, len(src))
	}
	for i, x := range src {
		dst[i] = f.Feed(x)
	}
	return dst
}

func (f *IIRFilter) Reset() {
	for i := range f.state {
		f.state[i] = sectionState{}
	}
}

// Settle loads the state a constant input x would leave behind, so the next
// output starts at the steady-state response. Sections with a pole at z=1
// keep their state and hand x unchanged to the sections after them.
func (f *IIRFilter) Settle(x complex128) {
	for i := range f.sections {
		s := &f.sections[i]
		if 1+s.A1+s.A2 == 0 {
			continue
		}
		y := complex(s.dcGain(), 0) * x
		f.state[i].s1 = y - complex(s.B0, 0)*x
		f.state[i].s2 = complex(s.B2, 0)*x - complex(s.A2, 0)*y
		x = y
	}
}

// Response is the cascade frequency response at w radians per sample.
func (f *IIRFilter) Response(w float64) complex128 {
	h := complex(1, 0)
	for _, s := range f.sections {
		h *= s.Response(w)
	}
	return h
}
