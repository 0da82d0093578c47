package dump

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/studiofuga/sigutils/radio"
)

// Signal is one named buffer. Real signals keep zero imaginary parts.
type Signal struct {
	Name string
	Rate float64
	Real bool
	Data []complex128
}

func (s Signal) reals() []float64 {
	out := make([]float64, len(s.Data))
	for i, v := range s.Data {
		out[i] = real(v)
	}
	return out
}

// Pool collects the signals produced by one test.
type Pool struct {
	name string
	rate float64
	sigs []Signal
}

// NewPool returns a pool whose signals default to rate samples per second.
func NewPool(name string, rate float64) *Pool { return &Pool{name: name, rate: rate} }

func (p *Pool) Name() string      { return p.name }
func (p *Pool) Signals() []Signal { return p.sigs }

// Add stores a copy of x. A zero rate means the pool's rate.
func (p *Pool) Add(name string, rate float64, x []complex128) {
	if rate <= 0 {
		rate = p.rate
	}
	data := make([]complex128, len(x))
	copy(data, x)
	p.sigs = append(p.sigs, Signal{Name: name, Rate: rate, Data: data})
}

func (p *Pool) AddReal(name string, rate float64, x []float64) {
	if rate <= 0 {
		rate = p.rate
	}
	data := make([]complex128, len(x))
	for i, v := range x {
		data[i] = complex(v, 0)
	}
	p.sigs = append(p.sigs, Signal{Name: name, Rate: rate, Real: true, Data: data})
}

// Write stores the pool under dir and returns the paths written. MAT and
// script formats produce one file per pool; WAV and raw one per signal.
func (p *Pool) Write(dir string, f Format) (paths []string, err error) {
	if f == FormatNone || len(p.sigs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	switch f {
	case FormatMAT:
		path := filepath.Join(dir, p.name+f.Ext())
		return []string{path}, p.writeMat(path)
	case FormatScript:
		path := filepath.Join(dir, p.name+f.Ext())
		out, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		defer out.Close()
		return []string{path}, WriteScript(out, p.sigs)
	case FormatWAV, FormatRaw:
		for _, s := range p.sigs {
			path := filepath.Join(dir, p.name+"_"+s.Name+f.Ext())
			if err := writeIQ(path, s); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
		return paths, nil
	}
	return nil, fmt.Errorf("unknown dump format %d", int(f))
}

func (p *Pool) writeMat(path string) error {
	m, err := CreateMatFile(path)
	if err != nil {
		return err
	}
	for _, s := range p.sigs {
		if s.Real {
			err = m.WriteReal(s.Name, len(s.Data), 1, s.reals())
		} else {
			err = m.WriteComplex(s.Name, len(s.Data), 1, s.Data)
		}
		if err != nil {
			m.Close()
			return err
		}
	}
	return m.Close()
}

func writeIQ(path string, s Signal) error {
	w, closer, err := radio.OpenIQW(path, s.Rate)
	if err != nil {
		return err
	}
	defer closer()
	return w.Write(s.Data)
}
