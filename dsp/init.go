package dsp

import (
	"sync"
	"sync/atomic"
)

const (
	minTableSize = 16
	maxTableSize = 16384
)

type windowKey struct {
	kind WindowKind
	n    int
}

var (
	initOnce     sync.Once
	windowTables atomic.Pointer[map[windowKey][]float64]
)

// Init precomputes the window tables used by the spectral stages. It is
// idempotent and may run before or after any component is built; components
// compute windows on demand when it was never called.
func Init() {
	initOnce.Do(func() {
		tables := make(map[windowKey][]float64)
		for n := minTableSize; n <= maxTableSize; n *= 2 {
			for _, kind := range []WindowKind{Hann, BlackmanHarris} {
				tables[windowKey{kind, n}] = kind.generate(n)
			}
		}
		windowTables.Store(&tables)
	})
}

// Initialized reports whether Init has completed.
func Initialized() bool { return windowTables.Load() != nil }
