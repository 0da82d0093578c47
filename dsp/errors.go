package dsp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrDesign        = errors.New("filter design")
)

func configErr(component, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", component, ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func designErr(format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrDesign, ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// ConfigErr builds an ErrInvalidConfig error for packages layered on dsp.
func ConfigErr(component, format string, args ...any) error {
	return configErr(component, format, args...)
}
