package rvgpu

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported marks source constructs the backend does not lower.
	// The partially built module must be discarded.
	ErrUnsupported = errors.New("rvgpu: unsupported")

	// ErrTarget reports a failure to set up the target machine.
	ErrTarget = errors.New("rvgpu: target setup failed")

	// ErrInvalidModule reports a module rejected by the LLVM verifier.
	ErrInvalidModule = errors.New("rvgpu: invalid module")
)

func unsupportedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

func targetf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTarget, fmt.Sprintf(format, args...))
}

// assertf aborts on conditions that can only come from a broken caller.
func assertf(format string, args ...any) {
	panic(fmt.Sprintf("rvgpu: "+format, args...))
}
