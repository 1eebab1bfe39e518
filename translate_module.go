package rvgpu

import (
	"fmt"
	"os"

	"github.com/xgo-dev/llvm"
)

// ParseModule parses textual LLVM IR into a module owned by ctx.
func ParseModule(ctx llvm.Context, ir string) (llvm.Module, error) {
	f, err := os.CreateTemp("", "rvgpu-*.ll")
	if err != nil {
		return llvm.Module{}, fmt.Errorf("create temp ir file: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	defer os.Remove(name)

	if err := os.WriteFile(name, []byte(ir), 0644); err != nil {
		return llvm.Module{}, fmt.Errorf("write temp ir file: %w", err)
	}
	buf, err := llvm.NewMemoryBufferFromFile(name)
	if err != nil {
		return llvm.Module{}, fmt.Errorf("open temp ir file: %w", err)
	}
	// NOTE: do not dispose MemoryBuffer here. ParseIR takes ownership and
	// disposing the buffer can crash.
	mod, err := (&ctx).ParseIR(buf)
	if err != nil {
		return llvm.Module{}, fmt.Errorf("%w: parse ir: %v", ErrInvalidModule, err)
	}
	return mod, nil
}
