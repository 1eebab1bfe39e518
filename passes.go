package rvgpu

import (
	"fmt"

	"github.com/xgo-dev/llvm"
)

// PassPipeline is the optimization pipeline applied to every shader module.
//
// always-inline runs as a module pass, so all inlining finishes before the
// function pipeline starts. mem2reg and sroa come before CSE and instcombine
// so the entry-block slots from AllocLocal are already scalar values.
const PassPipeline = "always-inline," +
	"function(mem2reg,sroa,loop-sink,loop-mssa(licm),simplifycfg,early-cse,instcombine)"

// RunPasses optimizes mod in place.
func (c *Compiler) RunPasses(mod llvm.Module) error {
	if err := mod.RunPasses(c.pipeline, c.machine, c.passOpts); err != nil {
		return fmt.Errorf("run passes: %w", err)
	}
	return nil
}

// EmitObject runs instruction selection and returns a relocatable object.
// The caller owns the returned buffer.
func (c *Compiler) EmitObject(mod llvm.Module) ([]byte, error) {
	return c.emit(mod, llvm.ObjectFile)
}

// EmitAssembly is EmitObject producing target assembly text.
func (c *Compiler) EmitAssembly(mod llvm.Module) ([]byte, error) {
	return c.emit(mod, llvm.AssemblyFile)
}

func (c *Compiler) emit(mod llvm.Module, ft llvm.CodeGenFileType) ([]byte, error) {
	mb, err := c.machine.EmitToMemoryBuffer(mod, ft)
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	defer mb.Dispose()
	var out objectStream
	out.Write(mb.Bytes())
	return out.Bytes(), nil
}
