package rvgpu

import (
	"os"
	"testing"

	"github.com/xgo-dev/llvm"
)

// testTarget returns the target used by tests. RVGPU_TEST_CPU overrides the
// processor.
func testTarget() Target {
	t := DefaultTarget
	if cpu := os.Getenv("RVGPU_TEST_CPU"); cpu != "" {
		t.CPU = cpu
	}
	return t
}

// requireRISCV skips when the linked LLVM was built without the RISC-V
// backend.
func requireRISCV(t *testing.T) {
	t.Helper()
	initTargets.Do(func() {
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
		llvm.InitializeAllAsmParsers()
		llvm.InitializeAllAsmPrinters()
	})
	if _, err := llvm.GetTargetFromTriple(DefaultTarget.Triple); err != nil {
		t.Skipf("llvm has no %s backend: %v", DefaultTarget.Triple, err)
	}
}

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	requireRISCV(t)
	c, err := NewCompiler(testTarget())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Dispose)
	return c
}

// newTestContext returns a context with the entry function started. It
// needs no target backend.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx := NewContext(nil)
	t.Cleanup(ctx.Dispose)
	ctx.BuildEntryFunction()
	return ctx
}

// opaque returns a non-constant value of bld's vector type.
func opaque(ctx *Context, bld *BuildContext, name string) llvm.Value {
	return ctx.Builder.CreateLoad(bld.VecType, ctx.AllocLocal(bld.VecType, name), name)
}
