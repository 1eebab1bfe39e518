package rvgpu

import (
	"bytes"
	"debug/elf"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStreamGrowth(t *testing.T) {
	var s objectStream
	n, err := s.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, minStreamCap, cap(s.buf))

	s.Write(make([]byte, minStreamCap-10))
	assert.Equal(t, minStreamCap, cap(s.buf))

	s.Write([]byte{1})
	assert.Equal(t, minStreamCap+minStreamCap/3, cap(s.buf))
	assert.Equal(t, "0123456789", string(s.Bytes()[:10]))
	assert.Len(t, s.Bytes(), minStreamCap+1)

	// A large write grows past the 4/3 step in one go.
	s.Write(make([]byte, 10*minStreamCap))
	assert.GreaterOrEqual(t, cap(s.buf), 11*minStreamCap+1)
	assert.Len(t, s.Bytes(), 11*minStreamCap+1)
}

func TestObjectStreamOverflowPanics(t *testing.T) {
	s := objectStream{pos: math.MaxInt - 1}
	assert.Panics(t, func() { s.Write([]byte("abcd")) })
}

func TestEmitObjectIsRISCV(t *testing.T) {
	requireRISCV(t)
	obj, err := Compile(addShader(), Options{Manager: testManager(t), Verify: true, KeepIR: true})
	require.NoError(t, err)
	assert.Equal(t, "add", obj.Name)
	assert.Equal(t, EmitObject, obj.Kind)

	f, err := elf.NewFile(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, elf.EM_RISCV, f.Machine)
	assert.Equal(t, elf.ELFCLASS64, f.Class)
	assert.Equal(t, elf.ET_REL, f.Type)

	syms, err := f.Symbols()
	require.NoError(t, err)
	var found bool
	for _, sym := range syms {
		if sym.Name == EntryName && elf.ST_TYPE(sym.Info) == elf.STT_FUNC {
			found = true
		}
	}
	assert.True(t, found, "no %s symbol", EntryName)

	// The constant add is folded by the pipeline.
	assert.Contains(t, obj.IR, "store i32 1077936128")
	assert.NotContains(t, obj.IR, " phi ")
}

func TestPipelinePromotesScratch(t *testing.T) {
	requireRISCV(t)
	s := parseShader(t, loopShader)
	obj, err := Compile(s, Options{Manager: testManager(t), Verify: true, Emit: EmitLLVM})
	require.NoError(t, err)
	ir := string(obj.Data)
	assert.Equal(t, obj.IR, ir)
	assert.NotContains(t, ir, "alloca")
	assert.Contains(t, ir, "phi")
	assert.Contains(t, ir, `target triple = "riscv64-unknown-linux-gnu"`)
}

func TestEmitAssembly(t *testing.T) {
	requireRISCV(t)
	obj, err := Compile(addShader(), Options{Manager: testManager(t), Emit: EmitAssembly})
	require.NoError(t, err)
	asm := string(obj.Data)
	assert.True(t, strings.Contains(asm, "main:"), asm)
	assert.Contains(t, asm, "ret")
}

func TestRunPassesKeepsEntryLayout(t *testing.T) {
	c := newTestCompiler(t)
	ctx := NewContext(c)
	defer ctx.Dispose()
	ctx.BuildEntryFunction()
	slot := ctx.AllocLocal(ctx.LLVM.Int32Type(), "x")
	ctx.Builder.CreateStore(ctx.InvocationIndex(), slot)
	ctx.Builder.CreateRetVoid()

	require.NoError(t, c.RunPasses(ctx.Module))
	assert.NotContains(t, ctx.Module.String(), "alloca")
	assert.Equal(t, c.DataLayout(), ctx.Module.DataLayout())
}

// testManager returns a manager disposed with the test.
func testManager(t *testing.T) *Manager {
	m := NewManager()
	t.Cleanup(m.Close)
	return m
}
