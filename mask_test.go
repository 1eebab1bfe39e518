package rvgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xgo-dev/llvm"
)

func TestExecMask(t *testing.T) {
	ctx := newTestContext(t)
	bld := NewBuildContext(ctx, Uint(32, 4))
	entry := ctx.Func().Value.EntryBasicBlock()

	m := NewExecMask(bld, llvm.Value{})
	alloca := entry.FirstInstruction()
	require.Equal(t, llvm.Alloca, alloca.InstructionOpcode())
	assert.Equal(t, "exec_mask", alloca.Name())

	first := entry.LastInstruction()
	require.Equal(t, llvm.Store, first.InstructionOpcode())
	assert.True(t, first.Operand(0) == llvm.ConstAllOnes(bld.IntVecType))

	x, y := opaque(ctx, bld, "x"), opaque(ctx, bld, "y")
	m.Update(Compare(bld, FuncLess, x, y))
	upd := entry.LastInstruction()
	require.Equal(t, llvm.Store, upd.InstructionOpcode())
	assert.Equal(t, llvm.And, upd.Operand(0).InstructionOpcode())

	dst := ctx.AllocLocal(bld.VecType, "dst")
	m.Store(x, dst)
	st := entry.LastInstruction()
	require.Equal(t, llvm.Store, st.InstructionOpcode())
	assert.True(t, st.Operand(1) == dst)
	// The loaded mask is not a compare, so lanes are blended.
	assert.Equal(t, llvm.Or, st.Operand(0).InstructionOpcode())
}

func TestMaskedStoreScalar(t *testing.T) {
	ctx := newTestContext(t)
	bld := NewBuildContext(ctx, Uint(32, 1))
	dst := ctx.AllocLocal(bld.VecType, "dst")
	v := opaque(ctx, bld, "v")

	MaskedStore(bld, ctx.InvocationIndex(), v, dst)
	st := ctx.Func().Value.EntryBasicBlock().LastInstruction()
	require.Equal(t, llvm.Store, st.InstructionOpcode())
	sel := st.Operand(0)
	require.Equal(t, llvm.Select, sel.InstructionOpcode())
	assert.True(t, sel.Operand(1) == v)
	assert.Equal(t, llvm.Load, sel.Operand(2).InstructionOpcode())
}
