package rvgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xgo-dev/llvm"
)

func TestAllocLocalHoistsToEntry(t *testing.T) {
	ctx := newTestContext(t)
	fn := ctx.Func().Value
	entry := fn.EntryBasicBlock()
	body := ctx.LLVM.AddBasicBlock(fn, "body")
	ctx.Builder.CreateBr(body)
	ctx.Builder.SetInsertPointAtEnd(body)

	i32 := ctx.LLVM.Int32Type()
	a := ctx.AllocLocal(i32, "a")
	b := ctx.AllocLocal(llvm.VectorType(i32, 4), "b")

	// Slots lead the entry block in request order, ahead of the branch.
	first := entry.FirstInstruction()
	assert.True(t, first == a)
	second := llvm.NextInstruction(first)
	assert.True(t, second == b)
	assert.Equal(t, llvm.Br, llvm.NextInstruction(second).InstructionOpcode())
	assert.Equal(t, "a", a.Name())

	// Zero stores stay at the caller's cursor.
	assert.True(t, ctx.Builder.GetInsertBlock() == body)
	st := body.FirstInstruction()
	require.Equal(t, llvm.Store, st.InstructionOpcode())
	assert.True(t, st.Operand(0).IsNull())
	assert.True(t, st.Operand(1) == a)
	st = llvm.NextInstruction(st)
	require.Equal(t, llvm.Store, st.InstructionOpcode())
	assert.True(t, st.Operand(1) == b)
}

func TestAllocLocalEmptyEntry(t *testing.T) {
	ctx := newTestContext(t)
	slot := ctx.AllocLocal(ctx.LLVM.Int64Type(), "x")

	entry := ctx.Func().Value.EntryBasicBlock()
	assert.True(t, entry.FirstInstruction() == slot)
	assert.Equal(t, llvm.Store, entry.LastInstruction().InstructionOpcode())
}
