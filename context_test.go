package rvgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryFunction(t *testing.T) {
	ctx := NewContext(nil)
	defer ctx.Dispose()
	assert.Empty(t, ctx.Module.Target())

	fn := ctx.BuildEntryFunction()
	assert.Equal(t, EntryName, fn.Value.Name())
	assert.Equal(t, "void (i64, i32)", fn.Type.String())
	require.Equal(t, 2, fn.Value.ParamsCount())
	assert.Equal(t, "descriptor_table", ctx.DescriptorTable().Name())
	assert.Equal(t, "invocation_index", ctx.InvocationIndex().Name())

	entry := fn.Value.EntryBasicBlock()
	assert.True(t, ctx.Builder.GetInsertBlock() == entry)
	assert.True(t, entry.FirstInstruction().IsNil())
	assert.True(t, ctx.Func().Value == fn.Value)
}

func TestContextTargetLayout(t *testing.T) {
	c := newTestCompiler(t)
	ctx := NewContext(c)
	defer ctx.Dispose()

	assert.Equal(t, DefaultTarget.Triple, ctx.Module.Target())
	assert.Equal(t, c.DataLayout(), ctx.Module.DataLayout())
	assert.Contains(t, c.DataLayout(), "p:64:64")
}
