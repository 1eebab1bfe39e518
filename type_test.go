package rvgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xgo-dev/llvm"
)

func TestTypeDescString(t *testing.T) {
	assert.Equal(t, "f32", Float(32, 1).String())
	assert.Equal(t, "4 x i16", Int(16, 4).String())
	assert.Equal(t, "u8", Uint(8, 1).String())
	assert.Equal(t, "unorm8", TypeDesc{Norm: true, Width: 8, Length: 1}.String())
	assert.Equal(t, "2 x sfixed32", TypeDesc{Fixed: true, Signed: true, Width: 32, Length: 2}.String())
}

func TestMachineTypes(t *testing.T) {
	ctx := newTestContext(t)
	c := ctx.LLVM

	f4 := Float(32, 4)
	assert.Equal(t, "float", f4.ElemType(c).String())
	vt := f4.VecType(c)
	require.Equal(t, llvm.VectorTypeKind, vt.TypeKind())
	assert.Equal(t, 4, vt.VectorSize())
	assert.Equal(t, "<4 x i32>", f4.IntVecType(c).String())
	assert.Equal(t, "i32", f4.IntElemType(c).String())

	for _, desc := range []TypeDesc{Float(16, 1), Float(32, 1), Int(8, 1), Uint(64, 1)} {
		assert.True(t, desc.VecType(c) == desc.ElemType(c), desc.String())
	}
	assert.Equal(t, "half", Float(16, 1).VecType(c).String())
	assert.Equal(t, "double", Float(64, 1).VecType(c).String())
	assert.Equal(t, "i16", Int(16, 1).VecType(c).String())

	assert.Panics(t, func() { Float(24, 1).ElemType(c) })
	assert.Panics(t, func() { Float(32, 0).VecType(c) })
	assert.Panics(t, func() { Uint(32, MaxVectorLength+1).VecType(c) })
}

func TestHalfTypePerContext(t *testing.T) {
	ctx := NewContext(nil)
	h := Float(16, 1).ElemType(ctx.LLVM)
	require.Equal(t, "half", h.String())
	assert.True(t, Float(16, 4).VecType(ctx.LLVM).ElementType() == h)
	_, cached := halfTypes.Load(ctx.LLVM)
	assert.True(t, cached)

	other := newTestContext(t)
	assert.False(t, Float(16, 1).ElemType(other.LLVM) == h)

	lc := ctx.LLVM
	ctx.Dispose()
	_, cached = halfTypes.Load(lc)
	assert.False(t, cached)
}

func TestBuildContextConstants(t *testing.T) {
	ctx := newTestContext(t)
	c := ctx.LLVM

	f := NewBuildContext(ctx, Float(32, 4))
	assert.True(t, f.Undef.IsUndef())
	assert.True(t, f.Zero.IsNull())
	assert.True(t, ConstFloat(c, Float(32, 4), 1.0) == f.One)

	i := NewBuildContext(ctx, Int(32, 1))
	assert.Equal(t, int64(1), i.One.SExtValue())

	unorm := NewBuildContext(ctx, TypeDesc{Norm: true, Width: 8, Length: 4})
	assert.True(t, llvm.ConstAllOnes(unorm.VecType) == unorm.One)

	snorm := NewBuildContext(ctx, TypeDesc{Norm: true, Signed: true, Width: 8, Length: 1})
	assert.Equal(t, int64(127), snorm.One.SExtValue())

	fixed := NewBuildContext(ctx, TypeDesc{Fixed: true, Signed: true, Width: 16, Length: 1})
	assert.Equal(t, int64(256), fixed.One.SExtValue())

	// Constants are uniqued per LLVM context.
	assert.True(t, f.Zero == NewBuildContext(ctx, Float(32, 4)).Zero)
}
