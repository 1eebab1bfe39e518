package rvgpu

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xgo-dev/llvm"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetLogger(nil) })
	return &buf
}

func TestArithShortcuts(t *testing.T) {
	ctx := newTestContext(t)
	for _, desc := range []TypeDesc{Float(32, 4), Float(64, 1), Int(32, 1), Uint(16, 8)} {
		t.Run(desc.String(), func(t *testing.T) {
			bld := NewBuildContext(ctx, desc)
			x := opaque(ctx, bld, "x")

			assert.True(t, Add(bld, x, bld.Zero) == x)
			assert.True(t, Add(bld, bld.Zero, x) == x)
			assert.True(t, Add(bld, x, bld.Undef) == bld.Undef)
			assert.True(t, Sub(bld, x, bld.Zero) == x)
			assert.True(t, Sub(bld, bld.Undef, x) == bld.Undef)
			assert.True(t, Mul(bld, x, bld.One) == x)
			assert.True(t, Mul(bld, bld.One, x) == x)
			assert.True(t, Mul(bld, bld.Zero, x) == bld.Zero)
			// Zero wins over undef.
			assert.True(t, Mul(bld, bld.Undef, bld.Zero) == bld.Zero)
			assert.True(t, Neg(bld, bld.Undef) == bld.Undef)
		})
	}
}

func TestArithOpcodes(t *testing.T) {
	ctx := newTestContext(t)

	f := NewBuildContext(ctx, Float(32, 4))
	a, b := opaque(ctx, f, "a"), opaque(ctx, f, "b")
	assert.Equal(t, llvm.FAdd, Add(f, a, b).InstructionOpcode())
	assert.Equal(t, llvm.FSub, Sub(f, a, b).InstructionOpcode())
	assert.Equal(t, llvm.FMul, Mul(f, a, b).InstructionOpcode())
	neg := Neg(f, a)
	assert.False(t, neg == a)
	assert.Contains(t, neg.String(), "fneg")
	// x - x is not zero for NaN or infinity.
	assert.Equal(t, llvm.FSub, Sub(f, a, a).InstructionOpcode())

	i := NewBuildContext(ctx, Int(32, 1))
	x, y := opaque(ctx, i, "x"), opaque(ctx, i, "y")
	assert.Equal(t, llvm.Add, Add(i, x, y).InstructionOpcode())
	assert.Equal(t, llvm.Mul, Mul(i, x, y).InstructionOpcode())
	assert.Equal(t, llvm.Sub, Neg(i, x).InstructionOpcode())
	assert.True(t, Sub(i, x, x) == i.Zero)
}

func TestMulFixed(t *testing.T) {
	ctx := newTestContext(t)
	for _, tc := range []struct {
		signed bool
		ext    llvm.Opcode
		shift  llvm.Opcode
	}{
		{true, llvm.SExt, llvm.AShr},
		{false, llvm.ZExt, llvm.LShr},
	} {
		bld := NewBuildContext(ctx, TypeDesc{Fixed: true, Signed: tc.signed, Width: 16, Length: 4})
		a, b := opaque(ctx, bld, "a"), opaque(ctx, bld, "b")

		res := Mul(bld, a, b)
		require.Equal(t, llvm.Trunc, res.InstructionOpcode())
		shr := res.Operand(0)
		require.Equal(t, tc.shift, shr.InstructionOpcode())
		assert.Equal(t, "<4 x i32>", shr.Type().String())
		mul := shr.Operand(0)
		require.Equal(t, llvm.Mul, mul.InstructionOpcode())
		assert.Equal(t, tc.ext, mul.Operand(0).InstructionOpcode())
	}
}

func TestNormArithLogsTODO(t *testing.T) {
	buf := captureLog(t)
	ctx := newTestContext(t)
	bld := NewBuildContext(ctx, TypeDesc{Norm: true, Width: 8, Length: 4})
	a, b := opaque(ctx, bld, "a"), opaque(ctx, bld, "b")

	assert.Equal(t, llvm.Add, Add(bld, a, b).InstructionOpcode())
	assert.Equal(t, llvm.Mul, Mul(bld, a, b).InstructionOpcode())
	assert.Contains(t, buf.String(), "TODO: saturating add")
	assert.Contains(t, buf.String(), "TODO: rescaling mul")
}

func TestMinMaxNorm(t *testing.T) {
	ctx := newTestContext(t)
	bld := NewBuildContext(ctx, TypeDesc{Norm: true, Width: 8, Length: 4})
	x := opaque(ctx, bld, "x")

	assert.True(t, Min(bld, x, bld.Zero, NaNUndefined) == bld.Zero)
	assert.True(t, Min(bld, bld.One, x, NaNUndefined) == x)
	assert.True(t, Max(bld, x, bld.One, NaNUndefined) == bld.One)
	assert.True(t, Max(bld, bld.Zero, x, NaNUndefined) == x)
	assert.True(t, Max(bld, x, x, NaNUndefined) == x)
	assert.True(t, Min(bld, bld.Undef, x, NaNUndefined) == bld.Undef)
}

// cmpOf unwraps select(trunc(sext(cmp))) down to the compare.
func cmpOf(t *testing.T, sel llvm.Value) llvm.Value {
	t.Helper()
	require.Equal(t, llvm.Select, sel.InstructionOpcode())
	cond := sel.Operand(0)
	require.Equal(t, llvm.Trunc, cond.InstructionOpcode())
	ext := cond.Operand(0)
	require.Equal(t, llvm.SExt, ext.InstructionOpcode())
	return ext.Operand(0)
}

func TestMinMaxNaN(t *testing.T) {
	ctx := newTestContext(t)
	bld := NewBuildContext(ctx, Float(32, 1))
	a, b := opaque(ctx, bld, "a"), opaque(ctx, bld, "b")

	res := Min(bld, a, b, NaNUndefined)
	assert.Equal(t, llvm.FloatOLT, cmpOf(t, res).FloatPredicate())
	assert.True(t, res.Operand(1) == a)

	res = Max(bld, a, b, NaNReturnOtherSecondNonNaN)
	assert.Equal(t, llvm.FloatOGT, cmpOf(t, res).FloatPredicate())

	res = Max(bld, a, b, NaNReturnNaNFirstNonNaN)
	cmp := cmpOf(t, res)
	assert.Equal(t, llvm.FloatUGT, cmp.FloatPredicate())
	assert.True(t, cmp.Operand(0) == b)
	assert.True(t, res.Operand(1) == b)
	assert.True(t, res.Operand(2) == a)

	res = Min(bld, a, b, NaNReturnOther)
	require.Equal(t, llvm.Select, res.InstructionOpcode())
	xor := res.Operand(0).Operand(0)
	assert.Equal(t, llvm.Xor, xor.InstructionOpcode())

	i := NewBuildContext(ctx, Uint(32, 1))
	x, y := opaque(ctx, i, "x"), opaque(ctx, i, "y")
	assert.Equal(t, llvm.IntUGT, cmpOf(t, Max(i, x, y, NaNReturnOther)).IntPredicate())
	s := NewBuildContext(ctx, Int(32, 1))
	p, q := opaque(ctx, s, "p"), opaque(ctx, s, "q")
	assert.Equal(t, llvm.IntSLT, cmpOf(t, Min(s, p, q, NaNUndefined)).IntPredicate())
}
