package rvgpu

import (
	"github.com/xgo-dev/llvm"
)

// NaNBehavior selects how Min and Max treat NaN operands.
type NaNBehavior uint8

const (
	// NaNUndefined leaves the result unspecified when an operand is NaN.
	NaNUndefined NaNBehavior = iota
	// NaNReturnOther returns the non-NaN operand when one operand is NaN.
	NaNReturnOther
	// NaNReturnOtherSecondNonNaN is NaNReturnOther for callers that
	// guarantee the second operand is never NaN.
	NaNReturnOtherSecondNonNaN
	// NaNReturnNaNFirstNonNaN returns NaN if the second operand is NaN, for
	// callers that guarantee the first operand is never NaN.
	NaNReturnNaNFirstNonNaN
)

// Add returns a + b.
func Add(bld *BuildContext, a, b llvm.Value) llvm.Value {
	switch {
	case a == bld.Zero:
		return b
	case b == bld.Zero:
		return a
	case a == bld.Undef || b == bld.Undef:
		return bld.Undef
	}
	if bld.Type.Norm {
		todo("saturating add for normalized type", "type", bld.Type.String())
	}
	if bld.Type.Floating {
		return bld.b().CreateFAdd(a, b, "")
	}
	return bld.b().CreateAdd(a, b, "")
}

// Sub returns a - b.
func Sub(bld *BuildContext, a, b llvm.Value) llvm.Value {
	switch {
	case b == bld.Zero:
		return a
	case a == bld.Undef || b == bld.Undef:
		return bld.Undef
	case a == b && !bld.Type.Floating:
		return bld.Zero
	}
	if bld.Type.Norm {
		todo("saturating sub for normalized type", "type", bld.Type.String())
	}
	if bld.Type.Floating {
		return bld.b().CreateFSub(a, b, "")
	}
	return bld.b().CreateSub(a, b, "")
}

// Mul returns a * b. Fixed-point operands are multiplied at double width
// and rescaled by Width/2 fractional bits.
func Mul(bld *BuildContext, a, b llvm.Value) llvm.Value {
	t := bld.Type
	switch {
	case a == bld.Zero || b == bld.Zero:
		return bld.Zero
	case a == bld.One:
		return b
	case b == bld.One:
		return a
	case a == bld.Undef || b == bld.Undef:
		return bld.Undef
	}
	if t.Norm {
		todo("rescaling mul for normalized type", "type", t.String())
	}
	builder := bld.b()
	if t.Floating {
		return builder.CreateFMul(a, b, "")
	}
	if !t.Fixed {
		return builder.CreateMul(a, b, "")
	}

	wide := TypeDesc{Signed: t.Signed, Width: 2 * t.Width, Length: t.Length}
	wideTy := wide.VecType(bld.ctx.LLVM)
	ext := builder.CreateZExt
	if t.Signed {
		ext = builder.CreateSExt
	}
	res := builder.CreateMul(ext(a, wideTy, ""), ext(b, wideTy, ""), "")
	shift := ConstInt(bld.ctx.LLVM, wide, int64(t.Width/2))
	if t.Signed {
		res = builder.CreateAShr(res, shift, "")
	} else {
		res = builder.CreateLShr(res, shift, "")
	}
	return builder.CreateTrunc(res, bld.VecType, "")
}

// Neg returns -a.
func Neg(bld *BuildContext, a llvm.Value) llvm.Value {
	if a == bld.Undef {
		return a
	}
	if bld.Type.Floating {
		return bld.b().CreateFNeg(a, "")
	}
	return bld.b().CreateNeg(a, "")
}

// Min returns the lane-wise minimum of a and b.
func Min(bld *BuildContext, a, b llvm.Value, nan NaNBehavior) llvm.Value {
	if a == bld.Undef || b == bld.Undef {
		return bld.Undef
	}
	if a == b {
		return a
	}
	if bld.Type.Norm && !bld.Type.Signed {
		switch {
		case a == bld.Zero || b == bld.Zero:
			return bld.Zero
		case a == bld.One:
			return b
		case b == bld.One:
			return a
		}
	}
	return minMaxSimple(bld, FuncLess, a, b, nan)
}

// Max returns the lane-wise maximum of a and b.
func Max(bld *BuildContext, a, b llvm.Value, nan NaNBehavior) llvm.Value {
	if a == bld.Undef || b == bld.Undef {
		return bld.Undef
	}
	if a == b {
		return a
	}
	if bld.Type.Norm && !bld.Type.Signed {
		switch {
		case a == bld.One || b == bld.One:
			return bld.One
		case a == bld.Zero:
			return b
		case b == bld.Zero:
			return a
		}
	}
	return minMaxSimple(bld, FuncGreater, a, b, nan)
}

// minMaxSimple selects a when a fn b holds, else b.
func minMaxSimple(bld *BuildContext, fn CompareFunc, a, b llvm.Value, nan NaNBehavior) llvm.Value {
	if !bld.Type.Floating || nan == NaNUndefined {
		return Select(bld, Compare(bld, fn, a, b), a, b)
	}
	switch nan {
	case NaNReturnOther:
		// A NaN in b flips the comparison so that a is picked; a NaN in a
		// fails the ordered compare so that b is picked.
		cond := Compare(bld, fn, a, b)
		cond = bld.b().CreateXor(cond, IsNaN(bld, b), "")
		return Select(bld, cond, a, b)
	case NaNReturnOtherSecondNonNaN:
		return Select(bld, CompareExt(bld, fn, a, b, true), a, b)
	case NaNReturnNaNFirstNonNaN:
		return Select(bld, CompareExt(bld, fn, b, a, false), b, a)
	}
	assertf("unexpected NaN behavior %d", nan)
	return llvm.Value{}
}
