package rvgpu

import (
	"github.com/xgo-dev/llvm"
)

// CompareFunc is a comparison function in the pipe/Vulkan sense.
type CompareFunc uint8

const (
	FuncNever CompareFunc = iota
	FuncLess
	FuncEqual
	FuncLEqual
	FuncGreater
	FuncNotEqual
	FuncGEqual
	FuncAlways
)

var compareNames = [...]string{"never", "less", "equal", "lequal", "greater", "notequal", "gequal", "always"}

func (f CompareFunc) String() string {
	if int(f) < len(compareNames) {
		return compareNames[f]
	}
	return "invalid"
}

// Compare returns a lane mask (all ones or all zeros per lane, in the
// integer view of bld's type) holding func(a, b). Float comparisons are
// ordered.
func Compare(bld *BuildContext, fn CompareFunc, a, b llvm.Value) llvm.Value {
	return CompareExt(bld, fn, a, b, true)
}

// CompareExt is Compare with a choice of ordered or unordered float
// predicates. FuncNever and FuncAlways emit no instructions.
func CompareExt(bld *BuildContext, fn CompareFunc, a, b llvm.Value, ordered bool) llvm.Value {
	switch fn {
	case FuncNever:
		return llvm.ConstNull(bld.IntVecType)
	case FuncAlways:
		return llvm.ConstAllOnes(bld.IntVecType)
	}
	t := bld.Type
	var cond llvm.Value
	if t.Floating {
		cond = bld.b().CreateFCmp(floatPredicate(fn, ordered), a, b, "")
	} else {
		cond = bld.b().CreateICmp(intPredicate(fn, t.Signed), a, b, "")
	}
	return bld.b().CreateSExt(cond, bld.IntVecType, "")
}

func floatPredicate(fn CompareFunc, ordered bool) llvm.FloatPredicate {
	if ordered {
		switch fn {
		case FuncEqual:
			return llvm.FloatOEQ
		case FuncNotEqual:
			return llvm.FloatONE
		case FuncLess:
			return llvm.FloatOLT
		case FuncLEqual:
			return llvm.FloatOLE
		case FuncGreater:
			return llvm.FloatOGT
		case FuncGEqual:
			return llvm.FloatOGE
		}
	} else {
		switch fn {
		case FuncEqual:
			return llvm.FloatUEQ
		case FuncNotEqual:
			return llvm.FloatUNE
		case FuncLess:
			return llvm.FloatULT
		case FuncLEqual:
			return llvm.FloatULE
		case FuncGreater:
			return llvm.FloatUGT
		case FuncGEqual:
			return llvm.FloatUGE
		}
	}
	assertf("unexpected compare func %s", fn)
	return 0
}

func intPredicate(fn CompareFunc, signed bool) llvm.IntPredicate {
	switch fn {
	case FuncEqual:
		return llvm.IntEQ
	case FuncNotEqual:
		return llvm.IntNE
	}
	if signed {
		switch fn {
		case FuncLess:
			return llvm.IntSLT
		case FuncLEqual:
			return llvm.IntSLE
		case FuncGreater:
			return llvm.IntSGT
		case FuncGEqual:
			return llvm.IntSGE
		}
	} else {
		switch fn {
		case FuncLess:
			return llvm.IntULT
		case FuncLEqual:
			return llvm.IntULE
		case FuncGreater:
			return llvm.IntUGT
		case FuncGEqual:
			return llvm.IntUGE
		}
	}
	assertf("unexpected compare func %s", fn)
	return 0
}

// Select returns mask ? a : b per lane. mask is a lane mask as produced by
// Compare.
func Select(bld *BuildContext, mask, a, b llvm.Value) llvm.Value {
	if a == b {
		return a
	}
	c := bld.ctx.LLVM
	builder := bld.b()
	if bld.Type.Length == 1 {
		cond := builder.CreateTrunc(mask, c.Int1Type(), "")
		return builder.CreateSelect(cond, a, b, "")
	}
	if mask.IsConstant() || isSExtFromBool(mask) {
		cond := builder.CreateTrunc(mask, llvm.VectorType(c.Int1Type(), int(bld.Type.Length)), "")
		return builder.CreateSelect(cond, a, b, "")
	}

	// Bitwise blend: (a & mask) | (b & ~mask).
	if bld.Type.Floating {
		a = builder.CreateBitCast(a, bld.IntVecType, "")
		b = builder.CreateBitCast(b, bld.IntVecType, "")
	}
	mask = resizeMask(bld, mask)
	a = builder.CreateAnd(a, mask, "")
	b = builder.CreateAnd(b, builder.CreateNot(mask, ""), "")
	res := builder.CreateOr(a, b, "")
	if bld.Type.Floating {
		res = builder.CreateBitCast(res, bld.VecType, "")
	}
	return res
}

// resizeMask converts a lane mask of another lane width to bld's integer
// view. Lanes are all ones or all zeros, so sext and trunc are both exact.
func resizeMask(bld *BuildContext, mask llvm.Value) llvm.Value {
	mt := mask.Type()
	if mt == bld.IntVecType {
		return mask
	}
	if mt.TypeKind() == llvm.VectorTypeKind {
		mt = mt.ElementType()
	}
	if mt.IntTypeWidth() > int(bld.Type.Width) {
		return bld.b().CreateTrunc(mask, bld.IntVecType, "")
	}
	return bld.b().CreateSExt(mask, bld.IntVecType, "")
}

// isSExtFromBool recognizes masks produced by sign-extending an i1 vector.
func isSExtFromBool(v llvm.Value) bool {
	if v.IsASExtInst().IsNil() {
		return false
	}
	src := v.Operand(0).Type()
	return src.TypeKind() == llvm.VectorTypeKind &&
		src.ElementType().TypeKind() == llvm.IntegerTypeKind &&
		src.ElementType().IntTypeWidth() == 1
}

// IsNaN returns a lane mask that is all ones where x is NaN.
func IsNaN(bld *BuildContext, x llvm.Value) llvm.Value {
	if !bld.Type.Floating {
		assertf("IsNaN on integer type %s", bld.Type)
	}
	builder := bld.b()
	eq := builder.CreateFCmp(llvm.FloatOEQ, x, x, "")
	return builder.CreateSExt(builder.CreateNot(eq, ""), bld.IntVecType, "")
}
