package rvgpu

import (
	"github.com/xgo-dev/llvm"
	"github.com/xgo-dev/rvgpu/nir"
)

func (t *translator) visitALU(ins *nir.ALU) error {
	info := ins.Op.Info()
	if len(ins.Srcs) != info.NumSrcs {
		return unsupportedf("%s with %d sources", ins.Op, len(ins.Srcs))
	}
	srcs := make([]llvm.Value, len(ins.Srcs))
	for i, d := range ins.Srcs {
		v, err := t.use(d)
		if err != nil {
			return err
		}
		srcs[i] = v
	}

	def := &ins.Def
	switch ins.Op {
	case nir.OpVec2, nir.OpVec3, nir.OpVec4:
		return t.visitVec(ins, srcs)
	case nir.OpMov:
		t.values[def.Index] = srcs[0]
		return nil
	}

	// Remaining ops are lane-wise over operands of one shape.
	first := ins.Srcs[0]
	if ins.Op == nir.OpBCSel {
		first = ins.Srcs[1]
	}
	for _, d := range ins.Srcs {
		if d.NumComponents != def.NumComponents {
			return unsupportedf("%s: %s has %d components, want %d", ins.Op, d, d.NumComponents, def.NumComponents)
		}
	}
	if err := checkFamilyWidth(info.Src, first.BitSize); err != nil {
		return err
	}
	comps := def.NumComponents
	b := t.ctx.Builder
	src := func(i int, fam nir.Family) llvm.Value {
		return t.castType(srcs[i], fam, ins.Srcs[i].BitSize)
	}

	var res llvm.Value
	switch op := ins.Op; op {
	case nir.OpFAdd, nir.OpFSub, nir.OpFMul, nir.OpFMin, nir.OpFMax,
		nir.OpIAdd, nir.OpISub, nir.OpIMul, nir.OpIMin, nir.OpIMax,
		nir.OpUMin, nir.OpUMax:
		bld := t.bld(info.Src, first.BitSize, comps)
		x, y := src(0, info.Src), src(1, info.Src)
		switch op {
		case nir.OpFAdd, nir.OpIAdd:
			res = Add(bld, x, y)
		case nir.OpFSub, nir.OpISub:
			res = Sub(bld, x, y)
		case nir.OpFMul, nir.OpIMul:
			res = Mul(bld, x, y)
		case nir.OpFMin:
			res = Min(bld, x, y, NaNReturnOther)
		case nir.OpFMax:
			res = Max(bld, x, y, NaNReturnOther)
		case nir.OpIMin, nir.OpUMin:
			res = Min(bld, x, y, NaNUndefined)
		default:
			res = Max(bld, x, y, NaNUndefined)
		}

	case nir.OpFNeg, nir.OpINeg:
		res = Neg(t.bld(info.Src, first.BitSize, comps), src(0, info.Src))

	case nir.OpIAnd:
		res = b.CreateAnd(srcs[0], srcs[1], "")
	case nir.OpIOr:
		res = b.CreateOr(srcs[0], srcs[1], "")
	case nir.OpIXor:
		res = b.CreateXor(srcs[0], srcs[1], "")
	case nir.OpINot:
		res = b.CreateNot(srcs[0], "")

	case nir.OpFLt, nir.OpFGe, nir.OpFEq, nir.OpFNeu,
		nir.OpILt, nir.OpIGe, nir.OpIEq, nir.OpINe, nir.OpULt, nir.OpUGe:
		if def.BitSize != 32 {
			return unsupportedf("%s producing %d-bit booleans", op, def.BitSize)
		}
		bld := t.bld(info.Src, first.BitSize, comps)
		x, y := src(0, info.Src), src(1, info.Src)
		fn, ordered := compareOf(op)
		mask := CompareExt(bld, fn, x, y, ordered)
		res = resizeMask(t.bld(nir.FamilyUint, 32, comps), mask)

	case nir.OpBCSel:
		if ins.Srcs[0].BitSize != 32 || ins.Srcs[2].BitSize != first.BitSize {
			return unsupportedf("bcsel on %s, %s, %s", ins.Srcs[0].Type(), first.Type(), ins.Srcs[2].Type())
		}
		res = Select(t.bld(nir.FamilyUint, first.BitSize, comps), srcs[0], srcs[1], srcs[2])

	case nir.OpF2I32, nir.OpF2U32, nir.OpI2F32, nir.OpU2F32:
		if def.BitSize != 32 {
			return unsupportedf("%s producing %d-bit values", op, def.BitSize)
		}
		dst := t.bld(info.Dst, 32, comps).VecType
		x := src(0, info.Src)
		switch op {
		case nir.OpF2I32:
			res = b.CreateFPToSI(x, dst, "")
		case nir.OpF2U32:
			res = b.CreateFPToUI(x, dst, "")
		case nir.OpI2F32:
			res = b.CreateSIToFP(x, dst, "")
		default:
			res = b.CreateUIToFP(x, dst, "")
		}

	default:
		return unsupportedf("alu op %s", op)
	}

	t.values[def.Index] = t.castType(res, nir.FamilyUint, def.BitSize)
	return nil
}

// visitVec gathers scalar sources into a vector.
func (t *translator) visitVec(ins *nir.ALU, srcs []llvm.Value) error {
	def := &ins.Def
	typ, err := t.valueType(def)
	if err != nil {
		return err
	}
	b := t.ctx.Builder
	i32 := t.ctx.LLVM.Int32Type()
	v := llvm.Undef(typ)
	for i, d := range ins.Srcs {
		if d.NumComponents != 1 || d.BitSize != def.BitSize {
			return unsupportedf("%s: source %s is %s", ins.Op, d, d.Type())
		}
		v = b.CreateInsertElement(v, srcs[i], llvm.ConstInt(i32, uint64(i), false), "")
	}
	t.values[def.Index] = v
	return nil
}

func compareOf(op nir.ALUOp) (fn CompareFunc, ordered bool) {
	switch op {
	case nir.OpFLt, nir.OpILt, nir.OpULt:
		return FuncLess, true
	case nir.OpFGe, nir.OpIGe, nir.OpUGe:
		return FuncGEqual, true
	case nir.OpFEq, nir.OpIEq:
		return FuncEqual, true
	case nir.OpFNeu:
		return FuncNotEqual, false
	case nir.OpINe:
		return FuncNotEqual, true
	}
	assertf("%s is not a comparison", op)
	return
}

func checkFamilyWidth(fam nir.Family, bits uint8) error {
	switch bits {
	case 16, 32, 64:
		return nil
	case 8:
		if fam != nir.FamilyFloat {
			return nil
		}
	}
	return unsupportedf("%d-bit %s operands", bits, fam)
}
