package rvgpu

import (
	"fmt"

	"github.com/xgo-dev/llvm"
	"github.com/xgo-dev/rvgpu/nir"
)

type intrinsicOutcome uint8

const (
	intrinsicHandled intrinsicOutcome = iota
	// intrinsicUnsupported means the backend has no lowering; the
	// IntrinsicPolicy decides whether that is fatal.
	intrinsicUnsupported
)

func (t *translator) visitIntrinsic(ins *nir.Intrinsic) error {
	outcome, err := t.lowerIntrinsic(ins)
	if err != nil {
		return fmt.Errorf("%s: %w", ins.Name, err)
	}
	if outcome == intrinsicHandled {
		return nil
	}

	t.unsupported = append(t.unsupported, ins.Name)
	if t.policy == PolicyStrict {
		return unsupportedf("intrinsic %s", ins.Name)
	}
	todo("unhandled intrinsic", "name", ins.Name)
	if ins.Def != nil {
		typ, err := t.valueType(ins.Def)
		if err != nil {
			return err
		}
		t.values[ins.Def.Index] = llvm.Undef(typ)
	}
	return nil
}

func (t *translator) lowerIntrinsic(ins *nir.Intrinsic) (intrinsicOutcome, error) {
	b := t.ctx.Builder
	switch ins.Op {
	case nir.IntrinsicLoadInvocationIndex:
		if err := wantDef(ins, 32, 1); err != nil {
			return 0, err
		}
		t.values[ins.Def.Index] = t.ctx.InvocationIndex()

	case nir.IntrinsicLoadDescriptorTable:
		if err := wantDef(ins, 64, 1); err != nil {
			return 0, err
		}
		t.values[ins.Def.Index] = t.ctx.DescriptorTable()

	case nir.IntrinsicLoadGlobal:
		if ins.Def == nil || len(ins.Srcs) != 1 {
			return 0, unsupportedf("load_global wants a result and an address")
		}
		ptr, err := t.address(ins.Srcs[0])
		if err != nil {
			return 0, err
		}
		typ, err := t.valueType(ins.Def)
		if err != nil {
			return 0, err
		}
		t.values[ins.Def.Index] = b.CreateLoad(typ, ptr, "")

	case nir.IntrinsicStoreGlobal:
		if len(ins.Srcs) != 2 && len(ins.Srcs) != 3 {
			return 0, unsupportedf("store_global wants value, address and optional mask")
		}
		val, err := t.use(ins.Srcs[0])
		if err != nil {
			return 0, err
		}
		ptr, err := t.address(ins.Srcs[1])
		if err != nil {
			return 0, err
		}
		if len(ins.Srcs) == 2 {
			b.CreateStore(val, ptr)
			break
		}
		d, m := ins.Srcs[0], ins.Srcs[2]
		if m.NumComponents != d.NumComponents {
			return 0, unsupportedf("store_global mask %s does not match value %s", m.Type(), d.Type())
		}
		mask, err := t.use(m)
		if err != nil {
			return 0, err
		}
		MaskedStore(t.bld(nir.FamilyUint, d.BitSize, d.NumComponents), mask, val, ptr)

	case nir.IntrinsicLoadScratch:
		slot := t.scratch[ins.Base]
		t.values[ins.Def.Index] = b.CreateLoad(slot.typ, slot.ptr, "")

	case nir.IntrinsicStoreScratch:
		val, err := t.use(ins.Srcs[0])
		if err != nil {
			return 0, err
		}
		b.CreateStore(val, t.scratch[ins.Base].ptr)

	default:
		return intrinsicUnsupported, nil
	}
	return intrinsicHandled, nil
}

// allocScratch creates one stack slot per scratch base used by the
// function. Slots are zeroed at the current cursor, which is the end of the
// entry block, so they hold zero on every path.
func (t *translator) allocScratch() error {
	for _, blk := range t.fn.Blocks {
		for _, ins := range blk.Instrs {
			in, ok := ins.(*nir.Intrinsic)
			if !ok {
				continue
			}
			var d *nir.Def
			switch in.Op {
			case nir.IntrinsicLoadScratch:
				d = in.Def
			case nir.IntrinsicStoreScratch:
				if len(in.Srcs) == 1 {
					d = in.Srcs[0]
				}
			default:
				continue
			}
			if d == nil {
				return unsupportedf("%s without a value", in.Name)
			}
			typ, err := t.valueType(d)
			if err != nil {
				return err
			}
			if slot, ok := t.scratch[in.Base]; ok {
				if slot.typ != typ {
					return unsupportedf("scratch base %d accessed as %s and %s", in.Base, slot.typ, typ)
				}
				continue
			}
			ptr := t.ctx.AllocLocal(typ, fmt.Sprintf("scratch%d", in.Base))
			t.scratch[in.Base] = scratchSlot{ptr: ptr, typ: typ}
		}
	}
	return nil
}

// address converts a 64-bit global address to a pointer.
func (t *translator) address(d *nir.Def) (llvm.Value, error) {
	if d.BitSize != 64 || d.NumComponents != 1 {
		return llvm.Value{}, unsupportedf("address %s is %s, want 64x1", d, d.Type())
	}
	v, err := t.use(d)
	if err != nil {
		return llvm.Value{}, err
	}
	ptrTy := llvm.PointerType(t.ctx.LLVM.Int8Type(), 0)
	return t.ctx.Builder.CreateIntToPtr(v, ptrTy, ""), nil
}

func wantDef(ins *nir.Intrinsic, bits, comps uint8) error {
	if ins.Def == nil || ins.Def.BitSize != bits || ins.Def.NumComponents != comps {
		return unsupportedf("%s must produce %dx%d", ins.Name, bits, comps)
	}
	return nil
}
