package rvgpu

import (
	"fmt"

	"github.com/xgo-dev/llvm"
	"github.com/xgo-dev/rvgpu/nir"
)

// TranslateStats summarizes one translation.
type TranslateStats struct {
	// Blocks is the number of Block Map entries.
	Blocks int
	Phis   int
	// Values is the size of the SSA value map.
	Values int
	// Unsupported lists the intrinsics that were not lowered, in source
	// order. It is only non-empty under PolicyPermissive.
	Unsupported []string
}

type scratchSlot struct {
	ptr llvm.Value
	typ llvm.Type
}

// translator holds the per-function maps. They live exactly as long as one
// Translate call.
type translator struct {
	ctx    *Context
	policy IntrinsicPolicy
	fn     *nir.Function

	// values maps SSA index to the value in its integer view.
	values []llvm.Value
	// starts holds the LLVM block each source block begins in.
	starts []llvm.BasicBlock
	// blocks is the Block Map: source block to the LLVM block that holds
	// its outgoing edges.
	blocks map[*nir.Block]llvm.BasicBlock
	phis   map[*nir.Phi]llvm.Value

	types   map[TypeDesc]*BuildContext
	scratch map[int]scratchSlot

	unsupported []string
}

// Translate lowers the entry point of shader into ctx's entry function,
// creating the function with BuildEntryFunction if needed.
//
// Source blocks that end without a jump are left unterminated; Compile
// closes them before verification. The function is assumed to be valid
// (see nir.Function.Validate). Constructs the backend cannot lower return
// an error wrapping ErrUnsupported and the module must be discarded;
// shared and global derefs panic.
func Translate(ctx *Context, shader *nir.Shader, opt Options) (TranslateStats, error) {
	fn := shader.EntryPoint()
	if fn == nil {
		return TranslateStats{}, unsupportedf("shader %s has no entry point", shader.Name)
	}
	t, err := translateFunction(ctx, fn, opt)
	if err != nil {
		return TranslateStats{}, fmt.Errorf("%s: %w", fn.Name, err)
	}
	return TranslateStats{
		Blocks:      len(t.blocks),
		Phis:        len(t.phis),
		Values:      len(t.values),
		Unsupported: t.unsupported,
	}, nil
}

func translateFunction(ctx *Context, fn *nir.Function, opt Options) (*translator, error) {
	if ctx.fn.Value.IsNil() {
		ctx.BuildEntryFunction()
	}
	fn.ComputePreds()
	n := fn.IndexSSA()

	t := &translator{
		ctx:     ctx,
		policy:  opt.IntrinsicPolicy,
		fn:      fn,
		values:  make([]llvm.Value, n),
		blocks:  make(map[*nir.Block]llvm.BasicBlock),
		phis:    make(map[*nir.Phi]llvm.Value),
		types:   make(map[TypeDesc]*BuildContext),
		scratch: make(map[int]scratchSlot),
	}
	return t, t.run()
}

func (t *translator) run() error {
	b := t.ctx.Builder
	lf := t.ctx.fn.Value
	entry := lf.EntryBasicBlock()

	t.starts = make([]llvm.BasicBlock, len(t.fn.Blocks))
	for i, blk := range t.fn.Blocks {
		if i == 0 && len(blk.Preds) == 0 {
			t.starts[i] = entry
			continue
		}
		t.starts[i] = t.ctx.LLVM.AddBasicBlock(lf, blk.String())
	}

	b.SetInsertPointAtEnd(entry)
	if err := t.allocScratch(); err != nil {
		return err
	}
	if len(t.starts) > 0 && t.starts[0] != entry {
		b.CreateBr(t.starts[0])
	}

	for i, blk := range t.fn.Blocks {
		b.SetInsertPointAtEnd(t.starts[i])
		if err := t.visitBlock(blk); err != nil {
			return err
		}
	}
	return t.resolvePhis()
}

// visitBlock emits phi stubs first, so later instructions of the block and
// back edges can refer to them, then the remaining instructions.
func (t *translator) visitBlock(blk *nir.Block) error {
	for _, phi := range blk.Phis() {
		typ, err := t.valueType(&phi.Def)
		if err != nil {
			return fmt.Errorf("%s: %w", blk, err)
		}
		v := t.ctx.Builder.CreatePHI(typ, "")
		t.phis[phi] = v
		t.values[phi.Def.Index] = v
	}
	for _, ins := range blk.Instrs {
		if _, ok := ins.(*nir.Phi); ok {
			continue
		}
		if err := t.visitInstr(ins); err != nil {
			return fmt.Errorf("%s: %w", blk, err)
		}
	}
	// Only blocks with successors can be phi predecessors.
	if len(blk.Succs) > 0 {
		t.blocks[blk] = t.ctx.Builder.GetInsertBlock()
	}
	return nil
}

func (t *translator) visitInstr(ins nir.Instr) error {
	switch ins := ins.(type) {
	case *nir.LoadConst:
		return t.visitLoadConst(ins)
	case *nir.Undef:
		typ, err := t.valueType(&ins.Def)
		if err != nil {
			return err
		}
		t.values[ins.Def.Index] = llvm.Undef(typ)
		return nil
	case *nir.ALU:
		return t.visitALU(ins)
	case *nir.Intrinsic:
		return t.visitIntrinsic(ins)
	case *nir.Deref:
		return t.visitDeref(ins)
	case *nir.Jump:
		return t.visitJump(ins)
	}
	return unsupportedf("instruction %T", ins)
}

func (t *translator) visitLoadConst(ins *nir.LoadConst) error {
	if ins.Def.BitSize != 32 {
		return unsupportedf("load_const with %d-bit components", ins.Def.BitSize)
	}
	i32 := t.ctx.LLVM.Int32Type()
	lanes := make([]llvm.Value, len(ins.Values))
	for i, v := range ins.Values {
		lanes[i] = llvm.ConstInt(i32, v, false)
	}
	if len(lanes) == 1 {
		t.values[ins.Def.Index] = lanes[0]
	} else {
		t.values[ins.Def.Index] = llvm.ConstVector(lanes, false)
	}
	return nil
}

func (t *translator) visitDeref(ins *nir.Deref) error {
	switch ins.Mode {
	case nir.ModeShared, nir.ModeGlobal:
		assertf("deref of %s variable %s", ins.Mode, ins.Var)
	}
	return unsupportedf("deref of %s variable %s", ins.Mode, ins.Var)
}

func (t *translator) visitJump(j *nir.Jump) error {
	b := t.ctx.Builder
	switch j.Kind {
	case nir.JumpGoto:
		b.CreateBr(t.starts[j.Target.Index])
	case nir.JumpGotoIf:
		cond, err := t.use(j.Cond)
		if err != nil {
			return err
		}
		if j.Cond.NumComponents != 1 {
			return unsupportedf("goto_if on %d-component condition", j.Cond.NumComponents)
		}
		// Both arms to one block is a single CFG edge.
		if j.Target == j.Else {
			b.CreateBr(t.starts[j.Target.Index])
			break
		}
		c := b.CreateICmp(llvm.IntNE, cond, llvm.ConstNull(cond.Type()), "")
		b.CreateCondBr(c, t.starts[j.Target.Index], t.starts[j.Else.Index])
	case nir.JumpReturn:
		b.CreateRetVoid()
	default:
		return unsupportedf("jump kind %d", j.Kind)
	}
	return nil
}

// resolvePhis fills in incoming edges once every block has been emitted.
func (t *translator) resolvePhis() error {
	entry := t.ctx.fn.Value.EntryBasicBlock()
	for i, blk := range t.fn.Blocks {
		for _, phi := range blk.Phis() {
			lv := t.phis[phi]
			// A start block with predecessors is also entered from the
			// entry block, where nothing is defined yet.
			if i == 0 && t.starts[0] != entry {
				lv.AddIncoming([]llvm.Value{llvm.Undef(lv.Type())}, []llvm.BasicBlock{entry})
			}
			for _, src := range phi.Srcs {
				pred, ok := t.blocks[src.Pred]
				if !ok {
					assertf("phi %s: predecessor %s has no recorded end block", &phi.Def, src.Pred)
				}
				v := t.values[src.Src.Index]
				if v.IsNil() {
					return unsupportedf("phi %s: %s is never defined", &phi.Def, src.Src)
				}
				if v.Type() != lv.Type() {
					return unsupportedf("phi %s: incoming %s from %s has mismatched type", &phi.Def, src.Src, src.Pred)
				}
				lv.AddIncoming([]llvm.Value{v}, []llvm.BasicBlock{pred})
			}
		}
	}
	return nil
}

// use returns the value of an operand defined earlier in dominance order.
func (t *translator) use(d *nir.Def) (llvm.Value, error) {
	v := t.values[d.Index]
	if v.IsNil() {
		return llvm.Value{}, unsupportedf("use of %s before its definition", d)
	}
	return v, nil
}

// valueType returns the integer view type of d.
func (t *translator) valueType(d *nir.Def) (llvm.Type, error) {
	switch d.BitSize {
	case 8, 16, 32, 64:
	default:
		return llvm.Type{}, unsupportedf("%d-bit value %s", d.BitSize, d)
	}
	if d.NumComponents == 0 || d.NumComponents > MaxVectorLength {
		return llvm.Type{}, unsupportedf("%d-component value %s", d.NumComponents, d)
	}
	typ := t.ctx.LLVM.IntType(int(d.BitSize))
	if d.NumComponents > 1 {
		typ = llvm.VectorType(typ, int(d.NumComponents))
	}
	return typ, nil
}

// castType reinterprets v as family fam with bits-wide lanes. It is a pure
// bitcast; no numeric conversion happens.
func (t *translator) castType(v llvm.Value, fam nir.Family, bits uint8) llvm.Value {
	c := t.ctx.LLVM
	var elem llvm.Type
	if fam == nir.FamilyFloat {
		switch bits {
		case 16:
			elem = halfType(c)
		case 32:
			elem = c.FloatType()
		case 64:
			elem = c.DoubleType()
		default:
			assertf("no %d-bit float type", bits)
		}
	} else {
		switch bits {
		case 8, 16, 32, 64:
			elem = c.IntType(int(bits))
		default:
			assertf("no %d-bit integer type", bits)
		}
	}
	dst := elem
	if vt := v.Type(); vt.TypeKind() == llvm.VectorTypeKind {
		dst = llvm.VectorType(elem, vt.VectorSize())
	}
	if v.Type() == dst {
		return v
	}
	return t.ctx.Builder.CreateBitCast(v, dst, "")
}

// bld returns the cached build context for a source type.
func (t *translator) bld(fam nir.Family, bits, comps uint8) *BuildContext {
	var desc TypeDesc
	switch fam {
	case nir.FamilyFloat:
		desc = Float(uint(bits), uint(comps))
	case nir.FamilyInt:
		desc = Int(uint(bits), uint(comps))
	default:
		desc = Uint(uint(bits), uint(comps))
	}
	if b, ok := t.types[desc]; ok {
		return b
	}
	b := NewBuildContext(t.ctx, desc)
	t.types[desc] = b
	return b
}
