package nir

// Builder appends instructions to a function under construction.
type Builder struct {
	fn  *Function
	cur *Block
}

// NewBuilder starts an entry-point function with one empty block.
func NewBuilder(name string) *Builder {
	fn := &Function{Name: name, Entry: true}
	b := &Builder{fn: fn}
	b.cur = b.NewBlock()
	return b
}

// Function returns the function being built.
func (b *Builder) Function() *Function { return b.fn }

// Block returns the current block.
func (b *Builder) Block() *Block { return b.cur }

// NewBlock appends an empty block without moving the cursor.
func (b *Builder) NewBlock() *Block {
	blk := &Block{Index: len(b.fn.Blocks)}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

// SetBlock moves the cursor to the end of blk.
func (b *Builder) SetBlock(blk *Block) { b.cur = blk }

func (b *Builder) append(ins Instr) {
	b.cur.Instrs = append(b.cur.Instrs, ins)
}

// LoadConst appends a constant with one component per value.
func (b *Builder) LoadConst(bitSize uint8, values ...uint64) *Def {
	ins := &LoadConst{Def: Def{BitSize: bitSize, NumComponents: uint8(len(values))}, Values: values}
	b.append(ins)
	return &ins.Def
}

// Undef appends an undefined value.
func (b *Builder) Undef(bitSize, components uint8) *Def {
	ins := &Undef{Def: Def{BitSize: bitSize, NumComponents: components}}
	b.append(ins)
	return &ins.Def
}

// ALU appends an ALU op. The component count follows the first source,
// except for the vecN ops which produce one component per source.
func (b *Builder) ALU(op ALUOp, bitSize uint8, srcs ...*Def) *Def {
	n := uint8(1)
	switch op {
	case OpVec2, OpVec3, OpVec4:
		n = uint8(len(srcs))
	default:
		if len(srcs) > 0 {
			n = srcs[len(srcs)-1].NumComponents
		}
	}
	ins := &ALU{Op: op, Def: Def{BitSize: bitSize, NumComponents: n}, Srcs: srcs}
	b.append(ins)
	return &ins.Def
}

// Load appends an intrinsic producing a value.
func (b *Builder) Load(op IntrinsicOp, bitSize, components uint8, base int, srcs ...*Def) *Def {
	ins := &Intrinsic{Op: op, Name: op.String(), Def: &Def{BitSize: bitSize, NumComponents: components}, Srcs: srcs, Base: base}
	b.append(ins)
	return ins.Def
}

// Store appends an intrinsic without a result.
func (b *Builder) Store(op IntrinsicOp, base int, srcs ...*Def) *Intrinsic {
	ins := &Intrinsic{Op: op, Name: op.String(), Srcs: srcs, Base: base}
	b.append(ins)
	return ins
}

// Call appends an intrinsic by name, which may be unknown to the backend.
func (b *Builder) Call(name string, def *Def, srcs ...*Def) *Intrinsic {
	ins := &Intrinsic{Op: LookupIntrinsic(name), Name: name, Def: def, Srcs: srcs}
	b.append(ins)
	return ins
}

// Deref appends a variable dereference.
func (b *Builder) Deref(mode VarMode, bitSize uint8, name string) *Def {
	ins := &Deref{Def: Def{BitSize: bitSize, NumComponents: 1}, Mode: mode, Var: name}
	b.append(ins)
	return &ins.Def
}

// Phi inserts a phi after the existing phis of the current block. Sources
// are added with AddSrc once the incoming values exist.
func (b *Builder) Phi(bitSize, components uint8) *Phi {
	phi := &Phi{Def: Def{BitSize: bitSize, NumComponents: components}}
	n := len(b.cur.Phis())
	b.cur.Instrs = append(b.cur.Instrs, nil)
	copy(b.cur.Instrs[n+1:], b.cur.Instrs[n:])
	b.cur.Instrs[n] = phi
	return phi
}

// AddSrc records an incoming edge.
func (p *Phi) AddSrc(pred *Block, src *Def) {
	p.Srcs = append(p.Srcs, PhiSrc{Pred: pred, Src: src})
}

// Goto ends the current block with an unconditional jump.
func (b *Builder) Goto(target *Block) {
	b.append(&Jump{Kind: JumpGoto, Target: target})
}

// GotoIf ends the current block with a conditional jump.
func (b *Builder) GotoIf(cond *Def, target, els *Block) {
	b.append(&Jump{Kind: JumpGotoIf, Cond: cond, Target: target, Else: els})
}

// Return ends the current block with a return.
func (b *Builder) Return() {
	b.append(&Jump{Kind: JumpReturn})
}

// Finish indexes the SSA values, links the blocks and returns the function.
func (b *Builder) Finish() *Function {
	b.fn.ComputePreds()
	b.fn.IndexSSA()
	return b.fn
}
