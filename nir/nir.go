package nir

import "fmt"

// Stage is the pipeline stage a shader runs in.
type Stage uint8

const (
	StageCompute Stage = iota
	StageVertex
	StageFragment
)

var stageNames = [...]string{
	StageCompute:  "compute",
	StageVertex:   "vertex",
	StageFragment: "fragment",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Shader is one compilation unit.
type Shader struct {
	Name      string
	Stage     Stage
	Functions []*Function
}

// EntryPoint returns the function marked as entry point, or the only
// function when none is marked.
func (s *Shader) EntryPoint() *Function {
	for _, fn := range s.Functions {
		if fn.Entry {
			return fn
		}
	}
	if len(s.Functions) == 1 {
		return s.Functions[0]
	}
	return nil
}

// Function is a flat control-flow graph. Blocks[0] is the start block.
type Function struct {
	Name   string
	Entry  bool
	Blocks []*Block

	// SSACount is the number of SSA definitions after IndexSSA.
	SSACount int
}

// Block is a basic block.
type Block struct {
	Index  int
	Instrs []Instr

	// Preds and Succs are filled by Function.ComputePreds.
	Preds []*Block
	Succs []*Block
}

func (b *Block) String() string { return fmt.Sprintf("b%d", b.Index) }

// Phis returns the leading phi instructions of the block.
func (b *Block) Phis() []*Phi {
	var out []*Phi
	for _, ins := range b.Instrs {
		phi, ok := ins.(*Phi)
		if !ok {
			break
		}
		out = append(out, phi)
	}
	return out
}

// Jump returns the trailing jump of the block, if any.
func (b *Block) Jump() *Jump {
	if len(b.Instrs) == 0 {
		return nil
	}
	j, _ := b.Instrs[len(b.Instrs)-1].(*Jump)
	return j
}

// Def is an SSA definition.
type Def struct {
	// Index is dense within the owning function once IndexSSA has run.
	Index         int
	BitSize       uint8
	NumComponents uint8
}

func (d *Def) String() string { return fmt.Sprintf("%%%d", d.Index) }

// Type returns the "BITSxN" spelling used by the text form.
func (d *Def) Type() string { return fmt.Sprintf("%dx%d", d.BitSize, d.NumComponents) }

// Instr is one of *LoadConst, *Undef, *ALU, *Intrinsic, *Deref, *Phi, *Jump.
type Instr interface {
	// Dest returns the SSA definition produced, or nil.
	Dest() *Def
	instr()
}

// LoadConst materializes one literal per component. Values hold raw bits.
type LoadConst struct {
	Def    Def
	Values []uint64
}

// Undef defines an undefined value.
type Undef struct {
	Def Def
}

// ALU is a vector arithmetic, comparison or conversion operation.
type ALU struct {
	Op   ALUOp
	Def  Def
	Srcs []*Def
}

// Intrinsic is a call to a backend intrinsic. Def is nil for intrinsics
// without a result.
type Intrinsic struct {
	Op   IntrinsicOp
	Name string
	Def  *Def
	Srcs []*Def
	Base int
}

// Deref is a variable or pointer dereference.
type Deref struct {
	Def  Def
	Mode VarMode
	Var  string
}

// PhiSrc is one incoming edge of a phi.
type PhiSrc struct {
	Pred *Block
	Src  *Def
}

// Phi merges values from predecessor blocks.
type Phi struct {
	Def  Def
	Srcs []PhiSrc
}

// JumpKind selects the jump flavour.
type JumpKind uint8

const (
	JumpGoto JumpKind = iota
	JumpGotoIf
	JumpReturn
)

// Jump ends a block. JumpGotoIf branches to Target when Cond is non-zero and
// to Else otherwise.
type Jump struct {
	Kind   JumpKind
	Target *Block
	Else   *Block
	Cond   *Def
}

func (i *LoadConst) Dest() *Def { return &i.Def }
func (i *Undef) Dest() *Def     { return &i.Def }
func (i *ALU) Dest() *Def       { return &i.Def }
func (i *Intrinsic) Dest() *Def { return i.Def }
func (i *Deref) Dest() *Def     { return &i.Def }
func (i *Phi) Dest() *Def       { return &i.Def }
func (i *Jump) Dest() *Def      { return nil }

func (*LoadConst) instr() {}
func (*Undef) instr()     {}
func (*ALU) instr()       {}
func (*Intrinsic) instr() {}
func (*Deref) instr()     {}
func (*Phi) instr()       {}
func (*Jump) instr()      {}

// Sources returns the SSA operands read by ins, in operand order.
func Sources(ins Instr) []*Def {
	switch ins := ins.(type) {
	case *ALU:
		return ins.Srcs
	case *Intrinsic:
		return ins.Srcs
	case *Phi:
		out := make([]*Def, len(ins.Srcs))
		for i, s := range ins.Srcs {
			out[i] = s.Src
		}
		return out
	case *Jump:
		if ins.Cond != nil {
			return []*Def{ins.Cond}
		}
	}
	return nil
}
