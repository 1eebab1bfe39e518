package nir

import "fmt"

// ALUOp is an ALU opcode.
type ALUOp uint8

const (
	OpMov ALUOp = iota
	OpVec2
	OpVec3
	OpVec4

	OpFAdd
	OpFSub
	OpFMul
	OpFMin
	OpFMax
	OpFNeg

	OpIAdd
	OpISub
	OpIMul
	OpIMin
	OpIMax
	OpUMin
	OpUMax
	OpINeg
	OpIAnd
	OpIOr
	OpIXor
	OpINot

	OpFLt
	OpFGe
	OpFEq
	OpFNeu
	OpILt
	OpIGe
	OpIEq
	OpINe
	OpULt
	OpUGe

	OpBCSel

	OpF2I32
	OpF2U32
	OpI2F32
	OpU2F32

	numALUOps
)

// Family is how an ALU op interprets its operand bits.
type Family uint8

const (
	FamilyUint Family = iota
	FamilyInt
	FamilyFloat
)

func (f Family) String() string {
	switch f {
	case FamilyFloat:
		return "float"
	case FamilyInt:
		return "int"
	default:
		return "uint"
	}
}

// OpInfo describes an ALU op.
type OpInfo struct {
	Name    string
	NumSrcs int
	// Src is the operand family. For conversions Dst differs from Src.
	Src Family
	Dst Family
}

var aluInfo = [numALUOps]OpInfo{
	OpMov:  {"mov", 1, FamilyUint, FamilyUint},
	OpVec2: {"vec2", 2, FamilyUint, FamilyUint},
	OpVec3: {"vec3", 3, FamilyUint, FamilyUint},
	OpVec4: {"vec4", 4, FamilyUint, FamilyUint},

	OpFAdd: {"fadd", 2, FamilyFloat, FamilyFloat},
	OpFSub: {"fsub", 2, FamilyFloat, FamilyFloat},
	OpFMul: {"fmul", 2, FamilyFloat, FamilyFloat},
	OpFMin: {"fmin", 2, FamilyFloat, FamilyFloat},
	OpFMax: {"fmax", 2, FamilyFloat, FamilyFloat},
	OpFNeg: {"fneg", 1, FamilyFloat, FamilyFloat},

	OpIAdd: {"iadd", 2, FamilyInt, FamilyInt},
	OpISub: {"isub", 2, FamilyInt, FamilyInt},
	OpIMul: {"imul", 2, FamilyInt, FamilyInt},
	OpIMin: {"imin", 2, FamilyInt, FamilyInt},
	OpIMax: {"imax", 2, FamilyInt, FamilyInt},
	OpUMin: {"umin", 2, FamilyUint, FamilyUint},
	OpUMax: {"umax", 2, FamilyUint, FamilyUint},
	OpINeg: {"ineg", 1, FamilyInt, FamilyInt},
	OpIAnd: {"iand", 2, FamilyUint, FamilyUint},
	OpIOr:  {"ior", 2, FamilyUint, FamilyUint},
	OpIXor: {"ixor", 2, FamilyUint, FamilyUint},
	OpINot: {"inot", 1, FamilyUint, FamilyUint},

	OpFLt:  {"flt", 2, FamilyFloat, FamilyUint},
	OpFGe:  {"fge", 2, FamilyFloat, FamilyUint},
	OpFEq:  {"feq", 2, FamilyFloat, FamilyUint},
	OpFNeu: {"fneu", 2, FamilyFloat, FamilyUint},
	OpILt:  {"ilt", 2, FamilyInt, FamilyUint},
	OpIGe:  {"ige", 2, FamilyInt, FamilyUint},
	OpIEq:  {"ieq", 2, FamilyInt, FamilyUint},
	OpINe:  {"ine", 2, FamilyInt, FamilyUint},
	OpULt:  {"ult", 2, FamilyUint, FamilyUint},
	OpUGe:  {"uge", 2, FamilyUint, FamilyUint},

	OpBCSel: {"bcsel", 3, FamilyUint, FamilyUint},

	OpF2I32: {"f2i32", 1, FamilyFloat, FamilyInt},
	OpF2U32: {"f2u32", 1, FamilyFloat, FamilyUint},
	OpI2F32: {"i2f32", 1, FamilyInt, FamilyFloat},
	OpU2F32: {"u2f32", 1, FamilyUint, FamilyFloat},
}

var aluByName = func() map[string]ALUOp {
	m := make(map[string]ALUOp, numALUOps)
	for op, info := range aluInfo {
		m[info.Name] = ALUOp(op)
	}
	return m
}()

// Info returns the static description of op.
func (op ALUOp) Info() OpInfo {
	if op >= numALUOps {
		panic(fmt.Sprintf("nir: invalid ALU op %d", op))
	}
	return aluInfo[op]
}

func (op ALUOp) String() string {
	if op >= numALUOps {
		return fmt.Sprintf("alu(%d)", uint8(op))
	}
	return aluInfo[op].Name
}

// IsCompare reports whether op produces a lane mask.
func (op ALUOp) IsCompare() bool { return op >= OpFLt && op <= OpUGe }

// LookupALUOp resolves an ALU op by its text spelling.
func LookupALUOp(name string) (ALUOp, bool) {
	op, ok := aluByName[name]
	return op, ok
}

// IntrinsicOp identifies an intrinsic. Names the compiler does not know are
// kept as IntrinsicUnknown with their spelling in Intrinsic.Name.
type IntrinsicOp uint8

const (
	IntrinsicUnknown IntrinsicOp = iota
	IntrinsicLoadInvocationIndex
	IntrinsicLoadDescriptorTable
	IntrinsicLoadGlobal
	IntrinsicStoreGlobal
	IntrinsicLoadScratch
	IntrinsicStoreScratch
)

var intrinsicNames = map[IntrinsicOp]string{
	IntrinsicLoadInvocationIndex: "load_invocation_index",
	IntrinsicLoadDescriptorTable: "load_descriptor_table",
	IntrinsicLoadGlobal:          "load_global",
	IntrinsicStoreGlobal:         "store_global",
	IntrinsicLoadScratch:         "load_scratch",
	IntrinsicStoreScratch:        "store_scratch",
}

// LookupIntrinsic resolves an intrinsic spelling.
func LookupIntrinsic(name string) IntrinsicOp {
	for op, n := range intrinsicNames {
		if n == name {
			return op
		}
	}
	return IntrinsicUnknown
}

func (op IntrinsicOp) String() string {
	if n, ok := intrinsicNames[op]; ok {
		return n
	}
	return "unknown"
}

// VarMode is the storage class a deref addresses.
type VarMode uint8

const (
	ModeFunctionTemp VarMode = iota
	ModeShaderTemp
	ModeSSBO
	ModeUBO
	ModeShared
	ModeGlobal
)

var modeNames = [...]string{
	ModeFunctionTemp: "function_temp",
	ModeShaderTemp:   "shader_temp",
	ModeSSBO:         "ssbo",
	ModeUBO:          "ubo",
	ModeShared:       "shared",
	ModeGlobal:       "global",
}

func (m VarMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// LookupVarMode resolves a mode spelling.
func LookupVarMode(name string) (VarMode, bool) {
	for m, n := range modeNames {
		if n == name {
			return VarMode(m), true
		}
	}
	return 0, false
}
