package rvgpu

import (
	"fmt"
	"sync"

	"github.com/xgo-dev/llvm"
)

// MaxVectorLength is the largest lane count a TypeDesc may describe.
const MaxVectorLength = 16

// TypeDesc describes a scalar or a vector of uniform lanes.
type TypeDesc struct {
	Floating bool
	// Fixed marks a fixed-point integer with Width/2 fractional bits.
	Fixed  bool
	Signed bool
	// Norm marks values normalized to [0, 1] or [-1, 1].
	Norm   bool
	Width  uint
	Length uint
}

// Float returns a floating type descriptor.
func Float(width, length uint) TypeDesc {
	return TypeDesc{Floating: true, Signed: true, Width: width, Length: length}
}

// Int returns a signed integer type descriptor.
func Int(width, length uint) TypeDesc {
	return TypeDesc{Signed: true, Width: width, Length: length}
}

// Uint returns an unsigned integer type descriptor.
func Uint(width, length uint) TypeDesc {
	return TypeDesc{Width: width, Length: length}
}

func (t TypeDesc) String() string {
	kind := "u"
	switch {
	case t.Floating:
		kind = "f"
	case t.Fixed && t.Signed:
		kind = "sfixed"
	case t.Fixed:
		kind = "ufixed"
	case t.Norm && t.Signed:
		kind = "snorm"
	case t.Norm:
		kind = "unorm"
	case t.Signed:
		kind = "i"
	}
	if t.Length == 1 {
		return fmt.Sprintf("%s%d", kind, t.Width)
	}
	return fmt.Sprintf("%d x %s%d", t.Length, kind, t.Width)
}

func (t TypeDesc) check() {
	if t.Length == 0 || t.Length > MaxVectorLength {
		assertf("invalid vector length %d", t.Length)
	}
	if t.Width == 0 {
		assertf("invalid zero width type")
	}
}

// IntView returns the integer type with the same width and length, used to
// reinterpret floating lanes for bit manipulation.
func (t TypeDesc) IntView() TypeDesc {
	return TypeDesc{Signed: t.Signed, Width: t.Width, Length: t.Length}
}

// ElemType returns the scalar machine type.
func (t TypeDesc) ElemType(c llvm.Context) llvm.Type {
	t.check()
	if t.Floating {
		switch t.Width {
		case 16:
			return halfType(c)
		case 32:
			return c.FloatType()
		case 64:
			return c.DoubleType()
		}
		assertf("unsupported float width %d", t.Width)
	}
	return c.IntType(int(t.Width))
}

// halfTypes holds the 16-bit float type of each live LLVM context. The
// bindings have no constructor for it, so it is read back from a parsed
// declaration.
var halfTypes sync.Map // llvm.Context -> llvm.Type

func halfType(c llvm.Context) llvm.Type {
	if t, ok := halfTypes.Load(c); ok {
		return t.(llvm.Type)
	}
	mod, err := ParseModule(c, "@h = external global half\n")
	if err != nil {
		assertf("no half type: %v", err)
	}
	t := mod.NamedGlobal("h").GlobalValueType()
	mod.Dispose()
	halfTypes.Store(c, t)
	return t
}

// VecType returns the vector machine type, which is ElemType for one lane.
func (t TypeDesc) VecType(c llvm.Context) llvm.Type {
	elem := t.ElemType(c)
	if t.Length == 1 {
		return elem
	}
	return llvm.VectorType(elem, int(t.Length))
}

// IntElemType returns the integer scalar type of the same width.
func (t TypeDesc) IntElemType(c llvm.Context) llvm.Type {
	return t.IntView().ElemType(c)
}

// IntVecType returns the integer vector type of the same width and length.
func (t TypeDesc) IntVecType(c llvm.Context) llvm.Type {
	return t.IntView().VecType(c)
}

// ConstInt broadcasts v into every lane of t's integer view.
func ConstInt(c llvm.Context, t TypeDesc, v int64) llvm.Value {
	elem := llvm.ConstInt(t.IntElemType(c), uint64(v), t.Signed)
	return splat(t, elem)
}

// ConstFloat broadcasts f into every lane of a floating t.
func ConstFloat(c llvm.Context, t TypeDesc, f float64) llvm.Value {
	if !t.Floating {
		assertf("ConstFloat on integer type %s", t)
	}
	return splat(t, llvm.ConstFloat(t.ElemType(c), f))
}

func splat(t TypeDesc, elem llvm.Value) llvm.Value {
	if t.Length == 1 {
		return elem
	}
	lanes := make([]llvm.Value, t.Length)
	for i := range lanes {
		lanes[i] = elem
	}
	return llvm.ConstVector(lanes, false)
}

// BuildContext binds a TypeDesc to its machine types and canonical
// constants. Undef, Zero and One are uniqued LLVM constants, so operands can
// be compared against them with ==.
type BuildContext struct {
	ctx  *Context
	Type TypeDesc

	ElemType    llvm.Type
	VecType     llvm.Type
	IntElemType llvm.Type
	IntVecType  llvm.Type

	Undef llvm.Value
	Zero  llvm.Value
	One   llvm.Value
}

// NewBuildContext derives the machine types and constants for t.
func NewBuildContext(ctx *Context, t TypeDesc) *BuildContext {
	c := ctx.LLVM
	bld := &BuildContext{
		ctx:         ctx,
		Type:        t,
		ElemType:    t.ElemType(c),
		VecType:     t.VecType(c),
		IntElemType: t.IntElemType(c),
		IntVecType:  t.IntVecType(c),
	}
	bld.Undef = llvm.Undef(bld.VecType)
	bld.Zero = llvm.ConstNull(bld.VecType)
	bld.One = bld.one()
	return bld
}

func (bld *BuildContext) one() llvm.Value {
	t := bld.Type
	c := bld.ctx.LLVM
	switch {
	case t.Floating:
		return ConstFloat(c, t, 1.0)
	case t.Fixed:
		return ConstInt(c, t, 1<<(t.Width/2))
	case t.Norm && !t.Signed:
		return llvm.ConstAllOnes(bld.VecType)
	case t.Norm:
		return ConstInt(c, t, int64(uint64(1)<<(t.Width-1)-1))
	}
	return ConstInt(c, t, 1)
}

func (bld *BuildContext) b() llvm.Builder { return bld.ctx.Builder }
