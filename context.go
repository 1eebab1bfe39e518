package rvgpu

import (
	"github.com/xgo-dev/llvm"
)

// EntryName is the symbol of the shader entry point.
const EntryName = "main"

// Context owns the LLVM state of one shader compilation: the LLVM context,
// the module being built and the instruction cursor. It is not safe for
// concurrent use.
type Context struct {
	LLVM    llvm.Context
	Module  llvm.Module
	Builder llvm.Builder

	// allocas is a second cursor used only to place stack slots in the
	// entry block, so Builder never has to be moved and restored.
	allocas llvm.Builder

	fn Function
}

// Function is a function value together with its signature type, which
// opaque pointers no longer carry.
type Function struct {
	Value llvm.Value
	Type  llvm.Type
}

// NewContext creates a fresh LLVM context and module. With a non-nil
// compiler the module's triple and data layout are taken from its target
// machine; codegen must see exactly the layout the IR was built against.
// The builder's insertion point is unset until a function body is started.
func NewContext(c *Compiler) *Context {
	lc := llvm.NewContext()
	ctx := &Context{
		LLVM:    lc,
		Module:  lc.NewModule("rvgpu"),
		Builder: lc.NewBuilder(),
		allocas: lc.NewBuilder(),
	}
	if c != nil {
		ctx.Module.SetTarget(c.Triple())
		ctx.Module.SetDataLayout(c.DataLayout())
	}
	return ctx
}

// Dispose releases the builders, the module and the LLVM context.
func (ctx *Context) Dispose() {
	ctx.allocas.Dispose()
	ctx.Builder.Dispose()
	ctx.Module.Dispose()
	halfTypes.Delete(ctx.LLVM)
	ctx.LLVM.Dispose()
}

// EntrySignature returns void(i64 descriptor table, i32 invocation index).
func (ctx *Context) EntrySignature() llvm.Type {
	c := ctx.LLVM
	return llvm.FunctionType(c.VoidType(), []llvm.Type{c.Int64Type(), c.Int32Type()}, false)
}

// BuildEntryFunction declares the shader entry point, appends its entry
// block and positions the cursor there.
func (ctx *Context) BuildEntryFunction() Function {
	ft := ctx.EntrySignature()
	fv := llvm.AddFunction(ctx.Module, EntryName, ft)
	fv.Param(0).SetName("descriptor_table")
	fv.Param(1).SetName("invocation_index")
	entry := ctx.LLVM.AddBasicBlock(fv, "entry")
	ctx.Builder.SetInsertPointAtEnd(entry)
	ctx.fn = Function{Value: fv, Type: ft}
	return ctx.fn
}

// Func returns the function created by BuildEntryFunction.
func (ctx *Context) Func() Function { return ctx.fn }

// DescriptorTable returns the descriptor table parameter of the entry point.
func (ctx *Context) DescriptorTable() llvm.Value { return ctx.fn.Value.Param(0) }

// InvocationIndex returns the invocation index parameter of the entry point.
func (ctx *Context) InvocationIndex() llvm.Value { return ctx.fn.Value.Param(1) }
