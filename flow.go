package rvgpu

import (
	"github.com/xgo-dev/llvm"
)

// AllocLocal creates a stack slot of type t in the entry block of the
// current function and zero-initializes it at the current cursor.
//
// mem2reg only promotes allocas that sit in the entry block, and the caller
// cannot know what control flow will surround the current position, so the
// slot always goes to the entry block. Slots keep their request order:
// each new alloca goes after the allocas already leading the block.
func (ctx *Context) AllocLocal(t llvm.Type, name string) llvm.Value {
	fn := ctx.Builder.GetInsertBlock().Parent()
	entry := fn.EntryBasicBlock()

	inst := entry.FirstInstruction()
	for !inst.IsNil() && !inst.IsAAllocaInst().IsNil() {
		inst = llvm.NextInstruction(inst)
	}
	if inst.IsNil() {
		ctx.allocas.SetInsertPointAtEnd(entry)
	} else {
		ctx.allocas.SetInsertPointBefore(inst)
	}
	slot := ctx.allocas.CreateAlloca(t, name)

	ctx.Builder.CreateStore(llvm.ConstNull(t), slot)
	return slot
}
