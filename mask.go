package rvgpu

import (
	"github.com/xgo-dev/llvm"
)

// ExecMask carries the per-lane execution predicate of a build context for
// predicated execution under divergent control flow.
type ExecMask struct {
	bld  *BuildContext
	slot llvm.Value
}

// NewExecMask allocates the mask variable and sets it to initial, or to all
// lanes active when initial is nil.
func NewExecMask(bld *BuildContext, initial llvm.Value) *ExecMask {
	m := &ExecMask{bld: bld}
	m.slot = bld.ctx.AllocLocal(bld.IntVecType, "exec_mask")
	if initial.IsNil() {
		initial = llvm.ConstAllOnes(bld.IntVecType)
	}
	bld.b().CreateStore(initial, m.slot)
	return m
}

// Value loads the current mask.
func (m *ExecMask) Value() llvm.Value {
	return m.bld.b().CreateLoad(m.bld.IntVecType, m.slot, "exec_mask")
}

// Update narrows the mask to the lanes also active in mask.
func (m *ExecMask) Update(mask llvm.Value) {
	b := m.bld.b()
	b.CreateStore(b.CreateAnd(m.Value(), mask, ""), m.slot)
}

// Store writes value to dst in the active lanes only.
func (m *ExecMask) Store(value, dst llvm.Value) {
	MaskedStore(m.bld, m.Value(), value, dst)
}

// MaskedStore blends value into the current contents of dst under mask and
// stores the result, leaving inactive lanes of dst unchanged.
func MaskedStore(bld *BuildContext, mask, value, dst llvm.Value) {
	b := bld.b()
	old := b.CreateLoad(value.Type(), dst, "")
	b.CreateStore(Select(bld, mask, value, old), dst)
}
