// Package nir is the lowered shader IR consumed by the rvgpu compiler.
//
// The IR is the form the driver's NIR pass pipeline hands to the backend:
// scalarized ALU, explicit I/O addressing and resolved descriptor bindings.
// Each function is a flat list of basic blocks. SSA definitions carry only a
// bit size and a component count; the interpretation of the bits (float,
// signed, unsigned) is chosen by each instruction that reads them. Booleans
// are 32-bit lane masks holding 0 or ~0.
//
// # Text form
//
// Parse reads a line-oriented dialect and Print writes it back:
//
//	shader compute "add_one"
//
//	func main entrypoint {
//	b0:
//		%0 = load_const 32x1 (0x3f800000)
//		%1 = intrinsic load_invocation_index 32x1
//		%2 = fadd 32x1 %0, %1
//		goto b1
//	b1:
//		%3 = phi 32x1 [b0: %2], [b1: %4]
//		%4 = fmul 32x1 %3, %3
//		goto_if %4, b1, b2
//	b2:
//		intrinsic store_scratch (%3) base=0
//		return
//	}
//
// Comments start with "//" or ";". Phi instructions must lead their block
// and a jump, when present, must be the last instruction.
package nir
