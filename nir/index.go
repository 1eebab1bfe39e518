package nir

import (
	"errors"
	"fmt"
)

// IndexSSA assigns dense indices to every SSA definition in block order and
// returns the count.
func (fn *Function) IndexSSA() int {
	n := 0
	for bi, b := range fn.Blocks {
		b.Index = bi
		for _, ins := range b.Instrs {
			if d := ins.Dest(); d != nil {
				d.Index = n
				n++
			}
		}
	}
	fn.SSACount = n
	return n
}

// ComputePreds rebuilds Preds and Succs from the trailing jumps.
func (fn *Function) ComputePreds() {
	for _, b := range fn.Blocks {
		b.Preds = b.Preds[:0]
		b.Succs = b.Succs[:0]
	}
	link := func(from, to *Block) {
		if to == nil {
			return
		}
		from.Succs = append(from.Succs, to)
		to.Preds = append(to.Preds, from)
	}
	for _, b := range fn.Blocks {
		j := b.Jump()
		if j == nil {
			continue
		}
		switch j.Kind {
		case JumpGoto:
			link(b, j.Target)
		case JumpGotoIf:
			link(b, j.Target)
			if j.Else != j.Target {
				link(b, j.Else)
			}
		}
	}
}

// Validate checks the structural rules the backend relies on without
// re-checking them: phis lead their block, jumps end it, phi sources name
// real predecessors, and every definition is written once and defined
// somewhere in the function.
func (fn *Function) Validate() error {
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("%s: function has no blocks", fn.Name)
	}
	defined := map[*Def]bool{}
	owner := map[*Block]bool{}
	for _, b := range fn.Blocks {
		owner[b] = true
	}
	var errs []error
	for _, b := range fn.Blocks {
		seenBody := false
		for i, ins := range b.Instrs {
			switch ins := ins.(type) {
			case *Phi:
				if seenBody {
					errs = append(errs, fmt.Errorf("%s: phi %s after non-phi instruction", b, &ins.Def))
				}
				for _, s := range ins.Srcs {
					if !isPred(b, s.Pred) {
						errs = append(errs, fmt.Errorf("%s: phi %s source from %s which is not a predecessor", b, &ins.Def, s.Pred))
					}
				}
				if len(ins.Srcs) != len(b.Preds) {
					errs = append(errs, fmt.Errorf("%s: phi %s has %d sources for %d predecessors", b, &ins.Def, len(ins.Srcs), len(b.Preds)))
				}
			case *Jump:
				seenBody = true
				if i != len(b.Instrs)-1 {
					errs = append(errs, fmt.Errorf("%s: jump is not the last instruction", b))
				}
				for _, t := range []*Block{ins.Target, ins.Else} {
					if t != nil && !owner[t] {
						errs = append(errs, fmt.Errorf("%s: jump to foreign block", b))
					}
				}
				if ins.Kind == JumpGotoIf && ins.Cond == nil {
					errs = append(errs, fmt.Errorf("%s: goto_if without condition", b))
				}
			default:
				seenBody = true
			}
			if d := ins.Dest(); d != nil {
				if defined[d] {
					errs = append(errs, fmt.Errorf("%s: %s defined twice", b, d))
				}
				defined[d] = true
				if d.NumComponents == 0 {
					errs = append(errs, fmt.Errorf("%s: %s has zero components", b, d))
				}
			}
		}
	}
	for _, b := range fn.Blocks {
		for _, ins := range b.Instrs {
			for _, s := range Sources(ins) {
				if s == nil || !defined[s] {
					errs = append(errs, fmt.Errorf("%s: use of undefined value", b))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func isPred(b, p *Block) bool {
	for _, q := range b.Preds {
		if q == p {
			return true
		}
	}
	return false
}
