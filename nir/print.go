package nir

import (
	"fmt"
	"io"
	"strings"
)

// Print writes s in the text form accepted by Parse. Functions must have
// been indexed with IndexSSA.
func Print(w io.Writer, s *Shader) error {
	var b strings.Builder
	fmt.Fprintf(&b, "shader %s %q\n", s.Stage, s.Name)
	for _, fn := range s.Functions {
		b.WriteString("\nfunc ")
		b.WriteString(fn.Name)
		if fn.Entry {
			b.WriteString(" entrypoint")
		}
		b.WriteString(" {\n")
		for _, blk := range fn.Blocks {
			fmt.Fprintf(&b, "%s:\n", blk)
			for _, ins := range blk.Instrs {
				b.WriteString("\t")
				printInstr(&b, ins)
				b.WriteString("\n")
			}
		}
		b.WriteString("}\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the text form of s.
func (s *Shader) String() string {
	var b strings.Builder
	_ = Print(&b, s)
	return b.String()
}

func joinDefs(defs []*Def) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}

func printInstr(b *strings.Builder, ins Instr) {
	switch ins := ins.(type) {
	case *LoadConst:
		vals := make([]string, len(ins.Values))
		for i, v := range ins.Values {
			vals[i] = fmt.Sprintf("0x%x", v)
		}
		fmt.Fprintf(b, "%s = load_const %s (%s)", &ins.Def, ins.Def.Type(), strings.Join(vals, ", "))
	case *Undef:
		fmt.Fprintf(b, "%s = undef %s", &ins.Def, ins.Def.Type())
	case *ALU:
		fmt.Fprintf(b, "%s = %s %s %s", &ins.Def, ins.Op, ins.Def.Type(), joinDefs(ins.Srcs))
	case *Intrinsic:
		if ins.Def != nil {
			fmt.Fprintf(b, "%s = intrinsic %s %s", ins.Def, ins.Name, ins.Def.Type())
		} else {
			fmt.Fprintf(b, "intrinsic %s", ins.Name)
		}
		if len(ins.Srcs) > 0 {
			fmt.Fprintf(b, " (%s)", joinDefs(ins.Srcs))
		}
		if ins.Base != 0 {
			fmt.Fprintf(b, " base=%d", ins.Base)
		}
	case *Deref:
		fmt.Fprintf(b, "%s = deref %s %s", &ins.Def, ins.Def.Type(), ins.Mode)
		if ins.Var != "" {
			fmt.Fprintf(b, " %s", ins.Var)
		}
	case *Phi:
		srcs := make([]string, len(ins.Srcs))
		for i, s := range ins.Srcs {
			srcs[i] = fmt.Sprintf("[%s: %s]", s.Pred, s.Src)
		}
		fmt.Fprintf(b, "%s = phi %s %s", &ins.Def, ins.Def.Type(), strings.Join(srcs, ", "))
	case *Jump:
		switch ins.Kind {
		case JumpGoto:
			fmt.Fprintf(b, "goto %s", ins.Target)
		case JumpGotoIf:
			fmt.Fprintf(b, "goto_if %s, %s, %s", ins.Cond, ins.Target, ins.Else)
		case JumpReturn:
			b.WriteString("return")
		}
	}
}
