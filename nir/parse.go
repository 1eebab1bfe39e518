package nir

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse reads a shader in the text form described in the package
// documentation. name is used when the source has no shader header.
func Parse(name, src string) (*Shader, error) {
	p := &parser{shader: &Shader{Name: name, Stage: StageCompute}}
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		p.lineno++
		if err := p.line(sc.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", p.lineno, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if p.fn != nil {
		return nil, fmt.Errorf("line %d: unterminated func %s", p.lineno, p.fn.Name)
	}
	if len(p.shader.Functions) == 0 {
		return nil, errors.New("no func found")
	}
	return p.shader, nil
}

type parser struct {
	shader *Shader
	lineno int

	// per-function state
	fn     *Function
	cur    *Block
	blocks map[string]*Block
	defs   map[string]*Def
	fixups []fixup
}

type fixup struct {
	lineno  int
	resolve func() error
}

func (p *parser) line(raw string) error {
	if i := strings.Index(raw, "//"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil
	}
	fields := strings.Fields(line)
	if p.fn == nil {
		switch fields[0] {
		case "shader":
			return p.header(fields)
		case "func":
			return p.funcStart(fields)
		}
		return fmt.Errorf("unexpected %q outside func", fields[0])
	}
	if line == "}" {
		return p.funcEnd()
	}
	if strings.HasSuffix(line, ":") && len(fields) == 1 {
		blk := p.block(strings.TrimSuffix(line, ":"))
		if blk.Index >= 0 {
			return fmt.Errorf("block %s defined twice", fields[0])
		}
		blk.Index = len(p.fn.Blocks)
		p.fn.Blocks = append(p.fn.Blocks, blk)
		p.cur = blk
		return nil
	}
	if p.cur == nil {
		return errors.New("instruction before first block label")
	}
	if p.cur.Jump() != nil {
		return fmt.Errorf("instruction after jump in %s", p.cur)
	}
	ins, err := p.instr(line)
	if err != nil {
		return err
	}
	p.cur.Instrs = append(p.cur.Instrs, ins)
	return nil
}

func (p *parser) header(fields []string) error {
	if len(fields) < 2 {
		return errors.New("shader header expects a stage")
	}
	found := false
	for s, n := range stageNames {
		if n == fields[1] {
			p.shader.Stage = Stage(s)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("unknown stage %q", fields[1])
	}
	if len(fields) > 2 {
		name, err := strconv.Unquote(strings.Join(fields[2:], " "))
		if err != nil {
			return fmt.Errorf("shader name: %w", err)
		}
		p.shader.Name = name
	}
	return nil
}

func (p *parser) funcStart(fields []string) error {
	if len(fields) < 3 || fields[len(fields)-1] != "{" {
		return errors.New("expected: func NAME [entrypoint] {")
	}
	p.fn = &Function{Name: fields[1]}
	for _, f := range fields[2 : len(fields)-1] {
		if f != "entrypoint" {
			return fmt.Errorf("unknown func attribute %q", f)
		}
		p.fn.Entry = true
	}
	p.cur = nil
	p.blocks = map[string]*Block{}
	p.defs = map[string]*Def{}
	p.fixups = nil
	return nil
}

func (p *parser) funcEnd() error {
	for name, b := range p.blocks {
		if b.Index < 0 {
			return fmt.Errorf("reference to undefined block %s", name)
		}
	}
	for _, f := range p.fixups {
		if err := f.resolve(); err != nil {
			return fmt.Errorf("line %d: %w", f.lineno, err)
		}
	}
	fn := p.fn
	fn.ComputePreds()
	fn.IndexSSA()
	if err := fn.Validate(); err != nil {
		return err
	}
	p.shader.Functions = append(p.shader.Functions, fn)
	p.fn = nil
	return nil
}

func (p *parser) block(name string) *Block {
	if b, ok := p.blocks[name]; ok {
		return b
	}
	b := &Block{Index: -1}
	p.blocks[name] = b
	return b
}

// use records a reference to an SSA name which may be defined later.
func (p *parser) use(name string, slot **Def) error {
	if !strings.HasPrefix(name, "%") {
		return fmt.Errorf("expected SSA value, got %q", name)
	}
	p.fixups = append(p.fixups, fixup{lineno: p.lineno, resolve: func() error {
		d, ok := p.defs[name]
		if !ok {
			return fmt.Errorf("undefined value %s", name)
		}
		*slot = d
		return nil
	}})
	return nil
}

func (p *parser) define(name string, d *Def) error {
	if !strings.HasPrefix(name, "%") {
		return fmt.Errorf("expected SSA name, got %q", name)
	}
	if _, ok := p.defs[name]; ok {
		return fmt.Errorf("%s defined twice", name)
	}
	p.defs[name] = d
	return nil
}

func splitOperands(s string) []string {
	r := strings.NewReplacer("(", " ", ")", " ", "[", " ", "]", " ", ",", " ")
	return strings.Fields(r.Replace(s))
}

func parseType(tok string) (bits, comps uint8, err error) {
	b, c, ok := strings.Cut(tok, "x")
	if !ok {
		c = "1"
	}
	bv, err := strconv.ParseUint(b, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("bad type %q", tok)
	}
	cv, err := strconv.ParseUint(c, 10, 8)
	if err != nil || cv == 0 {
		return 0, 0, fmt.Errorf("bad type %q", tok)
	}
	return uint8(bv), uint8(cv), nil
}

func isType(tok string) bool {
	if tok == "" || tok[0] < '0' || tok[0] > '9' {
		return false
	}
	_, _, err := parseType(tok)
	return err == nil
}

func (p *parser) instr(line string) (Instr, error) {
	dest := ""
	if lhs, rhs, ok := strings.Cut(line, "="); ok && strings.HasPrefix(strings.TrimSpace(lhs), "%") {
		dest = strings.TrimSpace(lhs)
		line = strings.TrimSpace(rhs)
	}
	toks := splitOperands(line)
	if len(toks) == 0 {
		return nil, errors.New("empty instruction")
	}
	op, args := toks[0], toks[1:]

	withDef := func(d *Def) error {
		if dest == "" {
			return fmt.Errorf("%s needs a destination", op)
		}
		return p.define(dest, d)
	}
	typed := func() (uint8, uint8, error) {
		if len(args) == 0 {
			return 0, 0, fmt.Errorf("%s expects a type", op)
		}
		bits, comps, err := parseType(args[0])
		args = args[1:]
		return bits, comps, err
	}

	switch op {
	case "load_const":
		bits, comps, err := typed()
		if err != nil {
			return nil, err
		}
		if len(args) != int(comps) {
			return nil, fmt.Errorf("load_const %dx%d has %d values", bits, comps, len(args))
		}
		ins := &LoadConst{Def: Def{BitSize: bits, NumComponents: comps}}
		for _, a := range args {
			v, err := parseLiteral(a, bits)
			if err != nil {
				return nil, err
			}
			ins.Values = append(ins.Values, v)
		}
		return ins, withDef(&ins.Def)
	case "undef":
		bits, comps, err := typed()
		if err != nil {
			return nil, err
		}
		ins := &Undef{Def: Def{BitSize: bits, NumComponents: comps}}
		return ins, withDef(&ins.Def)
	case "phi":
		bits, comps, err := typed()
		if err != nil {
			return nil, err
		}
		if len(args)%2 != 0 {
			return nil, errors.New("phi sources must be [bN: %v] pairs")
		}
		ins := &Phi{Def: Def{BitSize: bits, NumComponents: comps}}
		ins.Srcs = make([]PhiSrc, len(args)/2)
		for i := range ins.Srcs {
			label := strings.TrimSuffix(args[2*i], ":")
			ins.Srcs[i].Pred = p.block(label)
			if err := p.use(args[2*i+1], &ins.Srcs[i].Src); err != nil {
				return nil, err
			}
		}
		return ins, withDef(&ins.Def)
	case "deref":
		bits, comps, err := typed()
		if err != nil {
			return nil, err
		}
		if len(args) < 1 {
			return nil, errors.New("deref expects a mode")
		}
		mode, ok := LookupVarMode(args[0])
		if !ok {
			return nil, fmt.Errorf("unknown variable mode %q", args[0])
		}
		ins := &Deref{Def: Def{BitSize: bits, NumComponents: comps}, Mode: mode}
		if len(args) > 1 {
			ins.Var = args[1]
		}
		return ins, withDef(&ins.Def)
	case "intrinsic":
		return p.intrinsic(dest, args)
	case "goto":
		if len(args) != 1 {
			return nil, errors.New("goto expects one block")
		}
		return &Jump{Kind: JumpGoto, Target: p.block(args[0])}, nil
	case "goto_if":
		if len(args) != 3 {
			return nil, errors.New("goto_if expects %cond, bThen, bElse")
		}
		ins := &Jump{Kind: JumpGotoIf, Target: p.block(args[1]), Else: p.block(args[2])}
		return ins, p.use(args[0], &ins.Cond)
	case "return":
		return &Jump{Kind: JumpReturn}, nil
	}

	aop, ok := LookupALUOp(op)
	if !ok {
		return nil, fmt.Errorf("unknown instruction %q", op)
	}
	bits, comps, err := typed()
	if err != nil {
		return nil, err
	}
	info := aop.Info()
	if len(args) != info.NumSrcs {
		return nil, fmt.Errorf("%s expects %d sources, got %d", op, info.NumSrcs, len(args))
	}
	ins := &ALU{Op: aop, Def: Def{BitSize: bits, NumComponents: comps}, Srcs: make([]*Def, len(args))}
	for i, a := range args {
		if err := p.use(a, &ins.Srcs[i]); err != nil {
			return nil, err
		}
	}
	return ins, withDef(&ins.Def)
}

func (p *parser) intrinsic(dest string, args []string) (Instr, error) {
	if len(args) == 0 {
		return nil, errors.New("intrinsic expects a name")
	}
	ins := &Intrinsic{Name: args[0], Op: LookupIntrinsic(args[0])}
	args = args[1:]
	if dest != "" {
		if len(args) == 0 || !isType(args[0]) {
			return nil, fmt.Errorf("intrinsic %s with a result expects a type", ins.Name)
		}
		bits, comps, _ := parseType(args[0])
		args = args[1:]
		ins.Def = &Def{BitSize: bits, NumComponents: comps}
		if err := p.define(dest, ins.Def); err != nil {
			return nil, err
		}
	}
	for _, a := range args {
		if v, ok := strings.CutPrefix(a, "base="); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("bad base %q", v)
			}
			ins.Base = n
			continue
		}
		ins.Srcs = append(ins.Srcs, nil)
	}
	i := 0
	for _, a := range args {
		if strings.HasPrefix(a, "base=") {
			continue
		}
		if err := p.use(a, &ins.Srcs[i]); err != nil {
			return nil, err
		}
		i++
	}
	return ins, nil
}

func parseLiteral(tok string, bits uint8) (uint64, error) {
	mask := uint64(math.MaxUint64)
	if bits < 64 {
		mask = 1<<bits - 1
	}
	if strings.ContainsAny(tok, ".eE") && !strings.HasPrefix(tok, "0x") || tok == "inf" || tok == "-inf" || tok == "nan" {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("bad float literal %q", tok)
		}
		switch bits {
		case 32:
			return uint64(math.Float32bits(float32(f))), nil
		case 64:
			return math.Float64bits(f), nil
		}
		return 0, fmt.Errorf("float literal %q needs a 32 or 64 bit constant", tok)
	}
	if strings.HasPrefix(tok, "-") {
		v, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("bad literal %q", tok)
		}
		return uint64(v) & mask, nil
	}
	v, err := strconv.ParseUint(tok, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad literal %q", tok)
	}
	if v&^mask != 0 {
		return 0, fmt.Errorf("literal %q does not fit in %d bits", tok, bits)
	}
	return v, nil
}
