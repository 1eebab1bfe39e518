package rvgpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xgo-dev/llvm"
	"github.com/xgo-dev/rvgpu/nir"
)

// Object is the result of one compilation.
type Object struct {
	Name string
	Kind EmitKind
	// Data is an ELF relocatable object, assembly text or LLVM IR text,
	// depending on Kind.
	Data []byte
	// IR is the optimized module text when Options.KeepIR is set.
	IR    string
	Stats TranslateStats
}

// Compile translates shader, optimizes it and emits code on the calling
// thread's compiler.
func Compile(shader *nir.Shader, opt Options) (*Object, error) {
	opt = opt.normalized()
	var obj *Object
	err := opt.Manager.Do(opt.Target, func(c *Compiler) error {
		var err error
		obj, err = compileShader(c, shader, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func compileShader(c *Compiler, shader *nir.Shader, opt Options) (*Object, error) {
	ctx := NewContext(c)
	defer ctx.Dispose()

	ctx.BuildEntryFunction()
	stats, err := Translate(ctx, shader, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", shader.Name, err)
	}
	ctx.terminateBlocks()
	obj, err := finishModule(c, ctx.Module, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", shader.Name, err)
	}
	obj.Name = shader.Name
	obj.Stats = stats
	Logger().Debug("compiled shader", "name", shader.Name, "kind", obj.Kind,
		"bytes", len(obj.Data), "blocks", stats.Blocks, "phis", stats.Phis)
	return obj, nil
}

// CompileFile parses a text-form shader and compiles it. The shader is
// named after the file.
func CompileFile(path string, opt Options) (*Object, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	shader, err := nir.Parse(name, string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Compile(shader, opt)
}

// CompileLLVM runs the pass pipeline and code generation on textual LLVM
// IR. A module that names a different target triple is rejected.
func CompileLLVM(name, ir string, opt Options) (*Object, error) {
	opt = opt.normalized()
	var obj *Object
	err := opt.Manager.Do(opt.Target, func(c *Compiler) error {
		lc := llvm.NewContext()
		defer lc.Dispose()
		mod, err := ParseModule(lc, ir)
		if err != nil {
			return err
		}
		defer mod.Dispose()
		if tt := mod.Target(); tt != "" && tt != c.Triple() {
			return targetf("module targets %s, compiler targets %s", tt, c.Triple())
		}
		mod.SetTarget(c.Triple())
		mod.SetDataLayout(c.DataLayout())
		obj, err = finishModule(c, mod, opt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	obj.Name = name
	return obj, nil
}

func finishModule(c *Compiler, mod llvm.Module, opt Options) (*Object, error) {
	if opt.Verify {
		if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
	}
	if err := c.RunPasses(mod); err != nil {
		return nil, err
	}

	obj := &Object{Kind: opt.Emit}
	if opt.KeepIR || opt.Emit == EmitLLVM {
		obj.IR = mod.String()
	}
	var err error
	switch opt.Emit {
	case EmitLLVM:
		obj.Data = []byte(obj.IR)
	case EmitAssembly:
		obj.Data, err = c.EmitAssembly(mod)
	default:
		obj.Data, err = c.EmitObject(mod)
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// terminateBlocks ends every open block of the entry function with
// ret void.
func (ctx *Context) terminateBlocks() {
	fn := ctx.fn.Value
	for bb := fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		if last := bb.LastInstruction(); !last.IsNil() && isTerminator(last) {
			continue
		}
		ctx.Builder.SetInsertPointAtEnd(bb)
		ctx.Builder.CreateRetVoid()
	}
}

func isTerminator(v llvm.Value) bool {
	switch v.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.IndirectBr, llvm.Invoke, llvm.Unreachable:
		return true
	}
	return false
}
