package rvgpu

import (
	"runtime"
	"strings"
	"sync"

	"github.com/xgo-dev/llvm"
)

// Target identifies the code generation target.
type Target struct {
	Triple   string
	CPU      string
	Features string
}

func (t Target) String() string {
	s := t.Triple + "/" + t.CPU
	if t.Features != "" {
		s += "/" + t.Features
	}
	return s
}

// DefaultTarget is the compiled-in rvgpu target. Changing hardware target
// requires a rebuild.
var DefaultTarget = Target{
	Triple: "riscv64-unknown-linux-gnu",
	CPU:    "generic-rv64",
}

// Processor names accepted by the RISC-V backend, per architecture.
var riscvCPUs = map[string][]string{
	"riscv64": {
		"generic", "generic-rv64", "rocket-rv64",
		"sifive-p450", "sifive-p670", "sifive-s21", "sifive-s51", "sifive-s54",
		"sifive-s76", "sifive-u54", "sifive-u74", "sifive-x280",
		"spacemit-x60", "syntacore-scr3-rv64", "veyron-v1", "xiangshan-nanhu",
	},
	"riscv32": {
		"generic", "generic-rv32", "rocket-rv32",
		"sifive-e20", "sifive-e21", "sifive-e24", "sifive-e31", "sifive-e34",
		"sifive-e76", "syntacore-scr1-base", "syntacore-scr1-max", "syntacore-scr3-rv32",
	},
}

func knownCPU(triple, cpu string) bool {
	arch, _, _ := strings.Cut(triple, "-")
	for _, name := range riscvCPUs[arch] {
		if name == cpu {
			return true
		}
	}
	return false
}

var initTargets sync.Once

// Compiler holds the target machine and pass pipeline shared by every
// compilation on one thread. Building one is expensive; see Manager. A
// Compiler must not be used by two goroutines at once.
type Compiler struct {
	target   Target
	machine  llvm.TargetMachine
	layout   string
	passOpts llvm.PassBuilderOptions
	pipeline string
}

// NewCompiler creates the target machine for t at the default optimization
// level and assembles the pass pipeline.
func NewCompiler(t Target) (*Compiler, error) {
	initTargets.Do(func() {
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
		llvm.InitializeAllAsmParsers()
		llvm.InitializeAllAsmPrinters()
	})

	target, err := llvm.GetTargetFromTriple(t.Triple)
	if err != nil {
		return nil, targetf("lookup %s: %v", t.Triple, err)
	}
	if !knownCPU(t.Triple, t.CPU) {
		Logger().Error("target cpu not recognized", "triple", t.Triple, "cpu", t.CPU)
		return nil, targetf("cpu %q is not a recognized processor for %s", t.CPU, t.Triple)
	}
	tm := target.CreateTargetMachine(t.Triple, t.CPU, t.Features,
		llvm.CodeGenLevelDefault, llvm.RelocPIC, llvm.CodeModelDefault)
	td := tm.CreateTargetData()
	layout := td.String()
	td.Dispose()

	return &Compiler{
		target:   t,
		machine:  tm,
		layout:   layout,
		passOpts: llvm.NewPassBuilderOptions(),
		pipeline: PassPipeline,
	}, nil
}

// Target returns the target the compiler was built for.
func (c *Compiler) Target() Target { return c.target }

// Triple returns the target machine triple.
func (c *Compiler) Triple() string { return c.machine.Triple() }

// DataLayout returns the target data layout string.
func (c *Compiler) DataLayout() string { return c.layout }

// ValidateCPU checks that the target machine was built for a processor the
// backend recognizes and for the requested triple.
func (c *Compiler) ValidateCPU() error {
	if !knownCPU(c.target.Triple, c.target.CPU) {
		return targetf("cpu %q is not a recognized processor for %s", c.target.CPU, c.target.Triple)
	}
	if got := c.Triple(); got != c.target.Triple {
		return targetf("target machine triple %s, want %s", got, c.target.Triple)
	}
	return nil
}

// Dispose releases the target machine and pass options.
func (c *Compiler) Dispose() {
	c.passOpts.Dispose()
	c.machine.Dispose()
}

// Manager caches one Compiler per OS thread and target.
//
// Entries are created on first use by a thread and live until the thread
// calls ReleaseThread or the manager is closed. Since an entry is only ever
// looked up from its own thread, and a locked thread runs a single
// goroutine, no compiler is shared and the lookup path takes no lock.
type Manager struct {
	compilers sync.Map // threadKey -> *Compiler
}

type threadKey struct {
	thread uint64
	target Target
}

var defaultManager = NewManager()

// NewManager returns an empty manager.
func NewManager() *Manager { return &Manager{} }

// DefaultManager returns the process-wide manager.
func DefaultManager() *Manager { return defaultManager }

// Acquire returns the calling thread's compiler for t, creating it on first
// use. The caller must stay locked to its OS thread (runtime.LockOSThread)
// while it uses the compiler. On failure nothing is cached.
func (m *Manager) Acquire(t Target) (*Compiler, error) {
	key := threadKey{thread: currentThreadID(), target: t}
	if c, ok := m.compilers.Load(key); ok {
		return c.(*Compiler), nil
	}
	c, err := NewCompiler(t)
	if err != nil {
		return nil, err
	}
	m.compilers.Store(key, c)
	return c, nil
}

// Do runs fn with the calling thread's compiler for t, keeping the
// goroutine on its thread for the duration.
func (m *Manager) Do(t Target, fn func(*Compiler) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	c, err := m.Acquire(t)
	if err != nil {
		return err
	}
	return fn(c)
}

// ReleaseThread disposes the compilers of the calling thread. Workers call
// it before giving up their thread.
func (m *Manager) ReleaseThread() {
	tid := currentThreadID()
	m.compilers.Range(func(k, v any) bool {
		if k.(threadKey).thread == tid {
			m.compilers.Delete(k)
			v.(*Compiler).Dispose()
		}
		return true
	})
}

// Len returns the number of cached compilers.
func (m *Manager) Len() int {
	n := 0
	m.compilers.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Close disposes every cached compiler. No compilation may be running.
func (m *Manager) Close() {
	m.compilers.Range(func(k, v any) bool {
		m.compilers.Delete(k)
		v.(*Compiler).Dispose()
		return true
	})
}
