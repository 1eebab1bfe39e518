package rvgpu

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// IntrinsicPolicy decides what happens to intrinsics the backend does not
// lower.
type IntrinsicPolicy uint8

const (
	// PolicyStrict fails the compilation with ErrUnsupported.
	PolicyStrict IntrinsicPolicy = iota
	// PolicyPermissive logs a TODO diagnostic, binds the result to undef
	// and keeps translating.
	PolicyPermissive
)

func (p IntrinsicPolicy) String() string {
	if p == PolicyPermissive {
		return "permissive"
	}
	return "strict"
}

func (p IntrinsicPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *IntrinsicPolicy) UnmarshalText(b []byte) error {
	switch string(b) {
	case "strict":
		*p = PolicyStrict
	case "permissive":
		*p = PolicyPermissive
	default:
		return fmt.Errorf("unknown intrinsic policy %q", b)
	}
	return nil
}

// EmitKind selects the artifact produced by Compile.
type EmitKind uint8

const (
	EmitObject EmitKind = iota
	EmitAssembly
	EmitLLVM
)

var emitNames = [...]string{EmitObject: "obj", EmitAssembly: "asm", EmitLLVM: "llvm"}

func (k EmitKind) String() string {
	if int(k) < len(emitNames) {
		return emitNames[k]
	}
	return fmt.Sprintf("emit(%d)", uint8(k))
}

func (k EmitKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EmitKind) UnmarshalText(b []byte) error {
	for i, n := range emitNames {
		if n == string(b) {
			*k = EmitKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown emit kind %q", b)
}

// Options configures a compilation.
type Options struct {
	// Target defaults to DefaultTarget. It is not read from config files:
	// the hardware target is fixed at build time.
	Target Target `toml:"-"`

	IntrinsicPolicy IntrinsicPolicy `toml:"intrinsic_policy"`
	// Verify runs the LLVM verifier before optimization.
	Verify bool `toml:"verify"`
	// KeepIR stores the optimized textual IR in Object.IR.
	KeepIR bool     `toml:"keep_ir"`
	Emit   EmitKind `toml:"emit"`
	// Jobs is the number of CompileAll workers.
	Jobs int `toml:"jobs"`

	// Manager supplies per-thread compilers. Nil means the process-wide
	// manager.
	Manager *Manager `toml:"-"`
}

// DefaultOptions returns the options used when no config is given.
func DefaultOptions() Options {
	return Options{
		Target:          DefaultTarget,
		IntrinsicPolicy: PolicyStrict,
		Verify:          true,
		Emit:            EmitObject,
		Jobs:            runtime.GOMAXPROCS(0),
	}
}

// LoadOptions reads a TOML config file on top of DefaultOptions. Unknown
// keys are rejected.
func LoadOptions(path string) (Options, error) {
	opt := DefaultOptions()
	f, err := os.Open(path)
	if err != nil {
		return opt, err
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opt); err != nil {
		return opt, fmt.Errorf("%s: %w", path, err)
	}
	if opt.Jobs < 0 {
		return opt, fmt.Errorf("%s: jobs must not be negative", path)
	}
	return opt, nil
}

func (o Options) normalized() Options {
	if o.Target == (Target{}) {
		o.Target = DefaultTarget
	}
	if o.Jobs <= 0 {
		o.Jobs = runtime.GOMAXPROCS(0)
	}
	if o.Manager == nil {
		o.Manager = defaultManager
	}
	return o
}
