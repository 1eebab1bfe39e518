package rvgpu

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rvgpu.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoadOptions(t *testing.T) {
	opt, err := LoadOptions(writeConfig(t, `
intrinsic_policy = "permissive"
verify = false
keep_ir = true
emit = "asm"
jobs = 3
`))
	require.NoError(t, err)
	assert.Equal(t, PolicyPermissive, opt.IntrinsicPolicy)
	assert.False(t, opt.Verify)
	assert.True(t, opt.KeepIR)
	assert.Equal(t, EmitAssembly, opt.Emit)
	assert.Equal(t, 3, opt.Jobs)
	assert.Equal(t, DefaultTarget, opt.Target)
}

func TestLoadOptionsDefaults(t *testing.T) {
	opt, err := LoadOptions(writeConfig(t, "# empty\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opt)
	assert.Equal(t, PolicyStrict, opt.IntrinsicPolicy)
	assert.True(t, opt.Verify)
	assert.Equal(t, runtime.GOMAXPROCS(0), opt.Jobs)
}

func TestLoadOptionsErrors(t *testing.T) {
	for name, text := range map[string]string{
		"unknown key":   "optimize = 3\n",
		"target key":    "target = \"x86_64\"\n",
		"bad policy":    "intrinsic_policy = \"lenient\"\n",
		"bad emit":      "emit = \"exe\"\n",
		"negative jobs": "jobs = -1\n",
		"syntax":        "verify = = true\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOptions(writeConfig(t, text))
			assert.Error(t, err)
		})
	}

	_, err := LoadOptions(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptionsNormalized(t *testing.T) {
	opt := Options{}.normalized()
	assert.Equal(t, DefaultTarget, opt.Target)
	assert.Same(t, DefaultManager(), opt.Manager)
	assert.Positive(t, opt.Jobs)

	m := NewManager()
	opt = Options{Jobs: 2, Manager: m}.normalized()
	assert.Equal(t, 2, opt.Jobs)
	assert.Same(t, m, opt.Manager)
}

func TestEmitKindText(t *testing.T) {
	for _, k := range []EmitKind{EmitObject, EmitAssembly, EmitLLVM} {
		b, err := k.MarshalText()
		require.NoError(t, err)
		var got EmitKind
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, k, got)
	}
	assert.Equal(t, "obj", EmitObject.String())
	assert.Equal(t, "permissive", PolicyPermissive.String())
}
