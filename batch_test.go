package rvgpu

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xgo-dev/rvgpu/nir"
)

func TestCompileAll(t *testing.T) {
	requireRISCV(t)
	dir := t.TempDir()
	loopPath := filepath.Join(dir, "loop.nir")
	require.NoError(t, os.WriteFile(loopPath, []byte(loopShader), 0644))
	badPath := filepath.Join(dir, "bad.nir")
	require.NoError(t, os.WriteFile(badPath, []byte("func f {\nb0:\n%0 = frobnicate 32x1\n}\n"), 0644))

	jobs := []Job{
		{Name: "add", Shader: addShader()},
		{Name: "loop", Path: loopPath},
		{Name: "bad", Path: badPath},
		{Name: "add2", Shader: addShader()},
		{Name: "missing", Path: filepath.Join(dir, "missing.nir")},
	}
	m := NewManager()
	defer m.Close()
	res, err := CompileAll(context.Background(), jobs, Options{Jobs: 2, Manager: m, Verify: true})
	require.NoError(t, err)
	require.Len(t, res, len(jobs))

	for i, r := range res {
		assert.Equal(t, jobs[i].Name, r.Job.Name)
	}
	require.NoError(t, res[0].Err)
	require.NoError(t, res[1].Err)
	assert.Equal(t, "loop", res[1].Object.Name)
	assert.ErrorContains(t, res[2].Err, "unknown instruction")
	require.NoError(t, res[3].Err)
	assert.ErrorIs(t, res[4].Err, os.ErrNotExist)
	assert.Equal(t, res[0].Object.Data, res[3].Object.Data)

	// Workers release their compilers when they exit.
	assert.Zero(t, m.Len())
}

func TestCompileAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{Name: "empty", Shader: &nir.Shader{Name: "empty"}}
	}
	_, err := CompileAll(ctx, jobs, Options{Jobs: 1, Manager: NewManager()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompileFileAndLLVM(t *testing.T) {
	requireRISCV(t)
	m := testManager(t)
	path := filepath.Join(t.TempDir(), "loop.nir")
	require.NoError(t, os.WriteFile(path, []byte(loopShader), 0644))

	obj, err := CompileFile(path, Options{Manager: m, Verify: true, KeepIR: true})
	require.NoError(t, err)
	assert.Equal(t, "loop", obj.Name)
	assert.Equal(t, 1, obj.Stats.Phis)

	obj2, err := CompileLLVM("loop.ll", obj.IR, Options{Manager: m, Verify: true})
	require.NoError(t, err)
	assert.Equal(t, "loop.ll", obj2.Name)
	assert.NotEmpty(t, obj2.Data)

	_, err = CompileLLVM("x86.ll", "target triple = \"x86_64-unknown-linux-gnu\"\n", Options{Manager: m})
	assert.ErrorIs(t, err, ErrTarget)
	_, err = CompileLLVM("junk.ll", "define void @f( {", Options{Manager: m})
	assert.ErrorIs(t, err, ErrInvalidModule)
}

func TestCompileIntrinsicPolicy(t *testing.T) {
	requireRISCV(t)
	s := parseShader(t, "func main {\nb0:\n%0 = intrinsic load_frag_coord 32x4\nreturn\n}")
	_, err := Compile(s, Options{Manager: testManager(t)})
	assert.ErrorIs(t, err, ErrUnsupported)

	obj, err := Compile(s, Options{Manager: testManager(t), IntrinsicPolicy: PolicyPermissive, Verify: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"load_frag_coord"}, obj.Stats.Unsupported)
}
