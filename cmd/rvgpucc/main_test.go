package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFindShaders(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"b.nir", "a.nir", "sub/c.nir", "notes.txt"} {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}
	files, err := findShaders(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.nir", "b.nir", filepath.Join("sub", "c.nir")}, files)

	_, err = findShaders(t.TempDir())
	assert.ErrorContains(t, err, "no .nir files")
}

func TestFlattenUnsupportedAgg(t *testing.T) {
	assert.Nil(t, flattenUnsupportedAgg(nil))
	got := flattenUnsupportedAgg(map[string]int{"b": 1, "a": 1, "c": 3})
	assert.Equal(t, []opCount{{"c", 3}, {"a", 1}, {"b", 1}}, got)
}

func TestWriteReport(t *testing.T) {
	rep := runReport{Triple: "riscv64-unknown-linux-gnu", Total: 2, Success: 1, Failed: 1,
		Fails: []failItem{{Shader: "x.nir", Err: "boom"}}}
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "r.json")
	require.NoError(t, writeReport(jsonPath, "json", rep))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"failed": 1`))

	yamlPath := filepath.Join(dir, "r.yaml")
	require.NoError(t, writeReport(yamlPath, "yaml", rep))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var back runReport
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, rep, back)
}
