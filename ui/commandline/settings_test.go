// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestParams() *Params {
	return NewParams().
		Set("x", 11.0).
		Set("y", 7).
		Set("z", false).
		Set("s", "foo").
		Set("seed", uint64(0)).
		Set("list_int", []int{}).
		Set("list_float", []float64{}).
		Set("list_str", []string{})
}

func TestParseSettings(t *testing.T) {
	params := createTestParams()

	paramsSet, err := ParseSettings(params, "x=13;z=true;y=1_000;s=bar;seed=42;list_int=1,3,7;list_float=0.1,1.2,3e3;list_str=a,b;")
	require.NoError(t, err)
	require.Equal(t, []string{"x", "z", "y", "s", "seed", "list_int", "list_float", "list_str"}, paramsSet)

	assert.Equal(t, 13.0, GetParamOr(params, "x", 0.0))
	assert.Equal(t, 1000, GetParamOr(params, "y", 0))
	assert.True(t, GetParamOr(params, "z", false))
	assert.Equal(t, "bar", GetParamOr(params, "s", ""))
	assert.Equal(t, uint64(42), GetParamOr(params, "seed", uint64(0)))
	assert.Equal(t, []int{1, 3, 7}, GetParamOr(params, "list_int", []int{}))
	assert.Equal(t, []float64{0.1, 1.2, 3e3}, GetParamOr(params, "list_float", []float64{}))
	assert.Equal(t, []string{"a", "b"}, GetParamOr(params, "list_str", []string{}))

	// Wrong type or unknown parameter returns the default.
	assert.Equal(t, -1, GetParamOr(params, "s", -1))
	assert.Equal(t, -1, GetParamOr(params, "unknown", -1))

	// Parameter "q" is unknown.
	_, err = ParseSettings(params, "q=3")
	require.Error(t, err)

	// Cannot set the wrong type of value.
	_, err = ParseSettings(params, "y=3.14")
	require.Error(t, err)
	_, err = ParseSettings(params, "list_int=1,a")
	require.Error(t, err)

	// Missing "=".
	_, err = ParseSettings(params, "x")
	require.Error(t, err)
}

func TestParseSettingsFromFile(t *testing.T) {
	params := createTestParams()
	filePath := filepath.Join(t.TempDir(), "settings.txt")
	contents := "# Comment line.\nx=0.5\n\ny=3;z=true\n"
	require.NoError(t, os.WriteFile(filePath, []byte(contents), 0o644))

	paramsSet, err := ParseSettings(params, "s=baz;file:"+filePath)
	require.NoError(t, err)
	require.Equal(t, []string{"s", "x", "y", "z"}, paramsSet)
	assert.Equal(t, 0.5, GetParamOr(params, "x", 0.0))
	assert.Equal(t, 3, GetParamOr(params, "y", 0))
	assert.True(t, GetParamOr(params, "z", false))

	_, err = ParseSettings(params, "file:"+filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestSprintSettings(t *testing.T) {
	params := createTestParams()
	params.Set("list_int", []int{1, 2})
	all := SprintSettings(params)
	assert.Contains(t, all, "\t\"x\": (float64) 11")
	assert.Contains(t, all, "\t\"list_int\": ([]int) 1,2")

	modified := SprintModifiedSettings(params, []string{"y", "s", "y"})
	assert.Equal(t, "\t\"s\": (string) foo\n\t\"y\": (int) 7", modified)
}
