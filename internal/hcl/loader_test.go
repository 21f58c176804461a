package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const modelHCL = `
horizon = 12

dimension "geography" {
  members = ["us", "eu"]
}

metric "price" {
  name     = "Unit Price"
  category = "inputs"
  dims     = ["geography"]
}

formula "revenue" {
  expr = "price * volume"
}

formula "net-margin" {
  expr = "revenue - cogs"
}

input "price" {
  month  = 0
  value  = 9.99
  coords = { geography = "us" }
}
`

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "model.hcl", modelHCL)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 12, model.Horizon)

	require.Len(t, model.Dimensions, 1)
	assert.Equal(t, "geography", model.Dimensions[0].Name)
	assert.Equal(t, []string{"us", "eu"}, model.Dimensions[0].Members)

	require.Len(t, model.Metrics, 1)
	assert.Equal(t, "price", model.Metrics[0].ID)
	assert.Equal(t, "Unit Price", model.Metrics[0].Name)
	assert.Equal(t, []string{"geography"}, model.Metrics[0].Dims)

	require.Len(t, model.Formulas, 2)
	assert.Equal(t, "revenue", model.Formulas[0].Target)
	assert.Equal(t, "price * volume", model.Formulas[0].Expr)
	// Hyphenated targets survive because expressions ride as strings.
	assert.Equal(t, "net-margin", model.Formulas[1].Target)

	require.Len(t, model.Inputs, 1)
	assert.Equal(t, "price", model.Inputs[0].Metric)
	assert.Equal(t, 0, model.Inputs[0].Month)
	assert.Equal(t, 9.99, model.Inputs[0].Value)
	assert.Equal(t, map[string]string{"geography": "us"}, model.Inputs[0].Coords)
}

func TestLoadDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "01-dims.hcl", `
horizon = 6

dimension "product" {
  members = ["basic"]
}
`)
	writeFile(t, dir, "02-formulas.hcl", `
horizon = 24

formula "b" {
  expr = "a * 2"
}
`)
	writeFile(t, dir, "ignored.txt", "not hcl")

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	// Last horizon wins; blocks accumulate across files.
	assert.Equal(t, 24, model.Horizon)
	assert.Len(t, model.Dimensions, 1)
	assert.Len(t, model.Formulas, 1)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLoader().Load(context.Background(), filepath.Join(dir, "missing.hcl"))
	assert.Error(t, err)

	_, err = NewLoader().Load(context.Background(), dir)
	assert.Error(t, err, "empty directory has no model files")

	bad := writeFile(t, dir, "bad.hcl", `dimension "x" {`)
	_, err = NewLoader().Load(context.Background(), bad)
	assert.Error(t, err)

	unknown := writeFile(t, dir, "unknown.hcl", `
widget "x" {
  size = 1
}
`)
	_, err = NewLoader().Load(context.Background(), unknown)
	assert.Error(t, err)
}
