// Package hcl loads model definition files written in HCL and translates
// them into the format-agnostic config model.
package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/metricgrid/internal/config"
	"github.com/vk/metricgrid/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader returns a fresh loader with its own parser state.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load parses every given path (a .hcl file, or a directory scanned
// non-recursively for .hcl files) and merges the results into one model.
// When several files set a horizon, the last one wins.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading model path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading model directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".hcl") {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl model files found in %v", paths)
	}

	model := &config.Model{}
	for _, file := range files {
		logger.Debug("Parsing model file.", "path", file)
		hclFile, diags := l.parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %s", file, diags.Error())
		}
		var parsed File
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %s", file, diags.Error())
		}
		merge(model, &parsed)
	}
	logger.Debug("Model definition loaded.",
		"files", len(files), "dimensions", len(model.Dimensions),
		"metrics", len(model.Metrics), "formulas", len(model.Formulas), "inputs", len(model.Inputs))
	return model, nil
}

// merge appends one parsed file into the aggregate model.
func merge(model *config.Model, parsed *File) {
	if parsed.Horizon > 0 {
		model.Horizon = parsed.Horizon
	}
	for _, d := range parsed.Dimensions {
		model.Dimensions = append(model.Dimensions, &config.Dimension{
			Name:    d.Name,
			Members: d.Members,
		})
	}
	for _, m := range parsed.Metrics {
		model.Metrics = append(model.Metrics, &config.Metric{
			ID:       m.ID,
			Name:     m.Name,
			Category: m.Category,
			Dims:     m.Dims,
		})
	}
	for _, f := range parsed.Formulas {
		model.Formulas = append(model.Formulas, &config.Formula{
			Target: f.Target,
			Expr:   f.Expr,
		})
	}
	for _, in := range parsed.Inputs {
		model.Inputs = append(model.Inputs, &config.Input{
			Metric: in.Metric,
			Month:  in.Month,
			Coords: in.Coords,
			Value:  in.Value,
		})
	}
}
