// Package config holds the format-agnostic representation of a model
// definition: the dimensions, metrics, formulas, horizon, and seed inputs a
// caller replays through the engine's construction API. Parsing lives in the
// format-specific loader packages.
package config

import "context"

// Model is a complete model definition.
type Model struct {
	Horizon    int
	Dimensions []*Dimension
	Metrics    []*Metric
	Formulas   []*Formula
	Inputs     []*Input
}

// Dimension defines one named axis with ordered members.
type Dimension struct {
	Name    string
	Members []string
}

// Metric declares one metric and its dimension subset.
type Metric struct {
	ID       string
	Name     string
	Category string
	Dims     []string
}

// Formula assigns an expression to a target metric.
type Formula struct {
	Target string
	Expr   string
}

// Input is one coordinate-scoped seed value.
type Input struct {
	Metric string
	Month  int
	Coords map[string]string
	Value  float64
}

// Loader translates definition files into the agnostic model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}
