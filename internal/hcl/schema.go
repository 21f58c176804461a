package hcl

// HCL-specific schema for model definition files, decoded via gohcl and then
// translated into the format-agnostic config model.
//
// Formula expressions are carried as string attributes on purpose: metric ids
// may contain characters (hyphens) that HCL identifiers reject, so the engine's
// own compiler parses them after its safing rewrite.

// Dimension is a `dimension "<name>" { members = [...] }` block.
type Dimension struct {
	Name    string   `hcl:"name,label"`
	Members []string `hcl:"members"`
}

// Metric is a `metric "<id>" { ... }` block.
type Metric struct {
	ID       string   `hcl:"id,label"`
	Name     string   `hcl:"name,optional"`
	Category string   `hcl:"category,optional"`
	Dims     []string `hcl:"dims,optional"`
}

// Formula is a `formula "<target>" { expr = "..." }` block.
type Formula struct {
	Target string `hcl:"target,label"`
	Expr   string `hcl:"expr"`
}

// Input is an `input "<metric>" { month = .. value = .. }` block.
type Input struct {
	Metric string            `hcl:"metric,label"`
	Month  int               `hcl:"month"`
	Value  float64           `hcl:"value"`
	Coords map[string]string `hcl:"coords,optional"`
}

// File is the top-level structure of one definition file.
type File struct {
	Horizon    int          `hcl:"horizon,optional"`
	Dimensions []*Dimension `hcl:"dimension,block"`
	Metrics    []*Metric    `hcl:"metric,block"`
	Formulas   []*Formula   `hcl:"formula,block"`
	Inputs     []*Input     `hcl:"input,block"`
}
