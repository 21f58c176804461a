package formula

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Compiled is a reusable formula evaluator. It is produced once per formula
// assignment and invoked on every recompute; it is never re-parsed per
// time-step or per sample.
type Compiled struct {
	// Source is the original formula text as supplied by the caller.
	Source string
	// Deps lists the referenced metric ids (original, unsafe form) in first
	// occurrence order, deduplicated. Eval takes one vector per entry, in
	// this exact order.
	Deps []string

	fn elemFn
}

// elemFn computes one output element from the dependency vectors.
type elemFn func(args [][]float64, i int) float64

// Compile parses formula text and lowers it to a vectorized evaluator. The
// cache translates grammar-illegal identifiers both ways; unknown identifiers
// are not an error here - the caller auto-registers them as placeholder
// inputs.
func Compile(src string, cache *IDCache) (*Compiled, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(cache.Rewrite(src)), "formula", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing formula %q: %s", src, diags.Error())
	}

	c := &Compiled{Source: src}
	env := &lowerEnv{cache: cache, argIndex: make(map[string]int)}
	fn, err := lower(expr, env)
	if err != nil {
		return nil, fmt.Errorf("compiling formula %q: %w", src, err)
	}
	c.fn = fn
	c.Deps = env.deps
	return c, nil
}

// Eval runs the compiled formula over aligned dependency vectors and returns
// a vector of length n. Every argument must already be aligned to length n.
// Non-finite elements (division by zero, log of a negative, ...) are clamped
// to zero so they neither poison downstream formulas nor leak into sparse
// result reads.
func (c *Compiled) Eval(args [][]float64, n int) ([]float64, error) {
	if len(args) != len(c.Deps) {
		return nil, fmt.Errorf("formula %q expects %d arguments, got %d", c.Source, len(c.Deps), len(args))
	}
	for i, arg := range args {
		if len(arg) != n {
			return nil, fmt.Errorf("formula %q argument %q has length %d, want %d", c.Source, c.Deps[i], len(arg), n)
		}
	}
	out := make([]float64, n)
	for i := range out {
		v := c.fn(args, i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out, nil
}

// lowerEnv accumulates the dependency list while walking the parsed AST.
type lowerEnv struct {
	cache    *IDCache
	deps     []string
	argIndex map[string]int
}

// arg returns the argument slot for a metric id, appending it on first use.
func (env *lowerEnv) arg(id string) int {
	if idx, ok := env.argIndex[id]; ok {
		return idx
	}
	idx := len(env.deps)
	env.deps = append(env.deps, id)
	env.argIndex[id] = idx
	return idx
}

// lower translates one HCL syntax node into an element function. Only the
// numeric expression subset is accepted; anything else (templates, index
// expressions, multi-part traversals) is a compile error.
func lower(expr hclsyntax.Expression, env *lowerEnv) (elemFn, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return lowerLiteral(e.Val)

	case *hclsyntax.ScopeTraversalExpr:
		if len(e.Traversal) != 1 {
			return nil, fmt.Errorf("reference %q: only flat metric ids may be referenced", traversalString(e.Traversal))
		}
		idx := env.arg(env.cache.Original(e.Traversal.RootName()))
		return func(args [][]float64, i int) float64 {
			return args[idx][i]
		}, nil

	case *hclsyntax.ParenthesesExpr:
		return lower(e.Expression, env)

	case *hclsyntax.UnaryOpExpr:
		val, err := lower(e.Val, env)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case hclsyntax.OpNegate:
			return func(args [][]float64, i int) float64 { return -val(args, i) }, nil
		case hclsyntax.OpLogicalNot:
			return func(args [][]float64, i int) float64 { return truth(val(args, i) == 0) }, nil
		}
		return nil, fmt.Errorf("unsupported unary operator")

	case *hclsyntax.BinaryOpExpr:
		return lowerBinary(e, env)

	case *hclsyntax.ConditionalExpr:
		cond, err := lower(e.Condition, env)
		if err != nil {
			return nil, err
		}
		whenTrue, err := lower(e.TrueResult, env)
		if err != nil {
			return nil, err
		}
		whenFalse, err := lower(e.FalseResult, env)
		if err != nil {
			return nil, err
		}
		return func(args [][]float64, i int) float64 {
			if cond(args, i) != 0 {
				return whenTrue(args, i)
			}
			return whenFalse(args, i)
		}, nil

	case *hclsyntax.FunctionCallExpr:
		return lowerCall(e, env)
	}
	return nil, fmt.Errorf("unsupported expression at %s", expr.Range())
}

func lowerLiteral(val cty.Value) (elemFn, error) {
	if val.Type() != cty.Number {
		return nil, fmt.Errorf("literal %s: formulas are numeric", val.Type().FriendlyName())
	}
	f, _ := val.AsBigFloat().Float64()
	return func(args [][]float64, i int) float64 { return f }, nil
}

func lowerBinary(e *hclsyntax.BinaryOpExpr, env *lowerEnv) (elemFn, error) {
	lhs, err := lower(e.LHS, env)
	if err != nil {
		return nil, err
	}
	rhs, err := lower(e.RHS, env)
	if err != nil {
		return nil, err
	}

	var op func(a, b float64) float64
	switch e.Op {
	case hclsyntax.OpAdd:
		op = func(a, b float64) float64 { return a + b }
	case hclsyntax.OpSubtract:
		op = func(a, b float64) float64 { return a - b }
	case hclsyntax.OpMultiply:
		op = func(a, b float64) float64 { return a * b }
	case hclsyntax.OpDivide:
		op = func(a, b float64) float64 { return a / b }
	case hclsyntax.OpModulo:
		op = math.Mod
	case hclsyntax.OpEqual:
		op = func(a, b float64) float64 { return truth(a == b) }
	case hclsyntax.OpNotEqual:
		op = func(a, b float64) float64 { return truth(a != b) }
	case hclsyntax.OpGreaterThan:
		op = func(a, b float64) float64 { return truth(a > b) }
	case hclsyntax.OpGreaterThanOrEqual:
		op = func(a, b float64) float64 { return truth(a >= b) }
	case hclsyntax.OpLessThan:
		op = func(a, b float64) float64 { return truth(a < b) }
	case hclsyntax.OpLessThanOrEqual:
		op = func(a, b float64) float64 { return truth(a <= b) }
	case hclsyntax.OpLogicalAnd:
		op = func(a, b float64) float64 { return truth(a != 0 && b != 0) }
	case hclsyntax.OpLogicalOr:
		op = func(a, b float64) float64 { return truth(a != 0 || b != 0) }
	default:
		return nil, fmt.Errorf("unsupported binary operator")
	}
	return func(args [][]float64, i int) float64 {
		return op(lhs(args, i), rhs(args, i))
	}, nil
}

func lowerCall(e *hclsyntax.FunctionCallExpr, env *lowerEnv) (elemFn, error) {
	argFns := make([]elemFn, len(e.Args))
	for i, arg := range e.Args {
		fn, err := lower(arg, env)
		if err != nil {
			return nil, err
		}
		argFns[i] = fn
	}

	unary := func(f func(float64) float64) (elemFn, error) {
		if len(argFns) != 1 {
			return nil, fmt.Errorf("function %q expects 1 argument, got %d", e.Name, len(argFns))
		}
		a := argFns[0]
		return func(args [][]float64, i int) float64 { return f(a(args, i)) }, nil
	}
	variadic := func(f func(a, b float64) float64) (elemFn, error) {
		if len(argFns) < 1 {
			return nil, fmt.Errorf("function %q expects at least 1 argument", e.Name)
		}
		fns := argFns
		return func(args [][]float64, i int) float64 {
			acc := fns[0](args, i)
			for _, fn := range fns[1:] {
				acc = f(acc, fn(args, i))
			}
			return acc
		}, nil
	}

	switch e.Name {
	case "abs":
		return unary(math.Abs)
	case "round":
		return unary(math.Round)
	case "floor":
		return unary(math.Floor)
	case "ceil":
		return unary(math.Ceil)
	case "sqrt":
		return unary(math.Sqrt)
	case "log":
		return unary(math.Log)
	case "exp":
		return unary(math.Exp)
	case "min":
		return variadic(math.Min)
	case "max":
		return variadic(math.Max)
	case "pow":
		if len(argFns) != 2 {
			return nil, fmt.Errorf("function %q expects 2 arguments, got %d", e.Name, len(argFns))
		}
		base, exp := argFns[0], argFns[1]
		return func(args [][]float64, i int) float64 {
			return math.Pow(base(args, i), exp(args, i))
		}, nil
	}
	return nil, fmt.Errorf("unknown function %q", e.Name)
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func traversalString(t hcl.Traversal) string {
	out := t.RootName()
	for _, step := range t[1:] {
		if attr, ok := step.(hcl.TraverseAttr); ok {
			out += "." + attr.Name
		}
	}
	return out
}
