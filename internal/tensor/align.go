package tensor

// ShapeError reports a dimension misalignment between a dependency tensor and
// the dependent it is being aligned to. It is recovered per node during
// evaluation and never aborts a batch.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "shape mismatch: " + e.Reason
}

// Align arranges a dependency's values into the dependent target's layout and
// returns a flat vector of target length. Resolution order:
//
//  1. Exact axis match: the dependency's data is borrowed directly.
//  2. Dimension expansion: every dependency axis also varies on the target;
//     missing axes broadcast, values are gathered into a copy.
//  3. A dependency with no dimension axes is a pure time series and broadcasts
//     across every non-time axis of the target (a special case of 2).
//
// Anything else - a dependency axis the target lacks, a shared axis whose
// sizes disagree, or mismatched horizons - is a ShapeError.
func Align(dep, target *Tensor) ([]float64, error) {
	if dep.Horizon() != target.Horizon() {
		return nil, &ShapeError{Reason: "time horizons differ"}
	}
	if sameAxes(dep, target) {
		return dep.data, nil
	}

	// contrib[a] is the dependency stride for target axis a, or 0 when the
	// dependency does not vary over that axis.
	contrib := make([]int, len(target.shape))
	matched := 0
	for a, name := range target.dims {
		da := axisOf(dep, name)
		if da < 0 {
			continue
		}
		if dep.shape[da] != target.shape[a] {
			return nil, &ShapeError{Reason: "axis " + name + " has different sizes"}
		}
		contrib[a] = dep.strides[da]
		matched++
	}
	if matched != len(dep.dims) {
		return nil, &ShapeError{Reason: "dependency varies over an axis the dependent lacks"}
	}
	contrib[len(contrib)-1] = dep.strides[len(dep.strides)-1]

	out := make([]float64, target.Len())
	for flat := range out {
		rem := flat
		depFlat := 0
		for a, stride := range target.strides {
			coord := rem / stride
			rem %= stride
			depFlat += coord * contrib[a]
		}
		out[flat] = dep.data[depFlat]
	}
	return out, nil
}

// sameAxes reports whether two tensors have identical axis names and sizes in
// identical order, which allows the flat data to be used without copying.
func sameAxes(a, b *Tensor) bool {
	if len(a.dims) != len(b.dims) || a.Len() != b.Len() {
		return false
	}
	for i, name := range a.dims {
		if b.dims[i] != name || a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// axisOf returns the axis position of a named dimension, or -1.
func axisOf(t *Tensor, name string) int {
	for i, d := range t.dims {
		if d == name {
			return i
		}
	}
	return -1
}
