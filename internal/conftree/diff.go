package conftree

// Diff computes the changes required to bring observed in line with desired.
// It iterates only over desired's keys: extra keys in observed are ignored.
// A nested desired value recurses and is included only when the recursive
// diff is non-empty; a scalar desired value is included when observed lacks
// the key or holds a different value. An empty result means observed already
// satisfies desired.
//
// Diff is pure: it never mutates its inputs and is deterministic for given
// inputs.
func Diff(observed, desired Tree) Tree {
	result := make(Tree)
	for key, want := range desired {
		if sub, ok := want.(Tree); ok {
			var ref Tree
			if observed != nil {
				ref, _ = observed[key].(Tree)
			}
			if changes := Diff(ref, sub); len(changes) > 0 {
				result[key] = changes
			}
			continue
		}
		if observed == nil {
			result[key] = want
			continue
		}
		have, ok := observed[key]
		if !ok || !scalarEqual(have, want) {
			result[key] = want
		}
	}
	return result
}

// scalarEqual compares two scalar values, treating numeric values of
// different Go types as equal when they represent the same number. Status
// snapshots and desired documents may carry the same parameter as int or
// float depending on their source.
func scalarEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
