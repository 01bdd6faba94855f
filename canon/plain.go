package canon

import (
	"encoding/json"

	"github.com/lattice-substrate/joml-conformance/jsontree"
)

// Plain converts a value tree into plain Go values suitable for structural
// diffing: objects become map[string]any, arrays []any, and numbers
// json.Number holding their canonical text, so integers and floats stay
// distinguishable.
func Plain(v *jsontree.Value) any {
	switch v.Kind {
	case jsontree.KindNull:
		return nil
	case jsontree.KindBool:
		return v.Str == "true"
	case jsontree.KindInteger:
		if v.Int == nil {
			return json.Number("")
		}
		return json.Number(v.Int.String())
	case jsontree.KindFloat:
		s, err := FormatFloat(v.Num)
		if err != nil {
			return json.Number("NaN")
		}
		return json.Number(s)
	case jsontree.KindString:
		return v.Str
	case jsontree.KindArray:
		out := make([]any, len(v.Elems))
		for i := range v.Elems {
			out[i] = Plain(&v.Elems[i])
		}
		return out
	case jsontree.KindObject:
		out := make(map[string]any, len(v.Members))
		for i := range v.Members {
			out[v.Members[i].Key] = Plain(&v.Members[i].Value)
		}
		return out
	default:
		return nil
	}
}
