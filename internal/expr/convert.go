package expr

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToCty converts a Go payload value into a cty value. Maps become objects and
// slices become tuples so heterogeneous payloads convert without a schema.
func ToCty(v any) cty.Value {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case cty.Value:
		return t
	case string:
		return cty.StringVal(t)
	case bool:
		return cty.BoolVal(t)
	case int:
		return cty.NumberIntVal(int64(t))
	case int8:
		return cty.NumberIntVal(int64(t))
	case int16:
		return cty.NumberIntVal(int64(t))
	case int32:
		return cty.NumberIntVal(int64(t))
	case int64:
		return cty.NumberIntVal(t)
	case uint:
		return cty.NumberUIntVal(uint64(t))
	case uint8:
		return cty.NumberUIntVal(uint64(t))
	case uint16:
		return cty.NumberUIntVal(uint64(t))
	case uint32:
		return cty.NumberUIntVal(uint64(t))
	case uint64:
		return cty.NumberUIntVal(t)
	case float32:
		return floatVal(float64(t))
	case float64:
		return floatVal(t)
	case time.Time:
		return cty.StringVal(t.Format(time.RFC3339Nano))
	case time.Duration:
		return cty.NumberIntVal(t.Milliseconds())
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, item := range t {
			attrs[k] = ToCty(item)
		}
		return cty.ObjectVal(attrs)
	case []any:
		return tupleOf(t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return tupleOf(items)
	}

	ty, err := gocty.ImpliedType(v)
	if err == nil {
		if cv, err := gocty.ToCtyValue(v, ty); err == nil {
			return cv
		}
	}
	return cty.StringVal(fmt.Sprint(v))
}

func floatVal(f float64) cty.Value {
	if math.IsNaN(f) {
		return cty.StringVal("NaN")
	}
	return cty.NumberFloatVal(f)
}

func tupleOf(items []any) cty.Value {
	if len(items) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(items))
	for i, item := range items {
		vals[i] = ToCty(item)
	}
	return cty.TupleVal(vals)
}

// FromCty converts a cty value back into plain Go values: string, bool,
// int64 for integral numbers, float64 otherwise, map[string]any and []any.
// Null and unknown values become nil.
func FromCty(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	v, _ = v.Unmark()

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		return numberFromBig(v.AsBigFloat())
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = FromCty(ev)
		}
		return out
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, FromCty(ev))
		}
		return out
	}
	return v.GoString()
}

func numberFromBig(bf *big.Float) any {
	if bf.IsInt() {
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
	}
	f, _ := bf.Float64()
	return f
}
