package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// ToJSON converts v to a plain Go value suitable for encoding/json, per the
// boundary rule: Undefined is absent (callers embedding v as an object
// field must drop the field rather than encode it; ToJSON itself returns
// an error when asked to encode a bare Undefined, since "absence" has no
// standalone JSON representation) and Error is rejected outright.
func (v Value) ToJSON() (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBoolean:
		return v.boolean, nil
	case KindNumber:
		return jsonNumber(v.number), nil
	case KindText:
		return v.text, nil
	case KindArray:
		out := make([]any, len(v.array))
		for i, e := range v.array {
			if e.IsUndefined() {
				return nil, fmt.Errorf("value: cannot encode undefined array element at index %d", i)
			}
			j, err := e.ToJSON()
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case KindObject:
		out := make(map[string]any, v.object.Len())
		for _, k := range v.object.Keys() {
			fv := v.object.Get(k)
			if fv.IsUndefined() {
				continue // absence of key, per the boundary rule
			}
			j, err := fv.ToJSON()
			if err != nil {
				return nil, err
			}
			out[k] = j
		}
		return out, nil
	case KindUndefined:
		return nil, fmt.Errorf("value: cannot encode undefined at top level")
	case KindError:
		return nil, fmt.Errorf("value: cannot encode error %q to JSON", v.ErrorMessage())
	default:
		return nil, fmt.Errorf("value: unknown kind %v", v.kind)
	}
}

// MarshalJSON implements json.Marshaler for convenience in logs/tests. It
// delegates to ToJSON and therefore shares its boundary behavior.
func (v Value) MarshalJSON() ([]byte, error) {
	j, err := v.ToJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

func jsonNumber(r *big.Rat) json.Number {
	if r == nil {
		return json.Number("0")
	}
	if r.IsInt() {
		return json.Number(r.Num().String())
	}
	f, _ := r.Float64()
	return json.Number(fmt.Sprintf("%g", f))
}

// FromJSON converts a decoded Go value (as produced by encoding/json with
// UseNumber on a json.Decoder) into a Value. A missing object key is
// represented as absence, not as an explicit Undefined entry — callers
// asking for a field that wasn't present get Undefined from Object.Get.
func FromJSON(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return Text(t)
	case json.Number:
		r, ok := new(big.Rat).SetString(t.String())
		if !ok {
			return Errorf("value: malformed json number %q", t.String())
		}
		return NumberFromRat(r)
	case float64:
		r := new(big.Rat).SetFloat64(t)
		if r == nil {
			return Errorf("value: non-finite json number")
		}
		return NumberFromRat(r)
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromJSON(e)
		}
		return ArrayOf(elems)
	case map[string]any:
		o := Object{values: make(map[string]Value, len(t))}
		for k, e := range t {
			o = o.With(k, FromJSON(e))
		}
		return FromObject(o)
	default:
		return Errorf("value: unsupported json type %T", v)
	}
}

// ParseJSON decodes raw JSON text into a Value using json.Number for
// numeric literals, so NumberFromString-equivalent precision is preserved
// instead of collapsing through float64.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	return FromJSON(v), nil
}

// toJsonMarker is substituted for Error/Undefined when a Value must be
// rendered for schema validation or graph/coverage display, both of which
// require valid JSON even when the underlying tree carries failures.
type toJsonMarker struct {
	Marker  string `json:"$sapl"`
	Message string `json:"message,omitempty"`
}

// ToJsonForValidation substitutes markers for Error and Undefined so the
// result is always encodable, for feeding into JSON-Schema validation or
// coverage/graph rendering where a failure must still produce a value.
func (v Value) ToJsonForValidation() any {
	switch v.kind {
	case KindUndefined:
		return toJsonMarker{Marker: "undefined"}
	case KindError:
		return toJsonMarker{Marker: "error", Message: v.ErrorMessage()}
	case KindArray:
		out := make([]any, len(v.array))
		for i, e := range v.array {
			out[i] = e.ToJsonForValidation()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.object.Len())
		for _, k := range v.object.Keys() {
			out[k] = v.object.Get(k).ToJsonForValidation()
		}
		return out
	default:
		j, err := v.ToJSON()
		if err != nil {
			return toJsonMarker{Marker: "error", Message: err.Error()}
		}
		return j
	}
}
