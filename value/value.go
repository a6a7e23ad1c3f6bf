package value

import (
	"fmt"
	"math/big"
)

// Kind discriminates the Value variants.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindText
	KindArray
	KindObject
	KindUndefined
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUndefined:
		return "undefined"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// errorBox backs the Error variant. Error values compare equal only when
// they share the same errorBox pointer: per the Value Model invariant,
// errors "cannot be reliably compared by content."
type errorBox struct {
	message  string
	location *SourceLocation
}

// Value is the tagged, immutable variant at the heart of SAPL evaluation.
// The zero Value is Null.
type Value struct {
	kind    Kind
	boolean bool
	number  *big.Rat
	text    string
	array   []Value
	object  Object
	err     *errorBox
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a Boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// Text returns a Text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Undefined returns the Undefined value: the value of an absent attribute
// or a missing field. All Undefined values are equal to each other and to
// nothing else.
func Undefined() Value { return Value{kind: KindUndefined} }

// NewError constructs an Error value carrying message and an optional
// source location. Every call produces a distinct identity, per the
// reference-equality invariant on Error.
func NewError(message string, loc *SourceLocation) Value {
	return Value{kind: KindError, err: &errorBox{message: message, location: loc}}
}

// Errorf is a convenience constructor formatting message like fmt.Sprintf,
// with no source location attached.
func Errorf(format string, args ...any) Value {
	return NewError(fmt.Sprintf(format, args...), nil)
}

// NumberFromInt64 returns an exact integral Number.
func NumberFromInt64(n int64) Value {
	return Value{kind: KindNumber, number: new(big.Rat).SetInt64(n)}
}

// NumberFromRat returns a Number backed directly by r. r is not copied; pass
// a value owned by the caller.
func NumberFromRat(r *big.Rat) Value {
	if r == nil {
		r = new(big.Rat)
	}
	return Value{kind: KindNumber, number: r}
}

// NumberFromString parses a decimal or rational literal (e.g. "3.14", "-7",
// "1/3") into an arbitrary-precision Number. Returns an Error Value on
// malformed input, per the in-band error mandate.
func NumberFromString(s string) Value {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Errorf("not a number: %q", s)
	}
	return Value{kind: KindNumber, number: r}
}

// Array returns an Array value over the given elements. The slice is used
// as-is; callers should not mutate it afterward.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, array: elems}
}

// ArrayOf is like Array but takes an existing slice without a copy.
func ArrayOf(elems []Value) Value {
	return Value{kind: KindArray, array: elems}
}

// FromObject wraps a precomputed Object as an Object Value.
func FromObject(o Object) Value { return Value{kind: KindObject, object: o} }

// Kind returns the value's variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsError reports whether v is an Error.
func (v Value) IsError() bool { return v.kind == KindError }

// IsUndefined reports whether v is Undefined.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsBool reports whether v is a Boolean.
func (v Value) IsBool() bool { return v.kind == KindBoolean }

// AsBool returns the boolean payload; callers must check Kind first.
func (v Value) AsBool() bool { return v.boolean }

// AsText returns the text payload; callers must check Kind first.
func (v Value) AsText() string { return v.text }

// AsNumber returns the arbitrary-precision rational payload; callers must
// check Kind first.
func (v Value) AsNumber() *big.Rat { return v.number }

// AsArray returns the element slice; callers must check Kind first. The
// returned slice must not be mutated.
func (v Value) AsArray() []Value { return v.array }

// AsObject returns the Object payload; callers must check Kind first.
func (v Value) AsObject() Object { return v.object }

// ErrorMessage returns the Error's message; callers must check Kind first.
func (v Value) ErrorMessage() string {
	if v.err == nil {
		return ""
	}
	return v.err.message
}

// ErrorLocation returns the Error's source location, or nil if none was
// attached.
func (v Value) ErrorLocation() *SourceLocation {
	if v.err == nil {
		return nil
	}
	return v.err.location
}

// Equal implements the Value Model's structural-equality rule, with the
// Error exception: two Errors compare equal only when they are the same
// errorBox (reference identity), never by message content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindUndefined:
		return true
	case KindBoolean:
		return v.boolean == other.boolean
	case KindNumber:
		if v.number == nil || other.number == nil {
			return v.number == other.number
		}
		return v.number.Cmp(other.number) == 0
	case KindText:
		return v.text == other.text
	case KindArray:
		if len(v.array) != len(other.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equal(other.array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.object.equal(other.object)
	case KindError:
		return v.err == other.err
	default:
		return false
	}
}

// String renders a human-readable form for logs and diagnostics. It is not
// a JSON encoding; use ToJSON for that.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBoolean:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		if v.number == nil {
			return "0"
		}
		if v.number.IsInt() {
			return v.number.RatString()
		}
		return v.number.FloatString(12)
	case KindText:
		return v.text
	case KindArray:
		return fmt.Sprintf("array[%d]", len(v.array))
	case KindObject:
		return fmt.Sprintf("object{%d}", v.object.Len())
	case KindError:
		return fmt.Sprintf("error(%s)", v.ErrorMessage())
	default:
		return "?"
	}
}
