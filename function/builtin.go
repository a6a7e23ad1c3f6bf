package function

import (
	"strings"

	"github.com/sapl-run/sapl-core/value"
)

// NewBuiltinRegistry returns a Registry preloaded with the small set of
// string/collection functions policies commonly reach for:
// "standard.length", "standard.upper", "standard.lower", "standard.concat",
// "standard.contains". Arithmetic operators (+, -, *,
// /) are handled directly by the compiler/evaluator via the value package,
// not through this registry, since they are language operators rather than
// library functions.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register("standard.length", builtinLength)
	r.Register("standard.upper", builtinUpper)
	r.Register("standard.lower", builtinLower)
	r.Register("standard.concat", builtinConcat)
	r.Register("standard.contains", builtinContains)
	return r
}

func builtinLength(args []value.Value) value.Value {
	if len(args) != 1 {
		return value.Errorf("standard.length: expected 1 argument, got %d", len(args))
	}
	switch args[0].Kind() {
	case value.KindText:
		return value.NumberFromInt64(int64(len(args[0].AsText())))
	case value.KindArray:
		return value.NumberFromInt64(int64(len(args[0].AsArray())))
	case value.KindObject:
		return value.NumberFromInt64(int64(args[0].AsObject().Len()))
	default:
		return value.Errorf("standard.length: unsupported kind %s", args[0].Kind())
	}
}

func builtinUpper(args []value.Value) value.Value {
	if len(args) != 1 || args[0].Kind() != value.KindText {
		return value.Errorf("standard.upper: expected 1 text argument")
	}
	return value.Text(strings.ToUpper(args[0].AsText()))
}

func builtinLower(args []value.Value) value.Value {
	if len(args) != 1 || args[0].Kind() != value.KindText {
		return value.Errorf("standard.lower: expected 1 text argument")
	}
	return value.Text(strings.ToLower(args[0].AsText()))
}

func builtinConcat(args []value.Value) value.Value {
	var b strings.Builder
	for _, a := range args {
		if a.Kind() != value.KindText {
			return value.Errorf("standard.concat: all arguments must be text")
		}
		b.WriteString(a.AsText())
	}
	return value.Text(b.String())
}

func builtinContains(args []value.Value) value.Value {
	if len(args) != 2 {
		return value.Errorf("standard.contains: expected 2 arguments")
	}
	switch args[0].Kind() {
	case value.KindText:
		if args[1].Kind() != value.KindText {
			return value.Errorf("standard.contains: text haystack requires text needle")
		}
		return value.Bool(strings.Contains(args[0].AsText(), args[1].AsText()))
	case value.KindArray:
		for _, e := range args[0].AsArray() {
			if e.Equal(args[1]) {
				return value.Bool(true)
			}
		}
		return value.Bool(false)
	default:
		return value.Errorf("standard.contains: unsupported haystack kind %s", args[0].Kind())
	}
}
