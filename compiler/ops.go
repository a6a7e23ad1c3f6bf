package compiler

import "github.com/sapl-run/sapl-core/value"

// evalUnary applies a compile-time-known unary operator to an already
// evaluated operand.
func evalUnary(op string, v value.Value) value.Value {
	switch op {
	case "-":
		return value.Negate(v)
	case "!":
		if v.IsError() {
			return v
		}
		if !v.IsBool() {
			return value.Errorf("cannot negate %s", v.Kind())
		}
		return value.Bool(!v.AsBool())
	default:
		return value.Errorf("unknown unary operator %q", op)
	}
}

// evalBinary applies a compile-time-known binary operator to two already
// evaluated operands. "&&" and "||" are NOT routed through here: their
// short-circuit semantics are handled by the caller before either operand
// is forced, so a failing right-hand side never poisons a short-circuited
// result.
func evalBinary(op string, a, b value.Value) value.Value {
	switch op {
	case "+":
		if a.Kind() == value.KindText || b.Kind() == value.KindText {
			if err, ok := value.FirstError(a, b); ok {
				return err
			}
			if a.Kind() != value.KindText || b.Kind() != value.KindText {
				return value.Errorf("cannot concatenate %s and %s", a.Kind(), b.Kind())
			}
			return value.Text(a.AsText() + b.AsText())
		}
		return value.Add(a, b)
	case "-":
		return value.Subtract(a, b)
	case "*":
		return value.Multiply(a, b)
	case "/":
		return value.Divide(a, b)
	case "==":
		if err, ok := value.FirstError(a, b); ok {
			return err
		}
		return value.Bool(a.Equal(b))
	case "!=":
		if err, ok := value.FirstError(a, b); ok {
			return err
		}
		return value.Bool(!a.Equal(b))
	case "<", "<=", ">", ">=":
		cmp, err := value.Compare(a, b)
		if err != nil {
			if e, ok := value.FirstError(a, b); ok {
				return e
			}
			return value.Errorf("%s", err.Error())
		}
		switch op {
		case "<":
			return value.Bool(cmp < 0)
		case "<=":
			return value.Bool(cmp <= 0)
		case ">":
			return value.Bool(cmp > 0)
		default:
			return value.Bool(cmp >= 0)
		}
	default:
		return value.Errorf("unknown binary operator %q", op)
	}
}

func isLogical(op string) bool { return op == "&&" || op == "||" }
