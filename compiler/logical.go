package compiler

import (
	gocontext "context"

	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// compileLogical compiles "&&" and "||" with short-circuit semantics: the
// right operand is never forced, and never allowed to fold a compile-time
// error into the result, once the left operand alone decides the outcome.
func compileLogical(op string, left, right *Compiled) *Compiled {
	shortCircuitsOn := false // value of the left operand that decides the result without consulting right
	if op == "||" {
		shortCircuitsOn = true
	}

	if left.stratum == StratumConstant {
		lv := left.constant
		if lv.IsError() {
			return constantC(lv)
		}
		if !lv.IsBool() {
			return constantC(value.Errorf("logical operator expects a boolean, got %s", lv.Kind()))
		}
		if lv.AsBool() == shortCircuitsOn {
			return constantC(value.Bool(shortCircuitsOn))
		}
		return liftLogicalRight(right)
	}

	if left.stratum == StratumStream || right.stratum == StratumStream {
		return streamC(func(ectx evalctx.Context) stream.Source[value.Value] {
			return func(cctx gocontext.Context) <-chan value.Value {
				out := make(chan value.Value)
				go func() {
					defer close(out)
					cctx2, cancel := gocontext.WithCancel(cctx)
					defer cancel()
					leftCh := left.ToStream()(ectx)(cctx2)
					var rightCh <-chan value.Value
					var rightCancel gocontext.CancelFunc
					for {
						select {
						case lv, ok := <-leftCh:
							if !ok {
								return
							}
							if rightCancel != nil {
								rightCancel()
								rightCancel = nil
							}
							rightCh = nil
							switch {
							case lv.IsError():
								if !emit(cctx, out, lv) {
									return
								}
							case !lv.IsBool():
								if !emit(cctx, out, value.Errorf("logical operator expects a boolean, got %s", lv.Kind())) {
									return
								}
							case lv.AsBool() == shortCircuitsOn:
								if !emit(cctx, out, value.Bool(shortCircuitsOn)) {
									return
								}
							default:
								rc, rcancel := gocontext.WithCancel(cctx2)
								rightCancel = rcancel
								rightCh = right.ToStream()(ectx)(rc)
							}
						case rv, ok := <-rightCh:
							if !ok {
								rightCh = nil
								continue
							}
							if !rv.IsError() && !rv.IsBool() {
								rv = value.Errorf("logical operator expects a boolean, got %s", rv.Kind())
							}
							if !emit(cctx, out, rv) {
								return
							}
						case <-cctx.Done():
							return
						}
					}
				}()
				return out
			}
		})
	}

	leftP, rightP := left.ToPure(), right.ToPure()
	return pureC(func(ctx evalctx.Context) value.Value {
		lv := leftP(ctx)
		if lv.IsError() {
			return lv
		}
		if !lv.IsBool() {
			return value.Errorf("logical operator expects a boolean, got %s", lv.Kind())
		}
		if lv.AsBool() == shortCircuitsOn {
			return value.Bool(shortCircuitsOn)
		}
		rv := rightP(ctx)
		if rv.IsError() {
			return rv
		}
		if !rv.IsBool() {
			return value.Errorf("logical operator expects a boolean, got %s", rv.Kind())
		}
		return rv
	})
}

// liftLogicalRight folds the right operand alone when the left operand is a
// compile-time-known non-short-circuiting value: the result is exactly
// right's boolean value, still validated lazily at its own stratum.
func liftLogicalRight(right *Compiled) *Compiled {
	if right.stratum == StratumConstant {
		rv := right.constant
		if rv.IsError() {
			return constantC(rv)
		}
		if !rv.IsBool() {
			return constantC(value.Errorf("logical operator expects a boolean, got %s", rv.Kind()))
		}
		return constantC(rv)
	}
	if right.stratum == StratumStream {
		return streamC(func(ectx evalctx.Context) stream.Source[value.Value] {
			return stream.Map(right.ToStream()(ectx), normalizeLogicalOperand)
		})
	}
	rp := right.ToPure()
	return pureC(func(ctx evalctx.Context) value.Value { return normalizeLogicalOperand(rp(ctx)) })
}

func normalizeLogicalOperand(v value.Value) value.Value {
	if v.IsError() {
		return v
	}
	if !v.IsBool() {
		return value.Errorf("logical operator expects a boolean, got %s", v.Kind())
	}
	return v
}

func emit(cctx gocontext.Context, out chan<- value.Value, v value.Value) bool {
	select {
	case out <- v:
		return true
	case <-cctx.Done():
		return false
	}
}
