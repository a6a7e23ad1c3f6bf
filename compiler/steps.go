package compiler

import (
	"fmt"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// compiledStep is a step whose data-independent parts (e.g. a condition
// predicate) are already compiled; applying it to a base Value happens at
// evaluation time against an EvaluationContext, since a ConditionStep binds
// "@" as a local variable scoped to each candidate element.
type compiledStep struct {
	kind      stepKind
	key       string
	index     int
	predicate PureOperator
}

type stepKind int

const (
	stepKey stepKind = iota
	stepIndex
	stepRecursive
	stepCondition
	stepWildcard
)

func compileStep(s ast.Step, env *Env) (compiledStep, error) {
	switch st := s.(type) {
	case *ast.KeyStep:
		return compiledStep{kind: stepKey, key: st.Key}, nil
	case *ast.IndexStep:
		return compiledStep{kind: stepIndex, index: st.Index}, nil
	case *ast.RecursiveDescentStep:
		return compiledStep{kind: stepRecursive, key: st.Key}, nil
	case *ast.WildcardStep:
		return compiledStep{kind: stepWildcard}, nil
	case *ast.ConditionStep:
		pred, err := Compile(st.Predicate, env)
		if err != nil {
			return compiledStep{}, err
		}
		if pred.Stratum() == StratumStream {
			return compiledStep{}, fmt.Errorf("compiler: %s: a condition step predicate must not reference a live attribute", st.Loc)
		}
		return compiledStep{kind: stepCondition, predicate: pred.ToPure()}, nil
	default:
		return compiledStep{}, fmt.Errorf("compiler: unsupported path step type %T", s)
	}
}

func compileStepAccess(e *ast.StepAccess, env *Env) (*Compiled, error) {
	base, err := Compile(e.Base, env)
	if err != nil {
		return nil, err
	}
	steps := make([]compiledStep, len(e.Steps))
	for i, s := range e.Steps {
		cs, err := compileStep(s, env)
		if err != nil {
			return nil, err
		}
		steps[i] = cs
	}

	apply := func(ctx evalctx.Context, v value.Value) value.Value {
		for _, st := range steps {
			v = applyStep(ctx, st, v)
			if v.IsError() {
				return v
			}
		}
		return v
	}

	// A constant base with only data-independent steps is itself constant; a
	// ConditionStep predicate may reference local-variable scope via "@", so
	// folding only applies when none is present.
	if base.Stratum() == StratumConstant && !hasConditionStep(steps) {
		return constantC(apply(evalctx.Context{}, base.Constant())), nil
	}

	if base.Stratum() != StratumStream {
		baseP := base.ToPure()
		return pureC(func(ctx evalctx.Context) value.Value {
			return apply(ctx, baseP(ctx))
		}), nil
	}

	baseS := base.ToStream()
	return streamC(func(ectx evalctx.Context) stream.Source[value.Value] {
		return stream.Map(baseS(ectx), func(v value.Value) value.Value { return apply(ectx, v) })
	}), nil
}

func hasConditionStep(steps []compiledStep) bool {
	for _, s := range steps {
		if s.kind == stepCondition {
			return true
		}
	}
	return false
}

func applyStep(ctx evalctx.Context, st compiledStep, v value.Value) value.Value {
	if v.IsError() {
		return v
	}
	switch st.kind {
	case stepKey:
		if v.Kind() != value.KindObject {
			return value.Errorf("cannot apply key step %q to %s", st.key, v.Kind())
		}
		return v.AsObject().Get(st.key)
	case stepIndex:
		if v.Kind() != value.KindArray {
			return value.Errorf("cannot apply index step to %s", v.Kind())
		}
		arr := v.AsArray()
		idx := st.index
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return value.Undefined()
		}
		return arr[idx]
	case stepWildcard:
		switch v.Kind() {
		case value.KindArray:
			return v
		case value.KindObject:
			obj := v.AsObject()
			vals := make([]value.Value, 0, obj.Len())
			for _, k := range obj.Keys() {
				vals = append(vals, obj.Get(k))
			}
			return value.ArrayOf(vals)
		default:
			return value.Errorf("cannot apply wildcard step to %s", v.Kind())
		}
	case stepRecursive:
		var out []value.Value
		collectRecursive(v, st.key, &out)
		return value.ArrayOf(out)
	case stepCondition:
		switch v.Kind() {
		case value.KindArray:
			var out []value.Value
			for _, el := range v.AsArray() {
				res := st.predicate(ctx.WithVariable("@", el))
				if res.IsError() {
					return res
				}
				if res.IsBool() && res.AsBool() {
					out = append(out, el)
				}
			}
			return value.ArrayOf(out)
		default:
			res := st.predicate(ctx.WithVariable("@", v))
			if res.IsError() {
				return res
			}
			if res.IsBool() && res.AsBool() {
				return v
			}
			return value.Undefined()
		}
	default:
		return value.Errorf("unsupported path step")
	}
}

func collectRecursive(v value.Value, key string, out *[]value.Value) {
	switch v.Kind() {
	case value.KindObject:
		obj := v.AsObject()
		if obj.Has(key) {
			*out = append(*out, obj.Get(key))
		}
		for _, k := range obj.Keys() {
			collectRecursive(obj.Get(k), key, out)
		}
	case value.KindArray:
		for _, el := range v.AsArray() {
			collectRecursive(el, key, out)
		}
	}
}
