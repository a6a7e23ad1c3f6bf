// Package compiler turns an ast.Expression into a CompiledExpression: a
// value already known at compile time, a PureOperator that recomputes
// deterministically from an EvaluationContext, or a StreamOperator that
// reacts to attribute and variable changes over the lifetime of a
// subscription. Lifting a node to the smallest sufficient stratum (constant
// < pure < stream) is what lets a policy body avoid resubscribing to
// attribute brokers for the parts of an expression that never change.
package compiler

import (
	gocontext "context"
	"fmt"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/function"
	"github.com/sapl-run/sapl-core/schema"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// Stratum classifies how a Compiled expression must be evaluated.
type Stratum int

const (
	StratumConstant Stratum = iota
	StratumPure
	StratumStream
)

// PureOperator recomputes a Value from an EvaluationContext with no
// external effects; calling it twice with an equivalent Context yields an
// equal Value.
type PureOperator func(ctx evalctx.Context) value.Value

// StreamOperator produces a live sequence of Values for a Context, updating
// as the attributes or variables it reads change.
type StreamOperator func(ctx evalctx.Context) stream.Source[value.Value]

// Compiled is the result of compiling one ast.Expression.
type Compiled struct {
	stratum  Stratum
	constant value.Value
	pure     PureOperator
	stream   StreamOperator
}

// Stratum reports which evaluation tier this Compiled expression occupies.
func (c *Compiled) Stratum() Stratum { return c.stratum }

// Constant returns the folded value. Only meaningful when Stratum() ==
// StratumConstant.
func (c *Compiled) Constant() value.Value { return c.constant }

// ToPure lifts a Constant or Pure Compiled into a PureOperator. Calling it
// on a StreamOperator is a programming error: a caller that knows it is
// handling stream-stratum expressions must call ToStream instead.
func (c *Compiled) ToPure() PureOperator {
	switch c.stratum {
	case StratumConstant:
		v := c.constant
		return func(evalctx.Context) value.Value { return v }
	case StratumPure:
		return c.pure
	default:
		panic("compiler: cannot lift a stream-stratum expression to PureOperator")
	}
}

// ToStream lifts any Compiled expression to a StreamOperator, wrapping a
// constant or pure evaluation in a Source that emits once and closes.
func (c *Compiled) ToStream() StreamOperator {
	if c.stratum == StratumStream {
		return c.stream
	}
	pure := c.ToPure()
	return func(ctx evalctx.Context) stream.Source[value.Value] {
		return stream.Once(pure(ctx))
	}
}

func constantC(v value.Value) *Compiled { return &Compiled{stratum: StratumConstant, constant: v} }
func pureC(f PureOperator) *Compiled    { return &Compiled{stratum: StratumPure, pure: f} }
func streamC(f StreamOperator) *Compiled { return &Compiled{stratum: StratumStream, stream: f} }

// Env carries the compile-time collaborators a subtree needs: the import
// table in effect, the pure function broker consulted for constant folding
// and for checking that a called function exists, the attribute broker an AttributeReference resolves
// against, and the schema registry "where schema" clauses compile into.
type Env struct {
	Imports    map[string]string // simple/alias name -> fully qualified name
	Functions  function.Broker
	Attributes attribute.Broker
	Schemas    *schema.Registry
}

// Validator is the schema package's compiled-schema type, re-exported here
// so callers compiling a CompiledSchema don't need to import schema
// directly.
type Validator = schema.Validator

func (e *Env) resolveName(parts []string) string {
	if len(parts) == 1 {
		if fq, ok := e.Imports[parts[0]]; ok {
			return fq
		}
	}
	return ast.QualifiedName(parts).Join()
}

// Compile translates expr into a Compiled expression under env.
func Compile(expr ast.Expression, env *Env) (*Compiled, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return constantC(e.Value), nil

	case *ast.ArrayLiteral:
		return compileArray(e, env)

	case *ast.ObjectLiteral:
		return compileObject(e, env)

	case *ast.Variable:
		name := e.Name
		return pureC(func(ctx evalctx.Context) value.Value { return ctx.Variable(name) }), nil

	case *ast.SubscriptionElement:
		el := e.Element
		return pureC(func(ctx evalctx.Context) value.Value { return ctx.Subscription.Element(el) }), nil

	case *ast.AttributeReference:
		return compileAttributeReference(e, env)

	case *ast.FunctionCall:
		return compileFunctionCall(e, env)

	case *ast.UnaryOp:
		operand, err := Compile(e.Operand, env)
		if err != nil {
			return nil, err
		}
		op := e.Op
		return liftCombine([]*Compiled{operand}, func(vs []value.Value) value.Value {
			return evalUnary(op, vs[0])
		}), nil

	case *ast.BinaryOp:
		left, err := Compile(e.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := Compile(e.Right, env)
		if err != nil {
			return nil, err
		}
		if isLogical(e.Op) {
			return compileLogical(e.Op, left, right), nil
		}
		op := e.Op
		return liftCombine([]*Compiled{left, right}, func(vs []value.Value) value.Value {
			return evalBinary(op, vs[0], vs[1])
		}), nil

	case *ast.Conditional:
		return compileConditional(e, env)

	case *ast.StepAccess:
		return compileStepAccess(e, env)

	default:
		return nil, fmt.Errorf("compiler: unsupported expression type %T", expr)
	}
}

func compileArray(e *ast.ArrayLiteral, env *Env) (*Compiled, error) {
	parts := make([]*Compiled, len(e.Elements))
	for i, el := range e.Elements {
		c, err := Compile(el, env)
		if err != nil {
			return nil, err
		}
		parts[i] = c
	}
	return liftCombine(parts, func(vs []value.Value) value.Value {
		if v, ok := value.FirstError(vs...); ok {
			return v
		}
		if i, ok := firstUndefined(vs); ok {
			return value.Errorf("array element %d is undefined", i)
		}
		return value.ArrayOf(append([]value.Value(nil), vs...))
	}), nil
}

func compileObject(e *ast.ObjectLiteral, env *Env) (*Compiled, error) {
	parts := make([]*Compiled, len(e.Values))
	for i, el := range e.Values {
		c, err := Compile(el, env)
		if err != nil {
			return nil, err
		}
		parts[i] = c
	}
	keys := append([]string(nil), e.Keys...)
	return liftCombine(parts, func(vs []value.Value) value.Value {
		if v, ok := value.FirstError(vs...); ok {
			return v
		}
		if i, ok := firstUndefined(vs); ok {
			return value.Errorf("object member %q is undefined", keys[i])
		}
		pairs := make([]value.Pair, len(keys))
		for i, k := range keys {
			pairs[i] = value.P(k, vs[i])
		}
		return value.FromObject(value.NewObject(pairs...))
	}), nil
}

// firstUndefined reports the index of the first Undefined value in vs:
// Undefined is not a member of any container type a policy produces, so
// array and object literal construction rejects it rather than silently
// embedding it.
func firstUndefined(vs []value.Value) (int, bool) {
	for i, v := range vs {
		if v.IsUndefined() {
			return i, true
		}
	}
	return 0, false
}

func compileFunctionCall(e *ast.FunctionCall, env *Env) (*Compiled, error) {
	fqName := env.resolveName(e.QualifiedName)
	if env.Functions != nil && !env.Functions.IsProvidedFunction(fqName) {
		return nil, fmt.Errorf("compiler: %s: unknown function %q", e.Loc, fqName)
	}
	args := make([]*Compiled, len(e.Arguments))
	for i, a := range e.Arguments {
		c, err := Compile(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	broker := env.Functions
	return liftCombine(args, func(vs []value.Value) value.Value {
		return broker.Evaluate(fqName, vs)
	}), nil
}

func compileAttributeReference(e *ast.AttributeReference, env *Env) (*Compiled, error) {
	fqName := env.resolveName(e.QualifiedName)

	var entity *Compiled
	if e.Entity != nil {
		c, err := Compile(e.Entity, env)
		if err != nil {
			return nil, err
		}
		entity = c
	}
	args := make([]*Compiled, len(e.Arguments))
	for i, a := range e.Arguments {
		c, err := Compile(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}

	broker := env.Attributes
	return streamC(func(ectx evalctx.Context) stream.Source[value.Value] {
		return func(cctx gocontext.Context) <-chan value.Value {
			var entityVal *value.Value
			if entity != nil {
				v := entity.ToPure()(ectx)
				entityVal = &v
			}
			argVals := make([]value.Value, len(args))
			for i, a := range args {
				argVals[i] = a.ToPure()(ectx)
			}
			inv := attribute.Invocation{
				ConfigID:           ectx.ConfigurationID,
				FullyQualifiedName: fqName,
				Entity:             entityVal,
				Arguments:          argVals,
			}
			traced := broker.AttributeStream(inv)
			return stream.Map(traced, func(t attribute.TracedValue) value.Value { return t.Value })(cctx)
		}
	}), nil
}

func compileConditional(e *ast.Conditional, env *Env) (*Compiled, error) {
	cond, err := Compile(e.Condition, env)
	if err != nil {
		return nil, err
	}
	then, err := Compile(e.Then, env)
	if err != nil {
		return nil, err
	}
	els, err := Compile(e.Else, env)
	if err != nil {
		return nil, err
	}

	if cond.stratum == StratumConstant {
		cv := cond.constant
		if cv.IsError() {
			return constantC(cv), nil
		}
		if !cv.IsBool() {
			return constantC(value.Errorf("conditional expects a boolean, got %s", cv.Kind())), nil
		}
		if cv.AsBool() {
			return then, nil
		}
		return els, nil
	}

	if cond.stratum == StratumStream {
		return streamC(func(ectx evalctx.Context) stream.Source[value.Value] {
			return func(cctx gocontext.Context) <-chan value.Value {
				out := make(chan value.Value)
				go func() {
					defer close(out)
					cctx2, cancel := gocontext.WithCancel(cctx)
					defer cancel()
					condCh := cond.ToStream()(ectx)(cctx2)
					var branchCh <-chan value.Value
					var branchCancel gocontext.CancelFunc
					for {
						select {
						case cv, ok := <-condCh:
							if !ok {
								return
							}
							if branchCancel != nil {
								branchCancel()
								branchCancel = nil
							}
							branchCh = nil
							switch {
							case cv.IsError():
								select {
								case out <- cv:
								case <-cctx.Done():
									return
								}
							case !cv.IsBool():
								select {
								case out <- value.Errorf("conditional expects a boolean, got %s", cv.Kind()):
								case <-cctx.Done():
									return
								}
							default:
								branch := els
								if cv.AsBool() {
									branch = then
								}
								bc, bcancel := gocontext.WithCancel(cctx2)
								branchCancel = bcancel
								branchCh = branch.ToStream()(ectx)(bc)
							}
						case v, ok := <-branchCh:
							if !ok {
								branchCh = nil
								continue
							}
							select {
							case out <- v:
							case <-cctx.Done():
								return
							}
						case <-cctx.Done():
							return
						}
					}
				}()
				return out
			}
		}), nil
	}

	condP, thenP, elsP := cond.ToPure(), then.ToPure(), els.ToPure()
	return pureC(func(ctx evalctx.Context) value.Value {
		cv := condP(ctx)
		if cv.IsError() {
			return cv
		}
		if !cv.IsBool() {
			return value.Errorf("conditional expects a boolean, got %s", cv.Kind())
		}
		if cv.AsBool() {
			return thenP(ctx)
		}
		return elsP(ctx)
	}), nil
}

// liftCombine composes a set of already-compiled children into one Compiled
// at the lowest stratum the children collectively require, applying combine
// over their evaluated values.
func liftCombine(parts []*Compiled, combine func([]value.Value) value.Value) *Compiled {
	stratum := StratumConstant
	for _, p := range parts {
		if p.stratum > stratum {
			stratum = p.stratum
		}
	}
	switch stratum {
	case StratumConstant:
		vals := make([]value.Value, len(parts))
		for i, p := range parts {
			vals[i] = p.constant
		}
		return constantC(combine(vals))
	case StratumPure:
		pures := make([]PureOperator, len(parts))
		for i, p := range parts {
			pures[i] = p.ToPure()
		}
		return pureC(func(ctx evalctx.Context) value.Value {
			vals := make([]value.Value, len(pures))
			for i, f := range pures {
				vals[i] = f(ctx)
			}
			return combine(vals)
		})
	default:
		streams := make([]StreamOperator, len(parts))
		for i, p := range parts {
			streams[i] = p.ToStream()
		}
		return streamC(func(ectx evalctx.Context) stream.Source[value.Value] {
			return func(cctx gocontext.Context) <-chan value.Value {
				srcs := make([]stream.Source[value.Value], len(streams))
				for i, s := range streams {
					srcs[i] = s(ectx)
				}
				combined := stream.CombineLatest(srcs...)
				return stream.Map(combined, combine)(cctx)
			}
		})
	}
}
