package evaluator

import (
	"context"

	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/stream"
)

// reactiveChain resolves a sequence of value definitions and conditions in
// order, threading each statement's live value into the next statement's
// Context, and hands the final scope to tail once every statement has
// passed. Unlike a one-shot snapshot, every statement keeps its own
// subscription open for the lifetime of the resulting stream: when an
// attribute or variable a statement depends on changes, that statement and
// everything built on top of it — later statements, and tail's own stream —
// are canceled and rebuilt under the new value, the same cancel-and-restart
// idiom EvaluatePolicySet uses across policy-target re-evaluations.
func reactiveChain(stmts []compiler.CompiledStatement, ctx evalctx.Context, tail func(evalctx.Context) stream.Source[decision.Decision]) stream.Source[decision.Decision] {
	return reactiveChainFrom(stmts, 0, ctx, map[string]bool{}, tail)
}

func reactiveChainFrom(stmts []compiler.CompiledStatement, i int, ctx evalctx.Context, bound map[string]bool, tail func(evalctx.Context) stream.Source[decision.Decision]) stream.Source[decision.Decision] {
	if i >= len(stmts) {
		return tail(ctx)
	}
	stmt := stmts[i]
	return func(cctx context.Context) <-chan decision.Decision {
		out := make(chan decision.Decision)
		go func() {
			defer close(out)
			cctx2, cancelAll := context.WithCancel(cctx)
			defer cancelAll()
			var childCancel context.CancelFunc

			for v := range stmt.Expr.ToStream()(ctx)(cctx2) {
				if childCancel != nil {
					childCancel()
					childCancel = nil
				}
				if v.IsError() {
					if !sendOrDone(cctx, out, decision.IndeterminateDecision(v.ErrorMessage())) {
						return
					}
					continue
				}

				nextCtx := ctx
				nextBound := bound
				if stmt.IsValueDefinition {
					if bound[stmt.Name] {
						if !sendOrDone(cctx, out, decision.IndeterminateDecision("duplicate local variable definition: "+stmt.Name)) {
							return
						}
						continue
					}
					nextBound = copyBound(bound)
					nextBound[stmt.Name] = true
					nextCtx = ctx.WithVariable(stmt.Name, v)
				} else {
					if !v.IsBool() {
						if !sendOrDone(cctx, out, decision.IndeterminateDecision("policy body condition must evaluate to a boolean")) {
							return
						}
						continue
					}
					if !v.AsBool() {
						if !sendOrDone(cctx, out, decision.NotApplicableDecision()) {
							return
						}
						continue
					}
				}

				childCtx, cancel := context.WithCancel(cctx2)
				childCancel = cancel
				childOut := reactiveChainFrom(stmts, i+1, nextCtx, nextBound, tail)(childCtx)
				if !forwardUntilReplaced(cctx, childCtx, out, childOut) {
					return
				}
			}
		}()
		return out
	}
}

func copyBound(b map[string]bool) map[string]bool {
	next := make(map[string]bool, len(b)+1)
	for k, v := range b {
		next[k] = v
	}
	return next
}
