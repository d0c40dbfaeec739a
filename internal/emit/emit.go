// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package emit implements the Emitter of spec.md §4.4: it walks a
// normalised grammar (the modifier's output) and drives a Backend
// through the rule-by-rule, alternative-by-alternative cadence needed to
// render target-language source into a skeleton.
//
// The driver/Backend split generalizes the teacher's parser-facing Sink
// (internal/grammar/api.go): there, the grammar-file parser pushed
// Directive/BeginRule/Alternative/EndRule events at a Builder while
// reading source text; here, Emit pushes the same shape of events at a
// Backend while walking an already-built tree, because a finished
// normalised grammar needs exactly the same "open a rule, visit each
// alternative in order, close the rule" cadence a parser used to build
// one.
package emit

import "github.com/mdhender/polygen/internal/ast"

// Backend receives the events Emit produces while walking a normalised
// grammar and accumulates target-language source fragments from them.
type Backend interface {
	// Preamble is called once, before any rule, with the whole grammar
	// available for backends that need it (e.g. to size a memo table).
	Preamble(g *ast.Grammar)

	// BeginRule opens the code generated for r.
	BeginRule(r *ast.Rule)

	// Alternative emits one ordered-choice arm of the rule most
	// recently opened by BeginRule. altIndex counts from 0; total is
	// the number of alternatives r.Expr has.
	Alternative(alt *ast.Alt, altIndex, total int)

	// EndRule closes the code opened by the matching BeginRule.
	EndRule(r *ast.Rule)

	// Postamble is called once, after every rule, with the whole
	// grammar available again — typically to emit the public entry
	// point that calls g.Entry's generated function.
	Postamble(g *ast.Grammar)

	// Fragments returns the named source fragments accumulated over the
	// walk, keyed by the placeholder names a backend.Descriptor lists
	// (spec.md §6's "Backend descriptor"). Called once, after Postamble.
	Fragments() map[string]string
}

// Emit walks g — the modifier's output, per spec.md §4.3's postcondition:
// every Alt a flat sequence of references/terminals, metanames deduced,
// left-recursion marks set — and drives be through one
// BeginRule/Alternative*/EndRule cycle per rule, bracketed by Preamble
// and Postamble. It returns be.Fragments() once the walk completes.
func Emit(g *ast.Grammar, be Backend) map[string]string {
	be.Preamble(g)
	for _, r := range g.Rules {
		be.BeginRule(r)
		for i, alt := range r.Expr.Alts {
			be.Alternative(alt, i, len(r.Expr.Alts))
		}
		be.EndRule(r)
	}
	be.Postamble(g)
	return be.Fragments()
}
