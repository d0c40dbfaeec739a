// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import "github.com/mdhender/polygen/internal/grammar"

// analyseLeftRecursion is pass 9 (spec.md §4.3): builds the reference
// graph over the (now fully desugared) rule set, computes its strongly
// connected components via internal/grammar's Tarjan implementation, and
// marks every rule in a left-recursive component. Within each such
// component, the rule(s) reachable as a first step from OUTSIDE the
// component are marked Head — the seeds the emitter's grow loop starts
// from (spec.md §4.4, Warth/Douglass). A component with no external
// entry point (the cycle is only ever entered through itself, e.g. the
// grammar's own entry rule sits inside it) falls back to marking its
// first member as Head, by Tarjan's own discovery order.
func analyseLeftRecursion(ctx *context) {
	g := grammar.Build(ctx.g.Rules)
	for _, comp := range g.SCCs() {
		if !g.LeftRecursive(comp) {
			continue
		}
		inComp := make(map[grammar.RuleID]bool, len(comp))
		for _, id := range comp {
			inComp[id] = true
			g.RuleAt(id).LeftRecursive = true
		}

		anyHead := false
		for i := 0; i < g.Len(); i++ {
			id := grammar.RuleID(i)
			if inComp[id] {
				continue
			}
			for _, target := range g.FirstEdges(id) {
				if inComp[target] {
					g.RuleAt(target).Head = true
					anyHead = true
				}
			}
		}
		if !anyHead {
			// SCCs pops each component off Tarjan's stack, so its
			// first-discovered member (the component root) comes last.
			g.RuleAt(comp[len(comp)-1]).Head = true
		}
	}
}
