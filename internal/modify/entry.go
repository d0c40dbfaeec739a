// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"github.com/mdhender/polygen/internal/diag"
	"github.com/mdhender/polygen/internal/grammar"
)

// enforceEntry is pass 10 (spec.md §4.3): the preprocessor already
// resolves an explicit @entry directive onto a Rule (spec.md §4.2 step
// 2), rejecting a duplicate or an unknown name as it goes; this pass
// re-verifies the resulting whole-grammar invariant — exactly one entry
// rule exists at all (a grammar with *no* @entry is a preprocessor
// success but a modifier failure) — and that every other rule is
// reachable from it, the property spec.md §8 names directly.
// Unreachable rules are reported as warnings: dead grammar, not invalid
// grammar.
func enforceEntry(ctx *context) {
	if ctx.g.Entry == nil {
		ctx.diags.Error(diag.Semantic, nil, "grammar has no @entry rule")
		return
	}

	g := grammar.Build(ctx.g.Rules)
	entryID, ok := g.IndexOf(ctx.g.Entry.ID.Name)
	if !ok {
		ctx.diags.Error(diag.Semantic, ctx.g.Entry.At, "entry rule %q not found in rule arena", ctx.g.Entry.ID.Name)
		return
	}

	reachable := g.Reachable(entryID)
	for i := 0; i < g.Len(); i++ {
		id := grammar.RuleID(i)
		if reachable[id] {
			continue
		}
		r := g.RuleAt(id)
		ctx.diags.Warn(diag.Semantic, r.At, "rule %q is unreachable from entry %q", r.ID.Name, ctx.g.Entry.ID.Name)
	}
}
