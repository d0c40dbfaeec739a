// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/diag"
)

// resolveIdentifiers is pass 8 (spec.md §4.3): verifies every Ref targets
// an existing rule and records the link on Ref.Resolved, so later passes
// (and the emitter) never repeat the lookup by name.
func resolveIdentifiers(ctx *context) {
	forEachRuleExpr(ctx.g, func(r *ast.Rule) {
		forEachItem(r.Expr, func(it ast.Item) {
			ref, ok := it.(*ast.Ref)
			if !ok {
				return
			}
			target := ctx.g.RuleByName(ref.ID.Name)
			if target == nil {
				ctx.diags.Error(diag.Semantic, ref.ID.At, "undefined rule %q", ref.ID.Name)
				return
			}
			ref.Resolved = target
		})
	})
}
