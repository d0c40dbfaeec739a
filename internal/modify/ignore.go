// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import "github.com/mdhender/polygen/internal/ast"

// applyIgnore is pass 7 (spec.md §4.3): propagates a rule-level Ignore
// flag (set by the preprocessor from @ignore, spec.md §4.2 step 2) onto
// every NamedItem that references that rule directly, unless the user
// already supplied an explicit metaname.
//
// Known limitation, carried over deliberately (spec.md §9 and §4.3 step
// 7's own note): a reference desugared into a synthetic rule before this
// pass runs is one indirection away from the ignored rule and is not
// walked back through, so @ignore on a rule that only ever appears
// quantified or parenthesised can fail to propagate. Reproducing that
// gap (rather than "fixing" it by resolving through synthetic rules) is
// intentional — spec.md §8 scenario 6 and §9 ask for the documented
// quirks to be surfaced, not silently patched over.
func applyIgnore(ctx *context) {
	forEachRuleExpr(ctx.g, func(r *ast.Rule) {
		forEachNamedItem(r.Expr, func(ni *ast.NamedItem) {
			if ni.Explicit {
				return
			}
			ref, ok := ni.Item.(*ast.Ref)
			if !ok {
				return
			}
			target := ctx.g.RuleByName(ref.ID.Name)
			if target == nil || !target.Ignore {
				return
			}
			ni.Explicit = true
			ni.MetaName = "_"
		})
	})
}
