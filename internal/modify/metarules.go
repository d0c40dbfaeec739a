// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/diag"
)

// resolveMetaRules is pass 2 (spec.md §4.3): pairs each Alt's MetaRef
// with the top-level MetaRule it names, and reports orphan metarules
// (declared but never referenced) and undefined references. Inline
// metarules (Alt.Meta) are their own anonymous binding and are never
// added to the orphan check. A $name metaref is legal on any Alt reachable
// through a parenthesised group, not just a rule's top-level alternatives
// (Primary := ... | '(' Expr ')' | ...), so this walks every nesting level
// via forEachAlt rather than only r.Expr.Alts.
func resolveMetaRules(ctx *context) {
	for _, r := range ctx.g.Rules {
		forEachAlt(r.Expr, func(alt *ast.Alt) {
			if alt.MetaRef == nil {
				return
			}
			mr := ctx.g.MetaRuleByName(alt.MetaRef.ID.Name)
			if mr == nil {
				ctx.diags.Error(diag.Semantic, alt.MetaRef.ID.At, "undefined metarule %q", alt.MetaRef.ID.Name)
				return
			}
			alt.MetaRef.Resolved = mr
			mr.Referenced = true
		})
	}
	for _, mr := range ctx.g.MetaRules {
		if !mr.Referenced {
			name := "<anonymous>"
			if mr.ID != nil {
				name = mr.ID.Name
			}
			ctx.diags.Error(diag.Semantic, mr.At, "metarule %q declared but never referenced", name)
		}
	}
}
