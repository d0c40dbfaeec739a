// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"strconv"
	"strings"

	"github.com/mdhender/polygen/internal/ast"
)

// deduceMetaNames is pass 6 (spec.md §4.3): assigns a metaname to every
// NamedItem the user didn't already name explicitly. By this point
// desugar has already reduced every Alt to a flat sequence of
// references/terminals (with quantifiers applied only to simple
// primaries), so looking "through" a quantifier to find its underlying
// reference (identBase) is enough to tell a named rule reference from an
// unnamed terminal.
func deduceMetaNames(ctx *context) {
	forEachRuleExpr(ctx.g, func(r *ast.Rule) {
		for _, alt := range r.Expr.Alts {
			deduceAlt(ctx, alt)
		}
	})
}

func deduceAlt(ctx *context, alt *ast.Alt) {
	identCounts := map[string]int{}
	unnamed := 0
	for _, ni := range alt.Items {
		if ni.Explicit {
			continue
		}
		switch ni.Item.(type) {
		case *ast.And, *ast.Not:
			continue // predicate-wrapped items never receive a metaname
		}

		if ref, ok := identBase(ni.Item); ok && !isSyntheticRef(ctx, ref) {
			base := strings.ToLower(ref.ID.Name)
			n := identCounts[base]
			identCounts[base] = n + 1
			if n == 0 {
				ni.MetaName = base
			} else {
				ni.MetaName = base + strconv.Itoa(n)
			}
			continue
		}

		unnamed++
		ni.MetaName = "_" + strconv.Itoa(unnamed)
	}
}

// isSyntheticRef reports whether ref names a rule the desugar pass
// created, in which case it's treated as an unnamed terminal ("_<n>")
// rather than a named identifier, per spec.md §4.3 step 6.
func isSyntheticRef(ctx *context, ref *ast.Ref) bool {
	r := ctx.g.RuleByName(ref.ID.Name)
	return r != nil && r.Synthetic
}
