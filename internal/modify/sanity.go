// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/diag"
)

// sanityCheck is pass 1 (spec.md §4.3): validates Range ordering,
// Repetition bounds, non-empty string literals, and the absence of
// metanames on predicate-wrapped items, before any other pass trusts
// those invariants.
func sanityCheck(ctx *context) {
	forEachRuleExpr(ctx.g, func(r *ast.Rule) {
		forEachNamedItem(r.Expr, func(ni *ast.NamedItem) {
			checkPredicateMetaName(ctx, ni)
		})
		forEachItem(r.Expr, func(it ast.Item) {
			checkItemSanity(ctx, it)
		})
	})
}

func checkPredicateMetaName(ctx *context, ni *ast.NamedItem) {
	switch ni.Item.(type) {
	case *ast.And, *ast.Not:
		if ni.Explicit {
			ctx.diags.Error(diag.Semantic, ni.At, "predicate cannot carry a metaname")
		}
	}
}

func checkItemSanity(ctx *context, it ast.Item) {
	switch v := it.(type) {
	case *ast.StringLit:
		if len(v.Chars) == 0 {
			ctx.diags.Error(diag.Semantic, v.At, "empty string literal")
		}
	case *ast.Class:
		for _, rg := range v.Ranges {
			if rg.End != nil && *rg.End < rg.Begin {
				ctx.diags.Error(diag.Semantic, v.At, "character range %q-%q has begin > end", rg.Begin, *rg.End)
			}
		}
		if len(v.Ranges) == 0 {
			ctx.diags.Error(diag.Semantic, v.At, "empty character class")
		}
	case *ast.Repetition:
		if v.Lo < 0 {
			ctx.diags.Error(diag.Semantic, nil, "repetition lower bound must be >= 0, got %d", v.Lo)
		}
		if v.Hi != nil && v.Lo > *v.Hi {
			ctx.diags.Error(diag.Semantic, nil, "repetition bounds {%d,%d} have lo > hi", v.Lo, *v.Hi)
		}
	}
}
