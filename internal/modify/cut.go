// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/diag"
)

// checkCutPlacement is pass 11 (spec.md §4.3): for every cut-marked item,
// verifies no sibling Alt appearing later in the same ordered choice
// shares the identical item sequence up to the cut. Such a sibling is
// provably dead code — the cut alt would already have matched and
// committed to that same prefix, so the engine never backtracks far
// enough to try it (spec.md §8 scenario 3).
//
// Only siblings *after* the cut-bearing alt are candidates: an earlier
// alt is tried first regardless of what a later alt's cut does. A
// different, non-identical prefix after a cut is not an error — that's
// cut doing exactly what it's for.
func checkCutPlacement(ctx *context) {
	forEachRuleExpr(ctx.g, func(r *ast.Rule) {
		checkExprCuts(ctx, r.Expr)
	})
}

func checkExprCuts(ctx *context, e *ast.Expr) {
	for ai, alt := range e.Alts {
		for k, ni := range alt.Items {
			if !ni.Cut {
				continue
			}
			prefix := alt.Items[:k]
			for _, sibling := range e.Alts[ai+1:] {
				if sharesPrefix(prefix, sibling.Items) {
					ctx.diags.Error(diag.Semantic, sibling.At, "unreachable alternative after cut")
				}
			}
		}
	}
	// Recurse into nested parenthesised sub-expressions — by this point
	// (post-desugar) there shouldn't be any left at Alt scope, but a
	// synthetic rule's own body is just as much a choice as any other.
	for _, alt := range e.Alts {
		for _, ni := range alt.Items {
			descendCuts(ctx, ni.Item)
		}
	}
}

func descendCuts(ctx *context, it ast.Item) {
	switch v := it.(type) {
	case *ast.ParenExpr:
		checkExprCuts(ctx, v.Expr)
	case *ast.ZeroOrOne:
		descendCuts(ctx, v.Item)
	case *ast.ZeroOrMore:
		descendCuts(ctx, v.Item)
	case *ast.OneOrMore:
		descendCuts(ctx, v.Item)
	case *ast.Repetition:
		descendCuts(ctx, v.Item)
	case *ast.And:
		descendCuts(ctx, v.Item)
	case *ast.Not:
		descendCuts(ctx, v.Item)
	}
}

func sharesPrefix(prefix []*ast.NamedItem, items []*ast.NamedItem) bool {
	if len(items) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if !itemsEqual(p.Item, items[i].Item) {
			return false
		}
	}
	return true
}

// itemsEqual reports whether two Items would match the same input at the
// same position, conservatively: a wildcard is treated as matching
// anything, and two wrapped items are equal only if the wrapper kind and
// inner item both match.
func itemsEqual(a, b ast.Item) bool {
	if _, ok := a.(*ast.AnyChar); ok {
		return true
	}
	if _, ok := b.(*ast.AnyChar); ok {
		return true
	}
	switch av := a.(type) {
	case *ast.Ref:
		bv, ok := b.(*ast.Ref)
		return ok && av.ID.Name == bv.ID.Name
	case *ast.CharLit:
		bv, ok := b.(*ast.CharLit)
		return ok && av.Value == bv.Value
	case *ast.Class:
		bv, ok := b.(*ast.Class)
		return ok && rangesEqual(av.Ranges, bv.Ranges)
	case *ast.ZeroOrOne:
		bv, ok := b.(*ast.ZeroOrOne)
		return ok && itemsEqual(av.Item, bv.Item)
	case *ast.ZeroOrMore:
		bv, ok := b.(*ast.ZeroOrMore)
		return ok && itemsEqual(av.Item, bv.Item)
	case *ast.OneOrMore:
		bv, ok := b.(*ast.OneOrMore)
		return ok && itemsEqual(av.Item, bv.Item)
	case *ast.Repetition:
		bv, ok := b.(*ast.Repetition)
		return ok && av.Lo == bv.Lo && hiEqual(av.Hi, bv.Hi) && itemsEqual(av.Item, bv.Item)
	case *ast.And:
		bv, ok := b.(*ast.And)
		return ok && itemsEqual(av.Item, bv.Item)
	case *ast.Not:
		bv, ok := b.(*ast.Not)
		return ok && itemsEqual(av.Item, bv.Item)
	default:
		return false
	}
}

func hiEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func rangesEqual(a, b []ast.Range) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Begin != b[i].Begin {
			return false
		}
		if (a[i].End == nil) != (b[i].End == nil) {
			return false
		}
		if a[i].End != nil && *a[i].End != *b[i].End {
			return false
		}
	}
	return true
}
