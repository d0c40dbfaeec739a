// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import "github.com/mdhender/polygen/internal/ast"

// expandStringLiterals is pass 3 (spec.md §4.3): a multi-char StringLit
// appearing directly in an Alt becomes the sequence of its Chars, each a
// fresh NamedItem in that Alt; a single-char StringLit collapses in place
// to a CharLit. By this point sanityCheck has already rejected empty
// literals.
//
// A StringLit nested under a quantifier or predicate (e.g. "ab"+) cannot
// be flattened into sibling NamedItems — there's no enclosing Alt to
// flatten into — so it is instead wrapped in a ParenExpr holding a single
// alt of per-char items, letting the desugar pass (step 5) promote it to
// a synthetic rule exactly as it would a user-written "('a' 'b')+".
func expandStringLiterals(ctx *context) {
	forEachRuleExpr(ctx.g, func(r *ast.Rule) {
		expandExpr(r.Expr)
	})
}

func expandExpr(e *ast.Expr) {
	for _, alt := range e.Alts {
		expandAltItems(alt)
	}
}

func expandAltItems(alt *ast.Alt) {
	var out []*ast.NamedItem
	for _, ni := range alt.Items {
		if sl, ok := ni.Item.(*ast.StringLit); ok {
			out = append(out, flattenTopLevelString(ni, sl)...)
			continue
		}
		ni.Item = expandNested(ni.Item)
		out = append(out, ni)
	}
	alt.Items = out
}

// flattenTopLevelString expands a StringLit that sits directly in an
// Alt's item list, inheriting ni's cut flag onto only the first char (a
// cut commits at the first token it covers) and leaving an explicit
// metaname unset on the exploded pieces — a single name can't sensibly
// label several characters, so they fall back to deduced "_<n>" names
// like any other unnamed terminal (step 6).
func flattenTopLevelString(ni *ast.NamedItem, sl *ast.StringLit) []*ast.NamedItem {
	if len(sl.Chars) == 1 {
		ni.Item = &ast.CharLit{Value: sl.Chars[0]}
		return []*ast.NamedItem{ni}
	}
	out := make([]*ast.NamedItem, 0, len(sl.Chars))
	for i, ch := range sl.Chars {
		out = append(out, &ast.NamedItem{
			Item: &ast.CharLit{Value: ch},
			Cut:  i == 0 && ni.Cut,
			At:   ni.At,
		})
	}
	return out
}

// expandNested rewrites a StringLit reachable only through a wrapper
// (quantifier, predicate, or parenthesised group) into a ParenExpr the
// desugar pass can later promote, and recurses into every other wrapper
// shape so deeply nested strings are reached too.
func expandNested(it ast.Item) ast.Item {
	switch v := it.(type) {
	case *ast.StringLit:
		if len(v.Chars) == 1 {
			return &ast.CharLit{Value: v.Chars[0]}
		}
		items := make([]*ast.NamedItem, 0, len(v.Chars))
		for _, ch := range v.Chars {
			items = append(items, &ast.NamedItem{Item: &ast.CharLit{Value: ch}})
		}
		return &ast.ParenExpr{Expr: &ast.Expr{Alts: []*ast.Alt{{Items: items}}, At: v.At}}
	case *ast.ParenExpr:
		expandExpr(v.Expr)
		return v
	case *ast.ZeroOrOne:
		v.Item = expandNested(v.Item)
		return v
	case *ast.ZeroOrMore:
		v.Item = expandNested(v.Item)
		return v
	case *ast.OneOrMore:
		v.Item = expandNested(v.Item)
		return v
	case *ast.Repetition:
		v.Item = expandNested(v.Item)
		return v
	case *ast.And:
		v.Item = expandNested(v.Item)
		return v
	case *ast.Not:
		v.Item = expandNested(v.Item)
		return v
	default:
		return it
	}
}
