// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import "github.com/mdhender/polygen/internal/ast"

// desugar is pass 5 (spec.md §4.3): replaces every non-trivial
// sub-expression with a reference to a fresh synthetic rule, until every
// Alt in the grammar is a flat sequence of references or terminals, with
// quantifiers applied only to simple primaries.
//
// Two shapes get a synthetic rule:
//
//   - A parenthesised Expr used inline in an Alt becomes a rule whose
//     body is that Expr, verbatim.
//   - ANY quantifier (?,*,+,{lo,hi}) — even one applied to a plain rule
//     reference — becomes a rule whose sole alt is that same quantifier
//     applied to a (possibly freshly synthesized) simple primary. This
//     matches spec.md §8 scenario 1 literally: "Digit+" is promoted to
//     "Number__GEN_1 <- Digit+" even though Digit is already a bare
//     identifier, not a parenthesised group — every quantified construct
//     gets its own packrat memoization slot (spec.md §4.4's "each rule
//     invocation is keyed by (rule_id, input_position)"), which only a
//     rule boundary provides.
//
// A quantifier's own inner item is reduced to a simple primary first
// (recursively promoting it through the same two cases if it isn't
// already one), so the synthetic rule's single item is always exactly
// one quantifier deep.
//
// New rules are queued for the same treatment as they're created, since
// a synthetic rule's body can itself nest further composites (e.g.
// "(a b)+" needs one rule for the group and a second for the loop).
func desugar(ctx *context) {
	ctx.pending = append([]*ast.Rule(nil), ctx.g.Rules...)
	for i := 0; i < len(ctx.pending); i++ {
		r := ctx.pending[i]
		if isAlreadyNormalRule(r) {
			// A rule whose whole body is already "quantifier over a
			// simple primary" is exactly what promoting a quantifier
			// produces — re-running desugar over it must be a no-op
			// (spec.md §8's idempotent-modifier property), not another
			// layer of wrapping.
			continue
		}
		for _, alt := range r.Expr.Alts {
			for _, ni := range alt.Items {
				ni.Item = desugarTop(ctx, ni.Item, r.ID.Name)
			}
		}
	}
	ctx.pending = nil
}

// isAlreadyNormalRule reports whether r is a single-item rule holding
// exactly the final form a quantifier promotion produces: one quantifier
// wrapping one simple primary. Such a rule needs no further desugaring.
func isAlreadyNormalRule(r *ast.Rule) bool {
	if !r.Synthetic || len(r.Expr.Alts) != 1 || len(r.Expr.Alts[0].Items) != 1 {
		return false
	}
	switch v := r.Expr.Alts[0].Items[0].Item.(type) {
	case *ast.ZeroOrOne:
		return isSimplePrimary(v.Item)
	case *ast.ZeroOrMore:
		return isSimplePrimary(v.Item)
	case *ast.OneOrMore:
		return isSimplePrimary(v.Item)
	case *ast.Repetition:
		return isSimplePrimary(v.Item)
	default:
		return false
	}
}

func isSimplePrimary(it ast.Item) bool {
	switch it.(type) {
	case *ast.Ref, *ast.CharLit, *ast.Class, *ast.AnyChar:
		return true
	default:
		return false
	}
}

// desugarTop handles an item sitting directly in an Alt's item list.
func desugarTop(ctx *context, item ast.Item, parent string) ast.Item {
	switch v := item.(type) {
	case *ast.ParenExpr:
		return ctx.promoteGroup(parent, v.Expr)

	case *ast.ZeroOrOne:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)

	case *ast.ZeroOrMore:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)

	case *ast.OneOrMore:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)

	case *ast.Repetition:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)

	case *ast.And:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return v

	case *ast.Not:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return v

	default:
		return item
	}
}

// simplifyToPrimary reduces an item nested inside a quantifier or
// predicate down to a simple primary (Ref, CharLit, Class, or AnyChar),
// promoting anything composite to its own synthetic rule along the way.
func simplifyToPrimary(ctx *context, item ast.Item, parent string) ast.Item {
	switch v := item.(type) {
	case *ast.Ref, *ast.CharLit, *ast.Class, *ast.AnyChar:
		return item
	case *ast.ParenExpr:
		return ctx.promoteGroup(parent, v.Expr)
	case *ast.ZeroOrOne:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)
	case *ast.ZeroOrMore:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)
	case *ast.OneOrMore:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)
	case *ast.Repetition:
		v.Item = simplifyToPrimary(ctx, v.Item, parent)
		return ctx.promoteQuantifier(parent, v)
	default:
		return item
	}
}

// promoteGroup creates a synthetic rule with body expr (a parenthesised
// group) and queues it for its own pass through desugarTop, since a
// group's contents may themselves hold composites.
func (ctx *context) promoteGroup(parent string, expr *ast.Expr) ast.Item {
	nr := ctx.newSyntheticRule(parent, expr)
	ctx.pending = append(ctx.pending, nr)
	return &ast.Ref{ID: ast.Identifier{Name: nr.ID.Name}}
}

// promoteQuantifier creates a synthetic rule whose sole item is quant
// (already reduced to wrap a simple primary) and returns a reference to
// it. It is not queued for further desugaring: quantifier-over-primary
// is already the terminal form this whole pass works towards.
func (ctx *context) promoteQuantifier(parent string, quant ast.Item) ast.Item {
	nr := ctx.newSyntheticRule(parent, singleItemExpr(quant))
	return &ast.Ref{ID: ast.Identifier{Name: nr.ID.Name}}
}
