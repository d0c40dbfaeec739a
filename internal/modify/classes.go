// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"sort"

	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/diag"
)

// normaliseClasses is pass 4 (spec.md §4.3): merges and sorts overlapping
// or adjacent ranges in every Class, and rejects classes that merge down
// to nothing. This is also the pass spec.md §8's class-normalisation
// testable property describes: after modification, every class has
// sorted, non-overlapping ranges with begin <= end.
func normaliseClasses(ctx *context) {
	forEachRuleExpr(ctx.g, func(r *ast.Rule) {
		forEachItem(r.Expr, func(it ast.Item) {
			c, ok := it.(*ast.Class)
			if !ok {
				return
			}
			merged := mergeRanges(c.Ranges)
			if len(merged) == 0 {
				ctx.diags.Error(diag.Semantic, c.At, "character class is empty after normalisation")
				return
			}
			c.Ranges = merged
		})
	})
}

type span struct {
	lo, hi rune
}

// mergeRanges sorts ranges by lower bound and coalesces any that overlap
// or sit immediately adjacent (hi+1 == next lo), returning single-point
// ranges with End == nil per ast.Range's convention.
func mergeRanges(ranges []ast.Range) []ast.Range {
	if len(ranges) == 0 {
		return nil
	}
	spans := make([]span, 0, len(ranges))
	for _, r := range ranges {
		hi := r.Begin
		if r.End != nil {
			hi = *r.End
		}
		if hi < r.Begin {
			continue // already reported by sanityCheck; skip rather than crash
		}
		spans = append(spans, span{lo: r.Begin, hi: hi})
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.lo <= last.hi+1 {
			if s.hi > last.hi {
				last.hi = s.hi
			}
			continue
		}
		merged = append(merged, s)
	}

	out := make([]ast.Range, 0, len(merged))
	for _, s := range merged {
		if s.lo == s.hi {
			out = append(out, ast.Range{Begin: s.lo})
			continue
		}
		hi := s.hi
		out = append(out, ast.Range{Begin: s.lo, End: &hi})
	}
	return out
}
