// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package parser

import (
	"strings"
	"testing"

	"github.com/mdhender/polygen/internal/ast"
)

func TestParse_MinimalNumberGrammar(t *testing.T) {
	input := "@entry\n" +
		"Number <- Digit+ $int\n" +
		"Digit  <- [0-9]\n" +
		"$int { return join(digits) }\n"

	g, diags := Parse("<test>", strings.NewReader(input))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if len(g.Directives) != 1 || g.Directives[0].Kind != ast.DirEntry {
		t.Fatalf("want one @entry directive, got %#v", g.Directives)
	}
	if g.Directives[0].EntryID == nil || g.Directives[0].EntryID.Name != "Number" {
		t.Fatalf("implicit @entry must bind to the following rule's name, got %#v", g.Directives[0].EntryID)
	}
	if len(g.Rules) != 2 {
		t.Fatalf("want 2 rules, got %d", len(g.Rules))
	}
	number := g.RuleByName("Number")
	if number == nil {
		t.Fatalf("missing rule Number")
	}
	if len(number.Expr.Alts) != 1 {
		t.Fatalf("want 1 alt, got %d", len(number.Expr.Alts))
	}
	alt := number.Expr.Alts[0]
	if len(alt.Items) != 1 {
		t.Fatalf("want 1 item (Digit+), got %d", len(alt.Items))
	}
	if _, ok := alt.Items[0].Item.(*ast.OneOrMore); !ok {
		t.Fatalf("want OneOrMore, got %T", alt.Items[0].Item)
	}
	if alt.MetaRef == nil || alt.MetaRef.ID.Name != "int" {
		t.Fatalf("want trailing $int metaref, got %#v", alt.MetaRef)
	}
	if len(g.MetaRules) != 1 || g.MetaRules[0].ID == nil || g.MetaRules[0].ID.Name != "int" {
		t.Fatalf("want one named metarule $int, got %#v", g.MetaRules)
	}
}

func TestParse_CutMasksAlternative(t *testing.T) {
	input := "Char <- '\\\\' ^ 'n' / '\\\\' 'r'\n"
	g, diags := Parse("<test>", strings.NewReader(input))
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Diagnostics())
	}
	rule := g.RuleByName("Char")
	if rule == nil {
		t.Fatalf("missing rule Char")
	}
	if len(rule.Expr.Alts) != 2 {
		t.Fatalf("want 2 alts, got %d", len(rule.Expr.Alts))
	}
	first := rule.Expr.Alts[0]
	if len(first.Items) != 2 || !first.Items[1].Cut {
		t.Fatalf("want cut recorded on second item of first alt, got %#v", first.Items)
	}
}

func TestParse_IgnoreDirective(t *testing.T) {
	input := "@ignore { Sep }\n" +
		"TwoNumbers <- Number Sep Number\n"
	g, diags := Parse("<test>", strings.NewReader(input))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if len(g.Directives) != 1 || g.Directives[0].Kind != ast.DirIgnore {
		t.Fatalf("want one @ignore directive, got %#v", g.Directives)
	}
	ids := g.Directives[0].IgnoreIDs
	if len(ids) != 1 || ids[0].Name != "Sep" {
		t.Fatalf("want [Sep], got %#v", ids)
	}
}

func TestParse_ClassTrailingDash(t *testing.T) {
	g, diags := Parse("<test>", strings.NewReader("Digit <- [0-9_-]\n"))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	rule := g.RuleByName("Digit")
	cls, ok := rule.Expr.Alts[0].Items[0].Item.(*ast.Class)
	if !ok {
		t.Fatalf("want *ast.Class, got %T", rule.Expr.Alts[0].Items[0].Item)
	}
	if len(cls.Ranges) != 3 {
		t.Fatalf("want 3 ranges (0-9, _, -), got %d: %#v", len(cls.Ranges), cls.Ranges)
	}
	if cls.Ranges[0].Begin != '0' || cls.Ranges[0].End == nil || *cls.Ranges[0].End != '9' {
		t.Fatalf("want first range 0-9, got %#v", cls.Ranges[0])
	}
	if !cls.Ranges[1].Single() || cls.Ranges[1].Begin != '_' {
		t.Fatalf("want single char '_', got %#v", cls.Ranges[1])
	}
	if !cls.Ranges[2].Single() || cls.Ranges[2].Begin != '-' {
		t.Fatalf("want single char '-', got %#v", cls.Ranges[2])
	}
}

func TestParse_ToplevelQuery(t *testing.T) {
	input := "@toplevel { @entry Main }\n" +
		"Main <- 'x'\n"
	g, diags := Parse("<test>", strings.NewReader(input))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if len(g.Directives) != 1 || g.Directives[0].Kind != ast.DirToplevelQuery {
		t.Fatalf("want one @toplevel directive, got %#v", g.Directives)
	}
	sub := g.Directives[0].Sub
	if sub == nil || len(sub.Directives) != 1 || sub.Directives[0].Kind != ast.DirEntry {
		t.Fatalf("want nested @entry Main, got %#v", sub)
	}
	if sub.Directives[0].EntryID == nil || sub.Directives[0].EntryID.Name != "Main" {
		t.Fatalf("want explicit entry id Main, got %#v", sub.Directives[0].EntryID)
	}
}

func TestParse_PredicateAndRepetition(t *testing.T) {
	input := "Line <- !EOL .{1,80}\n"
	g, diags := Parse("<test>", strings.NewReader(input))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	rule := g.RuleByName("Line")
	alt := rule.Expr.Alts[0]
	if len(alt.Items) != 2 {
		t.Fatalf("want 2 items, got %d", len(alt.Items))
	}
	if _, ok := alt.Items[0].Item.(*ast.Not); !ok {
		t.Fatalf("want Not predicate, got %T", alt.Items[0].Item)
	}
	rep, ok := alt.Items[1].Item.(*ast.Repetition)
	if !ok {
		t.Fatalf("want Repetition, got %T", alt.Items[1].Item)
	}
	if rep.Lo != 1 || rep.Hi == nil || *rep.Hi != 80 {
		t.Fatalf("want {1,80}, got lo=%d hi=%v", rep.Lo, rep.Hi)
	}
	if _, ok := rep.Item.(*ast.AnyChar); !ok {
		t.Fatalf("want AnyChar base, got %T", rep.Item)
	}
}

func TestParse_ExplicitMetaName(t *testing.T) {
	input := "Pair <- a:Number '=' b:Number\n"
	g, diags := Parse("<test>", strings.NewReader(input))
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	alt := g.RuleByName("Pair").Expr.Alts[0]
	if len(alt.Items) != 3 {
		t.Fatalf("want 3 items, got %d", len(alt.Items))
	}
	if alt.Items[0].MetaName != "a" || !alt.Items[0].Explicit {
		t.Fatalf("want explicit metaname a, got %#v", alt.Items[0])
	}
	if alt.Items[2].MetaName != "b" || !alt.Items[2].Explicit {
		t.Fatalf("want explicit metaname b, got %#v", alt.Items[2])
	}
}

func TestParse_SyntaxErrorReportsExpectedSet(t *testing.T) {
	_, diags := Parse("<test>", strings.NewReader("Number <-\n"))
	if !diags.HasErrors() {
		t.Fatalf("want a syntax error for an empty expression")
	}
}
