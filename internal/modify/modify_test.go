// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package modify

import (
	"testing"
	"testing/fstest"

	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/preprocess"
)

func mustModify(t *testing.T, src string) *ast.Grammar {
	t.Helper()
	fsys := fstest.MapFS{"g.peg": {Data: []byte(src)}}
	g, diags := preprocess.New(fsys, "go").Preprocess("g.peg")
	if diags.HasErrors() {
		t.Fatalf("preprocess errors: %v", diags.Diagnostics())
	}
	out, mdiags := Modify(g)
	if mdiags.HasErrors() {
		t.Fatalf("modify errors: %v", mdiags.Diagnostics())
	}
	return out
}

// spec.md §8 scenario 1: minimal number grammar.
func TestModify_MinimalNumberGrammar(t *testing.T) {
	src := "@entry\n" +
		"Number <- Digit+ $int\n" +
		"Digit  <- [0-9]\n" +
		"$int { return join(digits) }\n"

	g := mustModify(t, src)

	if g.Entry == nil || g.Entry.ID.Name != "Number" {
		t.Fatalf("want entry Number, got %#v", g.Entry)
	}

	number := g.RuleByName("Number")
	if len(number.Expr.Alts) != 1 || len(number.Expr.Alts[0].Items) != 1 {
		t.Fatalf("want Number to have one alt with one item after desugar, got %#v", number.Expr)
	}
	ref, ok := number.Expr.Alts[0].Items[0].Item.(*ast.Ref)
	if !ok {
		t.Fatalf("want Number's item to be a Ref to a synthetic rule, got %T", number.Expr.Alts[0].Items[0].Item)
	}
	gen := g.RuleByName(ref.ID.Name)
	if gen == nil || !gen.Synthetic || gen.ID.Name != "Number__GEN_1" {
		t.Fatalf("want synthetic rule Number__GEN_1, got %#v", gen)
	}

	genItem := gen.Expr.Alts[0].Items[0]
	oom, ok := genItem.Item.(*ast.OneOrMore)
	if !ok {
		t.Fatalf("want Number__GEN_1's item to be OneOrMore, got %T", genItem.Item)
	}
	inner, ok := oom.Item.(*ast.Ref)
	if !ok || inner.ID.Name != "Digit" {
		t.Fatalf("want OneOrMore to wrap a Ref to Digit, got %#v", oom.Item)
	}
	if genItem.MetaName != "digit" {
		t.Fatalf("want deduced metaname 'digit', got %q", genItem.MetaName)
	}
}

// spec.md §8 scenario 2: indirect left recursion.
func TestModify_IndirectLeftRecursion(t *testing.T) {
	src := "@entry\n" +
		"Primary <- MethodInvocation / FieldAccess / ArrayAccess / This\n" +
		"MethodInvocation <- Primary '.' Ident\n" +
		"FieldAccess <- Primary '.' Ident\n" +
		"ArrayAccess <- Primary '[' Ident ']'\n" +
		"This <- 'this'\n" +
		"Ident <- [a-z]+\n"

	g := mustModify(t, src)

	for _, name := range []string{"Primary", "MethodInvocation", "FieldAccess", "ArrayAccess"} {
		r := g.RuleByName(name)
		if r == nil {
			t.Fatalf("missing rule %s", name)
		}
		if !r.LeftRecursive {
			t.Errorf("want %s marked left-recursive", name)
		}
	}
	this := g.RuleByName("This")
	if this.LeftRecursive {
		t.Errorf("This must not be marked left-recursive")
	}
}

// spec.md §8 scenario 3: cut masking a sibling alternative.
func TestModify_CutMasksAlternative(t *testing.T) {
	src := "@entry\n" +
		"Char <- '\\\\' ^ 'n' / '\\\\' 'r'\n"

	fsys := fstest.MapFS{"g.peg": {Data: []byte(src)}}
	g, diags := preprocess.New(fsys, "go").Preprocess("g.peg")
	if diags.HasErrors() {
		t.Fatalf("preprocess errors: %v", diags.Diagnostics())
	}
	_, mdiags := Modify(g)
	if !mdiags.HasErrors() {
		t.Fatalf("want a SemanticError for the masked alternative")
	}
}

// spec.md §8 scenario 4: @ignore propagation into the return tuple.
func TestModify_IgnorePropagation(t *testing.T) {
	src := "@entry\n" +
		"TwoNumbers <- Number Sep Number\n" +
		"Number <- [0-9]+\n" +
		"Sep <- ' '\n" +
		"@ignore { Sep }\n"

	g := mustModify(t, src)

	tn := g.RuleByName("TwoNumbers")
	got := tn.Expr.Alts[0].ReturnTuple()
	want := []string{"number", "number1"}
	if len(got) != len(want) {
		t.Fatalf("want return tuple %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want return tuple %v, got %v", want, got)
		}
	}
}

// spec.md §8 scenario 6: the class trailing-dash fix.
func TestModify_ClassTrailingDashFixed(t *testing.T) {
	src := "@entry\n" +
		"Set <- [0-9_-]\n"

	g := mustModify(t, src)
	set := g.RuleByName("Set")
	class := set.Expr.Alts[0].Items[0].Item.(*ast.Class)

	wantSingles := map[rune]bool{'_': false, '-': false}
	foundDigitRange := false
	for _, r := range class.Ranges {
		if r.End != nil && r.Begin == '0' && *r.End == '9' {
			foundDigitRange = true
			continue
		}
		if r.Single() {
			if _, ok := wantSingles[r.Begin]; ok {
				wantSingles[r.Begin] = true
			}
		}
	}
	if !foundDigitRange {
		t.Errorf("want a merged 0-9 range, got %#v", class.Ranges)
	}
	for ch, found := range wantSingles {
		if !found {
			t.Errorf("want single-char range %q present, got %#v", ch, class.Ranges)
		}
	}
}

func TestModify_OrphanMetaRuleIsAnError(t *testing.T) {
	src := "@entry\n" +
		"A <- 'a'\n" +
		"$unused { return nil }\n"

	fsys := fstest.MapFS{"g.peg": {Data: []byte(src)}}
	g, diags := preprocess.New(fsys, "go").Preprocess("g.peg")
	if diags.HasErrors() {
		t.Fatalf("preprocess errors: %v", diags.Diagnostics())
	}
	_, mdiags := Modify(g)
	if !mdiags.HasErrors() {
		t.Fatalf("want an error for the unreferenced metarule")
	}
}

// A $name metaref nested inside a parenthesised alternative must resolve
// the same as a top-level one, and must not trip the orphan check.
func TestModify_MetaRefInsideParenExprResolves(t *testing.T) {
	src := "@entry\n" +
		"Rule <- ('a' / 'b' $foo) 'c'\n" +
		"$foo { return \"b\" }\n"

	g := mustModify(t, src)

	foo := g.MetaRuleByName("foo")
	if foo == nil || !foo.Referenced {
		t.Fatalf("want $foo resolved and referenced, got %#v", foo)
	}
}

func TestModify_UndefinedReferenceIsAnError(t *testing.T) {
	src := "@entry\n" +
		"A <- Missing\n"

	fsys := fstest.MapFS{"g.peg": {Data: []byte(src)}}
	g, diags := preprocess.New(fsys, "go").Preprocess("g.peg")
	if diags.HasErrors() {
		t.Fatalf("preprocess errors: %v", diags.Diagnostics())
	}
	_, mdiags := Modify(g)
	if !mdiags.HasErrors() {
		t.Fatalf("want an undefined-reference error")
	}
}

// spec.md §8 "idempotent modifier": running Modify again over its own
// output should not change it.
func TestModify_Idempotent(t *testing.T) {
	src := "@entry\n" +
		"Number <- Digit+ $int\n" +
		"Digit  <- [0-9]\n" +
		"$int { return join(digits) }\n"

	g := mustModify(t, src)
	before := len(g.Rules)

	g2, diags := Modify(g)
	if diags.HasErrors() {
		t.Fatalf("second modify pass errors: %v", diags.Diagnostics())
	}
	if len(g2.Rules) != before {
		t.Fatalf("want idempotent rule count %d, got %d", before, len(g2.Rules))
	}
}
