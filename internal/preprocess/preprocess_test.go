// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package preprocess

import (
	"testing"
	"testing/fstest"
)

func TestPreprocess_IncludeFlattensEntities(t *testing.T) {
	fsys := fstest.MapFS{
		"root.peg": {Data: []byte("@include \"sep.peg\"\n" +
			"TwoNumbers <- Number Sep Number\n" +
			"Number <- [0-9]+\n")},
		"sep.peg": {Data: []byte("Sep <- ' '\n")},
	}
	g, diags := New(fsys, "go").Preprocess("root.peg")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if g.RuleByName("Sep") == nil {
		t.Fatalf("included rule Sep missing")
	}
	if len(g.Rules) != 3 {
		t.Fatalf("want 3 rules, got %d", len(g.Rules))
	}
}

func TestPreprocess_CyclicIncludeIsReported(t *testing.T) {
	fsys := fstest.MapFS{
		"a.peg": {Data: []byte("@include \"b.peg\"\nA <- 'a'\n")},
		"b.peg": {Data: []byte("@include \"a.peg\"\nB <- 'b'\n")},
	}
	_, diags := New(fsys, "go").Preprocess("a.peg")
	if !diags.HasErrors() {
		t.Fatalf("want a cyclic-include error")
	}
}

func TestPreprocess_EntryAndIgnore(t *testing.T) {
	fsys := fstest.MapFS{
		"root.peg": {Data: []byte("@entry\n" +
			"TwoNumbers <- Number Sep Number\n" +
			"Number <- [0-9]+\n" +
			"Sep <- ' '\n" +
			"@ignore { Sep }\n")},
	}
	g, diags := New(fsys, "go").Preprocess("root.peg")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if g.Entry == nil || g.Entry.ID.Name != "TwoNumbers" {
		t.Fatalf("want entry TwoNumbers, got %#v", g.Entry)
	}
	if sep := g.RuleByName("Sep"); sep == nil || !sep.Ignore {
		t.Fatalf("want Sep marked ignored, got %#v", sep)
	}
	for _, d := range g.Directives {
		if d.Kind.String() == "@entry" || d.Kind.String() == "@ignore" {
			t.Fatalf("entry/ignore directives should be consumed, found %v", d.Kind)
		}
	}
}

func TestPreprocess_ToplevelOnlyFiresAtRoot(t *testing.T) {
	fsys := fstest.MapFS{
		"root.peg": {Data: []byte("@include \"lib.peg\"\n" +
			"Main <- 'x'\n")},
		"lib.peg": {Data: []byte("@toplevel { @entry Helper }\n" +
			"Helper <- 'h'\n")},
	}
	g, diags := New(fsys, "go").Preprocess("root.peg")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if g.Entry != nil {
		t.Fatalf("@toplevel inside an included file must not fire, got entry %#v", g.Entry)
	}
}

func TestPreprocess_BackendQuerySelectsByName(t *testing.T) {
	fsys := fstest.MapFS{
		"root.peg": {Data: []byte("Main <- 'x'\n" +
			"@backend(go) { Extra <- 'e' }\n" +
			"@backend(rust) { Other <- 'o' }\n")},
	}
	g, diags := New(fsys, "go").Preprocess("root.peg")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if g.RuleByName("Extra") == nil {
		t.Fatalf("want Extra from the matching backend block")
	}
	if g.RuleByName("Other") != nil {
		t.Fatalf("did not want Other from the non-matching backend block")
	}
}
