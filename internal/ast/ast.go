// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package ast defines the normalised-PEG node model that flows through the
// Polygen pipeline: the parser produces it raw, the preprocessor flattens
// it, the modifier rewrites it in place, and the emitter walks the result
// read-only.
//
// Identifiers, rules, expressions, alternatives, named items, string
// literals, classes, metarules and directives carry an optional ParseInfo
// for diagnostics; the other Item variants (CharLit, AnyChar, ParenExpr,
// quantifiers, predicates) carry none. Passes either
// rebuild nodes or thread an explicit context; nodes never hold parent
// pointers, so cyclic reference graphs (left recursion) are represented
// out-of-band by index, not by pointer.
package ast

// ParseInfo locates a node in its source file for diagnostics.
type ParseInfo struct {
	File        string
	Line        int
	ColumnBegin int
	ColumnEnd   int
}

// Identifier is a name as it appeared in source, plus where.
type Identifier struct {
	Name string
	At   *ParseInfo
}

// Grammar is the top-level container produced by preprocessing a single
// root file (after all @include/@toplevel/@backend directives resolve).
type Grammar struct {
	Rules      []*Rule
	MetaRules  []*MetaRule
	Directives []*Directive

	// Entry is set once exactly one rule has Entry == true; nil beforehand.
	Entry *Rule
}

// RuleByName returns the rule with the given name, or nil.
func (g *Grammar) RuleByName(name string) *Rule {
	for _, r := range g.Rules {
		if r.ID.Name == name {
			return r
		}
	}
	return nil
}

// MetaRuleByName returns the metarule with the given name, or nil for the
// empty name (anonymous metarules are never looked up by name).
func (g *Grammar) MetaRuleByName(name string) *MetaRule {
	if name == "" {
		return nil
	}
	for _, m := range g.MetaRules {
		if m.ID != nil && m.ID.Name == name {
			return m
		}
	}
	return nil
}

// Rule is a named production: id <- expr, possibly entry and/or ignored.
type Rule struct {
	ID     Identifier
	Expr   *Expr
	Entry  bool
	Ignore bool

	// LeftRecursive is populated by the modifier's SCC pass (§4.3 step 9).
	LeftRecursive bool
	// Head marks a rule on which a left-recursive cycle is entered; these
	// are the seeds for the grow loop at runtime (§4.4).
	Head bool

	// Synthetic marks a rule introduced by the modifier's desugar pass
	// (§4.3 step 5) in place of a quantified or parenthesised
	// sub-expression. Metaname deduction (step 6) treats a reference to a
	// synthetic rule as an unnamed terminal, never as a named identifier.
	Synthetic bool

	At *ParseInfo
}

// Expr is an ordered choice of one or more alternatives.
type Expr struct {
	Alts []*Alt
	At   *ParseInfo
}

// Alt is a sequence of named items, with an optional attached semantic
// action (either an inline MetaRule or a reference to a named one).
type Alt struct {
	Items []*NamedItem

	Meta    *MetaRule // inline action, anonymous or named
	MetaRef *MetaRef  // reference to a top-level named metarule

	At *ParseInfo
}

// ReturnTuple computes the ordered list of metanames this alternative
// yields — every NamedItem whose value is not ignored, in source order.
func (a *Alt) ReturnTuple() []string {
	var names []string
	for _, it := range a.Items {
		if it.Ignored() {
			continue
		}
		names = append(names, it.MetaName)
	}
	return names
}

// NamedItem is one part of an alternative: an optional cut marker, an
// optional metaname binding (deduced if absent), and the matchable itself.
type NamedItem struct {
	MetaName string // "" until the modifier deduces or assigns one
	Explicit bool   // true if MetaName (or "_") was written by the user
	Cut      bool
	Item     Item
	At       *ParseInfo
}

// Ignored reports whether this item's value is excluded from the
// enclosing Alt's return tuple: either an explicit "_" metaname, or a
// predicate item, which never carries a metaname and never contributes to
// the tuple.
func (n *NamedItem) Ignored() bool {
	if n.Explicit && n.MetaName == "_" {
		return true
	}
	switch n.Item.(type) {
	case *And, *Not:
		return true
	}
	return false
}

// Item is the sum type of matchables. Each concrete type below implements
// it via an unexported marker method so switches over Item stay exhaustive
// and closed to the package.
type Item interface {
	isItem()
}

// Ref is a reference to another rule by name (resolved during modification).
type Ref struct {
	ID       Identifier
	Resolved *Rule // filled in by the "resolve identifiers" pass
}

// ParenExpr is a parenthesised sub-expression used inline in an Alt. The
// modifier's desugar pass replaces every occurrence with a Ref to a fresh
// synthetic rule.
type ParenExpr struct {
	Expr *Expr
}

// StringLit is a literal string, decoded to its sequence of code points.
// The modifier's "expand string literals" pass splits multi-char strings
// into per-Char NamedItems and collapses single-char strings to CharLit.
type StringLit struct {
	Chars []rune
	At    *ParseInfo
}

// CharLit is a single literal Unicode code point.
type CharLit struct {
	Value rune
}

// Class is an ordered set of character ranges, e.g. [0-9a-fA-F].
type Class struct {
	Ranges []Range
	At     *ParseInfo
}

// Range is a single char or an inclusive range (End == nil means single).
type Range struct {
	Begin rune
	End   *rune
}

// Single reports whether this range denotes exactly one code point.
func (r Range) Single() bool { return r.End == nil }

// AnyChar matches any single code point ('.').
type AnyChar struct{}

// ZeroOrOne is '?'.
type ZeroOrOne struct{ Item Item }

// ZeroOrMore is '*'.
type ZeroOrMore struct{ Item Item }

// OneOrMore is '+'.
type OneOrMore struct{ Item Item }

// Repetition is '{lo}' or '{lo,hi}'; Hi == nil means unbounded.
type Repetition struct {
	Item Item
	Lo   int
	Hi   *int
}

// And is the '&' lookahead predicate; never carries a metaname.
type And struct{ Item Item }

// Not is the '!' lookahead predicate; never carries a metaname.
type Not struct{ Item Item }

func (*Ref) isItem()        {}
func (*ParenExpr) isItem()  {}
func (*StringLit) isItem()  {}
func (*CharLit) isItem()    {}
func (*Class) isItem()      {}
func (*AnyChar) isItem()    {}
func (*ZeroOrOne) isItem()  {}
func (*ZeroOrMore) isItem() {}
func (*OneOrMore) isItem()  {}
func (*Repetition) isItem() {}
func (*And) isItem()        {}
func (*Not) isItem()        {}

// MetaRule is a semantic action body attached to an Alt, either inline or
// declared at top level and referenced by name via MetaRef.
type MetaRule struct {
	ID   *Identifier // nil for an inline/anonymous action
	Body string      // target-language source, with \} already unescaped
	At   *ParseInfo

	// Referenced is set true by the "resolve metarules" pass the first
	// time some MetaRef names it; used to report orphan metarules.
	Referenced bool
}

// MetaRef is a named reference to a top-level MetaRule ("$name").
type MetaRef struct {
	ID       Identifier
	Resolved *MetaRule
}

// Directive is a preprocessor-scope entity, a tagged union over DirKind.
type Directive struct {
	Kind DirKind
	At   *ParseInfo

	IncludePath string       // Include
	EntryID     *Identifier  // Entry
	IgnoreIDs   []Identifier // Ignore
	Backend     string       // BackendQuery / BackendDef
	BackendBody string       // BackendDef
	Sub         *Grammar     // ToplevelQuery / BackendQuery: the nested entities
}

// DirKind discriminates the Directive union.
type DirKind uint8

const (
	DirUnknown DirKind = iota
	DirInclude
	DirEntry
	DirIgnore
	DirToplevelQuery
	DirBackendQuery
	DirBackendDef
)

func (k DirKind) String() string {
	switch k {
	case DirInclude:
		return "@include"
	case DirEntry:
		return "@entry"
	case DirIgnore:
		return "@ignore"
	case DirToplevelQuery:
		return "@toplevel"
	case DirBackendQuery:
		return "@backend(name)"
	case DirBackendDef:
		return "@backend.<name>"
	default:
		return "@unknown"
	}
}
