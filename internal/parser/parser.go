// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package parser implements the Grammar Parser of spec.md §4.1: a
// hand-written packrat recognizer for the Polygen grammar language
// itself, bootstrapped from the very PEG shape it accepts (ordered
// choice, sequencing, quantifiers, lookahead, cut). Every production
// that can be re-entered at a position it has already tried — Expr,
// Alt, Part, Primary, Rule, MetaRuleDecl, and Directive — is memoized
// by (production, token position) in parser.memo, the same memo-keyed
// shape internal/emit/go_backend.go generates for polygen's own output
// parsers, consulted before any work and populated after.
//
// Architecturally this generalizes two teacher shapes at once: the
// token-driven walk of internal/lex.Tokenize (now internal/scanner), and
// the errList-style furthest-failure tracking of the pack's bootstrapped
// pigeon parser (other_examples/...pigeon-bootstrap-parser.go.go), which
// is itself exactly this "a packrat parser generator parses its own
// grammar language with a hand-written parser" pattern.
package parser

import (
	"io"
	"strings"

	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/diag"
	"github.com/mdhender/polygen/internal/scanner"
	"github.com/mdhender/polygen/internal/token"
)

// Parse reads source from r (attributed to origin for diagnostics) and
// returns the raw, unnormalised Grammar described in spec.md §3, plus a
// diagnostics batch (spec.md §7). Public contract per spec.md §4.1.
func Parse(origin string, r io.Reader) (*ast.Grammar, *diag.Batch) {
	batch := &diag.Batch{}
	toks, err := scanner.Tokenize(origin, r)
	if err != nil {
		batch.Error(diag.Lexical, nil, "%v", err)
		return nil, batch
	}
	p := newParser(origin, toks, batch)
	g := p.parseEntities()
	if p.cur().Type != token.EOF {
		p.failHere("end of input")
		p.failed = true
	}
	if p.failed {
		p.reportFurthestFailure()
	}
	return g, batch
}

type parser struct {
	origin string
	toks   []token.Token
	pos    int
	diags  *diag.Batch

	maxFailPos      int
	maxFailExpected map[string]bool
	failed          bool // an entity could not be parsed

	memo map[memoKey]memoEntry
}

func newParser(origin string, toks []token.Token, batch *diag.Batch) *parser {
	return &parser{
		origin:          origin,
		toks:            toks,
		diags:           batch,
		maxFailExpected: map[string]bool{},
		memo:            map[memoKey]memoEntry{},
	}
}

// memoKey identifies one attempt to recognise a production at a token
// position — the packrat cache key spec.md §4.1 requires.
type memoKey struct {
	rule string
	pos  int
}

// memoEntry is a cached recognition attempt: the production's result
// (nil for a pointer/interface type, or the zero value, on failure) and
// the token position just past it, so a cache hit can fast-forward p.pos
// without re-running the production.
type memoEntry struct {
	value  any
	endPos int
}

// memoize runs parse at the current position exactly once, caching its
// result under (rule, p.pos); a later call at the same position replays
// the cached result and advances p.pos to the cached endPos instead of
// re-parsing. This is the same (rule, position) memo-table shape
// internal/emit/go_backend.go generates for polygen's own target
// parsers, applied here to the grammar parser's own productions.
func memoize[T any](p *parser, rule string, parse func() T) T {
	key := memoKey{rule: rule, pos: p.pos}
	if e, ok := p.memo[key]; ok {
		p.pos = e.endPos
		v, _ := e.value.(T)
		return v
	}
	v := parse()
	p.memo[key] = memoEntry{value: v, endPos: p.pos}
	return v
}

func (p *parser) cur() token.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return token.Token{Type: token.EOF}
}

func (p *parser) mark() int { return p.pos }
func (p *parser) reset(m int) {
	p.pos = m
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// failHere records a failed expectation at the current position for the
// furthest-failure error report (the same "expected set at the deepest
// reached position" strategy pigeon's bootstrap parser uses).
func (p *parser) failHere(expected string) {
	if p.pos > p.maxFailPos {
		p.maxFailPos = p.pos
		p.maxFailExpected = map[string]bool{expected: true}
	} else if p.pos == p.maxFailPos {
		p.maxFailExpected[expected] = true
	}
}

func (p *parser) reportFurthestFailure() {
	if len(p.maxFailExpected) == 0 {
		return
	}
	var expected []string
	for e := range p.maxFailExpected {
		expected = append(expected, e)
	}
	at := p.infoAt(p.maxFailPos)
	p.diags.Error(diag.Syntax, at, "expected %s", strings.Join(expected, " or "))
}

func (p *parser) infoAt(idx int) *ast.ParseInfo {
	var t token.Token
	if idx < len(p.toks) {
		t = p.toks[idx]
	} else if len(p.toks) > 0 {
		t = p.toks[len(p.toks)-1]
	}
	return &ast.ParseInfo{File: t.Pos.File, Line: t.Pos.Line, ColumnBegin: t.Pos.Column, ColumnEnd: t.Pos.Column}
}

func (p *parser) infoHere() *ast.ParseInfo { return p.infoAt(p.pos) }

// expect consumes tok if it matches type t, recording a failure otherwise.
func (p *parser) expect(t token.Type) (token.Token, bool) {
	if p.cur().Type == t {
		return p.advance(), true
	}
	p.failHere(t.String())
	return token.Token{}, false
}

// peekAt looks ahead offset tokens past the current position without
// consuming anything.
func (p *parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i < len(p.toks) {
		return p.toks[i]
	}
	return token.Token{Type: token.EOF}
}

// ---------------------------------------------------------------------
// Grammar := Entity* EOF
// Entity  := Directive | MetaRuleDecl | Rule
// ---------------------------------------------------------------------

func (p *parser) parseEntities() *ast.Grammar {
	g := &ast.Grammar{}
	for {
		switch p.cur().Type {
		case token.EOF:
			return g
		case token.At:
			if d := p.parseDirective(); d != nil {
				g.Directives = append(g.Directives, d)
				if d.Kind == ast.DirEntry && d.EntryID == nil {
					p.bindImplicitEntry(d, g)
				}
			} else {
				p.recoverEntity()
			}
		case token.Dollar:
			if m := p.parseMetaRuleDecl(); m != nil {
				g.MetaRules = append(g.MetaRules, m)
			} else {
				p.recoverEntity()
			}
		case token.Ident:
			if r := p.parseRule(); r != nil {
				g.Rules = append(g.Rules, r)
			} else {
				p.recoverEntity()
			}
		default:
			p.failHere("directive, metarule, or rule")
			p.recoverEntity()
		}
	}
}

// bindImplicitEntry parses the rule a bare "@entry" immediately precedes
// and fills in the directive's EntryID with that rule's name, so the
// preprocessor never has to reason about entity order itself.
func (p *parser) bindImplicitEntry(d *ast.Directive, g *ast.Grammar) {
	if p.cur().Type != token.Ident {
		p.failHere("a rule immediately following '@entry'")
		p.failed = true
		return
	}
	r := p.parseRule()
	if r == nil {
		p.failed = true
		return
	}
	g.Rules = append(g.Rules, r)
	id := r.ID
	d.EntryID = &id
}

// recoverEntity skips to the start of the next plausible entity so a
// single malformed construct doesn't cascade into unrelated errors —
// each stage still reports diagnostics as a batch (spec.md §7).
func (p *parser) recoverEntity() {
	p.failed = true
	if p.cur().Type == token.EOF {
		return
	}
	p.advance()
	for p.cur().Type != token.EOF && p.cur().Type != token.At && p.cur().Type != token.Dollar {
		if p.cur().Type == token.Ident {
			// An Ident followed by Arrow plausibly starts a new Rule.
			save := p.mark()
			p.advance()
			isRuleStart := p.cur().Type == token.Arrow
			p.reset(save)
			if isRuleStart {
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseRule() *ast.Rule {
	return memoize(p, "Rule", p.parseRuleUncached)
}

func (p *parser) parseRuleUncached() *ast.Rule {
	start := p.infoHere()
	idTok, ok := p.expect(token.Ident)
	if !ok {
		return nil
	}
	if _, ok := p.expect(token.Arrow); !ok {
		return nil
	}
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	return &ast.Rule{
		ID:   ast.Identifier{Name: idTok.Literal, At: p.infoFromTok(idTok)},
		Expr: expr,
		At:   start,
	}
}

func (p *parser) infoFromTok(t token.Token) *ast.ParseInfo {
	return &ast.ParseInfo{File: t.Pos.File, Line: t.Pos.Line, ColumnBegin: t.Pos.Column, ColumnEnd: t.Pos.Column}
}

// ---------------------------------------------------------------------
// Expr := Alt ('/' Alt)*
// ---------------------------------------------------------------------

func (p *parser) parseExpr() *ast.Expr {
	return memoize(p, "Expr", p.parseExprUncached)
}

func (p *parser) parseExprUncached() *ast.Expr {
	at := p.infoHere()
	first := p.parseAlt()
	if first == nil {
		return nil
	}
	alts := []*ast.Alt{first}
	for p.cur().Type == token.Slash {
		p.advance()
		a := p.parseAlt()
		if a == nil {
			return nil
		}
		alts = append(alts, a)
	}
	return &ast.Expr{Alts: alts, At: at}
}

// Alt := Part+ (BraceBody | '$' Ident)?
func (p *parser) parseAlt() *ast.Alt {
	return memoize(p, "Alt", p.parseAltUncached)
}

func (p *parser) parseAltUncached() *ast.Alt {
	at := p.infoHere()
	first := p.parsePart()
	if first == nil {
		return nil
	}
	items := []*ast.NamedItem{first}
	for {
		save := p.mark()
		it := p.parsePart()
		if it == nil {
			p.reset(save)
			break
		}
		items = append(items, it)
	}

	alt := &ast.Alt{Items: items, At: at}
	switch p.cur().Type {
	case token.BraceBody:
		t := p.advance()
		alt.Meta = &ast.MetaRule{Body: t.Literal, At: p.infoFromTok(t)}
	case token.Dollar:
		// "$name { ... }" is the next top-level MetaRuleDecl, not a
		// reference attached to this alternative.
		if p.peekAt(1).Type == token.Ident && p.peekAt(2).Type == token.BraceBody {
			break
		}
		p.advance()
		idTok, ok := p.expect(token.Ident)
		if ok {
			alt.MetaRef = &ast.MetaRef{ID: ast.Identifier{Name: idTok.Literal, At: p.infoFromTok(idTok)}}
		}
	}
	return alt
}

// Part := Cut? MetaName? Lookahead? Primary Quantifier?
func (p *parser) parsePart() *ast.NamedItem {
	return memoize(p, "Part", p.parsePartUncached)
}

func (p *parser) parsePartUncached() *ast.NamedItem {
	at := p.infoHere()

	cut := false
	if p.cur().Type == token.Caret {
		p.advance()
		cut = true
	}

	metaName, explicit := p.tryParseMetaNamePrefix()

	var wrap func(ast.Item) ast.Item
	switch p.cur().Type {
	case token.Amp:
		p.advance()
		wrap = func(it ast.Item) ast.Item { return &ast.And{Item: it} }
	case token.Bang:
		p.advance()
		wrap = func(it ast.Item) ast.Item { return &ast.Not{Item: it} }
	}

	prim := p.parsePrimary()
	if prim == nil {
		return nil
	}

	item := p.parseQuantifier(prim)
	if wrap != nil {
		item = wrap(item)
	}

	return &ast.NamedItem{MetaName: metaName, Explicit: explicit, Cut: cut, Item: item, At: at}
}

// tryParseMetaNamePrefix looks for "ident:" or "_:" ahead of a Primary,
// restoring position if the colon isn't there — the one place this
// recognizer needs a speculative, packrat-style lookahead.
func (p *parser) tryParseMetaNamePrefix() (name string, explicit bool) {
	if p.cur().Type != token.Ident {
		return "", false
	}
	save := p.mark()
	idTok := p.advance()
	if p.cur().Type == token.Colon {
		p.advance()
		return idTok.Literal, true
	}
	p.reset(save)
	return "", false
}

// Primary := Identifier | '(' Expr ')' | String | Class | '.'
func (p *parser) parsePrimary() ast.Item {
	return memoize(p, "Primary", p.parsePrimaryUncached)
}

func (p *parser) parsePrimaryUncached() ast.Item {
	switch p.cur().Type {
	case token.Ident:
		if p.peekAt(1).Type == token.Arrow {
			// "Name <-" starts the next Rule entity.
			p.failHere("identifier, '(', string, character class, or '.'")
			return nil
		}
		t := p.advance()
		return &ast.Ref{ID: ast.Identifier{Name: t.Literal, At: p.infoFromTok(t)}}
	case token.LParen:
		p.advance()
		e := p.parseExpr()
		if e == nil {
			return nil
		}
		if _, ok := p.expect(token.RParen); !ok {
			return nil
		}
		return &ast.ParenExpr{Expr: e}
	case token.String:
		t := p.advance()
		return &ast.StringLit{Chars: []rune(t.Literal), At: p.infoFromTok(t)}
	case token.Class:
		t := p.advance()
		return classFromToken(t)
	case token.Dot:
		p.advance()
		return &ast.AnyChar{}
	default:
		p.failHere("identifier, '(', string, character class, or '.'")
		return nil
	}
}

func classFromToken(t token.Token) *ast.Class {
	ranges := make([]ast.Range, 0, len(t.Ranges))
	for _, r := range t.Ranges {
		var end *rune
		if r.End != nil {
			e := *r.End
			end = &e
		}
		ranges = append(ranges, ast.Range{Begin: r.Begin, End: end})
	}
	return &ast.Class{Ranges: ranges}
}

// Quantifier := '?' | '*' | '+' | Repetition
func (p *parser) parseQuantifier(base ast.Item) ast.Item {
	switch p.cur().Type {
	case token.Question:
		p.advance()
		return &ast.ZeroOrOne{Item: base}
	case token.Star:
		p.advance()
		return &ast.ZeroOrMore{Item: base}
	case token.Plus:
		p.advance()
		return &ast.OneOrMore{Item: base}
	case token.Repetition:
		t := p.advance()
		rep := &ast.Repetition{Item: base, Lo: t.Lo}
		if t.Hi >= 0 {
			hi := t.Hi
			rep.Hi = &hi
		}
		return rep
	default:
		return base
	}
}

// ---------------------------------------------------------------------
// MetaRuleDecl := '$' Ident BraceBody
// ---------------------------------------------------------------------

func (p *parser) parseMetaRuleDecl() *ast.MetaRule {
	return memoize(p, "MetaRuleDecl", p.parseMetaRuleDeclUncached)
}

func (p *parser) parseMetaRuleDeclUncached() *ast.MetaRule {
	at := p.infoHere()
	p.advance() // '$'
	idTok, ok := p.expect(token.Ident)
	if !ok {
		return nil
	}
	bodyTok, ok := p.expect(token.BraceBody)
	if !ok {
		return nil
	}
	id := ast.Identifier{Name: idTok.Literal, At: p.infoFromTok(idTok)}
	return &ast.MetaRule{ID: &id, Body: bodyTok.Literal, At: at}
}

// ---------------------------------------------------------------------
// Directive := '@' ( include String | entry Ident? | ignore BraceBody
//                   | toplevel BraceBody | backend '(' Ident ')' BraceBody
//                   | backend '.' Ident BraceBody )
// ---------------------------------------------------------------------

func (p *parser) parseDirective() *ast.Directive {
	return memoize(p, "Directive", p.parseDirectiveUncached)
}

func (p *parser) parseDirectiveUncached() *ast.Directive {
	at := p.infoHere()
	p.advance() // '@'
	kwTok, ok := p.expect(token.Ident)
	if !ok {
		return nil
	}
	switch kwTok.Literal {
	case "include":
		strTok, ok := p.expect(token.String)
		if !ok {
			return nil
		}
		return &ast.Directive{Kind: ast.DirInclude, IncludePath: strTok.Literal, At: at}
	case "entry":
		d := &ast.Directive{Kind: ast.DirEntry, At: at}
		// "@entry Name" (explicit) vs. a bare "@entry" immediately preceding
		// the rule it marks (implicit, spec.md §8 scenario 1): an Ident
		// followed by '<-' here is the start of that next Rule entity, not
		// this directive's argument.
		if p.cur().Type == token.Ident && p.peekAt(1).Type != token.Arrow {
			t := p.advance()
			id := ast.Identifier{Name: t.Literal, At: p.infoFromTok(t)}
			d.EntryID = &id
		}
		return d
	case "ignore":
		bodyTok, ok := p.expect(token.BraceBody)
		if !ok {
			return nil
		}
		return &ast.Directive{Kind: ast.DirIgnore, IgnoreIDs: parseIdentList(bodyTok), At: at}
	case "toplevel":
		bodyTok, ok := p.expect(token.BraceBody)
		if !ok {
			return nil
		}
		sub, subDiags := parseSubstring(p.origin, bodyTok.Literal)
		p.diags.Merge(subDiags)
		return &ast.Directive{Kind: ast.DirToplevelQuery, Sub: sub, At: at}
	case "backend":
		return p.parseBackendDirective(at)
	default:
		p.failHere("include, entry, ignore, toplevel, or backend")
		return nil
	}
}

func (p *parser) parseBackendDirective(at *ast.ParseInfo) *ast.Directive {
	return memoize(p, "BackendDirective", func() *ast.Directive {
		return p.parseBackendDirectiveUncached(at)
	})
}

func (p *parser) parseBackendDirectiveUncached(at *ast.ParseInfo) *ast.Directive {
	switch p.cur().Type {
	case token.LParen:
		p.advance()
		nameTok, ok := p.expect(token.Ident)
		if !ok {
			return nil
		}
		if _, ok := p.expect(token.RParen); !ok {
			return nil
		}
		bodyTok, ok := p.expect(token.BraceBody)
		if !ok {
			return nil
		}
		sub, subDiags := parseSubstring(p.origin, bodyTok.Literal)
		p.diags.Merge(subDiags)
		return &ast.Directive{Kind: ast.DirBackendQuery, Backend: nameTok.Literal, Sub: sub, At: at}
	case token.Dot:
		p.advance()
		nameTok, ok := p.expect(token.Ident)
		if !ok {
			return nil
		}
		bodyTok, ok := p.expect(token.BraceBody)
		if !ok {
			return nil
		}
		return &ast.Directive{Kind: ast.DirBackendDef, Backend: nameTok.Literal, BackendBody: bodyTok.Literal, At: at}
	default:
		p.failHere("'(' or '.'")
		return nil
	}
}

// parseIdentList splits an @ignore brace body into identifiers. Position
// tracking inside a re-scanned brace body is necessarily approximate
// (documented as such in spec.md §9's "position reporting" open
// question): every identifier is attributed to the body's opening brace.
func parseIdentList(bodyTok token.Token) []ast.Identifier {
	fields := strings.FieldsFunc(bodyTok.Literal, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	info := &ast.ParseInfo{File: bodyTok.Pos.File, Line: bodyTok.Pos.Line, ColumnBegin: bodyTok.Pos.Column, ColumnEnd: bodyTok.Pos.Column}
	ids := make([]ast.Identifier, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, ast.Identifier{Name: f, At: info})
	}
	return ids
}

// parseSubstring re-tokenizes and re-parses a captured brace body as a
// nested grammar fragment, for @toplevel and @backend(name) queries.
func parseSubstring(origin, src string) (*ast.Grammar, *diag.Batch) {
	return Parse(origin, strings.NewReader(src))
}
