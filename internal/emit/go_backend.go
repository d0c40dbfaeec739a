// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package emit

import (
	"fmt"
	"strings"

	"github.com/mdhender/polygen/internal/ast"
)

// GoBackend is the Backend shipped with polygen itself, targeting Go
// source. It grounds the algorithmic contracts of spec.md §4.4 concretely:
//
//   - Packrat memoization keyed by (rule name, input position), consulted
//     before work and populated after, per rule.
//   - Warth/Douglass seed-and-grow for rules the modifier marked Head
//     (spec.md §4.3 step 9): seed the memo with NoMatch, then re-evaluate
//     the rule body until growth stops advancing the input pointer.
//   - Cut: a cut-marked item sets a per-alternative "committed" flag; a
//     later failure in a committed alternative reports failure for the
//     whole rule body instead of trying the next alternative.
//   - Return tuple: every alternative returns exactly the values of its
//     non-ignored items, in source order, or the attached metarule's
//     body when one is present.
type GoBackend struct {
	rules strings.Builder

	curRule       *ast.Rule
	curQuantifier ast.Item // non-nil iff the open rule is a desugared "quantifier over a simple primary" synthetic rule
	curAltFuncs   []string // per-alternative function bodies, flushed at EndRule
	quantifierSrc string   // the loop body, set instead of curAltFuncs for quantifier rules
	entrypoint    string   // the public Parse function, set by Postamble
}

// NewGoBackend returns a Backend ready to drive through Emit.
func NewGoBackend() *GoBackend {
	return &GoBackend{}
}

func (be *GoBackend) Preamble(g *ast.Grammar) {}

func (be *GoBackend) BeginRule(r *ast.Rule) {
	be.curRule = r
	be.curQuantifier = singleQuantifierItem(r.Expr)
	be.curAltFuncs = nil
	be.quantifierSrc = ""
}

func (be *GoBackend) Alternative(alt *ast.Alt, altIndex, total int) {
	if be.curQuantifier != nil {
		be.quantifierSrc = be.buildQuantifierBody()
		return
	}
	be.curAltFuncs = append(be.curAltFuncs, be.buildAltFunc(alt))
}

func (be *GoBackend) EndRule(r *ast.Rule) {
	name := r.ID.Name

	fmt.Fprintf(&be.rules, "func (p *Parser) parse%s(pos int) (Match, bool) {\n", name)
	fmt.Fprintf(&be.rules, "\tkey := memoKey{rule: %q, pos: pos}\n", name)
	be.rules.WriteString("\tif m, ok := p.memo[key]; ok {\n\t\treturn m, m.Ok\n\t}\n")

	if r.Head {
		be.rules.WriteString("\tp.memo[key] = Match{Ok: false}\n")
		be.rules.WriteString("\tfor {\n")
		fmt.Fprintf(&be.rules, "\t\tm := p.parse%sBody(pos)\n", name)
		be.rules.WriteString("\t\tprev := p.memo[key]\n")
		be.rules.WriteString("\t\tif !m.Ok || (prev.Ok && m.Next <= prev.Next) {\n\t\t\tbreak\n\t\t}\n")
		be.rules.WriteString("\t\tp.memo[key] = m\n")
		be.rules.WriteString("\t}\n")
		be.rules.WriteString("\tresult := p.memo[key]\n")
		be.rules.WriteString("\treturn result, result.Ok\n")
	} else {
		fmt.Fprintf(&be.rules, "\tm := p.parse%sBody(pos)\n", name)
		be.rules.WriteString("\tp.memo[key] = m\n")
		be.rules.WriteString("\treturn m, m.Ok\n")
	}
	be.rules.WriteString("}\n\n")

	fmt.Fprintf(&be.rules, "func (p *Parser) parse%sBody(pos int) Match {\n", name)
	if be.curQuantifier != nil {
		be.rules.WriteString(be.quantifierSrc)
	} else {
		for i := range be.curAltFuncs {
			fmt.Fprintf(&be.rules, "\tif m, committed := p.parse%sAlt%d(pos); m.Ok {\n\t\treturn m\n\t} else if committed {\n\t\treturn Match{Ok: false}\n\t}\n", name, i)
		}
		be.rules.WriteString("\treturn Match{Ok: false}\n")
	}
	be.rules.WriteString("}\n\n")

	for i, body := range be.curAltFuncs {
		fmt.Fprintf(&be.rules, "func (p *Parser) parse%sAlt%d(pos int) (Match, bool) {\n", name, i)
		be.rules.WriteString(body)
		be.rules.WriteString("}\n\n")
	}
}

func (be *GoBackend) Postamble(g *ast.Grammar) {
	var b strings.Builder
	b.WriteString("func Parse(input string) (any, bool) {\n")
	b.WriteString("\tp := NewParser(input)\n")
	if g.Entry != nil {
		fmt.Fprintf(&b, "\tm, ok := p.parse%s(0)\n", g.Entry.ID.Name)
	} else {
		b.WriteString("\tm, ok := Match{}, false\n")
	}
	b.WriteString("\tif !ok || m.Next != len(p.input) {\n\t\treturn nil, false\n\t}\n")
	b.WriteString("\treturn m.Val, true\n")
	b.WriteString("}\n")
	be.entrypoint = b.String()
}

func (be *GoBackend) Fragments() map[string]string {
	return map[string]string{
		"header":     "// Code generated by polygen. DO NOT EDIT.\n",
		"state_type": goStateType,
		"rules":      be.rules.String(),
		"entrypoint": be.entrypoint,
	}
}

const goStateType = `// Match is the result of attempting to recognise one rule at one
// position: Ok reports success, Next is the position just past the
// match, and Val holds the rule's return-tuple or metarule value.
type Match struct {
	Ok   bool
	Next int
	Val  any
}

type memoKey struct {
	rule string
	pos  int
}

// Parser holds the packrat memo table for a single, non-concurrent
// parse (spec.md §5: "per-parse and may not be shared across concurrent
// parses").
type Parser struct {
	input []rune
	memo  map[memoKey]Match
}

func NewParser(input string) *Parser {
	return &Parser{input: []rune(input), memo: make(map[memoKey]Match)}
}
`

// singleQuantifierItem reports whether e is shaped exactly like a
// synthetic rule the modifier's desugar pass produces for a quantifier:
// one alt, one item, that item a quantifier over a simple primary. Such
// a rule gets a dedicated loop body instead of the general
// alternative-dispatch shape.
func singleQuantifierItem(e *ast.Expr) ast.Item {
	if len(e.Alts) != 1 || len(e.Alts[0].Items) != 1 {
		return nil
	}
	it := e.Alts[0].Items[0].Item
	switch it.(type) {
	case *ast.ZeroOrOne, *ast.ZeroOrMore, *ast.OneOrMore, *ast.Repetition:
		return it
	default:
		return nil
	}
}

func quantifierBounds(it ast.Item) (inner ast.Item, lo int, hi *int) {
	switch v := it.(type) {
	case *ast.ZeroOrOne:
		one := 1
		return v.Item, 0, &one
	case *ast.ZeroOrMore:
		return v.Item, 0, nil
	case *ast.OneOrMore:
		return v.Item, 1, nil
	case *ast.Repetition:
		return v.Item, v.Lo, v.Hi
	default:
		return nil, 0, nil
	}
}

func (be *GoBackend) buildQuantifierBody() string {
	inner, lo, hi := quantifierBounds(be.curQuantifier)

	var b strings.Builder
	b.WriteString("\tcur := pos\n")
	b.WriteString("\tvar vals []any\n")
	b.WriteString("\tcount := 0\n")
	b.WriteString("\tfor {\n")
	if hi != nil {
		fmt.Fprintf(&b, "\t\tif count >= %d {\n\t\t\tbreak\n\t\t}\n", *hi)
	}
	b.WriteString("\t\tsave := cur\n")
	valExpr := emitSeqItem(&b, inner, "q", "cur = save\n\t\tgoto done")
	fmt.Fprintf(&b, "\t\tvals = append(vals, %s)\n", valExpr)
	b.WriteString("\t\tcount++\n")
	b.WriteString("\t}\n")
	b.WriteString("done:\n")
	fmt.Fprintf(&b, "\tif count < %d {\n\t\treturn Match{Ok: false}\n\t}\n", lo)
	b.WriteString("\treturn Match{Ok: true, Next: cur, Val: vals}\n")
	return b.String()
}

func (be *GoBackend) buildAltFunc(alt *ast.Alt) string {
	var b strings.Builder
	b.WriteString("\tcur := pos\n")
	b.WriteString("\tcommitted := false\n")

	boundVars := map[string]string{}
	for idx, ni := range alt.Items {
		if ni.Cut {
			b.WriteString("\tcommitted = true\n")
		}

		switch it := ni.Item.(type) {
		case *ast.And:
			emitPredicate(&b, false, it.Item, fmt.Sprintf("p%d", idx))
			continue
		case *ast.Not:
			emitPredicate(&b, true, it.Item, fmt.Sprintf("p%d", idx))
			continue
		}

		tmp := fmt.Sprintf("t%d", idx)
		valExpr := emitSeqItem(&b, ni.Item, tmp, "return Match{Ok: false}, committed")
		if ni.Ignored() {
			fmt.Fprintf(&b, "\t_ = %s\n", valExpr)
			continue
		}
		fmt.Fprintf(&b, "\t%s := %s\n", ni.MetaName, valExpr)
		boundVars[ni.MetaName] = ni.MetaName
	}

	fmt.Fprintf(&b, "\treturn Match{Ok: true, Next: cur, Val: %s}, committed\n", be.returnValueExpr(alt, boundVars))
	return b.String()
}

// returnValueExpr renders the Go expression an alternative returns as its
// Match.Val: the attached metarule's body (reindented, evaluated as an
// immediately-invoked closure so its metaname bindings are in scope) when
// present, otherwise the return tuple of spec.md §3, in source order.
func (be *GoBackend) returnValueExpr(alt *ast.Alt, boundVars map[string]string) string {
	if alt.Meta != nil {
		return fmt.Sprintf("func() any {\n%s\n\t}()", reindent(alt.Meta.Body, "\t\t"))
	}
	if alt.MetaRef != nil && alt.MetaRef.Resolved != nil {
		return fmt.Sprintf("func() any {\n%s\n\t}()", reindent(alt.MetaRef.Resolved.Body, "\t\t"))
	}
	names := alt.ReturnTuple()
	parts := make([]string, len(names))
	for i, n := range names {
		if v, ok := boundVars[n]; ok {
			parts[i] = v
		} else {
			parts[i] = "nil"
		}
	}
	return "[]any{" + strings.Join(parts, ", ") + "}"
}

// emitSeqItem writes the Go statements that attempt to match the simple
// primary it (a Ref, CharLit, Class, or AnyChar — the only shapes the
// modifier's desugar pass leaves inside a flat sequence or a quantifier
// loop body) starting at "cur", advancing cur on success and running
// failStmt — one or more full Go statements — on failure. It returns the
// Go expression yielding the primary's matched value.
func emitSeqItem(b *strings.Builder, it ast.Item, tmp, failStmt string) string {
	switch v := it.(type) {
	case *ast.CharLit:
		fmt.Fprintf(b, "\t\tif cur >= len(p.input) || p.input[cur] != %s {\n\t\t\t%s\n\t\t}\n", goRuneLit(v.Value), failStmt)
		fmt.Fprintf(b, "\t\t%s := p.input[cur]\n\t\tcur++\n", tmp)
		return tmp
	case *ast.AnyChar:
		fmt.Fprintf(b, "\t\tif cur >= len(p.input) {\n\t\t\t%s\n\t\t}\n", failStmt)
		fmt.Fprintf(b, "\t\t%s := p.input[cur]\n\t\tcur++\n", tmp)
		return tmp
	case *ast.Class:
		fmt.Fprintf(b, "\t\tif cur >= len(p.input) || !(%s) {\n\t\t\t%s\n\t\t}\n", classCond("p.input[cur]", v), failStmt)
		fmt.Fprintf(b, "\t\t%s := p.input[cur]\n\t\tcur++\n", tmp)
		return tmp
	case *ast.Ref:
		fmt.Fprintf(b, "\t\t%sM, %sOk := p.parse%s(cur)\n", tmp, tmp, v.ID.Name)
		fmt.Fprintf(b, "\t\tif !%sOk {\n\t\t\t%s\n\t\t}\n", tmp, failStmt)
		fmt.Fprintf(b, "\t\tcur = %sM.Next\n", tmp)
		return tmp + "M.Val"
	default:
		return "nil"
	}
}

// emitPredicate writes a lookahead check for And (neg=false) or Not
// (neg=true) around inner, without advancing cur.
func emitPredicate(b *strings.Builder, neg bool, inner ast.Item, tmp string) {
	var cond string
	switch v := inner.(type) {
	case *ast.Ref:
		fmt.Fprintf(b, "\t_, %sOk := p.parse%s(cur)\n", tmp, v.ID.Name)
		cond = tmp + "Ok"
	case *ast.CharLit:
		cond = fmt.Sprintf("cur < len(p.input) && p.input[cur] == %s", goRuneLit(v.Value))
	case *ast.AnyChar:
		cond = "cur < len(p.input)"
	case *ast.Class:
		cond = fmt.Sprintf("cur < len(p.input) && (%s)", classCond("p.input[cur]", v))
	default:
		cond = "false"
	}
	if neg {
		fmt.Fprintf(b, "\tif %s {\n\t\treturn Match{Ok: false}, committed\n\t}\n", cond)
	} else {
		fmt.Fprintf(b, "\tif !(%s) {\n\t\treturn Match{Ok: false}, committed\n\t}\n", cond)
	}
}

func classCond(expr string, v *ast.Class) string {
	parts := make([]string, 0, len(v.Ranges))
	for _, r := range v.Ranges {
		if r.End != nil {
			parts = append(parts, fmt.Sprintf("(%s >= %s && %s <= %s)", expr, goRuneLit(r.Begin), expr, goRuneLit(*r.End)))
		} else {
			parts = append(parts, fmt.Sprintf("%s == %s", expr, goRuneLit(r.Begin)))
		}
	}
	return strings.Join(parts, " || ")
}

func goRuneLit(r rune) string {
	return fmt.Sprintf("%q", r)
}

// reindent trims the surrounding whitespace of every line of body
// (trailing newlines dropped first) and prefixes each with indent, the
// emitter's only transformation of an opaque metarule body (spec.md §9:
// "the emitter only reindents them").
func reindent(body, indent string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	for i, l := range lines {
		lines[i] = indent + strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}
