// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package grammar provides the rule-reference arena the Modifier (spec.md
// §4.3) runs its graph passes over: left-recursion detection (step 9) and
// reachability (implied by the testable property in spec.md §8).
//
// Per spec.md §9's design note on cyclic graphs, rules are kept in an
// arena indexed by a stable integer (RuleID), and edges are plain index
// lists — never parent or sibling pointers stored on the AST itself. This
// generalizes the teacher's Builder, which assigned every Symbol a stable
// SymbolID at intern time (internal/grammar/builder.go, Intern) and then
// ran a BFS reachability pass over a map-of-symbols edge set
// (internal/grammar/builder_finalize.go, section 5). The index-keyed
// arena and the BFS shape are kept; the LALR-specific Symbol/precedence
// model is not, because a PEG grammar has no terminals, precedence, or
// associativity to track here.
package grammar

import "github.com/mdhender/polygen/internal/ast"

// RuleID is a stable, grammar-scoped index into a Graph's rule arena.
type RuleID int

// Graph is an index-keyed view over a grammar's rules, built once the
// modifier's desugar pass (step 5) has already replaced every composite
// sub-expression with a reference to a synthetic rule — so every Item a
// Graph walks is either a Ref or a terminal-shaped leaf, never a
// ParenExpr.
type Graph struct {
	rules []*ast.Rule
	index map[string]RuleID

	// firstEdges[i] holds the rules that could be invoked as rule i's very
	// first recognition step — the edge set left-recursion detection
	// walks. edges[i] holds every rule i references anywhere in its body —
	// the edge set reachability walks.
	firstEdges [][]RuleID
	edges      [][]RuleID
}

// Build indexes rules and computes both edge sets. Rules referencing an
// undefined name are simply skipped for edge purposes; the modifier's
// "resolve identifiers" pass (step 8) is responsible for reporting those
// as SemanticErrors.
func Build(rules []*ast.Rule) *Graph {
	g := &Graph{
		rules: rules,
		index: make(map[string]RuleID, len(rules)),
	}
	for i, r := range rules {
		g.index[r.ID.Name] = RuleID(i)
	}
	g.firstEdges = make([][]RuleID, len(rules))
	g.edges = make([][]RuleID, len(rules))
	for i, r := range rules {
		g.firstEdges[i] = g.computeFirstEdges(r)
		g.edges[i] = g.computeAllEdges(r)
	}
	return g
}

// Len reports the number of rules in the arena.
func (g *Graph) Len() int { return len(g.rules) }

// RuleAt returns the rule at index i.
func (g *Graph) RuleAt(i RuleID) *ast.Rule { return g.rules[i] }

// IndexOf returns the index of the rule named name, or (-1, false).
func (g *Graph) IndexOf(name string) (RuleID, bool) {
	id, ok := g.index[name]
	return id, ok
}

func (g *Graph) computeFirstEdges(r *ast.Rule) []RuleID {
	var out []RuleID
	seen := map[RuleID]bool{}
	for _, alt := range r.Expr.Alts {
		for _, it := range alt.Items {
			ref, continueOn := firstStep(it.Item)
			if ref != nil {
				if id, ok := g.index[ref.ID.Name]; ok && !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
			if !continueOn {
				break
			}
		}
	}
	return out
}

// firstStep reports the rule reference (if any) an item contributes to
// its alt's first-position set, and whether the following item in the
// same alt can also be in first position (true only when item may match
// the empty string).
func firstStep(item ast.Item) (ref *ast.Ref, nullable bool) {
	switch it := item.(type) {
	case *ast.Ref:
		return it, false
	case *ast.ZeroOrOne:
		r, _ := firstStep(it.Item)
		return r, true
	case *ast.ZeroOrMore:
		r, _ := firstStep(it.Item)
		return r, true
	case *ast.OneOrMore:
		r, _ := firstStep(it.Item)
		return r, false
	case *ast.Repetition:
		r, _ := firstStep(it.Item)
		return r, it.Lo == 0
	case *ast.And:
		r, _ := firstStep(it.Item)
		return r, true
	case *ast.Not:
		r, _ := firstStep(it.Item)
		return r, true
	default:
		return nil, false
	}
}

func (g *Graph) computeAllEdges(r *ast.Rule) []RuleID {
	var out []RuleID
	seen := map[RuleID]bool{}
	var walk func(item ast.Item)
	walk = func(item ast.Item) {
		switch it := item.(type) {
		case *ast.Ref:
			if id, ok := g.index[it.ID.Name]; ok && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		case *ast.ZeroOrOne:
			walk(it.Item)
		case *ast.ZeroOrMore:
			walk(it.Item)
		case *ast.OneOrMore:
			walk(it.Item)
		case *ast.Repetition:
			walk(it.Item)
		case *ast.And:
			walk(it.Item)
		case *ast.Not:
			walk(it.Item)
		case *ast.ParenExpr:
			for _, alt := range it.Expr.Alts {
				for _, ni := range alt.Items {
					walk(ni.Item)
				}
			}
		}
	}
	for _, alt := range r.Expr.Alts {
		for _, ni := range alt.Items {
			walk(ni.Item)
		}
	}
	return out
}

// FirstEdges returns the rules that could be invoked as rule id's very
// first recognition step (the edge set left-recursion detection walks).
func (g *Graph) FirstEdges(id RuleID) []RuleID { return g.firstEdges[id] }

// Reachable returns the set of rule indices reachable from start via the
// full reference edge set, start included.
func (g *Graph) Reachable(start RuleID) map[RuleID]bool {
	seen := map[RuleID]bool{start: true}
	stack := []RuleID{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.edges[n] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return seen
}

// SCCs returns the strongly connected components of the first-edge graph,
// in Tarjan order. A component of size 1 whose rule has no self-loop is
// not left-recursive; every larger component is, and so is a singleton
// with a self-loop.
func (g *Graph) SCCs() [][]RuleID {
	t := &tarjan{
		graph:   g,
		index:   make([]int, len(g.rules)),
		low:     make([]int, len(g.rules)),
		onStack: make([]bool, len(g.rules)),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for i := range g.rules {
		if t.index[i] == -1 {
			t.strongConnect(RuleID(i))
		}
	}
	return t.result
}

type tarjan struct {
	graph   *Graph
	counter int
	stack   []RuleID
	onStack []bool
	index   []int
	low     []int
	result  [][]RuleID
}

func (t *tarjan) strongConnect(v RuleID) {
	t.index[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.graph.firstEdges[v] {
		if t.index[w] == -1 {
			t.strongConnect(w)
			if t.low[w] < t.low[v] {
				t.low[v] = t.low[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.low[v] {
				t.low[v] = t.index[w]
			}
		}
	}

	if t.low[v] == t.index[v] {
		var comp []RuleID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.result = append(t.result, comp)
	}
}

// LeftRecursive reports whether the component comp is a left-recursive
// cycle: size > 1, or a singleton whose rule has a first-edge to itself.
func (g *Graph) LeftRecursive(comp []RuleID) bool {
	if len(comp) > 1 {
		return true
	}
	id := comp[0]
	for _, w := range g.firstEdges[id] {
		if w == id {
			return true
		}
	}
	return false
}
