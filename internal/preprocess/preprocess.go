// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package preprocess implements the Preprocessor of spec.md §4.2: it
// resolves @include, @toplevel, and @backend(name) directives against a
// root grammar file and flattens the result into a single ast.Grammar,
// applying @entry and @ignore along the way.
//
// File reads are mediated through an fs.FS, the same externally-supplied
// collaborator seam the teacher leaves for I/O (spec.md §1 keeps
// filesystem access out of the core's concern; only the resolution
// algorithm — cycle detection, relative paths, conditional inlining — is
// this package's job). Glob includes are resolved with
// github.com/bmatcuk/doublestar/v4, generalizing the plain-path-only
// @include of spec.md into the richer form noted in SPEC_FULL.md's
// DOMAIN STACK.
package preprocess

import (
	"io/fs"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/diag"
	"github.com/mdhender/polygen/internal/parser"
)

// Preprocessor resolves one root grammar file against fsys, configured
// for a single target backend name (used to decide which @backend(name)
// blocks fire).
type Preprocessor struct {
	fsys     fs.FS
	backend  string
	diags    *diag.Batch
	visiting map[string]bool
}

// New creates a Preprocessor rooted at fsys, resolving @backend(name)
// blocks whose name matches backend.
func New(fsys fs.FS, backend string) *Preprocessor {
	return &Preprocessor{fsys: fsys, backend: backend, visiting: map[string]bool{}}
}

// Preprocess parses rootPath and returns the single flattened Grammar
// spec.md §4.2 step 3 describes, plus every diagnostic collected along
// the way (IncludeError, plus any SyntaxError/LexicalError surfaced by
// parsing an included file).
func (p *Preprocessor) Preprocess(rootPath string) (*ast.Grammar, *diag.Batch) {
	p.diags = &diag.Batch{}
	flat := p.flatten(rootPath, true)
	if flat == nil {
		return nil, p.diags
	}
	p.applyDeferred(flat)
	return flat, p.diags
}

// flatten parses filePath and resolves its own directives, recursing into
// @include targets. isTop is true only for the original root file; it
// gates whether @toplevel blocks in this file fire (spec.md §4.2 step 2).
func (p *Preprocessor) flatten(filePath string, isTop bool) *ast.Grammar {
	clean := path.Clean(filePath)
	if p.visiting[clean] {
		p.diags.Error(diag.Include, nil, "cyclic include: %s", clean)
		return nil
	}
	p.visiting[clean] = true
	defer delete(p.visiting, clean)

	f, err := p.fsys.Open(clean)
	if err != nil {
		p.diags.Error(diag.Include, nil, "cannot open %q: %v", clean, err)
		return nil
	}
	defer f.Close()

	g, pdiags := parser.Parse(clean, f)
	p.diags.Merge(pdiags)
	if pdiags.HasErrors() {
		return nil
	}

	out := &ast.Grammar{
		Rules:     append([]*ast.Rule(nil), g.Rules...),
		MetaRules: append([]*ast.MetaRule(nil), g.MetaRules...),
	}

	dir := path.Dir(clean)
	for _, d := range g.Directives {
		switch d.Kind {
		case ast.DirInclude:
			p.resolveInclude(out, dir, d)
		case ast.DirToplevelQuery:
			if isTop && d.Sub != nil {
				p.mergeSub(out, d.Sub, dir)
			}
		case ast.DirBackendQuery:
			if d.Sub != nil && d.Backend == p.backend {
				p.mergeSub(out, d.Sub, dir)
			}
		default:
			out.Directives = append(out.Directives, d)
		}
	}
	return out
}

// resolveInclude expands d.IncludePath (a literal path or a doublestar
// glob) relative to dir and merges every matched file's flattened
// contents into out, in sorted-path order.
func (p *Preprocessor) resolveInclude(out *ast.Grammar, dir string, d *ast.Directive) {
	pattern := d.IncludePath
	if !path.IsAbs(pattern) {
		pattern = path.Join(dir, pattern)
	}

	if !doublestar.ValidatePattern(pattern) {
		p.diags.Error(diag.Include, d.At, "invalid include pattern %q", d.IncludePath)
		return
	}

	matches, err := doublestar.Glob(p.fsys, pattern)
	if err != nil {
		p.diags.Error(diag.Include, d.At, "cannot resolve include %q: %v", d.IncludePath, err)
		return
	}
	if len(matches) == 0 {
		// A literal, non-glob path that simply doesn't exist is reported
		// directly; a glob with no hits is the same failure mode under a
		// different name.
		p.diags.Error(diag.Include, d.At, "no files match %q", d.IncludePath)
		return
	}
	sort.Strings(matches)

	for _, m := range matches {
		sub := p.flatten(m, false)
		if sub == nil {
			continue
		}
		out.Rules = append(out.Rules, sub.Rules...)
		out.MetaRules = append(out.MetaRules, sub.MetaRules...)
		out.Directives = append(out.Directives, sub.Directives...)
	}
}

// mergeSub inlines the entities of an inline nested grammar (the body of
// an @toplevel or @backend(name) block, already parsed by internal/parser
// as part of the enclosing file). Includes inside the block still resolve
// against dir; further nested @toplevel/@backend blocks are a documented
// open question (spec.md §9: "nested queries are unsupported") and are
// reported rather than silently dropped.
func (p *Preprocessor) mergeSub(out *ast.Grammar, sub *ast.Grammar, dir string) {
	out.Rules = append(out.Rules, sub.Rules...)
	out.MetaRules = append(out.MetaRules, sub.MetaRules...)
	for _, d := range sub.Directives {
		switch d.Kind {
		case ast.DirInclude:
			p.resolveInclude(out, dir, d)
		case ast.DirToplevelQuery, ast.DirBackendQuery:
			p.diags.Warn(diag.Include, d.At, "nested %s inside a toplevel/backend block is not supported", d.Kind)
		default:
			out.Directives = append(out.Directives, d)
		}
	}
}

// applyDeferred resolves @entry and @ignore against the fully flattened
// rule set (spec.md §4.2 step 2, Entry/Ignore cases) and strips them from
// the output, leaving only @backend.<name> definitions (BackendDef) for
// the emitter/postprocessor, which spec.md says the preprocessor must not
// interpret.
func (p *Preprocessor) applyDeferred(g *ast.Grammar) {
	var kept []*ast.Directive
	entryDirectiveSeen := false
	for _, d := range g.Directives {
		switch d.Kind {
		case ast.DirEntry:
			if entryDirectiveSeen {
				p.diags.Error(diag.Semantic, d.At, "multiple @entry directives")
				continue
			}
			entryDirectiveSeen = true
			name := ""
			if d.EntryID != nil {
				name = d.EntryID.Name
			}
			rule := g.RuleByName(name)
			if rule == nil {
				p.diags.Error(diag.Semantic, d.At, "@entry refers to unknown rule %q", name)
				continue
			}
			if g.Entry != nil && g.Entry != rule {
				p.diags.Error(diag.Semantic, d.At, "multiple @entry directives")
				continue
			}
			rule.Entry = true
			g.Entry = rule
		case ast.DirIgnore:
			for _, id := range d.IgnoreIDs {
				rule := g.RuleByName(id.Name)
				if rule == nil {
					p.diags.Error(diag.Semantic, id.At, "@ignore refers to unknown rule %q", id.Name)
					continue
				}
				rule.Ignore = true
			}
		default:
			kept = append(kept, d)
		}
	}
	g.Directives = kept
}
