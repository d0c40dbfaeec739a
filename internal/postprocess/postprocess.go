// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package postprocess implements the last pipeline stage of spec.md §4.5:
// substituting `@backend.<name> { ... }` placeholders in a skeleton file
// with the fragments the emitter produced. It never parses the skeleton
// as a grammar — the directive body is scanned with the same balanced-
// brace, `\}`-escaping convention internal/scanner uses for metarule
// bodies (spec.md §4.1, §9), since a skeleton is just target-language
// source with a handful of these markers embedded in it.
package postprocess

import (
	"bytes"

	"github.com/mdhender/polygen/internal/ast"
	"github.com/mdhender/polygen/internal/backend"
	"github.com/mdhender/polygen/internal/diag"
)

// Substitute scans skeleton for "@backend.<name> { body }" directives.
// Each directive whose name has an entry in fragments is replaced,
// directive and all, by that fragment's text; a directive whose name is
// unknown is left in place verbatim (spec.md §4.5: "Unknown directives
// are left unchanged without error").
//
// If desc's Placeholders lists a name never seen in skeleton, that is
// reported as a BackendError — an incomplete skeleton for the chosen
// backend. Pass a zero Descriptor to skip that check.
func Substitute(skeleton []byte, fragments map[string]string, desc backend.Descriptor) ([]byte, *diag.Batch) {
	diags := &diag.Batch{}
	var out bytes.Buffer
	seen := map[string]bool{}

	const prefix = "@backend."
	i := 0
	for i < len(skeleton) {
		if !bytes.HasPrefix(skeleton[i:], []byte(prefix)) {
			out.WriteByte(skeleton[i])
			i++
			continue
		}

		nameStart := i + len(prefix)
		j := nameStart
		for j < len(skeleton) && isIdentByte(skeleton[j]) {
			j++
		}
		name := string(skeleton[nameStart:j])

		k := j
		for k < len(skeleton) && isSpace(skeleton[k]) {
			k++
		}

		if name == "" || k >= len(skeleton) || skeleton[k] != '{' {
			// Not a well-formed directive after all; emit just the "@"
			// and keep scanning right after it.
			out.WriteByte(skeleton[i])
			i++
			continue
		}

		bodyEnd, ok := scanBalancedBrace(skeleton, k)
		if !ok {
			diags.Error(diag.Backend, lineInfo(skeleton, i), "unterminated @backend.%s directive", name)
			out.Write(skeleton[i:])
			break
		}

		seen[name] = true
		if frag, ok := fragments[name]; ok {
			out.WriteString(frag)
		} else {
			out.Write(skeleton[i:bodyEnd])
		}
		i = bodyEnd
	}

	for _, name := range desc.Placeholders {
		if !seen[name] {
			diags.Error(diag.Backend, nil, "skeleton missing required placeholder @backend.%s", name)
		}
	}

	return out.Bytes(), diags
}

// scanBalancedBrace returns the index just past the '}' matching the '{'
// at data[start], honouring nested braces and the "\}" escape — the same
// rules internal/scanner.scanBraceBody applies to metarule bodies.
func scanBalancedBrace(data []byte, start int) (int, bool) {
	level := 1
	i := start + 1
	for i < len(data) {
		switch data[i] {
		case '\\':
			if i+1 < len(data) && data[i+1] == '}' {
				i += 2
				continue
			}
			i++
		case '{':
			level++
			i++
		case '}':
			level--
			i++
			if level == 0 {
				return i, true
			}
		default:
			i++
		}
	}
	return 0, false
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func lineInfo(data []byte, pos int) *ast.ParseInfo {
	line, col := 1, 1
	for _, b := range data[:pos] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &ast.ParseInfo{Line: line, ColumnBegin: col}
}
