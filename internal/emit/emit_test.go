// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package emit

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mdhender/polygen/internal/modify"
	"github.com/mdhender/polygen/internal/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEmit(t *testing.T, src string) map[string]string {
	t.Helper()
	fsys := fstest.MapFS{"g.peg": {Data: []byte(src)}}
	g, diags := preprocess.New(fsys, "go").Preprocess("g.peg")
	require.False(t, diags.HasErrors(), "preprocess: %v", diags.Diagnostics())

	mg, mdiags := modify.Modify(g)
	require.False(t, mdiags.HasErrors(), "modify: %v", mdiags.Diagnostics())

	return Emit(mg, NewGoBackend())
}

func TestEmit_MinimalNumberGrammar(t *testing.T) {
	src := "@entry\n" +
		"Number <- Digit+ $int\n" +
		"Digit  <- [0-9]\n" +
		"$int { return join(digits) }\n"

	frags := mustEmit(t, src)

	require.Contains(t, frags, "rules")
	require.Contains(t, frags, "entrypoint")
	require.Contains(t, frags, "header")
	require.Contains(t, frags, "state_type")

	assert.Contains(t, frags["rules"], "parseNumber")
	assert.Contains(t, frags["rules"], "parseDigit")
	assert.Contains(t, frags["rules"], "parseNumber__GEN_1")
	assert.Contains(t, frags["entrypoint"], "p.parseNumber(0)")
}

func TestEmit_ChoiceProducesDispatchOverAlternatives(t *testing.T) {
	src := "@entry\n" +
		"Bool <- 'true' / 'false'\n"

	frags := mustEmit(t, src)

	assert.Contains(t, frags["rules"], "parseBoolAlt0")
	assert.Contains(t, frags["rules"], "parseBoolAlt1")
	assert.Contains(t, frags["rules"], "committed")
}

func TestEmit_LeftRecursiveRuleGetsSeedAndGrowLoop(t *testing.T) {
	src := "@entry\n" +
		"Expr <- Expr '+' Digit / Digit\n" +
		"Digit <- [0-9]\n"

	frags := mustEmit(t, src)

	assert.True(t, strings.Contains(frags["rules"], "for {") && strings.Contains(frags["rules"], "parseExprBody"),
		"want a seed-and-grow loop for the left-recursive rule, got:\n%s", frags["rules"])
}

func TestEmit_CutSuppressesLaterAlternativeOnFailure(t *testing.T) {
	src := "@entry\n" +
		"S <- 'a' ^ 'b' / 'c'\n"

	frags := mustEmit(t, src)

	assert.Contains(t, frags["rules"], "committed = true")
}
