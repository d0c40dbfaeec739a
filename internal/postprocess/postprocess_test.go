// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package postprocess

import (
	"testing"

	"github.com/mdhender/polygen/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute_KnownDirective(t *testing.T) {
	skeleton := []byte("package parser\n\n@backend.rules { placeholder }\n\nfunc main() {}\n")
	fragments := map[string]string{"rules": "func ParseNumber() {}"}

	out, diags := Substitute(skeleton, fragments, backend.Descriptor{})
	require.False(t, diags.HasErrors())
	assert.Contains(t, string(out), "func ParseNumber() {}")
	assert.NotContains(t, string(out), "@backend.rules")
}

func TestSubstitute_UnknownDirectiveLeftUnchanged(t *testing.T) {
	skeleton := []byte("@backend.unknown { stay put }\n")
	out, diags := Substitute(skeleton, map[string]string{"rules": "x"}, backend.Descriptor{})
	require.False(t, diags.HasErrors())
	assert.Equal(t, string(skeleton), string(out))
}

func TestSubstitute_NestedBraces(t *testing.T) {
	skeleton := []byte("@backend.rules { outer { inner } still-outer }\n")
	out, diags := Substitute(skeleton, map[string]string{"rules": "REPLACED"}, backend.Descriptor{})
	require.False(t, diags.HasErrors())
	assert.Equal(t, "REPLACED\n", string(out))
}

func TestSubstitute_EscapedBrace(t *testing.T) {
	skeleton := []byte(`@backend.rules { a \} b }` + "\n")
	out, diags := Substitute(skeleton, map[string]string{"rules": "REPLACED"}, backend.Descriptor{})
	require.False(t, diags.HasErrors())
	assert.Equal(t, "REPLACED\n", string(out))
}

func TestSubstitute_MissingRequiredPlaceholderIsAnError(t *testing.T) {
	skeleton := []byte("package parser\n")
	desc := backend.Descriptor{Name: "go", Placeholders: []string{"rules", "header"}}
	_, diags := Substitute(skeleton, map[string]string{}, desc)
	require.True(t, diags.HasErrors())
	assert.Len(t, diags.Diagnostics(), 2)
}

func TestSubstitute_UnterminatedDirectiveIsAnError(t *testing.T) {
	skeleton := []byte("@backend.rules { never closes")
	_, diags := Substitute(skeleton, map[string]string{"rules": "x"}, backend.Descriptor{})
	require.True(t, diags.HasErrors())
}
