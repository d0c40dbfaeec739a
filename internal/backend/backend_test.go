// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package backend

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg := Default()
	d, ok := reg.Lookup("go")
	require.True(t, ok, "want a built-in \"go\" descriptor")
	assert.Equal(t, ".go", d.OutputExt)
	assert.True(t, d.RequiresPlaceholder("rules"))
	assert.False(t, d.RequiresPlaceholder("nonexistent"))
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name        string
		doc         string
		wantNames   []string
		wantErr     string
		wantExt     string
		lookupName  string
		wantMissing bool
	}{
		{
			name: "single backend",
			doc: "backends:\n" +
				"  - name: rust\n" +
				"    placeholders: [header, rules]\n" +
				"    output_ext: .rs\n",
			wantNames:  []string{"rust"},
			lookupName: "rust",
			wantExt:    ".rs",
		},
		{
			name: "multiple backends sorted",
			doc: "backends:\n" +
				"  - name: zig\n" +
				"    output_ext: .zig\n" +
				"  - name: c\n" +
				"    output_ext: .c\n",
			wantNames: []string{"c", "zig"},
		},
		{
			name:    "missing name is a backend error",
			doc:     "backends:\n  - output_ext: .go\n",
			wantErr: "descriptor missing name",
		},
		{
			name:        "unknown lookup",
			doc:         "backends:\n  - name: go\n    output_ext: .go\n",
			lookupName:  "missing",
			wantMissing: true,
		},
	}

	for _, tc := range testCases {
		fsys := fstest.MapFS{"backends.yaml": {Data: []byte(tc.doc)}}
		reg, err := Load(fsys, "backends.yaml")
		if tc.wantErr != "" {
			require.Error(t, err, tc.name)
			assert.Contains(t, err.Error(), tc.wantErr, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		if tc.wantNames != nil {
			assert.Equal(t, tc.wantNames, reg.Names(), tc.name)
		}
		if tc.lookupName != "" {
			d, ok := reg.Lookup(tc.lookupName)
			if tc.wantMissing {
				assert.False(t, ok, tc.name)
				continue
			}
			require.True(t, ok, tc.name)
			if tc.wantExt != "" {
				assert.Equal(t, tc.wantExt, d.OutputExt, tc.name)
			}
		}
	}
}
