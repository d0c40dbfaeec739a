// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdhender/polygen/internal/backend"
	"github.com/mdhender/polygen/internal/diag"
	"github.com/mdhender/polygen/internal/emit"
	"github.com/mdhender/polygen/internal/modify"
	"github.com/mdhender/polygen/internal/postprocess"
	"github.com/mdhender/polygen/internal/preprocess"
)

var (
	genBackendName   string
	genOutDir        string
	genDefines       []string
	genBackendConfig string
	genSkeletonPath  string
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <grammar-file>",
		Short: "Generate a packrat recognizer from a PEG grammar file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	cmd.Flags().StringVarP(&genBackendName, "backend", "b", "go", "target backend name")
	cmd.Flags().StringVarP(&genOutDir, "out-dir", "o", ".", "output directory")
	cmd.Flags().StringArrayVarP(&genDefines, "define", "d", nil, "backend-specific key=value setting, repeatable")
	cmd.Flags().StringVar(&genBackendConfig, "backend-config", "", "YAML file of additional backend descriptors (merged over the built-ins)")
	cmd.Flags().StringVar(&genSkeletonPath, "skeleton", "", "skeleton file to postprocess (defaults to a built-in minimal skeleton for the \"go\" backend)")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	grammarFile := args[0]
	defines, err := parseDefines(genDefines)
	if err != nil {
		return err
	}

	logger.Debug().Str("grammar", grammarFile).Str("backend", genBackendName).Msg("generate: start")

	reg := backend.Default()
	if genBackendConfig != "" {
		loaded, err := backend.Load(os.DirFS(filepath.Dir(genBackendConfig)), filepath.Base(genBackendConfig))
		if err != nil {
			return err
		}
		for _, name := range loaded.Names() {
			d, _ := loaded.Lookup(name)
			reg.Register(d)
		}
	}
	desc, ok := reg.Lookup(genBackendName)
	if !ok {
		return fmt.Errorf("unknown backend %q (known: %s)", genBackendName, strings.Join(reg.Names(), ", "))
	}

	fsys := os.DirFS(filepath.Dir(grammarFile))
	base := filepath.Base(grammarFile)

	logger.Debug().Msg("preprocess: start")
	g, diags := preprocess.New(fsys, genBackendName).Preprocess(base)
	if diags.HasErrors() {
		return reportAndFail(diags)
	}
	logger.Debug().Int("rules", len(g.Rules)).Msg("preprocess: done")

	logger.Debug().Msg("modify: start")
	mg, mdiags := modify.Modify(g)
	diags.Merge(mdiags)
	if mdiags.HasErrors() {
		return reportAndFail(diags)
	}
	logger.Debug().Msg("modify: done")

	if genBackendName != "go" {
		return fmt.Errorf("backend %q has no built-in emitter (only \"go\" is implemented); use a generated skeleton from another toolchain", genBackendName)
	}

	logger.Debug().Msg("emit: start")
	fragments := emit.Emit(mg, emit.NewGoBackend())
	logger.Trace().Int("fragment_count", len(fragments)).Msg("emit: done")

	skeleton, err := loadSkeleton(defines)
	if err != nil {
		return err
	}

	logger.Debug().Msg("postprocess: start")
	out, pdiags := postprocess.Substitute(skeleton, fragments, desc)
	if pdiags.HasErrors() {
		for _, d := range pdiags.Diagnostics() {
			fmt.Fprintln(os.Stderr, d.String())
		}
		return fmt.Errorf("postprocess: %d error(s)", len(pdiags.Diagnostics()))
	}

	if err := os.MkdirAll(genOutDir, 0o755); err != nil {
		return fmt.Errorf("out-dir: %w", err)
	}
	outName := strings.TrimSuffix(base, filepath.Ext(base)) + desc.OutputExt
	outPath := filepath.Join(genOutDir, outName)
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	logger.Debug().Str("output", outPath).Msg("generate: done")
	fmt.Fprintln(cmd.OutOrStdout(), outPath)
	return nil
}

// parseDefines turns repeated "-d key=value" flags into a map, per
// spec.md §6's "[-d key=value ...]". A define without "=" is an error.
func parseDefines(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("-d %q: expected key=value", kv)
		}
		out[name] = val
	}
	return out, nil
}

// loadSkeleton returns the skeleton bytes to postprocess: the file named
// by --skeleton or defines["skeleton"] if set, otherwise the built-in
// minimal skeleton for the "go" backend (spec.md §6 leaves skeleton
// sourcing to an external collaborator; SPEC_FULL.md's CLI needs a
// no-config-required default to actually run end to end).
func loadSkeleton(defines map[string]string) ([]byte, error) {
	path := genSkeletonPath
	if path == "" {
		path = defines["skeleton"]
	}
	if path == "" {
		if pkg := defines["package"]; pkg != "" {
			return []byte(fmt.Sprintf(goSkeletonTemplate, pkg)), nil
		}
		return []byte(fmt.Sprintf(goSkeletonTemplate, "parser")), nil
	}
	return os.ReadFile(path)
}

const goSkeletonTemplate = `@backend.header { }
package %s

@backend.state_type { }

@backend.rules { }

@backend.entrypoint { }
`

func reportAndFail(diags *diag.Batch) error {
	for _, d := range diags.Diagnostics() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	return fmt.Errorf("%d error(s)", len(diags.Diagnostics()))
}
