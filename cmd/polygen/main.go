// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Command polygen is the CLI front end for the Polygen PEG parser
// generator pipeline (spec.md §6). It replaces the teacher's
// flag-based, panic("not implemented") cmd/guanabana/main.go with a
// working cobra command tree wired straight through
// internal/preprocess, internal/modify, internal/emit,
// internal/postprocess, and internal/backend.
package main

import (
	"fmt"
	"os"

	"github.com/maloquacious/semver"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = semver.Version{
	Minor:      1,
	PreRelease: "alpha",
}

var (
	debugFlag bool
	traceFlag bool
	logger    zerolog.Logger
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "polygen: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "polygen",
		Short:   "Polygen — a Packrat PEG parser generator",
		Long:    "Polygen reads a PEG grammar file and emits a packrat recognizer in a target language.",
		Version: version.String(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger()
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log pipeline stage entry/exit at debug level")
	cmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "log emission at trace level (implies --debug)")

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newTestCmd())
	return cmd
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case traceFlag:
		level = zerolog.TraceLevel
	case debugFlag:
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).
		Level(level).
		With().Timestamp().Logger()
}
