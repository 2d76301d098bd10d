package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/xplshn/scc/pkg/cli"
	"github.com/xplshn/scc/pkg/config"
	"github.com/xplshn/scc/pkg/driver"
	"github.com/xplshn/scc/pkg/parser"
	"github.com/xplshn/scc/pkg/token"
	"github.com/xplshn/scc/pkg/util"
)

// exitCode is returned by the action to select the process status.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

const (
	exitFatal exitCode = 1
	exitUsage exitCode = 2
)

func main() {
	app := cli.NewApp("scc")
	app.Synopsis = "[options] <input.c>"
	app.Description = "A front end for a small subset of C. It scans and checks the syntax of one source file and stops at the first error."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/scc>"

	var (
		stage      string
		std        string
		configFile string
		caret      bool
		pedantic   bool
		dumpTokens bool
		format     bool
		grammar    bool
		verbose    bool
	)

	fs := app.FlagSet
	fs.String(&stage, "stage", "s", "", "Stop after the given stage (lex, syntax). Defaults to syntax.", "stage")
	fs.String(&std, "std", "", "", "Specify language standard (SC, C).", "std")
	fs.String(&configFile, "config", "c", "", "Read settings from a TOML file before applying flags.", "file")
	fs.Bool(&caret, "caret", "", false, "Echo the offending source line under an error.")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue all warnings demanded by the current std.")
	fs.Bool(&dumpTokens, "tokens", "t", false, "Print every accepted token.")
	fs.Bool(&format, "format", "f", false, "Re-print the accepted source with canonical layout.")
	fs.Bool(&grammar, "grammar", "", false, "Print the accepted grammar in EBNF and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Report declarations and counts after a successful run.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		if grammar {
			g, err := parser.Grammar()
			if err != nil {
				fmt.Fprintf(os.Stderr, "grammar: %v\n", err)
				return exitFatal
			}
			parser.PrintGrammar(os.Stdout, g)
			return nil
		}
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "scc: exactly one input file is required")
			app.Usage(os.Stderr)
			return exitUsage
		}

		// Pedantic affects how a std is applied, so it goes first.
		if pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}
		if configFile != "" {
			if err := cfg.LoadFile(configFile); err != nil {
				fmt.Fprintf(os.Stderr, "scc: %v\n", err)
				return exitUsage
			}
		}
		if std != "" {
			if err := cfg.ApplyStd(std); err != nil {
				fmt.Fprintf(os.Stderr, "scc: %v\n", err)
				return exitUsage
			}
		}
		if stage != "" {
			st, err := config.ParseStage(stage)
			if err != nil {
				fmt.Fprintf(os.Stderr, "scc: %v\n", err)
				return exitUsage
			}
			cfg.Stage = st
		}
		if caret {
			cfg.Caret = true
		}
		// Flags override the std and the config file.
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		opts := driver.Options{Color: cli.IsTerminal(os.Stdout)}
		if dumpTokens {
			opts.Tokens = os.Stdout
		}
		if format {
			opts.Format = os.Stdout
		}

		res, err := driver.CompileFile(args[0], cfg, os.Stdout, opts)
		switch {
		case errors.Is(err, driver.ErrOpen):
			fmt.Fprintf(os.Stderr, "scc: %v\n", err)
			return exitUsage
		case util.IsFatal(err):
			return exitFatal
		case err != nil:
			fmt.Fprintf(os.Stderr, "scc: %v\n", err)
			return exitFatal
		}
		if verbose {
			report(res)
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		os.Exit(int(exitUsage))
	}
}

func report(res driver.Result) {
	fmt.Printf("%d lines, %d tokens, %d identifiers, %d warnings\n", res.Lines, res.Tokens, res.Identifiers, res.Warnings)
	if res.Stage == config.StageLex {
		return
	}
	s := res.Stats
	fmt.Printf("%d functions, %d declarations, %d members, %d statements\n", s.Functions, s.Declarations, s.Members, s.Statements)
	for _, d := range res.Declarations {
		kind := "object"
		switch {
		case d.Definition:
			kind = "function definition"
		case d.Function:
			kind = "function"
		}
		fmt.Printf("  %4d  %-6s %-20s %s", d.Line, d.Class, d.Name, kind)
		if d.Function && d.CallConv != token.KwCdecl {
			fmt.Printf(" %s", d.CallConv)
		}
		if d.Align > 0 {
			fmt.Printf(" aligned %d", d.Align)
		}
		fmt.Println()
	}
}
