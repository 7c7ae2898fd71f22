package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/xplshn/pcgk/pkg/cli"
	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/highlight"
	"golang.org/x/term"
)

var errFailed = errors.New("compilation failed")

type options struct {
	outDir     string
	format     string
	style      string
	highlight  bool
	dumpTokens bool
	dumpTables bool
	watch      bool
	verbose    bool
}

func main() {
	app := cli.NewApp("pcgk")
	app.Synopsis = "[options] <graph.toml|graph.yaml> ..."
	app.Description = "A compiler for PCG Custom HLSL kernels. Reads graph manifests and writes one compute shader per kernel."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/pcgk>"
	app.Since = 2025

	var (
		opts      options
		groupSize int
		maxAttrs  int
		wall      bool
		wnoall    bool
	)

	fs := app.FlagSet
	fs.String(&opts.outDir, "output", "o", "-", "Write cooked kernels into <dir>, or to stdout with '-'.", "dir")
	fs.String(&opts.format, "format", "f", "hlsl", "Output format (hlsl, json).", "format")
	fs.Bool(&opts.highlight, "highlight", "", false, "Syntax highlight HLSL written to a terminal.")
	fs.String(&opts.style, "style", "", highlight.DefaultStyle, "Colour style used by --highlight.", "name")
	fs.Bool(&opts.dumpTokens, "dump-tokens", "", false, "Print the classified tokens of every source and exit.")
	fs.Bool(&opts.dumpTables, "dump-tables", "", false, "Print the attribute and string tables after compiling.")
	fs.Bool(&opts.watch, "watch", "w", false, "Recompile whenever a manifest or shader source changes.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print progress and verbose kernel log entries.")
	fs.Int(&groupSize, "thread-group-size", "", config.DefaultThreadGroupSize, "Threads per group in [numthreads].", "n")
	fs.Int(&maxAttrs, "max-attributes", "", config.DefaultMaxCustomAttributes, "Capacity of the graph attribute table.", "n")
	fs.Bool(&wall, "Wall", "", false, "Enable every warning.")
	fs.Bool(&wnoall, "Wno-all", "", false, "Disable every warning.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputs []string) error {
		if len(inputs) == 0 {
			app.WriteUsage(os.Stderr)
			return fmt.Errorf("no input files specified")
		}
		if opts.format != "hlsl" && opts.format != "json" {
			return fmt.Errorf("unknown output format '%s'%s", opts.format, diag.Suggest(opts.format, []string{"hlsl", "json"}))
		}

		if err := applyGlobalWarnings(cfg, wall, wnoall); err != nil {
			return err
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		cfg.ThreadGroupSize = groupSize
		cfg.MaxCustomAttributes = maxAttrs
		if err := cfg.Validate(); err != nil {
			return err
		}

		var termOpts []termenv.OutputOption
		if !term.IsTerminal(int(os.Stderr.Fd())) {
			termOpts = append(termOpts, termenv.WithProfile(termenv.Ascii))
		}
		c := &compiler{
			cfg:      cfg,
			opts:     opts,
			reporter: diag.NewReporter(os.Stderr, opts.verbose, termOpts...),
			colorOut: term.IsTerminal(int(os.Stdout.Fd())),
		}

		if opts.watch {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.watch(ctx, inputs)
		}
		if !c.runAll(inputs) {
			return errFailed
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "pcgk: %v\n", err)
		}
		os.Exit(1)
	}
}

// applyGlobalWarnings applies -Wall and -Wno-all, in that order. It runs before
// the per warning flags.
func applyGlobalWarnings(cfg *config.Config, wall, wnoall bool) error {
	var flags []string
	if wall {
		flags = append(flags, "-Wall")
	}
	if wnoall {
		flags = append(flags, "-Wno-all")
	}
	return cfg.ProcessFlags(flags)
}
