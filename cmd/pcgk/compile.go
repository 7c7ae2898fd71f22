package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/graph"
	"github.com/xplshn/pcgk/pkg/highlight"
	"github.com/xplshn/pcgk/pkg/manifest"
	"github.com/xplshn/pcgk/pkg/token"
)

type compiler struct {
	cfg      *config.Config
	opts     options
	reporter *diag.Reporter
	colorOut bool
}

// result is the JSON form of one compiled graph.
type result struct {
	Graph       string               `json:"graph"`
	Kernels     []graph.CookedKernel `json:"kernels"`
	Threads     map[string]int       `json:"threads,omitempty"`
	Attributes  []string             `json:"attributes,omitempty"`
	Strings     []string             `json:"strings,omitempty"`
	Diagnostics []diag.Entry         `json:"diagnostics,omitempty"`
}

func (c *compiler) progress(format string, args ...any) {
	if c.opts.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// runAll compiles every manifest and reports whether all kernels succeeded.
func (c *compiler) runAll(paths []string) bool {
	ok := true
	for _, path := range paths {
		if err := c.run(path); err != nil {
			fmt.Fprintf(os.Stderr, "pcgk: %v\n", err)
			ok = false
		}
	}
	return ok
}

func (c *compiler) run(path string) error {
	c.progress("Loading %s...", path)
	g, err := manifest.Load(path)
	if err != nil {
		return err
	}

	c.progress("Compiling graph '%s' (%d kernels)...", g.Name, len(g.Kernels))
	cg, err := graph.Compile(g, c.cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if c.opts.dumpTokens {
		return c.writeTokens(os.Stdout, cg)
	}

	res := result{Graph: g.Name, Kernels: cg.Cooked()}
	log := cg.Log()
	if len(g.Inputs) > 0 {
		c.progress("Binding %d graph inputs...", len(g.Inputs))
		b := graph.NewBinding(cg, g.Inputs)
		if err := b.Initialize(); err != nil {
			c.reporter.ReportAll(b.Log().Entries())
			return fmt.Errorf("%s: %w", path, err)
		}
		res.Threads = make(map[string]int)
		for i, k := range cg.Kernels() {
			if !b.Validate(i) {
				res.Kernels[i].Valid = false
			}
			res.Threads[k.Name()] = b.ThreadCount(i)
		}
		log.Merge(b.Log())
	}
	for _, key := range cg.AttributeTable().Keys() {
		res.Attributes = append(res.Attributes, key.String())
	}
	res.Strings = cg.StringTable().Values()
	res.Diagnostics = log.Entries()

	c.reporter.ReportAll(log.Entries())
	if c.opts.dumpTables {
		c.writeTables(os.Stdout, cg)
	}

	if err := c.write(path, res); err != nil {
		return err
	}

	c.progress("%s: %s", path, diag.Summary(log))
	for _, k := range res.Kernels {
		if !k.Valid {
			return fmt.Errorf("%s: kernel '%s' failed to compile", path, k.Name)
		}
	}
	return nil
}

func (c *compiler) write(path string, res result) error {
	toStdout := c.opts.outDir == "-"
	if c.opts.format == "json" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if toStdout {
			_, err = os.Stdout.Write(data)
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".json"
		return writeFile(filepath.Join(c.opts.outDir, name), data)
	}

	hl := highlight.New(c.opts.style, c.opts.highlight && c.colorOut)
	for _, k := range res.Kernels {
		if !k.Valid {
			continue
		}
		if toStdout {
			fmt.Fprintf(os.Stdout, "// %s (%s, hash %s)\n", k.ShaderPath, k.EntryPoint, k.Hash)
			if err := hl.Write(os.Stdout, k.Source); err != nil {
				return err
			}
			continue
		}
		out := filepath.Join(c.opts.outDir, res.Graph, k.Name+".usf")
		if err := writeFile(out, []byte(k.Source)); err != nil {
			return err
		}
		c.progress("Wrote %s", out)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *compiler) writeTokens(w io.Writer, cg *graph.ComputeGraph) error {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, k := range cg.Kernels() {
		for _, ps := range k.ParsedSources() {
			for _, tok := range ps.Tokens {
				if tok.Type == token.Whitespace {
					continue
				}
				line, col := token.Position(ps.Source, tok.Range.Begin)
				fmt.Fprintf(tw, "%s:%d:%d\t%s\t%q\n", ps.File.Name, line, col, tok.Type, tok.Text(ps.Source))
			}
		}
	}
	return tw.Flush()
}

func (c *compiler) writeTables(w io.Writer, cg *graph.ComputeGraph) {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	attrs := cg.AttributeTable()
	fmt.Fprintf(tw, "Attributes (%d of %d):\n", attrs.Len(), attrs.Capacity())
	for i, key := range attrs.Keys() {
		fmt.Fprintf(tw, "  %d\t%s\t%s\n", attrs.FirstID()+i, key.Name, key.Type)
	}
	fmt.Fprintf(tw, "Strings (%d):\n", cg.StringTable().Len())
	for i, s := range cg.StringTable().Values() {
		fmt.Fprintf(tw, "  %d\t%q\n", i, s)
	}
	tw.Flush()
}
