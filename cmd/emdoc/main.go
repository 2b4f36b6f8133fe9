// Package main provides the emdoc command-line renderer.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"golang.org/x/text/language"

	"github.com/dgallion1/emdoc/internal/config"
	"github.com/dgallion1/emdoc/internal/diag"
	"github.com/dgallion1/emdoc/internal/document"
	"github.com/dgallion1/emdoc/internal/metadata"
)

// CLI defines the command-line interface using Kong
var CLI struct {
	Root     string   `name:"root" short:"r" default:"." type:"existingdir" help:"Content root holding documents and Include/Templates/Objects"`
	Lang     string   `name:"lang" default:"en" help:"Language for diagnostic messages"`
	Required []string `name:"required" help:"Metadata keys that must be present"`
	Info     []string `name:"info" help:"Metadata keys whose absence is reported as info"`
	Rules    string   `name:"rules" type:"path" help:"YAML metadata rules file (overrides --required and --info)"`
	Verbose  bool     `name:"verbose" short:"v" help:"Verbose output"`

	Render   RenderCmd   `cmd:"" help:"Render a document to HTML"`
	Check    CheckCmd    `cmd:"" help:"Report diagnostics for a document without writing output"`
	Includes IncludesCmd `cmd:"" help:"List the includes of a document"`
}

// errDiagnostics marks a run that produced Error diagnostics.
var errDiagnostics = errors.New("document has errors")

// RenderCmd renders one document.
type RenderCmd struct {
	File string `arg:"" help:"Document path relative to the content root"`
	Out  string `name:"out" short:"o" type:"path" help:"Output file (default: stdout)"`
}

func (c *RenderCmd) Run(e *document.Engine) error {
	res, err := e.Render(c.File)
	printDiagnostics(res.Diagnostics)
	if err != nil {
		return err
	}

	if c.Out == "" {
		_, err = fmt.Fprint(os.Stdout, res.HTML)
		return err
	}
	if err := os.WriteFile(c.Out, []byte(res.HTML), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes, title %q)\n", c.Out, len(res.HTML), res.Title)
	return nil
}

// CheckCmd renders a document and reports its diagnostics.
type CheckCmd struct {
	File string `arg:"" help:"Document path relative to the content root"`
}

func (c *CheckCmd) Run(e *document.Engine) error {
	res, err := e.Render(c.File)
	printDiagnostics(res.Diagnostics)
	if err != nil {
		return err
	}
	if res.HasErrors() {
		return errDiagnostics
	}
	fmt.Fprintf(os.Stderr, "%s: ok (%d diagnostics)\n", res.Path, len(res.Diagnostics))
	return nil
}

// IncludesCmd lists the include targets of a document and their resolved paths.
type IncludesCmd struct {
	File string `arg:"" help:"Document path relative to the content root"`
}

func (c *IncludesCmd) Run(e *document.Engine) error {
	doc, diags, err := e.Load(c.File)
	printDiagnostics(diags)
	if err != nil {
		return err
	}
	for _, target := range doc.Includes() {
		resolved, err := document.ResolveInclude(doc.Path, target)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", target, resolved)
	}
	return nil
}

func printDiagnostics(ds []diag.Diagnostic) {
	for _, d := range ds {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("emdoc"),
		kong.Description("Render extended-markup documents to HTML"),
		kong.UsageOnError(),
	)

	level := slog.LevelWarn
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rules := metadata.Rules{Required: CLI.Required, Informational: CLI.Info}
	if CLI.Rules != "" {
		var err error
		rules, err = config.LoadRules(CLI.Rules)
		ctx.FatalIfErrorf(err)
	}

	tag, err := language.Parse(CLI.Lang)
	if err != nil {
		tag = language.English
	}

	engine := document.NewEngine(document.Options{
		FS:       os.DirFS(CLI.Root),
		Messages: diag.NewMessages(tag),
		Rules:    rules,
		Logger:   log,
	})

	ctx.FatalIfErrorf(ctx.Run(engine))
}
