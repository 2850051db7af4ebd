package main

import (
	"fmt"
	"strings"

	"github.com/itsatony/go-vizbind"
)

// renderCmd renders one template to SVG
type renderCmd struct {
	Template string `help:"Template file, or - for stdin."          required:"" short:"t"`
	Data     string `help:"JSON or YAML data file, or - for stdin." short:"d"`
	Output   string `default:"-"    help:"Output file, - for stdout." short:"o"`
	Format   string `default:"auto" enum:"auto,json,yaml"             help:"Data file format."`
	MaxDepth int    `default:"512"  help:"Maximum element nesting depth, 0 for unlimited."`
}

// Hint output
const (
	HintSuggestions = "hint: did you mean %s?\n"
	HintLocation    = "hint: %s on <%s>: %s\n"
)

func (c *renderCmd) Run(app *appContext) error {
	if c.Template == InputSourceStdin && c.Data == InputSourceStdin {
		return usageFailure(ErrMsgStdinTwice)
	}

	template, err := readInput(c.Template, app.stdin)
	if err != nil {
		return err
	}
	data, err := loadData(c.Data, c.Format, app.stdin)
	if err != nil {
		return err
	}

	engine, err := vizbind.New(
		vizbind.WithLogger(app.logger),
		vizbind.WithMaxDepth(c.MaxDepth),
	)
	if err != nil {
		return usageFailure(err.Error())
	}

	out, err := engine.RenderBytes(app.ctx, template, data)
	if err != nil {
		writeHints(app, err)
		return renderFailure(ErrMsgRenderFailed, err)
	}
	return writeOutput(c.Output, out, app.stdout)
}

// writeHints prints the directive context and suggestions attached to err
func writeHints(app *appContext, err error) {
	meta := vizbind.ErrorMetadata(err)
	if meta == nil {
		return
	}
	if d := meta[vizbind.MetaKeyDirective]; d != "" {
		fmt.Fprintf(app.stderr, HintLocation, d, meta[vizbind.MetaKeyTag], meta[vizbind.MetaKeyExpression])
	}
	if s := meta[vizbind.MetaKeySuggestions]; s != "" {
		fmt.Fprintf(app.stderr, HintSuggestions, strings.ReplaceAll(s, ",", " or "))
	}
}
