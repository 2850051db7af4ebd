package main

import (
	"encoding/json"
	"fmt"

	"github.com/itsatony/go-vizbind"
)

// validateCmd checks a template without data
type validateCmd struct {
	Template string `help:"Template file, or - for stdin." required:"" short:"t"`
	Format   string `default:"text" enum:"text,json"       help:"Output format." short:"F"`
}

func (c *validateCmd) Run(app *appContext) error {
	template, err := readInput(c.Template, app.stdin)
	if err != nil {
		return err
	}

	engine, err := vizbind.New(vizbind.WithLogger(app.logger))
	if err != nil {
		return usageFailure(err.Error())
	}

	info, err := engine.Validate(string(template))
	if err != nil {
		writeHints(app, err)
		return renderFailure(ErrMsgValidateFailed, err)
	}

	if c.Format == OutputFormatJSON {
		encoded, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return renderFailure(ErrMsgEncodeFailed, err)
		}
		fmt.Fprintln(app.stdout, string(encoded))
		return nil
	}

	fmt.Fprintf(app.stdout, ValidateTextSummary, info.Root, info.Elements, len(info.Directives))
	for _, d := range info.Directives {
		expression := d.Expression
		if d.Reserved {
			expression += ValidateTextReserved
		}
		fmt.Fprintf(app.stdout, ValidateTextLine, d.Attribute, d.Path, expression)
	}
	return nil
}
