package main

import (
	"encoding/json"
	"fmt"

	"github.com/itsatony/go-vizbind"
)

// funcsCmd lists the expression functions
type funcsCmd struct {
	Format string `default:"text" enum:"text,json" help:"Output format." short:"F"`
}

func (c *funcsCmd) Run(app *appContext) error {
	engine, err := vizbind.New(vizbind.WithLogger(app.logger))
	if err != nil {
		return usageFailure(err.Error())
	}

	names := engine.Functions()
	if c.Format == OutputFormatJSON {
		encoded, err := json.Marshal(names)
		if err != nil {
			return renderFailure(ErrMsgEncodeFailed, err)
		}
		fmt.Fprintln(app.stdout, string(encoded))
		return nil
	}

	for _, name := range names {
		fmt.Fprintln(app.stdout, name)
	}
	return nil
}
