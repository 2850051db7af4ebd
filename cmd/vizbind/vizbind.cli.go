package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLI is the top-level command-line interface for vizbind.
type CLI struct {
	LogLevel  string          `default:"warn"    enum:"debug,info,warn,error" help:"Set log level."`
	LogFormat string          `default:"console" enum:"console,json"          help:"Set log format."`
	Config    kong.ConfigFlag `help:"JSON file providing flag defaults."`
	Profile   profileConfig   `embed:""          group:"profile"`

	Render   renderCmd   `cmd:"" help:"Render a template with data."`
	Validate validateCmd `cmd:"" help:"Check a template and list its directives."`
	Funcs    funcsCmd    `cmd:"" help:"List the functions available to expressions."`
	Serve    serveCmd    `cmd:"" help:"Serve the HTTP render API."`
	Version  versionCmd  `cmd:"" help:"Show version information."`
}

// appContext is bound into every command's Run method
type appContext struct {
	ctx    context.Context
	logger *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// cliError carries the exit code of a failed command
type cliError struct {
	code int
	msg  string
	err  error
}

func (e *cliError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

func renderFailure(msg string, err error) error {
	return &cliError{code: ExitCodeRenderError, msg: msg, err: err}
}

func inputFailure(msg string, err error) error {
	return &cliError{code: ExitCodeInputError, msg: msg, err: err}
}

func usageFailure(msg string) error {
	return &cliError{code: ExitCodeUsageError, msg: msg}
}

// exitRequest is raised by kong when it wants to exit, e.g. after --help
type exitRequest int

// run is the main entry point for the CLI, separated for testing
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name(CLIName),
		kong.Description(CLIDescription),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitRequest(code)) }),
		kong.Configuration(kong.JSON),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
		kong.ExplicitGroups([]kong.Group{cli.Profile.group()}),
		cli.Profile.vars(),
	)
	if err != nil {
		fmt.Fprintf(stderr, FmtError, CLIName, err)
		return ExitCodeUsageError
	}

	defer func() {
		if r := recover(); r != nil {
			exit, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code = int(exit)
		}
	}()

	ktx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtError, CLIName, err)
		return ExitCodeUsageError
	}

	logger, err := newLogger(cli.LogLevel, cli.LogFormat, stderr)
	if err != nil {
		fmt.Fprintf(stderr, FmtError, ErrMsgLoggerFailed, err)
		return ExitCodeUsageError
	}
	defer func() { _ = logger.Sync() }()

	// no-op unless built with the pprof tag
	defer cli.Profile.start(logger)()

	app := &appContext{
		ctx:    ctx,
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	if err := ktx.Run(app); err != nil {
		fmt.Fprintf(stderr, FmtError, CLIName, err)
		var ce *cliError
		if errors.As(err, &ce) {
			return ce.code
		}
		return ExitCodeRenderError
	}
	return ExitCodeSuccess
}

// newLogger builds a zap logger writing to w
func newLogger(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch format {
	case LogFormatJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), lvl)
	return zap.New(core).Named(CLIName), nil
}
