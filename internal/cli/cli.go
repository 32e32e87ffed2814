// Package cli implements the fsctl command line: global flags, subcommand
// dispatch, output rendering and the mapping of errors to exit codes.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/filestorage/fsctl/internal/config"
	"github.com/filestorage/fsctl/internal/httpx"
	"github.com/filestorage/fsctl/internal/logging"
	"github.com/filestorage/fsctl/pkg/filestore"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

const programName = "fsctl"

// ClientFactory builds the filestore client for a resolved configuration.
type ClientFactory func(cfg *config.Config, logger *slog.Logger) (*filestore.Client, error)

// App carries the process I/O and the client factory.
type App struct {
	Stdout    io.Writer
	Stderr    io.Writer
	NewClient ClientFactory
}

// Run executes the command line in args (without the program name) and
// returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := &App{Stdout: stdout, Stderr: stderr}
	return app.Run(ctx, args)
}

type globalFlags struct {
	configPath string
	endpoint   string
	timeout    string
	logLevel   string
}

// session is what a subcommand needs once flags are parsed.
type session struct {
	client *filestore.Client
	stdout io.Writer
	logger *slog.Logger
}

// usageError reports invalid command-line input; it is printed with the
// command usage and exits with ExitUsage.
type usageError struct {
	cmd *command
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

// Run executes args and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if a.Stdout == nil {
		a.Stdout = os.Stdout
	}
	if a.Stderr == nil {
		a.Stderr = os.Stderr
	}
	if a.NewClient == nil {
		a.NewClient = defaultClient
	}

	var g globalFlags
	root := flag.NewFlagSet(programName, flag.ContinueOnError)
	root.SetOutput(io.Discard)
	root.StringVar(&g.configPath, "config", os.Getenv(config.EnvConfigFile), "path to a YAML config file")
	root.StringVar(&g.endpoint, "endpoint", "", "file-storage service URL (default "+filestore.DefaultBaseURL+")")
	root.StringVar(&g.timeout, "timeout", "", "per-request timeout, e.g. 30s (default: none)")
	root.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			a.printUsage(a.Stdout, root)
			return ExitOK
		}
		fmt.Fprintf(a.Stderr, "error: %v\n\n", err)
		a.printUsage(a.Stderr, root)
		return ExitUsage
	}

	rest := root.Args()
	if len(rest) == 0 {
		a.printUsage(a.Stdout, root)
		return ExitOK
	}

	name := rest[0]
	if name == "help" {
		return a.help(root, rest[1:])
	}
	cmd := lookup(name)
	if cmd == nil {
		fmt.Fprintf(a.Stderr, "error: unknown command %q\n\n", name)
		a.printUsage(a.Stderr, root)
		return ExitUsage
	}

	fs := cmd.flagSet()
	act := cmd.bind(fs)
	if err := fs.Parse(rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			cmd.printUsage(a.Stdout, fs)
			return ExitOK
		}
		return a.fail(&usageError{cmd: cmd, msg: err.Error()}, fs)
	}
	if fs.NArg() > 0 {
		return a.fail(&usageError{cmd: cmd, msg: fmt.Sprintf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}, fs)
	}

	sess, err := a.session(ctx, g)
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	if err := act(ctx, sess); err != nil {
		return a.fail(withCommand(err, cmd), fs)
	}
	return ExitOK
}

func (a *App) session(ctx context.Context, g globalFlags) (*session, error) {
	cfg, err := config.Load(ctx, g.configPath)
	if err != nil {
		return nil, err
	}
	if g.endpoint != "" {
		cfg.Endpoint = g.endpoint
	}
	if g.timeout != "" {
		d, err := time.ParseDuration(g.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", g.timeout, err)
		}
		cfg.Timeout = d
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(a.Stderr, cfg.LogLevel, cfg.LogFormat, "")
	if err != nil {
		return nil, err
	}
	client, err := a.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("client configured", slog.String("endpoint", cfg.Endpoint), slog.Duration("timeout", cfg.Timeout))
	return &session{client: client, stdout: a.Stdout, logger: logger}, nil
}

// fail prints err and maps it to an exit code. Argument problems print the
// command usage as well.
func (a *App) fail(err error, fs *flag.FlagSet) int {
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(a.Stderr, "error: %s\n\n", uerr.msg)
		if uerr.cmd != nil {
			uerr.cmd.printUsage(a.Stderr, fs)
		}
		return ExitUsage
	}
	fmt.Fprintf(a.Stderr, "error: %v\n", err)
	return ExitFailure
}

func (a *App) help(root *flag.FlagSet, args []string) int {
	if len(args) == 0 {
		a.printUsage(a.Stdout, root)
		return ExitOK
	}
	cmd := lookup(args[0])
	if cmd == nil {
		fmt.Fprintf(a.Stderr, "error: unknown command %q\n", args[0])
		return ExitUsage
	}
	fs := cmd.flagSet()
	cmd.bind(fs)
	cmd.printUsage(a.Stdout, fs)
	return ExitOK
}

func (a *App) printUsage(w io.Writer, root *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [global flags] <command> [flags]\n\n", programName)
	fmt.Fprintln(w, "Client for the file-storage service.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	root.SetOutput(w)
	root.PrintDefaults()
	root.SetOutput(io.Discard)
	fmt.Fprintf(w, "\nRun '%s help <command>' for command flags.\n", programName)
}

// withCommand attaches cmd to argument errors so their usage gets printed.
func withCommand(err error, cmd *command) error {
	var uerr *usageError
	if errors.As(err, &uerr) {
		if uerr.cmd == nil {
			uerr.cmd = cmd
		}
		return uerr
	}
	if errors.Is(err, filestore.ErrArgument) {
		return &usageError{cmd: cmd, msg: err.Error()}
	}
	return err
}

func defaultClient(cfg *config.Config, logger *slog.Logger) (*filestore.Client, error) {
	return filestore.New(cfg.Endpoint,
		httpx.WithTimeout(cfg.Timeout),
		httpx.WithLogger(logger),
	)
}
