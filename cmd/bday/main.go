package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/engine"
	"golang.org/x/term"
)

// main is the application entry point.
// It delegates execution to runMain so that deferred calls run before the process
// terminates; os.Exit() does not run defers.
func main() {
	os.Exit(runMain())
}

// runMain wires the real environment and returns the process exit code.
func runMain() int {
	// Cancel on SIGINT (Ctrl+C) or SIGTERM; only `serve` blocks long enough to notice.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return run(ctx, os.Args, defaultEnv())
}

// env carries everything a command reads from the outside world.
type env struct {
	stdout  io.Writer
	stderr  io.Writer
	clock   engine.Clock
	viewer  *time.Location
	fetcher engine.VCardFetcher
	carddav engine.VCardFetcher

	// askPassword reads a password for user interactively; it returns "" when
	// nobody can answer.
	askPassword func(user string) (string, error)
}

func defaultEnv() *env {
	return &env{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		clock:       engine.RealClock{},
		viewer:      time.Local,
		fetcher:     engine.NewHTTPFetcher(),
		carddav:     engine.NewCardDAVFetcher(),
		askPassword: terminalPassword(os.Stdin, os.Stderr),
	}
}

// terminalPassword prompts on w and reads a hidden password from in, provided in
// is a terminal.
func terminalPassword(in *os.File, w io.Writer) func(user string) (string, error) {
	return func(user string) (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", nil
		}

		_, _ = fmt.Fprintf(w, config.MsgPasswordPrompt, user)
		password, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("%s: %w", config.ErrPasswordPrompt, err)
		}
		return string(password), nil
	}
}

// run parses args, executes the selected command and maps its outcome to an exit code.
func run(ctx context.Context, args []string, e *env) int {
	app := newApp(e)
	if err := app.RunContext(ctx, args); err != nil {
		_, _ = io.WriteString(e.stderr, describe(err)+"\n")
		return exitCodeFor(err)
	}
	return config.ExitCodeSuccess
}

// setupLogging installs a text logger on w. Logs stay off stdout, which carries
// command output only.
func setupLogging(w io.Writer, debugMode bool) {
	level := slog.LevelWarn
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo(command string) {
	slog.Debug(config.MsgCommandStarted,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyCommand, command,
		config.LogKeyVersion, config.Version,
		slog.String("commit", config.Commit),
		slog.String("built", config.Date),
		slog.String("go", runtime.Version()),
		slog.String("os", runtime.GOOS),
		slog.String("arch", runtime.GOARCH),
	)
}
