package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/datespec"
	"github.com/tartampluch/bday/internal/engine"
	"github.com/tartampluch/bday/internal/presenter"
	"github.com/tartampluch/bday/internal/server"
	"github.com/tartampluch/bday/internal/store"
	"github.com/urfave/cli/v2"
)

func newApp(e *env) *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, config.MsgVersionOutput,
			config.AppName,
			config.Version,
			runtime.GOOS,
			runtime.GOARCH,
		)
	}

	return &cli.App{
		Name:    config.AppName,
		Usage:   config.AppUsage,
		Version: config.Version,
		Writer:  e.stdout,

		ErrWriter: e.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: config.FlagFile, Aliases: []string{config.AliasFile}, Usage: config.FlagDescFile},
			&cli.BoolFlag{Name: config.FlagDebug, Usage: config.FlagDescDebug},
		},
		Commands: []*cli.Command{
			addCommand(e),
			listCommand(e),
			importCommand(e),
			exportCommand(e),
			serveCommand(e),
		},
		Before: func(c *cli.Context) error {
			setupLogging(e.stderr, c.Bool(config.FlagDebug))
			logStartupInfo(c.Args().First())
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.Args().Present() {
				return usage(fmt.Errorf("%s: %q", config.ErrUnknownCommand, c.Args().First()))
			}
			_ = cli.ShowAppHelp(c)
			return usage(errors.New(config.ErrMissingCommand))
		},
		OnUsageError: onUsageError,
		// Exit codes are decided by run; the library must never exit on its own.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// say writes one line of command output.
func say(w io.Writer, line string) error {
	if _, err := fmt.Fprintln(w, line); err != nil {
		return fail(config.ErrKindOutput, fmt.Errorf("%s: %w", config.ErrWriteOutput, err))
	}
	return nil
}

// openStore loads the configuration named by --file, or the first one found.
func openStore(c *cli.Context) (*store.ConfigFile, error) {
	cf, err := store.Open(c.String(config.FlagFile))
	if err != nil {
		return nil, fail(config.ErrKindIO, err)
	}
	return cf, nil
}

func addCommand(e *env) *cli.Command {
	date := &datespec.Value{}

	return &cli.Command{
		Name:  config.CmdAdd,
		Usage: config.CmdDescAdd,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: config.FlagName, Aliases: []string{config.AliasName}, Usage: config.FlagDescName, Required: true},
			&cli.GenericFlag{Name: config.FlagDate, Aliases: []string{config.AliasDate}, Usage: config.FlagDescDate, Required: true, Value: date},
			&cli.StringFlag{Name: config.FlagTimezone, Aliases: []string{config.AliasTimezone}, Usage: config.FlagDescTimezone},
		},
		OnUsageError: onUsageError,
		Action: func(c *cli.Context) error {
			spec, ok := date.Get()
			if !ok {
				return usage(errors.New(config.ErrEntryDate))
			}

			tz := c.String(config.FlagTimezone)
			if tz != "" {
				if _, err := engine.LookupZone(tz); err != nil {
					return fail(config.ErrKindTimezone, err)
				}
			}

			entry, err := engine.NewStoredEntry(c.String(config.FlagName), spec, tz)
			if err != nil {
				return usage(err)
			}

			cf, err := openStore(c)
			if err != nil {
				return err
			}
			cf.Append(entry)
			if err := cf.Save(); err != nil {
				return fail(config.ErrKindIO, err)
			}

			line := fmt.Sprintf(config.MsgAddEntry, entry.Name, entry.Date.String())
			if entry.Timezone != "" {
				line += fmt.Sprintf(config.MsgAddZone, entry.Timezone)
			}
			return say(e.stdout, line)
		},
	}
}

func listCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  config.CmdList,
		Usage: config.CmdDescList,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: config.FlagLimit, Aliases: []string{config.AliasLimit}, Usage: config.FlagDescLimit},
		},
		OnUsageError: onUsageError,
		Action: func(c *cli.Context) error {
			limit := c.Int(config.FlagLimit)
			if c.IsSet(config.FlagLimit) && limit < 1 {
				return usage(errors.New(config.ErrLimitRange))
			}

			cf, err := openStore(c)
			if err != nil {
				return err
			}
			if len(cf.Entries) == 0 {
				return say(e.stderr, config.MsgNoEntries)
			}

			entries, err := engine.NewEntries(cf.Entries, e.clock, e.viewer)
			if err != nil {
				return fail(config.ErrKindTimezone, err)
			}

			now := e.clock.Now().In(e.viewer)
			if err := presenter.Render(e.stdout, presenter.Rows(entries, limit, now)); err != nil {
				return fail(config.ErrKindOutput, err)
			}
			return nil
		},
	}
}

func importCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  config.CmdImport,
		Usage: config.CmdDescImport,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: config.FlagPath, Usage: config.FlagDescPath},
			&cli.StringFlag{Name: config.FlagURL, Usage: config.FlagDescURL},
			&cli.StringFlag{Name: config.FlagUser, Usage: config.FlagDescUser},
			&cli.StringFlag{Name: config.FlagPassword, Usage: config.FlagDescPassword},
			&cli.BoolFlag{Name: config.FlagSavePassword, Usage: config.FlagDescSavePassword},
			&cli.BoolFlag{Name: config.FlagDryRun, Usage: config.FlagDescDryRun},
			&cli.BoolFlag{Name: config.FlagCardDAV, Usage: config.FlagDescCardDAV},
		},
		OnUsageError: onUsageError,
		Action: func(c *cli.Context) error {
			path, url := c.String(config.FlagPath), c.String(config.FlagURL)
			if (path == "") == (url == "") {
				return usage(errors.New(config.ErrImportSource))
			}

			src := engine.ImportSource{Mode: config.SourceModeLocal, LocalPath: path}
			if url != "" {
				user := c.String(config.FlagUser)
				pass, err := remotePassword(e, user, c.String(config.FlagPassword), c.Bool(config.FlagSavePassword))
				if err != nil {
					return fail(config.ErrKindImport, err)
				}
				src = engine.ImportSource{Mode: config.SourceModeWeb, WebURL: url, WebUser: user, WebPass: pass}
			}

			fetcher := e.fetcher
			if c.Bool(config.FlagCardDAV) {
				fetcher = e.carddav
			}
			im := &engine.Importer{Fetcher: fetcher}
			res, err := im.Import(c.Context, src)
			if err != nil {
				return fail(config.ErrKindImport, err)
			}

			cf, err := openStore(c)
			if err != nil {
				return err
			}

			dryRun := c.Bool(config.FlagDryRun)
			added, skipped := 0, res.Skipped
			for _, entry := range res.Entries {
				if cf.Contains(entry) {
					slog.Debug(config.MsgSkippedDup,
						config.LogKeyComponent, config.CompMain,
						config.LogKeyName, entry.Name)
					skipped++
					continue
				}
				if dryRun {
					_, _ = fmt.Fprintf(e.stdout, config.MsgDryRunItem, entry.Name, entry.Date.String())
				}
				cf.Append(entry)
				added++
			}

			if !dryRun && added > 0 {
				if err := cf.Save(); err != nil {
					return fail(config.ErrKindIO, err)
				}
			}

			return say(e.stdout, fmt.Sprintf(config.MsgImported, added, skipped))
		},
	}
}

// remotePassword resolves the password from the flag or the keyring, then asks
// on the terminal as a last resort. A typed password is saved like an explicit one.
func remotePassword(e *env, user, explicit string, save bool) (string, error) {
	pass, err := engine.ResolvePassword(user, explicit, save)
	if err != nil || pass != "" || user == "" || e.askPassword == nil {
		return pass, err
	}

	typed, err := e.askPassword(user)
	if err != nil || typed == "" {
		return "", err
	}
	return engine.ResolvePassword(user, typed, save)
}

func exportCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  config.CmdExport,
		Usage: config.CmdDescExport,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: config.FlagOutput, Aliases: []string{config.AliasOutput}, Usage: config.FlagDescOutput},
		},
		OnUsageError: onUsageError,
		Action: func(c *cli.Context) error {
			cf, err := openStore(c)
			if err != nil {
				return err
			}

			x := &engine.Exporter{Clock: e.clock, Viewer: e.viewer}
			data, err := x.Generate(c.Context, cf.Entries)
			if err != nil {
				return fail(config.ErrKindExport, err)
			}

			out := c.String(config.FlagOutput)
			if out == "" {
				if _, err := e.stdout.Write(data); err != nil {
					return fail(config.ErrKindOutput, err)
				}
				return nil
			}
			if err := os.WriteFile(out, data, config.FilePermUserRW); err != nil {
				return fail(config.ErrKindOutput, fmt.Errorf("%s: %w", config.ErrWriteOutput, err))
			}
			return nil
		},
	}
}

func serveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  config.CmdServe,
		Usage: config.CmdDescServe,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: config.FlagPort, Aliases: []string{config.AliasPort}, Usage: config.FlagDescPort, Value: config.DefaultPort},
		},
		OnUsageError: onUsageError,
		Action: func(c *cli.Context) error {
			port := c.Int(config.FlagPort)
			if port < config.MinPort || port > config.MaxPort {
				return usage(errors.New(config.ErrPortRange))
			}

			x := &engine.Exporter{Clock: e.clock, Viewer: e.viewer}
			generate := func(ctx context.Context) ([]byte, error) {
				cf, err := openStore(c)
				if err != nil {
					return nil, err
				}
				return x.Generate(ctx, cf.Entries)
			}

			// A broken store is reported now rather than as a 503 later.
			if _, err := generate(c.Context); err != nil {
				return fail(config.ErrKindServe, err)
			}

			srv := server.NewCalendarServer(port, generate)
			if err := srv.Start(c.Context); err != nil {
				return fail(config.ErrKindServe, err)
			}
			return nil
		},
	}
}
