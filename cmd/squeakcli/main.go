// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// squeakcli creates, checks and stores squeaks in a local repository
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v2"
	"go.mindeco.de/log"
	"go.mindeco.de/log/level"

	"github.com/squeaknode/go-squeak/repo"
	"github.com/squeaknode/go-squeak/signing"
)

// Version and Build are set by ldflags
var (
	Version = "snapshot"
	Build   = ""
)

var (
	logger log.Logger

	params  *signing.Params
	squeakR repo.Interface
	noStore bool
	workers int
)

func defaultRepo() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".squeak"
	}
	return filepath.Join(home, ".squeak")
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "squeakcli",
		Usage:   "create, verify and keep squeaks",
		Version: "alpha1",

		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: filepath.Join(defaultRepo(), "config.toml"), Usage: "TOML file with a [squeakcli] section"},
			&cli.StringFlag{Name: "repo", Value: defaultRepo(), Usage: "where keys and the squeak database are kept"},
			&cli.StringFlag{Name: "network", Value: signing.MainNetParams.Name, Usage: "mainnet, testnet or regtest"},
			&cli.StringFlag{Name: "loglevel", Value: "info", Usage: "debug, info, warn, error or none"},
			&cli.StringFlag{Name: "debuglis", Usage: "serve prometheus metrics on this address"},
			&cli.BoolFlag{Name: "nostore", Usage: "don't put made or imported squeaks into the database"},
			&cli.IntFlag{Name: "workers", Usage: "number of parallel checks when importing (default: number of CPUs)"},
		},

		Before: initCli,
		Commands: []*cli.Command{
			addressCmd,
			makeCmd,
			checkCmd,
			decryptCmd,
			showCmd,
			listCmd,
			importCmd,
			unlockCmd,
			lockCmd,
			removeCmd,
			inventoryCmd,
		},
	}
}

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("%s (rev: %s, built: %s)\n", c.App.Version, Version, Build)
	}

	if err := newApp().Run(os.Args); err != nil {
		if logger == nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		} else {
			level.Error(logger).Log("run-failure", err)
		}
		os.Exit(1)
	}
}

func initCli(ctx *cli.Context) error {
	base := log.NewLogfmtLogger(log.NewSyncWriter(ctx.App.ErrWriter))
	base = log.With(base, "ts", log.DefaultTimestampUTC)

	conf, err := readConfigAndEnv(base, ctx.String("config"))
	if err != nil {
		return err
	}

	lvl := stringOption(ctx, conf.Has("loglevel"), "loglevel", conf.LogLevel)
	filter, err := levelFilter(lvl)
	if err != nil {
		return err
	}
	logger = level.NewFilter(base, filter)

	network := stringOption(ctx, conf.Has("network"), "network", conf.Network)
	params, err = signing.ParamsByName(network)
	if err != nil {
		return err
	}

	squeakR = repo.New(stringOption(ctx, conf.Has("repo"), "repo", conf.Repo))

	noStore = ctx.Bool("nostore")
	if !ctx.IsSet("nostore") && conf.Has("nostore") {
		noStore = bool(conf.NoStore)
	}

	workers = ctx.Int("workers")
	if !ctx.IsSet("workers") && conf.Has("workers") {
		workers = int(conf.Workers)
	}

	startDebug(stringOption(ctx, conf.Has("debuglis"), "debuglis", conf.MetricsAddress))

	level.Debug(logger).Log("event", "init", "network", params.Name, "repo", squeakR.GetPath())
	return nil
}

// stringOption prefers an explicitly set flag over the config file and the flag default over nothing.
func stringOption(ctx *cli.Context, inConfig bool, name, fromConfig string) string {
	if !ctx.IsSet(name) && inConfig {
		return fromConfig
	}
	return ctx.String(name)
}

func levelFilter(lvl string) (level.Option, error) {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	case "none":
		return level.AllowNone(), nil
	}
	return nil, fmt.Errorf("unknown log level %q", lvl)
}
