/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/crash"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/markup"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/telemetry"
	"goscreenwriter/internal/version"
)

// errProblems makes the process exit 1 after diagnostics were already printed.
var errProblems = errors.New("script has problems")

// app carries the loaded configuration into every subcommand.
type app struct {
	cfg     config.AppConfig
	token   string
	verbose bool
	log     *slog.Logger
}

func main() {
	defer crash.Recover(nil)
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "screenwriter",
		Short: "Turn screenplay markup into a formatted PDF",
		Long: `screenwriter reads a project directory holding screenplay.txt (line-oriented
markup: \scene, \summary, \dialog, \dir, \transition, \end) and metadata.json,
and renders a screenplay PDF. It can also index, search, watch and publish projects.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(versionCmd())
	root.AddCommand(initCmd(a))
	root.AddCommand(renderCmd(a))
	root.AddCommand(checkCmd(a))
	root.AddCommand(outlineCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(snapshotsCmd(a))
	root.AddCommand(packCmd(a))
	root.AddCommand(unpackCmd(a))
	root.AddCommand(indexCmd(a))
	root.AddCommand(searchCmd(a))
	root.AddCommand(charactersCmd(a))
	root.AddCommand(watchCmd(a))
	root.AddCommand(publishCmd(a))
	root.AddCommand(serveCmd(a))
	root.AddCommand(remoteCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, tok, err := config.Load()
	a.cfg, a.token = cfg, tok

	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Output:    cmd.ErrOrStderr(),
	}
	if _, fromEnv := config.EnvOverrideFor("logging.format"); !fromEnv && !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		opts.Format = "json"
	}
	if a.verbose {
		opts.Level = "debug"
	}
	applog.Init(opts)
	a.log = applog.WithComponent("cli")
	if err != nil {
		a.log.Warn("config not loaded; using defaults", slog.Any("err", err))
	}
	telemetry.Configure(cfg.General.TelemetryOptIn)
	return nil
}

func (a *app) layout() storage.Layout {
	return storage.Layout{ScriptFile: a.cfg.Render.ScriptFile, MetadataFile: a.cfg.Render.MetadataFile}
}

func (a *app) parseOptions() markup.Options {
	return markup.Options{DropUnterminated: a.cfg.Render.DropUnterminated, Logger: applog.WithComponent("markup")}
}

// openProject resolves dir and opens it with the configured file names.
func (a *app) openProject(dir string) (*storage.ProjectHandle, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return storage.OpenWith(abs, a.layout())
}

// loadProject opens dir and parses its script.
func (a *app) loadProject(dir string) (*storage.ProjectHandle, *screenplay.Screenplay, []markup.Error, error) {
	ph, err := a.openProject(dir)
	if err != nil {
		return nil, nil, nil, err
	}
	sp, errs, err := ph.Load(a.parseOptions())
	if err != nil {
		return ph, nil, errs, err
	}
	return ph, sp, errs, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "screenwriter", version.String())
		},
	}
}

func dirArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0]
	}
	return "."
}
