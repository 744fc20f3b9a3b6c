/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/bundle"
	"goscreenwriter/internal/crash"
	"goscreenwriter/internal/export"
	"goscreenwriter/internal/report"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/telemetry"
)

func initCmd(a *app) *cobra.Command {
	var (
		title, director, date, production string
		authors                           []string
	)
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a project with a starter script and metadata.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if title == "" {
				title = filepath.Base(abs)
			}
			if date == "" {
				date = time.Now().Format(time.DateOnly)
			}
			meta := screenplay.Metadata{
				Title:      title,
				Authors:    authors,
				Director:   director,
				Date:       date,
				Production: production,
				Extra:      screenplay.NewFields(),
			}
			a.log.Info("init project", slog.String("root", abs), slog.String("title", title))
			if _, err := storage.InitProject(abs, meta); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created project at", abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "screenplay title (default: directory name)")
	cmd.Flags().StringArrayVar(&authors, "author", nil, "author name (repeatable)")
	cmd.Flags().StringVar(&director, "director", "", "director")
	cmd.Flags().StringVar(&date, "date", "", "creation date (default: today)")
	cmd.Flags().StringVar(&production, "production", "", "production company")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

func renderCmd(a *app) *cobra.Command {
	var (
		out      string
		asJSON   bool
		guides   bool
		noRecord bool
	)
	cmd := &cobra.Command{
		Use:   "render [dir]",
		Short: "Render the project's screenplay to PDF (or JSON)",
		Long: `Render parses screenplay.txt with the metadata and writes <dir>/render.pdf.
Lines that fail to parse are reported and skipped; the rest is rendered.
Use -o - with --json to write to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			ph, sp, errs, err := a.loadProject(dirArg(args))
			if err != nil {
				return err
			}
			defer crash.Recover(ph)
			if len(errs) > 0 {
				_ = report.Diagnostics(cmd.ErrOrStderr(), ph.ScriptPath, errs)
			}
			format := export.FormatPDF
			if asJSON {
				format = export.FormatJSON
			}
			target := out
			if target == "" {
				target = filepath.Join(ph.Root, a.cfg.Render.OutputFile)
				if asJSON {
					target = strings.TrimSuffix(target, filepath.Ext(target)) + ".json"
				}
			}
			switch {
			case asJSON && target == "-":
				err = export.ExportJSON(sp, cmd.OutOrStdout())
			case asJSON:
				err = writeJSONFile(target, sp)
			default:
				err = export.ExportPDF(sp, target, export.PDFOptions{Guides: guides})
			}
			if err != nil {
				return err
			}
			if !noRecord {
				a.recordSnapshot(cmd.Context(), ph)
			}
			telemetry.RenderCompleted(format, len(sp.Scenes), len(errs), time.Since(start))
			if target != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d scene(s) to %s\n", len(sp.Scenes), target)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: <dir>/render.pdf)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the document tree as JSON instead of PDF")
	cmd.Flags().BoolVar(&guides, "guides", false, "draw cell borders in the PDF")
	cmd.Flags().BoolVar(&noRecord, "no-snapshot", false, "do not store a script snapshot")
	return cmd
}

func writeJSONFile(path string, sp *screenplay.Screenplay) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.ExportJSON(sp, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// recordSnapshot stores the raw script in the project index; failures are only logged.
func (a *app) recordSnapshot(ctx context.Context, ph *storage.ProjectHandle) {
	if ctx == nil {
		ctx = context.Background()
	}
	text, err := ph.ReadScriptText()
	if err == nil {
		_, err = storage.SaveScriptSnapshot(ctx, ph, text, time.Now())
	}
	if err != nil {
		a.log.Warn("script snapshot not saved", slog.Any("err", err))
	}
}

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Parse the project and report problems without rendering",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, _, errs, err := a.loadProject(dirArg(args))
			if err != nil {
				return err
			}
			if err := report.Diagnostics(cmd.OutOrStdout(), ph.ScriptPath, errs); err != nil {
				return err
			}
			if len(errs) > 0 {
				return errProblems
			}
			return nil
		},
	}
}

func outlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outline [dir]",
		Short: "Print the title block and a table of scenes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sp, _, err := a.loadProject(dirArg(args))
			if err != nil {
				return err
			}
			return report.Outline(cmd.OutOrStdout(), sp)
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var (
		preset  string
		formats []string
		outDir  string
		base    string
		guides  bool
	)
	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Batch export with a preset (print, draft, data)",
		Long: `Export writes several formats at once under <dir>/exports/<preset>/.
Presets: print (pdf), draft (pdf with guides + outline), data (json).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, sp, errs, err := a.loadProject(dirArg(args))
			if err != nil {
				return err
			}
			if len(errs) > 0 {
				_ = report.Diagnostics(cmd.ErrOrStderr(), ph.ScriptPath, errs)
			}
			opt := export.BatchOptions{
				Preset:   export.PresetName(preset),
				Formats:  formats,
				OutDir:   outDir,
				BaseName: base,
			}
			if cmd.Flags().Changed("guides") {
				opt.Guides = &guides
			}
			files, err := export.BatchExport(ph.Root, sp, opt)
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&preset, "preset", "p", string(export.PresetPrint), "print, draft or data")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "formats to write: pdf, json, outline (default: preset)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (relative paths go under <dir>/exports)")
	cmd.Flags().StringVar(&base, "name", "", "base file name (default: slug of the title)")
	cmd.Flags().BoolVar(&guides, "guides", false, "override the preset's PDF guides setting")
	return cmd
}

func snapshotsCmd(a *app) *cobra.Command {
	var (
		limit int
		keep  int
		show  bool
	)
	cmd := &cobra.Command{
		Use:   "snapshots [dir]",
		Short: "List, show or prune stored script snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := a.openProject(dirArg(args))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if keep > 0 {
				n, err := storage.PruneScriptSnapshots(ctx, ph, keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d snapshot(s)\n", n)
				return nil
			}
			if show {
				text, ts, err := storage.LatestScriptSnapshot(ctx, ph)
				if err != nil {
					return err
				}
				if ts.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), "no snapshots")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			snaps, err := storage.ListScriptSnapshots(ctx, ph, limit)
			if err != nil {
				return err
			}
			return report.Snapshots(cmd.OutOrStdout(), snaps)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of snapshots to list")
	cmd.Flags().IntVar(&keep, "prune", 0, "keep only the newest N snapshots")
	cmd.Flags().BoolVar(&show, "latest", false, "print the newest snapshot's text")
	return cmd
}

func packCmd(a *app) *cobra.Command {
	var withBackups bool
	cmd := &cobra.Command{
		Use:   "pack <dir> <bundle.zip>",
		Short: "Zip the project's script and metadata into a bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := a.openProject(args[0])
			if err != nil {
				return err
			}
			n, err := bundle.Pack(ph, args[1], withBackups)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %d file(s) into %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&withBackups, "backups", false, "include the backups folder")
	return cmd
}

func unpackCmd(a *app) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "unpack <bundle.zip> <dir>",
		Short: "Extract a bundle into a project directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := bundle.Unpack(args[0], args[1], overwrite)
			if err != nil {
				return err
			}
			if _, err := a.openProject(args[1]); err != nil {
				return fmt.Errorf("unpacked project does not open: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpacked %d file(s) into %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	return cmd
}
