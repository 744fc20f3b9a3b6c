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
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/export"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/report"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/telemetry"
	"goscreenwriter/internal/watch"
)

func indexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index [dir]",
		Short: "Rebuild the project's search index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			ph, sp, _, err := a.loadProject(dirArg(args))
			if err != nil {
				return err
			}
			if err := storage.RebuildIndex(cmd.Context(), ph.Root, sp); err != nil {
				return err
			}
			n := len(storage.Documents(sp))
			telemetry.IndexBuilt(n, time.Since(start))
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d document(s) in %s\n", n, storage.IndexPath(ph.Root))
			return nil
		},
	}
}

// refreshIndex repairs a damaged index and brings it up to date with the script.
func (a *app) refreshIndex(ctx context.Context, dir string) (*storage.ProjectHandle, error) {
	ph, sp, _, err := a.loadProject(dir)
	if err != nil {
		return nil, err
	}
	rebuilt, err := storage.DetectAndRebuildIndex(ctx, ph.Root, sp)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		a.log.Warn("index was missing or damaged and has been rebuilt", slog.String("root", ph.Root))
		return ph, nil
	}
	return ph, storage.UpdateIndex(ctx, ph.Root, sp)
}

func searchCmd(a *app) *cobra.Command {
	var q storage.SearchQuery
	cmd := &cobra.Command{
		Use:   "search <dir> [query]",
		Short: "Full-text search over scenes, dialog and metadata",
		Long: `Search uses SQLite FTS5 syntax: terms, "phrases", AND/OR/NOT.
Without a query the filters alone select rows.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := a.refreshIndex(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(args) > 1 {
				q.Text = args[1]
			}
			res, err := storage.Search(cmd.Context(), ph.Root, q)
			if err != nil {
				return err
			}
			return report.SearchResults(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&q.Character, "character", "c", "", "only dialog spoken by this character")
	cmd.Flags().StringSliceVarP(&q.Types, "type", "t", nil, "document types: title, author, metadata, scene, summary, action, dialog, dir, transition")
	cmd.Flags().IntVar(&q.SceneFrom, "from", 0, "first scene number")
	cmd.Flags().IntVar(&q.SceneTo, "to", 0, "last scene number")
	cmd.Flags().IntVar(&q.Limit, "limit", 50, "maximum results")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "results to skip")
	return cmd
}

func charactersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "characters [dir]",
		Short: "Count dialog lines per character",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := a.refreshIndex(cmd.Context(), dirArg(args))
			if err != nil {
				return err
			}
			counts, err := storage.CharacterLines(cmd.Context(), ph.Root)
			if err != nil {
				return err
			}
			return report.Characters(cmd.OutOrStdout(), counts)
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-render whenever the script or metadata changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := a.openProject(dirArg(args))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			rerender := func(changed []string) {
				if err := a.renderOnce(ctx, ph.Root); err != nil {
					fmt.Fprintf(out, "%s: %v\n", time.Now().Format(time.TimeOnly), err)
					return
				}
				fmt.Fprintf(out, "%s: rendered (%s)\n", time.Now().Format(time.TimeOnly), strings.Join(changed, ", "))
			}
			w, err := watch.New(ph.Root, watch.Options{
				Files:    []string{filepath.Base(ph.ScriptPath), filepath.Base(ph.MetadataPath)},
				Debounce: debounce,
				OnChange: rerender,
			})
			if err != nil {
				return err
			}
			rerender([]string{"start"})
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", ph.Root)
			return w.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-rendering")
	return cmd
}

// renderOnce reopens the project so metadata edits are picked up, then renders the PDF
// and refreshes the index.
func (a *app) renderOnce(ctx context.Context, root string) error {
	start := time.Now()
	ph, sp, errs, err := a.loadProject(root)
	if err != nil {
		return err
	}
	ctx = applog.ContextWithSource(ctx, applog.Source{Project: ph.Root, File: filepath.Base(ph.ScriptPath)})
	for _, e := range errs {
		a.log.WarnContext(applog.ContextWithSource(ctx, applog.Source{Line: e.Line}), "parse problem", slog.String("msg", e.Message))
	}
	if err := export.ExportPDF(sp, filepath.Join(ph.Root, a.cfg.Render.OutputFile), export.PDFOptions{}); err != nil {
		return err
	}
	if err := storage.UpdateIndex(ctx, ph.Root, sp); err != nil {
		a.log.WarnContext(ctx, "index update failed", slog.Any("err", err))
	}
	a.recordSnapshot(ctx, ph)
	telemetry.RenderCompleted(export.FormatPDF, len(sp.Scenes), len(errs), time.Since(start))
	return nil
}
