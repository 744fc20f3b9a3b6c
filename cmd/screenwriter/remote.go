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
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/backend"
	"goscreenwriter/internal/config"
	"goscreenwriter/internal/export"
	"goscreenwriter/internal/report"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/telemetry"
)

func publishCmd(a *app) *cobra.Command {
	var (
		stableID string
		dsn      string
	)
	cmd := &cobra.Command{
		Use:   "publish [dir]",
		Short: "Store the parsed screenplay in the Postgres backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sp, errs, err := a.loadProject(dirArg(args))
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = a.cfg.Backend.DSN
			}
			if stableID == "" {
				stableID = export.Slug(sp.Title)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			db, err := backend.OpenDB(ctx, dsn)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			res, err := backend.Publish(ctx, db, stableID, sp, len(errs))
			if err != nil {
				return err
			}
			telemetry.Event(telemetry.EventPublished, map[string]any{"documents": res.Documents, "version": res.Version})
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s as id %d, version %d (%d documents)\n", stableID, res.ID, res.Version, res.Documents)
			return nil
		},
	}
	cmd.Flags().StringVar(&stableID, "id", "", "stable identifier (default: slug of the title)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN (default: backend.dsn from config)")
	return cmd
}

func serveCmd(a *app) *cobra.Command {
	var addr, dsn string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve published screenplays over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Backend.ListenAddr
			}
			if dsn == "" {
				dsn = a.cfg.Backend.DSN
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			db, err := backend.OpenDB(openCtx, dsn)
			cancel()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return backend.NewServer(db, "").Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: backend.listen_addr from config)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN (default: backend.dsn from config)")
	return cmd
}

func remoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Talk to a screenwriter server",
	}
	cmd.AddCommand(remoteLoginCmd(a))
	cmd.AddCommand(remoteLogoutCmd())
	cmd.AddCommand(remoteListCmd(a))
	cmd.AddCommand(remoteSearchCmd(a))
	return cmd
}

func (a *app) client() (*backend.Client, error) {
	if a.cfg.Backend.BaseURL == "" {
		return nil, errors.New("backend.base_url is not configured (set " + config.EnvBackendURL + ")")
	}
	return backend.NewClient(a.cfg.Backend.BaseURL, a.token, a.cfg.Backend.Timeout()), nil
}

func remoteLoginCmd(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request a bearer token and keep it in the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			tr, err := c.IssueToken(cmd.Context(), subject, ttl)
			if err != nil {
				return err
			}
			if err := config.SetToken(tr.Token); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			a.token = tr.Token
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s until %s\n", subject, tr.ExpiresAt)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "as", "dev", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime (max 24h)")
	return cmd
}

func remoteLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearToken(); err != nil && !errors.Is(err, config.ErrTokenNotFound) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func remoteListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published screenplays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			list, err := c.ListScreenplays(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no screenplays")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10), p.StableID, p.Title, p.Authors,
					strconv.Itoa(p.Scenes), strconv.FormatInt(p.Version, 10),
					p.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			return report.Table(cmd.OutOrStdout(), []string{"ID", "Stable ID", "Title", "Authors", "Scenes", "Version", "Updated"}, rows)
		},
	}
}

func remoteSearchCmd(a *app) *cobra.Command {
	var q storage.SearchQuery
	cmd := &cobra.Command{
		Use:   "search <id> [query]",
		Short: "Search a published screenplay",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			if len(args) > 1 {
				q.Text = args[1]
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.Search(cmd.Context(), id, q)
			if err != nil {
				return err
			}
			return report.SearchResults(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&q.Character, "character", "c", "", "only dialog spoken by this character")
	cmd.Flags().StringSliceVarP(&q.Types, "type", "t", nil, "document types")
	cmd.Flags().IntVar(&q.Limit, "limit", 50, "maximum results")
	return cmd
}
