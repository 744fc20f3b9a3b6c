/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"goscreenwriter/internal/export"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
)

// PublishResult identifies the stored row after a publish.
type PublishResult struct {
	ID        int64
	Version   int64
	Documents int
}

// Publish upserts sp under stableID, replaces its documents and stores the JSON
// exchange form as the snapshot. Re-publishing bumps the version.
func Publish(ctx context.Context, db *sql.DB, stableID string, sp *screenplay.Screenplay, parseErrors int) (PublishResult, error) {
	var res PublishResult
	if db == nil {
		return res, errors.New("db is nil")
	}
	if sp == nil {
		return res, errors.New("screenplay is nil")
	}
	stableID = strings.TrimSpace(stableID)
	if stableID == "" {
		return res, errors.New("stable id is required")
	}
	snap, err := json.Marshal(export.BuildDocument(sp))
	if err != nil {
		return res, fmt.Errorf("marshal snapshot: %w", err)
	}
	docs := storage.Documents(sp)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `INSERT INTO screenplays(stable_id, title, authors, director, production, creation_date, scene_count, snapshot)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stable_id) DO UPDATE SET
			title = EXCLUDED.title,
			authors = EXCLUDED.authors,
			director = EXCLUDED.director,
			production = EXCLUDED.production,
			creation_date = EXCLUDED.creation_date,
			scene_count = EXCLUDED.scene_count,
			snapshot = EXCLUDED.snapshot,
			version = screenplays.version + 1,
			updated_at = now()
		RETURNING id, version`,
		stableID, sp.Title, sp.Authors, sp.Director, sp.Production, sp.Date, len(sp.Scenes), string(snap),
	).Scan(&res.ID, &res.Version)
	if err != nil {
		return res, fmt.Errorf("upsert screenplay: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE screenplay_id = $1`, res.ID); err != nil {
		return res, fmt.Errorf("clear documents: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO documents(screenplay_id, doc_type, path, scene_no, position, character, raw_text) VALUES($1,$2,$3,$4,$5,$6,$7)`)
	if err != nil {
		return res, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = ins.Close() }()
	for _, d := range docs {
		var sceneNo, pos, char any
		if d.SceneNo > 0 {
			sceneNo = d.SceneNo
		}
		if d.Position >= 0 {
			pos = d.Position
		}
		if d.Character != "" {
			char = d.Character
		}
		if _, err := ins.ExecContext(ctx, res.ID, d.Type, d.Path, sceneNo, pos, char, d.Text); err != nil {
			return res, fmt.Errorf("insert document: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO publish_log(screenplay_id, version, documents, parse_errors) VALUES($1,$2,$3,$4)`, res.ID, res.Version, len(docs), parseErrors); err != nil {
		return res, fmt.Errorf("publish log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	res.Documents = len(docs)
	applog.WithComponent("backend").Info("screenplay published",
		slog.String("stable_id", stableID), slog.Int64("id", res.ID), slog.Int64("version", res.Version), slog.Int("documents", res.Documents))
	return res, nil
}
