/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes a search over the project index.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Character matches the upper-cased speaker of dialog rows.
// Types restricts to document types such as dialog, action, scene.
// SceneFrom/To are inclusive 1-based scene numbers; 0 means unset.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text      string
	Character string
	Types     []string
	SceneFrom int
	SceneTo   int
	Limit     int
	Offset    int
}

// SearchResult represents a single match row.
// Snippet is a highlighted excerpt using [ ] markers when FTS text is used.
// SceneNo is 0 for metadata rows.
type SearchResult struct {
	DocID     int64  `json:"doc_id"`
	Type      string `json:"type"`
	Path      string `json:"path"`
	SceneNo   int    `json:"scene_no"`
	Character string `json:"character,omitempty"`
	Snippet   string `json:"snippet"`
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it falls back to a non-FTS scan over documents with filters applied.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.scene_no,0), COALESCE(d.character,''), snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.scene_no,0), COALESCE(d.character,''), COALESCE(d.text,'')\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND d.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	switch {
	case q.SceneFrom > 0 && q.SceneTo > 0 && q.SceneTo >= q.SceneFrom:
		sb.WriteString(" AND d.scene_no BETWEEN ? AND ?\n")
		args = append(args, q.SceneFrom, q.SceneTo)
	case q.SceneFrom > 0:
		sb.WriteString(" AND d.scene_no >= ?\n")
		args = append(args, q.SceneFrom)
	case q.SceneTo > 0:
		sb.WriteString(" AND d.scene_no <= ?\n")
		args = append(args, q.SceneTo)
	}
	if s := strings.TrimSpace(q.Character); s != "" {
		sb.WriteString(" AND d.character = ?\n")
		args = append(args, strings.ToUpper(s))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString("ORDER BY d.scene_no NULLS FIRST, d.position NULLS FIRST, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.SceneNo, &r.Character, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// CharacterLines counts indexed dialog rows per speaker, most lines first.
func CharacterLines(ctx context.Context, projectRoot string) ([]CharacterCount, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT character, COUNT(*) FROM documents
		WHERE type = ? AND character IS NOT NULL
		GROUP BY character ORDER BY COUNT(*) DESC, character`, DocDialog)
	if err != nil {
		return nil, fmt.Errorf("character query: %w", err)
	}
	defer rows.Close()
	var out []CharacterCount
	for rows.Next() {
		var c CharacterCount
		if err := rows.Scan(&c.Character, &c.Lines); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CharacterCount is one row of CharacterLines.
type CharacterCount struct {
	Character string
	Lines     int
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
