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
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/version"
)

// EnvAuthSecret names the variable holding the token signing secret.
const EnvAuthSecret = "GSW_AUTH_SECRET"

const devSecret = "dev-secret-change-me"

// Server serves published screenplays over HTTP.
type Server struct {
	DB     *sql.DB
	Secret string
	Log    *slog.Logger
}

// NewServer wires a server to db. An empty secret falls back to GSW_AUTH_SECRET and then
// to an insecure development secret.
func NewServer(db *sql.DB, secret string) *Server {
	l := applog.WithComponent("backend")
	if secret == "" {
		secret = os.Getenv(EnvAuthSecret)
	}
	if secret == "" {
		secret = devSecret
		l.Warn("auth secret not set; using insecure dev secret", slog.String("env", EnvAuthSecret))
	}
	return &Server{DB: db, Secret: secret, Log: l}
}

// ScreenplaySummary is the listing projection of a published screenplay.
type ScreenplaySummary struct {
	ID         int64     `json:"id"`
	StableID   string    `json:"stable_id"`
	Title      string    `json:"title"`
	Authors    string    `json:"authors"`
	Production string    `json:"production"`
	Scenes     int       `json:"scenes"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OutlineEnvelope wraps the stored JSON snapshot of a screenplay.
type OutlineEnvelope struct {
	ID        int64           `json:"id"`
	Version   int64           `json:"version"`
	UpdatedAt string          `json:"updated_at"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// TokenResponse is returned by POST /api/auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("screenwriter " + version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.handleToken)
	mux.HandleFunc("GET /api/screenplays", withAuth(s.Secret, s.handleList))
	mux.HandleFunc("GET /api/screenplays/{id}/outline", withAuth(s.Secret, s.handleOutline))
	mux.HandleFunc("GET /api/screenplays/{id}/search", withAuth(s.Secret, s.handleSearch))
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db not ready"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	// Optional body: {"subject": "name", "ttl_seconds": 3600}
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := signToken(s.Secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: tok, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ string) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("db not configured"))
		return
	}
	rows, err := s.DB.QueryContext(r.Context(), `SELECT id, stable_id, title, array_to_string(authors, ', '), production, scene_count, version, updated_at
		FROM screenplays ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() { _ = rows.Close() }()
	list := []ScreenplaySummary{}
	for rows.Next() {
		var p ScreenplaySummary
		if err := rows.Scan(&p.ID, &p.StableID, &p.Title, &p.Authors, &p.Production, &p.Scenes, &p.Version, &p.UpdatedAt); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("db not configured"))
		return
	}
	var (
		env     OutlineEnvelope
		snap    []byte
		updated time.Time
	)
	row := s.DB.QueryRowContext(r.Context(), `SELECT id, version, snapshot, updated_at FROM screenplays WHERE id = $1`, id)
	switch err := row.Scan(&env.ID, &env.Version, &snap, &updated); {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, fmt.Errorf("screenplay %d not found", id))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	env.UpdatedAt = updated.UTC().Format(time.RFC3339)
	env.Snapshot = json.RawMessage(snap)
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("db not configured"))
		return
	}
	q, err := searchQueryFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := SearchPG(r.Context(), s.DB, id, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if res == nil {
		res = []storage.SearchResult{}
	}
	writeJSON(w, http.StatusOK, res)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid screenplay id"))
		return 0, false
	}
	return id, true
}

// searchQueryFromURL reads q, character, type (repeatable), from, to, limit and offset.
func searchQueryFromURL(r *http.Request) (storage.SearchQuery, error) {
	v := r.URL.Query()
	q := storage.SearchQuery{Text: v.Get("q"), Character: v.Get("character")}
	for _, t := range v["type"] {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Types = append(q.Types, part)
			}
		}
	}
	ints := []struct {
		key string
		dst *int
	}{{"from", &q.SceneFrom}, {"to", &q.SceneTo}, {"limit", &q.Limit}, {"offset", &q.Offset}}
	for _, it := range ints {
		raw := v.Get(it.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("invalid %s: %q", it.key, raw)
		}
		*it.dst = n
	}
	return q, nil
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.Log.Info("listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
