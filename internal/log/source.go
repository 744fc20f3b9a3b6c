/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package log

import (
	"context"
	"log/slog"
)

// Source is a position in a screenplay project. Zero fields are omitted
// from log records.
type Source struct {
	Project string // project root
	File    string // script or metadata file
	Line    int    // 1-based line in File
	Scene   int    // 1-based scene number
}

// Attrs returns the non-zero fields as flat attributes.
func (s Source) Attrs() []slog.Attr {
	var out []slog.Attr
	if s.Project != "" {
		out = append(out, slog.String("project", s.Project))
	}
	if s.File != "" {
		out = append(out, slog.String("file", s.File))
	}
	if s.Line > 0 {
		out = append(out, slog.Int("line", s.Line))
	}
	if s.Scene > 0 {
		out = append(out, slog.Int("scene", s.Scene))
	}
	return out
}

// merge overlays the non-zero fields of inner on s.
func (s Source) merge(inner Source) Source {
	if inner.Project != "" {
		s.Project = inner.Project
	}
	if inner.File != "" {
		s.File = inner.File
	}
	if inner.Line > 0 {
		s.Line = inner.Line
	}
	if inner.Scene > 0 {
		s.Scene = inner.Scene
	}
	return s
}

type sourceKey struct{}

// ContextWithSource returns ctx carrying src merged over any source already
// stored in ctx.
func ContextWithSource(ctx context.Context, src Source) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	outer, _ := SourceFromContext(ctx)
	return context.WithValue(ctx, sourceKey{}, outer.merge(src))
}

// ContextWithProject is ContextWithSource with only the project root set.
func ContextWithProject(ctx context.Context, root string) context.Context {
	return ContextWithSource(ctx, Source{Project: root})
}

// SourceFromContext returns the source stored in ctx.
func SourceFromContext(ctx context.Context) (Source, bool) {
	if ctx == nil {
		return Source{}, false
	}
	s, ok := ctx.Value(sourceKey{}).(Source)
	return s, ok && s != Source{}
}

// Enrich wraps h so that records logged with a context carrying a Source get
// its attributes. Keys the record already sets are left alone.
func Enrich(h slog.Handler) slog.Handler { return enricher{next: h} }

type enricher struct{ next slog.Handler }

func (e enricher) Enabled(ctx context.Context, level slog.Level) bool {
	return e.next.Enabled(ctx, level)
}

func (e enricher) Handle(ctx context.Context, r slog.Record) error {
	src, ok := SourceFromContext(ctx)
	if !ok {
		return e.next.Handle(ctx, r)
	}
	set := map[string]bool{}
	r.Attrs(func(a slog.Attr) bool {
		set[a.Key] = true
		return true
	})
	r = r.Clone()
	for _, a := range src.Attrs() {
		if !set[a.Key] {
			r.AddAttrs(a)
		}
	}
	return e.next.Handle(ctx, r)
}

func (e enricher) WithAttrs(attrs []slog.Attr) slog.Handler {
	return enricher{next: e.next.WithAttrs(attrs)}
}

func (e enricher) WithGroup(name string) slog.Handler {
	return enricher{next: e.next.WithGroup(name)}
}
