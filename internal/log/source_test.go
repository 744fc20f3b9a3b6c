/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestSourceFromContextEnrichesRecords(t *testing.T) {
	resetLogger(t)
	var buf bytes.Buffer
	Init(Options{Format: "json", Output: &buf})

	ctx := ContextWithProject(context.Background(), "/films/letter")
	ctx = ContextWithSource(ctx, Source{File: "screenplay.txt"})
	ctx = ContextWithSource(ctx, Source{Line: 12, Scene: 2})
	WithComponent("markup").WarnContext(ctx, "line skipped")

	m := lastJSON(t, &buf)
	if m["project"] != "/films/letter" || m["file"] != "screenplay.txt" {
		t.Fatalf("outer source lost: %v", m)
	}
	if m["line"] != float64(12) || m["scene"] != float64(2) {
		t.Fatalf("position missing: %v", m)
	}
}

func TestEnrichKeepsExplicitAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(Enrich(slog.NewJSONHandler(&buf, nil)))

	ctx := ContextWithSource(context.Background(), Source{File: "screenplay.txt", Line: 3})
	l.InfoContext(ctx, "parse problem", slog.Int("line", 9))

	m := lastJSON(t, &buf)
	if m["line"] != float64(9) {
		t.Fatalf("explicit line overwritten: %v", m)
	}
	if m["file"] != "screenplay.txt" {
		t.Fatalf("file missing: %v", m)
	}
	if bytes.Count(buf.Bytes(), []byte(`"line"`)) != 1 {
		t.Fatalf("line logged twice: %s", buf.String())
	}
}

func TestEnrichWithoutSourceIsPassThrough(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(Enrich(slog.NewJSONHandler(&buf, nil))).With(slog.String("component", "cli"))
	l.InfoContext(context.Background(), "hello")

	m := lastJSON(t, &buf)
	if _, ok := m["project"]; ok {
		t.Fatalf("unexpected project attr: %v", m)
	}
	if m["component"] != "cli" {
		t.Fatalf("WithAttrs lost through Enrich: %v", m)
	}
}

func TestSourceAttrsOmitZeroFields(t *testing.T) {
	attrs := Source{File: "metadata.json"}.Attrs()
	if len(attrs) != 1 || attrs[0].Key != "file" {
		t.Fatalf("attrs = %v", attrs)
	}
	if _, ok := SourceFromContext(context.Background()); ok {
		t.Fatalf("empty context must not carry a source")
	}
	if _, ok := SourceFromContext(ContextWithSource(context.Background(), Source{})); ok {
		t.Fatalf("zero source must not count")
	}
}
