/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"goscreenwriter/internal/markup"
	"goscreenwriter/internal/screenplay"
)

func TestInitProjectCreatesStructureAndFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "film")
	ph, err := InitProject(root, sampleMeta())
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	if ph == nil {
		t.Fatalf("InitProject returned nil handle")
	}
	for _, d := range []string{ExportsDirName, BackupsDirName} {
		p := filepath.Join(root, d)
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", p)
		}
	}
	b, err := os.ReadFile(ph.MetadataPath)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	got, err := DecodeMetadata(b)
	if err != nil {
		t.Fatalf("decode written metadata: %v", err)
	}
	if got.Title != "The Letter" || got.Director != "John Doe" {
		t.Fatalf("metadata mismatch: %#v", got)
	}
	if v, ok := got.Extra.Get("subtitle"); !ok || v != "A short" {
		t.Fatalf("subtitle extra lost: %q %v", v, ok)
	}
	// the starter script opens and parses to a single empty scene
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open after init: %v", err)
	}
	sp, perrs, err := opened.Load(markup.Options{})
	if err != nil || len(perrs) != 0 {
		t.Fatalf("Load starter: %v %v", err, perrs)
	}
	if len(sp.Scenes) != 1 || sp.Scenes[0].Location != "Somewhere" {
		t.Fatalf("starter scenes = %#v", sp.Scenes)
	}
}

func TestInitProjectKeepsExistingScript(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ScriptFileName), []byte(sampleScript), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := InitProject(root, sampleMeta()); err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(root, ScriptFileName))
	if string(b) != sampleScript {
		t.Fatalf("existing script was overwritten")
	}
}

func TestInitProjectRequiresAuthors(t *testing.T) {
	meta := sampleMeta()
	meta.Authors = nil
	if _, err := InitProject(t.TempDir(), meta); !errors.Is(err, screenplay.ErrNoAuthors) {
		t.Fatalf("err = %v, want ErrNoAuthors", err)
	}
}

func TestSaveMetadataCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleMeta())
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ph.Metadata.Director = "Someone Else"
	if err := SaveMetadata(ph); err != nil {
		t.Fatalf("SaveMetadata error: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var bakCount int
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, MetadataFileName+".") && strings.HasSuffix(name, ".bak") {
			bakCount++
		}
	}
	if bakCount == 0 {
		t.Fatalf("expected at least one backup file, found 0")
	}
}

func TestOpenFallsBackToLatestBackupOnCorruption(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleMeta())
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	// second save so a backup exists
	if err := SaveMetadata(ph); err != nil {
		t.Fatalf("SaveMetadata error: %v", err)
	}
	if err := os.WriteFile(ph.MetadataPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt metadata: %v", err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Metadata.Title != "The Letter" {
		t.Fatalf("opened title mismatch: got %q", opened.Metadata.Title)
	}
}

func TestOpenMissingFieldIsFatal(t *testing.T) {
	root := writeSampleProject(t)
	doc := `{"name": "X", "authors": ["A"], "director": "D", "production": "P"}`
	if err := os.WriteFile(filepath.Join(root, MetadataFileName), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(root)
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("err = %v, want MissingFieldError", err)
	}
	if mf.Field != KeyDate {
		t.Fatalf("Field = %q, want %q", mf.Field, KeyDate)
	}
}

func TestOpenInvalidPath(t *testing.T) {
	cases := map[string]func(t *testing.T) string{
		"missing dir": func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
		"file not dir": func(t *testing.T) string {
			p := filepath.Join(t.TempDir(), "f.txt")
			_ = os.WriteFile(p, []byte("x"), 0o644)
			return p
		},
		"no script": func(t *testing.T) string {
			root := writeSampleProject(t)
			_ = os.Remove(filepath.Join(root, ScriptFileName))
			return root
		},
		"no metadata": func(t *testing.T) string {
			root := writeSampleProject(t)
			_ = os.Remove(filepath.Join(root, MetadataFileName))
			return root
		},
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Open(mk(t)); !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("err = %v, want ErrInvalidPath", err)
			}
		})
	}
}

func TestOpenWithCustomLayout(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "draft.txt"), []byte(sampleScript), 0o644)
	_ = os.WriteFile(filepath.Join(root, "meta.yaml"), []byte("name: Y\nauthors: [A, B]\ndirector: D\ncreation-date: 2024-01-01\nproduction: P\n"), 0o644)
	ph, err := OpenWith(root, Layout{ScriptFile: "draft.txt", MetadataFile: "meta.yaml"})
	if err != nil {
		t.Fatalf("OpenWith: %v", err)
	}
	if len(ph.Metadata.Authors) != 2 || ph.Metadata.Date != "2024-01-01" {
		t.Fatalf("metadata = %#v", ph.Metadata)
	}
}

func TestLoadAssemblesScreenplay(t *testing.T) {
	_, sp := loadSample(t)
	if sp.Title != "The Letter" || sp.AuthorsLine() != "Jane Roe" {
		t.Fatalf("metadata not carried: %q %q", sp.Title, sp.AuthorsLine())
	}
	if len(sp.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(sp.Scenes))
	}
	first := sp.Scenes[0]
	if first.Summary == nil || first.Transition == nil || len(first.Dialogs()) != 3 {
		t.Fatalf("first scene incomplete: %#v", first)
	}
	keys := []string{}
	for p := sp.Extra.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key+"="+p.Value)
	}
	if got := strings.Join(keys, ","); got != "subtitle=A short,genre=drama,runtime=12" {
		t.Fatalf("extras = %s", got)
	}
}

func TestLoadReportsLineErrors(t *testing.T) {
	root := writeSampleProject(t)
	bad := "\\scene{INT}{Kitchen}{NIGHT}\n\\dialog{Anna}\nText.\n\\end\n"
	_ = os.WriteFile(filepath.Join(root, ScriptFileName), []byte(bad), 0o644)
	ph, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sp, perrs, err := ph.Load(markup.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(perrs) != 1 || perrs[0].Line != 2 {
		t.Fatalf("parse errors = %v", perrs)
	}
	if len(sp.Scenes) != 1 || len(sp.Scenes[0].Actions()) != 1 {
		t.Fatalf("scene content = %#v", sp.Scenes)
	}
}

func TestAutosaveCrashSnapshotCopiesScript(t *testing.T) {
	root := writeSampleProject(t)
	ph, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	path, err := AutosaveCrashSnapshot(ph)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, BackupsDirName) || !strings.Contains(filepath.Base(path), ".crash-") {
		t.Fatalf("unexpected snapshot path %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != sampleScript {
		t.Fatalf("snapshot content mismatch: %v", err)
	}
	if _, err := AutosaveCrashSnapshot(&ProjectHandle{}); err == nil {
		t.Fatalf("expected error for empty handle")
	}
}
