/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bundle

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
)

func newProject(t *testing.T) *storage.ProjectHandle {
	t.Helper()
	ph, err := storage.InitProject(filepath.Join(t.TempDir(), "film"), screenplay.Metadata{
		Title: "The Letter", Authors: []string{"Jane Roe"}, Director: "John Doe",
		Date: "2024-05-01", Production: "Acme", Extra: screenplay.NewFields(),
	})
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	return ph
}

func TestPackAndUnpackRoundTrip(t *testing.T) {
	ph := newProject(t)
	zipPath := filepath.Join(t.TempDir(), "out", "film.zip")

	n, err := Pack(ph, zipPath, false)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if n != 2 {
		t.Fatalf("packed %d files, want 2", n)
	}

	dest := filepath.Join(t.TempDir(), "copy")
	got, err := Unpack(zipPath, dest, false)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got != 2 {
		t.Fatalf("unpacked %d files, want 2", got)
	}
	if _, err := os.Stat(filepath.Join(dest, ManifestName)); !os.IsNotExist(err) {
		t.Fatalf("manifest should not be extracted")
	}
	opened, err := storage.Open(dest)
	if err != nil {
		t.Fatalf("Open unpacked: %v", err)
	}
	if opened.Metadata.Title != "The Letter" {
		t.Fatalf("title = %q", opened.Metadata.Title)
	}

	again, err := Unpack(zipPath, dest, false)
	if err != nil || again != 0 {
		t.Fatalf("second Unpack = %d, %v; want existing files skipped", again, err)
	}
	forced, err := Unpack(zipPath, dest, true)
	if err != nil || forced != 2 {
		t.Fatalf("overwrite Unpack = %d, %v", forced, err)
	}
}

func TestPackWithBackups(t *testing.T) {
	ph := newProject(t)
	if err := storage.SaveMetadata(ph); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	n, err := Pack(ph, filepath.Join(t.TempDir(), "b.zip"), true)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if n < 3 {
		t.Fatalf("packed %d files, want script, metadata and at least one backup", n)
	}
}

func TestUnpackRejectsZipSlip(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("../escape.txt")
	_, _ = w.Write([]byte("x"))
	_ = zw.Close()
	_ = f.Close()

	dest := t.TempDir()
	if _, err := Unpack(zipPath, dest, false); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("err = %v, want ErrUnsafePath", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt")); err == nil {
		t.Fatalf("file escaped the target directory")
	}
}

func TestPackValidatesArgs(t *testing.T) {
	if _, err := Pack(nil, "x.zip", false); err == nil {
		t.Fatalf("expected error for nil handle")
	}
	if _, err := Pack(&storage.ProjectHandle{Root: "r"}, " ", false); err == nil {
		t.Fatalf("expected error for empty destination")
	}
	if _, err := Unpack("missing.zip", t.TempDir(), false); err == nil {
		t.Fatalf("expected error for missing bundle")
	}
}
