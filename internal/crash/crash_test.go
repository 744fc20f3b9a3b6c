/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"goscreenwriter/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "GoScreenwriter Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInProjectBackups(t *testing.T) {
	root := t.TempDir()
	ph := &storage.ProjectHandle{Root: root, ScriptPath: filepath.Join(root, storage.ScriptFileName)}

	path, err := writeReport(ph, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, storage.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("Script: "+ph.ScriptPath)) {
		t.Fatalf("report lacks script path: %s", b)
	}
}

func TestRecoverWritesReportSnapshotAndExits(t *testing.T) {
	var errOut bytes.Buffer
	oldErr, oldExit := stderr, exitFn
	code := 0
	stderr = &errOut
	exitFn = func(c int) { code = c }
	defer func() { stderr, exitFn = oldErr, oldExit }()

	root := t.TempDir()
	script := filepath.Join(root, storage.ScriptFileName)
	if err := os.WriteFile(script, []byte("\\scene{INT}{Hall}{DAY}\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	ph := &storage.ProjectHandle{Root: root, ScriptPath: script}

	func() {
		defer Recover(ph)
		panic("boom")
	}()

	if code != ExitCode {
		t.Fatalf("exit code = %d, want %d", code, ExitCode)
	}
	if !strings.Contains(errOut.String(), "crash report was saved to") {
		t.Fatalf("stderr = %q", errOut.String())
	}
	files, _ := os.ReadDir(filepath.Join(root, storage.BackupsDirName))
	var report, snap bool
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = true
		case strings.Contains(f.Name(), ".crash-"):
			snap = true
		}
	}
	if !report || !snap {
		t.Fatalf("backups = %v, want report and script snapshot", files)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	oldExit := exitFn
	called := false
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit called without panic")
	}
}
