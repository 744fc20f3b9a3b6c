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
)

func TestReadScriptLines_StripsTerminators(t *testing.T) {
	p := filepath.Join(t.TempDir(), "s.txt")
	if err := os.WriteFile(p, []byte("one\r\ntwo\n\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := ReadScriptLines(p)
	if err != nil {
		t.Fatalf("ReadScriptLines: %v", err)
	}
	if got := strings.Join(lines, "|"); got != "one|two||three" {
		t.Fatalf("lines = %q", got)
	}
}

func TestReadScriptLines_MissingIsInvalidPath(t *testing.T) {
	_, err := ReadScriptLines(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
}

func TestReadScriptText(t *testing.T) {
	root := writeSampleProject(t)
	ph, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := ph.ReadScriptText()
	if err != nil {
		t.Fatalf("ReadScriptText: %v", err)
	}
	if got != sampleScript {
		t.Fatalf("text mismatch")
	}
}
