/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"goscreenwriter/internal/markup"
	"goscreenwriter/internal/screenplay"
)

const sampleScript = `\scene{INT}{Kitchen}{NIGHT}
\summary{Anna finds the letter.}
Anna enters. <lights low>
She stops.
\dialog{Anna}{Who is there?}[whispering]
\dir{Pause}
\dialog{anna}{Hello?}
\dialog{Ben}{Only me.}
\transition{cut to}
\scene{EXT}{Garden}{DAY}
Birds sing.
\dialog{Ben}{Morning.}
\end
`

const sampleMetadata = `{
  "name": "The Letter",
  "authors": "Jane Roe",
  "director": "John Doe",
  "creation-date": "2024-05-01",
  "production": "Acme Pictures",
  "subtitle": "A short",
  "genre": "drama",
  "runtime": 12
}
`

func sampleMeta() screenplay.Metadata {
	extra := screenplay.NewFields()
	extra.Set("subtitle", "A short")
	return screenplay.Metadata{
		Title:      "The Letter",
		Authors:    []string{"Jane Roe"},
		Director:   "John Doe",
		Date:       "2024-05-01",
		Production: "Acme Pictures",
		Extra:      extra,
	}
}

// writeSampleProject lays out a project directory by hand, without InitProject.
func writeSampleProject(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ScriptFileName), []byte(sampleScript), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, MetadataFileName), []byte(sampleMetadata), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	return root
}

func loadSample(t testing.TB) (string, *screenplay.Screenplay) {
	t.Helper()
	root := writeSampleProject(t)
	ph, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sp, perrs, err := ph.Load(markup.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(perrs) != 0 {
		t.Fatalf("unexpected parse errors: %v", perrs)
	}
	return root, sp
}
