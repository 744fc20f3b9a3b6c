/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goscreenwriter/internal/markup"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
)

func sample(t *testing.T) *screenplay.Screenplay {
	t.Helper()
	scenes, errs := markup.ParseString(`\scene{INT}{Kitchen}{NIGHT}
\summary{Anna finds the letter.}
\dialog{Anna}{Who is there?}
\dialog{Ben}{Only me.}
\end`, markup.Options{})
	require.Empty(t, errs)
	extra := screenplay.NewFields()
	extra.Set("subtitle", "A short")
	sp, err := screenplay.Assemble(screenplay.Metadata{
		Title: "The Letter", Authors: []string{"Jane Roe"}, Director: "John Doe",
		Date: "2024-05-01", Production: "Acme", Extra: extra,
	}, scenes)
	require.NoError(t, err)
	return sp
}

func TestOutline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Outline(&buf, sample(t)))
	out := buf.String()
	assert.Contains(t, out, "THE LETTER")
	assert.Contains(t, out, "A short")
	assert.Contains(t, out, "INT. Kitchen. NIGHT")
	assert.Contains(t, out, "Anna finds the letter.")
	assert.Contains(t, out, "ANNA, BEN")
	assert.Contains(t, out, "1 scenes")
	assert.NotContains(t, out, "\x1b[", "no escape codes when not writing to a terminal")
}

func TestSearchResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SearchResults(&buf, nil))
	assert.Equal(t, "no matches\n", buf.String())

	buf.Reset()
	require.NoError(t, SearchResults(&buf, []storage.SearchResult{
		{Type: "title", Path: "meta:name", Snippet: "The [Letter]"},
		{Type: "dialog", Path: "scene:1/dialog:0", SceneNo: 1, Character: "ANNA", Snippet: "Who is there?"},
	}))
	out := buf.String()
	assert.Contains(t, out, "scene:1/dialog:0")
	assert.Contains(t, out, "ANNA")
	assert.Contains(t, out, "The [Letter]")
}

func TestDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Diagnostics(&buf, "screenplay.txt", nil))
	assert.Equal(t, "screenplay.txt: ok\n", buf.String())

	buf.Reset()
	require.NoError(t, Diagnostics(&buf, "screenplay.txt", []markup.Error{{Line: 4, Column: 1, Message: "wrong fields on \\dialog: expected 2, got 1"}}))
	assert.Contains(t, buf.String(), "screenplay.txt:4: wrong fields on \\dialog")
	assert.Contains(t, buf.String(), "1 problem(s)")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "a b", clip("a\n  b"))
	long := strings.Repeat("x", 60)
	got := clip(long)
	assert.Equal(t, maxCell, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestCharactersAndSnapshots(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Characters(&buf, nil))
	assert.Equal(t, "no dialog\n", buf.String())

	buf.Reset()
	require.NoError(t, Characters(&buf, []storage.CharacterCount{{Character: "ANNA", Lines: 3}}))
	assert.Contains(t, buf.String(), "ANNA")
	assert.Contains(t, buf.String(), "3")

	buf.Reset()
	require.NoError(t, Snapshots(&buf, nil))
	assert.Equal(t, "no snapshots\n", buf.String())

	buf.Reset()
	snap := storage.ScriptSnapshot{TS: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), Text: "\\scene{INT}{Hall}{DAY}\nHello.\n"}
	require.NoError(t, Snapshots(&buf, []storage.ScriptSnapshot{snap}))
	assert.Contains(t, buf.String(), `\scene{INT}{Hall}{DAY}`)
	assert.Contains(t, buf.String(), "2024-05-01")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []string{"ID", "Title"}, [][]string{{"7", "The Letter"}}))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "The Letter")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
