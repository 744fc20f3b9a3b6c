/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"goscreenwriter/internal/markup"
	"goscreenwriter/internal/screenplay"
)

const testScript = `\scene{INT}{Kitchen}{NIGHT}
\summary{Anna finds the letter.}
Anna enters. <lights low>
\dialog{Anna}{Who is there?}[whispering]
\dir{Pause}
\dialog{anna}{Hello?}
\dialog{Ben}{Only me.}
\transition{cut to}
\scene{EXT}{Garden}{DAY}
\dialog{Ben}{Morning.}
\end
`

func sampleScreenplay(t *testing.T) *screenplay.Screenplay {
	t.Helper()
	scenes, errs := markup.ParseString(testScript, markup.Options{})
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	extra := screenplay.NewFields()
	extra.Set("subtitle", "A short")
	extra.Set("genre", "drama")
	sp, err := screenplay.Assemble(screenplay.Metadata{
		Title:      "The Letter",
		Authors:    []string{"Jane Roe", "Max Mustermann"},
		Director:   "John Doe",
		Date:       "2024-05-01",
		Production: "Acme",
		Extra:      extra,
	}, scenes)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return sp
}

func TestRenderPDF_Content(t *testing.T) {
	sp := sampleScreenplay(t)
	var buf bytes.Buffer
	if err := RenderPDF(sp, &buf, PDFOptions{Uncompressed: true}); err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("missing PDF header")
	}
	want := []string{
		"(Screenplay of)",
		"(THE LETTER)",
		"(A SHORT)",
		"(Max Mustermann)",
		"(genre)",
		"(Screenplay - THE LETTER)",
		"(Prod. ACME)",
		"(Page 2/2)",
		"(INT. Kitchen. NIGHT)",
		`(ANNA \(cont'd\))`,
		`(\(whispering\))`,
		"(BEN)",
		"(CUT TO)",
		"(The END)",
	}
	for _, w := range want {
		if !bytes.Contains(out, []byte(w)) {
			t.Fatalf("pdf stream missing %s", w)
		}
	}
	if bytes.Contains(out, []byte("lights low")) {
		t.Fatalf("inline comment leaked into pdf")
	}
	// Ben speaks once per scene, never continued
	if bytes.Contains(out, []byte(`(BEN \(cont'd\))`)) {
		t.Fatalf("cont'd must reset between scenes")
	}
}

func TestRenderPDF_NilScreenplay(t *testing.T) {
	if err := RenderPDF(nil, &bytes.Buffer{}, PDFOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "render.pdf")
	if err := ExportPDF(sampleScreenplay(t), out, PDFOptions{Guides: true}); err != nil {
		t.Fatalf("export: %v", err)
	}
	st, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() <= 0 {
		t.Fatalf("pdf file empty")
	}
}

func TestSpeakerLabel(t *testing.T) {
	sp := sampleScreenplay(t)
	d := sp.Scenes[0].Dialogs()
	got := []string{SpeakerLabel(sp.Scenes[0], d[0]), SpeakerLabel(sp.Scenes[0], d[1]), SpeakerLabel(sp.Scenes[0], d[2])}
	want := []string{"ANNA", "ANNA (cont'd)", "BEN"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("label %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type bogusElement struct{ *screenplay.Dir }

func (bogusElement) Kind() screenplay.ElementKind { return screenplay.ElementKind(99) }

func TestElementSkipsUnknownKind(t *testing.T) {
	sp := sampleScreenplay(t)
	pw := newPDFWriter(sp, PDFOptions{})
	pw.pdf.AddPage()
	sc := sp.Scenes[0]
	if pw.element(1, sc, bogusElement{screenplay.NewDir("x")}) {
		t.Fatalf("unknown element should be skipped")
	}
	if !pw.element(1, sc, screenplay.NewDir("Pause")) {
		t.Fatalf("dir should render")
	}
	if err := pw.pdf.Error(); err != nil {
		t.Fatalf("pdf error: %v", err)
	}
}
