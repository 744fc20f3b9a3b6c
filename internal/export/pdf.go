/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/screenplay"
)

// Layout constants in mm for an A4 portrait page set in Courier.
const (
	fontFamily = "Courier"

	marginLeft  = 25.0
	marginTop   = 10.0
	marginRight = 15.0

	lineH = 5.0

	spaceAfterSceneHeader = 10.0
	spaceAfterSummary     = 5.0
	spaceAfterTransition  = 5.0
	spaceAfterDialog      = 5.0
	spaceAfterAction      = 5.0
	spaceAfterDir         = 5.0
	spaceBetweenExtras    = 5.0

	dialogIndent = 40.0
	dialogWidth  = 95.0
	transIndent  = 80.0
	transWidth   = 85.0

	contdSuffix = " (cont'd)"
)

// PDFOptions controls PDF rendering.
// Guides draws cell borders, which helps when adjusting the layout.
// CreationDate, when set, is written to the document info instead of the current time.
// Uncompressed leaves page content streams readable, mostly for tests.
type PDFOptions struct {
	Guides       bool
	CreationDate time.Time
	Uncompressed bool
}

// pdfWriter walks a screenplay and emits gofpdf calls.
type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	sp     *screenplay.Screenplay
	tr     func(string) string
	border string
	log    *slog.Logger
}

// RenderPDF writes sp as a PDF document to w.
func RenderPDF(sp *screenplay.Screenplay, w io.Writer, opt PDFOptions) error {
	if sp == nil {
		return errors.New("screenplay is nil")
	}
	pw := newPDFWriter(sp, opt)
	pw.cover()
	pw.pdf.AddPage()
	for i, sc := range sp.Scenes {
		pw.scene(i+1, sc)
	}
	pw.theEnd()
	if err := pw.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF renders sp into the file at outPath, creating parent directories.
func ExportPDF(sp *screenplay.Screenplay, outPath string, opt PDFOptions) error {
	l := applog.WithOperation(applog.WithComponent("export"), "pdf").With(slog.String("path", outPath))
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := RenderPDF(sp, f, opt); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		l.Error("render failed", slog.Any("err", err))
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf: %w", err)
	}
	l.Info("pdf written", slog.Int("scenes", len(sp.Scenes)), slog.Duration("took", time.Since(start)))
	return nil
}

func newPDFWriter(sp *screenplay.Screenplay, opt PDFOptions) *pdfWriter {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pw := &pdfWriter{
		pdf: pdf,
		sp:  sp,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		log: applog.WithComponent("export"),
	}
	if opt.Guides {
		pw.border = "1"
	}
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.AliasNbPages("")
	pdf.SetTitle(sp.Title, true)
	pdf.SetAuthor(sp.AuthorsLine(), true)
	pdf.SetSubject(sp.Production, true)
	pdf.SetCreator("goscreenwriter", false)
	if opt.Uncompressed {
		pdf.SetCompression(false)
	}
	if !opt.CreationDate.IsZero() {
		pdf.SetCreationDate(opt.CreationDate)
	}
	pdf.SetHeaderFunc(pw.header)
	pdf.SetFooterFunc(pw.footer)
	return pw
}

// cell is a one-line cell that does not advance to the next line.
func (pw *pdfWriter) cell(w, h float64, text, align string) {
	pw.pdf.CellFormat(w, h, pw.tr(text), pw.border, 0, align, false, 0, "")
}

func (pw *pdfWriter) multi(w float64, text, border, align string) {
	pw.pdf.MultiCell(w, lineH, pw.tr(text), border, align, false)
}

func (pw *pdfWriter) header() {
	if pw.pdf.PageNo() == 1 {
		return
	}
	pw.pdf.SetFont(fontFamily, "", 10)
	pw.cell(0, lineH, "Screenplay - "+strings.ToUpper(pw.sp.Title), "C")
	pw.pdf.Ln(20)
}

func (pw *pdfWriter) footer() {
	if pw.pdf.PageNo() == 1 {
		return
	}
	pw.pdf.SetY(-15)
	pw.pdf.SetFont(fontFamily, "I", 8)
	pw.cell(0, lineH, "Prod. "+strings.ToUpper(pw.sp.Production), "L")
	pw.pdf.SetX(marginLeft)
	pw.cell(0, lineH, fmt.Sprintf("Page %d/{nb}", pw.pdf.PageNo()), "R")
}

func (pw *pdfWriter) cover() {
	p := pw.pdf
	p.AddPage()

	p.SetY(65)
	p.SetFont(fontFamily, "", 10)
	pw.cell(0, 10, "Screenplay of", "C")
	p.SetY(75)
	p.SetFont(fontFamily, "B", 25)
	pw.cell(0, 10, strings.ToUpper(pw.sp.Title), "C")
	if sub, ok := pw.sp.Subtitle(); ok {
		p.SetY(85)
		p.SetFont(fontFamily, "B", 15)
		pw.cell(0, 10, strings.ToUpper(sub), "C")
	}

	p.SetY(120)
	p.SetFont(fontFamily, "", 10)
	pw.cell(0, 10, "Written by", "C")
	p.SetY(127)
	p.SetFont(fontFamily, "", 15)
	for _, a := range pw.sp.Authors {
		p.CellFormat(0, 10, pw.tr(a), pw.border, 1, "C", false, 0, "")
	}

	p.SetY(165)
	p.SetFont(fontFamily, "", 10)
	pw.cell(0, 10, "Directed by", "C")
	p.SetY(172)
	p.SetFont(fontFamily, "", 15)
	pw.cell(0, 10, pw.sp.Director, "C")

	p.SetY(185)
	p.SetFont(fontFamily, "", 10)
	pw.cell(0, 10, "Produced by", "C")
	p.SetY(192)
	p.SetFont(fontFamily, "", 15)
	pw.cell(0, 10, pw.sp.Production, "C")

	p.SetY(-50)
	p.SetFont(fontFamily, "", 15)
	pw.cell(120, 10, "", "")
	pw.cell(40, 10, pw.sp.Date, "R")

	if pw.sp.Extra == nil {
		return
	}
	n := 0
	for pair := pw.sp.Extra.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "subtitle" {
			continue
		}
		n++
		p.SetY(205 + float64(n)*spaceBetweenExtras)
		p.SetFont(fontFamily, "", 12)
		pw.cell(50, 5, pair.Key, "L")
		p.SetFont(fontFamily, "I", 12)
		pw.cell(0, 5, pair.Value, "L")
	}
}

func (pw *pdfWriter) scene(no int, sc *screenplay.Scene) {
	p := pw.pdf
	p.SetFont(fontFamily, "B", 12)
	pw.cell(10, lineH, fmt.Sprintf("%d", no), "L")
	pw.cell(0, lineH, sc.Heading(), "L")
	p.Ln(spaceAfterSceneHeader)

	for _, el := range sc.Elements() {
		pw.element(no, sc, el)
	}
}

// element renders one scene element. It reports false for kinds it does not
// know, which are logged and skipped.
func (pw *pdfWriter) element(no int, sc *screenplay.Scene, el screenplay.Element) bool {
	p := pw.pdf
	switch e := el.(type) {
	case *screenplay.Summary:
		p.SetFont(fontFamily, "", 12)
		pw.multi(0, e.Text, "1", "L")
		p.Ln(spaceAfterSummary)
	case *screenplay.Action:
		p.SetFont(fontFamily, "", 12)
		pw.multi(0, e.TextWithoutComments, pw.border, "")
		p.Ln(spaceAfterAction)
	case *screenplay.Dialog:
		pw.dialog(sc, e)
	case *screenplay.Dir:
		p.SetFont(fontFamily, "I", 12)
		pw.multi(0, e.Text, pw.border, "L")
		p.Ln(spaceAfterDir)
	case *screenplay.Transition:
		p.SetFont(fontFamily, "", 12)
		pw.cell(transIndent, lineH, "", "")
		pw.multi(transWidth, strings.ToUpper(e.Text), pw.border, "R")
		p.Ln(spaceAfterTransition)
	default:
		attrs := append(applog.Source{Scene: no}.Attrs(), slog.String("kind", el.Kind().String()))
		pw.log.LogAttrs(context.Background(), slog.LevelWarn, "unknown element kind, skipped", attrs...)
		return false
	}
	return true
}

// SpeakerLabel is the upper-cased speaker name, with " (cont'd)" when the
// previous dialog of the scene had the same speaker.
func SpeakerLabel(sc *screenplay.Scene, d *screenplay.Dialog) string {
	label := d.SpeakerKey()
	if sc != nil && sc.Continued(d) {
		label += contdSuffix
	}
	return label
}

func (pw *pdfWriter) dialog(sc *screenplay.Scene, d *screenplay.Dialog) {
	p := pw.pdf
	p.SetFont(fontFamily, "", 12)
	pw.cell(0, lineH, SpeakerLabel(sc, d), "C")
	p.Ln(lineH)
	if d.Direction != "" {
		p.SetFont(fontFamily, "I", 10)
		pw.cell(dialogIndent, lineH, "", "")
		pw.multi(dialogWidth, "("+d.Direction+")", pw.border, "C")
		p.SetFont(fontFamily, "", 12)
	}
	pw.cell(dialogIndent, lineH, "", "")
	pw.multi(dialogWidth, d.Text, pw.border, "C")
	p.Ln(spaceAfterDialog)
}

func (pw *pdfWriter) theEnd() {
	pw.pdf.Ln(10)
	pw.pdf.SetFont(fontFamily, "B", 25)
	pw.cell(0, 15, "The END", "C")
}
