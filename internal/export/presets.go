/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"goscreenwriter/internal/report"
	"goscreenwriter/internal/screenplay"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetPrint PresetName = "print"
	PresetDraft PresetName = "draft"
	PresetData  PresetName = "data"
)

// Supported batch formats.
const (
	FormatPDF     = "pdf"
	FormatJSON    = "json"
	FormatOutline = "outline"
)

// BatchOptions controls batch export across multiple formats.
//
// Path semantics:
//   - If OutDir is empty it defaults to the preset name; a relative OutDir is placed under <project>/exports/.
//   - Files are named <base>.pdf, <base>.json and <base>.outline.txt, where base defaults to a slug of the title.
type BatchOptions struct {
	Preset       PresetName
	Formats      []string // allowed: pdf, json, outline; empty means preset defaults
	Guides       *bool    // when set, overrides the preset's default for PDF cell guides
	OutDir       string
	BaseName     string
	CreationDate time.Time
}

// BatchExport writes sp in every requested format and returns the files written.
func BatchExport(projectRoot string, sp *screenplay.Screenplay, opt BatchOptions) ([]string, error) {
	if sp == nil {
		return nil, fmt.Errorf("screenplay is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	norm := make([]string, 0, len(formats))
	for _, f := range formats {
		norm = append(norm, strings.ToLower(strings.TrimSpace(f)))
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = string(PresetPrint)
		}
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(projectRoot, "exports", baseOut)
	}
	if err := os.MkdirAll(baseOut, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	base := opt.BaseName
	if base == "" {
		base = Slug(sp.Title)
	}

	guides := presetGuides(opt.Preset)
	if opt.Guides != nil {
		guides = *opt.Guides
	}

	var written []string
	for _, f := range norm {
		var out string
		var err error
		switch f {
		case FormatPDF:
			out = filepath.Join(baseOut, base+".pdf")
			err = ExportPDF(sp, out, PDFOptions{Guides: guides, CreationDate: opt.CreationDate})
		case FormatJSON:
			out = filepath.Join(baseOut, base+".json")
			err = writeFile(out, func(fh *os.File) error { return ExportJSON(sp, fh) })
		case FormatOutline:
			out = filepath.Join(baseOut, base+".outline.txt")
			err = writeFile(out, func(fh *os.File) error { return report.Outline(fh, sp) })
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// Slug turns a title into a lower-case file stem.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "screenplay"
	}
	return s
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetDraft:
		return []string{FormatPDF, FormatOutline}
	case PresetData:
		return []string{FormatJSON}
	default:
		return []string{FormatPDF}
	}
}

func presetGuides(p PresetName) bool {
	return p == PresetDraft
}
