/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package report renders screenplay summaries, search hits and parse
// diagnostics as terminal tables. Colour is used only when the destination
// is a terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"goscreenwriter/internal/markup"
	"goscreenwriter/internal/screenplay"
	"goscreenwriter/internal/storage"
)

const maxCell = 48

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	warn   lipgloss.Style
	border lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Bold(true),
		header: r.NewStyle().Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		warn:   r.NewStyle().Foreground(lipgloss.Color("208")),
		border: r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (s styles) table(headers ...string) *ltable.Table {
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.border).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return s.header
			}
			return s.cell
		})
}

// Outline writes the title block and one row per scene.
func Outline(w io.Writer, sp *screenplay.Screenplay) error {
	st := newStyles(w)
	var b strings.Builder
	b.WriteString(st.title.Render(strings.ToUpper(sp.Title)))
	b.WriteString("\n")
	if sub, ok := sp.Subtitle(); ok {
		b.WriteString(sub + "\n")
	}
	fmt.Fprintf(&b, "by %s, directed by %s, %s (%s)\n", sp.AuthorsLine(), sp.Director, sp.Production, sp.Date)

	t := st.table("#", "Heading", "Summary", "Elements", "Speakers")
	for i, sc := range sp.Scenes {
		summary := ""
		if sc.Summary != nil {
			summary = sc.Summary.Text
		}
		t.Row(strconv.Itoa(i+1), sc.Heading(), clip(summary), strconv.Itoa(sc.Len()), strings.Join(speakers(sc), ", "))
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	if chars := sp.Characters(); len(chars) > 0 {
		fmt.Fprintf(&b, "%d scenes, characters: %s\n", len(sp.Scenes), strings.Join(chars, ", "))
	} else {
		fmt.Fprintf(&b, "%d scenes\n", len(sp.Scenes))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func speakers(sc *screenplay.Scene) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range sc.Dialogs() {
		k := d.SpeakerKey()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// SearchResults writes one row per hit.
func SearchResults(w io.Writer, res []storage.SearchResult) error {
	st := newStyles(w)
	if len(res) == 0 {
		_, err := fmt.Fprintln(w, "no matches")
		return err
	}
	t := st.table("Scene", "Type", "Character", "Path", "Text")
	for _, r := range res {
		scene := "-"
		if r.SceneNo > 0 {
			scene = strconv.Itoa(r.SceneNo)
		}
		t.Row(scene, r.Type, r.Character, r.Path, clip(r.Snippet))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Diagnostics writes parse problems, or a success line when there are none.
func Diagnostics(w io.Writer, path string, errs []markup.Error) error {
	st := newStyles(w)
	if len(errs) == 0 {
		_, err := fmt.Fprintf(w, "%s: ok\n", path)
		return err
	}
	var b strings.Builder
	for _, e := range errs {
		b.WriteString(st.warn.Render(fmt.Sprintf("%s:%d: %s", path, e.Line, e.Message)))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d problem(s)\n", len(errs))
	_, err := io.WriteString(w, b.String())
	return err
}

// Characters writes the dialog line count per speaker.
func Characters(w io.Writer, counts []storage.CharacterCount) error {
	if len(counts) == 0 {
		_, err := fmt.Fprintln(w, "no dialog")
		return err
	}
	t := newStyles(w).table("Character", "Lines")
	for _, c := range counts {
		t.Row(c.Character, strconv.Itoa(c.Lines))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Snapshots lists stored script snapshots, newest first.
func Snapshots(w io.Writer, snaps []storage.ScriptSnapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, "no snapshots")
		return err
	}
	t := newStyles(w).table("Taken", "Lines", "First line")
	for _, s := range snaps {
		lines := strings.Split(strings.TrimRight(s.Text, "\n"), "\n")
		t.Row(s.TS.Local().Format(time.DateTime), strconv.Itoa(len(lines)), clip(lines[0]))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Table writes rows under headers with the same styling as the other reports.
// Cells are clipped to one line.
func Table(w io.Writer, headers []string, rows [][]string) error {
	t := newStyles(w).table(headers...)
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = clip(c)
		}
		t.Row(cells...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// clip shortens s to one line of at most maxCell runes.
func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-1]) + "…"
}
