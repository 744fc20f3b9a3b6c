/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import "strings"

// Span is the rune index range of an inline comment, both ends inclusive
// (the opening '<' and the closing '>').
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Action is a paragraph of descriptive text. Inline comments written as
// <...> are kept in TextWithComments and removed from TextWithoutComments.
type Action struct {
	TextWithComments    string `json:"textWithComments"`
	TextWithoutComments string `json:"text"`
	Comments            []Span `json:"comments,omitempty"`
	Position            int    `json:"position"`
}

// NewAction strips inline comments from text and normalises whitespace.
func NewAction(text string) *Action {
	stripped, spans := stripComments(text)
	return &Action{
		TextWithComments:    text,
		TextWithoutComments: CollapseSpaces(stripped),
		Comments:            spans,
		Position:            -1,
	}
}

func (*Action) Kind() ElementKind { return KindAction }
func (*Action) element()          {}

// stripComments drops every <...> run. A '<' inside an open comment restarts
// it; an unterminated comment swallows the rest of the text; a '>' outside a
// comment is ordinary text.
func stripComments(text string) (string, []Span) {
	var b strings.Builder
	b.Grow(len(text))
	var spans []Span
	inside := false
	start := 0
	pos := 0
	for _, r := range text {
		switch {
		case r == '<':
			inside = true
			start = pos
		case inside && r == '>':
			inside = false
			spans = append(spans, Span{Start: start, End: pos})
		case !inside:
			b.WriteRune(r)
		}
		pos++
	}
	return b.String(), spans
}

// CollapseSpaces collapses runs of whitespace inside each line to a single
// space and trims every line, keeping the line breaks.
func CollapseSpaces(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.Join(strings.Fields(ln), " ")
	}
	return strings.Join(lines, "\n")
}
