/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package screenplay holds the in-memory screenplay document tree produced by
// the markup parser and consumed read-only by the exporters.
package screenplay

import "strings"

// ElementKind tags the closed set of elements a scene can hold.
type ElementKind int

const (
	KindAction ElementKind = iota
	KindDialog
	KindDir
	KindSummary
	KindTransition
)

func (k ElementKind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindDialog:
		return "dialog"
	case KindDir:
		return "dir"
	case KindSummary:
		return "summary"
	case KindTransition:
		return "transition"
	default:
		return "unknown"
	}
}

// Element is one entry of a scene's ordered element sequence.
// The set of implementations is closed; switch on Kind (or a type switch).
type Element interface {
	Kind() ElementKind
	element()
}

// Character is a speaking role. Actor is optional.
type Character struct {
	Name  string `json:"name"`
	Actor string `json:"actor,omitempty"`
}

// NewCharacter returns a character for the given speaker name.
func NewCharacter(name string) *Character { return &Character{Name: name} }

// Dialog is a spoken line with an optional parenthetical direction.
type Dialog struct {
	Speaker   *Character `json:"speaker"`
	Text      string     `json:"text"`
	Direction string     `json:"direction,omitempty"`
	Position  int        `json:"position"`
}

// NewDialog builds a dialog; Position is assigned when added to a scene.
func NewDialog(speaker *Character, text, direction string) *Dialog {
	return &Dialog{Speaker: speaker, Text: text, Direction: direction, Position: -1}
}

func (*Dialog) Kind() ElementKind { return KindDialog }
func (*Dialog) element()          {}

// SpeakerKey is the normalised (upper-cased) speaker name.
func (d *Dialog) SpeakerKey() string {
	if d == nil || d.Speaker == nil {
		return ""
	}
	return strings.ToUpper(d.Speaker.Name)
}

// SameSpeaker reports whether both dialogs are spoken by the same character name.
func (d *Dialog) SameSpeaker(other *Dialog) bool {
	if d == nil || other == nil {
		return false
	}
	return d.SpeakerKey() == other.SpeakerKey()
}

// Dir is a standalone direction block.
type Dir struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

func NewDir(text string) *Dir { return &Dir{Text: text, Position: -1} }

func (*Dir) Kind() ElementKind { return KindDir }
func (*Dir) element()          {}

// Summary is read out first in its scene.
type Summary struct {
	Text string `json:"text"`
}

func (*Summary) Kind() ElementKind { return KindSummary }
func (*Summary) element()          {}

// Transition is read out last in its scene.
type Transition struct {
	Text string `json:"text"`
}

func (*Transition) Kind() ElementKind { return KindTransition }
func (*Transition) element()          {}
