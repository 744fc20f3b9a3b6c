/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import "strings"

// Scene is a unit of the screenplay sharing one setting. Actions, dialogs and
// dirs share a single position axis in insertion order; the summary and the
// transition sit outside it.
type Scene struct {
	Value      string      `json:"value"`
	Location   string      `json:"location"`
	Time       string      `json:"time"`
	Summary    *Summary    `json:"summary,omitempty"`
	Transition *Transition `json:"transition,omitempty"`

	body []Element
	pos  int
}

// NewScene creates an empty scene; value is upper-cased (INT/EXT).
func NewScene(value, location, timeOfDay string) *Scene {
	return &Scene{Value: strings.ToUpper(value), Location: location, Time: timeOfDay}
}

func (s *Scene) push(e Element) {
	s.body = append(s.body, e)
	s.pos++
}

// AddAction appends an action and assigns its position.
func (s *Scene) AddAction(a *Action) {
	a.Position = s.pos
	s.push(a)
}

// AddDialog appends a dialog and assigns its position.
func (s *Scene) AddDialog(d *Dialog) {
	d.Position = s.pos
	s.push(d)
}

// AddDir appends a direction block and assigns its position.
func (s *Scene) AddDir(d *Dir) {
	d.Position = s.pos
	s.push(d)
}

// SetSummary replaces the scene summary.
func (s *Scene) SetSummary(sum *Summary) { s.Summary = sum }

// SetTransition replaces the scene transition.
func (s *Scene) SetTransition(t *Transition) { s.Transition = t }

// PositionCounter is the next position to be assigned.
func (s *Scene) PositionCounter() int { return s.pos }

// Len is the length of the sequence returned by Elements.
func (s *Scene) Len() int {
	n := s.pos
	if s.Summary != nil {
		n++
	}
	if s.Transition != nil {
		n++
	}
	return n
}

// Elements returns the scene read out in order: summary, positional body,
// transition.
func (s *Scene) Elements() []Element {
	out := make([]Element, 0, s.Len())
	if s.Summary != nil {
		out = append(out, s.Summary)
	}
	out = append(out, s.body...)
	if s.Transition != nil {
		out = append(out, s.Transition)
	}
	return out
}

// Actions returns the scene's actions in position order.
func (s *Scene) Actions() []*Action {
	var out []*Action
	for _, e := range s.body {
		if a, ok := e.(*Action); ok {
			out = append(out, a)
		}
	}
	return out
}

// Dialogs returns the scene's dialogs in position order.
func (s *Scene) Dialogs() []*Dialog {
	var out []*Dialog
	for _, e := range s.body {
		if d, ok := e.(*Dialog); ok {
			out = append(out, d)
		}
	}
	return out
}

// Dirs returns the scene's direction blocks in position order.
func (s *Scene) Dirs() []*Dir {
	var out []*Dir
	for _, e := range s.body {
		if d, ok := e.(*Dir); ok {
			out = append(out, d)
		}
	}
	return out
}

// Continued reports whether d follows another dialog of the same speaker
// in this scene. Non-dialog elements in between do not break the run.
func (s *Scene) Continued(d *Dialog) bool {
	if d == nil || d.Position <= 0 || d.Position >= len(s.body) || s.body[d.Position] != Element(d) {
		return false
	}
	for i := d.Position - 1; i >= 0; i-- {
		if prev, ok := s.body[i].(*Dialog); ok {
			return prev.SameSpeaker(d)
		}
	}
	return false
}

// Heading formats the scene heading as "VALUE. Location. TIME".
func (s *Scene) Heading() string {
	return s.Value + ". " + s.Location + ". " + strings.ToUpper(s.Time)
}
