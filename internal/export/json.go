/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"goscreenwriter/internal/screenplay"
)

// DocumentJSON is the exchange form of a screenplay for external tools.
type DocumentJSON struct {
	Title      string                                 `json:"title"`
	Authors    []string                               `json:"authors"`
	Director   string                                 `json:"director"`
	Date       string                                 `json:"creation_date"`
	Production string                                 `json:"production"`
	Extra      *orderedmap.OrderedMap[string, string] `json:"extra,omitempty"`
	Scenes     []SceneJSON                            `json:"scenes"`
}

type SceneJSON struct {
	Number   int           `json:"number"`
	Value    string        `json:"value"`
	Location string        `json:"location"`
	Time     string        `json:"time"`
	Heading  string        `json:"heading"`
	Elements []ElementJSON `json:"elements"`
}

// ElementJSON flattens every element kind into one shape; unused fields are omitted.
type ElementJSON struct {
	Kind      string            `json:"kind"`
	Position  *int              `json:"position,omitempty"`
	Text      string            `json:"text"`
	Raw       string            `json:"raw,omitempty"`
	Comments  []screenplay.Span `json:"comments,omitempty"`
	Speaker   string            `json:"speaker,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Direction string            `json:"direction,omitempty"`
	Continued bool              `json:"continued,omitempty"`
}

// BuildDocument converts sp to its exchange form.
func BuildDocument(sp *screenplay.Screenplay) DocumentJSON {
	doc := DocumentJSON{
		Title:      sp.Title,
		Authors:    append([]string(nil), sp.Authors...),
		Director:   sp.Director,
		Date:       sp.Date,
		Production: sp.Production,
		Scenes:     make([]SceneJSON, 0, len(sp.Scenes)),
	}
	if sp.Extra != nil && sp.Extra.Len() > 0 {
		doc.Extra = sp.Extra
	}
	for i, sc := range sp.Scenes {
		sj := SceneJSON{
			Number:   i + 1,
			Value:    sc.Value,
			Location: sc.Location,
			Time:     sc.Time,
			Heading:  sc.Heading(),
			Elements: make([]ElementJSON, 0, sc.Len()),
		}
		for _, el := range sc.Elements() {
			ej := ElementJSON{Kind: el.Kind().String()}
			switch e := el.(type) {
			case *screenplay.Summary:
				ej.Text = e.Text
			case *screenplay.Transition:
				ej.Text = e.Text
			case *screenplay.Action:
				ej.Position = intPtr(e.Position)
				ej.Text = e.TextWithoutComments
				ej.Raw = e.TextWithComments
				ej.Comments = e.Comments
			case *screenplay.Dialog:
				ej.Position = intPtr(e.Position)
				ej.Text = e.Text
				ej.Direction = e.Direction
				if e.Speaker != nil {
					ej.Speaker = e.Speaker.Name
					ej.Actor = e.Speaker.Actor
				}
				ej.Continued = sc.Continued(e)
			case *screenplay.Dir:
				ej.Position = intPtr(e.Position)
				ej.Text = e.Text
			}
			sj.Elements = append(sj.Elements, ej)
		}
		doc.Scenes = append(doc.Scenes, sj)
	}
	return doc
}

func intPtr(v int) *int { return &v }

// ExportJSON writes sp as indented JSON to w.
func ExportJSON(sp *screenplay.Screenplay, w io.Writer) error {
	if sp == nil {
		return errors.New("screenplay is nil")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BuildDocument(sp)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
