/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNoAuthors is returned when a screenplay would be built without authors.
var ErrNoAuthors = errors.New("screenplay needs at least one author")

// Fields is the open bag of extra metadata, kept in insertion order.
type Fields = orderedmap.OrderedMap[string, string]

// NewFields returns an empty ordered field bag.
func NewFields() *Fields { return orderedmap.New[string, string]() }

// AuthorList normalises an authors value: a bare string becomes a
// one-element list, a list is copied as is.
func AuthorList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		if len(t) == 0 {
			return nil, ErrNoAuthors
		}
		return append([]string(nil), t...), nil
	case []any:
		if len(t) == 0 {
			return nil, ErrNoAuthors
		}
		out := make([]string, 0, len(t))
		for i, a := range t {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("author %d: expected string, got %T", i, a)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("authors: expected string or list, got %T", v)
	}
}

// Metadata describes the screenplay as read from the project's metadata file.
type Metadata struct {
	Title      string
	Authors    []string
	Director   string
	Date       string
	Production string
	Extra      *Fields
}

// Screenplay is the whole document: metadata plus scenes in source order.
type Screenplay struct {
	Title      string
	Authors    []string
	Director   string
	Date       string
	Production string
	Extra      *Fields
	Scenes     []*Scene
}

// New creates a screenplay without scenes.
func New(meta Metadata) (*Screenplay, error) {
	if len(meta.Authors) == 0 {
		return nil, ErrNoAuthors
	}
	extra := meta.Extra
	if extra == nil {
		extra = NewFields()
	}
	return &Screenplay{
		Title:      meta.Title,
		Authors:    append([]string(nil), meta.Authors...),
		Director:   meta.Director,
		Date:       meta.Date,
		Production: meta.Production,
		Extra:      extra,
	}, nil
}

// Assemble wraps the scanned scenes together with the metadata.
func Assemble(meta Metadata, scenes []*Scene) (*Screenplay, error) {
	sp, err := New(meta)
	if err != nil {
		return nil, err
	}
	for _, sc := range scenes {
		sp.AddScene(sc)
	}
	return sp, nil
}

// AddScene appends a scene.
func (sp *Screenplay) AddScene(sc *Scene) { sp.Scenes = append(sp.Scenes, sc) }

// Subtitle returns the "subtitle" extra field, if any.
func (sp *Screenplay) Subtitle() (string, bool) {
	if sp.Extra == nil {
		return "", false
	}
	return sp.Extra.Get("subtitle")
}

// AuthorsLine joins the authors for single-line display.
func (sp *Screenplay) AuthorsLine() string { return strings.Join(sp.Authors, ", ") }

// Characters returns the distinct speaker names (upper-cased) in order of first appearance.
func (sp *Screenplay) Characters() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, sc := range sp.Scenes {
		for _, d := range sc.Dialogs() {
			k := d.SpeakerKey()
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
