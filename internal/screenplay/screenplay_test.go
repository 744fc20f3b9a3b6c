/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorListNormalisation(t *testing.T) {
	got, err := AuthorList("Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe"}, got)

	got, err = AuthorList([]any{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)

	_, err = AuthorList([]any{})
	assert.ErrorIs(t, err, ErrNoAuthors)

	_, err = AuthorList(42)
	assert.Error(t, err)
}

func TestAssemblePreservesSceneOrderAndExtras(t *testing.T) {
	extra := NewFields()
	extra.Set("subtitle", "Part One")
	extra.Set("genre", "drama")
	extra.Set("language", "en")

	s1 := NewScene("INT", "A", "DAY")
	s2 := NewScene("EXT", "B", "NIGHT")
	sp, err := Assemble(Metadata{Title: "T", Authors: []string{"Me"}, Extra: extra}, []*Scene{s1, s2})
	require.NoError(t, err)
	require.Len(t, sp.Scenes, 2)
	assert.Same(t, s1, sp.Scenes[0])
	assert.Same(t, s2, sp.Scenes[1])

	var keys []string
	for p := sp.Extra.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"subtitle", "genre", "language"}, keys)
	sub, ok := sp.Subtitle()
	assert.True(t, ok)
	assert.Equal(t, "Part One", sub)
}

func TestNewRejectsEmptyAuthors(t *testing.T) {
	_, err := New(Metadata{Title: "T"})
	assert.ErrorIs(t, err, ErrNoAuthors)
}

func TestCharactersInOrderOfAppearance(t *testing.T) {
	s1 := NewScene("INT", "A", "DAY")
	s1.AddDialog(NewDialog(NewCharacter("bob"), "x", ""))
	s1.AddDialog(NewDialog(NewCharacter("Ann"), "y", ""))
	s2 := NewScene("INT", "B", "DAY")
	s2.AddDialog(NewDialog(NewCharacter("BOB"), "z", ""))
	sp, err := Assemble(Metadata{Authors: []string{"x"}}, []*Scene{s1, s2})
	require.NoError(t, err)
	assert.Equal(t, []string{"BOB", "ANN"}, sp.Characters())
}
