/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSceneVerbatim(t *testing.T) {
	f, err := ExtractScene(`\scene{int}{Bob's Kitchen}{late night}`)
	require.NoError(t, err)
	assert.Equal(t, SceneFields{Value: "int", Location: "Bob's Kitchen", Time: "late night"}, f)
}

func TestExtractSceneWrongArity(t *testing.T) {
	for _, line := range []string{
		`\scene{INT}{KITCHEN}`,
		`\scene{INT}{KITCHEN}{DAY}{EXTRA}`,
		`\scene`,
		`\scene{INT}{}{DAY}`,
	} {
		_, err := ExtractScene(line)
		var fc *FieldCountError
		require.True(t, errors.As(err, &fc), "line %q", line)
		assert.Equal(t, 3, fc.Want)
		assert.Equal(t, TagScene, fc.Kind)
	}
}

func TestExtractDialogWithAndWithoutDirection(t *testing.T) {
	d, err := ExtractDialog(`\dialog{BOB}{Anyone here?}[shouting]`)
	require.NoError(t, err)
	assert.Equal(t, DialogFields{Speaker: "BOB", Text: "Anyone here?", Direction: "shouting"}, d)

	d, err = ExtractDialog(`\dialog{ANN}{Hello.}`)
	require.NoError(t, err)
	assert.Equal(t, "", d.Direction)

	d, err = ExtractDialog(`\dialog{ANN}{Hello.}[first][second]`)
	require.NoError(t, err)
	assert.Equal(t, "first", d.Direction)

	_, err = ExtractDialog(`\dialog{ANN}`)
	var fc *FieldCountError
	require.ErrorAs(t, err, &fc)
	assert.Equal(t, 2, fc.Want)
	assert.Equal(t, 1, fc.Got)
}

func TestExtractTextSingleField(t *testing.T) {
	for _, k := range []TagKind{TagSummary, TagTransition, TagDir} {
		line := k.Directive() + "{some text}"
		got, err := ExtractText(k, line)
		require.NoError(t, err)
		assert.Equal(t, "some text", got)

		_, err = ExtractText(k, k.Directive()+"{a}{b}")
		var fc *FieldCountError
		require.ErrorAs(t, err, &fc)
		assert.Equal(t, 1, fc.Want)
		assert.Equal(t, 2, fc.Got)
	}
	_, err := ExtractText(TagScene, `\scene{x}`)
	assert.Error(t, err)
}

func TestBraceFieldsSkipNested(t *testing.T) {
	assert.Equal(t, []string{"b"}, BraceFields(`{a{b}`))
	assert.Equal(t, []string{"x", "y"}, BraceFields(`pre {x} mid {y} post`))
	assert.Nil(t, BraceFields(`no fields`))
	assert.Equal(t, []string{"dir"}, BracketFields(`[dir]`))
}

func TestFieldCountErrorMessage(t *testing.T) {
	err := &FieldCountError{Kind: TagScene, Want: 3, Got: 2}
	assert.Equal(t, `wrong fields on \scene: expected 3, got 2`, err.Error())
}
