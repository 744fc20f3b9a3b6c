/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"fmt"
	"regexp"
)

var (
	reBrace   = regexp.MustCompile(`\{([^{}]+)\}`)
	reBracket = regexp.MustCompile(`\[([^\]]+)\]`)
)

// FieldCountError reports a directive whose {} field count does not match
// its arity.
type FieldCountError struct {
	Kind TagKind
	Want int
	Got  int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("wrong fields on %s: expected %d, got %d", e.Kind.Directive(), e.Want, e.Got)
}

// BraceFields returns the non-empty {} values of line, left to right, without
// the braces. Nested braces never match.
func BraceFields(line string) []string { return submatches(reBrace, line) }

// BracketFields returns the non-empty [] values of line, left to right.
func BracketFields(line string) []string { return submatches(reBracket, line) }

func submatches(re *regexp.Regexp, line string) []string {
	found := re.FindAllStringSubmatch(line, -1)
	if len(found) == 0 {
		return nil
	}
	out := make([]string, 0, len(found))
	for _, m := range found {
		out = append(out, m[1])
	}
	return out
}

// SceneFields are the values of a \scene directive.
type SceneFields struct {
	Value    string
	Location string
	Time     string
}

// DialogFields are the values of a \dialog directive. Direction is "" when
// the optional [] field is absent.
type DialogFields struct {
	Speaker   string
	Text      string
	Direction string
}

// ExtractScene reads (value, location, time) from a \scene line.
func ExtractScene(line string) (SceneFields, error) {
	f := BraceFields(line)
	if len(f) != 3 {
		return SceneFields{}, &FieldCountError{Kind: TagScene, Want: 3, Got: len(f)}
	}
	return SceneFields{Value: f[0], Location: f[1], Time: f[2]}, nil
}

// ExtractDialog reads (speaker, text) and the optional direction from a
// \dialog line. Only the first [] field is used.
func ExtractDialog(line string) (DialogFields, error) {
	f := BraceFields(line)
	if len(f) != 2 {
		return DialogFields{}, &FieldCountError{Kind: TagDialog, Want: 2, Got: len(f)}
	}
	d := DialogFields{Speaker: f[0], Text: f[1]}
	if opt := BracketFields(line); len(opt) > 0 {
		d.Direction = opt[0]
	}
	return d, nil
}

// ExtractText reads the single field of a \summary, \transition or \dir line.
func ExtractText(kind TagKind, line string) (string, error) {
	switch kind {
	case TagSummary, TagTransition, TagDir:
	default:
		return "", fmt.Errorf("%s lines carry no single text field", kind)
	}
	f := BraceFields(line)
	if len(f) != 1 {
		return "", &FieldCountError{Kind: kind, Want: 1, Got: len(f)}
	}
	return f[0], nil
}
