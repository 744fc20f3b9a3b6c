/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package markup parses the screenplay markup into scenes.
//
// The markup is line oriented. A directive line starts with a backslash
// keyword and carries its values in {} fields:
//
//	\scene{INT}{KITCHEN}{DAY}
//	\summary{Bob gets home.}
//	\dialog{BOB}{Anyone here?}[shouting]
//	\dir{Slow push in.}
//	\transition{CUT TO}
//	\end
//
// Lines starting with '<' are comments. Any other non-blank line is action
// text; consecutive action lines form one paragraph.
package markup

import "strings"

// TagKind is the construct a single markup line represents.
type TagKind int

const (
	TagAction TagKind = iota
	TagScene
	TagSummary
	TagDialog
	TagEnd
	TagDir
	TagTransition
	TagComment
)

func (k TagKind) String() string {
	switch k {
	case TagAction:
		return "action"
	case TagScene:
		return "scene"
	case TagSummary:
		return "summary"
	case TagDialog:
		return "dialog"
	case TagEnd:
		return "end"
	case TagDir:
		return "dir"
	case TagTransition:
		return "transition"
	case TagComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Directive prefixes, checked in this order.
var prefixes = []struct {
	prefix string
	kind   TagKind
}{
	{`\scene`, TagScene},
	{`\summary`, TagSummary},
	{`\dialog`, TagDialog},
	{`\end`, TagEnd},
	{`\dir`, TagDir},
	{`\transition`, TagTransition},
	{"<", TagComment},
}

// Classify returns the kind of a markup line. Matching is a case-sensitive
// prefix test; everything unrecognised, including the empty line, is action.
func Classify(line string) TagKind {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.kind
		}
	}
	return TagAction
}

// Directive returns the backslash keyword for a structured kind, or "".
func (k TagKind) Directive() string {
	for _, p := range prefixes {
		if p.kind == k && strings.HasPrefix(p.prefix, `\`) {
			return p.prefix
		}
	}
	return ""
}
