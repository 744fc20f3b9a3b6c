/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/screenplay"
)

// ErrNoScene is reported for elements that appear before the first scene header.
var ErrNoScene = errors.New("no open scene")

// Error is a per-line parse problem. The offending line contributes nothing
// to the document; scanning carries on with the next line.
type Error struct {
	Line    int // 1-based
	Column  int
	Message string
	Err     error
}

func (e Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }

func (e Error) Unwrap() error { return e.Err }

// Options tunes the scanner.
type Options struct {
	// DropUnterminated discards the open scene (and any pending action text)
	// when the input ends without an \end marker. By default they are kept.
	DropUnterminated bool
	Logger           *slog.Logger
}

type state int

const (
	stateNoScene state = iota
	stateInScene
	stateAccumulating
	stateDone
)

func (s state) String() string {
	switch s {
	case stateNoScene:
		return "no-scene"
	case stateInScene:
		return "in-scene"
	case stateAccumulating:
		return "accumulating"
	case stateDone:
		return "done"
	default:
		return "invalid"
	}
}

// Scanner folds markup lines into scenes, one line at a time.
// A Scanner is not safe for concurrent use.
type Scanner struct {
	ctx     context.Context
	opts    Options
	log     *slog.Logger
	state   state
	current *screenplay.Scene
	action  strings.Builder
	prev    TagKind
	hasPrev bool
	lineNo  int
	scenes  []*screenplay.Scene
	errs    []Error
}

// NewScanner returns a scanner in the no-scene state.
func NewScanner(opts Options) *Scanner { return NewScannerContext(context.Background(), opts) }

// NewScannerContext is NewScanner with a context whose log source (project,
// file) is extended with the line and scene of each reported problem.
func NewScannerContext(ctx context.Context, opts Options) *Scanner {
	l := opts.Logger
	if l == nil {
		l = applog.WithOperation(applog.WithComponent("markup"), "scan")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Scanner{ctx: ctx, opts: opts, log: l}
}

// Done reports whether an \end marker has been consumed.
func (s *Scanner) Done() bool { return s.state == stateDone }

// Feed processes the next line. It returns false once the scan is finished;
// further lines are ignored.
func (s *Scanner) Feed(line string) bool {
	if s.state == stateDone {
		return false
	}
	s.lineNo++
	if err := s.step(line); err != nil {
		s.fail(err)
	}
	return s.state != stateDone
}

// Close ends the scan and returns the scenes in source order together with
// the per-line errors.
func (s *Scanner) Close() ([]*screenplay.Scene, []Error) {
	if s.state != stateDone {
		if s.opts.DropUnterminated {
			if s.current != nil {
				s.log.Warn("input ended without \\end; dropping open scene", slog.String("location", s.current.Location))
			}
		} else {
			s.flushAction()
			if s.current != nil {
				s.scenes = append(s.scenes, s.current)
			}
		}
		s.current = nil
		s.state = stateDone
	}
	return s.scenes, s.errs
}

func (s *Scanner) step(line string) error {
	kind := Classify(line)
	if s.hasPrev && (s.prev == TagScene || s.prev == TagSummary) && line == "" {
		return nil
	}
	if kind == TagComment {
		return nil
	}
	if s.state == stateAccumulating && kind != TagAction {
		s.flushAction()
	}

	switch kind {
	case TagScene:
		f, err := ExtractScene(line)
		if err != nil {
			return err
		}
		if s.current != nil {
			s.scenes = append(s.scenes, s.current)
		}
		s.current = screenplay.NewScene(f.Value, f.Location, f.Time)
		s.state = stateInScene
	case TagAction:
		if line == "" {
			break
		}
		if s.current == nil {
			return fmt.Errorf("action text: %w", ErrNoScene)
		}
		if s.state == stateAccumulating {
			s.action.WriteByte('\n')
		}
		s.action.WriteString(line)
		s.state = stateAccumulating
	case TagDialog:
		f, err := ExtractDialog(line)
		if err != nil {
			return err
		}
		if s.current == nil {
			return fmt.Errorf("dialog: %w", ErrNoScene)
		}
		s.current.AddDialog(screenplay.NewDialog(screenplay.NewCharacter(f.Speaker), f.Text, f.Direction))
	case TagSummary:
		text, err := ExtractText(kind, line)
		if err != nil {
			return err
		}
		if s.current == nil {
			return fmt.Errorf("summary: %w", ErrNoScene)
		}
		s.current.SetSummary(&screenplay.Summary{Text: text})
	case TagDir:
		text, err := ExtractText(kind, line)
		if err != nil {
			return err
		}
		if s.current == nil {
			return fmt.Errorf("dir: %w", ErrNoScene)
		}
		s.current.AddDir(screenplay.NewDir(text))
	case TagTransition:
		text, err := ExtractText(kind, line)
		if err != nil {
			return err
		}
		if s.current == nil {
			return fmt.Errorf("transition: %w", ErrNoScene)
		}
		s.current.SetTransition(&screenplay.Transition{Text: text})
	case TagEnd:
		if s.current != nil {
			s.scenes = append(s.scenes, s.current)
		}
		s.current = nil
		s.state = stateDone
	}
	s.prev, s.hasPrev = kind, true
	return nil
}

// flushAction turns the pending paragraph into an Action of the open scene.
func (s *Scanner) flushAction() {
	if s.state != stateAccumulating {
		return
	}
	text := s.action.String()
	text = strings.TrimPrefix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	s.action.Reset()
	s.current.AddAction(screenplay.NewAction(text))
	s.state = stateInScene
}

func (s *Scanner) fail(err error) {
	src := applog.Source{Line: s.lineNo}
	if s.current != nil {
		src.Scene = len(s.scenes) + 1
	}
	ctx := applog.ContextWithSource(s.ctx, src)
	var fc *FieldCountError
	if errors.As(err, &fc) {
		s.log.ErrorContext(ctx, "malformed directive", slog.String("directive", fc.Kind.Directive()), slog.Int("want", fc.Want), slog.Int("got", fc.Got))
	} else {
		s.log.WarnContext(ctx, "line skipped", slog.Any("err", err))
	}
	s.errs = append(s.errs, Error{Line: s.lineNo, Column: 1, Message: err.Error(), Err: err})
}
