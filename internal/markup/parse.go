/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"goscreenwriter/internal/screenplay"
)

// maxLineBytes bounds a single markup line.
const maxLineBytes = 1 << 20

// Parse scans the given lines (without line terminators) into scenes.
// Lines after an \end marker are not looked at.
func Parse(lines []string, opts Options) ([]*screenplay.Scene, []Error) {
	return ParseContext(context.Background(), lines, opts)
}

// ParseContext is Parse with a logging context; see NewScannerContext.
func ParseContext(ctx context.Context, lines []string, opts Options) ([]*screenplay.Scene, []Error) {
	sc := NewScannerContext(ctx, opts)
	for _, ln := range lines {
		if !sc.Feed(ln) {
			break
		}
	}
	return sc.Close()
}

// ParseString splits input on newlines and parses it.
func ParseString(input string, opts Options) ([]*screenplay.Scene, []Error) {
	scenes, errs, _ := ParseReader(strings.NewReader(input), opts)
	return scenes, errs
}

// ParseReader reads markup from r line by line. The returned error is an I/O
// failure of r; parse problems are reported per line.
func ParseReader(r io.Reader, opts Options) ([]*screenplay.Scene, []Error, error) {
	sc := NewScanner(opts)
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for in.Scan() {
		if !sc.Feed(strings.TrimRight(in.Text(), "\r")) {
			break
		}
	}
	scenes, errs := sc.Close()
	if err := in.Err(); err != nil {
		return scenes, errs, fmt.Errorf("read markup: %w", err)
	}
	return scenes, errs, nil
}
