/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/markup"
	"goscreenwriter/internal/screenplay"
)

const (
	ScriptFileName   = "screenplay.txt"
	MetadataFileName = "metadata.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"

	maxScriptLineBytes = 1 << 20
)

// ErrInvalidPath is returned when a project directory or one of its files does not exist.
var ErrInvalidPath = errors.New("invalid input path")

var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
}

const starterScript = `< new screenplay >
\scene{INT}{Somewhere}{DAY}
\end
`

// Layout names the two input files inside a project directory.
type Layout struct {
	ScriptFile   string
	MetadataFile string
}

// DefaultLayout is screenplay.txt plus metadata.json.
func DefaultLayout() Layout {
	return Layout{ScriptFile: ScriptFileName, MetadataFile: MetadataFileName}
}

func (l Layout) orDefault() Layout {
	if strings.TrimSpace(l.ScriptFile) == "" {
		l.ScriptFile = ScriptFileName
	}
	if strings.TrimSpace(l.MetadataFile) == "" {
		l.MetadataFile = MetadataFileName
	}
	return l
}

// ProjectHandle is an opened project directory.
// Metadata is decoded when the project is opened, before any script parsing.
type ProjectHandle struct {
	Root         string
	ScriptPath   string
	MetadataPath string
	Metadata     screenplay.Metadata
}

// InitProject creates a new project directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, writes a starter script if none exists and writes
// the metadata file transactionally.
func InitProject(root string, meta screenplay.Metadata) (*ProjectHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if len(meta.Authors) == 0 {
		return nil, screenplay.ErrNoAuthors
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create project root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	l := DefaultLayout()
	ph := &ProjectHandle{
		Root:         root,
		ScriptPath:   filepath.Join(root, l.ScriptFile),
		MetadataPath: filepath.Join(root, l.MetadataFile),
		Metadata:     meta,
	}
	if _, err := os.Stat(ph.ScriptPath); errors.Is(err, os.ErrNotExist) {
		if err := writeFileSync(ph.ScriptPath, []byte(starterScript)); err != nil {
			return nil, fmt.Errorf("write starter script: %w", err)
		}
	}
	if err := SaveMetadata(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

// Open opens the project at root with the default layout.
func Open(root string) (*ProjectHandle, error) { return OpenWith(root, DefaultLayout()) }

// OpenWith opens the project at root. Both files must exist; otherwise ErrInvalidPath
// is returned. If the metadata file cannot be parsed, the latest backup is tried.
// A missing required field is never recovered from a backup.
func OpenWith(root string, layout Layout) (*ProjectHandle, error) {
	layout = layout.orDefault()
	st, err := os.Stat(root)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, root)
	}
	ph := &ProjectHandle{
		Root:         root,
		ScriptPath:   filepath.Join(root, layout.ScriptFile),
		MetadataPath: filepath.Join(root, layout.MetadataFile),
	}
	if _, err := os.Stat(ph.ScriptPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, ph.ScriptPath)
	}
	b, err := os.ReadFile(ph.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, ph.MetadataPath)
	}
	meta, derr := DecodeMetadata(b)
	if derr != nil {
		var mf *MissingFieldError
		if errors.As(derr, &mf) {
			return nil, derr
		}
		bm, berr := openFromLatestBackup(root, filepath.Base(ph.MetadataPath))
		if berr != nil {
			return nil, fmt.Errorf("parse metadata: %w; backup attempt: %v", derr, berr)
		}
		applog.WithComponent("storage").Warn("metadata unreadable, using latest backup",
			slog.String("path", ph.MetadataPath), slog.Any("err", derr))
		meta = *bm
	}
	ph.Metadata = meta
	return ph, nil
}

// Load reads and parses the script and assembles the screenplay.
// Per-line parse problems are returned alongside; they never abort the load.
func (ph *ProjectHandle) Load(opts markup.Options) (*screenplay.Screenplay, []markup.Error, error) {
	if ph == nil {
		return nil, nil, errors.New("nil ProjectHandle")
	}
	lines, err := ReadScriptLines(ph.ScriptPath)
	if err != nil {
		return nil, nil, err
	}
	ctx := applog.ContextWithSource(context.Background(), applog.Source{Project: ph.Root, File: filepath.Base(ph.ScriptPath)})
	scenes, perrs := markup.ParseContext(ctx, lines, opts)
	sp, err := screenplay.Assemble(ph.Metadata, scenes)
	if err != nil {
		return nil, perrs, err
	}
	return sp, perrs, nil
}

// ReadScriptText returns the raw script file contents.
func (ph *ProjectHandle) ReadScriptText() (string, error) {
	b, err := os.ReadFile(ph.ScriptPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, ph.ScriptPath)
	}
	return string(b), nil
}

// ReadScriptLines reads a UTF-8 script file as lines without their line terminators.
func ReadScriptLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	defer func() { _ = f.Close() }()
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxScriptLineBytes)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return lines, nil
}

// SaveMetadata writes ph.Metadata to disk with transactional semantics
// and a timestamped backup of the previous file (if present).
func SaveMetadata(ph *ProjectHandle) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if ph.Root == "" || ph.MetadataPath == "" {
		return errors.New("invalid ProjectHandle: missing paths")
	}
	data, err := EncodeMetadata(ph.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	name := filepath.Base(ph.MetadataPath)

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.MetadataPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", name, stamp))
		if cerr := copyFile(ph.MetadataPath, bpath); cerr != nil {
			return fmt.Errorf("backup current metadata: %w", cerr)
		}
	}

	// temp file in the same directory, then rename over target
	dir := filepath.Dir(ph.MetadataPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", name, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp metadata: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(ph.MetadataPath); err == nil {
		_ = os.Remove(ph.MetadataPath)
	}
	if rerr := os.Rename(temp, ph.MetadataPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace metadata: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup decodes the newest timestamped backup of the named metadata file.
func openFromLatestBackup(root, name string) (*screenplay.Metadata, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		n := e.Name()
		if strings.HasPrefix(n, name+".") && strings.HasSuffix(n, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, n))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	m, err := DecodeMetadata(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &m, nil
}

// AutosaveCrashSnapshot copies the script file into the backups folder as
// <script>.crash-<stamp>.bak and returns the path written.
func AutosaveCrashSnapshot(ph *ProjectHandle) (string, error) {
	if ph == nil || ph.Root == "" || ph.ScriptPath == "" {
		return "", errors.New("invalid ProjectHandle: missing paths")
	}
	stamp := time.Now().Format("20060102-150405")
	dst := filepath.Join(ph.Root, BackupsDirName, fmt.Sprintf("%s.crash-%s.bak", filepath.Base(ph.ScriptPath), stamp))
	if err := copyFile(ph.ScriptPath, dst); err != nil {
		return "", fmt.Errorf("crash snapshot: %w", err)
	}
	return dst, nil
}
