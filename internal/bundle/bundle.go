/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle moves a screenplay project between machines as a single zip file.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/version"
)

// ManifestName is the informational text entry at the root of every bundle.
const ManifestName = "bundle.manifest.txt"

// ErrUnsafePath is returned for archive entries that would land outside the target directory.
var ErrUnsafePath = errors.New("unsafe path in bundle")

// Pack zips the project's script and metadata, plus any files under backups/ when
// withBackups is set. Entries use forward slashes relative to the project root.
func Pack(ph *storage.ProjectHandle, destZip string, withBackups bool) (int, error) {
	if ph == nil || strings.TrimSpace(ph.Root) == "" {
		return 0, errors.New("project handle is required")
	}
	if strings.TrimSpace(destZip) == "" {
		return 0, errors.New("destination path is required")
	}
	l := applog.WithOperation(applog.WithComponent("bundle"), "pack").With(slog.String("project", ph.Root))

	files := []string{ph.ScriptPath, ph.MetadataPath}
	if withBackups {
		bdir := filepath.Join(ph.Root, storage.BackupsDirName)
		_ = filepath.WalkDir(bdir, func(p string, d os.DirEntry, err error) error {
			if err == nil && !d.IsDir() {
				files = append(files, p)
			}
			return nil
		})
	}

	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("GoScreenwriter Bundle\nCreated: %s\nVersion: %s\nTitle: %s\nScript: %s\nMetadata: %s\n",
		time.Now().Format(time.RFC3339), version.String(), ph.Metadata.Title,
		filepath.Base(ph.ScriptPath), filepath.Base(ph.MetadataPath))
	w, err := zw.Create(ManifestName)
	if err == nil {
		_, err = io.WriteString(w, manifest)
	}
	if err != nil {
		_ = zw.Close()
		_ = zf.Close()
		return 0, fmt.Errorf("write manifest: %w", err)
	}

	added := 0
	for _, p := range files {
		rel, err := filepath.Rel(ph.Root, p)
		if err != nil {
			continue
		}
		if err := addFile(zw, p, filepath.ToSlash(rel)); err != nil {
			_ = zw.Close()
			_ = zf.Close()
			l.Error("zip build failed", slog.Any("err", err))
			return added, fmt.Errorf("add %s: %w", rel, err)
		}
		added++
	}
	if err := zw.Close(); err != nil {
		_ = zf.Close()
		return added, fmt.Errorf("finish zip: %w", err)
	}
	if err := zf.Close(); err != nil {
		return added, err
	}
	l.Info("project packed", slog.Int("files", added), slog.String("zip", destZip))
	return added, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

// Unpack extracts a bundle into root. Existing files are kept unless overwrite is set;
// the returned count excludes skipped files. The manifest entry is not extracted.
func Unpack(zipPath, root string, overwrite bool) (int, error) {
	if strings.TrimSpace(root) == "" {
		return 0, errors.New("target directory is required")
	}
	l := applog.WithOperation(applog.WithComponent("bundle"), "unpack").With(slog.String("project", root))
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, err
	}

	installed := 0
	for _, f := range r.File {
		if f.Name == ManifestName {
			continue
		}
		target, err := safeJoin(root, f.Name)
		if err != nil {
			return installed, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return installed, err
			}
			continue
		}
		if _, err := os.Stat(target); err == nil && !overwrite {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		installed++
	}
	l.Info("project unpacked", slog.Int("files", installed))
	return installed, nil
}

func safeJoin(root, name string) (string, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	if n == "" || path.IsAbs(n) || filepath.IsAbs(name) || n == ".." || strings.HasPrefix(n, "../") ||
		strings.Contains(n, "/../") || strings.HasSuffix(n, "/..") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(root, filepath.FromSlash(path.Clean(n))), nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
