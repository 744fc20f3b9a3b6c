/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"goscreenwriter/internal/backend"
	"goscreenwriter/internal/config"
)

const script = `\scene{INT}{Kitchen}{NIGHT}
\summary{Anna finds the letter.}
Anna enters. <lights low>
\dialog{Anna}{Who is there?}[whispering]
\dialog{Anna}{Hello?}
\dialog{Ben}{Only me.}
\transition{cut to}
\scene{EXT}{Garden}{DAY}
\dialog{Ben}{Morning.}
\end
`

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv("GSW_LOG_LEVEL", "error")
	t.Setenv("GSW_TELEMETRY_OPT_IN", "")
	t.Setenv(config.EnvBackendURL, "")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "letter")
	_, _, err := run(t, "init", dir, "--title", "The Letter", "--author", "Jane Roe", "--director", "John Doe", "--production", "Acme")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "screenplay.txt"), []byte(script), 0o644))
	return dir
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "screenwriter ")
}

func TestInitRequiresAuthor(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "init", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func TestRenderWritesPDFAndSnapshot(t *testing.T) {
	isolate(t)
	dir := newProject(t)

	out, _, err := run(t, "render", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered 2 scene(s)")
	b, err := os.ReadFile(filepath.Join(dir, "render.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))

	out, _, err = run(t, "snapshots", dir, "--latest")
	require.NoError(t, err)
	assert.Equal(t, script, out)
}

func TestRenderJSONToStdout(t *testing.T) {
	isolate(t)
	dir := newProject(t)
	out, _, err := run(t, "render", dir, "--json", "-o", "-", "--no-snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "The Letter"`)
	assert.Contains(t, out, `"continued": true`)
}

func TestCheckReportsProblems(t *testing.T) {
	isolate(t)
	dir := newProject(t)
	out, _, err := run(t, "check", dir)
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")

	bad := "\\scene{INT}{Hall}{DAY}\n\\dialog{Anna}\n\\end\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "screenplay.txt"), []byte(bad), 0o644))
	out, _, err = run(t, "check", dir)
	assert.True(t, errors.Is(err, errProblems))
	assert.Contains(t, out, "screenplay.txt:2:")
	assert.Contains(t, out, "1 problem(s)")
}

func TestCheckMissingMetadataField(t *testing.T) {
	isolate(t)
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(`{"name":"x","authors":"a","director":"d","production":"p"}`), 0o644))
	_, _, err := run(t, "check", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creation-date")
}

func TestOutlineSearchAndCharacters(t *testing.T) {
	isolate(t)
	dir := newProject(t)

	out, _, err := run(t, "outline", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "INT. Kitchen. NIGHT")
	assert.Contains(t, out, "2 scenes")

	out, _, err = run(t, "search", dir, "morning")
	require.NoError(t, err)
	assert.Contains(t, out, "scene:2/dialog:0")

	out, _, err = run(t, "search", dir, "--character", "anna")
	require.NoError(t, err)
	assert.Contains(t, out, "scene:1/dialog:1")
	assert.Contains(t, out, "scene:1/dialog:2")

	out, _, err = run(t, "characters", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ANNA")
	assert.Contains(t, out, "BEN")
}

func TestExportDataPreset(t *testing.T) {
	isolate(t)
	dir := newProject(t)
	out, _, err := run(t, "export", dir, "--preset", "data")
	require.NoError(t, err)
	want := filepath.Join(dir, "exports", "data", "the-letter.json")
	assert.Contains(t, out, want)
	_, err = os.Stat(want)
	assert.NoError(t, err)
}

func TestRemoteNeedsBaseURL(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "remote", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvBackendURL)
}

func TestRemoteLoginStoresToken(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(backend.NewServer(nil, "k").Handler())
	defer srv.Close()
	t.Setenv(config.EnvBackendURL, srv.URL)

	out, _, err := run(t, "remote", "login", "--as", "writer")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as writer")
	tok, err := config.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	_, _, err = run(t, "remote", "logout")
	require.NoError(t, err)
	_, err = config.Token()
	assert.ErrorIs(t, err, config.ErrTokenNotFound)
}

func TestPackUnpack(t *testing.T) {
	isolate(t)
	dir := newProject(t)
	zipPath := filepath.Join(t.TempDir(), "letter.zip")
	out, _, err := run(t, "pack", dir, zipPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Packed 2 file(s)")

	dest := filepath.Join(t.TempDir(), "copy")
	out, _, err = run(t, "unpack", zipPath, dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Unpacked 2 file(s)")
	b, err := os.ReadFile(filepath.Join(dest, "screenplay.txt"))
	require.NoError(t, err)
	assert.Equal(t, script, string(b))
}
