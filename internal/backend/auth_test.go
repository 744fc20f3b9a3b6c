/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyToken(t *testing.T) {
	tok, err := signToken("s3cret", "writer", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	sub, err := verifyToken("s3cret", tok)
	if err != nil || sub != "writer" {
		t.Fatalf("verifyToken = %q, %v", sub, err)
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	good, _ := signToken("s3cret", "writer", time.Now().Add(time.Hour))
	expired, _ := signToken("s3cret", "writer", time.Now().Add(-time.Minute))

	if _, err := verifyToken("other", good); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("wrong secret: %v", err)
	}
	if _, err := verifyToken("s3cret", expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired: %v", err)
	}
	if _, err := verifyToken("s3cret", "no-dot"); !errors.Is(err, ErrTokenFormat) {
		t.Fatalf("format: %v", err)
	}
	parts := strings.Split(good, ".")
	if _, err := verifyToken("s3cret", parts[0]+"x."+parts[1]); err == nil {
		t.Fatalf("tampered payload accepted")
	}
}

func TestVerifyTokenDefaultsSubject(t *testing.T) {
	tok, _ := signToken("k", "", time.Now().Add(time.Hour))
	sub, err := verifyToken("k", tok)
	if err != nil || sub != "dev" {
		t.Fatalf("verifyToken = %q, %v", sub, err)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("migrations/0002_publish_log.sql")
	if err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error for name without version")
	}
}
