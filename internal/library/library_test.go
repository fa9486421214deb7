/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTokenSignAndVerify(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	tok, err := signToken("secret", "alice", exp)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := verifyToken("secret", tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("subject = %q; want alice", sub)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	tok, _ := signToken("secret", "alice", time.Now().Add(time.Hour))
	if _, err := verifyToken("other-secret", tok); err == nil {
		t.Fatal("token verified with wrong secret")
	}
	if _, err := verifyToken("secret", tok+"x"); err == nil {
		t.Fatal("tampered token verified")
	}
	if _, err := verifyToken("secret", "no-dot-here"); err == nil {
		t.Fatal("malformed token verified")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	tok, _ := signToken("secret", "alice", time.Now().Add(-time.Minute))
	if _, err := verifyToken("secret", tok); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestAuthEndpointAndMiddleware(t *testing.T) {
	// The token and health endpoints never touch the database, so a nil DB
	// is fine for exercising auth.
	srv := httptest.NewServer(NewHandler(nil, "test-secret"))
	defer srv.Close()

	c := NewClient(srv.URL, "", 2*time.Second)
	tok, err := c.Authenticate(context.Background(), "tester")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if tok == "" || c.Token != tok {
		t.Fatalf("token = %q; want installed on client", tok)
	}
	if sub, err := verifyToken("test-secret", tok); err != nil || sub != "tester" {
		t.Fatalf("issued token invalid: %v (sub %q)", err, sub)
	}

	// Listing without a token is rejected before any DB access.
	resp, err := http.Get(srv.URL + "/api/documents")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewHandler(nil, "s"))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}
}

func TestClientErrorsIncludeServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnprocessableEntity, errString("not a label document"))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "tok", time.Second)
	_, err := c.Push(context.Background(), "x", []byte(`{}`))
	if err == nil || !strings.Contains(err.Error(), "not a label document") {
		t.Fatalf("err = %v; want server message surfaced", err)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
