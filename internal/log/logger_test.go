/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

type captureWriter struct{ b strings.Builder }

func (c *captureWriter) Write(p []byte) (int, error) { return c.b.Write(p) }

func TestLineHandlerFormatsAttrs(t *testing.T) {
	w := &captureWriter{}
	h := &lineHandler{level: slog.LevelDebug, w: w}
	l := slog.New(h).With(slog.String("component", "test"))
	l.Info("hello", slog.Int("n", 3), slog.Bool("ok", true))
	out := w.b.String()
	for _, want := range []string{"INF", "hello", "component=test", "n=3", "ok=true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestLineHandlerHonorsLevel(t *testing.T) {
	h := &lineHandler{level: slog.LevelWarn, w: &captureWriter{}}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestLineHandlerGroups(t *testing.T) {
	w := &captureWriter{}
	h := &lineHandler{level: slog.LevelDebug, w: w}
	l := slog.New(h).WithGroup("doc")
	l.Info("saved", slog.String("id", "a1"))
	if !strings.Contains(w.b.String(), "doc.id=a1") {
		t.Fatalf("group prefix missing: %q", w.b.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitSetsDefaultLogger(t *testing.T) {
	Init(Options{Level: "debug", Format: "console"})
	if L() == nil {
		t.Fatalf("default logger not set")
	}
	if WithComponent("x") == nil {
		t.Fatalf("WithComponent returned nil")
	}
}
