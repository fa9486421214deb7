/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends anonymous, strictly opt-in usage events and crash
// reports. With no endpoint configured every call is a no-op.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "labelcomposer/internal/log"
	"labelcomposer/internal/version"
)

// Config controls the event and crash upload endpoints. Telemetry is off
// unless OptIn is set and an URL is present.
//
// FromEnv reads:
//
//	PLC_TELEMETRY_OPT_IN      "1"/"true"/"yes"/"on" enables metrics
//	PLC_TELEMETRY_URL         endpoint for JSON events
//	PLC_CRASH_UPLOAD_URL      endpoint for plain-text crash reports
//	PLC_TELEMETRY_TIMEOUT_MS  request timeout, default 1500
//	PLC_TELEMETRY_DEBUG       log send attempts when set
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        isOn(os.Getenv("PLC_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("PLC_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("PLC_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("PLC_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("PLC_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if d, err := time.ParseDuration(ms + "ms"); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	return cfg
}

func isOn(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// event is the wire shape posted to the events endpoint.
type event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client queues events on a bounded channel and posts them from a single
// background goroutine. A full queue drops; editing flow never blocks.
type Client struct {
	cfg    Config
	log    *slog.Logger
	httpc  *http.Client
	queue  chan event
	stop   chan struct{}
	once   sync.Once
	crashW sync.WaitGroup
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:   cfg,
		log:   applog.WithComponent("telemetry"),
		httpc: &http.Client{Timeout: cfg.Timeout},
		queue: make(chan event, 64),
		stop:  make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports whether events would actually be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event enqueues a named event with optional non-PII properties.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   props,
	}
	select {
	case c.queue <- ev:
	default:
	}
}

// Flush waits up to half a second for queued events to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.queue) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// UploadCrash posts a serialized crash report, asynchronously, when opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	body := append([]byte(nil), report...)
	c.crashW.Add(1)
	go func() {
		defer c.crashW.Done()
		c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", body, "crash report")
	}()
}

// Close stops the sender goroutine. Queued events are abandoned.
func (c *Client) Close() { c.once.Do(func() { close(c.stop) }) }

func (c *Client) run() {
	for {
		select {
		case <-c.stop:
			return
		case ev := <-c.queue:
			buf, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			c.post(c.cfg.EventsURL, "application/json", buf, "event "+ev.Name)
		}
	}
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.httpc.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry post failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry posted", slog.String("what", what))
	}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault lazily builds the package-level client from the environment.
func InitDefault() {
	defaultOnce.Do(func() { defaultClient = New(FromEnv()) })
}

// NewDefault installs a client with cfg as the package-level default.
func NewDefault(cfg Config) { defaultClient = New(cfg) }

// Enabled reports whether the default client would send events.
func Enabled() bool { InitDefault(); return defaultClient.Enabled() }

// Event enqueues an event on the default client.
func Event(name string, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// UploadCrash posts a crash report through the default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }
