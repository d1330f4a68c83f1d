package logging

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"
)

// RemoteConfig describes where and how to ship remote log lines, matching
// the global config's remote_logging block (§6).
type RemoteConfig struct {
	Target  string            `json:"target" yaml:"target" toml:"target"`
	Method  string            `json:"method" yaml:"method" toml:"method"`
	Headers map[string]string `json:"headers" yaml:"headers" toml:"headers"`
	Enabled bool              `json:"enabled" yaml:"enabled" toml:"enabled"`
	Verify  bool              `json:"verify" yaml:"verify" toml:"verify"`
}

// remotePayload is the wire shape of one shipped log line.
type remotePayload struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
}

// RemoteEmitter ships every event as an HTTP request to a configured
// target, fire-and-forget per §5's suspension-point (e): the call happens
// on its own goroutine and a failure is only ever logged locally, never
// propagated into the run.
type RemoteEmitter struct {
	cfg      RemoteConfig
	client   *http.Client
	fallback Emitter
}

// NewRemoteEmitter returns a RemoteEmitter. Delivery failures are written
// to fallback (typically a LogEmitter on stderr) rather than surfaced.
func NewRemoteEmitter(cfg RemoteConfig, fallback Emitter) *RemoteEmitter {
	if fallback == nil {
		fallback = NullEmitter{}
	}
	client := &http.Client{Timeout: 10 * time.Second}
	if !cfg.Verify {
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // operator opt-in via config
	}
	return &RemoteEmitter{
		cfg:      cfg,
		client:   client,
		fallback: fallback,
	}
}

func (r *RemoteEmitter) Emit(event Event) {
	if !r.cfg.Enabled {
		return
	}
	go r.ship(event)
}

func (r *RemoteEmitter) ship(event Event) {
	payload := remotePayload{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   event.Msg,
		Context: map[string]any{
			"run_id":   event.RunID,
			"sequence": event.Sequence,
			"node_id":  event.NodeID,
			"meta":     event.Meta,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		r.fallback.Emit(Event{Msg: "remote_log_marshal_failed", Meta: map[string]any{"error": err.Error()}})
		return
	}

	method := r.cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequest(method, r.cfg.Target, bytes.NewReader(body))
	if err != nil {
		r.fallback.Emit(Event{Msg: "remote_log_request_failed", Meta: map[string]any{"error": err.Error()}})
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.fallback.Emit(Event{Msg: "remote_log_delivery_failed", Meta: map[string]any{"error": err.Error()}})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		r.fallback.Emit(Event{Msg: "remote_log_rejected", Meta: map[string]any{"status": resp.StatusCode}})
	}
}

func (r *RemoteEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		r.Emit(e)
	}
	return nil
}

// Flush is a no-op: deliveries are already fire-and-forget goroutines with
// no buffer to drain.
func (r *RemoteEmitter) Flush(context.Context) error { return nil }
