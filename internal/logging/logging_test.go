package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestEnsureRequestIDGeneratesUUID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a UUID: %v", id, err)
	}
	if got := RequestIDFromContext(ctx); got != id {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, id)
	}

	_, again := EnsureRequestID(ctx)
	if again != id {
		t.Fatalf("EnsureRequestID replaced an existing id: %q -> %q", id, again)
	}
}

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	ctx, reqLog := WithRequestLogger(context.Background(), log)
	reqLog.Debug(ctx, "sampled trajectory",
		Int("points", 100),
		Float("orbit_fraction", 0.5),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "sampled trajectory" {
		t.Fatalf("msg = %v", rec["msg"])
	}
	if rec["points"] != float64(100) || rec["orbit_fraction"] != 0.5 || rec["error"] != "boom" {
		t.Fatalf("unexpected fields: %v", rec)
	}
	if rec["request_id"] != RequestIDFromContext(ctx) {
		t.Fatalf("request_id = %v, want %v", rec["request_id"], RequestIDFromContext(ctx))
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Fatalf("warn should be written at warn level")
	}
}

func TestLoggerFromContext(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on bare context")
	}
	ctx := ContextWithLogger(context.Background(), nil)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("ContextWithLogger(nil) should store a noop logger")
	}
}
