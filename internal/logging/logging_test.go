package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSlogJSONIncludesRunIDAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})
	ctx := ContextWithRunID(context.Background(), "run-1")

	log.With(String("component", "solver")).Info(ctx, "iteration complete", Int("iteration", 2), Float("update_norm", 0.5))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	for key, want := range map[string]any{
		"msg":         "iteration complete",
		"run_id":      "run-1",
		"component":   "solver",
		"iteration":   float64(2),
		"update_norm": 0.5,
	} {
		if rec[key] != want {
			t.Fatalf("%s = %v, want %v", key, rec[key], want)
		}
	}
}

func TestZapJSONIncludesRunIDAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Backend: "zap", Output: &buf})
	ctx := ContextWithRunID(context.Background(), "run-2")

	log.Debug(ctx, "dropped")
	log.Warn(ctx, "solver did not converge", Int("iterations", 10))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", lines[0], err)
	}
	if rec["msg"] != "solver did not converge" || rec["run_id"] != "run-2" || rec["iterations"] != float64(10) {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["level"] != "warn" {
		t.Fatalf("level = %v, want warn", rec["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "error", Output: &buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at error level: %q", buf.String())
	}
	log.Error(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("error not logged: %q", buf.String())
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", id, err)
	}
	again, same := EnsureRunID(ctx)
	if same != id || RunIDFromContext(again) != id {
		t.Fatalf("EnsureRunID replaced existing id %q with %q", id, same)
	}
}

func TestWithRunLoggerStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	ctx, log := WithRunLogger(context.Background(), base)
	if log != base {
		t.Fatalf("WithRunLogger returned a different logger")
	}
	if FromContext(ctx) != base {
		t.Fatalf("FromContext did not return the stored logger")
	}
	if _, ok := FromContext(context.Background()).(noopLogger); !ok {
		t.Fatalf("FromContext on empty context should be a no-op logger")
	}
	FromContext(ctx).Info(ctx, "hello")
	if !strings.Contains(buf.String(), "run_id="+RunIDFromContext(ctx)) {
		t.Fatalf("text output missing run_id: %q", buf.String())
	}
}
