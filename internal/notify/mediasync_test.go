package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cdaprod/captioner/internal/notify"
)

func TestMediaSyncPostsPayload(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := notify.NewMediaSync(server.URL+"/", time.Second, zap.NewNop())
	n.CaptionsReady(context.Background(), "ProjectA", notify.ImportPayload{
		SHA256:     "abc",
		SRTRelPath: "captions/demo__abc.srt",
	})

	if gotPath != "/api/projects/ProjectA/resolve/jobs/import-captions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["sha256"] != "abc" || gotBody["srt_rel_path"] != "captions/demo__abc.srt" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	for _, key := range []string{"timeline", "subtitle_track"} {
		value, ok := gotBody[key]
		if !ok || value != nil {
			t.Fatalf("expected %s to be present and null, got %v (present=%v)", key, value, ok)
		}
	}
}

func TestMediaSyncLogsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "resolve offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	n := notify.NewMediaSync(server.URL, time.Second, zap.New(core))
	n.CaptionsReady(context.Background(), "ProjectA", notify.ImportPayload{SHA256: "abc"})

	entries := logs.FilterMessage("media-sync handoff failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if errText, _ := entries[0].ContextMap()["error"].(string); errText == "" {
		t.Fatalf("expected error field in log entry: %v", entries[0].ContextMap())
	}
}

func TestMediaSyncSwallowsTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	n := notify.NewMediaSync(addr, 100*time.Millisecond, zap.New(core))
	n.CaptionsReady(context.Background(), "ProjectA", notify.ImportPayload{SHA256: "abc"})

	if logs.Len() != 1 {
		t.Fatalf("expected failure to be logged once, got %d entries", logs.Len())
	}
}

func TestMediaSyncDisabledWithoutBaseURL(t *testing.T) {
	n := notify.NewMediaSync("   ", time.Second, nil)
	// must not panic or block
	n.CaptionsReady(context.Background(), "ProjectA", notify.ImportPayload{})
}
