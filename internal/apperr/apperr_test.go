package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassification(t *testing.T) {
	cause := errors.New("exit status 1")
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", Validation("bad path %q", "../x"), http.StatusBadRequest, "ERR_VALIDATION"},
		{"extraction", Wrap(ErrExtraction, "extract", "ffmpeg failed", cause), http.StatusBadRequest, "ERR_EXTRACTION"},
		{"not found", NotFound("captions not found"), http.StatusNotFound, "ERR_NOT_FOUND"},
		{"upstream", Wrap(ErrUpstream, "fetch", "srt fetch failed", cause), http.StatusBadGateway, "ERR_UPSTREAM"},
		{"nil marker", Wrap(nil, "transcribe", "", cause), http.StatusBadGateway, "ERR_UPSTREAM"},
		{"configuration", Wrap(ErrConfiguration, "config", "unknown mode", nil), http.StatusInternalServerError, "ERR_CONFIGURATION"},
		{"plain", errors.New("disk full"), http.StatusInternalServerError, "ERR_INTERNAL"},
		{"wrapped", fmt.Errorf("resolve: %w", NotFound("project missing")), http.StatusNotFound, "ERR_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.status {
				t.Errorf("status = %d, want %d", got, tc.status)
			}
			if got := Code(tc.err); got != tc.code {
				t.Errorf("code = %s, want %s", got, tc.code)
			}
		})
	}
	if HTTPStatus(nil) != http.StatusOK {
		t.Fatal("nil error should map to 200")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrUpstream, "fetch", "srt fetch failed", cause)
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, cause) {
		t.Fatalf("expected marker and cause in chain: %v", err)
	}
	if err.Error() != "fetch: srt fetch failed: connection refused" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestMessage(t *testing.T) {
	cause := errors.New("status 503")
	if got := Message(Wrap(ErrUpstream, "fetch", "srt fetch failed", cause)); got != "srt fetch failed: status 503" {
		t.Fatalf("upstream message = %q", got)
	}
	if got := Message(Wrap(ErrValidation, "parse", "bad timestamp", cause)); got != "bad timestamp" {
		t.Fatalf("validation message = %q", got)
	}
	if got := Message(Wrap(ErrUpstream, "fetch", "", cause)); got != "fetch: status 503" {
		t.Fatalf("empty message = %q", got)
	}
	if got := Message(errors.New("boom")); got != "boom" {
		t.Fatalf("plain message = %q", got)
	}
	if Message(nil) != "" {
		t.Fatal("nil message should be empty")
	}
}
