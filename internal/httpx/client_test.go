package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	clierr "github.com/ggonzalez94/clob-bridge/internal/errors"
)

func TestDoJSONRetriesServerError(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"x"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	var out map[string]any
	if _, err := client.DoJSON(context.Background(), req, &out); err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected response: %#v", out)
	}
}

func TestDoJSONIncludesExchangeErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"not enough balance / allowance"}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 0)
	_, err := DoBodyJSON(context.Background(), client, http.MethodPost, srv.URL+"/order", []byte(`{}`), nil, nil)
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if clierr.ExitCode(err) != int(clierr.CodeRejected) {
		t.Fatalf("expected rejected code, got %d", clierr.ExitCode(err))
	}
	if !strings.Contains(err.Error(), "not enough balance / allowance") {
		t.Fatalf("expected exchange message in error, got %s", err)
	}
}

func TestDoJSONMapsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized/Invalid api key"}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 0)
	_, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &map[string]any{})
	if clierr.ExitCode(err) != int(clierr.CodeAuth) {
		t.Fatalf("expected auth code, got %v", err)
	}
}

func TestDoBodyJSONSendsHeaders(t *testing.T) {
	var gotKey, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("POLY_API_KEY")
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 0)
	var out map[string]any
	if _, err := DoBodyJSON(context.Background(), client, http.MethodPost, srv.URL, []byte(`{"a":1}`), map[string]string{"POLY_API_KEY": "k"}, &out); err != nil {
		t.Fatalf("DoBodyJSON failed: %v", err)
	}
	if gotKey != "k" || gotContentType != "application/json" {
		t.Fatalf("unexpected headers key=%q content-type=%q", gotKey, gotContentType)
	}
}

func TestErrorDetailTruncatesRawBody(t *testing.T) {
	body := []byte(strings.Repeat("x", maxErrorBodyLen+10))
	got := errorDetail(body)
	if len(got) != maxErrorBodyLen+3 {
		t.Fatalf("expected truncated detail, got len %d", len(got))
	}
}

func TestErrorDetailTruncatesOnRuneBoundary(t *testing.T) {
	body := []byte("x" + strings.Repeat("é", maxErrorBodyLen))
	got := errorDetail(body)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated detail is not valid UTF-8: %q", got)
	}
	if len(got) != maxErrorBodyLen-1+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected cut before the split rune, got len %d", len(got))
	}
}
