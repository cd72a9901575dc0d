package sheet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastFetcher(maxRetries int, maxBytes int64) *Fetcher {
	return NewFetcher(FetchConfig{
		Timeout:        5 * time.Second,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		MaxBytes:       maxBytes,
	})
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	data, err := fastFetcher(2, 0).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fastFetcher(2, 0).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3 (initial + 2 retries)", calls.Load())
	}
}

func TestFetchNonRetryableStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := fastFetcher(3, 0).Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestFetchSizeCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	_, err := fastFetcher(0, 1024).Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v", err)
	}
}

func TestFetchWorkbook(t *testing.T) {
	t.Parallel()

	buf := buildWorkbook(t, map[string][][]any{
		"produtos": {
			{"id_produto", "nome_produto"},
			{"P1", "Caneta"},
		},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	wb, err := fastFetcher(0, 0).FetchWorkbook(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	raws, err := wb.Read(context.Background(), "produtos")
	if err != nil {
		t.Fatal(err)
	}
	if len(raws) != 1 || raws[0].Fields["nome_produto"] != "Caneta" {
		t.Fatalf("raws = %+v", raws)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := backoffDuration(100*time.Millisecond, tt.attempt, time.Second); got != tt.want {
			t.Fatalf("backoffDuration(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
