package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_PostDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}

		var in struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"echo": in.Method})
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(WithProviderName("test"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	var out struct {
		Echo string `json:"echo"`
	}
	resp, err := c.NewRequest().
		SetBody(map[string]string{"method": "eth_chainId"}).
		SetResult(&out).
		Post(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}

	if !resp.IsSuccess() {
		t.Errorf("expected success, got status %d", resp.StatusCode)
	}
	if out.Echo != "eth_chainId" {
		t.Errorf("expected echoed method, got %q", out.Echo)
	}
}

func TestClient_ErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(WithProviderName("test"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	resp, err := c.NewRequest().Post(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected no transport error, got %v", err)
	}
	if !resp.IsError() {
		t.Error("expected IsError for a 429")
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
}

func TestClient_RequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithRequestTimeout(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := c.NewRequest().Get(context.Background(), srv.URL); err == nil {
		t.Error("expected a timeout error")
	}
}
