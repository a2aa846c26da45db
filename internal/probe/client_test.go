package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"
)

// TestClient_ConnectionReuse verifies that sequential probes of one host
// reuse pooled connections.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient()

	var reused int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reused++
			}
		},
	}

	const n = 5
	for i := 0; i < n; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Do(ctx, Request{URL: server.URL, Timeout: 5 * time.Second})
		if resp.Err != nil {
			t.Fatalf("request %d failed: %v", i, resp.Err)
		}
	}

	if reused < n-2 {
		t.Errorf("expected at least %d reused connections, got %d", n-2, reused)
	}
}

func TestClient_Do_MethodAndHeaders(t *testing.T) {
	var gotMethod, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Probe")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"state":"playing"}`))
	}))
	defer server.Close()

	client := NewClient()
	defer client.Close()

	resp := client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     server.URL,
		Headers: map[string]string{"X-Probe": "yes"},
	})

	if resp.Err != nil {
		t.Fatalf("Do() error = %v", resp.Err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want %q", gotMethod, http.MethodPost)
	}
	if gotHeader != "yes" {
		t.Errorf("X-Probe header = %q, want %q", gotHeader, "yes")
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if string(resp.Body) != `{"state":"playing"}` {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestClient_Do_DefaultsToGET(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{URL: server.URL})
	if resp.Err != nil {
		t.Fatalf("Do() error = %v", resp.Err)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	resp := NewClient().Do(context.Background(), Request{URL: server.URL, Timeout: 50 * time.Millisecond})
	if resp.Err == nil {
		t.Fatal("Do() expected timeout error, got nil")
	}
	if !strings.Contains(resp.Err.Error(), "request failed") {
		t.Errorf("Err = %v, want 'request failed'", resp.Err)
	}
	if resp.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", resp.StatusCode)
	}
}

func TestClient_Do_InvalidURL(t *testing.T) {
	resp := NewClient().Do(context.Background(), Request{URL: "://bad"})
	if resp.Err == nil || !strings.Contains(resp.Err.Error(), "failed to create request") {
		t.Errorf("Err = %v, want 'failed to create request'", resp.Err)
	}
}

func TestClient_Close(t *testing.T) {
	var nilClient *Client
	nilClient.Close()

	client := NewClient()
	client.Close()
	client.Close()
}
