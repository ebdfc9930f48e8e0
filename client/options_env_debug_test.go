package client

import (
	"context"
	"net/http"
	"testing"
)

func TestNew_AutoEnableDebugViaEnv(t *testing.T) {
	t.Setenv("ACTIVITY_DEBUG", "true")
	c := New("http://example.com", "k")
	akt, ok := c.http.Transport.(*apiKeyTransport)
	if !ok {
		t.Fatalf("expected apiKeyTransport on top")
	}
	if _, ok := akt.base.(*debugTransport); !ok {
		t.Fatalf("expected debugTransport to be installed when ACTIVITY_DEBUG=true")
	}
}

func TestDebugTransport_ErrorPath(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	c := New("http://example.com", "k", WithHTTPClient(&http.Client{Transport: rt}), WithDebugLogging(true))
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com", http.NoBody)
	if _, err := c.http.Do(req); err == nil {
		t.Fatalf("expected error from underlying transport")
	}
}
