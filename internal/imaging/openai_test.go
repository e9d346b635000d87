package imaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestImageClient(serverURL string) *ImageClient {
	return NewImageClientWithConfig(ImageClientConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "gpt-image-1",
		Size:    "1024x1024",
		Timeout: 5 * time.Second,
	})
}

func TestGenerateReturnsDecodedPNG(t *testing.T) {
	var gotReq ImageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprintf(w, `{"data":[{"b64_json":%q}]}`,
			base64.StdEncoding.EncodeToString([]byte("raw-png")))
	}))
	defer server.Close()

	raw, err := newTestImageClient(server.URL).Generate(context.Background(), "an abstract image")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if string(raw) != "raw-png" {
		t.Errorf("Generate() = %q", raw)
	}
	if gotReq.Model != "gpt-image-1" || gotReq.Size != "1024x1024" || gotReq.N != 1 {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Prompt != "an abstract image" {
		t.Errorf("prompt = %q", gotReq.Prompt)
	}
}

func TestGenerateRetriesRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, `{"data":[{"b64_json":%q}]}`,
			base64.StdEncoding.EncodeToString([]byte("png")))
	}))
	defer server.Close()

	raw, err := newTestImageClient(server.URL).Generate(context.Background(), "desc")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if string(raw) != "png" {
		t.Errorf("Generate() = %q", raw)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}

func TestGenerateFailsOnServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"invalid prompt"}}`)
	}))
	defer server.Close()

	_, err := newTestImageClient(server.URL).Generate(context.Background(), "desc")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error = %v", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry on client error)", calls)
	}
}

func TestGenerateRejectsEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	_, err := newTestImageClient(server.URL).Generate(context.Background(), "desc")
	if err == nil || !strings.Contains(err.Error(), "no image data") {
		t.Errorf("error = %v, want no image data", err)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	c := NewImageClientWithConfig(ImageClientConfig{BaseURL: "http://unused"})

	_, err := c.Generate(context.Background(), "desc")
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("error = %v, want missing API key", err)
	}
}
