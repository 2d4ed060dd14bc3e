package moltin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/moltin/transfer-flow-data/pkg/metrics"
)

type testPlatform struct {
	t          *testing.T
	tokenCalls atomic.Int32
	handler    http.HandlerFunc
}

func (p *testPlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/oauth/access_token" {
		p.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			p.t.Errorf("parse token form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") != "id" ||
			r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
		return
	}

	if got := r.Header.Get("Authorization"); got != "Bearer tok" {
		p.t.Errorf("authorization header = %q", got)
	}
	p.handler(w, r)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *testPlatform) {
	t.Helper()

	platform := &testPlatform{t: t, handler: handler}
	srv := httptest.NewServer(platform)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	client, err := New(context.Background(), Config{
		BaseURL:      srv.URL,
		APIVersion:   "v2",
		ClientID:     "id",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, platform
}

func TestClientGetDecodesData(t *testing.T) {
	client, platform := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v2/orders/o-1/items" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"data":[{"id":"a"},{"id":"b"}]}`)
	})

	var items []struct {
		ID string `json:"id"`
	}
	for range 2 {
		resp, err := client.Get(context.Background(), "orders/o-1/items", &items)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	}
	if len(items) != 2 || items[1].ID != "b" {
		t.Errorf("items = %+v", items)
	}
	if got := platform.tokenCalls.Load(); got != 1 {
		t.Errorf("token fetched %d times, want 1", got)
	}
}

func TestClientPutWrapsData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/v2/flows/order_items/entries/o-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var body struct {
			Data map[string]any `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Data["gift_note"] != "hi" {
			t.Errorf("body = %+v", body)
		}
		_, _ = io.WriteString(w, `{"data":{"id":"o-1","type":"entry","gift_note":"hi"}}`)
	})

	var out map[string]any
	resp, err := client.Put(context.Background(), "/flows/order_items/entries/o-1", map[string]string{"gift_note": "hi"}, &out)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out["type"] != "entry" {
		t.Errorf("resp = %+v out = %+v", resp, out)
	}
}

func TestClientNonSuccessStatus(t *testing.T) {
	collector := metrics.NewCollector("test")
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"status":404,"title":"Not Found","detail":"order not found"}]}`)
	}, WithMetrics(collector))

	var items []any
	resp, err := client.Get(context.Background(), "orders/missing/items", &items)
	if err != nil {
		t.Fatalf("non-2xx should not be an error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Message() != "Not Found: order not found" {
		t.Errorf("message = %q", resp.Message())
	}
	if items != nil {
		t.Errorf("error body must not be decoded into out: %v", items)
	}
	if got := testutil.ToFloat64(collector.PlatformRequestsTotal.WithLabelValues("GET", "orders", "404")); got != 1 {
		t.Errorf("requests_total{orders,404} = %v", got)
	}
}

func TestClientDecodeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"not":"a list"}}`)
	})

	var items []string
	_, err := client.Get(context.Background(), "carts/c/items", &items)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestClientBadCredentials(t *testing.T) {
	platform := &testPlatform{t: t, handler: func(w http.ResponseWriter, r *http.Request) {
		t.Error("API must not be called without a token")
	}}
	srv := httptest.NewServer(platform)
	defer srv.Close()

	client, err := New(context.Background(), Config{
		BaseURL:      srv.URL,
		ClientID:     "id",
		ClientSecret: "wrong",
		Timeout:      time.Second,
	}, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Get(context.Background(), "orders/o/items", nil); err == nil {
		t.Fatal("expected token error")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{BaseURL: "https://api.moltin.com"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestResourceOf(t *testing.T) {
	tests := map[string]string{
		"orders/1/items":              "orders",
		"/flows/order_items/entries/": "flows",
		"carts":                       "carts",
	}
	for in, want := range tests {
		if got := resourceOf(in); got != want {
			t.Errorf("resourceOf(%q) = %q, want %q", in, got, want)
		}
	}
}
