package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestJWKSCache_ConcurrentMissesCoalesce(t *testing.T) {
	k := newSigningKey(t, "k1")

	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		time.Sleep(100 * time.Millisecond) // hold the fetch open so misses overlap
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{k.jwk()}})
	}))
	t.Cleanup(srv.Close)

	cache := NewJWKSCache(srv.URL)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Lookup(context.Background(), "k1")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("fetch count = %d, want exactly 1", n)
	}
}

func TestJWKSCache_RotationMissesShareForcedRefresh(t *testing.T) {
	k1 := newSigningKey(t, "k1")
	k2 := newSigningKey(t, "k2")

	var (
		mu      sync.Mutex
		keys    = []*signingKey{k1}
		fetches atomic.Int64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) > 1 {
			time.Sleep(150 * time.Millisecond) // hold the rotation fetch open so misses overlap
		}
		mu.Lock()
		defer mu.Unlock()
		var doc struct {
			Keys []map[string]string `json:"keys"`
		}
		for _, k := range keys {
			doc.Keys = append(doc.Keys, k.jwk())
		}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)

	cache := NewJWKSCache(srv.URL, WithMinRefreshInterval(1*time.Hour))
	if _, err := cache.Lookup(context.Background(), "k1"); err != nil {
		t.Fatalf("Lookup k1: %v", err)
	}

	// The provider rotates in k2; several requests under the new key miss at
	// once. Every caller must resolve the key off a single forced refresh,
	// none may be bounced by the throttle while that refresh is in flight.
	mu.Lock()
	keys = []*signingKey{k1, k2}
	mu.Unlock()

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Lookup(context.Background(), "k2")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if n := fetches.Load(); n != 2 {
		t.Errorf("fetch count = %d, want 2", n)
	}
}

func TestJWKSCache_ForcedRefreshIsThrottled(t *testing.T) {
	k := newSigningKey(t, "k1")
	j := newJWKSServer(t, k)
	cache := NewJWKSCache(j.srv.URL, WithMinRefreshInterval(1*time.Hour))

	if _, err := cache.Lookup(context.Background(), "k1"); err != nil {
		t.Fatalf("Lookup k1: %v", err)
	}
	before := j.fetches.Load()

	// First unknown-kid miss is allowed to force a refresh.
	if _, err := cache.Lookup(context.Background(), "k2"); err == nil {
		t.Fatal("expected unknown kid to fail")
	}
	if n := j.fetches.Load(); n != before+1 {
		t.Errorf("fetch count after first miss = %d, want %d", n, before+1)
	}

	// A second miss inside the interval must not reach the network.
	if _, err := cache.Lookup(context.Background(), "k3"); err == nil {
		t.Fatal("expected unknown kid to fail")
	}
	if n := j.fetches.Load(); n != before+1 {
		t.Errorf("fetch count after throttled miss = %d, want %d", n, before+1)
	}
}

func TestJWKSCache_UserAgentAndDeadline(t *testing.T) {
	k := newSigningKey(t, "k1")

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{k.jwk()}})
	}))
	t.Cleanup(srv.Close)

	cache := NewJWKSCache(srv.URL)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if ua, _ := gotUA.Load().(string); ua != fetchUserAgent {
		t.Errorf("User-Agent = %q, want %q", ua, fetchUserAgent)
	}
}

func TestJWKSCache_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cache := NewJWKSCache(srv.URL)
	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh against failing provider to error")
	}
}
