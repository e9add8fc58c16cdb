package auth

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRecoveryTransportRetriesOnceAfterRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	refresh := newRefreshServer(t, &refreshCalls, 0)
	defer refresh.Close()

	var apiCalls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"q":1}` {
			t.Errorf("retried body = %q", body)
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer api.Close()

	store := NewCredentialStore(NewMemoryStorage(), refresh.URL, nil)
	_ = store.Set(Credentials{AccessToken: "stale", RefreshToken: "refresh-1"})

	client := &http.Client{Transport: &RecoveryTransport{Store: store}}
	resp, err := client.Post(api.URL, "application/json", strings.NewReader(`{"q":1}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := apiCalls.Load(); got != 2 {
		t.Fatalf("api calls = %d, want 2 (original + retry)", got)
	}
}

func TestRecoveryTransportConcurrent401sShareOneRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	refresh := newRefreshServer(t, &refreshCalls, 200*time.Millisecond)
	defer refresh.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer api.Close()

	store := NewCredentialStore(NewMemoryStorage(), refresh.URL, nil)
	_ = store.Set(Credentials{AccessToken: "stale", RefreshToken: "refresh-1"})
	client := &http.Client{Transport: &RecoveryTransport{Store: store}}

	const workers = 6
	start := make(chan struct{})
	var wg sync.WaitGroup
	statuses := make([]int, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			resp, err := client.Get(api.URL)
			if err != nil {
				errs[i] = err
				return
			}
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	close(start)
	wg.Wait()

	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if statuses[i] != http.StatusOK {
			t.Fatalf("worker %d status = %d", i, statuses[i])
		}
	}
}

func TestRecoveryTransportFailedRefreshReturnsSessionExpired(t *testing.T) {
	refresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer refresh.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	store := NewCredentialStore(NewMemoryStorage(), refresh.URL, nil)
	_ = store.Set(Credentials{AccessToken: "stale", RefreshToken: "refresh-1"})
	client := &http.Client{Transport: &RecoveryTransport{
		Store:    store,
		Location: func() string { return "/tenants/acme/chat" },
	}}

	_, err := client.Get(api.URL)
	if err == nil {
		t.Fatalf("expected session expired error")
	}
	var expired *SessionExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("error %T is not SessionExpiredError: %v", err, err)
	}
	if expired.LoginPath != "/tenants/acme/login" {
		t.Fatalf("login path = %q", expired.LoginPath)
	}
	if store.Current().Valid() {
		t.Fatalf("credentials should be cleared")
	}
}

func TestRecoveryTransportDoesNotInterceptRefreshEndpoint(t *testing.T) {
	var calls atomic.Int32
	refresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer refresh.Close()

	store := NewCredentialStore(NewMemoryStorage(), refresh.URL, nil)
	_ = store.Set(Credentials{AccessToken: "a", RefreshToken: "r"})
	client := &http.Client{Transport: &RecoveryTransport{Store: store}}

	resp, err := client.Get(refresh.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want passthrough 401", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("refresh endpoint hit %d times, want 1", got)
	}
}

func TestLoginPathFor(t *testing.T) {
	cases := []struct {
		location string
		want     string
	}{
		{"/tenants/acme/chat", "/tenants/acme/login"},
		{"/tenants/acme", "/tenants/acme/login"},
		{"/admin/users", "/auth/login"},
		{"", "/auth/login"},
		{"/tenants/", "/auth/login"},
	}
	for _, tc := range cases {
		if got := LoginPathFor(tc.location); got != tc.want {
			t.Fatalf("LoginPathFor(%q) = %q, want %q", tc.location, got, tc.want)
		}
	}
}
