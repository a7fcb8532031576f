package fetchsnap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// allowAll bypasses the private-address check so tests can hit httptest
// servers on loopback.
func allowAll(string) error { return nil }

func TestFetch_ProbesForPayload(t *testing.T) {
	withPayload := `<html><body><script>streamController.enqueue("hello");</script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(withPayload))
	}))
	defer srv.Close()

	f := New(Config{URLValidator: allowAll})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status: %d", res.StatusCode)
	}
	if !res.HasPayload {
		t.Error("HasPayload = false for a snapshot carrying the marker")
	}
	if res.Body != withPayload {
		t.Errorf("body mismatch: %q", res.Body)
	}
	if len(res.Hash) != 64 {
		t.Errorf("hash: %q", res.Hash)
	}
}

func TestFetch_NoPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><main>rendered app shell</main></body></html>`))
	}))
	defer srv.Close()

	f := New(Config{URLValidator: allowAll})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.HasPayload {
		t.Error("HasPayload = true for a shell without the marker")
	}
}

func TestFetch_BlockedURL(t *testing.T) {
	f := New(Config{})
	if _, err := f.Fetch(context.Background(), "http://127.0.0.1/conv"); !errors.Is(err, ErrBlocked) {
		t.Errorf("loopback: got %v, want ErrBlocked", err)
	}
	if _, err := f.Fetch(context.Background(), "ftp://example.com/conv"); !errors.Is(err, ErrBlocked) {
		t.Errorf("scheme: got %v, want ErrBlocked", err)
	}
}

func TestFetch_RedirectValidated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/internal", http.StatusFound)
			return
		}
		w.Write([]byte("should not be reached"))
	}))
	defer srv.Close()

	// The start URL passes; the redirect target does not.
	f := New(Config{URLValidator: func(raw string) error {
		if strings.Contains(raw, "/internal") {
			return errors.New("target denied")
		}
		return nil
	}})
	if _, err := f.Fetch(context.Background(), srv.URL+"/start"); err == nil {
		t.Error("expected the redirect hop to be blocked")
	}
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{URLValidator: allowAll})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Errorf("result: %+v", res)
	}
}

func TestFetch_BodyCapped(t *testing.T) {
	big := strings.Repeat("x", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(big))
	}))
	defer srv.Close()

	f := New(Config{MaxBytes: 1024, URLValidator: allowAll})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Body) != 1024 {
		t.Errorf("body length: got %d, want 1024", len(res.Body))
	}
}

func TestValidateURL(t *testing.T) {
	// Hostname cases need live DNS, so only literal addresses are covered.
	cases := []struct {
		url string
		ok  bool
	}{
		{"http://93.184.216.34/share", true},
		{"http://127.0.0.1/share", false},
		{"http://10.0.0.8/share", false},
		{"http://169.254.1.1/share", false},
		{"http://[::1]/share", false},
		{"file:///etc/passwd", false},
		{"https:///nohost", false},
	}
	for _, c := range cases {
		err := ValidateURL(c.url)
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.url, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected rejection", c.url)
		}
	}
}
