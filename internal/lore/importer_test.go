package lore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const lorePage = `<!DOCTYPE html>
<html>
<head><title>Sherlock Holmes - Archive</title>
<style>p { color: red }</style>
</head>
<body>
<nav>Home | About</nav>
<h1>Sherlock Holmes</h1>
<p>A consulting detective   residing at
221B Baker Street.</p>
<script>trackPageView()</script>
<ul><li>Violin</li><li>Chemistry</li></ul>
<footer>copyright</footer>
</body>
</html>`

func TestFetchExtractsTitleAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(lorePage))
	}))
	defer srv.Close()

	imp := NewWithClient(srv.Client(), 4000)
	title, body, err := imp.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if title != "Sherlock Holmes - Archive" {
		t.Fatalf("unexpected title %q", title)
	}
	for _, want := range []string{"Sherlock Holmes", "consulting detective residing at 221B Baker Street.", "Violin", "Chemistry"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	for _, skip := range []string{"trackPageView", "color: red", "Home | About", "copyright"} {
		if strings.Contains(body, skip) {
			t.Errorf("body should not contain %q", skip)
		}
	}
}

func TestFetchCapsLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><p>" + strings.Repeat("x", 500) + "</p></body></html>"))
	}))
	defer srv.Close()

	imp := NewWithClient(srv.Client(), 100)
	_, body, err := imp.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := len([]rune(body)); got != 100 {
		t.Fatalf("want body capped at 100 runes, got %d", got)
	}
}

func TestFetchRejectsBadURLs(t *testing.T) {
	imp := New()
	for _, raw := range []string{"ftp://example.com", "not a url at all", "file:///etc/passwd"} {
		if _, _, err := imp.Fetch(context.Background(), raw); err == nil {
			t.Errorf("want error for %q", raw)
		}
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	imp := NewWithClient(srv.Client(), 100)
	if _, _, err := imp.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("want error on 404")
	}
}
