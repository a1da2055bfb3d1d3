package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

const resultsPage = `<html><body>
<div class="result">
  <h2 class="result__title">Mortgage rates today</h2>
  <a class="result__snippet">Average 30-year rate is 6.5 percent.</a>
</div>
<div class="result">
  <h2 class="result__title">Rate forecast</h2>
  <a class="result__snippet">Analysts expect rates to fall.</a>
</div>
<div class="result">
  <h2 class="result__title">Third result</h2>
  <a class="result__snippet">Extra snippet.</a>
</div>
</body></html>`

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("q"); got != "mortgage rates" {
			t.Errorf("query = %q", got)
		}
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	c := New(&Config{Endpoint: server.URL, MaxResults: 2, Logger: zap.NewNop()})
	got, err := c.Search(context.Background(), "mortgage rates")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d results, want max 2:\n%s", len(lines), got)
	}
	if lines[0] != "Mortgage rates today: Average 30-year rate is 6.5 percent." {
		t.Errorf("first result = %q", lines[0])
	}
}

func TestSearchEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><div id='links'></div></body></html>"))
	}))
	defer server.Close()

	c := New(&Config{Endpoint: server.URL, Logger: zap.NewNop()})
	_, err := c.Search(context.Background(), "no hits")
	if !errors.Is(err, domain.ErrWebSearchFailed) {
		t.Errorf("err = %v, want web search failure", err)
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := New(&Config{Endpoint: server.URL, Logger: zap.NewNop()})
	_, err := c.Search(context.Background(), "q")
	if !errors.Is(err, domain.ErrWebSearchFailed) {
		t.Errorf("err = %v, want web search failure", err)
	}
}
