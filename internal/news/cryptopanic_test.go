package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/posts/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("auth_token") != "tok" || q.Get("currencies") != "btc" || q.Get("filter") != "hot" || q.Get("kind") != "news" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		var items []string
		for i := 0; i < 7; i++ {
			items = append(items, fmt.Sprintf(`{"title":"t%d","url":"https://x/%d","votes":{"important":%d,"positive":0,"negative":1}}`, i, i, i%2))
		}
		fmt.Fprintf(w, `{"count":7,"results":[%s]}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL+"/")
	if !c.Enabled() {
		t.Fatal("client with token should be enabled")
	}
	hs, err := c.Headlines(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("headlines: %v", err)
	}
	if len(hs) != MaxHeadlines {
		t.Fatalf("len = %d, want %d", len(hs), MaxHeadlines)
	}
	if hs[0].Title != "t0" || hs[0].Important || !hs[1].Important || !hs[0].Negative || hs[0].Positive {
		t.Errorf("headlines = %+v", hs[:2])
	}
}

func TestHeadlines_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Token not found", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient("bad", srv.URL).Headlines(context.Background(), "ETH")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestEnabled(t *testing.T) {
	var nilClient *Client
	if nilClient.Enabled() || NewClient("", "").Enabled() {
		t.Error("client without token must be disabled")
	}
}
