// Package news looks up hot CryptoPanic headlines for a currency.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signalbot/internal/model"
)

const (
	cryptoPanicBaseURL = "https://cryptopanic.com"
	defaultTimeout     = 15 * time.Second
	// MaxHeadlines is the number of posts kept per lookup.
	MaxHeadlines = 5
)

// Client queries the CryptoPanic posts API.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewClient creates a CryptoPanic client. An empty baseURL uses production.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = cryptoPanicBaseURL
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Enabled reports whether an API token is configured.
func (c *Client) Enabled() bool { return c != nil && c.token != "" }

type postsResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Votes struct {
			Important int `json:"important"`
			Positive  int `json:"positive"`
			Negative  int `json:"negative"`
		} `json:"votes"`
	} `json:"results"`
}

// Headlines returns up to MaxHeadlines hot news posts for symbol.
func (c *Client) Headlines(ctx context.Context, symbol string) ([]model.Headline, error) {
	params := url.Values{}
	params.Set("auth_token", c.token)
	params.Set("currencies", strings.ToLower(symbol))
	params.Set("kind", "news")
	params.Set("public", "true")
	params.Set("filter", "hot")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/posts/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("cryptopanic: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cryptopanic: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("cryptopanic: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var pr postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("cryptopanic: decode: %w", err)
	}

	out := make([]model.Headline, 0, MaxHeadlines)
	for _, p := range pr.Results {
		if len(out) == MaxHeadlines {
			break
		}
		out = append(out, model.Headline{
			Title:     p.Title,
			URL:       p.URL,
			Important: p.Votes.Important > 0,
			Positive:  p.Votes.Positive > 0,
			Negative:  p.Votes.Negative > 0,
		})
	}
	return out, nil
}
