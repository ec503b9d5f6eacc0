// Package mastodon implements the timeline item source for Mastodon's
// home-timeline API.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/driftline/driftline/pkg/timeline"
)

const (
	// DefaultPageSize is the page size requested from the timeline API.
	DefaultPageSize = 40

	// maxContentLength bounds stripped post text before it is embedded.
	maxContentLength = 1000
)

// Client wraps Mastodon's home timeline API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// Config holds configuration for the Mastodon client.
type Config struct {
	// BaseURL is the instance URL (e.g. "https://hachyderm.io").
	BaseURL string

	// AccessToken is the OAuth bearer token for the account.
	AccessToken string
}

// NewClient creates a new Mastodon timeline client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("mastodon base URL is required")
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// post is the subset of Mastodon's status payload the client consumes.
type post struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"created_at"`
	Account   account         `json:"account"`
	Reblog    json.RawMessage `json:"reblog"`
}

type account struct {
	Acct string `json:"acct"`
}

// HomeTimeline fetches home-timeline posts created at or after since,
// following pagination links until the window is covered or the feed ends.
func (c *Client) HomeTimeline(ctx context.Context, since time.Time) ([]*timeline.Item, error) {
	var items []*timeline.Item
	url := fmt.Sprintf("%s/api/v1/timelines/home?limit=%d", c.baseURL, DefaultPageSize)

	for url != "" {
		page, next, err := c.fetchPage(ctx, url)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		earliest := time.Time{}
		for _, p := range page {
			item, err := itemFromPost(p)
			if err != nil {
				continue
			}
			if earliest.IsZero() || item.CreatedAt.Before(earliest) {
				earliest = item.CreatedAt
			}
			items = append(items, item)
		}

		if !earliest.IsZero() && earliest.Before(since) {
			break
		}
		url = next
	}

	return items, nil
}

// fetchPage retrieves one page of posts and the rel="next" pagination URL.
func (c *Client) fetchPage(ctx context.Context, url string) ([]post, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching timeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("mastodon returned status %d: %s", resp.StatusCode, string(body))
	}

	var page []post
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decoding timeline page: %w", err)
	}

	return page, nextLink(resp.Header.Get("Link")), nil
}

// itemFromPost converts a status payload to an Item, unwrapping boosts so
// the boosted post's identity is used rather than the boost wrapper's.
func itemFromPost(p post) (*timeline.Item, error) {
	if len(p.Reblog) > 0 && string(p.Reblog) != "null" {
		var inner post
		if err := json.Unmarshal(p.Reblog, &inner); err != nil {
			return nil, fmt.Errorf("unwrapping reblog: %w", err)
		}
		return itemFromPost(inner)
	}

	if p.URL == "" {
		return nil, fmt.Errorf("post %q has no url", p.ID)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("preserving raw payload: %w", err)
	}

	return &timeline.Item{
		Content:   StripHTML(p.Content),
		Author:    p.Account.Acct,
		URL:       p.URL,
		CreatedAt: p.CreatedAt.UTC(),
		RawJSON:   string(raw),
	}, nil
}

// nextLink extracts the rel="next" URL from a Link response header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		sections := strings.Split(part, ";")
		if len(sections) < 2 {
			continue
		}
		url := strings.Trim(strings.TrimSpace(sections[0]), "<>")
		for _, attr := range sections[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				return url
			}
		}
	}
	return ""
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	breakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	spacesPattern = regexp.MustCompile(`[ \t]+`)
)

// StripHTML reduces a Mastodon HTML content fragment to plain text bounded
// to the embedding input budget.
func StripHTML(s string) string {
	s = breakPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = spacesPattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if len(s) > maxContentLength {
		runes := []rune(s)
		if len(runes) > maxContentLength {
			s = string(runes[:maxContentLength])
		}
	}
	return s
}
