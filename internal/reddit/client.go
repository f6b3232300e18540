// Package reddit implements a minimal client for the official Reddit JSON API.
//
// The client authenticates with the OAuth2 client-credentials grant (script
// apps), caches the bearer token until shortly before expiry, rate-limits
// outgoing requests, and retries on 429 and 5xx responses with exponential
// backoff.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/post"
)

const (
	defaultAuthURL = "https://www.reddit.com"
	defaultAPIURL  = "https://oauth.reddit.com"

	// MaxListingLimit is the Reddit API's cap on listing page size.
	MaxListingLimit = 100

	// tokenExpirySlack refreshes the token this long before it actually expires.
	tokenExpirySlack = time.Minute

	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
)

// Config configures the Reddit client.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string

	// AuthURL and APIURL override the Reddit endpoints, for tests.
	AuthURL string
	APIURL  string

	Timeout time.Duration
	Logger  log.Logger
}

// Client talks to the Reddit API. Safe for concurrent use.
type Client struct {
	clientID     string
	clientSecret string
	userAgent    string
	authURL      string
	apiURL       string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     log.Logger
	maxRetries int

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a Reddit client. Credentials are validated up front so a
// misconfiguration fails at startup, not on the first request.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("reddit client requires client id and secret")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("reddit client requires a user agent")
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		userAgent:    cfg.UserAgent,
		authURL:      strings.TrimRight(cfg.AuthURL, "/"),
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		// Reddit allows 100 requests per minute for OAuth clients.
		limiter:    rate.NewLimiter(rate.Every(time.Minute/100), 5),
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}, nil
}

// ListPosts returns post summaries from one subreddit listing category.
// limit is clamped to [1, MaxListingLimit].
func (c *Client) ListPosts(ctx context.Context, subreddit, category string, limit int) ([]post.Post, error) {
	if !ValidCategory(category) {
		return nil, fmt.Errorf("unknown listing category %q", category)
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListingLimit {
		limit = MaxListingLimit
	}

	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1",
		c.apiURL, url.PathEscape(subreddit), category, limit)

	var page struct {
		Data listing `json:"data"`
	}
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("listing r/%s/%s: %w", subreddit, category, err)
	}

	posts := make([]post.Post, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var sub submissionData
		if err := json.Unmarshal(child.Data, &sub); err != nil {
			c.logger.Warn("skipping malformed submission", "subreddit", subreddit, "error", err)
			continue
		}
		posts = append(posts, summaryFromSubmission(sub))
	}

	c.logger.Debug("listed posts", "subreddit", subreddit, "category", category, "count", len(posts))
	return posts, nil
}

// FetchPost returns a single submission with its comment tree flattened into
// a list of comment bodies, depth-first in display order.
func (c *Client) FetchPost(ctx context.Context, postID string) (*post.Post, error) {
	if postID == "" {
		return nil, fmt.Errorf("post id is required")
	}

	endpoint := fmt.Sprintf("%s/comments/%s.json?raw_json=1", c.apiURL, url.PathEscape(postID))

	// The comments endpoint returns two listings: the submission itself,
	// then the comment forest.
	var pages []struct {
		Data listing `json:"data"`
	}
	if err := c.getJSON(ctx, endpoint, &pages); err != nil {
		return nil, fmt.Errorf("fetching post %s: %w", postID, err)
	}
	if len(pages) < 1 || len(pages[0].Data.Children) < 1 {
		return nil, fmt.Errorf("post %s not found", postID)
	}

	var sub submissionData
	if err := json.Unmarshal(pages[0].Data.Children[0].Data, &sub); err != nil {
		return nil, fmt.Errorf("decoding post %s: %w", postID, err)
	}

	p := summaryFromSubmission(sub)
	p.Body = sub.Selftext
	if len(pages) > 1 {
		p.Comments = flattenComments(pages[1].Data.Children)
	}

	c.logger.Debug("fetched post", "post_id", p.ID, "comments", len(p.Comments))
	return &p, nil
}

func summaryFromSubmission(sub submissionData) post.Post {
	ups := sub.Ups
	if ups == 0 {
		ups = sub.Score
	}
	return post.Post{
		ID:       sub.ID,
		Title:    sub.Title,
		Upvotes:  &ups,
		Username: sub.Author,
	}
}

// flattenComments walks the comment forest depth-first and collects comment
// bodies. "more" stubs and deleted comments (empty body) are skipped.
func flattenComments(children []thing) []string {
	var bodies []string
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var c commentData
		if err := json.Unmarshal(child.Data, &c); err != nil {
			continue
		}
		if c.Body != "" {
			bodies = append(bodies, c.Body)
		}
		// Replies is "" (a JSON string) for leaf comments, a listing otherwise.
		if len(c.Replies) > 0 && c.Replies[0] == '{' {
			var nested struct {
				Data listing `json:"data"`
			}
			if err := json.Unmarshal(c.Replies, &nested); err == nil {
				bodies = append(bodies, flattenComments(nested.Data.Children)...)
			}
		}
	}
	return bodies
}

// getJSON performs an authenticated GET, retrying on 429 and 5xx.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				sleepBackoff(ctx, attempt, "")
				continue
			}
			return fmt.Errorf("reddit request: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			// Token may have been revoked; drop the cache and retry once.
			_ = resp.Body.Close()
			c.invalidateToken()
			if attempt < c.maxRetries {
				continue
			}
			return fmt.Errorf("reddit request unauthorized")

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			retryAfter := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				sleepBackoff(ctx, attempt, retryAfter)
				continue
			}
			return fmt.Errorf("reddit request failed: %s", resp.Status)

		case resp.StatusCode >= 300:
			_ = resp.Body.Close()
			return fmt.Errorf("reddit request failed: %s", resp.Status)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding reddit response: %w", err)
		}
		return nil
	}
}

// accessToken returns a cached bearer token, fetching a new one when the
// cache is empty or close to expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpirySlack)
	c.logger.Debug("fetched reddit access token", "expires_in", tok.ExpiresIn)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// sleepBackoff waits before a retry, honoring Retry-After when present and
// falling back to exponential backoff capped at 5s.
func sleepBackoff(ctx context.Context, attempt int, retryAfter string) {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			d = time.Duration(secs) * time.Second
		}
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
