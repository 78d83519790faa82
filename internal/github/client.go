// internal/github/client.go
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "starmap/internal/errors"
	"starmap/internal/model"
)

const (
	// PageSize is the number of entries requested per listing page.
	PageSize = 100

	// starMediaType makes the listing include starred_at wrappers.
	starMediaType = "application/vnd.github.v3.star+json"
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// The provided token is sent as a bearer credential on every request.
// An empty baseURL targets the public GitHub API.
func NewClient(token, baseURL string, logger *slog.Logger) (*Client, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	gh := github.NewClient(httpClient)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		logger: logger,
	}, nil
}

// ListStarred drains the starred listing of username page by page and
// returns every entry normalized, in the order the API returned them.
// Pagination stops on the first page holding fewer than PageSize entries.
// Any failed page fails the whole call; no partial results are returned.
func (c *Client) ListStarred(ctx context.Context, username string) ([]model.StarRecord, error) {
	records := []model.StarRecord{}

	for page := 1; ; page++ {
		c.logger.Debug("Fetching starred page", "username", username, "page", page)

		entries, err := c.starredPage(ctx, username, page)
		if err != nil {
			return nil, err
		}

		for _, raw := range entries {
			records = append(records, Normalize(ParseEntry(raw)))
		}

		if len(entries) < PageSize {
			break
		}
	}

	c.logger.Info("Fetched starred repositories", "username", username, "count", len(records))
	return records, nil
}

func (c *Client) starredPage(ctx context.Context, username string, page int) ([]json.RawMessage, error) {
	u := fmt.Sprintf("users/%s/starred?page=%d&per_page=%d", url.PathEscape(username), page, PageSize)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", starMediaType)

	var entries []json.RawMessage
	resp, err := c.gh.Do(ctx, req, &entries)
	if err != nil {
		return nil, upstreamError("list starred", resp, err)
	}
	return entries, nil
}

// upstreamError translates a go-github failure into ErrUpstream, keeping the
// HTTP status when a response was received.
func upstreamError(op string, resp *github.Response, err error) error {
	return &custom_errors.ErrUpstream{
		Op:         op,
		StatusCode: statusCode(resp),
		Err:        err,
	}
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
