// Package client implements the subset of the Bitbucket Server REST API 1.0
// needed to walk projects, repositories and repository file listings.
//
// Listing endpoints are paged: each response carries a values array, an
// isLastPage flag and, when more pages exist, a nextPageStart offset.
// Listing failures are never fatal; a listing that fails mid-way returns
// whatever was collected up to that point.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/CompassSecurity/imageleek/pkg/httpclient"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	projectPageLimit = 100
	repoPageLimit    = 100
	filePageLimit    = 1000

	// maxPages bounds every paginated listing so a paginator that never
	// reports completion cannot spin forever.
	maxPages = 1000
)

// ErrEmptyContent is returned when a fetched file body is empty.
var ErrEmptyContent = errors.New("empty file content")

// Client talks to one Bitbucket Server instance with one set of credentials.
// It is safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	token    string
	http     *retryablehttp.Client
}

// NewClient creates a client for the given Bitbucket Server base URL.
// Username and token are sent as HTTP basic auth on every request; leave
// both empty for anonymous access.
func NewClient(baseURL string, username string, token string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		token:    token,
		http:     httpclient.GetClient(nil),
	}
}

// newRequest builds a GET request carrying the client's credentials.
func (c *Client) newRequest(ctx context.Context, url string) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" || c.token != "" {
		req.SetBasicAuth(c.username, c.token)
	}
	return req, nil
}

// ListProjects returns the keys of all projects visible to the client. When
// keys is non-empty it is returned as-is and no API call is made, mirroring
// the --projects shortcut.
func (c *Client) ListProjects(ctx context.Context, keys []string) []string {
	if len(keys) > 0 {
		return keys
	}

	var projects []string
	for _, value := range c.listPaged(ctx, "/rest/api/1.0/projects", projectPageLimit, "projects") {
		projects = append(projects, value.Get("key").String())
	}
	return projects
}

// ListRepositories returns the slugs of all repositories in a project.
func (c *Client) ListRepositories(ctx context.Context, projectKey string) []string {
	path := fmt.Sprintf("/rest/api/1.0/projects/%s/repos", projectKey)

	var slugs []string
	for _, value := range c.listPaged(ctx, path, repoPageLimit, "repositories of "+projectKey) {
		slugs = append(slugs, value.Get("slug").String())
	}
	return slugs
}

// ListFiles returns every file path tracked in a repository's default
// branch.
func (c *Client) ListFiles(ctx context.Context, projectKey string, repoSlug string) []string {
	path := fmt.Sprintf("/rest/api/1.0/projects/%s/repos/%s/files", projectKey, repoSlug)

	var paths []string
	for _, value := range c.listPaged(ctx, path, filePageLimit, fmt.Sprintf("files of %s/%s", projectKey, repoSlug)) {
		paths = append(paths, value.String())
	}
	return paths
}

// RawFileContent fetches the raw text content of one file. A maxSize > 0
// caps the accepted body size; larger files are rejected. An empty body
// yields ErrEmptyContent.
func (c *Client) RawFileContent(ctx context.Context, projectKey string, repoSlug string, filePath string, maxSize int64) (string, error) {
	url := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos/%s/raw/%s", c.baseURL, projectKey, repoSlug, filePath)

	req, err := c.newRequest(ctx, url)
	if err != nil {
		return "", err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d fetching %s", res.StatusCode, url)
	}

	reader := io.Reader(res.Body)
	if maxSize > 0 {
		if res.ContentLength > maxSize {
			return "", fmt.Errorf("file is %d bytes, exceeds the %d byte limit", res.ContentLength, maxSize)
		}
		// Chunked responses carry no Content-Length; read one byte past
		// the cap so oversized bodies are rejected instead of silently
		// truncated.
		reader = io.LimitReader(res.Body, maxSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return "", fmt.Errorf("file exceeds the %d byte limit", maxSize)
	}
	if len(data) == 0 {
		return "", ErrEmptyContent
	}

	return string(data), nil
}

// listPaged walks one paged collection and returns the concatenated values
// arrays. An absent isLastPage flag is treated as the last page, and the
// nextPageStart cursor must strictly advance; both guards exist because the
// server's pagination contract is trusted nowhere else.
func (c *Client) listPaged(ctx context.Context, path string, limit int, resource string) []gjson.Result {
	var values []gjson.Result

	start := int64(0)
	for page := 0; page < maxPages; page++ {
		url := fmt.Sprintf("%s%s?limit=%d&start=%d", c.baseURL, path, limit, start)

		body, err := c.getPage(ctx, url)
		if err != nil {
			log.Error().Err(err).Str("resource", resource).Msg("Failed fetching page, continuing with partial results")
			return values
		}

		values = append(values, body.Get("values").Array()...)

		isLastPage := body.Get("isLastPage")
		if !isLastPage.Exists() || isLastPage.Bool() {
			return values
		}

		next := body.Get("nextPageStart").Int()
		if next <= start {
			log.Warn().Str("resource", resource).Int64("start", start).Int64("nextPageStart", next).Msg("Pagination cursor did not advance, stopping with partial results")
			return values
		}
		start = next
	}

	log.Warn().Str("resource", resource).Int("maxPages", maxPages).Msg("Page limit reached, stopping with partial results")
	return values
}

// getPage performs one GET and parses the JSON body.
func (c *Client) getPage(ctx context.Context, url string) (gjson.Result, error) {
	req, err := c.newRequest(ctx, url)
	if err != nil {
		return gjson.Result{}, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("HTTP %d fetching %s", res.StatusCode, url)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return gjson.Result{}, err
	}

	return gjson.ParseBytes(data), nil
}
