// Package forge talks to the GitHub API on behalf of the stub pipeline:
// one batched GraphQL query for directory listings across many refs, raw
// file fetches, and a rate-limit probe used to classify failures.
package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GitHubClient issues requests against the GitHub REST, GraphQL, and raw
// content endpoints.
type GitHubClient struct {
	httpClient *http.Client
	apiURL     string
	graphqlURL string
	rawURL     string
	token      string
}

// Option configures a GitHubClient.
type Option func(*GitHubClient)

// WithToken sets the bearer token used for authentication. An empty token
// leaves requests anonymous, subject to the much lower unauthenticated quota.
func WithToken(token string) Option {
	return func(c *GitHubClient) { c.token = token }
}

// WithBaseURLs overrides the API endpoints, primarily for tests and GitHub
// Enterprise installs.
func WithBaseURLs(apiURL, graphqlURL, rawURL string) Option {
	return func(c *GitHubClient) {
		c.apiURL = apiURL
		c.graphqlURL = graphqlURL
		c.rawURL = rawURL
	}
}

// NewGitHubClient creates a GitHub client with default endpoints.
func NewGitHubClient(opts ...Option) *GitHubClient {
	c := &GitHubClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     "https://api.github.com",
		graphqlURL: "https://api.github.com/graphql",
		rawURL:     "https://raw.githubusercontent.com",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TreeQuery names one (ref, path) pair whose directory entries are wanted.
type TreeQuery struct {
	// SHA is the commit the path is read at.
	SHA string
	// Path is the directory inside the repository.
	Path string
}

// DirEntry is one entry of a repository directory at some ref.
type DirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsFile reports whether the entry is a regular file (a Git blob).
func (e DirEntry) IsFile() bool { return e.Type == "blob" }

// DirEntriesBatch resolves the directory entries for every query in one
// GraphQL request, aliasing one object lookup per query. The result maps
// each query's SHA to its entries; SHAs whose path does not exist at that
// ref are absent from the map. N refs cost one round trip instead of N.
func (c *GitHubClient) DirEntriesBatch(ctx context.Context, repo string, queries []TreeQuery) (map[string][]DirEntry, error) {
	if len(queries) == 0 {
		return map[string][]DirEntry{}, nil
	}
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "query { repository(owner: %q, name: %q) {", owner, name)
	for i, q := range queries {
		fmt.Fprintf(&b, " ref%d: object(expression: %q) { ... on Tree { entries { name type } } }",
			i, q.SHA+":"+q.Path)
	}
	b.WriteString(" } }")

	body, err := json.Marshal(map[string]string{"query": b.String()})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	var reply struct {
		Data struct {
			Repository map[string]json.RawMessage `json:"repository"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.do(req, &reply); err != nil {
		return nil, fmt.Errorf("batched tree query for %s: %w", repo, err)
	}
	if len(reply.Errors) > 0 {
		return nil, fmt.Errorf("batched tree query for %s: %s", repo, reply.Errors[0].Message)
	}

	entries := make(map[string][]DirEntry, len(queries))
	for i, q := range queries {
		raw, ok := reply.Data.Repository[fmt.Sprintf("ref%d", i)]
		if !ok || string(raw) == "null" {
			continue
		}
		var obj struct {
			Entries []DirEntry `json:"entries"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode tree entries for %s: %w", q.SHA, err)
		}
		entries[q.SHA] = obj.Entries
	}
	return entries, nil
}

// RawContent fetches the raw text of path/name in repo at the given ref.
func (c *GitHubClient) RawContent(ctx context.Context, repo, ref, dir, name string) (string, error) {
	rawURL := strings.Join([]string{c.rawURL, repo, ref, strings.Trim(dir, "/"), url.PathEscape(name)}, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return string(data), nil
}

// RateLimitExhausted probes the rate-limit endpoint and reports the first
// quota category with no remaining requests. It is called after a request
// has already failed, to decide whether the failure was quota exhaustion.
func (c *GitHubClient) RateLimitExhausted(ctx context.Context) (bool, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/rate_limit")
	if err != nil {
		return false, "", err
	}

	var reply struct {
		Resources map[string]struct {
			Remaining int `json:"remaining"`
		} `json:"resources"`
	}
	if err := c.do(req, &reply); err != nil {
		return false, "", fmt.Errorf("rate limit probe: %w", err)
	}
	for _, resource := range []string{"core", "graphql"} {
		if quota, ok := reply.Resources[resource]; ok && quota.Remaining == 0 {
			return true, resource, nil
		}
	}
	return false, "", nil
}

// DefaultBranch returns the repository's default branch name.
func (c *GitHubClient) DefaultBranch(ctx context.Context, repo string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/repos/"+repo)
	if err != nil {
		return "", err
	}
	var reply struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.do(req, &reply); err != nil {
		return "", c.classify(ctx, fmt.Errorf("default branch of %s: %w", repo, err))
	}
	if reply.DefaultBranch == "" {
		return "", fmt.Errorf("default branch of %s: missing in response", repo)
	}
	return reply.DefaultBranch, nil
}

// Classify upgrades a failed-call error to a RateLimitError when the probe
// confirms quota exhaustion. The original error is returned otherwise,
// including when the probe itself fails.
func (c *GitHubClient) Classify(ctx context.Context, err error) error {
	return c.classify(ctx, err)
}

func (c *GitHubClient) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	exhausted, resource, probeErr := c.RateLimitExhausted(ctx)
	if probeErr == nil && exhausted {
		return &RateLimitError{Resource: resource}
	}
	return err
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository %q is not in OWNER/REPO form", repo)
	}
	return parts[0], parts[1], nil
}

func (c *GitHubClient) newRequest(ctx context.Context, method, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setCommonHeaders(req)
	return req, nil
}

func (c *GitHubClient) setCommonHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "stubdocs/1.0")
}

func (c *GitHubClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("GitHub API error: %s", resp.Status)
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
