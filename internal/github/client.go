package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v58/github"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/templatesync/templatesync/internal/config"
)

const perPage = 100

type Tag struct {
	Name string `json:"name" yaml:"name"`
	SHA  string `json:"sha" yaml:"sha"`
}

type Release struct {
	TagName     string    `json:"tag_name" yaml:"tag_name"`
	Name        string    `json:"name" yaml:"name"`
	Body        string    `json:"body" yaml:"body"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
	Prerelease  bool      `json:"prerelease" yaml:"prerelease"`
	Draft       bool      `json:"draft" yaml:"draft"`
}

// Rate is the rate limit state reported by the most recent response.
type Rate struct {
	Limit     int       `json:"limit" yaml:"limit"`
	Remaining int       `json:"remaining" yaml:"remaining"`
	Reset     time.Time `json:"reset" yaml:"reset"`
}

// Client reads a single template repository through the GitHub REST API.
// It is safe for concurrent use.
type Client struct {
	gh    *github.Client
	owner string
	repo  string

	mu   sync.Mutex
	rate *Rate
}

type options struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

type Option func(*options)

func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise or a test server.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

func NewClient(repository string, opts ...Option) (*Client, error) {
	owner, repo, err := config.SplitRepository(repository)
	if err != nil {
		return nil, err
	}

	o := options{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(&o)
	}

	gh := github.NewClient(o.httpClient)
	gh.UserAgent = "templatesync"
	if o.token != "" {
		gh = gh.WithAuthToken(o.token)
	}
	if o.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		gh.BaseURL = base
	}

	return &Client{gh: gh, owner: owner, repo: repo}, nil
}

// NewClientFromConfig builds a client for repository using the configured
// token and timeout.
func NewClientFromConfig(repository string) (*Client, error) {
	return NewClient(repository,
		WithToken(config.GetGithubToken()),
		WithHTTPClient(&http.Client{Timeout: config.GetHTTPTimeout()}),
	)
}

func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// LastRate returns the rate limit state of the last response, if any.
func (c *Client) LastRate() (Rate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rate == nil {
		return Rate{}, false
	}
	return *c.rate, true
}

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag

	opts := &github.ListOptions{PerPage: perPage}
	for {
		page, resp, err := c.gh.Repositories.ListTags(ctx, c.owner, c.repo, opts)
		c.observe(resp)
		if err != nil {
			return nil, errors.Wrapf(translateError(err), "failed to list tags of %s", c.Repository())
		}

		tags = append(tags, lo.Map(page, func(t *github.RepositoryTag, _ int) Tag {
			return Tag{Name: t.GetName(), SHA: t.GetCommit().GetSHA()}
		})...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return tags, nil
}

func (c *Client) ListReleases(ctx context.Context) ([]Release, error) {
	var releases []Release

	opts := &github.ListOptions{PerPage: perPage}
	for {
		page, resp, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, opts)
		c.observe(resp)
		if err != nil {
			return nil, errors.Wrapf(translateError(err), "failed to list releases of %s", c.Repository())
		}

		releases = append(releases, lo.Map(page, func(r *github.RepositoryRelease, _ int) Release {
			return Release{
				TagName:     r.GetTagName(),
				Name:        r.GetName(),
				Body:        r.GetBody(),
				PublishedAt: r.GetPublishedAt().Time,
				Prerelease:  r.GetPrerelease(),
				Draft:       r.GetDraft(),
			}
		})...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return releases, nil
}

// FileContent returns the decoded content of path at ref. Missing paths
// return an error matching ErrNotFound and directories or other non-file
// entries one matching ErrNotAFile.
func (c *Client) FileContent(ctx context.Context, path, ref string) (string, error) {
	file, dir, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	c.observe(resp)
	if err != nil {
		return "", errors.Wrapf(translateError(err), "failed to fetch %s at %s", path, ref)
	}

	if file == nil || dir != nil || file.GetType() != "file" {
		return "", errors.Wrapf(ErrNotAFile, "path %s at %s", path, ref)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode %s at %s", path, ref)
	}

	return content, nil
}

// FileTree lists every file (blob) path in the repository at ref. The ref is
// tried as a tag first and then as a branch; annotated tags are dereferenced
// to their commit.
func (c *Client) FileTree(ctx context.Context, ref string) ([]string, error) {
	commitSHA, err := c.resolveCommit(ctx, ref)
	if err != nil {
		return nil, err
	}

	commit, resp, err := c.gh.Git.GetCommit(ctx, c.owner, c.repo, commitSHA)
	c.observe(resp)
	if err != nil {
		return nil, errors.Wrapf(translateError(err), "failed to get commit %s", commitSHA)
	}

	treeSHA := commit.GetTree().GetSHA()
	if treeSHA == "" {
		return nil, fmt.Errorf("commit %s has no tree", commitSHA)
	}

	tree, resp, err := c.gh.Git.GetTree(ctx, c.owner, c.repo, treeSHA, true)
	c.observe(resp)
	if err != nil {
		return nil, errors.Wrapf(translateError(err), "failed to get tree %s", treeSHA)
	}
	if tree.GetTruncated() {
		return nil, fmt.Errorf("tree for %s is too large to list", ref)
	}

	blobs := lo.Filter(tree.Entries, func(e *github.TreeEntry, _ int) bool {
		return e.GetType() == "blob"
	})

	return lo.Map(blobs, func(e *github.TreeEntry, _ int) string {
		return e.GetPath()
	}), nil
}

func (c *Client) resolveCommit(ctx context.Context, ref string) (string, error) {
	reference, resp, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "tags/"+ref)
	c.observe(resp)
	if err != nil {
		reference, resp, err = c.gh.Git.GetRef(ctx, c.owner, c.repo, "heads/"+ref)
		c.observe(resp)
		if err != nil {
			return "", errors.Wrapf(translateError(err), "failed to resolve ref %s", ref)
		}
	}

	sha := reference.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("could not resolve ref %s", ref)
	}

	if reference.GetObject().GetType() == "tag" {
		tag, resp, err := c.gh.Git.GetTag(ctx, c.owner, c.repo, sha)
		c.observe(resp)
		if err != nil {
			return "", errors.Wrapf(translateError(err), "failed to dereference tag %s", ref)
		}

		sha = tag.GetObject().GetSHA()
		if sha == "" {
			return "", fmt.Errorf("could not dereference tag %s", ref)
		}
	}

	return sha, nil
}

func (c *Client) observe(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rate = &Rate{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
	}
}
