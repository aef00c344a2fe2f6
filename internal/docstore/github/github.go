// Package github stores documents as files in a GitHub repository through
// the repository contents API. The file blob SHA is the revision token.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/soaringjerry/Quizbank/internal/docstore"
)

// Options configures a Client.
type Options struct {
	Token   string
	Owner   string
	Repo    string
	Branch  string
	BaseURL string // API root; empty means api.github.com
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client implements docstore.Client on top of one repository branch.
type Client struct {
	api    *gh.Client
	owner  string
	repo   string
	branch string
	log    *slog.Logger
}

// New builds a Client. Owner and Repo are required.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Owner) == "" || strings.TrimSpace(opts.Repo) == "" {
		return nil, errors.New("github docstore: owner and repo are required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	api := gh.NewClient(&http.Client{Timeout: timeout})
	if opts.Token != "" {
		api = api.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github docstore: parse base url: %w", err)
		}
		api.BaseURL = u
	}
	branch := opts.Branch
	if branch == "" {
		branch = "main"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, owner: opts.Owner, repo: opts.Repo, branch: branch, log: logger}, nil
}

func (c *Client) Read(ctx context.Context, path string) (*docstore.Document, error) {
	file, _, resp, err := c.api.Repositories.GetContents(ctx, c.owner, c.repo, path, &gh.RepositoryContentGetOptions{Ref: c.branch})
	if err != nil {
		if statusOf(resp, err) == http.StatusNotFound {
			return nil, docstore.ErrNotFound
		}
		return nil, docstore.NewTransportError("read", path, err)
	}
	if file == nil {
		return nil, docstore.NewTransportError("read", path, errors.New("path is a directory"))
	}
	// Files over 1 MB come back with encoding "none" and no content.
	if file.GetEncoding() == "none" {
		raw, _, err := c.api.Git.GetBlobRaw(ctx, c.owner, c.repo, file.GetSHA())
		if err != nil {
			return nil, docstore.NewTransportError("read", path, fmt.Errorf("fetch blob: %w", err))
		}
		return &docstore.Document{Content: raw, Revision: file.GetSHA()}, nil
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, docstore.NewTransportError("read", path, fmt.Errorf("decode content: %w", err))
	}
	return &docstore.Document{Content: []byte(content), Revision: file.GetSHA()}, nil
}

func (c *Client) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: content,
		Branch:  gh.String(c.branch),
	}
	var (
		res  *gh.RepositoryContentResponse
		resp *gh.Response
		err  error
	)
	if revision == "" {
		res, resp, err = c.api.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts)
	} else {
		opts.SHA = gh.String(revision)
		res, resp, err = c.api.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts)
	}
	if err != nil {
		switch statusOf(resp, err) {
		// 409: the sha no longer names the branch head blob.
		// 422: a create without sha hit an existing file.
		case http.StatusConflict, http.StatusUnprocessableEntity:
			c.log.Warn("github docstore: write rejected", "path", path, "revision", revision, "error", err)
			return "", docstore.ErrConflict
		}
		return "", docstore.NewTransportError("write", path, err)
	}
	if res == nil || res.Content == nil {
		return "", nil
	}
	return res.Content.GetSHA(), nil
}

func statusOf(resp *gh.Response, err error) int {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	return 0
}

var _ docstore.Client = (*Client)(nil)
