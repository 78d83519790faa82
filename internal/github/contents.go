// internal/github/contents.go
package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"

	custom_errors "starmap/internal/errors"
)

// ContentStore reads and writes files of a single repository through the
// contents API. The blob SHA of a file is its version token.
type ContentStore struct {
	client *Client
	owner  string
	repo   string
}

// Contents returns a ContentStore bound to owner/repo.
func (c *Client) Contents(owner, repo string) *ContentStore {
	return &ContentStore{client: c, owner: owner, repo: repo}
}

// Repository returns the "owner/repo" the store writes to.
func (s *ContentStore) Repository() string {
	return s.owner + "/" + s.repo
}

// ReadToken returns the current blob SHA of path on branch. found is false
// when the file does not exist yet.
func (s *ContentStore) ReadToken(ctx context.Context, path, branch string) (string, bool, error) {
	file, _, resp, err := s.client.gh.Repositories.GetContents(ctx, s.owner, s.repo, path,
		&github.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		if statusCode(resp) == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, upstreamError("read document", resp, err)
	}
	if file == nil {
		return "", false, &custom_errors.ErrUpstream{
			Op:         "read document",
			StatusCode: statusCode(resp),
			Err:        fmt.Errorf("%s is a directory", path),
		}
	}
	return file.GetSHA(), true, nil
}

// Write creates path on branch when token is empty, otherwise updates it
// conditioned on token. A stale token is reported as ErrPublishConflict.
func (s *ContentStore) Write(ctx context.Context, path, branch string, content []byte, message, token string) (string, error) {
	// Content is base64 encoded by go-github when the options are marshalled.
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(branch),
	}

	var (
		res  *github.RepositoryContentResponse
		resp *github.Response
		err  error
	)
	if token == "" {
		res, resp, err = s.client.gh.Repositories.CreateFile(ctx, s.owner, s.repo, path, opts)
	} else {
		opts.SHA = github.String(token)
		res, resp, err = s.client.gh.Repositories.UpdateFile(ctx, s.owner, s.repo, path, opts)
	}
	if err != nil {
		status := statusCode(resp)
		// 422 on a create means the file appeared after the token was read.
		if status == http.StatusConflict || (status == http.StatusUnprocessableEntity && token == "") {
			return "", &custom_errors.ErrPublishConflict{Path: path, Branch: branch, Token: token}
		}
		return "", upstreamError("write document", resp, err)
	}

	s.client.logger.Debug("Wrote document", "repository", s.Repository(), "path", path, "branch", branch)
	return res.GetContent().GetSHA(), nil
}
