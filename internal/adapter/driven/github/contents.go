package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// WriteFile creates or updates a file. The current blob SHA is read first and
// sent with the write, so repeating the same write overwrites the file instead
// of failing with a conflict. A missing file simply means create.
func (c *Client) WriteFile(ctx context.Context, owner, repo, path string, content []byte, message string) (model.FileResult, error) {
	sha, err := c.fileSHA(ctx, owner, repo, path)
	if err != nil {
		return model.FileResult{}, err
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}

	var (
		res  *gh.RepositoryContentResponse
		resp *gh.Response
	)
	if sha == "" {
		res, resp, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	} else {
		opts.SHA = gh.Ptr(sha)
		res, resp, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	}
	if err != nil {
		return model.FileResult{}, classifyError(fmt.Sprintf("writing %s/%s/%s", owner, repo, path), resp, err)
	}
	metrics.RecordGitHubCall("write_file", "ok")
	logRateLimit(resp, owner+"/"+repo+"/contents", 0, 1)

	result := model.FileResult{
		Path:      path,
		CommitSHA: res.Commit.GetSHA(),
		Created:   sha == "",
	}
	if res.Content != nil {
		result.ContentSHA = res.Content.GetSHA()
	}
	if resp != nil && resp.Rate.Limit > 0 {
		result.Rate = snapshotFromRate(model.RateLimitCore, resp.Rate, time.Now().UTC())
	}

	return result, nil
}

// fileSHA returns the blob SHA of path, or "" when the file does not exist.
func (c *Client) fileSHA(ctx context.Context, owner, repo, path string) (string, error) {
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			metrics.RecordGitHubCall("get_contents", "not_found")
			return "", nil
		}
		return "", classifyError(fmt.Sprintf("reading %s/%s/%s", owner, repo, path), resp, err)
	}
	metrics.RecordGitHubCall("get_contents", "ok")
	logRateLimit(resp, owner+"/"+repo+"/contents", 0, 1)

	if file == nil {
		return "", fmt.Errorf("reading %s/%s/%s: path is a directory", owner, repo, path)
	}
	return file.GetSHA(), nil
}
