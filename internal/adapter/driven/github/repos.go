package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// seedPath is the placeholder that makes og/ exist in a fresh repository.
const seedPath = "og/.gitkeep"

// ListRepositories retrieves the authenticated user's repositories ordered by
// most recently updated. It handles pagination automatically.
func (c *Client) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	var all []model.Repository

	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, classifyError(fmt.Sprintf("listing repositories (page %d)", opts.Page), resp, err)
		}

		logRateLimit(resp, "user/repos", opts.Page, len(repos))

		for _, r := range repos {
			all = append(all, mapRepository(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	metrics.RecordGitHubCall("list_repositories", "ok")

	if all == nil {
		all = []model.Repository{}
	}

	return all, nil
}

// GetRepository fetches a single repository. Returns driven.ErrRepoNotFound on 404.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	r, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			metrics.RecordGitHubCall("get_repository", "not_found")
			return nil, fmt.Errorf("get repository %s/%s: %w", owner, name, driven.ErrRepoNotFound)
		}
		return nil, classifyError(fmt.Sprintf("get repository %s/%s", owner, name), resp, err)
	}
	metrics.RecordGitHubCall("get_repository", "ok")
	logRateLimit(resp, owner+"/"+name, 0, 1)

	repo := mapRepository(r)
	return &repo, nil
}

// CreateRepository creates an auto-initialized repository for the authenticated
// user, so it is immediately writable, and seeds og/ with a placeholder file.
func (c *Client) CreateRepository(ctx context.Context, name string, private bool) (*model.Repository, error) {
	r, resp, err := c.gh.Repositories.Create(ctx, "", &gh.Repository{
		Name:        gh.Ptr(name),
		Private:     gh.Ptr(private),
		AutoInit:    gh.Ptr(true),
		Description: gh.Ptr("Open Graph preview card assets"),
	})
	if err != nil {
		if isNameTaken(resp, err) {
			metrics.RecordGitHubCall("create_repository", "exists")
			return nil, fmt.Errorf("create repository %s: %w", name, driven.ErrRepoAlreadyExists)
		}
		return nil, classifyError("create repository "+name, resp, err)
	}
	metrics.RecordGitHubCall("create_repository", "ok")
	logRateLimit(resp, "user/repos", 0, 1)

	repo := mapRepository(r)

	if _, err := c.WriteFile(ctx, repo.Owner, repo.Name, seedPath, []byte{}, "Create og folder"); err != nil {
		return &repo, fmt.Errorf("seeding %s in %s: %w", seedPath, repo.FullName, err)
	}

	return &repo, nil
}

// isNameTaken detects GitHub's 422 "name already exists on this account".
func isNameTaken(resp *gh.Response, err error) bool {
	if resp == nil || resp.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	for _, e := range ghErr.Errors {
		if e.Field == "name" && strings.Contains(e.Message, "already exists") {
			return true
		}
	}
	return strings.Contains(ghErr.Message, "already exists")
}
