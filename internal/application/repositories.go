package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// RepositoryService exposes the session's repository operations with input
// checks applied.
type RepositoryService struct {
	session ClientSource
}

// NewRepositoryService creates a RepositoryService.
func NewRepositoryService(session ClientSource) *RepositoryService {
	return &RepositoryService{session: session}
}

// ListRepositories returns the user's repositories, most recently updated first.
func (s *RepositoryService) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	client, err := s.session.Client()
	if err != nil {
		return nil, err
	}
	return client.ListRepositories(ctx)
}

// GetRepository returns one repository.
func (s *RepositoryService) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	client, err := s.session.Client()
	if err != nil {
		return nil, err
	}
	return client.GetRepository(ctx, owner, name)
}

// CreateRepository creates a repository with an og/ folder. Public by default
// since the CDN only mirrors public repositories.
func (s *RepositoryService) CreateRepository(ctx context.Context, name string, private bool) (*model.Repository, error) {
	client, err := s.session.Client()
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/ ") {
		return nil, fmt.Errorf("%w: repository name %q", model.ErrInvalidFolderPath, name)
	}

	return client.CreateRepository(ctx, name, private)
}
