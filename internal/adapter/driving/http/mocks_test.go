package httphandler_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockRepoClient struct {
	mu sync.Mutex

	repos      []model.Repository
	repo       *model.Repository
	getRepoErr error
	createErr  error
	writeErr   error
	limits     []model.RateLimitSnapshot
	writes     []string
	userErr    error
}

func (m *mockRepoClient) GetAuthenticatedUser(context.Context) (model.Identity, error) {
	if m.userErr != nil {
		return model.Identity{}, m.userErr
	}
	return model.Identity{Login: "alice", Name: "Alice"}, nil
}

func (m *mockRepoClient) ListRepositories(context.Context) ([]model.Repository, error) {
	return m.repos, nil
}

func (m *mockRepoClient) GetRepository(_ context.Context, owner, name string) (*model.Repository, error) {
	if m.getRepoErr != nil {
		return nil, m.getRepoErr
	}
	if m.repo != nil {
		return m.repo, nil
	}
	return &model.Repository{Owner: owner, Name: name, FullName: owner + "/" + name, Visibility: "public"}, nil
}

func (m *mockRepoClient) CreateRepository(_ context.Context, name string, private bool) (*model.Repository, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &model.Repository{Owner: "alice", Name: name, FullName: "alice/" + name, Private: private}, nil
}

func (m *mockRepoClient) WriteFile(_ context.Context, _, _, path string, _ []byte, _ string) (model.FileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, path)
	if m.writeErr != nil {
		return model.FileResult{}, m.writeErr
	}
	return model.FileResult{Path: path, ContentSHA: "blob", CommitSHA: "commit", Created: true}, nil
}

func (m *mockRepoClient) FetchRateLimits(context.Context) ([]model.RateLimitSnapshot, error) {
	return m.limits, nil
}

type mockValidator struct{}

func (mockValidator) ValidateToken(_ context.Context, token string) (model.Identity, error) {
	if token != "ghp_good" {
		return model.Identity{}, model.ErrAuthenticationRequired
	}
	return model.Identity{Login: "alice", Name: "Alice", Scopes: []string{"repo"}}, nil
}

type memCredentialStore struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memCredentialStore) Set(_ context.Context, service, key, plaintext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[service+"/"+key] = plaintext
	return nil
}

func (m *memCredentialStore) Get(_ context.Context, service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[service+"/"+key], nil
}

func (m *memCredentialStore) Delete(_ context.Context, service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, service+"/"+key)
	return nil
}

type memRateLimitStore struct {
	saved []model.RateLimitSnapshot
}

func (m *memRateLimitStore) Save(_ context.Context, _ string, snapshots []model.RateLimitSnapshot) error {
	m.saved = snapshots
	return nil
}

func (m *memRateLimitStore) Load(context.Context, string) ([]model.RateLimitSnapshot, error) {
	return m.saved, nil
}

type memUploadStore struct {
	records []model.UploadRecord
}

func (m *memUploadStore) Record(_ context.Context, rec model.UploadRecord) (model.UploadRecord, error) {
	rec.ID = "01HTTPTESTULID"
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memUploadStore) ListRecent(_ context.Context, limit int) ([]model.UploadRecord, error) {
	if limit == 0 {
		limit = 50
	}
	var out []model.UploadRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memUploadStore) ListByFolder(_ context.Context, folder model.FolderPath) ([]model.UploadRecord, error) {
	var out []model.UploadRecord
	for _, rec := range m.records {
		if rec.Folder == folder {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockRecordsAPI struct {
	records map[string]*model.OffchainRecords
	updates []model.SignedTextUpdate
}

func (m *mockRecordsAPI) LookupRecords(_ context.Context, name string) (*model.OffchainRecords, error) {
	return m.records[name], nil
}

func (m *mockRecordsAPI) UpdateTextRecords(_ context.Context, update model.SignedTextUpdate) error {
	m.updates = append(m.updates, update)
	return nil
}

type mockSigner struct{}

func (mockSigner) Address() string { return "0x00000000000000000000000000000000000000aa" }

func (mockSigner) SignMessage([]byte) (string, error) { return "0xsig", nil }

var (
	_ driven.RepositoryClient = (*mockRepoClient)(nil)
	_ driven.TokenValidator   = mockValidator{}
	_ driven.CredentialStore  = (*memCredentialStore)(nil)
	_ driven.RateLimitStore   = (*memRateLimitStore)(nil)
	_ driven.UploadStore      = (*memUploadStore)(nil)
	_ driven.RecordsAPI       = (*mockRecordsAPI)(nil)
	_ driven.MessageSigner    = mockSigner{}
)
