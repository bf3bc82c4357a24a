package application_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// --- Mock implementations ---

type writeCall struct {
	Owner, Repo, Path, Message string
	Content                    []byte
}

type mockRepoClient struct {
	mu sync.Mutex

	user        model.Identity
	userErr     error
	userCalls   int
	repos       []model.Repository
	repo        *model.Repository
	getRepoErr  error
	created     []string
	writeErrAt  int // 1-based index of the write that fails; 0 = never.
	writeErr    error
	writeRate   model.RateLimitSnapshot
	writes      []writeCall
	getRepoHits int
	limits      []model.RateLimitSnapshot
	limitsErr   error
	limitsCalls int
}

var _ driven.RepositoryClient = (*mockRepoClient)(nil)

func (m *mockRepoClient) GetAuthenticatedUser(context.Context) (model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userCalls++
	if m.userErr != nil {
		return model.Identity{}, m.userErr
	}
	return m.user, nil
}

func (m *mockRepoClient) ListRepositories(context.Context) ([]model.Repository, error) {
	return m.repos, nil
}

func (m *mockRepoClient) GetRepository(_ context.Context, owner, name string) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getRepoHits++
	if m.getRepoErr != nil {
		return nil, m.getRepoErr
	}
	if m.repo != nil {
		return m.repo, nil
	}
	return &model.Repository{Owner: owner, Name: name, FullName: owner + "/" + name, Visibility: "public"}, nil
}

func (m *mockRepoClient) CreateRepository(_ context.Context, name string, private bool) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, name)
	return &model.Repository{Owner: m.user.Login, Name: name, FullName: m.user.Login + "/" + name, Private: private}, nil
}

func (m *mockRepoClient) WriteFile(_ context.Context, owner, repo, path string, content []byte, message string) (model.FileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, writeCall{Owner: owner, Repo: repo, Path: path, Message: message, Content: content})
	if m.writeErrAt > 0 && len(m.writes) == m.writeErrAt {
		return model.FileResult{}, m.writeErr
	}
	return model.FileResult{Path: path, CommitSHA: "c" + path, ContentSHA: "b" + path, Created: true, Rate: m.writeRate}, nil
}

func (m *mockRepoClient) FetchRateLimits(context.Context) ([]model.RateLimitSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limitsCalls++
	return m.limits, m.limitsErr
}

func (m *mockRepoClient) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// staticSource hands out a fixed client, or ErrAuthenticationRequired when nil.
// The identity login defaults to alice.
type staticSource struct {
	client driven.RepositoryClient
	login  string
}

func (s staticSource) Client() (driven.RepositoryClient, error) {
	if s.client == nil {
		return nil, model.ErrAuthenticationRequired
	}
	return s.client, nil
}

func (s staticSource) Identity() (model.Identity, bool) {
	if s.client == nil {
		return model.Identity{}, false
	}
	if s.login == "" {
		return model.Identity{Login: "alice"}, true
	}
	return model.Identity{Login: s.login}, true
}

type mockValidator struct {
	identities map[string]model.Identity
	calls      []string
}

func (m *mockValidator) ValidateToken(_ context.Context, token string) (model.Identity, error) {
	m.calls = append(m.calls, token)
	id, ok := m.identities[token]
	if !ok {
		return model.Identity{}, model.ErrAuthenticationRequired
	}
	return id, nil
}

// memCredentialStore is an in-memory CredentialStore. keyless mimics an
// adapter constructed without an encryption key.
type memCredentialStore struct {
	mu      sync.Mutex
	values  map[string]string
	keyless bool
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{values: map[string]string{}}
}

func (m *memCredentialStore) Set(_ context.Context, service, key, plaintext string) error {
	if m.keyless {
		return driven.ErrEncryptionKeyNotSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[service+"/"+key] = plaintext
	return nil
}

func (m *memCredentialStore) Get(_ context.Context, service, key string) (string, error) {
	if m.keyless {
		return "", driven.ErrEncryptionKeyNotSet
	}
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

// memRateLimitStore keeps the snapshots of a single owner, like the SQLite
// adapter. An empty owner reads as alice.
type memRateLimitStore struct {
	mu    sync.Mutex
	owner string
	saved []model.RateLimitSnapshot
	saves int
}

func (m *memRateLimitStore) Save(_ context.Context, login string, snapshots []model.RateLimitSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.owner = login
	m.saved = append([]model.RateLimitSnapshot(nil), snapshots...)
	return nil
}

func (m *memRateLimitStore) Load(_ context.Context, login string) ([]model.RateLimitSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner := m.owner
	if owner == "" {
		owner = "alice"
	}
	if owner != login {
		return nil, nil
	}
	return m.saved, nil
}

type memUploadStore struct {
	records []model.UploadRecord
	err     error
}

func (m *memUploadStore) Record(_ context.Context, rec model.UploadRecord) (model.UploadRecord, error) {
	if m.err != nil {
		return model.UploadRecord{}, m.err
	}
	rec.ID = "01TESTULID"
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memUploadStore) ListRecent(_ context.Context, limit int) ([]model.UploadRecord, error) {
	out := make([]model.UploadRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memUploadStore) ListByFolder(_ context.Context, folder model.FolderPath) ([]model.UploadRecord, error) {
	var out []model.UploadRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Folder == folder {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

type mockRecordsAPI struct {
	mu        sync.Mutex
	records   map[string]*model.OffchainRecords
	lookupErr error
	updates   []model.SignedTextUpdate
	updateErr error
}

func (m *mockRecordsAPI) LookupRecords(_ context.Context, name string) (*model.OffchainRecords, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.records[name], nil
}

func (m *mockRecordsAPI) UpdateTextRecords(_ context.Context, update model.SignedTextUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update)
	return m.updateErr
}

type setTextCall struct {
	Resolver, Name, Key, Value string
}

type mockChain struct {
	resolvers map[string]string
	texts     map[string]string // keyed by name
	setErr    error
	sets      []setTextCall
}

func (m *mockChain) ResolverOf(_ context.Context, name string) (string, error) {
	return m.resolvers[name], nil
}

func (m *mockChain) TextRecord(_ context.Context, _, name, _ string) (string, error) {
	return m.texts[name], nil
}

func (m *mockChain) SetText(_ context.Context, resolver, name, key, value string) (string, error) {
	m.sets = append(m.sets, setTextCall{Resolver: resolver, Name: name, Key: key, Value: value})
	if m.setErr != nil {
		return "0xfailed", m.setErr
	}
	return "0xtxhash", nil
}

func (m *mockChain) ChainID() int64 { return 1 }

type mockSigner struct {
	signed []string
}

func (m *mockSigner) Address() string { return "0x00000000000000000000000000000000000000aa" }

func (m *mockSigner) SignMessage(message []byte) (string, error) {
	m.signed = append(m.signed, string(message))
	return "0xsignature", nil
}
