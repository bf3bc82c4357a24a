package application

import (
	"sync"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// ClientProvider enables runtime hot-swap of the GitHub repository client.
// It holds a mutex-protected reference to the current client and the identity
// it authenticates as, so a new token takes effect without a restart.
type ClientProvider struct {
	mu       sync.RWMutex
	client   driven.RepositoryClient
	identity model.Identity
}

// NewClientProvider creates an empty provider. Nothing is held until Replace.
func NewClientProvider() *ClientProvider {
	return &ClientProvider{}
}

// Get returns the current client, or nil when signed out.
func (p *ClientProvider) Get() driven.RepositoryClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Identity returns the identity of the current client. ok is false when no
// client is held.
func (p *ClientProvider) Identity() (model.Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity, p.client != nil
}

// Replace swaps the client and identity together. Passing a nil client clears both.
func (p *ClientProvider) Replace(client driven.RepositoryClient, identity model.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
	if client == nil {
		identity = model.Identity{}
	}
	p.identity = identity
}

// HasClient returns true if a non-nil client is currently held.
func (p *ClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
