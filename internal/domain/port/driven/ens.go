package driven

import (
	"context"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

// RecordsAPI defines the driven port for the JustaName off-chain records service.
type RecordsAPI interface {
	// LookupRecords returns (nil, nil) when the service does not know the name.
	LookupRecords(ctx context.Context, name string) (*model.OffchainRecords, error)

	// UpdateTextRecords submits a gasless update. The service verifies the
	// signature itself; its acceptance rules are not ours to check.
	UpdateTextRecords(ctx context.Context, update model.SignedTextUpdate) error
}

// ChainClient defines the driven port for ENS contract calls over JSON-RPC.
type ChainClient interface {
	// ResolverOf reads the resolver registered for name in the ENS registry.
	// Returns "" when the registry has no resolver set.
	ResolverOf(ctx context.Context, name string) (string, error)

	// TextRecord calls text(namehash(name), key) on resolver. Returns "" for an unset record.
	TextRecord(ctx context.Context, resolver, name, key string) (string, error)

	// SetText sends setText(namehash(name), key, value) to resolver and waits
	// for the receipt. Returns the transaction hash.
	SetText(ctx context.Context, resolver, name, key, value string) (string, error)

	// ChainID returns the chain the client is connected to.
	ChainID() int64
}

// MessageSigner signs personal messages (EIP-191) with a configured key.
type MessageSigner interface {
	Address() string
	SignMessage(message []byte) (string, error)
}
