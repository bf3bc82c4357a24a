package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

const (
	// signInValidity bounds how long a signed update message is accepted.
	signInValidity = 10 * time.Minute

	// lookupTimeout caps a shared lookup, which outlives any single caller.
	lookupTimeout = 30 * time.Second
)

// ResolverConfig holds the ResolverService settings.
type ResolverConfig struct {
	SignInDomain string // Domain named in the sign-in message.
	ChainID      int64  // Used for off-chain updates when no chain client is configured.

	Now   func() time.Time // Defaults to time.Now.
	Nonce func() string    // Defaults to a random UUID without dashes.
}

// ResolverService finds ENS resolvers and reads and writes the me.yodl record.
type ResolverService struct {
	strategies []ResolverStrategy
	api        driven.RecordsAPI    // nil disables off-chain writes.
	chain      driven.ChainClient   // nil disables on-chain reads and writes.
	signer     driven.MessageSigner // nil disables off-chain writes.
	cfg        ResolverConfig

	lookups singleflight.Group
}

// NewResolverService creates a ResolverService. Any of api, chain and signer
// may be nil; operations that need a missing one fail with a configuration error.
func NewResolverService(
	strategies []ResolverStrategy,
	api driven.RecordsAPI,
	chain driven.ChainClient,
	signer driven.MessageSigner,
	cfg ResolverConfig,
) *ResolverService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Nonce == nil {
		cfg.Nonce = func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
	}
	return &ResolverService{
		strategies: strategies,
		api:        api,
		chain:      chain,
		signer:     signer,
		cfg:        cfg,
	}
}

// Resolve runs the strategies in order and returns the first handle found.
// Concurrent lookups of the same name share one execution. The shared lookup
// is detached from the caller that started it: a caller that gives up returns
// its own ctx error while the others keep waiting.
func (s *ResolverService) Resolve(ctx context.Context, name string) (*model.ResolverHandle, error) {
	normalized, err := model.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.lookups.DoChan(normalized, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return s.resolve(lookupCtx, normalized)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("resolver lookup coalesced", "name", normalized)
		}
		handle := *res.Val.(*model.ResolverHandle)
		return &handle, nil
	}
}

func (s *ResolverService) resolve(ctx context.Context, name string) (*model.ResolverHandle, error) {
	for _, strategy := range s.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		handle, err := strategy.Resolve(ctx, name)
		if err != nil {
			slog.Warn("resolver strategy failed", "strategy", strategy.Name(), "name", name, "error", err)
			continue
		}
		if handle == nil {
			continue
		}

		metrics.RecordResolverHit(strategy.Name())
		slog.Debug("resolver found", "name", name, "strategy", strategy.Name(), "address", handle.Address)
		return handle, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrResolverNotFound, name)
}

// ReadRecord resolves name and fills in the me.yodl record. Off-chain names
// report what JustaName holds; others are read from their resolver contract.
func (s *ResolverService) ReadRecord(ctx context.Context, name string) (*model.ResolverHandle, error) {
	handle, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if handle.HasRecord || handle.Offchain {
		return handle, nil
	}
	if s.chain == nil {
		return nil, model.ErrChainNotConfigured
	}

	record, err := s.chain.TextRecord(ctx, handle.Address, handle.Name, model.TextRecordKey)
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s: %w", model.TextRecordKey, handle.Name, err)
	}
	handle.Record = record
	handle.HasRecord = record != ""
	return handle, nil
}

// UpdateBaseURL sets og.baseUrl in the record document of name, keeping every
// other key, and writes it back. WriteModeAuto writes off-chain for names
// hosted by JustaName and on-chain otherwise.
func (s *ResolverService) UpdateBaseURL(ctx context.Context, name, baseURL string, mode model.WriteMode) (*model.RecordWriteResult, error) {
	baseURL = strings.TrimSpace(baseURL)
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}

	handle, err := s.ReadRecord(ctx, name)
	if err != nil {
		return nil, err
	}

	document, err := model.MergeOGBaseURL(handle.Record, baseURL)
	if err != nil {
		return nil, err
	}

	if mode == model.WriteModeAuto || mode == "" {
		mode = model.WriteModeOnchain
		if handle.Offchain {
			mode = model.WriteModeOffchain
		}
	}

	result := &model.RecordWriteResult{Name: handle.Name, Mode: mode, Document: document}

	switch mode {
	case model.WriteModeOffchain:
		err = s.writeOffchain(ctx, handle, document)
	case model.WriteModeOnchain:
		result.TxHash, err = s.writeOnchain(ctx, handle, document)
	default:
		err = fmt.Errorf("unknown write mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("record base URL updated", "name", handle.Name, "mode", mode, "tx", result.TxHash)
	return result, nil
}

func (s *ResolverService) writeOffchain(ctx context.Context, handle *model.ResolverHandle, document string) error {
	if s.api == nil {
		return model.ErrRecordsAPINotConfigured
	}
	if s.signer == nil {
		return model.ErrSignerNotConfigured
	}

	chainID := s.chainID()
	message := s.signInMessage(handle.Name, s.signer.Address(), chainID)
	signature, err := s.signer.SignMessage([]byte(message))
	if err != nil {
		return fmt.Errorf("signing update for %s: %w", handle.Name, err)
	}

	err = s.api.UpdateTextRecords(ctx, model.SignedTextUpdate{
		Name:      handle.Name,
		ChainID:   chainID,
		Texts:     map[string]string{model.TextRecordKey: document},
		Message:   message,
		Address:   s.signer.Address(),
		Signature: signature,
	})
	if err != nil {
		return &model.RemoteWriteError{Target: "justaname " + handle.Name, Err: err}
	}
	return nil
}

func (s *ResolverService) writeOnchain(ctx context.Context, handle *model.ResolverHandle, document string) (string, error) {
	if s.chain == nil {
		return "", model.ErrChainNotConfigured
	}
	if handle.Address == "" {
		return "", fmt.Errorf("%w: %s has no resolver contract", model.ErrResolverNotFound, handle.Name)
	}

	txHash, err := s.chain.SetText(ctx, handle.Address, handle.Name, model.TextRecordKey, document)
	if errors.Is(err, model.ErrSignerNotConfigured) {
		return "", err
	}
	if err != nil {
		return txHash, &model.RemoteWriteError{Target: "resolver " + handle.Address, Err: err}
	}
	return txHash, nil
}

func (s *ResolverService) chainID() int64 {
	if s.chain != nil {
		return s.chain.ChainID()
	}
	return s.cfg.ChainID
}

// signInMessage renders an EIP-4361 message authorizing a text record update.
func (s *ResolverService) signInMessage(name, address string, chainID int64) string {
	issued := s.cfg.Now().UTC()

	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your Ethereum account:\n", s.cfg.SignInDomain)
	fmt.Fprintf(&b, "%s\n\n", address)
	fmt.Fprintf(&b, "Update text records of %s\n\n", name)
	fmt.Fprintf(&b, "URI: https://%s\n", s.cfg.SignInDomain)
	b.WriteString("Version: 1\n")
	fmt.Fprintf(&b, "Chain ID: %d\n", chainID)
	fmt.Fprintf(&b, "Nonce: %s\n", s.cfg.Nonce())
	fmt.Fprintf(&b, "Issued At: %s\n", issued.Format(time.RFC3339))
	fmt.Fprintf(&b, "Expiration Time: %s", issued.Add(signInValidity).Format(time.RFC3339))
	return b.String()
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: %q", model.ErrInvalidBaseURL, raw)
	}
	return nil
}
