// Package ethereum implements the ENS ChainClient and MessageSigner ports with go-ethereum.
package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChainClient = (*Chain)(nil)

const registryABIJSON = `[
	{"type":"function","name":"resolver","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

const resolverABIJSON = `[
	{"type":"function","name":"text","stateMutability":"view",
	 "inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"}],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"setText","stateMutability":"nonpayable",
	 "inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"},{"name":"value","type":"string"}],
	 "outputs":[]}
]`

var (
	registryABI = mustParseABI(registryABIJSON)
	resolverABI = mustParseABI(resolverABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parsing ABI: %v", err))
	}
	return parsed
}

// Backend is the subset of an Ethereum node connection the Chain needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Chain reads and writes ENS records through the registry and resolver contracts.
type Chain struct {
	backend  Backend
	chainID  *big.Int
	registry *bind.BoundContract
	signer   *KeySigner // nil makes the client read-only.
}

// Dial connects to rpcURL and checks that the node serves chainID.
func Dial(ctx context.Context, rpcURL string, chainID int64, registry string, signer *KeySigner) (*Chain, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing ethereum rpc: %w", err)
	}

	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("reading chain id: %w", err)
	}
	if remote.Int64() != chainID {
		client.Close()
		return nil, fmt.Errorf("rpc serves chain %s, configured for %d", remote, chainID)
	}

	return NewChain(client, chainID, registry, signer)
}

// NewChain wraps an existing backend.
func NewChain(backend Backend, chainID int64, registry string, signer *KeySigner) (*Chain, error) {
	if !common.IsHexAddress(registry) {
		return nil, fmt.Errorf("invalid ENS registry address %q", registry)
	}
	addr := common.HexToAddress(registry)

	return &Chain{
		backend:  backend,
		chainID:  big.NewInt(chainID),
		registry: bind.NewBoundContract(addr, registryABI, backend, backend, backend),
		signer:   signer,
	}, nil
}

// ChainID returns the configured chain.
func (c *Chain) ChainID() int64 {
	return c.chainID.Int64()
}

// ResolverOf reads the registry's resolver for name. Returns "" when unset.
func (c *Chain) ResolverOf(ctx context.Context, name string) (string, error) {
	var out []any
	err := c.registry.Call(&bind.CallOpts{Context: ctx}, &out, "resolver", Namehash(name))
	if err != nil {
		return "", fmt.Errorf("registry resolver(%s): %w", name, err)
	}

	addr := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	if addr == (common.Address{}) {
		return "", nil
	}
	return addr.Hex(), nil
}

// TextRecord calls text(node, key) on resolver.
func (c *Chain) TextRecord(ctx context.Context, resolver, name, key string) (string, error) {
	contract, err := c.resolver(resolver)
	if err != nil {
		return "", err
	}

	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "text", Namehash(name), key); err != nil {
		return "", fmt.Errorf("resolver text(%s, %s): %w", name, key, err)
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// SetText sends setText(node, key, value) to resolver and blocks until the
// transaction is mined. A reverted transaction is an error that still carries
// the hash.
func (c *Chain) SetText(ctx context.Context, resolver, name, key, value string) (string, error) {
	if c.signer == nil {
		return "", model.ErrSignerNotConfigured
	}

	contract, err := c.resolver(resolver)
	if err != nil {
		return "", err
	}

	opts, err := c.signer.transactOpts(c.chainID)
	if err != nil {
		return "", err
	}
	opts.Context = ctx

	tx, err := contract.Transact(opts, "setText", Namehash(name), key, value)
	if err != nil {
		return "", fmt.Errorf("sending setText(%s, %s): %w", name, key, err)
	}
	txHash := tx.Hash().Hex()
	slog.Info("setText transaction sent", "name", name, "key", key, "tx", txHash)

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return txHash, fmt.Errorf("waiting for setText receipt %s: %w", txHash, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return txHash, fmt.Errorf("setText transaction %s reverted", txHash)
	}

	slog.Info("setText transaction mined", "name", name, "tx", txHash, "block", receipt.BlockNumber)
	return txHash, nil
}

func (c *Chain) resolver(address string) (*bind.BoundContract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid resolver address %q", address)
	}
	return bind.NewBoundContract(common.HexToAddress(address), resolverABI, c.backend, c.backend, c.backend), nil
}
