package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MessageSigner = (*KeySigner)(nil)

// KeySigner signs personal messages and transactions with a raw secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key, with or without a 0x prefix.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parsing signer key: %w", err)
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the checksummed address of the key.
func (s *KeySigner) Address() string {
	return s.address.Hex()
}

// SignMessage produces an EIP-191 personal_sign signature, hex encoded with
// the recovery id in the 27/28 form wallets emit.
func (s *KeySigner) SignMessage(message []byte) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return "", fmt.Errorf("signing message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func (s *KeySigner) transactOpts(chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("creating transactor: %w", err)
	}
	return opts, nil
}
