package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Namehash computes the EIP-137 node of an ENS name. The name is expected to
// be normalized already; only lowercasing is applied here.
func Namehash(name string) [32]byte {
	var node [32]byte

	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		return node
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		copy(node[:], crypto.Keccak256(node[:], labelHash))
	}

	return node
}
