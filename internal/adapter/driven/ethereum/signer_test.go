package ethereum

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamehash(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"eth", "93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
		{"foo.eth", "de9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
		{"FOO.eth.", "de9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := Namehash(tt.name)
			assert.Equal(t, tt.want, hex.EncodeToString(node[:]))
		})
	}
}

func TestKeySigner_SignMessageRecoversAddress(t *testing.T) {
	signer, err := NewKeySigner("0x" + testKeyHex)
	require.NoError(t, err)

	message := []byte("ogcard.local wants you to sign in with your Ethereum account")
	encoded, err := signer.SignMessage(message)
	require.NoError(t, err)

	sig, err := hexutil.Decode(encoded)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	sig[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub).Hex())
}

func TestNewKeySigner_Invalid(t *testing.T) {
	_, err := NewKeySigner("not-hex")
	require.Error(t, err)
}
