package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every OGCARD_ env var that Load() reads.
var allConfigKeys = []string{
	"OGCARD_LISTEN_ADDR",
	"OGCARD_DB_PATH",
	"OGCARD_LOG_LEVEL",
	"OGCARD_SECRET_KEY",
	"OGCARD_GITHUB_TOKEN",
	"OGCARD_RATE_LIMIT_REFRESH",
	"OGCARD_CDN_BASE_URL",
	"OGCARD_ALLOW_PARTIAL_UPLOAD",
	"OGCARD_ETH_RPC_URL",
	"OGCARD_CHAIN_ID",
	"OGCARD_SIGNER_KEY",
	"OGCARD_ENS_REGISTRY",
	"OGCARD_ENS_PUBLIC_RESOLVER",
	"OGCARD_RESOLVER_SUFFIXES",
	"OGCARD_JUSTANAME_API_URL",
	"OGCARD_SIGNIN_DOMAIN",
}

// isolateConfigEnv saves and unsets all OGCARD_ env vars so tests don't
// inherit values from the host environment (e.g. a .env loaded by a dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "ogcard.db", cfg.DBPath)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.RateLimitRefresh)
	assert.Equal(t, "https://cdn.jsdelivr.net", cfg.CDNBaseURL)
	assert.False(t, cfg.AllowPartialUpload)
	assert.Equal(t, int64(1), cfg.ChainID)
	assert.Equal(t, defaultRegistry, cfg.ENSRegistry)
	assert.Equal(t, defaultPublicResolver, cfg.PublicResolver)
	assert.Equal(t, map[string]string{"yodl.eth": defaultPublicResolver}, cfg.ResolverSuffixes)
	assert.Equal(t, "https://api.justaname.id/ens/v1", cfg.JustaNameAPIURL)
	assert.Equal(t, "ogcard.local", cfg.SignInDomain)
	assert.Empty(t, cfg.SecretKey)
	assert.Empty(t, cfg.GitHubToken)
	assert.False(t, cfg.HasChain())
	assert.False(t, cfg.HasSigner())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("OGCARD_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("OGCARD_DB_PATH", "/tmp/test.db")
	t.Setenv("OGCARD_LOG_LEVEL", "debug")
	t.Setenv("OGCARD_SECRET_KEY", "hunter2")
	t.Setenv("OGCARD_GITHUB_TOKEN", " ghp_test123 ")
	t.Setenv("OGCARD_RATE_LIMIT_REFRESH", "90s")
	t.Setenv("OGCARD_CDN_BASE_URL", "https://cdn.example/")
	t.Setenv("OGCARD_ALLOW_PARTIAL_UPLOAD", "true")
	t.Setenv("OGCARD_ETH_RPC_URL", "http://localhost:8545")
	t.Setenv("OGCARD_CHAIN_ID", "11155111")
	t.Setenv("OGCARD_SIGNER_KEY", "0xabc")
	t.Setenv("OGCARD_JUSTANAME_API_URL", "http://jan.test/v1/")
	t.Setenv("OGCARD_SIGNIN_DOMAIN", "cards.example")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "hunter2", cfg.SecretKey)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, 90*time.Second, cfg.RateLimitRefresh)
	assert.Equal(t, "https://cdn.example", cfg.CDNBaseURL)
	assert.True(t, cfg.AllowPartialUpload)
	assert.Equal(t, int64(11155111), cfg.ChainID)
	assert.Equal(t, "http://jan.test/v1", cfg.JustaNameAPIURL)
	assert.Equal(t, "cards.example", cfg.SignInDomain)
	assert.True(t, cfg.HasChain())
	assert.True(t, cfg.HasSigner())
}

func TestLoad_ResolverSuffixes(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("OGCARD_RESOLVER_SUFFIXES",
		"Yodl.ETH=0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63, .cards.eth.=0x00000000000000000000000000000000000000bb,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"yodl.eth":  "0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63",
		"cards.eth": "0x00000000000000000000000000000000000000bb",
	}, cfg.ResolverSuffixes)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"refresh not a duration", "OGCARD_RATE_LIMIT_REFRESH", "not-a-duration", "OGCARD_RATE_LIMIT_REFRESH"},
		{"refresh not positive", "OGCARD_RATE_LIMIT_REFRESH", "0s", "OGCARD_RATE_LIMIT_REFRESH"},
		{"partial not a bool", "OGCARD_ALLOW_PARTIAL_UPLOAD", "sometimes", "OGCARD_ALLOW_PARTIAL_UPLOAD"},
		{"chain id not a number", "OGCARD_CHAIN_ID", "mainnet", "OGCARD_CHAIN_ID"},
		{"chain id negative", "OGCARD_CHAIN_ID", "-1", "OGCARD_CHAIN_ID"},
		{"registry not an address", "OGCARD_ENS_REGISTRY", "0x1234", "OGCARD_ENS_REGISTRY"},
		{"public resolver not an address", "OGCARD_ENS_PUBLIC_RESOLVER", "resolver.eth", "OGCARD_ENS_PUBLIC_RESOLVER"},
		{"suffix without address", "OGCARD_RESOLVER_SUFFIXES", "yodl.eth", "OGCARD_RESOLVER_SUFFIXES"},
		{"suffix with bad address", "OGCARD_RESOLVER_SUFFIXES", "yodl.eth=0xnope", "OGCARD_RESOLVER_SUFFIXES"},
		{"unknown log level", "OGCARD_LOG_LEVEL", "chatty", "OGCARD_LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
