// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultRegistry       = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"
	defaultPublicResolver = "0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// SecretKey is the raw secret the credential encryption key is derived
	// from. Empty means tokens are kept in memory only.
	SecretKey   string
	GitHubToken string

	RateLimitRefresh   time.Duration
	CDNBaseURL         string
	AllowPartialUpload bool

	EthRPCURL        string
	ChainID          int64
	SignerKey        string
	ENSRegistry      string
	PublicResolver   string
	ResolverSuffixes map[string]string
	JustaNameAPIURL  string
	SignInDomain     string
}

// HasChain reports whether an Ethereum RPC endpoint is configured.
func (c *Config) HasChain() bool {
	return c.EthRPCURL != ""
}

// HasSigner reports whether a signing key is configured.
func (c *Config) HasSigner() bool {
	return c.SignerKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional; see the OGCARD_ variables below for defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       envOr("OGCARD_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:           envOr("OGCARD_DB_PATH", "ogcard.db"),
		LogLevel:         slog.LevelInfo,
		SecretKey:        os.Getenv("OGCARD_SECRET_KEY"),
		GitHubToken:      strings.TrimSpace(os.Getenv("OGCARD_GITHUB_TOKEN")),
		RateLimitRefresh: 5 * time.Minute,
		CDNBaseURL:       strings.TrimRight(envOr("OGCARD_CDN_BASE_URL", "https://cdn.jsdelivr.net"), "/"),
		EthRPCURL:        os.Getenv("OGCARD_ETH_RPC_URL"),
		ChainID:          1,
		SignerKey:        strings.TrimSpace(os.Getenv("OGCARD_SIGNER_KEY")),
		ENSRegistry:      envOr("OGCARD_ENS_REGISTRY", defaultRegistry),
		PublicResolver:   envOr("OGCARD_ENS_PUBLIC_RESOLVER", defaultPublicResolver),
		JustaNameAPIURL:  strings.TrimRight(envOr("OGCARD_JUSTANAME_API_URL", "https://api.justaname.id/ens/v1"), "/"),
		SignInDomain:     envOr("OGCARD_SIGNIN_DOMAIN", "ogcard.local"),
	}

	if v, ok := os.LookupEnv("OGCARD_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("OGCARD_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	if v, ok := os.LookupEnv("OGCARD_RATE_LIMIT_REFRESH"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("OGCARD_RATE_LIMIT_REFRESH has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("OGCARD_RATE_LIMIT_REFRESH must be positive, got %s", parsed)
		}
		cfg.RateLimitRefresh = parsed
	}

	if v, ok := os.LookupEnv("OGCARD_ALLOW_PARTIAL_UPLOAD"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("OGCARD_ALLOW_PARTIAL_UPLOAD has invalid boolean %q: %w", v, err)
		}
		cfg.AllowPartialUpload = parsed
	}

	if v, ok := os.LookupEnv("OGCARD_CHAIN_ID"); ok && v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("OGCARD_CHAIN_ID has invalid chain id %q", v)
		}
		cfg.ChainID = parsed
	}

	if !common.IsHexAddress(cfg.ENSRegistry) {
		return nil, fmt.Errorf("OGCARD_ENS_REGISTRY is not an address: %q", cfg.ENSRegistry)
	}
	if !common.IsHexAddress(cfg.PublicResolver) {
		return nil, fmt.Errorf("OGCARD_ENS_PUBLIC_RESOLVER is not an address: %q", cfg.PublicResolver)
	}

	suffixes, err := parseSuffixes(os.Getenv("OGCARD_RESOLVER_SUFFIXES"), cfg.PublicResolver)
	if err != nil {
		return nil, err
	}
	cfg.ResolverSuffixes = suffixes

	return cfg, nil
}

// parseSuffixes reads comma separated suffix=address pairs. An empty value
// maps yodl.eth to the public resolver.
func parseSuffixes(raw, publicResolver string) (map[string]string, error) {
	suffixes := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		suffixes["yodl.eth"] = publicResolver
		return suffixes, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		suffix, address, ok := strings.Cut(pair, "=")
		suffix = strings.Trim(strings.ToLower(strings.TrimSpace(suffix)), ".")
		address = strings.TrimSpace(address)
		if !ok || suffix == "" || !common.IsHexAddress(address) {
			return nil, fmt.Errorf("OGCARD_RESOLVER_SUFFIXES has invalid entry %q: expected suffix=0xaddress", pair)
		}
		suffixes[suffix] = address
	}
	return suffixes, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
