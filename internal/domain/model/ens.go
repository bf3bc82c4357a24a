package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TextRecordKey is the ENS text record that carries the JSON document.
const TextRecordKey = "me.yodl"

// ResolverSource names the strategy that produced a resolver handle.
type ResolverSource string

const (
	ResolverSourceJustaName ResolverSource = "justaname"
	ResolverSourceRegistry  ResolverSource = "registry"
	ResolverSourceSuffix    ResolverSource = "suffix"
	ResolverSourcePublic    ResolverSource = "public"
)

// ResolverHandle is a resolver located for a name, optionally carrying the
// record value the locating strategy already saw.
type ResolverHandle struct {
	Name      string
	Address   string // Hex resolver address; empty for purely off-chain JustaName names.
	Source    ResolverSource
	Offchain  bool // Hosted by JustaName; writes go through the gasless API.
	Record    string
	HasRecord bool
}

// OffchainRecords is what the JustaName records API knows about a name.
type OffchainRecords struct {
	Name            string
	IsJAN           bool
	ResolverAddress string
	Texts           map[string]string
}

// SignedTextUpdate is a gasless text record update authorized by a signed
// sign-in message.
type SignedTextUpdate struct {
	Name      string
	ChainID   int64
	Texts     map[string]string
	Message   string
	Address   string
	Signature string
}

// WriteMode selects how a text record is written.
type WriteMode string

const (
	WriteModeAuto     WriteMode = "auto"
	WriteModeOnchain  WriteMode = "onchain"
	WriteModeOffchain WriteMode = "offchain"
)

// ParseWriteMode converts a string to a WriteMode; empty means auto.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", WriteModeAuto:
		return WriteModeAuto, nil
	case WriteModeOnchain:
		return WriteModeOnchain, nil
	case WriteModeOffchain:
		return WriteModeOffchain, nil
	default:
		return "", fmt.Errorf("unknown write mode %q", s)
	}
}

// RecordWriteResult is the outcome of a text record update.
type RecordWriteResult struct {
	Name     string
	Mode     WriteMode
	Document string
	TxHash   string // Set for on-chain writes only.
}

// NormalizeName lowercases and trims an ENS name and checks it has at least
// two non-empty labels.
func NormalizeName(name string) (string, error) {
	n := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if n == "" {
		return "", fmt.Errorf("%w: empty name", ErrResolverNotFound)
	}
	labels := strings.Split(n, ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("%w: %q is not a dotted name", ErrResolverNotFound, name)
	}
	for _, l := range labels {
		if l == "" || strings.ContainsAny(l, " \t/") {
			return "", fmt.Errorf("%w: %q has an invalid label", ErrResolverNotFound, name)
		}
	}
	return n, nil
}

// MergeOGBaseURL sets og.baseUrl in the JSON document held by a text record.
// Every other key is kept as-is. An empty, malformed or non-object document is
// treated as {}, as is one with anything but whitespace after the object.
func MergeOGBaseURL(existing, baseURL string) (string, error) {
	doc := map[string]any{}

	if strings.TrimSpace(existing) != "" {
		dec := json.NewDecoder(strings.NewReader(existing))
		dec.UseNumber()
		var parsed map[string]any
		if err := dec.Decode(&parsed); err == nil && parsed != nil && trailingEOF(dec) {
			doc = parsed
		}
	}

	og, ok := doc["og"].(map[string]any)
	if !ok {
		og = map[string]any{}
	}
	og["baseUrl"] = baseURL
	doc["og"] = og

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encoding record document: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// trailingEOF reports whether nothing but whitespace follows the first value.
func trailingEOF(dec *json.Decoder) bool {
	var extra json.RawMessage
	return errors.Is(dec.Decode(&extra), io.EOF)
}

// OGBaseURL extracts og.baseUrl from a record document, if present.
func OGBaseURL(document string) (string, bool) {
	var doc struct {
		OG struct {
			BaseURL string `json:"baseUrl"`
		} `json:"og"`
	}
	if err := json.Unmarshal([]byte(document), &doc); err != nil || doc.OG.BaseURL == "" {
		return "", false
	}
	return doc.OG.BaseURL, true
}
