// Package justaname implements the RecordsAPI port against the JustaName
// off-chain ENS records service.
package justaname

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordsAPI = (*Client)(nil)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

// Client talks to the JustaName REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	providerURL string
}

// NewClient creates a Client for the API rooted at baseURL
// (e.g. https://api.justaname.id/ens/v1). providerURL is the JSON-RPC endpoint
// JustaName should use for on-chain fallbacks; it may be empty.
func NewClient(baseURL, providerURL string) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: 15 * time.Second}, baseURL, providerURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, providerURL string) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		providerURL: providerURL,
	}
}

type textRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// recordsResponse is the envelope of GET /subname/records.
type recordsResponse struct {
	StatusCode int `json:"statusCode"`
	Result     struct {
		Data *struct {
			ENS     string `json:"ens"`
			IsJAN   bool   `json:"isJAN"`
			Records struct {
				ResolverAddress string       `json:"resolverAddress"`
				Texts           []textRecord `json:"texts"`
			} `json:"records"`
		} `json:"data"`
		Error any `json:"error"`
	} `json:"result"`
}

// LookupRecords fetches the records JustaName holds for name.
// Returns (nil, nil) when the service does not know it.
func (c *Client) LookupRecords(ctx context.Context, name string) (*model.OffchainRecords, error) {
	q := url.Values{}
	q.Set("ens", name)
	if c.providerURL != "" {
		q.Set("providerUrl", c.providerURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/subname/records?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating records request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("justaname records %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		slog.Debug("justaname: name not found", "name", name)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("justaname records %s: %s", name, readError(resp))
	}

	var body recordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding justaname records %s: %w", name, err)
	}

	data := body.Result.Data
	if data == nil {
		return nil, nil
	}

	records := &model.OffchainRecords{
		Name:            name,
		IsJAN:           data.IsJAN,
		ResolverAddress: data.Records.ResolverAddress,
		Texts:           make(map[string]string, len(data.Records.Texts)),
	}
	if data.ENS != "" {
		records.Name = data.ENS
	}
	for _, t := range data.Records.Texts {
		records.Texts[t.Key] = t.Value
	}

	return records, nil
}

// txtRecordRequest is the JSON body of POST /subname/txtrecord.
type txtRecordRequest struct {
	ENS     string       `json:"ens"`
	ChainID int64        `json:"chainId"`
	Text    []textRecord `json:"text"`
}

// UpdateTextRecords submits a signed gasless text record update. The sign-in
// message travels in x-message with its newlines escaped, since header values
// cannot span lines.
func (c *Client) UpdateTextRecords(ctx context.Context, update model.SignedTextUpdate) error {
	texts := make([]textRecord, 0, len(update.Texts))
	for k, v := range update.Texts {
		texts = append(texts, textRecord{Key: k, Value: v})
	}
	sort.Slice(texts, func(i, j int) bool { return texts[i].Key < texts[j].Key })

	bodyBytes, err := json.Marshal(txtRecordRequest{
		ENS:     update.Name,
		ChainID: update.ChainID,
		Text:    texts,
	})
	if err != nil {
		return fmt.Errorf("marshaling txtrecord request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/subname/txtrecord", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating txtrecord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-message", EscapeMessage(update.Message))
	req.Header.Set("x-address", update.Address)
	req.Header.Set("x-signature", update.Signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("justaname txtrecord %s: %w", update.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("justaname txtrecord %s: %s", update.Name, readError(resp))
	}

	slog.Info("justaname text records updated", "name", update.Name, "keys", len(texts))
	return nil
}

// EscapeMessage turns a multi-line sign-in message into a single header-safe line.
func EscapeMessage(message string) string {
	return strings.ReplaceAll(message, "\n", `\n`)
}

func readError(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
}
