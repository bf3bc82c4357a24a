package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

// GetAuthenticatedUser returns the identity behind the client's token.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (model.Identity, error) {
	return fetchIdentity(ctx, c.gh)
}

// ValidateToken verifies that the given GitHub personal access token is valid
// and returns its identity on success. It creates a one-shot client with the
// provided token to avoid mutating the receiver's state.
func (c *Client) ValidateToken(ctx context.Context, token string) (model.Identity, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second, Transport: c.httpClient.Transport}
	tempClient := gh.NewClient(httpClient)
	tempClient.BaseURL = c.baseURL
	tempClient = tempClient.WithAuthToken(token)

	identity, err := fetchIdentity(ctx, tempClient)
	if err != nil {
		return model.Identity{}, fmt.Errorf("token validation failed: %w", err)
	}
	return identity, nil
}

func fetchIdentity(ctx context.Context, client *gh.Client) (model.Identity, error) {
	user, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		return model.Identity{}, classifyError("get_user", resp, err)
	}
	metrics.RecordGitHubCall("get_user", "ok")
	logRateLimit(resp, "user", 0, 1)

	return model.Identity{
		Login:  user.GetLogin(),
		Name:   user.GetName(),
		Scopes: parseScopes(resp),
	}, nil
}

// parseScopes reads X-OAuth-Scopes. Fine-grained tokens omit the header
// entirely, which is reported as nil rather than an empty list.
func parseScopes(resp *gh.Response) []string {
	if resp == nil || resp.Response == nil {
		return nil
	}
	values, ok := resp.Header[http.CanonicalHeaderKey("X-OAuth-Scopes")]
	if !ok {
		return nil
	}

	scopes := []string{}
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}
	return scopes
}
