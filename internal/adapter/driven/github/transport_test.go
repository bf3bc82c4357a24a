package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	seen []*http.Request
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.seen = append(r.seen, req)
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestFreshContents_OnlyContentsLookupsBypassCache(t *testing.T) {
	rec := &recordingTransport{}
	transport := &freshContents{next: rec}

	tests := []struct {
		method    string
		url       string
		wantFresh bool
	}{
		{http.MethodGet, "https://api.github.com/repos/alice/cards/contents/og/a/inner.png", true},
		{http.MethodPut, "https://api.github.com/repos/alice/cards/contents/og/a/inner.png", false},
		{http.MethodGet, "https://api.github.com/user/repos", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, tt.url, nil)
			require.NoError(t, err)

			resp, err := transport.RoundTrip(req)
			require.NoError(t, err)
			_ = resp.Body.Close()

			sent := rec.seen[len(rec.seen)-1]
			if tt.wantFresh {
				assert.Equal(t, "no-cache", sent.Header.Get("Cache-Control"))
				assert.Empty(t, req.Header.Get("Cache-Control"), "caller's request must not be mutated")
			} else {
				assert.Empty(t, sent.Header.Get("Cache-Control"))
			}
		})
	}
}

// contentsServer keeps files in memory the way the contents API does: GETs
// are cacheable for a minute with an ETag, and a write with a stale SHA is a 409.
type contentsServer struct {
	mu        sync.Mutex
	shas      map[string]string
	revision  int
	conflicts int
	gets      int
}

func (s *contentsServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/alice/cards/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.gets++

		path := r.PathValue("path")
		sha, ok := s.shas[path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}

		etag := `"` + sha + `"`
		w.Header().Set("Cache-Control", "private, max-age=60, s-maxage=60")
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"type": "file", "path": path, "sha": sha})
	})
	mux.HandleFunc("PUT /repos/alice/cards/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SHA *string `json:"sha"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		s.mu.Lock()
		defer s.mu.Unlock()

		path := r.PathValue("path")
		current, exists := s.shas[path]
		sent := ""
		if body.SHA != nil {
			sent = *body.SHA
		}
		if sent != current || (exists && sent == "") {
			s.conflicts++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = fmt.Fprintf(w, `{"message":"%s is at %s but expected %s"}`, path, current, sent)
			return
		}

		s.revision++
		s.shas[path] = fmt.Sprintf("blob%d", s.revision)
		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]string{"path": path, "sha": s.shas[path]},
			"commit":  map[string]string{"sha": fmt.Sprintf("commit%d", s.revision)},
		})
	})
	return mux
}

func TestClientStack_RepeatedUploadOverwritesWithoutConflict(t *testing.T) {
	contents := &contentsServer{shas: map[string]string{}}
	server := httptest.NewServer(contents.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClientWithHTTPClient(newStackedHTTPClient(server.Client().Transport), server.URL+"/", "test-token")
	require.NoError(t, err)

	paths := []string{"og/summer/inner.png", "og/summer/outer.png", "og/summer/overlay.png"}
	ctx := context.Background()

	for round := 1; round <= 3; round++ {
		for _, path := range paths {
			result, err := client.WriteFile(ctx, "alice", "cards", path, []byte("png"), "Upload")
			require.NoError(t, err, "round %d %s", round, path)
			assert.Equal(t, round == 1, result.Created, "round %d %s", round, path)
		}
	}

	assert.Zero(t, contents.conflicts)
	assert.Equal(t, 9, contents.revision)
	assert.Equal(t, 9, contents.gets, "every SHA lookup reaches the server")
}
