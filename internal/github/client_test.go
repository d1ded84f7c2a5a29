package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient("acme/starter", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidRepository(t *testing.T) {
	t.Parallel()

	_, err := NewClient("not-a-repo")
	assert.Error(t, err)
}

func TestClient_ListTags_Paginates(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/starter/tags", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "57")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"name":"v1.0.0","commit":{"sha":"c1"}}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/acme/starter/tags?page=2&per_page=100>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"name":"v2.0.0","commit":{"sha":"c2"}},{"name":"v1.1.0","commit":{"sha":"c3"}}]`)
	})

	c := newTestClient(t, mux)

	tags, err := c.ListTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Tag{
		{Name: "v2.0.0", SHA: "c2"},
		{Name: "v1.1.0", SHA: "c3"},
		{Name: "v1.0.0", SHA: "c1"},
	}, tags)

	rate, ok := c.LastRate()
	require.True(t, ok)
	assert.Equal(t, 60, rate.Limit)
	assert.Equal(t, 57, rate.Remaining)
}

func TestClient_ListReleases(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/starter/releases", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"tag_name":"v2.0.0","name":"Two","body":"notes","published_at":"2026-01-02T03:04:05Z","prerelease":false,"draft":false},
			{"tag_name":"v2.1.0-rc.1","name":"RC","prerelease":true}
		]`)
	})

	c := newTestClient(t, mux)

	releases, err := c.ListReleases(context.Background())
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "v2.0.0", releases[0].TagName)
	assert.Equal(t, "notes", releases[0].Body)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), releases[0].PublishedAt.UTC())
	assert.True(t, releases[1].Prerelease)
}

func TestClient_FileContent(t *testing.T) {
	t.Parallel()

	encoded := base64.StdEncoding.EncodeToString([]byte("hello\n"))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/starter/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "v1.0.0", r.URL.Query().Get("ref"))
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","path":"README.md","content":%q}`, encoded)
	})
	mux.HandleFunc("/repos/acme/starter/contents/docs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"type":"file","path":"docs/a.md"}]`)
	})
	mux.HandleFunc("/repos/acme/starter/contents/missing.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	content, err := c.FileContent(ctx, "README.md", "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", content)

	_, err = c.FileContent(ctx, "docs", "v1.0.0")
	assert.ErrorIs(t, err, ErrNotAFile)

	_, err = c.FileContent(ctx, "missing.txt", "v1.0.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_RateLimited(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(30 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/starter/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded for 127.0.0.1."}`)
	})

	c := newTestClient(t, mux)

	_, err := c.ListTags(context.Background())
	require.Error(t, err)

	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 60, rateErr.Limit)
	assert.Equal(t, reset.Unix(), rateErr.Reset.Unix())
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestClient_FileTree(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/starter/git/ref/tags/v1.0.0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ref":"refs/tags/v1.0.0","object":{"type":"tag","sha":"tagobj"}}`)
	})
	mux.HandleFunc("/repos/acme/starter/git/tags/tagobj", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"tagobj","object":{"type":"commit","sha":"commit1"}}`)
	})
	mux.HandleFunc("/repos/acme/starter/git/ref/tags/main", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/repos/acme/starter/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ref":"refs/heads/main","object":{"type":"commit","sha":"commit1"}}`)
	})
	mux.HandleFunc("/repos/acme/starter/git/commits/commit1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"commit1","tree":{"sha":"tree1"}}`)
	})
	mux.HandleFunc("/repos/acme/starter/git/trees/tree1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		fmt.Fprint(w, `{"sha":"tree1","truncated":false,"tree":[
			{"path":"README.md","type":"blob"},
			{"path":"src","type":"tree"},
			{"path":"src/index.ts","type":"blob"},
			{"path":"vendor/lib","type":"commit"}
		]}`)
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	for _, ref := range []string{"v1.0.0", "main"} {
		paths, err := c.FileTree(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, []string{"README.md", "src/index.ts"}, paths, ref)
	}
}

func TestClient_FileTree_UnknownRef(t *testing.T) {
	t.Parallel()

	notFound := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/starter/git/ref/tags/nope", notFound)
	mux.HandleFunc("/repos/acme/starter/git/ref/heads/nope", notFound)

	c := newTestClient(t, mux)

	_, err := c.FileTree(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
