package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/notebox/internal/codec"
	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/memstore"
	"github.com/rpggio/notebox/internal/snapshot"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 30, 23, 59, 1, 0, time.UTC)

func newRepo(t *testing.T, shared *memstore.Shared) *record.Repository {
	t.Helper()

	handle := shared.Open()
	store := snapshot.NewStore(handle, "local-notes:v1", nil)
	repo := record.NewRepository(context.Background(), store)
	t.Cleanup(func() {
		repo.Close()
		store.Close()
		_ = handle.Close()
	})
	return repo
}

func newTestServer(t *testing.T, repo *record.Repository, mcpHandler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewServer(Config{
		MCP:         mcpHandler,
		Collections: map[string]Transfer{"notes": codec.New(repo)},
		Now:         func() time.Time { return fixedNow },
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPServer_Health(t *testing.T) {
	server := newTestServer(t, newRepo(t, memstore.NewShared(0)), nil)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_MCPRoute(t *testing.T) {
	var gotSession string
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession, _ = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})
	server := newTestServer(t, newRepo(t, memstore.NewShared(0)), mcpHandler)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	req.Header.Set("Mcp-Session-Id", "sess1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "sess1", gotSession)
}

func TestHTTPServer_Export(t *testing.T) {
	repo := newRepo(t, memstore.NewShared(0))
	_, err := repo.Create(context.Background(), "Hello", "World")
	require.NoError(t, err)
	server := newTestServer(t, repo, nil)

	resp, err := http.Get(server.URL + "/collections/notes/export")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `attachment; filename="notes-export-20240630-235901.json"`, resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var doc struct {
		Version int             `json:"version"`
		Records []record.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Equal(t, 1, doc.Version)
	require.Len(t, doc.Records, 1)
}

func TestHTTPServer_UnknownCollection(t *testing.T) {
	server := newTestServer(t, newRepo(t, memstore.NewShared(0)), nil)

	resp, err := http.Get(server.URL + "/collections/journal/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_Import(t *testing.T) {
	repo := newRepo(t, memstore.NewShared(0))
	server := newTestServer(t, repo, nil)

	post := func(body string) (*http.Response, codec.Result) {
		t.Helper()
		resp, err := http.Post(server.URL+"/collections/notes/import", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var res codec.Result
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		return resp, res
	}

	doc := `{"version": 1, "records": [{"title": "A", "body": "1"}, {"title": "B"}]}`
	resp, res := post(doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, res.Added)
	require.Len(t, repo.List(), 2)

	resp, res = post(doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, res.Added)
	require.Equal(t, 2, res.Skipped)

	resp, res = post("not json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, res.Success)

	resp, _ = post(`{"version": 1, "records": [{"title": ""}]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_ImportQuota(t *testing.T) {
	repo := newRepo(t, memstore.NewShared(64))
	server := newTestServer(t, repo, nil)

	doc := `{"version": 1, "records": [{"title": "long", "body": "` + string(bytes.Repeat([]byte("x"), 200)) + `"}]}`
	resp, err := http.Post(server.URL+"/collections/notes/import", "application/json", bytes.NewBufferString(doc))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInsufficientStorage, resp.StatusCode)
	require.Empty(t, repo.List())
}
