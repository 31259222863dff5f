package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, mux *http.ServeMux, extensions ...string) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient("", "")
	require.NoError(t, err)
	client.BaseURL, err = url.Parse(srv.URL + "/")
	require.NoError(t, err)

	return NewFetcher(client, "acme", "corpus", "docs", extensions...)
}

func fileJSON(name, path, content string) string {
	return fmt.Sprintf(`{"type":"file","name":%q,"path":%q,"sha":"sha-%s","encoding":"base64","content":%q}`,
		name, path, name, base64.StdEncoding.EncodeToString([]byte(content)))
}

func corpusMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/corpus/contents/docs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"type":"file","name":"a.txt","path":"docs/a.txt"},
			{"type":"file","name":"README.md","path":"docs/README.md"},
			{"type":"file","name":"logo.png","path":"docs/logo.png"},
			{"type":"dir","name":"nested","path":"docs/nested"}
		]`)
	})
	mux.HandleFunc("/repos/acme/corpus/contents/docs/nested", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"type":"file","name":"B.TXT","path":"docs/nested/B.TXT"}]`)
	})
	mux.HandleFunc("/repos/acme/corpus/contents/docs/a.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fileJSON("a.txt", "docs/a.txt", "alpha text"))
	})
	mux.HandleFunc("/repos/acme/corpus/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("path") != "docs" {
			http.Error(w, "unexpected path", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `[{"sha":"abc123"}]`)
	})
	return mux
}

func TestListDocs_FiltersByExtension(t *testing.T) {
	f := newTestFetcher(t, corpusMux())

	docs, err := f.ListDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "nested/B.TXT"}, docs)
}

func TestListDocs_CustomExtensions(t *testing.T) {
	f := newTestFetcher(t, corpusMux(), "md", ".txt")

	docs, err := f.ListDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "README.md", "nested/B.TXT"}, docs)
}

func TestFetchDoc_Decodes(t *testing.T) {
	f := newTestFetcher(t, corpusMux())

	doc, err := f.FetchDoc(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.Path)
	assert.Equal(t, "alpha text", doc.Content)
	assert.Equal(t, "sha-a.txt", doc.SHA)
}

func TestFetchDoc_Missing(t *testing.T) {
	f := newTestFetcher(t, corpusMux())

	_, err := f.FetchDoc(context.Background(), "missing.txt")
	assert.Error(t, err)
}

func TestGetLatestCommitSHA(t *testing.T) {
	f := newTestFetcher(t, corpusMux())

	sha, err := f.GetLatestCommitSHA(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
	assert.Equal(t, "acme/corpus", f.Repository())
}
