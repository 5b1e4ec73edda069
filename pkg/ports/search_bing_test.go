package ports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBingSearch_Search_ParsesResults(t *testing.T) {
	var gotKey, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotQuery = r.URL.Query().Get("q")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"webPages":{"value":[
			{"name":"降噪耳机测评","url":"https://example.com/1","snippet":"体验不错"},
			{"name":"降噪耳机价格","url":"https://example.com/2","snippet":"性价比高"}
		]}}`))
	}))
	defer server.Close()

	b := NewBingSearch("test-key", server.URL)
	results, err := b.Search(context.Background(), "降噪耳机", 2, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "降噪耳机", gotQuery)
	assert.Equal(t, "降噪耳机测评", results[0].Title)
	assert.Equal(t, "bing", results[0].Source)
}

func TestBingSearch_Search_AppendsSearchType(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"webPages":{"value":[]}}`))
	}))
	defer server.Close()

	b := NewBingSearch("test-key", server.URL)
	_, err := b.Search(context.Background(), "降噪耳机", 5, "news")
	require.NoError(t, err)
	assert.Equal(t, "降噪耳机 news", gotQuery)
}

func TestBingSearch_Search_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	b := NewBingSearch("bad-key", server.URL)
	_, err := b.Search(context.Background(), "q", 1, "")
	assert.Error(t, err)
}

func TestBingSearch_FormatResultsAsContext(t *testing.T) {
	b := NewBingSearch("key", "")
	results := []SearchResult{{Title: "标题", Snippet: "摘要", URL: "https://example.com"}}
	text := b.FormatResultsAsContext(results)
	assert.Contains(t, text, "标题")
	assert.Contains(t, text, "摘要")
	assert.Contains(t, text, "https://example.com")
}

func TestBingSearch_FormatResultsAsContext_Empty(t *testing.T) {
	b := NewBingSearch("key", "")
	assert.Equal(t, "", b.FormatResultsAsContext(nil))
}
