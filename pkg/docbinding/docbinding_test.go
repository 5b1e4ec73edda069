package docbinding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	docs []Document
	err  error
}

func (f *fakeStore) DocumentsForSession(ctx context.Context, sessionID string) ([]Document, error) {
	return f.docs, f.err
}

func TestGetSessionDocumentContext_LabelsAndJoinsDocuments(t *testing.T) {
	b := New(&fakeStore{docs: []Document{
		{OriginalFilename: "brief.pdf", Content: "品牌简报内容"},
		{OriginalFilename: "notes.txt", Content: "补充说明"},
	}})
	out := b.GetSessionDocumentContext(context.Background(), "s1", 1000, 10000)
	assert.Contains(t, out, "【文档：brief.pdf】")
	assert.Contains(t, out, "【文档：notes.txt】")
	assert.Contains(t, out, "---")
}

func TestGetSessionDocumentContext_TruncatesPerDocument(t *testing.T) {
	b := New(&fakeStore{docs: []Document{{OriginalFilename: "big.txt", Content: strings.Repeat("字", 500)}}})
	out := b.GetSessionDocumentContext(context.Background(), "s1", 10, 10000)
	assert.Contains(t, out, "已截断")
}

func TestGetSessionDocumentContext_StopsAtMaxTotalChars(t *testing.T) {
	docs := []Document{
		{OriginalFilename: "a.txt", Content: strings.Repeat("a", 50)},
		{OriginalFilename: "b.txt", Content: strings.Repeat("b", 50)},
	}
	b := New(&fakeStore{docs: docs})
	out := b.GetSessionDocumentContext(context.Background(), "s1", 100, 80)
	assert.Contains(t, out, "a.txt")
	assert.NotContains(t, out, "b.txt")
}

func TestGetSessionDocumentContext_StoreErrorReturnsEmptyString(t *testing.T) {
	b := New(&fakeStore{err: errors.New("db down")})
	out := b.GetSessionDocumentContext(context.Background(), "s1", 100, 1000)
	assert.Empty(t, out)
}

func TestGetSessionDocumentContext_NoDocumentsReturnsEmptyString(t *testing.T) {
	b := New(&fakeStore{docs: nil})
	out := b.GetSessionDocumentContext(context.Background(), "s1", 100, 1000)
	assert.Empty(t, out)
}
