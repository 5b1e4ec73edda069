// Package docbinding implements document binding: surfacing a
// session's uploaded documents as bounded, labelled context text for
// the Memory Service / Orchestrator to fold into a turn. Grounded on
// runbook.Cache's fetch/bound/label idiom, adapted from URL-keyed
// runbook text to session-keyed uploaded documents.
package docbinding

import (
	"context"
	"log/slog"
	"strings"
)

// Document is one uploaded file bound to a session.
type Document struct {
	OriginalFilename string
	Content          string
}

// Store resolves the documents bound to a session.
type Store interface {
	DocumentsForSession(ctx context.Context, sessionID string) ([]Document, error)
}

// Binder surfaces session document context.
type Binder struct {
	store Store
	log   *slog.Logger
}

// New builds a Binder over store.
func New(store Store) *Binder {
	return &Binder{store: store, log: slog.With("component", "doc_binding")}
}

const separator = "\n---\n"

// GetSessionDocumentContext returns a single string concatenating the
// session's documents, each truncated to maxCharsPerDoc and labelled
// 【文档：<original_filename>】, separated by a horizontal rule, stopping
// before the running total would exceed maxTotalChars. Never raises —
// a store failure is logged and yields an empty string.
func (b *Binder) GetSessionDocumentContext(ctx context.Context, sessionID string, maxCharsPerDoc, maxTotalChars int) string {
	docs, err := b.store.DocumentsForSession(ctx, sessionID)
	if err != nil {
		b.log.Warn("failed to load session documents, returning empty context", "session_id", sessionID, "error", err)
		return ""
	}
	if len(docs) == 0 {
		return ""
	}

	var parts []string
	total := 0
	for _, doc := range docs {
		labelled := formatDocument(doc, maxCharsPerDoc)
		addedLen := len([]rune(labelled))
		if len(parts) > 0 {
			addedLen += len([]rune(separator))
		}
		if total+addedLen > maxTotalChars {
			b.log.Debug("session document context truncated by max_total_chars", "session_id", sessionID, "included", len(parts), "total", len(docs))
			break
		}
		parts = append(parts, labelled)
		total += addedLen
	}
	return strings.Join(parts, separator)
}

func formatDocument(doc Document, maxCharsPerDoc int) string {
	content := doc.Content
	runes := []rune(content)
	if maxCharsPerDoc > 0 && len(runes) > maxCharsPerDoc {
		content = string(runes[:maxCharsPerDoc]) + "…(已截断)"
	}
	return "【文档：" + doc.OriginalFilename + "】\n" + content
}
