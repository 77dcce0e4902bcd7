package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// AuditDeleter removes archived rows from the primary store. The postgres
// audit store satisfies it; the memory store does not need to.
type AuditDeleter interface {
	Delete(ctx context.Context, ids []string) error
}

// Archiver drains old audit-log entries to the blob store as JSONL,
// partitioned by year-month of the cutoff. Rows are deleted from the primary
// store only after the upload succeeded; a crash between the two at worst
// re-archives the same rows.
type Archiver struct {
	writer  domain.BlobWriter
	audit   domain.AuditStore
	deleter AuditDeleter
	logger  *slog.Logger

	// BatchSize bounds how many rows one Run drains; zero means no bound.
	BatchSize int
}

// NewArchiver creates an Archiver. deleter may be nil, in which case
// archived rows stay in the primary store.
func NewArchiver(writer domain.BlobWriter, audit domain.AuditStore, deleter AuditDeleter, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:  writer,
		audit:   audit,
		deleter: deleter,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// Run archives every audit entry older than the cutoff and returns the
// number of rows archived.
func (a *Archiver) Run(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before, a.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath("audit", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	count := int64(len(entries))
	if a.deleter != nil {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if err := a.deleter.Delete(ctx, ids); err != nil {
			return count, fmt.Errorf("s3blob: archive audit delete: %w", err)
		}
	}

	if err := a.audit.Log(ctx, "archive.audit", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive audit log: %w", err)
	}

	a.logger.InfoContext(ctx, "audit entries archived",
		slog.String("path", path),
		slog.Int64("count", count),
	)
	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/audit/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
