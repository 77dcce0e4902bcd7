package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/store/memory"
)

type captureWriter struct {
	path        string
	contentType string
	body        []byte
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.path = path
	w.contentType = contentType
	w.body = b
	return nil
}

func TestArchiverDrainsOldEntries(t *testing.T) {
	ctx := context.Background()
	audit := memory.NewAuditStore()
	require.NoError(t, audit.Log(ctx, "mint", map[string]any{"holder": "alice"}))
	require.NoError(t, audit.Log(ctx, "redeem", map[string]any{"holder": "alice"}))

	writer := &captureWriter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	arch := NewArchiver(writer, audit, nil, logger)

	cutoff := time.Now().Add(time.Minute)
	count, err := arch.Run(ctx, cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.Equal(t, archivePath("audit", cutoff), writer.path)
	require.Equal(t, "application/x-ndjson", writer.contentType)
	require.Equal(t, 2, bytes.Count(writer.body, []byte("\n")))
	require.Contains(t, string(writer.body), `"mint"`)
}

func TestArchiverNothingToDo(t *testing.T) {
	ctx := context.Background()
	audit := memory.NewAuditStore()
	writer := &captureWriter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	arch := NewArchiver(writer, audit, nil, logger)

	count, err := arch.Run(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, writer.path)
}
