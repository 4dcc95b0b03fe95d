package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestIndexDryRunPrintsSummary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rfc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "rfc", "rfc9113.txt"), []byte(strings.Repeat("frame stream ", 300)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.docx"), []byte("plain text"), 0o644))

	stdout, _, err := run(t, "index", root, "--store=false", "--chunk-size", "200", "--overlap", "50", "--log-level", "error")
	require.NoError(t, err)

	var summary pipeline.RunSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.True(t, summary.DryRun)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.NoChunks)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4, summary.TotalChunks)
}

func TestIndexRejectsBadChunkSettings(t *testing.T) {
	_, _, err := run(t, "index", t.TempDir(), "--store=false", "--chunk-size", "100", "--overlap", "100")
	assert.ErrorIs(t, err, errs.ErrChunking)
}

func TestDeleteNeedsOneSelector(t *testing.T) {
	_, _, err := run(t, "delete")
	assert.Error(t, err)

	_, _, err = run(t, "delete", "--doc-id", "a", "--source", "b")
	assert.Error(t, err)
}

func TestSearchRejectsUnknownDocType(t *testing.T) {
	_, _, err := run(t, "search", "query", "--doc-type", "novel")
	assert.ErrorIs(t, err, errs.ErrInvalidDocType)
}
