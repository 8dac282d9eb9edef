package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/internal/store"
)

// ingestFixture stands up a tiny repository snapshot the tools can run
// against.
func ingestFixture(t *testing.T) (*repo.Service, string) {
	t.Helper()

	src := t.TempDir()
	files := map[string]string{
		"app.py": "import subprocess\n" +
			"password = \"hunter22\"\n" +
			"def login(user):\n" +
			"    return subprocess.call(user)\n",
		"db.py": "q = \"SELECT * FROM users WHERE id=\" + uid\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(content), 0644))
	}

	svc := repo.NewService(t.TempDir())
	repoID, err := svc.Ingest(src)
	require.NoError(t, err)
	return svc, repoID
}

func TestSearchTool(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewSearchTool(svc, 10)

	res, err := tool.Execute(context.Background(), map[string]string{
		"repo_id": repoID,
		"query":   "password login",
	})
	require.NoError(t, err)
	require.Len(t, res.Findings, 2)

	assert.Equal(t, store.Finding{
		SourceTool: NameSearch,
		FilePath:   "app.py",
		LineNumber: 2,
		Text:       `password = "hunter22"`,
	}, res.Findings[0])
	assert.Equal(t, 3, res.Findings[1].LineNumber)
	assert.Contains(t, res.Output, "app.py:2:")
}

func TestSearchToolCapsHits(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewSearchTool(svc, 1)

	res, err := tool.Execute(context.Background(), map[string]string{
		"repo_id": repoID,
		"query":   "password login",
	})
	require.NoError(t, err)
	assert.Len(t, res.Findings, 1)
}

func TestSearchToolRequiresQuery(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewSearchTool(svc, 10)

	_, err := tool.Execute(context.Background(), map[string]string{"repo_id": repoID})
	assert.Error(t, err)
}

func TestScanTool(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewScanTool(svc, 20)

	res, err := tool.Execute(context.Background(), map[string]string{"repo_id": repoID})
	require.NoError(t, err)
	require.NotEmpty(t, res.Findings)

	// Severity ordering: the hardcoded credential outranks the rest.
	first := res.Findings[0]
	assert.Equal(t, "app.py", first.FilePath)
	assert.Equal(t, 2, first.LineNumber)
	assert.True(t, strings.HasPrefix(first.Text, "[critical/hardcoded-credential]"), first.Text)

	var ids []string
	for _, f := range res.Findings {
		ids = append(ids, f.Text[strings.Index(f.Text, "/")+1:strings.Index(f.Text, "]")])
	}
	assert.Contains(t, ids, "command-execution")
	assert.Contains(t, ids, "sql-string-concat")
}

func TestScanToolCapsFindings(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewScanTool(svc, 1)

	res, err := tool.Execute(context.Background(), map[string]string{"repo_id": repoID})
	require.NoError(t, err)
	assert.Len(t, res.Findings, 1)
}

func TestReadFilesTool(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewReadFilesTool(svc)

	res, err := tool.Execute(context.Background(), map[string]string{
		"repo_id": repoID,
		"paths":   "app.py, missing.py",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "--- START FILE: app.py ---")
	assert.Contains(t, res.Output, "   1 | import subprocess")
	assert.NotContains(t, res.Output, "missing.py")
}

func TestReadFilesToolNoneFound(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewReadFilesTool(svc)

	_, err := tool.Execute(context.Background(), map[string]string{
		"repo_id": repoID,
		"paths":   "ghost.py",
	})
	assert.Error(t, err)
}

func TestReadFilesToolRequiresPaths(t *testing.T) {
	svc, repoID := ingestFixture(t)
	tool := NewReadFilesTool(svc)

	_, err := tool.Execute(context.Background(), map[string]string{"repo_id": repoID})
	assert.Error(t, err)
}
