package repo

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/varun/sleuth/internal/fault"
)

const (
	maxFileBytes = 512 * 1024
	// snapshotName is the one durable artifact per ingested repository.
	snapshotName = "snapshot.json"
)

// defaultExcludes are always applied on top of the repository's own
// .gitignore.
var defaultExcludes = []string{
	".git/",
	"node_modules/",
	"dist/",
	"build/",
	"vendor/",
	"*.min.js",
}

// FileEntry is one text file captured at ingest time.
type FileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type snapshot struct {
	Source string      `json:"source"`
	Files  []FileEntry `json:"files"`
}

// Service ingests local repositories into per-file snapshots and serves
// their flattened content. It is the repository collaborator behind
// IngestRepo / GetRepoContent.
type Service struct {
	workspace string
}

func NewService(workspace string) *Service {
	return &Service{workspace: workspace}
}

// Ingest walks the source directory, skips ignored, binary and
// oversized files, and persists a snapshot. The repo id is derived from
// the cleaned absolute source path so re-ingesting the same tree is
// idempotent.
func (s *Service) Ingest(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("resolve source: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("source %s: %w", source, fault.ErrNotFound)
	}

	repoID := repoIDFor(abs)
	rules := loadIgnoreRules(abs)

	var files []FileEntry
	err = filepath.WalkDir(abs, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(abs, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rules.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if rules.MatchesPath(rel) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || fi.Size() > maxFileBytes {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if !looksLikeText(data) {
			return nil
		}
		files = append(files, FileEntry{Path: rel, Content: string(data)})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", source, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	dir := filepath.Join(s.workspace, "ingest", repoID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := json.Marshal(snapshot{Source: abs, Files: files})
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, snapshotName), data, 0644); err != nil {
		return "", err
	}
	return repoID, nil
}

// Files returns the snapshot entries for a previously ingested repo.
func (s *Service) Files(repoID string) ([]FileEntry, error) {
	path := filepath.Join(s.workspace, "ingest", repoID, snapshotName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("repo %s: %w", repoID, fault.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", repoID, err)
	}
	return snap.Files, nil
}

// Content returns the flattened, line-numbered text of the repository,
// one delimited block per file.
func (s *Service) Content(repoID string) (string, error) {
	files, err := s.Files(repoID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "--- START FILE: %s ---\n", f.Path)
		scanner := bufio.NewScanner(strings.NewReader(f.Content))
		scanner.Buffer(make([]byte, 0, 64*1024), maxFileBytes)
		n := 1
		for scanner.Scan() {
			fmt.Fprintf(&b, "%4d | %s\n", n, scanner.Text())
			n++
		}
		fmt.Fprintf(&b, "--- END FILE: %s ---\n\n", f.Path)
	}
	return b.String(), nil
}

// Lines returns the known line count of every file in the snapshot.
func (s *Service) Lines(repoID string) (map[string]int, error) {
	files, err := s.Files(repoID)
	if err != nil {
		return nil, err
	}
	lines := make(map[string]int, len(files))
	for _, f := range files {
		lines[f.Path] = countLines(f.Content)
	}
	return lines, nil
}

// Excerpt returns a bounded prefix of the file listing plus content,
// used as planning context.
func (s *Service) Excerpt(repoID string, maxChars int) (string, error) {
	files, err := s.Files(repoID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("FILES:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s (%d lines)\n", f.Path, countLines(f.Content))
	}
	content, err := s.Content(repoID)
	if err != nil {
		return "", err
	}
	b.WriteString("\n")
	b.WriteString(content)
	out := b.String()
	if len(out) > maxChars {
		out = out[:maxChars]
	}
	return out, nil
}

func repoIDFor(absPath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absPath)))
	return hex.EncodeToString(sum[:])[:8]
}

func loadIgnoreRules(root string) *ignore.GitIgnore {
	rules := append([]string{}, defaultExcludes...)
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				rules = append(rules, line)
			}
		}
	}
	return ignore.CompileIgnoreLines(rules...)
}

func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	sample := data
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	if !utf8.Valid(sample) {
		return false
	}
	for _, b := range sample {
		if b == 0 {
			return false
		}
	}
	return true
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
