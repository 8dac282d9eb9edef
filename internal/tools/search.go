package tools

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/internal/store"
)

// SearchTool performs lexical term search over an ingested repository's
// snapshot. Hits are capped and returned as findings so the verifier
// can later back citations with them.
type SearchTool struct {
	Repo    *repo.Service
	MaxHits int
}

func NewSearchTool(repoSvc *repo.Service, maxHits int) *SearchTool {
	if maxHits <= 0 {
		maxHits = 10
	}
	return &SearchTool{Repo: repoSvc, MaxHits: maxHits}
}

func (s *SearchTool) Name() string {
	return NameSearch
}

func (s *SearchTool) Description() string {
	return "Search the ingested repository for lines matching the query terms."
}

func (s *SearchTool) Timeout() time.Duration {
	return TimeoutSearch
}

type hit struct {
	path  string
	line  int
	text  string
	score int
}

func (s *SearchTool) Execute(ctx context.Context, args map[string]string) (*Result, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		return nil, fmt.Errorf("search requires a query argument")
	}
	files, err := s.Repo.Files(args["repo_id"])
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	var hits []hit
	for _, f := range files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		scanner := bufio.NewScanner(strings.NewReader(f.Content))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		n := 0
		for scanner.Scan() {
			n++
			line := scanner.Text()
			lower := strings.ToLower(line)
			score := 0
			for _, t := range terms {
				if strings.Contains(lower, t) {
					score++
				}
			}
			if score > 0 {
				hits = append(hits, hit{path: f.Path, line: n, text: strings.TrimSpace(line), score: score})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].path != hits[j].path {
			return hits[i].path < hits[j].path
		}
		return hits[i].line < hits[j].line
	})
	if len(hits) > s.MaxHits {
		hits = hits[:s.MaxHits]
	}

	var b strings.Builder
	findings := make([]store.Finding, 0, len(hits))
	fmt.Fprintf(&b, "%d hit(s) for %q:\n", len(hits), query)
	for _, h := range hits {
		fmt.Fprintf(&b, "%s:%d: %s\n", h.path, h.line, h.text)
		findings = append(findings, store.Finding{
			SourceTool: NameSearch,
			FilePath:   h.path,
			LineNumber: h.line,
			Text:       h.text,
		})
	}

	return &Result{Output: b.String(), Findings: findings}, nil
}
