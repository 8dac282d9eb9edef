package tools

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/varun/sleuth/internal/repo"
)

// ReadFilesTool returns the numbered content of named snapshot files so
// the analyze step can cite exact lines.
type ReadFilesTool struct {
	Repo *repo.Service
}

func NewReadFilesTool(repoSvc *repo.Service) *ReadFilesTool {
	return &ReadFilesTool{Repo: repoSvc}
}

func (r *ReadFilesTool) Name() string {
	return NameReadFiles
}

func (r *ReadFilesTool) Description() string {
	return "Read the content of named repository files with line numbers."
}

func (r *ReadFilesTool) Timeout() time.Duration {
	return TimeoutSearch
}

func (r *ReadFilesTool) Execute(ctx context.Context, args map[string]string) (*Result, error) {
	wanted := map[string]bool{}
	for _, p := range strings.Split(args["paths"], ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			wanted[p] = true
		}
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("read_files requires a paths argument")
	}

	files, err := r.Repo.Files(args["repo_id"])
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	found := 0
	for _, f := range files {
		if !wanted[f.Path] {
			continue
		}
		found++
		fmt.Fprintf(&b, "--- START FILE: %s ---\n", f.Path)
		scanner := bufio.NewScanner(strings.NewReader(f.Content))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		n := 1
		for scanner.Scan() {
			fmt.Fprintf(&b, "%4d | %s\n", n, scanner.Text())
			n++
		}
		fmt.Fprintf(&b, "--- END FILE: %s ---\n\n", f.Path)
	}
	if found == 0 {
		return nil, fmt.Errorf("none of the requested files exist in the snapshot")
	}

	return &Result{Output: b.String()}, nil
}
