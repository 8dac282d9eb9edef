package tools

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/internal/store"
)

// ScanTool runs rule-based static analysis over the whole snapshot. It
// stands in for a heavyweight analyzer behind the same contract:
// findings in, capped to a fixed top-N by severity.
type ScanTool struct {
	Repo        *repo.Service
	MaxFindings int
}

func NewScanTool(repoSvc *repo.Service, maxFindings int) *ScanTool {
	if maxFindings <= 0 {
		maxFindings = 20
	}
	return &ScanTool{Repo: repoSvc, MaxFindings: maxFindings}
}

func (s *ScanTool) Name() string {
	return NameScan
}

func (s *ScanTool) Description() string {
	return "Run static analysis rules over the repository and report security findings."
}

func (s *ScanTool) Timeout() time.Duration {
	return TimeoutScan
}

type rule struct {
	id       string
	severity string
	re       *regexp.Regexp
	message  string
}

var severityRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

var scanRules = []rule{
	{
		id:       "hardcoded-credential",
		severity: "critical",
		re:       regexp.MustCompile(`(?i)(password|passwd|secret|api_key|apikey|auth_token)\s*[:=]\s*["'][^"']{4,}["']`),
		message:  "possible hardcoded credential",
	},
	{
		id:       "sql-string-concat",
		severity: "high",
		re:       regexp.MustCompile(`(?i)["'](SELECT|INSERT|UPDATE|DELETE)\b[^"']*["']\s*(\+|%|\|\|)`),
		message:  "SQL statement built by string concatenation",
	},
	{
		id:       "command-execution",
		severity: "high",
		re:       regexp.MustCompile(`(?i)(os\.system|subprocess\.(call|run|Popen)|exec\.Command|eval\()`),
		message:  "external command or code execution",
	},
	{
		id:       "weak-hash",
		severity: "medium",
		re:       regexp.MustCompile(`(?i)\b(md5|sha1)\s*(\.New)?\(`),
		message:  "weak hash algorithm",
	},
	{
		id:       "tls-verification-disabled",
		severity: "high",
		re:       regexp.MustCompile(`(?i)(verify\s*=\s*False|InsecureSkipVerify\s*:\s*true)`),
		message:  "TLS certificate verification disabled",
	},
}

func (s *ScanTool) Execute(ctx context.Context, args map[string]string) (*Result, error) {
	files, err := s.Repo.Files(args["repo_id"])
	if err != nil {
		return nil, err
	}

	var findings []store.Finding
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
			for _, r := range scanRules {
				if r.re.MatchString(line) {
					findings = append(findings, store.Finding{
						SourceTool: NameScan,
						FilePath:   f.Path,
						LineNumber: n,
						Text:       fmt.Sprintf("[%s/%s] %s: %s", r.severity, r.id, r.message, strings.TrimSpace(line)),
					})
				}
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findingRank(findings[i]), findingRank(findings[j])
		if ri != rj {
			return ri < rj
		}
		if findings[i].FilePath != findings[j].FilePath {
			return findings[i].FilePath < findings[j].FilePath
		}
		return findings[i].LineNumber < findings[j].LineNumber
	})
	if len(findings) > s.MaxFindings {
		findings = findings[:s.MaxFindings]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d finding(s):\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "%s:%d %s\n", f.FilePath, f.LineNumber, f.Text)
	}

	return &Result{Output: b.String(), Findings: findings}, nil
}

func findingRank(f store.Finding) int {
	for sev, rank := range severityRank {
		if strings.HasPrefix(f.Text, "["+sev) {
			return rank
		}
	}
	return len(severityRank)
}
