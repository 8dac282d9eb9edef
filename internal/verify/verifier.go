package verify

import (
	"regexp"
	"strconv"

	"github.com/varun/sleuth/internal/observability"
	"github.com/varun/sleuth/internal/store"
)

// citationRe matches the literal form <path>:<positive integer>. The
// path may itself contain colons (Windows drives are out of scope); the
// final colon-delimited field must be the line number.
var citationRe = regexp.MustCompile(`^(.+):([1-9][0-9]*)$`)

// Verifier checks citations asserted by an analysis narrative against
// tool findings and the known line ranges of the ingested repository.
type Verifier struct {
	Logger *observability.Logger
}

func NewVerifier(logger *observability.Logger) *Verifier {
	return &Verifier{Logger: logger}
}

// Verdict is the outcome of verifying one analysis step's citations.
type Verdict struct {
	Accepted []string
	Rejected []string
}

// Sufficient reports whether the analysis kept at least one accepted
// citation. A step with zero accepted citations may not be reported as
// a success no matter what the reasoning backend claimed.
func (v Verdict) Sufficient() bool {
	return len(v.Accepted) > 0
}

// Parse splits a citation into path and line. ok is false when the
// citation is syntactically malformed.
func Parse(citation string) (path string, line int, ok bool) {
	m := citationRe.FindStringSubmatch(citation)
	if m == nil {
		return "", 0, false
	}
	line, err := strconv.Atoi(m[2])
	if err != nil || line <= 0 {
		return "", 0, false
	}
	return m[1], line, true
}

// Verify decides each citation: accepted if a finding matches the file
// path and line number, or if the cited line falls within the file's
// known line range; rejected otherwise. Rejections are logged, never
// silently dropped.
func (v *Verifier) Verify(planID string, citations []string, findings []store.Finding, repoLines map[string]int) Verdict {
	var verdict Verdict
	for _, c := range citations {
		path, line, ok := Parse(c)
		if !ok {
			v.reject(planID, c, "malformed citation")
			verdict.Rejected = append(verdict.Rejected, c)
			continue
		}
		if matchesFinding(path, line, findings) || withinRepo(path, line, repoLines) {
			verdict.Accepted = append(verdict.Accepted, c)
			continue
		}
		v.reject(planID, c, "no matching finding or repository line")
		verdict.Rejected = append(verdict.Rejected, c)
	}
	return verdict
}

func matchesFinding(path string, line int, findings []store.Finding) bool {
	for _, f := range findings {
		if f.FilePath == path && f.LineNumber == line {
			return true
		}
	}
	return false
}

func withinRepo(path string, line int, repoLines map[string]int) bool {
	total, ok := repoLines[path]
	return ok && line <= total
}

func (v *Verifier) reject(planID, citation, reason string) {
	if v.Logger == nil {
		return
	}
	v.Logger.Log(observability.Event{
		Type:   observability.EventTypeVerify,
		PlanID: planID,
		Data: map[string]string{
			"citation": citation,
			"verdict":  "rejected",
			"reason":   reason,
		},
	})
}
