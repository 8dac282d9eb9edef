package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/varun/sleuth/internal/fault"
)

// StripFences removes a surrounding markdown code block from model
// output, if present. Models frequently wrap JSON in ```json fences
// despite being told not to.
func StripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	if idx := strings.Index(clean, "\n"); idx != -1 {
		clean = clean[idx+1:]
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}

// Parse decodes model output into v after fence stripping. The returned
// error is not yet a taxonomy error; callers decide whether to attempt
// a repair first.
func Parse(raw string, v any) error {
	clean := StripFences(raw)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		snippet := clean
		if len(snippet) > 100 {
			snippet = snippet[:100] + "..."
		}
		return fmt.Errorf("failed to parse JSON from model response: %v (response was: %s)", err, snippet)
	}
	return nil
}

// validationFailed wraps a parse failure into the taxonomy after the
// one allowed repair attempt has been spent.
func validationFailed(err error) error {
	return fmt.Errorf("%w: %v", fault.ErrValidationFailed, err)
}
