package approval

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/varun/sleuth/internal/store"
)

// Gate computes and verifies HMAC-SHA256 approval signatures over the
// canonical bytes of a plan's steps.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Canonicalize serializes steps to a stable byte sequence: a JSON array
// of objects with sorted keys, so the same logical plan always encodes
// identically regardless of construction order.
func Canonicalize(steps []store.Step) ([]byte, error) {
	canonical := make([]map[string]any, 0, len(steps))
	for _, s := range steps {
		args := map[string]string{}
		for k, v := range s.Args {
			args[k] = v
		}
		// encoding/json writes map keys in sorted order.
		canonical = append(canonical, map[string]any{
			"args":    args,
			"purpose": s.Purpose,
			"tool":    s.Tool,
		})
	}
	b, err := json.Marshal(canonical)
	if err != nil {
		return nil, fmt.Errorf("canonicalize steps: %w", err)
	}
	return b, nil
}

// Sign returns the hex HMAC-SHA256 of the canonical step bytes.
func (g *Gate) Sign(steps []store.Step) (string, error) {
	canon, err := Canonicalize(steps)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(canon)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature from steps and compares it against
// the supplied one in constant time. Steps must come from the stored
// plan, never from caller-supplied content.
func (g *Gate) Verify(steps []store.Step, signature string) (bool, error) {
	expected, err := g.Sign(steps)
	if err != nil {
		return false, err
	}
	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return false, nil
	}
	want, _ := hex.DecodeString(expected)
	return hmac.Equal(want, supplied), nil
}
