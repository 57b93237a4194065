package cognition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"cogni/internal/value"
)

// Fingerprint digests a variable snapshot: RFC 8785 canonical JSON hashed
// with SHA-256. Two deliberations seeing the same fingerprint have made no
// progress on program state.
func Fingerprint(vars map[string]value.Value) (string, error) {
	flat := make(map[string]any, len(vars))
	for k, v := range vars {
		flat[k] = value.ToJSON(v)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return "", fmt.Errorf("fingerprint marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
