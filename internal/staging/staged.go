package staging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"tidy-go/internal/tidy"
)

// stagedPlan is the on-disk envelope of a staged plan. The checksum covers
// the raw plan bytes so a hand-edited file is refused instead of applied.
type stagedPlan struct {
	ID       string          `json:"id"`
	SavedAt  time.Time       `json:"saved_at"`
	Checksum string          `json:"checksum"`
	Plan     json.RawMessage `json:"plan"`
}

func encodePlan(p *tidy.Plan, savedAt time.Time) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding plan %s: %w", p.ID, err)
	}
	env := stagedPlan{
		ID:       p.ID,
		SavedAt:  savedAt,
		Checksum: checksum(raw),
		Plan:     raw,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding plan %s: %w", p.ID, err)
	}
	return data, nil
}

func decodePlan(id string, data []byte) (*tidy.Plan, error) {
	var env stagedPlan
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding staged plan %s: %w", id, err)
	}
	if env.ID != id {
		return nil, fmt.Errorf("staged plan %s: envelope is for %q", id, env.ID)
	}
	// The envelope is indented on disk; the checksum covers the compact form.
	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Plan); err != nil {
		return nil, fmt.Errorf("decoding staged plan %s: %w", id, err)
	}
	if got := checksum(compact.Bytes()); got != env.Checksum {
		return nil, fmt.Errorf("staged plan %s: checksum mismatch (expected %s, got %s)", id, env.Checksum, got)
	}
	var p tidy.Plan
	if err := json.Unmarshal(env.Plan, &p); err != nil {
		return nil, fmt.Errorf("decoding staged plan %s: %w", id, err)
	}
	return &p, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
