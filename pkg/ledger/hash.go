// Package ledger implements the publish state ledger: the durable idempotency
// gate that decides whether a touchpoint's content needs (re)publishing to
// the remote platform.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/marketloop/journeysync/pkg/models"
)

// hashableContent is the canonical publish-relevant view of a touchpoint.
// Volatile fields (timestamps, status, ids, the remote template link) are
// excluded so repeated runs over unchanged content hash identically.
type hashableContent struct {
	Type    models.TouchpointType `json:"type"`
	Name    string                `json:"name"`
	Content map[string]any        `json:"content"`
	Config  map[string]any        `json:"config"`
}

// ContentHash returns the deterministic hash of a touchpoint's
// publish-relevant content. encoding/json writes map keys in sorted order, so
// equal payloads always produce equal hashes.
func ContentHash(touchpoint *models.Touchpoint) (string, error) {
	canonical, err := json.Marshal(hashableContent{
		Type:    touchpoint.Type,
		Name:    touchpoint.Name,
		Content: touchpoint.Content,
		Config:  touchpoint.Config,
	})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize touchpoint %s: %w", touchpoint.ID, err)
	}

	sum := sha256.Sum256(canonical)

	return hex.EncodeToString(sum[:]), nil
}
