package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// EntryHash computes the covering digest for an audit row. Any post-hoc edit
// to the row's defining fields changes the digest on recompute.
func EntryHash(entry *AuditLog) string {
	prev, _ := json.Marshal(entry.PrevState)
	next, _ := json.Marshal(entry.NewState)
	meta, _ := json.Marshal(entry.Metadata)

	entityID := ""
	if entry.EntityID != nil {
		entityID = *entry.EntityID
	}
	actorID := ""
	if entry.ActorID != nil {
		actorID = *entry.ActorID
	}
	businessID := ""
	if entry.BusinessID != nil {
		businessID = entry.BusinessID.String()
	}

	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		entry.ID.String(),
		entry.EventType,
		entry.EntityType,
		entityID,
		actorID,
		entry.ActorRole,
		businessID,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(prev),
		string(next),
	)
	canonical += "|" + string(meta)

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
