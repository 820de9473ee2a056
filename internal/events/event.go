// Package events publishes notifications about changes made to hosted media
// assets. The Redis driver hands them to out-of-process consumers; the memory
// driver feeds in-process subscribers such as Drain.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type enumerates the asset events emitted by the API.
type Type string

const (
	// TypeAssetDeleted is emitted after the media host confirms a destroy call.
	TypeAssetDeleted Type = "asset.deleted"
)

// Event is the wire representation handed to the queue.
type Event struct {
	ID           string          `json:"id"`
	Type         Type            `json:"type"`
	PublicID     string          `json:"publicId"`
	ResourceType string          `json:"resourceType,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

// NewAssetDeleted builds an asset.deleted event carrying the raw destroy
// result returned by the media host.
func NewAssetDeleted(publicID, resourceType string, result json.RawMessage, at time.Time) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         TypeAssetDeleted,
		PublicID:     publicID,
		ResourceType: resourceType,
		Result:       result,
		OccurredAt:   at.UTC(),
	}
}
