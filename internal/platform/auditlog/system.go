package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SystemRecorder appends merge outcomes on behalf of the sync engine itself;
// every row carries the fixed system actor.
type SystemRecorder struct {
	db *sql.DB
}

func NewSystemRecorder(db *sql.DB) (*SystemRecorder, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &SystemRecorder{db: db}, nil
}

func (r *SystemRecorder) Append(ctx context.Context, action, resourceType, resourceID string, payload map[string]any) error {
	if r == nil || r.db == nil {
		return errors.New("system recorder not initialized")
	}
	_, err := Insert(ctx, r.db, Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        "system",
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Payload:      payload,
	})
	return err
}
