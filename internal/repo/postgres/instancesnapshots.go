package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

type InstanceSnapshotStore struct {
	db DB
}

func NewInstanceSnapshotStore(db *sql.DB) *InstanceSnapshotStore {
	if db == nil {
		return nil
	}
	return &InstanceSnapshotStore{db: db}
}

func (s *InstanceSnapshotStore) FindByID(ctx context.Context, id string) (domain.InstanceSnapshot, error) {
	if s == nil || s.db == nil {
		return domain.InstanceSnapshot{}, fmt.Errorf("instance snapshot store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InstanceSnapshot{}, fmt.Errorf("instance snapshot id is required")
	}
	var snapshot domain.InstanceSnapshot
	var contentJSON []byte
	row := s.db.QueryRowContext(
		ctx,
		`SELECT snapshot_id, is_version_of_instance, created_by, generated_at_time, is_archived, concept_id, content
		 FROM instance_snapshots
		 WHERE snapshot_id = $1`,
		id,
	)
	if err := row.Scan(
		&snapshot.ID,
		&snapshot.IsVersionOfInstance,
		&snapshot.CreatedBy,
		&snapshot.GeneratedAtTime,
		&snapshot.IsArchived,
		&snapshot.ConceptID,
		&contentJSON,
	); err != nil {
		return domain.InstanceSnapshot{}, handleNotFound(err)
	}
	content, err := decodeContent(contentJSON)
	if err != nil {
		return domain.InstanceSnapshot{}, err
	}
	snapshot.Content = content
	snapshot.GeneratedAtTime = domain.NormalizeGeneratedAtTime(snapshot.GeneratedAtTime)
	return snapshot, nil
}

func (s *InstanceSnapshotStore) Save(ctx context.Context, snapshot domain.InstanceSnapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("instance snapshot store not initialized")
	}
	if err := snapshot.Validate(); err != nil {
		return err
	}
	contentJSON, err := encodeContent(snapshot.Content)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO instance_snapshots (
			snapshot_id,
			is_version_of_instance,
			created_by,
			generated_at_time,
			is_archived,
			concept_id,
			content
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (snapshot_id) DO NOTHING`,
		strings.TrimSpace(snapshot.ID),
		strings.TrimSpace(snapshot.IsVersionOfInstance),
		strings.TrimSpace(snapshot.CreatedBy),
		domain.NormalizeGeneratedAtTime(snapshot.GeneratedAtTime),
		snapshot.IsArchived,
		strings.TrimSpace(snapshot.ConceptID),
		contentJSON,
	)
	if err != nil {
		return fmt.Errorf("insert instance snapshot: %w", err)
	}
	return nil
}

func (s *InstanceSnapshotStore) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("instance snapshot store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("instance snapshot id is required")
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE instance_snapshots SET processed_at = $2 WHERE snapshot_id = $1`,
		id,
		normalizeTime(processedAt),
	)
	if err != nil {
		return fmt.Errorf("mark instance snapshot processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark instance snapshot processed affected: %w", err)
	}
	if affected == 0 {
		return handleNotFound(sql.ErrNoRows)
	}
	return nil
}

func (s *InstanceSnapshotStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("instance snapshot store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("instance snapshot id is required")
	}
	var processed bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (
			SELECT 1 FROM instance_snapshots
			WHERE snapshot_id = $1 AND processed_at IS NOT NULL
		)`,
		id,
	).Scan(&processed)
	if err != nil {
		return false, fmt.Errorf("instance snapshot is processed: %w", err)
	}
	return processed, nil
}

// HasNewerProcessedInstanceSnapshot reports whether an already-processed
// snapshot of the same instance carries a strictly greater generatedAtTime.
func (s *InstanceSnapshotStore) HasNewerProcessedInstanceSnapshot(ctx context.Context, snapshotID string, instanceID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("instance snapshot store not initialized")
	}
	snapshotID = strings.TrimSpace(snapshotID)
	if snapshotID == "" {
		return false, fmt.Errorf("instance snapshot id is required")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return false, fmt.Errorf("instance id is required")
	}
	var newer bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (
			SELECT 1 FROM instance_snapshots other
			WHERE other.is_version_of_instance = $2
			  AND other.snapshot_id <> $1
			  AND other.processed_at IS NOT NULL
			  AND other.generated_at_time > (
				SELECT generated_at_time FROM instance_snapshots WHERE snapshot_id = $1
			  )
		)`,
		snapshotID,
		instanceID,
	).Scan(&newer)
	if err != nil {
		return false, fmt.Errorf("has newer processed instance snapshot: %w", err)
	}
	return newer, nil
}
