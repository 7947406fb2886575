package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

type ConceptSnapshotStore struct {
	db DB
}

func NewConceptSnapshotStore(db *sql.DB) *ConceptSnapshotStore {
	if db == nil {
		return nil
	}
	return &ConceptSnapshotStore{db: db}
}

func (s *ConceptSnapshotStore) FindByID(ctx context.Context, id string) (domain.ConceptSnapshot, error) {
	if s == nil || s.db == nil {
		return domain.ConceptSnapshot{}, fmt.Errorf("concept snapshot store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ConceptSnapshot{}, fmt.Errorf("concept snapshot id is required")
	}
	var snapshot domain.ConceptSnapshot
	var snapshotType string
	var contentJSON []byte
	row := s.db.QueryRowContext(
		ctx,
		`SELECT snapshot_id, is_version_of, generated_at_time, snapshot_type, product_id, content
		 FROM concept_snapshots
		 WHERE snapshot_id = $1`,
		id,
	)
	if err := row.Scan(
		&snapshot.ID,
		&snapshot.IsVersionOf,
		&snapshot.GeneratedAtTime,
		&snapshotType,
		&snapshot.ProductID,
		&contentJSON,
	); err != nil {
		return domain.ConceptSnapshot{}, handleNotFound(err)
	}
	content, err := decodeContent(contentJSON)
	if err != nil {
		return domain.ConceptSnapshot{}, err
	}
	snapshot.SnapshotType = domain.SnapshotType(snapshotType)
	snapshot.Content = content
	snapshot.GeneratedAtTime = domain.NormalizeGeneratedAtTime(snapshot.GeneratedAtTime)
	return snapshot, nil
}

func (s *ConceptSnapshotStore) Save(ctx context.Context, snapshot domain.ConceptSnapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("concept snapshot store not initialized")
	}
	if err := snapshot.Validate(); err != nil {
		return err
	}
	contentJSON, err := encodeContent(snapshot.Content)
	if err != nil {
		return err
	}
	// Snapshots are immutable; a redelivered id is the same snapshot.
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO concept_snapshots (
			snapshot_id,
			is_version_of,
			generated_at_time,
			snapshot_type,
			product_id,
			content
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (snapshot_id) DO NOTHING`,
		strings.TrimSpace(snapshot.ID),
		strings.TrimSpace(snapshot.IsVersionOf),
		domain.NormalizeGeneratedAtTime(snapshot.GeneratedAtTime),
		string(snapshot.SnapshotType),
		strings.TrimSpace(snapshot.ProductID),
		contentJSON,
	)
	if err != nil {
		return fmt.Errorf("insert concept snapshot: %w", err)
	}
	return nil
}

func (s *ConceptSnapshotStore) MaxGeneratedAtTimeFor(ctx context.Context, conceptID string) (time.Time, error) {
	if s == nil || s.db == nil {
		return time.Time{}, fmt.Errorf("concept snapshot store not initialized")
	}
	conceptID = strings.TrimSpace(conceptID)
	if conceptID == "" {
		return time.Time{}, fmt.Errorf("concept id is required")
	}
	var max sql.NullTime
	err := s.db.QueryRowContext(
		ctx,
		`SELECT MAX(generated_at_time) FROM concept_snapshots WHERE is_version_of = $1`,
		conceptID,
	).Scan(&max)
	if err != nil {
		return time.Time{}, fmt.Errorf("max generated at time: %w", err)
	}
	if !max.Valid {
		return time.Time{}, nil
	}
	return domain.NormalizeGeneratedAtTime(max.Time), nil
}
