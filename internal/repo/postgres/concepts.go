package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

type ConceptStore struct {
	db DB
	tx TxBeginner
}

func NewConceptStore(db *sql.DB) *ConceptStore {
	if db == nil {
		return nil
	}
	return &ConceptStore{db: db, tx: db}
}

const conceptColumns = `concept_id, uuid, product_id, content,
	latest_concept_snapshot, has_versioned_source, previous_versioned_source,
	has_latest_functional_change, is_archived`

func (s *ConceptStore) FindByID(ctx context.Context, id string) (domain.Concept, error) {
	if s == nil || s.db == nil {
		return domain.Concept{}, fmt.Errorf("concept store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Concept{}, fmt.Errorf("concept id is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+conceptColumns+` FROM concepts WHERE concept_id = $1`,
		id,
	)
	return scanConcept(row)
}

func (s *ConceptStore) Exists(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("concept store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("concept id is required")
	}
	var exists bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM concepts WHERE concept_id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("concept exists: %w", err)
	}
	return exists, nil
}

func (s *ConceptStore) Save(ctx context.Context, concept domain.Concept) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("concept store not initialized")
	}
	if err := concept.Validate(); err != nil {
		return err
	}
	contentJSON, err := encodeContent(concept.Content)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO concepts (
			concept_id,
			uuid,
			product_id,
			content,
			latest_concept_snapshot,
			has_versioned_source,
			previous_versioned_source,
			has_latest_functional_change,
			is_archived
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		strings.TrimSpace(concept.ID),
		strings.TrimSpace(concept.UUID),
		strings.TrimSpace(concept.ProductID),
		contentJSON,
		strings.TrimSpace(concept.LatestConceptSnapshot),
		strings.TrimSpace(concept.HasVersionedSource),
		strings.TrimSpace(concept.PreviousVersionedSource),
		strings.TrimSpace(concept.HasLatestFunctionalChange),
		concept.IsArchived,
	)
	if err != nil {
		return fmt.Errorf("insert concept: %w", err)
	}
	return nil
}

// Update swaps the whole projection in one transaction; readers never see a
// partial old/new mix.
func (s *ConceptStore) Update(ctx context.Context, concept domain.Concept) error {
	if s == nil || s.db == nil || s.tx == nil {
		return fmt.Errorf("concept store not initialized")
	}
	if err := concept.Validate(); err != nil {
		return err
	}
	contentJSON, err := encodeContent(concept.Content)
	if err != nil {
		return err
	}

	tx, err := s.tx.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update concept: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE concepts SET
			uuid = $2,
			product_id = $3,
			content = $4,
			latest_concept_snapshot = $5,
			has_versioned_source = $6,
			previous_versioned_source = $7,
			has_latest_functional_change = $8,
			is_archived = $9
		 WHERE concept_id = $1`,
		strings.TrimSpace(concept.ID),
		strings.TrimSpace(concept.UUID),
		strings.TrimSpace(concept.ProductID),
		contentJSON,
		strings.TrimSpace(concept.LatestConceptSnapshot),
		strings.TrimSpace(concept.HasVersionedSource),
		strings.TrimSpace(concept.PreviousVersionedSource),
		strings.TrimSpace(concept.HasLatestFunctionalChange),
		concept.IsArchived,
	)
	if err != nil {
		return fmt.Errorf("update concept: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update concept affected: %w", err)
	}
	if affected == 0 {
		return handleNotFound(sql.ErrNoRows)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update concept: %w", err)
	}
	return nil
}

func scanConcept(row *sql.Row) (domain.Concept, error) {
	var concept domain.Concept
	var contentJSON []byte
	if err := row.Scan(
		&concept.ID,
		&concept.UUID,
		&concept.ProductID,
		&contentJSON,
		&concept.LatestConceptSnapshot,
		&concept.HasVersionedSource,
		&concept.PreviousVersionedSource,
		&concept.HasLatestFunctionalChange,
		&concept.IsArchived,
	); err != nil {
		return domain.Concept{}, handleNotFound(err)
	}
	content, err := decodeContent(contentJSON)
	if err != nil {
		return domain.Concept{}, err
	}
	concept.Content = content
	return concept, nil
}
