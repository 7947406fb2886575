package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

type InstanceStore struct {
	db DB
	tx TxBeginner
}

func NewInstanceStore(db *sql.DB) *InstanceStore {
	if db == nil {
		return nil
	}
	return &InstanceStore{db: db, tx: db}
}

const instanceColumns = `instance_id, uuid, created_by, content, concept_id,
	concept_snapshot, product_id, spatial_scope, status, publication_status,
	review_status, dutch_language_variant, date_created, date_modified, date_sent`

func (s *InstanceStore) FindByID(ctx context.Context, id string) (domain.Instance, error) {
	if s == nil || s.db == nil {
		return domain.Instance{}, fmt.Errorf("instance store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Instance{}, fmt.Errorf("instance id is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE instance_id = $1`,
		id,
	)
	return scanInstance(row)
}

func (s *InstanceStore) Exists(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("instance store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("instance id is required")
	}
	var exists bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM instances WHERE instance_id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("instance exists: %w", err)
	}
	return exists, nil
}

func (s *InstanceStore) Save(ctx context.Context, instance domain.Instance) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("instance store not initialized")
	}
	if err := instance.Validate(); err != nil {
		return err
	}
	return s.insert(ctx, s.db, instance)
}

func (s *InstanceStore) Update(ctx context.Context, instance domain.Instance) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("instance store not initialized")
	}
	if err := instance.Validate(); err != nil {
		return err
	}
	contentJSON, err := encodeContent(instance.Content)
	if err != nil {
		return err
	}
	spatialJSON, err := encodeStrings(instance.SpatialScope)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE instances SET
			uuid = $2,
			created_by = $3,
			content = $4,
			concept_id = $5,
			concept_snapshot = $6,
			product_id = $7,
			spatial_scope = $8,
			status = $9,
			publication_status = $10,
			review_status = $11,
			dutch_language_variant = $12,
			date_modified = $13,
			date_sent = $14
		 WHERE instance_id = $1`,
		strings.TrimSpace(instance.ID),
		strings.TrimSpace(instance.UUID),
		strings.TrimSpace(instance.CreatedBy),
		contentJSON,
		strings.TrimSpace(instance.ConceptID),
		strings.TrimSpace(instance.ConceptSnapshot),
		strings.TrimSpace(instance.ProductID),
		spatialJSON,
		string(instance.Status),
		string(instance.PublicationStatus),
		string(instance.ReviewStatus),
		string(instance.DutchLanguageVariant),
		normalizeTime(instance.DateModified),
		normalizeTime(instance.DateSent),
	)
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update instance affected: %w", err)
	}
	if affected == 0 {
		return handleNotFound(sql.ErrNoRows)
	}
	return nil
}

// Delete replaces the live row with a tombstone in one transaction. The
// tombstone keeps the published marker when the instance ever reached the
// public site.
func (s *InstanceStore) Delete(ctx context.Context, id string, deletedAt time.Time) error {
	if s == nil || s.db == nil || s.tx == nil {
		return fmt.Errorf("instance store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("instance id is required")
	}

	tx, err := s.tx.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete instance: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var publicationStatus string
	err = tx.QueryRowContext(
		ctx,
		`SELECT publication_status FROM instances WHERE instance_id = $1`,
		id,
	).Scan(&publicationStatus)
	if err != nil {
		return handleNotFound(err)
	}

	var publishedVersionOf string
	if publicationStatus == string(domain.PublicationStatusPublished) ||
		publicationStatus == string(domain.PublicationStatusNeedsRepublish) {
		publishedVersionOf = id
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO tombstones (tombstone_id, former_type, deleted_at, is_published_version_of)
		 VALUES ($1,$2,$3,NULLIF($4,''))`,
		id,
		"public-service-instance",
		normalizeTime(deletedAt),
		publishedVersionOf,
	)
	if err != nil {
		return fmt.Errorf("insert tombstone: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM instances WHERE instance_id = $1`, id); err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete instance: %w", err)
	}
	return nil
}

func (s *InstanceStore) IsDeleted(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("instance store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("instance id is required")
	}
	var deleted bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM tombstones WHERE tombstone_id = $1)`,
		id,
	).Scan(&deleted)
	if err != nil {
		return false, fmt.Errorf("instance is deleted: %w", err)
	}
	return deleted, nil
}

// Recreate revives a tombstoned id: the live row comes back, the tombstone
// row stays as deletion history.
func (s *InstanceStore) Recreate(ctx context.Context, instance domain.Instance) error {
	if s == nil || s.db == nil || s.tx == nil {
		return fmt.Errorf("instance store not initialized")
	}
	if err := instance.Validate(); err != nil {
		return err
	}

	tx, err := s.tx.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recreate instance: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted bool
	err = tx.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM tombstones WHERE tombstone_id = $1)`,
		strings.TrimSpace(instance.ID),
	).Scan(&deleted)
	if err != nil {
		return fmt.Errorf("recreate instance: %w", err)
	}
	if !deleted {
		return fmt.Errorf("recreate instance %s: no tombstone", instance.ID)
	}

	if err := s.insert(ctx, tx, instance); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recreate instance: %w", err)
	}
	return nil
}

func (s *InstanceStore) UpdateReviewStatuses(ctx context.Context, conceptID string, status domain.ReviewStatus) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("instance store not initialized")
	}
	conceptID = strings.TrimSpace(conceptID)
	if conceptID == "" {
		return 0, fmt.Errorf("concept id is required")
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE instances SET review_status = $2 WHERE concept_id = $1`,
		conceptID,
		string(status),
	)
	if err != nil {
		return 0, fmt.Errorf("update review statuses: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update review statuses affected: %w", err)
	}
	return affected, nil
}

func (s *InstanceStore) insert(ctx context.Context, db DB, instance domain.Instance) error {
	contentJSON, err := encodeContent(instance.Content)
	if err != nil {
		return err
	}
	spatialJSON, err := encodeStrings(instance.SpatialScope)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(
		ctx,
		`INSERT INTO instances (
			instance_id,
			uuid,
			created_by,
			content,
			concept_id,
			concept_snapshot,
			product_id,
			spatial_scope,
			status,
			publication_status,
			review_status,
			dutch_language_variant,
			date_created,
			date_modified,
			date_sent
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		strings.TrimSpace(instance.ID),
		strings.TrimSpace(instance.UUID),
		strings.TrimSpace(instance.CreatedBy),
		contentJSON,
		strings.TrimSpace(instance.ConceptID),
		strings.TrimSpace(instance.ConceptSnapshot),
		strings.TrimSpace(instance.ProductID),
		spatialJSON,
		string(instance.Status),
		string(instance.PublicationStatus),
		string(instance.ReviewStatus),
		string(instance.DutchLanguageVariant),
		normalizeTime(instance.DateCreated),
		normalizeTime(instance.DateModified),
		normalizeTime(instance.DateSent),
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

func scanInstance(row *sql.Row) (domain.Instance, error) {
	var instance domain.Instance
	var contentJSON, spatialJSON []byte
	var status, publicationStatus, reviewStatus, languageVariant string
	if err := row.Scan(
		&instance.ID,
		&instance.UUID,
		&instance.CreatedBy,
		&contentJSON,
		&instance.ConceptID,
		&instance.ConceptSnapshot,
		&instance.ProductID,
		&spatialJSON,
		&status,
		&publicationStatus,
		&reviewStatus,
		&languageVariant,
		&instance.DateCreated,
		&instance.DateModified,
		&instance.DateSent,
	); err != nil {
		return domain.Instance{}, handleNotFound(err)
	}
	content, err := decodeContent(contentJSON)
	if err != nil {
		return domain.Instance{}, err
	}
	spatial, err := decodeStrings(spatialJSON)
	if err != nil {
		return domain.Instance{}, err
	}
	instance.Content = content
	instance.SpatialScope = spatial
	instance.Status = domain.InstanceStatus(status)
	instance.PublicationStatus = domain.PublicationStatus(publicationStatus)
	instance.ReviewStatus = domain.ReviewStatus(reviewStatus)
	instance.DutchLanguageVariant = domain.LanguageVariant(languageVariant)
	return instance, nil
}
