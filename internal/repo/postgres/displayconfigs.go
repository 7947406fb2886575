package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type DisplayConfigStore struct {
	db DB
}

func NewDisplayConfigStore(db *sql.DB) *DisplayConfigStore {
	if db == nil {
		return nil
	}
	return &DisplayConfigStore{db: db}
}

// EnsureFor lazily creates the (concept, municipality) row; new pairs start
// out flagged as new and not instantiated.
func (s *DisplayConfigStore) EnsureFor(ctx context.Context, conceptID string, municipality string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("display config store not initialized")
	}
	conceptID = strings.TrimSpace(conceptID)
	if conceptID == "" {
		return fmt.Errorf("concept id is required")
	}
	municipality = strings.TrimSpace(municipality)
	if municipality == "" {
		return fmt.Errorf("municipality is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO concept_display_configurations (
			config_id,
			uuid,
			concept_id,
			municipality,
			concept_is_new,
			concept_is_instantiated
		) VALUES ($1,$2,$3,$4,TRUE,FALSE)
		ON CONFLICT (concept_id, municipality) DO NOTHING`,
		conceptID+"/display-configuration/"+municipalityKey(municipality),
		uuid.NewString(),
		conceptID,
		municipality,
	)
	if err != nil {
		return fmt.Errorf("ensure display configuration: %w", err)
	}
	return nil
}

// SyncInstantiatedFlag recomputes conceptIsInstantiated for every
// municipality row of the concept from the live instance count.
func (s *DisplayConfigStore) SyncInstantiatedFlag(ctx context.Context, conceptID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("display config store not initialized")
	}
	conceptID = strings.TrimSpace(conceptID)
	if conceptID == "" {
		return fmt.Errorf("concept id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE concept_display_configurations
		 SET concept_is_instantiated = EXISTS (
			SELECT 1 FROM instances
			WHERE instances.concept_id = concept_display_configurations.concept_id
			  AND instances.created_by = concept_display_configurations.municipality
		 )
		 WHERE concept_id = $1`,
		conceptID,
	)
	if err != nil {
		return fmt.Errorf("sync instantiated flag: %w", err)
	}
	return nil
}

func municipalityKey(municipality string) string {
	if i := strings.LastIndex(municipality, "/"); i >= 0 && i < len(municipality)-1 {
		return municipality[i+1:]
	}
	return municipality
}
