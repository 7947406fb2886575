package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
)

type CodeStore struct {
	db DB
}

func NewCodeStore(db *sql.DB) *CodeStore {
	if db == nil {
		return nil
	}
	return &CodeStore{db: db}
}

func (s *CodeStore) Exists(ctx context.Context, uri string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("code store not initialized")
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return false, fmt.Errorf("code uri is required")
	}
	var exists bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM authority_codes WHERE uri = $1)`,
		uri,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("code exists: %w", err)
	}
	return exists, nil
}

func (s *CodeStore) Save(ctx context.Context, org domain.Organization) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("code store not initialized")
	}
	if err := org.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO authority_codes (uri, pref_label, classification)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (uri) DO NOTHING`,
		strings.TrimSpace(org.URI),
		strings.TrimSpace(org.PrefLabel),
		strings.TrimSpace(org.Classification),
	)
	if err != nil {
		return fmt.Errorf("insert authority code: %w", err)
	}
	return nil
}
