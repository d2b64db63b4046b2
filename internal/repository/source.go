// Package repository persists sources and their synthesized configurations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/newsloom/source-manager/internal/logger"
	"github.com/newsloom/source-manager/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

var (
	// ErrNotFound is returned when no matching source exists or it has been
	// soft-deleted.
	ErrNotFound = errors.New("source not found")
	// ErrDuplicateIdentifier is returned when an active source with the same
	// identifier already exists.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
)

type SourceRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSourceRepository(db *sql.DB, log logger.Logger) *SourceRepository {
	return &SourceRepository{
		db:     db,
		logger: log,
	}
}

// Create stores a source with its synthesized config. The config is stored
// as an opaque JSON document; this layer does not re-validate it.
func (r *SourceRepository) Create(ctx context.Context, source *models.Source) error {
	source.ID = uuid.New().String()
	source.CreatedAt = time.Now().UTC()
	source.UpdatedAt = source.CreatedAt

	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	query := `
		INSERT INTO source_configs (
			id, identifier, name, platform, config,
			enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx,
		query,
		source.ID,
		source.Identifier,
		source.Name,
		source.Platform,
		configJSON,
		source.Enabled,
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateIdentifier
		}
		return fmt.Errorf("insert source: %w", err)
	}

	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*models.Source, error) {
	query := `
		SELECT id, identifier, name, platform, config,
		       enabled, created_at, updated_at
		FROM source_configs
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByIdentifier looks up a source by its raw identifier, used to keep
// registration idempotent.
func (r *SourceRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.Source, error) {
	query := `
		SELECT id, identifier, name, platform, config,
		       enabled, created_at, updated_at
		FROM source_configs
		WHERE identifier = $1 AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *SourceRepository) scanOne(row *sql.Row) (*models.Source, error) {
	var source models.Source
	var configJSON []byte

	err := row.Scan(
		&source.ID,
		&source.Identifier,
		&source.Name,
		&source.Platform,
		&configJSON,
		&source.Enabled,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}

	if err := json.Unmarshal(configJSON, &source.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &source, nil
}

// List returns all sources that have not been soft-deleted, newest first.
func (r *SourceRepository) List(ctx context.Context) ([]models.Source, error) {
	query := `
		SELECT id, identifier, name, platform, config,
		       enabled, created_at, updated_at
		FROM source_configs
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var source models.Source
		var configJSON []byte

		if err := rows.Scan(
			&source.ID,
			&source.Identifier,
			&source.Name,
			&source.Platform,
			&configJSON,
			&source.Enabled,
			&source.CreatedAt,
			&source.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		if err := json.Unmarshal(configJSON, &source.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}

		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	return sources, nil
}

// SoftDelete marks a source deleted without removing the row; scheduled
// cleanup reaps old soft-deleted rows.
func (r *SourceRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE source_configs
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("soft delete source: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.logger.Info("Source soft-deleted",
		logger.String("source_id", id),
	)

	return nil
}
