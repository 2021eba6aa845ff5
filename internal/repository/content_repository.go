package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// ContentRepository defines persistence access for content items. The
// governance layer only ever reads ownership metadata from here.
type ContentRepository interface {
	Create(ctx context.Context, content *domain.Content) error
	Update(ctx context.Context, content *domain.Content) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Content, error)
	GetOwnership(ctx context.Context, id string) (*domain.ResourceOwnership, error)
}

type contentRepository struct {
	pool *pgxpool.Pool
}

// NewContentRepository returns a Postgres-backed implementation.
func NewContentRepository(pool *pgxpool.Pool) ContentRepository {
	return &contentRepository{pool: pool}
}

func (r *contentRepository) Create(ctx context.Context, content *domain.Content) error {
	const query = `
        INSERT INTO content (id, kind, title, body, owner_id, creator_fingerprint, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		content.ID,
		content.Kind,
		content.Title,
		content.Body,
		nullable(content.OwnerID),
		nullable(content.CreatorFingerprint),
		content.Status,
	).Scan(&content.CreatedAt, &content.UpdatedAt)
}

func (r *contentRepository) Update(ctx context.Context, content *domain.Content) error {
	const query = `
        UPDATE content SET title=$1, body=$2, status=$3, updated_at=NOW()
        WHERE id=$4`

	_, err := r.pool.Exec(ctx, query,
		content.Title,
		content.Body,
		content.Status,
		content.ID,
	)
	return err
}

func (r *contentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM content WHERE id=$1`

	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *contentRepository) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	const query = `
        SELECT id, kind, title, body, COALESCE(owner_id, ''), COALESCE(creator_fingerprint, ''),
               status, created_at, updated_at
        FROM content WHERE id=$1`

	var content domain.Content
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&content.ID,
		&content.Kind,
		&content.Title,
		&content.Body,
		&content.OwnerID,
		&content.CreatorFingerprint,
		&content.Status,
		&content.CreatedAt,
		&content.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) GetOwnership(ctx context.Context, id string) (*domain.ResourceOwnership, error) {
	const query = `
        SELECT id, COALESCE(owner_id, ''), COALESCE(creator_fingerprint, ''), created_at
        FROM content WHERE id=$1`

	var ownership domain.ResourceOwnership
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ownership.ResourceID,
		&ownership.OwnerID,
		&ownership.CreatorFingerprint,
		&ownership.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ownership, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
