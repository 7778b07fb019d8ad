package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
)

const spaceColumns = `id, name, building, capacity, type, equipment, cleaning_buffer_minutes, status,
has_multimedia, has_computer, has_specialized, has_accessibility, has_air_conditioning, has_natural_light,
open_time, close_time, created_at, updated_at`

// SpaceRepository reads the space directory.
type SpaceRepository struct {
	db *sqlx.DB
}

// NewSpaceRepository constructs the repository.
func NewSpaceRepository(db *sqlx.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

// List returns every space ordered by building and name.
func (r *SpaceRepository) List(ctx context.Context) ([]models.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces ORDER BY building ASC, name ASC`
	var spaces []models.Space
	if err := r.db.SelectContext(ctx, &spaces, query); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return spaces, nil
}

// FindByID returns sql.ErrNoRows when the space does not exist.
func (r *SpaceRepository) FindByID(ctx context.Context, id string) (*models.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces WHERE id = $1`
	var space models.Space
	if err := r.db.GetContext(ctx, &space, query, id); err != nil {
		return nil, err
	}
	return &space, nil
}
