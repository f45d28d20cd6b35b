package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// ProgramRepository reads the program catalog. The catalog is owned by
// another service, so there are no write paths here.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// FindByID returns the program or sql.ErrNoRows.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	query := r.db.Rebind(`SELECT id, mentor_id, title, format FROM programs WHERE id = ?`)
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}
