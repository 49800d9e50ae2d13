package repositories

import (
	"BunOfTheDayBot/internal/models/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrAlreadyExists is returned when an insert hits a unique constraint.
var ErrAlreadyExists = errors.New("already exists")

// CreateBun adds a new bun to the catalog. Returns ErrAlreadyExists if
// a bun with the same name is already present.
func (r *Repository) CreateBun(ctx context.Context, name string, points int) (*domain.Bun, error) {
	op := "Repository.CreateBun"
	bun := &domain.Bun{
		ID:     uuid.New(),
		Name:   name,
		Points: points,
	}

	query := `INSERT INTO buns (id, name, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
		RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, bun.ID, bun.Name, bun.Points).
		Scan(&bun.CreatedAt, &bun.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bun, nil
}

// EnsureBun returns the bun with the given name, creating it with the
// given point value if it does not exist yet.
func (r *Repository) EnsureBun(ctx context.Context, name string, points int) (*domain.Bun, error) {
	op := "Repository.EnsureBun"
	bun, err := r.CreateBun(ctx, name, points)
	if errors.Is(err, ErrAlreadyExists) {
		bun, err = r.GetBunByName(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bun, nil
}

// GetBunByID returns a bun by ID.
func (r *Repository) GetBunByID(ctx context.Context, id uuid.UUID) (*domain.Bun, error) {
	op := "Repository.GetBunByID"
	var bun domain.Bun
	query := `SELECT id, name, points, created_at, updated_at
		FROM buns WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&bun.ID, &bun.Name, &bun.Points,
			&bun.CreatedAt, &bun.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &bun, nil
}

// GetBunByName returns a bun by its unique name.
func (r *Repository) GetBunByName(ctx context.Context, name string) (*domain.Bun, error) {
	op := "Repository.GetBunByName"
	var bun domain.Bun
	query := `SELECT id, name, points, created_at, updated_at
		FROM buns WHERE name = $1`
	err := r.DB.QueryRowContext(ctx, query, name).
		Scan(&bun.ID, &bun.Name, &bun.Points,
			&bun.CreatedAt, &bun.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &bun, nil
}

// GetAllBuns returns the whole catalog ordered by name.
func (r *Repository) GetAllBuns(ctx context.Context) ([]domain.Bun, error) {
	op := "Repository.GetAllBuns"
	var buns []domain.Bun
	query := `SELECT id, name, points, created_at, updated_at
		FROM buns ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var b domain.Bun
		if err := rows.Scan(&b.ID, &b.Name, &b.Points,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		buns = append(buns, b)
	}
	return buns, nil
}

// UpdateBunPoints changes the point value of a bun. Existing holdings
// keep their accumulated points. Returns false if the bun is unknown.
func (r *Repository) UpdateBunPoints(ctx context.Context, name string, points int) (bool, error) {
	op := "Repository.UpdateBunPoints"
	query := `UPDATE buns SET points = $2, updated_at = NOW()
		WHERE name = $1`
	res, err := r.DB.ExecContext(ctx, query, name, points)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// DeleteBun removes a bun from the catalog. Holdings and selections
// referencing it are removed by cascade. Returns false if the bun is
// unknown.
func (r *Repository) DeleteBun(ctx context.Context, name string) (bool, error) {
	op := "Repository.DeleteBun"
	query := `DELETE FROM buns WHERE name = $1`
	res, err := r.DB.ExecContext(ctx, query, name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
