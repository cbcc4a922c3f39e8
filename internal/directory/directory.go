// Package directory provides read-only ward lookups. Ward creation and
// renaming are owned by the surrounding application; the workflow treats
// ward existence as given.
package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardflow/wardflow/internal/shared"
)

// Ward is the directory entry for one ward.
type Ward struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Wards resolves ward ids to display entries.
type Wards interface {
	Get(ctx context.Context, wardID string) (Ward, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed directory reader.
func NewRepository(pool *pgxpool.Pool) Wards {
	return &repository{db: pool}
}

func (r *repository) Get(ctx context.Context, wardID string) (Ward, error) {
	var w Ward
	err := r.db.QueryRow(ctx, `SELECT id, name, capacity FROM wards WHERE id=$1`, wardID).
		Scan(&w.ID, &w.Name, &w.Capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ward{}, shared.ErrNotFound
		}
		return Ward{}, shared.ClassifyStoreError("directory.get", err)
	}
	return w, nil
}
