package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/model"
)

const labsTable = "labs"

// CreateLab creates a new lab.
func CreateLab(ctx context.Context, db *db.DB, name string) (*model.Lab, error) {
	lab := &model.Lab{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	query, args, err := db.Builder().
		Insert(labsTable).
		Rows(goqu.Record{"id": lab.ID, "name": lab.Name, "created_at": lab.CreatedAt}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building lab insert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("creating lab: %w", err)
	}

	return GetLab(ctx, db, lab.ID)
}

// GetLab returns a lab by ID, or nil if it does not exist.
func GetLab(ctx context.Context, db *db.DB, id string) (*model.Lab, error) {
	query, args, err := db.Builder().
		From(labsTable).
		Select("id", "name", "created_at").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building lab query: %w", err)
	}

	lab := &model.Lab{}
	err = db.QueryRowContext(ctx, query, args...).Scan(&lab.ID, &lab.Name, &lab.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting lab: %w", err)
	}
	return lab, nil
}

// ListLabs returns all labs ordered by name.
func ListLabs(ctx context.Context, db *db.DB) ([]model.Lab, error) {
	query, args, err := db.Builder().
		From(labsTable).
		Select("id", "name", "created_at").
		Order(goqu.C("name").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building lab query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing labs: %w", err)
	}
	defer rows.Close()

	var labs []model.Lab
	for rows.Next() {
		var lab model.Lab
		if err := rows.Scan(&lab.ID, &lab.Name, &lab.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lab: %w", err)
		}
		labs = append(labs, lab)
	}
	return labs, rows.Err()
}
