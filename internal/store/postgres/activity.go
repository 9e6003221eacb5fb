package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/citylaw/docket/internal/domain"
)

type ActivityRepo struct {
	db DBTX
}

func NewActivityRepo(db DBTX) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Record(ctx context.Context, entry *domain.ActivityEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("activityRepo.Record: marshal details: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO activity_log (id, user_id, action, entity_type, entity_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.Action, entry.EntityType, entry.EntityID,
		details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("activityRepo.Record: %w", err)
	}

	return nil
}

func (r *ActivityRepo) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]*domain.ActivityEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, action, entity_type, entity_id, details, created_at
		 FROM activity_log WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		entityType, entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.ListByEntity: %w", err)
	}
	defer rows.Close()

	return scanActivity(rows, "activityRepo.ListByEntity")
}

func scanActivity(rows pgx.Rows, caller string) ([]*domain.ActivityEntry, error) {
	var entries []*domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var details []byte

		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("%s: unmarshal details: %w", caller, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
