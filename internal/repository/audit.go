package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/backend-resources/internal/model/audit"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultAuditLimit = 50

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Record stores a user-management event.
func (r *AuditRepository) Record(ctx context.Context, event *audit.Event) error {
	const stmt = `
		INSERT INTO audit_events (id, action, target_user_id, actor, created_at)
		VALUES (@id, @action, @target_user_id, @actor, @created_at)
	`

	_, err := r.pool.Exec(ctx, stmt, pgx.NamedArgs{
		"id":             event.ID,
		"action":         string(event.Action),
		"target_user_id": event.TargetUserID,
		"actor":          event.Actor,
		"created_at":     event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to record audit event %s for user %s: %w", event.Action, event.TargetUserID, err)
	}

	return nil
}

// ListByTarget returns the newest events for a user first. A non-positive
// limit falls back to 50.
func (r *AuditRepository) ListByTarget(ctx context.Context, targetUserID string, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	const query = `
		SELECT id, action, target_user_id, actor, created_at
		FROM audit_events
		WHERE target_user_id = @target_user_id
		ORDER BY created_at DESC
		LIMIT @limit
	`

	rows, err := r.pool.Query(ctx, query, pgx.NamedArgs{
		"target_user_id": targetUserID,
		"limit":          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events for user %s: %w", targetUserID, err)
	}

	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[audit.Event])
	if err != nil {
		return nil, fmt.Errorf("failed to collect audit events: %w", err)
	}

	return events, nil
}
