package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FlagRepository reads the per-user suspended/reported question list. The
// moderation workflow that writes these rows lives in the authoring service.
type FlagRepository struct {
	pool *pgxpool.Pool
}

// NewFlagRepository constructs a new flag repository.
func NewFlagRepository(pool *pgxpool.Pool) *FlagRepository {
	return &FlagRepository{pool: pool}
}

// UserFlaggedQuestionIDs returns every question id the user has suspended or
// reported. These are excluded from any set built for that user.
func (r *FlagRepository) UserFlaggedQuestionIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id FROM user_question_flags WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user flags: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan flag row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user flags: %w", err)
	}
	return ids, nil
}
