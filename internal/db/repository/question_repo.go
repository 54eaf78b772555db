package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("row not found")

// ChoiceRow is one answer option as stored in the bank (correctness lives in
// the parent row, never inside the choice itself).
type ChoiceRow struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionRow is a question bank row. CorrectChoiceID never leaves the server.
type QuestionRow struct {
	ID              string
	ExamNo          int16
	Position        int16
	Prompt          string
	Passage         *string
	Choices         []ChoiceRow
	CorrectChoiceID string
}

// QuestionRepository contains DB helpers for the mock-exam question bank.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository constructs a new question repository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ExamPool returns the full question list of one canonical mock exam, ordered
// by its fixed layout position.
func (r *QuestionRepository) ExamPool(ctx context.Context, examNo int) ([]QuestionRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question_id, exam_no, position, prompt, passage, choices, correct_choice_id
		FROM questions
		WHERE exam_no = $1
		ORDER BY position`, examNo)
	if err != nil {
		return nil, fmt.Errorf("query exam pool: %w", err)
	}
	defer rows.Close()

	var out []QuestionRow
	for rows.Next() {
		var q QuestionRow
		if err := rows.Scan(&q.ID, &q.ExamNo, &q.Position, &q.Prompt, &q.Passage, &q.Choices, &q.CorrectChoiceID); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam pool: %w", err)
	}
	return out, nil
}

// CorrectChoice returns the authoritative correct choice id for a question.
func (r *QuestionRepository) CorrectChoice(ctx context.Context, questionID string) (string, error) {
	var correct string
	err := r.pool.QueryRow(ctx,
		`SELECT correct_choice_id FROM questions WHERE question_id = $1`, questionID,
	).Scan(&correct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query correct choice: %w", err)
	}
	return correct, nil
}
