package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/eraycetin/prepduel/internal/db/repository"
)

// Exam numbers of the two canonical full mock exams the duo builder samples
// from. Their internal layout is a domain constant, see the duo package.
const (
	ExamPoolOne = 1
	ExamPoolTwo = 2
)

// BankCache defines cache behavior (implemented by the Redis-backed Cache).
type BankCache interface {
	GetPool(ctx context.Context, examNo int) ([]BankQuestion, error)
	SetPool(ctx context.Context, examNo int, pool []BankQuestion) error
	GetExclusions(ctx context.Context, userID uuid.UUID) ([]string, error)
	SetExclusions(ctx context.Context, userID uuid.UUID, ids []string) error
}

type bankRepo interface {
	ExamPool(ctx context.Context, examNo int) ([]repository.QuestionRow, error)
	CorrectChoice(ctx context.Context, questionID string) (string, error)
}

type flagRepo interface {
	UserFlaggedQuestionIDs(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Service fronts the curated question bank: exam pool loading, authoritative
// correct-choice lookup, and per-user exclusion lists.
type Service struct {
	repo  bankRepo
	flags flagRepo
	cache BankCache
}

func NewService(repo bankRepo, flags flagRepo, cache BankCache) *Service {
	return &Service{repo: repo, flags: flags, cache: cache}
}

// ExamPool loads a canonical mock exam in layout order, cache first.
func (s *Service) ExamPool(ctx context.Context, examNo int) ([]BankQuestion, error) {
	if s.cache != nil {
		if pool, err := s.cache.GetPool(ctx, examNo); err == nil && pool != nil {
			return pool, nil
		}
	}

	rows, err := s.repo.ExamPool(ctx, examNo)
	if err != nil {
		return nil, fmt.Errorf("load exam pool %d: %w", examNo, err)
	}

	pool := make([]BankQuestion, len(rows))
	for i, row := range rows {
		pool[i] = toDomain(row)
	}

	if s.cache != nil {
		_ = s.cache.SetPool(ctx, examNo, pool)
	}
	return pool, nil
}

// CorrectChoice returns the authoritative correct choice id for a question,
// independent of whatever was shown to the client.
func (s *Service) CorrectChoice(ctx context.Context, questionID string) (string, error) {
	correct, err := s.repo.CorrectChoice(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup correct choice: %w", err)
	}
	return correct, nil
}

// ExcludedQuestionIDs returns the user's suspended/reported question ids as a
// set. Exclusion reads happen on every match start, so they go through Redis.
func (s *Service) ExcludedQuestionIDs(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	var ids []string
	cached := false
	if s.cache != nil {
		if got, err := s.cache.GetExclusions(ctx, userID); err == nil && got != nil {
			ids = got
			cached = true
		}
	}

	if !cached {
		var err error
		ids, err = s.flags.UserFlaggedQuestionIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load exclusions: %w", err)
		}
		if s.cache != nil {
			_ = s.cache.SetExclusions(ctx, userID, ids)
		}
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func toDomain(row repository.QuestionRow) BankQuestion {
	choices := make([]Choice, len(row.Choices))
	for i, c := range row.Choices {
		choices[i] = Choice{ID: c.ID, Text: c.Text}
	}
	q := BankQuestion{
		ID:              row.ID,
		ExamNo:          int(row.ExamNo),
		Position:        int(row.Position),
		Prompt:          row.Prompt,
		Choices:         choices,
		CorrectChoiceID: row.CorrectChoiceID,
	}
	if row.Passage != nil {
		q.Passage = *row.Passage
	}
	return q
}
