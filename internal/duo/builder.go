package duo

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/eraycetin/prepduel/internal/question"
)

// The two canonical mock exams share one printed layout: fixed index ranges
// per category. The ranges are a domain constant of the exam format, not
// derived from question content.
type indexRange struct {
	start, end int // [start, end)
}

var examLayout = []struct {
	category string
	indexRange
}{
	{CategoryCulture, indexRange{0, 40}},
	{CategoryLanguage, indexRange{40, 80}},
	{CategoryLogic, indexRange{80, 100}},
	{CategoryForeign, indexRange{100, 120}},
}

// Base thinking time per category. Logic questions get the largest budget and
// are tagged for weighted scoring by downstream consumers; duo matches
// themselves only track binary correctness.
var baseTimeLimitSeconds = map[string]int{
	CategoryCulture:  30,
	CategoryLanguage: 45,
	CategoryLogic:    75,
	CategoryForeign:  40,
}

// Extra reading time when a question carries a comprehension passage.
const passageBonusSeconds = 30

const defaultPerCategory = 5

type questionBank interface {
	ExamPool(ctx context.Context, examNo int) ([]question.BankQuestion, error)
	ExcludedQuestionIDs(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error)
}

// Builder assembles a match question set by stratified sampling: a fixed
// quota per category, drawn from both canonical mock exams, minus the user's
// suspended/reported questions.
type Builder struct {
	bank        questionBank
	perCategory int
	shuffle     func(n int, swap func(i, j int))
}

// NewBuilder creates a question set builder.
func NewBuilder(bank questionBank, perCategory int) *Builder {
	if perCategory <= 0 {
		perCategory = defaultPerCategory
	}
	return &Builder{
		bank:        bank,
		perCategory: perCategory,
		shuffle:     rand.Shuffle,
	}
}

// Build produces the ordered question set for a match started by userID.
// Categories keep their fixed order; only questions within a category are
// shuffled. Correctness markers never reach the returned descriptors.
func (b *Builder) Build(ctx context.Context, userID uuid.UUID) ([]QuestionDescriptor, error) {
	poolOne, err := b.bank.ExamPool(ctx, question.ExamPoolOne)
	if err != nil {
		return nil, fmt.Errorf("load exam pool one: %w", err)
	}
	poolTwo, err := b.bank.ExamPool(ctx, question.ExamPoolTwo)
	if err != nil {
		return nil, fmt.Errorf("load exam pool two: %w", err)
	}
	excluded, err := b.bank.ExcludedQuestionIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	var set []QuestionDescriptor
	for _, layout := range examLayout {
		candidates := categorySlice(poolOne, layout.indexRange)
		candidates = append(candidates, categorySlice(poolTwo, layout.indexRange)...)

		eligible := candidates[:0:0]
		for _, q := range candidates {
			if _, skip := excluded[q.ID]; !skip {
				eligible = append(eligible, q)
			}
		}

		b.shuffle(len(eligible), func(i, j int) {
			eligible[i], eligible[j] = eligible[j], eligible[i]
		})

		// Short categories shrink the match rather than failing it.
		take := b.perCategory
		if take > len(eligible) {
			take = len(eligible)
		}
		for _, q := range eligible[:take] {
			set = append(set, toDescriptor(q, layout.category))
		}
	}

	if len(set) == 0 {
		return nil, ErrNoQuestions
	}
	return set, nil
}

func categorySlice(pool []question.BankQuestion, r indexRange) []question.BankQuestion {
	if r.start >= len(pool) {
		return nil
	}
	end := r.end
	if end > len(pool) {
		end = len(pool)
	}
	return pool[r.start:end]
}

func toDescriptor(q question.BankQuestion, category string) QuestionDescriptor {
	limit := baseTimeLimitSeconds[category]
	if q.HasPassage() {
		limit += passageBonusSeconds
	}
	choices := make([]Choice, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = Choice{ID: c.ID, Text: c.Text}
	}
	return QuestionDescriptor{
		ID:               q.ID,
		Prompt:           q.Prompt,
		Passage:          q.Passage,
		Category:         category,
		TimeLimitSeconds: limit,
		Weighted:         category == CategoryLogic,
		Choices:          choices,
	}
}
