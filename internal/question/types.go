package question

import "errors"

// ErrNotFound is returned when a question id is unknown to the bank.
var ErrNotFound = errors.New("question not found")

// Choice is one answer option shown to clients.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BankQuestion is the server-side view of a bank question, including the
// authoritative correct choice. It must never be serialized to clients as-is.
type BankQuestion struct {
	ID              string   `json:"id"`
	ExamNo          int      `json:"exam_no"`
	Position        int      `json:"position"`
	Prompt          string   `json:"prompt"`
	Passage         string   `json:"passage,omitempty"`
	Choices         []Choice `json:"choices"`
	CorrectChoiceID string   `json:"correct_choice_id"`
}

// HasPassage reports whether the question carries a comprehension passage.
func (q BankQuestion) HasPassage() bool {
	return q.Passage != ""
}
