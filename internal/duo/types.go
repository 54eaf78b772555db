package duo

import (
	"time"

	"github.com/google/uuid"
)

// Room lifecycle states. Transitions are strictly forward:
// waiting -> starting -> in_progress -> finished.
const (
	StatusWaiting    = "waiting"
	StatusStarting   = "starting"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// Question categories, in the fixed order they appear in a match.
const (
	CategoryCulture  = "culture"
	CategoryLanguage = "language"
	CategoryLogic    = "logic"
	CategoryForeign  = "foreign_language"
)

// Choice is an answer option as exposed to clients (no correctness marker).
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionDescriptor is one entry of a room's fixed question set.
type QuestionDescriptor struct {
	ID               string   `json:"id"`
	Prompt           string   `json:"prompt"`
	Passage          string   `json:"passage,omitempty"`
	Category         string   `json:"category"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
	Weighted         bool     `json:"weighted"`
	Choices          []Choice `json:"choices"`
}

// Answer is one player's recorded submission for one question. A nil ChoiceID
// is the explicit no-answer marker for client-reported timeouts.
type Answer struct {
	ChoiceID    *string   `json:"choice_id"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Room is the aggregate root of one two-player match, addressed by Code.
// All mutation happens inside Store.Update under the per-room lock; readers
// only ever see copies.
type Room struct {
	Code      string
	HostID    uuid.UUID
	GuestID   *uuid.UUID
	HostName  string
	GuestName string
	Status    string

	Questions            []QuestionDescriptor
	CurrentQuestionIndex int
	HostAnswers          map[string]Answer
	GuestAnswers         map[string]Answer
	HostScore            int
	GuestScore           int

	// Version increments on every committed mutation.
	Version   uint64
	CreatedAt time.Time
	StartedAt time.Time
}

// IsParticipant reports whether id is the host or the joined guest.
func (r *Room) IsParticipant(id uuid.UUID) bool {
	return r.HostID == id || (r.GuestID != nil && *r.GuestID == id)
}

// HasGuest reports whether the guest slot has been claimed.
func (r *Room) HasGuest() bool {
	return r.GuestID != nil
}

// answersFor returns the answer map belonging to the given participant.
func (r *Room) answersFor(id uuid.UUID) map[string]Answer {
	if r.HostID == id {
		return r.HostAnswers
	}
	return r.GuestAnswers
}

// Clone returns a deep copy safe to hand outside the store lock.
func (r *Room) Clone() *Room {
	cp := *r
	if r.GuestID != nil {
		gid := *r.GuestID
		cp.GuestID = &gid
	}
	cp.Questions = make([]QuestionDescriptor, len(r.Questions))
	for i, q := range r.Questions {
		cq := q
		cq.Choices = append([]Choice(nil), q.Choices...)
		cp.Questions[i] = cq
	}
	cp.HostAnswers = cloneAnswers(r.HostAnswers)
	cp.GuestAnswers = cloneAnswers(r.GuestAnswers)
	return &cp
}

func cloneAnswers(src map[string]Answer) map[string]Answer {
	dst := make(map[string]Answer, len(src))
	for k, v := range src {
		if v.ChoiceID != nil {
			c := *v.ChoiceID
			v.ChoiceID = &c
		}
		dst[k] = v
	}
	return dst
}
