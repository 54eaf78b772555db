package duo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eraycetin/prepduel/internal/question"
)

type correctLookup interface {
	CorrectChoice(ctx context.Context, questionID string) (string, error)
}

// Service coordinates the duo match lifecycle: room creation and joining,
// match start, answer recording, and exactly-once progression. All shared
// state lives in the Store; clients observe it by polling.
type Service struct {
	store   *Store
	builder *Builder
	bank    correctLookup
	logger  zerolog.Logger
}

// NewService creates the duo coordinator.
func NewService(store *Store, builder *Builder, bank correctLookup, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		builder: builder,
		bank:    bank,
		logger:  logger.With().Str("component", "duo").Logger(),
	}
}

// RecordResult is the outcome of one answer submission.
type RecordResult struct {
	IsCorrect       bool
	CorrectChoiceID string
}

// AdvanceResult reports the progression pointer after a TryAdvance call.
type AdvanceResult struct {
	CurrentQuestionIndex int
	IsFinished           bool
	CanAdvance           bool
}

// PlayerResult is one question's outcome for one player in the results view.
type PlayerResult struct {
	ChoiceID *string
	Answered bool
	Correct  bool
}

// QuestionResult is the per-question breakdown exposed by Results.
type QuestionResult struct {
	QuestionID string
	Prompt     string
	Category   string
	Host       PlayerResult
	Guest      PlayerResult
}

// ResultsView is the read-only summary served once a match finished.
type ResultsView struct {
	Code           string
	Status         string
	HostName       string
	GuestName      string
	HostScore      int
	GuestScore     int
	TotalQuestions int
	IsHost         bool
	Results        []QuestionResult
}

// CreateRoom allocates a room with the caller as host.
func (s *Service) CreateRoom(ctx context.Context, hostID uuid.UUID, hostName string) (*Room, error) {
	room, err := s.store.Create(hostID, hostName)
	if err != nil {
		return nil, err
	}
	roomsCreated.Inc()
	s.logger.Info().
		Str("room_code", room.Code).
		Str("host_id", hostID.String()).
		Msg("room created")
	return room, nil
}

// JoinRoom claims the guest slot, or returns current state idempotently if
// the caller is already a member. The guest slot is assigned at most once for
// the life of a room.
func (s *Service) JoinRoom(ctx context.Context, code string, guestID uuid.UUID, guestName string) (*Room, error) {
	joined := false
	room, err := s.store.Update(code, func(r *Room) error {
		if r.IsParticipant(guestID) {
			return nil
		}
		if r.GuestID != nil {
			return ErrRoomFull
		}
		gid := guestID
		r.GuestID = &gid
		r.GuestName = guestName
		joined = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if joined {
		s.logger.Info().
			Str("room_code", code).
			Str("guest_id", guestID.String()).
			Msg("guest joined room")
	}
	return room, nil
}

// StartMatch builds and installs the question set on the first call by a
// participant once both players are present. Later calls return the stored
// set unchanged, so clients use it as an idempotent fetch as well.
func (s *Service) StartMatch(ctx context.Context, code string, callerID uuid.UUID) (*Room, error) {
	snap, err := s.store.Snapshot(code)
	if err != nil {
		return nil, err
	}
	if !snap.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}
	if snap.Status != StatusWaiting {
		return snap, nil
	}
	if !snap.HasGuest() {
		return nil, ErrRoomNotReady
	}

	// The builder touches the bank (DB/Redis), so it runs outside the room
	// lock. A concurrent start wins below; the loser's set is discarded.
	set, err := s.builder.Build(ctx, callerID)
	if err != nil {
		return nil, err
	}

	room, err := s.store.Update(code, func(r *Room) error {
		if !r.IsParticipant(callerID) {
			return ErrNotParticipant
		}
		if r.Status != StatusWaiting {
			return nil
		}
		if !r.HasGuest() {
			return ErrRoomNotReady
		}
		r.Questions = set
		r.Status = StatusStarting
		r.StartedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("room_code", code).
		Int("question_count", len(room.Questions)).
		Msg("match started")
	return room, nil
}

// GetRoomView returns a snapshot for polling clients.
func (s *Service) GetRoomView(ctx context.Context, code string) (*Room, error) {
	return s.store.Snapshot(code)
}

// RecordAnswer validates and records one player's answer to one question and
// updates that player's score exactly once per question. A nil choiceID is
// the timeout marker and always scores incorrect. Policy for repeated
// submissions is first-write-wins: the original entry stands and the stored
// outcome is re-reported, so client retries are idempotent.
func (s *Service) RecordAnswer(ctx context.Context, code string, playerID uuid.UUID, questionID string, choiceID *string) (RecordResult, error) {
	snap, err := s.store.Snapshot(code)
	if err != nil {
		return RecordResult{}, err
	}
	if !snap.IsParticipant(playerID) {
		return RecordResult{}, ErrNotParticipant
	}
	if snap.Status != StatusStarting && snap.Status != StatusInProgress {
		return RecordResult{}, ErrNotInProgress
	}
	if !questionInSet(snap.Questions, questionID) {
		return RecordResult{}, ErrQuestionNotFound
	}

	// Authoritative correct choice comes from the bank, independent of what
	// the client was shown. Looked up outside the room lock.
	correctID, err := s.bank.CorrectChoice(ctx, questionID)
	if err != nil {
		if errors.Is(err, question.ErrNotFound) {
			return RecordResult{}, ErrQuestionNotFound
		}
		return RecordResult{}, err
	}

	result := RecordResult{CorrectChoiceID: correctID}
	_, err = s.store.Update(code, func(r *Room) error {
		if !r.IsParticipant(playerID) {
			return ErrNotParticipant
		}
		if r.Status != StatusStarting && r.Status != StatusInProgress {
			return ErrNotInProgress
		}

		answers := r.answersFor(playerID)
		if prev, exists := answers[questionID]; exists {
			result.IsCorrect = prev.Correct
			return nil
		}

		correct := choiceID != nil && *choiceID == correctID
		answers[questionID] = Answer{
			ChoiceID:    choiceID,
			Correct:     correct,
			SubmittedAt: time.Now(),
		}
		if correct {
			if r.HostID == playerID {
				r.HostScore++
			} else {
				r.GuestScore++
			}
		}
		result.IsCorrect = correct
		return nil
	})
	if err != nil {
		return RecordResult{}, err
	}

	answersRecorded.Inc()
	s.logger.Debug().
		Str("room_code", code).
		Str("player_id", playerID.String()).
		Str("question_id", questionID).
		Bool("correct", result.IsCorrect).
		Msg("answer recorded")
	return result, nil
}

// TryAdvance moves the shared question pointer forward once both players have
// answered the current question. Both clients call this after answering; the
// advance happens exactly once because the check and the increment run under
// the room lock against the pointer's current value. A duplicate call simply
// observes the already-advanced state with CanAdvance false.
func (s *Service) TryAdvance(ctx context.Context, code string, callerID uuid.UUID) (AdvanceResult, error) {
	var res AdvanceResult
	finished := false
	_, err := s.store.Update(code, func(r *Room) error {
		if !r.IsParticipant(callerID) {
			return ErrNotParticipant
		}
		idx := r.CurrentQuestionIndex
		if idx >= len(r.Questions) {
			return ErrQuestionNotFound
		}

		qid := r.Questions[idx].ID
		_, hostAnswered := r.HostAnswers[qid]
		_, guestAnswered := r.GuestAnswers[qid]
		if !hostAnswered || !guestAnswered {
			res = AdvanceResult{CurrentQuestionIndex: idx, IsFinished: false, CanAdvance: false}
			return nil
		}

		next := idx + 1
		r.CurrentQuestionIndex = next
		if next >= len(r.Questions) {
			r.Status = StatusFinished
			finished = true
		} else {
			r.Status = StatusInProgress
		}
		res = AdvanceResult{CurrentQuestionIndex: next, IsFinished: finished, CanAdvance: true}
		return nil
	})
	if err != nil {
		return AdvanceResult{}, err
	}

	if finished {
		matchesFinished.Inc()
		s.logger.Info().Str("room_code", code).Msg("match finished")
	}
	return res, nil
}

// Results builds the read-only summary for a participant: final scores and a
// per-question correctness breakdown for both players.
func (s *Service) Results(ctx context.Context, code string, callerID uuid.UUID) (*ResultsView, error) {
	snap, err := s.store.Snapshot(code)
	if err != nil {
		return nil, err
	}
	if !snap.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}

	view := &ResultsView{
		Code:           snap.Code,
		Status:         snap.Status,
		HostName:       snap.HostName,
		GuestName:      snap.GuestName,
		HostScore:      snap.HostScore,
		GuestScore:     snap.GuestScore,
		TotalQuestions: len(snap.Questions),
		IsHost:         snap.HostID == callerID,
		Results:        make([]QuestionResult, 0, len(snap.Questions)),
	}
	for _, q := range snap.Questions {
		view.Results = append(view.Results, QuestionResult{
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			Category:   q.Category,
			Host:       playerResult(snap.HostAnswers, q.ID),
			Guest:      playerResult(snap.GuestAnswers, q.ID),
		})
	}
	return view, nil
}

func playerResult(answers map[string]Answer, questionID string) PlayerResult {
	ans, ok := answers[questionID]
	if !ok {
		return PlayerResult{}
	}
	return PlayerResult{ChoiceID: ans.ChoiceID, Answered: true, Correct: ans.Correct}
}

func questionInSet(set []QuestionDescriptor, questionID string) bool {
	for _, q := range set {
		if q.ID == questionID {
			return true
		}
	}
	return false
}
