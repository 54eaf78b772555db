package duo

import "errors"

// Domain errors surfaced by the duo coordinator. HTTP handlers map these to
// status codes; everything else becomes a 500.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room already has a guest")
	ErrNotParticipant   = errors.New("caller is not a participant of this room")
	ErrRoomNotReady     = errors.New("waiting for the second player")
	ErrNotInProgress    = errors.New("match is not in progress")
	ErrQuestionNotFound = errors.New("question not found")
	ErrCodeExhausted    = errors.New("room code space exhausted")
	ErrNoQuestions      = errors.New("no questions available")
)
