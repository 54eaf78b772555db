package duo

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eraycetin/prepduel/internal/auth"
	"github.com/eraycetin/prepduel/internal/auth/jwt"
	httperrors "github.com/eraycetin/prepduel/pkg/http/errors"
)

// HTTPHandlers provides the six REST endpoints of the duo coordinator.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for duo endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "duo_http").Logger(),
	}
}

type submitAnswerRequest struct {
	QuestionID string  `json:"question_id"`
	ChoiceID   *string `json:"choice_id"`
}

// CreateRoom handles POST /v1/duo/rooms
func (h *HTTPHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identity(w, r)
	if !ok {
		return
	}

	room, err := h.service.CreateRoom(r.Context(), claims.UserID, claims.DisplayName)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", claims.UserID.String()).Msg("failed to create room")
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"code": room.Code,
	})
}

// JoinRoom handles POST /v1/duo/rooms/{code}/join. Participants also use it
// as their 1-second poll: repeated calls by a member are idempotent reads.
func (h *HTTPHandlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identity(w, r)
	if !ok {
		return
	}
	code := r.PathValue("code")
	if code == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "room code is required", "code")
		return
	}

	room, err := h.service.JoinRoom(r.Context(), code, claims.UserID, claims.DisplayName)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, roomView(room, claims.UserID))
}

// StartMatch handles POST /v1/duo/rooms/{code}/start. The first call builds
// the question set; later calls return the stored set unchanged.
func (h *HTTPHandlers) StartMatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identity(w, r)
	if !ok {
		return
	}
	code := r.PathValue("code")

	room, err := h.service.StartMatch(r.Context(), code, claims.UserID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"questions":       room.Questions,
		"total_questions": len(room.Questions),
	})
}

// SubmitAnswer handles POST /v1/duo/rooms/{code}/answers. A null choice_id is
// the client-reported timeout and scores as incorrect.
func (h *HTTPHandlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identity(w, r)
	if !ok {
		return
	}
	code := r.PathValue("code")

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.QuestionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "question_id is required", "question_id")
		return
	}

	result, err := h.service.RecordAnswer(r.Context(), code, claims.UserID, req.QuestionID, req.ChoiceID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"is_correct":        result.IsCorrect,
		"correct_choice_id": result.CorrectChoiceID,
	})
}

// Advance handles POST /v1/duo/rooms/{code}/advance
func (h *HTTPHandlers) Advance(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identity(w, r)
	if !ok {
		return
	}
	code := r.PathValue("code")

	result, err := h.service.TryAdvance(r.Context(), code, claims.UserID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"current_question_index": result.CurrentQuestionIndex,
		"is_finished":            result.IsFinished,
		"can_advance":            result.CanAdvance,
	})
}

// Results handles GET /v1/duo/rooms/{code}/results
func (h *HTTPHandlers) Results(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.identity(w, r)
	if !ok {
		return
	}
	code := r.PathValue("code")

	view, err := h.service.Results(r.Context(), code, claims.UserID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	results := make([]map[string]interface{}, len(view.Results))
	for i, qr := range view.Results {
		results[i] = map[string]interface{}{
			"question_id":   qr.QuestionID,
			"prompt":        qr.Prompt,
			"category":      qr.Category,
			"host_choice":   qr.Host.ChoiceID,
			"host_correct":  qr.Host.Correct,
			"guest_choice":  qr.Guest.ChoiceID,
			"guest_correct": qr.Guest.Correct,
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"host_name":       view.HostName,
		"guest_name":      view.GuestName,
		"host_score":      view.HostScore,
		"guest_score":     view.GuestScore,
		"total_questions": view.TotalQuestions,
		"status":          view.Status,
		"results":         results,
		"is_host":         view.IsHost,
	})
}

// roomView is the join/observe response shape both clients poll against.
func roomView(room *Room, callerID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"code":                   room.Code,
		"host_name":              room.HostName,
		"guest_name":             room.GuestName,
		"status":                 room.Status,
		"current_question_index": room.CurrentQuestionIndex,
		"total_questions":        len(room.Questions),
		"is_host":                room.HostID == callerID,
		"is_guest":               room.GuestID != nil && *room.GuestID == callerID,
		"has_guest":              room.HasGuest(),
	}
}

func (h *HTTPHandlers) identity(w http.ResponseWriter, r *http.Request) (*jwt.Claims, bool) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return nil, false
	}
	return claims, true
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HTTPHandlers) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeRoomNotFound, "Room not found")
	case errors.Is(err, ErrQuestionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "Question not found")
	case errors.Is(err, ErrRoomFull):
		httperrors.RespondForbidden(w, httperrors.ErrCodeRoomFull, "Room already has a guest")
	case errors.Is(err, ErrNotParticipant):
		httperrors.RespondForbidden(w, httperrors.ErrCodeNotParticipant, "Caller is not a participant of this room")
	case errors.Is(err, ErrRoomNotReady):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeRoomNotReady, "Waiting for the second player")
	case errors.Is(err, ErrNotInProgress):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMatchNotInProgress, "Match is not in progress")
	case errors.Is(err, ErrNoQuestions):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeNoQuestions, "No questions available")
	case errors.Is(err, ErrCodeExhausted):
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeCodeExhausted, "Could not allocate a room code")
	default:
		h.logger.Error().Err(err).Msg("unexpected duo error")
		httperrors.RespondInternalError(w, "Internal error")
	}
}
