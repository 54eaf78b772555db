package duo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eraycetin/prepduel/internal/auth"
	"github.com/eraycetin/prepduel/internal/auth/jwt"
)

func newTestMux(h *HTTPHandlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/duo/rooms", h.CreateRoom)
	mux.HandleFunc("POST /v1/duo/rooms/{code}/join", h.JoinRoom)
	mux.HandleFunc("POST /v1/duo/rooms/{code}/start", h.StartMatch)
	mux.HandleFunc("POST /v1/duo/rooms/{code}/answers", h.SubmitAnswer)
	mux.HandleFunc("POST /v1/duo/rooms/{code}/advance", h.Advance)
	mux.HandleFunc("GET /v1/duo/rooms/{code}/results", h.Results)
	return mux
}

func doAs(t *testing.T, mux *http.ServeMux, userID uuid.UUID, name, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	claims := &jwt.Claims{UserID: userID, DisplayName: name}
	req = req.WithContext(auth.IntoContext(context.Background(), claims))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateRoomEndpoint(t *testing.T) {
	mux := newTestMux(NewHTTPHandlers(newTestService(t), zerolog.Nop()))

	rec := doAs(t, mux, uuid.New(), "alice", http.MethodPost, "/v1/duo/rooms", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	code, ok := body["code"].(string)
	require.True(t, ok)
	assert.Len(t, code, 4)
}

func TestJoinRoomEndpointReturnsRoomView(t *testing.T) {
	svc := newTestService(t)
	mux := newTestMux(NewHTTPHandlers(svc, zerolog.Nop()))
	host, guest := uuid.New(), uuid.New()

	rec := doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody(t, rec)["code"].(string)

	rec = doAs(t, mux, guest, "bob", http.MethodPost, "/v1/duo/rooms/"+code+"/join", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeBody(t, rec)
	assert.Equal(t, code, view["code"])
	assert.Equal(t, "alice", view["host_name"])
	assert.Equal(t, "bob", view["guest_name"])
	assert.Equal(t, StatusWaiting, view["status"])
	assert.Equal(t, false, view["is_host"])
	assert.Equal(t, true, view["is_guest"])
	assert.Equal(t, true, view["has_guest"])

	// The host polls the same endpoint to see the guest arrive.
	rec = doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/"+code+"/join", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody(t, rec)
	assert.Equal(t, true, view["is_host"])
	assert.Equal(t, true, view["has_guest"])
}

func TestFullMatchOverHTTP(t *testing.T) {
	svc := newTestService(t)
	mux := newTestMux(NewHTTPHandlers(svc, zerolog.Nop()))
	host, guest := uuid.New(), uuid.New()

	rec := doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody(t, rec)["code"].(string)

	rec = doAs(t, mux, guest, "bob", http.MethodPost, "/v1/duo/rooms/"+code+"/join", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/"+code+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	started := decodeBody(t, rec)
	assert.Equal(t, float64(2), started["total_questions"])

	answer := map[string]interface{}{"question_id": "e1-q0", "choice_id": "c2"}
	rec = doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/"+code+"/answers", answer)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody(t, rec)
	assert.Equal(t, true, res["is_correct"])
	assert.Equal(t, "c2", res["correct_choice_id"])

	// Guest times out: null choice_id scores as incorrect.
	timeout := map[string]interface{}{"question_id": "e1-q0", "choice_id": nil}
	rec = doAs(t, mux, guest, "bob", http.MethodPost, "/v1/duo/rooms/"+code+"/answers", timeout)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeBody(t, rec)
	assert.Equal(t, false, res["is_correct"])

	rec = doAs(t, mux, guest, "bob", http.MethodPost, "/v1/duo/rooms/"+code+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	adv := decodeBody(t, rec)
	assert.Equal(t, true, adv["can_advance"])
	assert.Equal(t, float64(1), adv["current_question_index"])
	assert.Equal(t, false, adv["is_finished"])

	for _, p := range []struct {
		id   uuid.UUID
		name string
	}{{host, "alice"}, {guest, "bob"}} {
		answer := map[string]interface{}{"question_id": "e1-q1", "choice_id": "c2"}
		rec = doAs(t, mux, p.id, p.name, http.MethodPost, "/v1/duo/rooms/"+code+"/answers", answer)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/"+code+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	adv = decodeBody(t, rec)
	assert.Equal(t, true, adv["is_finished"])

	rec = doAs(t, mux, guest, "bob", http.MethodGet, "/v1/duo/rooms/"+code+"/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)
	assert.Equal(t, float64(2), results["host_score"])
	assert.Equal(t, float64(1), results["guest_score"])
	assert.Equal(t, StatusFinished, results["status"])
	assert.Equal(t, false, results["is_host"])
	breakdown, ok := results["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, breakdown, 2)
	first := breakdown[0].(map[string]interface{})
	assert.Equal(t, "e1-q0", first["question_id"])
	assert.Equal(t, true, first["host_correct"])
	assert.Equal(t, false, first["guest_correct"])
	assert.Nil(t, first["guest_choice"])
}

func TestEndpointErrorMapping(t *testing.T) {
	svc := newTestService(t)
	mux := newTestMux(NewHTTPHandlers(svc, zerolog.Nop()))
	host := uuid.New()

	// Unknown room.
	rec := doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/0000/join", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "room_not_found", decodeBody(t, rec)["error"])

	rec = doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody(t, rec)["code"].(string)

	// Starting without a guest.
	rec = doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/"+code+"/start", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "room_not_ready", decodeBody(t, rec)["error"])

	// Answering before the match exists.
	answer := map[string]interface{}{"question_id": "e1-q0", "choice_id": "c2"}
	rec = doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/"+code+"/answers", answer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "match_not_in_progress", decodeBody(t, rec)["error"])

	// Third player joining a full room.
	_, err := svc.JoinRoom(context.Background(), code, uuid.New(), "bob")
	require.NoError(t, err)
	rec = doAs(t, mux, uuid.New(), "mallory", http.MethodPost, "/v1/duo/rooms/"+code+"/join", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "room_full", decodeBody(t, rec)["error"])

	// Results demand membership.
	rec = doAs(t, mux, uuid.New(), "mallory", http.MethodGet, "/v1/duo/rooms/"+code+"/results", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_a_participant", decodeBody(t, rec)["error"])
}

func TestSubmitAnswerValidation(t *testing.T) {
	svc := newTestService(t)
	mux := newTestMux(NewHTTPHandlers(svc, zerolog.Nop()))
	code, host, _ := startedMatch(t, svc)

	// Missing question_id.
	rec := doAs(t, mux, host, "alice", http.MethodPost, "/v1/duo/rooms/"+code+"/answers", map[string]interface{}{"choice_id": "c2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/v1/duo/rooms/"+code+"/answers", bytes.NewBufferString("{not json"))
	req = req.WithContext(auth.IntoContext(context.Background(), &jwt.Claims{UserID: host, DisplayName: "alice"}))
	raw := httptest.NewRecorder()
	mux.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestHandlersRejectMissingIdentity(t *testing.T) {
	mux := newTestMux(NewHTTPHandlers(newTestService(t), zerolog.Nop()))

	req := httptest.NewRequest(http.MethodPost, "/v1/duo/rooms", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
