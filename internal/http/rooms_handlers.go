package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/rooms"
	"github.com/keerthanachowdary21/Live-Video-Calls/internal/store"
	"github.com/keerthanachowdary21/Live-Video-Calls/internal/token"
)

// RoomLifecycle is the coordinator surface the handlers need
type RoomLifecycle interface {
	Create(ctx context.Context, roomID string) (store.Room, error)
	List(ctx context.Context) ([]store.Room, error)
	Delete(ctx context.Context, roomID string) (store.Room, error)
}

type TokenIssuer interface {
	IssueToken(ctx context.Context, roomID string) (string, error)
}

type RoomsAPI struct {
	Rooms  RoomLifecycle
	Tokens TokenIssuer
	Log    *slog.Logger
}

type createRoomReq struct {
	RoomID string `json:"roomId"`
}

type roomMessage struct {
	Message string `json:"message"`
	RoomID  string `json:"roomId"`
}

type roomResponse struct {
	RoomID       string    `json:"roomId"`
	Participants int       `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

type tokenResp struct {
	Token string `json:"token"`
}

// Create handles POST /api/rooms
func (a *RoomsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	room, err := a.Rooms.Create(r.Context(), req.RoomID)
	switch {
	case errors.Is(err, rooms.ErrInvalidRoomID):
		writeError(w, http.StatusBadRequest, "roomId is required")
	case errors.Is(err, rooms.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Room already exists")
	case err != nil:
		a.Log.Error("room.create", "room", req.RoomID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create room")
	default:
		writeJSON(w, http.StatusCreated, roomMessage{Message: "Room created successfully", RoomID: room.RoomID})
	}
}

// List handles GET /api/rooms
func (a *RoomsAPI) List(w http.ResponseWriter, r *http.Request) {
	list, err := a.Rooms.List(r.Context())
	if err != nil {
		a.Log.Error("room.list", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch rooms")
		return
	}

	resp := make([]roomResponse, 0, len(list))
	for _, rm := range list {
		resp = append(resp, roomResponse{
			RoomID: rm.RoomID, Participants: rm.Participants, CreatedAt: rm.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/rooms/{roomId}
func (a *RoomsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("roomId")
	room, err := a.Rooms.Delete(r.Context(), id)
	switch {
	case errors.Is(err, rooms.ErrNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case err != nil:
		a.Log.Error("room.delete", "room", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete room")
	default:
		writeJSON(w, http.StatusOK, roomMessage{Message: "Room deleted successfully", RoomID: room.RoomID})
	}
}

// Token handles POST /api/rooms/{roomId}/token
func (a *RoomsAPI) Token(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("roomId")
	tok, err := a.Tokens.IssueToken(r.Context(), id)
	switch {
	case errors.Is(err, rooms.ErrNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case errors.Is(err, token.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Token provider unavailable")
	case errors.Is(err, token.ErrTokenIssuanceFailed):
		writeError(w, http.StatusBadGateway, "Error generating token")
	case err != nil:
		a.Log.Error("token.issue", "room", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Error generating token")
	default:
		writeJSON(w, http.StatusOK, tokenResp{Token: tok})
	}
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
