package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatlive/internal/chat"
	"github.com/npezzotti/go-chatlive/internal/server"
	"github.com/npezzotti/go-chatlive/internal/types"
)

const maxBodyBytes = 1 << 20

func (s *GoChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// writeError maps err to a response. Internal errors are logged and their
// detail withheld from the client.
func (s *GoChatApp) writeError(w http.ResponseWriter, err error) {
	errResp := fromDomainError(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Printf("internal error: %v", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// readJson decodes the request body into v and writes a 400 on failure.
func (s *GoChatApp) readJson(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}
	return true
}

func (s *GoChatApp) pathId(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		errResp := newBadRequest("invalid " + name)
		s.writeJson(w, errResp.StatusCode, errResp)
		return 0, false
	}
	return id, true
}

func (s *GoChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *GoChatApp) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients send no origin
		return true
	}

	return slices.Contains(s.allowedOrigins, origin)
}

func (s *GoChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	user, err := s.chats.Profile(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(types.User{Id: user.Id, Name: user.Name}, conn, s.cs, s.log)
	if err := s.cs.RegisterClient(client); err != nil {
		s.log.Printf("register client: %v", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}

type UserIdRequest struct {
	UserId int `json:"userId"`
}

type UpdateProfileRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Image  string `json:"image"`
}

type OnlineStatusRequest struct {
	IsOnline *bool `json:"isOnline"`
}

func (s *GoChatApp) searchUsers(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	users, err := s.chats.SearchUsers(r.Context(), userId, r.URL.Query().Get("search"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *GoChatApp) updateProfile(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req UpdateProfileRequest
	if !s.readJson(w, r, &req) {
		return
	}

	u, err := s.chats.UpdateProfile(r.Context(), userId, chat.ProfileUpdate{
		Name:   req.Name,
		Status: req.Status,
		Image:  req.Image,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, u)
}

func (s *GoChatApp) getUser(w http.ResponseWriter, r *http.Request) {
	viewerId, _ := UserId(r.Context())

	id, ok := s.pathId(w, r, "userId")
	if !ok {
		return
	}

	u, err := s.chats.GetUser(r.Context(), viewerId, int(id))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, u)
}

func (s *GoChatApp) blockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, true)
}

func (s *GoChatApp) unblockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, false)
}

func (s *GoChatApp) setBlocked(w http.ResponseWriter, r *http.Request, block bool) {
	userId, _ := UserId(r.Context())

	var req UserIdRequest
	if !s.readJson(w, r, &req) {
		return
	}

	var (
		u   types.User
		err error
	)
	if block {
		u, err = s.chats.BlockUser(r.Context(), userId, req.UserId)
	} else {
		u, err = s.chats.UnblockUser(r.Context(), userId, req.UserId)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, u)
}

func (s *GoChatApp) blockedUsers(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	users, err := s.chats.BlockedUsers(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *GoChatApp) setOnlineStatus(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req OnlineStatusRequest
	if !s.readJson(w, r, &req) {
		return
	}
	if req.IsOnline == nil {
		errResp := newBadRequest("isOnline is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u, err := s.chats.SetOnlineStatus(r.Context(), userId, *req.IsOnline)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, u)
}
