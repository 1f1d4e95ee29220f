package api

import (
	"net/http"

	"github.com/npezzotti/go-chatlive/internal/chat"
)

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Users       []int  `json:"users"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type RenameGroupRequest struct {
	ChatId   string `json:"chatId"`
	ChatName string `json:"chatName"`
}

type GroupMemberRequest struct {
	ChatId string `json:"chatId"`
	UserId int    `json:"userId"`
}

type ChatIdRequest struct {
	ChatId string `json:"chatId"`
}

type ChatFlagRequest struct {
	ChatId  string `json:"chatId"`
	Mute    *bool  `json:"mute,omitempty"`
	Archive *bool  `json:"archive,omitempty"`
}

func (s *GoChatApp) fetchChats(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	chats, err := s.chats.FetchChats(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, chats)
}

func (s *GoChatApp) accessChat(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req UserIdRequest
	if !s.readJson(w, r, &req) {
		return
	}

	c, err := s.chats.AccessChat(r.Context(), userId, req.UserId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, c)
}

func (s *GoChatApp) createGroup(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req CreateGroupRequest
	if !s.readJson(w, r, &req) {
		return
	}

	c, err := s.chats.CreateGroup(r.Context(), userId, chat.GroupParams{
		Name:        req.Name,
		Users:       req.Users,
		Description: req.Description,
		Image:       req.Image,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, c)
}

func (s *GoChatApp) renameGroup(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req RenameGroupRequest
	if !s.readJson(w, r, &req) {
		return
	}

	c, err := s.chats.RenameGroup(r.Context(), userId, req.ChatId, req.ChatName)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, c)
}

func (s *GoChatApp) addToGroup(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req GroupMemberRequest
	if !s.readJson(w, r, &req) {
		return
	}

	c, err := s.chats.AddToGroup(r.Context(), userId, req.ChatId, req.UserId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, c)
}

func (s *GoChatApp) removeFromGroup(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req GroupMemberRequest
	if !s.readJson(w, r, &req) {
		return
	}

	c, err := s.chats.RemoveFromGroup(r.Context(), userId, req.ChatId, req.UserId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, c)
}

func (s *GoChatApp) leaveGroup(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req ChatIdRequest
	if !s.readJson(w, r, &req) {
		return
	}

	deleted, err := s.chats.LeaveGroup(r.Context(), userId, req.ChatId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"chatId": req.ChatId, "deleted": deleted})
}

func (s *GoChatApp) muteChat(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req ChatFlagRequest
	if !s.readJson(w, r, &req) {
		return
	}
	if req.Mute == nil {
		errResp := newBadRequest("mute is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chats.MuteChat(r.Context(), userId, req.ChatId, *req.Mute); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"chatId": req.ChatId, "isMuted": *req.Mute})
}

func (s *GoChatApp) archiveChat(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req ChatFlagRequest
	if !s.readJson(w, r, &req) {
		return
	}
	if req.Archive == nil {
		errResp := newBadRequest("archive is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chats.ArchiveChat(r.Context(), userId, req.ChatId, *req.Archive); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"chatId": req.ChatId, "isArchived": *req.Archive})
}
