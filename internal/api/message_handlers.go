package api

import (
	"net/http"

	"github.com/npezzotti/go-chatlive/internal/chat"
	"github.com/npezzotti/go-chatlive/internal/database"
)

type SendMessageRequest struct {
	ChatId  string         `json:"chatId"`
	Content string         `json:"content"`
	File    *database.File `json:"file,omitempty"`
	ReplyTo int64          `json:"replyTo,omitempty"`
}

type ForwardMessageRequest struct {
	MessageId int64    `json:"messageId"`
	ChatIds   []string `json:"chatIds"`
}

// MarkReadRequest marks a single message when MessageId is set and the
// whole chat otherwise.
type MarkReadRequest struct {
	ChatId    string `json:"chatId"`
	MessageId int64  `json:"messageId,omitempty"`
}

type ReactionRequest struct {
	MessageId int64  `json:"messageId"`
	Emoji     string `json:"emoji,omitempty"`
}

func (s *GoChatApp) listMessages(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	msgs, err := s.chats.ListMessages(r.Context(), userId, r.PathValue("chatId"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, msgs)
}

func (s *GoChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req SendMessageRequest
	if !s.readJson(w, r, &req) {
		return
	}

	msg, err := s.chats.SendMessage(r.Context(), userId, chat.SendParams{
		ChatId:  req.ChatId,
		Content: req.Content,
		File:    req.File,
		ReplyTo: req.ReplyTo,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *GoChatApp) forwardMessage(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req ForwardMessageRequest
	if !s.readJson(w, r, &req) {
		return
	}

	msgs, err := s.chats.ForwardMessage(r.Context(), userId, req.MessageId, req.ChatIds)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msgs)
}

func (s *GoChatApp) markRead(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req MarkReadRequest
	if !s.readJson(w, r, &req) {
		return
	}

	if req.MessageId != 0 {
		marked, err := s.chats.MarkMessageRead(r.Context(), userId, req.MessageId, req.ChatId)
		if err != nil {
			s.writeError(w, err)
			return
		}
		n := 0
		if marked {
			n = 1
		}
		s.writeJson(w, http.StatusOK, map[string]int{"marked": n})
		return
	}

	n, err := s.chats.MarkChatRead(r.Context(), userId, req.ChatId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]int{"marked": n})
}

func (s *GoChatApp) react(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req ReactionRequest
	if !s.readJson(w, r, &req) {
		return
	}

	msg, err := s.chats.React(r.Context(), userId, req.MessageId, req.Emoji)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, msg)
}

func (s *GoChatApp) removeReaction(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req ReactionRequest
	if !s.readJson(w, r, &req) {
		return
	}

	msg, err := s.chats.RemoveReaction(r.Context(), userId, req.MessageId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, msg)
}

func (s *GoChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	id, ok := s.pathId(w, r, "messageId")
	if !ok {
		return
	}

	if err := s.chats.DeleteMessage(r.Context(), userId, id); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]int64{"messageId": id})
}

func (s *GoChatApp) deleteMessageForMe(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	id, ok := s.pathId(w, r, "messageId")
	if !ok {
		return
	}

	if err := s.chats.DeleteMessageForMe(r.Context(), userId, id); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]int64{"messageId": id})
}

func (s *GoChatApp) searchMessages(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	q := r.URL.Query()
	msgs, err := s.chats.SearchMessages(r.Context(), userId, q.Get("query"), q.Get("chatId"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, msgs)
}

func (s *GoChatApp) unreadSummary(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	summary, err := s.chats.UnreadSummary(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, summary)
}

func (s *GoChatApp) downloadFile(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	id, ok := s.pathId(w, r, "messageId")
	if !ok {
		return
	}

	url, err := s.chats.FileURL(r.Context(), userId, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
