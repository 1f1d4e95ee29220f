package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/npezzotti/go-chatlive/internal/chat"
	"github.com/npezzotti/go-chatlive/internal/config"
	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/server"
)

type GoChatApp struct {
	log            *log.Logger
	db             database.GoChatRepository
	mux            *http.Server
	cs             *server.ChatServer
	chats          *chat.Service
	signingKey     []byte
	allowedOrigins []string
}

func NewGoChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, chats *chat.Service, db database.GoChatRepository, cfg *config.Config) *GoChatApp {
	s := &GoChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		chats:          chats,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))

	mux.HandleFunc("GET /api/users", s.authMiddleware(s.searchUsers))
	mux.HandleFunc("GET /api/users/profile", s.authMiddleware(s.session))
	mux.HandleFunc("PUT /api/users/profile", s.authMiddleware(s.updateProfile))
	mux.HandleFunc("POST /api/users/block", s.authMiddleware(s.blockUser))
	mux.HandleFunc("POST /api/users/unblock", s.authMiddleware(s.unblockUser))
	mux.HandleFunc("GET /api/users/blocked", s.authMiddleware(s.blockedUsers))
	mux.HandleFunc("PUT /api/users/status/online", s.authMiddleware(s.setOnlineStatus))
	mux.HandleFunc("GET /api/users/{userId}", s.authMiddleware(s.getUser))

	mux.HandleFunc("GET /api/chat", s.authMiddleware(s.fetchChats))
	mux.HandleFunc("POST /api/chat", s.authMiddleware(s.accessChat))
	mux.HandleFunc("POST /api/chat/group", s.authMiddleware(s.createGroup))
	mux.HandleFunc("PUT /api/chat/rename", s.authMiddleware(s.renameGroup))
	mux.HandleFunc("PUT /api/chat/groupadd", s.authMiddleware(s.addToGroup))
	mux.HandleFunc("PUT /api/chat/groupremove", s.authMiddleware(s.removeFromGroup))
	mux.HandleFunc("PUT /api/chat/leave", s.authMiddleware(s.leaveGroup))
	mux.HandleFunc("PUT /api/chat/mute", s.authMiddleware(s.muteChat))
	mux.HandleFunc("PUT /api/chat/archive", s.authMiddleware(s.archiveChat))

	mux.HandleFunc("GET /api/message/unread", s.authMiddleware(s.unreadSummary))
	mux.HandleFunc("GET /api/message/search", s.authMiddleware(s.searchMessages))
	mux.HandleFunc("POST /api/message", s.authMiddleware(s.sendMessage))
	mux.HandleFunc("POST /api/message/forward", s.authMiddleware(s.forwardMessage))
	mux.HandleFunc("PUT /api/message/read", s.authMiddleware(s.markRead))
	mux.HandleFunc("POST /api/message/react", s.authMiddleware(s.react))
	mux.HandleFunc("DELETE /api/message/react", s.authMiddleware(s.removeReaction))
	mux.HandleFunc("GET /api/message/download/{messageId}", s.authMiddleware(s.downloadFile))
	mux.HandleFunc("PUT /api/message/{messageId}/deleteforme", s.authMiddleware(s.deleteMessageForMe))
	mux.HandleFunc("GET /api/message/{chatId}", s.authMiddleware(s.listMessages))
	mux.HandleFunc("DELETE /api/message/{messageId}", s.authMiddleware(s.deleteMessage))

	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := s.cors(mux)
	h = s.logRequests(h)
	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *GoChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *GoChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
