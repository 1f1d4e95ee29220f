// Package types holds the view objects returned by the REST API and carried
// in socket events. JSON field names follow the existing web client's contract.
package types

import (
	"time"
)

type User struct {
	Id           int       `json:"_id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status,omitempty"`
	Image        string    `json:"image,omitempty"`
	IsOnline     bool      `json:"isOnline"`
	LastSeen     time.Time `json:"lastSeen"`
	BlockedUsers []int     `json:"blockedUsers,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// UserRef is the abbreviated user embedded in messages and reactions.
type UserRef struct {
	Id    int    `json:"_id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type Chat struct {
	Id            string    `json:"_id"`
	Name          string    `json:"chatName"`
	IsGroupChat   bool      `json:"isGroupChat"`
	Users         []User    `json:"users"`
	GroupAdmin    *UserRef  `json:"groupAdmin,omitempty"`
	Description   string    `json:"groupDescription,omitempty"`
	Image         string    `json:"groupImage,omitempty"`
	LatestMessage *Message  `json:"latestMessage,omitempty"`
	UnreadCount   int       `json:"unreadCount"`
	IsMuted       bool      `json:"isMuted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type File struct {
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Filepath string `json:"filepath"`
	Size     int64  `json:"size"`
	PublicId string `json:"publicId,omitempty"`
}

type ReadEntry struct {
	User   int       `json:"user"`
	ReadAt time.Time `json:"readAt"`
}

type Reaction struct {
	User      UserRef   `json:"user"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type Message struct {
	Id            int64       `json:"_id"`
	Sender        UserRef     `json:"sender"`
	ChatId        string      `json:"chatId"`
	Chat          *Chat       `json:"chat,omitempty"`
	Content       string      `json:"content,omitempty"`
	File          *File       `json:"file,omitempty"`
	MessageType   string      `json:"messageType"`
	ReadBy        []ReadEntry `json:"readBy"`
	Reactions     []Reaction  `json:"reactions"`
	ReplyTo       *int64      `json:"replyTo,omitempty"`
	ForwardedFrom *int64      `json:"forwardedFrom,omitempty"`
	ForwardCount  int         `json:"forwardCount"`
	IsDeleted     bool        `json:"isDeleted"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type ChatUnread struct {
	ChatId      string `json:"chatId"`
	UnreadCount int    `json:"unreadCount"`
}

type UnreadSummary struct {
	TotalUnread int          `json:"totalUnread"`
	Chats       []ChatUnread `json:"chats"`
}
