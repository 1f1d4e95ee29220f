package database

import "time"

const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeVideo    = "video"
	MessageTypeAudio    = "audio"
	MessageTypeDocument = "document"
	MessageTypeLocation = "location"
	MessageTypeSystem   = "system"
)

type User struct {
	Id           int
	Name         string
	EmailAddress string
	Phone        string
	Status       string
	Image        string
	PasswordHash string
	BlockedUsers []int
	IsOnline     bool
	LastSeen     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasBlocked reports whether u has blocked userId.
func (u User) HasBlocked(userId int) bool {
	for _, id := range u.BlockedUsers {
		if id == userId {
			return true
		}
	}
	return false
}

type Chat struct {
	Id              string
	Name            string
	IsGroupChat     bool
	Users           []int
	GroupAdmin      int
	Description     string
	Image           string
	LatestMessageId int64
	MutedBy         []int
	ArchivedBy      []int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c Chat) IsMember(userId int) bool {
	return containsInt(c.Users, userId)
}

func (c Chat) IsAdmin(userId int) bool {
	return c.IsGroupChat && c.GroupAdmin != 0 && c.GroupAdmin == userId
}

func (c Chat) IsMutedBy(userId int) bool {
	return containsInt(c.MutedBy, userId)
}

type File struct {
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Filepath string `json:"filepath"`
	Size     int64  `json:"size"`
	PublicId string `json:"publicId,omitempty"`
}

type Read struct {
	UserId int
	ReadAt time.Time
}

type Reaction struct {
	UserId    int
	Emoji     string
	CreatedAt time.Time
}

type Message struct {
	Id            int64
	ChatId        string
	SenderId      int
	Content       string
	File          *File
	MessageType   string
	ReplyTo       int64
	ForwardedFrom int64
	ForwardCount  int
	IsDeleted     bool
	DeletedFor    []int
	ReadBy        []Read
	Reactions     []Reaction
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReadMark is a read-state entry newly appended by a mark-read operation.
type ReadMark struct {
	MessageId int64
	ChatId    string
	SenderId  int
	ReadAt    time.Time
}

type UnreadCount struct {
	ChatId string
	Count  int
}

type ChatFlag string

const (
	ChatFlagMuted    ChatFlag = "muted_by"
	ChatFlagArchived ChatFlag = "archived_by"
)

type CreateUserParams struct {
	Name         string
	EmailAddress string
	Phone        string
	Image        string
	PasswordHash string
}

type UpdateUserParams struct {
	UserId       int
	Name         string
	Status       string
	Image        string
	PasswordHash string
}

type CreateChatParams struct {
	Id          string
	Name        string
	IsGroupChat bool
	Users       []int
	GroupAdmin  int
	Description string
	Image       string
}

type UpdateChatParams struct {
	Id          string
	Name        string
	Users       []int
	GroupAdmin  int
	Description string
}

type CreateMessageParams struct {
	ChatId        string
	SenderId      int
	Content       string
	File          *File
	MessageType   string
	ReplyTo       int64
	ForwardedFrom int64
	CreatedAt     time.Time
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
