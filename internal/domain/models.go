package domain

import "time"

// ChatKind mirrors the Telegram chat type.
type ChatKind string

const (
	ChatKindPrivate    ChatKind = "private"
	ChatKindGroup      ChatKind = "group"
	ChatKindSupergroup ChatKind = "supergroup"
)

// Chat holds per-chat digest settings. Created on first observed activity,
// never deleted except by explicit /wipe.
type Chat struct {
	ID            int64
	Title         string
	Kind          ChatKind
	ReportTime    string // local "HH:MM"
	Timezone      string // IANA name
	TargetMention string // tagged in every digest
	Active        bool
	CreatedAt     time.Time // UTC
}

// User is a message author. OptedOut hides the user's messages from digests,
// evaluated at generation time.
type User struct {
	ID        int64
	Username  string // optional, without "@"
	FirstName string
	OptedOut  bool
}

// DisplayName returns "@username" when present, first name otherwise.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

// MessageType classifies a stored message.
type MessageType string

const (
	TypeText      MessageType = "text"
	TypePhoto     MessageType = "photo"
	TypeVideo     MessageType = "video"
	TypeVoice     MessageType = "voice"
	TypeAudio     MessageType = "audio"
	TypeVideoNote MessageType = "video_note"
	TypeSticker   MessageType = "sticker"
	TypeDocument  MessageType = "document"
)

// HasSpeech reports whether the type carries spoken audio a transcript may
// exist for.
func (t MessageType) HasSpeech() bool {
	return t == TypeVoice || t == TypeAudio || t == TypeVideoNote
}

// Message is one stored chat message. Immutable once written; the composite
// key is (ChatID, MessageID).
type Message struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Type      MessageType
	Content   string // caption or text, may be empty
	MediaRef  string // platform file reference, may be empty
	ReplyTo   int    // 0 when not a reply
	CreatedAt time.Time // UTC; the date window is computed over this field
}

// StoredMessage is a Message joined with its author, as returned by range
// queries.
type StoredMessage struct {
	Message
	Author User
}

// Transcript is speech-to-text output for one (message, media) pair.
// Written at most once; an existing row always wins over recomputation.
type Transcript struct {
	MessageID int
	MediaRef  string
	Text      string
	Language  string        // optional BCP-47 tag
	Duration  time.Duration // optional
}
