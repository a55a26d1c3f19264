package store

import (
	"context"
	"errors"
	"time"

	"github.com/lesovana-debug/vladobot/internal/domain"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for chats, users, messages and transcripts.
type Repo interface {
	UpsertChat(ctx context.Context, c *domain.Chat) error
	GetChat(ctx context.Context, chatID int64) (*domain.Chat, error)
	ListActiveChats(ctx context.Context) ([]domain.Chat, error)
	SetReportTime(ctx context.Context, chatID int64, reportTime string) error
	SetTimezone(ctx context.Context, chatID int64, tz string) error
	SetTargetMention(ctx context.Context, chatID int64, mention string) error
	SetActive(ctx context.Context, chatID int64, active bool) error
	WipeChat(ctx context.Context, chatID int64) error

	UpsertUser(ctx context.Context, u *domain.User) error
	SetUserOptOut(ctx context.Context, userID int64, optedOut bool) error

	InsertMessage(ctx context.Context, m *domain.Message) error
	GetMessagesInRange(ctx context.Context, chatID int64, start, end time.Time) ([]domain.StoredMessage, error)

	GetTranscript(ctx context.Context, messageID int, mediaRef string) (*domain.Transcript, error)
	PutTranscript(ctx context.Context, t *domain.Transcript) error

	Close() error
}
