// Package digest assembles the ordered, filtered message set a daily report
// is generated from.
package digest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/domain"
	"github.com/lesovana-debug/vladobot/internal/store"
	"github.com/lesovana-debug/vladobot/internal/transcribe"
)

// Item is one digest-ready message. Transcript is nil when the message
// carries speech but no transcript could be resolved; renderers must show an
// explicit "unrecognized" marker for that case.
type Item struct {
	domain.StoredMessage
	Transcript *domain.Transcript
}

// Digest is the assembled input for one chat and one calendar day.
// Messages holds the filtered set (opted-out authors removed) in
// chronological order. TotalCount is the unfiltered message count for the
// day; the two must not be conflated.
type Digest struct {
	Messages   []Item
	TotalCount int
}

// Generator pulls a day's window from the store and prepares it for
// rendering. Stateless per call.
type Generator struct {
	repo        store.Repo
	transcripts transcribe.Resolver
	log         *zap.Logger
}

func NewGenerator(repo store.Repo, transcripts transcribe.Resolver, log *zap.Logger) *Generator {
	return &Generator{repo: repo, transcripts: transcripts, log: log}
}

// Assemble builds the digest input for the calendar day starting at day
// (a midnight in the chat's timezone).
//
// Opt-out is evaluated now, not at store time: a user who opted out after
// writing still has their history hidden. Store order (creation time, then
// insertion order) is preserved as-is.
func (g *Generator) Assemble(ctx context.Context, chatID int64, day time.Time) (*Digest, error) {
	start, end := domain.DayWindow(day)

	stored, err := g.repo.GetMessagesInRange(ctx, chatID, start, end)
	if err != nil {
		return nil, fmt.Errorf("messages in range: %w", err)
	}

	d := &Digest{TotalCount: len(stored)}
	for _, sm := range stored {
		if sm.Author.OptedOut {
			continue
		}
		item := Item{StoredMessage: sm}
		if sm.Type.HasSpeech() && sm.MediaRef != "" {
			t, err := g.transcripts.Resolve(ctx, sm.MessageID, sm.MediaRef)
			if err != nil {
				return nil, fmt.Errorf("resolve transcript: %w", err)
			}
			item.Transcript = t
		}
		d.Messages = append(d.Messages, item)
	}

	g.log.Debug("digest assembled",
		zap.Int64("chatID", chatID),
		zap.Int("total", d.TotalCount),
		zap.Int("kept", len(d.Messages)),
	)
	return d, nil
}

// HasContent reports whether Assemble for the same day would yield at least
// one message after filtering. Used to suppress delivery of empty scheduled
// digests.
func (g *Generator) HasContent(ctx context.Context, chatID int64, day time.Time) (bool, error) {
	start, end := domain.DayWindow(day)
	stored, err := g.repo.GetMessagesInRange(ctx, chatID, start, end)
	if err != nil {
		return false, fmt.Errorf("messages in range: %w", err)
	}
	for _, sm := range stored {
		if !sm.Author.OptedOut {
			return true, nil
		}
	}
	return false, nil
}
