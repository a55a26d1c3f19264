package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/domain"
	"github.com/lesovana-debug/vladobot/internal/store"
)

// ensureChat makes sure a chat row exists; if not, creates it with defaults
// and schedules it.
func (r *Router) ensureChat(ctx context.Context, tgChat *tgbotapi.Chat) (*domain.Chat, error) {
	c, err := r.repo.GetChat(ctx, tgChat.ID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	c = &domain.Chat{
		ID:            tgChat.ID,
		Title:         chatTitle(tgChat),
		Kind:          domain.ChatKind(tgChat.Type),
		ReportTime:    r.defaults.ReportTime,
		Timezone:      r.defaults.Timezone,
		TargetMention: r.defaults.Mention,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.repo.UpsertChat(ctx, c); err != nil {
		return nil, err
	}
	if err := r.scheduler.Register(c); err != nil {
		r.log.Error("schedule new chat failed", zap.Int64("chatID", c.ID), zap.Error(err))
	}
	return c, nil
}

func chatTitle(tgChat *tgbotapi.Chat) string {
	if tgChat.Title != "" {
		return tgChat.Title
	}
	return strings.TrimSpace(tgChat.FirstName + " " + tgChat.LastName)
}

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

// --- Commands ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := r.ensureChat(ctx, msg.Chat); err != nil {
		r.log.Error("ensureChat failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	r.sendText(msg.Chat.ID, startText)
}

func (r *Router) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	c, err := r.ensureChat(ctx, msg.Chat)
	if err != nil {
		r.log.Error("ensureChat failed", zap.Error(err))
		r.sendText(chatID, settingsErr)
		return
	}

	mark := enabledMark
	if !c.Active {
		mark = disabledMark
	}
	mention := c.TargetMention
	if mention == "" {
		mention = "—"
	}
	r.sendText(chatID, fmt.Sprintf(statusFmt, c.ReportTime, c.Timezone, mention, mark))
}

func (r *Router) handleDigest(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := r.ensureChat(ctx, msg.Chat); err != nil {
		r.log.Error("ensureChat failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}

	// Preview surfaces errors to the chat instead of silently degrading.
	text, err := r.scheduler.Trigger(ctx, msg.Chat.ID)
	if err != nil {
		r.log.Error("preview failed", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
		r.sendText(msg.Chat.ID, fmt.Sprintf(previewFailFmt, err))
		return
	}
	r.sendText(msg.Chat.ID, text)
}

func (r *Router) handleSetTime(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	hour, minute, err := domain.ParseReportTime(arg)
	if err != nil {
		r.sendText(msg.Chat.ID, badTimeText)
		return
	}
	normalized := domain.FormatReportTime(hour, minute)

	r.applySetting(ctx, msg, fmt.Sprintf(timeSetFmt, normalized), func(c *domain.Chat) error {
		c.ReportTime = normalized
		return r.repo.SetReportTime(ctx, c.ID, normalized)
	})
}

func (r *Router) handleSetTZ(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	loc, err := domain.LoadTimezone(arg)
	if err != nil {
		r.sendText(msg.Chat.ID, badTZText)
		return
	}
	tz := loc.String()

	r.applySetting(ctx, msg, fmt.Sprintf(tzSetFmt, tz), func(c *domain.Chat) error {
		c.Timezone = tz
		return r.repo.SetTimezone(ctx, c.ID, tz)
	})
}

func (r *Router) handleSetMention(ctx context.Context, msg *tgbotapi.Message) {
	mention := strings.TrimSpace(msg.CommandArguments())
	if mention == "" {
		r.sendText(msg.Chat.ID, mentionUsage)
		return
	}

	if _, err := r.ensureChat(ctx, msg.Chat); err != nil {
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	if err := r.repo.SetTargetMention(ctx, msg.Chat.ID, mention); err != nil {
		r.log.Error("set mention failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	r.sendText(msg.Chat.ID, fmt.Sprintf(mentionSetFmt, mention))
}

// applySetting mutates a schedule-affecting chat setting and atomically
// replaces the chat's timer.
func (r *Router) applySetting(ctx context.Context, msg *tgbotapi.Message, okText string, mutate func(*domain.Chat) error) {
	c, err := r.ensureChat(ctx, msg.Chat)
	if err != nil {
		r.log.Error("ensureChat failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	if err := mutate(c); err != nil {
		r.log.Error("settings update failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	if c.Active {
		if err := r.scheduler.Register(c); err != nil {
			r.log.Error("reschedule failed", zap.Int64("chatID", c.ID), zap.Error(err))
			r.sendText(msg.Chat.ID, settingsErr)
			return
		}
	}
	r.sendText(msg.Chat.ID, okText)
}

func (r *Router) handleOptOut(ctx context.Context, msg *tgbotapi.Message, optedOut bool) {
	if err := r.upsertAuthor(ctx, msg.From); err != nil {
		r.log.Error("upsert user failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	if err := r.repo.SetUserOptOut(ctx, msg.From.ID, optedOut); err != nil {
		r.log.Error("set opt-out failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	if optedOut {
		r.sendText(msg.Chat.ID, optedOutText)
		return
	}
	r.sendText(msg.Chat.ID, optedInText)
}

func (r *Router) handleToggle(ctx context.Context, msg *tgbotapi.Message, active bool) {
	c, err := r.ensureChat(ctx, msg.Chat)
	if err != nil {
		r.log.Error("ensureChat failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	if err := r.repo.SetActive(ctx, c.ID, active); err != nil {
		r.log.Error("set active failed", zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}

	if active {
		c.Active = true
		if err := r.scheduler.Register(c); err != nil {
			r.log.Error("schedule failed", zap.Int64("chatID", c.ID), zap.Error(err))
			r.sendText(msg.Chat.ID, settingsErr)
			return
		}
		r.sendText(msg.Chat.ID, digestOnText)
		return
	}

	r.scheduler.Unregister(c.ID)
	r.sendText(msg.Chat.ID, digestOffText)
}

func (r *Router) handleWipe(ctx context.Context, msg *tgbotapi.Message) {
	r.scheduler.Unregister(msg.Chat.ID)
	if err := r.repo.WipeChat(ctx, msg.Chat.ID); err != nil {
		r.log.Error("wipe failed", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
		r.sendText(msg.Chat.ID, settingsErr)
		return
	}
	r.sendText(msg.Chat.ID, wipedText)
}

// --- Ingestion ---

// ingest maps an observed message to a stored record. The chat is created on
// first activity, the author is upserted on every message.
func (r *Router) ingest(ctx context.Context, msg *tgbotapi.Message) {
	msgType, mediaRef := classify(msg)
	if msgType == "" {
		return // service messages, polls, etc.
	}

	if _, err := r.ensureChat(ctx, msg.Chat); err != nil {
		r.log.Error("ensureChat failed", zap.Error(err))
		return
	}
	if err := r.upsertAuthor(ctx, msg.From); err != nil {
		r.log.Error("upsert user failed", zap.Error(err))
		return
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}
	replyTo := 0
	if msg.ReplyToMessage != nil {
		replyTo = msg.ReplyToMessage.MessageID
	}

	m := &domain.Message{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Type:      msgType,
		Content:   content,
		MediaRef:  mediaRef,
		ReplyTo:   replyTo,
		CreatedAt: time.Unix(int64(msg.Date), 0).UTC(),
	}
	if err := r.repo.InsertMessage(ctx, m); err != nil {
		r.log.Error("insert message failed",
			zap.Int64("chatID", m.ChatID),
			zap.Int("messageID", m.MessageID),
			zap.Error(err),
		)
	}
}

func (r *Router) upsertAuthor(ctx context.Context, from *tgbotapi.User) error {
	return r.repo.UpsertUser(ctx, &domain.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
	})
}

// classify maps a Telegram message to a stored type and media reference.
// Returns an empty type for messages the digest does not cover.
func classify(msg *tgbotapi.Message) (domain.MessageType, string) {
	switch {
	case msg.Text != "":
		return domain.TypeText, ""
	case len(msg.Photo) > 0:
		// Telegram sends several sizes; the last one is the largest.
		return domain.TypePhoto, msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		return domain.TypeVideo, msg.Video.FileID
	case msg.Voice != nil:
		return domain.TypeVoice, msg.Voice.FileID
	case msg.Audio != nil:
		return domain.TypeAudio, msg.Audio.FileID
	case msg.VideoNote != nil:
		return domain.TypeVideoNote, msg.VideoNote.FileID
	case msg.Sticker != nil:
		return domain.TypeSticker, msg.Sticker.FileID
	case msg.Document != nil:
		return domain.TypeDocument, msg.Document.FileID
	default:
		return "", ""
	}
}
