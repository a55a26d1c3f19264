// Package schedule owns the per-chat recurring digest timers.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/digest"
	"github.com/lesovana-debug/vladobot/internal/domain"
	"github.com/lesovana-debug/vladobot/internal/store"
	"github.com/lesovana-debug/vladobot/internal/summary"
)

// ErrInvalidSchedule rejects a bad report time or timezone at registration.
// The chat's previous timer, if any, is left untouched.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Sender is the minimal delivery interface the registry needs.
// telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

const fireTimeout = 3 * time.Minute

const errorNotice = "Не получилось собрать дайджест сегодня. Завтра попробую снова."

// Registry keeps at most one live cron entry per chat. Entries carry a
// CRON_TZ prefix, so the next fire is recomputed in the chat's zone every
// cycle; a DST shift moves the wall clock, not the schedule.
type Registry struct {
	cron   *cron.Cron
	repo   store.Repo
	gen    *digest.Generator
	gate   *summary.Gate
	sender Sender
	log    *zap.Logger

	now func() time.Time // injectable for tests

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

func NewRegistry(repo store.Repo, gen *digest.Generator, gate *summary.Gate, sender Sender, log *zap.Logger) *Registry {
	return &Registry{
		cron:    cron.New(),
		repo:    repo,
		gen:     gen,
		gate:    gate,
		sender:  sender,
		log:     log,
		now:     time.Now,
		entries: make(map[int64]cron.EntryID),
	}
}

// Start launches the underlying cron runner.
func (r *Registry) Start() { r.cron.Start() }

// Stop cancels future fires. A fire already in flight completes.
func (r *Registry) Stop() { r.cron.Stop() }

// Register schedules daily digests for a chat, replacing any existing timer
// for the same chat ID. Validation happens before the old timer is touched:
// a failed Register leaves the previous schedule running.
func (r *Registry) Register(chat *domain.Chat) error {
	hour, minute, err := domain.ParseReportTime(chat.ReportTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if _, err := domain.LoadTimezone(chat.Timezone); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", chat.Timezone, minute, hour)
	chatID := chat.ID

	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.cron.AddFunc(spec, func() { r.fire(chatID) })
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	// Atomic replace: the old entry goes away only after the new one exists.
	if old, ok := r.entries[chatID]; ok {
		r.cron.Remove(old)
	}
	r.entries[chatID] = id

	r.log.Info("chat scheduled",
		zap.Int64("chatID", chatID),
		zap.String("reportTime", chat.ReportTime),
		zap.String("tz", chat.Timezone),
	)
	return nil
}

// Unregister cancels a chat's timer. No-op when none exists.
func (r *Registry) Unregister(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.entries[chatID]
	if !ok {
		return
	}
	r.cron.Remove(id)
	delete(r.entries, chatID)
	r.log.Info("chat unscheduled", zap.Int64("chatID", chatID))
}

// Reconcile registers every active chat from the store. Called at startup.
// One chat's bad settings do not block the rest.
func (r *Registry) Reconcile(ctx context.Context) error {
	chats, err := r.repo.ListActiveChats(ctx)
	if err != nil {
		return fmt.Errorf("list active chats: %w", err)
	}
	for i := range chats {
		if err := r.Register(&chats[i]); err != nil {
			r.log.Error("reconcile: register failed",
				zap.Int64("chatID", chats[i].ID),
				zap.Error(err),
			)
		}
	}
	r.log.Info("reconcile done", zap.Int("chats", len(chats)))
	return nil
}

// Trigger generates an on-demand digest for today, bypassing the timer.
// Unlike scheduled fires, errors surface to the caller, and an empty day
// still renders the empty-state text.
func (r *Registry) Trigger(ctx context.Context, chatID int64) (string, error) {
	chat, err := r.repo.GetChat(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("get chat: %w", err)
	}
	loc, err := domain.LoadTimezone(chat.Timezone)
	if err != nil {
		return "", err
	}

	day := domain.DayOf(r.now(), loc)
	d, err := r.gen.Assemble(ctx, chatID, day)
	if err != nil {
		return "", err
	}

	return r.gate.Render(ctx, d, renderContext(chat, day, d.TotalCount)), nil
}

// fire runs one scheduled cycle for one chat. Every failure is contained
// here: logged, reported to the chat on a best-effort basis, and never
// allowed to disturb the chat's future schedule or other chats.
func (r *Registry) fire(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	log := r.log.With(zap.Int64("chatID", chatID))

	chat, err := r.repo.GetChat(ctx, chatID)
	if err != nil {
		log.Error("fire: get chat failed", zap.Error(err))
		return
	}
	loc, err := domain.LoadTimezone(chat.Timezone)
	if err != nil {
		log.Error("fire: bad timezone", zap.Error(err))
		return
	}

	// Summarize the day that just ended in the chat's zone.
	day := domain.DayOf(r.now(), loc).AddDate(0, 0, -1)

	ok, err := r.gen.HasContent(ctx, chatID, day)
	if err != nil {
		// Window unreadable: abandon this cycle only, next day is unaffected.
		log.Error("fire: content check failed", zap.Error(err))
		r.notifyError(chatID)
		return
	}
	if !ok {
		log.Info("fire: no content, delivery suppressed", zap.Time("day", day))
		return
	}

	d, err := r.gen.Assemble(ctx, chatID, day)
	if err != nil {
		log.Error("fire: assemble failed", zap.Error(err))
		r.notifyError(chatID)
		return
	}

	text := r.gate.Render(ctx, d, renderContext(chat, day, d.TotalCount))

	if err := r.sender.SendMessage(chatID, text); err != nil {
		// Logged, one best-effort notice, no automatic retry.
		log.Error("fire: delivery failed", zap.Error(err))
		r.notifyError(chatID)
		return
	}
	log.Info("digest delivered", zap.Time("day", day), zap.Int("messages", len(d.Messages)))
}

// notifyError sends a short notice to the chat when a cycle failed. Best
// effort: a dead delivery channel is only logged.
func (r *Registry) notifyError(chatID int64) {
	if err := r.sender.SendMessage(chatID, errorNotice); err != nil {
		r.log.Warn("error notice delivery failed",
			zap.Int64("chatID", chatID),
			zap.Error(err),
		)
	}
}

func renderContext(chat *domain.Chat, day time.Time, total int) summary.Context {
	mention := chat.TargetMention
	if mention == "" {
		mention = "друзья"
	}
	return summary.Context{
		ChatTitle:  chat.Title,
		DateLabel:  domain.DateLabel(day),
		TotalCount: total,
		Mention:    mention,
	}
}
