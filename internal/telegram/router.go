package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/domain"
	"github.com/lesovana-debug/vladobot/internal/store"
)

// Scheduler is the registry surface the router needs: reconfiguration and
// on-demand previews.
type Scheduler interface {
	Register(chat *domain.Chat) error
	Unregister(chatID int64)
	Trigger(ctx context.Context, chatID int64) (string, error)
}

// Defaults are applied to a chat created on first observed activity.
type Defaults struct {
	ReportTime string
	Timezone   string
	Mention    string
}

// Router wires Telegram updates to handlers: commands mutate settings and
// schedules, everything else is recorded for the daily digest.
type Router struct {
	bot       *tgbotapi.BotAPI
	log       *zap.Logger
	repo      store.Repo
	scheduler Scheduler
	defaults  Defaults
	http      *http.Client
}

// NewRouter creates a new Telegram router. The scheduler is attached
// separately because it needs the router as its delivery channel.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, defaults Defaults) *Router {
	return &Router{
		bot:      bot,
		log:      log,
		repo:     repo,
		defaults: defaults,
		http:     &http.Client{},
	}
}

// AttachScheduler injects the schedule registry after construction.
func (r *Router) AttachScheduler(s Scheduler) { r.scheduler = s }

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil {
		return
	}

	if msg.IsCommand() {
		r.handleCommand(ctx, msg)
		return
	}
	r.ingest(ctx, msg)
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		r.handleStart(ctx, msg)
	case "status":
		r.handleStatus(ctx, msg)
	case "digest":
		r.handleDigest(ctx, msg)
	case "settime":
		r.handleSetTime(ctx, msg)
	case "settz":
		r.handleSetTZ(ctx, msg)
	case "mention":
		r.handleSetMention(ctx, msg)
	case "optout":
		r.handleOptOut(ctx, msg, true)
	case "optin":
		r.handleOptOut(ctx, msg, false)
	case "on":
		r.handleToggle(ctx, msg, true)
	case "off":
		r.handleToggle(ctx, msg, false)
	case "wipe":
		r.handleWipe(ctx, msg)
	default:
		// Unknown command — ignore silently.
	}
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy schedule.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// FetchMedia downloads a file by its Telegram file ID.
// This makes Router satisfy transcribe.MediaFetcher.
func (r *Router) FetchMedia(ctx context.Context, mediaRef string) (io.ReadCloser, error) {
	url, err := r.bot.GetFileDirectURL(mediaRef)
	if err != nil {
		return nil, fmt.Errorf("file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
