package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/config"
	"github.com/lesovana-debug/vladobot/internal/digest"
	"github.com/lesovana-debug/vladobot/internal/schedule"
	"github.com/lesovana-debug/vladobot/internal/store"
	"github.com/lesovana-debug/vladobot/internal/summary"
	"github.com/lesovana-debug/vladobot/internal/telegram"
	"github.com/lesovana-debug/vladobot/internal/transcribe"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting vladobot", zap.String("http", a.cfg.HTTPAddr))

	// Open SQLite and run migrations. Losing the store at startup is fatal.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	a.router = telegram.NewRouter(a.bot, a.log, a.repo, telegram.Defaults{
		ReportTime: a.cfg.DefaultReportTime,
		Timezone:   a.cfg.DefaultTZ,
		Mention:    a.cfg.DefaultMention,
	})

	// Generative backend and speech-to-text are optional: without an API key
	// digests come from the deterministic fallback and voice messages stay
	// unrecognized.
	var (
		primary summary.Backend
		stt     transcribe.SpeechToText
	)
	if a.cfg.OpenAIAPIKey != "" {
		clientCfg := openai.DefaultConfig(a.cfg.OpenAIAPIKey)
		if a.cfg.OpenAIBaseURL != "" {
			clientCfg.BaseURL = a.cfg.OpenAIBaseURL
		}
		client := openai.NewClientWithConfig(clientCfg)
		primary = summary.NewOpenAIBackend(client, a.cfg.OpenAIModel)
		stt = transcribe.NewWhisper(client, a.router, a.cfg.STTModel)
	}

	resolver := transcribe.NewCachedResolver(a.repo, stt, a.log)
	generator := digest.NewGenerator(a.repo, resolver, a.log)
	gate := summary.NewGate(primary, a.log)

	registry := schedule.NewRegistry(a.repo, generator, gate, a.router, a.log)
	a.router.AttachScheduler(registry)

	if err := registry.Reconcile(ctx); err != nil {
		a.log.Error("reconcile failed", zap.Error(err))
		return err
	}
	registry.Start()
	defer registry.Stop()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
