// Package transcribe resolves transcripts for voice, audio and video note
// messages. A stored transcript always wins; speech-to-text runs at most once
// per (message, media) pair.
package transcribe

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/domain"
	"github.com/lesovana-debug/vladobot/internal/store"
)

// Resolver returns transcript text for a media reference. A (nil, nil)
// result means no transcript is available; callers render an explicit
// "unrecognized" marker instead of silently dropping it.
type Resolver interface {
	Resolve(ctx context.Context, messageID int, mediaRef string) (*domain.Transcript, error)
}

// SpeechToText produces a fresh transcript from a media reference.
type SpeechToText interface {
	Transcribe(ctx context.Context, mediaRef string) (*domain.Transcript, error)
}

const sttTimeout = 60 * time.Second

// CachedResolver consults the transcript store first and falls through to an
// optional speech-to-text backend on miss.
type CachedResolver struct {
	repo store.Repo
	stt  SpeechToText // nil when no STT backend is configured
	log  *zap.Logger
}

func NewCachedResolver(repo store.Repo, stt SpeechToText, log *zap.Logger) *CachedResolver {
	return &CachedResolver{repo: repo, stt: stt, log: log}
}

// Resolve returns the cached transcript, or produces and stores one when a
// speech-to-text backend is configured. STT failures are not fatal to digest
// generation: the message is reported as unrecognized.
func (r *CachedResolver) Resolve(ctx context.Context, messageID int, mediaRef string) (*domain.Transcript, error) {
	if mediaRef == "" {
		return nil, nil
	}

	t, err := r.repo.GetTranscript(ctx, messageID, mediaRef)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if r.stt == nil {
		return nil, nil
	}

	sttCtx, cancel := context.WithTimeout(ctx, sttTimeout)
	defer cancel()

	t, err = r.stt.Transcribe(sttCtx, mediaRef)
	if err != nil {
		r.log.Warn("speech-to-text failed",
			zap.Int("messageID", messageID),
			zap.Error(err),
		)
		return nil, nil
	}
	t.MessageID = messageID
	t.MediaRef = mediaRef

	if err := r.repo.PutTranscript(ctx, t); err != nil {
		r.log.Warn("transcript store failed",
			zap.Int("messageID", messageID),
			zap.Error(err),
		)
	}
	return t, nil
}
