package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lesovana-debug/vladobot/internal/domain"
)

// MediaFetcher downloads raw media bytes by platform file reference.
// telegram.Router implements this over the bot file API.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaRef string) (io.ReadCloser, error)
}

// Files above this size are skipped instead of transcribed.
const maxMediaBytes = 20 << 20

// ErrMediaTooLarge rejects media above maxMediaBytes. The resolver treats it
// like any other STT failure: the message stays unrecognized.
var ErrMediaTooLarge = errors.New("media too large")

// Whisper transcribes audio through the OpenAI transcription endpoint.
type Whisper struct {
	client  *openai.Client
	fetcher MediaFetcher
	model   string
}

func NewWhisper(client *openai.Client, fetcher MediaFetcher, model string) *Whisper {
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: client, fetcher: fetcher, model: model}
}

// Transcribe downloads the media and runs speech-to-text on it.
func (w *Whisper) Transcribe(ctx context.Context, mediaRef string) (*domain.Transcript, error) {
	body, err := w.fetcher.FetchMedia(ctx, mediaRef)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer body.Close()

	// Read one byte past the limit to tell "exactly at the limit" from
	// "over it"; a truncated fragment must never be transcribed.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if n > maxMediaBytes {
		return nil, ErrMediaTooLarge
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   &buf,
		FilePath: "voice.ogg", // go-openai requires a name to pick the multipart filename
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}

	return &domain.Transcript{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: time.Duration(resp.Duration * float64(time.Second)),
	}, nil
}
