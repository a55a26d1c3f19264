package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/digest"
	"github.com/lesovana-debug/vladobot/internal/domain"
)

type fakeBackend struct {
	probeErr  error
	renderErr error
	text      string

	probes  int
	renders int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Probe(context.Context) error {
	f.probes++
	return f.probeErr
}

func (f *fakeBackend) Render(_ context.Context, _ []string, _ Context) (string, error) {
	f.renders++
	if f.renderErr != nil {
		return "", f.renderErr
	}
	return f.text, nil
}

func testMeta() Context {
	return Context{
		ChatTitle:  "Тестовый чат",
		DateLabel:  "10.06.2025",
		TotalCount: 5,
		Mention:    "дорогие коллеги",
	}
}

func testDigest() *digest.Digest {
	at := time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)
	items := []digest.Item{
		{
			StoredMessage: domain.StoredMessage{
				Message: domain.Message{MessageID: 1, Type: domain.TypeText, Content: "привет", CreatedAt: at},
				Author:  domain.User{Username: "vlad"},
			},
		},
		{
			StoredMessage: domain.StoredMessage{
				Message: domain.Message{MessageID: 2, Type: domain.TypeVoice, MediaRef: "f", CreatedAt: at.Add(time.Hour)},
				Author:  domain.User{FirstName: "Оля"},
			},
		},
	}
	return &digest.Digest{Messages: items, TotalCount: 5}
}

func TestRenderUsesPrimary(t *testing.T) {
	b := &fakeBackend{text: "сгенерированный дайджест"}
	g := NewGate(b, zap.NewNop())

	got := g.Render(context.Background(), testDigest(), testMeta())
	require.Equal(t, "сгенерированный дайджест", got)
	require.Equal(t, 1, b.probes)
	require.Equal(t, 1, b.renders)
}

func TestRenderFallsBackOnBackendError(t *testing.T) {
	b := &fakeBackend{renderErr: errors.New("quota exceeded")}
	g := NewGate(b, zap.NewNop())

	got := g.Render(context.Background(), testDigest(), testMeta())
	require.NotEmpty(t, got)
	require.Contains(t, got, "дорогие коллеги")
	require.Contains(t, got, "Всего сообщений за день: 5")
	// Raw backend error never reaches the user.
	require.NotContains(t, got, "quota")
}

func TestRenderFallbackWhenProbeFails(t *testing.T) {
	b := &fakeBackend{probeErr: errors.New("unreachable")}
	g := NewGate(b, zap.NewNop())

	got := g.Render(context.Background(), testDigest(), testMeta())
	require.Contains(t, got, "дорогие коллеги")
	require.Zero(t, b.renders, "unavailable backend must not be called")
}

func TestProbeRunsOnce(t *testing.T) {
	b := &fakeBackend{probeErr: errors.New("down")}
	g := NewGate(b, zap.NewNop())

	for i := 0; i < 3; i++ {
		g.Render(context.Background(), testDigest(), testMeta())
	}
	// Verdict is cached for the process lifetime: no re-probe per call.
	require.Equal(t, 1, b.probes)
}

func TestRenderNilPrimary(t *testing.T) {
	g := NewGate(nil, zap.NewNop())
	got := g.Render(context.Background(), testDigest(), testMeta())
	require.Contains(t, got, "Всего сообщений за день: 5")
}

func TestRenderEmptyInputSkipsBackend(t *testing.T) {
	b := &fakeBackend{text: "не должно появиться"}
	g := NewGate(b, zap.NewNop())

	got := g.Render(context.Background(), &digest.Digest{}, testMeta())
	require.Contains(t, got, "сообщений не было")
	require.Zero(t, b.probes)
	require.Zero(t, b.renders)
}

func TestFormatLines(t *testing.T) {
	at := time.Date(2025, time.June, 10, 9, 5, 0, 0, time.UTC)
	items := []digest.Item{
		{
			StoredMessage: domain.StoredMessage{
				Message: domain.Message{Type: domain.TypeText, Content: "привет всем", CreatedAt: at},
				Author:  domain.User{Username: "vlad"},
			},
		},
		{
			StoredMessage: domain.StoredMessage{
				Message: domain.Message{Type: domain.TypePhoto, Content: "закат", CreatedAt: at.Add(time.Minute)},
				Author:  domain.User{FirstName: "Оля"},
			},
		},
		{
			StoredMessage: domain.StoredMessage{
				Message: domain.Message{Type: domain.TypeVoice, MediaRef: "f1", CreatedAt: at.Add(2 * time.Minute)},
				Author:  domain.User{FirstName: "Оля"},
			},
			Transcript: &domain.Transcript{Text: "я опоздаю"},
		},
		{
			StoredMessage: domain.StoredMessage{
				Message: domain.Message{Type: domain.TypeVoice, MediaRef: "f2", CreatedAt: at.Add(3 * time.Minute)},
				Author:  domain.User{FirstName: "Оля"},
			},
		},
		{
			StoredMessage: domain.StoredMessage{
				Message: domain.Message{Type: domain.TypeSticker, CreatedAt: at.Add(4 * time.Minute)},
				Author:  domain.User{Username: "vlad"},
			},
		},
	}

	lines := FormatLines(items)
	require.Equal(t, []string{
		"09:05 — @vlad: привет всем",
		"09:06 — Оля: [фото] закат",
		"09:07 — Оля: [голосовое] я опоздаю",
		"09:08 — Оля: [голосовое] не распознано",
		"09:09 — @vlad: [стикер]",
	}, lines)
}

func TestFormatLinesPhotoWithoutCaption(t *testing.T) {
	at := time.Date(2025, time.June, 10, 9, 5, 0, 0, time.UTC)
	items := []digest.Item{{
		StoredMessage: domain.StoredMessage{
			Message: domain.Message{Type: domain.TypePhoto, CreatedAt: at},
			Author:  domain.User{FirstName: "Оля"},
		},
	}}
	require.Equal(t, []string{"09:05 — Оля: [фото]"}, FormatLines(items))
}

func TestRenderFallbackCounts(t *testing.T) {
	at := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	mk := func(tp domain.MessageType) digest.Item {
		return digest.Item{StoredMessage: domain.StoredMessage{
			Message: domain.Message{Type: tp, CreatedAt: at},
			Author:  domain.User{FirstName: "U"},
		}}
	}
	items := []digest.Item{
		mk(domain.TypeText), mk(domain.TypeText),
		mk(domain.TypeVoice), mk(domain.TypeVideoNote),
		mk(domain.TypePhoto),
	}

	got := RenderFallback(items, testMeta())
	require.Contains(t, got, "текстовых сообщений: 2")
	require.Contains(t, got, "голосовых и кружков: 2")
	require.Contains(t, got, "прочих медиа: 1")
	require.True(t, strings.HasPrefix(got, "дорогие коллеги"))
}
