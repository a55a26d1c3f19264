package transcribe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lesovana-debug/vladobot/internal/domain"
	"github.com/lesovana-debug/vladobot/internal/store"
)

type fakeRepo struct {
	store.Repo
	transcripts map[string]*domain.Transcript
	puts        int
}

func key(messageID int, mediaRef string) string {
	return fmt.Sprintf("%d#%s", messageID, mediaRef)
}

func (f *fakeRepo) GetTranscript(_ context.Context, messageID int, mediaRef string) (*domain.Transcript, error) {
	t, ok := f.transcripts[key(messageID, mediaRef)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) PutTranscript(_ context.Context, t *domain.Transcript) (err error) {
	f.puts++
	k := key(t.MessageID, t.MediaRef)
	if _, exists := f.transcripts[k]; exists {
		return nil // first write wins
	}
	if f.transcripts == nil {
		f.transcripts = make(map[string]*domain.Transcript)
	}
	f.transcripts[k] = t
	return nil
}

type fakeSTT struct {
	text  string
	err   error
	calls int
}

func (f *fakeSTT) Transcribe(_ context.Context, _ string) (*domain.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Transcript{Text: f.text}, nil
}

func TestResolvePrefersCachedTranscript(t *testing.T) {
	repo := &fakeRepo{transcripts: map[string]*domain.Transcript{
		key(1, "file-a"): {MessageID: 1, MediaRef: "file-a", Text: "из кеша"},
	}}
	stt := &fakeSTT{text: "свежая расшифровка"}
	r := NewCachedResolver(repo, stt, zap.NewNop())

	got, err := r.Resolve(context.Background(), 1, "file-a")
	require.NoError(t, err)
	require.Equal(t, "из кеша", got.Text)
	require.Zero(t, stt.calls, "cached row must win over recomputation")
}

func TestResolveProducesAndStoresOnMiss(t *testing.T) {
	repo := &fakeRepo{}
	stt := &fakeSTT{text: "свежая расшифровка"}
	r := NewCachedResolver(repo, stt, zap.NewNop())

	got, err := r.Resolve(context.Background(), 1, "file-a")
	require.NoError(t, err)
	require.Equal(t, "свежая расшифровка", got.Text)
	require.Equal(t, 1, got.MessageID)
	require.Equal(t, "file-a", got.MediaRef)
	require.Equal(t, 1, repo.puts)

	// Second resolve hits the cache.
	_, err = r.Resolve(context.Background(), 1, "file-a")
	require.NoError(t, err)
	require.Equal(t, 1, stt.calls)
}

func TestResolveWithoutSTTBackend(t *testing.T) {
	r := NewCachedResolver(&fakeRepo{}, nil, zap.NewNop())
	got, err := r.Resolve(context.Background(), 1, "file-a")
	require.NoError(t, err)
	require.Nil(t, got, "no backend means explicitly unavailable, not an error")
}

func TestResolveSTTFailureIsNotFatal(t *testing.T) {
	stt := &fakeSTT{err: errors.New("stt down")}
	r := NewCachedResolver(&fakeRepo{}, stt, zap.NewNop())

	got, err := r.Resolve(context.Background(), 1, "file-a")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestResolveEmptyMediaRef(t *testing.T) {
	r := NewCachedResolver(&fakeRepo{}, &fakeSTT{}, zap.NewNop())
	got, err := r.Resolve(context.Background(), 1, "")
	require.NoError(t, err)
	require.Nil(t, got)
}
