package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lesovana-debug/vladobot/internal/domain"
)

func bootstrap(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedChat(t *testing.T, repo *SQLiteRepo, chatID int64) *domain.Chat {
	t.Helper()
	c := &domain.Chat{
		ID:            chatID,
		Title:         "Тестовый чат",
		Kind:          domain.ChatKindSupergroup,
		ReportTime:    "21:00",
		Timezone:      "Europe/Berlin",
		TargetMention: "друзья",
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.UpsertChat(context.Background(), c))
	return c
}

func seedUser(t *testing.T, repo *SQLiteRepo, userID int64, username string) {
	t.Helper()
	require.NoError(t, repo.UpsertUser(context.Background(), &domain.User{
		ID:        userID,
		Username:  username,
		FirstName: "User",
	}))
}

func TestUpsertChatPreservesSettings(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()
	seedChat(t, repo, 1)

	require.NoError(t, repo.SetReportTime(ctx, 1, "09:30"))
	require.NoError(t, repo.SetTimezone(ctx, 1, "Asia/Almaty"))
	require.NoError(t, repo.SetTargetMention(ctx, 1, "коллеги"))

	// Re-observing the chat updates title/kind only.
	require.NoError(t, repo.UpsertChat(ctx, &domain.Chat{
		ID:         1,
		Title:      "Новое название",
		Kind:       domain.ChatKindGroup,
		ReportTime: "21:00",
		Timezone:   "Europe/Moscow",
		Active:     true,
	}))

	c, err := repo.GetChat(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Новое название", c.Title)
	require.Equal(t, "09:30", c.ReportTime)
	require.Equal(t, "Asia/Almaty", c.Timezone)
	require.Equal(t, "коллеги", c.TargetMention)
}

func TestGetChatNotFound(t *testing.T) {
	repo := bootstrap(t)
	_, err := repo.GetChat(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, repo.SetReportTime(context.Background(), 404, "10:00"), ErrNotFound)
}

func TestListActiveChats(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()
	seedChat(t, repo, 1)
	seedChat(t, repo, 2)
	require.NoError(t, repo.SetActive(ctx, 2, false))

	chats, err := repo.ListActiveChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, int64(1), chats[0].ID)
}

func TestInsertMessageIdempotent(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()
	seedChat(t, repo, 1)
	seedUser(t, repo, 10, "vlad")

	m := &domain.Message{
		ChatID:    1,
		MessageID: 100,
		UserID:    10,
		Type:      domain.TypeText,
		Content:   "привет",
		CreatedAt: time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.InsertMessage(ctx, m))

	// Same composite key again: ignored, original row survives.
	dup := *m
	dup.Content = "другой текст"
	require.NoError(t, repo.InsertMessage(ctx, &dup))

	start := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	got, err := repo.GetMessagesInRange(ctx, 1, start, end)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "привет", got[0].Content)
}

func TestGetMessagesInRangeOrderAndJoin(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()
	seedChat(t, repo, 1)
	seedUser(t, repo, 10, "vlad")
	seedUser(t, repo, 20, "")
	require.NoError(t, repo.SetUserOptOut(ctx, 20, true))

	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	// Inserted out of chronological order on purpose.
	stamps := []struct {
		id   int
		user int64
		at   time.Time
	}{
		{3, 10, day.Add(14 * time.Hour)},
		{1, 10, day.Add(10 * time.Hour)},
		{2, 20, day.Add(12 * time.Hour)},
	}
	for _, s := range stamps {
		require.NoError(t, repo.InsertMessage(ctx, &domain.Message{
			ChatID: 1, MessageID: s.id, UserID: s.user,
			Type: domain.TypeText, Content: "m", CreatedAt: s.at,
		}))
	}
	// Outside the window.
	require.NoError(t, repo.InsertMessage(ctx, &domain.Message{
		ChatID: 1, MessageID: 4, UserID: 10,
		Type: domain.TypeText, Content: "m", CreatedAt: day.AddDate(0, 0, 1),
	}))

	start, end := day, day.AddDate(0, 0, 1).Add(-time.Millisecond)
	got, err := repo.GetMessagesInRange(ctx, 1, start, end)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []int{1, 2, 3}, []int{got[0].MessageID, got[1].MessageID, got[2].MessageID})

	require.False(t, got[0].Author.OptedOut)
	require.Equal(t, "vlad", got[0].Author.Username)
	require.True(t, got[1].Author.OptedOut)
}

func TestGetMessagesInRangeTieBreak(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()
	seedChat(t, repo, 1)
	seedUser(t, repo, 10, "vlad")

	at := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	for _, id := range []int{7, 8, 9} {
		require.NoError(t, repo.InsertMessage(ctx, &domain.Message{
			ChatID: 1, MessageID: id, UserID: 10,
			Type: domain.TypeText, Content: "m", CreatedAt: at,
		}))
	}

	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	got, err := repo.GetMessagesInRange(ctx, 1, day, day.AddDate(0, 0, 1).Add(-time.Millisecond))
	require.NoError(t, err)
	// Equal timestamps keep insertion order.
	require.Equal(t, []int{7, 8, 9}, []int{got[0].MessageID, got[1].MessageID, got[2].MessageID})
}

func TestPutTranscriptIdempotent(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()

	first := &domain.Transcript{
		MessageID: 100,
		MediaRef:  "file-abc",
		Text:      "первая версия",
		Language:  "ru",
		Duration:  12 * time.Second,
	}
	require.NoError(t, repo.PutTranscript(ctx, first))

	second := &domain.Transcript{MessageID: 100, MediaRef: "file-abc", Text: "вторая версия"}
	require.NoError(t, repo.PutTranscript(ctx, second))

	got, err := repo.GetTranscript(ctx, 100, "file-abc")
	require.NoError(t, err)
	require.Equal(t, "первая версия", got.Text)
	require.Equal(t, "ru", got.Language)
	require.Equal(t, 12*time.Second, got.Duration)

	_, err = repo.GetTranscript(ctx, 100, "file-other")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertUserPreservesOptOut(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()
	seedUser(t, repo, 10, "vlad")
	require.NoError(t, repo.SetUserOptOut(ctx, 10, true))

	// Observed message upserts the user again; opt-out must survive.
	seedUser(t, repo, 10, "vlad_new")
	seedChat(t, repo, 1)
	require.NoError(t, repo.InsertMessage(ctx, &domain.Message{
		ChatID: 1, MessageID: 1, UserID: 10,
		Type: domain.TypeText, Content: "m",
		CreatedAt: time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}))

	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	got, err := repo.GetMessagesInRange(ctx, 1, day, day.AddDate(0, 0, 1).Add(-time.Millisecond))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Author.OptedOut)
	require.Equal(t, "vlad_new", got[0].Author.Username)
}

func TestWipeChat(t *testing.T) {
	repo := bootstrap(t)
	ctx := context.Background()
	seedChat(t, repo, 1)
	seedUser(t, repo, 10, "vlad")
	require.NoError(t, repo.InsertMessage(ctx, &domain.Message{
		ChatID: 1, MessageID: 1, UserID: 10,
		Type: domain.TypeVoice, MediaRef: "file-abc",
		CreatedAt: time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.PutTranscript(ctx, &domain.Transcript{
		MessageID: 1, MediaRef: "file-abc", Text: "текст",
	}))

	// A second chat reuses message ID 1: per-chat sequences collide across
	// chats, its data must survive the other chat's wipe.
	seedChat(t, repo, 2)
	require.NoError(t, repo.InsertMessage(ctx, &domain.Message{
		ChatID: 2, MessageID: 1, UserID: 10,
		Type: domain.TypeVoice, MediaRef: "file-chat2",
		CreatedAt: time.Date(2025, time.June, 10, 13, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.PutTranscript(ctx, &domain.Transcript{
		MessageID: 1, MediaRef: "file-chat2", Text: "чужой текст",
	}))

	require.NoError(t, repo.WipeChat(ctx, 1))

	_, err := repo.GetChat(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetTranscript(ctx, 1, "file-abc")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.GetTranscript(ctx, 1, "file-chat2")
	require.NoError(t, err, "chat 2's transcript must survive chat 1's wipe")
	require.Equal(t, "чужой текст", got.Text)
	_, err = repo.GetChat(ctx, 2)
	require.NoError(t, err)
}
