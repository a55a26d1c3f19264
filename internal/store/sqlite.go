package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/lesovana-debug/vladobot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// UpsertChat inserts a chat or refreshes its title and kind. Digest settings
// of an existing chat are left untouched so that observed activity never
// resets what the admins configured.
func (r *SQLiteRepo) UpsertChat(ctx context.Context, c *domain.Chat) error {
	if c == nil {
		return errors.New("nil chat")
	}

	created := c.CreatedAt.UTC().Unix()
	if c.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chats (chat_id, title, kind, report_time, tz, target_mention, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			title = excluded.title,
			kind  = excluded.kind`,
		c.ID, c.Title, string(c.Kind), c.ReportTime, c.Timezone,
		c.TargetMention, boolToInt(c.Active), created,
	)
	return err
}

// GetChat returns a chat by ID or ErrNotFound.
func (r *SQLiteRepo) GetChat(ctx context.Context, chatID int64) (*domain.Chat, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chat_id, title, kind, report_time, tz, target_mention, active, created_at
		FROM chats
		WHERE chat_id = ?`,
		chatID,
	)
	c, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListActiveChats returns every chat with active = 1.
func (r *SQLiteRepo) ListActiveChats(ctx context.Context) ([]domain.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, title, kind, report_time, tz, target_mention, active, created_at
		FROM chats
		WHERE active = 1
		ORDER BY chat_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanChat(row rowScanner) (*domain.Chat, error) {
	var (
		c         domain.Chat
		kind      string
		activeInt int
		createdAt int64
	)
	if err := row.Scan(
		&c.ID, &c.Title, &kind, &c.ReportTime, &c.Timezone,
		&c.TargetMention, &activeInt, &createdAt,
	); err != nil {
		return nil, err
	}
	c.Kind = domain.ChatKind(kind)
	c.Active = activeInt != 0
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}

// SetReportTime updates the chat's local report time ("HH:MM").
func (r *SQLiteRepo) SetReportTime(ctx context.Context, chatID int64, reportTime string) error {
	return r.updateChatField(ctx, chatID, "report_time", reportTime)
}

// SetTimezone updates the chat's IANA timezone name.
func (r *SQLiteRepo) SetTimezone(ctx context.Context, chatID int64, tz string) error {
	return r.updateChatField(ctx, chatID, "tz", tz)
}

// SetTargetMention updates the mention string tagged in every digest.
func (r *SQLiteRepo) SetTargetMention(ctx context.Context, chatID int64, mention string) error {
	return r.updateChatField(ctx, chatID, "target_mention", mention)
}

// SetActive toggles scheduled digests for a chat.
func (r *SQLiteRepo) SetActive(ctx context.Context, chatID int64, active bool) error {
	return r.updateChatField(ctx, chatID, "active", boolToInt(active))
}

func (r *SQLiteRepo) updateChatField(ctx context.Context, chatID int64, field string, value any) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chats SET `+field+` = ? WHERE chat_id = ?`,
		value, chatID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// WipeChat removes a chat and all its messages and transcripts. The one path
// that physically deletes data.
func (r *SQLiteRepo) WipeChat(ctx context.Context, chatID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// Message IDs are per-chat sequences; transcripts must match on the
	// full (message_id, media_ref) pair or a wipe would reach into other
	// chats' rows.
	stmts := []string{
		`DELETE FROM transcripts WHERE (message_id, media_ref) IN
			(SELECT message_id, media_ref FROM messages WHERE chat_id = ? AND media_ref IS NOT NULL)`,
		`DELETE FROM messages WHERE chat_id = ?`,
		`DELETE FROM chats WHERE chat_id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, chatID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// UpsertUser inserts or refreshes a user's handle and name. The opt-out flag
// is preserved on conflict; observed messages must not opt a user back in.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, opted_out)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username   = excluded.username,
			first_name = excluded.first_name`,
		u.ID, u.Username, u.FirstName, boolToInt(u.OptedOut),
	)
	return err
}

// SetUserOptOut flips the digest opt-out flag for a user.
func (r *SQLiteRepo) SetUserOptOut(ctx context.Context, userID int64, optedOut bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET opted_out = ? WHERE user_id = ?`,
		boolToInt(optedOut), userID,
	)
	return err
}

// InsertMessage stores a message. Duplicate (chat_id, message_id) pairs are
// ignored; stored messages are immutable.
func (r *SQLiteRepo) InsertMessage(ctx context.Context, m *domain.Message) error {
	if m == nil {
		return errors.New("nil message")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, message_id, user_id, type, content, media_ref, reply_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, message_id) DO NOTHING`,
		m.ChatID, m.MessageID, m.UserID, string(m.Type),
		toNullString(m.Content), toNullString(m.MediaRef), toNullInt(m.ReplyTo),
		m.CreatedAt.UTC().UnixMilli(),
	)
	return err
}

// GetMessagesInRange returns messages of one chat with created_at inside
// [start, end], joined with author opt-out status, ordered by creation time
// with insertion order breaking ties.
func (r *SQLiteRepo) GetMessagesInRange(ctx context.Context, chatID int64, start, end time.Time) ([]domain.StoredMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.chat_id, m.message_id, m.user_id, m.type,
		       m.content, m.media_ref, m.reply_to, m.created_at,
		       u.username, u.first_name, u.opted_out
		FROM messages m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.chat_id = ?
		  AND m.created_at BETWEEN ? AND ?
		ORDER BY m.created_at ASC, m.id ASC`,
		chatID, start.UTC().UnixMilli(), end.UTC().UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.StoredMessage
	for rows.Next() {
		var (
			sm        domain.StoredMessage
			msgType   string
			content   sql.NullString
			mediaRef  sql.NullString
			replyTo   sql.NullInt64
			createdMs int64
			optedInt  int
		)
		if err := rows.Scan(
			&sm.ChatID, &sm.MessageID, &sm.UserID, &msgType,
			&content, &mediaRef, &replyTo, &createdMs,
			&sm.Author.Username, &sm.Author.FirstName, &optedInt,
		); err != nil {
			return nil, err
		}
		sm.Type = domain.MessageType(msgType)
		sm.Content = fromNullString(content)
		sm.MediaRef = fromNullString(mediaRef)
		sm.ReplyTo = int(replyTo.Int64)
		sm.CreatedAt = time.UnixMilli(createdMs).UTC()
		sm.Author.ID = sm.UserID
		sm.Author.OptedOut = optedInt != 0
		res = append(res, sm)
	}
	return res, rows.Err()
}

// GetTranscript returns the cached transcript for (messageID, mediaRef),
// or ErrNotFound.
func (r *SQLiteRepo) GetTranscript(ctx context.Context, messageID int, mediaRef string) (*domain.Transcript, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT message_id, media_ref, text, language, duration_sec
		FROM transcripts
		WHERE message_id = ? AND media_ref = ?`,
		messageID, mediaRef,
	)

	var (
		t        domain.Transcript
		language sql.NullString
		duration sql.NullFloat64
	)
	err := row.Scan(&t.MessageID, &t.MediaRef, &t.Text, &language, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Language = fromNullString(language)
	t.Duration = fromNullSeconds(duration)
	return &t, nil
}

// PutTranscript stores a transcript once per (message_id, media_ref) pair.
// A second write for the same pair is a no-op; the first row wins.
func (r *SQLiteRepo) PutTranscript(ctx context.Context, t *domain.Transcript) error {
	if t == nil {
		return errors.New("nil transcript")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transcripts (message_id, media_ref, text, language, duration_sec)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id, media_ref) DO NOTHING`,
		t.MessageID, t.MediaRef, t.Text,
		toNullString(t.Language), toNullSeconds(t.Duration),
	)
	return err
}
