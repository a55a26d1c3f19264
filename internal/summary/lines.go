package summary

import (
	"fmt"
	"strings"

	"github.com/lesovana-debug/vladobot/internal/digest"
	"github.com/lesovana-debug/vladobot/internal/domain"
)

// Context carries the non-message inputs of one render call.
type Context struct {
	ChatTitle  string
	DateLabel  string
	TotalCount int
	Mention    string
}

// unrecognizedMark is what a speech message renders as when no transcript
// could be resolved. Never an empty string merged with the caption.
const unrecognizedMark = "не распознано"

// FormatLines renders one line per message: timestamp, author, type-specific
// body. This exact format is the contract handed to the generative backend —
// field order is deliberate, not incidental.
func FormatLines(messages []digest.Item) []string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, formatLine(m))
	}
	return lines
}

func formatLine(m digest.Item) string {
	ts := m.CreatedAt.Format("15:04")
	author := m.Author.DisplayName()

	var body string
	switch m.Type {
	case domain.TypeText:
		body = m.Content
	case domain.TypePhoto:
		body = tagged("фото", m.Content)
	case domain.TypeVideo:
		body = tagged("видео", m.Content)
	case domain.TypeDocument:
		body = tagged("документ", m.Content)
	case domain.TypeSticker:
		body = "[стикер]"
	case domain.TypeVoice, domain.TypeAudio, domain.TypeVideoNote:
		body = tagged(speechTag(m.Type), transcriptText(m))
	default:
		body = tagged(string(m.Type), m.Content)
	}

	return fmt.Sprintf("%s — %s: %s", ts, author, body)
}

func tagged(tag, text string) string {
	return strings.TrimSpace("[" + tag + "] " + text)
}

func speechTag(t domain.MessageType) string {
	switch t {
	case domain.TypeVoice:
		return "голосовое"
	case domain.TypeVideoNote:
		return "кружок"
	default:
		return "аудио"
	}
}

func transcriptText(m digest.Item) string {
	if m.Transcript == nil || m.Transcript.Text == "" {
		return unrecognizedMark
	}
	return m.Transcript.Text
}
