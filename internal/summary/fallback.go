package summary

import (
	"fmt"
	"strings"

	"github.com/lesovana-debug/vladobot/internal/digest"
	"github.com/lesovana-debug/vladobot/internal/domain"
)

// RenderFallback produces the deterministic template digest used when the
// generative backend is unavailable. No external calls, always succeeds.
func RenderFallback(messages []digest.Item, meta Context) string {
	var text, speech, media int
	for _, m := range messages {
		switch {
		case m.Type == domain.TypeText:
			text++
		case m.Type.HasSpeech():
			speech++
		default:
			media++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, дайджест за %s по чату «%s».\n\n", meta.Mention, meta.DateLabel, meta.ChatTitle)
	b.WriteString("Сводка без нейросети (она сегодня отдыхает):\n")
	fmt.Fprintf(&b, "• текстовых сообщений: %d\n", text)
	fmt.Fprintf(&b, "• голосовых и кружков: %d\n", speech)
	fmt.Fprintf(&b, "• прочих медиа: %d\n\n", media)
	fmt.Fprintf(&b, "Всего сообщений за день: %d.", meta.TotalCount)
	return b.String()
}

// RenderEmpty is the fixed empty-state text used for explicit previews of a
// day with no visible messages.
func RenderEmpty(meta Context) string {
	return fmt.Sprintf("%s, за %s в чате «%s» сообщений не было. Тишина — тоже результат.",
		meta.Mention, meta.DateLabel, meta.ChatTitle)
}
