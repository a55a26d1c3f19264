package summary

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `Ты — Владобот, летописец группового чата. Тебе дают список сообщений за один день, по одному в строке: время — автор: текст. Составь дайджест дня на русском языке, обращаясь к %s. Структура:
1. Темы дня — о чём говорили, по пунктам.
2. Решения и договорённости, если были.
3. Главное из голосовых — время и автор каждого заметного голосового.
4. Забавное — пара ироничных наблюдений.
5. Одной строкой: статистика (всего сообщений за день: %d).
Пиши живо, но не выдумывай того, чего нет в сообщениях. Уложись примерно в 350 слов.`

const maxCompletionTokens = 1200

// OpenAIBackend renders digests through a chat-completion model.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(client *openai.Client, model string) *OpenAIBackend {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIBackend{client: client, model: model}
}

func (b *OpenAIBackend) Name() string { return "openai" }

// Probe performs a cheap request to confirm the backend answers at all.
func (b *OpenAIBackend) Probe(ctx context.Context) error {
	_, err := b.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("openai probe: %w", err)
	}
	return nil
}

// Render asks the model for a structured digest of the given lines.
func (b *OpenAIBackend) Render(ctx context.Context, lines []string, meta Context) (string, error) {
	user := fmt.Sprintf("Чат: %s\nДата: %s\n\n%s",
		meta.ChatTitle, meta.DateLabel, strings.Join(lines, "\n"))

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     b.model,
		MaxTokens: maxCompletionTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPrompt, meta.Mention, meta.TotalCount),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from LLM")
	}
	return text, nil
}
