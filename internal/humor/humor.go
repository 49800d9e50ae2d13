package humor

import (
	"BunOfTheDayBot/internal/utils/logger/sl"
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	openrouter "github.com/revrost/go-openrouter"
)

const prompt = "Придумай одну короткую добрую шутку или весёлое пожелание " +
	"на вечер для чата, где люди играют в игру с виртуальными булочками. " +
	"Одно-два предложения, по-русски, без хэштегов."

var fallbackPhrases = []string{
	"Вечер — лучшее время, чтобы пересчитать свои булочки. 🥐",
	"Говорят, кто ложится спать пораньше, тому утром достаётся булочка посвежее. 😴🥐",
	"Булочка вечером — к хорошему сну. Проверено. 🌙",
	"Не забудьте пожелать своим булочкам спокойной ночи! ✨",
	"Хорошего вечера! Пусть завтрашняя булочка будет самой вкусной. 🍀",
}

// Generator produces the evening broadcast message. It asks a language
// model via OpenRouter when a token is configured and falls back to a
// built-in phrase list otherwise, or when the request fails.
type Generator struct {
	client *openrouter.Client
	model  string
	log    *slog.Logger
}

// New creates a generator. An empty apiToken disables the remote model.
func New(logger *slog.Logger, apiToken, model string) *Generator {
	g := &Generator{
		model: model,
		log:   logger.With(slog.String("component", "humor")),
	}
	if apiToken != "" {
		g.client = openrouter.NewClient(apiToken)
	}
	return g
}

// EveningMessage returns the text for tonight's broadcast. It never
// fails: any model error degrades to a local phrase.
func (g *Generator) EveningMessage(ctx context.Context) string {
	op := "humor.EveningMessage"
	log := g.log.With(slog.String("op", op))

	if g.client == nil {
		return g.fallback()
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(reqCtx, openrouter.ChatCompletionRequest{
		Model: g.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: prompt},
			},
		},
	})
	if err != nil {
		log.Warn("model request failed, using fallback phrase", sl.Err(err))
		return g.fallback()
	}

	if len(resp.Choices) == 0 {
		log.Warn("model returned no choices, using fallback phrase")
		return g.fallback()
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content.Text)
	if text == "" {
		return g.fallback()
	}
	return text
}

func (g *Generator) fallback() string {
	return fallbackPhrases[rand.IntN(len(fallbackPhrases))]
}
