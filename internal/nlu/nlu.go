package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"

	"nova/internal/model"
)

// Completer runs one chat completion and returns the assistant text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAI is a Completer backed by the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	if model == "" {
		model = string(openai.ChatModelGPT5Nano)
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(user))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}

	return content, nil
}

const askPrefix = "Answer in only one short sentence:"

// Ask gets a one-sentence answer to a free-form question.
func Ask(ctx context.Context, c Completer, query string) (string, error) {
	answer, err := c.Complete(ctx, "", askPrefix+query)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

const eventPrompt = `
You turn a spoken request into a calendar entry.
Today is %s (%s).

Output ONLY JSON. No markdown. No explanations.

OUTPUT FORMAT:
{
  "title": "<short title>",
  "date": "<YYYY-MM-DD>",
  "time": "<HH:MM, 24h, or empty>",
  "description": "<extra details or empty>"
}

RULES:
- Resolve relative dates ("tomorrow", "next friday") against today.
- Leave time empty when none is said.
- Never invent details that were not said.
`

// ErrNoEvent means the model could not extract a title and a date.
var ErrNoEvent = errors.New("no calendar event in request")

// ParseEvent extracts calendar fields from free text.
func ParseEvent(ctx context.Context, c Completer, text string, now time.Time) (model.EventFields, error) {
	system := fmt.Sprintf(eventPrompt, now.Format("2006-01-02"), now.Weekday())

	content, err := c.Complete(ctx, system, text)
	if err != nil {
		return model.EventFields{}, err
	}

	log.Debug("Parsed event", "data", content)

	var out model.EventFields
	if err := json.Unmarshal([]byte(stripFence(content)), &out); err != nil {
		return model.EventFields{}, fmt.Errorf("unmarshal event: %w (raw: %s)", err, content)
	}

	out.Title = strings.TrimSpace(out.Title)
	out.Date = strings.TrimSpace(out.Date)
	out.Time = strings.TrimSpace(out.Time)
	if out.Title == "" || out.Date == "" {
		return model.EventFields{}, ErrNoEvent
	}

	return out, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
