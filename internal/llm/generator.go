// Package llm provides the generative model used for query reformulation
// and answer synthesis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/docchat/docchat/internal/history"
)

const (
	// DefaultModel is the chat model used for reformulation and synthesis.
	DefaultModel = openai.ChatModelGPT4oMini

	// callTimeout bounds a single completion call.
	callTimeout = 90 * time.Second
)

// ErrTimeout is returned when a completion call exceeds its deadline.
var ErrTimeout = errors.New("generation call timed out")

// Generator is the capability contract for the generative model: a system
// instruction, prior conversation turns, and the latest user content
// produce a single text completion.
type Generator interface {
	Complete(ctx context.Context, system string, turns []history.Turn, user string) (string, error)
}

// OpenAIGenerator implements Generator via the OpenAI chat completions API
// with exponential backoff on rate limit errors.
type OpenAIGenerator struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAIGenerator creates a generator on the shared OpenAI client.
// An empty model selects DefaultModel.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	m := DefaultModel
	if model != "" {
		m = openai.ChatModel(model)
	}
	return &OpenAIGenerator{client: client, model: m}
}

// Complete sends system + history + user as a chat completion and returns
// the generated text.
func (g *OpenAIGenerator) Complete(ctx context.Context, system string, turns []history.Turn, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)*2+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range turns {
		messages = append(messages,
			openai.UserMessage(turn.Question),
			openai.AssistantMessage(turn.Answer),
		)
	}
	messages = append(messages, openai.UserMessage(user))

	var text string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		resp, err := g.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
			Messages: messages,
			Model:    g.model,
		})
		if err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return backoff.Permanent(fmt.Errorf("%w: %v", ErrTimeout, err))
			}
			if isRateLimitError(err) {
				return err // retried with backoff
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("completion returned no choices"))
		}
		text = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return text, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
