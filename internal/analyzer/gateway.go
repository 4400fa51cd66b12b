package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ErrMissingCredential is returned before any network call when no API key is configured.
var ErrMissingCredential = errors.New("AI_GATEWAY_API_KEY is not configured")

var ErrEmptyResponse = errors.New("no choices in response")

// Completer sends a message sequence to a chat-completion API and returns the first reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Part is one piece of a multimodal user turn: either Text or ImageURL is set.
type Part struct {
	Text     string
	ImageURL string
}

type Message struct {
	Role    string
	Content string
	Parts   []Part
}

// UpstreamError is a non-2xx answer from the completion API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("AI gateway returned status %d", e.StatusCode)
}

type gateway struct {
	apiKey string
	model  string
	client openai.Client
	logger *utils.Logger
}

func NewGateway(apiKey, baseURL, model string, logger *utils.Logger) Completer {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}

	return &gateway{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

func (g *gateway) Complete(ctx context.Context, messages []Message) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", ErrMissingCredential
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: toParams(messages),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("AI gateway completion",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return resp.Choices[0].Message.Content, nil
}

// toParams maps turns onto SDK message kinds. Roles other than system, assistant
// and developer are sent as user turns; callers' role values are not validated.
func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		case "developer":
			out = append(out, openai.DeveloperMessage(m.Content))
		default:
			if len(m.Parts) == 0 {
				out = append(out, openai.UserMessage(m.Content))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Parts))
			for _, p := range m.Parts {
				if p.ImageURL != "" {
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: p.ImageURL,
					}))
					continue
				}
				parts = append(parts, openai.TextContentPart(p.Text))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}
