package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts the chat completion API to the Client interface.
// JSON mode is requested so the model answers with a bare object.
type OpenAIClient struct {
	cli   *openai.Client
	model string
	rl    *rpsLimiter
	log   *slog.Logger
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	rps, burst := limitsFromEnv("OPENAI_RPS", "OPENAI_BURST")
	return &OpenAIClient{
		cli:   openai.NewClient(apiKey),
		model: model,
		rl:    newRPSLimiter(rps, burst),
		log:   slog.Default(),
	}
}

func (o *OpenAIClient) Name() string { return "openai:" + o.model }

func (o *OpenAIClient) Close() error {
	o.rl.Stop()
	return nil
}

func (o *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	hookBefore(ctx, o.Name(), prompt, input)

	in, _ := json.MarshalIndent(input, "", "  ")
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: string(in)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	o.log.Debug("oracle request", "provider", o.Name(), "stage", StageFrom(ctx), "bytes", len(in))

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := o.rl.Acquire(ctx); err != nil {
			lastErr = err
			break
		}
		resp, err := o.cli.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
		} else if len(resp.Choices) == 0 {
			lastErr = ErrInvalidJSON
		} else {
			raw := json.RawMessage(stripFences(resp.Choices[0].Message.Content))
			hookAfter(ctx, o.Name(), raw, nil)
			return raw, nil
		}
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	hookAfter(ctx, o.Name(), nil, lastErr)
	return nil, lastErr
}
