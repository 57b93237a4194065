package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
	rl    *rpsLimiter
	log   *slog.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rps, burst := limitsFromEnv("GEMINI_RPS", "GEMINI_BURST")
	return &GeminiClient{
		cli:   cli,
		model: model,
		rl:    newRPSLimiter(rps, burst),
		log:   slog.Default(),
	}, nil
}

// limitsFromEnv reads COGNI_RPS/COGNI_BURST with a provider-specific
// fallback pair.
func limitsFromEnv(rpsFallback, burstFallback string) (float64, int) {
	var rps float64
	var burst int
	if v := os.Getenv("COGNI_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rps = f
		}
	}
	if rps == 0 {
		if v := os.Getenv(rpsFallback); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				rps = f
			}
		}
	}
	if v := os.Getenv("COGNI_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			burst = n
		}
	}
	if burst == 0 {
		if v := os.Getenv(burstFallback); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				burst = n
			}
		}
	}
	return rps, burst
}

func (g *GeminiClient) Name() string { return "gemini:" + g.model }

func (g *GeminiClient) Close() error {
	g.rl.Stop()
	return nil
}

// GenerateJSON sends the concatenated prompt/input and requests
// application/json output.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	hookBefore(ctx, g.Name(), prompt, input)

	in, _ := json.MarshalIndent(input, "", "  ")
	full := prompt + "\n\n[INPUT JSON]\n" + string(in)
	g.log.Debug("oracle request", "provider", g.Name(), "stage", StageFrom(ctx), "bytes", len(full))

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := g.rl.Acquire(ctx); err != nil {
			lastErr = err
			break
		}
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrInvalidJSON
		} else {
			raw := json.RawMessage(resp.Candidates[0].Content.Parts[0].Text)
			hookAfter(ctx, g.Name(), raw, nil)
			return raw, nil
		}
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	hookAfter(ctx, g.Name(), nil, lastErr)
	return nil, lastErr
}
