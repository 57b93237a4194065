package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// OllamaClient talks to a local Ollama server over its generate API.
// No SDK, just HTTP.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	log        *slog.Logger
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaClient(model string) *OllamaClient {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		model:      model,
		log:        slog.Default(),
	}
}

func (o *OllamaClient) Name() string { return "ollama:" + o.model }
func (o *OllamaClient) Close() error { return nil }

func (o *OllamaClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	hookBefore(ctx, o.Name(), prompt, input)

	in, _ := json.MarshalIndent(input, "", "  ")
	payload := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt + "\n\n[INPUT JSON]\n" + string(in),
		Stream: false,
		Format: "json",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		hookAfter(ctx, o.Name(), nil, err)
		return nil, fmt.Errorf("ollama call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(respBody, &errResp) == nil && strings.Contains(errResp.Error, "not found") {
				return nil, &PermanentError{Err: fmt.Errorf("model %q not found, run: ollama pull %s", o.model, o.model)}
			}
		}
		o.log.Error("ollama returned an error", "status", resp.StatusCode)
		return nil, fmt.Errorf("ollama failed with status %d: %s", resp.StatusCode, respBody)
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse ollama response: %w", err)
	}
	raw := json.RawMessage(stripFences(out.Response))
	hookAfter(ctx, o.Name(), raw, nil)
	return raw, nil
}

// stripFences removes a surrounding markdown code fence if the model
// added one despite being asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
