package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}

	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Summarize condenses a reading note into a short paragraph.
func (c *OllamaClient) Summarize(ctx context.Context, note string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following reading note in one short paragraph.

Note: "%s"

Summary:`, note)
	return c.Generate(ctx, prompt, 0.3)
}

// Review writes a 2-3 sentence review from a note and a 1-5 rating.
func (c *OllamaClient) Review(ctx context.Context, note string, rating int) (string, error) {
	prompt := fmt.Sprintf(`You are a book reviewer. Based on the user's note and rating, write a short review in 2-3 sentences.

Note: "%s"
Rating: %d/5

Review:`, note, rating)
	return c.Generate(ctx, prompt, 0.7)
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	reqBody := ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": temperature},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := strings.TrimSpace(ollamaResp.Response)
	if text == "" {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return text, nil
}

func (c *OllamaClient) Model() string {
	return c.model
}
