package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IsaacKoome/glowscanweb/app/models"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAI calls the chat completions REST API with GPT-4o vision input.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (o *OpenAI) Name() models.Backend { return models.BackendGPT4o }

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openAIContentPart
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	messages := []openAIMessage{{
		Role: "user",
		Content: []openAIContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURL}},
		},
	}}
	return o.complete(ctx, messages)
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	return o.complete(ctx, []openAIMessage{{Role: "user", Content: prompt}})
}

func (o *OpenAI) complete(ctx context.Context, messages []openAIMessage) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":    o.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("post openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return "", apiError{
			Backend: models.BackendGPT4o,
			Status:  resp.StatusCode,
			Message: vendorErrorMessage(raw),
		}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode openai response: %w (body=%s)", err, truncateBody(raw))
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}
