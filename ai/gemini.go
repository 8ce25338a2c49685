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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// Gemini calls the Generative Language REST API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// NewGemini builds a Gemini client. An empty baseURL selects the public
// endpoint; timeout <= 0 falls back to 60s.
func NewGemini(apiKey, model, baseURL string, timeout time.Duration) *Gemini {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (g *Gemini) Name() models.Backend { return models.BackendGemini }

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig *struct {
		ResponseMimeType string `json:"response_mime_type,omitempty"`
	} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	parts := []geminiPart{
		{Text: prompt},
		{InlineData: &geminiInlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}
	// Ask for raw JSON; the normalizer still tolerates fenced output.
	return g.generate(ctx, parts, "application/json")
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []geminiPart{{Text: prompt}}, "")
}

func (g *Gemini) generate(ctx context.Context, parts []geminiPart, responseMime string) (string, error) {
	var reqBody geminiRequest
	reqBody.Contents = make([]struct {
		Parts []geminiPart `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = parts
	if responseMime != "" {
		reqBody.GenerationConfig = &struct {
			ResponseMimeType string `json:"response_mime_type,omitempty"`
		}{ResponseMimeType: responseMime}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("post gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return "", apiError{
			Backend: models.BackendGemini,
			Status:  resp.StatusCode,
			Message: vendorErrorMessage(raw),
		}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w (body=%s)", err, truncateBody(raw))
	}
	if len(parsed.Candidates) == 0 {
		return "", nil
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// vendorErrorMessage pulls the human-readable message out of the common
// {"error": {"message": ...}} envelope, falling back to the raw body.
func vendorErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return truncateBody(body)
}
