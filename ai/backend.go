package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/IsaacKoome/glowscanweb/app/models"
)

// Backend is one multimodal AI provider. Implementations are constructed
// once at startup and are safe for concurrent use.
type Backend interface {
	Name() models.Backend

	// AnalyzeImage sends the prompt plus image and returns raw model text.
	AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)

	// Complete sends a text-only prompt and returns raw model text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// apiError is a non-2xx reply from a provider, body truncated for logs.
type apiError struct {
	Backend models.Backend
	Status  int
	Message string
}

func (e apiError) Error() string {
	return fmt.Sprintf("%s api error: status=%d message=%s", e.Backend, e.Status, e.Message)
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
