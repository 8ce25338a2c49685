package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/IsaacKoome/glowscanweb/app/models"

	"github.com/gin-gonic/gin"
)

// Uploaded selfies are small; anything larger is rejected with 413.
const maxImageBytes = 10 << 20

var errImageTooLarge = errors.New("image exceeds size limit")

// dispatchTimeout bounds one analysis including the AI backend call. The
// context is derived from Background, not the request, so a client
// disconnect never abandons a quota reservation mid-flight.
const dispatchTimeout = 90 * time.Second

// Health is a public health check endpoint.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Glowscan API is running",
	})
}

// Predict analyzes one uploaded selfie for the user named by X-User-ID.
func (s *Server) Predict(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return
	}

	choice, ok := modelChoice(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model choice"})
		return
	}

	image, contentType, err := readImageFile(c, "file")
	if errors.Is(err, errImageTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image file too large"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or unreadable image file"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	result, backend, err := s.dispatcher.Dispatch(ctx, userID, image, contentType, choice)
	if err != nil {
		s.respondDispatchError(c, userID, backend, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ChatPredict handles a conversational turn: with an image it runs the
// same analysis path as /predict wrapped in a message envelope, text-only
// it answers from the prior history.
func (s *Server) ChatPredict(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return
	}

	message := strings.TrimSpace(c.PostForm("message"))
	history, err := parseHistory(c.PostForm("history"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid history"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	image, contentType, err := readImageFile(c, "file")
	if errors.Is(err, errImageTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image file too large"})
		return
	}
	if err == nil {
		choice, ok := modelChoice(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model choice"})
			return
		}

		result, backend, err := s.dispatcher.Dispatch(ctx, userID, image, contentType, choice)
		if err != nil {
			s.respondDispatchError(c, userID, backend, err)
			return
		}

		summary, _ := result["overall_summary"].(string)
		c.JSON(http.StatusOK, gin.H{
			"type":            "analysis_result",
			"overall_summary": summary,
			"analysisData":    result,
		})
		return
	}

	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message or image required"})
		return
	}

	reply, backend, err := s.dispatcher.ChatReply(ctx, history, message)
	if err != nil {
		s.respondDispatchError(c, userID, backend, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":            "text",
		"message":         reply,
		"overall_summary": reply,
	})
}

// Usage reports the user's plan and today's per-backend usage.
func (s *Server) Usage(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return
	}
	if s.store == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user record store not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("usage lookup failed user=%s err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	today := time.Now().UTC().Format("2006-01-02")
	user.Rollover(today)
	pol := s.plans.Get(user.Plan)

	c.JSON(http.StatusOK, gin.H{
		"plan":   user.Plan,
		"date":   today,
		"gemini": usageEntry(pol, models.BackendGemini, user.Count(models.BackendGemini)),
		"gpt4o":  usageEntry(pol, models.BackendGPT4o, user.Count(models.BackendGPT4o)),
	})
}

func usageEntry(pol models.PlanPolicy, backend models.Backend, used int) gin.H {
	quota := pol.Quota(backend)
	var limit, remaining any
	if quota != models.QuotaUnlimited {
		limit = quota
		left := quota - used
		if left < 0 {
			left = 0
		}
		remaining = left
	}
	return gin.H{"used": used, "limit": limit, "remaining": remaining}
}

// respondDispatchError maps dispatcher failures onto the standardized
// status codes: 429 quota, 503 no backend, 500 everything upstream/store.
func (s *Server) respondDispatchError(c *gin.Context, userID string, backend models.Backend, err error) {
	var quota quotaError
	var unparseable unparseableError

	switch {
	case errors.As(err, &quota):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "daily analysis quota exceeded, upgrade your plan for more analyses",
			"plan":  quota.Plan,
		})
	case errors.As(err, &unparseable):
		// Raw model output is logged server-side only, never echoed.
		log.Printf("unparseable model response user=%s backend=%s raw=%q", userID, backend, truncateForLog(unparseable.raw))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI backend returned an unrecognized response"})
	case errors.Is(err, ErrEmptyResponse):
		log.Printf("empty model response user=%s backend=%s", userID, backend)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI backend returned an empty response"})
	case errors.Is(err, ErrBackendUnavailable):
		log.Printf("backend unavailable user=%s backend=%s err=%v", userID, backend, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no AI backend available"})
	case errors.Is(err, ErrStoreUnavailable):
		log.Printf("record store unavailable user=%s err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage tracking unavailable"})
	default:
		log.Printf("analysis failed user=%s backend=%s err=%v", userID, backend, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

func modelChoice(c *gin.Context) (models.Backend, bool) {
	raw := strings.TrimSpace(c.GetHeader("X-Model-Choice"))
	if raw == "" {
		raw = strings.TrimSpace(c.PostForm("model"))
	}
	switch models.Backend(strings.ToLower(raw)) {
	case "":
		return "", true
	case models.BackendGemini:
		return models.BackendGemini, true
	case models.BackendGPT4o:
		return models.BackendGPT4o, true
	}
	return "", false
}

func readImageFile(c *gin.Context, field string) ([]byte, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	// Read one byte past the limit so an oversized upload is detected
	// rather than silently truncated.
	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(image) > maxImageBytes {
		return nil, "", errImageTooLarge
	}
	return image, imageContentType(header), nil
}

func imageContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "image/jpeg"
}

func parseHistory(raw string) ([]models.ChatMessage, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var history []models.ChatMessage
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, err
	}
	return history, nil
}

func truncateForLog(s string) string {
	const limit = 512
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
