// Package ai provides the multimodal backends used for selfie analysis:
// REST clients for Gemini and GPT-4o plus the fixed prompts they share.
package ai

import (
	"strings"

	"github.com/IsaacKoome/glowscanweb/app/models"
)

// AnalysisPrompt is the fixed instruction sent with every selfie. The key
// set must match models.AnalysisResult exactly; the sentinel value
// "no makeup detected" is required for the makeup fields when no makeup is
// present.
const AnalysisPrompt = `You are a highly experienced and friendly AI skincare and makeup expert. Analyze the attached selfie and return a JSON object with exactly the following keys:
- "hydration": string, e.g. "low", "moderate", "high"
- "acne": string, e.g. "none", "mild", "moderate", "severe"
- "redness": string, e.g. "none", "mild", "noticeable"
- "skin_tone": string, e.g. "fair", "medium", "dark", "neutral"
- "makeup_coverage": string describing the coverage of any makeup worn
- "makeup_blend": string describing how well the makeup is blended
- "makeup_color_match": string describing how well the makeup matches the skin tone
- "overall_glow_score": integer from 1 to 10, where 10 is maximum glow
- "overall_summary": string, a short friendly summary of the whole analysis
- "skincare_advice_tips": array of 2-3 short skincare advice strings
- "makeup_enhancement_tips": array of 2-3 short makeup advice strings

If no makeup is detected, use "no makeup detected" as the value for "makeup_coverage", "makeup_blend" and "makeup_color_match", and make "makeup_enhancement_tips" suggestions for a natural look.

Ensure the response is ONLY the JSON object, with no additional text or markdown formatting outside the JSON.`

// ChatPrompt assembles a conversational prompt from prior history (oldest
// first, so the most recent turn lands last) and the new user message.
func ChatPrompt(history []models.ChatMessage, message string) string {
	var b strings.Builder
	b.WriteString("You are a highly experienced and friendly AI skincare and makeup expert chatting with a user. Answer the latest message helpfully and concisely, using the conversation so far as context.\n\n")
	for _, m := range history {
		label := "User"
		if strings.EqualFold(m.Sender, "ai") {
			label = "AI"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	return b.String()
}
