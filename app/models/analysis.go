package models

// AnalysisResult is the shape the analysis prompt instructs the model to
// return. The normalizer deliberately does not validate responses against
// it; any JSON object the model produces is passed through to the caller
// unchanged. It exists as the documented contract and for decoding in
// clients and tests.
type AnalysisResult struct {
	Hydration             string   `json:"hydration"`
	Acne                  string   `json:"acne"`
	Redness               string   `json:"redness"`
	SkinTone              string   `json:"skin_tone"`
	MakeupCoverage        string   `json:"makeup_coverage"`
	MakeupBlend           string   `json:"makeup_blend"`
	MakeupColorMatch      string   `json:"makeup_color_match"`
	OverallGlowScore      int      `json:"overall_glow_score"`
	OverallSummary        string   `json:"overall_summary"`
	SkincareAdviceTips    []string `json:"skincare_advice_tips"`
	MakeupEnhancementTips []string `json:"makeup_enhancement_tips"`
}

// ChatMessage is one turn of prior conversation context sent to
// /chat-predict, ordered oldest first.
type ChatMessage struct {
	Sender  string `json:"sender"` // "user" or "ai"
	Content string `json:"content"`
}
