// Package models defines subscription plans and per-user usage tracking fields.
package models

type Plan string

const (
	PlanFree     Plan = "free"
	PlanBasic    Plan = "basic"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

// ValidPlan reports whether p is one of the known subscription plans.
func ValidPlan(p Plan) bool {
	switch p {
	case PlanFree, PlanBasic, PlanStandard, PlanPremium:
		return true
	}
	return false
}

type Backend string

const (
	BackendGemini Backend = "gemini"
	BackendGPT4o  Backend = "gpt4o"
)

// User is the per-user usage record. The two daily counters are meaningful
// only when LastAnalysisDate equals today's date; a stale date means both
// counters are logically zero.
type User struct {
	UserID                     string `db:"user_id"`
	Plan                       Plan   `db:"plan"`
	LastAnalysisDate           string `db:"last_analysis_date"` // "2006-01-02", empty until first analysis
	GeminiCountToday           int    `db:"gemini_count_today"`
	GPT4oCountToday            int    `db:"gpt4o_count_today"`
	PaystackCustomerID         string `db:"paystack_customer_id"`
	PaystackSubscriptionCode   string `db:"paystack_subscription_code"`
	PaystackSubscriptionStatus string `db:"paystack_subscription_status"`
}

// Rollover zeroes both counters when the record's date is not today.
func (u *User) Rollover(today string) {
	if u.LastAnalysisDate != today {
		u.GeminiCountToday = 0
		u.GPT4oCountToday = 0
	}
}

// Count returns today's invocation count for the given backend.
func (u User) Count(b Backend) int {
	if b == BackendGPT4o {
		return u.GPT4oCountToday
	}
	return u.GeminiCountToday
}

// Increment records one invocation of the given backend for today.
func (u *User) Increment(b Backend, today string) {
	if b == BackendGPT4o {
		u.GPT4oCountToday++
	} else {
		u.GeminiCountToday++
	}
	u.LastAnalysisDate = today
}

// Decrement undoes one recorded invocation. Used to release a quota
// reservation after a failed backend call.
func (u *User) Decrement(b Backend) {
	if b == BackendGPT4o && u.GPT4oCountToday > 0 {
		u.GPT4oCountToday--
	} else if b == BackendGemini && u.GeminiCountToday > 0 {
		u.GeminiCountToday--
	}
}
