package models

// QuotaUnlimited marks a backend as having no daily cap for a plan.
const QuotaUnlimited = -1

// PlanPolicy is the static per-plan configuration. The payment linkage
// fields (AmountKobo, Currency, PlanCode) are used only when initializing
// a Paystack transaction, never on the analysis path.
type PlanPolicy struct {
	GeminiQuota int
	GPT4oQuota  int
	Preference  Backend
	AmountKobo  int
	Currency    string
	PlanCode    string
}

// Quota returns the daily cap for the given backend.
func (p PlanPolicy) Quota(b Backend) int {
	if b == BackendGPT4o {
		return p.GPT4oQuota
	}
	return p.GeminiQuota
}

// Allows reports whether used invocations leave room for one more.
func (p PlanPolicy) Allows(b Backend, used int) bool {
	q := p.Quota(b)
	return q == QuotaUnlimited || used < q
}

type PlanTable map[Plan]PlanPolicy

// Get returns the policy for p, falling back to the free plan for
// unknown values so a corrupted record never gains quota.
func (t PlanTable) Get(p Plan) PlanPolicy {
	if pol, ok := t[p]; ok {
		return pol
	}
	return t[PlanFree]
}

// ByPlanCode resolves a Paystack plan code back to a subscription plan.
func (t PlanTable) ByPlanCode(code string) (Plan, bool) {
	if code == "" {
		return "", false
	}
	for plan, pol := range t {
		if pol.PlanCode == code {
			return plan, true
		}
	}
	return "", false
}

// DefaultPlans is the shipped plan table. Paystack plan codes are
// account-specific and normally overridden from the environment.
func DefaultPlans() PlanTable {
	return PlanTable{
		PlanFree: {
			GeminiQuota: 500,
			GPT4oQuota:  0,
			Preference:  BackendGemini,
			AmountKobo:  0,
			Currency:    "KES",
		},
		PlanBasic: {
			GeminiQuota: 1000,
			GPT4oQuota:  3,
			Preference:  BackendGPT4o,
			AmountKobo:  70000, // KES 700
			Currency:    "KES",
			PlanCode:    "PLN_lrkikt1qz6r5mig",
		},
		PlanStandard: {
			GeminiQuota: QuotaUnlimited,
			GPT4oQuota:  10,
			Preference:  BackendGPT4o,
			AmountKobo:  280000, // KES 2,800
			Currency:    "KES",
			PlanCode:    "PLN_9v76fs96u1us4o0",
		},
		PlanPremium: {
			GeminiQuota: QuotaUnlimited,
			GPT4oQuota:  QuotaUnlimited,
			Preference:  BackendGPT4o,
			AmountKobo:  1400000, // KES 14,000
			Currency:    "KES",
			PlanCode:    "PLN_smf4ocf5w0my58c",
		},
	}
}
