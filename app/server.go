package app

import (
	"github.com/IsaacKoome/glowscanweb/ai"
	"github.com/IsaacKoome/glowscanweb/app/config"
	"github.com/IsaacKoome/glowscanweb/app/models"
	"github.com/IsaacKoome/glowscanweb/paystack"
)

// Server holds the process-wide dependencies: the user record store, the
// configured AI backends behind the dispatcher, and the payment client.
// Construct once at startup; all fields are read-only afterwards.
type Server struct {
	store         UserStore
	dispatcher    *Dispatcher
	payments      *paystack.Client
	plans         models.PlanTable
	webhookSecret string
}

// NewServer wires a Server from explicit dependencies. store and payments
// may be nil: record-dependent endpoints then fail closed and payment
// endpoints report 503.
func NewServer(cfg *config.Config, store UserStore, backends map[models.Backend]ai.Backend, payments *paystack.Client) *Server {
	plans := models.DefaultPlans()
	applyPlanCodeOverride(plans, models.PlanBasic, cfg.PlanCodeBasic)
	applyPlanCodeOverride(plans, models.PlanStandard, cfg.PlanCodeStandard)
	applyPlanCodeOverride(plans, models.PlanPremium, cfg.PlanCodePremium)

	return &Server{
		store: store,
		dispatcher: &Dispatcher{
			Store:    store,
			Backends: backends,
			Plans:    plans,
			Enforce:  cfg.QuotaEnforcement == config.QuotaEnforced,
		},
		payments:      payments,
		plans:         plans,
		webhookSecret: cfg.PaystackSecretKey,
	}
}

func applyPlanCodeOverride(plans models.PlanTable, plan models.Plan, code string) {
	if code == "" {
		return
	}
	pol := plans[plan]
	pol.PlanCode = code
	plans[plan] = pol
}
