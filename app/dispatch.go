package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IsaacKoome/glowscanweb/ai"
	"github.com/IsaacKoome/glowscanweb/app/models"
)

// Dispatcher decides which AI backend serves a request, enforces the
// per-plan daily quota, and records usage. All durable state lives in the
// user record store; the dispatcher itself is stateless and safe for
// concurrent use.
type Dispatcher struct {
	Store    UserStore
	Backends map[models.Backend]ai.Backend
	Plans    models.PlanTable

	// Enforce selects quota-aware multi-backend dispatch. When false the
	// preferred configured backend always serves and usage counting is
	// best-effort only.
	Enforce bool

	// Now is swappable in tests; nil means time.Now.
	Now func() time.Time
}

func (d *Dispatcher) today() string {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return now().UTC().Format("2006-01-02")
}

// Dispatch runs one analysis: reserve quota, invoke the backend, normalize
// its output. The quota reservation (rollover + backend selection +
// counter increment) happens in a single store transaction before the
// backend call, so two concurrent requests cannot both pass a stale check.
// A reservation for a call that then fails is released best-effort.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, image []byte, contentType string, choice models.Backend) (map[string]any, models.Backend, error) {
	if len(d.Backends) == 0 {
		return nil, "", ErrBackendUnavailable
	}
	if !d.Enforce {
		return d.dispatchUnenforced(ctx, userID, image, contentType, choice)
	}
	if d.Store == nil {
		return nil, "", ErrStoreUnavailable
	}

	today := d.today()
	var chosen models.Backend
	_, err := d.Store.MutateUser(ctx, userID, func(u *models.User) error {
		u.Rollover(today)
		backend, err := d.selectBackend(u, choice)
		if err != nil {
			return err
		}
		chosen = backend
		u.Increment(backend, today)
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	result, err := d.invoke(ctx, chosen, image, contentType)
	if err != nil {
		d.release(userID, chosen)
		return nil, chosen, err
	}
	return result, chosen, nil
}

// dispatchUnenforced is the drifted "always the preferred backend, no
// quota" mode, kept behind QUOTA_ENFORCEMENT=single-backend.
func (d *Dispatcher) dispatchUnenforced(ctx context.Context, userID string, image []byte, contentType string, choice models.Backend) (map[string]any, models.Backend, error) {
	backend := choice
	if _, ok := d.Backends[backend]; !ok {
		if backend != "" {
			return nil, "", ErrBackendUnavailable
		}
		if _, ok := d.Backends[models.BackendGemini]; ok {
			backend = models.BackendGemini
		} else {
			backend = models.BackendGPT4o
		}
	}

	result, err := d.invoke(ctx, backend, image, contentType)
	if err != nil {
		return nil, backend, err
	}

	if d.Store != nil {
		today := d.today()
		if _, err := d.Store.MutateUser(ctx, userID, func(u *models.User) error {
			u.Rollover(today)
			u.Increment(backend, today)
			return nil
		}); err != nil {
			// Usage bookkeeping is best-effort here; the caller still
			// gets their analysis.
			log.Printf("usage bookkeeping failed user=%s backend=%s err=%v", userID, backend, err)
		}
	}
	return result, backend, nil
}

// selectBackend applies the plan policy to an already rolled-over record.
// An explicit choice narrows eligibility to that backend; otherwise the
// plan's preference is tried first with fallback to the other backend.
func (d *Dispatcher) selectBackend(u *models.User, choice models.Backend) (models.Backend, error) {
	pol := d.Plans.Get(u.Plan)

	has := func(b models.Backend) bool {
		_, ok := d.Backends[b]
		return ok
	}
	allowed := func(b models.Backend) bool {
		return pol.Allows(b, u.Count(b))
	}

	if choice != "" {
		if !has(choice) {
			return "", ErrBackendUnavailable
		}
		if !allowed(choice) {
			return "", quotaError{Plan: u.Plan}
		}
		return choice, nil
	}

	if pol.Preference == models.BackendGPT4o && has(models.BackendGPT4o) {
		if allowed(models.BackendGPT4o) {
			return models.BackendGPT4o, nil
		}
		if has(models.BackendGemini) && allowed(models.BackendGemini) {
			return models.BackendGemini, nil
		}
		return "", quotaError{Plan: u.Plan}
	}

	if has(models.BackendGemini) && allowed(models.BackendGemini) {
		return models.BackendGemini, nil
	}
	if has(models.BackendGPT4o) && allowed(models.BackendGPT4o) {
		return models.BackendGPT4o, nil
	}
	return "", quotaError{Plan: u.Plan}
}

func (d *Dispatcher) invoke(ctx context.Context, backend models.Backend, image []byte, contentType string) (map[string]any, error) {
	client := d.Backends[backend]
	raw, err := client.AnalyzeImage(ctx, ai.AnalysisPrompt, image, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, client.Name(), err)
	}
	return Normalize(raw)
}

// release undoes a quota reservation after a failed backend call. Failure
// here only overcounts a failed request; it is logged, never surfaced.
func (d *Dispatcher) release(userID string, backend models.Backend) {
	if d.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	today := d.today()
	_, err := d.Store.MutateUser(ctx, userID, func(u *models.User) error {
		if u.LastAnalysisDate == today {
			u.Decrement(backend)
		}
		return nil
	})
	if err != nil {
		log.Printf("quota release failed user=%s backend=%s err=%v", userID, backend, err)
	}
}

// ChatReply answers a text-only conversation turn using any configured
// backend, preferring Gemini. No quota applies to text chat.
func (d *Dispatcher) ChatReply(ctx context.Context, history []models.ChatMessage, message string) (string, models.Backend, error) {
	var backend models.Backend
	if _, ok := d.Backends[models.BackendGemini]; ok {
		backend = models.BackendGemini
	} else if _, ok := d.Backends[models.BackendGPT4o]; ok {
		backend = models.BackendGPT4o
	} else {
		return "", "", ErrBackendUnavailable
	}

	client := d.Backends[backend]
	raw, err := client.Complete(ctx, ai.ChatPrompt(history, message))
	if err != nil {
		return "", backend, fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, client.Name(), err)
	}
	if raw == "" {
		return "", backend, ErrEmptyResponse
	}
	return raw, backend, nil
}
