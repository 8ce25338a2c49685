package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IsaacKoome/glowscanweb/ai"
	"github.com/IsaacKoome/glowscanweb/app/models"
)

const validAnalysisJSON = `{"overall_glow_score": 7, "overall_summary": "radiant"}`

func testPlans() models.PlanTable {
	return models.PlanTable{
		models.PlanFree: {
			GeminiQuota: 500,
			GPT4oQuota:  0,
			Preference:  models.BackendGemini,
		},
		models.PlanBasic: {
			GeminiQuota: 1000,
			GPT4oQuota:  3,
			Preference:  models.BackendGPT4o,
		},
		models.PlanPremium: {
			GeminiQuota: models.QuotaUnlimited,
			GPT4oQuota:  models.QuotaUnlimited,
			Preference:  models.BackendGPT4o,
		},
	}
}

func fixedToday(t *testing.T) (func() time.Time, string) {
	t.Helper()
	now := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return now }, "2025-03-14"
}

func newTestDispatcher(store UserStore, backends map[models.Backend]ai.Backend, now func() time.Time) *Dispatcher {
	return &Dispatcher{
		Store:    store,
		Backends: backends,
		Plans:    testPlans(),
		Enforce:  true,
		Now:      now,
	}
}

func TestDispatchFreePlanUsesGeminiAndCounts(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanFree,
		LastAnalysisDate: today,
		GeminiCountToday: 499,
	})
	gemini := &fakeBackend{name: models.BackendGemini, response: validAnalysisJSON}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{models.BackendGemini: gemini}, now)

	result, backend, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	if err != nil {
		t.Fatalf("Dispatch error = %v", err)
	}
	if backend != models.BackendGemini {
		t.Fatalf("backend = %s, want gemini", backend)
	}
	if result["overall_glow_score"] != float64(7) {
		t.Fatalf("unexpected result %v", result)
	}

	user, _ := store.GetUser(context.Background(), "u1")
	if user.GeminiCountToday != 500 {
		t.Fatalf("GeminiCountToday = %d, want 500", user.GeminiCountToday)
	}
	if user.LastAnalysisDate != today {
		t.Fatalf("LastAnalysisDate = %s, want %s", user.LastAnalysisDate, today)
	}
}

func TestDispatchQuotaExhaustedNoFallback(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanFree,
		LastAnalysisDate: today,
		GeminiCountToday: 500,
	})
	gemini := &fakeBackend{name: models.BackendGemini, response: validAnalysisJSON}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{models.BackendGemini: gemini}, now)

	_, _, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	var quota quotaError
	if !errors.As(err, &quota) {
		t.Fatalf("Dispatch error = %v, want quotaError", err)
	}
	if gemini.callCount() != 0 {
		t.Fatalf("backend called %d times, want 0", gemini.callCount())
	}
}

func TestDispatchStaleDateRollsOver(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanFree,
		LastAnalysisDate: "2025-03-13",
		GeminiCountToday: 500,
	})
	gemini := &fakeBackend{name: models.BackendGemini, response: validAnalysisJSON}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{models.BackendGemini: gemini}, now)

	if _, _, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", ""); err != nil {
		t.Fatalf("Dispatch error = %v", err)
	}

	user, _ := store.GetUser(context.Background(), "u1")
	if user.GeminiCountToday != 1 {
		t.Fatalf("GeminiCountToday = %d, want 1 after rollover", user.GeminiCountToday)
	}
	if user.LastAnalysisDate != today {
		t.Fatalf("LastAnalysisDate = %s, want %s", user.LastAnalysisDate, today)
	}
}

func TestDispatchPreferenceFallsBackToGemini(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanBasic,
		LastAnalysisDate: today,
		GPT4oCountToday:  3, // basic gpt4o quota exhausted
	})
	gemini := &fakeBackend{name: models.BackendGemini, response: validAnalysisJSON}
	gpt := &fakeBackend{name: models.BackendGPT4o, response: validAnalysisJSON}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{
		models.BackendGemini: gemini,
		models.BackendGPT4o:  gpt,
	}, now)

	_, backend, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	if err != nil {
		t.Fatalf("Dispatch error = %v", err)
	}
	if backend != models.BackendGemini {
		t.Fatalf("backend = %s, want gemini fallback", backend)
	}
	if gpt.callCount() != 0 {
		t.Fatalf("gpt4o called %d times, want 0", gpt.callCount())
	}
}

func TestDispatchExplicitChoiceDoesNotFallBack(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanBasic,
		LastAnalysisDate: today,
		GPT4oCountToday:  3,
	})
	gemini := &fakeBackend{name: models.BackendGemini, response: validAnalysisJSON}
	gpt := &fakeBackend{name: models.BackendGPT4o, response: validAnalysisJSON}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{
		models.BackendGemini: gemini,
		models.BackendGPT4o:  gpt,
	}, now)

	_, _, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", models.BackendGPT4o)
	var quota quotaError
	if !errors.As(err, &quota) {
		t.Fatalf("Dispatch error = %v, want quotaError", err)
	}
}

func TestDispatchUnlimitedQuota(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanPremium,
		LastAnalysisDate: today,
		GPT4oCountToday:  100000,
	})
	gpt := &fakeBackend{name: models.BackendGPT4o, response: validAnalysisJSON}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{models.BackendGPT4o: gpt}, now)

	_, backend, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	if err != nil {
		t.Fatalf("Dispatch error = %v", err)
	}
	if backend != models.BackendGPT4o {
		t.Fatalf("backend = %s, want gpt4o", backend)
	}
}

func TestDispatchNoBackendsConfigured(t *testing.T) {
	now, _ := fixedToday(t)
	d := newTestDispatcher(newFakeStore(), map[models.Backend]ai.Backend{}, now)

	_, _, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("Dispatch error = %v, want ErrBackendUnavailable", err)
	}
}

func TestDispatchStoreUnavailableFailsClosed(t *testing.T) {
	now, _ := fixedToday(t)
	gemini := &fakeBackend{name: models.BackendGemini, response: validAnalysisJSON}
	d := newTestDispatcher(nil, map[models.Backend]ai.Backend{models.BackendGemini: gemini}, now)

	_, _, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Dispatch error = %v, want ErrStoreUnavailable", err)
	}
	if gemini.callCount() != 0 {
		t.Fatalf("backend called %d times, want 0", gemini.callCount())
	}
}

func TestDispatchReleasesReservationOnBackendFailure(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanFree,
		LastAnalysisDate: today,
		GeminiCountToday: 10,
	})
	gemini := &fakeBackend{name: models.BackendGemini, err: errors.New("boom")}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{models.BackendGemini: gemini}, now)

	_, _, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("Dispatch error = %v, want ErrBackendUnavailable", err)
	}

	user, _ := store.GetUser(context.Background(), "u1")
	if user.GeminiCountToday != 10 {
		t.Fatalf("GeminiCountToday = %d, want reservation released back to 10", user.GeminiCountToday)
	}
}

func TestDispatchReleasesReservationOnUnparseableResponse(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanFree,
		LastAnalysisDate: today,
		GeminiCountToday: 10,
	})
	gemini := &fakeBackend{name: models.BackendGemini, response: "sorry, I cannot help with that"}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{models.BackendGemini: gemini}, now)

	_, _, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	var unparseable unparseableError
	if !errors.As(err, &unparseable) {
		t.Fatalf("Dispatch error = %v, want unparseable", err)
	}

	user, _ := store.GetUser(context.Background(), "u1")
	if user.GeminiCountToday != 10 {
		t.Fatalf("GeminiCountToday = %d, want 10", user.GeminiCountToday)
	}
}

func TestDispatchSingleBackendModeSkipsQuota(t *testing.T) {
	now, today := fixedToday(t)
	store := newFakeStore()
	store.put(models.User{
		UserID:           "u1",
		Plan:             models.PlanFree,
		LastAnalysisDate: today,
		GeminiCountToday: 500, // would be exhausted under enforcement
	})
	gemini := &fakeBackend{name: models.BackendGemini, response: validAnalysisJSON}
	d := newTestDispatcher(store, map[models.Backend]ai.Backend{models.BackendGemini: gemini}, now)
	d.Enforce = false

	_, backend, err := d.Dispatch(context.Background(), "u1", []byte("img"), "image/jpeg", "")
	if err != nil {
		t.Fatalf("Dispatch error = %v", err)
	}
	if backend != models.BackendGemini {
		t.Fatalf("backend = %s, want gemini", backend)
	}

	// Usage is still counted best-effort.
	user, _ := store.GetUser(context.Background(), "u1")
	if user.GeminiCountToday != 501 {
		t.Fatalf("GeminiCountToday = %d, want 501", user.GeminiCountToday)
	}
}

func TestChatReplyPrefersGemini(t *testing.T) {
	now, _ := fixedToday(t)
	gemini := &fakeBackend{name: models.BackendGemini, response: "drink more water"}
	gpt := &fakeBackend{name: models.BackendGPT4o, response: "unused"}
	d := newTestDispatcher(newFakeStore(), map[models.Backend]ai.Backend{
		models.BackendGemini: gemini,
		models.BackendGPT4o:  gpt,
	}, now)

	history := []models.ChatMessage{
		{Sender: "user", Content: "my skin feels dry"},
		{Sender: "ai", Content: "what is your routine?"},
	}
	reply, backend, err := d.ChatReply(context.Background(), history, "just soap")
	if err != nil {
		t.Fatalf("ChatReply error = %v", err)
	}
	if backend != models.BackendGemini || reply != "drink more water" {
		t.Fatalf("ChatReply = (%q, %s)", reply, backend)
	}
}
