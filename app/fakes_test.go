package app

import (
	"context"
	"sync"

	"github.com/IsaacKoome/glowscanweb/app/models"
)

// fakeStore is an in-memory UserStore with the same lazy-default
// semantics as the Postgres implementation.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]models.User
	fail  error // when set, every call fails with this error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]models.User{}}
}

func (s *fakeStore) put(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.UserID] = user
}

func (s *fakeStore) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return models.User{}, s.fail
	}
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return models.User{UserID: userID, Plan: models.PlanFree}, nil
}

func (s *fakeStore) MutateUser(_ context.Context, userID string, mutate func(*models.User) error) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return models.User{}, s.fail
	}
	user, ok := s.users[userID]
	if !ok {
		user = models.User{UserID: userID, Plan: models.PlanFree}
	}
	if err := mutate(&user); err != nil {
		return user, err
	}
	s.users[userID] = user
	return user, nil
}

func (s *fakeStore) FindByCustomerCode(_ context.Context, code string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return models.User{}, s.fail
	}
	for _, user := range s.users {
		if code != "" && user.PaystackCustomerID == code {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// fakeBackend returns a scripted response (or error) and records calls.
type fakeBackend struct {
	name     models.Backend
	response string
	err      error

	mu    sync.Mutex
	calls int
}

func (b *fakeBackend) Name() models.Backend { return b.name }

func (b *fakeBackend) AnalyzeImage(context.Context, string, []byte, string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.response, b.err
}

func (b *fakeBackend) Complete(context.Context, string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.response, b.err
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
