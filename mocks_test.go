package sessions_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	sessions "github.com/pulsefit/go-sessions"
)

func notFoundErr() error {
	return repository.NewRecordNotFound()
}

// memUserStore is an in-memory UserStore with the same conditional semantics
// as the bun repository.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*sessions.User

	failWith    error
	registerErr error
}

func newMemUserStore(users ...*sessions.User) *memUserStore {
	s := &memUserStore{users: map[uuid.UUID]*sessions.User{}}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		s.users[u.ID] = u
	}
	return s
}

func (s *memUserStore) FindByEmail(ctx context.Context, email string) (*sessions.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}

	return nil, notFoundErr()
}

func (s *memUserStore) FindByID(ctx context.Context, id uuid.UUID) (*sessions.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}

	return nil, notFoundErr()
}

func (s *memUserStore) Register(ctx context.Context, user *sessions.User) (*sessions.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registerErr != nil {
		return nil, s.registerErr
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	s.users[user.ID] = &clone

	return user, nil
}

func (s *memUserStore) UpdateProfile(ctx context.Context, user *sessions.User) (*sessions.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return nil, notFoundErr()
	}

	clone := *user
	s.users[user.ID] = &clone

	return user, nil
}

func (s *memUserStore) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.Verified {
		return false, nil
	}

	u.Verified = true
	return true, nil
}

func (s *memUserStore) SetVerificationCode(ctx context.Context, id uuid.UUID, code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.VerificationCode = &code
	}
	return nil
}

func (s *memUserStore) ConsumeVerificationCode(ctx context.Context, id uuid.UUID, code int, passwordHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.VerificationCode == nil || *u.VerificationCode != code {
		return false, nil
	}

	u.VerificationCode = nil
	u.PasswordHash = passwordHash

	return true, nil
}

func (s *memUserStore) TrackAttemptedLogin(ctx context.Context, user *sessions.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[user.ID]; ok {
		u.LoginAttempts = user.LoginAttempts + 1
		now := time.Now()
		u.LoginAttemptAt = &now
	}
	return nil
}

func (s *memUserStore) TrackSuccessfulLogin(ctx context.Context, user *sessions.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[user.ID]; ok {
		now := time.Now()
		u.LoggedInAt = &now
		u.LoginAttempts = 0
		u.LoginAttemptAt = nil
	}
	return nil
}

func (s *memUserStore) get(id uuid.UUID) *sessions.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

// memTokenStore is an in-memory RefreshTokenStore with atomic rotation.
type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID

	failWith error
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: map[string]uuid.UUID{}}
}

func (s *memTokenStore) Add(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}

	s.tokens[token] = userID
	return nil
}

func (s *memTokenStore) Remove(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return false, s.failWith
	}

	owner, ok := s.tokens[token]
	if !ok || owner != userID {
		return false, nil
	}

	delete(s.tokens, token)
	return true, nil
}

func (s *memTokenStore) Rotate(ctx context.Context, oldToken, newToken string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return uuid.Nil, false, s.failWith
	}

	owner, ok := s.tokens[oldToken]
	if !ok {
		return uuid.Nil, false, nil
	}

	delete(s.tokens, oldToken)
	s.tokens[newToken] = owner

	return owner, true, nil
}

func (s *memTokenStore) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return 0, s.failWith
	}

	var cleared int64
	for token, owner := range s.tokens {
		if owner == userID {
			delete(s.tokens, token)
			cleared++
		}
	}

	return cleared, nil
}

func (s *memTokenStore) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, owner := range s.tokens {
		if owner == userID {
			count++
		}
	}

	return count, nil
}

func (s *memTokenStore) has(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// chanMailer records sent messages on a channel so tests can wait for the
// background delivery goroutine.
type chanMailer struct {
	messages chan sessions.Message
}

func newChanMailer() *chanMailer {
	return &chanMailer{messages: make(chan sessions.Message, 8)}
}

func (m *chanMailer) Send(ctx context.Context, msg sessions.Message) error {
	m.messages <- msg
	return nil
}

func (m *chanMailer) wait(timeout time.Duration) (sessions.Message, bool) {
	select {
	case msg := <-m.messages:
		return msg, true
	case <-time.After(timeout):
		return sessions.Message{}, false
	}
}

// recordingSink captures activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []sessions.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event sessions.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []sessions.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]sessions.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}
