// Package memory implementa core.Repository en memoria. Para desarrollo y
// tests: mismas semánticas que pg (upsert por clave, single-use de states).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/proxyjohn/internal/store/core"
)

type Store struct {
	mu        sync.Mutex
	tokens    map[tokenKey]*core.UserToken
	states    map[stateKey]*core.AuthState
	redirects map[string]*core.PendingRedirect
}

type tokenKey struct{ userID, provider string }
type stateKey struct{ stateID, provider string }

var _ core.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		tokens:    make(map[tokenKey]*core.UserToken),
		states:    make(map[stateKey]*core.AuthState),
		redirects: make(map[string]*core.PendingRedirect),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ---------- Tokens ----------

func (s *Store) UpsertToken(_ context.Context, t *core.UserToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := tokenKey{t.UserID, t.Provider}
	now := time.Now().UTC()
	cp := *t
	if prev, ok := s.tokens[k]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.tokens[k] = &cp
	return nil
}

func (s *Store) GetToken(_ context.Context, userID, provider string) (*core.UserToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenKey{userID, provider}]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) DeleteToken(_ context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := tokenKey{userID, provider}
	if _, ok := s.tokens[k]; !ok {
		return core.ErrNotFound
	}
	delete(s.tokens, k)
	return nil
}

func (s *Store) ConnectedProviders(_ context.Context, userID string, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for k, t := range s.tokens {
		if k.userID == userID && t.ExpiresAt.After(now) {
			out = append(out, k.provider)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ---------- Auth states ----------

func (s *Store) PutState(_ context.Context, st *core.AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Un state vivo por (user, provider): el nuevo invalida al anterior.
	for k, prev := range s.states {
		if prev.UserID == st.UserID && prev.Provider == st.Provider {
			delete(s.states, k)
		}
	}
	cp := *st
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.states[stateKey{st.StateID, st.Provider}] = &cp
	return nil
}

func (s *Store) GetState(_ context.Context, stateID, provider string) (*core.AuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[stateKey{stateID, provider}]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Store) DeleteState(_ context.Context, stateID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := stateKey{stateID, provider}
	if _, ok := s.states[k]; !ok {
		return core.ErrNotFound
	}
	delete(s.states, k)
	return nil
}

// ---------- Pending redirects ----------

func (s *Store) PutPendingRedirect(_ context.Context, authState, localURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.redirects[authState]; ok {
		return core.ErrConflict
	}
	s.redirects[authState] = &core.PendingRedirect{
		AuthState:        authState,
		LocalRedirectURL: localURL,
		CreatedAt:        time.Now().UTC(),
	}
	return nil
}

func (s *Store) TakePendingRedirect(_ context.Context, authState string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.redirects[authState]
	if !ok {
		return "", core.ErrNotFound
	}
	delete(s.redirects, authState)
	return r.LocalRedirectURL, nil
}
