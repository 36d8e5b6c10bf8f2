package session

import (
	"context"
	"fmt"

	"schoolbridge/pkg/types"
)

// AuthState is the in-memory view of the session, loaded once from a Store
// and written through on every change.
type AuthState struct {
	store   Store
	session types.Session
}

func Load(store Store) *AuthState {
	s, _ := store.Load()
	return &AuthState{store: store, session: s}
}

func (a *AuthState) Session() types.Session { return a.session }
func (a *AuthState) IsAuthenticated() bool  { return a.session.IsAuthenticated }
func (a *AuthState) Role() types.Role       { return a.session.Role }
func (a *AuthState) Token() string          { return a.session.Token }
func (a *AuthState) IsDemo() bool           { return a.session.IsDemo }

// Login marks the session authenticated and persists it.
func (a *AuthState) Login(token string, role types.Role, demo bool) error {
	if token == "" {
		return fmt.Errorf("login: empty token")
	}
	if !role.Valid() {
		return fmt.Errorf("login: invalid role %q", role)
	}

	next := types.Session{Token: token, Role: role, IsDemo: demo, IsAuthenticated: true}
	if err := a.store.Save(next); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	a.session = next
	return nil
}

// Logout clears memory and the persisted keys.
func (a *AuthState) Logout() error {
	a.session = types.Session{}
	if err := a.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

type contextKey string

const contextKeyAuthState contextKey = "auth_state"

func WithAuthState(ctx context.Context, state *AuthState) context.Context {
	return context.WithValue(ctx, contextKeyAuthState, state)
}

// FromContext returns the request's AuthState, or an unauthenticated one
// backed by a throwaway memory store.
func FromContext(ctx context.Context) *AuthState {
	if state, ok := ctx.Value(contextKeyAuthState).(*AuthState); ok {
		return state
	}
	return Load(NewMemoryStore())
}
