package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/relaychat/auth-service/domain"
	"github.com/relaychat/auth-service/internal/federation"
)

// memFlowRepo is an in-memory FlowAttemptRepository honoring the store
// contract: conditional create, indexed-style reverse lookup, merge-patch
// update, and TTL-expired attempts being unreadable.
type memFlowRepo struct {
	mu    sync.RWMutex
	flows map[string]domain.FlowAttempt
}

func newMemFlowRepo() *memFlowRepo {
	return &memFlowRepo{flows: make(map[string]domain.FlowAttempt)}
}

func (r *memFlowRepo) Create(_ context.Context, attempt *domain.FlowAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flows[attempt.XSRFToken]; exists {
		return fmt.Errorf("flow attempt already exists: %w", domain.ErrConflict)
	}
	r.flows[attempt.XSRFToken] = *attempt
	return nil
}

func (r *memFlowRepo) Get(_ context.Context, xsrfToken string) (*domain.FlowAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attempt, ok := r.flows[xsrfToken]
	if !ok || attempt.ExternalExpired(time.Now()) {
		return nil, fmt.Errorf("flow attempt not found: %w", domain.ErrNotFound)
	}
	return &attempt, nil
}

func (r *memFlowRepo) GetByAuthorizationCode(_ context.Context, code string) (*domain.FlowAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, attempt := range r.flows {
		if attempt.AuthorizationCode == code && code != "" {
			if attempt.ExternalExpired(time.Now()) {
				break
			}
			a := attempt
			return &a, nil
		}
	}
	return nil, fmt.Errorf("flow attempt not found: %w", domain.ErrNotFound)
}

func (r *memFlowRepo) Update(_ context.Context, xsrfToken string, patch *domain.FlowAttemptPatch) (*domain.FlowAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.flows[xsrfToken]
	if !ok {
		return nil, fmt.Errorf("flow attempt not found: %w", domain.ErrNotFound)
	}
	patch.Apply(&attempt)
	r.flows[xsrfToken] = attempt
	return &attempt, nil
}

func (r *memFlowRepo) Delete(_ context.Context, xsrfToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, xsrfToken)
	return nil
}

// mutate edits a stored attempt in place, for tests that need to age codes.
func (r *memFlowRepo) mutate(xsrfToken string, fn func(*domain.FlowAttempt)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt := r.flows[xsrfToken]
	fn(&attempt)
	r.flows[xsrfToken] = attempt
}

// memClientRepo is an in-memory ClientRepository.
type memClientRepo struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
}

func newMemClientRepo(clients ...*domain.Client) *memClientRepo {
	r := &memClientRepo{clients: make(map[string]domain.Client)}
	for _, c := range clients {
		r.clients[c.ID] = *c
	}
	return r
}

func (r *memClientRepo) Create(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[client.ID]; exists {
		return fmt.Errorf("client already exists: %w", domain.ErrConflict)
	}
	r.clients[client.ID] = *client
	return nil
}

func (r *memClientRepo) Get(_ context.Context, clientID string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client not found: %w", domain.ErrNotFound)
	}
	return &client, nil
}

func (r *memClientRepo) Delete(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
	return nil
}

// memSessionRepo is an in-memory SessionRepository.
type memSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("session already exists: %w", domain.ErrConflict)
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *memSessionRepo) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return &session, nil
}

func (r *memSessionRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.RefreshToken == refreshToken {
			s := session
			return &s, nil
		}
	}
	return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
}

func (r *memSessionRepo) UpdateExpiry(_ context.Context, sessionID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	session.RefreshTokenExpiresAt = expiresAt
	r.sessions[sessionID] = session
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *memSessionRepo) mutate(sessionID string, fn func(*domain.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.sessions[sessionID]
	fn(&session)
	r.sessions[sessionID] = session
}

// fakeDirectory resolves every identifier to a deterministic user ID.
type fakeDirectory struct {
	mu       sync.Mutex
	resolved []string
	err      error
}

func (d *fakeDirectory) ResolveOrCreateUser(_ context.Context, input domain.LoginInput) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolved = append(d.resolved, input.Destination())
	return "user-" + input.Destination(), nil
}

// captureSender records dispatched confirmation codes.
type captureSender struct {
	mu           sync.Mutex
	destinations []string
	codes        []string
	err          error
}

func (s *captureSender) SendConfirmationCode(_ context.Context, destination, code string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinations = append(s.destinations, destination)
	s.codes = append(s.codes, code)
	return nil
}

func (s *captureSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

// fakeProvider is a scripted external identity provider.
type fakeProvider struct {
	email        string
	exchangeErr  error
	exchanged    []string
	consentBase  string
}

func (p *fakeProvider) Name() federation.ProviderName { return federation.ProviderGoogle }

func (p *fakeProvider) AuthCodeURL(state string) (string, error) {
	return p.consentBase + "?state=" + state, nil
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	p.exchanged = append(p.exchanged, code)
	return &oauth2.Token{AccessToken: "provider-access-token"}, nil
}

func (p *fakeProvider) IdentityEmail(*oauth2.Token) (string, error) {
	return p.email, nil
}
