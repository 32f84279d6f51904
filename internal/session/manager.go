package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/api"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/models"
)

// Backend is the relay surface the session manager needs. *api.Client
// satisfies it; tests may substitute their own.
type Backend interface {
	Do(ctx context.Context, req api.Request, out any) error
}

// TokenStore persists the bearer token across process restarts. Load on a
// never-written store returns an empty token with no error.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Navigator receives the logout redirect signal. Implementations move the
// user to the login view; a nil Navigator makes logout purely a state
// reset.
type Navigator interface {
	NavigateToLogin()
}

// Manager owns the session: the bearer token, the userID derived from its
// claims, and the cached profile. State transitions are atomic; no caller
// ever observes a token without its derived identity or vice versa.
//
// The manager holds no reference to the tracker store. Tracker calls fetch
// their Authorization header through AuthHeader on every call.
type Manager struct {
	backend Backend
	tokens  TokenStore
	nav     Navigator
	now     func() time.Time

	mu      sync.Mutex
	token   string
	userID  int
	profile *models.UserProfile
}

// NewManager creates a session manager in the anonymous state. tokens and
// nav may be nil when persistence or navigation is not wired (tests, one
// shot tools).
func NewManager(backend Backend, tokens TokenStore, nav Navigator) *Manager {
	return &Manager{
		backend: backend,
		tokens:  tokens,
		nav:     nav,
		now:     time.Now,
	}
}

// Restore loads the persisted token and re-derives identity from it,
// exactly as Hydrate does. Called once at process start, before the user
// is treated as logged in. A missing or expired persisted token leaves the
// manager anonymous without error.
func (m *Manager) Restore() error {
	if m.tokens == nil {
		return nil
	}
	token, err := m.tokens.Load()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.hydrateLocked()
	return nil
}

// Hydrate recomputes userID from the current token's claims, accepting
// only a positive-integer userID. If the resulting authentication check
// fails, the session is silently reset (no navigation). Idempotent and
// side-effect-free when no token is held.
func (m *Manager) Hydrate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hydrateLocked()
}

func (m *Manager) hydrateLocked() {
	if m.token == "" {
		m.userID = 0
		return
	}

	claims := DecodeClaims(m.token)
	if claims != nil {
		m.userID = claims.UserID
	} else {
		m.userID = 0
	}

	if !m.isAuthenticatedLocked() {
		log.Debug().Msg("Stored token expired or undecodable, resetting session")
		m.logoutLocked(false)
	}
}

// IsAuthenticated reports whether a token is held, its expiry decodable,
// and the current time strictly before that expiry. It is recomputed from
// (token, now) on every call; the result is never cached.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isAuthenticatedLocked()
}

func (m *Manager) isAuthenticatedLocked() bool {
	if m.token == "" {
		return false
	}
	expiry := ExpiryMillis(m.token)
	if expiry == 0 {
		return false
	}
	return m.now().UnixMilli() < expiry
}

// Login exchanges credentials for a bearer token, stores and persists it,
// re-derives identity, and then fetches the profile. A rejected login
// leaves the session exactly as it was: the token is only written after
// the backend accepts the credentials.
//
// The profile fetch is best-effort: a failure there is logged and leaves
// the profile nil, but the session stays authenticated (FetchProfile can
// be retried by the caller).
func (m *Manager) Login(ctx context.Context, email, password string) error {
	var resp models.LoginResponse
	err := m.backend.Do(ctx, api.Request{
		Method: http.MethodPost,
		Route:  "/login",
		Path:   "/login",
		Body:   models.LoginPayload{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.token = resp.Token
	m.hydrateLocked()
	m.mu.Unlock()

	if m.tokens != nil {
		if err := m.tokens.Save(resp.Token); err != nil {
			log.Warn().Err(err).Msg("Failed to persist token")
		}
	}

	log.Info().Str("email", email).Msg("Logged in")

	if _, err := m.FetchProfile(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to fetch profile after login")
	}
	return nil
}

// Signup registers the account and then logs in with the same credentials.
// A registration failure aborts before any token is set.
func (m *Manager) Signup(ctx context.Context, firstName, lastName, email, password string) error {
	err := m.backend.Do(ctx, api.Request{
		Method: http.MethodPost,
		Route:  "/register",
		Path:   "/register",
		Body: models.RegisterPayload{
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			Password:  password,
		},
	}, nil)
	if err != nil {
		return err
	}

	log.Info().Str("email", email).Msg("Account registered")
	return m.Login(ctx, email, password)
}

// FetchProfile fetches and caches the authenticated user's profile. It is
// a no-op returning (nil, nil) when unauthenticated. Once fetched, the
// profile is authoritative: a userID that disagrees with the token claims
// is reconciled from the profile's id.
func (m *Manager) FetchProfile(ctx context.Context) (*models.UserProfile, error) {
	if !m.IsAuthenticated() {
		return nil, nil
	}

	var profile models.UserProfile
	err := m.backend.Do(ctx, api.Request{
		Method: http.MethodGet,
		Route:  "/profile",
		Path:   "/profile",
		Header: m.AuthHeader(),
	}, &profile)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.profile = &profile
	if profile.ID > 0 && m.userID != profile.ID {
		log.Debug().
			Int("claims_user_id", m.userID).
			Int("profile_user_id", profile.ID).
			Msg("Reconciling userID from profile")
		m.userID = profile.ID
	}
	m.mu.Unlock()

	return &profile, nil
}

// UpdateProfile persists profile changes and replaces the cached profile
// with the backend's response.
func (m *Manager) UpdateProfile(ctx context.Context, payload models.UpdateProfilePayload) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := m.backend.Do(ctx, api.Request{
		Method: http.MethodPut,
		Route:  "/profile",
		Path:   "/profile",
		Body:   payload,
		Header: m.AuthHeader(),
	}, &profile)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.profile = &profile
	m.mu.Unlock()
	return &profile, nil
}

// ChangePassword passes a password change through to the backend. The
// cached session is unaffected; the backend keeps existing tokens valid.
func (m *Manager) ChangePassword(ctx context.Context, payload models.UpdatePasswordPayload) error {
	return m.backend.Do(ctx, api.Request{
		Method: http.MethodPut,
		Route:  "/profile/password",
		Path:   "/profile/password",
		Body:   payload,
		Header: m.AuthHeader(),
	}, nil)
}

// AuthHeader returns the headers for authenticated calls: empty when no
// token is held, else a single bearer Authorization entry. Every tracker
// call site obtains its headers here.
func (m *Manager) AuthHeader() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + m.token}
}

// Logout clears the token, userID, and profile atomically and removes the
// persisted token. When redirect is true the navigator is signalled to
// move to the login view; forced-expiry logout passes false to avoid
// navigating mid-render.
func (m *Manager) Logout(redirect bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutLocked(redirect)
}

func (m *Manager) logoutLocked(redirect bool) {
	m.token = ""
	m.userID = 0
	m.profile = nil

	if m.tokens != nil {
		if err := m.tokens.Clear(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear persisted token")
		}
	}

	if redirect && m.nav != nil {
		m.nav.NavigateToLogin()
	}
}

// Token returns the current bearer token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// UserID returns the current user's id, or 0 when anonymous.
func (m *Manager) UserID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Profile returns a copy of the cached profile, or nil when none has been
// fetched.
func (m *Manager) Profile() *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	copied := *m.profile
	return &copied
}
