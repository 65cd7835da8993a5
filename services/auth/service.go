package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"shopfront/internal/store"
	"shopfront/models"
	"shopfront/services/api"
)

// State is the session lifecycle position. Making it an explicit enum keeps
// illegal combinations ("authenticated but still restoring") unrepresentable.
type State int

const (
	StateUninitialized State = iota
	StateRestoring
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRestoring:
		return "restoring"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Flow names the passcode flow a resend belongs to.
type Flow string

const (
	FlowSignup Flow = "signup"
	FlowLogin  Flow = "login"
)

// ErrNotAuthenticated is returned by operations that need an active session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Listener observes session state transitions. Listeners are invoked
// synchronously, outside the service lock, in subscription order.
type Listener func(state State, user *models.User)

type verifyResponse struct {
	Tokens models.TokenPair `json:"tokens"`
	User   json.RawMessage  `json:"user"`
}

type profileResponse struct {
	User json.RawMessage `json:"user"`
}

// Service owns the session: the authenticated user record, the token pair
// (via the credential store), and the state machine that ties them together.
type Service struct {
	mu    sync.RWMutex
	state State
	user  *models.User

	client *api.Client
	creds  *store.CredentialStore
	logger *slog.Logger

	verifyOnRestore bool
	listeners       []Listener
}

// NewService creates the session holder. It registers itself as the client's
// forced-logout handler so an exhausted refresh path lands in the
// unauthenticated state.
func NewService(client *api.Client, creds *store.CredentialStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		state:  StateUninitialized,
		client: client,
		creds:  creds,
		logger: logger,
	}
	client.OnForcedLogout(s.handleForcedLogout)
	return s
}

// SetVerifyOnRestore enables the best-effort profile re-verification after a
// successful restore. Strict deployments turn this on; a definitive auth
// rejection then clears the session while network errors leave it intact.
func (s *Service) SetVerifyOnRestore(v bool) {
	s.verifyOnRestore = v
}

// Subscribe adds a state transition listener.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the current user record, or nil.
func (s *Service) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a user record is present.
func (s *Service) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// Ready reports whether the initial restore has completed.
func (s *Service) Ready() bool {
	st := s.State()
	return st == StateAuthenticated || st == StateUnauthenticated
}

// Restore loads the persisted session at process start. Storage that is
// empty, incomplete, or unparseable lands in the unauthenticated state; a
// complete record restores the session optimistically, optionally followed
// by a profile re-verification.
func (s *Service) Restore(ctx context.Context) error {
	s.setState(StateRestoring, nil)

	creds := s.creds.Load()
	if !creds.HasSession() {
		s.setState(StateUnauthenticated, nil)
		return nil
	}

	var user models.User
	if err := json.Unmarshal(creds.User, &user); err != nil {
		s.logger.Warn("stored user record unparseable, clearing session", "error", err)
		if clearErr := s.creds.Clear(); clearErr != nil {
			s.logger.Error("clear credentials", "error", clearErr)
		}
		s.setState(StateUnauthenticated, nil)
		return nil
	}

	s.setState(StateAuthenticated, &user)

	if s.verifyOnRestore {
		if err := s.verifyProfile(ctx); err != nil {
			if api.IsDefinitiveAuthFailure(err) {
				s.logger.Warn("stored session rejected by server", "error", err)
				s.clearSession()
			} else {
				// Network or transient server trouble: keep the
				// optimistic session.
				s.logger.Warn("profile verification failed", "error", err)
			}
		}
	}
	return nil
}

// verifyProfile refetches the profile and, on success, replaces the stored
// user record.
func (s *Service) verifyProfile(ctx context.Context) error {
	var resp profileResponse
	if err := s.client.Get(ctx, "/auth/profile", &resp); err != nil {
		return err
	}
	return s.adoptUser(resp.User)
}

// RequestSignupCode asks the server to email a one-time signup code.
func (s *Service) RequestSignupCode(ctx context.Context, email string) error {
	err := s.client.Post(ctx, "/auth/signup/send-otp", map[string]string{"email": email}, nil)
	return api.WithFallback(err, "failed to send OTP")
}

// RequestLoginCode asks the server to email a one-time login code.
func (s *Service) RequestLoginCode(ctx context.Context, email string) error {
	err := s.client.Post(ctx, "/auth/login/send-otp", map[string]string{"email": email}, nil)
	return api.WithFallback(err, "failed to send OTP")
}

// ResendCode re-requests the code for a pending flow. State is unchanged;
// the caller decides how to surface the outcome.
func (s *Service) ResendCode(ctx context.Context, email string, flow Flow) error {
	body := map[string]string{"email": email, "type": string(flow)}
	err := s.client.Post(ctx, "/auth/resend-otp", body, nil)
	return api.WithFallback(err, "failed to resend OTP")
}

// VerifySignupCode submits the signup code. On success the returned token
// pair and user record become the new session; on failure the state is
// unchanged and the server's message is surfaced.
func (s *Service) VerifySignupCode(ctx context.Context, email, code string) error {
	return s.verifyCode(ctx, "/auth/signup/verify-otp", email, code, "signup verification failed")
}

// VerifyLoginCode submits the login code. The refresh token is optional in
// the response; when absent, the silent-refresh path stays disabled.
func (s *Service) VerifyLoginCode(ctx context.Context, email, code string) error {
	return s.verifyCode(ctx, "/auth/login/verify-otp", email, code, "login verification failed")
}

func (s *Service) verifyCode(ctx context.Context, path, email, code, fallback string) error {
	var resp verifyResponse
	body := map[string]string{"email": email, "otp": code}
	if err := s.client.Post(ctx, path, body, &resp); err != nil {
		return api.WithFallback(err, fallback)
	}

	var user models.User
	if err := json.Unmarshal(resp.User, &user); err != nil {
		return fmt.Errorf("decode user record: %w", err)
	}

	creds := store.Credentials{
		AccessToken:  resp.Tokens.AccessToken,
		RefreshToken: resp.Tokens.RefreshToken,
		User:         resp.User,
	}
	if err := s.creds.Save(creds); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.setState(StateAuthenticated, &user)
	return nil
}

// Profile fetches the current profile from the server and adopts it as the
// new user record.
func (s *Service) Profile(ctx context.Context) (*models.User, error) {
	if !s.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	var resp profileResponse
	if err := s.client.Get(ctx, "/auth/profile", &resp); err != nil {
		return nil, api.WithFallback(err, "failed to fetch profile")
	}
	if err := s.adoptUser(resp.User); err != nil {
		return nil, err
	}
	return s.User(), nil
}

// UpdateProfile sends a partial field-value update and adopts the returned
// user record.
func (s *Service) UpdateProfile(ctx context.Context, fields map[string]any) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	var resp profileResponse
	if err := s.client.Put(ctx, "/auth/profile", fields, &resp); err != nil {
		return api.WithFallback(err, "failed to update profile")
	}
	return s.adoptUser(resp.User)
}

// UpdateProfileWithAvatar sends a multipart update carrying the avatar
// image alongside the plain fields.
func (s *Service) UpdateProfileWithAvatar(ctx context.Context, fields map[string]string, avatarPath string) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	var resp profileResponse
	err := s.client.DoMultipart(ctx, http.MethodPut, "/auth/profile", fields, "avatar", avatarPath, &resp)
	if err != nil {
		return api.WithFallback(err, "failed to update profile")
	}
	return s.adoptUser(resp.User)
}

// adoptUser replaces the in-memory and persisted user record with the raw
// server copy.
func (s *Service) adoptUser(raw json.RawMessage) error {
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return fmt.Errorf("decode user record: %w", err)
	}
	if err := s.creds.SetUser(raw); err != nil {
		return fmt.Errorf("persist user record: %w", err)
	}
	s.setState(StateAuthenticated, &user)
	return nil
}

// RefreshAccessToken performs the same refresh the 401 intercept does,
// explicitly. It fails closed: on any failure the client forces a sign-out
// before the error is returned.
func (s *Service) RefreshAccessToken(ctx context.Context) error {
	return s.client.RefreshAccessToken(ctx)
}

// SignOut notifies the server best-effort and always clears local state.
func (s *Service) SignOut(ctx context.Context) {
	if err := s.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		s.logger.Info("server logout failed, continuing with local logout", "error", err)
	}
	s.clearSession()
}

// Deactivate deletes the account server-side and clears the session on
// success.
func (s *Service) Deactivate(ctx context.Context) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := s.client.Delete(ctx, "/auth/deactivate", nil); err != nil {
		return api.WithFallback(err, "failed to deactivate account")
	}
	s.clearSession()
	return nil
}

// handleForcedLogout runs after the API client has already cleared the
// credential store.
func (s *Service) handleForcedLogout() {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == StateAuthenticated || st == StateRestoring {
		s.setState(StateUnauthenticated, nil)
	}
}

func (s *Service) clearSession() {
	if err := s.creds.Clear(); err != nil {
		s.logger.Error("clear credentials", "error", err)
	}
	s.setState(StateUnauthenticated, nil)
}

// setState applies a transition and notifies listeners outside the lock.
func (s *Service) setState(state State, user *models.User) {
	s.mu.Lock()
	s.state = state
	s.user = user
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(state, user)
	}
}
