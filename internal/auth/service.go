package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/eventreg/eventreg/internal/notify"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/shared"
)

const revokedMessage = "Your role switching access has been revoked. You are now working as %s."

// SessionRef identifies the session a principal is resolved for.
type SessionRef struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Service wraps authentication business rules and owns the principal
// lifecycle: created at login, refreshed from the profile, cleared on logout
// or invalidation.
type Service struct {
	repo    Repository
	store   Store
	notices notify.Sink
	logger  *slog.Logger
	now     func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	resolving map[string]int
}

// NewService constructs a new Service. notices and logger may be nil.
func NewService(repo Repository, store Store, notices notify.Sink, logger *slog.Logger) *Service {
	if notices == nil {
		notices = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		store:     store,
		notices:   notices,
		logger:    logger,
		now:       time.Now,
		resolving: make(map[string]int),
	}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and stores the principal for the session.
func (s *Service) Login(ctx context.Context, ref SessionRef, email, password string) (*Principal, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	ref.UserID = user.ID
	p, err := s.Refresh(ctx, ref)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// Logout clears the stored principal and the session audit row.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		s.logger.Warn("remove session", slog.Any("error", err))
	}
	return nil
}

// Resolve reports the authentication state of a session. A session whose
// principal is still being fetched by a concurrent refresh is Resolving.
func (s *Service) Resolve(ctx context.Context, ref SessionRef) AuthState {
	state := AuthState{Status: StatusUnauthenticated, ExpiresAt: ref.ExpiresAt}
	if ref.ID == "" || ref.UserID == "" {
		return state
	}
	if state.Expired(s.now()) {
		return state
	}
	p, err := s.store.Load(ctx, ref.ID)
	switch {
	case err == nil:
		if !roles.IsValid(p.EffectiveRole()) {
			s.logger.Warn("principal with unknown role", slog.String("principal_id", p.ID), slog.String("role", string(p.EffectiveRole())))
		}
		state.Status = StatusAuthenticated
		state.Principal = p
		return state
	case errors.Is(err, shared.ErrNotFound):
	default:
		s.logger.Error("load principal", slog.Any("error", err))
		return state
	}
	if s.isResolving(ref.ID) {
		state.Status = StatusResolving
		return state
	}
	p, err = s.Refresh(ctx, ref)
	if err != nil {
		return state
	}
	state.Status = StatusAuthenticated
	state.Principal = p
	return state
}

// Refresh re-fetches the profile and replaces the stored principal.
// Concurrent refreshes of one session share a single fetch. A revoked switch
// grant forces the primary role and queues a one-time notice; a missing
// profile or unknown role clears the principal.
func (s *Service) Refresh(ctx context.Context, ref SessionRef) (*Principal, error) {
	if ref.ID == "" || ref.UserID == "" {
		return nil, shared.ErrUnauthenticated
	}
	s.markResolving(ref.ID, 1)
	defer s.markResolving(ref.ID, -1)

	v, err, _ := s.group.Do(ref.ID, func() (any, error) {
		return s.refresh(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Principal).Clone(), nil
}

func (s *Service) refresh(ctx context.Context, ref SessionRef) (*Principal, error) {
	previous, err := s.store.Load(ctx, ref.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	profile, err := s.repo.FindProfile(ctx, ref.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.invalidate(ctx, ref.ID, "profile missing")
			return nil, fmt.Errorf("auth: refresh: %w", shared.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("auth: fetch profile: %w", err)
	}

	next := PrincipalFromProfile(profile)
	if !roles.IsValid(next.PrimaryRole) {
		s.logger.Warn("profile role not recognised", slog.String("principal_id", profile.ID), slog.String("role", profile.Role))
		s.invalidate(ctx, ref.ID, "unknown role")
		return nil, fmt.Errorf("auth: refresh: %w", shared.ErrUnknownRole)
	}

	if previous != nil && previous.ID == next.ID && previous.CanSwitchRoles && !next.CanSwitchRoles {
		next.CurrentRole = next.PrimaryRole
		n := notify.New(next.ID, notify.KindWarning, notify.CodeSwitchRevoked, fmt.Sprintf(revokedMessage, roles.Label(next.PrimaryRole)))
		if err := s.notices.Notify(ctx, n); err != nil {
			s.logger.Warn("queue revocation notice", slog.Any("error", err))
		}
	}

	if err := s.store.Save(ctx, ref.ID, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) invalidate(ctx context.Context, sessionID, reason string) {
	s.logger.Info("principal invalidated", slog.String("reason", reason))
	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("clear principal", slog.Any("error", err))
	}
}

func (s *Service) markResolving(sessionID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolving[sessionID] += delta
	if s.resolving[sessionID] <= 0 {
		delete(s.resolving, sessionID)
	}
}

func (s *Service) isResolving(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolving[sessionID] > 0
}
