package roleswitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/notify"
	"github.com/eventreg/eventreg/internal/rbac"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/shared"
)

// Backend is the system of record for switch grants. Calls are remote and
// may fail; the service applies nothing before a call succeeds.
type Backend interface {
	RequestRegistrarAccess(ctx context.Context, principalID string) error
	SwitchRole(ctx context.Context, principalID string, target roles.Role) (roles.Role, error)
	Approve(ctx context.Context, adminID, principalID string) error
	Reject(ctx context.Context, adminID, principalID, reason string) error
	Revoke(ctx context.Context, adminID, principalID string) error
}

// Service runs role-switch transitions. At most one transition per
// principal is in flight at any time.
type Service struct {
	backend Backend
	store   auth.Store
	gate    *rbac.Gate
	notices notify.Sink
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService constructs a Service. notices and logger may be nil.
func NewService(backend Backend, store auth.Store, gate *rbac.Gate, notices notify.Sink, logger *slog.Logger) *Service {
	if notices == nil {
		notices = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  backend,
		store:    store,
		gate:     gate,
		notices:  notices,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// RequestElevation asks for registrar capability on behalf of the session's
// principal. Requesting again while pending returns the principal unchanged.
func (s *Service) RequestElevation(ctx context.Context, sessionID string) (*auth.Principal, error) {
	p, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	from := StateOf(p)
	to, err := Next(from, EventRequestElevation, p.PrimaryRole)
	if err != nil {
		return nil, err
	}
	if from == PendingElevation {
		return p, nil
	}

	release, err := s.acquire(p.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.backend.RequestRegistrarAccess(ctx, p.ID); err != nil {
		return nil, s.failure("request registrar access", p.ID, err)
	}

	current, err := s.reload(ctx, sessionID, p.ID, from, to)
	if err != nil {
		return nil, err
	}
	current.RequestedSwitch = true
	if err := s.store.Save(ctx, sessionID, current); err != nil {
		return nil, err
	}
	s.notify(ctx, notify.New(current.ID, notify.KindInfo, notify.CodeSwitchRequested, "Your registrar access request was sent for approval."))
	return current, nil
}

// Toggle switches the session's principal between worker and registrar.
// The new current role is the one the backend confirms.
func (s *Service) Toggle(ctx context.Context, sessionID string) (*auth.Principal, error) {
	p, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	from := StateOf(p)
	to, err := Next(from, EventToggle, p.PrimaryRole)
	if err != nil {
		return nil, err
	}
	target, ok := roles.Alternate(p.EffectiveRole())
	if !ok {
		return nil, ErrInvalidTransition
	}

	release, err := s.acquire(p.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	confirmed, err := s.backend.SwitchRole(ctx, p.ID, target)
	if err != nil {
		return nil, s.failure("switch role", p.ID, err)
	}
	if !permittedCurrent(p.PrimaryRole, confirmed) {
		return nil, s.failure("switch role", p.ID, fmt.Errorf("backend confirmed role %q: %w", confirmed, shared.ErrUnknownRole))
	}

	current, err := s.reload(ctx, sessionID, p.ID, from, to)
	if err != nil {
		return nil, err
	}
	current.CurrentRole = confirmed
	if err := s.store.Save(ctx, sessionID, current); err != nil {
		return nil, err
	}
	s.notify(ctx, notify.New(current.ID, notify.KindSuccess, notify.CodeRoleSwitched, "You are now working as "+roles.Label(confirmed)+"."))
	return current, nil
}

// Approve grants switching to subjectID. The subject's session picks the
// grant up on its next profile refresh.
func (s *Service) Approve(ctx context.Context, admin *auth.Principal, subjectID string) error {
	return s.decide(ctx, admin, subjectID, rbac.ActionRoleRequestApprove, "approve", func() error {
		return s.backend.Approve(ctx, admin.ID, subjectID)
	}, notify.New(subjectID, notify.KindSuccess, notify.CodeSwitchApproved, "Your registrar access request was approved. You can now switch roles."))
}

// Reject declines subjectID's pending request. The subject may ask again.
func (s *Service) Reject(ctx context.Context, admin *auth.Principal, subjectID, reason string) error {
	message := "Your registrar access request was rejected."
	if reason != "" {
		message += " Reason: " + reason
	}
	return s.decide(ctx, admin, subjectID, rbac.ActionRoleRequestReject, "reject", func() error {
		return s.backend.Reject(ctx, admin.ID, subjectID, reason)
	}, notify.New(subjectID, notify.KindWarning, notify.CodeSwitchRejected, message))
}

// Revoke withdraws subjectID's switching grant. The forced return to the
// primary role and its notice happen on the subject's next refresh.
func (s *Service) Revoke(ctx context.Context, admin *auth.Principal, subjectID string) error {
	return s.decide(ctx, admin, subjectID, rbac.ActionRoleSwitchRevoke, "revoke", func() error {
		return s.backend.Revoke(ctx, admin.ID, subjectID)
	}, notify.Notice{})
}

func (s *Service) decide(ctx context.Context, admin *auth.Principal, subjectID, actionID, op string, call func() error, notice notify.Notice) error {
	if admin == nil {
		return shared.ErrUnauthenticated
	}
	if err := s.gate.EvaluateID(admin, actionID).Err(); err != nil {
		return err
	}
	if subjectID == "" {
		return fmt.Errorf("roleswitch: %s: %w", op, shared.ErrNotFound)
	}
	release, err := s.acquire(subjectID)
	if err != nil {
		return err
	}
	defer release()

	if err := call(); err != nil {
		return s.failure(op, subjectID, err)
	}
	s.logger.Info("role switch decision",
		slog.String("op", op),
		slog.String("admin_id", admin.ID),
		slog.String("principal_id", subjectID),
	)
	if notice.Code != "" {
		s.notify(ctx, notice)
	}
	return nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*auth.Principal, error) {
	p, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	if !roles.IsValid(p.PrimaryRole) {
		return nil, shared.ErrUnknownRole
	}
	return p, nil
}

// reload fetches the principal again after a backend call and refuses to
// apply a result the principal has moved past. A principal already in the
// target state was refreshed with the confirmed result and is accepted.
func (s *Service) reload(ctx context.Context, sessionID, principalID string, from, to State) (*auth.Principal, error) {
	current, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Info("discarding role switch result after logout", slog.String("principal_id", principalID))
			return nil, ErrStaleTransition
		}
		return nil, err
	}
	state := StateOf(current)
	if current.ID != principalID || (state != from && state != to) {
		s.logger.Info("discarding stale role switch result",
			slog.String("principal_id", principalID),
			slog.String("expected_state", string(from)),
			slog.String("state", string(state)),
		)
		return nil, ErrStaleTransition
	}
	return current, nil
}

// failure wraps transport errors as retryable transition failures. Denials
// and conflicts reported by the backend are returned as they are.
func (s *Service) failure(op, principalID string, err error) error {
	if errors.Is(err, shared.ErrConflict) || errors.Is(err, shared.ErrUnauthorized) || errors.Is(err, shared.ErrNotFound) {
		return err
	}
	s.logger.Warn("role switch call failed",
		slog.String("op", op),
		slog.String("principal_id", principalID),
		slog.Any("error", err),
	)
	return &TransitionError{Op: op, Err: err}
}

func (s *Service) acquire(principalID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[principalID]; busy {
		return nil, ErrTransitionInFlight
	}
	s.inflight[principalID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, principalID)
		s.mu.Unlock()
	}, nil
}

func (s *Service) notify(ctx context.Context, n notify.Notice) {
	if err := s.notices.Notify(ctx, n); err != nil {
		s.logger.Warn("queue notice", slog.String("code", n.Code), slog.Any("error", err))
	}
}

func permittedCurrent(primary, role roles.Role) bool {
	if role == primary {
		return true
	}
	alt, ok := roles.Alternate(primary)
	return ok && role == alt
}
