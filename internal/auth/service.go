package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/staffdesk/internal/shared"
)

// LoginMetrics counts login outcomes. Nil-safe via NopLoginMetrics.
type LoginMetrics interface {
	LoginAttempt(outcome string)
}

// NopLoginMetrics discards login metric events.
type NopLoginMetrics struct{}

// LoginAttempt implements LoginMetrics.
func (NopLoginMetrics) LoginAttempt(string) {}

// Service wraps authentication business rules: credential verification,
// conditional bootstrap, permission resolution, and session issuance.
type Service struct {
	repo      Repository
	bootstrap *Bootstrapper
	sessions  *shared.SessionManager
	throttle  *shared.LoginThrottle
	audit     shared.Recorder
	metrics   LoginMetrics
	logger    *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, bootstrap *Bootstrapper, sessions *shared.SessionManager, throttle *shared.LoginThrottle, audit shared.Recorder, metrics LoginMetrics, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopRecorder{}
	}
	if metrics == nil {
		metrics = NopLoginMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		bootstrap: bootstrap,
		sessions:  sessions,
		throttle:  throttle,
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
	}
}

// LoginResult carries the issued token and its decoded session.
type LoginResult struct {
	Token   string
	Session *shared.Session
}

// Login validates credentials and issues a signed session. The unknown-user
// and wrong-password paths return the same error so callers cannot enumerate
// accounts.
func (s *Service) Login(ctx context.Context, username, password, remoteAddr string) (*LoginResult, error) {
	fields := map[string][]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = []string{"Username is required."}
	}
	if password == "" {
		fields["password"] = []string{"Password is required."}
	}
	if len(fields) > 0 {
		return nil, &shared.ValidationError{Fields: fields}
	}

	if ok, err := s.throttle.Allow(ctx, username, remoteAddr); err != nil {
		s.logger.Warn("login throttle check", slog.Any("error", err))
	} else if !ok {
		s.metrics.LoginAttempt("throttled")
		return nil, shared.ErrTooManyAttempts
	}

	// Only an exact match on the reserved username triggers bootstrap.
	if username == s.bootstrap.ReservedUsername() {
		if _, err := s.bootstrap.EnsureAdmin(ctx); err != nil {
			s.metrics.LoginAttempt("error")
			return nil, err
		}
	}

	principal, err := s.repo.FindPrincipalByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, s.failAuth(ctx, username, remoteAddr)
		}
		s.metrics.LoginAttempt("error")
		return nil, shared.NewStoreError("principal lookup", err)
	}
	if principal.PasswordHash == "" {
		return nil, s.failAuth(ctx, username, remoteAddr)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)); err != nil {
		return nil, s.failAuth(ctx, username, remoteAddr)
	}

	role, err := s.resolveRole(ctx, principal)
	if err != nil {
		s.metrics.LoginAttempt("error")
		return nil, err
	}

	permissions := ResolvePermissions(s.bootstrap.ReservedUsername(), principal, role)

	sess := shared.Session{
		PrincipalID: principal.ID,
		Username:    principal.Username,
		Permissions: permissions,
	}
	if role != nil {
		sess.RoleID = role.ID
		sess.RoleName = role.Name
	}
	token, issued, err := s.sessions.Issue(sess)
	if err != nil {
		s.metrics.LoginAttempt("error")
		return nil, err
	}

	if err := s.throttle.Reset(ctx, username, remoteAddr); err != nil {
		s.logger.Warn("login throttle reset", slog.Any("error", err))
	}
	s.metrics.LoginAttempt("success")
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor: principal.Username, Action: "auth.login", Entity: "principal", EntityID: principal.ID,
	}); err != nil {
		s.logger.Warn("audit login", slog.Any("error", err))
	}
	return &LoginResult{Token: token, Session: issued}, nil
}

// resolveRole fetches the principal's role. A dangling reference on the
// reserved principal is repaired through the bootstrap engine and retried
// once; for anyone else it resolves to nil and an empty permission set.
func (s *Service) resolveRole(ctx context.Context, principal *Principal) (*Role, error) {
	if principal.RoleID != "" {
		role, err := s.repo.FindRoleByID(ctx, principal.RoleID)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewStoreError("role lookup", err)
		}
	}
	if principal.Username != s.bootstrap.ReservedUsername() {
		return nil, nil
	}

	// The reserved principal must never resolve to a dangling role.
	role, err := s.bootstrap.EnsureRole(ctx)
	if err != nil {
		return nil, err
	}
	if principal.RoleID != role.ID {
		if err := s.repo.UpdatePrincipalRole(ctx, principal.ID, role.ID); err != nil {
			return nil, shared.NewConfigError("repair privileged principal role reference", err)
		}
		principal.RoleID = role.ID
	}
	repaired, err := s.repo.FindRoleByID(ctx, principal.RoleID)
	if err != nil {
		return nil, shared.NewConfigError("privileged role missing after repair", err)
	}
	return repaired, nil
}

func (s *Service) failAuth(ctx context.Context, username, remoteAddr string) error {
	if err := s.throttle.RecordFailure(ctx, username, remoteAddr); err != nil {
		s.logger.Warn("login throttle record", slog.Any("error", err))
	}
	s.metrics.LoginAttempt("denied")
	s.logger.Info("login denied", slog.String("username", username))
	return shared.ErrInvalidCredentials
}
