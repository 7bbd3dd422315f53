package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classroomhub/internal/authz"
	"classroomhub/internal/database"
	"classroomhub/internal/models"
	"classroomhub/internal/repository"
	"classroomhub/internal/security"
	"classroomhub/internal/validation"
)

// AuthService handles accounts, sessions and access tokens
type AuthService struct {
	db              *database.DB
	users           *repository.UserRepository
	tokens          *security.TokenIssuer
	sessionDuration time.Duration
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(db *database.DB, tokens *security.TokenIssuer, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		db:              db,
		users:           repository.NewUserRepository(db),
		tokens:          tokens,
		sessionDuration: sessionDuration,
		now:             time.Now,
	}
}

// Register creates a new parent account. Two registrations racing on the
// same email resolve through the unique index: exactly one succeeds and the
// other gets ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *models.User
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		user, err = repository.NewUserRepository(tx).CreateUser(ctx, email, passwordHash, name)
		return err
	})
	if errors.Is(err, database.ErrUniqueViolation) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials. An unknown email and a wrong password
// both return ErrInvalidCredentials after the same amount of hashing work.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		security.CheckDummyPassword(password)
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	expiresAt := s.now().Add(s.sessionDuration)
	session, err := s.users.CreateSession(ctx, security.GenerateSessionID(), user.ID, expiresAt)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.users.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.users.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.users.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.users.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// IssueAccessToken returns a bearer token for API clients
func (s *AuthService) IssueAccessToken(user *models.User) (string, time.Time, error) {
	return s.tokens.Issue(user.ID, user.IsAdmin)
}

// ValidateAccessToken verifies a bearer token and loads its user. The admin
// flag comes from the database, not the token, so revocation applies at once.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, security.ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, security.ErrInvalidToken
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (s *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email, ignoring case
func (s *AuthService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	return user, nil
}

// ListParents returns every account ordered by name
func (s *AuthService) ListParents(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

// CountParents returns the number of accounts
func (s *AuthService) CountParents(ctx context.Context) (int, error) {
	return s.users.CountUsers(ctx)
}

// SetAdmin grants or revokes the admin flag. Only admins (or the command
// line) may call it; there is no self-service path.
func (s *AuthService) SetAdmin(ctx context.Context, actor authz.Actor, userID int64, isAdmin bool) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}

	found, err := s.users.SetAdmin(ctx, userID, isAdmin)
	if err != nil {
		return err
	}
	if !found {
		return notFound("user")
	}
	return nil
}

// DeleteUser removes an account. Guardian links and sessions go with it;
// an account that created events or messages cannot be deleted.
func (s *AuthService) DeleteUser(ctx context.Context, actor authz.Actor, userID int64) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		users := repository.NewUserRepository(tx)

		exists, err := users.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user")
		}

		events, messages, err := users.CountAuthoredContent(ctx, userID)
		if err != nil {
			return err
		}
		if events > 0 || messages > 0 {
			return ErrHasAuthoredContent
		}

		_, err = users.DeleteUser(ctx, userID)
		return err
	})
	if errors.Is(err, database.ErrForeignKeyViolation) {
		return ErrHasAuthoredContent
	}
	return err
}
