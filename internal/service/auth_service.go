package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"quill/internal/auth"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"
)

const (
	msgTokenMissing   = "Access denied. Token missing or malformed."
	msgTokenInvalid   = "Invalid or expired token."
	msgBadCredentials = "invalid username or password"
)

// AuthService registers users, logs them in and resolves bearer tokens.
type AuthService struct {
	users       repository.UserRepository
	hasher      *auth.Hasher
	tokens      *auth.TokenManager
	revocations auth.RevocationStore
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Bio      string
}

type LoginInput struct {
	Username string
	Password string
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  *models.User
	Token auth.IssuedToken
}

func NewAuthService(
	users repository.UserRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	revocations auth.RevocationStore,
) *AuthService {
	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
	}
}

// Register creates a user and issues a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, Email, and Password are required.")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.FindByEmailOrUsername(ctx, email, username)
	switch {
	case err == nil:
		observability.AuthAttempts.WithLabelValues("signup", "conflict").Inc()
		return nil, models.NewConflictError(conflictMessage(existing, email, username))
	case !repository.IsNotFound(err):
		return nil, internalError(err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
	}
	if bio := validation.SanitizeText(in.Bio); bio != "" {
		user.Bio = &bio
	}

	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			observability.AuthAttempts.WithLabelValues("signup", "conflict").Inc()
			return nil, models.NewConflictError("Email or Username already exists.")
		}
		return nil, internalError(err)
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthAttempts.WithLabelValues("signup", "success").Inc()
	observability.Logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

// conflictMessage names the field that collided with an existing account.
func conflictMessage(existing *models.User, email, username string) string {
	switch {
	case strings.EqualFold(existing.Email, email):
		return "Email already exists."
	case existing.Username == username:
		return "Username already exists."
	default:
		return "Email or Username already exists."
	}
}

// Login checks a username and password. Unknown users and wrong passwords
// fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required.")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, internalError(err)
		}
		s.hasher.VerifyNone(in.Password)
		observability.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}

	if !s.hasher.Verify(user.Password, in.Password) {
		observability.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthAttempts.WithLabelValues("login", "success").Inc()
	return &AuthResult{User: user, Token: token}, nil
}

// Resolve turns a raw bearer token into the caller's identity.
func (s *AuthService) Resolve(ctx context.Context, raw string) (models.Identity, *auth.Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return models.Identity{}, nil, models.NewUnauthorizedError(msgTokenMissing)
	}

	claims, err := s.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, auth.ErrTokenMalformed) {
			return models.Identity{}, nil, models.NewUnauthorizedError(msgTokenMissing)
		}
		return models.Identity{}, nil, models.NewInvalidCredentialError(msgTokenInvalid, err)
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Revocation is best effort when Redis is unavailable.
			observability.Logger.WarnContext(ctx, "token revocation check failed", "error", err)
		} else if revoked {
			return models.Identity{}, nil, models.NewInvalidCredentialError(msgTokenInvalid, errors.New("token revoked"))
		}
	}

	return claims.Identity(), claims, nil
}

// Logout revokes the token described by claims until it would expire.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || s.revocations == nil {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		observability.Logger.WarnContext(ctx, "token revocation failed", "error", err)
	}
	return nil
}

// Me returns the stored user behind an identity.
func (s *AuthService) Me(ctx context.Context, caller models.Identity) (*models.User, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, translate(err, models.NewNotFoundError("User", caller.ID))
	}
	return user, nil
}
