package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/auth"
	"github.com/sakif/artifact-cms/internal/metrics"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/repository"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 6

// AuthService registers accounts and turns credentials into sessions.
//
//	AuthHandler → AuthService → UserRepository (accounts)
//	                          ↘ PasswordService (bcrypt)
//	                          ↘ TokenService (JWT)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is a freshly issued session.
type AuthResult struct {
	Token     string      `json:"token"`
	User      *model.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// RegisterInput carries the fields of the registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a password account and signs the user in.
//
// Uniqueness of username and email is enforced by the database; a clash
// comes back from the repository as apperror.ErrConflict naming the field.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	switch {
	case username == "" || email == "" || in.Password == "":
		return nil, apperror.ValidationFailed("", "username, email and password are required")
	case utf8.RuneCountInString(in.Password) < MinPasswordLength:
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(in.Password) > auth.MaxPasswordBytes:
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		metrics.AuthAttempts.WithLabelValues("register", metrics.OutcomeFailure).Inc()
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", username))
	metrics.AuthAttempts.WithLabelValues("register", metrics.OutcomeSuccess).Inc()

	return s.issue(user)
}

// Login checks a username and password.
//
// Every failure, unknown user or wrong password alike, is the same
// "invalid credentials" error. For unknown users a dummy bcrypt comparison
// runs so the response time does not give the difference away either.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("", "username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
		}
		s.passwords.VerifyDummy(password)
		return nil, s.loginFailed(username)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, s.loginFailed(username)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	metrics.AuthAttempts.WithLabelValues("login", metrics.OutcomeSuccess).Inc()

	return s.issue(user)
}

func (s *AuthService) loginFailed(username string) error {
	s.logger.Info("login failed", slog.String("username", username))
	metrics.AuthAttempts.WithLabelValues("login", metrics.OutcomeFailure).Inc()
	return apperror.Unauthorized("invalid credentials")
}

// LoginWithGitHub signs in the account linked to a GitHub identity, creating
// it on first sign-in. The new account takes the GitHub login as username
// and has no password, so it can only ever sign in through GitHub.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		email := gh.Email
		if email == "" {
			email = gh.NoReplyEmail()
		}
		githubID := gh.ID
		user = &model.User{Username: gh.Login, Email: email, GitHubID: &githubID}
		if err := s.users.Create(ctx, user); err != nil {
			metrics.AuthAttempts.WithLabelValues("github", metrics.OutcomeFailure).Inc()
			if errors.Is(err, apperror.ErrConflict) {
				return nil, err
			}
			return nil, fmt.Errorf("service/auth: creating GitHub user %q: %w", gh.Login, err)
		}
		s.logger.Info("user registered via GitHub",
			slog.String("userID", user.ID),
			slog.Int64("githubID", gh.ID),
		)
	default:
		return nil, fmt.Errorf("service/auth: looking up githubID %d: %w", gh.ID, err)
	}

	metrics.AuthAttempts.WithLabelValues("github", metrics.OutcomeSuccess).Inc()
	return s.issue(user)
}

// CurrentUser loads the account behind a resolved session. The row may have
// been removed since the token was issued, which yields apperror.ErrNotFound.
func (s *AuthService) CurrentUser(ctx context.Context, id auth.Identity) (*model.User, error) {
	if id.UserID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	return s.users.GetByID(ctx, id.UserID)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user, ExpiresAt: expiresAt}, nil
}
