package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"sickfits/internal/auth"
	apperrors "sickfits/internal/errors"
	"sickfits/internal/mail"
	"sickfits/internal/model"
	"sickfits/internal/repository"
)

// AuthService orchestrates signup, signin, password reset and the session
// token lifecycle. Each operation is a single linear request; no retries, no
// compensating rollback, and store errors surface to the caller untranslated.
type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (*model.User, string, error)
	Signin(ctx context.Context, email, password string) (*model.User, string, error)
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password, confirmPassword string) (*model.User, string, error)
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

type authService struct {
	userRepo    repository.UserRepository
	hasher      auth.PasswordHasher
	jwtService  *auth.JWTService
	mailer      mail.Sender
	frontendURL string
	now         func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	jwtService *auth.JWTService,
	mailer mail.Sender,
	frontendURL string,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		hasher:      hasher,
		jwtService:  jwtService,
		mailer:      mailer,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

// Signup creates a user with the default permission set and returns the user
// together with a fresh session token. The email is normalized to lowercase
// before it is stored. Duplicate emails are rejected by the store's unique
// index and that error is surfaced as-is, not translated.
func (s *authService) Signup(ctx context.Context, email, password, name string) (*model.User, string, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	return user, token, nil
}

// Signin verifies credentials against the stored hash and returns the user
// with a fresh session token.
func (s *authService) Signin(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.ErrUserNotFound
		}
		return nil, "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", apperrors.ErrInvalidPassword
	}

	token, err := s.jwtService.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	return user, token, nil
}

// RequestReset mints a single-use reset token, persists it on the matching
// user and emails a reset link. Whether the email matched a user and whether
// delivery succeeded are both masked from the caller; failures are only
// logged. A second request overwrites the previous token, so at most one is
// ever current.
func (s *authService) RequestReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Uniform response regardless of account existence.
			return nil
		}
		return err
	}

	token, expiry, err := auth.GenerateResetToken()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return err
	}

	body, err := mail.ResetEmailBody(s.frontendURL, token)
	if err != nil {
		return err
	}
	if res := s.mailer.Send(ctx, user.Email, "Your Password Reset Token", body); !res.Sent {
		// The caller still sees success; only the log knows.
		log.Printf("reset mail delivery failed for user %s: %v", user.ID, res.Err)
	}
	return nil
}

// ResetPassword redeems a reset token: it validates the confirmation, finds
// the user holding an unexpired token, then writes the new hash and clears
// the token and expiry in one atomic update. A redeemed token cannot be used
// again. On success a fresh session token is issued.
func (s *authService) ResetPassword(ctx context.Context, resetToken, password, confirmPassword string) (*model.User, string, error) {
	if password != confirmPassword {
		return nil, "", apperrors.ErrPasswordMismatch
	}

	user, err := s.userRepo.FindByResetToken(ctx, resetToken, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.ErrTokenInvalidOrExpired
		}
		return nil, "", err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}
	if err := s.userRepo.ResetPassword(ctx, user.ID, hashed); err != nil {
		return nil, "", err
	}

	updated, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.Issue(updated.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	return updated, token, nil
}

// CurrentUser resolves a session token to its user record.
func (s *authService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.jwtService.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
