package service

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sickfits/internal/auth"
	apperrors "sickfits/internal/errors"
	"sickfits/internal/mail"
	"sickfits/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	args := m.Called(ctx, id, token, expiry)
	return args.Error(0)
}

func (m *MockUserRepository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockMailer is a mock implementation of mail.Sender.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody string) mail.DeliveryResult {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Get(0).(mail.DeliveryResult)
}

func newTestService(repo *MockUserRepository, mailer *MockMailer) AuthService {
	return NewAuthService(
		repo,
		auth.NewBcryptHasher(),
		auth.NewJWTService("test-secret"),
		mailer,
		"http://localhost:7777",
	)
}

func TestAuthService_Signup(t *testing.T) {
	storeErr := errors.New("Error 1062 (23000): Duplicate entry 'foo@bar.com' for key 'users.idx_users_email'")

	tests := []struct {
		name          string
		email         string
		password      string
		userName      string
		setupMock     func(*MockUserRepository)
		expectedError error
		expectedEmail string
	}{
		{
			name:     "successful signup lowercases email",
			email:    "Foo@Bar.com",
			password: "password123",
			userName: "Foo Bar",
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "foo@bar.com"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*model.User).ID = uuid.New()
				}).Return(nil)
			},
			expectedEmail: "foo@bar.com",
		},
		{
			name:     "duplicate email surfaces store error untranslated",
			email:    "foo@bar.com",
			password: "password123",
			userName: "Foo Bar",
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(storeErr)
			},
			expectedError: storeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := newTestService(mockRepo, new(MockMailer))
			user, token, err := svc.Signup(context.Background(), tt.email, tt.password, tt.userName)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.Equal(t, tt.expectedEmail, user.Email)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.password, user.PasswordHash)
				assert.NotEmpty(t, token)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_SignupThenSignin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	var stored *model.User
	mockRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*model.User)
		stored.ID = uuid.New()
	}).Return(nil)

	svc := newTestService(mockRepo, new(MockMailer))

	_, _, err := svc.Signup(context.Background(), "A@B.com", "password123", "Ada")
	assert.NoError(t, err)

	// Signin with a differently-cased email finds the normalized record.
	mockRepo.On("FindByEmail", mock.Anything, "a@b.com").Return(stored, nil)

	user, token, err := svc.Signin(context.Background(), "a@B.COM", "password123")
	assert.NoError(t, err)
	assert.Equal(t, stored.ID, user.ID)
	assert.NotEmpty(t, token)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Signin(t *testing.T) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), 10)
	userID := uuid.New()

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful signin",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           userID,
					Email:        "test@example.com",
					PasswordHash: string(hashedPassword),
				}, nil)
			},
		},
		{
			name:     "unknown email",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrUserNotFound,
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "wrong-password",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           userID,
					Email:        "test@example.com",
					PasswordHash: string(hashedPassword),
				}, nil)
			},
			expectedError: apperrors.ErrInvalidPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := newTestService(mockRepo, new(MockMailer))
			user, token, err := svc.Signin(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.NotEmpty(t, token)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_RequestReset(t *testing.T) {
	userID := uuid.New()

	t.Run("stores token and sends mail", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockMailer := new(MockMailer)

		mockRepo.On("FindByEmail", mock.Anything, "a@b.com").Return(&model.User{
			ID:    userID,
			Email: "a@b.com",
		}, nil)

		var issuedToken string
		mockRepo.On("SetResetToken", mock.Anything, userID,
			mock.MatchedBy(func(token string) bool {
				if len(token) != 40 {
					return false
				}
				_, err := hex.DecodeString(token)
				return err == nil
			}),
			mock.MatchedBy(func(expiry time.Time) bool {
				until := time.Until(expiry)
				return until > 59*time.Minute && until <= time.Hour
			}),
		).Run(func(args mock.Arguments) {
			issuedToken = args.Get(2).(string)
		}).Return(nil)

		mockMailer.On("Send", mock.Anything, "a@b.com", mock.Anything,
			mock.MatchedBy(func(body string) bool {
				return issuedToken != "" // token was minted before mail went out
			}),
		).Return(mail.DeliveryResult{Sent: true})

		err := newTestService(mockRepo, mockMailer).RequestReset(context.Background(), "A@b.com")
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("unknown email is masked as success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockMailer := new(MockMailer)

		mockRepo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

		err := newTestService(mockRepo, mockMailer).RequestReset(context.Background(), "ghost@example.com")
		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "SetResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockMailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mail delivery failure is masked as success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockMailer := new(MockMailer)

		mockRepo.On("FindByEmail", mock.Anything, "a@b.com").Return(&model.User{ID: userID, Email: "a@b.com"}, nil)
		mockRepo.On("SetResetToken", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)
		mockMailer.On("Send", mock.Anything, "a@b.com", mock.Anything, mock.Anything).
			Return(mail.DeliveryResult{Err: errors.New("smtp: connection refused")})

		err := newTestService(mockRepo, mockMailer).RequestReset(context.Background(), "a@b.com")
		assert.NoError(t, err)
		mockMailer.AssertExpectations(t)
	})

	t.Run("store error propagates", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		storeErr := errors.New("connection reset by peer")

		mockRepo.On("FindByEmail", mock.Anything, "a@b.com").Return(nil, storeErr)

		err := newTestService(mockRepo, new(MockMailer)).RequestReset(context.Background(), "a@b.com")
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	userID := uuid.New()
	resetToken := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	t.Run("mismatched confirmation fails before any store call", func(t *testing.T) {
		mockRepo := new(MockUserRepository)

		user, token, err := newTestService(mockRepo, new(MockMailer)).
			ResetPassword(context.Background(), resetToken, "newpassword", "different")

		assert.ErrorIs(t, err, apperrors.ErrPasswordMismatch)
		assert.Nil(t, user)
		assert.Empty(t, token)
		mockRepo.AssertNotCalled(t, "FindByResetToken", mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown token fails", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByResetToken", mock.Anything, "bogus", mock.Anything).Return(nil, gorm.ErrRecordNotFound)

		_, _, err := newTestService(mockRepo, new(MockMailer)).
			ResetPassword(context.Background(), "bogus", "newpassword", "newpassword")

		assert.ErrorIs(t, err, apperrors.ErrTokenInvalidOrExpired)
	})

	t.Run("successful redeem updates password and clears token", func(t *testing.T) {
		mockRepo := new(MockUserRepository)

		mockRepo.On("FindByResetToken", mock.Anything, resetToken, mock.Anything).Return(&model.User{
			ID:    userID,
			Email: "a@b.com",
		}, nil)
		mockRepo.On("ResetPassword", mock.Anything, userID, mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpassword")) == nil
		})).Return(nil)
		mockRepo.On("FindByID", mock.Anything, userID).Return(&model.User{
			ID:    userID,
			Email: "a@b.com",
		}, nil)

		user, token, err := newTestService(mockRepo, new(MockMailer)).
			ResetPassword(context.Background(), resetToken, "newpassword", "newpassword")

		assert.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.NotEmpty(t, token)
		mockRepo.AssertExpectations(t)
	})

	t.Run("redeemed token cannot be used again", func(t *testing.T) {
		mockRepo := new(MockUserRepository)

		// First redeem finds the user; the atomic update clears the token,
		// so the second lookup misses.
		mockRepo.On("FindByResetToken", mock.Anything, resetToken, mock.Anything).
			Return(&model.User{ID: userID, Email: "a@b.com"}, nil).Once()
		mockRepo.On("ResetPassword", mock.Anything, userID, mock.Anything).Return(nil).Once()
		mockRepo.On("FindByID", mock.Anything, userID).
			Return(&model.User{ID: userID, Email: "a@b.com"}, nil).Once()
		mockRepo.On("FindByResetToken", mock.Anything, resetToken, mock.Anything).
			Return(nil, gorm.ErrRecordNotFound)

		svc := newTestService(mockRepo, new(MockMailer))

		_, _, err := svc.ResetPassword(context.Background(), resetToken, "newpassword", "newpassword")
		assert.NoError(t, err)

		_, _, err = svc.ResetPassword(context.Background(), resetToken, "another-pass", "another-pass")
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalidOrExpired)
		mockRepo.AssertExpectations(t)
	})
}

func TestAuthService_ResetTokenWindow(t *testing.T) {
	userID := uuid.New()
	resetToken := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	issuedAt := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := issuedAt.Add(auth.ResetTokenExpiry)

	tests := []struct {
		name     string
		at       time.Time
		accepted bool
	}{
		{name: "accepted just inside the window", at: issuedAt.Add(59 * time.Minute), accepted: true},
		{name: "rejected just past the window", at: issuedAt.Add(61 * time.Minute), accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)

			// Mirrors the store query: the token matches only while the
			// stored expiry has not passed the lookup instant.
			mockRepo.On("FindByResetToken", mock.Anything, resetToken, mock.MatchedBy(func(now time.Time) bool {
				return !now.After(expiry)
			})).Return(&model.User{ID: userID, Email: "a@b.com"}, nil)
			mockRepo.On("FindByResetToken", mock.Anything, resetToken, mock.Anything).
				Return(nil, gorm.ErrRecordNotFound)

			if tt.accepted {
				mockRepo.On("ResetPassword", mock.Anything, userID, mock.Anything).Return(nil)
				mockRepo.On("FindByID", mock.Anything, userID).
					Return(&model.User{ID: userID, Email: "a@b.com"}, nil)
			}

			svc := newTestService(mockRepo, new(MockMailer)).(*authService)
			svc.now = func() time.Time { return tt.at }

			user, token, err := svc.ResetPassword(context.Background(), resetToken, "newpassword", "newpassword")

			if tt.accepted {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.NotEmpty(t, token)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrTokenInvalidOrExpired)
			}
		})
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	userID := uuid.New()
	jwtService := auth.NewJWTService("test-secret")

	t.Run("valid token resolves user", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, Email: "a@b.com"}, nil)

		token, err := jwtService.Issue(userID)
		assert.NoError(t, err)

		svc := NewAuthService(mockRepo, auth.NewBcryptHasher(), jwtService, new(MockMailer), "http://localhost:7777")
		user, err := svc.CurrentUser(context.Background(), token)
		assert.NoError(t, err)
		assert.Equal(t, userID, user.ID)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		svc := newTestService(new(MockUserRepository), new(MockMailer))

		_, err := svc.CurrentUser(context.Background(), "tampered.token.value")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}
