package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var (
	ErrEmailTaken         = &apperr.Error{Code: apperr.BadRequest, Message: "email already registered", Status: http.StatusConflict}
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid email or password")
	ErrInvalidToken       = apperr.New(apperr.Unauthorized, "invalid or expired refresh token")
	ErrUserNotFound       = apperr.Missing("user not found")
	ErrWeakPassword       = apperr.Invalid("password must be at least 8 characters")
	ErrPasswordRequired   = apperr.Invalid("password is required")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	otp      *OTPService
	verifier *OAuthVerifier
}

func NewAuthService(db *gorm.DB, cfg *config.Config, otp *OTPService, verifier *OAuthVerifier) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		otp:      otp,
		verifier: verifier,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	db := s.db.WithContext(ctx)
	user := models.User{
		Email:        email,
		Password:     string(hash),
		AuthProvider: models.AuthProviderEmail,
	}
	var profile *models.Profile

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return apperr.Database(err)
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			return apperr.Database(err)
		}
		p, err := provisionAccount(tx, &user, "")
		if err != nil {
			return apperr.Database(err)
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID.String(), "provider", user.AuthProvider)
	return s.generateTokenPair(db, &user, profile)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	db := s.db.WithContext(ctx)

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(db, &user, nil)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	if req.RefreshToken == "" {
		return nil, ErrInvalidToken
	}
	db := s.db.WithContext(ctx)
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	res := db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", stored.ID, false).
		Update("revoked", true)
	if res.Error != nil {
		return nil, apperr.Database(res.Error)
	}
	// Lost a race with a concurrent refresh of the same token.
	if res.RowsAffected == 0 {
		return nil, ErrInvalidToken
	}

	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, ErrInvalidToken
	}

	return s.generateTokenPair(db, &user, nil)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	if req.RefreshToken == "" {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// DeleteAccount removes the user and everything they own. Password users
// must confirm with their password.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return apperr.Database(err)
	}

	if user.Password != "" {
		if password == "" {
			return ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return deleteAccountData(tx, user.ID)
	}); err != nil {
		return apperr.Database(err)
	}

	slog.Info("account deleted", "user_id", user.ID.String())
	return nil
}

// SignInWithOTP exchanges a mailed sign-in code for a session, creating
// the account on first use.
func (s *AuthService) SignInWithOTP(ctx context.Context, req *dto.OTPVerifyRequest) (*dto.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	if err := s.otp.Consume(ctx, email, models.OTPPurposeSignIn, req.Code); err != nil {
		return nil, err
	}

	user, profile, err := s.findOrCreate(db, email, models.AuthProviderOTP, nil, "")
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(db, user, profile)
}

// ResetPassword sets a new password after verifying a reset code. All
// refresh tokens are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.PasswordResetRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	if len(req.NewPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	if err := s.otp.Consume(ctx, email, models.OTPPurposeReset, req.Code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return apperr.Database(err)
		}
		if err := tx.Model(&user).Update("password", string(hash)).Error; err != nil {
			return apperr.Database(err)
		}
		if err := tx.Model(&models.RefreshToken{}).
			Where("user_id = ?", user.ID).
			Update("revoked", true).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
}

// OAuthSignIn verifies a provider ID token and signs the user in, linking
// an existing account with the same email.
func (s *AuthService) OAuthSignIn(ctx context.Context, provider string, req *dto.OAuthRequest) (*dto.AuthResponse, error) {
	if req.IDToken == "" {
		return nil, apperr.Invalid("id_token is required")
	}
	if s.verifier == nil || !s.verifier.Has(provider) {
		return nil, apperr.Invalid("unsupported sign-in provider")
	}

	claims, err := s.verifier.Verify(ctx, provider, req.IDToken)
	if err != nil {
		slog.Warn("oauth token verification failed", "provider", provider, "error", err)
		return nil, apperr.Wrap(apperr.Unauthorized, "invalid identity token", err)
	}

	email := claims.Email
	if email == "" {
		email = claims.Subject + "@" + provider + ".users.tusktask.app"
	}

	db := s.db.WithContext(ctx)
	subject := claims.Subject

	var linked models.User
	err = db.Where("auth_provider = ? AND provider_subject = ?", provider, subject).First(&linked).Error
	if err == nil {
		return s.generateTokenPair(db, &linked, nil)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Database(err)
	}

	user, profile, err := s.findOrCreate(db, email, provider, &subject, req.FullName)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(db, user, profile)
}

// findOrCreate returns the user for email, creating and provisioning it if
// needed. A provider subject is attached to accounts that lack one.
func (s *AuthService) findOrCreate(db *gorm.DB, email, provider string, subject *string, displayName string) (*models.User, *models.Profile, error) {
	var user models.User
	var profile *models.Profile

	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			if subject != nil && user.ProviderSubject == nil {
				user.ProviderSubject = subject
				user.AuthProvider = provider
				return tx.Model(&user).Updates(map[string]interface{}{
					"provider_subject": *subject,
					"auth_provider":    provider,
				}).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user = models.User{
			Email:           email,
			AuthProvider:    provider,
			ProviderSubject: subject,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		p, err := provisionAccount(tx, &user, displayName)
		if err != nil {
			return err
		}
		profile = p
		slog.Info("user registered", "user_id", user.ID.String(), "provider", provider)
		return nil
	})
	if err != nil {
		return nil, nil, apperr.Database(err)
	}
	return &user, profile, nil
}

func (s *AuthService) generateTokenPair(db *gorm.DB, user *models.User, profile *models.Profile) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(db, user)
	if err != nil {
		return nil, err
	}

	username := ""
	if profile != nil {
		username = profile.Username
	} else {
		var p models.Profile
		if err := db.Select("username").First(&p, "id = ?", user.ID).Error; err == nil {
			username = p.Username
		}
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: dto.UserResponse{
			ID:           user.ID,
			Email:        user.Email,
			AuthProvider: user.AuthProvider,
			Username:     username,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(db *gorm.DB, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := db.Omit("User").Create(&record).Error; err != nil {
		return "", apperr.Database(fmt.Errorf("failed to store refresh token: %w", err))
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
