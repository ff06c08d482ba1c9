package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	otpDigits      = 6
	otpMaxAttempts = 5
)

var (
	ErrInvalidCode    = apperr.New(apperr.Unauthorized, "invalid or expired code")
	ErrCodeCooldown   = apperr.New(apperr.TooManyRequests, "a code was sent recently, please wait before requesting another")
	ErrInvalidPurpose = apperr.Invalid("purpose must be signin or reset")
	ErrMailDelivery   = apperr.New(apperr.UnknownError, "failed to send email")
	otpCodeUpperBound = big.NewInt(1_000_000)
)

// OTPService issues and verifies mailed one-time codes. Codes are stored
// as bcrypt hashes and are single use.
type OTPService struct {
	db       *gorm.DB
	mailer   Mailer
	ttl      time.Duration
	cooldown time.Duration
	now      func() time.Time
}

func NewOTPService(db *gorm.DB, mailer Mailer, ttl, cooldown time.Duration) *OTPService {
	return &OTPService{
		db:       db,
		mailer:   mailer,
		ttl:      ttl,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Send mails a fresh code. Reset codes are only mailed to registered
// addresses, but the caller cannot tell the difference.
func (s *OTPService) Send(ctx context.Context, req *dto.OTPRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = models.OTPPurposeSignIn
	}
	if purpose != models.OTPPurposeSignIn && purpose != models.OTPPurposeReset {
		return ErrInvalidPurpose
	}

	db := s.db.WithContext(ctx)
	now := s.now()

	var recent int64
	if err := db.Model(&models.OTPCode{}).
		Where("email = ? AND purpose = ? AND created_at > ?", email, purpose, now.Add(-s.cooldown)).
		Count(&recent).Error; err != nil {
		return apperr.Database(err)
	}
	if recent > 0 {
		return ErrCodeCooldown
	}

	if purpose == models.OTPPurposeReset {
		var users int64
		if err := db.Model(&models.User{}).Where("email = ?", email).Count(&users).Error; err != nil {
			return apperr.Database(err)
		}
		if users == 0 {
			slog.Info("password reset requested for unknown email")
			return nil
		}
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	record := models.OTPCode{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := db.Create(&record).Error; err != nil {
		return apperr.Database(err)
	}

	msg := Message{
		To:      email,
		Subject: "Your TuskTask code",
		Body:    fmt.Sprintf("Your code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes())),
	}
	if purpose == models.OTPPurposeReset {
		msg.Subject = "Reset your TuskTask password"
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		slog.Error("failed to send otp email", "error", err.Error())
		return ErrMailDelivery
	}
	return nil
}

// Consume checks code against the newest outstanding code for the address
// and marks it used on success.
func (s *OTPService) Consume(ctx context.Context, email, purpose, code string) error {
	if len(code) != otpDigits {
		return ErrInvalidCode
	}
	now := s.now()
	mismatch := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.OTPCode
		err := tx.Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
			Order("created_at DESC").
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return apperr.Database(err)
		}

		if now.After(record.ExpiresAt) || record.Attempts >= otpMaxAttempts {
			return ErrInvalidCode
		}

		if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
			mismatch = true
			return tx.Model(&record).Update("attempts", gorm.Expr("attempts + 1")).Error
		}

		return tx.Model(&record).Update("consumed_at", now).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Database(err)
	}
	if mismatch {
		return ErrInvalidCode
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpCodeUpperBound)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
