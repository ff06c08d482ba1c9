package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"github.com/tusktask/tusktask/internal/testutil"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 24 * time.Hour,
		OTPTTL:           10 * time.Minute,
		OTPCooldown:      time.Minute,
	}
}

// recordingMailer captures outgoing mail.
type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last(t *testing.T) Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("Expected an email to be sent")
	}
	return m.sent[len(m.sent)-1]
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	code := codePattern.FindString(m.last(t).Body)
	if code == "" {
		t.Fatalf("No code in email body %q", m.last(t).Body)
	}
	return code
}

type fixture struct {
	db     *gorm.DB
	mailer *recordingMailer
	otp    *OTPService
	auth   *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testConfig()
	mailer := &recordingMailer{}
	otp := NewOTPService(db, mailer, cfg.OTPTTL, cfg.OTPCooldown)
	return &fixture{
		db:     db,
		mailer: mailer,
		otp:    otp,
		auth:   NewAuthService(db, cfg, otp, NewOAuthVerifier()),
	}
}

// registerUser signs up a password user and returns their ID.
func (f *fixture) registerUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), &dto.RegisterRequest{Email: email, Password: "password123"})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return resp.User.ID
}

func (f *fixture) primaryProject(t *testing.T, owner uuid.UUID) models.Project {
	t.Helper()
	var p models.Project
	if err := f.db.Where("owner_id = ? AND project_type = ?", owner, models.ProjectTypePrimary).First(&p).Error; err != nil {
		t.Fatalf("No primary project for %s: %v", owner, err)
	}
	return p
}

func assertCode(t *testing.T, err error, code apperr.Code, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", code)
	}
	e := apperr.From(err)
	if e.Code != code {
		t.Fatalf("Expected code %s, got %s (%v)", code, e.Code, err)
	}
	if status != 0 && e.HTTPStatus() != status {
		t.Fatalf("Expected status %d, got %d", status, e.HTTPStatus())
	}
}

func ptr[T any](v T) *T {
	return &v
}
