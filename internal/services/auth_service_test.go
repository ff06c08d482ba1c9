package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
)

func TestRegisterProvisionsAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "  Ada.Lovelace@Example.com ", Password: "password123"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.User.Email != "ada.lovelace@example.com" {
		t.Errorf("Expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.Username != "ada_lovelace" {
		t.Errorf("Expected username ada_lovelace, got %q", resp.User.Username)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("Expected both tokens")
	}

	var profile models.Profile
	if err := f.db.First(&profile, "id = ?", resp.User.ID).Error; err != nil {
		t.Fatalf("Profile missing: %v", err)
	}

	project := f.primaryProject(t, resp.User.ID)
	if project.Name != PrimaryProjectName {
		t.Errorf("Expected primary project %q, got %q", PrimaryProjectName, project.Name)
	}
}

func TestRegisterAccessTokenClaims(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, err := f.auth.Register(context.Background(), &dto.RegisterRequest{Email: "claims@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("Access token invalid: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != resp.User.ID.String() {
		t.Errorf("Expected sub %s, got %v", resp.User.ID, claims["sub"])
	}
	if claims["email"] != "claims@example.com" {
		t.Errorf("Expected email claim, got %v", claims["email"])
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.registerUser(t, "taken@example.com")

	tests := []struct {
		name   string
		req    dto.RegisterRequest
		code   apperr.Code
		status int
	}{
		{"missing email", dto.RegisterRequest{Password: "password123"}, apperr.BadRequest, http.StatusBadRequest},
		{"invalid email", dto.RegisterRequest{Email: "nope", Password: "password123"}, apperr.BadRequest, http.StatusBadRequest},
		{"short password", dto.RegisterRequest{Email: "new@example.com", Password: "short"}, apperr.BadRequest, http.StatusBadRequest},
		{"duplicate email", dto.RegisterRequest{Email: "TAKEN@example.com", Password: "password123"}, apperr.BadRequest, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, &tt.req)
			assertCode(t, err, tt.code, tt.status)
		})
	}
}

func TestUsernameCollisionGetsSuffix(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "sam@one.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "sam@two.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if a.User.Username == b.User.Username {
		t.Fatalf("Expected distinct usernames, both %q", a.User.Username)
	}
	if !usernamePattern.MatchString(b.User.Username) {
		t.Errorf("Generated username %q is not valid", b.User.Username)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerUser(t, "login@example.com")

	resp, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "Login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.User.ID != id {
		t.Errorf("Expected user %s, got %s", id, resp.User.ID)
	}
	if resp.User.Username == "" {
		t.Error("Expected username to be loaded on login")
	}

	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	assertCode(t, err, apperr.Unauthorized, http.StatusUnauthorized)

	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "ghost@example.com", Password: "password123"})
	assertCode(t, err, apperr.Unauthorized, http.StatusUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "rot@example.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}

	second, err := f.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("Expected a new refresh token")
	}

	_, err = f.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: first.RefreshToken})
	assertCode(t, err, apperr.Unauthorized, 0)

	if _, err := f.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: second.RefreshToken}); err != nil {
		t.Errorf("Rotated token should be usable: %v", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "exp@example.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.db.Model(&models.RefreshToken{}).
		Where("user_id = ?", resp.User.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatal(err)
	}

	_, err = f.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assertCode(t, err, apperr.Unauthorized, 0)
}

func TestLogoutRevokes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "out@example.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.auth.Logout(ctx, &dto.LogoutRequest{RefreshToken: resp.RefreshToken}); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	_, err = f.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assertCode(t, err, apperr.Unauthorized, 0)
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerUser(t, "gone@example.com")
	other := f.registerUser(t, "stays@example.com")

	tasks := NewTaskService(f.db, nil)
	project := f.primaryProject(t, id)
	if _, err := tasks.Create(ctx, id, &dto.CreateTaskRequest{ProjectID: project.ID, Name: "t"}); err != nil {
		t.Fatal(err)
	}

	err := f.auth.DeleteAccount(ctx, id, "wrong-password")
	assertCode(t, err, apperr.Unauthorized, 0)

	if err := f.auth.DeleteAccount(ctx, id, "password123"); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	for _, m := range []interface{}{&models.User{}, &models.Profile{}} {
		var n int64
		f.db.Model(m).Where("id = ?", id).Count(&n)
		if n != 0 {
			t.Errorf("%T rows left: %d", m, n)
		}
	}
	for _, m := range []interface{}{&models.Project{}, &models.Task{}} {
		var n int64
		f.db.Model(m).Where("owner_id = ?", id).Count(&n)
		if n != 0 {
			t.Errorf("%T rows left: %d", m, n)
		}
	}

	var n int64
	f.db.Model(&models.Project{}).Where("owner_id = ?", other).Count(&n)
	if n != 1 {
		t.Errorf("Other user's project should remain, got %d", n)
	}

	f.registerUser(t, "gone@example.com")
}

func TestOTPSignInCreatesAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.otp.Send(ctx, &dto.OTPRequest{Email: "otp@example.com"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	code := f.mailer.lastCode(t)

	resp, err := f.auth.SignInWithOTP(ctx, &dto.OTPVerifyRequest{Email: "otp@example.com", Code: code})
	if err != nil {
		t.Fatalf("SignInWithOTP failed: %v", err)
	}
	if resp.User.AuthProvider != models.AuthProviderOTP {
		t.Errorf("Expected otp provider, got %q", resp.User.AuthProvider)
	}
	f.primaryProject(t, resp.User.ID)

	// Codes are single use.
	_, err = f.auth.SignInWithOTP(ctx, &dto.OTPVerifyRequest{Email: "otp@example.com", Code: code})
	assertCode(t, err, apperr.Unauthorized, 0)
}

func TestOTPCooldown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.otp.Send(ctx, &dto.OTPRequest{Email: "cool@example.com"}); err != nil {
		t.Fatal(err)
	}
	err := f.otp.Send(ctx, &dto.OTPRequest{Email: "cool@example.com"})
	assertCode(t, err, apperr.TooManyRequests, http.StatusTooManyRequests)

	// A different purpose has its own cooldown.
	f.registerUser(t, "cool@example.com")
	if err := f.otp.Send(ctx, &dto.OTPRequest{Email: "cool@example.com", Purpose: models.OTPPurposeReset}); err != nil {
		t.Errorf("Reset code should not be blocked by sign-in cooldown: %v", err)
	}
}

func TestOTPAttemptsLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.otp.Send(ctx, &dto.OTPRequest{Email: "brute@example.com"}); err != nil {
		t.Fatal(err)
	}
	code := f.mailer.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < otpMaxAttempts; i++ {
		err := f.otp.Consume(ctx, "brute@example.com", models.OTPPurposeSignIn, wrong)
		assertCode(t, err, apperr.Unauthorized, 0)
	}

	var record models.OTPCode
	f.db.Where("email = ?", "brute@example.com").First(&record)
	if record.Attempts != otpMaxAttempts {
		t.Errorf("Expected %d attempts recorded, got %d", otpMaxAttempts, record.Attempts)
	}

	err := f.otp.Consume(ctx, "brute@example.com", models.OTPPurposeSignIn, code)
	assertCode(t, err, apperr.Unauthorized, 0)
}

func TestOTPExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f.otp.now = func() time.Time { return base }
	if err := f.otp.Send(ctx, &dto.OTPRequest{Email: "late@example.com"}); err != nil {
		t.Fatal(err)
	}
	code := f.mailer.lastCode(t)

	f.otp.now = func() time.Time { return base.Add(11 * time.Minute) }
	err := f.otp.Consume(ctx, "late@example.com", models.OTPPurposeSignIn, code)
	assertCode(t, err, apperr.Unauthorized, 0)
}

func TestOTPSendMailFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.mailer.err = context.DeadlineExceeded

	err := f.otp.Send(context.Background(), &dto.OTPRequest{Email: "fail@example.com"})
	assertCode(t, err, apperr.UnknownError, http.StatusInternalServerError)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "reset@example.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.otp.Send(ctx, &dto.OTPRequest{Email: "reset@example.com", Purpose: models.OTPPurposeReset}); err != nil {
		t.Fatal(err)
	}
	code := f.mailer.lastCode(t)

	// A reset code cannot be used to sign in.
	_, err = f.auth.SignInWithOTP(ctx, &dto.OTPVerifyRequest{Email: "reset@example.com", Code: code})
	assertCode(t, err, apperr.Unauthorized, 0)

	if err := f.auth.ResetPassword(ctx, &dto.PasswordResetRequest{
		Email: "reset@example.com", Code: code, NewPassword: "new-password-1",
	}); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "reset@example.com", Password: "new-password-1"}); err != nil {
		t.Errorf("Login with new password failed: %v", err)
	}
	_, err = f.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: reg.RefreshToken})
	assertCode(t, err, apperr.Unauthorized, 0)
}

func TestResetForUnknownEmailSendsNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.otp.Send(context.Background(), &dto.OTPRequest{Email: "nobody@example.com", Purpose: models.OTPPurposeReset}); err != nil {
		t.Fatalf("Expected silent success, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Errorf("Expected no email, got %d", len(f.mailer.sent))
	}
}

func TestOAuthSignIn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	key := []byte("provider-key")

	f.auth.verifier.Register("google", &OAuthProvider{
		Issuers:   []string{"https://accounts.google.com"},
		Audiences: []string{"client-1"},
		Methods:   []string{"HS256"},
		Keyfunc:   func(*jwt.Token) (interface{}, error) { return key, nil },
	})

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	valid := jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            "client-1",
		"sub":            "google-123",
		"email":          "Linked@Example.com",
		"email_verified": true,
		"exp":            time.Now().Add(time.Hour).Unix(),
	}

	existing := f.registerUser(t, "linked@example.com")

	resp, err := f.auth.OAuthSignIn(ctx, "google", &dto.OAuthRequest{IDToken: sign(valid)})
	if err != nil {
		t.Fatalf("OAuthSignIn failed: %v", err)
	}
	if resp.User.ID != existing {
		t.Errorf("Expected account to be linked to %s, got %s", existing, resp.User.ID)
	}

	var user models.User
	f.db.First(&user, "id = ?", existing)
	if user.ProviderSubject == nil || *user.ProviderSubject != "google-123" {
		t.Errorf("Expected provider subject to be stored, got %v", user.ProviderSubject)
	}

	again, err := f.auth.OAuthSignIn(ctx, "google", &dto.OAuthRequest{IDToken: sign(valid)})
	if err != nil || again.User.ID != existing {
		t.Errorf("Second sign-in should find linked account: %v", err)
	}

	badAud := jwt.MapClaims{}
	for k, v := range valid {
		badAud[k] = v
	}
	badAud["aud"] = "someone-else"
	_, err = f.auth.OAuthSignIn(ctx, "google", &dto.OAuthRequest{IDToken: sign(badAud)})
	assertCode(t, err, apperr.Unauthorized, 0)

	_, err = f.auth.OAuthSignIn(ctx, "apple", &dto.OAuthRequest{IDToken: sign(valid)})
	assertCode(t, err, apperr.BadRequest, 0)
}
