package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/models"
	"gorm.io/gorm"
)

const (
	PrimaryProjectName = "Inbox"
	PrimaryProjectIcon = "inbox"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,24}$`)

var usernameStrip = regexp.MustCompile(`[^a-z0-9_]+`)

// normalizeEmail lowercases and validates an address.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperr.Invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Invalid("email is invalid")
	}
	return email, nil
}

// provisionAccount creates the profile and primary project that every user
// owns. It must run in the same transaction that created the user.
func provisionAccount(tx *gorm.DB, user *models.User, displayName string) (*models.Profile, error) {
	username, err := freeUsername(tx, usernameBase(user.Email))
	if err != nil {
		return nil, err
	}

	profile := models.Profile{
		ID:          user.ID,
		Username:    username,
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := tx.Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	project := models.Project{
		OwnerID:         user.ID,
		ProjectType:     models.ProjectTypePrimary,
		Name:            PrimaryProjectName,
		Icon:            PrimaryProjectIcon,
		ProjectPriority: models.PriorityMedium,
		ProjectStatus:   models.StatusPending,
	}
	if err := tx.Omit("Owner").Create(&project).Error; err != nil {
		return nil, fmt.Errorf("failed to create primary project: %w", err)
	}

	return &profile, nil
}

func usernameBase(email string) string {
	local := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	base := usernameStrip.ReplaceAllString(local, "_")
	base = strings.Trim(base, "_")
	if len(base) > 18 {
		base = base[:18]
	}
	if len(base) < 3 {
		base = "user" + base
	}
	return base
}

// freeUsername returns base, or base with a numeric suffix, that no
// profile uses yet.
func freeUsername(tx *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 0; i < 8; i++ {
		taken, err := usernameTaken(tx, candidate, uuid.Nil)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		n, err := rand.Int(rand.Reader, big.NewInt(100000))
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%05d", base, n.Int64())
	}
	return "", errors.New("could not allocate a username")
}

func usernameTaken(tx *gorm.DB, username string, except uuid.UUID) (bool, error) {
	var count int64
	q := tx.Model(&models.Profile{}).Where("username = ?", username)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// deleteAccountData removes everything a user owns, children first.
func deleteAccountData(tx *gorm.DB, userID uuid.UUID) error {
	steps := []struct {
		model interface{}
		where string
	}{
		{&models.Task{}, "owner_id = ?"},
		{&models.Project{}, "owner_id = ?"},
		{&models.RefreshToken{}, "user_id = ?"},
		{&models.Profile{}, "id = ?"},
		{&models.User{}, "id = ?"},
	}
	for _, s := range steps {
		if err := tx.Where(s.where, userID).Delete(s.model).Error; err != nil {
			return err
		}
	}
	return nil
}
