package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"gorm.io/gorm"
)

const maxDisplayNameLength = 80

var (
	ErrProfileNotFound = apperr.Missing("profile not found")
	ErrUsernameInvalid = apperr.Invalid("username must be 3-24 characters of a-z, 0-9 or _")
	ErrUsernameTaken   = &apperr.Error{Code: apperr.BadRequest, Message: "username already taken", Status: http.StatusConflict}
)

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, apperr.Database(err)
	}
	return &profile, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.Profile, error) {
	var profile models.Profile

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return apperr.Database(err)
		}

		updates := map[string]interface{}{}

		if req.Username != nil {
			username := strings.ToLower(strings.TrimSpace(*req.Username))
			if !usernamePattern.MatchString(username) {
				return ErrUsernameInvalid
			}
			if username != profile.Username {
				taken, err := usernameTaken(tx, username, userID)
				if err != nil {
					return apperr.Database(err)
				}
				if taken {
					return ErrUsernameTaken
				}
				updates["username"] = username
			}
		}

		if req.DisplayName != nil {
			name := strings.TrimSpace(*req.DisplayName)
			if utf8.RuneCountInString(name) > maxDisplayNameLength {
				return apperr.Invalid("display_name must be at most 80 characters")
			}
			updates["display_name"] = name
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&profile).Updates(updates).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UsernameAvailable reports whether username is free for userID to take.
// The caller's own username counts as available.
func (s *ProfileService) UsernameAvailable(ctx context.Context, userID uuid.UUID, username string) (*dto.UsernameAvailability, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	taken, err := usernameTaken(s.db.WithContext(ctx), username, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return &dto.UsernameAvailability{Username: username, Available: !taken}, nil
}
