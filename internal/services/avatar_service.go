package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/models"
	"github.com/tusktask/tusktask/internal/storage"
	"gorm.io/gorm"

	_ "golang.org/x/image/webp"
)

// ImageKind selects which profile image an upload replaces.
type ImageKind string

const (
	ImageAvatar ImageKind = "avatar"
	ImageCover  ImageKind = "cover"
)

func (k ImageKind) Valid() bool {
	return k == ImageAvatar || k == ImageCover
}

func (k ImageKind) size() (int, int) {
	if k == ImageCover {
		return 1500, 500
	}
	return 512, 512
}

func (k ImageKind) column() string {
	if k == ImageCover {
		return "cover_url"
	}
	return "avatar_url"
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var (
	ErrImageTooLarge    = apperr.Invalid("image is too large")
	ErrImageUnsupported = apperr.Invalid("image must be jpeg, png, gif or webp")
	ErrImageKind        = apperr.Invalid("kind must be avatar or cover")
)

// AvatarService resizes uploaded profile images, stores them in the bucket
// and points the profile at the new object.
type AvatarService struct {
	db       *gorm.DB
	bucket   storage.Bucket
	maxBytes int64
}

func NewAvatarService(db *gorm.DB, bucket storage.Bucket, maxBytes int64) *AvatarService {
	return &AvatarService{db: db, bucket: bucket, maxBytes: maxBytes}
}

func (s *AvatarService) Upload(ctx context.Context, userID uuid.UUID, kind ImageKind, contentType string, r io.Reader) (*models.Profile, error) {
	if !kind.Valid() {
		return nil, ErrImageKind
	}
	if ct := mediaType(contentType); ct != "" && ct != "application/octet-stream" && !allowedImageTypes[ct] {
		return nil, ErrImageUnsupported
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Invalid("failed to read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 || !allowedImageTypes[http.DetectContentType(data)] {
		return nil, ErrImageUnsupported
	}

	encoded, err := s.render(kind, data)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%ss/%s/%s.jpg", kind, userID, ksuid.New().String())
	var profile models.Profile
	var previous string
	uploaded := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return apperr.Database(err)
		}

		url, err := s.bucket.Put(ctx, key, bytes.NewReader(encoded))
		if err != nil {
			return apperr.Bucket(err)
		}
		uploaded = true

		if kind == ImageCover {
			previous, profile.CoverURL = profile.CoverURL, url
		} else {
			previous, profile.AvatarURL = profile.AvatarURL, url
		}
		if err := tx.Model(&profile).Update(kind.column(), url).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
	if err != nil {
		if uploaded {
			if delErr := s.bucket.Delete(context.Background(), key); delErr != nil {
				slog.Warn("failed to remove orphaned upload", "key", key, "error", delErr.Error())
			}
		}
		return nil, err
	}

	if oldKey, ok := s.bucket.KeyFromURL(previous); ok && previous != "" {
		if err := s.bucket.Delete(ctx, oldKey); err != nil {
			slog.Warn("failed to remove previous image", "key", oldKey, "error", err.Error())
		}
	}

	return &profile, nil
}

// render decodes, crops to the kind's aspect and re-encodes as JPEG.
func (s *AvatarService) render(kind ImageKind, data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrImageUnsupported
	}

	w, h := kind.size()
	out := imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func mediaType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
