package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	avatarService  *services.AvatarService
}

func NewProfileHandler(profileService *services.ProfileService, avatarService *services.AvatarService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, avatarService: avatarService}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	profile, err := h.profileService.Get(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "profile", profile)
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	profile, err := h.profileService.Update(c.UserContext(), userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "profile updated", profile)
}

func (h *ProfileHandler) CheckUsername(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	result, err := h.profileService.UsernameAvailable(c.UserContext(), userID, c.Query("username"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "username checked", result)
}

// UploadAvatar takes a multipart "file" and ?kind=avatar|cover.
func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	kind := services.ImageKind(c.Query("kind", string(services.ImageAvatar)))
	if !kind.Valid() {
		return fail(c, services.ErrImageKind)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, apperr.Invalid("file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, apperr.Invalid("failed to read upload"))
	}
	defer f.Close()

	profile, err := h.avatarService.Upload(c.UserContext(), userID, kind, fh.Header.Get(fiber.HeaderContentType), f)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "image updated", profile)
}
