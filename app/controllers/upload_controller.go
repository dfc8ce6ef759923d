package controllers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/app/repository"
	"github.com/atelier-logos/nabla/internal/pkg/storage"
)

// MaxAttachmentSize is the upload cap for chat attachments.
const MaxAttachmentSize = 10 * 1024 * 1024 // 10MB

// allowedAttachmentTypes is the MIME allow-list for chat uploads.
var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"audio/mp3":       true,
	"audio/mpeg":      true,
	"audio/wav":       true,
	"audio/webm":      true,
	"audio/ogg":       true,
	"application/pdf": true,
	"text/plain":      true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// UploadController stores chat attachments in object storage.
type UploadController struct {
	chats    repository.ChatRepository
	uploader storage.Uploader
	config   *storage.Config
}

func NewUploadController(chats repository.ChatRepository, uploader storage.Uploader, config *storage.Config) *UploadController {
	return &UploadController{chats: chats, uploader: uploader, config: config}
}

// HandleUploadAttachment validates and stores one attachment. Validation and
// the room ACL run before any storage call.
func (uc *UploadController) HandleUploadAttachment(c *fiber.Ctx) error {
	subscriberID := currentSubscriberID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "file is required")
	}
	roomID := strings.TrimSpace(c.FormValue("chat_room_id"))
	if roomID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "chat_room_id is required")
	}

	if fileHeader.Size > MaxAttachmentSize {
		return errorJSON(c, fiber.StatusBadRequest, "file_too_large", "file size must be less than 10MB")
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !allowedAttachmentTypes[mimeType] {
		return errorJSON(c, fiber.StatusBadRequest, "unsupported_type",
			fmt.Sprintf("file type not supported: %s", mimeType))
	}

	room, err := uc.chats.GetRoomByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "chat room not found")
		}
		fiberlog.Errorf("[Upload] room lookup failed for %s: %v", roomID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to verify chat room")
	}
	if room.SubscriberID != subscriberID {
		return errorJSON(c, fiber.StatusForbidden, "forbidden", "no access to this chat room")
	}

	file, err := fileHeader.Open()
	if err != nil {
		fiberlog.Errorf("[Upload] failed to open uploaded file: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to read file")
	}
	defer file.Close()

	objectKey := uc.config.AttachmentKey(room.ID, uuid.New().String(), filepath.Ext(fileHeader.Filename))
	publicURL, err := uc.uploader.Upload(c.Context(), objectKey, mimeType, file, fileHeader.Size)
	if err != nil {
		fiberlog.Errorf("[Upload] storage upload failed for %s: %v", objectKey, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to upload file")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"attachment": fiber.Map{
			"type":      AttachmentTypeFor(mimeType),
			"url":       publicURL,
			"filename":  fileHeader.Filename,
			"size":      fileHeader.Size,
			"mime_type": mimeType,
		},
	})
}

// AttachmentTypeFor classifies a MIME type into the stored attachment tag.
func AttachmentTypeFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.AttachmentTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return models.AttachmentTypeAudio
	default:
		return models.AttachmentTypeFile
	}
}
