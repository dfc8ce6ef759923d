package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/app/repository"
	"github.com/atelier-logos/nabla/internal/pkg/jobqueue"
	"github.com/atelier-logos/nabla/internal/pkg/realtime"
	"github.com/atelier-logos/nabla/internal/pkg/storage"
	"github.com/atelier-logos/nabla/internal/pkg/usercontext"
)

// SupportChannel receives room-activity events for the support dashboard.
const SupportChannel = "support-channel"

// SupportInterest is the push interest the support team subscribes to.
const SupportInterest = "support"

// ChatController handles support chat rooms and messages. Realtime delivery
// and the queued support push are best effort after the message is stored.
type ChatController struct {
	chats     repository.ChatRepository
	publisher realtime.Publisher
	jobs      Scheduler
	uploader  storage.Uploader
	config    *storage.Config
}

func NewChatController(chats repository.ChatRepository, publisher realtime.Publisher, jobs Scheduler, uploader storage.Uploader, config *storage.Config) *ChatController {
	return &ChatController{chats: chats, publisher: publisher, jobs: jobs, uploader: uploader, config: config}
}

type sendMessageRequest struct {
	Message            string `json:"message"`
	AttachmentURL      string `json:"attachment_url"`
	AttachmentType     string `json:"attachment_type"`
	AttachmentFilename string `json:"attachment_filename"`
}

// HandleGetRoom returns the subscriber's chat room, creating it on first use,
// along with the most recent messages.
func (cc *ChatController) HandleGetRoom(c *fiber.Ctx) error {
	if !usercontext.GetUserContext(c).Customer {
		return errorJSON(c, fiber.StatusForbidden, "forbidden", "support chat requires an active subscription")
	}
	subscriberID := currentSubscriberID(c)

	room, err := cc.getOrCreateRoom(subscriberID)
	if err != nil {
		fiberlog.Errorf("[Chat] room lookup failed for subscriber %d: %v", subscriberID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to open chat room")
	}

	messages, err := cc.chats.ListMessages(room.ID, 50)
	if err != nil {
		fiberlog.Errorf("[Chat] message listing failed for room %s: %v", room.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load messages")
	}

	return c.JSON(fiber.Map{
		"room_id":  room.ID,
		"channel":  room.ChannelName(),
		"messages": messages,
	})
}

// HandleSendMessage stores a message in the subscriber's room and fans it out:
// one event on the room channel, one on the support channel, and a queued
// push to the support interest. JSON bodies carry text or a pre-uploaded
// attachment reference; multipart bodies may carry the file itself, which is
// validated and stored inline. The message is durable once stored; fan-out
// failures only get logged.
func (cc *ChatController) HandleSendMessage(c *fiber.Ctx) error {
	if !usercontext.GetUserContext(c).Customer {
		return errorJSON(c, fiber.StatusForbidden, "forbidden", "support chat requires an active subscription")
	}
	subscriberID := currentSubscriberID(c)

	req, fileHeader, err := cc.parseSendRequest(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	if fileHeader != nil {
		// Same rules as the standalone upload endpoint, enforced before
		// any storage call.
		if fileHeader.Size > MaxAttachmentSize {
			return errorJSON(c, fiber.StatusBadRequest, "file_too_large", "file size must be less than 10MB")
		}
		mimeType := fileHeader.Header.Get("Content-Type")
		if !allowedAttachmentTypes[mimeType] {
			return errorJSON(c, fiber.StatusBadRequest, "unsupported_type",
				fmt.Sprintf("file type not supported: %s", mimeType))
		}
		if cc.uploader == nil {
			return errorJSON(c, fiber.StatusServiceUnavailable, "storage_unavailable", "attachment storage is not configured")
		}
	}

	msg := &models.ChatMessage{
		SenderID:           subscriberID,
		SenderType:         models.SenderTypeUser,
		Message:            req.Message,
		AttachmentURL:      req.AttachmentURL,
		AttachmentType:     req.AttachmentType,
		AttachmentFilename: req.AttachmentFilename,
	}
	if !msg.HasContent() && fileHeader == nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "message or attachment is required")
	}

	room, err := cc.getOrCreateRoom(subscriberID)
	if err != nil {
		fiberlog.Errorf("[Chat] room lookup failed for subscriber %d: %v", subscriberID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to open chat room")
	}
	msg.ChatRoomID = room.ID

	if fileHeader != nil {
		if err := cc.storeAttachment(c, room, fileHeader, msg); err != nil {
			fiberlog.Errorf("[Chat] attachment upload failed for room %s: %v", room.ID, err)
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to upload attachment")
		}
	}

	if err := cc.chats.CreateMessage(msg); err != nil {
		fiberlog.Errorf("[Chat] message store failed for room %s: %v", room.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to send message")
	}
	if err := cc.chats.TouchRoomLastMessage(room.ID, time.Now()); err != nil {
		fiberlog.Warnf("[Chat] failed to touch room %s: %v", room.ID, err)
	}

	event := fiber.Map{
		"id":                  msg.ID,
		"room_id":             room.ID,
		"sender_type":         msg.SenderType,
		"message":             msg.Message,
		"attachment_url":      msg.AttachmentURL,
		"attachment_type":     msg.AttachmentType,
		"attachment_filename": msg.AttachmentFilename,
		"created_at":          msg.CreatedAt,
	}

	if err := cc.publisher.Trigger(c.Context(), room.ChannelName(), "new-message", event); err != nil {
		fiberlog.Warnf("[Chat] room trigger failed for %s: %v", room.ChannelName(), err)
	}
	if err := cc.publisher.Trigger(c.Context(), SupportChannel, "room-activity", fiber.Map{
		"room_id":       room.ID,
		"subscriber_id": subscriberID,
	}); err != nil {
		fiberlog.Warnf("[Chat] support trigger failed: %v", err)
	}

	if cc.jobs != nil {
		payload := jobqueue.PushNotificationJobPayload{
			Interests: []string{SupportInterest},
			Title:     "New support message",
			Body:      previewText(msg),
			DeepLink:  "/support/rooms/" + room.ID,
		}
		if _, err := cc.jobs.EnqueueJob(jobqueue.JobTypePushNotification, payload.ToMap()); err != nil {
			fiberlog.Warnf("[Chat] support push enqueue failed: %v", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(event)
}

// parseSendRequest accepts a JSON body or a multipart form whose "file" part
// carries an inline attachment.
func (cc *ChatController) parseSendRequest(c *fiber.Ctx) (sendMessageRequest, *multipart.FileHeader, error) {
	var req sendMessageRequest

	if form, err := c.MultipartForm(); err == nil && form != nil {
		req.Message = c.FormValue("message")
		if files := form.File["file"]; len(files) > 0 {
			return req, files[0], nil
		}
		return req, nil, nil
	}

	if err := c.BodyParser(&req); err != nil {
		return req, nil, err
	}
	return req, nil, nil
}

// storeAttachment uploads the file part and fills the attachment columns.
func (cc *ChatController) storeAttachment(c *fiber.Ctx, room *models.ChatRoom, fileHeader *multipart.FileHeader, msg *models.ChatMessage) error {
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	objectKey := cc.config.AttachmentKey(room.ID, uuid.New().String(), filepath.Ext(fileHeader.Filename))
	publicURL, err := cc.uploader.Upload(c.Context(), objectKey, mimeType, file, fileHeader.Size)
	if err != nil {
		return err
	}

	msg.AttachmentURL = publicURL
	msg.AttachmentType = AttachmentTypeFor(mimeType)
	msg.AttachmentFilename = fileHeader.Filename
	msg.AttachmentSize = fileHeader.Size
	msg.AttachmentMimeType = mimeType
	return nil
}

func (cc *ChatController) getOrCreateRoom(subscriberID uint) (*models.ChatRoom, error) {
	room, err := cc.chats.GetRoomBySubscriberID(subscriberID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room = &models.ChatRoom{
		ID:           uuid.New().String(),
		SubscriberID: subscriberID,
	}
	if err := cc.chats.CreateRoom(room); err != nil {
		// A concurrent first message may have won the race.
		if existing, gerr := cc.chats.GetRoomBySubscriberID(subscriberID); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	return room, nil
}

func previewText(msg *models.ChatMessage) string {
	if msg.Message != "" {
		if len(msg.Message) > 120 {
			return msg.Message[:120] + "..."
		}
		return msg.Message
	}
	return "Sent an attachment"
}
