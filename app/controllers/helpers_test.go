package controllers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/internal/pkg/jobqueue"
	"github.com/atelier-logos/nabla/internal/pkg/usercontext"
)

// newTestApp returns a fiber app that runs every request as the given user.
func newTestApp(uctx usercontext.UserContext) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", uctx)
		return c.Next()
	})
	return app
}

func customerContext(subscriberID uint) usercontext.UserContext {
	return usercontext.UserContext{
		SubscriberID: subscriberID,
		Email:        "jane@example.com",
		Name:         "Jane Doe",
		IsLoggedIn:   true,
		Customer:     true,
	}
}

type fakeChatRepository struct {
	rooms     map[string]*models.ChatRoom
	messages  []*models.ChatMessage
	nextMsgID uint
}

func newFakeChatRepository() *fakeChatRepository {
	return &fakeChatRepository{rooms: map[string]*models.ChatRoom{}, nextMsgID: 1}
}

func (r *fakeChatRepository) CreateRoom(room *models.ChatRoom) error {
	room.CreatedAt = time.Now()
	r.rooms[room.ID] = room
	return nil
}

func (r *fakeChatRepository) GetRoomByID(id string) (*models.ChatRoom, error) {
	if room, ok := r.rooms[id]; ok {
		return room, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChatRepository) GetRoomBySubscriberID(subscriberID uint) (*models.ChatRoom, error) {
	for _, room := range r.rooms {
		if room.SubscriberID == subscriberID {
			return room, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChatRepository) TouchRoomLastMessage(roomID string, at time.Time) error {
	if room, ok := r.rooms[roomID]; ok {
		room.LastMessageAt = &at
	}
	return nil
}

func (r *fakeChatRepository) CreateMessage(message *models.ChatMessage) error {
	message.ID = r.nextMsgID
	r.nextMsgID++
	message.CreatedAt = time.Now()
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeChatRepository) ListMessages(roomID string, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, m := range r.messages {
		if m.ChatRoomID == roomID {
			out = append(out, *m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type capturedTrigger struct {
	Channel string
	Event   string
	Data    interface{}
}

type fakePublisher struct {
	triggers []capturedTrigger
	err      error
}

func (p *fakePublisher) Trigger(_ context.Context, channel, eventName string, data interface{}) error {
	p.triggers = append(p.triggers, capturedTrigger{Channel: channel, Event: eventName, Data: data})
	return p.err
}

type capturedUpload struct {
	ObjectKey   string
	ContentType string
	Size        int64
}

type fakeUploader struct {
	uploads []capturedUpload
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, objectKey, contentType string, body io.Reader, size int64) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.Copy(io.Discard, body)
	u.uploads = append(u.uploads, capturedUpload{ObjectKey: objectKey, ContentType: contentType, Size: size})
	return "https://cdn.example.com/" + objectKey, nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type scheduledJob struct {
	Type    jobqueue.JobType
	Payload map[string]interface{}
	RunAt   time.Time
}

type fakeScheduler struct {
	jobs []scheduledJob
	err  error
}

func (s *fakeScheduler) EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.jobs = append(s.jobs, scheduledJob{Type: jobType, Payload: payload})
	return &jobqueue.Job{ID: "job-1", Type: jobType, Payload: payload}, nil
}

func (s *fakeScheduler) EnqueueJobAt(jobType jobqueue.JobType, payload map[string]interface{}, runAt time.Time) (*jobqueue.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.jobs = append(s.jobs, scheduledJob{Type: jobType, Payload: payload, RunAt: runAt})
	return &jobqueue.Job{ID: "job-1", Type: jobType, Payload: payload}, nil
}

type fakePurchaseRepository struct {
	purchases []models.Purchase
	err       error
}

func (r *fakePurchaseRepository) GetBySubscriberID(subscriberID uint) ([]models.Purchase, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Purchase
	for _, p := range r.purchases {
		if p.SubscriberID == subscriberID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePurchaseRepository) GetByStripeSessionID(sessionID string) (*models.Purchase, error) {
	for i := range r.purchases {
		if r.purchases[i].StripeSessionID == sessionID {
			return &r.purchases[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeCustomerRepository struct {
	customers map[string]*models.Customer
	updates   int
}

func newFakeCustomerRepository() *fakeCustomerRepository {
	return &fakeCustomerRepository{customers: map[string]*models.Customer{}}
}

func (r *fakeCustomerRepository) Create(customer *models.Customer) error {
	r.customers[customer.ID] = customer
	return nil
}

func (r *fakeCustomerRepository) GetByID(id string) (*models.Customer, error) {
	if c, ok := r.customers[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepository) GetByAPIKeyHash(hash string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.APIKeyHash == hash && c.APIKeyRevokedAt == nil {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepository) Update(customer *models.Customer) error {
	if _, ok := r.customers[customer.ID]; !ok {
		return errors.New("customer not found")
	}
	r.customers[customer.ID] = customer
	r.updates++
	return nil
}

func (r *fakeCustomerRepository) TouchAPIKeyUsage(id string, usedAt time.Time) error {
	if c, ok := r.customers[id]; ok {
		c.APIKeyLastUsedAt = &usedAt
	}
	return nil
}
