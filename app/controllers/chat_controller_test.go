package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-logos/nabla/internal/pkg/jobqueue"
	"github.com/atelier-logos/nabla/internal/pkg/storage"
	"github.com/atelier-logos/nabla/internal/pkg/usercontext"
)

func postJSON(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// multipartSend builds a chat send request with an inline file part and an
// optional message field.
func multipartSend(t *testing.T, message, filename, mimeType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if message != "" {
		require.NoError(t, w.WriteField("message", message))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newChatTestController(chats *fakeChatRepository, publisher *fakePublisher, jobs *fakeScheduler, uploader *fakeUploader) *ChatController {
	cfg := &storage.Config{BucketName: "nabla-test", Region: "us-east-1", Enabled: true}
	return NewChatController(chats, publisher, jobs, uploader, cfg)
}

func TestHandleSendMessageStoresAndFansOut(t *testing.T) {
	chats := newFakeChatRepository()
	publisher := &fakePublisher{}
	jobs := &fakeScheduler{}
	cc := newChatTestController(chats, publisher, jobs, &fakeUploader{})

	app := newTestApp(customerContext(7))
	app.Post("/api/chat/send", cc.HandleSendMessage)

	resp, err := app.Test(postJSON(t, "/api/chat/send", `{"message":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "user", body["sender_type"])
	assert.Equal(t, "hello", body["message"])
	assert.NotEmpty(t, body["created_at"])
	assert.NotEmpty(t, body["room_id"])

	// One durable row, two realtime events, one queued support push.
	require.Len(t, chats.messages, 1)
	require.Len(t, publisher.triggers, 2)
	assert.Equal(t, "chat-"+chats.messages[0].ChatRoomID, publisher.triggers[0].Channel)
	assert.Equal(t, "new-message", publisher.triggers[0].Event)
	assert.Equal(t, SupportChannel, publisher.triggers[1].Channel)
	assert.Equal(t, "room-activity", publisher.triggers[1].Event)

	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, jobqueue.JobTypePushNotification, jobs.jobs[0].Type)
	payload, perr := jobqueue.PushNotificationJobPayloadFromMap(jobs.jobs[0].Payload)
	require.NoError(t, perr)
	assert.Equal(t, []string{SupportInterest}, payload.Interests)
	assert.Equal(t, "hello", payload.Body)
	assert.Equal(t, "/support/rooms/"+chats.messages[0].ChatRoomID, payload.DeepLink)
}

func TestHandleSendMessageFanOutFailureStillSucceeds(t *testing.T) {
	chats := newFakeChatRepository()
	publisher := &fakePublisher{err: assert.AnError}
	jobs := &fakeScheduler{err: assert.AnError}
	cc := newChatTestController(chats, publisher, jobs, &fakeUploader{})

	app := newTestApp(customerContext(7))
	app.Post("/api/chat/send", cc.HandleSendMessage)

	resp, err := app.Test(postJSON(t, "/api/chat/send", `{"message":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, chats.messages, 1)
}

func TestHandleSendMessageRejectsEmptyMessage(t *testing.T) {
	chats := newFakeChatRepository()
	cc := newChatTestController(chats, &fakePublisher{}, &fakeScheduler{}, &fakeUploader{})

	app := newTestApp(customerContext(7))
	app.Post("/api/chat/send", cc.HandleSendMessage)

	resp, err := app.Test(postJSON(t, "/api/chat/send", `{"message":""}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, chats.messages)
}

func TestHandleSendMessageRequiresSubscription(t *testing.T) {
	chats := newFakeChatRepository()
	publisher := &fakePublisher{}
	cc := newChatTestController(chats, publisher, &fakeScheduler{}, &fakeUploader{})

	app := newTestApp(usercontext.UserContext{SubscriberID: 7, IsLoggedIn: true, Customer: false})
	app.Post("/api/chat/send", cc.HandleSendMessage)

	resp, err := app.Test(postJSON(t, "/api/chat/send", `{"message":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, chats.messages)
	assert.Empty(t, publisher.triggers)
}

func TestHandleSendMessageAttachmentOnly(t *testing.T) {
	chats := newFakeChatRepository()
	jobs := &fakeScheduler{}
	cc := newChatTestController(chats, &fakePublisher{}, jobs, &fakeUploader{})

	app := newTestApp(customerContext(7))
	app.Post("/api/chat/send", cc.HandleSendMessage)

	payload := `{"attachment_url":"https://cdn.example.com/chat/r/a.png","attachment_type":"image","attachment_filename":"a.png"}`
	resp, err := app.Test(postJSON(t, "/api/chat/send", payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, jobs.jobs, 1)
	push, perr := jobqueue.PushNotificationJobPayloadFromMap(jobs.jobs[0].Payload)
	require.NoError(t, perr)
	assert.Equal(t, "Sent an attachment", push.Body)
}

func TestHandleSendMessageInlineFile(t *testing.T) {
	chats := newFakeChatRepository()
	uploader := &fakeUploader{}
	cc := newChatTestController(chats, &fakePublisher{}, &fakeScheduler{}, uploader)

	app := newTestApp(customerContext(7))
	app.Post("/api/chat/send", cc.HandleSendMessage)

	resp, err := app.Test(multipartSend(t, "see attached", "photo.png", "image/png", []byte("png-bytes")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "see attached", body["message"])
	assert.Equal(t, "image", body["attachment_type"])
	assert.Equal(t, "photo.png", body["attachment_filename"])
	assert.Contains(t, body["attachment_url"], "https://cdn.example.com/chat/")

	require.Len(t, uploader.uploads, 1)
	assert.Equal(t, "image/png", uploader.uploads[0].ContentType)

	require.Len(t, chats.messages, 1)
	msg := chats.messages[0]
	assert.Equal(t, "see attached", msg.Message)
	assert.Equal(t, "image", msg.AttachmentType)
	assert.Equal(t, "image/png", msg.AttachmentMimeType)
	assert.Equal(t, int64(len("png-bytes")), msg.AttachmentSize)
}

func TestHandleSendMessageInlineFileRejectsUnsupportedType(t *testing.T) {
	chats := newFakeChatRepository()
	uploader := &fakeUploader{}
	cc := newChatTestController(chats, &fakePublisher{}, &fakeScheduler{}, uploader)

	app := newTestApp(customerContext(7))
	app.Post("/api/chat/send", cc.HandleSendMessage)

	resp, err := app.Test(multipartSend(t, "", "archive.zip", "application/zip", []byte("PK")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "unsupported_type", body["error"])
	assert.Contains(t, body["message"], "application/zip")

	// Rejected before any storage call, and nothing was persisted.
	assert.Empty(t, uploader.uploads)
	assert.Empty(t, chats.messages)
}

func TestHandleGetRoomCreatesRoomOnFirstUse(t *testing.T) {
	chats := newFakeChatRepository()
	cc := newChatTestController(chats, &fakePublisher{}, &fakeScheduler{}, &fakeUploader{})

	app := newTestApp(customerContext(9))
	app.Get("/api/chat/room", cc.HandleGetRoom)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/room", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	roomID, _ := body["room_id"].(string)
	require.NotEmpty(t, roomID)
	assert.Equal(t, "chat-"+roomID, body["channel"])

	// Second call reuses the room instead of creating another one.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/room", nil))
	require.NoError(t, err)
	again := decodeBody(t, resp)
	assert.Equal(t, roomID, again["room_id"])
	assert.Len(t, chats.rooms, 1)
}
