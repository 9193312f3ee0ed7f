package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/julianstephens/dayplan/internal/models"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	answered []string
}

func (f *fakeTelegram) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"dayplan","username":"dayplan_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.sent = append(f.sent, map[string]string{
			"chat_id":      r.FormValue("chat_id"),
			"text":         r.FormValue("text"),
			"reply_markup": r.FormValue("reply_markup"),
		})
		w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	case strings.HasSuffix(r.URL.Path, "/answerCallbackQuery"):
		f.answered = append(f.answered, r.FormValue("text"))
		w.Write([]byte(`{"ok":true,"result":true}`))
	default:
		w.Write([]byte(`{"ok":false,"description":"unknown method"}`))
	}
}

func newTestTelegram(t *testing.T) (*TelegramSink, *fakeTelegram) {
	t.Helper()
	fake := &fakeTelegram{}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	sink, err := newTelegramSink("test-token", 42, server.URL+"/bot%s/%s", server.Client())
	if err != nil {
		t.Fatalf("newTelegramSink failed: %v", err)
	}
	return sink, fake
}

func TestNewTelegramSinkRequiresCredentials(t *testing.T) {
	if _, err := NewTelegramSink("", 42); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewTelegramSink("token", 0); err == nil {
		t.Error("expected error without chat id")
	}
}

func TestTelegramSendWithActions(t *testing.T) {
	sink, fake := newTestTelegram(t)

	cfg := models.NotificationConfig{
		ID:      "task-1:end",
		Title:   "Time's up",
		Message: "How did Essay go?",
		Actions: []models.NotificationAction{
			{ID: "completed", Label: "Done"},
			{ID: "not_completed", Label: "Not done"},
		},
	}
	if err := sink.Send(context.Background(), cfg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(fake.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.sent))
	}
	msg := fake.sent[0]
	if msg["chat_id"] != "42" {
		t.Errorf("chat_id = %s", msg["chat_id"])
	}
	if !strings.Contains(msg["text"], "How did Essay go?") {
		t.Errorf("text = %q", msg["text"])
	}
	if !strings.Contains(msg["reply_markup"], "task-1:end|completed") {
		t.Errorf("reply_markup missing callback data: %s", msg["reply_markup"])
	}
}

func TestTelegramHandleUpdate(t *testing.T) {
	sink, fake := newTestTelegram(t)

	var gotID, gotAction string
	handle := func(id, action string) error {
		gotID, gotAction = id, action
		if action == "boom" {
			return errors.New("no such action")
		}
		return nil
	}
	update := func(chatID int64, data string) tgbotapi.Update {
		return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    data,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		}}
	}

	sink.handleUpdate(update(42, "task-1:start|snooze"), handle)
	if gotID != "task-1:start" || gotAction != "snooze" {
		t.Errorf("handler got %q %q", gotID, gotAction)
	}

	gotID = ""
	sink.handleUpdate(update(99, "task-1:start|snooze"), handle)
	if gotID != "" {
		t.Error("updates from other chats must be ignored")
	}

	sink.handleUpdate(update(42, "task-1:start|boom"), handle)
	if len(fake.answered) != 2 || !strings.HasPrefix(fake.answered[1], "Failed") {
		t.Errorf("unexpected callback answers: %v", fake.answered)
	}
}

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		data, id, action string
		ok               bool
	}{
		{"abc:start|snooze", "abc:start", "snooze", true},
		{"abc|x|completed", "abc|x", "completed", true},
		{"|completed", "", "", false},
		{"abc|", "", "", false},
		{"abc", "", "", false},
	}
	for _, tt := range tests {
		id, action, ok := parseCallbackData(tt.data)
		if ok != tt.ok || id != tt.id || action != tt.action {
			t.Errorf("parseCallbackData(%q) = %q %q %v", tt.data, id, action, ok)
		}
	}
}
