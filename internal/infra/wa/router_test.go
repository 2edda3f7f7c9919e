package wa_test

import (
	"context"
	"errors"
	"testing"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/infra/wa"
)

var group = types.NewJID("120363000000000000", types.GroupServer)

type mockChat struct {
	mockSender
	typing []bool
}

func (m *mockChat) SetTyping(ctx context.Context, chat types.JID, typing bool) {
	m.typing = append(m.typing, typing)
}

type mockHandler struct {
	userID, name, msg string
	reply             string
	err               error
}

func (m *mockHandler) Execute(ctx context.Context, userID, name, msg string) (string, error) {
	m.userID, m.name, m.msg = userID, name, msg
	return m.reply, m.err
}

type mockResolver map[string]string

func (m mockResolver) ResolveLIDToPhone(ctx context.Context, lid string) string {
	if pn, ok := m[lid]; ok {
		return pn
	}
	return lid
}

func message(chat, sender types.JID, fromMe bool, pushName, text string) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, Sender: sender, IsFromMe: fromMe},
			PushName:      pushName,
		},
		Message: &waE2E.Message{Conversation: &text},
	}
}

func TestRouter_RepliesInChat(t *testing.T) {
	chat := &mockChat{}
	handler := &mockHandler{reply: "🍅 Focus started"}
	r := wa.NewRouter(chat, handler, mockResolver{}, wa.RouterConfig{GroupID: group.String()}, walog.Noop)

	sender := types.NewJID("628123456789", types.DefaultUserServer)
	r.HandleMessage(context.Background(), message(group, sender, false, "Alice", "#focus"))

	if handler.userID != "628123456789" || handler.name != "Alice" || handler.msg != "#focus" {
		t.Errorf("Unexpected handler input: %+v", handler)
	}
	if len(chat.text) != 1 || chat.text[0] != "🍅 Focus started" || chat.to[0] != group {
		t.Errorf("Expected the reply in the group, got %v to %v", chat.text, chat.to)
	}
}

func TestRouter_Filters(t *testing.T) {
	chat := &mockChat{}
	handler := &mockHandler{reply: "x"}
	r := wa.NewRouter(chat, handler, mockResolver{}, wa.RouterConfig{GroupID: group.String()}, walog.Noop)

	sender := types.NewJID("628123456789", types.DefaultUserServer)
	other := types.NewJID("120363999999999999", types.GroupServer)

	r.HandleMessage(context.Background(), message(other, sender, false, "Alice", "#focus"))
	r.HandleMessage(context.Background(), message(group, sender, true, "Bot", "#focus"))
	r.HandleMessage(context.Background(), message(group, sender, false, "Alice", ""))

	if handler.msg != "" || len(chat.text) != 0 {
		t.Errorf("Expected other chats, own messages and empty text ignored, got %+v / %v", handler, chat.text)
	}
}

func TestRouter_ResolvesLID(t *testing.T) {
	chat := &mockChat{}
	handler := &mockHandler{}
	r := wa.NewRouter(chat, handler, mockResolver{"98765432101234": "628111"}, wa.RouterConfig{}, walog.Noop)

	lid := types.NewJID("98765432101234", types.HiddenUserServer)
	r.HandleMessage(context.Background(), message(group, lid, false, "", "#stats"))

	if handler.userID != "628111" {
		t.Errorf("Expected LID resolved to phone, got %s", handler.userID)
	}
	if handler.name != "Unknown" {
		t.Errorf("Expected fallback name, got %s", handler.name)
	}
	if len(chat.text) != 0 {
		t.Error("An empty reply must not be sent")
	}
}

func TestRouter_UnresolvedLIDKeepsServer(t *testing.T) {
	handler := &mockHandler{}
	r := wa.NewRouter(&mockChat{}, handler, mockResolver{}, wa.RouterConfig{}, walog.Noop)

	r.HandleMessage(context.Background(), message(group, types.NewJID("98765432101234", types.HiddenUserServer), false, "Lia", "#stats"))

	if handler.userID != "98765432101234@lid" {
		t.Errorf("Expected the LID address to be kept, got %s", handler.userID)
	}
}

func TestRouter_HandlerErrorSendsNothing(t *testing.T) {
	chat := &mockChat{}
	r := wa.NewRouter(chat, &mockHandler{reply: "partial", err: errors.New("db down")}, mockResolver{}, wa.RouterConfig{}, walog.Noop)

	r.HandleMessage(context.Background(), message(group, types.NewJID("628", types.DefaultUserServer), false, "A", "#focus"))
	if len(chat.text) != 0 {
		t.Errorf("Expected nothing sent on error, got %v", chat.text)
	}
}

func TestRouter_TypingDuringDelay(t *testing.T) {
	chat := &mockChat{}
	r := wa.NewRouter(chat, &mockHandler{reply: "ok"}, mockResolver{}, wa.RouterConfig{ReplyDelayMinMs: 1, ShowTyping: true}, walog.Noop)

	r.HandleMessage(context.Background(), message(group, types.NewJID("628", types.DefaultUserServer), false, "A", "#help"))

	if len(chat.typing) != 2 || !chat.typing[0] || chat.typing[1] {
		t.Errorf("Expected typing on then off, got %v", chat.typing)
	}
	if len(chat.text) != 1 {
		t.Errorf("Expected the reply after the delay, got %v", chat.text)
	}
}
