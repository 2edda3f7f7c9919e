package wa

import (
	"context"
	"math/rand"
	"time"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	walog "go.mau.fi/whatsmeow/util/log"
)

type CommandHandler interface {
	Execute(ctx context.Context, userID, name, msg string) (string, error)
}

// ChatClient is the part of Service the router replies through.
type ChatClient interface {
	TextSender
	SetTyping(ctx context.Context, chat types.JID, typing bool)
}

type LIDResolver interface {
	ResolveLIDToPhone(ctx context.Context, lid string) string
}

type RouterConfig struct {
	GroupID         string // only this chat is served when set
	ReplyDelayMinMs int
	ReplyDelayMaxMs int
	ShowTyping      bool
}

// Router turns incoming WhatsApp messages into commands and sends the replies back.
type Router struct {
	service  ChatClient
	handler  CommandHandler
	resolver LIDResolver
	cfg      RouterConfig
	log      walog.Logger
}

func NewRouter(service ChatClient, handler CommandHandler, resolver LIDResolver, cfg RouterConfig, logger walog.Logger) *Router {
	return &Router{
		service:  service,
		handler:  handler,
		resolver: resolver,
		cfg:      cfg,
		log:      logger,
	}
}

func (r *Router) HandleMessage(ctx context.Context, evt *events.Message) {
	if r.cfg.GroupID != "" && evt.Info.Chat.String() != r.cfg.GroupID {
		return
	}
	if evt.Info.IsFromMe {
		return
	}

	userID := r.senderID(ctx, evt.Info.Sender)
	pushName := evt.Info.PushName
	if pushName == "" {
		pushName = "Unknown"
	}

	msg := MessageText(evt)
	if msg == "" {
		return
	}
	r.log.Debugf("Message from %s (%s): %s", pushName, userID, msg)

	response, err := r.handler.Execute(ctx, userID, pushName, msg)
	if err != nil {
		r.log.Errorf("Error handling message from %s: %v", userID, err)
		return
	}
	if response == "" {
		return
	}

	r.delay(ctx, evt.Info.Chat)
	if err := r.service.SendText(ctx, evt.Info.Chat, response); err != nil {
		r.log.Errorf("Failed to send response: %v", err)
	}
}

// senderID resolves LIDs to phone numbers so a user keeps one identity. An
// unresolved LID keeps its server so replies can still be addressed.
func (r *Router) senderID(ctx context.Context, sender types.JID) string {
	if sender.Server == types.HiddenUserServer || (sender.Server == types.DefaultUserServer && len(sender.User) > 15) {
		if pn := r.resolver.ResolveLIDToPhone(ctx, sender.User); pn != sender.User {
			return pn
		}
		return types.NewJID(sender.User, types.HiddenUserServer).String()
	}
	return sender.User
}

func (r *Router) delay(ctx context.Context, chat types.JID) {
	delayMs := r.cfg.ReplyDelayMinMs
	if r.cfg.ReplyDelayMaxMs > r.cfg.ReplyDelayMinMs {
		delayMs = r.cfg.ReplyDelayMinMs + rand.Intn(r.cfg.ReplyDelayMaxMs-r.cfg.ReplyDelayMinMs+1)
	}
	if delayMs <= 0 {
		return
	}

	if r.cfg.ShowTyping {
		r.service.SetTyping(ctx, chat, true)
		defer r.service.SetTyping(ctx, chat, false)
	}
	select {
	case <-time.After(time.Duration(delayMs) * time.Millisecond):
	case <-ctx.Done():
	}
}

// MessageText extracts the plain text of a message, if any.
func MessageText(evt *events.Message) string {
	if evt.Message == nil {
		return ""
	}
	if evt.Message.Conversation != nil {
		return *evt.Message.Conversation
	}
	if ext := evt.Message.ExtendedTextMessage; ext != nil && ext.Text != nil {
		return *ext.Text
	}
	return ""
}
