package wa

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/domain"
)

type TextSender interface {
	SendText(ctx context.Context, to types.JID, text string) error
}

type userLookup interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Notifier renders engine notifications and sends them as direct messages.
type Notifier struct {
	sender TextSender
	users  userLookup
	log    walog.Logger
}

var _ domain.Notifier = (*Notifier)(nil)

func NewNotifier(sender TextSender, users userLookup, logger walog.Logger) *Notifier {
	return &Notifier{sender: sender, users: users, log: logger}
}

func (n *Notifier) Notify(ctx context.Context, userID string, notification domain.Notification) error {
	user, err := n.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("notify %s: %w", userID, err)
	}
	if user == nil || user.ExternalID == "" {
		return fmt.Errorf("notify %s: no chat address", userID)
	}

	text := Render(notification)
	if text == "" {
		n.log.Debugf("Nothing to render for %s", notification.Kind)
		return nil
	}
	jid, err := chatJID(user.ExternalID)
	if err != nil {
		return fmt.Errorf("notify %s: %w", userID, err)
	}
	if err := n.sender.SendText(ctx, jid, text); err != nil {
		n.log.Warnf("Delivery of %s to %s failed: %v", notification.Kind, jid, err)
		return err
	}
	return nil
}

// chatJID turns a stored external id into a chat address. Plain ids are phone
// numbers; ids carrying a server (unresolved LIDs) are parsed as they are.
func chatJID(externalID string) (types.JID, error) {
	if !strings.Contains(externalID, "@") {
		return types.NewJID(externalID, types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(externalID)
	if err != nil {
		return types.JID{}, fmt.Errorf("parse chat address %q: %w", externalID, err)
	}
	return jid, nil
}
