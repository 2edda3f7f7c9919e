package wa

import (
	"context"
	"fmt"
	"os"

	"github.com/mdp/qrterminal"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	walog "go.mau.fi/whatsmeow/util/log"
	_ "modernc.org/sqlite"
)

type MessageHandler func(ctx context.Context, evt *events.Message)

type presenceSender interface {
	SendChatPresence(ctx context.Context, jid types.JID, state types.ChatPresence, media types.ChatPresenceMedia) error
}

// Service owns the whatsmeow client: device store, login and raw send/receive.
type Service struct {
	client         *whatsmeow.Client
	dbBasePath     string
	log            walog.Logger
	messageHandler MessageHandler
	presence       presenceSender
}

func NewService(dbBasePath string, logger walog.Logger) *Service {
	return &Service{
		dbBasePath: dbBasePath,
		log:        logger,
	}
}

func (s *Service) Initialize(ctx context.Context) error {
	// whatsmeow opens its own connection to the shared file; WAL sticks to the file once enabled
	dbAddress := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", s.dbBasePath)
	container, err := sqlstore.New(ctx, "sqlite", dbAddress, s.log.Sub("Database"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	devices, err := container.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}

	var device *store.Device
	if len(devices) > 0 {
		device = devices[0]
	} else {
		device = container.NewDevice()
	}

	s.client = whatsmeow.NewClient(device, s.log.Sub("Client"))
	s.presence = s.client
	s.registerEventHandlers()

	return nil
}

func (s *Service) Connect() error {
	if s.client == nil {
		return fmt.Errorf("client not initialized")
	}
	if s.client.IsConnected() {
		return nil
	}
	return s.client.Connect()
}

func (s *Service) Disconnect() {
	if s.client != nil {
		s.client.Disconnect()
	}
}

func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

func (s *Service) registerEventHandlers() {
	s.client.AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			if s.messageHandler != nil {
				go s.messageHandler(context.Background(), v)
			}
		case *events.Disconnected:
			s.log.Warnf("Disconnected from WhatsApp")
		}
	})
}

// SendText delivers a plain text message to a chat.
func (s *Service) SendText(ctx context.Context, to types.JID, text string) error {
	if s.client == nil {
		return fmt.Errorf("client not initialized")
	}
	msg := &waE2E.Message{
		Conversation: &text,
	}
	if _, err := s.client.SendMessage(ctx, to, msg); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

func (s *Service) SetTyping(ctx context.Context, chat types.JID, typing bool) {
	if s.presence == nil {
		return
	}
	state := types.ChatPresencePaused
	if typing {
		state = types.ChatPresenceComposing
	}
	if err := s.presence.SendChatPresence(ctx, chat, state, types.ChatPresenceMediaText); err != nil {
		s.log.Debugf("Failed to send %s presence to %s: %v", state, chat, err)
	}
}

func (s *Service) IsLoggedIn() bool {
	return s.client.Store.ID != nil
}

func (s *Service) Pair(ctx context.Context, phone string) (string, error) {
	if s.IsLoggedIn() {
		return "", fmt.Errorf("already logged in")
	}
	if !s.client.IsConnected() {
		return "", fmt.Errorf("client not connected")
	}

	code, err := s.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
	if err != nil {
		return "", err
	}

	return code, nil
}

// PrintQR connects and prints login QR codes to the terminal until pairing ends.
func (s *Service) PrintQR(ctx context.Context) error {
	if s.client.Store.ID != nil {
		return nil
	}
	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect for QR: %w", err)
	}
	for evt := range qrChan {
		if evt.Event == "code" {
			s.log.Infof("Scan the QR code below to log in")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
		} else {
			s.log.Infof("Login event: %s", evt.Event)
		}
	}
	return nil
}
