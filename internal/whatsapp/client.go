package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/interfaces"
)

// SessionPrefix namespaces game sessions created from chat
const SessionPrefix = "wa:"

// commandTimeout bounds one chat command, including narrative generation
const commandTimeout = 2 * time.Minute

// ClientManager handles WhatsApp client connections
type ClientManager struct {
	clients     map[string]*ClientInfo
	gameManager interfaces.GameManager
	formatter   *MessageFormatter
	config      config.Config
	logger      *zap.Logger
	mutex       sync.RWMutex
}

// ClientInfo holds information about a WhatsApp client connection
type ClientInfo struct {
	UUID        string
	PhoneNumber string
	Client      *whatsmeow.Client
	Store       *store.Device
}

// Ensure ClientManager satisfies the interfaces.MessageSender interface
var _ interfaces.MessageSender = (*ClientManager)(nil)

// NewClientManager creates a new WhatsApp client manager and restores stored sessions
func NewClientManager(gameManager interfaces.GameManager, cfg config.Config, logger *zap.Logger) *ClientManager {
	cm := &ClientManager{
		clients:     make(map[string]*ClientInfo),
		gameManager: gameManager,
		formatter:   NewMessageFormatter(),
		config:      cfg,
		logger:      logger,
	}

	cm.restoreExistingSessions()

	return cm
}

// storePath is the device database of one pairing
func storePath(storeDir, phoneNumber, sessionID string) string {
	return filepath.Join(storeDir, fmt.Sprintf("store_%s_%s.db", phoneNumber, sessionID))
}

// parseStoreFile extracts phone number and pairing id from a device database name
func parseStoreFile(path string) (phoneNumber, sessionID string, ok bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".db")
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || parts[0] != "store" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func openContainer(path, level string) (*sqlstore.Container, error) {
	dbLog := waLog.Stdout("Database", level, true)
	container, err := sqlstore.New("sqlite3", "file:"+path+"?_foreign_keys=on", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device store: %w", err)
	}
	return container, nil
}

func (cm *ClientManager) newClient(device *store.Device) *whatsmeow.Client {
	store.DeviceProps.RequireFullSync = proto.Bool(false)
	store.DeviceProps.Os = proto.String(cm.config.WhatsApp.ClientName)

	client := whatsmeow.NewClient(device, waLog.Stdout("Client", "INFO", true))
	client.AddEventHandler(cm.handleWhatsAppEvent)
	return client
}

// restoreExistingSessions reconnects the newest pairing of every phone number and removes older ones
func (cm *ClientManager) restoreExistingSessions() {
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		cm.logger.Error("Failed to create store directory", zap.Error(err))
		return
	}

	files, err := filepath.Glob(filepath.Join(cm.config.WhatsApp.StoreDir, "store_*.db"))
	if err != nil {
		cm.logger.Error("Failed to scan for existing sessions", zap.Error(err))
		return
	}

	type pairing struct {
		file      string
		sessionID string
		modTime   time.Time
	}
	latest := make(map[string]pairing)
	for _, file := range files {
		phoneNumber, sessionID, ok := parseStoreFile(file)
		if !ok {
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			cm.logger.Error("Failed to get file info", zap.String("file", file), zap.Error(err))
			continue
		}
		if current, exists := latest[phoneNumber]; !exists || info.ModTime().After(current.modTime) {
			latest[phoneNumber] = pairing{file: file, sessionID: sessionID, modTime: info.ModTime()}
		}
	}

	for phoneNumber, newest := range latest {
		for _, file := range files {
			if phone, _, ok := parseStoreFile(file); ok && phone == phoneNumber && file != newest.file {
				if err := os.Remove(file); err != nil {
					cm.logger.Error("Failed to remove old session file", zap.String("file", file), zap.Error(err))
				} else {
					cm.logger.Info("Removed old session file", zap.String("file", file))
				}
			}
		}

		container, err := openContainer(newest.file, "INFO")
		if err != nil {
			cm.logger.Error("Failed to open device store", zap.String("phoneNumber", phoneNumber), zap.Error(err))
			continue
		}
		device, err := container.GetFirstDevice()
		if err != nil {
			cm.logger.Info("No valid session found in database", zap.String("phoneNumber", phoneNumber))
			continue
		}

		client := cm.newClient(device)
		cm.mutex.Lock()
		cm.clients[phoneNumber] = &ClientInfo{
			UUID:        newest.sessionID,
			PhoneNumber: phoneNumber,
			Client:      client,
			Store:       device,
		}
		cm.mutex.Unlock()

		if client.Store.ID == nil {
			cm.logger.Info("Session requires QR code login", zap.String("phoneNumber", phoneNumber))
			continue
		}
		go func(phone string, cli *whatsmeow.Client) {
			if err := cli.Connect(); err != nil {
				cm.logger.Error("Failed to connect restored client", zap.String("phoneNumber", phone), zap.Error(err))
				return
			}
			cm.logger.Info("Connected restored client", zap.String("phoneNumber", phone))
		}(phoneNumber, client)
	}
}

// SetupClient initializes a WhatsApp client for a pairing, reusing its stored device when present
func (cm *ClientManager) SetupClient(sessionID, phoneNumber string) (*whatsmeow.Client, error) {
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	container, err := openContainer(storePath(cm.config.WhatsApp.StoreDir, phoneNumber, sessionID), "INFO")
	if err != nil {
		return nil, err
	}
	device, err := container.GetFirstDevice()
	if err != nil {
		device = container.NewDevice()
	}

	client := cm.newClient(device)
	cm.mutex.Lock()
	cm.clients[phoneNumber] = &ClientInfo{
		UUID:        sessionID,
		PhoneNumber: phoneNumber,
		Client:      client,
		Store:       device,
	}
	cm.mutex.Unlock()

	return client, nil
}

// GetClient retrieves a WhatsApp client by phone number, reconnecting it when needed
func (cm *ClientManager) GetClient(phoneNumber string) (*whatsmeow.Client, bool) {
	cm.mutex.RLock()
	info, exists := cm.clients[phoneNumber]
	cm.mutex.RUnlock()
	if !exists {
		return nil, false
	}

	if !info.Client.IsConnected() && info.Store.ID != nil {
		if err := info.Client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client", zap.String("phoneNumber", phoneNumber), zap.Error(err))
			return nil, false
		}
		cm.logger.Info("Reconnected client", zap.String("phoneNumber", phoneNumber))
	}

	return info.Client, true
}

// GetQRChannel starts a fresh pairing for a phone number and returns its QR events
func (cm *ClientManager) GetQRChannel(phoneNumber string) (<-chan whatsmeow.QRChannelItem, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if info, exists := cm.clients[phoneNumber]; exists {
		info.Client.Disconnect()
		delete(cm.clients, phoneNumber)
	}

	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	sessionID := uuid.New().String()
	container, err := openContainer(storePath(cm.config.WhatsApp.StoreDir, phoneNumber, sessionID), "INFO")
	if err != nil {
		return nil, err
	}
	device := container.NewDevice()
	client := cm.newClient(device)

	// QR channel must exist before connecting
	qrChan, err := client.GetQRChannel(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get QR channel: %w", err)
	}

	cm.clients[phoneNumber] = &ClientInfo{
		UUID:        sessionID,
		PhoneNumber: phoneNumber,
		Client:      client,
		Store:       device,
	}

	go func() {
		if err := client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client", zap.String("phoneNumber", phoneNumber), zap.Error(err))
			return
		}
		cm.logger.Info("Client connected", zap.String("phoneNumber", phoneNumber))
	}()

	return qrChan, nil
}

// Connect establishes a connection to WhatsApp
func (cm *ClientManager) Connect(phoneNumber string) error {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}
	return client.Connect()
}

// Disconnect closes a specific WhatsApp connection
func (cm *ClientManager) Disconnect(phoneNumber string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	info, exists := cm.clients[phoneNumber]
	if !exists {
		return fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}
	info.Client.Disconnect()
	delete(cm.clients, phoneNumber)
	return nil
}

// DisconnectAll closes all WhatsApp connections
func (cm *ClientManager) DisconnectAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for phoneNumber, info := range cm.clients {
		if info.Client != nil {
			info.Client.Disconnect()
			cm.logger.Info("Disconnected client", zap.String("phoneNumber", phoneNumber))
		}
	}
	cm.clients = make(map[string]*ClientInfo)
}

// IsLoggedIn checks if a client is logged in
func (cm *ClientManager) IsLoggedIn(phoneNumber string) (bool, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return false, fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}
	return client.IsLoggedIn(), nil
}

// Connected lists the phone numbers with a live connection
func (cm *ClientManager) Connected() []string {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	phones := make([]string, 0, len(cm.clients))
	for phone, info := range cm.clients {
		if info.Client != nil && info.Client.IsConnected() {
			phones = append(phones, phone)
		}
	}
	return phones
}

// SendTextMessage sends a text message from a paired phone number
func (cm *ClientManager) SendTextMessage(phoneNumber, recipient, message string) (string, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return "", fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	recipientJID, err := parseJID(recipient)
	if err != nil {
		return "", err
	}

	resp, err := client.SendMessage(context.Background(), recipientJID, &waProto.Message{
		Conversation: proto.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return resp.ID, nil
}

// SendMessage implements interfaces.MessageSender
func (cm *ClientManager) SendMessage(phoneNumber, recipient, message string) (string, error) {
	return cm.SendTextMessage(phoneNumber, recipient, message)
}

// handleWhatsAppEvent processes incoming WhatsApp events
func (cm *ClientManager) handleWhatsAppEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		cm.handleIncomingMessage(v)
	case *events.Connected:
		cm.logger.Info("WhatsApp client connected")
	case *events.Disconnected:
		cm.logger.Info("WhatsApp client disconnected")
	case *events.LoggedOut:
		cm.logger.Info("WhatsApp client logged out")
	}
}

// handleIncomingMessage runs chat commands and replies in the same chat
func (cm *ClientManager) handleIncomingMessage(message *events.Message) {
	if message.Info.MessageSource.IsFromMe {
		return
	}

	content := message.Message.GetConversation()
	if content == "" && message.Message.GetExtendedTextMessage() != nil {
		content = message.Message.GetExtendedTextMessage().GetText()
	}

	command, ok := commandText(content, message.Info.Chat.Server == waTypes.GroupServer)
	if !ok {
		return
	}

	cm.logger.Debug("Received command",
		zap.String("content", command),
		zap.String("sender", message.Info.Sender.User),
		zap.String("chat", message.Info.Chat.User))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	response := cm.processGameCommand(ctx, message.Info.Sender.User, command)
	if response == "" {
		return
	}

	// Reply through any paired client
	cm.mutex.RLock()
	var client *whatsmeow.Client
	for _, info := range cm.clients {
		client = info.Client
		break
	}
	cm.mutex.RUnlock()
	if client == nil {
		cm.logger.Error("No client available to send response")
		return
	}

	if _, err := client.SendMessage(ctx, message.Info.Chat, &waProto.Message{
		Conversation: proto.String(response),
	}); err != nil {
		cm.logger.Error("Failed to send response",
			zap.String("sender", message.Info.Sender.User),
			zap.Error(err))
	}
}

// commandText extracts a command from a chat message. Group chats need a "/ " prefix.
func commandText(content string, isGroup bool) (string, bool) {
	if content == "" {
		return "", false
	}
	if isGroup {
		if !strings.HasPrefix(content, "/ ") {
			return "", false
		}
		return "/" + strings.TrimPrefix(content, "/ "), true
	}
	if !strings.HasPrefix(content, "/") {
		return "", false
	}
	return content, true
}

// parseJID converts a phone number or full JID string to a WhatsApp JID
func parseJID(jid string) (waTypes.JID, error) {
	if !strings.ContainsRune(jid, '@') {
		jid = jid + "@" + waTypes.DefaultUserServer
	}
	return waTypes.ParseJID(jid)
}
