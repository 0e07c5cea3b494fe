package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/config"
)

// qrTimeout bounds the wait for the first pairing code
const qrTimeout = 60 * time.Second

// ErrAlreadyPaired is returned when a QR code is requested for a logged in number
var ErrAlreadyPaired = errors.New("client already logged in")

// QRCodeManager handles QR code generation and pairing
type QRCodeManager struct {
	clientManager *ClientManager
	sessions      *SessionManager
	config        config.Config
	logger        *zap.Logger
}

// NewQRCodeManager creates a new QR code manager
func NewQRCodeManager(clientManager *ClientManager, sessions *SessionManager, cfg config.Config, logger *zap.Logger) *QRCodeManager {
	return &QRCodeManager{
		clientManager: clientManager,
		sessions:      sessions,
		config:        cfg,
		logger:        logger,
	}
}

// GenerateQRCode starts a pairing for phoneNumber and returns the code with its PNG rendering.
// The PNG is also written to the configured QR code directory.
func (qm *QRCodeManager) GenerateQRCode(ctx context.Context, phoneNumber string) (string, []byte, error) {
	if loggedIn, err := qm.clientManager.IsLoggedIn(phoneNumber); err == nil && loggedIn {
		return "", nil, ErrAlreadyPaired
	}

	qrChan, err := qm.clientManager.GetQRChannel(phoneNumber)
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(qm.config.WhatsApp.QRCodeDir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create QR code directory: %w", err)
	}

	timer := time.NewTimer(qrTimeout)
	defer timer.Stop()

	for {
		select {
		case evt, ok := <-qrChan:
			if !ok {
				return "", nil, errors.New("pairing channel closed")
			}
			if evt.Event != whatsmeow.QRChannelEventCode {
				return "", nil, fmt.Errorf("unexpected QR event: %s", evt.Event)
			}

			png, err := qrcode.Encode(evt.Code, qrcode.Medium, 256)
			if err != nil {
				return "", nil, fmt.Errorf("failed to generate QR code image: %w", err)
			}
			path := filepath.Join(qm.config.WhatsApp.QRCodeDir, phoneNumber+".png")
			if err := os.WriteFile(path, png, 0644); err != nil {
				return "", nil, fmt.Errorf("failed to write QR code image: %w", err)
			}

			qm.logger.Info("QR code generated",
				zap.String("phone_number", phoneNumber),
				zap.String("path", path))

			go qm.awaitPairing(phoneNumber, qrChan)
			return evt.Code, png, nil
		case <-timer.C:
			return "", nil, errors.New("timeout waiting for QR code")
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}
}

// awaitPairing records the session once the phone confirms the pairing
func (qm *QRCodeManager) awaitPairing(phoneNumber string, qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case whatsmeow.QRChannelEventCode:
			continue
		case whatsmeow.QRChannelSuccess.Event:
			info := SessionInfo{
				ID:          qm.clientManager.pairingID(phoneNumber),
				PhoneNumber: phoneNumber,
				CreatedAt:   time.Now().UTC(),
			}
			if client, ok := qm.clientManager.GetClient(phoneNumber); ok && client.Store.ID != nil {
				info.JID = client.Store.ID.String()
			}
			if err := qm.sessions.SaveSession(info); err != nil {
				qm.logger.Error("Failed to save pairing", zap.String("phone_number", phoneNumber), zap.Error(err))
			}
			qm.logger.Info("WhatsApp paired", zap.String("phone_number", phoneNumber))
			return
		default:
			qm.logger.Warn("Pairing ended", zap.String("phone_number", phoneNumber), zap.String("event", evt.Event))
			return
		}
	}
}

// pairingID returns the device store id of a phone number's client
func (cm *ClientManager) pairingID(phoneNumber string) string {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	if info, ok := cm.clients[phoneNumber]; ok {
		return info.UUID
	}
	return ""
}

// SessionManager handles stored WhatsApp pairings
type SessionManager struct {
	storeDir string
	logger   *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(storeDir string, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		storeDir: storeDir,
		logger:   logger,
	}
}

// SessionInfo holds information about a WhatsApp pairing
type SessionInfo struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	JID         string    `json:"jid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListSessions returns every stored pairing
func (sm *SessionManager) ListSessions() ([]SessionInfo, error) {
	if err := os.MkdirAll(sm.storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(sm.storeDir, "store_*.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(matches))
	for _, match := range matches {
		phoneNumber, sessionID, ok := parseStoreFile(match)
		if !ok {
			sm.logger.Warn("Failed to parse session filename", zap.String("filename", filepath.Base(match)))
			continue
		}

		info, err := sm.loadInfo(phoneNumber, sessionID)
		if err != nil {
			stat, statErr := os.Stat(match)
			if statErr != nil {
				continue
			}
			info = SessionInfo{ID: sessionID, PhoneNumber: phoneNumber, CreatedAt: stat.ModTime().UTC()}
		}
		sessions = append(sessions, info)
	}

	return sessions, nil
}

func (sm *SessionManager) infoPath(phoneNumber, sessionID string) string {
	return filepath.Join(sm.storeDir, "sessions", fmt.Sprintf("%s_%s.json", phoneNumber, sessionID))
}

func (sm *SessionManager) loadInfo(phoneNumber, sessionID string) (SessionInfo, error) {
	var info SessionInfo
	data, err := os.ReadFile(sm.infoPath(phoneNumber, sessionID))
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, err
	}
	return info, nil
}

// SaveSession persists pairing details next to the device store
func (sm *SessionManager) SaveSession(session SessionInfo) error {
	if err := os.MkdirAll(filepath.Join(sm.storeDir, "sessions"), 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(sm.infoPath(session.PhoneNumber, session.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// DeleteSession removes a pairing's device store and details
func (sm *SessionManager) DeleteSession(phoneNumber, sessionID string) error {
	if err := os.Remove(storePath(sm.storeDir, phoneNumber, sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session database: %w", err)
	}
	if err := os.Remove(sm.infoPath(phoneNumber, sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session info: %w", err)
	}
	return nil
}
