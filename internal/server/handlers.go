package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
	"github.com/user/frontline-missions/internal/whatsapp"
)

type createCharacterRequest struct {
	SessionID string `json:"session_id"`
	interfaces.CharacterRequest
}

type startMissionRequest struct {
	MissionID string `json:"mission_id"`
}

type choiceRequest struct {
	Choice int `json:"choice"`
}

type combatRequest struct {
	Action string `json:"action"`
}

type itemRequest struct {
	Item string `json:"item"`
}

type qrRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type qrResponse struct {
	QRCode string `json:"qr_code"`
	Image  []byte `json:"image"`
}

type archiveResponse struct {
	Turn int    `json:"turn"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.games.ListMissions())
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := s.games.CreateCharacter(r.Context(), req.SessionID, req.CharacterRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.games.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.games.ResetSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartMission(w http.ResponseWriter, r *http.Request) {
	// Body is optional
	var req startMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.games.StartMission(r.Context(), chi.URLParam(r, "sessionID"), req.MissionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMakeChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Choice < 1 || req.Choice > 3 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "choice must be 1, 2 or 3"})
		return
	}

	res, err := s.games.MakeChoice(r.Context(), chi.URLParam(r, "sessionID"), req.Choice)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolveCombat(w http.ResponseWriter, r *http.Request) {
	var req combatRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.games.ResolveCombat(r.Context(), chi.URLParam(r, "sessionID"), req.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUseItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.games.UseItem(r.Context(), chi.URLParam(r, "sessionID"), req.Item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	cards, err := s.games.Achievements(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleRecoverNarrative(w http.ResponseWriter, r *http.Request) {
	turn, err := strconv.Atoi(chi.URLParam(r, "turn"))
	if err != nil || turn < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "turn must be a positive number"})
		return
	}

	text, err := s.games.RecoverNarrative(r.Context(), chi.URLParam(r, "sessionID"), turn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, archiveResponse{Turn: turn, Text: text})
}

func (s *Server) handleGenerateQR(w http.ResponseWriter, r *http.Request) {
	if s.qr == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "whatsapp is disabled"})
		return
	}

	var req qrRequest
	if !decode(w, r, &req) {
		return
	}
	phone := strings.TrimPrefix(strings.TrimSpace(req.PhoneNumber), "+")
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "phone_number is required"})
		return
	}

	code, png, err := s.qr.GenerateQRCode(r.Context(), phone)
	if err != nil {
		if errors.Is(err, whatsapp.ErrAlreadyPaired) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("Failed to generate QR code", zap.String("phone_number", phone), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to generate QR code"})
		return
	}
	writeJSON(w, http.StatusOK, qrResponse{QRCode: code, Image: png})
}

func (s *Server) handleListPairings(w http.ResponseWriter, r *http.Request) {
	if s.pairings == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "whatsapp is disabled"})
		return
	}

	sessions, err := s.pairings.ListSessions()
	if err != nil {
		s.logger.Error("Failed to list pairings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list sessions"})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleDeletePairing(w http.ResponseWriter, r *http.Request) {
	if s.pairings == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "whatsapp is disabled"})
		return
	}
	phone := chi.URLParam(r, "phoneNumber")
	pairingID := chi.URLParam(r, "pairingID")

	// Not connected is fine
	if s.clients != nil {
		_ = s.clients.Disconnect(phone)
	}

	if err := s.pairings.DeleteSession(phone, pairingID); err != nil {
		s.logger.Error("Failed to delete pairing",
			zap.String("phone_number", phone),
			zap.String("pairing_id", pairingID),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps game errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrSessionNotFound),
		errors.Is(err, types.ErrMissionNotFound),
		errors.Is(err, types.ErrArchiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrSessionCorrupt):
		return http.StatusGone
	case errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidClass),
		errors.Is(err, types.ErrInvalidRank),
		errors.Is(err, types.ErrInvalidWeapon):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNoActiveMission),
		errors.Is(err, types.ErrMissionInProgress),
		errors.Is(err, types.ErrCombatPending),
		errors.Is(err, types.ErrNoPendingCombat),
		errors.Is(err, types.ErrItemUnavailable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("session_id", chi.URLParam(r, "sessionID")),
			zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
