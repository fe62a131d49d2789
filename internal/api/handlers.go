package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleConnectionState returns the stream connection state and the advisory
// subscription set.
func (s *Server) handleConnectionState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":         s.session.State().String(),
		"user_id":       s.session.UserID(),
		"subscriptions": s.session.Subscriptions().Devices(),
	})
}

// handleConnect starts the stream connection lifecycle.
func (s *Server) handleConnect(w http.ResponseWriter, _ *http.Request) {
	s.session.Connect()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"state": s.session.State().String(),
	})
}

// handleDisconnect tears the stream connection down.
func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.session.Disconnect()
	writeJSON(w, http.StatusOK, map[string]any{
		"state": s.session.State().String(),
	})
}

// handleReconnect manually restarts the connection after automatic retries
// were exhausted.
func (s *Server) handleReconnect(w http.ResponseWriter, _ *http.Request) {
	s.session.Reconnect()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"state": s.session.State().String(),
	})
}

// handleAllStatuses returns the latest known status for every device.
func (s *Server) handleAllStatuses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": s.session.Cache().AllStatuses(),
	})
}

// handleDeviceTelemetry returns the latest telemetry snapshot for a device.
func (s *Server) handleDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	snap := s.session.Cache().Telemetry(deviceID)
	if snap == nil {
		writeNotFound(w, "no telemetry for device "+deviceID)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleDeviceStatus returns the latest status for a device.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	st := s.session.Cache().Status(deviceID)
	if st == nil {
		writeNotFound(w, "no status for device "+deviceID)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSubscribe asks the server to stream events for a device.
//
// Subscribe frames are dropped (not queued) while the stream is not
// connected; "active" reports whether the subscription was actually
// registered.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	s.session.Subscriptions().Subscribe(deviceID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"device_id": deviceID,
		"active":    s.session.Subscriptions().Has(deviceID),
	})
}

// handleUnsubscribe stops streaming events for a device.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	s.session.Subscriptions().Unsubscribe(deviceID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"device_id": deviceID,
		"active":    s.session.Subscriptions().Has(deviceID),
	})
}

// handleSubscriptions returns the advisory subscription set.
func (s *Server) handleSubscriptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.session.Subscriptions().Devices(),
	})
}

// commandRequest is the body of POST /devices/{id}/commands.
type commandRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// handleSendCommand issues a device command over the stream.
//
// The command id correlates the eventual result; "sent" is false when the
// stream is not connected and the frame was dropped.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	commandID, sent := s.session.SendCommand(deviceID, req.Command, req.Params)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"command_id": commandID,
		"device_id":  deviceID,
		"sent":       sent,
	})
}

// handleRequestState asks the backend to push the current state of a device.
func (s *Server) handleRequestState(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	sent := s.session.RequestState(deviceID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"device_id": deviceID,
		"sent":      sent,
	})
}

// handleCommandResult returns the recorded result for a command id.
// 404 while the result has not arrived yet.
func (s *Server) handleCommandResult(w http.ResponseWriter, r *http.Request) {
	commandID := chi.URLParam(r, "id")
	result := s.session.Cache().Result(commandID)
	if result == nil {
		writeNotFound(w, "no result for command "+commandID)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRecentEvents returns the in-memory activity feed, oldest first.
func (s *Server) handleRecentEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"events": s.session.Cache().RecentEvents(),
	})
}

// handleArchivedEvents returns archived events from SQLite, newest first.
// Supports ?device_id= and ?limit= filters.
func (s *Server) handleArchivedEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeNotFound(w, "event archive is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.events.Recent(r.Context(), r.URL.Query().Get("device_id"), limit)
	if err != nil {
		s.logger.Error("querying event archive", "error", err)
		writeInternalError(w, "querying event archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": entries,
	})
}

// handleListNotifications returns the notification list and unread count.
func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": s.store.All(),
		"unread":        s.store.UnreadCount(),
	})
}

// handleMarkRead marks one notification as read.
//
// The mutation is optimistic; a backend failure already triggered a
// reconciliation reload by the time the error surfaces here.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "marking notification read failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unread": s.store.UnreadCount()})
}

// handleMarkAllRead marks every notification as read.
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkAllRead(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "marking all notifications read failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unread": s.store.UnreadCount()})
}

// handleDeleteNotification removes one notification.
func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "deleting notification failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearNotifications removes every notification.
func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "clearing notifications failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
