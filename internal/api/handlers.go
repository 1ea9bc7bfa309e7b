// Package api provides HTTP handlers for SupportLine endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/proleads/SupportLine/internal/models"
	"github.com/proleads/SupportLine/internal/util"
)

// twimlEmptyResponse acknowledges an SMS webhook without queueing a TwiML
// reply; the orchestrator sends its reply through the REST API instead.
const twimlEmptyResponse = "<Response></Response>"

// smsWebhookHandler receives standalone inbound SMS deliveries from the provider.
func (s *Server) smsWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.smsWebhookHandler: failed to parse form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid form payload"))
		return
	}

	msg := models.InboundMessage{
		From:       r.FormValue("From"),
		Body:       r.FormValue("Body"),
		MessageSID: r.FormValue("MessageSid"),
	}
	slog.Debug("Server.smsWebhookHandler: inbound SMS", "from_set", msg.From != "", "sid", msg.MessageSID)

	if err := s.events.HandleInboundMessage(r.Context(), msg); err != nil {
		if isValidationError(err) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		// Adapter details stay internal; the provider only needs a failure
		// status to drive its redelivery policy.
		slog.Error("Server.smsWebhookHandler: failed to process message", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process your message"))
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, twimlEmptyResponse)
}

// conversationWebhookHandler receives conversation lifecycle events.
func (s *Server) conversationWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.conversationWebhookHandler: failed to parse form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid form payload"))
		return
	}

	ev := models.ConversationEvent{
		Type:            r.FormValue("EventType"),
		ConversationSID: r.FormValue("ConversationSid"),
		ParticipantSID:  r.FormValue("ParticipantSid"),
		Address:         r.FormValue("MessagingBinding.Address"),
		Author:          r.FormValue("Author"),
		Body:            r.FormValue("Body"),
	}
	slog.Debug("Server.conversationWebhookHandler: event received", "event_type", ev.Type, "conversation_sid", ev.ConversationSID)

	if err := s.events.HandleConversationEvent(r.Context(), ev); err != nil {
		if isValidationError(err) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		slog.Error("Server.conversationWebhookHandler: failed to process event", "error", err, "event_type", ev.Type)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process event"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// serviceStatusHandler reports whether the bot is suppressed for a phone number.
func (s *Server) serviceStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	phoneNumber := r.URL.Query().Get("phoneNumber")
	if phoneNumber == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Phone number is required"))
		return
	}
	normalized, err := util.NormalizeIdentity(phoneNumber)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	status := models.ActivationStatus{
		PhoneNumber: normalized,
		IsActive:    s.registry.IsActive(normalized),
	}
	slog.Debug("Server.serviceStatusHandler: status checked", "phone_number", normalized, "is_active", status.IsActive)
	writeJSONResponse(w, http.StatusOK, models.Success(status))
}

// toggleServiceRequest is the body of the activation toggle endpoint.
type toggleServiceRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	IsActive    *bool  `json:"isActive"`
}

// toggleServiceHandler flips bot suppression for a phone number.
func (s *Server) toggleServiceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req toggleServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.PhoneNumber == "" || req.IsActive == nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Please provide a phone number and a boolean value for isActive"))
		return
	}
	normalized, err := util.NormalizeIdentity(req.PhoneNumber)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	s.registry.SetActive(normalized, *req.IsActive)
	slog.Info("Server.toggleServiceHandler: activation toggled", "phone_number", normalized, "is_active", *req.IsActive)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(
		fmt.Sprintf("Service for %s is now %t", normalized, *req.IsActive), nil))
}

// ticketsHandler lists open escalation tickets for the agent front end.
func (s *Server) ticketsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tickets, err := s.tickets.ListOpenTickets(r.Context())
	if err != nil {
		slog.Error("Server.ticketsHandler: failed to list tickets", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list tickets"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(tickets))
}

// archiveRequest is the body of the archive endpoint.
type archiveRequest struct {
	ConversationSID string `json:"conversationSid"`
}

// archiveHandler parks a conversation thread as resolved.
func (s *Server) archiveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ConversationSID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Conversation SID is required"))
		return
	}

	if err := s.archives.Archive(r.Context(), req.ConversationSID); err != nil {
		slog.Error("Server.archiveHandler: failed to archive thread", "error", err, "conversation_sid", req.ConversationSID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to archive conversation"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation archived", nil))
}

// archivesHandler lists archived threads.
func (s *Server) archivesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	archives, err := s.archives.ListArchives(r.Context())
	if err != nil {
		slog.Error("Server.archivesHandler: failed to list archives", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list archives"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(archives))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// isValidationError reports client-side input problems that map to 400.
func isValidationError(err error) bool {
	return errors.Is(err, models.ErrEmptyIdentity) ||
		errors.Is(err, models.ErrInvalidIdentity) ||
		errors.Is(err, models.ErrEmptyBody) ||
		errors.Is(err, models.ErrBodyTooLong) ||
		errors.Is(err, models.ErrEmptyEventType) ||
		errors.Is(err, models.ErrEmptyThreadID)
}
