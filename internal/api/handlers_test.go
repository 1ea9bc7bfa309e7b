package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/proleads/SupportLine/internal/activation"
	"github.com/proleads/SupportLine/internal/models"
	"github.com/proleads/SupportLine/internal/store"
)

type fakeEventHandler struct {
	inboundErr error
	eventErr   error
	messages   []models.InboundMessage
	events     []models.ConversationEvent
}

func (f *fakeEventHandler) HandleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	f.messages = append(f.messages, msg)
	if f.inboundErr != nil {
		return f.inboundErr
	}
	return msg.Validate()
}

func (f *fakeEventHandler) HandleConversationEvent(ctx context.Context, ev models.ConversationEvent) error {
	f.events = append(f.events, ev)
	if f.eventErr != nil {
		return f.eventErr
	}
	return ev.Validate()
}

func newTestServer() (*Server, *fakeEventHandler, *store.InMemoryStore) {
	events := &fakeEventHandler{}
	st := store.NewInMemoryStore()
	return NewServer(activation.NewRegistry(), events, st, st), events, st
}

func postForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestSMSWebhookReturnsEmptyTwiML(t *testing.T) {
	s, events, _ := newTestServer()
	rr := postForm(t, s, "/sms", url.Values{
		"From":       {"+15551234567"},
		"Body":       {"When do you open?"},
		"MessageSid": {"SM123"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("Content-Type = %q, want text/xml", ct)
	}
	if body := rr.Body.String(); body != "<Response></Response>" {
		t.Errorf("body = %q, want empty TwiML", body)
	}
	if len(events.messages) != 1 || events.messages[0].MessageSID != "SM123" {
		t.Errorf("handler received %v, want the parsed inbound message", events.messages)
	}
}

func TestSMSWebhookValidationMapsTo400(t *testing.T) {
	s, _, _ := newTestServer()
	rr := postForm(t, s, "/sms", url.Values{"From": {"+15551234567"}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a missing body", rr.Code)
	}
}

func TestSMSWebhookInternalErrorMapsTo500(t *testing.T) {
	s, events, _ := newTestServer()
	events.inboundErr = errors.New("provider timeout")
	rr := postForm(t, s, "/sms", url.Values{"From": {"+15551234567"}, "Body": {"hi"}})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Message != "Failed to process your message" {
		t.Errorf("message = %q, adapter details must not leak", resp.Message)
	}
}

func TestSMSWebhookRejectsGet(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/sms", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestConversationWebhookParsesEvent(t *testing.T) {
	s, events, _ := newTestServer()
	rr := postForm(t, s, "/webhook", url.Values{
		"EventType":                {"onMessageAdded"},
		"ConversationSid":          {"CH123"},
		"Author":                   {"+15551234567"},
		"Body":                     {"hello"},
		"MessagingBinding.Address": {"+15551234567"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(events.events) != 1 {
		t.Fatalf("handler received %d events, want 1", len(events.events))
	}
	ev := events.events[0]
	if ev.Type != models.EventMessageAdded || ev.ConversationSID != "CH123" || ev.Address != "+15551234567" {
		t.Errorf("parsed event = %+v", ev)
	}
}

func TestConversationWebhookValidationMapsTo400(t *testing.T) {
	s, _, _ := newTestServer()
	rr := postForm(t, s, "/webhook", url.Values{"ConversationSid": {"CH123"}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a missing event type", rr.Code)
	}
}

func TestToggleAndStatusRoundTrip(t *testing.T) {
	s, _, _ := newTestServer()

	body, _ := json.Marshal(map[string]any{"phoneNumber": "+1 (555) 123-4567", "isActive": true})
	req := httptest.NewRequest(http.MethodPost, "/toggleService", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, want 200", rr.Code)
	}
	var toggleResp models.APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &toggleResp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if toggleResp.Message != "Service for 15551234567 is now true" {
		t.Errorf("toggle message = %q", toggleResp.Message)
	}

	req = httptest.NewRequest(http.MethodGet, "/serviceStatus?phoneNumber=15551234567", nil)
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", rr.Code)
	}
	var statusResp struct {
		Status string                  `json:"status"`
		Result models.ActivationStatus `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &statusResp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if !statusResp.Result.IsActive || statusResp.Result.PhoneNumber != "15551234567" {
		t.Errorf("status result = %+v, want active for the normalized number", statusResp.Result)
	}
}

func TestToggleServiceRequiresBothFields(t *testing.T) {
	s, _, _ := newTestServer()
	for _, body := range []string{
		`{"phoneNumber":"+15551234567"}`,
		`{"isActive":true}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/toggleService", strings.NewReader(body))
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestServiceStatusRequiresPhoneNumber(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/serviceStatus", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestTicketsHandlerListsOpenTickets(t *testing.T) {
	s, _, st := newTestServer()
	if _, err := st.AddTicket(context.Background(), models.EscalationTicket{
		Question: "refund?", Answer: "not sure", From: "15551234567", Open: true,
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Status string                    `json:"status"`
		Result []models.EscalationTicket `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Result) != 1 || resp.Result[0].From != "15551234567" {
		t.Errorf("tickets = %+v", resp.Result)
	}
}

func TestArchiveEndpoints(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/archive", strings.NewReader(`{"conversationSid":"CH123"}`))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("archive status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/archives", nil)
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("archives status = %d, want 200", rr.Code)
	}
	var resp struct {
		Status string           `json:"status"`
		Result []models.Archive `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Result) != 1 || resp.Result[0].ConversationSID != "CH123" {
		t.Errorf("archives = %+v", resp.Result)
	}
}

func TestArchiveRequiresConversationSID(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/archive", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("body = %q, want a healthy status", rr.Body.String())
	}
}
