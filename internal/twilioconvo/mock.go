package twilioconvo

import (
	"context"
	"sync"

	twilioclient "github.com/twilio/twilio-go/client"
)

// PostedMessage records one PostMessage call on the mock.
type PostedMessage struct {
	ConversationSID string
	Author          string
	Body            string
}

// SentSMS records one SendSMS call on the mock.
type SentSMS struct {
	To   string
	Body string
}

// MockClient is an in-memory ConversationAPI for tests. A duplicate
// AddParticipant returns the provider's already-exists error, which models
// the create race under duplicate webhook delivery.
type MockClient struct {
	mu            sync.Mutex
	friendlyNames map[string]string
	participants  map[string]map[string]bool
	posted        []PostedMessage
	sms           []SentSMS

	// Error overrides for failure-path tests.
	FriendlyNameErr error
	ListErr         error
	CreateErr       error
	PostErr         error
	SMSErr          error
}

func NewMockClient() *MockClient {
	return &MockClient{
		friendlyNames: make(map[string]string),
		participants:  make(map[string]map[string]bool),
	}
}

func (m *MockClient) FriendlyName(ctx context.Context, conversationSID string) (string, error) {
	if m.FriendlyNameErr != nil {
		return "", m.FriendlyNameErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.friendlyNames[conversationSID], nil
}

func (m *MockClient) SetFriendlyName(ctx context.Context, conversationSID, name string) error {
	if m.FriendlyNameErr != nil {
		return m.FriendlyNameErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.friendlyNames[conversationSID] = name
	return nil
}

func (m *MockClient) ParticipantIdentities(ctx context.Context, conversationSID string) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.participants[conversationSID] {
		out = append(out, id)
	}
	return out, nil
}

func (m *MockClient) AddParticipant(ctx context.Context, conversationSID, identity, displayName string) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.participants[conversationSID] == nil {
		m.participants[conversationSID] = make(map[string]bool)
	}
	if m.participants[conversationSID][identity] {
		return &twilioclient.TwilioRestError{Code: errCodeParticipantExists, Status: 409, Message: "Participant already exists"}
	}
	m.participants[conversationSID][identity] = true
	return nil
}

func (m *MockClient) PostMessage(ctx context.Context, conversationSID, author, body string) error {
	if m.PostErr != nil {
		return m.PostErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, PostedMessage{ConversationSID: conversationSID, Author: author, Body: body})
	return nil
}

func (m *MockClient) SendSMS(ctx context.Context, to, body string) error {
	if m.SMSErr != nil {
		return m.SMSErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sms = append(m.sms, SentSMS{To: to, Body: body})
	return nil
}

// ParticipantCount returns how many participants the thread holds.
func (m *MockClient) ParticipantCount(conversationSID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[conversationSID])
}

// HasParticipant reports membership for assertions.
func (m *MockClient) HasParticipant(conversationSID, identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participants[conversationSID][identity]
}

// PostedMessages returns a copy of recorded thread posts.
func (m *MockClient) PostedMessages() []PostedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PostedMessage, len(m.posted))
	copy(out, m.posted)
	return out
}

// SentMessages returns a copy of recorded direct SMS sends.
func (m *MockClient) SentMessages() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentSMS, len(m.sms))
	copy(out, m.sms)
	return out
}
