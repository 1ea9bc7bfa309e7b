// Package models defines the core data structures for SupportLine.
//
// It includes types for inbound webhook events, knowledge-base candidates,
// escalation tickets, and the shared API response envelope.
package models

import (
	"errors"
	"time"
)

// Conversation lifecycle event types as delivered by the messaging provider.
const (
	// EventParticipantAdded fires when a participant joins a conversation thread.
	EventParticipantAdded = "onParticipantAdded"
	// EventMessageAdded fires when a message is posted into a conversation thread.
	EventMessageAdded = "onMessageAdded"
)

// Validation constants for input validation
const (
	// MaxInboundBodyLength defines the maximum accepted length for inbound message bodies
	MaxInboundBodyLength = 4096
	// MinIdentityDigits defines the minimum number of digits in a normalized
	// identity. Five admits SMS short codes while rejecting digit fragments.
	MinIdentityDigits = 5
)

// Error variables for better error handling and testability
var (
	ErrEmptyIdentity   = errors.New("identity cannot be empty")
	ErrInvalidIdentity = errors.New("identity contains no usable digits")
	ErrEmptyBody       = errors.New("message body cannot be empty")
	ErrBodyTooLong     = errors.New("message body exceeds maximum length")
	ErrEmptyEventType  = errors.New("event type is required")
	ErrEmptyThreadID   = errors.New("conversation SID is required")

	// ErrRetrieval marks knowledge-store failures; recoverable by falling back to generation.
	ErrRetrieval = errors.New("knowledge retrieval failed")
	// ErrGeneration marks completion-service failures; fatal for the current event.
	ErrGeneration = errors.New("reply generation failed")
	// ErrDirectory marks provider participant/conversation failures other than "already exists".
	ErrDirectory = errors.New("conversation directory operation failed")
	// ErrPersistence marks ticket/archive write failures; the reply may already have been sent.
	ErrPersistence = errors.New("persistence operation failed")
)

// CandidateAnswer is one scored result from the knowledge store, ranked by
// the store's own relevance scale. Scores at or above ConfidenceThreshold
// are used verbatim as replies.
type CandidateAnswer struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// ConfidenceThreshold is the minimum score for a candidate answer to be
// sent without generative rewriting.
const ConfidenceThreshold = 0.5

// EscalationTicket records an interaction that needs a human agent.
type EscalationTicket struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	From      string    `json:"fromNumber"`
	CreatedAt time.Time `json:"dateCreated"`
	Open      bool      `json:"open"`
}

// InboundMessage is a standalone inbound SMS delivered by the provider's
// message webhook (no conversation thread involved).
type InboundMessage struct {
	From       string `json:"from"`
	Body       string `json:"body"`
	MessageSID string `json:"messageSid,omitempty"`
}

// Validate checks an inbound message before handling.
func (m InboundMessage) Validate() error {
	if m.From == "" {
		return ErrEmptyIdentity
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	if len(m.Body) > MaxInboundBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// ConversationEvent is a lifecycle event delivered by the provider's
// conversation webhook.
type ConversationEvent struct {
	Type            string `json:"eventType"`
	ConversationSID string `json:"conversationSid"`
	ParticipantSID  string `json:"participantSid,omitempty"`
	// Address is the messaging binding address of the joining participant
	// (participant-added events only).
	Address string `json:"address,omitempty"`
	// Author is the identity that wrote the message (message-added events only).
	Author string `json:"author,omitempty"`
	Body   string `json:"body,omitempty"`
}

// Validate checks a conversation event before handling.
func (e ConversationEvent) Validate() error {
	if e.Type == "" {
		return ErrEmptyEventType
	}
	if e.ConversationSID == "" {
		return ErrEmptyThreadID
	}
	return nil
}

// Archive marks a conversation thread as resolved/parked for the agent
// front end. A new inbound message deletes the row.
type Archive struct {
	ConversationSID string    `json:"conversationSid"`
	ArchivedAt      time.Time `json:"archivedAt"`
}

// ActivationStatus is the payload of the service-control status endpoint.
type ActivationStatus struct {
	PhoneNumber string `json:"phoneNumber"`
	IsActive    bool   `json:"isActive"`
}
