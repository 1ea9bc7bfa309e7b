// Package twilioconvo wraps the Twilio Conversations and SMS APIs for SupportLine.
package twilioconvo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	conversations "github.com/twilio/twilio-go/rest/conversations/v1"
)

// ConversationAPI is the provider directory surface consumed by the roster
// synchronizer and the orchestrator.
type ConversationAPI interface {
	// FriendlyName returns the thread's display name, "" when unset.
	FriendlyName(ctx context.Context, conversationSID string) (string, error)
	// SetFriendlyName updates the thread's display name.
	SetFriendlyName(ctx context.Context, conversationSID, name string) error
	// ParticipantIdentities lists the identities present in the thread.
	ParticipantIdentities(ctx context.Context, conversationSID string) ([]string, error)
	// AddParticipant creates a participant. A duplicate create returns an
	// error that IsAlreadyExists reports true for.
	AddParticipant(ctx context.Context, conversationSID, identity, displayName string) error
	// PostMessage writes a message into the thread as the given author.
	PostMessage(ctx context.Context, conversationSID, author, body string) error
	// SendSMS sends a direct SMS outside any thread.
	SendSMS(ctx context.Context, to, body string) error
}

// Twilio error for creating a participant that is already in the conversation.
const errCodeParticipantExists = 50433

// IsAlreadyExists reports whether err is the provider's benign
// duplicate-participant condition. The remote create may race with our
// membership check under duplicate webhook delivery; callers treat this as
// success.
func IsAlreadyExists(err error) bool {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		return restErr.Code == errCodeParticipantExists || restErr.Status == 409
	}
	return false
}

// Opts holds configuration options for the Twilio client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the bot's sending phone number.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Client wraps the Twilio REST API.
type Client struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewClient builds a Twilio client, falling back to the TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN, and TWILIO_PHONE_NUMBER environment variables for any
// option not provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_PHONE_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &Client{client: client, fromNumber: cfg.FromNumber}, nil
}

// FromNumber returns the bot's sending phone number.
func (c *Client) FromNumber() string {
	return c.fromNumber
}

func (c *Client) FriendlyName(ctx context.Context, conversationSID string) (string, error) {
	conv, err := c.client.ConversationsV1.FetchConversation(conversationSID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch conversation %s: %w", conversationSID, err)
	}
	if conv.FriendlyName == nil {
		return "", nil
	}
	return *conv.FriendlyName, nil
}

func (c *Client) SetFriendlyName(ctx context.Context, conversationSID, name string) error {
	params := &conversations.UpdateConversationParams{}
	params.SetFriendlyName(name)
	if _, err := c.client.ConversationsV1.UpdateConversation(conversationSID, params); err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", conversationSID, err)
	}
	slog.Debug("Twilio conversation renamed", "conversation_sid", conversationSID)
	return nil
}

func (c *Client) ParticipantIdentities(ctx context.Context, conversationSID string) ([]string, error) {
	params := &conversations.ListConversationParticipantParams{}
	participants, err := c.client.ConversationsV1.ListConversationParticipant(conversationSID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of %s: %w", conversationSID, err)
	}
	identities := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.Identity != nil && *p.Identity != "" {
			identities = append(identities, *p.Identity)
		}
	}
	return identities, nil
}

func (c *Client) AddParticipant(ctx context.Context, conversationSID, identity, displayName string) error {
	attrs, err := json.Marshal(map[string]string{"name": displayName})
	if err != nil {
		return fmt.Errorf("failed to marshal participant attributes: %w", err)
	}
	params := &conversations.CreateConversationParticipantParams{}
	params.SetIdentity(identity)
	params.SetAttributes(string(attrs))
	if _, err := c.client.ConversationsV1.CreateConversationParticipant(conversationSID, params); err != nil {
		return fmt.Errorf("failed to create participant %s in %s: %w", identity, conversationSID, err)
	}
	slog.Debug("Twilio participant created", "conversation_sid", conversationSID, "identity", identity)
	return nil
}

func (c *Client) PostMessage(ctx context.Context, conversationSID, author, body string) error {
	params := &conversations.CreateConversationMessageParams{}
	params.SetAuthor(author)
	params.SetBody(body)
	if _, err := c.client.ConversationsV1.CreateConversationMessage(conversationSID, params); err != nil {
		return fmt.Errorf("failed to post message into %s: %w", conversationSID, err)
	}
	slog.Debug("Twilio conversation message posted", "conversation_sid", conversationSID)
	return nil
}

func (c *Client) SendSMS(ctx context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.fromNumber)
	params.SetBody(body)
	if _, err := c.client.Api.CreateMessage(params); err != nil {
		slog.Error("Twilio SendSMS failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("Twilio SMS sent", "to", to)
	return nil
}
