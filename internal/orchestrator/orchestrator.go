// Package orchestrator turns one inbound webhook event into a reply, an
// optional escalation ticket, and a converged conversation membership state.
//
// Events are handled independently and concurrently. Correctness under
// duplicate or interleaved deliveries comes from idempotent ensure
// operations, not from locking; no step is retried internally — the
// provider's redelivery policy is the only retry mechanism.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/proleads/SupportLine/internal/escalation"
	"github.com/proleads/SupportLine/internal/models"
	"github.com/proleads/SupportLine/internal/util"
)

// ActivationChecker reports whether a human has taken over an identity.
type ActivationChecker interface {
	IsActive(identity string) bool
}

// ReplyComposer produces the reply text for an inbound question.
type ReplyComposer interface {
	Compose(ctx context.Context, question string) (string, error)
}

// TicketRecorder persists escalation tickets.
type TicketRecorder interface {
	AddTicket(ctx context.Context, t models.EscalationTicket) (string, error)
}

// ThreadState tracks archive and activity markers for threads.
type ThreadState interface {
	Restore(ctx context.Context, conversationSID string) error
	TouchThread(ctx context.Context, conversationSID string, at time.Time) error
}

// RosterSync converges a thread's display name and participant set.
type RosterSync interface {
	EnsureDisplayName(ctx context.Context, conversationSID, name string) error
	EnsureRequiredRoster(ctx context.Context, conversationSID, customerIdentity, botIdentity, agentIdentity string) error
}

// Transport dispatches replies to the customer.
type Transport interface {
	PostMessage(ctx context.Context, conversationSID, author, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

// DefaultReplyDelay is the pause before posting into a thread, a best-effort
// aid that lets provider-side roster changes settle first. Not an ordering
// guarantee.
const DefaultReplyDelay = 3 * time.Second

// Deps bundles the collaborators the orchestrator drives.
type Deps struct {
	Activation ActivationChecker
	Composer   ReplyComposer
	Detector   escalation.Detector
	Tickets    TicketRecorder
	Threads    ThreadState
	Roster     RosterSync
	Transport  Transport
}

// Opts holds orchestrator configuration.
type Opts struct {
	// BotIdentity is the bot's phone number; thread replies are authored as it.
	BotIdentity string
	// AgentIdentity is the internal human agent; their messages never get bot replies.
	AgentIdentity string
	ReplyDelay    time.Duration
}

// Option defines a configuration option for the orchestrator.
type Option func(*Opts)

// WithBotIdentity sets the bot's phone number identity.
func WithBotIdentity(identity string) Option {
	return func(o *Opts) { o.BotIdentity = identity }
}

// WithAgentIdentity sets the internal agent identity.
func WithAgentIdentity(identity string) Option {
	return func(o *Opts) { o.AgentIdentity = identity }
}

// WithReplyDelay sets the pause before posting a thread reply.
func WithReplyDelay(d time.Duration) Option {
	return func(o *Opts) { o.ReplyDelay = d }
}

// Orchestrator composes the decision pipeline per event type.
type Orchestrator struct {
	deps Deps
	cfg  Opts
}

func New(deps Deps, opts ...Option) *Orchestrator {
	cfg := Opts{ReplyDelay: DefaultReplyDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{deps: deps, cfg: cfg}
}

// HandleInboundMessage handles a standalone inbound SMS: gate on activation,
// compose, dispatch, then record an escalation ticket if the reply hedges.
//
// Dispatch happens before the ticket write on purpose: a lost ticket is less
// harmful than a lost reply.
func (o *Orchestrator) HandleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	normalized, err := util.NormalizeIdentity(msg.From)
	if err != nil {
		return err
	}
	slog.Info("Orchestrator.HandleInboundMessage: inbound message", "from", normalized)

	if o.deps.Activation.IsActive(normalized) {
		slog.Info("Orchestrator.HandleInboundMessage: bot inactive for sender, staying silent", "from", normalized)
		return nil
	}

	reply, err := o.deps.Composer.Compose(ctx, msg.Body)
	if err != nil {
		return err
	}

	if err := o.deps.Transport.SendSMS(ctx, msg.From, reply); err != nil {
		return fmt.Errorf("failed to dispatch reply: %w", err)
	}

	if o.deps.Detector.NeedsHuman(reply) {
		if err := o.recordTicket(ctx, msg.Body, reply, normalized); err != nil {
			return err
		}
	}
	return nil
}

// HandleConversationEvent handles a lifecycle event from the conversation
// webhook.
func (o *Orchestrator) HandleConversationEvent(ctx context.Context, ev models.ConversationEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	switch ev.Type {
	case models.EventParticipantAdded:
		return o.handleParticipantAdded(ctx, ev)
	case models.EventMessageAdded:
		return o.handleMessageAdded(ctx, ev)
	default:
		slog.Warn("Orchestrator.HandleConversationEvent: ignoring unknown event type", "event_type", ev.Type)
		return nil
	}
}

// handleParticipantAdded names the thread after the joining customer and
// converges the required roster. No reply is composed.
func (o *Orchestrator) handleParticipantAdded(ctx context.Context, ev models.ConversationEvent) error {
	slog.Info("Orchestrator.handleParticipantAdded: participant joined", "conversation_sid", ev.ConversationSID)

	if ev.Address != "" {
		if err := o.deps.Roster.EnsureDisplayName(ctx, ev.ConversationSID, ev.Address); err != nil {
			return err
		}
	}
	return o.deps.Roster.EnsureRequiredRoster(ctx, ev.ConversationSID, ev.Address, o.cfg.BotIdentity, o.cfg.AgentIdentity)
}

// handleMessageAdded replies inside the thread unless the author is the
// agent, the bot itself, or a sender the bot is suppressed for.
func (o *Orchestrator) handleMessageAdded(ctx context.Context, ev models.ConversationEvent) error {
	if ev.Author == o.cfg.AgentIdentity {
		slog.Info("Orchestrator.handleMessageAdded: message from agent, no reply", "conversation_sid", ev.ConversationSID)
		return nil
	}
	if ev.Author == o.cfg.BotIdentity {
		// The bot's own thread posts come back through this webhook too.
		slog.Debug("Orchestrator.handleMessageAdded: message from bot, no reply", "conversation_sid", ev.ConversationSID)
		return nil
	}

	normalized, err := util.NormalizeIdentity(ev.Author)
	if err != nil {
		slog.Warn("Orchestrator.handleMessageAdded: non-phone author, no reply", "conversation_sid", ev.ConversationSID, "author", ev.Author)
		return nil
	}

	if err := o.deps.Roster.EnsureDisplayName(ctx, ev.ConversationSID, ev.Author); err != nil {
		return err
	}

	if o.deps.Activation.IsActive(normalized) {
		slog.Info("Orchestrator.handleMessageAdded: bot inactive for sender, staying silent", "from", normalized)
		return nil
	}
	if ev.Body == "" {
		slog.Debug("Orchestrator.handleMessageAdded: empty body, nothing to answer", "conversation_sid", ev.ConversationSID)
		return nil
	}

	reply, err := o.deps.Composer.Compose(ctx, ev.Body)
	if err != nil {
		return err
	}

	// The roster must hold {customer, bot, agent} before the reply lands so
	// every required party sees it.
	if err := o.deps.Roster.EnsureRequiredRoster(ctx, ev.ConversationSID, ev.Author, o.cfg.BotIdentity, o.cfg.AgentIdentity); err != nil {
		return err
	}

	if err := o.waitReplyDelay(ctx); err != nil {
		return err
	}
	if err := o.deps.Transport.PostMessage(ctx, ev.ConversationSID, o.cfg.BotIdentity, reply); err != nil {
		return fmt.Errorf("failed to dispatch reply: %w", err)
	}

	if o.deps.Detector.NeedsHuman(reply) {
		if err := o.recordTicket(ctx, ev.Body, reply, normalized); err != nil {
			return err
		}
	}

	// New activity reopens the thread for the agent front end.
	if err := o.deps.Threads.TouchThread(ctx, ev.ConversationSID, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	if err := o.deps.Threads.Restore(ctx, ev.ConversationSID); err != nil {
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	return nil
}

func (o *Orchestrator) recordTicket(ctx context.Context, question, answer, from string) error {
	id, err := o.deps.Tickets.AddTicket(ctx, models.EscalationTicket{
		Question: question,
		Answer:   answer,
		From:     from,
		Open:     true,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	slog.Info("Orchestrator: escalation ticket recorded", "ticket_id", id, "from", from)
	return nil
}

// waitReplyDelay pauses before a thread post so provider-side roster changes
// settle. Context cancellation aborts the wait.
func (o *Orchestrator) waitReplyDelay(ctx context.Context) error {
	if o.cfg.ReplyDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(o.cfg.ReplyDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
