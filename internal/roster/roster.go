// Package roster keeps a conversation thread's participant set and display
// name converged to the required state.
//
// Webhook deliveries are retried and may interleave, so every operation is
// an idempotent "ensure": check first, create only if absent, and treat the
// provider's already-exists answer as success when the check-then-act
// sequence races with a duplicate delivery.
package roster

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/proleads/SupportLine/internal/models"
	"github.com/proleads/SupportLine/internal/twilioconvo"
)

// Synchronizer converges thread state through the conversation directory.
type Synchronizer struct {
	api twilioconvo.ConversationAPI
}

func NewSynchronizer(api twilioconvo.ConversationAPI) *Synchronizer {
	return &Synchronizer{api: api}
}

// EnsureDisplayName sets the thread's display name only if currently unset.
// A non-empty name is never overwritten, and a blank name is never written.
func (s *Synchronizer) EnsureDisplayName(ctx context.Context, conversationSID, name string) error {
	if name == "" {
		return nil
	}
	current, err := s.api.FriendlyName(ctx, conversationSID)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrDirectory, err)
	}
	if current != "" {
		return nil
	}
	if err := s.api.SetFriendlyName(ctx, conversationSID, name); err != nil {
		return fmt.Errorf("%w: %w", models.ErrDirectory, err)
	}
	slog.Debug("Synchronizer.EnsureDisplayName: name set", "conversation_sid", conversationSID)
	return nil
}

// EnsureParticipant makes the identity present in the thread. Safe to call
// repeatedly and concurrently for the same (conversation, identity) pair.
func (s *Synchronizer) EnsureParticipant(ctx context.Context, conversationSID, identity, displayName string) error {
	identities, err := s.api.ParticipantIdentities(ctx, conversationSID)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrDirectory, err)
	}
	for _, id := range identities {
		if id == identity {
			return nil
		}
	}

	if err := s.api.AddParticipant(ctx, conversationSID, identity, displayName); err != nil {
		if twilioconvo.IsAlreadyExists(err) {
			// A concurrent delivery won the create race; the desired state holds.
			slog.Debug("Synchronizer.EnsureParticipant: participant already exists", "conversation_sid", conversationSID, "identity", identity)
			return nil
		}
		return fmt.Errorf("%w: %w", models.ErrDirectory, err)
	}
	slog.Debug("Synchronizer.EnsureParticipant: participant created", "conversation_sid", conversationSID, "identity", identity)
	return nil
}

// EnsureRequiredRoster makes {customer, bot, agent} a subset of the thread's
// participants. Customer first, so the joining customer shows up in the
// agent's view with the least delay.
func (s *Synchronizer) EnsureRequiredRoster(ctx context.Context, conversationSID, customerIdentity, botIdentity, agentIdentity string) error {
	for _, identity := range []string{customerIdentity, botIdentity, agentIdentity} {
		if identity == "" {
			continue
		}
		if err := s.EnsureParticipant(ctx, conversationSID, identity, identity); err != nil {
			return err
		}
	}
	return nil
}
