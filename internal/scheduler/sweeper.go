package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/proleads/SupportLine/internal/store"
)

// ArchiveSweeper parks threads with no recent activity so the agent front
// end only shows live conversations. A new inbound message un-archives the
// thread again.
type ArchiveSweeper struct {
	activity store.ActivityStore
	archives store.ArchiveStore
	maxIdle  time.Duration
}

func NewArchiveSweeper(activity store.ActivityStore, archives store.ArchiveStore, maxIdle time.Duration) *ArchiveSweeper {
	return &ArchiveSweeper{activity: activity, archives: archives, maxIdle: maxIdle}
}

// Sweep archives every thread idle longer than the configured window.
func (s *ArchiveSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.maxIdle)
	stale, err := s.activity.StaleThreads(ctx, cutoff)
	if err != nil {
		slog.Error("ArchiveSweeper.Sweep: failed to list stale threads", "error", err)
		return err
	}
	for _, sid := range stale {
		if err := s.archives.Archive(ctx, sid); err != nil {
			slog.Error("ArchiveSweeper.Sweep: failed to archive thread", "error", err, "conversation_sid", sid)
			return err
		}
		slog.Info("ArchiveSweeper.Sweep: thread archived", "conversation_sid", sid)
	}
	slog.Debug("ArchiveSweeper.Sweep: sweep complete", "archived", len(stale))
	return nil
}
