package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/room"
)

// ArchiveWorker periodically retries durable saves for ended sessions still in the pending set.
type ArchiveWorker struct {
	store    *room.Store
	archive  Archive
	logger   zerolog.Logger
	interval time.Duration
	batch    int
}

func NewArchiveWorker(store *room.Store, archive Archive, interval time.Duration, batch int, logger zerolog.Logger) *ArchiveWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	return &ArchiveWorker{
		store:    store,
		archive:  archive,
		logger:   logger.With().Str("component", "archive_worker").Logger(),
		interval: interval,
		batch:    batch,
	}
}

// Run blocks until context cancellation.
func (w *ArchiveWorker) Run(ctx context.Context) error {
	if w.store == nil || w.archive == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep saves one batch of pending snapshots and returns how many were archived.
func (w *ArchiveWorker) Sweep(ctx context.Context) int {
	ids, err := w.store.PendingArchive(ctx, w.batch)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to list pending archive")
		return 0
	}

	saved := 0
	for _, id := range ids {
		if err := w.archiveOne(ctx, id); err != nil {
			archiveFailuresTotal.WithLabelValues("sweep").Inc()
			w.logger.Warn().Err(err).Str("session_id", id).Msg("archive retry failed")
			continue
		}
		saved++
	}
	if saved > 0 {
		w.logger.Info().Int("saved", saved).Int("pending", len(ids)).Msg("archive sweep")
	}
	return saved
}

func (w *ArchiveWorker) archiveOne(ctx context.Context, sessionID string) error {
	snap, err := w.store.ArchivedSnapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	if snap == nil {
		// Snapshot is gone; nothing left to save.
		return w.store.MarkArchived(ctx, sessionID)
	}

	saveCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	if err := w.archive.SaveFinishedSession(saveCtx, *snap); err != nil {
		return err
	}
	return w.store.MarkArchived(ctx, sessionID)
}
