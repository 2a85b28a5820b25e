package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// Tracker guards the at-most-once publication guarantee. A fact is written
// only after a confirmed send, and the store's uniqueness constraint on
// (kind, item, destination class) is the actual dedup boundary.
type Tracker struct {
	store  storage.PublicationStore
	assets storage.AssetStore
	news   storage.NewsStore
	log    *slog.Logger
}

func NewTracker(store storage.PublicationStore, assets storage.AssetStore, news storage.NewsStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		assets: assets,
		news:   news,
		log:    logger.With("component", "publication_tracker"),
	}
}

// SelectUnsentAssets returns up to limit launches lacking a fact for the
// class, newest first.
func (t *Tracker) SelectUnsentAssets(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.Asset, error) {
	return t.store.ListUnsentAssets(ctx, class, limit)
}

// SelectUnsentNews returns up to limit news items lacking a fact for the
// class, newest first.
func (t *Tracker) SelectUnsentNews(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.NewsItem, error) {
	return t.store.ListUnsentNews(ctx, class, limit)
}

// RecordSent persists the fact that itemID reached dest. A concurrent
// cycle winning the insert surfaces as storage.ErrDuplicateKey; callers
// count it as already-sent. Channel sends also set the item's Posted flag,
// group sends never touch it.
func (t *Tracker) RecordSent(ctx context.Context, kind domain.ContentKind, itemID string, dest domain.Destination, messageID string) error {
	if !kind.IsValid() {
		return fmt.Errorf("record sent: %w: kind %q", storage.ErrInvalidInput, kind)
	}

	fact := &domain.Publication{
		ID:               uuid.NewString(),
		Kind:             kind,
		ItemID:           itemID,
		DestinationClass: dest.Class,
		DestinationID:    dest.ID,
		MessageID:        messageID,
		SentAt:           time.Now().UnixMilli(),
	}
	if err := t.store.Insert(ctx, fact); err != nil {
		return err
	}

	if dest.Class == domain.DestChannel {
		t.markPosted(ctx, kind, itemID)
	}
	return nil
}

// markPosted failures are logged, not returned: the flag is convenience,
// the fact is already durable.
func (t *Tracker) markPosted(ctx context.Context, kind domain.ContentKind, itemID string) {
	var err error
	switch kind {
	case domain.KindLaunch:
		err = t.assets.MarkPosted(ctx, itemID)
	case domain.KindNews:
		err = t.news.MarkPosted(ctx, itemID)
	}
	if err != nil {
		t.log.Warn("failed to set posted flag", "kind", kind, "item_id", itemID, "error", err)
	}
}
