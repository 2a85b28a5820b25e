package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
	"launch-radar/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTracker() (*Tracker, *memory.AssetStore, *memory.NewsStore) {
	assets := memory.NewAssetStore()
	news := memory.NewNewsStore()
	pubs := memory.NewPublicationStore(assets, news)
	return NewTracker(pubs, assets, news, quietLogger()), assets, news
}

func seedAsset(t *testing.T, store *memory.AssetStore, id, symbol string, launchedAt int64) *domain.Asset {
	t.Helper()
	a := &domain.Asset{
		ID:         id,
		Symbol:     symbol,
		Chain:      domain.ChainBase,
		Address:    "0x" + id,
		Source:     "liquidity-added",
		LaunchedAt: launchedAt,
	}
	if err := store.Insert(context.Background(), a); err != nil {
		t.Fatalf("seed asset %s: %v", id, err)
	}
	return a
}

func seedNews(t *testing.T, store *memory.NewsStore, id, title string, publishedAt int64) *domain.NewsItem {
	t.Helper()
	n := &domain.NewsItem{
		ID:          id,
		Title:       title,
		TitleKey:    domain.NormalizeTitle(title),
		Chain:       domain.ChainGeneral,
		Source:      "cryptopanic",
		PublishedAt: publishedAt,
	}
	if err := store.Insert(context.Background(), n); err != nil {
		t.Fatalf("seed news %s: %v", id, err)
	}
	return n
}

func TestRecordSent_ChannelSetsPosted(t *testing.T) {
	ctx := context.Background()
	tracker, assets, _ := newTestTracker()
	seedAsset(t, assets, "a1", "TKN", 100)

	dest := domain.Destination{Class: domain.DestChannel, ID: "100"}
	if err := tracker.RecordSent(ctx, domain.KindLaunch, "a1", dest, "msg-1"); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}

	got, err := assets.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Posted {
		t.Error("a channel send must set the posted flag")
	}
}

func TestRecordSent_GroupLeavesPostedAlone(t *testing.T) {
	ctx := context.Background()
	tracker, assets, _ := newTestTracker()
	seedAsset(t, assets, "a1", "TKN", 100)

	dest := domain.Destination{Class: domain.DestGroup, ID: "200"}
	if err := tracker.RecordSent(ctx, domain.KindLaunch, "a1", dest, "msg-1"); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}

	got, err := assets.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Posted {
		t.Error("group sends must not touch the posted flag")
	}
}

func TestRecordSent_NewsChannelSetsPosted(t *testing.T) {
	ctx := context.Background()
	tracker, _, news := newTestTracker()
	seedNews(t, news, "n1", "Big Headline", 100)

	dest := domain.Destination{Class: domain.DestChannel, ID: "100"}
	if err := tracker.RecordSent(ctx, domain.KindNews, "n1", dest, "msg-2"); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}

	got, err := news.GetByID(ctx, "n1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Posted {
		t.Error("a channel send must set the posted flag")
	}
}

func TestRecordSent_DuplicateFactSurfacesSentinel(t *testing.T) {
	ctx := context.Background()
	tracker, assets, _ := newTestTracker()
	seedAsset(t, assets, "a1", "TKN", 100)

	dest := domain.Destination{Class: domain.DestChannel, ID: "100"}
	if err := tracker.RecordSent(ctx, domain.KindLaunch, "a1", dest, "msg-1"); err != nil {
		t.Fatalf("first RecordSent: %v", err)
	}

	err := tracker.RecordSent(ctx, domain.KindLaunch, "a1", dest, "msg-9")
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey for a repeated fact, got %v", err)
	}
}

func TestRecordSent_ClassesAreIndependent(t *testing.T) {
	ctx := context.Background()
	tracker, assets, _ := newTestTracker()
	seedAsset(t, assets, "a1", "TKN", 100)

	channel := domain.Destination{Class: domain.DestChannel, ID: "100"}
	group := domain.Destination{Class: domain.DestGroup, ID: "200"}
	if err := tracker.RecordSent(ctx, domain.KindLaunch, "a1", channel, "msg-1"); err != nil {
		t.Fatalf("channel RecordSent: %v", err)
	}
	if err := tracker.RecordSent(ctx, domain.KindLaunch, "a1", group, "msg-2"); err != nil {
		t.Fatalf("group send must record its own fact, got %v", err)
	}
}

func TestRecordSent_InvalidKind(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker()

	dest := domain.Destination{Class: domain.DestChannel, ID: "100"}
	err := tracker.RecordSent(ctx, domain.ContentKind("bogus"), "a1", dest, "msg-1")
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecordSent_MissingItemStillRecordsFact(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker()

	// The item vanished between select and record; the fact still lands,
	// posted flag failure is only logged.
	dest := domain.Destination{Class: domain.DestChannel, ID: "100"}
	if err := tracker.RecordSent(ctx, domain.KindLaunch, "ghost", dest, "msg-1"); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
}

func TestSelectUnsent_ExcludesRecorded(t *testing.T) {
	ctx := context.Background()
	tracker, assets, _ := newTestTracker()
	seedAsset(t, assets, "a1", "OLD", 100)
	seedAsset(t, assets, "a2", "NEW", 200)

	dest := domain.Destination{Class: domain.DestChannel, ID: "100"}
	if err := tracker.RecordSent(ctx, domain.KindLaunch, "a2", dest, "msg-1"); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}

	unsent, err := tracker.SelectUnsentAssets(ctx, domain.DestChannel, 10)
	if err != nil {
		t.Fatalf("SelectUnsentAssets: %v", err)
	}
	if len(unsent) != 1 || unsent[0].ID != "a1" {
		t.Fatalf("expected only the unsent asset, got %+v", unsent)
	}

	// The other class still sees both.
	groupUnsent, err := tracker.SelectUnsentAssets(ctx, domain.DestGroup, 10)
	if err != nil {
		t.Fatalf("SelectUnsentAssets: %v", err)
	}
	if len(groupUnsent) != 2 {
		t.Fatalf("group class must be unaffected, got %d items", len(groupUnsent))
	}
}
