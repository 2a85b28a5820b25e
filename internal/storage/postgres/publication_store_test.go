package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

func insertTestAsset(t *testing.T, store *AssetStore, id string, launchedAt int64) {
	t.Helper()
	err := store.Insert(context.Background(), &domain.Asset{
		ID:         id,
		Symbol:     "TST",
		Chain:      domain.ChainBase,
		Address:    "0x" + id,
		Source:     "liquidity-added",
		LaunchedAt: launchedAt,
	})
	require.NoError(t, err)
}

func insertTestNews(t *testing.T, store *NewsStore, id string, publishedAt int64) {
	t.Helper()
	err := store.Insert(context.Background(), &domain.NewsItem{
		ID:          id,
		Title:       "Story " + id,
		TitleKey:    "story " + id,
		Source:      "newsapi",
		PublishedAt: publishedAt,
	})
	require.NoError(t, err)
}

func TestPublicationStore_InsertAndExists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublicationStore(pool)
	ctx := context.Background()

	pub := &domain.Publication{
		ID:               "pub-001",
		Kind:             domain.KindLaunch,
		ItemID:           "asset-001",
		DestinationClass: domain.DestChannel,
		DestinationID:    "-100123",
		MessageID:        "msg-42",
		SentAt:           1700000000000,
	}

	err := store.Insert(ctx, pub)
	require.NoError(t, err)

	exists, err := store.Exists(ctx, domain.KindLaunch, "asset-001", domain.DestChannel)
	require.NoError(t, err)
	assert.True(t, exists)

	// Other class is tracked independently
	exists, err = store.Exists(ctx, domain.KindLaunch, "asset-001", domain.DestGroup)
	require.NoError(t, err)
	assert.False(t, exists)

	// Other kind does not collide
	exists, err = store.Exists(ctx, domain.KindNews, "asset-001", domain.DestChannel)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPublicationStore_FactIsAtMostOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublicationStore(pool)
	ctx := context.Background()

	first := &domain.Publication{
		ID:               "pub-first",
		Kind:             domain.KindNews,
		ItemID:           "news-001",
		DestinationClass: domain.DestChannel,
		SentAt:           1700000000000,
	}
	require.NoError(t, store.Insert(ctx, first))

	// Second fact for the same triple loses, regardless of its own ID
	second := &domain.Publication{
		ID:               "pub-second",
		Kind:             domain.KindNews,
		ItemID:           "news-001",
		DestinationClass: domain.DestChannel,
		SentAt:           1700000100000,
	}
	err := store.Insert(ctx, second)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same item to the other class is a new fact
	other := &domain.Publication{
		ID:               "pub-other-class",
		Kind:             domain.KindNews,
		ItemID:           "news-001",
		DestinationClass: domain.DestGroup,
		SentAt:           1700000200000,
	}
	require.NoError(t, store.Insert(ctx, other))
}

func TestPublicationStore_ListUnsentAssets(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	assets := NewAssetStore(pool)
	store := NewPublicationStore(pool)
	ctx := context.Background()

	insertTestAsset(t, assets, "asset-a", 1700000000000)
	insertTestAsset(t, assets, "asset-b", 1700000200000)
	insertTestAsset(t, assets, "asset-c", 1700000100000)

	// Record a channel fact for the newest asset
	require.NoError(t, store.Insert(ctx, &domain.Publication{
		ID:               "pub-b",
		Kind:             domain.KindLaunch,
		ItemID:           "asset-b",
		DestinationClass: domain.DestChannel,
		SentAt:           1700000300000,
	}))

	// Channel no longer sees asset-b; newest remaining first
	unsent, err := store.ListUnsentAssets(ctx, domain.DestChannel, 10)
	require.NoError(t, err)
	require.Len(t, unsent, 2)
	assert.Equal(t, "asset-c", unsent[0].ID)
	assert.Equal(t, "asset-a", unsent[1].ID)

	// Group still sees all three
	unsent, err = store.ListUnsentAssets(ctx, domain.DestGroup, 10)
	require.NoError(t, err)
	require.Len(t, unsent, 3)
	assert.Equal(t, "asset-b", unsent[0].ID)

	// Limit bounds the batch
	unsent, err = store.ListUnsentAssets(ctx, domain.DestGroup, 1)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, "asset-b", unsent[0].ID)
}

func TestPublicationStore_ListUnsentNews(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	news := NewNewsStore(pool)
	store := NewPublicationStore(pool)
	ctx := context.Background()

	insertTestNews(t, news, "news-a", 1700000000000)
	insertTestNews(t, news, "news-b", 1700000200000)

	require.NoError(t, store.Insert(ctx, &domain.Publication{
		ID:               "pub-news-b",
		Kind:             domain.KindNews,
		ItemID:           "news-b",
		DestinationClass: domain.DestChannel,
		SentAt:           1700000300000,
	}))

	unsent, err := store.ListUnsentNews(ctx, domain.DestChannel, 10)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, "news-a", unsent[0].ID)

	unsent, err = store.ListUnsentNews(ctx, domain.DestGroup, 10)
	require.NoError(t, err)
	assert.Len(t, unsent, 2)
}

func TestPublicationStore_LaunchFactDoesNotHideNews(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	news := NewNewsStore(pool)
	store := NewPublicationStore(pool)
	ctx := context.Background()

	// A news item sharing an ID with a launch fact must still be listed:
	// the anti-join keys on kind as well as item id.
	insertTestNews(t, news, "shared-id", 1700000000000)

	require.NoError(t, store.Insert(ctx, &domain.Publication{
		ID:               "pub-launch-shared",
		Kind:             domain.KindLaunch,
		ItemID:           "shared-id",
		DestinationClass: domain.DestChannel,
		SentAt:           1700000100000,
	}))

	unsent, err := store.ListUnsentNews(ctx, domain.DestChannel, 10)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, "shared-id", unsent[0].ID)
}

func TestPublicationStore_InsertInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublicationStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.Publication{ID: "pub-no-item", Kind: domain.KindLaunch})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
