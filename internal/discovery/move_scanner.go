package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"launch-radar/internal/domain"
	"launch-radar/internal/recordid"
	"launch-radar/internal/sui"
)

// Default Move event paging geometry.
const (
	DefaultMovePageSize = 50
	DefaultMoveMaxPages = 4
)

// MoveClient is the Sui RPC surface the scanner needs.
type MoveClient interface {
	QueryEvents(ctx context.Context, filter any, cursor *sui.EventID, limit int, descending bool) (*sui.EventPage, error)
}

// MovePackage is a DEX package watched on Sui. EventTypes lists the launch
// event types the package emits; they drive the per-type fallback queries.
type MovePackage struct {
	ID         string
	Label      string
	EventTypes []string
}

// MoveScannerOptions configures a MoveScanner.
type MoveScannerOptions struct {
	Client      MoveClient
	Packages    []MovePackage
	QuoteCoins  map[string]string // coin type -> symbol, excluded as "the traded coin"
	ScanHorizon time.Duration
	PageSize    int
	MaxPages    int
	Logger      *slog.Logger
}

// MoveScanner finds pool creation events on Sui. The primary path is one
// time-windowed query over the global event index; when that query fails it
// falls back to per-package, per-event-type queries filtered client side.
type MoveScanner struct {
	client     MoveClient
	packages   []MovePackage
	quoteCoins map[string]string
	horizon    time.Duration
	pageSize   int
	maxPages   int
	log        *slog.Logger

	nowFn func() time.Time
}

func NewMoveScanner(opts MoveScannerOptions) *MoveScanner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultMovePageSize
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMoveMaxPages
	}
	horizon := opts.ScanHorizon
	if horizon <= 0 {
		horizon = DefaultScanHorizon
	}

	quotes := make(map[string]string, len(opts.QuoteCoins))
	for ct, sym := range opts.QuoteCoins {
		quotes[strings.ToLower(ct)] = sym
	}

	return &MoveScanner{
		client:     opts.Client,
		packages:   opts.Packages,
		quoteCoins: quotes,
		horizon:    horizon,
		pageSize:   pageSize,
		maxPages:   maxPages,
		log:        logger.With("component", "move_scanner", "chain", domain.ChainSui),
		nowFn:      time.Now,
	}
}

// Scan queries the recent event window and returns the launches it could
// decode, most recent first. The fallback path runs only when the primary
// time-range query itself failed, never when it merely came back empty.
func (s *MoveScanner) Scan(ctx context.Context) ([]*domain.Asset, error) {
	endMs := s.nowFn().UnixMilli()
	startMs := endMs - s.horizon.Milliseconds()

	events, primaryErr := s.queryTimeRange(ctx, startMs, endMs)
	if primaryErr != nil {
		s.log.Warn("time-range query failed, falling back to per-type queries", "error", primaryErr)
		var fallbackErr error
		events, fallbackErr = s.queryPerEventType(ctx, startMs, endMs)
		if fallbackErr != nil {
			return nil, fmt.Errorf("sui events: %w", fallbackErr)
		}
	}

	var assets []*domain.Asset
	for _, ev := range events {
		asset, err := s.decodeEvent(ev)
		if err != nil {
			s.log.Warn("skipping event", "type", ev.Type, "tx", ev.ID.TxDigest, "error", err)
			continue
		}
		assets = append(assets, asset)
	}

	assets = DedupeAssets(assets)
	SortAssetsByLaunch(assets)

	s.log.Info("move scan complete", "events", len(events), "assets", len(assets))
	return assets, nil
}

// queryTimeRange pages through the global time-window index and keeps the
// events emitted by a watched package. A failure on the first page fails
// the whole query; later page failures keep what was already fetched.
func (s *MoveScanner) queryTimeRange(ctx context.Context, startMs, endMs int64) ([]sui.Event, error) {
	filter := sui.NewTimeRangeFilter(startMs, endMs)

	var (
		matched []sui.Event
		cursor  *sui.EventID
	)
	for page := 0; page < s.maxPages; page++ {
		result, err := s.client.QueryEvents(ctx, filter, cursor, s.pageSize, true)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			s.log.Warn("time-range page failed, keeping earlier pages", "page", page, "error", err)
			break
		}
		for _, ev := range result.Data {
			if s.matchesWatchedPackage(ev) {
				matched = append(matched, ev)
			}
		}
		if !result.HasNextPage || result.NextCursor == nil {
			break
		}
		cursor = result.NextCursor
	}
	return matched, nil
}

// queryPerEventType issues one query per configured event type. It fails
// only when every single query failed; any answered query, even an empty
// one, counts as a usable result.
func (s *MoveScanner) queryPerEventType(ctx context.Context, startMs, endMs int64) ([]sui.Event, error) {
	var (
		events  []sui.Event
		queries int
		failed  int
	)
	for _, pkg := range s.packages {
		for _, eventType := range pkg.EventTypes {
			queries++
			result, err := s.client.QueryEvents(ctx, sui.NewMoveEventTypeFilter(eventType), nil, s.pageSize, true)
			if err != nil {
				failed++
				s.log.Warn("event-type query failed", "package", pkg.Label, "event_type", eventType, "error", err)
				continue
			}
			for _, ev := range result.Data {
				ms, err := ev.TimeMs()
				if err != nil || ms < startMs || ms > endMs {
					continue
				}
				events = append(events, ev)
			}
		}
	}
	if queries == 0 {
		return nil, fmt.Errorf("no event types configured for fallback")
	}
	if failed == queries {
		return nil, fmt.Errorf("all %d fallback queries failed", failed)
	}
	return events, nil
}

func (s *MoveScanner) matchesWatchedPackage(ev sui.Event) bool {
	for _, pkg := range s.packages {
		if strings.EqualFold(ev.PackageID, pkg.ID) || strings.HasPrefix(ev.Type, pkg.ID+"::") {
			if len(pkg.EventTypes) == 0 {
				return true
			}
			for _, want := range pkg.EventTypes {
				if eventTypeMatches(ev.Type, want) {
					return true
				}
			}
		}
	}
	return false
}

// eventTypeMatches accepts both fully qualified types and bare
// module::Event suffixes in configuration.
func eventTypeMatches(evType, want string) bool {
	return evType == want || strings.HasSuffix(evType, want)
}

// decodeEvent turns one Move event into an Asset. Events whose payload
// exposes neither a coin type nor a pool identity are discarded. A missing
// or malformed timestamp degrades to the scan time rather than a failure.
func (s *MoveScanner) decodeEvent(ev sui.Event) (*domain.Asset, error) {
	payload, err := decodeMovePayload(ev.ParsedJSON)
	if err != nil {
		return nil, err
	}

	traded := s.pickTradedCoin(payload.CoinTypes)

	address := payload.Address
	if address == "" {
		address = traded
	}
	if address == "" {
		return nil, fmt.Errorf("payload has no on-chain identity")
	}

	symbol := CoinSymbol(traded)
	if symbol == "" {
		symbol = syntheticSymbol(ev.Type, ev.ID.TxDigest)
	}

	launchedAt, err := ev.TimeMs()
	if err != nil {
		launchedAt = s.nowFn().UnixMilli()
	}

	address = strings.ToLower(address)
	return &domain.Asset{
		ID:         recordid.ForAsset(domain.ChainSui, address),
		Symbol:     symbol,
		Name:       symbol,
		Chain:      domain.ChainSui,
		Address:    address,
		Source:     StrategyMoveEvents,
		LaunchedAt: launchedAt,
		CreatedAt:  s.nowFn().UnixMilli(),
	}, nil
}

// pickTradedCoin chooses the non-quote coin of a pair; a pair of two quote
// coins falls back to the first.
func (s *MoveScanner) pickTradedCoin(coinTypes []string) string {
	for _, ct := range coinTypes {
		if ct == "" {
			continue
		}
		if _, quote := s.quoteCoins[strings.ToLower(ct)]; !quote {
			return ct
		}
	}
	if len(coinTypes) > 0 {
		return coinTypes[0]
	}
	return ""
}
