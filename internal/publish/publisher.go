package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"launch-radar/internal/domain"
	"launch-radar/internal/observability"
	"launch-radar/internal/storage"
)

// DefaultBatchLimit bounds how many items one destination receives per
// cycle.
const DefaultBatchLimit = 10

// Report sums one publish cycle.
type Report struct {
	Sent    int
	Skipped int
	Failed  int
}

// Add merges another report into this one and returns the sum.
func (r Report) Add(o Report) Report {
	return Report{
		Sent:    r.Sent + o.Sent,
		Skipped: r.Skipped + o.Skipped,
		Failed:  r.Failed + o.Failed,
	}
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	Tracker      *Tracker
	Sender       Sender
	Destinations []domain.Destination
	BatchLimit   int
	Logger       *slog.Logger
}

// Publisher walks the configured destinations and announces whatever the
// tracker still considers unsent. Facts are recorded only after a
// confirmed send, so a failed item is simply retried next cycle.
type Publisher struct {
	tracker      *Tracker
	sender       Sender
	destinations []domain.Destination
	batchLimit   int
	log          *slog.Logger
}

func NewPublisher(opts PublisherOptions) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchLimit := opts.BatchLimit
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	return &Publisher{
		tracker:      opts.Tracker,
		sender:       opts.Sender,
		destinations: opts.Destinations,
		batchLimit:   batchLimit,
		log:          logger.With("component", "publisher"),
	}
}

// PublishLaunches announces unsent launches to every destination. The
// error case is every destination failing outright; anything less is
// reported in counts.
func (p *Publisher) PublishLaunches(ctx context.Context) (Report, error) {
	var report Report
	var destErrs []error

	for _, dest := range p.destinations {
		assets, err := p.tracker.SelectUnsentAssets(ctx, dest.Class, p.batchLimit)
		if err != nil {
			destErrs = append(destErrs, fmt.Errorf("%s: %w", dest.Class, err))
			p.log.Error("selecting unsent launches failed", "class", dest.Class, "error", err)
			continue
		}

		for _, a := range assets {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report = report.Add(p.deliver(ctx, dest, domain.KindLaunch, a.ID, FormatLaunch(a)))
		}
	}

	if len(p.destinations) > 0 && len(destErrs) == len(p.destinations) {
		return report, fmt.Errorf("publish launches: all destinations failed: %w", errors.Join(destErrs...))
	}
	return report, nil
}

// PublishNews announces unsent news items to every destination.
func (p *Publisher) PublishNews(ctx context.Context) (Report, error) {
	var report Report
	var destErrs []error

	for _, dest := range p.destinations {
		items, err := p.tracker.SelectUnsentNews(ctx, dest.Class, p.batchLimit)
		if err != nil {
			destErrs = append(destErrs, fmt.Errorf("%s: %w", dest.Class, err))
			p.log.Error("selecting unsent news failed", "class", dest.Class, "error", err)
			continue
		}

		for _, n := range items {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report = report.Add(p.deliver(ctx, dest, domain.KindNews, n.ID, FormatNews(n)))
		}
	}

	if len(p.destinations) > 0 && len(destErrs) == len(p.destinations) {
		return report, fmt.Errorf("publish news: all destinations failed: %w", errors.Join(destErrs...))
	}
	return report, nil
}

// deliver sends one item to one destination and records the fact. A send
// failure leaves no fact behind, keeping the item eligible next cycle.
func (p *Publisher) deliver(ctx context.Context, dest domain.Destination, kind domain.ContentKind, itemID, text string) Report {
	messageID, err := p.sender.Send(ctx, dest, text)
	if err != nil {
		p.log.Warn("send failed, will retry next cycle",
			"kind", kind, "item_id", itemID, "class", dest.Class, "error", err)
		observability.RecordSendFailure()
		return Report{Failed: 1}
	}

	if err := p.tracker.RecordSent(ctx, kind, itemID, dest, messageID); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordAlreadySent()
			return Report{Skipped: 1}
		}
		p.log.Error("send succeeded but fact write failed",
			"kind", kind, "item_id", itemID, "class", dest.Class, "error", err)
		observability.RecordSendFailure()
		return Report{Failed: 1}
	}

	p.log.Info("published", "kind", kind, "item_id", itemID, "class", dest.Class, "message_id", messageID)
	observability.RecordPublished(kind.String(), dest.Class.String())
	return Report{Sent: 1}
}
