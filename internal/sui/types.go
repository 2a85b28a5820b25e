package sui

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventID identifies one event: the transaction digest plus the event's
// sequence number within it. Also used as the paging cursor.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event is one entry returned by suix_queryEvents. ParsedJSON is kept raw:
// its shape varies per package and is probed downstream.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson"`
	TimestampMs       string          `json:"timestampMs"`
}

// TimeMs returns the event emission time in Unix milliseconds.
func (e *Event) TimeMs() (int64, error) {
	if e.TimestampMs == "" {
		return 0, fmt.Errorf("event %s has no timestamp", e.ID.TxDigest)
	}
	ms, err := strconv.ParseInt(e.TimestampMs, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse event timestamp %q: %w", e.TimestampMs, err)
	}
	return ms, nil
}

// EventPage is one page of query results.
type EventPage struct {
	Data        []Event  `json:"data"`
	NextCursor  *EventID `json:"nextCursor"`
	HasNextPage bool     `json:"hasNextPage"`
}

// TimeRangeFilter selects events emitted within [StartTime, EndTime).
// Times are Unix milliseconds encoded as decimal strings, per the RPC's
// u64 convention.
type TimeRangeFilter struct {
	TimeRange TimeRange `json:"TimeRange"`
}

// TimeRange is the inner window of a TimeRangeFilter.
type TimeRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// NewTimeRangeFilter builds a TimeRangeFilter from millisecond bounds.
func NewTimeRangeFilter(startMs, endMs int64) TimeRangeFilter {
	return TimeRangeFilter{TimeRange: TimeRange{
		StartTime: strconv.FormatInt(startMs, 10),
		EndTime:   strconv.FormatInt(endMs, 10),
	}}
}

// MoveEventTypeFilter selects events by fully-qualified type, e.g.
// "0xpkg::factory::PoolCreated".
type MoveEventTypeFilter struct {
	MoveEventType string `json:"MoveEventType"`
}

// NewMoveEventTypeFilter builds a MoveEventTypeFilter.
func NewMoveEventTypeFilter(eventType string) MoveEventTypeFilter {
	return MoveEventTypeFilter{MoveEventType: eventType}
}
