package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"launch-radar/internal/domain"
	"launch-radar/internal/recordid"
)

// LiveFeedOptions configures the websocket headline feed.
type LiveFeedOptions struct {
	URL               string
	BufferSize        int
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	Logger            *slog.Logger
}

const defaultLiveFeedBuffer = 256

// LiveFeed keeps a websocket connection to a push headline feed and buffers
// whatever arrives between scheduled news sweeps. The buffer is bounded;
// when full the oldest headline is dropped, the sweeps only want recent
// material anyway. Reconnects use doubling delays up to a cap.
type LiveFeed struct {
	endpoint          string
	bufferSize        int
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	pingInterval      time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	log               *slog.Logger

	conn         *websocket.Conn
	connMu       sync.Mutex
	closed       atomic.Bool
	reconnecting atomic.Bool
	done         chan struct{}
	wg           sync.WaitGroup

	mu      sync.Mutex
	buffer  []*domain.NewsItem
	dropped uint64
}

// NewLiveFeed creates the feed without connecting; call Start to connect.
func NewLiveFeed(opts LiveFeedOptions) *LiveFeed {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultLiveFeedBuffer
	}
	reconnectDelay := opts.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	maxReconnectDelay := opts.MaxReconnectDelay
	if maxReconnectDelay <= 0 {
		maxReconnectDelay = 30 * time.Second
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	return &LiveFeed{
		endpoint:          opts.URL,
		bufferSize:        bufferSize,
		reconnectDelay:    reconnectDelay,
		maxReconnectDelay: maxReconnectDelay,
		pingInterval:      pingInterval,
		readTimeout:       readTimeout,
		writeTimeout:      writeTimeout,
		log:               logger.With("component", "livefeed"),
		done:              make(chan struct{}),
	}
}

// Start connects and begins collecting headlines.
func (f *LiveFeed) Start(ctx context.Context) error {
	if f.endpoint == "" {
		return fmt.Errorf("livefeed: %w", ErrNotConfigured)
	}
	if err := f.connect(ctx); err != nil {
		return err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	f.log.Info("livefeed connected", "url", f.endpoint)
	return nil
}

func (f *LiveFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("livefeed dial: %w", err)
	}
	f.conn = conn
	return nil
}

// Drain returns everything buffered since the previous drain and clears
// the buffer.
func (f *LiveFeed) Drain() []*domain.NewsItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.buffer
	f.buffer = nil
	return out
}

// Stats returns the current buffer length and the total dropped count.
func (f *LiveFeed) Stats() (buffered int, dropped uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buffer), f.dropped
}

// Close shuts the connection down and stops the loops.
func (f *LiveFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	return nil
}

func (f *LiveFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.reconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.readTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > f.maxReconnectDelay {
				reconnectDelay = f.maxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.reconnectDelay
		f.handleMessage(message)
	}
}

func (f *LiveFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.log.Warn("livefeed reconnect failed", "error", err)
		return
	}
	f.log.Info("livefeed reconnected")
}

func (f *LiveFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
				// A failed ping surfaces on the reader as a dead connection.
				_ = f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}

// liveMessage is the wire shape of one pushed headline.
type liveMessage struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Time        int64  `json:"time"` // unix ms
	Suggestions []struct {
		Coin string `json:"coin"`
	} `json:"suggestions"`
}

func (f *LiveFeed) handleMessage(message []byte) {
	var msg liveMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Title == "" {
		return
	}
	f.push(liveMessageToItem(msg))
}

func (f *LiveFeed) push(item *domain.NewsItem) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.buffer) >= f.bufferSize {
		f.buffer = f.buffer[1:]
		f.dropped++
	}
	f.buffer = append(f.buffer, item)
}

func liveMessageToItem(msg liveMessage) *domain.NewsItem {
	now := time.Now().UnixMilli()
	publishedAt := msg.Time
	if publishedAt <= 0 {
		publishedAt = now
	}
	item := &domain.NewsItem{
		ID:          recordid.ForNews(msg.Title),
		Title:       msg.Title,
		TitleKey:    domain.NormalizeTitle(msg.Title),
		URL:         msg.URL,
		Chain:       domain.ChainGeneral,
		Source:      "livefeed",
		PublishedAt: publishedAt,
		CreatedAt:   now,
	}
	if len(msg.Suggestions) > 0 {
		item.Symbol = msg.Suggestions[0].Coin
	}
	return item
}
