// Package telemetry records completed searches: in-memory aggregates for
// the stats view, and an append-only SQLite search log.
package telemetry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/catmatch/internal/search"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "<10ms"
	BucketP50   LatencyBucket = "10-50ms"
	BucketP100  LatencyBucket = "50-100ms"
	BucketP500  LatencyBucket = "100-500ms"
	BucketP1000 LatencyBucket = ">500ms"
)

// LatencyBuckets returns the buckets in ascending order.
func LatencyBuckets() []LatencyBucket {
	return []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000}
}

// LatencyToBucket maps a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// NoResultsMethod is the top method recorded for empty result lists.
const NoResultsMethod = "none"

// Event is one completed search.
type Event struct {
	Query       string
	ResultCount int
	// TopMethod is the method of the best result, or NoResultsMethod.
	TopMethod string
	Latency   time.Duration
	Timestamp time.Time
}

// IsZeroResult reports whether the search returned nothing.
func (e Event) IsZeroResult() bool {
	return e.ResultCount == 0
}

// EventFromResponse builds an Event from a search response.
func EventFromResponse(resp *search.Response) Event {
	top := NoResultsMethod
	if len(resp.Results) > 0 {
		top = resp.Results[0].Method.String()
	}
	return Event{
		Query:       resp.Query,
		ResultCount: resp.Total,
		TopMethod:   top,
		Latency:     time.Duration(resp.ProcessingTime * float64(time.Second)),
		Timestamp:   time.Now(),
	}
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer. Non-positive capacity means 100.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity), capacity: capacity}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the contents oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.size)
	if b.size < b.capacity {
		copy(out, b.items[:b.size])
		return out
	}
	n := copy(out, b.items[b.head:])
	copy(out[n:], b.items[:b.head])
	return out
}

// ExtractTerms returns the lowercased words of query with at least three
// letters.
func ExtractTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var terms []string
	for _, w := range words {
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is the search statistics view.
type Snapshot struct {
	TotalSearches       int64                   `json:"total_searches"`
	MethodCounts        map[string]int64        `json:"method_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	TopTerms            []TermCount             `json:"top_terms,omitempty"`
	Since               time.Time               `json:"since"`
}

// Store persists search events.
type Store interface {
	Insert(ctx context.Context, e Event) error
	// Stats aggregates every stored event. zeroLimit caps the returned
	// zero-result queries, newest first.
	Stats(ctx context.Context, zeroLimit int) (*Snapshot, error)
	Close() error
}

// Config tunes the QueryLog.
type Config struct {
	TopTermsCapacity    int
	ZeroResultsCapacity int
	// QueueSize bounds events waiting for the store. Overflow is dropped.
	QueueSize int
}

// DefaultConfig returns the default QueryLog configuration.
func DefaultConfig() Config {
	return Config{TopTermsCapacity: 100, ZeroResultsCapacity: 100, QueueSize: 256}
}

// QueryLog aggregates searches in memory and forwards them to an optional
// Store from a background goroutine, so recording never blocks a search.
type QueryLog struct {
	mu           sync.Mutex
	total        int64
	zeroCount    int64
	methods      map[string]int64
	latencies    map[LatencyBucket]int64
	zeroResults  *CircularBuffer[string]
	topTerms     *lru.Cache[string, int64]
	zeroCapacity int
	startTime    time.Time

	store   Store
	queue   chan Event
	done    chan struct{}
	closed  bool
	dropped atomic.Int64
	logger  *slog.Logger
}

var _ search.Recorder = (*QueryLog)(nil)

// NewQueryLog creates a query log. store may be nil for memory only.
func NewQueryLog(store Store, cfg Config, logger *slog.Logger) *QueryLog {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	l := &QueryLog{
		methods:      make(map[string]int64),
		latencies:    make(map[LatencyBucket]int64),
		zeroResults:  NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		topTerms:     topTerms,
		zeroCapacity: cfg.ZeroResultsCapacity,
		startTime:    time.Now(),
		store:        store,
		logger:       logger,
	}
	if store != nil {
		l.queue = make(chan Event, cfg.QueueSize)
		l.done = make(chan struct{})
		go l.writeLoop()
	}
	return l
}

func (l *QueryLog) writeLoop() {
	defer close(l.done)
	for e := range l.queue {
		if err := l.store.Insert(context.Background(), e); err != nil {
			l.logger.Warn("query_log_write_failed", slog.String("error", err.Error()))
		}
	}
}

// RecordSearch records a completed search response.
func (l *QueryLog) RecordSearch(_ context.Context, resp *search.Response) {
	if resp == nil {
		return
	}
	l.Record(EventFromResponse(resp))
}

// Record adds an event to the aggregates and queues it for the store.
func (l *QueryLog) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	l.total++
	l.methods[e.TopMethod]++
	l.latencies[LatencyToBucket(e.Latency)]++
	if e.IsZeroResult() {
		l.zeroCount++
		l.zeroResults.Add(e.Query)
	}
	for _, term := range ExtractTerms(e.Query) {
		count, _ := l.topTerms.Get(term)
		l.topTerms.Add(term, count+1)
	}

	if l.queue == nil {
		return
	}
	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many events overflowed the store queue.
func (l *QueryLog) Dropped() int64 {
	return l.dropped.Load()
}

// Snapshot returns the in-memory aggregates since process start.
func (l *QueryLog) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	methods := make(map[string]int64, len(l.methods))
	for k, v := range l.methods {
		methods[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(l.latencies))
	for k, v := range l.latencies {
		latencies[k] = v
	}

	zero := l.zeroResults.Items()
	for i, j := 0, len(zero)-1; i < j; i, j = i+1, j-1 {
		zero[i], zero[j] = zero[j], zero[i]
	}

	return &Snapshot{
		TotalSearches:       l.total,
		MethodCounts:        methods,
		LatencyDistribution: latencies,
		ZeroResultCount:     l.zeroCount,
		ZeroResultQueries:   zero,
		TopTerms:            l.topTermsLocked(),
		Since:               l.startTime,
	}
}

func (l *QueryLog) topTermsLocked() []TermCount {
	var terms []TermCount
	for _, key := range l.topTerms.Keys() {
		if count, ok := l.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	return terms
}

// Stats returns lifetime statistics from the store when one is configured,
// falling back to the in-memory snapshot.
func (l *QueryLog) Stats(ctx context.Context) (*Snapshot, error) {
	if l.store == nil {
		return l.Snapshot(), nil
	}
	snap, err := l.store.Stats(ctx, l.zeroCapacity)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	snap.TopTerms = l.topTermsLocked()
	l.mu.Unlock()
	return snap, nil
}

// Close drains queued events into the store and closes it.
func (l *QueryLog) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	close(l.queue)
	<-l.done
	return l.store.Close()
}
