package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of one queued upload.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ErrValidation rejects a file before it ever enters the queue.
type ErrValidation struct {
	error
}

func NewErrValidation(name string) *ErrValidation {
	return &ErrValidation{fmt.Errorf("%s: only .tif/.tiff files are accepted", name)}
}

// Uploader is the single capability the queue needs from the transport.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (*ScoreRecord, error)
}

// QueueItem is a snapshot of one queued file. Err is set only in
// StatusError; Result only in StatusCompleted.
type QueueItem struct {
	ID       string
	Filename string
	Size     int64
	Status   Status
	Err      string
	Result   *ScoreRecord
}

type queueEntry struct {
	QueueItem
	open func() (io.ReadCloser, error)
}

const defaultSettleDelay = 50 * time.Millisecond

// Queue drains enqueued files strictly one at a time, in insertion order.
// All state lives in this struct and is mutated only through its transition
// methods; the busy flag is the single-flight lock: at most one item is ever
// uploading, and one item's failure never blocks the rest.
type Queue struct {
	uploader Uploader
	settle   time.Duration
	onChange func()

	mu       sync.Mutex
	items    []*queueEntry
	busy     bool
	selected string

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startMu sync.Mutex
	started bool
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithSettleDelay overrides the burst-coalescing delay before each scan.
func WithSettleDelay(d time.Duration) QueueOption {
	return func(q *Queue) { q.settle = d }
}

// WithOnChange installs a callback fired after every item state change.
func WithOnChange(fn func()) QueueOption {
	return func(q *Queue) { q.onChange = fn }
}

func NewQueue(uploader Uploader, opts ...QueueOption) *Queue {
	q := &Queue{
		uploader: uploader,
		settle:   defaultSettleDelay,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the drain loop. Safe to call once.
func (q *Queue) Start(ctx context.Context) error {
	q.startMu.Lock()
	defer q.startMu.Unlock()
	if q.started {
		return fmt.Errorf("queue already started")
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.started = true
	q.wg.Add(1)
	go q.run()
	return nil
}

// Close stops the drain loop. An in-flight upload is abandoned at the
// transport level; the server finishes and persists it regardless.
func (q *Queue) Close() {
	q.startMu.Lock()
	defer q.startMu.Unlock()
	if !q.started {
		return
	}
	q.cancel()
	q.wg.Wait()
	q.started = false
}

// Enqueue appends one file with status pending. The open callback is invoked
// when the item is drained, so payload bytes are not held for the whole
// queue lifetime. Non-TIFF files are rejected before entering the queue.
func (q *Queue) Enqueue(name string, size int64, open func() (io.ReadCloser, error)) (string, error) {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".tif") && !strings.HasSuffix(lower, ".tiff") {
		return "", NewErrValidation(name)
	}

	entry := &queueEntry{
		QueueItem: QueueItem{
			ID:       uuid.NewString(),
			Filename: name,
			Size:     size,
			Status:   StatusPending,
		},
		open: open,
	}

	q.mu.Lock()
	q.items = append(q.items, entry)
	q.mu.Unlock()

	q.notify()
	return entry.ID, nil
}

// Items returns a snapshot of the queue in insertion order.
func (q *Queue) Items() []QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueueItem, len(q.items))
	for i, entry := range q.items {
		out[i] = entry.QueueItem
	}
	return out
}

// Selected is the ID of the most recently completed item, which the engine
// auto-selects as the current preview.
func (q *Queue) Selected() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.selected
}

// Idle reports whether no item is pending or uploading.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.busy {
		return false
	}
	for _, entry := range q.items {
		if entry.Status == StatusPending || entry.Status == StatusUploading {
			return false
		}
	}
	return true
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
	if q.onChange != nil {
		q.onChange()
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}

		// Settle: a burst of near-simultaneous wakeups collapses into one
		// scan instead of scanning per mutation.
		timer := time.NewTimer(q.settle)
	settling:
		for {
			select {
			case <-q.ctx.Done():
				timer.Stop()
				return
			case <-q.wake:
			case <-timer.C:
				break settling
			}
		}

		q.drain()
	}
}

// drain processes pending items FIFO until none remain.
func (q *Queue) drain() {
	for {
		entry := q.takeNext()
		if entry == nil {
			return
		}
		q.process(entry)
		if q.ctx.Err() != nil {
			return
		}
	}
}

// takeNext claims the first pending item and the single-flight lock, or
// returns nil when the lock is held or nothing is pending.
func (q *Queue) takeNext() *queueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.busy {
		return nil
	}
	for _, entry := range q.items {
		if entry.Status == StatusPending {
			entry.Status = StatusUploading
			q.busy = true
			return entry
		}
	}
	return nil
}

func (q *Queue) process(entry *queueEntry) {
	// The lock is released unconditionally so a failure never stalls the
	// queue.
	defer func() {
		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()
		q.notify()
	}()

	record, err := q.uploadOne(entry)

	q.mu.Lock()
	if err != nil {
		entry.Status = StatusError
		entry.Err = err.Error()
	} else {
		entry.Status = StatusCompleted
		entry.Result = record
		q.selected = entry.ID
	}
	q.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("filename", entry.Filename).Msg("Upload failed, continuing with next item")
	} else {
		log.Info().Str("filename", entry.Filename).Uint("dbID", record.DBID).Msg("Upload completed")
	}
}

func (q *Queue) uploadOne(entry *queueEntry) (*ScoreRecord, error) {
	r, err := entry.open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Filename, err)
	}
	defer r.Close()
	return q.uploader.Upload(q.ctx, entry.Filename, r)
}
