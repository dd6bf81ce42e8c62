package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lshigami/Pathoscore/internal/model"
	"github.com/rs/zerolog/log"
)

// Saver is the capability the editor needs from the transport.
type Saver interface {
	UpdateScores(ctx context.Context, dbID uint, updates map[string]float64) error
}

const defaultMinIndicator = 400 * time.Millisecond

// Editor keeps local copies of score records and synchronizes corrections to
// the server. Edits apply locally at once (optimistic, total recomputed);
// saves are serialized per record: one request in flight, later edits merge
// into the next request. A failed save is logged and dropped, never rolled
// back or retried.
type Editor struct {
	saver        Saver
	minIndicator time.Duration
	saveTimeout  time.Duration

	mu      sync.Mutex
	records map[string]*editState
}

type editState struct {
	record *ScoreRecord

	pending  map[string]float64 // edits not yet picked up by a save
	inFlight bool
	seq      uint64 // save generation counter
	saved    uint64 // highest confirmed generation; stale completions are ignored
	saving   int    // indicator refcount, includes the minimum-display hold
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithMinIndicator overrides how long the saving indicator stays visible at
// minimum, so fast responses still produce perceivable feedback.
func WithMinIndicator(d time.Duration) EditorOption {
	return func(e *Editor) { e.minIndicator = d }
}

func NewEditor(saver Saver, opts ...EditorOption) *Editor {
	e := &Editor{
		saver:        saver,
		minIndicator: defaultMinIndicator,
		saveTimeout:  30 * time.Second,
		records:      make(map[string]*editState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Track registers a completed item's record copy under its queue item ID.
func (e *Editor) Track(itemID string, record *ScoreRecord) {
	if record == nil {
		return
	}
	copied := *record
	scores := make(map[string]float64, len(record.Scores))
	for k, v := range record.Scores {
		scores[k] = v
	}
	copied.Scores = scores

	e.mu.Lock()
	e.records[itemID] = &editState{record: &copied, pending: make(map[string]float64)}
	e.mu.Unlock()
}

// Record returns a snapshot of the tracked record, or nil.
func (e *Editor) Record(itemID string) *ScoreRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.records[itemID]
	if !ok {
		return nil
	}
	copied := *state.record
	scores := make(map[string]float64, len(state.record.Scores))
	for k, v := range state.record.Scores {
		scores[k] = v
	}
	copied.Scores = scores
	return &copied
}

// Saving reports whether a save (or its minimum display hold) is active.
func (e *Editor) Saving(itemID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.records[itemID]
	return ok && state.saving > 0
}

// SetScore applies one metric edit. The local copy and its total update
// immediately; persistence follows only when the record has a server ID.
func (e *Editor) SetScore(itemID, metric string, value float64) error {
	if _, ok := model.ColumnForMetric(metric); !ok {
		return fmt.Errorf("unknown metric %q", metric)
	}

	e.mu.Lock()
	state, ok := e.records[itemID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("no record tracked for item %s", itemID)
	}

	state.record.Scores[metric] = value
	total := 0.0
	for _, name := range model.MetricOrder {
		total += state.record.Scores[name]
	}
	state.record.Scores["Total"] = model.Round2(total)

	if state.record.DBID == 0 {
		// Never persisted; nothing to synchronize yet.
		e.mu.Unlock()
		return nil
	}

	state.pending[metric] = value
	start := !state.inFlight
	if start {
		state.inFlight = true
	}
	e.mu.Unlock()

	if start {
		go e.flush(itemID)
	}
	return nil
}

// flush drains pending edits for one record, one request at a time.
func (e *Editor) flush(itemID string) {
	for {
		e.mu.Lock()
		state, ok := e.records[itemID]
		if !ok || len(state.pending) == 0 {
			if ok {
				state.inFlight = false
			}
			e.mu.Unlock()
			return
		}
		batch := state.pending
		state.pending = make(map[string]float64)
		state.seq++
		seq := state.seq
		dbID := state.record.DBID
		state.saving++
		e.mu.Unlock()

		started := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), e.saveTimeout)
		err := e.saver.UpdateScores(ctx, dbID, batch)
		cancel()

		e.mu.Lock()
		if err != nil {
			// Optimistic value stays; the inconsistency is accepted.
			log.Error().Err(err).Uint("dbID", dbID).Msg("Score save failed, keeping local value")
		} else if seq > state.saved {
			state.saved = seq
		}
		e.mu.Unlock()

		e.holdIndicator(itemID, started)
	}
}

// holdIndicator keeps the saving flag up for the minimum display duration,
// then always clears it, success or not.
func (e *Editor) holdIndicator(itemID string, started time.Time) {
	release := func() {
		e.mu.Lock()
		if state, ok := e.records[itemID]; ok && state.saving > 0 {
			state.saving--
		}
		e.mu.Unlock()
	}
	if remaining := e.minIndicator - time.Since(started); remaining > 0 {
		time.AfterFunc(remaining, release)
		return
	}
	release()
}
