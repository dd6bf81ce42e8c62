package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lshigami/Pathoscore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSaver struct {
	mu            sync.Mutex
	calls         []map[string]float64
	err           error
	delay         time.Duration
	concurrent    int32
	maxConcurrent int32
}

func (f *fakeSaver) UpdateScores(ctx context.Context, dbID uint, updates map[string]float64) error {
	cur := atomic.AddInt32(&f.concurrent, 1)
	defer atomic.AddInt32(&f.concurrent, -1)
	for {
		max := atomic.LoadInt32(&f.maxConcurrent)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxConcurrent, max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	copied := make(map[string]float64, len(updates))
	for k, v := range updates {
		copied[k] = v
	}
	f.mu.Lock()
	f.calls = append(f.calls, copied)
	f.mu.Unlock()
	return f.err
}

func (f *fakeSaver) savedCalls() []map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]float64(nil), f.calls...)
}

func trackedRecord(dbID uint) *ScoreRecord {
	return &ScoreRecord{
		Status:   "success",
		DBID:     dbID,
		Filename: "S-3602-10X_Image001_ch00.tif",
		Scores: map[string]float64{
			model.MetricArchitecture: 1,
			model.MetricAtrophy:      1,
			model.MetricComplexes:    1,
			model.MetricFibrosis:     1,
			"Total":                  4,
		},
	}
}

func TestEditorRecomputesTotalImmediately(t *testing.T) {
	saver := &fakeSaver{}
	e := NewEditor(saver, WithMinIndicator(time.Millisecond))
	e.Track("item-1", trackedRecord(7))

	require.NoError(t, e.SetScore("item-1", model.MetricFibrosis, 3))

	record := e.Record("item-1")
	require.NotNil(t, record)
	assert.Equal(t, 3.0, record.Scores[model.MetricFibrosis])
	assert.Equal(t, 6.0, record.Scores["Total"], "total is recomputed before any server round trip")
}

func TestEditorRoundsTotalToTwoDecimals(t *testing.T) {
	e := NewEditor(&fakeSaver{}, WithMinIndicator(time.Millisecond))
	e.Track("item-1", trackedRecord(7))

	require.NoError(t, e.SetScore("item-1", model.MetricAtrophy, 0.33))
	record := e.Record("item-1")
	assert.Equal(t, 3.33, record.Scores["Total"]) // 1 + 0.33 + 1 + 1
}

func TestEditorSkipsSaveForUnpersistedRecord(t *testing.T) {
	saver := &fakeSaver{}
	e := NewEditor(saver, WithMinIndicator(time.Millisecond))
	e.Track("item-1", trackedRecord(0)) // no server identity yet

	require.NoError(t, e.SetScore("item-1", model.MetricFibrosis, 2))
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, saver.savedCalls())
	assert.Equal(t, 5.0, e.Record("item-1").Scores["Total"], "local update still applies")
}

func TestEditorSerializesSavesPerRecord(t *testing.T) {
	saver := &fakeSaver{delay: 20 * time.Millisecond}
	e := NewEditor(saver, WithMinIndicator(time.Millisecond))
	e.Track("item-1", trackedRecord(7))

	require.NoError(t, e.SetScore("item-1", model.MetricArchitecture, 2))
	require.NoError(t, e.SetScore("item-1", model.MetricAtrophy, 2.5))
	require.NoError(t, e.SetScore("item-1", model.MetricFibrosis, 3))

	require.Eventually(t, func() bool {
		saved := map[string]float64{}
		for _, call := range saver.savedCalls() {
			for k, v := range call {
				saved[k] = v
			}
		}
		return len(saved) == 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.EqualValues(t, 1, atomic.LoadInt32(&saver.maxConcurrent), "one in-flight save per record")

	saved := map[string]float64{}
	for _, call := range saver.savedCalls() {
		for k, v := range call {
			saved[k] = v
		}
	}
	assert.Equal(t, 2.0, saved[model.MetricArchitecture])
	assert.Equal(t, 2.5, saved[model.MetricAtrophy])
	assert.Equal(t, 3.0, saved[model.MetricFibrosis])
}

func TestEditorRapidEditsToSameMetricKeepLastValue(t *testing.T) {
	saver := &fakeSaver{delay: 20 * time.Millisecond}
	e := NewEditor(saver, WithMinIndicator(time.Millisecond))
	e.Track("item-1", trackedRecord(7))

	for _, v := range []float64{1.5, 2.0, 2.5, 3.0} {
		require.NoError(t, e.SetScore("item-1", model.MetricFibrosis, v))
	}

	require.Eventually(t, func() bool {
		calls := saver.savedCalls()
		if len(calls) == 0 {
			return false
		}
		last := calls[len(calls)-1]
		return last[model.MetricFibrosis] == 3.0 && !e.Saving("item-1")
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 3.0, e.Record("item-1").Scores[model.MetricFibrosis])
}

func TestEditorKeepsLocalValueWhenSaveFails(t *testing.T) {
	saver := &fakeSaver{err: errors.New("network down")}
	e := NewEditor(saver, WithMinIndicator(time.Millisecond))
	e.Track("item-1", trackedRecord(7))

	require.NoError(t, e.SetScore("item-1", model.MetricFibrosis, 3))

	require.Eventually(t, func() bool { return !e.Saving("item-1") }, 2*time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, saver.savedCalls(), "save was attempted once")
	assert.Len(t, saver.savedCalls(), 1, "no retry")
	assert.Equal(t, 3.0, e.Record("item-1").Scores[model.MetricFibrosis], "no rollback")
}

func TestEditorSavingIndicatorMinimumDuration(t *testing.T) {
	saver := &fakeSaver{} // responds immediately
	e := NewEditor(saver, WithMinIndicator(100*time.Millisecond))
	e.Track("item-1", trackedRecord(7))

	require.NoError(t, e.SetScore("item-1", model.MetricFibrosis, 3))

	require.Eventually(t, func() bool { return e.Saving("item-1") }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.True(t, e.Saving("item-1"), "indicator held for minimum duration")
	require.Eventually(t, func() bool { return !e.Saving("item-1") }, time.Second, 5*time.Millisecond)
}

func TestEditorRejectsUnknownMetric(t *testing.T) {
	e := NewEditor(&fakeSaver{})
	e.Track("item-1", trackedRecord(7))
	assert.Error(t, e.SetScore("item-1", "Bogus", 1))
	assert.Error(t, e.SetScore("untracked", model.MetricFibrosis, 1))
}
