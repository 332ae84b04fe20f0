package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userpulse/backend/internal/analyzer"
	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/insight"
	"github.com/userpulse/backend/internal/predictive"
	"github.com/userpulse/backend/internal/reasoning"
)

type stubReasoner struct {
	err   error
	calls int
}

func (s *stubReasoner) Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "{}", nil
}

type stubSink struct {
	batches [][]*event.Event
}

func (s *stubSink) SaveEventBatch(ctx context.Context, events []*event.Event) error {
	s.batches = append(s.batches, events)
	return nil
}

func newTestPipeline(t *testing.T, reasoner *stubReasoner) (*Pipeline, *event.Store, *insight.Generator) {
	t.Helper()

	store := event.NewStore(event.StoreConfig{BatchSize: 100, FlushInterval: time.Hour}, reasoner, &stubSink{})
	t.Cleanup(func() { store.Destroy(context.Background()) })

	a := analyzer.New(analyzer.Config{}, reasoner)
	engine := predictive.New(reasoner)
	generator := insight.NewGenerator(insight.Config{SweepInterval: time.Hour}, reasoner, nil)
	t.Cleanup(generator.Destroy)

	p, err := New(store, a, engine, generator)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, store, generator
}

func TestFlushDrivesInsightGeneration(t *testing.T) {
	reasoner := &stubReasoner{err: errors.New("unavailable")}
	_, store, generator := newTestPipeline(t, reasoner)

	ctx := context.Background()
	_, err := store.LogEvent(ctx, "s1", event.TypePageView, event.EventData{}, event.LogOptions{UserID: "u1"})
	require.NoError(t, err)
	_, err = store.LogEvent(ctx, "s1", event.TypeClick, event.EventData{}, event.LogOptions{
		UserID:      "u1",
		Performance: &event.PerformanceContext{EventDurationMS: 5000},
	})
	require.NoError(t, err)

	require.NoError(t, store.Flush(ctx))

	// The reasoner is down, so only statistical stages contribute. The slow
	// click still surfaces as a performance insight.
	insights := generator.Insights(insight.TypePerformance, "")
	require.NotEmpty(t, insights)
	assert.Equal(t, insight.TypePerformance, insights[0].Type)
}

func TestEmptyFlushIsIgnored(t *testing.T) {
	reasoner := &stubReasoner{}
	_, store, generator := newTestPipeline(t, reasoner)

	require.NoError(t, store.Flush(context.Background()))

	assert.Empty(t, generator.Insights("", ""))
	assert.Zero(t, reasoner.calls)
}

func TestCloseDetachesFromFlushTopic(t *testing.T) {
	reasoner := &stubReasoner{err: errors.New("unavailable")}
	p, store, generator := newTestPipeline(t, reasoner)

	p.Close()

	ctx := context.Background()
	_, err := store.LogEvent(ctx, "s1", event.TypeClick, event.EventData{}, event.LogOptions{
		Performance: &event.PerformanceContext{EventDurationMS: 5000},
	})
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	assert.Empty(t, generator.Insights("", ""))
}
