package event

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userpulse/backend/internal/reasoning"
)

type stubReasoner struct {
	content string
	err     error
	calls   int
}

func (r *stubReasoner) Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error) {
	r.calls++
	return r.content, r.err
}

type captureSink struct {
	batches [][]*Event
}

func (s *captureSink) SaveEventBatch(ctx context.Context, events []*Event) error {
	s.batches = append(s.batches, events)
	return nil
}

func newTestStore(t *testing.T, batchSize int) *Store {
	t.Helper()
	s := NewStore(StoreConfig{BatchSize: batchSize, FlushInterval: time.Hour}, nil, nil)
	t.Cleanup(func() { s.Destroy(context.Background()) })
	return s
}

func TestSessionIndexKeepsLoggingOrder(t *testing.T) {
	s := newTestStore(t, 1000)
	ctx := context.Background()

	types := []EventType{TypePageView, TypeClick, TypeFormSubmit, TypeClick, TypeLogout}
	for _, typ := range types {
		_, err := s.LogEvent(ctx, "sess-1", typ, EventData{}, LogOptions{})
		require.NoError(t, err)
	}

	got := s.GetSessionEvents("sess-1")
	require.Len(t, got, len(types))
	for i, e := range got {
		assert.Equal(t, types[i], e.Type)
		assert.Equal(t, "sess-1", e.SessionID)
	}
}

func TestUserIndexOnlyForIdentifiedUsers(t *testing.T) {
	s := newTestStore(t, 1000)
	ctx := context.Background()

	_, err := s.LogEvent(ctx, "sess-1", TypeClick, EventData{}, LogOptions{UserID: "user-1"})
	require.NoError(t, err)
	_, err = s.LogEvent(ctx, "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)

	assert.Len(t, s.GetUserEvents("user-1"), 1)
	assert.Empty(t, s.GetUserEvents("user-2"))
}

func TestClickDefaults(t *testing.T) {
	s := newTestStore(t, 1000)

	id, err := s.LogEvent(context.Background(), "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)

	e, ok := s.GetEvent(id)
	require.True(t, ok)
	assert.Equal(t, CategoryInteraction, e.Category)
	assert.Equal(t, PriorityMedium, e.Priority)
}

func TestUnknownTypeFallsBackToInteractionMedium(t *testing.T) {
	assert.Equal(t, CategoryInteraction, InferCategory(EventType("made_up")))
	assert.Equal(t, PriorityMedium, InferPriority(EventType("made_up")))
}

func TestDisabledStoreDropsEvents(t *testing.T) {
	s := newTestStore(t, 1000)
	s.Disable()

	id, err := s.LogEvent(context.Background(), "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, s.GetSessionEvents("sess-1"))

	s.Enable()
	id, err = s.LogEvent(context.Background(), "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestFlushSwapsBufferAndBroadcasts(t *testing.T) {
	sink := &captureSink{}
	s := NewStore(StoreConfig{BatchSize: 1000, FlushInterval: time.Hour}, nil, sink)
	defer s.Destroy(context.Background())

	var flushed [][]*Event
	_, err := s.FlushTopic.Subscribe(func(batch []*Event) { flushed = append(flushed, batch) })
	require.NoError(t, err)

	ctx := context.Background()
	id, err := s.LogEvent(ctx, "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)
	_, err = s.LogEvent(ctx, "sess-1", TypePageView, EventData{}, LogOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Flush(ctx))

	// buffer is empty; indices keep the ids but resolve to nothing
	_, ok := s.GetEvent(id)
	assert.False(t, ok)
	assert.Empty(t, s.GetSessionEvents("sess-1"))

	require.Len(t, flushed, 1)
	assert.Len(t, flushed[0], 2)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 2)

	// flushing an empty buffer does nothing
	require.NoError(t, s.Flush(ctx))
	assert.Len(t, flushed, 1)
}

func TestBatchSizeTriggersFlush(t *testing.T) {
	s := NewStore(StoreConfig{BatchSize: 3, FlushInterval: time.Hour}, nil, nil)
	defer s.Destroy(context.Background())

	var flushed [][]*Event
	_, err := s.FlushTopic.Subscribe(func(batch []*Event) { flushed = append(flushed, batch) })
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.LogEvent(ctx, "sess-1", TypeClick, EventData{}, LogOptions{})
		require.NoError(t, err)
	}

	require.Len(t, flushed, 1)
	assert.Len(t, flushed[0], 3)
}

func TestParentChildLinkingIsSymmetric(t *testing.T) {
	s := newTestStore(t, 1000)
	ctx := context.Background()

	parentID, err := s.LogEvent(ctx, "sess-1", TypeFormFocus, EventData{}, LogOptions{})
	require.NoError(t, err)
	childID, err := s.LogEvent(ctx, "sess-1", TypeFormInput, EventData{}, LogOptions{ParentEvent: parentID})
	require.NoError(t, err)

	parent, ok := s.GetEvent(parentID)
	require.True(t, ok)
	child, ok := s.GetEvent(childID)
	require.True(t, ok)

	assert.Contains(t, parent.ChildEvents, childID)
	assert.Contains(t, child.RelatedEvents, parentID)
}

func TestFiltersGateEventBroadcast(t *testing.T) {
	s := newTestStore(t, 1000)
	ctx := context.Background()

	var seen []*Event
	_, err := s.EventTopic.Subscribe(func(e *Event) { seen = append(seen, e) })
	require.NoError(t, err)

	// no filters: everything is broadcast
	_, err = s.LogEvent(ctx, "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)
	require.Len(t, seen, 1)

	s.AddFilter(Filter{Priorities: []Priority{PriorityCritical}})

	_, err = s.LogEvent(ctx, "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)
	assert.Len(t, seen, 1)

	_, err = s.LogEvent(ctx, "sess-1", TypeErrorOccurred, EventData{}, LogOptions{})
	require.NoError(t, err)
	assert.Len(t, seen, 2)

	require.NoError(t, s.RemoveFilter(0))
	assert.Error(t, s.RemoveFilter(5))
}

func TestInlineAnalysisFallbackOnReasoningFailure(t *testing.T) {
	reasoner := &stubReasoner{err: errors.New("service down")}
	s := NewStore(StoreConfig{BatchSize: 1000, FlushInterval: time.Hour}, reasoner, nil)
	defer s.Destroy(context.Background())

	id, err := s.LogEvent(context.Background(), "sess-1", TypeErrorOccurred, EventData{}, LogOptions{})
	require.NoError(t, err)

	e, ok := s.GetEvent(id)
	require.True(t, ok)
	require.NotNil(t, e.Analysis)
	assert.Equal(t, "unknown", e.Analysis.Intent)
	assert.Equal(t, "neutral", e.Analysis.Sentiment)
	assert.Equal(t, 0.5, e.Analysis.Confidence)
	assert.Empty(t, e.Analysis.Patterns)
	assert.Equal(t, 1, reasoner.calls)
}

func TestInlineAnalysisDecodesReasonedResponse(t *testing.T) {
	reasoner := &stubReasoner{content: `{"intent": "debugging", "sentiment": "negative", "confidence": 0.9, "patterns": ["repeat-error"], "anomalies": [], "recommendations": []}`}
	s := NewStore(StoreConfig{BatchSize: 1000, FlushInterval: time.Hour}, reasoner, nil)
	defer s.Destroy(context.Background())

	id, err := s.LogEvent(context.Background(), "sess-1", TypeSecurityAlert, EventData{}, LogOptions{})
	require.NoError(t, err)

	e, _ := s.GetEvent(id)
	require.NotNil(t, e.Analysis)
	assert.Equal(t, "debugging", e.Analysis.Intent)
	assert.Equal(t, 0.9, e.Analysis.Confidence)
}

func TestLowPriorityEventsSkipAnalysis(t *testing.T) {
	reasoner := &stubReasoner{content: `{}`}
	s := NewStore(StoreConfig{BatchSize: 1000, FlushInterval: time.Hour}, reasoner, nil)
	defer s.Destroy(context.Background())

	id, err := s.LogEvent(context.Background(), "sess-1", TypePageView, EventData{}, LogOptions{})
	require.NoError(t, err)

	e, _ := s.GetEvent(id)
	assert.Nil(t, e.Analysis)
	assert.Equal(t, 0, reasoner.calls)
}

func TestAggregationClickScenario(t *testing.T) {
	s := newTestStore(t, 1000)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.LogEvent(ctx, fmt.Sprintf("sess-%d", i%2), TypeClick, EventData{}, LogOptions{
			UserID: "user-1",
			Page:   &PageContext{URL: "https://example.com/home"},
		})
		require.NoError(t, err)
	}

	agg := s.GetAggregation(nil)

	assert.Equal(t, 3, agg.TotalEvents)
	assert.Equal(t, 1, agg.UniqueUsers)
	assert.Equal(t, 2, agg.UniqueSessions)
	assert.InDelta(t, 1.5, agg.AveragePerSession, 1e-9)

	require.NotEmpty(t, agg.TopEvents)
	assert.Equal(t, string(TypeClick), agg.TopEvents[0].Key)
	assert.Equal(t, 3, agg.TopEvents[0].Count)
	assert.InDelta(t, 100.0, agg.TopEvents[0].Percentage, 1e-9)

	require.NotEmpty(t, agg.TopPages)
	assert.Equal(t, "https://example.com/home", agg.TopPages[0].Key)
}

func TestAggregationWithFilter(t *testing.T) {
	s := newTestStore(t, 1000)
	ctx := context.Background()

	_, err := s.LogEvent(ctx, "sess-1", TypeClick, EventData{}, LogOptions{})
	require.NoError(t, err)
	_, err = s.LogEvent(ctx, "sess-1", TypePageView, EventData{}, LogOptions{})
	require.NoError(t, err)

	agg := s.GetAggregation(&Filter{Types: []EventType{TypeClick}})
	assert.Equal(t, 1, agg.TotalEvents)
}

func TestLogAgentEventShape(t *testing.T) {
	reasoner := &stubReasoner{content: `{"intent": "automation", "sentiment": "neutral", "confidence": 0.7}`}
	s := NewStore(StoreConfig{BatchSize: 1000, FlushInterval: time.Hour}, reasoner, nil)
	defer s.Destroy(context.Background())

	id, err := s.LogAgentEvent(context.Background(), "sess-1", "agent-7", "summarize", map[string]any{"doc": "x"}, "ok", LogOptions{UserID: "user-1"})
	require.NoError(t, err)

	e, ok := s.GetEvent(id)
	require.True(t, ok)
	assert.Equal(t, TypeAgentAction, e.Type)
	assert.Equal(t, CategoryAI, e.Category)
	assert.Equal(t, PriorityMedium, e.Priority)
	require.NotNil(t, e.Data.Agent)
	assert.Equal(t, "agent-7", e.Data.Agent.AgentID)
	// ai category always gets an analysis
	assert.NotNil(t, e.Analysis)
}

func TestLogContentEventShape(t *testing.T) {
	s := newTestStore(t, 1000)

	id, err := s.LogContentEvent(context.Background(), "sess-1", "create", ContentData{
		ContentID:    "c-1",
		ContentType:  "article",
		ContentTitle: "Hello",
	}, "user-1", "agent-1", 120)
	require.NoError(t, err)

	e, ok := s.GetEvent(id)
	require.True(t, ok)
	assert.Equal(t, TypeContentCreate, e.Type)
	assert.Equal(t, CategoryContent, e.Category)
	assert.Equal(t, PriorityHigh, e.Priority)
	require.NotNil(t, e.Data.Content)
	assert.Equal(t, "create", e.Data.Content.Action)
	require.NotNil(t, e.Data.Agent)
	assert.Equal(t, "content_create", e.Data.Agent.Action)
}

func TestParseDeviceContext(t *testing.T) {
	mobile := ParseDeviceContext("Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "mobile", mobile.Type)

	desktop := ParseDeviceContext("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Equal(t, "desktop", desktop.Type)
	assert.Equal(t, "Chrome", desktop.BrowserName)

	empty := ParseDeviceContext("")
	assert.Equal(t, "desktop", empty.Type)
}
