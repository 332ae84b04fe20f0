package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/reasoning"
)

type stubReasoner struct {
	content string
	err     error
	calls   int
}

func (s *stubReasoner) Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error) {
	s.calls++
	return s.content, s.err
}

func makeEvent(sessionID, userID string, t event.EventType, at time.Time) *event.Event {
	return &event.Event{
		ID:        sessionID + "-" + string(t) + at.Format("150405.000"),
		SessionID: sessionID,
		UserID:    userID,
		Type:      t,
		Category:  event.InferCategory(t),
		Priority:  event.InferPriority(t),
		Timestamp: at,
		Page:      event.PageContext{URL: "/home", Path: "/home"},
	}
}

func TestStatisticalPatternsFrequencyAndSequence(t *testing.T) {
	a := New(Config{SequenceWindow: 3}, nil)
	base := time.Now()

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypeClick, base),
		makeEvent("s1", "u1", event.TypeClick, base.Add(time.Second)),
		makeEvent("s1", "u1", event.TypePageView, base.Add(2*time.Second)),
	}

	patterns := a.statisticalPatterns("s1", events)

	var frequent, sequence *BehaviorPattern
	for i := range patterns {
		switch patterns[i].Pattern {
		case "Frequent click events":
			frequent = &patterns[i]
		case "Sequence: click -> click -> page_view":
			sequence = &patterns[i]
		}
	}

	require.NotNil(t, frequent)
	assert.Equal(t, 2, frequent.Frequency)
	assert.InDelta(t, 2.0/3.0, frequent.Confidence, 0.001)

	require.NotNil(t, sequence)
	assert.Equal(t, 1, sequence.Frequency)
	assert.Equal(t, event.CategoryNavigation, sequence.Metadata.Category)
}

func TestMergePatternsFoldsDuplicates(t *testing.T) {
	reasoned := []BehaviorPattern{{Pattern: "Frequent click events", Frequency: 3, Confidence: 0.9}}
	statistical := []BehaviorPattern{
		{Pattern: "Frequent click events", Frequency: 2, Confidence: 0.5},
		{Pattern: "Sequence: click -> page_view", Frequency: 1, Confidence: 0.6},
	}

	merged := mergePatterns(reasoned, statistical)

	require.Len(t, merged, 2)
	assert.Equal(t, 5, merged[0].Frequency)
	assert.InDelta(t, 0.7, merged[0].Confidence, 0.001)
	assert.Equal(t, "Sequence: click -> page_view", merged[1].Pattern)
}

func TestReasoningFailureStillYieldsStatisticalPatterns(t *testing.T) {
	reasoner := &stubReasoner{err: errors.New("service unavailable")}
	a := New(Config{}, reasoner)
	base := time.Now()

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypeClick, base),
		makeEvent("s1", "u1", event.TypeClick, base.Add(time.Second)),
	}

	result, err := a.AnalyzeEvents(context.Background(), events)

	require.NoError(t, err)
	assert.Greater(t, reasoner.calls, 0)
	require.NotEmpty(t, result.Patterns)
	assert.Equal(t, "Frequent click events", result.Patterns[0].Pattern)
}

func TestReasonedPatternsApplyDefaults(t *testing.T) {
	reasoner := &stubReasoner{content: `{"patterns": [{"name": "Hesitant form filling"}]}`}
	a := New(Config{}, reasoner)

	patterns := a.reasonedPatterns(context.Background(), "s1", []*event.Event{
		makeEvent("s1", "u1", event.TypeFormInput, time.Now()),
	})

	require.Len(t, patterns, 1)
	assert.Equal(t, "Hesitant form filling", patterns[0].Pattern)
	assert.Equal(t, 1, patterns[0].Frequency)
	assert.Equal(t, 0.5, patterns[0].Confidence)
	assert.Equal(t, event.CategoryInteraction, patterns[0].Metadata.Category)
	assert.Equal(t, "simple", patterns[0].Metadata.Complexity)
}

func TestSegmentsFirstMatchWins(t *testing.T) {
	a := New(Config{}, nil)
	base := time.Now()

	first := []*event.Event{
		makeEvent("s1", "u1", event.TypeClick, base),
		makeEvent("s1", "u1", event.TypePageView, base.Add(time.Second)),
	}
	touched := a.updateSegments(first)
	require.Len(t, touched, 1)
	assert.Equal(t, []string{"u1"}, touched[0].Users)

	// Same behavior from another user lands in the existing segment.
	second := []*event.Event{
		makeEvent("s2", "u2", event.TypeClick, base),
		makeEvent("s2", "u2", event.TypePageView, base.Add(time.Second)),
	}
	touched = a.updateSegments(second)
	require.Len(t, touched, 1)
	assert.Equal(t, 2, touched[0].Size)
	assert.Contains(t, touched[0].Users, "u2")

	// Behavior that misses the criteria creates a new segment.
	third := []*event.Event{
		makeEvent("s3", "u3", event.TypeSearchQuery, base),
	}
	touched = a.updateSegments(third)
	require.Len(t, touched, 1)
	assert.Equal(t, 1, touched[0].Size)

	segments := a.Segments()
	assert.Len(t, segments, 2)
}

func TestSegmentMembershipIsIdempotent(t *testing.T) {
	a := New(Config{}, nil)
	base := time.Now()

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypeClick, base),
		makeEvent("s1", "u1", event.TypeClick, base.Add(time.Second)),
	}

	a.updateSegments(events)
	touched := a.updateSegments(events)

	require.Len(t, touched, 1)
	assert.Equal(t, 1, touched[0].Size)
	assert.Equal(t, []string{"u1"}, touched[0].Users)
}

func TestJourneyGoalAndConversion(t *testing.T) {
	a := New(Config{MinStepMS: 500}, nil)
	base := time.Now()

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypePageView, base),
		makeEvent("s1", "u1", event.TypeCartAdd, base.Add(2*time.Second)),
		makeEvent("s1", "u1", event.TypeErrorOccurred, base.Add(4*time.Second)),
	}

	journeys := a.analyzeJourneys(events)

	require.Len(t, journeys, 1)
	j := journeys[0]
	assert.Equal(t, "complete a purchase", j.Goal)
	assert.False(t, j.Achieved)
	assert.InDelta(t, 2.0/3.0, j.ConversionRate, 0.001)
	require.Len(t, j.Steps, 3)
	assert.False(t, j.Steps[2].Success)
	assert.Equal(t, "negative", j.Steps[2].Emotion)

	// Cart filled, no checkout started.
	require.Len(t, j.Opportunities, 1)
	assert.Equal(t, "conversion", j.Opportunities[0].Type)

	// Failed step registers friction.
	require.NotEmpty(t, j.FrictionPoints)
	assert.Equal(t, "step failed", j.FrictionPoints[0].Issue)

	require.NotEmpty(t, j.NextActions)
	assert.Equal(t, string(event.TypePageView), j.NextActions[0].Action)
}

func TestJourneysAccessorReplacesPerSession(t *testing.T) {
	a := New(Config{}, nil)
	base := time.Now()

	a.analyzeJourneys([]*event.Event{
		makeEvent("s1", "u1", event.TypePageView, base),
		makeEvent("s2", "u2", event.TypePageView, base.Add(time.Second)),
	})
	a.analyzeJourneys([]*event.Event{
		makeEvent("s1", "u1", event.TypePageView, base),
		makeEvent("s1", "u1", event.TypeCartAdd, base.Add(2*time.Second)),
	})

	journeys := a.Journeys()

	require.Len(t, journeys, 2)
	assert.Equal(t, "s1", journeys[0].SessionID)
	assert.Len(t, journeys[0].Steps, 2)
	assert.Equal(t, "s2", journeys[1].SessionID)
}

func TestJourneyRushedStepFriction(t *testing.T) {
	a := New(Config{MinStepMS: 500}, nil)
	base := time.Now()

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypePageView, base),
		makeEvent("s1", "u1", event.TypeClick, base.Add(100*time.Millisecond)),
	}

	journeys := a.analyzeJourneys(events)

	require.Len(t, journeys, 1)
	require.Len(t, journeys[0].FrictionPoints, 1)
	assert.Equal(t, "rushed step", journeys[0].FrictionPoints[0].Issue)
	assert.Equal(t, "medium", journeys[0].FrictionPoints[0].Severity)
}

func TestJourneyAchievedPurchase(t *testing.T) {
	a := New(Config{}, nil)
	base := time.Now()

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypeCartAdd, base),
		makeEvent("s1", "u1", event.TypeCheckoutStart, base.Add(time.Second)),
		makeEvent("s1", "u1", event.TypePaymentComplete, base.Add(2*time.Second)),
	}

	journeys := a.analyzeJourneys(events)

	require.Len(t, journeys, 1)
	assert.True(t, journeys[0].Achieved)
	assert.Empty(t, journeys[0].Opportunities)
}

func TestPerformanceAnomalyDetection(t *testing.T) {
	a := New(Config{SlowEventMS: 1000}, nil)

	slow := makeEvent("s1", "u1", event.TypeClick, time.Now())
	slow.Performance.EventDurationMS = 2500
	fast := makeEvent("s1", "u1", event.TypeClick, time.Now())
	fast.Performance.EventDurationMS = 50

	anomalies := a.performanceAnomalies([]*event.Event{fast, slow})

	require.Len(t, anomalies, 1)
	assert.Equal(t, "performance", anomalies[0].Type)
	assert.Equal(t, "medium", anomalies[0].Severity)
	assert.Equal(t, 2500.0, anomalies[0].Metrics.Current)
	assert.Equal(t, []string{"u1"}, anomalies[0].AffectedUsers)
	assert.Equal(t, "new", anomalies[0].Status)
}

func TestSecurityAnomalyDetection(t *testing.T) {
	a := New(Config{}, nil)

	suspicious := makeEvent("s1", "u1", event.TypeLoginAttempt, time.Now())
	suspicious.Security.IsSuspicious = true
	clean := makeEvent("s2", "u2", event.TypeLoginAttempt, time.Now())

	anomalies := a.securityAnomalies([]*event.Event{suspicious, clean})

	require.Len(t, anomalies, 1)
	assert.Equal(t, "security", anomalies[0].Type)
	assert.Equal(t, "high", anomalies[0].Severity)
	assert.Equal(t, 1.0, anomalies[0].Metrics.Current)
	assert.Equal(t, []string{"s1"}, anomalies[0].AffectedSessions)
}

func TestBehaviorAnomaliesDecodeWithDefaults(t *testing.T) {
	reasoner := &stubReasoner{content: `{"anomalies": [{"description": "Repeated rapid logins"}]}`}
	a := New(Config{}, reasoner)

	anomalies := a.behaviorAnomalies(context.Background(), nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, "behavior", anomalies[0].Type)
	assert.Equal(t, "medium", anomalies[0].Severity)
	assert.Equal(t, "Repeated rapid logins", anomalies[0].Description)
	assert.NotNil(t, anomalies[0].Causes)
}

func TestBatchInsightsSummarizeResult(t *testing.T) {
	a := New(Config{}, nil)
	base := time.Now()

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypeClick, base),
		makeEvent("s1", "u1", event.TypeClick, base.Add(time.Second)),
	}

	result, err := a.AnalyzeEvents(context.Background(), events)

	require.NoError(t, err)
	kinds := make(map[string]bool)
	for _, in := range result.Insights {
		kinds[in.Kind] = true
	}
	assert.True(t, kinds["pattern"])
	assert.True(t, kinds["segment"])
	assert.True(t, kinds["journey"])
}
