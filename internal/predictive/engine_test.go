package predictive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/reasoning"
)

type stubReasoner struct {
	respond func(prompt string, kind reasoning.TaskKind) (string, error)
	calls   int
}

func (s *stubReasoner) Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error) {
	s.calls++
	if s.respond == nil {
		return "", errors.New("no response configured")
	}
	return s.respond(prompt, kind)
}

func makeEvent(sessionID, userID string, t event.EventType, durationMS int64) *event.Event {
	return &event.Event{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		UserID:      userID,
		Type:        t,
		Category:    event.InferCategory(t),
		Priority:    event.InferPriority(t),
		Timestamp:   time.Now(),
		Page:        event.PageContext{URL: "/home"},
		Performance: event.PerformanceContext{EventDurationMS: durationMS},
	}
}

func TestEngagementBuckets(t *testing.T) {
	cases := []struct {
		name  string
		avgMS int64
		level string
	}{
		{"low", 10000, "low"},
		{"medium", 60000, "medium"},
		{"high", 150000, "high"},
		{"very high", 400000, "very_high"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := analyzeEngagement([]*event.Event{makeEvent("s1", "u1", event.TypePageView, tc.avgMS)})
			assert.Equal(t, tc.level, eng.Level)
		})
	}
}

func TestEngagementScoreCapped(t *testing.T) {
	events := []*event.Event{}
	for i := 0; i < 20; i++ {
		events = append(events, makeEvent(string(rune('a'+i)), "u1", event.TypePageView, 600000))
	}

	eng := analyzeEngagement(events)

	assert.Equal(t, 100.0, eng.Score)
}

func TestEngagementScoreFormula(t *testing.T) {
	// One session, 50s of activity: 50*0.1 + 1*10 = 15.
	eng := analyzeEngagement([]*event.Event{makeEvent("s1", "u1", event.TypePageView, 50000)})

	assert.InDelta(t, 15.0, eng.Score, 0.001)
	assert.Equal(t, "medium", eng.Level)
}

func TestReadyModelsDispatch(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		if kind == reasoning.TaskPrediction && strings.Contains(prompt, "Predict") {
			return `{"value": 0.8, "confidence": 0.9, "probability": 0.75, "explanation": "strong signals"}`, nil
		}
		return `{}`, nil
	}}
	e := New(reasoner)

	events := []*event.Event{makeEvent("s1", "u1", event.TypeClick, 100)}
	out, err := e.Run(context.Background(), events, nil)

	require.NoError(t, err)
	// Three default models, one profile each.
	require.Len(t, out.Predictions, 3)

	types := make(map[PredictionType]bool)
	for _, p := range out.Predictions {
		types[p.Type] = true
		assert.Equal(t, 60, p.TimeHorizonMin)
		assert.WithinDuration(t, time.Now().Add(predictionTTL), p.ExpiresAt, time.Minute)
	}
	assert.True(t, types[PredictConversion])
	assert.True(t, types[PredictChurn])
	assert.True(t, types[PredictEngagement])
}

func TestModelFailureIsolation(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		if strings.Contains(prompt, "churn") {
			return "", errors.New("model overloaded")
		}
		return `{"value": 0.6, "confidence": 0.8, "probability": 0.6}`, nil
	}}
	e := New(reasoner)

	events := []*event.Event{makeEvent("s1", "u1", event.TypeClick, 100)}
	out, err := e.Run(context.Background(), events, nil)

	require.NoError(t, err)
	for _, p := range out.Predictions {
		assert.NotEqual(t, PredictChurn, p.Type)
	}
	require.Len(t, out.Predictions, 2)
}

func TestNonReadyModelSkipped(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		return `{"value": 0.5, "confidence": 0.5, "probability": 0.5}`, nil
	}}
	e := New(reasoner)
	e.models["churn_prediction"].Status = StatusDegraded
	e.models["engagement_forecast"].Status = StatusTraining

	events := []*event.Event{makeEvent("s1", "u1", event.TypeClick, 100)}
	out, err := e.Run(context.Background(), events, nil)

	require.NoError(t, err)
	require.Len(t, out.Predictions, 1)
	assert.Equal(t, "conversion_prediction", out.Predictions[0].ModelID)
}

func TestForecastFallbackOnError(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		return "", errors.New("unavailable")
	}}
	e := New(reasoner)

	forecast := e.forecastUser(context.Background(), "u1", nil, Engagement{Level: "low"})

	assert.Equal(t, "unknown", forecast.NextAction)
	assert.Equal(t, 0.5, forecast.ChurnRisk)
	assert.Equal(t, 0.5, forecast.ConversionProbability)
	assert.Equal(t, 0.5, forecast.EngagementForecast)
}

func TestPreferencesFallbackIsEmptyNotNil(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		return "no json here", nil
	}}
	e := New(reasoner)

	prefs := e.analyzePreferences(context.Background(), nil)

	assert.NotNil(t, prefs.Categories)
	assert.Empty(t, prefs.Categories)
	assert.NotNil(t, prefs.Devices)
}

func TestCollaborativeRecommendations(t *testing.T) {
	e := New(nil)

	users := map[string][]*event.Event{
		"u1": {
			makeEvent("s1", "u1", event.TypeClick, 100),
			makeEvent("s1", "u1", event.TypePageView, 100),
		},
		"u2": {
			makeEvent("s2", "u2", event.TypeClick, 100),
			makeEvent("s2", "u2", event.TypePageView, 100),
		},
	}
	users["u2"][0].Page.URL = "/pricing"
	users["u2"][1].Page.URL = "/pricing"

	recs := e.collaborativeRecommendations("u1", users, typeVectors(users))

	require.NotEmpty(t, recs)
	assert.Equal(t, []string{"collaborative_filtering"}, recs[0].Features)
	assert.Equal(t, "/pricing", recs[0].ItemID)
	assert.Contains(t, recs[0].Reason, "u2")
	assert.Greater(t, recs[0].Score, 0.0)
}

func TestCollaborativeSkipsDissimilarUsers(t *testing.T) {
	e := New(nil)

	users := map[string][]*event.Event{
		"u1": {makeEvent("s1", "u1", event.TypeClick, 100)},
		"u2": {makeEvent("s2", "u2", event.TypeSearchQuery, 100)},
	}

	recs := e.collaborativeRecommendations("u1", users, typeVectors(users))

	assert.Empty(t, recs)
}

func TestContentBasedRecommendations(t *testing.T) {
	profile := UserProfile{
		UserID:      "u1",
		Preferences: Preferences{Categories: []string{"analytics", "dashboards"}},
	}

	recs := contentBasedRecommendations(profile)

	require.Len(t, recs, 2)
	assert.Equal(t, "content_based", recs[0].Features[0])
	assert.Equal(t, "analytics", recs[0].Features[1])
	assert.Greater(t, recs[0].Score, recs[1].Score)
	assert.WithinDuration(t, time.Now().Add(recommendationTTL), recs[0].ExpiresAt, time.Minute)
}

func TestContextualRecommendationShortExpiry(t *testing.T) {
	events := []*event.Event{makeEvent("s1", "u1", event.TypeClick, 100)}
	events[0].Device.Type = "mobile"

	recs := contextualRecommendations("u1", events)

	require.Len(t, recs, 1)
	assert.Equal(t, "contextual", recs[0].Features[0])
	assert.Contains(t, recs[0].Features, "mobile")
	assert.WithinDuration(t, time.Now().Add(contextualTTL), recs[0].ExpiresAt, time.Minute)
}

func TestHybridRecommendationsApplyDefaults(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		return `[{"itemId": "guide-1", "title": "Getting started guide", "score": 0.85, "confidence": 0.8, "reason": "fits usage"}]`, nil
	}}
	e := New(reasoner)

	recs := e.hybridRecommendations(context.Background(), UserProfile{UserID: "u1"})

	require.Len(t, recs, 1)
	assert.Equal(t, "content", recs[0].Type)
	assert.Equal(t, "content", recs[0].ItemType)
	assert.Equal(t, []string{"hybrid"}, recs[0].Features)
	assert.Equal(t, RecActive, recs[0].Status)
}

func TestStrategiesConcatenateWithoutDedup(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		switch kind {
		case reasoning.TaskRecommendation:
			return `[{"itemId": "/pricing", "title": "/pricing", "score": 0.9, "confidence": 0.8, "reason": "hybrid pick"}]`, nil
		case reasoning.TaskAnalysis:
			return `{"categories": ["analytics"]}`, nil
		default:
			return `{"value": 0.5, "confidence": 0.5, "probability": 0.5}`, nil
		}
	}}
	e := New(reasoner)

	events := []*event.Event{
		makeEvent("s1", "u1", event.TypeClick, 100),
		makeEvent("s2", "u2", event.TypeClick, 100),
	}
	out, err := e.Run(context.Background(), events, nil)

	require.NoError(t, err)

	strategies := make(map[string]int)
	for _, r := range out.Recommendations {
		if r.UserID != "u1" {
			continue
		}
		strategies[r.Features[0]]++
	}
	assert.Equal(t, 1, strategies["collaborative_filtering"])
	assert.Equal(t, 1, strategies["content_based"])
	assert.Equal(t, 1, strategies["hybrid"])
	assert.Equal(t, 1, strategies["contextual"])
}

func TestExpiredRecommendationsNotServed(t *testing.T) {
	e := New(nil)
	now := time.Now()

	e.recommendations["u1"] = []Recommendation{
		{ID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour), Status: RecActive},
		{ID: "stale", UserID: "u1", ExpiresAt: now.Add(-time.Hour), Status: RecActive},
	}

	recs := e.Recommendations("u1")

	require.Len(t, recs, 1)
	assert.Equal(t, "live", recs[0].ID)
}

func TestExpiredPredictionsNotServed(t *testing.T) {
	e := New(nil)
	now := time.Now()

	e.predictions = []Prediction{
		{ID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
		{ID: "stale", UserID: "u1", ExpiresAt: now.Add(-time.Hour)},
	}

	preds := e.Predictions("u1")

	require.Len(t, preds, 1)
	assert.Equal(t, "live", preds[0].ID)
}

func TestRunPrunesExpiredPredictions(t *testing.T) {
	reasoner := &stubReasoner{respond: func(prompt string, kind reasoning.TaskKind) (string, error) {
		return "", errors.New("unavailable")
	}}
	e := New(reasoner)
	now := time.Now()

	e.predictions = []Prediction{
		{ID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
		{ID: "stale", UserID: "u1", ExpiresAt: now.Add(-time.Hour)},
	}

	_, err := e.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.predictions, 1)
	assert.Equal(t, "live", e.predictions[0].ID)
}

func TestPredictiveInsightsChurnAndConversion(t *testing.T) {
	predictions := []Prediction{
		{Type: PredictConversion, Probability: 0.9},
		{Type: PredictConversion, Probability: 0.7},
		{Type: PredictChurn, Probability: 0.8},
	}

	insights := predictiveInsights(predictions, nil, nil)

	byType := make(map[string]PredictiveInsight)
	for _, in := range insights {
		byType[in.Type] = in
	}

	conv, ok := byType["conversion_forecast"]
	require.True(t, ok)
	assert.Equal(t, "high", conv.Priority)

	churn, ok := byType["churn_risk"]
	require.True(t, ok)
	assert.Equal(t, "low", churn.Priority)
}

func TestProfileSnapshotAndAccessor(t *testing.T) {
	e := New(nil)

	events := []*event.Event{makeEvent("s1", "u1", event.TypeClick, 100)}
	_, err := e.Run(context.Background(), events, nil)
	require.NoError(t, err)

	profile, ok := e.Profile("u1")
	require.True(t, ok)
	assert.Equal(t, "u1", profile.UserID)
	assert.NotNil(t, profile.Behavior.Patterns)

	_, ok = e.Profile("missing")
	assert.False(t, ok)
}

func TestDefaultModelsAndEngines(t *testing.T) {
	e := New(nil)

	models := e.Models()
	require.Len(t, models, 3)
	for _, m := range models {
		assert.Equal(t, StatusReady, m.Status)
		assert.Greater(t, m.Accuracy, 0.0)
	}

	engines := e.Engines()
	require.Len(t, engines, 3)
}
