package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userpulse/backend/internal/reasoning"
)

type stubReasoner struct {
	content string
	err     error
}

func (r *stubReasoner) Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error) {
	return r.content, r.err
}

func TestTrackPageViewUnknownSessionFails(t *testing.T) {
	tr := NewTracker(nil, nil)

	_, err := tr.TrackPageView(context.Background(), "missing", PageView{URL: "/home"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = tr.TrackEvent(context.Background(), "missing", TrackedEvent{Type: "click"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = tr.EndSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	tr := NewTracker(&stubReasoner{content: `{"patterns": ["reader"], "improvements": ["faster pages"]}`}, nil)
	ctx := context.Background()

	s := tr.StartSession(ctx, StartOptions{UserID: "user-1"})
	require.True(t, s.IsActive)

	pv, err := tr.TrackPageView(ctx, s.SessionID, PageView{URL: "/home", ScrollDepth: 80, TimeOnPage: 12000})
	require.NoError(t, err)
	assert.True(t, pv.EntryPage)

	pv2, err := tr.TrackPageView(ctx, s.SessionID, PageView{URL: "/pricing", ScrollDepth: 60, TimeOnPage: 8000})
	require.NoError(t, err)
	assert.False(t, pv2.EntryPage)

	ev, err := tr.TrackEvent(ctx, s.SessionID, TrackedEvent{Element: "cta"})
	require.NoError(t, err)
	assert.Equal(t, "custom", ev.Type)
	// event page defaults to the latest page view
	assert.Equal(t, "/pricing", ev.Page)

	ended, err := tr.EndSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	assert.NotNil(t, ended.EndTime)

	analysis, ok := tr.GetAnalysis(s.SessionID)
	require.True(t, ok)
	assert.Equal(t, 2, analysis.Engagement.PageViews)
	assert.Equal(t, 1, analysis.Engagement.Events)
	// both pages scrolled past 50%
	assert.Equal(t, 1.0, analysis.Journey.CompletionRate)
	assert.True(t, analysis.Journey.GoalAchieved)

	// reasoned improvements become recommendations
	require.NotEmpty(t, analysis.Recommendations)
	assert.Equal(t, "faster pages", analysis.Recommendations[0].Title)
}

func TestAnalysisSurvivesReasoningFailure(t *testing.T) {
	tr := NewTracker(&stubReasoner{err: errors.New("down")}, nil)
	ctx := context.Background()

	s := tr.StartSession(ctx, StartOptions{})
	_, err := tr.TrackPageView(ctx, s.SessionID, PageView{URL: "/only", ScrollDepth: 10})
	require.NoError(t, err)

	analysis, err := tr.AnalyzeSession(ctx, s.SessionID)
	require.NoError(t, err)

	assert.Equal(t, 1.0, analysis.Engagement.BounceRate)
	assert.False(t, analysis.Journey.GoalAchieved)
	// single page visit triggers the bounce recommendation even without reasoning
	require.NotEmpty(t, analysis.Recommendations)
	assert.Equal(t, "Reduce bounce rate", analysis.Recommendations[0].Title)
}

func TestAnalysisIsCached(t *testing.T) {
	tr := NewTracker(nil, nil)
	ctx := context.Background()

	s := tr.StartSession(ctx, StartOptions{})
	first, err := tr.AnalyzeSession(ctx, s.SessionID)
	require.NoError(t, err)
	second, err := tr.AnalyzeSession(ctx, s.SessionID)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestStats(t *testing.T) {
	tr := NewTracker(nil, nil)
	ctx := context.Background()

	a := tr.StartSession(ctx, StartOptions{})
	tr.StartSession(ctx, StartOptions{})

	_, err := tr.TrackPageView(ctx, a.SessionID, PageView{URL: "/x"})
	require.NoError(t, err)
	_, err = tr.EndSession(ctx, a.SessionID)
	require.NoError(t, err)

	stats := tr.GetStats()
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 1, stats.TotalPageViews)
}

func TestScoreGrades(t *testing.T) {
	cases := []struct {
		overall float64
		grade   string
	}{
		{90, "A"}, {70, "B"}, {50, "C"}, {30, "D"}, {10, "F"},
	}
	for _, tc := range cases {
		score := calculateScore(
			EngagementMetrics{EngagementScore: tc.overall},
			Journey{CompletionRate: tc.overall / 100},
		)
		assert.Equal(t, tc.grade, score.Grade)
	}
}
