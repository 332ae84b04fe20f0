package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
)

// ErrSessionNotFound is returned when a tracking call names a session that
// was never started. Tracking against an unknown session is a hard failure.
var ErrSessionNotFound = errors.New("session not found")

// Persister receives tracking records for durable storage.
type Persister interface {
	SaveSession(ctx context.Context, s *Session) error
	SavePageView(ctx context.Context, sessionID string, pv *PageView) error
	SaveTrackedEvent(ctx context.Context, sessionID string, ev *TrackedEvent) error
	SaveAnalysis(ctx context.Context, a *BehaviorAnalysis) error
}

type Reasoner interface {
	Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error)
}

// Tracker is the session registry. Ended sessions get a behavior analysis
// that is cached until the tracker is destroyed.
type Tracker struct {
	reasoner  Reasoner
	persister Persister

	mu       sync.Mutex
	sessions map[string]*Session
	analyses map[string]*BehaviorAnalysis
}

type StartOptions struct {
	UserID    string
	UserAgent string
	Location  LocationInfo
	Referrer  string
	UTM       *UTMParams
}

func NewTracker(reasoner Reasoner, persister Persister) *Tracker {
	return &Tracker{
		reasoner:  reasoner,
		persister: persister,
		sessions:  make(map[string]*Session),
		analyses:  make(map[string]*BehaviorAnalysis),
	}
}

func (t *Tracker) StartSession(ctx context.Context, opts StartOptions) *Session {
	now := time.Now()

	device := event.ParseDeviceContext(opts.UserAgent)

	s := &Session{
		SessionID: uuid.New().String(),
		UserID:    opts.UserID,
		StartTime: now,
		PageViews: []PageView{},
		Events:    []TrackedEvent{},
		Device: DeviceInfo{
			UserAgent:      opts.UserAgent,
			Browser:        device.BrowserName,
			BrowserVersion: device.BrowserVersion,
			OS:             device.OSName,
			OSVersion:      device.OSVersion,
			DeviceType:     device.Type,
		},
		Location:     opts.Location,
		Referrer:     opts.Referrer,
		UTM:          opts.UTM,
		IsActive:     true,
		LastActivity: now,
	}

	t.mu.Lock()
	t.sessions[s.SessionID] = s
	t.mu.Unlock()

	t.persistSession(ctx, s)

	logger.Debug("Session started",
		zap.String("session_id", s.SessionID),
		zap.String("user_id", s.UserID),
	)

	return s
}

// EndSession closes a session, records its duration, and runs the behavior
// analysis.
func (t *Tracker) EndSession(ctx context.Context, sessionID string) (*Session, error) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	now := time.Now()
	s.EndTime = &now
	s.DurationMS = now.Sub(s.StartTime).Milliseconds()
	s.IsActive = false
	t.mu.Unlock()

	t.persistSession(ctx, s)

	if _, err := t.AnalyzeSession(ctx, sessionID); err != nil {
		logger.Warn("Session analysis failed", zap.Error(err), zap.String("session_id", sessionID))
	}

	return s, nil
}

func (t *Tracker) TrackPageView(ctx context.Context, sessionID string, pv PageView) (*PageView, error) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	pv.ID = uuid.New().String()
	pv.Timestamp = time.Now()
	pv.EntryPage = len(s.PageViews) == 0

	s.PageViews = append(s.PageViews, pv)
	s.LastActivity = pv.Timestamp
	t.mu.Unlock()

	if t.persister != nil {
		if err := t.persister.SavePageView(ctx, sessionID, &pv); err != nil {
			logger.Warn("Failed to persist page view", zap.Error(err))
		}
	}

	return &pv, nil
}

func (t *Tracker) TrackEvent(ctx context.Context, sessionID string, ev TrackedEvent) (*TrackedEvent, error) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	ev.ID = uuid.New().String()
	ev.Timestamp = time.Now()
	if ev.Type == "" {
		ev.Type = "custom"
	}
	if ev.Page == "" && len(s.PageViews) > 0 {
		ev.Page = s.PageViews[len(s.PageViews)-1].URL
	}

	s.Events = append(s.Events, ev)
	s.LastActivity = ev.Timestamp
	t.mu.Unlock()

	if t.persister != nil {
		if err := t.persister.SaveTrackedEvent(ctx, sessionID, &ev); err != nil {
			logger.Warn("Failed to persist tracked event", zap.Error(err))
		}
	}

	return &ev, nil
}

func (t *Tracker) GetSession(sessionID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	return s, ok
}

// AnalyzeSession produces the behavior analysis for a session. Results are
// cached; a second call returns the cached value.
func (t *Tracker) AnalyzeSession(ctx context.Context, sessionID string) (*BehaviorAnalysis, error) {
	t.mu.Lock()
	if cached, ok := t.analyses[sessionID]; ok {
		t.mu.Unlock()
		return cached, nil
	}
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	snapshot := *s
	t.mu.Unlock()

	reasoned := t.reasonedAnalysis(ctx, &snapshot)

	engagement := calculateEngagement(&snapshot)
	journey := analyzeJourney(&snapshot)
	analysis := &BehaviorAnalysis{
		SessionID:       snapshot.SessionID,
		UserID:          snapshot.UserID,
		Engagement:      engagement,
		Journey:         journey,
		DropoffPoints:   identifyDropoffs(&snapshot),
		Recommendations: buildRecommendations(&snapshot, reasoned),
		Insights:        buildInsights(&snapshot, reasoned),
		Score:           calculateScore(engagement, journey),
	}

	t.mu.Lock()
	t.analyses[sessionID] = analysis
	t.mu.Unlock()

	if t.persister != nil {
		if err := t.persister.SaveAnalysis(ctx, analysis); err != nil {
			logger.Warn("Failed to persist behavior analysis", zap.Error(err))
		}
	}

	return analysis, nil
}

func (t *Tracker) GetAnalysis(sessionID string) (*BehaviorAnalysis, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.analyses[sessionID]
	return a, ok
}

type Stats struct {
	TotalSessions          int     `json:"totalSessions"`
	ActiveSessions         int     `json:"activeSessions"`
	TotalPageViews         int     `json:"totalPageViews"`
	TotalEvents            int     `json:"totalEvents"`
	AverageEngagement      float64 `json:"averageEngagement"`
	AverageSessionDuration float64 `json:"averageSessionDurationMs"`
}

func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{TotalSessions: len(t.sessions)}
	var durationSum int64
	for _, s := range t.sessions {
		if s.IsActive {
			stats.ActiveSessions++
		}
		stats.TotalPageViews += len(s.PageViews)
		stats.TotalEvents += len(s.Events)
		durationSum += s.DurationMS
	}
	if len(t.sessions) > 0 {
		stats.AverageSessionDuration = float64(durationSum) / float64(len(t.sessions))
	}

	var engagementSum float64
	for _, a := range t.analyses {
		engagementSum += a.Engagement.EngagementScore
	}
	if len(t.analyses) > 0 {
		stats.AverageEngagement = engagementSum / float64(len(t.analyses))
	}

	return stats
}

type reasonedSession struct {
	Patterns     []string `json:"patterns"`
	Improvements []string `json:"improvements"`
}

func (t *Tracker) reasonedAnalysis(ctx context.Context, s *Session) reasonedSession {
	fallback := reasonedSession{Patterns: []string{}, Improvements: []string{}}
	if t.reasoner == nil {
		return fallback
	}

	content, err := t.reasoner.Execute(ctx, buildSessionPrompt(s), reasoning.TaskAnalysis, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Session reasoning failed", zap.Error(err), zap.String("session_id", s.SessionID))
		return fallback
	}

	var out reasonedSession
	if err := reasoning.DecodeObject(content, &out); err != nil {
		logger.Warn("Failed to decode session analysis", zap.Error(err))
		return fallback
	}
	if out.Patterns == nil {
		out.Patterns = []string{}
	}
	if out.Improvements == nil {
		out.Improvements = []string{}
	}
	return out
}

func buildSessionPrompt(s *Session) string {
	var b strings.Builder

	end := "active"
	if s.EndTime != nil {
		end = s.EndTime.Format(time.RFC3339)
	}
	fmt.Fprintf(&b, `Analyze this user session.

Session:
- id: %s
- user: %s
- window: %s - %s
- page views: %d
- events: %d

Page views:
`, s.SessionID, s.UserID, s.StartTime.Format(time.RFC3339), end, len(s.PageViews), len(s.Events))

	for _, pv := range s.PageViews {
		fmt.Fprintf(&b, "- %s (%s) time_on_page=%dms scroll=%.0f%% exit=%t\n",
			pv.URL, pv.Title, pv.TimeOnPage, pv.ScrollDepth, pv.ExitPage)
	}

	b.WriteString("\nEvents:\n")
	for _, ev := range s.Events {
		fmt.Fprintf(&b, "- %s on %s at %s\n", ev.Type, ev.Element, ev.Page)
	}

	b.WriteString(`
Respond with a JSON object: {"patterns": ["..."], "improvements": ["..."]}`)

	return b.String()
}

func calculateEngagement(s *Session) EngagementMetrics {
	m := EngagementMetrics{
		TotalTimeMS: s.DurationMS,
		PageViews:   len(s.PageViews),
		Events:      len(s.Events),
	}

	if len(s.PageViews) > 0 {
		var depthSum float64
		for _, pv := range s.PageViews {
			depthSum += pv.ScrollDepth
		}
		m.ScrollDepth = depthSum / float64(len(s.PageViews))
	}
	if len(s.PageViews) == 1 {
		m.BounceRate = 1
	}

	score := float64(s.DurationMS)/1000*0.1 + float64(m.PageViews)*10 + float64(m.Events)*5 + m.ScrollDepth*0.5
	if score > 100 {
		score = 100
	}
	m.EngagementScore = score

	return m
}

func analyzeJourney(s *Session) Journey {
	steps := make([]JourneyStep, 0, len(s.PageViews))
	path := make([]string, 0, len(s.PageViews))
	succeeded := 0

	for i, pv := range s.PageViews {
		success := pv.ScrollDepth > 50
		if success {
			succeeded++
		}
		steps = append(steps, JourneyStep{
			Step:       i + 1,
			Page:       pv.URL,
			Action:     "page_view",
			Timestamp:  pv.Timestamp,
			DurationMS: pv.TimeOnPage,
			Success:    success,
		})
		path = append(path, pv.URL)
	}

	completion := 0.0
	if len(steps) > 0 {
		completion = float64(succeeded) / float64(len(steps))
	}

	return Journey{
		Steps:          steps,
		Path:           path,
		DurationMS:     s.DurationMS,
		CompletionRate: completion,
		GoalAchieved:   completion > 0.7,
		FrictionPoints: identifyFriction(steps),
	}
}

func identifyFriction(steps []JourneyStep) []FrictionPoint {
	points := []FrictionPoint{}

	var short []JourneyStep
	var failed []JourneyStep
	for _, st := range steps {
		if st.DurationMS < 5000 {
			short = append(short, st)
		}
		if !st.Success {
			failed = append(failed, st)
		}
	}

	if len(short) > 0 {
		points = append(points, FrictionPoint{
			Page:      short[0].Page,
			Element:   "page",
			Issue:     "short dwell time",
			Severity:  "medium",
			Frequency: len(short),
			Impact:    0.3,
		})
	}
	if len(failed) > 0 {
		points = append(points, FrictionPoint{
			Page:      failed[0].Page,
			Element:   "content",
			Issue:     "low engagement",
			Severity:  "high",
			Frequency: len(failed),
			Impact:    0.7,
		})
	}

	return points
}

func identifyDropoffs(s *Session) []DropoffPoint {
	points := []DropoffPoint{}
	for _, pv := range s.PageViews {
		if !pv.ExitPage {
			continue
		}
		points = append(points, DropoffPoint{
			Page:          pv.URL,
			DropoffRate:   1.0,
			CommonReasons: []string{"thin content", "slow loading", "navigation issues"},
			Suggestions:   []string{"improve content", "optimize performance", "simplify navigation"},
			Priority:      "high",
		})
	}
	return points
}

func buildRecommendations(s *Session, reasoned reasonedSession) []Recommendation {
	recs := []Recommendation{}

	for _, improvement := range reasoned.Improvements {
		recs = append(recs, Recommendation{
			Type:        "ux",
			Priority:    "medium",
			Title:       improvement,
			Description: "Suggested from session behavior: " + improvement,
			Impact:      0.5,
			Effort:      "medium",
		})
	}

	if len(s.PageViews) == 1 {
		recs = append(recs, Recommendation{
			Type:        "content",
			Priority:    "high",
			Title:       "Reduce bounce rate",
			Description: "Single-page visit indicates a bounce",
			Impact:      0.8,
			Effort:      "high",
		})
	}

	return recs
}

func buildInsights(s *Session, reasoned reasonedSession) []Insight {
	insights := []Insight{}

	if len(reasoned.Patterns) > 0 {
		insights = append(insights, Insight{
			Type:        "pattern",
			Title:       "Behavior patterns",
			Description: strings.Join(reasoned.Patterns, ", "),
			Confidence:  0.8,
			Actionable:  true,
		})
	}

	if len(s.PageViews) > 0 && len(s.Events) > len(s.PageViews)*2 {
		insights = append(insights, Insight{
			Type:        "pattern",
			Title:       "High engagement",
			Description: "Events per page view are well above baseline",
			Confidence:  0.9,
			Actionable:  true,
		})
	}

	return insights
}

func calculateScore(engagement EngagementMetrics, journey Journey) Score {
	overall := (engagement.EngagementScore + journey.CompletionRate*100) / 2

	grade := "F"
	switch {
	case overall >= 80:
		grade = "A"
	case overall >= 60:
		grade = "B"
	case overall >= 40:
		grade = "C"
	case overall >= 20:
		grade = "D"
	}

	return Score{
		Overall:      overall,
		Engagement:   engagement.EngagementScore,
		Satisfaction: journey.CompletionRate * 100,
		Grade:        grade,
	}
}

func (t *Tracker) persistSession(ctx context.Context, s *Session) {
	if t.persister == nil {
		return
	}
	if err := t.persister.SaveSession(ctx, s); err != nil {
		logger.Warn("Failed to persist session", zap.Error(err), zap.String("session_id", s.SessionID))
	}
}
