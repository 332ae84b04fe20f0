package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
	"github.com/userpulse/backend/pkg/periodic"
	"github.com/userpulse/backend/pkg/pubsub"
)

// Reasoner is the reasoning collaborator the store uses for inline analysis.
type Reasoner interface {
	Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error)
}

// Sink receives flushed event batches for durable storage.
type Sink interface {
	SaveEventBatch(ctx context.Context, events []*Event) error
}

type StoreConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Store buffers events in memory, indexes them by session and user, and
// flushes in batches. Session and user indices are append-only: they keep the
// ids of flushed events even though the events themselves are gone from the
// buffer.
type Store struct {
	cfg      StoreConfig
	reasoner Reasoner
	sink     Sink

	// EventTopic receives every logged event that passes the filter set.
	// FlushTopic receives each flushed batch.
	EventTopic *pubsub.Topic[*Event]
	FlushTopic *pubsub.Topic[[]*Event]

	mu       sync.Mutex
	events   map[string]*Event
	sessions map[string][]string
	users    map[string][]string
	filters  []Filter
	enabled  bool

	flushTask *periodic.Task
}

type LogOptions struct {
	UserID      string
	Priority    Priority
	Category    Category
	Page        *PageContext
	Element     *ElementContext
	Metadata    *Metadata
	ParentEvent string
	UserAgent   string
	Performance *PerformanceContext
	Security    *SecurityContext
}

func NewStore(cfg StoreConfig, reasoner Reasoner, sink Sink) *Store {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	s := &Store{
		cfg:        cfg,
		reasoner:   reasoner,
		sink:       sink,
		EventTopic: pubsub.NewTopic[*Event](0),
		FlushTopic: pubsub.NewTopic[[]*Event](0),
		events:     make(map[string]*Event),
		sessions:   make(map[string][]string),
		users:      make(map[string][]string),
		enabled:    true,
	}

	s.flushTask = periodic.NewTask("event-flush", cfg.FlushInterval, func() {
		if err := s.Flush(context.Background()); err != nil {
			logger.Warn("Scheduled flush failed", zap.Error(err))
		}
	}, logger.GetLogger())
	s.flushTask.Start()

	logger.Info("Event store initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return s
}

func (s *Store) lock()   { s.mu.Lock() }
func (s *Store) unlock() { s.mu.Unlock() }

// LogEvent records one event and returns its id. A disabled store returns an
// empty id and no error. High/critical priority events and ai-category events
// get an inline analysis; on reasoning failure the deterministic fallback is
// attached instead.
func (s *Store) LogEvent(ctx context.Context, sessionID string, eventType EventType, data EventData, opts LogOptions) (string, error) {
	if !s.isEnabled() {
		return "", nil
	}

	category := opts.Category
	if category == "" {
		category = InferCategory(eventType)
	}
	priority := opts.Priority
	if priority == "" {
		priority = InferPriority(eventType)
	}

	e := &Event{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		UserID:        opts.UserID,
		Type:          eventType,
		Category:      category,
		Priority:      priority,
		Timestamp:     time.Now(),
		Page:          pageOrDefault(opts.Page),
		Element:       elementOrDefault(opts.Element),
		User:          defaultUserContext(opts.UserID),
		Device:        ParseDeviceContext(opts.UserAgent),
		Data:          data,
		Metadata:      metadataOrDefault(opts.Metadata),
		RelatedEvents: []string{},
		ParentEvent:   opts.ParentEvent,
		ChildEvents:   []string{},
	}
	if opts.Performance != nil {
		e.Performance = *opts.Performance
	}
	if opts.Security != nil {
		e.Security = *opts.Security
	} else {
		e.Security = SecurityContext{UserAgent: opts.UserAgent}
	}

	if shouldAnalyze(e) && s.reasoner != nil {
		e.Analysis = s.analyzeEvent(ctx, e)
	}

	s.lock()
	s.events[e.ID] = e
	s.sessions[sessionID] = append(s.sessions[sessionID], e.ID)
	if e.UserID != "" {
		s.users[e.UserID] = append(s.users[e.UserID], e.ID)
	}

	if e.ParentEvent != "" {
		if parent, ok := s.events[e.ParentEvent]; ok {
			parent.ChildEvents = append(parent.ChildEvents, e.ID)
			e.RelatedEvents = append(e.RelatedEvents, parent.ID)
		}
	}

	publish := s.matchesFilters(e)
	full := len(s.events) >= s.cfg.BatchSize
	s.unlock()

	metrics.EventsLogged.WithLabelValues(string(e.Type), string(e.Category)).Inc()

	if publish {
		s.EventTopic.Publish(e)
	}

	if full {
		if err := s.Flush(ctx); err != nil {
			logger.Warn("Batch flush failed", zap.Error(err))
		}
	}

	return e.ID, nil
}

// LogContentEvent records a content lifecycle action, tagging the acting
// agent when one is supplied.
func (s *Store) LogContentEvent(ctx context.Context, sessionID, action string, content ContentData, userID, agentID string, processingTimeMS int64) (string, error) {
	content.Action = action
	data := EventData{Content: &content}

	if agentID != "" {
		input, _ := json.Marshal(content)
		data.Agent = &AgentData{
			AgentID:          agentID,
			Action:           "content_" + action,
			Input:            json.RawMessage(input),
			Confidence:       0.9,
			ProcessingTimeMS: processingTimeMS,
			Model:            "content-generator",
		}
	}

	return s.LogEvent(ctx, sessionID, EventType("content_"+action), data, LogOptions{
		UserID:   userID,
		Priority: PriorityHigh,
		Category: CategoryContent,
		Metadata: &Metadata{Feature: "content-management"},
	})
}

// LogAgentEvent records an autonomous agent action.
func (s *Store) LogAgentEvent(ctx context.Context, sessionID, agentID, action string, input, output any, opts LogOptions) (string, error) {
	data := EventData{
		Agent: &AgentData{
			AgentID:    agentID,
			Action:     action,
			Input:      input,
			Output:     output,
			Confidence: 0.8,
		},
	}

	if opts.Priority == "" {
		opts.Priority = PriorityMedium
	}
	opts.Category = CategoryAI
	if opts.Metadata == nil {
		opts.Metadata = &Metadata{Feature: "ai-agent"}
	}

	return s.LogEvent(ctx, sessionID, TypeAgentAction, data, opts)
}

// Flush swaps the buffer out under the lock, persists the batch, and
// broadcasts it. Session and user indices are untouched.
func (s *Store) Flush(ctx context.Context) error {
	s.lock()
	if len(s.events) == 0 {
		s.unlock()
		return nil
	}
	batch := make([]*Event, 0, len(s.events))
	for _, e := range s.events {
		batch = append(batch, e)
	}
	s.events = make(map[string]*Event)
	s.unlock()

	metrics.FlushesTotal.Inc()
	metrics.FlushBatchSize.Observe(float64(len(batch)))

	if s.sink != nil {
		if err := s.sink.SaveEventBatch(ctx, batch); err != nil {
			logger.Error("Failed to persist event batch", zap.Error(err), zap.Int("count", len(batch)))
		}
	}

	logger.Debug("Flushed events", zap.Int("count", len(batch)))

	s.FlushTopic.Publish(batch)
	return nil
}

func (s *Store) GetEvent(eventID string) (*Event, bool) {
	s.lock()
	defer s.unlock()
	e, ok := s.events[eventID]
	return e, ok
}

// GetSessionEvents returns the buffered events of a session in logging order.
// Ids of already-flushed events are skipped.
func (s *Store) GetSessionEvents(sessionID string) []*Event {
	s.lock()
	defer s.unlock()
	return s.resolve(s.sessions[sessionID])
}

func (s *Store) GetUserEvents(userID string) []*Event {
	s.lock()
	defer s.unlock()
	return s.resolve(s.users[userID])
}

func (s *Store) resolve(ids []string) []*Event {
	out := make([]*Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.events[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) AddFilter(f Filter) {
	s.lock()
	defer s.unlock()
	s.filters = append(s.filters, f)
}

func (s *Store) RemoveFilter(index int) error {
	s.lock()
	defer s.unlock()
	if index < 0 || index >= len(s.filters) {
		return fmt.Errorf("filter index %d out of range", index)
	}
	s.filters = append(s.filters[:index], s.filters[index+1:]...)
	return nil
}

func (s *Store) Filters() []Filter {
	s.lock()
	defer s.unlock()
	out := make([]Filter, len(s.filters))
	copy(out, s.filters)
	return out
}

// GetAggregation summarizes the buffered events, optionally restricted by a
// filter.
func (s *Store) GetAggregation(filter *Filter) Aggregation {
	s.lock()
	events := make([]*Event, 0, len(s.events))
	for _, e := range s.events {
		if filter == nil || filter.Matches(e) {
			events = append(events, e)
		}
	}
	s.unlock()

	return Aggregate(events)
}

// Aggregate computes the summary for an arbitrary event slice.
func Aggregate(events []*Event) Aggregation {
	total := len(events)

	userSet := make(map[string]struct{})
	sessionSet := make(map[string]struct{})
	eventCounts := make(map[string]int)
	pageCounts := make(map[string]int)
	elementCounts := make(map[string]int)
	hourCounts := make(map[int]int)

	for _, e := range events {
		if e.UserID != "" {
			userSet[e.UserID] = struct{}{}
		}
		sessionSet[e.SessionID] = struct{}{}
		eventCounts[string(e.Type)]++
		pageCounts[e.Page.URL]++
		elementCounts[e.Element.TagName]++
		hourCounts[e.Timestamp.Hour()]++
	}

	avg := 0.0
	if len(sessionSet) > 0 {
		avg = float64(total) / float64(len(sessionSet))
	}

	dist := make([]HourBucket, 0, len(hourCounts))
	for hour, count := range hourCounts {
		dist = append(dist, HourBucket{Hour: hour, Count: count})
	}
	sortHourBuckets(dist)

	return Aggregation{
		TotalEvents:       total,
		UniqueUsers:       len(userSet),
		UniqueSessions:    len(sessionSet),
		AveragePerSession: avg,
		TopEvents:         topRanked(eventCounts, total, 10),
		TopPages:          topRanked(pageCounts, total, 10),
		TopElements:       topRanked(elementCounts, total, 10),
		TimeDistribution:  dist,
	}
}

func (s *Store) Enable() {
	s.lock()
	defer s.unlock()
	s.enabled = true
}

func (s *Store) Disable() {
	s.lock()
	defer s.unlock()
	s.enabled = false
}

func (s *Store) isEnabled() bool {
	s.lock()
	defer s.unlock()
	return s.enabled
}

// Destroy stops the flush timer and flushes whatever is buffered.
func (s *Store) Destroy(ctx context.Context) {
	s.flushTask.Stop()
	if err := s.Flush(ctx); err != nil {
		logger.Warn("Final flush failed", zap.Error(err))
	}
}

func (s *Store) matchesFilters(e *Event) bool {
	if len(s.filters) == 0 {
		return true
	}
	for _, f := range s.filters {
		if f.Matches(e) {
			return true
		}
	}
	return false
}

func (s *Store) analyzeEvent(ctx context.Context, e *Event) *Analysis {
	prompt := buildAnalysisPrompt(e)

	content, err := s.reasoner.Execute(ctx, prompt, reasoning.TaskAnalysis, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Inline event analysis failed",
			zap.Error(err),
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
		)
		metrics.ReasoningFallbacks.WithLabelValues("event_analysis").Inc()
		return FallbackAnalysis()
	}

	var a Analysis
	if err := reasoning.DecodeObject(content, &a); err != nil {
		logger.Warn("Failed to decode event analysis", zap.Error(err), zap.String("event_id", e.ID))
		metrics.ReasoningFallbacks.WithLabelValues("event_analysis").Inc()
		return FallbackAnalysis()
	}
	return &a
}

func buildAnalysisPrompt(e *Event) string {
	data, _ := json.Marshal(e.Data)

	return fmt.Sprintf(`Analyze this user interaction event.

Event:
- type: %s
- category: %s
- page: %s
- element: %s
- user: %s
- time: %s

Event data:
%s

Respond with a JSON object:
{"intent": "...", "sentiment": "positive|negative|neutral", "confidence": 0.0,
"patterns": [], "anomalies": [], "recommendations": [],
"nextAction": "...", "nextProbability": 0.0}`,
		e.Type, e.Category, e.Page.URL, e.Element.TagName, userOrAnonymous(e.UserID),
		e.Timestamp.Format(time.RFC3339), string(data))
}

// FallbackAnalysis is the deterministic analysis used when the reasoning
// call fails or returns garbage.
func FallbackAnalysis() *Analysis {
	return &Analysis{
		Intent:          "unknown",
		Sentiment:       "neutral",
		Confidence:      0.5,
		Patterns:        []string{},
		Anomalies:       []string{},
		Recommendations: []string{},
		NextAction:      "unknown",
		NextProbability: 0.5,
	}
}

func userOrAnonymous(userID string) string {
	if userID == "" {
		return "anonymous"
	}
	return userID
}

func pageOrDefault(p *PageContext) PageContext {
	if p == nil {
		return PageContext{Query: map[string]string{}}
	}
	if p.Query == nil {
		p.Query = map[string]string{}
	}
	return *p
}

func elementOrDefault(e *ElementContext) ElementContext {
	if e == nil {
		return ElementContext{Attributes: map[string]string{}}
	}
	if e.Attributes == nil {
		e.Attributes = map[string]string{}
	}
	return *e
}

func metadataOrDefault(m *Metadata) Metadata {
	out := Metadata{
		Source:      "event-store",
		Version:     "1.0.0",
		Environment: "production",
	}
	if m == nil {
		return out
	}
	if m.Source != "" {
		out.Source = m.Source
	}
	if m.Version != "" {
		out.Version = m.Version
	}
	if m.Environment != "" {
		out.Environment = m.Environment
	}
	out.Feature = m.Feature
	out.Custom = m.Custom
	return out
}

func defaultUserContext(userID string) UserContext {
	return UserContext{
		ID:          userID,
		Role:        "user",
		Segment:     "general",
		Preferences: map[string]any{},
		Behavior: UserBehaviorSummary{
			SessionCount: 1,
		},
	}
}
