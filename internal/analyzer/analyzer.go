package analyzer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
)

type Reasoner interface {
	Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error)
}

type Config struct {
	SequenceWindow int
	SlowEventMS    int64
	MinStepMS      int64
}

// Analyzer derives patterns, segments, journeys and anomalies from event
// batches. Segments accumulate across batches; everything else is computed
// per batch.
type Analyzer struct {
	cfg      Config
	reasoner Reasoner

	mu       sync.Mutex
	segments map[string]*UserSegment
	journeys map[string]*UserJourney
}

func New(cfg Config, reasoner Reasoner) *Analyzer {
	if cfg.SequenceWindow <= 0 {
		cfg.SequenceWindow = 3
	}
	if cfg.SlowEventMS <= 0 {
		cfg.SlowEventMS = 1000
	}
	if cfg.MinStepMS <= 0 {
		cfg.MinStepMS = 500
	}

	return &Analyzer{
		cfg:      cfg,
		reasoner: reasoner,
		segments: make(map[string]*UserSegment),
		journeys: make(map[string]*UserJourney),
	}
}

// AnalyzeEvents runs every derivation over the batch. Each stage tolerates
// reasoning failures; a stage that cannot reason still returns its
// statistical output.
func (a *Analyzer) AnalyzeEvents(ctx context.Context, events []*event.Event) (*Result, error) {
	start := time.Now()

	patterns := a.extractPatterns(ctx, events)
	segments := a.updateSegments(events)
	journeys := a.analyzeJourneys(events)
	anomalies := a.detectAnomalies(ctx, events)
	insights := buildBatchInsights(patterns, segments, journeys, anomalies)

	metrics.AnalysisDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	logger.Debug("Analyzed event batch",
		zap.Int("events", len(events)),
		zap.Int("patterns", len(patterns)),
		zap.Int("segments", len(segments)),
		zap.Int("journeys", len(journeys)),
		zap.Int("anomalies", len(anomalies)),
	)

	return &Result{
		Patterns:  patterns,
		Segments:  segments,
		Journeys:  journeys,
		Anomalies: anomalies,
		Insights:  insights,
	}, nil
}

// Journeys returns the latest journey per session, oldest start first.
// Re-analyzing a session replaces its journey.
func (a *Analyzer) Journeys() []UserJourney {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]UserJourney, 0, len(a.journeys))
	for _, j := range a.journeys {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func (a *Analyzer) Segments() []UserSegment {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]UserSegment, 0, len(a.segments))
	for _, s := range a.segments {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func groupBySession(events []*event.Event) map[string][]*event.Event {
	groups := make(map[string][]*event.Event)
	for _, e := range events {
		groups[e.SessionID] = append(groups[e.SessionID], e)
	}
	return groups
}

func groupByUser(events []*event.Event) map[string][]*event.Event {
	groups := make(map[string][]*event.Event)
	for _, e := range events {
		if e.UserID != "" {
			groups[e.UserID] = append(groups[e.UserID], e)
		}
	}
	return groups
}

func buildBatchInsights(patterns []BehaviorPattern, segments []UserSegment, journeys []UserJourney, anomalies []Anomaly) []BatchInsight {
	insights := []BatchInsight{}

	if len(patterns) > 0 {
		insights = append(insights, BatchInsight{
			Kind:        "pattern",
			Title:       "Behavior patterns identified",
			Description: fmt.Sprintf("%d patterns extracted from the batch", len(patterns)),
			Confidence:  0.8,
		})
	}

	if len(segments) > 0 {
		insights = append(insights, BatchInsight{
			Kind:        "segment",
			Title:       "Segments touched",
			Description: fmt.Sprintf("%d user segments matched or created", len(segments)),
			Confidence:  0.7,
		})
	}

	var achieved int
	for _, j := range journeys {
		if j.Achieved {
			achieved++
		}
	}
	if len(journeys) > 0 {
		insights = append(insights, BatchInsight{
			Kind:        "journey",
			Title:       "Journey goal completion",
			Description: fmt.Sprintf("%d of %d journeys achieved their inferred goal", achieved, len(journeys)),
			Confidence:  0.7,
		})
	}

	var critical int
	for _, an := range anomalies {
		if an.Severity == "critical" || an.Severity == "high" {
			critical++
		}
	}
	if critical > 0 {
		insights = append(insights, BatchInsight{
			Kind:        "anomaly",
			Title:       "High-severity anomalies",
			Description: fmt.Sprintf("%d anomalies at high or critical severity", critical),
			Confidence:  0.9,
		})
	}

	return insights
}
