package insight

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/analyzer"
	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/predictive"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
	"github.com/userpulse/backend/pkg/periodic"
	"github.com/userpulse/backend/pkg/pubsub"
)

type Reasoner interface {
	Execute(ctx context.Context, prompt string, kind reasoning.TaskKind, priority reasoning.CallPriority) (string, error)
}

// Router delivers a stored insight to its notification channels.
type Router interface {
	Route(ctx context.Context, ins *Insight)
}

type Config struct {
	SweepInterval time.Duration
	SlowEventMS   int64
}

// expiry per insight type; the sweep removes an insight once its window
// passes, regardless of status.
var ttlByType = map[InsightType]time.Duration{
	TypeTrend:          24 * time.Hour,
	TypeAnomaly:        12 * time.Hour,
	TypeOpportunity:    7 * 24 * time.Hour,
	TypeRisk:           6 * time.Hour,
	TypePerformance:    4 * time.Hour,
	TypeUserBehavior:   3 * 24 * time.Hour,
	TypeConversion:     2 * 24 * time.Hour,
	TypeEngagement:     5 * 24 * time.Hour,
	TypeRecommendation: 6 * 24 * time.Hour,
}

var validStatuses = map[Status]bool{
	StatusNew:           true,
	StatusAcknowledged:  true,
	StatusInvestigating: true,
	StatusResolved:      true,
	StatusDismissed:     true,
}

// Generator turns analyzed batches into prioritized, expiring insights and
// hands each one to the router. Topic broadcasts every stored insight.
type Generator struct {
	cfg      Config
	reasoner Reasoner
	router   Router

	Topic *pubsub.Topic[*Insight]

	mu       sync.Mutex
	insights map[string]*Insight
	enabled  bool

	sweepTask *periodic.Task
}

func NewGenerator(cfg Config, reasoner Reasoner, router Router) *Generator {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.SlowEventMS <= 0 {
		cfg.SlowEventMS = 1000
	}

	g := &Generator{
		cfg:      cfg,
		reasoner: reasoner,
		router:   router,
		Topic:    pubsub.NewTopic[*Insight](0),
		insights: make(map[string]*Insight),
		enabled:  true,
	}

	g.sweepTask = periodic.NewTask("insight-sweep", cfg.SweepInterval, g.sweep, logger.GetLogger())
	g.sweepTask.Start()

	return g
}

// GenerateInsights runs all nine generators over one pipeline cycle. Each
// produced insight is stored, broadcast, and routed before the call returns.
func (g *Generator) GenerateInsights(ctx context.Context, events []*event.Event, analysis *analyzer.Result, prediction *predictive.Output) ([]Insight, error) {
	g.mu.Lock()
	enabled := g.enabled
	g.mu.Unlock()
	if !enabled {
		return nil, nil
	}

	var produced []*Insight
	produced = append(produced, g.trendInsights(ctx, events, prediction)...)
	produced = append(produced, g.anomalyInsights(analysis)...)
	produced = append(produced, g.opportunityInsights(ctx, events, prediction)...)
	produced = append(produced, g.riskInsights(ctx, events, prediction)...)
	produced = append(produced, g.performanceInsights(events)...)
	produced = append(produced, g.behaviorInsights(analysis)...)
	produced = append(produced, g.conversionInsights(prediction)...)
	produced = append(produced, g.engagementInsights(prediction)...)
	produced = append(produced, g.recommendationInsights(prediction)...)

	out := make([]Insight, 0, len(produced))
	for _, ins := range produced {
		g.mu.Lock()
		g.insights[ins.ID] = ins
		g.mu.Unlock()

		metrics.InsightsGenerated.WithLabelValues(string(ins.Type), string(ins.Priority)).Inc()

		g.Topic.Publish(ins)
		if g.router != nil {
			g.router.Route(ctx, ins)
		}
		out = append(out, *ins)
	}

	logger.Debug("Generated insights", zap.Int("count", len(out)))
	return out, nil
}

// PriorityFor buckets the weighted impact/urgency score. Thresholds are
// strict.
func PriorityFor(impact, urgency float64) Priority {
	score := impact*0.6 + urgency*0.4
	switch {
	case score > 0.8:
		return PriorityCritical
	case score > 0.6:
		return PriorityHigh
	case score > 0.4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func expiryFor(t InsightType, from time.Time) time.Time {
	ttl, ok := ttlByType[t]
	if !ok {
		ttl = 24 * time.Hour
	}
	return from.Add(ttl)
}

func (g *Generator) sweep() {
	now := time.Now()
	var removed int

	g.mu.Lock()
	for id, ins := range g.insights {
		if now.After(ins.ExpiresAt) {
			delete(g.insights, id)
			removed++
		}
	}
	g.mu.Unlock()

	if removed > 0 {
		metrics.InsightsExpired.Add(float64(removed))
		logger.Debug("Swept expired insights", zap.Int("removed", removed))
	}
}

// Insights returns stored insights, optionally filtered by type and
// priority, sorted newest first. Expiry is the sweep's job: an expired
// insight stays visible until the next sweep removes it.
func (g *Generator) Insights(insightType InsightType, priority Priority) []Insight {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := []Insight{}
	for _, ins := range g.insights {
		if insightType != "" && ins.Type != insightType {
			continue
		}
		if priority != "" && ins.Priority != priority {
			continue
		}
		out = append(out, *ins)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (g *Generator) Insight(id string) (Insight, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ins, ok := g.insights[id]
	if !ok {
		return Insight{}, false
	}
	return *ins, true
}

// UpdateStatus moves an insight through its lifecycle. Unknown statuses are
// rejected.
func (g *Generator) UpdateStatus(id string, status Status) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid insight status %q", status)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ins, ok := g.insights[id]
	if !ok {
		return fmt.Errorf("insight %s not found", id)
	}
	ins.Status = status
	ins.UpdatedAt = time.Now()
	return nil
}

func (g *Generator) Enable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = true
}

func (g *Generator) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = false
}

func (g *Generator) Destroy() {
	g.sweepTask.Stop()
}
