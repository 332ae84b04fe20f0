package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/analyzer"
	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/predictive"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
)

func newInsight(t InsightType, priority Priority, title, description, summary string, m Metrics) *Insight {
	now := time.Now()
	return &Insight{
		ID:               uuid.New().String(),
		Type:             t,
		Priority:         priority,
		Status:           StatusNew,
		Title:            title,
		Description:      description,
		Summary:          summary,
		Metrics:          m,
		Recommendations:  []string{},
		Actions:          []Action{},
		AffectedUsers:    []string{},
		AffectedSessions: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        expiryFor(t, now),
		Tags:             []string{},
		Metadata:         map[string]any{},
	}
}

func suggestAction(t ActionType, priority Priority, title, description string) Action {
	return Action{
		ID:          uuid.New().String(),
		Type:        t,
		Title:       title,
		Description: description,
		Status:      "pending",
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
}

func severityToPriority(severity string) Priority {
	switch severity {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type reasonedTrend struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Summary          string   `json:"summary"`
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	Impact           float64  `json:"impact"`
	Urgency          float64  `json:"urgency"`
	Frequency        float64  `json:"frequency"`
	Direction        string   `json:"direction"`
	Baseline         float64  `json:"baseline"`
	Current          float64  `json:"current"`
	Change           float64  `json:"change"`
	ChangePercentage float64  `json:"changePercentage"`
	Recommendations  []string `json:"recommendations"`
	AffectedUsers    []string `json:"affectedUsers"`
	AffectedSessions []string `json:"affectedSessions"`
}

// trendInsights asks the reasoning service to name trends across the batch.
// A failed or malformed response yields no trend insights.
func (g *Generator) trendInsights(ctx context.Context, events []*event.Event, prediction *predictive.Output) []*Insight {
	if g.reasoner == nil {
		return nil
	}

	content, err := g.reasoner.Execute(ctx, buildTrendPrompt(events, prediction), reasoning.TaskAnalysis, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Trend analysis failed", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("trend_insights").Inc()
		return nil
	}

	var trends []reasonedTrend
	if err := reasoning.DecodeArray(content, &trends); err != nil {
		logger.Warn("Failed to decode trend response", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("trend_insights").Inc()
		return nil
	}

	out := make([]*Insight, 0, len(trends))
	for _, tr := range trends {
		if tr.Title == "" {
			continue
		}
		ins := newInsight(TypeTrend, PriorityFor(tr.Impact, tr.Urgency), tr.Title, tr.Description, tr.Summary, Metrics{
			Confidence:       tr.Confidence,
			Impact:           tr.Impact,
			Urgency:          tr.Urgency,
			Frequency:        tr.Frequency,
			Trend:            trendDirection(tr.Direction),
			Baseline:         tr.Baseline,
			Current:          tr.Current,
			Change:           tr.Change,
			ChangePercentage: tr.ChangePercentage,
		})
		if tr.Recommendations != nil {
			ins.Recommendations = tr.Recommendations
		}
		if tr.AffectedUsers != nil {
			ins.AffectedUsers = tr.AffectedUsers
		}
		if tr.AffectedSessions != nil {
			ins.AffectedSessions = tr.AffectedSessions
		}
		ins.Actions = []Action{suggestAction(ActionInvestigation, PriorityMedium, "Investigate trend", "Review the underlying data behind this trend.")}
		ins.Tags = []string{"trend", tr.Category}
		ins.Metadata = map[string]any{"source": "reasoned_analysis", "category": tr.Category}
		out = append(out, ins)
	}
	return out
}

func trendDirection(s string) Trend {
	switch Trend(s) {
	case TrendIncreasing, TrendDecreasing, TrendStable, TrendVolatile:
		return Trend(s)
	default:
		return TrendStable
	}
}

// anomalyInsights lifts analyzer anomalies into routed insights.
func (g *Generator) anomalyInsights(analysis *analyzer.Result) []*Insight {
	if analysis == nil {
		return nil
	}

	out := make([]*Insight, 0, len(analysis.Anomalies))
	for _, an := range analysis.Anomalies {
		ins := newInsight(TypeAnomaly, severityToPriority(an.Severity),
			fmt.Sprintf("Anomaly detected: %s", an.Type),
			an.Description,
			fmt.Sprintf("A %s anomaly was detected in the event stream.", an.Type),
			Metrics{
				Confidence:       0.8,
				Impact:           impactForSeverity(an.Severity),
				Urgency:          impactForSeverity(an.Severity),
				Frequency:        an.Metrics.Current,
				Trend:            TrendVolatile,
				Baseline:         an.Metrics.Baseline,
				Current:          an.Metrics.Current,
				Change:           an.Metrics.Current - an.Metrics.Baseline,
				ChangePercentage: an.Metrics.Deviation * 100,
			})
		ins.Recommendations = an.Recommendations
		ins.AffectedUsers = an.AffectedUsers
		ins.AffectedSessions = an.AffectedSessions
		ins.Actions = []Action{suggestAction(ActionAlert, PriorityHigh, "Notify on-call", "Alert the owning team about this anomaly.")}
		ins.Tags = []string{"anomaly", an.Type, an.Severity}
		ins.Metadata = map[string]any{"source": "anomaly_detection", "severity": an.Severity, "anomalyId": an.ID}
		out = append(out, ins)
	}
	return out
}

func impactForSeverity(severity string) float64 {
	switch severity {
	case "critical":
		return 0.95
	case "high":
		return 0.8
	case "medium":
		return 0.5
	default:
		return 0.2
	}
}

type reasonedOpportunity struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Type             string   `json:"type"`
	Potential        float64  `json:"potential"`
	Urgency          float64  `json:"urgency"`
	Confidence       float64  `json:"confidence"`
	Frequency        float64  `json:"frequency"`
	Baseline         float64  `json:"baseline"`
	Current          float64  `json:"current"`
	Change           float64  `json:"change"`
	ChangePercentage float64  `json:"changePercentage"`
	Recommendations  []string `json:"recommendations"`
	AffectedUsers    []string `json:"affectedUsers"`
	AffectedSessions []string `json:"affectedSessions"`
}

func (g *Generator) opportunityInsights(ctx context.Context, events []*event.Event, prediction *predictive.Output) []*Insight {
	if g.reasoner == nil {
		return nil
	}

	content, err := g.reasoner.Execute(ctx, buildOpportunityPrompt(events, prediction), reasoning.TaskAnalysis, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Opportunity analysis failed", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("opportunity_insights").Inc()
		return nil
	}

	var opportunities []reasonedOpportunity
	if err := reasoning.DecodeArray(content, &opportunities); err != nil {
		logger.Warn("Failed to decode opportunity response", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("opportunity_insights").Inc()
		return nil
	}

	out := make([]*Insight, 0, len(opportunities))
	for _, op := range opportunities {
		if op.Title == "" {
			continue
		}
		priority := PriorityLow
		if op.Potential > 0.8 {
			priority = PriorityHigh
		} else if op.Potential > 0.5 {
			priority = PriorityMedium
		}
		ins := newInsight(TypeOpportunity, priority,
			fmt.Sprintf("Opportunity: %s", op.Title),
			op.Description,
			fmt.Sprintf("A new %s opportunity was identified.", op.Type),
			Metrics{
				Confidence:       op.Confidence,
				Impact:           op.Potential,
				Urgency:          op.Urgency,
				Frequency:        op.Frequency,
				Trend:            TrendIncreasing,
				Baseline:         op.Baseline,
				Current:          op.Current,
				Change:           op.Change,
				ChangePercentage: op.ChangePercentage,
			})
		if op.Recommendations != nil {
			ins.Recommendations = op.Recommendations
		}
		if op.AffectedUsers != nil {
			ins.AffectedUsers = op.AffectedUsers
		}
		if op.AffectedSessions != nil {
			ins.AffectedSessions = op.AffectedSessions
		}
		ins.Actions = []Action{suggestAction(ActionOptimization, PriorityMedium, "Act on opportunity", "Put the identified opportunity to use.")}
		ins.Tags = []string{"opportunity", op.Type}
		ins.Metadata = map[string]any{"source": "opportunity_analysis", "type": op.Type}
		out = append(out, ins)
	}
	return out
}

type reasonedRisk struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Type             string   `json:"type"`
	Severity         string   `json:"severity"`
	Confidence       float64  `json:"confidence"`
	Impact           float64  `json:"impact"`
	Urgency          float64  `json:"urgency"`
	Frequency        float64  `json:"frequency"`
	Baseline         float64  `json:"baseline"`
	Current          float64  `json:"current"`
	Change           float64  `json:"change"`
	ChangePercentage float64  `json:"changePercentage"`
	Recommendations  []string `json:"recommendations"`
	AffectedUsers    []string `json:"affectedUsers"`
	AffectedSessions []string `json:"affectedSessions"`
}

func (g *Generator) riskInsights(ctx context.Context, events []*event.Event, prediction *predictive.Output) []*Insight {
	if g.reasoner == nil {
		return nil
	}

	content, err := g.reasoner.Execute(ctx, buildRiskPrompt(events, prediction), reasoning.TaskAnalysis, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Risk analysis failed", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("risk_insights").Inc()
		return nil
	}

	var risks []reasonedRisk
	if err := reasoning.DecodeArray(content, &risks); err != nil {
		logger.Warn("Failed to decode risk response", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("risk_insights").Inc()
		return nil
	}

	out := make([]*Insight, 0, len(risks))
	for _, r := range risks {
		if r.Title == "" {
			continue
		}
		ins := newInsight(TypeRisk, severityToPriority(r.Severity),
			fmt.Sprintf("Risk detected: %s", r.Title),
			r.Description,
			fmt.Sprintf("A %s risk was detected.", r.Type),
			Metrics{
				Confidence:       r.Confidence,
				Impact:           r.Impact,
				Urgency:          r.Urgency,
				Frequency:        r.Frequency,
				Trend:            TrendIncreasing,
				Baseline:         r.Baseline,
				Current:          r.Current,
				Change:           r.Change,
				ChangePercentage: r.ChangePercentage,
			})
		if r.Recommendations != nil {
			ins.Recommendations = r.Recommendations
		}
		if r.AffectedUsers != nil {
			ins.AffectedUsers = r.AffectedUsers
		}
		if r.AffectedSessions != nil {
			ins.AffectedSessions = r.AffectedSessions
		}
		ins.Actions = []Action{suggestAction(ActionAlert, PriorityHigh, "Respond to risk", "Take mitigating action against this risk.")}
		ins.Tags = []string{"risk", r.Type, r.Severity}
		ins.Metadata = map[string]any{"source": "risk_analysis", "severity": r.Severity}
		out = append(out, ins)
	}
	return out
}

// performanceInsights flags batches whose slow events exceed the configured
// threshold. At most one insight per batch.
func (g *Generator) performanceInsights(events []*event.Event) []*Insight {
	var slow []*event.Event
	var slowSum int64
	for _, e := range events {
		if e.Performance.EventDurationMS > g.cfg.SlowEventMS {
			slow = append(slow, e)
			slowSum += e.Performance.EventDurationMS
		}
	}
	if len(slow) == 0 {
		return nil
	}

	avg := float64(slowSum) / float64(len(slow))
	severity := "medium"
	if avg > float64(3*g.cfg.SlowEventMS) {
		severity = "high"
	}

	users := make(map[string]struct{})
	sessions := make(map[string]struct{})
	affectedUsers := []string{}
	affectedSessions := []string{}
	for _, e := range slow {
		if e.UserID != "" {
			if _, ok := users[e.UserID]; !ok {
				users[e.UserID] = struct{}{}
				affectedUsers = append(affectedUsers, e.UserID)
			}
		}
		if _, ok := sessions[e.SessionID]; !ok {
			sessions[e.SessionID] = struct{}{}
			affectedSessions = append(affectedSessions, e.SessionID)
		}
	}

	baseline := float64(g.cfg.SlowEventMS)
	ins := newInsight(TypePerformance, severityToPriority(severity),
		"Performance issue: slow event handling",
		fmt.Sprintf("%d events exceeded the %dms processing threshold (average %.0fms)", len(slow), g.cfg.SlowEventMS, avg),
		"Event processing time is above the configured threshold.",
		Metrics{
			Confidence:       0.9,
			Impact:           impactForSeverity(severity),
			Urgency:          impactForSeverity(severity),
			Frequency:        float64(len(slow)),
			Trend:            TrendVolatile,
			Baseline:         baseline,
			Current:          avg,
			Change:           avg - baseline,
			ChangePercentage: (avg - baseline) / baseline * 100,
		})
	ins.Recommendations = []string{"profile the slow paths", "add caching where possible", "check resource saturation"}
	ins.AffectedUsers = affectedUsers
	ins.AffectedSessions = affectedSessions
	ins.Actions = []Action{suggestAction(ActionOptimization, PriorityMedium, "Optimize performance", "Resolve the slow event processing.")}
	ins.Tags = []string{"performance", "event_duration", severity}
	ins.Metadata = map[string]any{"source": "performance_analysis", "metric": "event_duration"}
	return []*Insight{ins}
}

// behaviorInsights lifts recurring analyzer patterns into insights.
func (g *Generator) behaviorInsights(analysis *analyzer.Result) []*Insight {
	if analysis == nil {
		return nil
	}

	var out []*Insight
	for _, p := range analysis.Patterns {
		if p.Frequency <= 1 {
			continue
		}
		priority := PriorityLow
		if p.Confidence > 0.8 {
			priority = PriorityHigh
		} else if p.Confidence > 0.5 {
			priority = PriorityMedium
		}
		ins := newInsight(TypeUserBehavior, priority,
			fmt.Sprintf("Behavior pattern: %s", p.Pattern),
			fmt.Sprintf("The pattern %q occurred %d times", p.Pattern, p.Frequency),
			"A recurring user behavior pattern was observed.",
			Metrics{
				Confidence: p.Confidence,
				Impact:     p.Confidence,
				Urgency:    0.3,
				Frequency:  float64(p.Frequency),
				Trend:      TrendStable,
				Current:    float64(p.Frequency),
			})
		if p.SessionID != "" {
			ins.AffectedSessions = []string{p.SessionID}
		}
		ins.Actions = []Action{suggestAction(ActionInvestigation, PriorityLow, "Analyze pattern", "Look into the recurring behavior in detail.")}
		ins.Tags = []string{"behavior", string(p.Metadata.Category)}
		ins.Metadata = map[string]any{"source": "behavior_analysis", "patternId": p.ID}
		out = append(out, ins)
	}
	return out
}

// conversionInsights rolls conversion predictions into one insight.
func (g *Generator) conversionInsights(prediction *predictive.Output) []*Insight {
	if prediction == nil {
		return nil
	}

	var sum float64
	var count int
	users := []string{}
	seen := make(map[string]struct{})
	for _, p := range prediction.Predictions {
		if p.Type != predictive.PredictConversion {
			continue
		}
		sum += p.Probability
		count++
		if p.UserID != "" {
			if _, ok := seen[p.UserID]; !ok {
				seen[p.UserID] = struct{}{}
				users = append(users, p.UserID)
			}
		}
	}
	if count == 0 {
		return nil
	}

	avg := sum / float64(count)
	priority := PriorityLow
	if avg > 0.8 {
		priority = PriorityHigh
	} else if avg > 0.5 {
		priority = PriorityMedium
	}
	direction := TrendDecreasing
	if avg >= 0.5 {
		direction = TrendIncreasing
	}

	ins := newInsight(TypeConversion, priority,
		"Conversion outlook",
		fmt.Sprintf("Average predicted conversion probability is %.1f%% across %d users", avg*100, count),
		"Conversion probability was forecast for the current batch.",
		Metrics{
			Confidence: 0.8,
			Impact:     avg,
			Urgency:    0.4,
			Frequency:  float64(count),
			Trend:      direction,
			Baseline:   0.5,
			Current:    avg,
			Change:     avg - 0.5,
		})
	ins.Recommendations = []string{"focus outreach on high-probability users", "review the funnel for the rest"}
	ins.AffectedUsers = users
	ins.Actions = []Action{suggestAction(ActionOptimization, PriorityMedium, "Optimize conversion", "Improve the conversion rate.")}
	ins.Tags = []string{"conversion", "forecast"}
	ins.Metadata = map[string]any{"source": "conversion_analysis", "predictions": count}
	return []*Insight{ins}
}

// engagementInsights compares average profile engagement against a neutral
// baseline of 50.
func (g *Generator) engagementInsights(prediction *predictive.Output) []*Insight {
	if prediction == nil || len(prediction.Profiles) == 0 {
		return nil
	}

	var sum float64
	users := make([]string, 0, len(prediction.Profiles))
	for _, p := range prediction.Profiles {
		sum += p.Engagement.Score
		users = append(users, p.UserID)
	}
	avg := sum / float64(len(prediction.Profiles))

	const baseline = 50.0
	impact := (avg - baseline) / baseline
	if impact < 0 {
		impact = -impact
	}
	if impact > 1 {
		impact = 1
	}

	priority := PriorityLow
	if impact > 0.8 {
		priority = PriorityHigh
	} else if impact > 0.5 {
		priority = PriorityMedium
	}
	direction := TrendDecreasing
	if avg >= baseline {
		direction = TrendIncreasing
	}

	ins := newInsight(TypeEngagement, priority,
		"Engagement level shift",
		fmt.Sprintf("Average engagement score is %.1f across %d users", avg, len(users)),
		"User engagement moved relative to the neutral baseline.",
		Metrics{
			Confidence:       0.7,
			Impact:           impact,
			Urgency:          0.3,
			Frequency:        float64(len(users)),
			Trend:            direction,
			Baseline:         baseline,
			Current:          avg,
			Change:           avg - baseline,
			ChangePercentage: (avg - baseline) / baseline * 100,
		})
	ins.Recommendations = []string{"reinforce what engaged users respond to", "re-engage the low-scoring cohort"}
	ins.AffectedUsers = users
	ins.Actions = []Action{suggestAction(ActionOptimization, PriorityMedium, "Lift engagement", "Improve engagement for low-scoring users.")}
	ins.Tags = []string{"engagement", "score"}
	ins.Metadata = map[string]any{"source": "engagement_analysis", "profiles": len(users)}
	return []*Insight{ins}
}

// recommendationInsights evaluates the quality of the generated
// recommendations.
func (g *Generator) recommendationInsights(prediction *predictive.Output) []*Insight {
	if prediction == nil || len(prediction.Recommendations) == 0 {
		return nil
	}

	var sum float64
	for _, r := range prediction.Recommendations {
		sum += r.Score
	}
	avg := sum / float64(len(prediction.Recommendations))

	impact := 1 - avg
	if impact < 0 {
		impact = 0
	}
	priority := PriorityLow
	if avg < 0.5 {
		priority = PriorityHigh
	} else if avg < 0.7 {
		priority = PriorityMedium
	}
	direction := TrendIncreasing
	if avg < 0.5 {
		direction = TrendDecreasing
	}

	ins := newInsight(TypeRecommendation, priority,
		"Recommendation quality",
		fmt.Sprintf("Average recommendation score is %.2f over %d recommendations", avg, len(prediction.Recommendations)),
		"Recommendation scoring was evaluated for the current batch.",
		Metrics{
			Confidence: 0.7,
			Impact:     impact,
			Urgency:    0.3,
			Frequency:  float64(len(prediction.Recommendations)),
			Trend:      direction,
			Baseline:   0.7,
			Current:    avg,
			Change:     avg - 0.7,
		})
	ins.Recommendations = []string{"collect acceptance feedback", "retire low-scoring strategies"}
	ins.Actions = []Action{suggestAction(ActionOptimization, PriorityMedium, "Tune recommendations", "Improve the recommendation strategies.")}
	ins.Tags = []string{"recommendation", "quality"}
	ins.Metadata = map[string]any{"source": "recommendation_analysis", "count": len(prediction.Recommendations)}
	return []*Insight{ins}
}

func buildTrendPrompt(events []*event.Event, prediction *predictive.Output) string {
	type summary struct {
		Type      event.EventType `json:"type"`
		Category  event.Category  `json:"category"`
		Timestamp string          `json:"timestamp"`
	}
	limit := len(events)
	if limit > 20 {
		limit = 20
	}
	summaries := make([]summary, 0, limit)
	for _, e := range events[:limit] {
		summaries = append(summaries, summary{Type: e.Type, Category: e.Category, Timestamp: e.Timestamp.Format(time.RFC3339)})
	}
	data, _ := json.Marshal(summaries)

	predictionCount := 0
	if prediction != nil {
		predictionCount = len(prediction.Predictions)
	}

	return fmt.Sprintf(`Identify trends in this event stream.

Events:
%s

Active predictions: %d

Respond with a JSON array:
[{"title": "...", "description": "...", "summary": "...", "category": "...",
"confidence": 0.0, "impact": 0.0, "urgency": 0.0, "frequency": 0,
"direction": "increasing|decreasing|stable|volatile", "baseline": 0,
"current": 0, "change": 0, "changePercentage": 0, "recommendations": [],
"affectedUsers": [], "affectedSessions": []}]`, string(data), predictionCount)
}

func buildOpportunityPrompt(events []*event.Event, prediction *predictive.Output) string {
	recommendationCount := 0
	profileCount := 0
	if prediction != nil {
		recommendationCount = len(prediction.Recommendations)
		profileCount = len(prediction.Profiles)
	}

	return fmt.Sprintf(`Identify growth or experience opportunities.

Event count: %d
Recommendations generated: %d
Profiles updated: %d

Respond with a JSON array:
[{"title": "...", "description": "...", "type": "...", "potential": 0.0,
"urgency": 0.0, "confidence": 0.0, "frequency": 0, "baseline": 0,
"current": 0, "change": 0, "changePercentage": 0, "recommendations": [],
"affectedUsers": [], "affectedSessions": []}]`, len(events), recommendationCount, profileCount)
}

func buildRiskPrompt(events []*event.Event, prediction *predictive.Output) string {
	var highChurn int
	if prediction != nil {
		for _, p := range prediction.Predictions {
			if p.Type == predictive.PredictChurn && p.Probability > 0.7 {
				highChurn++
			}
		}
	}

	return fmt.Sprintf(`Identify user-experience or business risks.

Event count: %d
High churn-risk users: %d

Respond with a JSON array:
[{"title": "...", "description": "...", "type": "...",
"severity": "low|medium|high|critical", "confidence": 0.0, "impact": 0.0,
"urgency": 0.0, "frequency": 0, "baseline": 0, "current": 0, "change": 0,
"changePercentage": 0, "recommendations": [], "affectedUsers": [],
"affectedSessions": []}]`, len(events), highChurn)
}
