package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
)

// detectAnomalies runs the three detectors. The reasoned behavioral detector
// contributes nothing on failure; the local detectors always run.
func (a *Analyzer) detectAnomalies(ctx context.Context, events []*event.Event) []Anomaly {
	anomalies := a.performanceAnomalies(events)
	anomalies = append(anomalies, a.behaviorAnomalies(ctx, events)...)
	anomalies = append(anomalies, a.securityAnomalies(events)...)
	return anomalies
}

func (a *Analyzer) performanceAnomalies(events []*event.Event) []Anomaly {
	var slow []*event.Event
	for _, e := range events {
		if e.Performance.EventDurationMS > a.cfg.SlowEventMS {
			slow = append(slow, e)
		}
	}
	if len(slow) == 0 {
		return nil
	}

	return []Anomaly{{
		ID:               uuid.New().String(),
		Type:             "performance",
		Severity:         "medium",
		Description:      "Slow event processing detected",
		DetectedAt:       time.Now(),
		AffectedUsers:    uniqueUsers(slow),
		AffectedSessions: uniqueSessions(slow),
		Metrics: AnomalyMetrics{
			Baseline:  100,
			Current:   float64(slow[0].Performance.EventDurationMS),
			Deviation: (float64(slow[0].Performance.EventDurationMS) - 100) / 100,
		},
		Causes:          []string{"high CPU usage", "memory pressure", "network latency"},
		Recommendations: []string{"optimize event processing", "increase resources", "add caching"},
		Status:          "new",
	}}
}

func (a *Analyzer) securityAnomalies(events []*event.Event) []Anomaly {
	var suspicious []*event.Event
	for _, e := range events {
		if e.Security.IsSuspicious {
			suspicious = append(suspicious, e)
		}
	}
	if len(suspicious) == 0 {
		return nil
	}

	return []Anomaly{{
		ID:               uuid.New().String(),
		Type:             "security",
		Severity:         "high",
		Description:      "Suspicious activity detected",
		DetectedAt:       time.Now(),
		AffectedUsers:    uniqueUsers(suspicious),
		AffectedSessions: uniqueSessions(suspicious),
		Metrics: AnomalyMetrics{
			Baseline:  0,
			Current:   float64(len(suspicious)),
			Deviation: float64(len(suspicious)),
		},
		Causes:          []string{"suspicious source", "high risk score"},
		Recommendations: []string{"block the source", "increase monitoring", "review logs"},
		Status:          "new",
	}}
}

type reasonedAnomaly struct {
	Type             string   `json:"type"`
	Severity         string   `json:"severity"`
	Description      string   `json:"description"`
	AffectedUsers    []string `json:"affectedUsers"`
	AffectedSessions []string `json:"affectedSessions"`
	Baseline         float64  `json:"baseline"`
	Current          float64  `json:"current"`
	Deviation        float64  `json:"deviation"`
	Causes           []string `json:"causes"`
	Recommendations  []string `json:"recommendations"`
}

func (a *Analyzer) behaviorAnomalies(ctx context.Context, events []*event.Event) []Anomaly {
	if a.reasoner == nil {
		return nil
	}

	content, err := a.reasoner.Execute(ctx, buildAnomalyPrompt(events), reasoning.TaskAnalysis, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Behavioral anomaly reasoning failed", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("anomalies").Inc()
		return nil
	}

	var decoded struct {
		Anomalies []reasonedAnomaly `json:"anomalies"`
	}
	if err := reasoning.DecodeObject(content, &decoded); err != nil {
		logger.Warn("Failed to decode anomaly response", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("anomalies").Inc()
		return nil
	}

	out := make([]Anomaly, 0, len(decoded.Anomalies))
	for _, an := range decoded.Anomalies {
		anomaly := Anomaly{
			ID:               uuid.New().String(),
			Type:             an.Type,
			Severity:         an.Severity,
			Description:      an.Description,
			DetectedAt:       time.Now(),
			AffectedUsers:    an.AffectedUsers,
			AffectedSessions: an.AffectedSessions,
			Metrics: AnomalyMetrics{
				Baseline:  an.Baseline,
				Current:   an.Current,
				Deviation: an.Deviation,
			},
			Causes:          an.Causes,
			Recommendations: an.Recommendations,
			Status:          "new",
		}
		if anomaly.Type == "" {
			anomaly.Type = "behavior"
		}
		if anomaly.Severity == "" {
			anomaly.Severity = "medium"
		}
		if anomaly.Description == "" {
			anomaly.Description = "Unclassified anomaly"
		}
		if anomaly.AffectedUsers == nil {
			anomaly.AffectedUsers = []string{}
		}
		if anomaly.AffectedSessions == nil {
			anomaly.AffectedSessions = []string{}
		}
		if anomaly.Causes == nil {
			anomaly.Causes = []string{}
		}
		if anomaly.Recommendations == nil {
			anomaly.Recommendations = []string{}
		}
		out = append(out, anomaly)
	}
	return out
}

func buildAnomalyPrompt(events []*event.Event) string {
	type summary struct {
		Type      event.EventType `json:"type"`
		Timestamp string          `json:"timestamp"`
		Page      string          `json:"page"`
	}
	summaries := make([]summary, 0, len(events))
	for _, e := range events {
		summaries = append(summaries, summary{
			Type:      e.Type,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Page:      e.Page.URL,
		})
	}
	data, _ := json.Marshal(summaries)

	return fmt.Sprintf(`Detect behavioral anomalies in this event stream.

Events:
%s

Look for unusual patterns, unexpected sequences, abnormal frequency or
timing, and behavior that degrades the user experience.

Respond with a JSON object:
{"anomalies": [{"type": "behavior|performance|security|technical",
"severity": "low|medium|high|critical", "description": "...",
"affectedUsers": [], "affectedSessions": [], "baseline": 0, "current": 0,
"deviation": 0, "causes": [], "recommendations": []}]}`, string(data))
}

func uniqueUsers(events []*event.Event) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		out = append(out, e.UserID)
	}
	return out
}

func uniqueSessions(events []*event.Event) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range events {
		if _, ok := seen[e.SessionID]; ok {
			continue
		}
		seen[e.SessionID] = struct{}{}
		out = append(out, e.SessionID)
	}
	return out
}
