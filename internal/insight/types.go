package insight

import "time"

type InsightType string

const (
	TypeTrend          InsightType = "trend"
	TypeAnomaly        InsightType = "anomaly"
	TypeOpportunity    InsightType = "opportunity"
	TypeRisk           InsightType = "risk"
	TypePerformance    InsightType = "performance"
	TypeUserBehavior   InsightType = "user_behavior"
	TypeConversion     InsightType = "conversion"
	TypeEngagement     InsightType = "engagement"
	TypeRecommendation InsightType = "recommendation"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Status string

const (
	StatusNew           Status = "new"
	StatusAcknowledged  Status = "acknowledged"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusDismissed     Status = "dismissed"
)

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendVolatile   Trend = "volatile"
)

type Metrics struct {
	Confidence       float64 `json:"confidence"`
	Impact           float64 `json:"impact"`
	Urgency          float64 `json:"urgency"`
	Frequency        float64 `json:"frequency"`
	Trend            Trend   `json:"trend"`
	Baseline         float64 `json:"baseline"`
	Current          float64 `json:"current"`
	Change           float64 `json:"change"`
	ChangePercentage float64 `json:"changePercentage"`
}

type ActionType string

const (
	ActionNotification  ActionType = "notification"
	ActionAlert         ActionType = "alert"
	ActionAutomation    ActionType = "automation"
	ActionInvestigation ActionType = "investigation"
	ActionOptimization  ActionType = "optimization"
)

type Action struct {
	ID          string     `json:"id"`
	Type        ActionType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Insight struct {
	ID               string         `json:"id"`
	Type             InsightType    `json:"type"`
	Priority         Priority       `json:"priority"`
	Status           Status         `json:"status"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Summary          string         `json:"summary"`
	Metrics          Metrics        `json:"metrics"`
	Recommendations  []string       `json:"recommendations"`
	Actions          []Action       `json:"actions"`
	AffectedUsers    []string       `json:"affectedUsers"`
	AffectedSessions []string       `json:"affectedSessions"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	ExpiresAt        time.Time      `json:"expiresAt"`
	Tags             []string       `json:"tags"`
	Metadata         map[string]any `json:"metadata"`
}
