package analyzer

import (
	"time"

	"github.com/userpulse/backend/internal/event"
)

type PatternMetadata struct {
	Category       event.Category `json:"category"`
	Complexity     string         `json:"complexity"`
	Predictability float64        `json:"predictability"`
	Stability      float64        `json:"stability"`
}

type BehaviorPattern struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId,omitempty"`
	SessionID  string          `json:"sessionId"`
	Pattern    string          `json:"pattern"`
	Frequency  int             `json:"frequency"`
	Confidence float64         `json:"confidence"`
	FirstSeen  time.Time       `json:"firstSeen"`
	LastSeen   time.Time       `json:"lastSeen"`
	Examples   []string        `json:"examples"`
	Metadata   PatternMetadata `json:"metadata"`
}

type Range struct {
	Min int `json:"min"`
	Max int `json:"max,omitempty"`
}

// SegmentCriteria matches a user when every required event type is present,
// the event count is within Frequency, and the distinct session count is
// within SessionCount. Max of zero means unbounded.
type SegmentCriteria struct {
	EventTypes   []event.EventType `json:"eventTypes"`
	Frequency    Range             `json:"frequency"`
	SessionCount Range             `json:"sessionCount"`
}

type PageShare struct {
	Page       string  `json:"page"`
	Percentage float64 `json:"percentage"`
}

type ActionShare struct {
	Action     string  `json:"action"`
	Percentage float64 `json:"percentage"`
}

type SegmentCharacteristics struct {
	TopPages               []PageShare   `json:"topPages"`
	TopActions             []ActionShare `json:"topActions"`
	AverageSessionDuration int64         `json:"averageSessionDurationMs"`
	PreferredTime          string        `json:"preferredTime"`
	PreferredDevice        string        `json:"preferredDevice"`
}

type UserSegment struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Criteria        SegmentCriteria        `json:"criteria"`
	Users           []string               `json:"users"`
	Size            int                    `json:"size"`
	Characteristics SegmentCharacteristics `json:"characteristics"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type JourneyStep struct {
	Step       int             `json:"step"`
	EventID    string          `json:"eventId"`
	Action     event.EventType `json:"action"`
	Page       string          `json:"page"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationMS int64           `json:"durationMs"`
	Success    bool            `json:"success"`
	Intent     string          `json:"intent"`
	Emotion    string          `json:"emotion"`
	Confidence float64         `json:"confidence"`
}

type FrictionPoint struct {
	ID          string   `json:"id"`
	Step        int      `json:"step"`
	Page        string   `json:"page"`
	Element     string   `json:"element"`
	Issue       string   `json:"issue"`
	Severity    string   `json:"severity"`
	Impact      float64  `json:"impact"`
	Suggestions []string `json:"suggestions"`
}

type Opportunity struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Potential   float64 `json:"potential"`
	Effort      string  `json:"effort"`
	Impact      string  `json:"impact"`
}

type NextAction struct {
	Action      string  `json:"action"`
	Probability float64 `json:"probability"`
	Context     string  `json:"context"`
}

type UserJourney struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	SessionID      string          `json:"sessionId"`
	Steps          []JourneyStep   `json:"steps"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        time.Time       `json:"endTime"`
	DurationMS     int64           `json:"durationMs"`
	Goal           string          `json:"goal"`
	Achieved       bool            `json:"achieved"`
	ConversionRate float64         `json:"conversionRate"`
	FrictionPoints []FrictionPoint `json:"frictionPoints"`
	Opportunities  []Opportunity   `json:"opportunities"`
	NextActions    []NextAction    `json:"nextActions"`
}

type AnomalyMetrics struct {
	Baseline  float64 `json:"baseline"`
	Current   float64 `json:"current"`
	Deviation float64 `json:"deviation"`
}

type Anomaly struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	Severity         string         `json:"severity"`
	Description      string         `json:"description"`
	DetectedAt       time.Time      `json:"detectedAt"`
	AffectedUsers    []string       `json:"affectedUsers"`
	AffectedSessions []string       `json:"affectedSessions"`
	Metrics          AnomalyMetrics `json:"metrics"`
	Causes           []string       `json:"causes"`
	Recommendations  []string       `json:"recommendations"`
	Status           string         `json:"status"`
}

// BatchInsight is a lightweight descriptive observation over one analysis
// batch, distinct from the routed real-time insights.
type BatchInsight struct {
	Kind        string  `json:"kind"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

type Result struct {
	Patterns  []BehaviorPattern `json:"patterns"`
	Segments  []UserSegment     `json:"segments"`
	Journeys  []UserJourney     `json:"journeys"`
	Anomalies []Anomaly         `json:"anomalies"`
	Insights  []BatchInsight    `json:"insights"`
}
