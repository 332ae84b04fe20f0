package models

import "time"

// EventRecord is the durable form of a flushed event. The full event is kept
// as JSON alongside the indexed columns.
type EventRecord struct {
	ID         string
	SessionID  string
	UserID     string
	Type       string
	Category   string
	Priority   string
	Timestamp  time.Time
	DurationMS int64
	Payload    string
}

type SessionRecord struct {
	SessionID    string
	UserID       string
	StartTime    time.Time
	EndTime      *time.Time
	DurationMS   int64
	DeviceType   string
	Browser      string
	OS           string
	Country      string
	Referrer     string
	IsActive     bool
	LastActivity time.Time
}

type PageViewRecord struct {
	ID          string
	SessionID   string
	URL         string
	Title       string
	Timestamp   time.Time
	DurationMS  int64
	ScrollDepth float64
	EntryPage   bool
	ExitPage    bool
}

type TrackedEventRecord struct {
	ID        string
	SessionID string
	Type      string
	Element   string
	Page      string
	Timestamp time.Time
	Payload   string
}

// AnalysisRecord stores a session behavior analysis. The structured parts are
// JSON encoded.
type AnalysisRecord struct {
	SessionID       string
	UserID          string
	EngagementScore float64
	OverallScore    float64
	Grade           string
	GoalAchieved    bool
	Analysis        string
	CreatedAt       time.Time
}
