package tracking

import "time"

type DeviceInfo struct {
	UserAgent      string `json:"userAgent"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browserVersion"`
	OS             string `json:"os"`
	OSVersion      string `json:"osVersion"`
	DeviceType     string `json:"deviceType"`
	Language       string `json:"language,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

type LocationInfo struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
	IP      string `json:"ip,omitempty"`
}

type UTMParams struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

type PageView struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Timestamp   time.Time `json:"timestamp"`
	DurationMS  int64     `json:"durationMs"`
	ScrollDepth float64   `json:"scrollDepth"`
	TimeOnPage  int64     `json:"timeOnPageMs"`
	ExitPage    bool      `json:"exitPage"`
	EntryPage   bool      `json:"entryPage"`
	Referrer    string    `json:"referrer,omitempty"`
}

type TrackedEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Element   string         `json:"element"`
	Value     any            `json:"value,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Page      string         `json:"page"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Session struct {
	SessionID    string         `json:"sessionId"`
	UserID       string         `json:"userId,omitempty"`
	StartTime    time.Time      `json:"startTime"`
	EndTime      *time.Time     `json:"endTime,omitempty"`
	DurationMS   int64          `json:"durationMs"`
	PageViews    []PageView     `json:"pageViews"`
	Events       []TrackedEvent `json:"events"`
	Device       DeviceInfo     `json:"device"`
	Location     LocationInfo   `json:"location"`
	Referrer     string         `json:"referrer,omitempty"`
	UTM          *UTMParams     `json:"utmParams,omitempty"`
	IsActive     bool           `json:"isActive"`
	LastActivity time.Time      `json:"lastActivity"`
}

type EngagementMetrics struct {
	TotalTimeMS     int64   `json:"totalTimeMs"`
	PageViews       int     `json:"pageViews"`
	Events          int     `json:"events"`
	ScrollDepth     float64 `json:"scrollDepth"`
	BounceRate      float64 `json:"bounceRate"`
	EngagementScore float64 `json:"engagementScore"`
}

type JourneyStep struct {
	Step       int       `json:"step"`
	Page       string    `json:"page"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"durationMs"`
	Success    bool      `json:"success"`
}

type FrictionPoint struct {
	Page      string  `json:"page"`
	Element   string  `json:"element"`
	Issue     string  `json:"issue"`
	Severity  string  `json:"severity"`
	Frequency int     `json:"frequency"`
	Impact    float64 `json:"impact"`
}

type Journey struct {
	Steps          []JourneyStep   `json:"steps"`
	Path           []string        `json:"path"`
	DurationMS     int64           `json:"durationMs"`
	CompletionRate float64         `json:"completionRate"`
	GoalAchieved   bool            `json:"goalAchieved"`
	FrictionPoints []FrictionPoint `json:"frictionPoints"`
}

type DropoffPoint struct {
	Page          string   `json:"page"`
	DropoffRate   float64  `json:"dropoffRate"`
	CommonReasons []string `json:"commonReasons"`
	Suggestions   []string `json:"suggestions"`
	Priority      string   `json:"priority"`
}

type Recommendation struct {
	Type        string  `json:"type"`
	Priority    string  `json:"priority"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Impact      float64 `json:"impact"`
	Effort      string  `json:"effort"`
}

type Insight struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Actionable  bool    `json:"actionable"`
}

type Score struct {
	Overall      float64 `json:"overall"`
	Engagement   float64 `json:"engagement"`
	Satisfaction float64 `json:"satisfaction"`
	Grade        string  `json:"grade"`
}

type BehaviorAnalysis struct {
	SessionID       string            `json:"sessionId"`
	UserID          string            `json:"userId,omitempty"`
	Engagement      EngagementMetrics `json:"engagement"`
	Journey         Journey           `json:"journey"`
	DropoffPoints   []DropoffPoint    `json:"dropoffPoints"`
	Recommendations []Recommendation  `json:"recommendations"`
	Insights        []Insight         `json:"insights"`
	Score           Score             `json:"score"`
}
