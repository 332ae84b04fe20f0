package predictive

import (
	"time"

	"github.com/userpulse/backend/internal/analyzer"
)

type ModelType string

const (
	ModelClassification ModelType = "classification"
	ModelRegression     ModelType = "regression"
	ModelClustering     ModelType = "clustering"
	ModelRecommendation ModelType = "recommendation"
	ModelTimeSeries     ModelType = "time_series"
)

type ModelStatus string

const (
	StatusTraining ModelStatus = "training"
	StatusReady    ModelStatus = "ready"
	StatusDegraded ModelStatus = "degraded"
	StatusFailed   ModelStatus = "failed"
)

type TrainingData struct {
	Size        int       `json:"size"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Quality     float64   `json:"quality"`
}

type PredictionModel struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         ModelType      `json:"type"`
	Target       string         `json:"target"`
	Features     []string       `json:"features"`
	Accuracy     float64        `json:"accuracy"`
	Precision    float64        `json:"precision"`
	Recall       float64        `json:"recall"`
	F1Score      float64        `json:"f1Score"`
	Parameters   map[string]any `json:"parameters"`
	TrainingData TrainingData   `json:"trainingData"`
	LastTrained  time.Time      `json:"lastTrained"`
	Status       ModelStatus    `json:"status"`
}

type PredictionType string

const (
	PredictBehavior       PredictionType = "behavior"
	PredictConversion     PredictionType = "conversion"
	PredictChurn          PredictionType = "churn"
	PredictEngagement     PredictionType = "engagement"
	PredictRecommendation PredictionType = "recommendation"
)

type Prediction struct {
	ID              string         `json:"id"`
	ModelID         string         `json:"modelId"`
	UserID          string         `json:"userId,omitempty"`
	SessionID       string         `json:"sessionId,omitempty"`
	Type            PredictionType `json:"type"`
	Target          string         `json:"target"`
	Value           float64        `json:"value"`
	Confidence      float64        `json:"confidence"`
	Probability     float64        `json:"probability"`
	TimeHorizonMin  int            `json:"timeHorizonMinutes"`
	Features        map[string]any `json:"features"`
	Explanation     string         `json:"explanation"`
	Recommendations []string       `json:"recommendations"`
	CreatedAt       time.Time      `json:"createdAt"`
	ExpiresAt       time.Time      `json:"expiresAt"`
}

type RecommendationStatus string

const (
	RecActive    RecommendationStatus = "active"
	RecDismissed RecommendationStatus = "dismissed"
	RecAccepted  RecommendationStatus = "accepted"
	RecExpired   RecommendationStatus = "expired"
)

type Recommendation struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	Type        string               `json:"type"`
	ItemID      string               `json:"itemId"`
	ItemType    string               `json:"itemType"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Score       float64              `json:"score"`
	Confidence  float64              `json:"confidence"`
	Reason      string               `json:"reason"`
	Features    []string             `json:"features"`
	Metadata    map[string]any       `json:"metadata"`
	CreatedAt   time.Time            `json:"createdAt"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	Status      RecommendationStatus `json:"status"`
}

type EnginePerformance struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1Score"`
	Coverage  float64 `json:"coverage"`
	Diversity float64 `json:"diversity"`
}

type RecommendationEngine struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Algorithm   string            `json:"algorithm"`
	Parameters  map[string]any    `json:"parameters"`
	Performance EnginePerformance `json:"performance"`
	Status      string            `json:"status"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

type Demographics struct {
	Location string `json:"location,omitempty"`
	Language string `json:"language,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type Preferences struct {
	Categories []string `json:"categories"`
	Topics     []string `json:"topics"`
	Formats    []string `json:"formats"`
	Devices    []string `json:"devices"`
	Times      []string `json:"times"`
}

// BehaviorSnapshot is the slice of the analyzer output that concerns one user.
type BehaviorSnapshot struct {
	Patterns  []analyzer.BehaviorPattern `json:"patterns"`
	Segments  []analyzer.UserSegment     `json:"segments"`
	Journeys  []analyzer.UserJourney     `json:"journeys"`
	Anomalies []analyzer.Anomaly         `json:"anomalies"`
}

type EngagementTrend struct {
	Period  string   `json:"period"`
	Score   float64  `json:"score"`
	Change  float64  `json:"change"`
	Factors []string `json:"factors"`
}

type Engagement struct {
	Level  string            `json:"level"`
	Score  float64           `json:"score"`
	Trends []EngagementTrend `json:"trends"`
}

type UserForecast struct {
	NextAction            string  `json:"nextAction"`
	ChurnRisk             float64 `json:"churnRisk"`
	ConversionProbability float64 `json:"conversionProbability"`
	EngagementForecast    float64 `json:"engagementForecast"`
}

type UserProfile struct {
	UserID          string           `json:"userId"`
	Demographics    Demographics     `json:"demographics"`
	Preferences     Preferences      `json:"preferences"`
	Behavior        BehaviorSnapshot `json:"behavior"`
	Engagement      Engagement       `json:"engagement"`
	Forecast        UserForecast     `json:"forecast"`
	Recommendations []Recommendation `json:"recommendations"`
	LastUpdated     time.Time        `json:"lastUpdated"`
}

// PredictiveInsight is a descriptive rollup over one engine run, consumed by
// the insight generator.
type PredictiveInsight struct {
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Priority        string   `json:"priority"`
	Actionable      bool     `json:"actionable"`
	Recommendations []string `json:"recommendations"`
}

type Output struct {
	Predictions     []Prediction        `json:"predictions"`
	Recommendations []Recommendation    `json:"recommendations"`
	Profiles        []UserProfile       `json:"profiles"`
	Insights        []PredictiveInsight `json:"insights"`
}
