package event

import (
	"strings"
	"time"
)

// EventType is the closed set of trackable interaction types.
type EventType string

const (
	TypePageView   EventType = "page_view"
	TypePageExit   EventType = "page_exit"
	TypePageScroll EventType = "page_scroll"
	TypePageResize EventType = "page_resize"

	TypeClick       EventType = "click"
	TypeDoubleClick EventType = "double_click"
	TypeRightClick  EventType = "right_click"
	TypeHover       EventType = "hover"
	TypeHoverExit   EventType = "hover_exit"

	TypeFormFocus      EventType = "form_focus"
	TypeFormBlur       EventType = "form_blur"
	TypeFormInput      EventType = "form_input"
	TypeFormSubmit     EventType = "form_submit"
	TypeFormValidation EventType = "form_validation"

	TypeButtonClick EventType = "button_click"
	TypeLinkClick   EventType = "link_click"
	TypeImageClick  EventType = "image_click"
	TypeVideoPlay   EventType = "video_play"
	TypeVideoPause  EventType = "video_pause"

	TypeSearchQuery       EventType = "search_query"
	TypeSearchResultClick EventType = "search_result_click"
	TypeFilterApplied     EventType = "filter_applied"
	TypeSortChanged       EventType = "sort_changed"

	TypeCartAdd         EventType = "cart_add"
	TypeCartRemove      EventType = "cart_remove"
	TypeCheckoutStart   EventType = "checkout_start"
	TypePaymentComplete EventType = "payment_complete"

	TypeLoginAttempt      EventType = "login_attempt"
	TypeLoginSuccess      EventType = "login_success"
	TypeLoginFailure      EventType = "login_failure"
	TypeLogout            EventType = "logout"
	TypeSignupStart       EventType = "signup_start"
	TypeSignupComplete    EventType = "signup_complete"
	TypeEmailVerification EventType = "email_verification"

	TypeContentCreate EventType = "content_create"
	TypeContentEdit   EventType = "content_edit"
	TypeContentDelete EventType = "content_delete"
	TypeContentShare  EventType = "content_share"

	TypeCommentAdd    EventType = "comment_add"
	TypeCommentEdit   EventType = "comment_edit"
	TypeCommentDelete EventType = "comment_delete"
	TypeCommentLike   EventType = "comment_like"
	TypeFollowUser    EventType = "follow_user"
	TypeUnfollowUser  EventType = "unfollow_user"
	TypeBlockUser     EventType = "block_user"
	TypeReportContent EventType = "report_content"

	TypeNotificationReceived  EventType = "notification_received"
	TypeNotificationClicked   EventType = "notification_clicked"
	TypeNotificationDismissed EventType = "notification_dismissed"

	TypeErrorOccurred    EventType = "error_occurred"
	TypePerformanceIssue EventType = "performance_issue"
	TypeSecurityAlert    EventType = "security_alert"

	TypeCustomEvent       EventType = "custom_event"
	TypeAgentAction       EventType = "agent_action"
	TypeContentGeneration EventType = "content_generation"
	TypeAIInteraction     EventType = "ai_interaction"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityDebug    Priority = "debug"
)

type Category string

const (
	CategoryNavigation     Category = "navigation"
	CategoryInteraction    Category = "interaction"
	CategoryForm           Category = "form"
	CategoryMedia          Category = "media"
	CategorySearch         Category = "search"
	CategoryCommerce       Category = "commerce"
	CategoryAuthentication Category = "authentication"
	CategoryContent        Category = "content"
	CategorySocial         Category = "social"
	CategoryNotification   Category = "notification"
	CategorySystem         Category = "system"
	CategoryAI             Category = "ai"
)

type PageContext struct {
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	Referrer     string            `json:"referrer,omitempty"`
	Path         string            `json:"path"`
	Query        map[string]string `json:"query,omitempty"`
	Hash         string            `json:"hash,omitempty"`
	ViewportW    int               `json:"viewportWidth"`
	ViewportH    int               `json:"viewportHeight"`
	ScrollX      int               `json:"scrollX"`
	ScrollY      int               `json:"scrollY"`
	ScrollMaxY   int               `json:"scrollMaxY"`
	LoadTimeMS   int64             `json:"loadTimeMs"`
	DOMReadyMS   int64             `json:"domReadyMs"`
	FirstPaintMS int64             `json:"firstPaintMs"`
}

type ElementContext struct {
	TagName       string            `json:"tagName"`
	ID            string            `json:"id,omitempty"`
	ClassName     string            `json:"className,omitempty"`
	TextContent   string            `json:"textContent,omitempty"`
	X             int               `json:"x"`
	Y             int               `json:"y"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	IsVisible     bool              `json:"isVisible"`
	IsInteractive bool              `json:"isInteractive"`
}

type UserBehaviorSummary struct {
	IsReturning            bool     `json:"isReturning"`
	SessionCount           int      `json:"sessionCount"`
	TotalTimeSpentMS       int64    `json:"totalTimeSpentMs"`
	AverageSessionDuration int64    `json:"averageSessionDurationMs"`
	FavoritePages          []string `json:"favoritePages,omitempty"`
	CommonActions          []string `json:"commonActions,omitempty"`
}

type UserContext struct {
	ID          string              `json:"id,omitempty"`
	Email       string              `json:"email,omitempty"`
	Role        string              `json:"role,omitempty"`
	Segment     string              `json:"segment,omitempty"`
	Preferences map[string]any      `json:"preferences,omitempty"`
	Behavior    UserBehaviorSummary `json:"behavior"`
	Country     string              `json:"country,omitempty"`
	Timezone    string              `json:"timezone,omitempty"`
	Language    string              `json:"language,omitempty"`
}

type DeviceContext struct {
	Type           string `json:"type"`
	OSName         string `json:"osName"`
	OSVersion      string `json:"osVersion"`
	BrowserName    string `json:"browserName"`
	BrowserVersion string `json:"browserVersion"`
	BrowserEngine  string `json:"browserEngine,omitempty"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	Touch          bool   `json:"touch"`
	Bot            bool   `json:"bot"`
}

type PerformanceContext struct {
	EventDurationMS  int64 `json:"eventDurationMs"`
	MemoryUsageBytes int64 `json:"memoryUsageBytes"`
	NetworkLatencyMS int64 `json:"networkLatencyMs"`
	RenderTimeMS     int64 `json:"renderTimeMs"`
	DOMNodes         int   `json:"domNodes"`
}

type SecurityContext struct {
	IPAddress        string   `json:"ipAddress"`
	UserAgent        string   `json:"userAgent"`
	Fingerprint      string   `json:"fingerprint,omitempty"`
	IsBot            bool     `json:"isBot"`
	IsSuspicious     bool     `json:"isSuspicious"`
	RiskScore        float64  `json:"riskScore"`
	Threats          []string `json:"threats,omitempty"`
	SecureConnection bool     `json:"secureConnection"`
}

type PageViewData struct {
	DurationMS  int64   `json:"durationMs"`
	ScrollDepth float64 `json:"scrollDepth"`
	ExitPage    bool    `json:"exitPage"`
	EntryPage   bool    `json:"entryPage"`
}

type ClickData struct {
	Button     int    `json:"button"`
	CtrlKey    bool   `json:"ctrlKey"`
	ShiftKey   bool   `json:"shiftKey"`
	TargetText string `json:"targetText,omitempty"`
	TargetURL  string `json:"targetUrl,omitempty"`
}

type FormData struct {
	FormID           string   `json:"formId"`
	FieldName        string   `json:"fieldName,omitempty"`
	FieldType        string   `json:"fieldType,omitempty"`
	ValidationErrors []string `json:"validationErrors,omitempty"`
	CompletionRate   float64  `json:"completionRate"`
}

type SearchData struct {
	Query          string         `json:"query"`
	Filters        map[string]any `json:"filters,omitempty"`
	ResultsCount   int            `json:"resultsCount"`
	SelectedResult int            `json:"selectedResult,omitempty"`
	SearchTimeMS   int64          `json:"searchTimeMs"`
}

type CommerceData struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	Quantity    int     `json:"quantity"`
}

type AuthData struct {
	Method       string `json:"method"`
	Provider     string `json:"provider,omitempty"`
	Success      bool   `json:"success"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type ContentData struct {
	ContentID    string         `json:"contentId"`
	ContentType  string         `json:"contentType"`
	ContentTitle string         `json:"contentTitle"`
	Action       string         `json:"action"`
	Changes      map[string]any `json:"changes,omitempty"`
}

type AgentData struct {
	AgentID          string  `json:"agentId"`
	Action           string  `json:"action"`
	Input            any     `json:"input,omitempty"`
	Output           any     `json:"output,omitempty"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMS int64   `json:"processingTimeMs"`
	Model            string  `json:"model,omitempty"`
}

type ErrorData struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	StackTrace   string `json:"stackTrace,omitempty"`
	Component    string `json:"component,omitempty"`
	Severity     string `json:"severity"`
}

// EventData carries the per-family payload. At most one family pointer is set
// for a given event; Value/Text/URL are shared scalars.
type EventData struct {
	Value    any           `json:"value,omitempty"`
	Text     string        `json:"text,omitempty"`
	URL      string        `json:"url,omitempty"`
	PageView *PageViewData `json:"pageView,omitempty"`
	Click    *ClickData    `json:"click,omitempty"`
	Form     *FormData     `json:"form,omitempty"`
	Search   *SearchData   `json:"search,omitempty"`
	Commerce *CommerceData `json:"commerce,omitempty"`
	Auth     *AuthData     `json:"auth,omitempty"`
	Content  *ContentData  `json:"content,omitempty"`
	Agent    *AgentData    `json:"aiAgent,omitempty"`
	Error    *ErrorData    `json:"error,omitempty"`
}

type Metadata struct {
	Source      string         `json:"source"`
	Version     string         `json:"version"`
	Environment string         `json:"environment"`
	Feature     string         `json:"feature,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// Analysis is the reasoned enrichment attached to high-value events.
type Analysis struct {
	Intent          string   `json:"intent"`
	Sentiment       string   `json:"sentiment"`
	Confidence      float64  `json:"confidence"`
	Patterns        []string `json:"patterns"`
	Anomalies       []string `json:"anomalies"`
	Recommendations []string `json:"recommendations"`
	NextAction      string   `json:"nextAction,omitempty"`
	NextProbability float64  `json:"nextProbability,omitempty"`
}

type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	Type      EventType `json:"type"`
	Category  Category  `json:"category"`
	Priority  Priority  `json:"priority"`
	Timestamp time.Time `json:"timestamp"`

	Page    PageContext    `json:"page"`
	Element ElementContext `json:"element"`
	User    UserContext    `json:"user"`
	Device  DeviceContext  `json:"device"`

	Data     EventData `json:"data"`
	Metadata Metadata  `json:"metadata"`

	Analysis *Analysis `json:"analysis,omitempty"`

	RelatedEvents []string `json:"relatedEvents"`
	ParentEvent   string   `json:"parentEvent,omitempty"`
	ChildEvents   []string `json:"childEvents"`

	Performance PerformanceContext `json:"performance"`
	Security    SecurityContext    `json:"security"`
}

// Filter selects events by any combination of criteria. Empty fields match
// everything.
type Filter struct {
	Types      []EventType `json:"types,omitempty"`
	Categories []Category  `json:"categories,omitempty"`
	Priorities []Priority  `json:"priorities,omitempty"`
	UserID     string      `json:"userId,omitempty"`
	SessionID  string      `json:"sessionId,omitempty"`
	Page       string      `json:"page,omitempty"`
	Element    string      `json:"element,omitempty"`
}

// Matches reports whether e satisfies every criterion set on f.
func (f Filter) Matches(e *Event) bool {
	if len(f.Types) > 0 && !containsType(f.Types, e.Type) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, e.Priority) {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Page != "" && !strings.Contains(e.Page.URL, f.Page) {
		return false
	}
	if f.Element != "" && !strings.Contains(e.Element.TagName, f.Element) {
		return false
	}
	return true
}

type RankedEntry struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type HourBucket struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type Aggregation struct {
	TotalEvents       int           `json:"totalEvents"`
	UniqueUsers       int           `json:"uniqueUsers"`
	UniqueSessions    int           `json:"uniqueSessions"`
	AveragePerSession float64       `json:"averagePerSession"`
	TopEvents         []RankedEntry `json:"topEvents"`
	TopPages          []RankedEntry `json:"topPages"`
	TopElements       []RankedEntry `json:"topElements"`
	TimeDistribution  []HourBucket  `json:"timeDistribution"`
}

func containsType(list []EventType, v EventType) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsCategory(list []Category, v Category) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsPriority(list []Priority, v Priority) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

