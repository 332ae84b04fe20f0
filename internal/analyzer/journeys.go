package analyzer

import (
	"sort"

	"github.com/google/uuid"

	"github.com/userpulse/backend/internal/event"
)

// analyzeJourneys builds one journey per session in the batch.
func (a *Analyzer) analyzeJourneys(events []*event.Event) []UserJourney {
	sessions := groupBySession(events)
	sessionIDs := make([]string, 0, len(sessions))
	for id := range sessions {
		sessionIDs = append(sessionIDs, id)
	}
	sort.Strings(sessionIDs)

	var journeys []UserJourney
	for _, sessionID := range sessionIDs {
		if j := a.buildJourney(sessionID, sessions[sessionID]); j != nil {
			journeys = append(journeys, *j)
			a.mu.Lock()
			a.journeys[j.SessionID] = j
			a.mu.Unlock()
		}
	}
	return journeys
}

func (a *Analyzer) buildJourney(sessionID string, events []*event.Event) *UserJourney {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]*event.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	steps := make([]JourneyStep, 0, len(sorted))
	succeeded := 0
	for i, e := range sorted {
		var duration int64
		if i > 0 {
			duration = e.Timestamp.Sub(sorted[i-1].Timestamp).Milliseconds()
		}
		success := stepSuccess(e)
		if success {
			succeeded++
		}
		steps = append(steps, JourneyStep{
			Step:       i + 1,
			EventID:    e.ID,
			Action:     e.Type,
			Page:       e.Page.URL,
			Timestamp:  e.Timestamp,
			DurationMS: duration,
			Success:    success,
			Intent:     stepIntent(e),
			Emotion:    stepEmotion(e),
			Confidence: 0.7,
		})
	}

	goal := inferGoal(sorted)
	conversion := float64(succeeded) / float64(len(steps))

	start := sorted[0].Timestamp
	end := sorted[len(sorted)-1].Timestamp

	return &UserJourney{
		ID:             uuid.New().String(),
		UserID:         sorted[0].UserID,
		SessionID:      sessionID,
		Steps:          steps,
		StartTime:      start,
		EndTime:        end,
		DurationMS:     end.Sub(start).Milliseconds(),
		Goal:           goal,
		Achieved:       goalAchieved(sorted, goal, conversion),
		ConversionRate: conversion,
		FrictionPoints: a.journeyFriction(steps),
		Opportunities:  journeyOpportunities(sorted),
		NextActions:    predictNextSteps(sorted),
	}
}

func stepSuccess(e *event.Event) bool {
	switch e.Type {
	case event.TypeErrorOccurred, event.TypeLoginFailure, event.TypeSecurityAlert, event.TypePerformanceIssue:
		return false
	}
	if e.Data.Form != nil && len(e.Data.Form.ValidationErrors) > 0 {
		return false
	}
	return true
}

func stepIntent(e *event.Event) string {
	switch e.Category {
	case event.CategoryNavigation:
		return "navigate"
	case event.CategorySearch:
		return "find"
	case event.CategoryCommerce:
		return "purchase"
	case event.CategoryAuthentication:
		return "authenticate"
	case event.CategoryContent:
		return "create"
	case event.CategorySocial:
		return "engage"
	default:
		return "interact"
	}
}

func stepEmotion(e *event.Event) string {
	switch e.Type {
	case event.TypeErrorOccurred, event.TypeLoginFailure, event.TypeSecurityAlert, event.TypePerformanceIssue:
		return "negative"
	case event.TypePaymentComplete, event.TypeSignupComplete, event.TypeContentCreate, event.TypeCommentLike:
		return "positive"
	default:
		return "neutral"
	}
}

// inferGoal picks the most specific goal the session's event mix supports.
func inferGoal(events []*event.Event) string {
	var commerce, auth, content, search bool
	for _, e := range events {
		switch e.Category {
		case event.CategoryCommerce:
			commerce = true
		case event.CategoryAuthentication:
			auth = true
		case event.CategoryContent:
			content = true
		case event.CategorySearch:
			search = true
		}
	}
	switch {
	case commerce:
		return "complete a purchase"
	case content:
		return "create content"
	case auth:
		return "manage account"
	case search:
		return "find information"
	default:
		return "browse"
	}
}

func goalAchieved(events []*event.Event, goal string, conversion float64) bool {
	hasType := func(t event.EventType) bool {
		for _, e := range events {
			if e.Type == t {
				return true
			}
		}
		return false
	}

	switch goal {
	case "complete a purchase":
		return hasType(event.TypePaymentComplete)
	case "create content":
		return hasType(event.TypeContentCreate) || hasType(event.TypeContentEdit)
	case "manage account":
		return hasType(event.TypeLoginSuccess) || hasType(event.TypeSignupComplete)
	case "find information":
		return hasType(event.TypeSearchResultClick)
	default:
		return conversion > 0.7
	}
}

// journeyFriction flags steps that were either rushed through or failed.
func (a *Analyzer) journeyFriction(steps []JourneyStep) []FrictionPoint {
	points := []FrictionPoint{}

	for _, st := range steps {
		switch {
		case !st.Success:
			points = append(points, FrictionPoint{
				ID:          uuid.New().String(),
				Step:        st.Step,
				Page:        st.Page,
				Element:     "content",
				Issue:       "step failed",
				Severity:    "high",
				Impact:      0.7,
				Suggestions: []string{"review error handling", "clarify the flow"},
			})
		case st.Step > 1 && st.DurationMS < a.cfg.MinStepMS:
			points = append(points, FrictionPoint{
				ID:          uuid.New().String(),
				Step:        st.Step,
				Page:        st.Page,
				Element:     "page",
				Issue:       "rushed step",
				Severity:    "medium",
				Impact:      0.3,
				Suggestions: []string{"check whether the step adds value"},
			})
		}
	}

	return points
}

func journeyOpportunities(events []*event.Event) []Opportunity {
	opportunities := []Opportunity{}

	var cartAdds, checkouts bool
	for _, e := range events {
		if e.Type == event.TypeCartAdd {
			cartAdds = true
		}
		if e.Type == event.TypeCheckoutStart || e.Type == event.TypePaymentComplete {
			checkouts = true
		}
	}

	if cartAdds && !checkouts {
		opportunities = append(opportunities, Opportunity{
			ID:          uuid.New().String(),
			Type:        "conversion",
			Description: "Cart was filled but checkout never started",
			Potential:   0.8,
			Effort:      "low",
			Impact:      "high",
		})
	}

	return opportunities
}

// predictNextSteps suggests a likely next action from the tail of the
// sequence. Purely heuristic; reasoned predictions live in the predictive
// engine.
func predictNextSteps(events []*event.Event) []NextAction {
	if len(events) == 0 {
		return []NextAction{}
	}

	last := events[len(events)-1]
	switch last.Type {
	case event.TypeCartAdd:
		return []NextAction{{Action: string(event.TypeCheckoutStart), Probability: 0.6, Context: "items in cart"}}
	case event.TypeSearchQuery:
		return []NextAction{{Action: string(event.TypeSearchResultClick), Probability: 0.7, Context: "results shown"}}
	case event.TypeLoginFailure:
		return []NextAction{{Action: string(event.TypeLoginAttempt), Probability: 0.8, Context: "retry after failure"}}
	default:
		return []NextAction{{Action: string(event.TypePageView), Probability: 0.5, Context: "continued browsing"}}
	}
}
