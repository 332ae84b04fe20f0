package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/userpulse/backend/internal/event"
)

// updateSegments assigns each user in the batch to the first existing
// segment whose criteria they satisfy, or creates a new single-member
// segment. The scan is linear and deliberately order-stable.
func (a *Analyzer) updateSegments(events []*event.Event) []UserSegment {
	users := groupByUser(events)
	userIDs := make([]string, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	a.mu.Lock()
	defer a.mu.Unlock()

	ordered := a.orderedSegmentsLocked()

	var touched []UserSegment
	for _, userID := range userIDs {
		userEvents := users[userID]

		var matched *UserSegment
		for _, seg := range ordered {
			if matchesCriteria(userEvents, seg.Criteria) {
				matched = seg
				break
			}
		}

		if matched != nil {
			if !containsString(matched.Users, userID) {
				matched.Users = append(matched.Users, userID)
				matched.Size = len(matched.Users)
			}
			matched.UpdatedAt = time.Now()
			touched = append(touched, *matched)
			continue
		}

		seg := newSegment(userID, userEvents)
		a.segments[seg.ID] = seg
		ordered = append(ordered, seg)
		touched = append(touched, *seg)
	}

	return touched
}

func (a *Analyzer) orderedSegmentsLocked() []*UserSegment {
	out := make([]*UserSegment, 0, len(a.segments))
	for _, s := range a.segments {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matchesCriteria(events []*event.Event, c SegmentCriteria) bool {
	present := make(map[event.EventType]bool, len(events))
	sessions := make(map[string]struct{})
	for _, e := range events {
		present[e.Type] = true
		sessions[e.SessionID] = struct{}{}
	}

	for _, required := range c.EventTypes {
		if !present[required] {
			return false
		}
	}

	frequency := len(events)
	if frequency < c.Frequency.Min {
		return false
	}
	if c.Frequency.Max > 0 && frequency > c.Frequency.Max {
		return false
	}

	sessionCount := len(sessions)
	if sessionCount < c.SessionCount.Min {
		return false
	}
	if c.SessionCount.Max > 0 && sessionCount > c.SessionCount.Max {
		return false
	}

	return true
}

func newSegment(userID string, events []*event.Event) *UserSegment {
	now := time.Now()

	typeSet := make(map[event.EventType]struct{})
	for _, e := range events {
		typeSet[e.Type] = struct{}{}
	}
	types := make([]event.EventType, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return &UserSegment{
		ID:          uuid.New().String(),
		Name:        fmt.Sprintf("Segment of %s", userID),
		Description: "User segment derived from observed behavior",
		Criteria: SegmentCriteria{
			EventTypes:   types,
			Frequency:    Range{Min: len(events)},
			SessionCount: Range{Min: 1},
		},
		Users:           []string{userID},
		Size:            1,
		Characteristics: analyzeCharacteristics(events),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func analyzeCharacteristics(events []*event.Event) SegmentCharacteristics {
	total := len(events)

	pageCounts := make(map[string]int)
	actionCounts := make(map[string]int)
	deviceCounts := make(map[string]int)
	hourCounts := make(map[int]int)
	sessionBounds := make(map[string][2]time.Time)

	for _, e := range events {
		pageCounts[e.Page.URL]++
		actionCounts[string(e.Type)]++
		deviceCounts[e.Device.Type]++
		hourCounts[e.Timestamp.Hour()]++

		bounds, ok := sessionBounds[e.SessionID]
		if !ok {
			sessionBounds[e.SessionID] = [2]time.Time{e.Timestamp, e.Timestamp}
			continue
		}
		if e.Timestamp.Before(bounds[0]) {
			bounds[0] = e.Timestamp
		}
		if e.Timestamp.After(bounds[1]) {
			bounds[1] = e.Timestamp
		}
		sessionBounds[e.SessionID] = bounds
	}

	var durationSum int64
	for _, bounds := range sessionBounds {
		durationSum += bounds[1].Sub(bounds[0]).Milliseconds()
	}
	var avgDuration int64
	if len(sessionBounds) > 0 {
		avgDuration = durationSum / int64(len(sessionBounds))
	}

	topPages := make([]PageShare, 0, len(pageCounts))
	for page, count := range pageCounts {
		topPages = append(topPages, PageShare{Page: page, Percentage: float64(count) / float64(total) * 100})
	}
	sort.Slice(topPages, func(i, j int) bool {
		if topPages[i].Percentage != topPages[j].Percentage {
			return topPages[i].Percentage > topPages[j].Percentage
		}
		return topPages[i].Page < topPages[j].Page
	})
	if len(topPages) > 5 {
		topPages = topPages[:5]
	}

	topActions := make([]ActionShare, 0, len(actionCounts))
	for action, count := range actionCounts {
		topActions = append(topActions, ActionShare{Action: action, Percentage: float64(count) / float64(total) * 100})
	}
	sort.Slice(topActions, func(i, j int) bool {
		if topActions[i].Percentage != topActions[j].Percentage {
			return topActions[i].Percentage > topActions[j].Percentage
		}
		return topActions[i].Action < topActions[j].Action
	})
	if len(topActions) > 5 {
		topActions = topActions[:5]
	}

	return SegmentCharacteristics{
		TopPages:               topPages,
		TopActions:             topActions,
		AverageSessionDuration: avgDuration,
		PreferredTime:          preferredTime(hourCounts),
		PreferredDevice:        mostCommon(deviceCounts),
	}
}

func preferredTime(hourCounts map[int]int) string {
	bestHour, bestCount := -1, 0
	for hour, count := range hourCounts {
		if count > bestCount || (count == bestCount && hour < bestHour) {
			bestHour, bestCount = hour, count
		}
	}
	switch {
	case bestHour < 0:
		return "unknown"
	case bestHour < 6:
		return "night"
	case bestHour < 12:
		return "morning"
	case bestHour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func mostCommon(counts map[string]int) string {
	best, bestCount := "unknown", 0
	for key, count := range counts {
		if key == "" {
			continue
		}
		if count > bestCount || (count == bestCount && key < best) {
			best, bestCount = key, count
		}
	}
	return best
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
