package predictive

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
)

const (
	recommendationTTL = 7 * 24 * time.Hour
	contextualTTL     = 24 * time.Hour

	minSimilarity = 0.3
	strategyCap   = 10
)

// generateRecommendations runs all four strategies per user and stores the
// result. Strategies are concatenated without cross-strategy deduplication;
// each recommendation carries its strategy in Features[0].
func (e *Engine) generateRecommendations(ctx context.Context, events []*event.Event, profiles []UserProfile) []Recommendation {
	users := groupByUser(events)
	vectors := typeVectors(users)

	var all []Recommendation
	for _, profile := range profiles {
		recs := e.collaborativeRecommendations(profile.UserID, users, vectors)
		recs = append(recs, contentBasedRecommendations(profile)...)
		recs = append(recs, e.hybridRecommendations(ctx, profile)...)
		recs = append(recs, contextualRecommendations(profile.UserID, users[profile.UserID])...)

		e.mu.Lock()
		e.recommendations[profile.UserID] = recs
		e.mu.Unlock()

		all = append(all, recs...)
	}

	return all
}

// typeVectors builds one event-type frequency vector per user.
func typeVectors(users map[string][]*event.Event) map[string]map[event.EventType]float64 {
	vectors := make(map[string]map[event.EventType]float64, len(users))
	for userID, events := range users {
		vec := make(map[event.EventType]float64)
		for _, e := range events {
			vec[e.Type]++
		}
		vectors[userID] = vec
	}
	return vectors
}

func cosineSimilarity(a, b map[event.EventType]float64) float64 {
	var dot, normA, normB float64
	for t, va := range a {
		normA += va * va
		if vb, ok := b[t]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type similarUser struct {
	userID     string
	similarity float64
}

// collaborativeRecommendations recommends the favorite pages of similar
// users. Similarity is cosine over event-type frequency vectors.
func (e *Engine) collaborativeRecommendations(userID string, users map[string][]*event.Event, vectors map[string]map[event.EventType]float64) []Recommendation {
	target, ok := vectors[userID]
	if !ok {
		return nil
	}

	var similar []similarUser
	for otherID, vec := range vectors {
		if otherID == userID {
			continue
		}
		if sim := cosineSimilarity(target, vec); sim >= minSimilarity {
			similar = append(similar, similarUser{userID: otherID, similarity: sim})
		}
	}
	sort.Slice(similar, func(i, j int) bool {
		if similar[i].similarity != similar[j].similarity {
			return similar[i].similarity > similar[j].similarity
		}
		return similar[i].userID < similar[j].userID
	})

	now := time.Now()
	var recs []Recommendation
	for _, su := range similar {
		for _, page := range topPages(users[su.userID]) {
			recs = append(recs, Recommendation{
				ID:          uuid.New().String(),
				UserID:      userID,
				Type:        "content",
				ItemID:      page,
				ItemType:    "page",
				Title:       page,
				Description: fmt.Sprintf("Similar users also visited %s", page),
				Score:       su.similarity * 0.8,
				Confidence:  0.7,
				Reason:      fmt.Sprintf("Based on similar user %s", su.userID),
				Features:    []string{"collaborative_filtering"},
				Metadata:    map[string]any{"similarUser": su.userID, "similarity": su.similarity},
				CreatedAt:   now,
				ExpiresAt:   now.Add(recommendationTTL),
				Status:      RecActive,
			})
			if len(recs) == strategyCap {
				return recs
			}
		}
	}
	return recs
}

func topPages(events []*event.Event) []string {
	counts := make(map[string]int)
	for _, e := range events {
		if e.Page.URL != "" {
			counts[e.Page.URL]++
		}
	}

	pages := make([]string, 0, len(counts))
	for p := range counts {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if counts[pages[i]] != counts[pages[j]] {
			return counts[pages[i]] > counts[pages[j]]
		}
		return pages[i] < pages[j]
	})
	if len(pages) > 3 {
		pages = pages[:3]
	}
	return pages
}

// contentBasedRecommendations derives one recommendation per preferred
// category, scored in preference order.
func contentBasedRecommendations(profile UserProfile) []Recommendation {
	now := time.Now()
	var recs []Recommendation
	for i, category := range profile.Preferences.Categories {
		if len(recs) == strategyCap {
			break
		}
		score := 0.9 - 0.05*float64(i)
		recs = append(recs, Recommendation{
			ID:          uuid.New().String(),
			UserID:      profile.UserID,
			Type:        "content",
			ItemID:      "category:" + category,
			ItemType:    "category",
			Title:       fmt.Sprintf("More %s content", category),
			Description: fmt.Sprintf("Based on your interest in %s", category),
			Score:       score,
			Confidence:  0.8,
			Reason:      fmt.Sprintf("Matches your interest in %s", category),
			Features:    []string{"content_based", category},
			Metadata:    map[string]any{"category": category},
			CreatedAt:   now,
			ExpiresAt:   now.Add(recommendationTTL),
			Status:      RecActive,
		})
	}
	return recs
}

type reasonedRecommendation struct {
	Type        string         `json:"type"`
	ItemID      string         `json:"itemId"`
	ItemType    string         `json:"itemType"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Score       float64        `json:"score"`
	Confidence  float64        `json:"confidence"`
	Reason      string         `json:"reason"`
	Features    []string       `json:"features"`
	Metadata    map[string]any `json:"metadata"`
}

// hybridRecommendations makes a single reasoning call per user and yields
// nothing on failure.
func (e *Engine) hybridRecommendations(ctx context.Context, profile UserProfile) []Recommendation {
	if e.reasoner == nil {
		return nil
	}

	content, err := e.reasoner.Execute(ctx, buildHybridPrompt(profile), reasoning.TaskRecommendation, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Hybrid recommendation failed", zap.Error(err), zap.String("user_id", profile.UserID))
		metrics.ReasoningFallbacks.WithLabelValues("recommendations").Inc()
		return nil
	}

	var decoded []reasonedRecommendation
	if err := reasoning.DecodeArray(content, &decoded); err != nil {
		logger.Warn("Failed to decode recommendation response", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("recommendations").Inc()
		return nil
	}

	now := time.Now()
	recs := make([]Recommendation, 0, len(decoded))
	for _, r := range decoded {
		if r.Title == "" {
			continue
		}
		rec := Recommendation{
			ID:          uuid.New().String(),
			UserID:      profile.UserID,
			Type:        r.Type,
			ItemID:      r.ItemID,
			ItemType:    r.ItemType,
			Title:       r.Title,
			Description: r.Description,
			Score:       r.Score,
			Confidence:  r.Confidence,
			Reason:      r.Reason,
			Features:    r.Features,
			Metadata:    r.Metadata,
			CreatedAt:   now,
			ExpiresAt:   now.Add(recommendationTTL),
			Status:      RecActive,
		}
		if rec.Type == "" {
			rec.Type = "content"
		}
		if rec.ItemType == "" {
			rec.ItemType = "content"
		}
		if len(rec.Features) == 0 {
			rec.Features = []string{"hybrid"}
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]any{}
		}
		recs = append(recs, rec)
	}
	return recs
}

// contextualRecommendations keys on time of day and the user's device. These
// are the shortest-lived recommendations.
func contextualRecommendations(userID string, events []*event.Event) []Recommendation {
	if len(events) == 0 {
		return nil
	}

	now := time.Now()
	timeOfDay := timeOfDayBucket(now.Hour())
	device := dominantDevice(events)

	return []Recommendation{{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        "content",
		ItemID:      fmt.Sprintf("context:%s:%s", timeOfDay, device),
		ItemType:    "context",
		Title:       "Suggested for right now",
		Description: fmt.Sprintf("Perfect for %s on %s", timeOfDay, device),
		Score:       0.75,
		Confidence:  0.9,
		Reason:      "Optimized for your current context",
		Features:    []string{"contextual", timeOfDay, device},
		Metadata:    map[string]any{"timeOfDay": timeOfDay, "device": device},
		CreatedAt:   now,
		ExpiresAt:   now.Add(contextualTTL),
		Status:      RecActive,
	}}
}

func timeOfDayBucket(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func dominantDevice(events []*event.Event) string {
	counts := make(map[string]int)
	for _, e := range events {
		if e.Device.Type != "" {
			counts[e.Device.Type]++
		}
	}
	best, bestCount := "desktop", 0
	for device, count := range counts {
		if count > bestCount || (count == bestCount && device < best) {
			best, bestCount = device, count
		}
	}
	return best
}

func buildHybridPrompt(profile UserProfile) string {
	prefs, _ := json.Marshal(profile.Preferences)
	return fmt.Sprintf(`Generate hybrid recommendations for user %s.

Preferences:
%s

Engagement: %s (score %.1f)
Patterns observed: %d, journeys: %d

Respond with a JSON array:
[{"type": "content|product|action|feature|personalization", "itemId": "...",
"itemType": "...", "title": "...", "description": "...", "score": 0.0,
"confidence": 0.0, "reason": "...", "features": []}]`,
		profile.UserID, string(prefs), profile.Engagement.Level, profile.Engagement.Score,
		len(profile.Behavior.Patterns), len(profile.Behavior.Journeys))
}
