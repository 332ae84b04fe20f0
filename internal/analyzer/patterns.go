package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/pkg/logger"
)

// extractPatterns combines reasoned and statistical patterns per session.
// Patterns with identical text merge: frequencies sum, confidences average.
func (a *Analyzer) extractPatterns(ctx context.Context, events []*event.Event) []BehaviorPattern {
	var patterns []BehaviorPattern

	sessions := groupBySession(events)
	sessionIDs := make([]string, 0, len(sessions))
	for id := range sessions {
		sessionIDs = append(sessionIDs, id)
	}
	sort.Strings(sessionIDs)

	for _, sessionID := range sessionIDs {
		sessionEvents := sessions[sessionID]
		reasoned := a.reasonedPatterns(ctx, sessionID, sessionEvents)
		statistical := a.statisticalPatterns(sessionID, sessionEvents)
		patterns = append(patterns, mergePatterns(reasoned, statistical)...)
	}

	return patterns
}

type reasonedPattern struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Frequency      int     `json:"frequency"`
	Confidence     float64 `json:"confidence"`
	Category       string  `json:"category"`
	Complexity     string  `json:"complexity"`
	Predictability float64 `json:"predictability"`
	Stability      float64 `json:"stability"`
}

func (a *Analyzer) reasonedPatterns(ctx context.Context, sessionID string, events []*event.Event) []BehaviorPattern {
	if a.reasoner == nil {
		return nil
	}

	content, err := a.reasoner.Execute(ctx, buildPatternPrompt(events), reasoning.TaskAnalysis, reasoning.PriorityHigh)
	if err != nil {
		logger.Warn("Pattern reasoning failed", zap.Error(err), zap.String("session_id", sessionID))
		metrics.ReasoningFallbacks.WithLabelValues("patterns").Inc()
		return nil
	}

	var decoded struct {
		Patterns []reasonedPattern `json:"patterns"`
	}
	if err := reasoning.DecodeObject(content, &decoded); err != nil {
		logger.Warn("Failed to decode pattern response", zap.Error(err))
		metrics.ReasoningFallbacks.WithLabelValues("patterns").Inc()
		return nil
	}

	now := time.Now()
	out := make([]BehaviorPattern, 0, len(decoded.Patterns))
	for _, p := range decoded.Patterns {
		text := p.Name
		if text == "" {
			text = p.Description
		}
		if text == "" {
			continue
		}

		freq := p.Frequency
		if freq == 0 {
			freq = 1
		}
		conf := p.Confidence
		if conf == 0 {
			conf = 0.5
		}

		category := event.Category(p.Category)
		if category == "" {
			category = event.CategoryInteraction
		}
		complexity := p.Complexity
		if complexity == "" {
			complexity = "simple"
		}

		out = append(out, BehaviorPattern{
			ID:         uuid.New().String(),
			SessionID:  sessionID,
			Pattern:    text,
			Frequency:  freq,
			Confidence: conf,
			FirstSeen:  now,
			LastSeen:   now,
			Examples:   []string{},
			Metadata: PatternMetadata{
				Category:       category,
				Complexity:     complexity,
				Predictability: orDefault(p.Predictability, 0.5),
				Stability:      orDefault(p.Stability, 0.5),
			},
		})
	}
	return out
}

// statisticalPatterns derives frequency patterns (types seen more than once)
// and sliding-window sequence patterns without any external calls.
func (a *Analyzer) statisticalPatterns(sessionID string, events []*event.Event) []BehaviorPattern {
	var patterns []BehaviorPattern
	now := time.Now()

	counts := make(map[event.EventType]int)
	for _, e := range events {
		counts[e.Type]++
	}

	types := make([]event.EventType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		count := counts[t]
		if count <= 1 {
			continue
		}
		confidence := float64(count) / float64(len(events))
		if confidence > 1 {
			confidence = 1
		}
		patterns = append(patterns, BehaviorPattern{
			ID:         uuid.New().String(),
			SessionID:  sessionID,
			Pattern:    fmt.Sprintf("Frequent %s events", t),
			Frequency:  count,
			Confidence: confidence,
			FirstSeen:  now,
			LastSeen:   now,
			Examples:   []string{fmt.Sprintf("%s occurred %d times", t, count)},
			Metadata: PatternMetadata{
				Category:       event.InferCategory(t),
				Complexity:     "simple",
				Predictability: 0.8,
				Stability:      0.7,
			},
		})
	}

	for _, seq := range slidingSequences(events, a.cfg.SequenceWindow) {
		text := "Sequence: " + strings.Join(seq, " -> ")
		patterns = append(patterns, BehaviorPattern{
			ID:         uuid.New().String(),
			SessionID:  sessionID,
			Pattern:    text,
			Frequency:  1,
			Confidence: 0.6,
			FirstSeen:  now,
			LastSeen:   now,
			Examples:   []string{strings.Join(seq, " -> ")},
			Metadata: PatternMetadata{
				Category:       event.CategoryNavigation,
				Complexity:     "moderate",
				Predictability: 0.6,
				Stability:      0.5,
			},
		})
	}

	return patterns
}

func slidingSequences(events []*event.Event, window int) [][]string {
	var sequences [][]string
	for i := 0; i+window <= len(events); i++ {
		seq := make([]string, window)
		for j := 0; j < window; j++ {
			seq[j] = string(events[i+j].Type)
		}
		sequences = append(sequences, seq)
	}
	return sequences
}

// mergePatterns keeps reasoned patterns first; a statistical pattern whose
// text matches one of them folds in (frequency summed, confidence averaged)
// instead of appearing twice.
func mergePatterns(reasoned, statistical []BehaviorPattern) []BehaviorPattern {
	byText := make(map[string]int, len(reasoned))
	merged := make([]BehaviorPattern, len(reasoned))
	copy(merged, reasoned)

	for i, p := range merged {
		byText[p.Pattern] = i
	}

	for _, p := range statistical {
		if i, ok := byText[p.Pattern]; ok {
			merged[i].Frequency += p.Frequency
			merged[i].Confidence = (merged[i].Confidence + p.Confidence) / 2
			merged[i].LastSeen = time.Now()
			continue
		}
		byText[p.Pattern] = len(merged)
		merged = append(merged, p)
	}

	return merged
}

func buildPatternPrompt(events []*event.Event) string {
	type summary struct {
		Type      event.EventType `json:"type"`
		Category  event.Category  `json:"category"`
		Page      string          `json:"page"`
		Element   string          `json:"element"`
		Timestamp string          `json:"timestamp"`
	}

	summaries := make([]summary, 0, len(events))
	for _, e := range events {
		summaries = append(summaries, summary{
			Type:      e.Type,
			Category:  e.Category,
			Page:      e.Page.URL,
			Element:   e.Element.TagName,
			Timestamp: e.Timestamp.Format(time.RFC3339),
		})
	}
	data, _ := json.Marshal(summaries)

	return fmt.Sprintf(`Extract behavior patterns from this event sequence.

Events:
%s

Respond with a JSON object:
{"patterns": [{"name": "...", "frequency": 1, "confidence": 0.0,
"category": "...", "complexity": "simple|moderate|complex",
"predictability": 0.0, "stability": 0.0}]}`, string(data))
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
