package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/insight"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/pkg/logger"
)

type ChannelType string

const (
	ChannelEmail     ChannelType = "email"
	ChannelSlack     ChannelType = "slack"
	ChannelWebhook   ChannelType = "webhook"
	ChannelSMS       ChannelType = "sms"
	ChannelPush      ChannelType = "push"
	ChannelDashboard ChannelType = "dashboard"
)

// Filter admits an insight when its type AND priority are both listed.
type Filter struct {
	Types      []insight.InsightType `json:"insightTypes"`
	Priorities []insight.Priority    `json:"priorities"`
}

func (f Filter) matches(ins *insight.Insight) bool {
	var typeOK bool
	for _, t := range f.Types {
		if t == ins.Type {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}
	for _, p := range f.Priorities {
		if p == ins.Priority {
			return true
		}
	}
	return false
}

type Channel struct {
	ID      string            `json:"id"`
	Type    ChannelType       `json:"type"`
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Config  map[string]string `json:"config"`
	Filters []Filter          `json:"filters"`
}

// shouldDeliver reports whether any filter admits the insight. The first
// matching filter decides.
func (c *Channel) shouldDeliver(ins *insight.Insight) bool {
	for _, f := range c.Filters {
		if f.matches(ins) {
			return true
		}
	}
	return false
}

// Transport delivers one insight over one channel type.
type Transport interface {
	Send(ctx context.Context, channel *Channel, ins *insight.Insight) error
}

// Router fans insights out to every enabled channel whose filters admit
// them. A failing channel never blocks the others.
type Router struct {
	mu         sync.Mutex
	channels   map[string]*Channel
	transports map[ChannelType]Transport
}

func NewRouter(transports map[ChannelType]Transport) *Router {
	r := &Router{
		channels:   make(map[string]*Channel),
		transports: transports,
	}
	r.registerDefaultChannels()
	return r
}

func (r *Router) Route(ctx context.Context, ins *insight.Insight) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	channels := make([]*Channel, 0, len(ids))
	for _, id := range ids {
		channels = append(channels, r.channels[id])
	}
	r.mu.Unlock()

	for _, ch := range channels {
		if !ch.Enabled || !ch.shouldDeliver(ins) {
			continue
		}

		transport, ok := r.transports[ch.Type]
		if !ok {
			logger.Warn("No transport for channel type",
				zap.String("channel_id", ch.ID),
				zap.String("channel_type", string(ch.Type)),
			)
			continue
		}

		if err := transport.Send(ctx, ch, ins); err != nil {
			logger.Warn("Notification delivery failed",
				zap.Error(err),
				zap.String("channel_id", ch.ID),
				zap.String("insight_id", ins.ID),
			)
			metrics.NotificationsFailed.WithLabelValues(string(ch.Type)).Inc()
			continue
		}
		metrics.NotificationsDispatched.WithLabelValues(string(ch.Type)).Inc()
	}
}

func (r *Router) AddChannel(ch *Channel) error {
	if ch.ID == "" {
		return fmt.Errorf("channel id is required")
	}
	if ch.Type == "" {
		return fmt.Errorf("channel type is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID] = ch
	return nil
}

func (r *Router) RemoveChannel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[id]; !ok {
		return fmt.Errorf("channel %s not found", id)
	}
	delete(r.channels, id)
	return nil
}

func (r *Router) Channels() []Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Channel, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.channels[id])
	}
	return out
}

func (r *Router) registerDefaultChannels() {
	defaults := []*Channel{
		{
			ID:      "email_alerts",
			Type:    ChannelEmail,
			Name:    "Email Alerts",
			Enabled: true,
			Config:  map[string]string{},
			Filters: []Filter{{
				Types:      []insight.InsightType{insight.TypeAnomaly, insight.TypeRisk, insight.TypePerformance},
				Priorities: []insight.Priority{insight.PriorityCritical, insight.PriorityHigh},
			}},
		},
		{
			ID:      "slack_notifications",
			Type:    ChannelSlack,
			Name:    "Slack Notifications",
			Enabled: true,
			Config:  map[string]string{},
			Filters: []Filter{{
				Types:      []insight.InsightType{insight.TypeTrend, insight.TypeOpportunity, insight.TypeConversion},
				Priorities: []insight.Priority{insight.PriorityHigh, insight.PriorityMedium},
			}},
		},
		{
			ID:      "dashboard_alerts",
			Type:    ChannelDashboard,
			Name:    "Dashboard Alerts",
			Enabled: true,
			Config:  map[string]string{},
			Filters: []Filter{{
				Types: []insight.InsightType{
					insight.TypeTrend, insight.TypeAnomaly, insight.TypeOpportunity,
					insight.TypeRisk, insight.TypePerformance,
				},
				Priorities: []insight.Priority{insight.PriorityCritical, insight.PriorityHigh, insight.PriorityMedium},
			}},
		},
	}

	for _, ch := range defaults {
		r.channels[ch.ID] = ch
	}
}
