package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userpulse/backend/internal/insight"
)

type recordingTransport struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (r *recordingTransport) Send(ctx context.Context, channel *Channel, ins *insight.Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, channel.ID+":"+ins.ID)
	return nil
}

func newTestRouter() (*Router, *recordingTransport, *recordingTransport, *recordingTransport) {
	email := &recordingTransport{}
	slack := &recordingTransport{}
	dashboard := &recordingTransport{}
	r := NewRouter(map[ChannelType]Transport{
		ChannelEmail:     email,
		ChannelSlack:     slack,
		ChannelDashboard: dashboard,
	})
	return r, email, slack, dashboard
}

func TestRouteDeliversToMatchingChannels(t *testing.T) {
	r, email, slack, dashboard := newTestRouter()

	ins := &insight.Insight{ID: "i1", Type: insight.TypeRisk, Priority: insight.PriorityHigh}
	r.Route(context.Background(), ins)

	assert.Equal(t, []string{"email_alerts:i1"}, email.sent)
	assert.Empty(t, slack.sent)
	assert.Equal(t, []string{"dashboard_alerts:i1"}, dashboard.sent)
}

func TestRouteFilterRequiresTypeAndPriority(t *testing.T) {
	r, email, slack, _ := newTestRouter()

	// Type matches email's filter but priority does not.
	r.Route(context.Background(), &insight.Insight{ID: "i1", Type: insight.TypeRisk, Priority: insight.PriorityLow})
	// Priority matches but type does not.
	r.Route(context.Background(), &insight.Insight{ID: "i2", Type: insight.TypeEngagement, Priority: insight.PriorityCritical})

	assert.Empty(t, email.sent)
	assert.Empty(t, slack.sent)
}

func TestRouteSlackChannelDefaults(t *testing.T) {
	r, email, slack, dashboard := newTestRouter()

	ins := &insight.Insight{ID: "i1", Type: insight.TypeTrend, Priority: insight.PriorityMedium}
	r.Route(context.Background(), ins)

	assert.Empty(t, email.sent)
	assert.Equal(t, []string{"slack_notifications:i1"}, slack.sent)
	assert.Equal(t, []string{"dashboard_alerts:i1"}, dashboard.sent)
}

func TestRouteSkipsDisabledChannels(t *testing.T) {
	r, email, _, dashboard := newTestRouter()

	channels := r.Channels()
	for i := range channels {
		if channels[i].ID == "email_alerts" {
			ch := channels[i]
			ch.Enabled = false
			require.NoError(t, r.AddChannel(&ch))
		}
	}

	ins := &insight.Insight{ID: "i1", Type: insight.TypeRisk, Priority: insight.PriorityCritical}
	r.Route(context.Background(), ins)

	assert.Empty(t, email.sent)
	assert.Equal(t, []string{"dashboard_alerts:i1"}, dashboard.sent)
}

func TestRouteFailingTransportDoesNotBlockOthers(t *testing.T) {
	r, email, _, dashboard := newTestRouter()
	email.err = errors.New("smtp down")

	ins := &insight.Insight{ID: "i1", Type: insight.TypeAnomaly, Priority: insight.PriorityCritical}
	r.Route(context.Background(), ins)

	assert.Empty(t, email.sent)
	assert.Equal(t, []string{"dashboard_alerts:i1"}, dashboard.sent)
}

func TestRouteCustomChannelFilter(t *testing.T) {
	r, _, slack, _ := newTestRouter()

	require.NoError(t, r.AddChannel(&Channel{
		ID:      "a_custom_slack",
		Type:    ChannelSlack,
		Name:    "Engagement Updates",
		Enabled: true,
		Filters: []Filter{{
			Types:      []insight.InsightType{insight.TypeEngagement},
			Priorities: []insight.Priority{insight.PriorityLow, insight.PriorityMedium},
		}},
	}))

	ins := &insight.Insight{ID: "i1", Type: insight.TypeEngagement, Priority: insight.PriorityLow}
	r.Route(context.Background(), ins)

	assert.Equal(t, []string{"a_custom_slack:i1"}, slack.sent)
}

func TestAddChannelValidation(t *testing.T) {
	r, _, _, _ := newTestRouter()

	assert.Error(t, r.AddChannel(&Channel{Type: ChannelEmail}))
	assert.Error(t, r.AddChannel(&Channel{ID: "no_type"}))
	assert.NoError(t, r.AddChannel(&Channel{ID: "ok", Type: ChannelWebhook}))
}

func TestRemoveChannel(t *testing.T) {
	r, _, _, _ := newTestRouter()

	require.NoError(t, r.RemoveChannel("slack_notifications"))
	assert.Error(t, r.RemoveChannel("slack_notifications"))

	for _, ch := range r.Channels() {
		assert.NotEqual(t, "slack_notifications", ch.ID)
	}
}

func TestDefaultChannelsRegistered(t *testing.T) {
	r, _, _, _ := newTestRouter()

	channels := r.Channels()
	require.Len(t, channels, 3)
	assert.Equal(t, "dashboard_alerts", channels[0].ID)
	assert.Equal(t, "email_alerts", channels[1].ID)
	assert.Equal(t, "slack_notifications", channels[2].ID)
	for _, ch := range channels {
		assert.True(t, ch.Enabled)
		assert.NotEmpty(t, ch.Filters)
	}
}
