package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/insight"
	"github.com/userpulse/backend/pkg/logger"
)

// EmailTransport delivers over SMTP. Recipients come from the channel's
// "recipients" config entry, comma separated.
type EmailTransport struct {
	host string
	port int
	from string
}

func NewEmailTransport(host string, port int, from string) *EmailTransport {
	return &EmailTransport{host: host, port: port, from: from}
}

func (t *EmailTransport) Send(ctx context.Context, channel *Channel, ins *insight.Insight) error {
	recipients := channel.Config["recipients"]
	if recipients == "" {
		return fmt.Errorf("channel %s has no recipients configured", channel.ID)
	}
	to := strings.Split(recipients, ",")

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(ins.Priority)), ins.Title)
	body := fmt.Sprintf("%s\r\n\r\n%s\r\n\r\nRecommendations:\r\n", ins.Summary, ins.Description)
	for _, rec := range ins.Recommendations {
		body += "- " + rec + "\r\n"
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		t.from, recipients, subject, body))

	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	if err := smtp.SendMail(addr, nil, t.from, to, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SlackTransport posts a short message to an incoming webhook. The channel's
// "webhook" config entry overrides the default URL.
type SlackTransport struct {
	client     *http.Client
	defaultURL string
}

func NewSlackTransport(defaultURL string) *SlackTransport {
	return &SlackTransport{
		client:     &http.Client{Timeout: 10 * time.Second},
		defaultURL: defaultURL,
	}
}

func (t *SlackTransport) Send(ctx context.Context, channel *Channel, ins *insight.Insight) error {
	url := channel.Config["webhook"]
	if url == "" {
		url = t.defaultURL
	}
	if url == "" {
		return fmt.Errorf("channel %s has no slack webhook configured", channel.ID)
	}

	payload := map[string]string{
		"text": fmt.Sprintf("*%s* [%s/%s]\n%s", ins.Title, ins.Type, ins.Priority, ins.Summary),
	}
	return postJSON(ctx, t.client, url, payload)
}

// WebhookTransport posts the full insight to the channel's "url" config
// entry.
type WebhookTransport struct {
	client *http.Client
}

func NewWebhookTransport() *WebhookTransport {
	return &WebhookTransport{client: &http.Client{Timeout: 10 * time.Second}}
}

func (t *WebhookTransport) Send(ctx context.Context, channel *Channel, ins *insight.Insight) error {
	url := channel.Config["url"]
	if url == "" {
		return fmt.Errorf("channel %s has no webhook url configured", channel.ID)
	}
	return postJSON(ctx, t.client, url, ins)
}

// GatewayTransport posts a compact notification to an external SMS or push
// gateway. With no gateway configured it logs the delivery instead.
type GatewayTransport struct {
	client     *http.Client
	kind       string
	gatewayURL string
}

func NewGatewayTransport(kind, gatewayURL string) *GatewayTransport {
	return &GatewayTransport{
		client:     &http.Client{Timeout: 10 * time.Second},
		kind:       kind,
		gatewayURL: gatewayURL,
	}
}

func (t *GatewayTransport) Send(ctx context.Context, channel *Channel, ins *insight.Insight) error {
	if t.gatewayURL == "" {
		logger.Info("Gateway not configured, logging notification",
			zap.String("kind", t.kind),
			zap.String("channel_id", channel.ID),
			zap.String("insight_id", ins.ID),
			zap.String("title", ins.Title),
		)
		return nil
	}

	payload := map[string]string{
		"kind":     t.kind,
		"target":   channel.Config["target"],
		"title":    ins.Title,
		"message":  ins.Summary,
		"priority": string(ins.Priority),
	}
	return postJSON(ctx, t.client, t.gatewayURL, payload)
}

// DashboardTransport broadcasts over the websocket hub.
type DashboardTransport struct {
	hub *Hub
}

func NewDashboardTransport(hub *Hub) *DashboardTransport {
	return &DashboardTransport{hub: hub}
}

func (t *DashboardTransport) Send(ctx context.Context, channel *Channel, ins *insight.Insight) error {
	t.hub.Broadcast(map[string]any{
		"type":    "insight",
		"insight": ins,
	})
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
