package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/pkg/logger"
)

type EventHandler struct {
	store *event.Store
}

func NewEventHandler(store *event.Store) *EventHandler {
	return &EventHandler{
		store: store,
	}
}

func (h *EventHandler) LogEvent(c *fiber.Ctx) error {
	var req struct {
		SessionID   string                    `json:"sessionId"`
		Type        event.EventType           `json:"type"`
		Data        event.EventData           `json:"data"`
		UserID      string                    `json:"userId"`
		Priority    event.Priority            `json:"priority"`
		Category    event.Category            `json:"category"`
		Page        *event.PageContext        `json:"page"`
		Element     *event.ElementContext     `json:"element"`
		Metadata    *event.Metadata           `json:"metadata"`
		ParentEvent string                    `json:"parentEvent"`
		Performance *event.PerformanceContext `json:"performance"`
		Security    *event.SecurityContext    `json:"security"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sessionId is required",
		})
	}
	if req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "type is required",
		})
	}

	eventID, err := h.store.LogEvent(c.Context(), req.SessionID, req.Type, req.Data, event.LogOptions{
		UserID:      req.UserID,
		Priority:    req.Priority,
		Category:    req.Category,
		Page:        req.Page,
		Element:     req.Element,
		Metadata:    req.Metadata,
		ParentEvent: req.ParentEvent,
		UserAgent:   c.Get("User-Agent"),
		Performance: req.Performance,
		Security:    req.Security,
	})
	if err != nil {
		logger.Error("Failed to log event", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log event",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"eventId": eventID,
	})
}

func (h *EventHandler) GetEvent(c *fiber.Ctx) error {
	eventID := c.Params("id")

	e, ok := h.store.GetEvent(eventID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Event not found",
		})
	}

	return c.JSON(e)
}

func (h *EventHandler) GetSessionEvents(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	return c.JSON(fiber.Map{
		"sessionId": sessionID,
		"events":    h.store.GetSessionEvents(sessionID),
	})
}

func (h *EventHandler) GetUserEvents(c *fiber.Ctx) error {
	userID := c.Params("id")

	return c.JSON(fiber.Map{
		"userId": userID,
		"events": h.store.GetUserEvents(userID),
	})
}

func (h *EventHandler) GetAggregation(c *fiber.Ctx) error {
	var filter event.Filter
	if err := c.BodyParser(&filter); err != nil {
		logger.Error("Failed to parse filter", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid filter",
		})
	}

	return c.JSON(h.store.GetAggregation(&filter))
}

func (h *EventHandler) AddFilter(c *fiber.Ctx) error {
	var filter event.Filter
	if err := c.BodyParser(&filter); err != nil {
		logger.Error("Failed to parse filter", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid filter",
		})
	}

	h.store.AddFilter(filter)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"filters": h.store.Filters(),
	})
}

func (h *EventHandler) RemoveFilter(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid filter index",
		})
	}

	if err := h.store.RemoveFilter(index); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"filters": h.store.Filters(),
	})
}

func (h *EventHandler) GetFilters(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"filters": h.store.Filters(),
	})
}
