package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/tracking"
	"github.com/userpulse/backend/pkg/logger"
)

type SessionHandler struct {
	tracker *tracking.Tracker
}

func NewSessionHandler(tracker *tracking.Tracker) *SessionHandler {
	return &SessionHandler{
		tracker: tracker,
	}
}

func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	var req struct {
		UserID   string                `json:"userId"`
		Location tracking.LocationInfo `json:"location"`
		Referrer string                `json:"referrer"`
		UTM      *tracking.UTMParams   `json:"utmParams"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	session := h.tracker.StartSession(c.Context(), tracking.StartOptions{
		UserID:    req.UserID,
		UserAgent: c.Get("User-Agent"),
		Location:  req.Location,
		Referrer:  req.Referrer,
		UTM:       req.UTM,
	})

	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *SessionHandler) EndSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	session, err := h.tracker.EndSession(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, tracking.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		logger.Error("Failed to end session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to end session",
		})
	}

	return c.JSON(session)
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	session, ok := h.tracker.GetSession(sessionID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	return c.JSON(session)
}

func (h *SessionHandler) TrackPageView(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var pv tracking.PageView
	if err := c.BodyParser(&pv); err != nil {
		logger.Error("Failed to parse page view", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid page view",
		})
	}

	tracked, err := h.tracker.TrackPageView(c.Context(), sessionID, pv)
	if err != nil {
		if errors.Is(err, tracking.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		logger.Error("Failed to track page view", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to track page view",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(tracked)
}

func (h *SessionHandler) TrackEvent(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var ev tracking.TrackedEvent
	if err := c.BodyParser(&ev); err != nil {
		logger.Error("Failed to parse tracked event", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid tracked event",
		})
	}

	tracked, err := h.tracker.TrackEvent(c.Context(), sessionID, ev)
	if err != nil {
		if errors.Is(err, tracking.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		logger.Error("Failed to track event", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to track event",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(tracked)
}

func (h *SessionHandler) AnalyzeSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	analysis, err := h.tracker.AnalyzeSession(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, tracking.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		logger.Error("Failed to analyze session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to analyze session",
		})
	}

	return c.JSON(analysis)
}

func (h *SessionHandler) GetAnalysis(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	analysis, ok := h.tracker.GetAnalysis(sessionID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Analysis not found",
		})
	}

	return c.JSON(analysis)
}

func (h *SessionHandler) GetStats(c *fiber.Ctx) error {
	return c.JSON(h.tracker.GetStats())
}
