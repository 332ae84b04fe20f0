package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/analyzer"
	"github.com/userpulse/backend/internal/api/handlers"
	"github.com/userpulse/backend/internal/cache/redis"
	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/insight"
	"github.com/userpulse/backend/internal/metrics"
	"github.com/userpulse/backend/internal/notify"
	"github.com/userpulse/backend/internal/pipeline"
	"github.com/userpulse/backend/internal/predictive"
	"github.com/userpulse/backend/internal/reasoning"
	"github.com/userpulse/backend/internal/storage/sqlite"
	"github.com/userpulse/backend/internal/tracking"
	"github.com/userpulse/backend/pkg/config"
	appLogger "github.com/userpulse/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting UserPulse API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var responseCache reasoning.ResponseCache
	redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Warn("Redis unavailable, reasoning cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		responseCache = redisClient
	}

	reasoner := reasoning.NewClient(
		cfg.Reasoning.APIKey,
		cfg.Reasoning.Model,
		cfg.Reasoning.Temperature,
		cfg.Reasoning.MaxTokens,
		cfg.Reasoning.TimeoutSec,
		responseCache,
		cfg.Reasoning.CacheTTL,
	)

	store := event.NewStore(event.StoreConfig{
		BatchSize:     cfg.Events.BatchSize,
		FlushInterval: cfg.Events.FlushInterval,
	}, reasoner, sqliteClient)

	tracker := tracking.NewTracker(reasoner, sqliteClient)

	behaviorAnalyzer := analyzer.New(analyzer.Config{
		SequenceWindow: cfg.Analyzer.SequenceWindow,
		SlowEventMS:    int64(cfg.Analyzer.SlowEventMS),
		MinStepMS:      int64(cfg.Analyzer.MinStepDurationMS),
	}, reasoner)

	engine := predictive.New(reasoner)

	hub := notify.NewHub()
	router := notify.NewRouter(map[notify.ChannelType]notify.Transport{
		notify.ChannelEmail:     notify.NewEmailTransport(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort, cfg.Notify.SMTPFrom),
		notify.ChannelSlack:     notify.NewSlackTransport(cfg.Notify.SlackURL),
		notify.ChannelWebhook:   notify.NewWebhookTransport(),
		notify.ChannelSMS:       notify.NewGatewayTransport("sms", cfg.Notify.SMSGateway),
		notify.ChannelPush:      notify.NewGatewayTransport("push", cfg.Notify.PushGateway),
		notify.ChannelDashboard: notify.NewDashboardTransport(hub),
	})

	generator := insight.NewGenerator(insight.Config{
		SweepInterval: cfg.Insights.SweepInterval,
		SlowEventMS:   int64(cfg.Analyzer.SlowEventMS),
	}, reasoner, router)
	defer generator.Destroy()

	p, err := pipeline.New(store, behaviorAnalyzer, engine, generator)
	if err != nil {
		appLogger.Fatal("Failed to wire pipeline", zap.Error(err))
	}
	defer p.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	eventHandler := handlers.NewEventHandler(store)
	sessionHandler := handlers.NewSessionHandler(tracker)
	analyzerHandler := handlers.NewAnalyzerHandler(behaviorAnalyzer)
	insightHandler := handlers.NewInsightHandler(generator, router)
	predictiveHandler := handlers.NewPredictiveHandler(engine)

	api := app.Group("/api/v1")

	api.Post("/events", eventHandler.LogEvent)
	api.Get("/events/filters", eventHandler.GetFilters)
	api.Post("/events/filters", eventHandler.AddFilter)
	api.Delete("/events/filters/:index", eventHandler.RemoveFilter)
	api.Post("/events/aggregate", eventHandler.GetAggregation)
	api.Get("/events/:id", eventHandler.GetEvent)

	api.Post("/sessions", sessionHandler.StartSession)
	api.Get("/sessions/stats", sessionHandler.GetStats)
	api.Get("/sessions/:id", sessionHandler.GetSession)
	api.Post("/sessions/:id/end", sessionHandler.EndSession)
	api.Get("/sessions/:id/events", eventHandler.GetSessionEvents)
	api.Post("/sessions/:id/pageviews", sessionHandler.TrackPageView)
	api.Post("/sessions/:id/track", sessionHandler.TrackEvent)
	api.Post("/sessions/:id/analysis", sessionHandler.AnalyzeSession)
	api.Get("/sessions/:id/analysis", sessionHandler.GetAnalysis)

	api.Get("/users/:id/events", eventHandler.GetUserEvents)
	api.Get("/users/:id/predictions", predictiveHandler.GetPredictions)
	api.Get("/users/:id/recommendations", predictiveHandler.GetRecommendations)
	api.Get("/users/:id/profile", predictiveHandler.GetProfile)

	api.Get("/segments", analyzerHandler.GetSegments)
	api.Get("/journeys", analyzerHandler.GetJourneys)

	api.Get("/models", predictiveHandler.GetModels)
	api.Get("/engines", predictiveHandler.GetEngines)

	api.Get("/insights", insightHandler.GetInsights)
	api.Get("/insights/:id", insightHandler.GetInsight)
	api.Patch("/insights/:id/status", insightHandler.UpdateStatus)

	api.Get("/channels", insightHandler.GetChannels)
	api.Post("/channels", insightHandler.AddChannel)
	api.Delete("/channels/:id", insightHandler.RemoveChannel)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/insights", websocket.New(hub.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	store.Destroy(context.Background())
	appLogger.Info("Server stopped")
}
