package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/storage/models"
	"github.com/userpulse/backend/internal/tracking"
	"github.com/userpulse/backend/pkg/logger"
)

// Client persists flushed event batches and tracking records. It satisfies
// event.Sink and tracking.Persister.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT,
		type TEXT NOT NULL,
		category TEXT,
		priority TEXT,
		timestamp INTEGER NOT NULL,
		duration_ms INTEGER,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		duration_ms INTEGER,
		device_type TEXT,
		browser TEXT,
		os TEXT,
		country TEXT,
		referrer TEXT,
		is_active INTEGER DEFAULT 1,
		last_activity INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time);

	CREATE TABLE IF NOT EXISTS page_views (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		timestamp INTEGER NOT NULL,
		duration_ms INTEGER,
		scroll_depth REAL,
		entry_page INTEGER DEFAULT 0,
		exit_page INTEGER DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_page_views_session ON page_views(session_id);
	CREATE INDEX IF NOT EXISTS idx_page_views_url ON page_views(url);

	CREATE TABLE IF NOT EXISTS tracked_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		type TEXT NOT NULL,
		element TEXT,
		page TEXT,
		timestamp INTEGER NOT NULL,
		payload TEXT,
		FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_tracked_events_session ON tracked_events(session_id);

	CREATE TABLE IF NOT EXISTS behavior_analyses (
		session_id TEXT PRIMARY KEY,
		user_id TEXT,
		engagement_score REAL,
		overall_score REAL,
		grade TEXT,
		goal_achieved INTEGER DEFAULT 0,
		analysis TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_user ON behavior_analyses(user_id);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON behavior_analyses(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// SaveEventBatch writes a flushed batch in one transaction.
func (c *Client) SaveEventBatch(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO events (id, session_id, user_id, type, category, priority, timestamp, duration_ms, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			e.ID,
			e.SessionID,
			e.UserID,
			string(e.Type),
			string(e.Category),
			string(e.Priority),
			e.Timestamp.Unix(),
			e.Performance.EventDurationMS,
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event batch: %w", err)
	}

	logger.Debug("Event batch persisted", zap.Int("count", len(events)))
	return nil
}

func (c *Client) SaveSession(ctx context.Context, s *tracking.Session) error {
	query := `
		INSERT INTO sessions (session_id, user_id, start_time, end_time, duration_ms,
			device_type, browser, os, country, referrer, is_active, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			end_time = excluded.end_time,
			duration_ms = excluded.duration_ms,
			is_active = excluded.is_active,
			last_activity = excluded.last_activity
	`

	var endTime any
	if s.EndTime != nil {
		endTime = s.EndTime.Unix()
	}
	isActive := 0
	if s.IsActive {
		isActive = 1
	}

	_, err := c.db.ExecContext(ctx, query,
		s.SessionID,
		s.UserID,
		s.StartTime.Unix(),
		endTime,
		s.DurationMS,
		s.Device.DeviceType,
		s.Device.Browser,
		s.Device.OS,
		s.Location.Country,
		s.Referrer,
		isActive,
		s.LastActivity.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (c *Client) SavePageView(ctx context.Context, sessionID string, pv *tracking.PageView) error {
	query := `
		INSERT OR REPLACE INTO page_views (id, session_id, url, title, timestamp, duration_ms, scroll_depth, entry_page, exit_page)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	entry, exit := 0, 0
	if pv.EntryPage {
		entry = 1
	}
	if pv.ExitPage {
		exit = 1
	}

	_, err := c.db.ExecContext(ctx, query,
		pv.ID,
		sessionID,
		pv.URL,
		pv.Title,
		pv.Timestamp.Unix(),
		pv.DurationMS,
		pv.ScrollDepth,
		entry,
		exit,
	)

	if err != nil {
		return fmt.Errorf("failed to save page view: %w", err)
	}
	return nil
}

func (c *Client) SaveTrackedEvent(ctx context.Context, sessionID string, ev *tracking.TrackedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal tracked event: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO tracked_events (id, session_id, type, element, page, timestamp, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.ExecContext(ctx, query,
		ev.ID,
		sessionID,
		ev.Type,
		ev.Element,
		ev.Page,
		ev.Timestamp.Unix(),
		string(payload),
	)

	if err != nil {
		return fmt.Errorf("failed to save tracked event: %w", err)
	}
	return nil
}

func (c *Client) SaveAnalysis(ctx context.Context, a *tracking.BehaviorAnalysis) error {
	analysisJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO behavior_analyses (session_id, user_id, engagement_score, overall_score, grade, goal_achieved, analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	goalAchieved := 0
	if a.Journey.GoalAchieved {
		goalAchieved = 1
	}

	_, err = c.db.ExecContext(ctx, query,
		a.SessionID,
		a.UserID,
		a.Engagement.EngagementScore,
		a.Score.Overall,
		a.Score.Grade,
		goalAchieved,
		string(analysisJSON),
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	logger.Info("Behavior analysis persisted",
		zap.String("session_id", a.SessionID),
		zap.Float64("overall_score", a.Score.Overall),
	)
	return nil
}

// GetSessionRecords returns persisted sessions for a user, newest first.
func (c *Client) GetSessionRecords(ctx context.Context, userID string, limit int) ([]models.SessionRecord, error) {
	query := `
		SELECT session_id, user_id, start_time, end_time, duration_ms,
			device_type, browser, os, country, referrer, is_active, last_activity
		FROM sessions
		WHERE user_id = ?
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		var r models.SessionRecord
		var startTime, lastActivity int64
		var endTime sql.NullInt64
		var isActive int

		err := rows.Scan(&r.SessionID, &r.UserID, &startTime, &endTime, &r.DurationMS,
			&r.DeviceType, &r.Browser, &r.OS, &r.Country, &r.Referrer, &isActive, &lastActivity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.StartTime = time.Unix(startTime, 0)
		r.LastActivity = time.Unix(lastActivity, 0)
		if endTime.Valid {
			t := time.Unix(endTime.Int64, 0)
			r.EndTime = &t
		}
		r.IsActive = isActive == 1
		records = append(records, r)
	}

	return records, nil
}

// GetEventRecords returns persisted events for a session in time order.
func (c *Client) GetEventRecords(ctx context.Context, sessionID string) ([]models.EventRecord, error) {
	query := `
		SELECT id, session_id, user_id, type, category, priority, timestamp, duration_ms, payload
		FROM events
		WHERE session_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := c.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var records []models.EventRecord
	for rows.Next() {
		var r models.EventRecord
		var timestamp int64

		err := rows.Scan(&r.ID, &r.SessionID, &r.UserID, &r.Type, &r.Category,
			&r.Priority, &timestamp, &r.DurationMS, &r.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Timestamp = time.Unix(timestamp, 0)
		records = append(records, r)
	}

	return records, nil
}

// GetAnalysisRecord returns the persisted behavior analysis for a session.
func (c *Client) GetAnalysisRecord(ctx context.Context, sessionID string) (*models.AnalysisRecord, error) {
	query := `
		SELECT session_id, user_id, engagement_score, overall_score, grade, goal_achieved, analysis, created_at
		FROM behavior_analyses
		WHERE session_id = ?
	`

	var r models.AnalysisRecord
	var goalAchieved int
	var createdAt int64

	err := c.db.QueryRowContext(ctx, query, sessionID).Scan(
		&r.SessionID, &r.UserID, &r.EngagementScore, &r.OverallScore,
		&r.Grade, &goalAchieved, &r.Analysis, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	r.GoalAchieved = goalAchieved == 1
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}
