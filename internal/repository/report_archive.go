// Package repository persists dispatched reports to an embedded sqlite
// database for audit.
package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"honeypot/internal/models"
)

// ArchivedReport is a stored copy of a report delivered to the sink.
type ArchivedReport struct {
	ID            string    `db:"id"`
	SessionID     string    `db:"session_id"`
	ScamDetected  bool      `db:"scam_detected"`
	TotalMessages int       `db:"total_messages"`
	Intelligence  string    `db:"intelligence"` // JSON
	AgentNotes    string    `db:"agent_notes"`
	DispatchedAt  time.Time `db:"dispatched_at"`
}

// ReportArchive stores dispatched reports.
type ReportArchive struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewReportArchive opens (or creates) the archive database.
func NewReportArchive(dbPath string, logger *zap.Logger) (*ReportArchive, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	archive := &ReportArchive{
		db:     db,
		logger: logger,
	}

	if err := archive.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Report archive initialized", zap.String("db_path", dbPath))
	return archive, nil
}

func (a *ReportArchive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		scam_detected BOOLEAN NOT NULL,
		total_messages INTEGER NOT NULL,
		intelligence TEXT NOT NULL,
		agent_notes TEXT,
		dispatched_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_session_id ON reports(session_id);
	CREATE INDEX IF NOT EXISTS idx_reports_dispatched_at ON reports(dispatched_at);
	`

	_, err := a.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (a *ReportArchive) Close() error {
	return a.db.Close()
}

// SaveReport records a dispatched report.
func (a *ReportArchive) SaveReport(r *models.Report) error {
	intelligence, err := json.Marshal(r.ExtractedIntelligence)
	if err != nil {
		return fmt.Errorf("failed to marshal intelligence: %w", err)
	}

	query := `
		INSERT INTO reports (id, session_id, scam_detected, total_messages, intelligence, agent_notes, dispatched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	id := uuid.New().String()
	_, err = a.db.Exec(query,
		id,
		r.SessionID,
		r.ScamDetected,
		r.TotalMessagesExchanged,
		string(intelligence),
		r.AgentNotes,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	a.logger.Debug("Report archived",
		zap.String("report_id", id),
		zap.String("session_id", r.SessionID))
	return nil
}

// ReportsBySession returns the archived reports for one session, newest
// first.
func (a *ReportArchive) ReportsBySession(sessionID string) ([]*ArchivedReport, error) {
	query := `
		SELECT id, session_id, scam_detected, total_messages, intelligence, agent_notes, dispatched_at
		FROM reports
		WHERE session_id = ?
		ORDER BY dispatched_at DESC
	`

	var reports []*ArchivedReport
	if err := a.db.Select(&reports, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return reports, nil
}

// Count returns the number of archived reports.
func (a *ReportArchive) Count() (int, error) {
	var count int
	if err := a.db.Get(&count, "SELECT COUNT(*) FROM reports"); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}
