// Package honeypot drives one conversation session through classify, engage,
// extract and conclude.
package honeypot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"honeypot/internal/extract"
	"honeypot/internal/models"
	"honeypot/internal/persona"
	"honeypot/internal/report"
	"honeypot/internal/session"
)

// ErrSessionNotFound is returned when concluding an unknown session.
var ErrSessionNotFound = session.ErrNotFound

// Classifier returns a scam verdict for a message in conversation context.
type Classifier interface {
	Classify(ctx context.Context, text string, history []models.Turn) (models.Verdict, error)
}

// Generator produces a persona-consistent reply to the latest message.
type Generator interface {
	Reply(ctx context.Context, p persona.Profile, history []models.Turn, latest string) (string, error)
}

// Reporter delivers the final intelligence summary to the evaluator sink.
type Reporter interface {
	Send(ctx context.Context, r *models.Report) error
}

// Archiver persists dispatched reports. Optional.
type Archiver interface {
	SaveReport(r *models.Report) error
}

// Engine is the conversation orchestrator.
type Engine struct {
	store           *session.Store
	personas        *persona.Registry
	classifier      Classifier
	generator       Generator
	reporter        Reporter
	archiver        Archiver
	logger          *zap.Logger
	classifyTimeout time.Duration
	generateTimeout time.Duration
}

// NewEngine wires the orchestrator. archiver may be nil.
func NewEngine(
	store *session.Store,
	personas *persona.Registry,
	classifier Classifier,
	generator Generator,
	reporter Reporter,
	archiver Archiver,
	logger *zap.Logger,
	classifyTimeout time.Duration,
	generateTimeout time.Duration,
) *Engine {
	if classifyTimeout <= 0 {
		classifyTimeout = 10 * time.Second
	}
	if generateTimeout <= 0 {
		generateTimeout = 20 * time.Second
	}
	return &Engine{
		store:           store,
		personas:        personas,
		classifier:      classifier,
		generator:       generator,
		reporter:        reporter,
		archiver:        archiver,
		logger:          logger,
		classifyTimeout: classifyTimeout,
		generateTimeout: generateTimeout,
	}
}

// HandleTurn processes one inbound turn and returns the honeypot's reply.
//
// The received turn is always recorded in history, even when the classifier
// or generator is unavailable; accumulated intelligence is never lost to a
// failed external call.
func (e *Engine) HandleTurn(ctx context.Context, sessionID string, msg models.MessagePayload, declaredHistory []models.MessagePayload, metadata map[string]interface{}) (string, error) {
	s, created, release := e.store.Acquire(sessionID)
	defer release()

	// The store is authoritative: declared history seeds a new session only.
	if created && len(declaredHistory) > 0 {
		e.seedFromHistory(s, declaredHistory)
	}

	turn := models.Turn{
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}
	if turn.Sender == "" {
		turn.Sender = models.SenderScammer
	}
	if turn.Timestamp == 0 {
		turn.Timestamp = time.Now().UnixMilli()
	}
	s.AppendTurn(turn)

	if turn.Sender == models.SenderScammer {
		e.mergeExtraction(s, turn.Text)
	}

	e.classifyTurn(ctx, s, turn.Text)

	if s.Persona == "" {
		s.Persona = e.personas.Assign(sessionID).Name
		e.logger.Info("Persona assigned",
			zap.String("session_id", sessionID),
			zap.String("persona", s.Persona))
	}

	reply := e.generateReply(ctx, s, turn.Text)
	s.AppendTurn(models.Turn{
		Sender:    models.SenderUser,
		Text:      reply,
		Timestamp: time.Now().UnixMilli(),
	})

	e.logger.Info("Turn processed",
		zap.String("session_id", sessionID),
		zap.Int("turn_count", s.TurnCount),
		zap.Bool("scam_detected", s.ScamDetected),
		zap.Any("metadata", metadata))

	return reply, nil
}

// seedFromHistory rebuilds a fresh session from caller-supplied prior turns.
func (e *Engine) seedFromHistory(s *models.Session, history []models.MessagePayload) {
	for _, item := range history {
		sender := item.Sender
		if sender == "" {
			sender = models.SenderScammer
		}
		s.AppendTurn(models.Turn{
			Sender:    sender,
			Text:      item.Text,
			Timestamp: item.Timestamp,
		})
		if sender == models.SenderScammer {
			e.mergeExtraction(s, item.Text)
		}
	}
	e.logger.Info("Session seeded from declared history",
		zap.String("session_id", s.ID),
		zap.Int("turns", len(history)))
}

func (e *Engine) mergeExtraction(s *models.Session, text string) {
	res := extract.Scan(text)
	if res.Empty() {
		return
	}
	s.Intelligence.Merge(res.BankAccounts, res.UPIIDs, res.PhoneNumbers, res.PhishingLinks, res.SuspiciousKeywords)
	e.logger.Debug("Intelligence extracted",
		zap.String("session_id", s.ID),
		zap.Int("bank_accounts", len(res.BankAccounts)),
		zap.Int("upi_ids", len(res.UPIIDs)),
		zap.Int("phone_numbers", len(res.PhoneNumbers)),
		zap.Int("links", len(res.PhishingLinks)),
		zap.Int("keywords", len(res.SuspiciousKeywords)),
		zap.Bool("has_valuable", s.Intelligence.HasValuable()))
}

// classifyTurn records the classifier verdict. A classifier failure leaves
// the session's verdict state untouched for this turn.
func (e *Engine) classifyTurn(ctx context.Context, s *models.Session, text string) {
	classifyCtx, cancel := context.WithTimeout(ctx, e.classifyTimeout)
	defer cancel()

	verdict, err := e.classifier.Classify(classifyCtx, text, s.History)
	if err != nil {
		e.logger.Error("Classifier unavailable, verdict unchanged for this turn",
			zap.Error(err),
			zap.String("session_id", s.ID),
			zap.Bool("keyword_heuristic_flagged", len(extract.Scan(text).SuspiciousKeywords) > 0))
		return
	}

	s.RecordVerdict(verdict)
	e.logger.Info("Message classified",
		zap.String("session_id", s.ID),
		zap.Bool("is_scam", verdict.IsScam),
		zap.Int("confidence", verdict.Confidence),
		zap.String("scam_type", verdict.ScamType))
}

// generateReply asks the generator for the next message, degrading to a
// canned reply when it is unavailable.
func (e *Engine) generateReply(ctx context.Context, s *models.Session, latest string) string {
	generateCtx, cancel := context.WithTimeout(ctx, e.generateTimeout)
	defer cancel()

	profile := e.personas.Assign(s.ID)
	reply, err := e.generator.Reply(generateCtx, profile, s.History, latest)
	if err != nil || reply == "" {
		e.logger.Warn("Generator unavailable, using fallback reply",
			zap.Error(err),
			zap.String("session_id", s.ID))
		return fallbackReply(s.TurnCount)
	}
	return reply
}

// Conclude dispatches the final report for a session. The reported flag
// guards the dispatcher: once a delivery succeeds, later calls are no-ops.
func (e *Engine) Conclude(ctx context.Context, sessionID string) error {
	s, release, err := e.store.Lookup(sessionID)
	if err != nil {
		return err
	}
	defer release()

	if s.Reported {
		e.logger.Info("Session already reported, ignoring conclude",
			zap.String("session_id", sessionID))
		return nil
	}

	rpt := report.Build(s)
	if err := e.reporter.Send(ctx, rpt); err != nil {
		// Reported stays false so a later retry can still succeed.
		return err
	}

	s.Reported = true
	s.Status = models.StatusConcluded
	s.LastActivity = time.Now()

	if e.archiver != nil {
		if err := e.archiver.SaveReport(rpt); err != nil {
			e.logger.Error("Failed to archive report",
				zap.Error(err),
				zap.String("session_id", sessionID))
		}
	}

	e.logger.Info("Session concluded",
		zap.String("session_id", sessionID),
		zap.Int("total_messages", rpt.TotalMessagesExchanged),
		zap.Bool("scam_detected", rpt.ScamDetected))
	return nil
}
