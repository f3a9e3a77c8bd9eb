// Package report builds the final intelligence summary for a session and
// delivers it to the external evaluator sink.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"honeypot/internal/models"
)

// ErrSinkUnavailable marks a delivery that failed after all attempts. The
// caller may retry later; nothing has been recorded as reported.
var ErrSinkUnavailable = errors.New("reporting sink unavailable")

// Build renders the final report from session state. Pure and deterministic:
// the same session state always yields the same payload.
func Build(s *models.Session) *models.Report {
	return &models.Report{
		SessionID:              s.ID,
		ScamDetected:           s.ScamDetected,
		TotalMessagesExchanged: s.TurnCount,
		ExtractedIntelligence:  s.Intelligence.IntelligenceLists(),
		AgentNotes:             agentNotes(s),
	}
}

// agentNotes summarizes the scammer's behavior with a fixed template. No
// model call: reporting stays independent of generator availability.
func agentNotes(s *models.Session) string {
	var notes []string

	if s.ScamDetected && s.ScamType != "" {
		notes = append(notes, fmt.Sprintf("Detected scam type: %s (confidence %d%%)", s.ScamType, s.Confidence))
	}

	intel := s.Intelligence.IntelligenceLists()
	if len(intel.SuspiciousKeywords) > 0 {
		keywords := intel.SuspiciousKeywords
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		notes = append(notes, "Used urgency tactics: "+strings.Join(keywords, ", "))
	}
	if len(intel.UPIIDs) > 0 {
		notes = append(notes, "Requested UPI payment")
	}
	if len(intel.BankAccounts) > 0 {
		notes = append(notes, "Provided bank account details")
	}
	if len(intel.PhishingLinks) > 0 {
		notes = append(notes, "Shared suspicious links")
	}

	if len(notes) == 0 {
		if s.ScamDetected {
			return "Scam conversation detected"
		}
		return "No scam indicators observed"
	}
	return strings.Join(notes, ". ")
}

// Dispatcher delivers reports to the evaluator sink over HTTP with bounded
// retries and backoff.
type Dispatcher struct {
	sinkURL     string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher for the given sink endpoint.
func NewDispatcher(sinkURL string, timeout time.Duration, maxAttempts int, backoff time.Duration, logger *zap.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Dispatcher{
		sinkURL:     sinkURL,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// Send posts the report to the sink. Best-effort: retried with backoff up to
// the attempt bound, then the failure is surfaced to the caller.
func (d *Dispatcher) Send(ctx context.Context, r *models.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			d.logger.Warn("Retrying report delivery",
				zap.String("session_id", r.SessionID),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", d.maxAttempts))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrSinkUnavailable, ctx.Err())
			case <-time.After(d.backoff):
			}
		}

		lastErr = d.post(ctx, payload)
		if lastErr == nil {
			d.logger.Info("Report delivered to sink",
				zap.String("session_id", r.SessionID),
				zap.Int("total_messages", r.TotalMessagesExchanged),
				zap.Bool("scam_detected", r.ScamDetected))
			return nil
		}

		d.logger.Error("Report delivery attempt failed",
			zap.Error(lastErr),
			zap.String("session_id", r.SessionID),
			zap.Int("attempt", attempt+1))
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrSinkUnavailable, d.maxAttempts, lastErr)
}

func (d *Dispatcher) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.sinkURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sink returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
