package honeypot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"honeypot/internal/models"
	"honeypot/internal/persona"
	"honeypot/internal/session"
)

type mockClassifier struct {
	verdict models.Verdict
	err     error
	calls   int
}

func (m *mockClassifier) Classify(_ context.Context, _ string, _ []models.Turn) (models.Verdict, error) {
	m.calls++
	if m.err != nil {
		return models.Verdict{}, m.err
	}
	return m.verdict, nil
}

type mockGenerator struct {
	reply string
	err   error
}

func (m *mockGenerator) Reply(_ context.Context, _ persona.Profile, _ []models.Turn, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockReporter struct {
	sent []*models.Report
	err  error
}

func (m *mockReporter) Send(_ context.Context, r *models.Report) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, r)
	return nil
}

type testRig struct {
	engine     *Engine
	store      *session.Store
	classifier *mockClassifier
	generator  *mockGenerator
	reporter   *mockReporter
}

func newTestRig() *testRig {
	store := session.NewStore(zap.NewNop())
	classifier := &mockClassifier{verdict: models.Verdict{IsScam: true, Confidence: 90, ScamType: "upi fraud"}}
	generator := &mockGenerator{reply: "Haan ji, which account should I use?"}
	reporter := &mockReporter{}

	engine := NewEngine(store, persona.NewRegistry(), classifier, generator, reporter, nil,
		zap.NewNop(), time.Second, time.Second)

	return &testRig{
		engine:     engine,
		store:      store,
		classifier: classifier,
		generator:  generator,
		reporter:   reporter,
	}
}

func (r *testRig) sessionState(t *testing.T, id string) *models.Session {
	t.Helper()
	s, release, err := r.store.Lookup(id)
	require.NoError(t, err)
	release()
	return s
}

func scamMsg(text string) models.MessagePayload {
	return models.MessagePayload{Sender: models.SenderScammer, Text: text, Timestamp: 1700000000000}
}

func TestHandleTurnHappyPath(t *testing.T) {
	rig := newTestRig()

	reply, err := rig.engine.HandleTurn(context.Background(), "s1",
		scamMsg("Share your UPI ID: scammer@upi to avoid suspension."), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Haan ji, which account should I use?", reply)

	s := rig.sessionState(t, "s1")
	assert.Len(t, s.History, 2) // scammer turn + honeypot reply
	assert.Equal(t, 2, s.TurnCount)
	assert.True(t, s.ScamDetected)
	assert.Equal(t, "upi fraud", s.ScamType)
	assert.NotEmpty(t, s.Persona)
	assert.Contains(t, s.Intelligence.UPIIDs, "scammer@upi")
}

func TestHandleTurnDefaultsSenderToScammer(t *testing.T) {
	rig := newTestRig()

	_, err := rig.engine.HandleTurn(context.Background(), "s1",
		models.MessagePayload{Text: "pay to merchant@ybl"}, nil, nil)
	require.NoError(t, err)

	s := rig.sessionState(t, "s1")
	assert.Equal(t, models.SenderScammer, s.History[0].Sender)
	assert.NotZero(t, s.History[0].Timestamp)
	assert.Contains(t, s.Intelligence.UPIIDs, "merchant@ybl")
}

func TestDeclaredHistorySeedsOnlyNewSessions(t *testing.T) {
	rig := newTestRig()
	declared := []models.MessagePayload{
		{Sender: models.SenderScammer, Text: "You won a lottery! Call 9876543210", Timestamp: 1},
		{Sender: models.SenderUser, Text: "Really ji?", Timestamp: 2},
	}

	_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("Pay the fee now"), declared, nil)
	require.NoError(t, err)

	s := rig.sessionState(t, "s1")
	assert.Len(t, s.History, 4) // 2 seeded + incoming + reply
	assert.Contains(t, s.Intelligence.PhoneNumbers, "9876543210")

	// A known session ignores whatever history the caller declares.
	_, err = rig.engine.HandleTurn(context.Background(), "s1", scamMsg("Hurry up"),
		[]models.MessagePayload{{Sender: models.SenderScammer, Text: "bogus", Timestamp: 3}}, nil)
	require.NoError(t, err)

	s = rig.sessionState(t, "s1")
	assert.Len(t, s.History, 6)
	for _, turn := range s.History {
		assert.NotEqual(t, "bogus", turn.Text)
	}
}

func TestClassifierFailureKeepsHistoryAndVerdict(t *testing.T) {
	rig := newTestRig()
	rig.classifier.err = errors.New("timeout")

	reply, err := rig.engine.HandleTurn(context.Background(), "s1",
		scamMsg("URGENT: account blocked, send OTP"), nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	s := rig.sessionState(t, "s1")
	assert.Len(t, s.History, 2, "received turn is audit evidence and must be recorded")
	assert.False(t, s.Classified)
	assert.False(t, s.ScamDetected)
	assert.Contains(t, s.Intelligence.SuspiciousKeywords, "urgent")
}

func TestScamDetectedIsSticky(t *testing.T) {
	rig := newTestRig()

	_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("send money to lottery@paytm"), nil, nil)
	require.NoError(t, err)
	require.True(t, rig.sessionState(t, "s1").ScamDetected)

	rig.classifier.verdict = models.Verdict{IsScam: false, Confidence: 20, ScamType: "none"}
	_, err = rig.engine.HandleTurn(context.Background(), "s1", scamMsg("ok just checking in"), nil, nil)
	require.NoError(t, err)

	s := rig.sessionState(t, "s1")
	assert.True(t, s.ScamDetected, "scamDetected never reverts to false")
	assert.Equal(t, "upi fraud", s.ScamType)
}

func TestPersonaSticksAcrossTurns(t *testing.T) {
	rig := newTestRig()

	_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("hello"), nil, nil)
	require.NoError(t, err)
	first := rig.sessionState(t, "s1").Persona

	for i := 0; i < 5; i++ {
		_, err = rig.engine.HandleTurn(context.Background(), "s1", scamMsg("more"), nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, first, rig.sessionState(t, "s1").Persona)
}

func TestGeneratorFailureDegradesToFallback(t *testing.T) {
	rig := newTestRig()
	rig.generator.err = errors.New("model overloaded")

	reply, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("share your details"), nil, nil)
	require.NoError(t, err)
	assert.Contains(t, fallbackReplies, reply)

	s := rig.sessionState(t, "s1")
	assert.Len(t, s.History, 2, "degraded reply is still recorded")
	assert.Equal(t, reply, s.History[1].Text)
}

func TestIntelligenceAccumulatesAcrossTurns(t *testing.T) {
	rig := newTestRig()

	_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("Call me at +919876543210"), nil, nil)
	require.NoError(t, err)
	_, err = rig.engine.HandleTurn(context.Background(), "s1", scamMsg("Or visit http://malicious-link.example"), nil, nil)
	require.NoError(t, err)

	s := rig.sessionState(t, "s1")
	assert.Contains(t, s.Intelligence.PhoneNumbers, "+919876543210")
	assert.Contains(t, s.Intelligence.PhishingLinks, "http://malicious-link.example")
}

func TestRepeatedExtractionIsIdempotent(t *testing.T) {
	rig := newTestRig()

	for i := 0; i < 3; i++ {
		_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("pay scammer@upi now, urgent"), nil, nil)
		require.NoError(t, err)
	}

	s := rig.sessionState(t, "s1")
	assert.Len(t, s.Intelligence.UPIIDs, 1)
	assert.Contains(t, s.Intelligence.UPIIDs, "scammer@upi")
}

func TestHoneypotRepliesAreNotScanned(t *testing.T) {
	rig := newTestRig()
	rig.generator.reply = "My own UPI is victim@paytm, is that ok?"

	_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("send me your UPI"), nil, nil)
	require.NoError(t, err)

	s := rig.sessionState(t, "s1")
	assert.NotContains(t, s.Intelligence.UPIIDs, "victim@paytm")
}

func TestConcludeUnknownSession(t *testing.T) {
	rig := newTestRig()

	err := rig.engine.Conclude(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConcludeReportsAtMostOnce(t *testing.T) {
	rig := newTestRig()

	_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("pay to lottery@paytm"), nil, nil)
	require.NoError(t, err)

	require.NoError(t, rig.engine.Conclude(context.Background(), "s1"))
	require.NoError(t, rig.engine.Conclude(context.Background(), "s1"))

	require.Len(t, rig.reporter.sent, 1)
	rpt := rig.reporter.sent[0]
	assert.Equal(t, "s1", rpt.SessionID)
	assert.True(t, rpt.ScamDetected)
	assert.Equal(t, 2, rpt.TotalMessagesExchanged)
	assert.Equal(t, []string{"lottery@paytm"}, rpt.ExtractedIntelligence.UPIIDs)

	s := rig.sessionState(t, "s1")
	assert.True(t, s.Reported)
	assert.Equal(t, models.StatusConcluded, s.Status)
}

func TestConcludeSinkFailureAllowsRetry(t *testing.T) {
	rig := newTestRig()

	_, err := rig.engine.HandleTurn(context.Background(), "s1", scamMsg("hello"), nil, nil)
	require.NoError(t, err)

	rig.reporter.err = errors.New("sink down")
	require.Error(t, rig.engine.Conclude(context.Background(), "s1"))

	s := rig.sessionState(t, "s1")
	assert.False(t, s.Reported)
	assert.Equal(t, models.StatusActive, s.Status)

	rig.reporter.err = nil
	require.NoError(t, rig.engine.Conclude(context.Background(), "s1"))
	assert.Len(t, rig.reporter.sent, 1)
}
