package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"honeypot/internal/honeypot"
	"honeypot/internal/models"
	"honeypot/internal/persona"
	"honeypot/internal/report"
	"honeypot/internal/session"
)

type stubClassifier struct{}

func (stubClassifier) Classify(_ context.Context, _ string, _ []models.Turn) (models.Verdict, error) {
	return models.Verdict{IsScam: true, Confidence: 88, ScamType: "phishing"}, nil
}

type stubGenerator struct{}

func (stubGenerator) Reply(_ context.Context, _ persona.Profile, _ []models.Turn, _ string) (string, error) {
	return "Ji, how do I pay?", nil
}

type stubReporter struct {
	sent int
	err  error
}

func (r *stubReporter) Send(_ context.Context, _ *models.Report) error {
	if r.err != nil {
		return r.err
	}
	r.sent++
	return nil
}

func newTestRouter(t *testing.T, apiKey string, reporter *stubReporter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	engine := honeypot.NewEngine(session.NewStore(logger), persona.NewRegistry(),
		stubClassifier{}, stubGenerator{}, reporter, nil, logger, time.Second, time.Second)

	router := gin.New()
	NewHandler(engine, logger).RegisterRoutes(router, apiKey)
	return router
}

func analyzeBody(t *testing.T, sessionID, text string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(models.AnalyzeRequest{
		SessionID: sessionID,
		Message:   models.MessagePayload{Sender: models.SenderScammer, Text: text, Timestamp: 1700000000000},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func doRequest(router *gin.Engine, method, path string, body *bytes.Buffer, apiKey string) *httptest.ResponseRecorder {
	if body == nil {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeSuccess(t *testing.T) {
	router := newTestRouter(t, "test-key", &stubReporter{})

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", analyzeBody(t, "s1", "verify your account"), "test-key")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "Ji, how do I pay?", resp["reply"])
}

func TestAnalyzeUnversionedAlias(t *testing.T) {
	router := newTestRouter(t, "test-key", &stubReporter{})

	w := doRequest(router, http.MethodPost, "/analyze", analyzeBody(t, "s1", "hello"), "test-key")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeRejectsMissingAPIKey(t *testing.T) {
	router := newTestRouter(t, "test-key", &stubReporter{})

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", analyzeBody(t, "s1", "hello"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyzeAcceptsBearerToken(t *testing.T) {
	router := newTestRouter(t, "test-key", &stubReporter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, "s1", "hello"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeValidation(t *testing.T) {
	router := newTestRouter(t, "", &stubReporter{})

	cases := []string{
		`{}`,
		`{"sessionId": "s1"}`,
		`{"sessionId": "s1", "message": {"sender": "scammer"}}`,
		`not json`,
	}
	for _, body := range cases {
		w := doRequest(router, http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(body), "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp["status"])
	}
}

func TestConcludeFlow(t *testing.T) {
	reporter := &stubReporter{}
	router := newTestRouter(t, "", reporter)

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", analyzeBody(t, "s1", "pay scammer@upi"), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/sessions/s1/conclude", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, reporter.sent)

	// Second conclude is a no-op success.
	w = doRequest(router, http.MethodPost, "/api/v1/sessions/s1/conclude", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, reporter.sent)
}

func TestConcludeUnknownSession(t *testing.T) {
	router := newTestRouter(t, "", &stubReporter{})

	w := doRequest(router, http.MethodPost, "/api/v1/sessions/nope/conclude", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConcludeSinkFailure(t *testing.T) {
	reporter := &stubReporter{err: fmt.Errorf("%w after 3 attempts", report.ErrSinkUnavailable)}
	router := newTestRouter(t, "", reporter)

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", analyzeBody(t, "s1", "hello"), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/sessions/s1/conclude", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndInfoAreOpen(t *testing.T) {
	router := newTestRouter(t, "test-key", &stubReporter{})

	w := doRequest(router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
