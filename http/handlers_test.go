package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"voicescreen/db"
	"voicescreen/form"
	"voicescreen/ml"
	"voicescreen/predict"
)

type testEnv struct {
	handler  http.Handler
	pipeline *predict.Pipeline
}

func newTestEnv(t *testing.T, config ServerConfig) *testEnv {
	t.Helper()
	dir := t.TempDir()

	audit, err := db.NewCSVAuditLog(filepath.Join(dir, "prediction_log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	visitors, err := db.NewVisitorStore(filepath.Join(dir, "visitor_data.gob"))
	if err != nil {
		t.Fatal(err)
	}
	pipeline, err := predict.NewPipeline(ml.NewHolder(&ml.ThresholdModel{FeatureIdx: 0, Threshold: 150}), audit, visitors, predict.Options{})
	if err != nil {
		t.Fatal(err)
	}
	schema, err := form.Lookup(form.Voice9)
	if err != nil {
		t.Fatal(err)
	}
	handlers, err := NewHandlers(pipeline, schema, SupportInfo{Email: "help@example.org"}, nil)
	if err != nil {
		t.Fatalf("new handlers: %v", err)
	}
	return &testEnv{
		handler:  NewHandler(config, handlers, nil, nil),
		pipeline: pipeline,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	expected := `{"status":"ok"}`
	if strings.TrimSpace(rr.Body.String()) != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestPagesRender(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	pages := map[string]string{
		"/":                "Parkinson's Disease Screening App",
		"/welcome":         "Total Visitors",
		"/prediction":      "Parkinson's Disease Prediction",
		"/recommendations": "Recommendations",
		"/faqs":            "Frequently Asked Questions",
		"/analytics":       "Visitor Analytics",
		"/support":         "help@example.org",
	}
	for path, want := range pages {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rr.Code)
			continue
		}
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("%s: body missing %q", path, want)
		}
	}
}

func TestVisitCountedOncePerSession(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rr := env.do(httptest.NewRequest(http.MethodGet, "/welcome", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookie {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	if !strings.Contains(rr.Body.String(), "Total Visitors:</strong> 1") {
		t.Fatalf("first visit not shown: %s", rr.Body.String())
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
		req.AddCookie(cookies[0])
		env.do(req)
	}

	rec, err := env.pipeline.Visitors(context.Background())
	if err != nil {
		t.Fatalf("visitors: %v", err)
	}
	if rec.Count != 1 {
		t.Fatalf("expected 1 visit for one session, got %d", rec.Count)
	}

	env.do(httptest.NewRequest(http.MethodGet, "/faqs", nil))
	rec, _ = env.pipeline.Visitors(context.Background())
	if rec.Count != 2 {
		t.Fatalf("expected a new session to count, got %d", rec.Count)
	}
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/prediction", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPredictionFormSubmit(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rr := env.do(postForm(url.Values{"fo": {"160"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "The person is likely to have Parkinson&#39;s Disease.") {
		t.Fatalf("positive verdict missing: %s", rr.Body.String())
	}

	rr = env.do(postForm(url.Values{"fo": {"100"}}))
	if !strings.Contains(rr.Body.String(), "unlikely") {
		t.Fatalf("negative verdict missing: %s", rr.Body.String())
	}

	records, err := env.pipeline.AuditRecords(context.Background())
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 || records[0].Result != "Positive" || records[1].Result != "Negative" {
		t.Fatalf("unexpected audit records: %+v", records)
	}
}

func TestPredictionFormRejectsOutOfRange(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rr := env.do(postForm(url.Values{"rpde": {"3"}}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "rpde") {
		t.Fatalf("error should name the field: %s", rr.Body.String())
	}
	records, _ := env.pipeline.AuditRecords(context.Background())
	if len(records) != 0 {
		t.Fatalf("rejected input must not be logged, got %d records", len(records))
	}
}

func TestAPIPredictAndAnalytics(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	body := `{"features":{"fo":160,"jitter":0.003,"rpde":0.4}}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["label"] != "Positive" || payload["schema"] != "voice9" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["confidence"]; ok {
		t.Fatalf("threshold model must not report confidence: %v", payload)
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/analytics", nil))
	var analytics analyticsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &analytics); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(analytics.Predictions) != 1 {
		t.Fatalf("expected one logged prediction, got %d", len(analytics.Predictions))
	}

	rr = env.do(httptest.NewRequest(http.MethodPost, "/api/analytics/reset", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reset: %d", rr.Code)
	}
	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/analytics", nil))
	analytics = analyticsResponse{}
	json.Unmarshal(rr.Body.Bytes(), &analytics)
	if analytics.Visitors.Count != 0 || len(analytics.Predictions) != 0 {
		t.Fatalf("expected empty analytics after reset, got %+v", analytics)
	}
}

func TestAPIPredictBadInput(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	for _, body := range []string{
		`not json`,
		`{"features":{"dfa":5}}`,
		`{"features":{"Fo":160,"fo_hz":160}}`,
		`{}`,
		`{"features":{}}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
		if rr := env.do(req); rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rr.Code)
		}
	}
	records, _ := env.pipeline.AuditRecords(context.Background())
	if len(records) != 0 {
		t.Fatalf("rejected requests must not be logged, got %d records", len(records))
	}
}

func TestAnalyticsPageReset(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	env.do(postForm(url.Values{"fo": {"160"}}))

	rr := env.do(httptest.NewRequest(http.MethodPost, "/analytics/reset", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Visitor counter has been reset.") {
		t.Fatalf("missing reset notice: %s", rr.Body.String())
	}
	records, _ := env.pipeline.AuditRecords(context.Background())
	if len(records) != 0 {
		t.Fatalf("expected empty log after reset, got %d", len(records))
	}
}

func TestPredictRateLimit(t *testing.T) {
	env := newTestEnv(t, ServerConfig{PredictRate: 0.001, PredictBurst: 1})

	if rr := env.do(postForm(url.Values{"fo": {"160"}})); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}

	rr := env.do(postForm(url.Values{"fo": {"160"}}))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("form request: expected 429, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("throttled form should render a page, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Too many predictions") || !strings.Contains(rr.Body.String(), `name="fo"`) {
		t.Fatalf("throttled form should show the form with an error: %s", rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"features":{"fo":160}}`))
	rr = env.do(req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("api request: expected 429, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("throttled api should answer JSON, got %q", ct)
	}

	if rr := env.do(httptest.NewRequest(http.MethodGet, "/prediction", nil)); rr.Code != http.StatusOK {
		t.Fatalf("form page must not be throttled, got %d", rr.Code)
	}
}

func TestAnalyticsPageListsRows(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rr := env.do(httptest.NewRequest(http.MethodGet, "/analytics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `id="prediction-section" style="display:none"`) {
		t.Fatalf("empty prediction log should start hidden: %s", body)
	}

	env.do(postForm(url.Values{"fo": {"160"}}))
	rr = env.do(httptest.NewRequest(http.MethodGet, "/analytics", nil))
	body = rr.Body.String()
	for _, want := range []string{
		`id="visitor-section" style="display:block"`,
		`id="prediction-section" style="display:block"`,
		`<td>Positive</td>`,
		`id="prediction-rows"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("analytics page missing %q", want)
		}
	}
}
