package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"voicescreen/db"
	"voicescreen/form"
	"voicescreen/predict"
)

const sessionCookie = "voicescreen_session"

// Analytics is the pipeline surface the handlers depend on.
type Analytics interface {
	Predict(ctx context.Context, vector form.FeatureVector) (predict.Result, error)
	LogOutcome(ctx context.Context, result predict.Result) error
	RecordVisit(ctx context.Context) (db.VisitorRecord, error)
	Visitors(ctx context.Context) (db.VisitorRecord, error)
	AuditRecords(ctx context.Context) ([]db.AuditRecord, error)
	Reset(ctx context.Context) error
}

type SupportInfo struct {
	Email string
	URL   string
}

type Handlers struct {
	pipeline Analytics
	schema   form.Schema
	pages    *pageRenderer
	support  SupportInfo
	logger   *zap.Logger
}

func NewHandlers(pipeline Analytics, schema form.Schema, support SupportInfo, logger *zap.Logger) (*Handlers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pages, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	return &Handlers{
		pipeline: pipeline,
		schema:   schema,
		pages:    pages,
		support:  support,
		logger:   logger,
	}, nil
}

// RegisterHandlers mounts pages and the JSON API. limiter, when non-nil,
// throttles the two prediction endpoints.
func (h *Handlers) RegisterHandlers(mux *http.ServeMux, limiter *rate.Limiter) {
	formGuard := RateLimitMiddleware(limiter, h.handlePredictionThrottled)
	apiGuard := RateLimitMiddleware(limiter, nil)
	page := func(fn http.HandlerFunc) http.Handler { return h.countVisit(fn) }

	mux.Handle("GET /{$}", page(h.handleWelcome))
	mux.Handle("GET /welcome", page(h.handleWelcome))
	mux.Handle("GET /prediction", page(h.handlePredictionForm))
	mux.Handle("POST /prediction", formGuard(page(h.handlePredictionSubmit)))
	mux.Handle("GET /recommendations", page(h.handleStatic("Recommendations")))
	mux.Handle("GET /faqs", page(h.handleStatic("FAQs")))
	mux.Handle("GET /analytics", page(h.handleAnalytics))
	mux.Handle("POST /analytics/reset", page(h.handleAnalyticsReset))
	mux.Handle("GET /support", page(h.handleStatic("Support")))

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.Handle("POST /api/predict", apiGuard(http.HandlerFunc(h.handleAPIPredict)))
	mux.HandleFunc("GET /api/analytics", h.handleAPIAnalytics)
	mux.HandleFunc("POST /api/analytics/reset", h.handleAPIReset)
}

// countVisit counts a browser once per session, marked by a session cookie.
func (h *Handlers) countVisit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); errors.Is(err, http.ErrNoCookie) {
			if _, err := h.pipeline.RecordVisit(r.Context()); err != nil {
				h.logger.Error("record visit", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
				http.Error(w, "failed to record visit", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    "1",
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schema)
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Schema string `json:"schema"`
	predict.Result
	Verdict string `json:"verdict"`
}

func (h *Handlers) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Features) == 0 {
		jsonError(w, "features must not be empty", http.StatusBadRequest)
		return
	}
	vector, err := h.schema.CollectMap(req.Features)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.runPrediction(r.Context(), vector)
	if err != nil {
		jsonError(w, "prediction failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{
		Schema:  h.schema.Name,
		Result:  result,
		Verdict: result.Verdict(),
	})
}

type analyticsResponse struct {
	Visitors    db.VisitorRecord `json:"visitors"`
	Predictions []db.AuditRecord `json:"predictions"`
}

func (h *Handlers) handleAPIAnalytics(w http.ResponseWriter, r *http.Request) {
	visitors, records, err := h.loadAnalytics(r.Context())
	if err != nil {
		jsonError(w, "failed to load analytics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, analyticsResponse{Visitors: visitors, Predictions: records})
}

func (h *Handlers) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Reset(r.Context()); err != nil {
		h.logger.Error("reset analytics", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		jsonError(w, "reset failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// runPrediction predicts and logs the outcome; either failing fails the request.
func (h *Handlers) runPrediction(ctx context.Context, vector form.FeatureVector) (predict.Result, error) {
	result, err := h.pipeline.Predict(ctx, vector)
	if err != nil {
		h.logger.Error("predict", zap.String("request_id", GetRequestID(ctx)), zap.Error(err))
		return predict.Result{}, err
	}
	if err := h.pipeline.LogOutcome(ctx, result); err != nil {
		h.logger.Error("log outcome", zap.String("request_id", GetRequestID(ctx)), zap.Error(err))
		return predict.Result{}, err
	}
	return result, nil
}

func (h *Handlers) loadAnalytics(ctx context.Context) (db.VisitorRecord, []db.AuditRecord, error) {
	visitors, err := h.pipeline.Visitors(ctx)
	if err != nil {
		h.logger.Error("load visitors", zap.String("request_id", GetRequestID(ctx)), zap.Error(err))
		return db.VisitorRecord{}, nil, err
	}
	records, err := h.pipeline.AuditRecords(ctx)
	if err != nil {
		h.logger.Error("load audit log", zap.String("request_id", GetRequestID(ctx)), zap.Error(err))
		return db.VisitorRecord{}, nil, err
	}
	return visitors, records, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
