// Package predict runs a collected feature vector through the served model
// and records usage statistics.
package predict

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"voicescreen/db"
	"voicescreen/form"
	"voicescreen/ml"
	"voicescreen/monitoring"
)

// ModelSource hands out the currently served model and its version.
type ModelSource interface {
	Current() (ml.Classifier, uint64)
}

// Publisher receives analytics events.
type Publisher interface {
	Publish(eventType monitoring.EventType, data interface{}) error
}

type VisitorCounter interface {
	Load(ctx context.Context) (db.VisitorRecord, error)
	RecordVisit(ctx context.Context, at time.Time) (db.VisitorRecord, error)
	Reset(ctx context.Context) error
}

type Options struct {
	// CacheSize is the number of recent results kept per model version.
	// Zero disables caching.
	CacheSize int
	Publisher Publisher
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// VisitEvent is published for each counted visit.
type VisitEvent struct {
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
}

type Pipeline struct {
	models   ModelSource
	audit    db.AuditLog
	visitors VisitorCounter
	cache    *lru.Cache[string, Result]
	events   Publisher
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewPipeline(models ModelSource, audit db.AuditLog, visitors VisitorCounter, opts Options) (*Pipeline, error) {
	p := &Pipeline{
		models:   models,
		audit:    audit,
		visitors: visitors,
		events:   opts.Publisher,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Predict passes the vector to the model as-is. The vector's length and order
// are not checked against the model.
func (p *Pipeline) Predict(ctx context.Context, vector form.FeatureVector) (Result, error) {
	model, version := p.models.Current()
	values := vector.Values()

	key := cacheKey(version, values)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			p.metrics.IncrCounter(monitoring.MetricCacheHits, nil)
			p.countPrediction(cached)
			return cached, nil
		}
	}

	start := time.Now()
	class, err := model.Predict(values)
	if err != nil {
		return Result{}, fmt.Errorf("model predict: %w", err)
	}
	result := Result{Label: labelFor(class)}

	if estimator, ok := model.(ml.ProbabilityEstimator); ok {
		proba, err := estimator.PredictProba(values)
		if err != nil {
			return Result{}, fmt.Errorf("model predict_proba: %w", err)
		}
		if len(proba) > 1 {
			confidence := clampPercent(proba[1] * 100)
			result.Confidence = &confidence
		}
	}

	p.metrics.Observe(monitoring.MetricPredictTime, time.Since(start).Seconds(), nil)
	p.countPrediction(result)

	if p.cache != nil {
		p.cache.Add(key, result)
	}
	p.logger.Debug("prediction",
		zap.String("label", string(result.Label)),
		zap.Uint64("model_version", version),
		zap.Int("features", len(values)),
	)
	return result, nil
}

// LogOutcome appends one audit record for result.
func (p *Pipeline) LogOutcome(ctx context.Context, result Result) error {
	if p.audit == nil {
		return nil
	}
	rec := db.NewAuditRecord(p.now(), string(result.Label))
	if err := p.audit.Append(ctx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	p.publish(monitoring.EventPrediction, rec)
	return nil
}

func (p *Pipeline) RecordVisit(ctx context.Context) (db.VisitorRecord, error) {
	if p.visitors == nil {
		return db.VisitorRecord{Timestamps: []string{}}, nil
	}
	rec, err := p.visitors.RecordVisit(ctx, p.now())
	if err != nil {
		return db.VisitorRecord{}, fmt.Errorf("record visit: %w", err)
	}
	p.metrics.IncrCounter(monitoring.MetricVisits, nil)
	event := VisitEvent{Count: rec.Count}
	if n := len(rec.Timestamps); n > 0 {
		event.Timestamp = rec.Timestamps[n-1]
	}
	p.publish(monitoring.EventVisit, event)
	return rec, nil
}

func (p *Pipeline) Visitors(ctx context.Context) (db.VisitorRecord, error) {
	if p.visitors == nil {
		return db.VisitorRecord{Timestamps: []string{}}, nil
	}
	return p.visitors.Load(ctx)
}

func (p *Pipeline) AuditRecords(ctx context.Context) ([]db.AuditRecord, error) {
	if p.audit == nil {
		return []db.AuditRecord{}, nil
	}
	return p.audit.Records(ctx)
}

// Reset empties the visitor counter and the audit log. There is no undo.
func (p *Pipeline) Reset(ctx context.Context) error {
	if p.visitors != nil {
		if err := p.visitors.Reset(ctx); err != nil {
			return fmt.Errorf("reset visitors: %w", err)
		}
	}
	if p.audit != nil {
		if err := p.audit.Reset(ctx); err != nil {
			return fmt.Errorf("reset audit log: %w", err)
		}
	}
	p.metrics.IncrCounter(monitoring.MetricResets, nil)
	p.logger.Info("analytics reset")
	p.publish(monitoring.EventReset, nil)
	return nil
}

func (p *Pipeline) publish(eventType monitoring.EventType, data interface{}) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(eventType, data); err != nil {
		p.logger.Warn("publish analytics event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func (p *Pipeline) countPrediction(result Result) {
	p.metrics.IncrCounter(monitoring.MetricPredictions, map[string]string{"label": string(result.Label)})
}

func cacheKey(version uint64, values []float64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(version, 10))
	for _, v := range values {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
