package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeSummary MetricType = "summary"
)

// Metric names recorded by the service.
const (
	MetricPredictions   = "voicescreen_predictions_total"
	MetricCacheHits     = "voicescreen_prediction_cache_hits_total"
	MetricPredictTime   = "voicescreen_predict_duration_seconds"
	MetricVisits        = "voicescreen_visits_total"
	MetricResets        = "voicescreen_resets_total"
	MetricHTTPRequests  = "voicescreen_http_requests_total"
	MetricHTTPDurations = "voicescreen_http_request_duration_seconds"
)

var metricHelp = map[string]string{
	MetricPredictions:   "Predictions served, by label.",
	MetricCacheHits:     "Predictions answered from the result cache.",
	MetricPredictTime:   "Model inference time.",
	MetricVisits:        "Visitor sessions counted.",
	MetricResets:        "Analytics resets.",
	MetricHTTPRequests:  "HTTP requests, by method and status.",
	MetricHTTPDurations: "HTTP request latency.",
}

type series struct {
	labels map[string]string
	value  float64
	count  uint64
}

type family struct {
	kind   MetricType
	series map[string]*series
}

// Metrics is an in-memory collector for counters and latency summaries,
// exported in the Prometheus text format.
type Metrics struct {
	mu        sync.RWMutex
	families  map[string]*family
	startTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		families:  make(map[string]*family),
		startTime: time.Now(),
	}
}

func (m *Metrics) IncrCounter(name string, labels map[string]string) {
	m.add(name, MetricTypeCounter, labels, 1)
}

// Observe adds one sample to the summary name.
func (m *Metrics) Observe(name string, value float64, labels map[string]string) {
	m.add(name, MetricTypeSummary, labels, value)
}

func (m *Metrics) add(name string, kind MetricType, labels map[string]string, value float64) {
	if m == nil {
		return
	}
	key := labelString(labels)

	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.families[name]
	if !ok {
		f = &family{kind: kind, series: make(map[string]*series)}
		m.families[name] = f
	}
	s, ok := f.series[key]
	if !ok {
		s = &series{labels: labels}
		f.series[key] = s
	}
	s.value += value
	s.count++
}

// Counter returns the current value of a counter series, or 0.
func (m *Metrics) Counter(name string, labels map[string]string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.families[name]
	if !ok {
		return 0
	}
	if s, ok := f.series[labelString(labels)]; ok {
		return s.value
	}
	return 0
}

func (m *Metrics) ExportPrometheus() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.families))
	for name := range m.families {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		f := m.families[name]
		help := metricHelp[name]
		if help == "" {
			help = fmt.Sprintf("Metric %s", name)
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, f.kind)

		keys := make([]string, 0, len(f.series))
		for k := range f.series {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s := f.series[k]
			switch f.kind {
			case MetricTypeSummary:
				fmt.Fprintf(&b, "%s_sum%s %g\n", name, k, s.value)
				fmt.Fprintf(&b, "%s_count%s %d\n", name, k, s.count)
			default:
				fmt.Fprintf(&b, "%s%s %g\n", name, k, s.value)
			}
		}
	}

	fmt.Fprintf(&b, "# HELP voicescreen_uptime_seconds Process uptime.\n# TYPE voicescreen_uptime_seconds gauge\nvoicescreen_uptime_seconds %g\n", m.GetUptime().Seconds())
	fmt.Fprintf(&b, "# HELP go_goroutines Number of goroutines.\n# TYPE go_goroutines gauge\ngo_goroutines %d\n", runtime.NumGoroutine())
	return b.String()
}

func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.startTime)
}

func (m *Metrics) GetSystemStats() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"uptime":     m.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"alloc":      mem.Alloc,
			"sys":        mem.Sys,
			"heap_inuse": mem.HeapInuse,
			"gc_count":   mem.NumGC,
		},
	}
}

func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
