package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"voicescreen/db"
	"voicescreen/form"
	"voicescreen/predict"
)

//go:embed templates/*.html
var templateFS embed.FS

type menuItem struct {
	Name string
	Path string
}

var menu = []menuItem{
	{Name: "Welcome", Path: "/welcome"},
	{Name: "Prediction", Path: "/prediction"},
	{Name: "Recommendations", Path: "/recommendations"},
	{Name: "FAQs", Path: "/faqs"},
	{Name: "Analytics", Path: "/analytics"},
	{Name: "Support", Path: "/support"},
}

var pageFiles = map[string]string{
	"Welcome":         "welcome.html",
	"Prediction":      "prediction.html",
	"Recommendations": "recommendations.html",
	"FAQs":            "faqs.html",
	"Analytics":       "analytics.html",
	"Support":         "support.html",
}

type pageData struct {
	Title        string
	Active       string
	Menu         []menuItem
	VisitorCount string

	Schema form.Schema
	Values map[string]float64
	Result *predict.Result
	Error  string

	Visitors db.VisitorRecord
	Records  []db.AuditRecord
	Notice   string

	Support SupportInfo
}

type pageRenderer struct {
	templates map[string]*template.Template
	printer   *message.Printer
}

func newPageRenderer() (*pageRenderer, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"fieldValue": func(values map[string]float64, name string, def float64) string {
			if v, ok := values[name]; ok {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
			return strconv.FormatFloat(def, 'f', -1, 64)
		},
	}

	templates := make(map[string]*template.Template, len(pageFiles))
	for name, file := range pageFiles {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &pageRenderer{
		templates: templates,
		printer:   message.NewPrinter(language.English),
	}, nil
}

func (p *pageRenderer) count(n int) string {
	return p.printer.Sprintf("%d", n)
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := h.pages.templates[page]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	data.Title = page
	data.Active = page
	data.Menu = menu
	data.Support = h.support

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		h.logger.Error("render page", zap.String("page", page), zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *Handlers) handleWelcome(w http.ResponseWriter, r *http.Request) {
	visitors, err := h.pipeline.Visitors(r.Context())
	if err != nil {
		h.logger.Error("load visitors", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		http.Error(w, "failed to load visitor count", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "Welcome", pageData{VisitorCount: h.pages.count(visitors.Count)})
}

func (h *Handlers) handleStatic(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, page, pageData{})
	}
}

func (h *Handlers) handlePredictionForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "Prediction", pageData{Schema: h.schema})
}

func (h *Handlers) handlePredictionSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "Prediction", pageData{Schema: h.schema, Error: "Could not read the submitted form."})
		return
	}

	vector, err := h.schema.Collect(r.PostForm)
	if err != nil {
		msg := "Could not read the submitted values."
		if errors.Is(err, form.ErrInvalidValue) {
			msg = err.Error()
		}
		h.render(w, r, http.StatusBadRequest, "Prediction", pageData{Schema: h.schema, Error: msg})
		return
	}

	result, err := h.runPrediction(r.Context(), vector)
	if err != nil {
		http.Error(w, "prediction failed", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "Prediction", pageData{
		Schema: h.schema,
		Values: vector.Map(),
		Result: &result,
	})
}

func (h *Handlers) handlePredictionThrottled(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusTooManyRequests, "Prediction", pageData{
		Schema: h.schema,
		Error:  "Too many predictions right now. Please wait a moment and submit again.",
	})
}

func (h *Handlers) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	h.renderAnalytics(w, r, "")
}

func (h *Handlers) handleAnalyticsReset(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Reset(r.Context()); err != nil {
		h.logger.Error("reset analytics", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	h.renderAnalytics(w, r, "Visitor counter has been reset.")
}

func (h *Handlers) renderAnalytics(w http.ResponseWriter, r *http.Request, notice string) {
	visitors, records, err := h.loadAnalytics(r.Context())
	if err != nil {
		http.Error(w, "failed to load analytics", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "Analytics", pageData{
		VisitorCount: h.pages.count(visitors.Count),
		Visitors:     visitors,
		Records:      records,
		Notice:       notice,
	})
}
