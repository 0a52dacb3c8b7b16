package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"tally_insights/pkg/core/graph"
	"tally_insights/pkg/core/intent"
	"tally_insights/pkg/core/pipeline"
	"tally_insights/pkg/core/store"
	"tally_insights/pkg/core/summary"
	"tally_insights/pkg/core/tally"
	"tally_insights/pkg/models"
)

// historyLimit bounds the conversation turns fed back into classification.
const historyLimit = 3

// Handler provides the chat endpoint: classify the question, run the right
// pipeline, and shape the reply. It owns the active company and conversation
// history; the core packages receive them as read-only inputs.
type Handler struct {
	Classifier *intent.Classifier
	Pipeline   *pipeline.Pipeline
	Summarizer *summary.Summarizer
	AuditLog   *store.QueryLogRepo
	Tally      *tally.Client

	mu            sync.Mutex
	activeCompany string
	history       []string
}

// NewHandler creates a chat handler with an optional preselected company.
func NewHandler(classifier *intent.Classifier, p *pipeline.Pipeline, s *summary.Summarizer, audit *store.QueryLogRepo, client *tally.Client, defaultCompany string) *Handler {
	return &Handler{
		Classifier:    classifier,
		Pipeline:      p,
		Summarizer:    s,
		AuditLog:      audit,
		Tally:         client,
		activeCompany: defaultCompany,
	}
}

// ChatRequest is the inbound question.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the shaped reply. OutputType is one of text, markdown,
// graph; VegaSpec is set only for graph replies.
type ChatResponse struct {
	OutputType string                 `json:"output_type"`
	Summary    string                 `json:"summary"`
	VegaSpec   map[string]interface{} `json:"vega_spec,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	h.mu.Lock()
	company := h.activeCompany
	history := append([]string(nil), h.history...)
	h.mu.Unlock()

	result := h.Classifier.Classify(ctx, req.Query, history)
	resp := h.dispatch(ctx, req.Query, company, result)

	if h.AuditLog != nil {
		resp.RequestID = h.AuditLog.Record(ctx, company, req.Query, result, resp.OutputType)
	}

	h.mu.Lock()
	h.history = append(h.history, req.Query)
	if len(h.history) > historyLimit {
		h.history = h.history[len(h.history)-historyLimit:]
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// dispatch routes one classified question to its pipeline.
func (h *Handler) dispatch(ctx context.Context, query, company string, result models.IntentResult) ChatResponse {
	log.Printf("[Chat] intent=%s confidence=%.2f company=%q", result.Intent, result.Confidence, company)

	switch result.Intent {
	case models.IntentCompanySelection:
		return h.selectCompany(query)
	case models.IntentGraph:
		return h.answerGraph(ctx, query, company)
	case models.IntentTable:
		return h.answerTable(ctx, query, company)
	case models.IntentValue:
		return h.answerValue(ctx, query, company)
	default:
		return h.answerSummary(ctx, query, company)
	}
}

func (h *Handler) selectCompany(query string) ChatResponse {
	name := intent.ExtractCompany(query)
	if name == "" {
		return textResponse("Please tell me which company to use, e.g. \"use Dakshin Traders\".")
	}

	h.mu.Lock()
	h.activeCompany = name
	h.mu.Unlock()

	return textResponse(fmt.Sprintf("Active company set to **%s**.", name))
}

func (h *Handler) answerGraph(ctx context.Context, query, company string) ChatResponse {
	res, err := h.Pipeline.RunGraph(ctx, query, company, nil)
	if err != nil {
		return pipelineErrorResponse(err)
	}

	summaryText := h.Summarizer.Summarize(ctx, res.Command.ReportName, res.Table.Rows, query, "graph")

	return ChatResponse{
		OutputType: "graph",
		Summary:    summaryText,
		VegaSpec:   res.Spec.Spec,
	}
}

func (h *Handler) answerTable(ctx context.Context, query, company string) ChatResponse {
	res, err := h.Pipeline.RunTable(ctx, query, company, nil)
	if err != nil {
		return pipelineErrorResponse(err)
	}

	summaryText := h.Summarizer.Summarize(ctx, res.ReportUsed, res.Rows, query, "table")

	body := fmt.Sprintf("### Table View\n\n**Company:** %s\n\n**Report:** %s\n\n**Summary:**\n\n%s\n\n---\n\n%s",
		company, res.ReportUsed, summaryText, TableToMarkdown(res.Columns, res.Rows))

	return ChatResponse{OutputType: "markdown", Summary: body}
}

func (h *Handler) answerValue(ctx context.Context, query, company string) ChatResponse {
	res, err := h.Pipeline.RunTable(ctx, query, company, nil)
	if err != nil {
		return pipelineErrorResponse(err)
	}
	if len(res.Rows) == 0 {
		return textResponse("No data found for that question.")
	}

	if row, ok := superlativeRow(res.Rows, query, res.ReportUsed); ok {
		return textResponse(describeRow(row))
	}
	if row, ok := pipeline.ResolveValueQuery(res.Rows, query); ok {
		return textResponse(describeRow(row))
	}

	// No single row matched; a short breakdown is more useful than a guess.
	return textResponse(h.Summarizer.Summarize(ctx, res.ReportUsed, res.Rows, query, "table"))
}

func (h *Handler) answerSummary(ctx context.Context, query, company string) ChatResponse {
	res, err := h.Pipeline.RunTable(ctx, query, company, nil)
	if err != nil {
		return pipelineErrorResponse(err)
	}
	return textResponse(h.Summarizer.Summarize(ctx, res.ReportUsed, res.Rows, query, "table"))
}

// superlativeRow answers rank-one questions: the extreme row by rate for
// costliest-stock questions, by value otherwise.
func superlativeRow(rows []models.NormalizedRow, query, reportName string) (models.NormalizedRow, bool) {
	q := strings.ToLower(query)

	wantMax := strings.Contains(q, "costliest") || strings.Contains(q, "highest") ||
		strings.Contains(q, "largest") || strings.Contains(q, "biggest") ||
		strings.Contains(q, "most expensive") || strings.Contains(q, "maximum")
	wantMin := strings.Contains(q, "cheapest") || strings.Contains(q, "lowest") ||
		strings.Contains(q, "smallest") || strings.Contains(q, "minimum")
	if !wantMax && !wantMin {
		return models.NormalizedRow{}, false
	}

	// Costliest stock is ranked by rate, not by total closing value.
	byRate := strings.Contains(reportName, "Stock") &&
		(strings.Contains(q, "costliest") || strings.Contains(q, "cheapest") || strings.Contains(q, "expensive"))

	metric := func(r models.NormalizedRow) *float64 {
		if byRate {
			return r.Rate
		}
		return r.Value
	}

	best := -1
	for i, r := range rows {
		v := metric(r)
		if v == nil {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := *metric(rows[best])
		if (wantMax && *v > cur) || (wantMin && *v < cur) {
			best = i
		}
	}
	if best < 0 {
		return models.NormalizedRow{}, false
	}
	return rows[best], true
}

// describeRow renders one row as a short answer sentence.
func describeRow(r models.NormalizedRow) string {
	if r.Rate != nil && r.Quantity != "" {
		return fmt.Sprintf("**%s** — rate ₹%.2f, quantity %s, value ₹%.2f.",
			r.Label, *r.Rate, r.Quantity, deref(r.Value))
	}
	return fmt.Sprintf("The value of **%s** is ₹%.2f.", r.Label, deref(r.Value))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func textResponse(text string) ChatResponse {
	return ChatResponse{OutputType: "text", Summary: text}
}

// pipelineErrorResponse passes upstream conditions through as structured
// text; nothing in the pipeline is a server error.
func pipelineErrorResponse(err error) ChatResponse {
	if errors.Is(err, graph.ErrNoCompany) {
		return textResponse("No company selected. Tell me which company to use first, e.g. \"use Dakshin Traders\".")
	}
	return textResponse(fmt.Sprintf("Could not answer that: %v.", err))
}

// TableToMarkdown renders a normalized table as a GitHub-style markdown
// table, skipping columns absent from a row.
func TableToMarkdown(columns []string, rows []models.NormalizedRow) string {
	if len(columns) == 0 || len(rows) == 0 {
		return "_No data available._"
	}

	var lines []string
	lines = append(lines, "| "+strings.Join(columns, " | ")+" |")

	sep := make([]string, len(columns))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(sep, " | ")+" |")

	for _, r := range rows {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, cellValue(r, col))
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

func cellValue(r models.NormalizedRow, column string) string {
	switch column {
	case "section":
		return r.Section
	case "label":
		return r.Label
	case "quantity":
		return r.Quantity
	default:
		if v := r.Field(column); v != nil {
			return fmt.Sprintf("%.2f", *v)
		}
		return ""
	}
}

// HandleCompany reports the active company and the companies the gateway has
// loaded.
func (h *Handler) HandleCompany(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	h.mu.Lock()
	active := h.activeCompany
	h.mu.Unlock()

	var available []string
	if h.Tally != nil {
		if list, err := h.Tally.CompanyList(r.Context()); err == nil {
			available = list
		} else {
			log.Printf("[Chat] company list unavailable: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"company_name": active,
		"available":    available,
	})
}
