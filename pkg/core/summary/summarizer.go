package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"tally_insights/pkg/core/utils"
	"tally_insights/pkg/models"
)

// =============================================================================
// SUMMARIZER - Breakdown prose for table and graph replies
// =============================================================================

// sampleLimit bounds the rows shown to the model; the full table still goes
// to the client.
const sampleLimit = 20

// Summarizer produces the short breakdown text attached above tables and
// charts. It talks to Gemini directly; without an API key, or on any model
// failure, the deterministic one-liner takes over, so Summarize never fails.
type Summarizer struct {
	client    *genai.Client
	modelName string
}

// NewSummarizer builds a summarizer. A missing API key is not an error: the
// instance degrades to deterministic summaries.
func NewSummarizer(ctx context.Context) *Summarizer {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		log.Printf("[Summarizer] no API key, using deterministic summaries")
		return &Summarizer{}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		log.Printf("[Summarizer] client init failed, using deterministic summaries: %v", err)
		return &Summarizer{}
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return &Summarizer{client: client, modelName: model}
}

// Summarize writes a short breakdown of the rows behind one reply.
// outputType is "table" or "graph" and only shades the wording.
func (s *Summarizer) Summarize(ctx context.Context, reportName string, rows []models.NormalizedRow, userQuery, outputType string) string {
	if len(rows) == 0 {
		return "No data available to summarize."
	}

	if s.client == nil {
		return deterministicSummary(rows)
	}

	text, err := s.generate(ctx, reportName, rows, userQuery, outputType)
	if err != nil {
		log.Printf("[Summarizer] generation failed, using deterministic summary: %v", err)
		return deterministicSummary(rows)
	}

	cleaned := utils.CleanMarkdown(text)
	if !utils.ValidateMarkdown(cleaned) {
		log.Printf("[Summarizer] model output is not renderable markdown, using deterministic summary")
		return deterministicSummary(rows)
	}
	return cleaned
}

func (s *Summarizer) generate(ctx context.Context, reportName string, rows []models.NormalizedRow, userQuery, outputType string) (string, error) {
	sample := rows
	if len(sample) > sampleLimit {
		sample = sample[:sampleLimit]
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", err
	}

	var extra string
	if strings.Contains(strings.ToLower(reportName), "bills") {
		extra = `
For bills registers:
- Show ONLY the TOP 10 parties in the breakdown
- Rank by absolute value (highest outstanding or count first)`
	}

	prompt := fmt.Sprintf(`You are a financial data analyst.

USER QUERY: %s
REPORT: %s
OUTPUT TYPE: %s

DATA (showing breakdown):
%s

TASK:
Generate a summary that INCLUDES the actual breakdown from the data.

FORMAT RULES:
1. First line: overview statement
2. Next lines: actual data breakdown (month-wise/item-wise/party-wise)
3. Last line: total or key insight
- Use the ₹ symbol for currency and exact numbers from the data, with commas
- Keep the summary under 15 lines%s`,
		userQuery, reportName, outputType, sampleJSON, extra)

	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty model response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("model response carried no text")
	}
	return sb.String(), nil
}

// deterministicSummary is the local fallback: row count plus the largest
// line item by magnitude.
func deterministicSummary(rows []models.NormalizedRow) string {
	topLabel := ""
	topValue := 0.0
	for _, r := range rows {
		if r.Value == nil {
			continue
		}
		if topLabel == "" || math.Abs(*r.Value) > math.Abs(topValue) {
			topLabel = r.Label
			topValue = *r.Value
		}
	}
	if topLabel == "" {
		return fmt.Sprintf("The analysis shows %d items.", len(rows))
	}
	return fmt.Sprintf("The analysis shows %d items with %s having the highest value at ₹%s.",
		len(rows), topLabel, formatAmount(topValue))
}

// formatAmount renders a number with thousands separators and two decimals.
func formatAmount(v float64) string {
	neg := v < 0
	v = math.Abs(v)

	whole := int64(v)
	frac := int64(math.Round((v - float64(whole)) * 100))
	if frac == 100 {
		whole++
		frac = 0
	}

	digits := fmt.Sprintf("%d", whole)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}

	out := fmt.Sprintf("%s.%02d", sb.String(), frac)
	if neg {
		out = "-" + out
	}
	return out
}
