package store

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tally_insights/pkg/models"
)

// QueryLogRepo records one row per answered question: the question text, how
// it was classified, and what kind of reply went out. Used for offline review
// of classifier quality; no report contents are written.
//
// Schema assumption (managed outside this service):
//
//	CREATE TABLE IF NOT EXISTS query_log (
//	  request_id UUID PRIMARY KEY,
//	  company_name TEXT,
//	  question TEXT,
//	  intent TEXT,
//	  confidence DOUBLE PRECISION,
//	  report_hint TEXT,
//	  output_type TEXT,
//	  asked_at TIMESTAMPTZ
//	);
type QueryLogRepo struct {
	pool *pgxpool.Pool
}

// NewQueryLogRepo creates the repository. A nil pool yields a no-op repo, so
// handlers log unconditionally.
func NewQueryLogRepo(pool *pgxpool.Pool) *QueryLogRepo {
	return &QueryLogRepo{pool: pool}
}

// Record writes one audit row and returns the request id. Failures are
// logged and swallowed: auditing must never affect the reply.
func (r *QueryLogRepo) Record(ctx context.Context, companyName, question string, res models.IntentResult, outputType string) string {
	requestID := uuid.NewString()

	if r.pool == nil {
		return requestID
	}

	query := `
		INSERT INTO query_log (request_id, company_name, question, intent, confidence, report_hint, output_type, asked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`

	_, err := r.pool.Exec(ctx, query,
		requestID, companyName, question,
		string(res.Intent), res.Confidence, res.ReportTypeHint,
		outputType, time.Now(),
	)
	if err != nil {
		log.Printf("[QueryLog] audit write failed: %v", err)
	}
	return requestID
}
