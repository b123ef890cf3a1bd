// Package repositories contains the data access layer over the postgres
// pool. One row per analyzed document: the full aggregation result as jsonb
// plus the scalar columns the list and lookup endpoints filter on.
package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caselens/claimsift/internal/infrastructure/database/postgres"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// ErrAnalysisNotFound is returned when no stored analysis matches the lookup.
var ErrAnalysisNotFound = errors.New(errors.ErrCodeNotFound, "analysis not found")

// AnalysisRecord is one persisted engine run.
type AnalysisRecord struct {
	ID            uuid.UUID                 `json:"id"`
	DocumentID    string                    `json:"document_id"`
	DocumentHash  string                    `json:"document_hash"`
	Format        string                    `json:"format"`
	ClaimantCount int                       `json:"claimant_count"`
	ItemCount     int                       `json:"item_count"`
	GrandTotal    int64                     `json:"grand_total"`
	Result        damages.AggregationResult `json:"result"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// AnalysisRepository persists and retrieves analysis results.
type AnalysisRepository interface {
	// Save inserts the record. A rerun of the same document text replaces
	// the previous row for that content hash.
	Save(ctx context.Context, rec *AnalysisRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AnalysisRecord, error)
	GetByDocumentHash(ctx context.Context, hash string) (*AnalysisRecord, error)
	List(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error)
}

type analysisRepository struct {
	pool   *postgres.Pool
	logger logging.Logger
}

// NewAnalysisRepository builds the repository on an existing pool.
func NewAnalysisRepository(pool *postgres.Pool, logger logging.Logger) AnalysisRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &analysisRepository{pool: pool, logger: logger}
}

const saveAnalysisSQL = `
INSERT INTO analyses (id, document_id, document_hash, format, claimant_count, item_count, grand_total, result, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (document_hash) DO UPDATE SET
	id = EXCLUDED.id,
	document_id = EXCLUDED.document_id,
	format = EXCLUDED.format,
	claimant_count = EXCLUDED.claimant_count,
	item_count = EXCLUDED.item_count,
	grand_total = EXCLUDED.grand_total,
	result = EXCLUDED.result,
	created_at = EXCLUDED.created_at`

func (r *analysisRepository) Save(ctx context.Context, rec *AnalysisRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ClaimantCount = len(rec.Result.Claimants)
	rec.ItemCount = rec.Result.ItemCount()
	rec.GrandTotal = rec.Result.GrandTotal

	data, err := json.Marshal(&rec.Result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode analysis result")
	}

	_, err = r.pool.Raw().Exec(ctx, saveAnalysisSQL,
		rec.ID, rec.DocumentID, rec.DocumentHash, rec.Format,
		rec.ClaimantCount, rec.ItemCount, rec.GrandTotal, data, rec.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save analysis")
	}

	r.logger.Debug("analysis saved",
		logging.String("id", rec.ID.String()),
		logging.String("document_id", rec.DocumentID),
		logging.Int("items", rec.ItemCount),
	)
	return nil
}

const selectAnalysisSQL = `
SELECT id, document_id, document_hash, format, claimant_count, item_count, grand_total, result, created_at
FROM analyses`

func (r *analysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*AnalysisRecord, error) {
	row := r.pool.Raw().QueryRow(ctx, selectAnalysisSQL+" WHERE id = $1", id)
	return scanAnalysis(row)
}

func (r *analysisRepository) GetByDocumentHash(ctx context.Context, hash string) (*AnalysisRecord, error) {
	row := r.pool.Raw().QueryRow(ctx, selectAnalysisSQL+" WHERE document_hash = $1", hash)
	return scanAnalysis(row)
}

func (r *analysisRepository) List(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Raw().Query(ctx,
		selectAnalysisSQL+" ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list analyses")
	}
	defer rows.Close()

	var records []*AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list analyses")
	}
	return records, nil
}

func scanAnalysis(row pgx.Row) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var data []byte
	err := row.Scan(&rec.ID, &rec.DocumentID, &rec.DocumentHash, &rec.Format,
		&rec.ClaimantCount, &rec.ItemCount, &rec.GrandTotal, &data, &rec.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan analysis")
	}
	if err := json.Unmarshal(data, &rec.Result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode analysis result")
	}
	return &rec, nil
}
