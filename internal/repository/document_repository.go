package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// DocumentRepository handles the singleton cache documents (accounts,
// symbols, exchange rate). Each document type has exactly one row and is
// replaced wholesale on every write.
type DocumentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new cache document repository
func NewDocumentRepository(db *sqlx.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the document for the given type, or nil when it has never
// been written.
func (r *DocumentRepository) Get(ctx context.Context, docType model.DocType) (*model.CacheDocument, error) {
	query := `SELECT doc_type, payload, updated_at
		FROM cache_documents
		WHERE doc_type = $1`

	var doc model.CacheDocument
	if err := r.db.GetContext(ctx, &doc, query, docType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to read cache document",
			zap.Error(err),
			zap.String("type", string(docType)))
		return nil, model.NewCacheReadError(err)
	}

	return &doc, nil
}

// Put replaces the document payload wholesale and stamps updated_at.
func (r *DocumentRepository) Put(ctx context.Context, docType model.DocType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.NewCacheWriteError(err)
	}

	query := `INSERT INTO cache_documents (doc_type, payload, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (doc_type)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, docType, string(body), time.Now().UTC()); err != nil {
		r.logger.Error("failed to write cache document",
			zap.Error(err),
			zap.String("type", string(docType)))
		return model.NewCacheWriteError(err)
	}

	return nil
}
