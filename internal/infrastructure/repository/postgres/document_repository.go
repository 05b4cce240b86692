package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

const selectColumns = `id, file_name, content_type, document_type, status, processed_date, extracted_metadata, confidence, blob_name`

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS document_metadata (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	document_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	processed_date TIMESTAMPTZ NOT NULL,
	extracted_metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	confidence JSONB NOT NULL DEFAULT '{}'::jsonb,
	blob_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_document_metadata_processed_date ON document_metadata(processed_date DESC);
CREATE INDEX IF NOT EXISTS idx_document_metadata_status ON document_metadata(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Upsert(ctx context.Context, meta *domain.DocumentMetadata) error {
	fieldsJSON, err := json.Marshal(nonNilFields(meta.ExtractedMetadata))
	if err != nil {
		return fmt.Errorf("marshal extracted metadata: %w", err)
	}
	confidenceJSON, err := json.Marshal(nonNilConfidence(meta.Confidence))
	if err != nil {
		return fmt.Errorf("marshal confidence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO document_metadata (
	id, file_name, content_type, document_type, status, processed_date, extracted_metadata, confidence, blob_name
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
	file_name = EXCLUDED.file_name,
	content_type = EXCLUDED.content_type,
	document_type = EXCLUDED.document_type,
	status = EXCLUDED.status,
	processed_date = EXCLUDED.processed_date,
	extracted_metadata = EXCLUDED.extracted_metadata,
	confidence = EXCLUDED.confidence,
	blob_name = EXCLUDED.blob_name
`,
		meta.ID, meta.FileName, meta.ContentType, string(meta.DocumentType), string(meta.Status),
		meta.ProcessedDate.UTC(), fieldsJSON, confidenceJSON, meta.BlobName,
	)
	if err != nil {
		return fmt.Errorf("upsert document metadata: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.DocumentMetadata, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM document_metadata WHERE id = $1`, id)

	meta, err := scanMetadata(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document metadata: %w", err)
	}
	return meta, nil
}

func (r *DocumentRepository) List(ctx context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+selectColumns+`
FROM document_metadata
ORDER BY processed_date DESC, id
LIMIT $1 OFFSET $2
`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list document metadata: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentMetadata, 0, opts.Limit)
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document metadata: %w", err)
		}
		out = append(out, *meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document metadata: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_metadata WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document metadata rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id=%s", id))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(s scanner) (*domain.DocumentMetadata, error) {
	var (
		meta                     domain.DocumentMetadata
		docType, status          string
		fieldsRaw, confidenceRaw []byte
	)
	if err := s.Scan(
		&meta.ID, &meta.FileName, &meta.ContentType, &docType, &status,
		&meta.ProcessedDate, &fieldsRaw, &confidenceRaw, &meta.BlobName,
	); err != nil {
		return nil, err
	}
	meta.DocumentType = domain.DocumentType(docType)
	meta.Status = domain.DocumentStatus(status)
	meta.ProcessedDate = meta.ProcessedDate.UTC()

	if err := json.Unmarshal(fieldsRaw, &meta.ExtractedMetadata); err != nil {
		return nil, fmt.Errorf("unmarshal extracted metadata: %w", err)
	}
	if len(confidenceRaw) > 0 {
		if err := json.Unmarshal(confidenceRaw, &meta.Confidence); err != nil {
			return nil, fmt.Errorf("unmarshal confidence: %w", err)
		}
	}
	meta.ExtractedMetadata = nonNilFields(meta.ExtractedMetadata)
	return &meta, nil
}

func nonNilFields(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilConfidence(m map[string]float32) map[string]float32 {
	if m == nil {
		return map[string]float32{}
	}
	return m
}
