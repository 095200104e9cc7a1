// Package document_repo provides the PostgreSQL implementation of the
// documents repository.
package document_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	"facturo/internal/core/apperror"
	"facturo/internal/core/id"
	"facturo/internal/domain/documents"
	"facturo/internal/infrastructure/storage/postgres"
)

// snapshotCompressThreshold is the HTML size above which snapshots are
// stored zstd-compressed.
const snapshotCompressThreshold = 4 * 1024

const (
	compressionNone = "none"
	compressionZstd = "zstd"
)

var documentColumns = []string{
	"id", "version", "organization_id", "doc_type", "reference", "status",
	"lead_id", "client_name", "client_email", "client_phone", "currency",
	"total_ht", "total_tva", "total_ttc",
	"amount_in_words", "with_legal_sentence", "parent_document_id",
	"issued_at", "created_at", "updated_at", "created_by",
}

var lineColumns = []string{
	"line_id", "line_no", "designation", "quantity", "unit_price",
	"vat_rate", "amount_ht", "amount_tva",
}

// Repo is the PostgreSQL documents.Repository.
type Repo struct {
	txm     *postgres.TxManager
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewRepo creates a document repository.
func NewRepo(txm *postgres.TxManager) (*Repo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Repo{txm: txm, encoder: encoder, decoder: decoder}, nil
}

// Builder returns a new squirrel builder.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new document with its HTML snapshot.
func (r *Repo) Create(ctx context.Context, doc *documents.Document) error {
	snapshot, algo := r.compressSnapshot(doc.HTML)

	q := r.Builder().
		Insert("documents").
		Columns(append(append([]string{}, documentColumns...), "html_snapshot", "html_compression")...).
		Values(
			doc.ID, doc.Version, doc.OrganizationID, string(doc.Type), doc.Reference, string(doc.Status),
			doc.LeadID, doc.ClientName, doc.ClientEmail, doc.ClientPhone, doc.Currency,
			doc.TotalHT, doc.TotalTVA, doc.TotalTTC,
			doc.AmountInWords, doc.WithLegalSentence, doc.ParentDocumentID,
			doc.IssuedAt, doc.CreatedAt, doc.UpdatedAt, doc.CreatedBy,
			snapshot, algo,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// documentRow mirrors the documents table for scany.
type documentRow struct {
	documents.Document
	HTMLSnapshot    []byte `db:"html_snapshot"`
	HTMLCompression string `db:"html_compression"`
}

// GetByID fetches a document (without lines).
func (r *Repo) GetByID(ctx context.Context, docID id.ID) (*documents.Document, error) {
	return r.getOne(ctx, squirrel.Eq{"id": docID})
}

// GetByReference fetches a document by its legal number.
func (r *Repo) GetByReference(ctx context.Context, organizationID, reference string) (*documents.Document, error) {
	return r.getOne(ctx, squirrel.Eq{"organization_id": organizationID, "reference": reference})
}

func (r *Repo) getOne(ctx context.Context, where squirrel.Eq) (*documents.Document, error) {
	q := r.Builder().
		Select(append(append([]string{}, documentColumns...), "html_snapshot", "html_compression")...).
		From("documents").
		Where(where)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row documentRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("document", where)
		}
		return nil, fmt.Errorf("select document: %w", err)
	}

	doc := row.Document
	html, err := r.decompressSnapshot(row.HTMLSnapshot, row.HTMLCompression)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	doc.HTML = html
	return &doc, nil
}

// Update persists changes with optimistic locking on version.
func (r *Repo) Update(ctx context.Context, doc *documents.Document) error {
	snapshot, algo := r.compressSnapshot(doc.HTML)

	q := r.Builder().
		Update("documents").
		Set("reference", doc.Reference).
		Set("status", string(doc.Status)).
		Set("client_name", doc.ClientName).
		Set("client_email", doc.ClientEmail).
		Set("client_phone", doc.ClientPhone).
		Set("currency", doc.Currency).
		Set("total_ht", doc.TotalHT).
		Set("total_tva", doc.TotalTVA).
		Set("total_ttc", doc.TotalTTC).
		Set("amount_in_words", doc.AmountInWords).
		Set("with_legal_sentence", doc.WithLegalSentence).
		Set("issued_at", doc.IssuedAt).
		Set("html_snapshot", snapshot).
		Set("html_compression", algo).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": doc.ID, "version": doc.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("document", doc.ID)
	}

	doc.Version++
	return nil
}

// Delete removes a document and its lines.
func (r *Repo) Delete(ctx context.Context, docID id.ID) error {
	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, "DELETE FROM document_lines WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	result, err := querier.Exec(ctx, "DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("document", docID.String())
	}
	return nil
}

// GetLines fetches the table part ordered by line number.
func (r *Repo) GetLines(ctx context.Context, docID id.ID) ([]documents.Line, error) {
	q := r.Builder().
		Select(lineColumns...).
		From("document_lines").
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select lines: %w", err)
	}

	var lines []documents.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces the table part of a document.
func (r *Repo) SaveLines(ctx context.Context, docID id.ID, lines []documents.Line) error {
	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, "DELETE FROM document_lines WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("clear lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert("document_lines").
		Columns(append([]string{"document_id"}, lineColumns...)...)
	for _, line := range lines {
		q = q.Values(docID, line.LineID, line.LineNo, line.Designation,
			line.Quantity, line.UnitPrice, line.VATRate, line.AmountHT, line.AmountTVA)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// List returns documents matching the filter, newest first.
// Snapshots are not loaded for listings.
func (r *Repo) List(ctx context.Context, filter documents.ListFilter) ([]*documents.Document, error) {
	q := r.Builder().
		Select(documentColumns...).
		From("documents").
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	if filter.OrganizationID != "" {
		q = q.Where(squirrel.Eq{"organization_id": filter.OrganizationID})
	}
	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"doc_type": filter.Type})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"client_name": pattern},
			squirrel.Like{"reference": pattern},
		})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var docs []*documents.Document
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	return docs, nil
}

// compressSnapshot encodes the HTML snapshot for storage.
func (r *Repo) compressSnapshot(html string) ([]byte, string) {
	if html == "" {
		return nil, compressionNone
	}
	raw := []byte(html)
	if len(raw) < snapshotCompressThreshold {
		return raw, compressionNone
	}
	return r.encoder.EncodeAll(raw, nil), compressionZstd
}

// decompressSnapshot restores the stored HTML snapshot.
func (r *Repo) decompressSnapshot(data []byte, algo string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if algo != compressionZstd {
		return string(data), nil
	}
	raw, err := r.decoder.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("zstd decode: %w", err)
	}
	return string(raw), nil
}

// Ensure compile-time interface compliance.
var _ documents.Repository = (*Repo)(nil)
