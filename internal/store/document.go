package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentTableName = "donor_documents"

var documentColumns = utils.Columns(types.DonorDocument{})

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) DocumentsByDonorID(ctx context.Context, donorID string) ([]*types.DonorDocument, error) {
	query, args, err := psql().
		Select(documentColumns...).
		From(documentTableName).
		Where(sq.Eq{"donor_id": donorID}).
		OrderBy("uploaded_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donor documents query: %w", err)
	}

	docs := make([]*types.DonorDocument, 0)
	err = pgxscan.Select(ctx, r.pool, &docs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donor documents: %w", err)
	}

	return docs, nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *types.DonorDocument) error {
	if doc.ID == "" {
		doc.ID = utils.NanoID()
	}
	doc.UploadedAt = time.Now()

	query, args, err := psql().
		Insert(documentTableName).
		SetMap(utils.ColumnMap(doc)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert donor document query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create donor document")
}

// Delete removes the record and returns it so the stored object can be cleaned up.
func (r *DocumentRepository) Delete(ctx context.Context, donorID, documentID string) (*types.DonorDocument, error) {
	query, args, err := psql().
		Delete(documentTableName).
		Where(sq.Eq{"id": documentID, "donor_id": donorID}).
		Suffix("RETURNING " + strings.Join(documentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate delete donor document query: %w", err)
	}

	var doc types.DonorDocument
	err = pgxscan.Get(ctx, r.pool, &doc, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to delete donor document: %w", err)
	}

	return &doc, nil
}
