package store

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const organizationTableName = "organizations"

var organizationColumns = utils.Columns(types.Organization{})

type OrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

func (r *OrganizationRepository) Organization(ctx context.Context, id string) (*types.Organization, error) {
	query, args, err := psql().
		Select(organizationColumns...).
		From(organizationTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organization query: %w", err)
	}

	var org types.Organization
	err = pgxscan.Get(ctx, r.pool, &org, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to fetch organization: %w", err)
	}

	return &org, nil
}

func (r *OrganizationRepository) OrganizationsByOwner(ctx context.Context, userID string) ([]*types.Organization, error) {
	return r.list(ctx, sq.Eq{"owner_user_id": userID})
}

func (r *OrganizationRepository) OrganizationsByVerificationStatus(ctx context.Context, status types.VerificationStatus) ([]*types.Organization, error) {
	return r.list(ctx, sq.Eq{"verification_status": status})
}

func (r *OrganizationRepository) list(ctx context.Context, where sq.Eq) ([]*types.Organization, error) {
	query, args, err := psql().
		Select(organizationColumns...).
		From(organizationTableName).
		Where(where).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate organizations query: %w", err)
	}

	orgs := make([]*types.Organization, 0)
	err = pgxscan.Select(ctx, r.pool, &orgs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organizations: %w", err)
	}

	return orgs, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *types.Organization) error {
	now := time.Now()
	if org.ID == "" {
		org.ID = utils.NanoID()
	}
	if org.VerificationStatus == "" {
		org.VerificationStatus = types.VerificationPending
	}
	org.CreatedAt = now
	org.UpdatedAt = now

	query, args, err := psql().
		Insert(organizationTableName).
		SetMap(utils.ColumnMap(org)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert organization query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create organization")
}

func (r *OrganizationRepository) Upsert(ctx context.Context, org *types.Organization) error {
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	query, args, err := psql().
		Insert(organizationTableName).
		SetMap(utils.ColumnMap(org)).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + buildUpdateClause(organizationColumns, "id", "created_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert organization query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert organization")
}

func (r *OrganizationRepository) SetVerificationStatus(ctx context.Context, id string, status types.VerificationStatus) error {
	query, args, err := psql().
		Update(organizationTableName).
		Set("verification_status", status).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate organization verification query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set organization verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrOrganizationNotFound
	}

	return nil
}

func (r *OrganizationRepository) CountByVerificationStatus(ctx context.Context, status types.VerificationStatus) (int, error) {
	query, args, err := psql().
		Select("count(*)").
		From(organizationTableName).
		Where(sq.Eq{"verification_status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate organization count query: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}

	return count, nil
}
