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

const bloodRequestTableName = "blood_requests"

var bloodRequestColumns = utils.Columns(types.BloodRequest{})

type BloodRequestRepository struct {
	pool *pgxpool.Pool
}

func NewBloodRequestRepository(pool *pgxpool.Pool) *BloodRequestRepository {
	return &BloodRequestRepository{pool: pool}
}

func (r *BloodRequestRepository) BloodRequest(ctx context.Context, id string) (*types.BloodRequest, error) {
	query, args, err := psql().
		Select(bloodRequestColumns...).
		From(bloodRequestTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate blood request query: %w", err)
	}

	var req types.BloodRequest
	err = pgxscan.Get(ctx, r.pool, &req, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrBloodRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch blood request: %w", err)
	}

	return &req, nil
}

// OpenRequests lists open requests, most urgent first.
func (r *BloodRequestRepository) OpenRequests(ctx context.Context) ([]*types.BloodRequest, error) {
	return r.list(ctx, sq.Eq{"status": types.BloodRequestOpen},
		"CASE urgency WHEN 'critical' THEN 0 WHEN 'high' THEN 1 ELSE 2 END", "created_at DESC")
}

func (r *BloodRequestRepository) RequestsByRequester(ctx context.Context, userID string) ([]*types.BloodRequest, error) {
	return r.list(ctx, sq.Eq{"requester_id": userID}, "created_at DESC")
}

func (r *BloodRequestRepository) RequestsByOrganizations(ctx context.Context, organizationIDs []string) ([]*types.BloodRequest, error) {
	if len(organizationIDs) == 0 {
		return []*types.BloodRequest{}, nil
	}
	return r.list(ctx, sq.Eq{"organization_id": organizationIDs}, "created_at DESC")
}

func (r *BloodRequestRepository) list(ctx context.Context, where sq.Eq, orderBy ...string) ([]*types.BloodRequest, error) {
	query, args, err := psql().
		Select(bloodRequestColumns...).
		From(bloodRequestTableName).
		Where(where).
		OrderBy(orderBy...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate blood requests query: %w", err)
	}

	reqs := make([]*types.BloodRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &reqs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blood requests: %w", err)
	}

	return reqs, nil
}

func (r *BloodRequestRepository) Create(ctx context.Context, req *types.BloodRequest) error {
	now := time.Now()
	req.ID = utils.NanoID()
	req.Status = types.BloodRequestOpen
	req.CreatedAt = now
	req.UpdatedAt = now

	query, args, err := psql().
		Insert(bloodRequestTableName).
		SetMap(utils.ColumnMap(req)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert blood request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create blood request")
}

func (r *BloodRequestRepository) SetNotifiedCount(ctx context.Context, id string, count int) error {
	return r.set(ctx, id, nil, map[string]any{"notified_count": count})
}

// Fulfill and Cancel only move open requests.
func (r *BloodRequestRepository) Fulfill(ctx context.Context, id string) error {
	return r.set(ctx, id, sq.Eq{"status": types.BloodRequestOpen}, map[string]any{
		"status":       types.BloodRequestFulfilled,
		"fulfilled_at": time.Now(),
	})
}

func (r *BloodRequestRepository) Cancel(ctx context.Context, id string) error {
	return r.set(ctx, id, sq.Eq{"status": types.BloodRequestOpen}, map[string]any{
		"status":       types.BloodRequestCancelled,
		"cancelled_at": time.Now(),
	})
}

func (r *BloodRequestRepository) set(ctx context.Context, id string, guard sq.Sqlizer, values map[string]any) error {
	values["updated_at"] = time.Now()

	builder := psql().
		Update(bloodRequestTableName).
		SetMap(values).
		Where(sq.Eq{"id": id})
	if guard != nil {
		builder = builder.Where(guard)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate blood request update for %s: %w", id, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update blood request %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrBloodRequestNotFound
	}

	return nil
}

func (r *BloodRequestRepository) CountOpen(ctx context.Context) (int, error) {
	query, args, err := psql().
		Select("count(*)").
		From(bloodRequestTableName).
		Where(sq.Eq{"status": types.BloodRequestOpen}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate open request count query: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open requests: %w", err)
	}

	return count, nil
}
