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

const donorTableName = "donors"

var donorColumns = utils.Columns(types.Donor{})

type DonorRepository struct {
	pool *pgxpool.Pool
}

func NewDonorRepository(pool *pgxpool.Pool) *DonorRepository {
	return &DonorRepository{pool: pool}
}

// DonorFilter narrows a donor listing. Empty fields do not restrict.
type DonorFilter struct {
	BloodType          types.BloodType
	VerificationStatus types.VerificationStatus
}

func donorListQuery(filter DonorFilter) (string, []any, error) {
	builder := psql().
		Select(donorColumns...).
		From(donorTableName).
		OrderBy("created_at ASC", "id ASC")

	if filter.BloodType != "" {
		builder = builder.Where(sq.Eq{"blood_type": filter.BloodType})
	}

	if filter.VerificationStatus != "" {
		builder = builder.Where(sq.Eq{"verification_status": filter.VerificationStatus})
	}

	return builder.ToSql()
}

func (r *DonorRepository) list(ctx context.Context, filter DonorFilter) ([]*types.Donor, error) {
	query, args, err := donorListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to generate donors query: %w", err)
	}

	donors := make([]*types.Donor, 0)
	err = pgxscan.Select(ctx, r.pool, &donors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donors: %w", err)
	}

	return donors, nil
}

func (r *DonorRepository) AllDonors(ctx context.Context) ([]*types.Donor, error) {
	return r.list(ctx, DonorFilter{})
}

func (r *DonorRepository) DonorsByBloodType(ctx context.Context, bloodType types.BloodType) ([]*types.Donor, error) {
	return r.list(ctx, DonorFilter{BloodType: bloodType})
}

func (r *DonorRepository) DonorsByVerificationStatus(ctx context.Context, status types.VerificationStatus) ([]*types.Donor, error) {
	return r.list(ctx, DonorFilter{VerificationStatus: status})
}

func (r *DonorRepository) Donor(ctx context.Context, donorID string) (*types.Donor, error) {
	return r.one(ctx, sq.Eq{"id": donorID})
}

func (r *DonorRepository) DonorByUserID(ctx context.Context, userID string) (*types.Donor, error) {
	return r.one(ctx, sq.Eq{"user_id": userID})
}

func (r *DonorRepository) one(ctx context.Context, where sq.Eq) (*types.Donor, error) {
	query, args, err := psql().
		Select(donorColumns...).
		From(donorTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donor query: %w", err)
	}

	var donor types.Donor
	err = pgxscan.Get(ctx, r.pool, &donor, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDonorNotFound
		}
		return nil, fmt.Errorf("failed to fetch donor: %w", err)
	}

	return &donor, nil
}

func (r *DonorRepository) Create(ctx context.Context, donor *types.Donor) error {
	now := time.Now()
	if donor.ID == "" {
		donor.ID = utils.NanoID()
	}
	if donor.Availability == "" {
		donor.Availability = types.AvailabilityNow
	}
	if donor.VerificationStatus == "" {
		donor.VerificationStatus = types.VerificationPending
	}
	donor.CreatedAt = now
	donor.UpdatedAt = now

	query, args, err := psql().
		Insert(donorTableName).
		SetMap(utils.ColumnMap(donor)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert donor query: %w", err)
	}

	return r.execAndNotify(ctx, donor.ID, query, args, false)
}

// Upsert inserts the donor or overwrites every column except created_at.
func (r *DonorRepository) Upsert(ctx context.Context, donor *types.Donor) error {
	now := time.Now()
	donor.CreatedAt = now
	donor.UpdatedAt = now

	query, args, err := psql().
		Insert(donorTableName).
		SetMap(utils.ColumnMap(donor)).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + buildUpdateClause(donorColumns, "id", "created_at")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert donor query: %w", err)
	}

	return r.execAndNotify(ctx, donor.ID, query, args, false)
}

// Update writes the profile fields. Ownership and verification are not
// touched; those have dedicated setters.
func (r *DonorRepository) Update(ctx context.Context, donorID string, donor *types.Donor) error {
	donor.ID = donorID
	donor.UpdatedAt = time.Now()

	values := utils.ColumnMap(donor, "id", "user_id", "verification_status", "created_at")

	query, args, err := psql().
		Update(donorTableName).
		SetMap(values).
		Where(sq.Eq{"id": donorID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update donor query for donor %s: %w", donorID, err)
	}

	return r.execAndNotify(ctx, donorID, query, args, true)
}

func (r *DonorRepository) UpdateLocation(ctx context.Context, donorID string, latitude, longitude *float64) error {
	return r.set(ctx, donorID, map[string]any{
		"latitude":  latitude,
		"longitude": longitude,
	})
}

func (r *DonorRepository) SetAvailability(ctx context.Context, donorID string, availability types.Availability) error {
	return r.set(ctx, donorID, map[string]any{"availability": availability})
}

func (r *DonorRepository) SetVerificationStatus(ctx context.Context, donorID string, status types.VerificationStatus) error {
	return r.set(ctx, donorID, map[string]any{"verification_status": status})
}

func (r *DonorRepository) set(ctx context.Context, donorID string, values map[string]any) error {
	values["updated_at"] = time.Now()

	query, args, err := psql().
		Update(donorTableName).
		SetMap(values).
		Where(sq.Eq{"id": donorID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate donor update query for donor %s: %w", donorID, err)
	}

	return r.execAndNotify(ctx, donorID, query, args, true)
}

func (r *DonorRepository) Delete(ctx context.Context, donorID string) error {
	query, args, err := psql().Delete(donorTableName).Where(sq.Eq{"id": donorID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete donor query for donor %s: %w", donorID, err)
	}

	return r.execAndNotify(ctx, donorID, query, args, true)
}

type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (r *DonorRepository) CountByBloodType(ctx context.Context) (map[types.BloodType]int, error) {
	rows, err := r.countBy(ctx, "blood_type")
	if err != nil {
		return nil, err
	}

	out := make(map[types.BloodType]int, len(types.BloodTypes))
	for _, bt := range types.BloodTypes {
		out[bt] = 0
	}
	for _, row := range rows {
		out[types.BloodType(row.Key)] = row.Count
	}
	return out, nil
}

func (r *DonorRepository) CountByVerificationStatus(ctx context.Context) (map[types.VerificationStatus]int, error) {
	rows, err := r.countBy(ctx, "verification_status")
	if err != nil {
		return nil, err
	}

	out := map[types.VerificationStatus]int{
		types.VerificationPending:  0,
		types.VerificationVerified: 0,
		types.VerificationRejected: 0,
	}
	for _, row := range rows {
		out[types.VerificationStatus(row.Key)] = row.Count
	}
	return out, nil
}

func (r *DonorRepository) countBy(ctx context.Context, column string) ([]countRow, error) {
	query, args, err := psql().
		Select(column+" AS key", "count(*) AS count").
		From(donorTableName).
		GroupBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donor count query: %w", err)
	}

	var rows []countRow
	err = pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count donors by %s: %w", column, err)
	}

	return rows, nil
}

// execAndNotify runs a donor mutation and the change notification in one
// transaction so listeners only hear about committed writes.
func (r *DonorRepository) execAndNotify(ctx context.Context, donorID, query string, args []any, mustAffect bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin donor tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write donor %s: %w", donorID, err)
	}

	if mustAffect && tag.RowsAffected() == 0 {
		return types.ErrDonorNotFound
	}

	_, err = tx.Exec(ctx, "SELECT pg_notify($1, $2)", DonorsChangedChannel, donorID)
	if err != nil {
		return fmt.Errorf("failed to notify donor change: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit donor tx: %w", err)
	}

	return nil
}
