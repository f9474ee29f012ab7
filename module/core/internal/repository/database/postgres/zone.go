package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/database"
)

var _ database.ZoneRepository = (*ZoneRepo)(nil)

const uniqueViolation = "23505"

const zoneColumns = `account_id, zone_id, shape, latitudes, longitudes, radius_meters, priority, arrival_enabled, departure_enabled, auto_notify, reverse_geocode, speed_limit, client_upload_id, description, updated_at`

type ZoneRepo struct {
	db *sql.DB
}

func NewZoneRepo(db *sql.DB) *ZoneRepo {
	return &ZoneRepo{db: db}
}

func (r *ZoneRepo) Insert(ctx context.Context, rec *domain.ZoneRecord) error {
	lats, lons := splitPoints(rec.Points)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geozones (`+zoneColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rec.AccountID, rec.ZoneID, string(rec.Kind), pq.Array(lats), pq.Array(lons), rec.RadiusMeters, rec.Priority,
		rec.ArrivalEnabled, rec.DepartureEnabled, rec.AutoNotify, rec.ReverseGeocodeEligible,
		rec.SpeedLimit, rec.ClientUploadID, rec.Description, rec.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("zone %q: %w", rec.ZoneID, database.ErrZoneExists)
	}
	return err
}

func (r *ZoneRepo) Update(ctx context.Context, rec *domain.ZoneRecord) error {
	lats, lons := splitPoints(rec.Points)
	res, err := r.db.ExecContext(ctx,
		`UPDATE geozones SET shape = $3, latitudes = $4, longitudes = $5, radius_meters = $6, priority = $7, arrival_enabled = $8, departure_enabled = $9, auto_notify = $10, reverse_geocode = $11, speed_limit = $12, client_upload_id = $13, description = $14, updated_at = $15 WHERE account_id = $1 AND zone_id = $2`,
		rec.AccountID, rec.ZoneID, string(rec.Kind), pq.Array(lats), pq.Array(lons), rec.RadiusMeters, rec.Priority,
		rec.ArrivalEnabled, rec.DepartureEnabled, rec.AutoNotify, rec.ReverseGeocodeEligible,
		rec.SpeedLimit, rec.ClientUploadID, rec.Description, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, rec.ZoneID)
}

func (r *ZoneRepo) Delete(ctx context.Context, accountID, zoneID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM geozones WHERE account_id = $1 AND zone_id = $2`,
		accountID, zoneID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, zoneID)
}

func (r *ZoneRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.ZoneRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+zoneColumns+` FROM geozones WHERE account_id = $1 ORDER BY zone_id`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	return scanZones(rows)
}

func (r *ZoneRepo) ListAll(ctx context.Context) ([]domain.ZoneRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+zoneColumns+` FROM geozones ORDER BY account_id, zone_id`,
	)
	if err != nil {
		return nil, err
	}
	return scanZones(rows)
}

func scanZones(rows *sql.Rows) ([]domain.ZoneRecord, error) {
	defer func() { _ = rows.Close() }()

	var results []domain.ZoneRecord
	for rows.Next() {
		var (
			rec        domain.ZoneRecord
			kind       string
			lats, lons []float64
		)
		if err := rows.Scan(
			&rec.AccountID, &rec.ZoneID, &kind, pq.Array(&lats), pq.Array(&lons), &rec.RadiusMeters, &rec.Priority,
			&rec.ArrivalEnabled, &rec.DepartureEnabled, &rec.AutoNotify, &rec.ReverseGeocodeEligible,
			&rec.SpeedLimit, &rec.ClientUploadID, &rec.Description, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(lats) != len(lons) {
			return nil, fmt.Errorf("zone %q: %d latitudes for %d longitudes", rec.ZoneID, len(lats), len(lons))
		}
		rec.Kind = domain.ShapeKind(kind)
		rec.Points = joinPoints(lats, lons)
		results = append(results, rec)
	}
	return results, rows.Err()
}

func expectOneRow(res sql.Result, zoneID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("zone %q: %w", zoneID, database.ErrZoneNotFound)
	}
	return nil
}

func splitPoints(points []domain.GeoPoint) ([]float64, []float64) {
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i], lons[i] = p.Lat, p.Lon
	}
	return lats, lons
}

func joinPoints(lats, lons []float64) []domain.GeoPoint {
	points := make([]domain.GeoPoint, len(lats))
	for i := range lats {
		points[i] = domain.GeoPoint{Lat: lats[i], Lon: lons[i]}
	}
	return points
}
