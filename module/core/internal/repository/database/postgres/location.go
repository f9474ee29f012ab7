package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/database"
)

var _ database.LocationRepository = (*LocationRepo)(nil)

type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Insert(ctx context.Context, loc *domain.DeviceLocation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_locations (account_id, device_id, latitude, longitude, speed, address, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		loc.AccountID, loc.DeviceID, loc.Location.Lat, loc.Location.Lon, loc.Location.Speed, loc.Location.Address, loc.Location.Timestamp,
	)
	return err
}

func (r *LocationRepo) GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT account_id, device_id, latitude, longitude, speed, address, timestamp FROM device_locations WHERE device_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		deviceID,
	)

	var dl domain.DeviceLocation
	if err := scanLocation(row, &dl); err != nil {
		return nil, err
	}
	return &dl, nil
}

func (r *LocationRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id, device_id, latitude, longitude, speed, address, timestamp FROM device_locations WHERE device_id = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp ASC`,
		query.DeviceID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.DeviceLocation
	for rows.Next() {
		var dl domain.DeviceLocation
		if err := scanLocation(rows, &dl); err != nil {
			return nil, err
		}
		results = append(results, dl)
	}
	return results, rows.Err()
}

func (r *LocationRepo) GetAllDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT device_id FROM device_locations ORDER BY device_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.DeviceID); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(s scanner, dl *domain.DeviceLocation) error {
	return s.Scan(&dl.AccountID, &dl.DeviceID, &dl.Location.Lat, &dl.Location.Lon, &dl.Location.Speed, &dl.Location.Address, &dl.Location.Timestamp)
}
