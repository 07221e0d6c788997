package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xela07ax/devguard/internal/domain"
)

// CreateDevice регистрирует устройство и сразу создает дефолтную строку настроек.
// Обе вставки в одной транзакции: устройство без настроек — неконсистентное состояние.
func (r *Repo) CreateDevice(ctx context.Context, d *domain.Device) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx failed: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO devices (id, device_name, android_id, device_token) VALUES ($1, $2, $3, $4)`,
		d.ID, d.DeviceName, d.AndroidID, d.DeviceToken,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create device: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO device_settings (device_id) VALUES ($1)`, d.ID)
	if err != nil {
		return fmt.Errorf("postgres: failed to create default settings: %w", err)
	}

	return tx.Commit()
}

// GetDeviceByAndroidID — ключ идемпотентной регистрации.
// nil без ошибки, если устройства еще нет.
func (r *Repo) GetDeviceByAndroidID(ctx context.Context, androidID string) (*domain.Device, error) {
	query := `SELECT id, device_name, android_id, device_token, policy_version, is_restricted, last_seen, created_at
	          FROM devices WHERE android_id = $1`

	d := &domain.Device{}
	err := r.db.QueryRowContext(ctx, query, androidID).Scan(
		&d.ID, &d.DeviceName, &d.AndroidID, &d.DeviceToken,
		&d.PolicyVersion, &d.IsRestricted, &d.LastSeen, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to fetch device: %w", err)
	}
	return d, nil
}

func (r *Repo) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	query := `SELECT id, device_name, android_id, device_token, policy_version, is_restricted, last_seen, created_at
	          FROM devices WHERE id = $1`

	d := &domain.Device{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.DeviceName, &d.AndroidID, &d.DeviceToken,
		&d.PolicyVersion, &d.IsRestricted, &d.LastSeen, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to fetch device: %w", err)
	}
	return d, nil
}

// ListDevices возвращает весь флот для админки, новые сверху.
func (r *Repo) ListDevices(ctx context.Context) ([]*domain.Device, error) {
	query := `SELECT id, device_name, android_id, policy_version, is_restricted, last_seen, created_at
	          FROM devices ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list devices: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.Device, 0)
	for rows.Next() {
		d := &domain.Device{}
		if err := rows.Scan(&d.ID, &d.DeviceName, &d.AndroidID,
			&d.PolicyVersion, &d.IsRestricted, &d.LastSeen, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan device: %w", err)
		}
		results = append(results, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// TouchLastSeen обновляет отметку активности (heartbeat, выдача политик).
func (r *Repo) TouchLastSeen(ctx context.Context, deviceID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET last_seen = NOW() WHERE id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("postgres: failed to touch last_seen: %w", err)
	}
	return nil
}

// GetCooldownHours — чистый lookup для Cooldown Policy Resolver.
// COALESCE закрывает оба случая: NULL в колонке и отсутствие строки настроек.
func (r *Repo) GetCooldownHours(ctx context.Context, deviceID string) (int, error) {
	query := `SELECT COALESCE(
	            (SELECT cooldown_hours FROM device_settings WHERE device_id = $1),
	            $2)`

	var hours int
	if err := r.db.QueryRowContext(ctx, query, deviceID, domain.DefaultCooldownHours).Scan(&hours); err != nil {
		return 0, fmt.Errorf("postgres: failed to resolve cooldown: %w", err)
	}
	if hours <= 0 {
		hours = domain.DefaultCooldownHours
	}
	return hours, nil
}

// GetSettings отдает строку настроек устройства (nil, если ее нет).
func (r *Repo) GetSettings(ctx context.Context, deviceID string) (*domain.DeviceSettings, error) {
	query := `SELECT device_id, cooldown_hours, require_admin_approval, vpn_always_on, prevent_factory_reset, updated_at
	          FROM device_settings WHERE device_id = $1`

	s := &domain.DeviceSettings{}
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&s.DeviceID, &s.CooldownHours, &s.RequireAdminApproval,
		&s.VPNAlwaysOn, &s.PreventFactoryReset, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to fetch settings: %w", err)
	}
	return s, nil
}

// UpdateSettings — частичное обновление: непереданные поля сохраняют значения (COALESCE).
func (r *Repo) UpdateSettings(ctx context.Context, deviceID string, patch domain.SettingsPatch) (*domain.DeviceSettings, error) {
	query := `
		UPDATE device_settings
		SET cooldown_hours = COALESCE($1, cooldown_hours),
		    require_admin_approval = COALESCE($2, require_admin_approval),
		    vpn_always_on = COALESCE($3, vpn_always_on),
		    prevent_factory_reset = COALESCE($4, prevent_factory_reset),
		    updated_at = NOW()
		WHERE device_id = $5
		RETURNING device_id, cooldown_hours, require_admin_approval, vpn_always_on, prevent_factory_reset, updated_at`

	s := &domain.DeviceSettings{}
	err := r.db.QueryRowContext(ctx, query,
		patch.CooldownHours, patch.RequireAdminApproval,
		patch.VPNAlwaysOn, patch.PreventFactoryReset, deviceID,
	).Scan(
		&s.DeviceID, &s.CooldownHours, &s.RequireAdminApproval,
		&s.VPNAlwaysOn, &s.PreventFactoryReset, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to update settings: %w", err)
	}
	return s, nil
}
