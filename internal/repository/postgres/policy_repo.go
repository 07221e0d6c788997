package postgres

/*
Файл policy_repo.go отвечает за хранение политик, которые устройства
вытягивают и применяют локально: блокировки приложений, черный список URL
и Accessibility-блокировки.
*/

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xela07ax/devguard/internal/domain"
)

// UpsertAppPolicy создает или обновляет политику приложения.
// ON CONFLICT по (device_id, package_name): одна политика на пакет.
func (r *Repo) UpsertAppPolicy(ctx context.Context, p *domain.AppPolicy) (*domain.AppPolicy, error) {
	query := `
		INSERT INTO app_policies (device_id, package_name, app_name, is_blocked, is_uninstallable)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id, package_name)
		DO UPDATE SET
			is_blocked = EXCLUDED.is_blocked,
			is_uninstallable = EXCLUDED.is_uninstallable,
			updated_at = NOW()
		RETURNING device_id, package_name, app_name, is_blocked, is_uninstallable, updated_at`

	out := &domain.AppPolicy{}
	err := r.db.QueryRowContext(ctx, query,
		p.DeviceID, p.PackageName, p.AppName, p.IsBlocked, p.IsUninstallable,
	).Scan(&out.DeviceID, &out.PackageName, &out.AppName, &out.IsBlocked, &out.IsUninstallable, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to upsert app policy: %w", err)
	}
	return out, nil
}

func (r *Repo) FindAppPolicies(ctx context.Context, deviceID string) ([]domain.AppPolicy, error) {
	query := `SELECT device_id, package_name, app_name, is_blocked, is_uninstallable, updated_at
	          FROM app_policies WHERE device_id = $1`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query app policies: %w", err)
	}
	defer rows.Close()

	results := make([]domain.AppPolicy, 0)
	for rows.Next() {
		var p domain.AppPolicy
		if err := rows.Scan(&p.DeviceID, &p.PackageName, &p.AppName, &p.IsBlocked, &p.IsUninstallable, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan app policy: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// FindInstalledApps — инвентарь приложений устройства для админки,
// LEFT JOIN с политиками (у приложения может не быть политики).
func (r *Repo) FindInstalledApps(ctx context.Context, deviceID string) ([]domain.InstalledApp, error) {
	query := `
		SELECT ia.package_name, ia.app_name, ia.version_code, ia.version_name,
		       COALESCE(ap.is_blocked, false), COALESCE(ap.is_uninstallable, false),
		       ia.created_at, ia.updated_at
		FROM installed_apps ia
		LEFT JOIN app_policies ap ON ia.device_id = ap.device_id AND ia.package_name = ap.package_name
		WHERE ia.device_id = $1
		ORDER BY ia.app_name`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query installed apps: %w", err)
	}
	defer rows.Close()

	results := make([]domain.InstalledApp, 0)
	for rows.Next() {
		var a domain.InstalledApp
		if err := rows.Scan(&a.PackageName, &a.AppName, &a.VersionCode, &a.VersionName,
			&a.IsBlocked, &a.IsUninstall, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan installed app: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// AddBlockedURL добавляет паттерн в черный список устройства.
func (r *Repo) AddBlockedURL(ctx context.Context, u *domain.BlockedURL) (*domain.BlockedURL, error) {
	query := `INSERT INTO url_blacklist (id, device_id, url_pattern, description)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, device_id, url_pattern, description, created_at`

	out := &domain.BlockedURL{}
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, query, u.ID, u.DeviceID, u.URLPattern, u.Description).
		Scan(&out.ID, &out.DeviceID, &out.URLPattern, &desc, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to add blocked url: %w", err)
	}
	out.Description = desc.String
	return out, nil
}

func (r *Repo) RemoveBlockedURL(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM url_blacklist WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to remove blocked url: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) FindBlockedURLs(ctx context.Context, deviceID string) ([]domain.BlockedURL, error) {
	query := `SELECT id, device_id, url_pattern, description, created_at
	          FROM url_blacklist WHERE device_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query blocked urls: %w", err)
	}
	defer rows.Close()

	results := make([]domain.BlockedURL, 0)
	for rows.Next() {
		var (
			u    domain.BlockedURL
			desc sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.DeviceID, &u.URLPattern, &desc, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan blocked url: %w", err)
		}
		u.Description = desc.String
		results = append(results, u)
	}
	return results, rows.Err()
}

func (r *Repo) FindAccessibilityPolicies(ctx context.Context, deviceID string) ([]domain.AccessibilityPolicy, error) {
	query := `SELECT device_id, lock_type, is_enabled
	          FROM accessibility_policies WHERE device_id = $1`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query accessibility policies: %w", err)
	}
	defer rows.Close()

	results := make([]domain.AccessibilityPolicy, 0)
	for rows.Next() {
		var p domain.AccessibilityPolicy
		if err := rows.Scan(&p.DeviceID, &p.LockType, &p.IsEnabled); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan accessibility policy: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
