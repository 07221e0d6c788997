package postgres

/*
Файл approval_repo.go содержит хранение заявок на изменение политик
(approval requests) — единственную часть системы с машиной состояний.
Таблица append-only: заявки никогда не удаляются (аудиторский след).
*/

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/devguard/internal/domain"
)

const approvalColumns = `id, device_id, request_type, target_data, notes, status, cooldown_until, requested_at, resolved_at`

// CreateApproval сохраняет новую заявку. Все вычисляемые поля
// (id, cooldown_until, requested_at) уже проставлены сервисом.
func (r *Repo) CreateApproval(ctx context.Context, app *domain.ApprovalRequest) error {
	target, err := json.Marshal(app.TargetData)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode target_data: %w", err)
	}

	query := `INSERT INTO approval_requests (id, device_id, request_type, target_data, notes, status, cooldown_until, requested_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.ExecContext(ctx, query,
		app.ID, app.DeviceID, app.RequestType, target, app.Notes,
		app.Status, app.CooldownUntil, app.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create approval request: %w", err)
	}
	return nil
}

// GetApprovalByIDAndDevice — выборка строго в рамках устройства-владельца.
// Чужая заявка и несуществующая заявка неразличимы (ErrNotFound),
// чтобы не светить существование чужих запросов.
func (r *Repo) GetApprovalByIDAndDevice(ctx context.Context, id, deviceID string) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1 AND device_id = $2`

	app, err := scanApproval(r.db.QueryRowContext(ctx, query, id, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to fetch approval: %w", err)
	}
	return app, nil
}

// ResolveApproval атомарно фиксирует решение админа.
// Условие WHERE status = 'pending' предотвращает Double Decision:
// машина состояний одноразовая, повторное решение получает конфликт.
// RETURNING отдает обновленную строку за один проход, без предварительного SELECT.
func (r *Repo) ResolveApproval(ctx context.Context, id string, status domain.ApprovalStatus, notes *string, resolvedAt time.Time) (*domain.ApprovalRequest, error) {
	query := `
		UPDATE approval_requests
		SET status = $1,
		    resolved_at = $2,
		    notes = COALESCE($3, notes)
		WHERE id = $4 AND status = 'pending'
		RETURNING ` + approvalColumns

	app, err := scanApproval(r.db.QueryRowContext(ctx, query, status, resolvedAt, notes, id))
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: failed to resolve approval: %w", err)
	}

	// Строк нет: либо ID неверный, либо решение уже было принято ранее.
	// Различаем, потому что наружу это 404 против 409.
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM approval_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: failed to check approval existence: %w", err)
	}
	if exists {
		return nil, domain.ErrAlreadyResolved
	}
	return nil, domain.ErrNotFound
}

// FindPendingApprovals — очередь решений для админки, с именем устройства.
func (r *Repo) FindPendingApprovals(ctx context.Context) ([]*domain.PendingRequest, error) {
	query := `
		SELECT ar.id, ar.device_id, ar.request_type, ar.target_data, ar.notes,
		       ar.status, ar.cooldown_until, ar.requested_at, ar.resolved_at, d.device_name
		FROM approval_requests ar
		JOIN devices d ON ar.device_id = d.id
		WHERE ar.status = 'pending'
		ORDER BY ar.requested_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query pending approvals: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	results := make([]*domain.PendingRequest, 0)
	for rows.Next() {
		var (
			pr     domain.PendingRequest
			target []byte
			notes  sql.NullString
			rat    sql.NullTime
		)
		err := rows.Scan(
			&pr.ID, &pr.DeviceID, &pr.RequestType, &target, &notes,
			&pr.Status, &pr.CooldownUntil, &pr.RequestedAt, &rat, &pr.DeviceName,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan pending approval: %w", err)
		}
		fillApprovalOptionals(&pr.ApprovalRequest, target, notes, rat)
		results = append(results, &pr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}

	return results, nil
}

// FindApprovalsByDevice — история заявок устройства (для экрана "мои запросы").
func (r *Repo) FindApprovalsByDevice(ctx context.Context, deviceID string) ([]*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests
	          WHERE device_id = $1 ORDER BY requested_at DESC`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query device approvals: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.ApprovalRequest, 0)
	for rows.Next() {
		app, err := scanApprovalRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan approval: %w", err)
		}
		results = append(results, app)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}

	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (*domain.ApprovalRequest, error) {
	return scanApprovalRow(row)
}

func scanApprovalRow(row rowScanner) (*domain.ApprovalRequest, error) {
	var (
		app    domain.ApprovalRequest
		target []byte
		notes  sql.NullString // Используем для обработки NULL из БД
		rat    sql.NullTime
	)

	err := row.Scan(
		&app.ID,
		&app.DeviceID,
		&app.RequestType,
		&target,
		&notes,
		&app.Status,
		&app.CooldownUntil,
		&app.RequestedAt,
		&rat,
	)
	if err != nil {
		return nil, err
	}

	fillApprovalOptionals(&app, target, notes, rat)
	return &app, nil
}

func fillApprovalOptionals(app *domain.ApprovalRequest, target []byte, notes sql.NullString, resolvedAt sql.NullTime) {
	if len(target) > 0 {
		// target_data непрозрачен: только раскодировать и отдать как есть
		_ = json.Unmarshal(target, &app.TargetData)
	}
	if notes.Valid {
		val := notes.String
		app.Notes = &val
	}
	if resolvedAt.Valid {
		val := resolvedAt.Time
		app.ResolvedAt = &val
	}
}
