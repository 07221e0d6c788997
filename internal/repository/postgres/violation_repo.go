package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xela07ax/devguard/internal/domain"
)

// WriteViolations — пакетная вставка нарушений (Bulk Insert).
// Запрос строится динамически под размер пачки, которую накопил sink.
func (r *Repo) WriteViolations(ctx context.Context, events []domain.Violation) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице violation_logs
	numFields := 4
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d),", p+1, p+2, p+3, p+4)

		details, _ := json.Marshal(e.Details)
		vals = append(vals, e.ID, e.DeviceID, e.ViolationType, details)
	}

	// Убираем лишнюю запятую в конце
	query := fmt.Sprintf(
		"INSERT INTO violation_logs (id, device_id, violation_type, details) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("postgres: failed to write violations batch: %w", err)
	}
	return nil
}

// FindViolations — последние нарушения для админки, опционально по устройству.
func (r *Repo) FindViolations(ctx context.Context, deviceID string) ([]*domain.Violation, error) {
	query := `
		SELECT vl.id, vl.device_id, vl.violation_type, vl.details, vl.created_at, d.device_name
		FROM violation_logs vl
		JOIN devices d ON vl.device_id = d.id`

	var args []interface{}
	if deviceID != "" {
		query += " WHERE vl.device_id = $1"
		args = append(args, deviceID)
	}
	query += " ORDER BY vl.created_at DESC LIMIT 100"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query violations: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.Violation, 0)
	for rows.Next() {
		var (
			v       domain.Violation
			details []byte
		)
		if err := rows.Scan(&v.ID, &v.DeviceID, &v.ViolationType, &details, &v.CreatedAt, &v.DeviceName); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan violation: %w", err)
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &v.Details)
		}
		results = append(results, &v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}
