package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
)

// Repo — единая точка доступа к PostgreSQL. Все доменные методы
// (devices, approvals, policies, violations, admins) висят на нем,
// разнесены по файлам пакета.
type Repo struct {
	db *sql.DB
}

// New создает репозиторий. Соединение проверяется отдельно через Ping в main.
func New(connString string, maxConns, minConns int) (*Repo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open failed: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Repo{db: db}, nil
}

// Ping проверяет доступность базы при старте
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Close() error {
	return r.db.Close()
}
