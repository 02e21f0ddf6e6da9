package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lltracker/internal/model"
)

// PostgresLocationRepo はPostgreSQLを使用した位置情報リポジトリ。
// すべての操作は単一ステートメントであり、部分的な複数行書き込みは発生しない。
type PostgresLocationRepo struct {
	db *sql.DB
}

// NewPostgresLocationRepo はPostgresLocationRepoを生成する。
func NewPostgresLocationRepo(db *sql.DB) *PostgresLocationRepo {
	return &PostgresLocationRepo{db: db}
}

// Insert は位置情報を1点追加する。
func (r *PostgresLocationRepo) Insert(ctx context.Context, point *model.LocationPoint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, username, latitude, longitude, logged_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		point.ID, point.Username, point.Latitude, point.Longitude, point.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// ListRecent は指定ユーザーの直近limit件をlogged_at降順で返す。
// logged_atが同値の場合はidを第2キーとし、同一クエリ内の順序を一定に保つ。
func (r *PostgresLocationRepo) ListRecent(ctx context.Context, username string, limit int) ([]*model.LocationPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, latitude, longitude, logged_at
		 FROM locations
		 WHERE username = $1
		 ORDER BY logged_at DESC, id DESC
		 LIMIT $2`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent locations: %w", err)
	}
	defer rows.Close()

	return scanLocations(rows)
}

// ListAll は指定ユーザーの全位置情報をlogged_at昇順（時系列順）で返す。
func (r *PostgresLocationRepo) ListAll(ctx context.Context, username string) ([]*model.LocationPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, latitude, longitude, logged_at
		 FROM locations
		 WHERE username = $1
		 ORDER BY logged_at ASC, id ASC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	return scanLocations(rows)
}

// DeleteByUsername は指定ユーザーの全位置情報を削除し、削除件数を返す。
func (r *PostgresLocationRepo) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM locations WHERE username = $1`,
		username,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete locations: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// scanLocations はクエリ結果をLocationPointのスライスに変換する。
func scanLocations(rows *sql.Rows) ([]*model.LocationPoint, error) {
	points := []*model.LocationPoint{}
	for rows.Next() {
		point := &model.LocationPoint{}
		if err := rows.Scan(
			&point.ID, &point.Username, &point.Latitude, &point.Longitude, &point.LoggedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location rows: %w", err)
	}
	return points, nil
}

// compile-time interface check
var _ LocationRepository = (*PostgresLocationRepo)(nil)
