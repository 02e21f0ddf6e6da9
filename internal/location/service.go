// Package location は位置情報台帳のドメインロジックを提供する。
// 台帳は追記専用であり、記録済みポイントの更新操作は存在しない。
package location

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lltracker/internal/model"
	"github.com/hitoshi/lltracker/internal/repository"
)

// defaultRecentLimit は直近取得のデフォルト件数。
const defaultRecentLimit = 10

// MetricsRecorder は記録成功メトリクスの通知インターフェース。
type MetricsRecorder interface {
	RecordLocationRecorded()
}

// Service は位置情報台帳のサービス層。
type Service struct {
	locationRepo repository.LocationRepository
	metrics      MetricsRecorder
}

// NewService はServiceを生成する。
// metricsはnilを許容する（テストやメトリクス無効構成向け）。
func NewService(locationRepo repository.LocationRepository, metrics MetricsRecorder) *Service {
	return &Service{
		locationRepo: locationRepo,
		metrics:      metrics,
	}
}

// Record は位置情報を1点記録する。
// 緯度・経度は有限の数値であることのみを検証する（範囲検証は行わない）。
// loggedAtがゼロ値の場合はサーバー時刻を使用する。
// ストア障害以外でポイントが黙って失われることはない。
func (s *Service) Record(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error) {
	if !isFinite(lat) {
		return nil, model.NewInvalidCoordinateError("latitude")
	}
	if !isFinite(lon) {
		return nil, model.NewInvalidCoordinateError("longitude")
	}

	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}

	point := &model.LocationPoint{
		ID:        uuid.New().String(),
		Username:  username,
		Latitude:  lat,
		Longitude: lon,
		LoggedAt:  loggedAt,
	}

	if err := s.locationRepo.Insert(ctx, point); err != nil {
		return nil, fmt.Errorf("failed to record location: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLocationRecorded()
	}

	slog.Info("location recorded",
		slog.String("username", username),
		slog.Time("logged_at", loggedAt),
	)

	return point, nil
}

// Recent は指定ユーザーの直近n件をlogged_at降順（新しい順）で返す。
// nが0以下の場合はデフォルトの10件を使用する。記録がなければ空スライスを返す。
func (s *Service) Recent(ctx context.Context, username string, n int) ([]*model.LocationPoint, error) {
	if n <= 0 {
		n = defaultRecentLimit
	}

	points, err := s.locationRepo.ListRecent(ctx, username, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent locations: %w", err)
	}

	return points, nil
}

// All は指定ユーザーの全履歴をlogged_at昇順（時系列順）で返す。
func (s *Service) All(ctx context.Context, username string) ([]*model.LocationPoint, error) {
	points, err := s.locationRepo.ListAll(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	return points, nil
}

// EraseAll は指定ユーザーの全履歴を削除し、削除件数を返す。
// 0件は「何も存在しなかった」ことを示し、削除失敗とは区別される。
func (s *Service) EraseAll(ctx context.Context, username string) (int64, error) {
	deleted, err := s.locationRepo.DeleteByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("failed to erase location history: %w", err)
	}

	slog.Info("location history erased",
		slog.String("username", username),
		slog.Int64("deleted_count", deleted),
	)

	return deleted, nil
}

// isFinite は値がNaNでも±Infでもないことを判定する。
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
