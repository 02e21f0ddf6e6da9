// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/lltracker/internal/model"
)

// ErrDuplicateUsername は既存ユーザー名と衝突した場合に返すエラー。
// 一意性はアプリケーション側の事前チェックではなくストアのUNIQUE制約で
// 保証するため、並行サインアップでも成功はちょうど1件になる。
var ErrDuplicateUsername = errors.New("username already exists")

// UserRepository はユーザー認証情報の永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// ユーザー名が既に存在する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUsername は指定ユーザーの全セッションを削除する。
	DeleteByUsername(ctx context.Context, username string) error
}

// LocationRepository は位置情報の永続化インターフェース。
// ポイントは追記専用であり、更新操作は存在しない。
type LocationRepository interface {
	// Insert は位置情報を1点追加する。
	Insert(ctx context.Context, point *model.LocationPoint) error

	// ListRecent は指定ユーザーの直近limit件をlogged_at降順で返す。
	// 記録が存在しない場合は空スライスを返す。
	ListRecent(ctx context.Context, username string, limit int) ([]*model.LocationPoint, error)

	// ListAll は指定ユーザーの全位置情報をlogged_at昇順（時系列順）で返す。
	ListAll(ctx context.Context, username string) ([]*model.LocationPoint, error)

	// DeleteByUsername は指定ユーザーの全位置情報を削除し、削除件数を返す。
	// 0件の場合もエラーにはしない（「何も存在しなかった」と「削除失敗」を区別する）。
	DeleteByUsername(ctx context.Context, username string) (int64, error)
}
