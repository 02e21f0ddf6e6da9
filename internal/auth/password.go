package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultBcryptCost はbcryptのワークファクタ。
// 意図的に遅いハッシュ関数を使うことでブルートフォース攻撃のコストを上げる。
const defaultBcryptCost = 10

// PasswordHasher はパスワードハッシュ化の差し替え可能なインターフェース。
// 具体的なアルゴリズムを呼び出し側に触れさせずに交換できるようにする。
type PasswordHasher interface {
	// Hash は平文パスワードからソルト付きダイジェストを生成する。
	Hash(password string) (string, error)
	// Verify は平文パスワードとダイジェストの一致を検証する。
	// 比較は定数時間で行われる。
	Verify(password, digest string) bool
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
// ソルトはユーザーごとにランダム生成され、ダイジェスト内に埋め込まれる。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はデフォルトコストのBcryptHasherを生成する。
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: defaultBcryptCost}
}

// NewBcryptHasherWithCost は任意コストのBcryptHasherを生成する。
// テストではbcrypt.MinCostを指定してハッシュ化の時間を短縮する。
func NewBcryptHasherWithCost(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

// Hash は平文パスワードをbcryptでハッシュ化する。
// bcryptは72バイトを超える入力を暗黙に切り詰めるため、明示的に拒否する。
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("password must be 72 bytes or fewer")
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(digest), nil
}

// Verify は平文パスワードとダイジェストの一致を検証する。
// bcrypt.CompareHashAndPasswordは内部で定数時間比較を行う。
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// compile-time interface check
var _ PasswordHasher = (*BcryptHasher)(nil)
