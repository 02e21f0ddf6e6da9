// Package model はドメインモデルを定義する。
package model

import "time"

// User はトラッキング対象ユーザーを表す。
// Usernameがグローバルに一意な識別子であり、作成後に変更されることはない。
// PasswordHashにはソルト込みのbcryptハッシュを格納する。平文パスワードは
// いかなる場所にも永続化しない。
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はブラウザ向けのログインセッションを表す。
// サーバー側が正のコピーを保持し、クライアントには不透明なIDのみを渡す。
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
