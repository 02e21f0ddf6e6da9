package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthErrorKind はトークン検証失敗の種別を表す。
type AuthErrorKind string

const (
	// KindMissingToken はトークンが提示されなかったことを示す。
	KindMissingToken AuthErrorKind = "missing_token"
	// KindInvalidSignature は署名が現在の秘密鍵で検証できないことを示す。
	// 改ざんされたペイロードや書式不正のトークンも含む。
	KindInvalidSignature AuthErrorKind = "invalid_signature"
	// KindExpired はトークンの有効期限が切れていることを示す。
	KindExpired AuthErrorKind = "expired"
	// KindIssuerMismatch はissuerクレームが期待するサービス識別子と
	// 一致しないことを示す。
	KindIssuerMismatch AuthErrorKind = "issuer_mismatch"
)

// AuthError はトークン検証の失敗を種別付きで表すエラー。
type AuthError struct {
	Kind AuthErrorKind
	err  error
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("token verification failed (%s): %v", e.Kind, e.err)
	}
	return fmt.Sprintf("token verification failed (%s)", e.Kind)
}

// Unwrap はラップした元エラーを返す。
func (e *AuthError) Unwrap() error {
	return e.err
}

// tokenClaims はトークンのペイロード。
// アプリクライアントとの互換性のため、ユーザー名は"user"クレームに載せる。
type tokenClaims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// TokenAuthenticator は自己完結型の署名付きベアラートークンを発行・検証する。
// サーバー側に発行済みトークンの記録は持たない。有効性は署名・有効期限・
// issuerのみで決まり、自然失効前の取り消し手段はない。
type TokenAuthenticator struct {
	secret []byte
	issuer string
	maxAge time.Duration
	now    func() time.Time
}

// NewTokenAuthenticator はTokenAuthenticatorを生成する。
// secretはHMAC-SHA256の署名鍵。16文字未満は構成ミスとして拒否する。
func NewTokenAuthenticator(secret, issuer string, maxAge time.Duration) (*TokenAuthenticator, error) {
	if len(secret) < 16 {
		return nil, errors.New("token secret must be at least 16 characters")
	}
	if issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	return &TokenAuthenticator{
		secret: []byte(secret),
		issuer: issuer,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Issue は指定ユーザー名の署名付きトークンを発行する。
// 有効期限は発行時刻 + maxAge（既定31日）。
func (a *TokenAuthenticator) Issue(username string) (string, error) {
	now := a.now()

	claims := tokenClaims{
		User: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークン文字列を検証し、埋め込まれたユーザー名を返す。
// 失敗時は種別付きの*AuthErrorを返す。検証は署名・有効期限・issuerの
// 3点のみで、追加のストア参照は行わない。
func (a *TokenAuthenticator) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", &AuthError{Kind: KindMissingToken}
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			// アルゴリズム混同攻撃対策: HS256以外の署名方式を拒否する
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", &AuthError{Kind: KindExpired, err: err}
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return "", &AuthError{Kind: KindIssuerMismatch, err: err}
		default:
			return "", &AuthError{Kind: KindInvalidSignature, err: err}
		}
	}

	if !token.Valid || claims.User == "" {
		return "", &AuthError{Kind: KindInvalidSignature}
	}

	return claims.User, nil
}
