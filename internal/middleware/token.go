package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hitoshi/lltracker/internal/auth"
	"github.com/hitoshi/lltracker/internal/model"
)

// tokenHeaderName はアプリクライアントがトークンを送るヘッダー名。
// 既存アプリとの互換性のため"token"ヘッダーを第一候補とする。
const tokenHeaderName = "token"

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// AuthFailureRecorder は認証失敗メトリクスの通知インターフェース。nil可。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// NewTokenMiddleware はリクエストヘッダーのベアラートークンを検証する
// ミドルウェアを返す。検証済みユーザー名をリクエストコンテキストに注入する。
// 非対話クライアント向けのため、失敗時はリダイレクトせず必ず構造化された
// 401 JSONを返す。
func NewTokenMiddleware(verifier TokenVerifier, metrics AuthFailureRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, err := verifier.Verify(extractToken(r))
			if err != nil {
				apiErr, reason := classifyTokenError(err)
				if metrics != nil {
					metrics.RecordAuthFailure(reason)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
				return
			}

			ctx := context.WithValue(r.Context(), usernameContextKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken はリクエストからトークン文字列を取り出す。
// "token"ヘッダーを優先し、なければAuthorization: Bearerを見る。
func extractToken(r *http.Request) string {
	if token := r.Header.Get(tokenHeaderName); token != "" {
		return token
	}

	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}

	return ""
}

// classifyTokenError は検証エラーを統一エラーフォーマットと
// メトリクス用の理由ラベルに変換する。
func classifyTokenError(err error) (*model.APIError, string) {
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case auth.KindMissingToken:
			return model.NewTokenRequiredError(), "missing_token"
		case auth.KindExpired:
			return model.NewTokenExpiredError(), "expired"
		case auth.KindIssuerMismatch:
			return model.NewTokenInvalidError(), "issuer_mismatch"
		default:
			return model.NewTokenInvalidError(), "invalid_signature"
		}
	}
	return model.NewTokenInvalidError(), "invalid"
}
