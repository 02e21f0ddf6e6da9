// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/lltracker/internal/middleware"
	"github.com/hitoshi/lltracker/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (bool, error)
	EstablishSession(ctx context.Context, username, priorSessionID string) (*model.Session, error)
	TerminateSession(ctx context.Context, sessionID string) error
	IssueToken(username string) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインアップ・サインイン関連のHTTPハンドラー。
// Webデモ向けのセッション方式と、アプリ向けのトークン方式の両方を提供する。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// credentialsRequest はサインイン・サインアップのJSONリクエストボディ。
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenResponse はトークン発行成功時のレスポンスボディ。
type tokenResponse struct {
	Token    string `json:"token"`
	Status   int    `json:"status"`
	Username string `json:"username"`
}

// signInFailureResponse はサインイン失敗時のレスポンスボディ。
type signInFailureResponse struct {
	Status   int    `json:"status"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// SignIn はアプリ向けのサインインを処理し、JWTトークンを発行する。
// POST /signin
// 成功時は200でトークンを返し、失敗時は401を返す。
// ユーザーの存在有無をレスポンスから区別できないよう、失敗理由は
// 一律同じメッセージにする。
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingCredentialsError())
		return
	}

	ok, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		slog.Error("authenticate failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if !ok {
		writeJSON(w, http.StatusUnauthorized, signInFailureResponse{
			Status:   http.StatusUnauthorized,
			Username: req.Username,
			Message:  "Login failed, please try again.",
		})
		return
	}

	token, err := h.service.IssueToken(req.Username)
	if err != nil {
		slog.Error("token issuance failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:    token,
		Status:   http.StatusOK,
		Username: req.Username,
	})
}

// AddUser はアプリ向けのサインアップを処理し、JWTトークンを発行する。
// POST /adduser
// 成功時は201でトークンを返す。重複ユーザー名は409、資格情報の欠落は400。
func (h *AuthHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingCredentialsError())
		return
	}

	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)

	if err := h.service.SignUp(r.Context(), username, password); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case model.ErrCodeDuplicateUser:
				middleware.WriteErrorResponse(w, http.StatusConflict, apiErr)
			case model.ErrCodeMissingCredentials:
				middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
			default:
				middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
			}
			return
		}
		slog.Error("signup failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	token, err := h.service.IssueToken(username)
	if err != nil {
		slog.Error("token issuance failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{
		Token:    token,
		Status:   http.StatusCreated,
		Username: username,
	})
}

// DemoNew はWebデモのサインアップフォームを処理する。
// POST /demo/new
// 成功時はセッションを確立して/demo/startにリダイレクトする（登録即サインイン）。
// 重複ユーザー名はフォームに戻す。
func (h *AuthHandler) DemoNew(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/demo/new", http.StatusFound)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := strings.TrimSpace(r.PostFormValue("password"))

	if err := h.service.SignUp(r.Context(), username, password); err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			slog.Error("signup failed", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
			return
		}
		http.Redirect(w, r, "/demo/new", http.StatusFound)
		return
	}

	h.startSession(w, r, username, "/demo/start")
}

// DemoValidate はWebデモのサインインフォームを処理する。
// POST /demo/validate
// 成功時はセッションを確立して/demo/startにリダイレクトする。
// 失敗時は/demo/signinに戻す。
func (h *AuthHandler) DemoValidate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/demo/signin", http.StatusFound)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	ok, err := h.service.Authenticate(r.Context(), username, password)
	if err != nil {
		slog.Error("authenticate failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if !ok {
		http.Redirect(w, r, "/demo/signin", http.StatusFound)
		return
	}

	h.startSession(w, r, username, "/demo/start")
}

// DemoSignOut はWebデモのサインアウトを処理する。
// POST /demo/signout
// セッションを破棄してCookieをクリアし、/demo/signinにリダイレクトする。
func (h *AuthHandler) DemoSignOut(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if termErr := h.service.TerminateSession(r.Context(), cookie.Value); termErr != nil {
			slog.Error("failed to terminate session", slog.String("error", termErr.Error()))
			// 破棄に失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/demo/signin", http.StatusFound)
}

// startSession はセッションを確立してCookieを設定し、リダイレクトする。
// 既存のセッションCookieがあればそのセッションを破棄してIDを再生成する
// （セッション固定化攻撃への対策）。
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, username, redirectTo string) {
	priorSessionID := ""
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		priorSessionID = cookie.Value
	}

	session, err := h.service.EstablishSession(r.Context(), username, priorSessionID)
	if err != nil {
		slog.Error("failed to establish session", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// clearSessionCookie はセッションCookieを無効化する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
