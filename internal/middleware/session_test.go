package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/lltracker/internal/model"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUsername(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session-id" {
				return &model.Session{
					ID:        "valid-session-id",
					Username:  "alice",
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}

	mw := NewSessionMiddleware(repo, "/demo/signin")

	var capturedUsername string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, err := UsernameFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUsername = username
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/demo/start", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUsername != "alice" {
		t.Errorf("username = %q, want %q", capturedUsername, "alice")
	}
}

func TestSessionMiddleware_MissingCookie_RedirectsToSignIn(t *testing.T) {
	mw := NewSessionMiddleware(&mockSessionRepository{}, "/demo/signin")

	handlerCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/demo/start", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if handlerCalled {
		t.Error("未認証リクエストでハンドラーが呼ばれてはならない")
	}
	if w.Result().StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusFound)
	}
	if loc := w.Result().Header.Get("Location"); loc != "/demo/signin" {
		t.Errorf("Location = %q, want %q", loc, "/demo/signin")
	}
}

func TestSessionMiddleware_UnknownSession_RedirectsToSignIn(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil // 不明または期限切れ
		},
	}
	mw := NewSessionMiddleware(repo, "/demo/signin")

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("無効セッションでハンドラーが呼ばれてはならない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/demo/start", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired-or-unknown"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusFound)
	}
	if loc := w.Result().Header.Get("Location"); loc != "/demo/signin" {
		t.Errorf("Location = %q, want %q", loc, "/demo/signin")
	}
}

func TestSessionMiddleware_StoreFailure_RedirectsToSignIn(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	mw := NewSessionMiddleware(repo, "/demo/signin")

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ストア障害時にハンドラーが呼ばれてはならない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/demo/start", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "any"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusFound)
	}
}

func TestUsernameFromContext_MissingReturnsError(t *testing.T) {
	if _, err := UsernameFromContext(context.Background()); err == nil {
		t.Error("コンテキストにユーザー名がない場合はエラーを返すべき")
	}
}

func TestContextWithUsername_RoundTrip(t *testing.T) {
	ctx := ContextWithUsername(context.Background(), "alice")
	username, err := UsernameFromContext(ctx)
	if err != nil {
		t.Fatalf("UsernameFromContext がエラーを返した: %v", err)
	}
	if username != "alice" {
		t.Errorf("username = %q, want %q", username, "alice")
	}
}
