// Package auth は認証情報の管理、セッション発行、ベアラートークン発行を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lltracker/internal/model"
	"github.com/hitoshi/lltracker/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge time.Duration // セッション有効期間（既定31日）
}

// Service は認証に関するビジネスロジックを提供する。
// ブラウザ向け（セッション）とアプリ向け（トークン）の両方の信頼モデルを
// 同一のユーザー資格情報の上に構築する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	tokens      *TokenAuthenticator
	config      ServiceConfig

	// dummyDigest は存在しないユーザーへの認証試行時に比較対象として
	// 使うダイジェスト。ユーザー不存在とパスワード不一致の応答時間を
	// そろえ、ユーザー名の列挙を防ぐ。
	dummyDigest string
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	tokens *TokenAuthenticator,
	config ServiceConfig,
) (*Service, error) {
	dummyDigest, err := hasher.Hash("lltracker-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy digest: %w", err)
	}

	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		tokens:      tokens,
		config:      config,
		dummyDigest: dummyDigest,
	}, nil
}

// SignUp は新規ユーザーを作成する。
// ユーザー名が既に存在する場合はDUPLICATE_USERエラーを返す。
// 一意性判定は事前SELECTではなくストアのUNIQUE制約に委ねるため、
// 同一ユーザー名の並行サインアップでも作成されるのはちょうど1件。
// 平文パスワードはログを含めどこにも記録しない。
func (s *Service) SignUp(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return model.NewMissingCredentialsError()
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: digest,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return model.NewDuplicateUserError(username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", slog.String("username", username))
	return nil
}

// Authenticate はユーザー名とパスワードの組を検証する。
// ユーザー不存在とパスワード不一致はどちらもfalseを返し、呼び出し側からは
// 区別できない。errorはストア障害時のみ非nilになる。
func (s *Service) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// 不存在ユーザーでもダイジェスト比較を1回実行し、応答時間をそろえる
		s.hasher.Verify(password, s.dummyDigest)
		return false, nil
	}

	return s.hasher.Verify(password, user.PasswordHash), nil
}

// EstablishSession は指定ユーザーのサインイン済みセッションを確立する。
// セッション固定攻撃を防ぐため、提示された既存セッションIDがあれば破棄し、
// 常に新規生成したIDでセッションを作り直す。
// 同一ユーザーの既存セッションもすべて破棄し、有効なセッションは常に1つとする。
func (s *Service) EstablishSession(ctx context.Context, username, priorSessionID string) (*model.Session, error) {
	if priorSessionID != "" {
		if err := s.sessionRepo.DeleteByID(ctx, priorSessionID); err != nil {
			return nil, fmt.Errorf("failed to discard prior session: %w", err)
		}
	}

	if err := s.sessionRepo.DeleteByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("failed to purge existing sessions: %w", err)
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		Username:  username,
		ExpiresAt: time.Now().Add(s.config.SessionMaxAge),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("session established", slog.String("username", username))
	return session, nil
}

// TerminateSession はセッションをサーバー側で即時に無効化する。
// 既に無効なセッションIDに対しても冪等に成功する。
func (s *Service) TerminateSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("session terminated")
	return nil
}

// IssueToken は指定ユーザーのベアラートークンを発行する。
// アプリクライアント向けのステートレスな資格情報であり、サインイン・
// サインアップ成功時に呼び出される。
func (s *Service) IssueToken(username string) (string, error) {
	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
