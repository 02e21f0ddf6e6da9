package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lltracker/internal/metrics"
	"github.com/hitoshi/lltracker/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 観測
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	// サービス
	AuthService     AuthServiceInterface
	AuthConfig      AuthHandlerConfig
	LocationService LocationServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成した
// chi.Routerを返す。
//
// 共通ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// 認証戦略はルートグループ単位で分離する:
//   - /demo/** はセッションCookie方式。未認証は/demo/signinへ302リダイレクト。
//     状態変更フォームはCSRF検証の対象。
//   - アプリAPI（/addlocation, /locations**）はトークン方式。
//     未認証は構造化JSONの401。リダイレクトは行わない。
//
// 1つのルートが両方式を混在させることはない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Metricsがnilの場合に型付きnilがインターフェースに入らないようにする
	var httpMetrics middleware.HTTPMetricsRecorder
	var authMetrics middleware.AuthFailureRecorder
	if deps.Metrics != nil {
		httpMetrics = deps.Metrics
		authMetrics = deps.Metrics
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(httpMetrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	locationHandler := NewLocationHandler(deps.LocationService)
	demoPages := NewDemoPagesHandler()

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// アプリ向け資格情報エンドポイント（IP単位のレート制限）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.CredentialMiddleware())
		r.Post("/signin", authHandler.SignIn)
		r.Post("/adduser", authHandler.AddUser)
	})

	// --- Webデモ（セッションCookie方式） ---
	r.Route("/demo", func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 未認証でアクセスできるページとフォーム
		r.Get("/signin", demoPages.SignInPage)
		r.Get("/new", demoPages.NewUserPage)
		r.With(deps.RateLimiter.CredentialMiddleware()).Post("/new", authHandler.DemoNew)
		r.With(deps.RateLimiter.CredentialMiddleware()).Post("/validate", authHandler.DemoValidate)
		r.Post("/signout", authHandler.DemoSignOut)

		// セッション必須のルート。未認証は/demo/signinへリダイレクトする
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, "/demo/signin"))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/start", demoPages.StartPage)
			r.Post("/addlocation", locationHandler.DemoAddLocation)
			r.Post("/destroy", locationHandler.DemoDestroy)
			r.Get("/locations", locationHandler.DemoLocations)
		})
	})

	// --- アプリAPI（トークン方式） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenMiddleware(deps.TokenVerifier, authMetrics))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/addlocation", locationHandler.AddLocation)

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locationHandler.All)
			r.Get("/recent", locationHandler.Recent)
			r.Delete("/", locationHandler.Erase)
		})
	})

	return r
}
