package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/netutil"

	"github.com/hitoshi/assetdesk/internal/asset"
	"github.com/hitoshi/assetdesk/internal/auth"
	"github.com/hitoshi/assetdesk/internal/authz"
	"github.com/hitoshi/assetdesk/internal/config"
	"github.com/hitoshi/assetdesk/internal/database"
	"github.com/hitoshi/assetdesk/internal/handler"
	"github.com/hitoshi/assetdesk/internal/history"
	"github.com/hitoshi/assetdesk/internal/logger"
	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/repository"
	"github.com/hitoshi/assetdesk/internal/security"
	"github.com/hitoshi/assetdesk/internal/telemetry"
	"github.com/hitoshi/assetdesk/internal/token"
	"github.com/hitoshi/assetdesk/internal/user"
	"github.com/hitoshi/assetdesk/internal/web"
)

// shutdownTimeout はグレースフルシャットダウンの猶予時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、tierに応じた設定を環境変数から読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer, tier config.Tier) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load(tier)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(tier)),
	)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.Execute()
}

// initTracing はトレースの送信先とコンテキスト伝播を設定する。
// 戻り値の関数は終了時に未送信のスパンを送り切る。
func initTracing(ctx context.Context, cfg *config.Config, name Command) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "assetdesk-" + string(name),
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("failed to flush traces", slog.String("error", err.Error()))
		}
	}, nil
}

// tokenConfig はトークンの発行・検証の設定を組み立てる。
// 秘密鍵が未設定でも起動は続け、発行・検証の度に失敗させる。
func tokenConfig(cfg *config.Config) token.Config {
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set; logins and token checks will fail until it is configured")
	}
	return token.Config{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL}
}

func sessionCookie(cfg *config.Config) middleware.SessionCookieConfig {
	return middleware.SessionCookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}
}

// runAPI はAPI層を起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
func runAPI(cfg *config.Config) error {
	// 1. DB接続
	driver, err := database.ParseDriver(cfg.DatabaseDriver)
	if err != nil {
		return err
	}
	db, err := database.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("driver", string(driver)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	// 2. 認可ポリシー
	policy := authz.DefaultPolicy()
	if cfg.PolicyFile != "" {
		policy, err = authz.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("failed to load policy: %w", err)
		}
		slog.Info("authorization policy loaded", slog.String("path", cfg.PolicyFile))
		for _, action := range policy.Actions() {
			slog.Debug("authorization threshold",
				slog.String("action", string(action)),
				slog.Int("level_user", policy.Threshold(action)),
			)
		}
	}

	// 3. リポジトリとサービスの初期化
	userRepo := repository.NewSQLUserRepo(db, driver)
	computerRepo := repository.NewSQLComputerRepo(db, driver)
	printerRepo := repository.NewSQLPrinterRepo(db, driver)

	tokenCfg := tokenConfig(cfg)
	authService := auth.NewService(userRepo, nil, token.NewIssuer(tokenCfg))

	// 4. メトリクスとレート制限
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin))
	defer rateLimiter.Stop()

	// 5. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             slog.Default(),
		Verifier:           token.NewVerifier(tokenCfg),
		Policy:             policy,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HSTS:               cfg.CookieSecure,
		RateLimiter:        rateLimiter,
		TrustedProxies:     cfg.TrustedProxies,

		HealthChecker:  db,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			Cookie: sessionCookie(cfg),
		},

		UserService:     user.NewService(userRepo),
		ComputerService: asset.NewComputerService(computerRepo),
		PrinterService:  asset.NewPrinterService(printerRepo),
	})

	return serve(newServer(cfg.APIPort, router), cfg.MaxConnections, "API")
}

// runWeb はWeb層を起動する。DBには接続しない。
func runWeb(cfg *config.Config) error {
	h, closeFn, err := newWebHandler(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	return serve(newServer(cfg.WebPort, h), cfg.MaxConnections, "web")
}

// newWebHandler はWeb層のルーターを組み立てる。closeFnで内部のバックグラウンド処理を止める。
func newWebHandler(cfg *config.Config) (http.Handler, func(), error) {
	apiBase, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid API_BASE_URL: %w", err)
	}

	var upstream *url.URL
	if cfg.WebUpstreamURL != "" {
		upstream, err = url.Parse(cfg.WebUpstreamURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid WEB_UPSTREAM_URL: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin))

	apiClient := web.NewAPIClient(&http.Client{Timeout: 10 * time.Second}, slog.Default(), cfg.APIBaseURL)

	router := web.NewRouter(&web.RouterDeps{
		Logger:   slog.Default(),
		Verifier: token.NewVerifier(tokenConfig(cfg)),
		Session: web.SessionConfig{
			Cookie:    sessionCookie(cfg),
			TTL:       cfg.TokenTTL,
			EntryPath: cfg.EntryPath,
			HomePath:  cfg.HomePath,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		HSTS:            cfg.CookieSecure,
		RateLimiter:     rateLimiter,
		TrustedProxies:  cfg.TrustedProxies,
		ProtectedPrefix: cfg.ProtectedPrefix,

		LoginClient: apiClient,
		HistoryStore: history.NewStore(history.Config{
			Path:      cfg.HistoryFile,
			Limit:     cfg.HistoryLimit,
			Sanitizer: security.NewTextSanitizer(),
		}),
		APIBaseURL: apiBase,
		Fallback:   web.NewFallbackHandler(upstream, cfg.WebStaticDir),

		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	})

	return router, rateLimiter.Stop, nil
}

func newServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// serve はサーバーを起動し、SIGINTまたはSIGTERMを受信するとグレースフルシャットダウンを行う。
// 同時接続数はmaxConnsで制限する。
func serve(server *http.Server, maxConns int, name string) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info(name+" server starting",
			slog.String("addr", server.Addr),
			slog.Int("max_connections", maxConns),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	case <-stop:
	}

	slog.Info("shutting down " + name + " server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info(name + " server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	driver, err := database.ParseDriver(cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("driver", string(driver)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(driver, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURL（またはMySQL DSN）の認証情報をマスクする。
//
//	postgres://user:pass@db:5432/app → postgres://***@db:5432/app
//	user:pass@tcp(db:3306)/app       → ***@tcp(db:3306)/app
func maskDatabaseURL(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return "***"
	}
	prefix := ""
	if i := strings.Index(dsn, "://"); i >= 0 && i < at {
		prefix = dsn[:i+3]
	}
	return prefix + "***" + dsn[at:]
}
