package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/metricalog/internal/appmetrica"
	"github.com/hitoshi/metricalog/internal/config"
	"github.com/hitoshi/metricalog/internal/handler"
	"github.com/hitoshi/metricalog/internal/logger"
	"github.com/hitoshi/metricalog/internal/metrics"
	"github.com/hitoshi/metricalog/internal/middleware"
	"github.com/hitoshi/metricalog/internal/model"
	"github.com/hitoshi/metricalog/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	// exportモードではログが標準出力のエクスポート結果に混ざらないよう、
	// ログを標準エラーに出力する
	logOut := w
	if cmd == CommandExport {
		logOut = os.Stderr
	}

	cfg, err := Init(logOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	switch cmd {
	case CommandExport:
		return runExport(cfg, w, args[1:])
	case CommandServe:
		return runServe(cfg)
	default:
		return runServe(cfg)
	}
}

// newExportClient は設定からLogs APIクライアントを組み立てる。
// エンドポイントが上書きされている場合は事前に安全性を検証する。
func newExportClient(cfg *config.Config, guard security.EndpointGuardService, recorder appmetrica.MetricsRecorder) (*appmetrica.Client, error) {
	if cfg.Endpoint != "" {
		if err := guard.ValidateEndpoint(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("unsafe endpoint configuration: %w", err)
		}
	}

	return appmetrica.NewClient(appmetrica.ClientConfig{
		Token:      cfg.Token,
		HTTPClient: guard.NewSafeClient(cfg.RequestTimeout),
		Logger:     slog.Default(),
		Endpoint:   cfg.Endpoint,
		Policy: appmetrica.RetryPolicy{
			BaseDelay:   cfg.PollBaseDelay,
			MaxDelay:    cfg.PollMaxDelay,
			MaxAttempts: cfg.PollMaxAttempts,
		},
		Metrics: recorder,
	}), nil
}

// runServe はAPIサーバーモードで起動する。
// エクスポートクライアントと全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	slog.Info("starting API server",
		slog.String("port", cfg.ServerPort),
	)

	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. エクスポートクライアントの構築
	guard := security.NewEndpointGuard()
	client, err := newExportClient(cfg, guard, collector)
	if err != nil {
		return err
	}

	// 3. レート制限の構築（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ExportRate = rate.Limit(float64(cfg.RateLimitExport) / 60.0)
	rateLimiterCfg.ExportBurst = cfg.RateLimitExport
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		ExportService:     client,
		Gatherer:          registry,
	})

	// 5. HTTPサーバーの起動
	// エクスポートはポーリング完了までレスポンスを保持するため、
	// WriteTimeoutはポーリング上限に合わせて長めに取る
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PollMaxDelay * time.Duration(cfg.PollMaxAttempts+1),
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runExport はワンショットのエクスポートをCLIとして実行する。
// 結果は-outで指定されたファイル、省略時はwriterに書き込む。
// SIGINTまたはSIGTERMでポーリングを中断できる。
func runExport(cfg *config.Config, w io.Writer, args []string) error {
	opts, err := parseExportFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	guard := security.NewEndpointGuard()
	client, err := newExportClient(cfg, guard, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := client.Export(ctx, opts.Request)
	if err != nil {
		return err
	}

	out := w
	if opts.OutPath != "" {
		f, err := os.Create(opts.OutPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if result.Format == model.FormatCSV {
		if _, err := io.WriteString(out, result.CSV); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.JSON); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
