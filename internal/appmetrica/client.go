// Package appmetrica はAppMetrica Logs APIのエクスポートクライアントを提供する。
// エクスポートリクエストの組み立てと、非同期エクスポートのポーリングプロトコル
// （200=完了、201/202=準備中）の実装を含む。
package appmetrica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/metricalog/internal/model"
	"github.com/hitoshi/metricalog/internal/schema"
)

const (
	// DefaultEndpoint はLogs APIのエクスポートエンドポイント。
	DefaultEndpoint = "https://api.appmetrica.yandex.ru/logs/v1/export"
	// dateTimeLayout はdate_since/date_untilパラメータの日時フォーマット。
	dateTimeLayout = "2006-01-02 15:04:05"
)

// MetricsRecorder はエクスポート処理のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordExportSuccess(resource string)
	RecordExportFailure(resource string, code string)
	RecordPollRetry(resource string)
	RecordHTTPStatus(statusCode int)
	RecordExportLatency(duration time.Duration)
	RecordExportedBytes(n int)
}

// noopRecorder はメトリクス未設定時に使用する何もしない実装。
type noopRecorder struct{}

func (noopRecorder) RecordExportSuccess(string)         {}
func (noopRecorder) RecordExportFailure(string, string) {}
func (noopRecorder) RecordPollRetry(string)             {}
func (noopRecorder) RecordHTTPStatus(int)               {}
func (noopRecorder) RecordExportLatency(time.Duration)  {}
func (noopRecorder) RecordExportedBytes(int)            {}

// ClientConfig はClientの生成パラメータ。
type ClientConfig struct {
	Token      string          // OAuth認証トークン
	HTTPClient *http.Client    // 送信に使用するHTTPクライアント
	Logger     *slog.Logger    // 構造化ログの出力先
	Endpoint   string          // エクスポートエンドポイント。空の場合はDefaultEndpoint
	Policy     RetryPolicy     // ポーリング設定。ゼロ値の場合はDefaultRetryPolicy
	Metrics    MetricsRecorder // メトリクス記録先。nilの場合は記録しない
}

// Client はLogs APIのエクスポートクライアント。
// 認証トークンとエンドポイントを保持し、生成後は変更しない。
// 状態をすべて読み取り専用で持つため、複数ゴルーチンから同時に利用できる。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	endpoint   string // テスト用にエンドポイントを差し替え可能
	policy     RetryPolicy
	metrics    MetricsRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(cfg ClientConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	policy := cfg.Policy
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = defaultBaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = defaultMaxDelay
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultMaxAttempts
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopRecorder{}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		token:      cfg.Token,
		endpoint:   endpoint,
		policy:     policy,
		metrics:    metrics,
	}
}

// Export はリソースからデータをエクスポートする。
// 入力を検証し、リクエストを組み立て、エクスポートが完了するまで
// ポーリングした上で、形式に応じてデコードした結果を返す。
// ネットワーク呼び出しの前にすべてのクライアント側検証を行う。
func (c *Client) Export(ctx context.Context, req model.ExportRequest) (*model.ExportResult, error) {
	// 1. エクスポート形式の解決。未指定はcsv
	format := req.Format
	if format == "" {
		format = model.FormatCSV
	}
	if format != model.FormatCSV && format != model.FormatJSON {
		return nil, model.NewInvalidExportFormatError(req.Format)
	}

	if req.Resource == "" {
		return nil, model.NewInvalidRequestError("resource が空です")
	}
	if req.ApplicationID == "" {
		return nil, model.NewInvalidRequestError("application_id が空です")
	}

	// 2. リソースの検証。エクスポート可能集合はスキーマの有無とは独立
	if !schema.IsExportable(req.Resource) {
		return nil, model.NewResourceNotExportableError(req.Resource)
	}

	// 3. フィールドの解決。明示指定がレジストリ補完より常に優先される
	var fields string
	if len(req.Fields) > 0 {
		fields = strings.Join(req.Fields, ",")
	} else if registered, ok := schema.Fields(req.Resource); ok {
		fields = strings.Join(registered, ",")
	} else {
		return nil, model.NewFieldsRequiredError(req.Resource)
	}

	// 4. ヘッダーの組み立て
	headers := http.Header{}
	headers.Set("Authorization", "OAuth "+c.token)
	// 再リクエスト時に新しいファイルを生成するか生成済みを返すかの制御
	if req.CacheControl != "" {
		headers.Set("Cache-Control", req.CacheControl)
	}
	// gzip圧縮など
	if req.AcceptEncoding != "" {
		headers.Set("Accept-Encoding", req.AcceptEncoding)
	}

	// 5. クエリパラメータの組み立て
	params := url.Values{}
	params.Set("application_id", req.ApplicationID)
	params.Set("fields", fields)
	for key, value := range req.ExtraParams {
		params.Set(key, value)
	}

	// 6. 日付範囲。profilesとpush_tokens以外は両端が必須
	if !schema.IsDateRangeExempt(req.Resource) {
		if req.DateFrom == nil || req.DateTo == nil {
			return nil, model.NewDateRangeRequiredError(req.Resource)
		}
		params.Set("date_since", req.DateFrom.Format(dateTimeLayout))
		params.Set("date_until", req.DateTo.Format(dateTimeLayout))
	}

	apiURL := fmt.Sprintf("%s/%s.%s", c.endpoint, req.Resource, format)

	// 7. ポーリング付きで実行
	start := time.Now()
	body, err := c.executeWithPolling(ctx, req.Resource, apiURL, params, headers)
	if err != nil {
		c.metrics.RecordExportFailure(req.Resource, errorCode(err))
		return nil, err
	}

	duration := time.Since(start)
	c.metrics.RecordExportSuccess(req.Resource)
	c.metrics.RecordExportLatency(duration)
	c.metrics.RecordExportedBytes(len(body))

	c.logger.Info("エクスポートが完了しました",
		slog.String("resource", req.Resource),
		slog.String("format", format),
		slog.Int("bytes", len(body)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	// 8. デコード。csvは生テキスト、jsonはパース済みドキュメント
	if format == model.FormatCSV {
		return &model.ExportResult{Format: format, CSV: string(body)}, nil
	}

	var doc model.JSONDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		c.logger.Error("レスポンスJSONのパースに失敗しました",
			slog.String("resource", req.Resource),
			slog.String("error", err.Error()),
		)
		return nil, model.NewParseFailedError(err)
	}
	return &model.ExportResult{Format: format, JSON: &doc}, nil
}

// errorCode はメトリクスラベル用にエラーコードを取り出す。
func errorCode(err error) string {
	var exportErr *model.ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Code
	}
	return "UNKNOWN"
}
