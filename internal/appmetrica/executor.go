package appmetrica

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/metricalog/internal/model"
)

// executeWithPolling は1つの論理エクスポートリクエストを実行する。
// APIが準備中（201/202）を返す間は指数バックオフで同一リクエストを
// 再発行し、完了（200）でレスポンスボディを返す。
// それ以外のステータスとトランスポート障害は初回で確定エラーになる。
// キャンセルはバックオフ待機中と送信中のリクエストの両方に効く。
func (c *Client) executeWithPolling(ctx context.Context, resource, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	retryCount := 0

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, model.NewInvalidRequestError("リクエストの作成に失敗しました: " + err.Error())
		}
		req.URL.RawQuery = params.Encode()
		req.Header = headers.Clone()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("Logs APIへのリクエストに失敗しました",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return nil, model.NewTransportError(err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.metrics.RecordHTTPStatus(resp.StatusCode)

		switch ClassifyExportStatus(resp.StatusCode) {
		case ExportStatusReady:
			if readErr != nil {
				return nil, model.NewTransportError(readErr)
			}
			return body, nil

		case ExportStatusPreparing:
			retryCount++
			if retryCount > c.policy.MaxAttempts {
				c.logger.Warn("ポーリング上限に達しました",
					slog.String("resource", resource),
					slog.Int("attempts", c.policy.MaxAttempts),
				)
				return nil, model.NewExportTimeoutError(c.policy.MaxAttempts)
			}

			delay := CalculateBackoff(retryCount-1, c.policy.BaseDelay, c.policy.MaxDelay)
			c.logger.Info("エクスポートは準備中です",
				slog.String("resource", resource),
				slog.Int("http_status", resp.StatusCode),
				slog.Int("retry_count", retryCount),
				slog.Duration("backoff", delay),
			)
			c.metrics.RecordPollRetry(resource)

			if err := sleepContext(ctx, delay); err != nil {
				return nil, model.NewExportCanceledError(err)
			}

		default:
			c.logger.Error("Logs APIがエラーステータスを返しました",
				slog.String("resource", resource),
				slog.Int("http_status", resp.StatusCode),
			)
			return nil, model.NewAPIStatusError(resp.StatusCode, string(body))
		}
	}
}

// sleepContext はキャンセル可能なスリープ。
// コンテキストが先にキャンセルされた場合はその原因を返す。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
