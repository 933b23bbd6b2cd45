package appmetrica

import "time"

// ExportStatus はHTTPステータスコードに基づくエクスポート応答の分類。
type ExportStatus int

const (
	// ExportStatusReady はエクスポート完了（200）。
	ExportStatusReady ExportStatus = iota
	// ExportStatusPreparing はエクスポート準備中（201/202）。
	ExportStatusPreparing
	// ExportStatusFailed は確定的な失敗ステータス（その他すべて）。
	ExportStatusFailed
)

const (
	// defaultBaseDelay は指数バックオフの初回遅延（10秒）。
	defaultBaseDelay = 10 * time.Second
	// defaultMaxDelay は指数バックオフの最大遅延（5分）。
	defaultMaxDelay = 5 * time.Minute
	// defaultMaxAttempts はポーリング再試行の上限回数。
	defaultMaxAttempts = 10
)

// RetryPolicy はエクスポート準備中のポーリング挙動を定義する。
type RetryPolicy struct {
	BaseDelay   time.Duration // 初回バックオフ遅延
	MaxDelay    time.Duration // バックオフ遅延の上限
	MaxAttempts int           // 再試行（スリープ）回数の上限。超過するとタイムアウトエラー
}

// DefaultRetryPolicy はデフォルトのポーリング設定を返す。
// 初回10秒、2倍ずつ増加、最大5分、再試行上限10回。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		MaxAttempts: defaultMaxAttempts,
	}
}

// ClassifyExportStatus はHTTPステータスコードをエクスポート応答に分類する。
// 200は完了、201/202はエクスポートファイルの準備中を意味する。
func ClassifyExportStatus(statusCode int) ExportStatus {
	switch statusCode {
	case 200:
		return ExportStatusReady
	case 201, 202:
		return ExportStatusPreparing
	default:
		return ExportStatusFailed
	}
}

// CalculateBackoff は再試行回数に基づいて指数バックオフ遅延を計算する。
// baseDelayから2倍ずつ増加し、maxDelayを超えない。
func CalculateBackoff(retryCount int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay > maxDelay {
			return maxDelay
		}
	}
	return delay
}
