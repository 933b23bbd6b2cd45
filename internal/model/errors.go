// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ExportError は統一エラーフォーマットを表す。
// クライアント側検証エラー・APIエラー・タイムアウトをカテゴリで区別し、
// 呼び出し元に表示する対処方法を含む。
type ExportError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	Category   string // カテゴリ: client, api, timeout
	Action     string // 呼び出し元向け対処方法
	StatusCode int    // APIエラー時のHTTPステータスコード（それ以外は0）
	Err        error  // 原因となったエラー（トランスポート障害など）
}

// Error はerrorインターフェースを実装する。
func (e *ExportError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因となったエラーを返す。errors.Is/Asの連鎖に対応する。
func (e *ExportError) Unwrap() error {
	return e.Err
}

// エラーカテゴリ
const (
	CategoryClient  = "client"
	CategoryAPI     = "api"
	CategoryTimeout = "timeout"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeResourceNotExportable = "RESOURCE_NOT_EXPORTABLE"
	ErrCodeFieldsRequired        = "FIELDS_REQUIRED"
	ErrCodeDateRangeRequired     = "DATE_RANGE_REQUIRED"
	ErrCodeInvalidExportFormat   = "INVALID_EXPORT_FORMAT"
	ErrCodeAPIStatus             = "API_STATUS_ERROR"
	ErrCodeTransportFailed       = "TRANSPORT_FAILED"
	ErrCodeExportTimeout         = "EXPORT_TIMEOUT"
	ErrCodeExportCanceled        = "EXPORT_CANCELED"
	ErrCodeParseFailed           = "PARSE_FAILED"
)

// IsClientError はエラーがクライアント側起因（入力検証・トランスポート障害）かを判定する。
func IsClientError(err error) bool {
	return categoryOf(err) == CategoryClient
}

// IsAPIError はエラーがAPIの確定的な失敗応答に起因するかを判定する。
func IsAPIError(err error) bool {
	return categoryOf(err) == CategoryAPI
}

// IsTimeoutError はエラーがポーリング上限超過に起因するかを判定する。
func IsTimeoutError(err error) bool {
	return categoryOf(err) == CategoryTimeout
}

func categoryOf(err error) string {
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Category
	}
	return ""
}

// NewInvalidRequestError は必須入力の欠落エラーを生成する。
func NewInvalidRequestError(reason string) *ExportError {
	return &ExportError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: CategoryClient,
		Action:   "resource と application_id を指定してください。",
	}
}

// NewResourceNotExportableError はエクスポート不可能なリソース指定エラーを生成する。
func NewResourceNotExportableError(resource string) *ExportError {
	return &ExportError{
		Code:     ErrCodeResourceNotExportable,
		Message:  fmt.Sprintf("リソース %s はエクスポートできません。", resource),
		Category: CategoryClient,
		Action:   "Logs APIがサポートするリソース名を指定してください。",
	}
}

// NewFieldsRequiredError は組み込みスキーマを持たないリソースに対する
// フィールド未指定エラーを生成する。
func NewFieldsRequiredError(resource string) *ExportError {
	return &ExportError{
		Code:     ErrCodeFieldsRequired,
		Message:  fmt.Sprintf("リソース %s には組み込みのフィールド定義がないため、fields の明示指定が必要です。", resource),
		Category: CategoryClient,
		Action:   "エクスポートするフィールドのリストを指定してください。",
	}
}

// NewDateRangeRequiredError は日付範囲の欠落エラーを生成する。
func NewDateRangeRequiredError(resource string) *ExportError {
	return &ExportError{
		Code:     ErrCodeDateRangeRequired,
		Message:  fmt.Sprintf("リソース %s には日付範囲の指定が必要です - パラメータ date_from と date_to", resource),
		Category: CategoryClient,
		Action:   "date_from と date_to の両方を指定してください。",
	}
}

// NewInvalidExportFormatError はサポート外のエクスポート形式エラーを生成する。
func NewInvalidExportFormatError(format string) *ExportError {
	return &ExportError{
		Code:     ErrCodeInvalidExportFormat,
		Message:  fmt.Sprintf("サポートされていないエクスポート形式です: %s", format),
		Category: CategoryClient,
		Action:   "export_format には csv または json を指定してください。",
	}
}

// NewAPIStatusError はAPIが確定的な失敗ステータスを返した場合のエラーを生成する。
// 診断のためレスポンスボディをメッセージに含める。
func NewAPIStatusError(statusCode int, body string) *ExportError {
	return &ExportError{
		Code:       ErrCodeAPIStatus,
		Message:    fmt.Sprintf("APIがステータス %d を返しました: %s", statusCode, body),
		Category:   CategoryAPI,
		Action:     "トークンの権限とリクエストパラメータを確認してください。",
		StatusCode: statusCode,
	}
}

// NewTransportError はトランスポートレベルの接続失敗エラーを生成する。
func NewTransportError(err error) *ExportError {
	return &ExportError{
		Code:     ErrCodeTransportFailed,
		Message:  fmt.Sprintf("APIへの接続に失敗しました: %s", err.Error()),
		Category: CategoryClient,
		Action:   "ネットワーク接続とエンドポイント設定を確認してください。",
		Err:      err,
	}
}

// NewExportTimeoutError はポーリング再試行の上限超過エラーを生成する。
func NewExportTimeoutError(attempts int) *ExportError {
	return &ExportError{
		Code:     ErrCodeExportTimeout,
		Message:  fmt.Sprintf("エクスポートが %d 回のポーリングで完了しませんでした。", attempts),
		Category: CategoryTimeout,
		Action:   "時間をおいて再実行するか、ポーリング上限を引き上げてください。",
	}
}

// NewExportCanceledError はポーリング待機中のキャンセルエラーを生成する。
func NewExportCanceledError(cause error) *ExportError {
	return &ExportError{
		Code:     ErrCodeExportCanceled,
		Message:  "エクスポートがキャンセルされました。",
		Category: CategoryClient,
		Action:   "必要であれば再実行してください。",
		Err:      cause,
	}
}

// NewParseFailedError はJSONレスポンスのパース失敗エラーを生成する。
func NewParseFailedError(err error) *ExportError {
	return &ExportError{
		Code:     ErrCodeParseFailed,
		Message:  fmt.Sprintf("レスポンスJSONのパースに失敗しました: %s", err.Error()),
		Category: CategoryClient,
		Action:   "export_format の指定とAPIの応答内容を確認してください。",
		Err:      err,
	}
}
