package model

import "time"

// エクスポート形式
const (
	// FormatCSV はCSVテキスト形式を示す。指定がない場合のデフォルト。
	FormatCSV = "csv"
	// FormatJSON はJSONドキュメント形式を示す。
	FormatJSON = "json"
)

// ExportRequest は1回のエクスポート呼び出しの入力値。
// 呼び出しごとに構築し、使い捨てる。
type ExportRequest struct {
	Resource       string            // Logs APIのリソース名（events, installations など）
	ApplicationID  string            // AppMetricaのアプリケーションID
	Fields         []string          // 取得フィールド。未指定の場合は組み込みスキーマで補完する
	DateFrom       *time.Time        // 日付範囲の開始（秒精度）
	DateTo         *time.Time        // 日付範囲の終了（秒精度）
	Format         string            // csv/json。空の場合はcsv
	CacheControl   string            // Cache-Controlヘッダー。再生成か生成済みファイルの再利用かを制御する
	AcceptEncoding string            // Accept-Encodingヘッダー（gzip圧縮の要求など）
	ExtraParams    map[string]string // リソース固有の追加クエリパラメータ。そのまま転送する
}

// JSONDocument はJSONエクスポートのレスポンスドキュメント。
// Logs APIは {"data": [...]} 形式で返す。
type JSONDocument struct {
	Data []map[string]any `json:"data"`
}

// ExportResult はエクスポート結果。FormatがCSVの場合はCSVに生テキスト、
// JSONの場合はJSONにパース済みドキュメントが入る。
type ExportResult struct {
	Format string
	CSV    string
	JSON   *JSONDocument
}
