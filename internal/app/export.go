package app

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hitoshi/metricalog/internal/model"
)

// paramFlags は繰り返し指定可能な -param key=value フラグを保持する。
type paramFlags map[string]string

// String はflag.Valueインターフェースを実装する。
func (p paramFlags) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

// Set はkey=value形式の値をパースして登録する。
func (p paramFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("invalid param format (want key=value): %q", value)
	}
	p[key] = val
	return nil
}

// exportOptions はexportサブコマンドのパース済みオプション。
type exportOptions struct {
	Request model.ExportRequest
	OutPath string // 空の場合は標準出力
}

// cliDateLayouts は -from / -to として受け付ける日時フォーマット。
var cliDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseCLIDate はCLIの日時引数をパースする。
func parseCLIDate(value string) (*time.Time, error) {
	for _, layout := range cliDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unsupported date format: %q", value)
}

// parseExportFlags はexportサブコマンドの引数を解析する。
// argsにはサブコマンド名を除いた引数を渡す。
func parseExportFlags(args []string, errOut io.Writer) (*exportOptions, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var (
		resource       = fs.String("resource", "", "エクスポートするリソース名 (events, installations など)")
		appID          = fs.String("app-id", "", "AppMetricaのアプリケーションID")
		fields         = fs.String("fields", "", "エクスポートするフィールドのカンマ区切りリスト（省略時は組み込み定義）")
		from           = fs.String("from", "", "期間の開始日時 (YYYY-MM-DD など)")
		to             = fs.String("to", "", "期間の終了日時 (YYYY-MM-DD など)")
		format         = fs.String("format", "", "エクスポート形式 (csv または json)")
		out            = fs.String("out", "", "出力先ファイルパス（省略時は標準出力）")
		cacheControl   = fs.String("cache-control", "", "Cache-Controlヘッダーの値")
		acceptEncoding = fs.String("accept-encoding", "", "Accept-Encodingヘッダーの値")
	)
	params := paramFlags{}
	fs.Var(params, "param", "追加クエリパラメータ key=value（繰り返し指定可）")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &exportOptions{
		Request: model.ExportRequest{
			Resource:       *resource,
			ApplicationID:  *appID,
			Format:         *format,
			CacheControl:   *cacheControl,
			AcceptEncoding: *acceptEncoding,
		},
		OutPath: *out,
	}

	if *fields != "" {
		opts.Request.Fields = strings.Split(*fields, ",")
	}
	if len(params) > 0 {
		opts.Request.ExtraParams = params
	}

	if *from != "" {
		t, err := parseCLIDate(*from)
		if err != nil {
			return nil, fmt.Errorf("invalid -from: %w", err)
		}
		opts.Request.DateFrom = t
	}
	if *to != "" {
		t, err := parseCLIDate(*to)
		if err != nil {
			return nil, fmt.Errorf("invalid -to: %w", err)
		}
		opts.Request.DateTo = t
	}

	return opts, nil
}
