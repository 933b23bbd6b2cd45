// Package handler はAPIサーバーのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/metricalog/internal/model"
)

// ExportServiceInterface はエクスポートハンドラーが必要とするサービスインターフェース。
type ExportServiceInterface interface {
	// Export はLogs APIからリソースのデータをエクスポートする。
	Export(ctx context.Context, req model.ExportRequest) (*model.ExportResult, error)
}

// ExportHandler はエクスポート実行のHTTPハンドラー。
type ExportHandler struct {
	service ExportServiceInterface
}

// NewExportHandler はExportHandlerを生成する。
func NewExportHandler(service ExportServiceInterface) *ExportHandler {
	return &ExportHandler{
		service: service,
	}
}

// exportRequest はエクスポート実行リクエストのボディ。
type exportRequest struct {
	Resource       string            `json:"resource"`
	ApplicationID  string            `json:"application_id"`
	Fields         []string          `json:"fields,omitempty"`
	DateFrom       string            `json:"date_from,omitempty"`
	DateTo         string            `json:"date_to,omitempty"`
	ExportFormat   string            `json:"export_format,omitempty"`
	CacheControl   string            `json:"cache_control,omitempty"`
	AcceptEncoding string            `json:"accept_encoding,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// dateLayouts はdate_from/date_toとして受け付ける日時フォーマット。
// 上から順に試行する。
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate はリクエストボディの日時文字列をパースする。
func parseDate(value string) (*time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unsupported date format: " + value)
}

// CreateExport はエクスポート実行を処理する。
// POST /api/exports
// エクスポートはLogs API側の準備が完了するまでポーリングするため、
// レスポンスまで数分かかることがある。
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.ExportError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: model.CategoryClient,
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	exportReq := model.ExportRequest{
		Resource:       req.Resource,
		ApplicationID:  req.ApplicationID,
		Fields:         req.Fields,
		Format:         req.ExportFormat,
		CacheControl:   req.CacheControl,
		AcceptEncoding: req.AcceptEncoding,
		ExtraParams:    req.Params,
	}

	if req.DateFrom != "" {
		from, err := parseDate(req.DateFrom)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("date_from の形式が不正です"))
			return
		}
		exportReq.DateFrom = from
	}
	if req.DateTo != "" {
		to, err := parseDate(req.DateTo)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("date_to の形式が不正です"))
			return
		}
		exportReq.DateTo = to
	}

	result, err := h.service.Export(r.Context(), exportReq)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.Format == model.FormatCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(result.CSV))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result.JSON)
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, exportErr *model.ExportError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     exportErr.Code,
		Message:  exportErr.Message,
		Category: exportErr.Category,
		Action:   exportErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var exportErr *model.ExportError
	if errors.As(err, &exportErr) {
		statusCode := mapExportErrorToHTTPStatus(exportErr)
		writeAPIErrorResponse(w, statusCode, exportErr)
		return
	}

	// ExportError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.ExportError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapExportErrorToHTTPStatus はエラーコードからHTTPステータスコードにマッピングする。
func mapExportErrorToHTTPStatus(exportErr *model.ExportError) int {
	switch exportErr.Code {
	case model.ErrCodeResourceNotExportable:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidRequest,
		model.ErrCodeFieldsRequired,
		model.ErrCodeDateRangeRequired,
		model.ErrCodeInvalidExportFormat:
		return http.StatusBadRequest
	case model.ErrCodeAPIStatus,
		model.ErrCodeTransportFailed,
		model.ErrCodeParseFailed:
		return http.StatusBadGateway
	case model.ErrCodeExportTimeout,
		model.ErrCodeExportCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
