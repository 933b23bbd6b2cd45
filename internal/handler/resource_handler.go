package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/metricalog/internal/schema"
)

// ResourceHandler はエクスポート可能リソースの参照ハンドラー。
type ResourceHandler struct{}

// NewResourceHandler はResourceHandlerを生成する。
func NewResourceHandler() *ResourceHandler {
	return &ResourceHandler{}
}

// resourceResponse はリソース情報のAPIレスポンス。
type resourceResponse struct {
	Name            string   `json:"name"`
	Fields          []string `json:"fields,omitempty"`
	DateRangeExempt bool     `json:"date_range_exempt"`
}

// ListResources はエクスポート可能なリソースの一覧を返す。
// GET /api/resources
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	names := schema.Resources()

	resources := make([]resourceResponse, 0, len(names))
	for _, name := range names {
		res := resourceResponse{
			Name:            name,
			DateRangeExempt: schema.IsDateRangeExempt(name),
		}
		if fields, ok := schema.Fields(name); ok {
			res.Fields = fields
		}
		resources = append(resources, res)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"resources": resources,
	})
}
