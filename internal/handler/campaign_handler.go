package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/pingman/internal/middleware"
	"github.com/hitoshi/pingman/internal/model"
)

// CampaignServiceInterface はキャンペーンハンドラーが必要とするサービスインターフェース。
type CampaignServiceInterface interface {
	Submit(ctx context.Context, username, rawDays, rawURLs string) model.SubmissionResult
}

// CampaignHandler はキャンペーン送信のHTTPハンドラー。
type CampaignHandler struct {
	service CampaignServiceInterface
}

// NewCampaignHandler はCampaignHandlerを生成する。
func NewCampaignHandler(service CampaignServiceInterface) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// submitRequest はキャンペーン送信リクエストのボディ。
// 検証はパイプライン側で行うため、両フィールドとも生の文字列のまま受ける。
type submitRequest struct {
	Days string `json:"days"`
	URLs string `json:"urls"`
}

// submitResponse はキャンペーン送信レスポンスのボディ。
type submitResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Submit はキャンペーン送信リクエストを処理する。
// POST /api/campaigns
//
// 受理は200、検証による却下は422を返す。外部APIの成否はレスポンスに現れない。
func (h *CampaignHandler) Submit(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := h.service.Submit(r.Context(), username, req.Days, req.URLs)

	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(submitResponse{
		OK:      result.OK,
		Message: result.Message,
	})
}
