package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/assetdesk/internal/history"
	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
)

// maxHistoryBodyBytes は履歴1件の最大サイズ。
const maxHistoryBodyBytes = 64 << 10

// HistoryStoreInterface は履歴ストアのインターフェース。
type HistoryStoreInterface interface {
	Append(ctx context.Context, source string, entry any, actorID int64) (*history.Record, error)
	List(ctx context.Context, source string) ([]history.Record, error)
}

// HistoryHandler は操作履歴のHTTPハンドラー。
// 認証済みCookieが前提で、CookieAuthミドルウェアの内側に配置する。
type HistoryHandler struct {
	store HistoryStoreInterface
}

// NewHistoryHandler はHistoryHandlerの新しいインスタンスを生成する。
func NewHistoryHandler(store HistoryStoreInterface) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// appendHistoryRequest は履歴追加のリクエストボディ。
type appendHistoryRequest struct {
	Source string `json:"source"`
	Entry  any    `json:"entry"`
}

// List は履歴を新しい順に返す。?source= で絞り込める。
// GET /api/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		slog.Error("failed to read history", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Append は履歴を1件追加する。実行者はCookieのトークンから取得する。
// POST /api/history
func (h *HistoryHandler) Append(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req appendHistoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHistoryBodyBytes)).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDataError(""))
		return
	}

	rec, err := h.store.Append(r.Context(), req.Source, req.Entry, actorID)
	if err != nil {
		if errors.Is(err, history.ErrInvalidRecord) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidDataError("Origem e registro são obrigatórios"))
			return
		}
		slog.Error("failed to append history",
			slog.Int64("actor_id", actorID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusCreated, resultResponse{Success: true, ID: rec.ID})
}
