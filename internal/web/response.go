package web

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
)

// resultResponse はWeb層の成否レスポンス。
type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Reset   *bool  `json:"reset,omitempty"`
	ID      string `json:"id,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// isFormRequest はHTMLフォーム送信かを判定する。
func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}
