package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// maxBodyBytes はJSONリクエストボディの最大サイズ。
const maxBodyBytes = 1 << 20 // 1MB

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSONBody はJSONリクエストボディをデコードする。
// サイズ上限を超えるボディと未知の形式のボディはエラーを返す。
func decodeJSONBody(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
