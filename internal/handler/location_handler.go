package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/lltracker/internal/middleware"
	"github.com/hitoshi/lltracker/internal/model"
)

// LocationServiceInterface は位置情報ハンドラーが必要とするサービスインターフェース。
type LocationServiceInterface interface {
	Record(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error)
	Recent(ctx context.Context, username string, n int) ([]*model.LocationPoint, error)
	All(ctx context.Context, username string) ([]*model.LocationPoint, error)
	EraseAll(ctx context.Context, username string) (int64, error)
}

// LocationHandler は位置情報記録・照会のHTTPハンドラー。
type LocationHandler struct {
	service LocationServiceInterface
}

// NewLocationHandler はLocationHandlerを生成する。
func NewLocationHandler(service LocationServiceInterface) *LocationHandler {
	return &LocationHandler{service: service}
}

// addLocationRequest はアプリからの位置記録リクエストボディ。
// usernameフィールドは互換性のため受け付けるが、記録にはトークンの
// 本人情報を使用する。
type addLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Logtime   string  `json:"logtime"`
	Username  string  `json:"username"`
}

// locationResponse は位置情報1点のレスポンス表現。
type locationResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Logtime   string  `json:"logtime"`
}

func toLocationResponse(p *model.LocationPoint) locationResponse {
	return locationResponse{
		ID:        p.ID,
		Username:  p.Username,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Logtime:   p.LoggedAt.UTC().Format(time.RFC3339),
	}
}

func toLocationResponses(points []*model.LocationPoint) []locationResponse {
	out := make([]locationResponse, 0, len(points))
	for _, p := range points {
		out = append(out, toLocationResponse(p))
	}
	return out
}

// AddLocation はアプリからの位置記録を処理する。
// POST /addlocation
// logtimeはRFC3339形式のクライアント時刻。省略時はサーバー時刻を使用する。
// 成功時は201で記録されたポイントを返す。
func (h *LocationHandler) AddLocation(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenRequiredError())
		return
	}

	var req addLocationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidCoordinateError("body"))
		return
	}

	var loggedAt time.Time
	if req.Logtime != "" {
		loggedAt, err = time.Parse(time.RFC3339, req.Logtime)
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidTimestampError(req.Logtime))
			return
		}
	}

	point, err := h.service.Record(r.Context(), username, req.Latitude, req.Longitude, loggedAt)
	if err != nil {
		h.writeRecordError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLocationResponse(point))
}

// Recent は直近N件の位置情報を新しい順に返す。
// GET /locations/recent?n=10
// nが未指定または不正な場合は10件を返す。
func (h *LocationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenRequiredError())
		return
	}

	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			n = parsed
		}
	}

	points, err := h.service.Recent(r.Context(), username, n)
	if err != nil {
		slog.Error("failed to list recent locations", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, toLocationResponses(points))
}

// All は全位置履歴を古い順（移動経路順）に返す。
// GET /locations
func (h *LocationHandler) All(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenRequiredError())
		return
	}

	points, err := h.service.All(r.Context(), username)
	if err != nil {
		slog.Error("failed to list locations", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, toLocationResponses(points))
}

// eraseResponse は履歴削除のレスポンスボディ。
type eraseResponse struct {
	Username string `json:"username"`
	Deleted  int64  `json:"deleted"`
}

// Erase は本人の全位置履歴を削除する。
// DELETE /locations
// 削除件数を返す。履歴が空の場合も200で件数0を返す。
func (h *LocationHandler) Erase(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenRequiredError())
		return
	}

	deleted, err := h.service.EraseAll(r.Context(), username)
	if err != nil {
		slog.Error("failed to erase locations", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, eraseResponse{
		Username: username,
		Deleted:  deleted,
	})
}

// DemoAddLocation はWebデモのフォームからの位置記録を処理する。
// POST /demo/addlocation
// サーバー時刻で記録し、/demo/startにリダイレクトする。
func (h *LocationHandler) DemoAddLocation(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/demo/signin", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/demo/start", http.StatusFound)
		return
	}

	lat, latErr := strconv.ParseFloat(r.PostFormValue("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(r.PostFormValue("longitude"), 64)
	if latErr != nil || lonErr != nil {
		http.Redirect(w, r, "/demo/start", http.StatusFound)
		return
	}

	if _, err := h.service.Record(r.Context(), username, lat, lon, time.Time{}); err != nil {
		slog.Error("failed to record demo location", slog.String("error", err.Error()))
	}

	http.Redirect(w, r, "/demo/start", http.StatusFound)
}

// DemoDestroy はWebデモからの全履歴削除を処理する。
// POST /demo/destroy
func (h *LocationHandler) DemoDestroy(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/demo/signin", http.StatusFound)
		return
	}

	if _, err := h.service.EraseAll(r.Context(), username); err != nil {
		slog.Error("failed to erase demo locations", slog.String("error", err.Error()))
	}

	http.Redirect(w, r, "/demo/start", http.StatusFound)
}

// DemoLocations はWebデモ向けに本人の全履歴をJSONで返す。
// GET /demo/locations
func (h *LocationHandler) DemoLocations(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/demo/signin", http.StatusFound)
		return
	}

	points, err := h.service.All(r.Context(), username)
	if err != nil {
		slog.Error("failed to list demo locations", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, toLocationResponses(points))
}

// writeRecordError は位置記録エラーをHTTPレスポンスに変換する。
func (h *LocationHandler) writeRecordError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	slog.Error("failed to record location", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
