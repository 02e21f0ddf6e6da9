package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/lltracker/internal/middleware"
	"github.com/hitoshi/lltracker/internal/model"
)

// mockLocationService はテスト用のLocationServiceInterface実装。
type mockLocationService struct {
	recordFn   func(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error)
	recentFn   func(ctx context.Context, username string, n int) ([]*model.LocationPoint, error)
	allFn      func(ctx context.Context, username string) ([]*model.LocationPoint, error)
	eraseAllFn func(ctx context.Context, username string) (int64, error)
}

func (m *mockLocationService) Record(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, username, lat, lon, loggedAt)
	}
	return &model.LocationPoint{ID: "p1", Username: username, Latitude: lat, Longitude: lon, LoggedAt: loggedAt}, nil
}

func (m *mockLocationService) Recent(ctx context.Context, username string, n int) ([]*model.LocationPoint, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, username, n)
	}
	return []*model.LocationPoint{}, nil
}

func (m *mockLocationService) All(ctx context.Context, username string) ([]*model.LocationPoint, error) {
	if m.allFn != nil {
		return m.allFn(ctx, username)
	}
	return []*model.LocationPoint{}, nil
}

func (m *mockLocationService) EraseAll(ctx context.Context, username string) (int64, error) {
	if m.eraseAllFn != nil {
		return m.eraseAllFn(ctx, username)
	}
	return 0, nil
}

// authedRequest は認証済みユーザー名をコンテキストに持つリクエストを作る。
func authedRequest(t *testing.T, method, target, body, username string) *http.Request {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(middleware.ContextWithUsername(req.Context(), username))
}

func TestAddLocation_Success_Returns201(t *testing.T) {
	var gotUsername string
	var gotTime time.Time
	service := &mockLocationService{
		recordFn: func(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error) {
			gotUsername = username
			gotTime = loggedAt
			return &model.LocationPoint{
				ID:        "point-1",
				Username:  username,
				Latitude:  lat,
				Longitude: lon,
				LoggedAt:  loggedAt,
			}, nil
		},
	}
	h := NewLocationHandler(service)

	body := `{"latitude":35.6586,"longitude":139.7454,"logtime":"2026-08-01T12:00:00Z"}`
	req := authedRequest(t, http.MethodPost, "/addlocation", body, "alice")
	w := httptest.NewRecorder()

	h.AddLocation(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if gotUsername != "alice" {
		t.Errorf("username = %q, want %q", gotUsername, "alice")
	}
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if !gotTime.Equal(want) {
		t.Errorf("logged at = %v, want %v", gotTime, want)
	}

	var got locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Latitude != 35.6586 || got.Longitude != 139.7454 {
		t.Errorf("coordinates = (%v, %v), want (35.6586, 139.7454)", got.Latitude, got.Longitude)
	}
	if got.Logtime != "2026-08-01T12:00:00Z" {
		t.Errorf("logtime = %q, want %q", got.Logtime, "2026-08-01T12:00:00Z")
	}
}

// TestAddLocation_BodyUsernameIgnored はボディのusernameではなく
// トークン由来の本人情報で記録されることを検証する。
func TestAddLocation_BodyUsernameIgnored(t *testing.T) {
	var gotUsername string
	service := &mockLocationService{
		recordFn: func(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error) {
			gotUsername = username
			return &model.LocationPoint{ID: "p1", Username: username}, nil
		},
	}
	h := NewLocationHandler(service)

	body := `{"latitude":1,"longitude":2,"username":"mallory"}`
	req := authedRequest(t, http.MethodPost, "/addlocation", body, "alice")
	w := httptest.NewRecorder()

	h.AddLocation(w, req)

	if gotUsername != "alice" {
		t.Errorf("recorded username = %q, want %q (body username must be ignored)", gotUsername, "alice")
	}
}

func TestAddLocation_NoAuth_Returns401(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})

	req := httptest.NewRequest(http.MethodPost, "/addlocation", strings.NewReader(`{"latitude":1,"longitude":2}`))
	w := httptest.NewRecorder()

	h.AddLocation(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var got middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Code != model.ErrCodeTokenRequired {
		t.Errorf("code = %q, want %q", got.Code, model.ErrCodeTokenRequired)
	}
}

func TestAddLocation_InvalidLogtime_Returns400(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})

	body := `{"latitude":1,"longitude":2,"logtime":"not-a-timestamp"}`
	req := authedRequest(t, http.MethodPost, "/addlocation", body, "alice")
	w := httptest.NewRecorder()

	h.AddLocation(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var got middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Code != model.ErrCodeInvalidTimestamp {
		t.Errorf("code = %q, want %q", got.Code, model.ErrCodeInvalidTimestamp)
	}
}

func TestAddLocation_InvalidCoordinate_Returns400(t *testing.T) {
	service := &mockLocationService{
		recordFn: func(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error) {
			return nil, model.NewInvalidCoordinateError("latitude")
		},
	}
	h := NewLocationHandler(service)

	body := `{"latitude":1,"longitude":2}`
	req := authedRequest(t, http.MethodPost, "/addlocation", body, "alice")
	w := httptest.NewRecorder()

	h.AddLocation(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestRecent_PassesLimitFromQuery(t *testing.T) {
	var gotN int
	service := &mockLocationService{
		recentFn: func(ctx context.Context, username string, n int) ([]*model.LocationPoint, error) {
			gotN = n
			return []*model.LocationPoint{}, nil
		},
	}
	h := NewLocationHandler(service)

	req := authedRequest(t, http.MethodGet, "/locations/recent?n=25", "", "alice")
	w := httptest.NewRecorder()

	h.Recent(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotN != 25 {
		t.Errorf("n = %d, want 25", gotN)
	}
}

func TestRecent_InvalidLimit_PassesZero(t *testing.T) {
	var gotN int
	service := &mockLocationService{
		recentFn: func(ctx context.Context, username string, n int) ([]*model.LocationPoint, error) {
			gotN = n
			return []*model.LocationPoint{}, nil
		},
	}
	h := NewLocationHandler(service)

	req := authedRequest(t, http.MethodGet, "/locations/recent?n=abc", "", "alice")
	w := httptest.NewRecorder()

	h.Recent(w, req)

	if gotN != 0 {
		t.Errorf("n = %d, want 0 (service applies the default)", gotN)
	}
}

func TestAll_ReturnsPointsInOrder(t *testing.T) {
	service := &mockLocationService{
		allFn: func(ctx context.Context, username string) ([]*model.LocationPoint, error) {
			return []*model.LocationPoint{
				{ID: "p1", Username: username, Latitude: 1, Longitude: 2, LoggedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
				{ID: "p2", Username: username, Latitude: 3, Longitude: 4, LoggedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	h := NewLocationHandler(service)

	req := authedRequest(t, http.MethodGet, "/locations", "", "alice")
	w := httptest.NewRecorder()

	h.All(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got []locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "p1" || got[1].ID != "p2" {
		t.Errorf("order = (%s, %s), want (p1, p2)", got[0].ID, got[1].ID)
	}
}

func TestAll_EmptyHistory_ReturnsEmptyArray(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})

	req := authedRequest(t, http.MethodGet, "/locations", "", "alice")
	w := httptest.NewRecorder()

	h.All(w, req)

	body := strings.TrimSpace(w.Body.String())
	if body != "[]" {
		t.Errorf("body = %q, want %q (empty array, not null)", body, "[]")
	}
}

func TestErase_ReturnsDeletedCount(t *testing.T) {
	service := &mockLocationService{
		eraseAllFn: func(ctx context.Context, username string) (int64, error) {
			return 7, nil
		},
	}
	h := NewLocationHandler(service)

	req := authedRequest(t, http.MethodDelete, "/locations", "", "alice")
	w := httptest.NewRecorder()

	h.Erase(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got eraseResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Deleted != 7 {
		t.Errorf("deleted = %d, want 7", got.Deleted)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want %q", got.Username, "alice")
	}
}

func TestDemoAddLocation_RecordsWithServerTime(t *testing.T) {
	var gotTime time.Time
	var gotLat, gotLon float64
	service := &mockLocationService{
		recordFn: func(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error) {
			gotTime = loggedAt
			gotLat, gotLon = lat, lon
			return &model.LocationPoint{ID: "p1", Username: username}, nil
		},
	}
	h := NewLocationHandler(service)

	form := "latitude=35.5&longitude=139.5"
	req := authedRequest(t, http.MethodPost, "/demo/addlocation", form, "alice")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.DemoAddLocation(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "/demo/start" {
		t.Errorf("Location = %q, want %q", loc, "/demo/start")
	}
	if gotLat != 35.5 || gotLon != 139.5 {
		t.Errorf("coordinates = (%v, %v), want (35.5, 139.5)", gotLat, gotLon)
	}
	if !gotTime.IsZero() {
		t.Errorf("loggedAt = %v, want zero value (service applies server time)", gotTime)
	}
}

func TestDemoAddLocation_BadCoordinates_RedirectsWithoutRecording(t *testing.T) {
	recorded := false
	service := &mockLocationService{
		recordFn: func(ctx context.Context, username string, lat, lon float64, loggedAt time.Time) (*model.LocationPoint, error) {
			recorded = true
			return &model.LocationPoint{}, nil
		},
	}
	h := NewLocationHandler(service)

	form := "latitude=abc&longitude=139.5"
	req := authedRequest(t, http.MethodPost, "/demo/addlocation", form, "alice")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.DemoAddLocation(w, req)

	if w.Result().StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusFound)
	}
	if recorded {
		t.Error("Record should not be called with unparseable coordinates")
	}
}

func TestDemoDestroy_ErasesAndRedirects(t *testing.T) {
	var erased string
	service := &mockLocationService{
		eraseAllFn: func(ctx context.Context, username string) (int64, error) {
			erased = username
			return 3, nil
		},
	}
	h := NewLocationHandler(service)

	req := authedRequest(t, http.MethodPost, "/demo/destroy", "", "alice")
	w := httptest.NewRecorder()

	h.DemoDestroy(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "/demo/start" {
		t.Errorf("Location = %q, want %q", loc, "/demo/start")
	}
	if erased != "alice" {
		t.Errorf("erased username = %q, want %q", erased, "alice")
	}
}

func TestDemoLocations_NoSession_RedirectsToSignIn(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})

	req := httptest.NewRequest(http.MethodGet, "/demo/locations", nil)
	w := httptest.NewRecorder()

	h.DemoLocations(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "/demo/signin" {
		t.Errorf("Location = %q, want %q", loc, "/demo/signin")
	}
}
