package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ttvtimotheus/dsbbutbetter/internal/dto"
	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
	"github.com/ttvtimotheus/dsbbutbetter/internal/service"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock DSBService ──

type mockDSBService struct {
	latestResult   *dto.TimetableResponse
	latestErr      error
	specificResult *dto.TimetableResponse
	specificErr    error
	cachedResult   *dto.TimetableResponse
	cachedErr      error
}

func (m *mockDSBService) AcquireLatest(_ context.Context, _, _ string) (*dto.TimetableResponse, error) {
	return m.latestResult, m.latestErr
}
func (m *mockDSBService) AcquireSpecific(_ context.Context, _, _, _ string) (*dto.TimetableResponse, error) {
	return m.specificResult, m.specificErr
}
func (m *mockDSBService) ReadCached(_ context.Context, _ string) (*dto.TimetableResponse, error) {
	return m.cachedResult, m.cachedErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportExcel(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportICS(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func doJSON(handler gin.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Handle(method, "/test", handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	return &resp
}

func timetablePayload() *dto.TimetableResponse {
	return &dto.TimetableResponse{
		Timetable:        model.PlaceholderTimetable(),
		AvailablePlans:   []model.PlanRef{{URL: "https://img.example/kw36.png", Title: "MTA KW36"}},
		AvailableClasses: []string{"MTL 01"},
		LastUpdated:      "2024-01-01 08:00:00",
		Status:           "success",
	}
}

// ═══════════════════════════════════════════════════════════
// DSBHandler
// ═══════════════════════════════════════════════════════════

func TestParsePlan(t *testing.T) {
	h := NewDSBHandler(&mockDSBService{latestResult: timetablePayload()})

	w := doJSON(h.ParsePlan, http.MethodPost, "/test", `{"username":"alice","password":"geheim"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码不符: %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Code != 0 {
		t.Errorf("业务码不符: %d", resp.Code)
	}
}

func TestParsePlan_MissingCredentials(t *testing.T) {
	h := NewDSBHandler(&mockDSBService{})

	w := doJSON(h.ParsePlan, http.MethodPost, "/test", `{"username":"alice"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("状态码不符: %d", w.Code)
	}
	if resp := decodeResponse(t, w); resp.Code != 10001 {
		t.Errorf("业务码不符: %d", resp.Code)
	}
}

func TestParsePlan_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"认证失败", service.ErrDSBAuthFailed, http.StatusUnauthorized, 16001},
		{"未找到课表", service.ErrDSBNoPlan, http.StatusNotFound, 16002},
		{"获取失败", service.ErrDSBFetchFailed, http.StatusInternalServerError, 16004},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDSBHandler(&mockDSBService{latestErr: tt.err})
			w := doJSON(h.ParsePlan, http.MethodPost, "/test", `{"username":"alice","password":"geheim"}`)
			if w.Code != tt.wantStatus {
				t.Errorf("状态码不符: %d", w.Code)
			}
			if resp := decodeResponse(t, w); resp.Code != tt.wantCode {
				t.Errorf("业务码不符: %d", resp.Code)
			}
		})
	}
}

func TestGetSpecificPlan_InvalidURL(t *testing.T) {
	h := NewDSBHandler(&mockDSBService{specificResult: timetablePayload()})

	// plan_url 必须是合法 URL
	w := doJSON(h.GetSpecificPlan, http.MethodPost, "/test",
		`{"username":"alice","password":"geheim","plan_url":"kein-url"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("状态码不符: %d", w.Code)
	}
}

func TestGetSpecificPlan(t *testing.T) {
	h := NewDSBHandler(&mockDSBService{specificResult: timetablePayload()})

	w := doJSON(h.GetSpecificPlan, http.MethodPost, "/test",
		`{"username":"alice","password":"geheim","plan_url":"https://img.example/kw36.png"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码不符: %d", w.Code)
	}
}

func TestGetLatest(t *testing.T) {
	h := NewDSBHandler(&mockDSBService{cachedResult: timetablePayload()})

	w := doJSON(h.GetLatest, http.MethodGet, "/test?username=alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码不符: %d", w.Code)
	}
}

func TestGetLatest_MissingUsername(t *testing.T) {
	h := NewDSBHandler(&mockDSBService{})

	w := doJSON(h.GetLatest, http.MethodGet, "/test", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("状态码不符: %d", w.Code)
	}
}

func TestGetLatest_NotCached(t *testing.T) {
	h := NewDSBHandler(&mockDSBService{cachedErr: service.ErrDSBNotCached})

	w := doJSON(h.GetLatest, http.MethodGet, "/test?username=alice", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("状态码不符: %d", w.Code)
	}
	if resp := decodeResponse(t, w); resp.Code != 16003 {
		t.Errorf("业务码不符: %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler
// ═══════════════════════════════════════════════════════════

func TestExportExcelHandler(t *testing.T) {
	h := NewExportHandler(&mockExportService{
		buf:      bytes.NewBufferString("xlsx-bytes"),
		filename: "stundenplan_alice.xlsx",
	})

	w := doJSON(h.ExportExcel, http.MethodGet, "/test?username=alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码不符: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "stundenplan_alice.xlsx") {
		t.Errorf("Content-Disposition 不符: %s", cd)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Error("响应体应为文件内容")
	}
}

func TestExportICSHandler(t *testing.T) {
	h := NewExportHandler(&mockExportService{
		buf:      bytes.NewBufferString("BEGIN:VCALENDAR"),
		filename: "stundenplan_alice.ics",
	})

	w := doJSON(h.ExportICS, http.MethodGet, "/test?username=alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码不符: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeICS {
		t.Errorf("Content-Type 不符: %s", ct)
	}
}

func TestExportHandler_NoTimetable(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoTimetable})

	w := doJSON(h.ExportExcel, http.MethodGet, "/test?username=alice", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("状态码不符: %d", w.Code)
	}
	if resp := decodeResponse(t, w); resp.Code != 16101 {
		t.Errorf("业务码不符: %d", resp.Code)
	}
}

func TestExportHandler_MissingUsername(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	w := doJSON(h.ExportICS, http.MethodGet, "/test", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("状态码不符: %d", w.Code)
	}
}
