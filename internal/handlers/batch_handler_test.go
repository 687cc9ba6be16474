package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ach-batch-backend/internal/repository"
	"ach-batch-backend/internal/routes"
	"ach-batch-backend/internal/services/nacha"
	"ach-batch-backend/internal/services/processing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return now }
	formatter, err := nacha.NewFormatter(nacha.Originator{
		ImmediateDestination: "011000015",
		ImmediateOrigin:      "1234567890",
		CompanyName:          "Acme Payroll",
		CompanyID:            "1234567890",
		ODFIRouting:          "021000021",
	}, clock)
	require.NoError(t, err)

	svc := processing.NewService(repository.NewMemoryRepository(), formatter, processing.WithClock(clock))
	r := gin.New()
	routes.RegisterRoutes(r, svc, nil, nil)
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, company string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if company != "" {
		req.Header.Set("X-Company-ID", company)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createBatch(company string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/batches", company, map[string]string{
		"name": "Payroll Jan", "type": "payroll", "effective_date": "2026-03-11",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(s.t, w)["id"].(string)
}

func validEntry() map[string]string {
	return map[string]string{
		"transaction_type": "credit",
		"routing_number":   "021000021",
		"account_number":   "123456789",
		"amount":           "2500.00",
		"reference_code":   "E1001",
		"recipient_id":     "emp-1",
		"recipient_name":   "Jane Doe",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCompanyHeaderRequired(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/batches", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createBatch("acme")

	w := s.do(http.MethodGet, "/api/batches/"+id, "acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "draft", got["status"])
	assert.Equal(t, "Payroll", got["type"])
	assert.Equal(t, float64(0), got["entries"])
	assert.Equal(t, "0.00", got["total_amount"])

	w = s.do(http.MethodPost, "/api/batches/"+id+"/entries", "acme", validEntry())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode(t, w)
	assert.Equal(t, "2500.00", entry["amount"])
	assert.Equal(t, "*****6789", entry["account_number"])
	assert.Equal(t, "checking", entry["account_type"])

	w = s.do(http.MethodPost, "/api/batches/"+id+"/validate", "acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode(t, w)
	assert.Equal(t, true, res["is_valid"])
	assert.Empty(t, res["errors"])

	w = s.do(http.MethodPost, "/api/batches/"+id+"/process", "acme", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode(t, w)
	assert.Equal(t, "completed", done["status"])
	assert.Equal(t, "2500.00", done["total_amount"])
	assert.Equal(t, float64(1), done["entries"])

	w = s.do(http.MethodGet, "/api/batches/"+id+"/file", "acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ACH_PAYROLL_")
	sum, err := nacha.Parse(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, sum.Verify())
	assert.Equal(t, int64(250000), sum.FileControl.TotalCredit)

	w = s.do(http.MethodPost, "/api/batches/"+id+"/process", "acme", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/batches/"+id+"/entries", "acme", validEntry())
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/batches/"+id+"/history", "acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 2)
}

func TestProcessInvalidBatchReturnsErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createBatch("acme")

	e := validEntry()
	e["amount"] = "0"
	w := s.do(http.MethodPost, "/api/batches/"+id+"/entries", "acme", e)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/batches/"+id+"/process", "acme", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Invalid amount for entry E1001")

	w = s.do(http.MethodGet, "/api/batches/"+id, "acme", nil)
	assert.Equal(t, "draft", decode(t, w)["status"])

	w = s.do(http.MethodGet, "/api/batches/"+id+"/file", "acme", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadyLocksEntries(t *testing.T) {
	s := newTestServer(t)
	id := s.createBatch("acme")
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/batches/"+id+"/entries", "acme", validEntry()).Code)

	w := s.do(http.MethodPost, "/api/batches/"+id+"/ready", "acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decode(t, w)["status"])

	w = s.do(http.MethodPost, "/api/batches/"+id+"/entries", "acme", validEntry())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBatchesAreScopedToCompany(t *testing.T) {
	s := newTestServer(t)
	id := s.createBatch("acme")

	w := s.do(http.MethodGet, "/api/batches/"+id, "globex", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/batches", "globex", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["items"])

	w = s.do(http.MethodGet, "/api/batches?status=draft", "acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	id := s.createBatch("acme")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"unknown type", http.MethodPost, "/api/batches", map[string]string{"name": "x", "type": "bonus", "effective_date": "2026-03-11"}},
		{"bad date", http.MethodPost, "/api/batches", map[string]string{"name": "x", "type": "tax", "effective_date": "11-03-2026"}},
		{"missing name", http.MethodPost, "/api/batches", map[string]string{"type": "tax", "effective_date": "2026-03-11"}},
		{"bad batch id", http.MethodGet, "/api/batches/not-a-uuid", nil},
		{"bad amount", http.MethodPost, "/api/batches/" + id + "/entries", map[string]string{"amount": "12.345"}},
		{"negative amount", http.MethodPost, "/api/batches/" + id + "/entries", map[string]string{"amount": "-1.00"}},
		{"bad status filter", http.MethodGet, "/api/batches?status=done", nil},
		{"bad limit", http.MethodGet, "/api/batches?limit=zero", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, "acme", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}
