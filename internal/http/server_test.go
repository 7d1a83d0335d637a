package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/core"
	"spendlog/internal/ocr"
	"spendlog/internal/repository/memory"
	"spendlog/internal/services"
)

type fakeOCR struct {
	configured bool
	text       string
	err        error
	gotName    string
	gotBody    string
}

func (f *fakeOCR) Configured() bool { return f.configured }

func (f *fakeOCR) ExtractText(_ context.Context, filename, _ string, image io.Reader) (string, error) {
	f.gotName = filename
	b, _ := io.ReadAll(image)
	f.gotBody = string(b)
	return f.text, f.err
}

type testEnv struct {
	srv   *Server
	store *memory.Store
	ocr   *fakeOCR
}

func newTestEnv(t *testing.T, seed ...core.Expense) *testEnv {
	t.Helper()
	store := memory.NewWithExpenses(seed)
	expenses := services.NewExpenseService(store, nil, nil)
	dash := services.NewDashboardService(store).WithClock(func() time.Time {
		return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	})
	o := &fakeOCR{configured: true}
	srv := NewServer(Options{Addr: ":0", RateLimitPerMin: 1000}, expenses, dash, o)
	t.Cleanup(srv.rateLimiter.Stop)
	return &testEnv{srv: srv, store: store, ocr: o}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) Envelope {
	t.Helper()
	var raw struct {
		OK    bool            `json:"ok"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw), rr.Body.String())
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return Envelope{OK: raw.OK, Error: raw.Error}
}

func seedExpense(id, title string, cents int64, cat core.Category, date core.Date) core.Expense {
	return core.Expense{ID: id, Title: title, Amount: core.Money{Cents: cents}, Category: cat, ExpenseDate: date}
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeEnvelope(t, rr, nil).OK)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
	assert.Contains(t, env.do(t, http.MethodGet, "/metrics", "").Body.String(), "http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodOptions, "/expenses/abc", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestCreateExpense(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/expenses",
		`{"title":"  Lunch ","amount":12.5,"category":"food","expense_date":"2025-06-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created core.Expense
	assert.True(t, decodeEnvelope(t, rr, &created).OK)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lunch", created.Title)
	assert.Equal(t, int64(1250), created.Amount.Cents)
	assert.Equal(t, core.CategoryFood, created.Category)
	assert.Equal(t, "", created.Description)

	stored, err := env.store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", stored.Title)
	assert.Equal(t, "2025-06-01", stored.ExpenseDate.String())
}

func TestCreateExpense_DefaultsCategory(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/expenses", `{"title":"Misc","amount":"3","expense_date":"2025-06-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created core.Expense
	decodeEnvelope(t, rr, &created)
	assert.Equal(t, core.CategoryOther, created.Category)
}

func TestCreateExpense_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "JSON body required"},
		{"not json", "title=x", "JSON body required"},
		{"missing title", `{"amount":1,"expense_date":"2025-01-01"}`, "Missing field: title"},
		{"missing amount", `{"title":"x","expense_date":"2025-01-01"}`, "Missing field: amount"},
		{"missing date", `{"title":"x","amount":1}`, "Missing field: expense_date"},
		{"negative amount", `{"title":"x","amount":-1,"expense_date":"2025-01-01"}`, "amount must be >= 0"},
		{"blank title", `{"title":"   ","amount":1,"expense_date":"2025-01-01"}`, "title is required"},
		{"unknown category", `{"title":"x","amount":1,"category":"SNACKS","expense_date":"2025-01-01"}`, "invalid category"},
		{"bad date", `{"title":"x","amount":1,"expense_date":"01/02/2025"}`, "invalid expense_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/expenses", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			env := decodeEnvelope(t, rr, nil)
			assert.False(t, env.OK)
			assert.Contains(t, env.Error, tt.want)
		})
	}

	page, err := env.store.List(context.Background(), core.DefaultListQuery())
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestListExpenses(t *testing.T) {
	var seed []core.Expense
	for i := 1; i <= 12; i++ {
		seed = append(seed, seedExpense(fmt.Sprintf("e%02d", i), fmt.Sprintf("Item %02d", i),
			int64(i*100), core.CategoryFood, core.NewDate(2025, 5, i)))
	}
	seed = append(seed, seedExpense("rent", "Rent", 80000, core.CategoryRent, core.NewDate(2025, 5, 28)))
	env := newTestEnv(t, seed...)

	rr := env.do(t, http.MethodGet, "/expenses?sort_by=amount&sort_order=asc&page=2&page_size=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page core.ExpensePage
	decodeEnvelope(t, rr, &page)
	assert.Equal(t, 13, page.Total)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "e06", page.Items[0].ID)

	rr = env.do(t, http.MethodGet, "/expenses?search=RENT", "")
	decodeEnvelope(t, rr, &page)
	assert.Equal(t, 1, page.Total)

	rr = env.do(t, http.MethodGet, "/expenses?sort_by=password&page_size=500", "")
	decodeEnvelope(t, rr, &page)
	assert.Equal(t, "rent", page.Items[0].ID, "unknown sort column falls back to newest first")
	assert.Len(t, page.Items, 13)

	rr = env.do(t, http.MethodGet, "/expenses?page=1000000000000000000", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page = core.ExpensePage{}
	decodeEnvelope(t, rr, &page)
	assert.Equal(t, 13, page.Total)
	assert.Empty(t, page.Items)
}

func TestGetUpdateDeleteExpense(t *testing.T) {
	env := newTestEnv(t, seedExpense("e1", "Taxi", 900, core.CategoryTransport, core.NewDate(2025, 6, 2)))

	rr := env.do(t, http.MethodGet, "/expenses/e1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/expenses/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Expense not found", decodeEnvelope(t, rr, nil).Error)

	rr = env.do(t, http.MethodPatch, "/expenses/e1", `{"amount":"11.00","category":"health"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated core.Expense
	decodeEnvelope(t, rr, &updated)
	assert.Equal(t, "Taxi", updated.Title)
	assert.Equal(t, int64(1100), updated.Amount.Cents)
	assert.Equal(t, core.CategoryHealth, updated.Category)

	rr = env.do(t, http.MethodPut, "/expenses/e1", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPut, "/expenses/e1", `{"category":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeEnvelope(t, rr, nil).Error, "invalid category")
	stored, err := env.store.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryHealth, stored.Category)

	rr = env.do(t, http.MethodPut, "/expenses/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, "/expenses/e1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rr.Body.Len())

	rr = env.do(t, http.MethodDelete, "/expenses/e1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDashboard_InvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t, seedExpense("e1", "Rent", 50000, core.CategoryRent, core.NewDate(2025, 6, 1)))

	var d core.Dashboard
	rr := env.do(t, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	decodeEnvelope(t, rr, &d)
	assert.Equal(t, 500.0, d.KPIs.ThisMonth.Value)
	assert.Len(t, d.MonthlySpending, 6)

	// writes that bypass the API are not seen while the entry is fresh
	_, err := env.store.Create(context.Background(), core.ExpenseInput{
		Title: "Direct", Amount: core.Money{Cents: 1000}, ExpenseDate: core.NewDate(2025, 6, 2),
	})
	require.NoError(t, err)
	decodeEnvelope(t, env.do(t, http.MethodGet, "/dashboard", ""), &d)
	assert.Equal(t, 500.0, d.KPIs.ThisMonth.Value)

	rr = env.do(t, http.MethodPost, "/expenses", `{"title":"Food","amount":5,"expense_date":"2025-06-03"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	decodeEnvelope(t, env.do(t, http.MethodGet, "/dashboard", ""), &d)
	assert.Equal(t, 515.0, d.KPIs.ThisMonth.Value)
}

func TestDashboardChart(t *testing.T) {
	env := newTestEnv(t, seedExpense("e1", "Rent", 50000, core.CategoryRent, core.NewDate(2025, 6, 1)))

	rr := env.do(t, http.MethodGet, "/dashboard/chart.png?kind=category", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))

	rr = env.do(t, http.MethodGet, "/dashboard/chart.png?kind=radar", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	empty := newTestEnv(t)
	rr = empty.do(t, http.MethodGet, "/dashboard/chart.png", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("other", "value"))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/ocr/extract", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestOCRExtract(t *testing.T) {
	env := newTestEnv(t)
	env.ocr.text = "TOTAL 12.50"

	rr := env.upload(t, "file", "receipt.JPG", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data map[string]string
	assert.True(t, decodeEnvelope(t, rr, &data).OK)
	assert.Equal(t, "TOTAL 12.50", data["text"])
	assert.Equal(t, "receipt.JPG", env.ocr.gotName)
	assert.Equal(t, "jpeg-bytes", env.ocr.gotBody)
}

func TestOCRExtract_Errors(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.upload(t, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "No file provided", decodeEnvelope(t, rr, nil).Error)
	})

	t.Run("not multipart", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(t, http.MethodPost, "/ocr/extract", `{"file":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong type", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.upload(t, "file", "receipt.gif", []byte("gif"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Only JPG and PNG images are allowed.", decodeEnvelope(t, rr, nil).Error)
	})

	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t)
		env.ocr.configured = false
		rr := env.upload(t, "file", "receipt.png", []byte("png"))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "OCR API key not configured", decodeEnvelope(t, rr, nil).Error)
	})

	t.Run("upstream failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.ocr.err = fmt.Errorf("%w: 503 Service Unavailable", ocr.ErrUpstream)
		rr := env.upload(t, "file", "receipt.png", []byte("png"))
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("other failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.ocr.err = errors.New("disk full")
		rr := env.upload(t, "file", "receipt.png", []byte("png"))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	store := memory.New()
	srv := NewServer(Options{RateLimitPerMin: 1}, services.NewExpenseService(store, nil, nil),
		services.NewDashboardService(store), nil)
	t.Cleanup(srv.rateLimiter.Stop)
	env := &testEnv{srv: srv, store: store}

	body := `{"title":"x","amount":1,"expense_date":"2025-01-01"}`
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/expenses", body).Code)
	rr := env.do(t, http.MethodPost, "/expenses", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.False(t, decodeEnvelope(t, rr, nil).OK)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/expenses", "").Code)
}
